package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/reobf/internal/config"
	"github.com/standardbeagle/reobf/internal/debug"
	"github.com/standardbeagle/reobf/internal/version"
)

var Version = version.Version // Use centralized version management

// loadConfig reads the --config file when given, otherwise looks for
// .reobf.kdl or reobf.toml in the working directory
func loadConfig(c *cli.Context) (*config.Config, error) {
	if path := c.String("config"); path != "" {
		cfg, err := config.LoadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
		}
		return cfg, nil
	}
	cfg, err := config.Load(".")
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func newApp() *cli.App {
	return &cli.App{
		Name:                   "reobf",
		Usage:                  "Reconcile synthetic class and accessor names between two builds and rewrite SRG mappings",
		Version:                Version,
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Config file path (.kdl or .toml); defaults to ./.reobf.kdl or ./reobf.toml",
				EnvVars: []string{"REOBF_CONFIG"},
			},
			&cli.BoolFlag{
				Name:    "debug",
				Usage:   "Write debug logging to stderr",
				EnvVars: []string{"REOBF_DEBUG"},
			},
			&cli.StringFlag{
				Name:   "debug-log",
				Usage:  "Write debug logging to a file in this directory",
				Hidden: true,
			},
		},
		Before: func(c *cli.Context) error {
			debug.SetDebugOutput(c.App.ErrWriter)
			if c.Bool("debug") {
				debug.SetEnabled(true)
			}
			if dir := c.String("debug-log"); dir != "" {
				debug.SetEnabled(true)
				path, err := debug.InitDebugLogFile(dir)
				if err != nil {
					return err
				}
				fmt.Fprintf(c.App.ErrWriter, "Debug log: %s\n", path)
			}
			return nil
		},
		After: func(c *cli.Context) error {
			return debug.CloseDebugLog()
		},
		Commands: []*cli.Command{
			remapCommand(),
			inspectCommand(),
			{
				Name:  "version",
				Usage: "Print version information",
				Action: func(c *cli.Context) error {
					fmt.Fprintln(c.App.Writer, version.FullInfo())
					return nil
				},
			},
		},
	}
}

func main() {
	// A .env file may carry REOBF_* settings; it is optional
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := newApp()
	app.Writer = os.Stdout
	app.ErrWriter = os.Stderr

	if err := app.RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
