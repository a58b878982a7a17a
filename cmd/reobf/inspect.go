package main

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/reobf/internal/reobf"
	"github.com/standardbeagle/reobf/pkg/pathutil"
)

func inspectCommand() *cli.Command {
	return &cli.Command{
		Name:    "inspect",
		Aliases: []string{"i"},
		Usage:   "List the markers, interfaces and synthetic accessors found in an archive",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "jar", Usage: "Archive to scan"},
			&cli.StringSliceFlag{Name: "first-party", Usage: "First-party package prefix (repeatable)"},
			&cli.BoolFlag{Name: "json", Aliases: []string{"j"}, Usage: "Output as JSON"},
		},
		Action: inspectAction,
	}
}

func inspectAction(c *cli.Context) error {
	path := c.String("jar")
	if path == "" {
		path = c.Args().First()
	}
	if path == "" {
		return errors.New("inspect needs an archive: --jar FILE")
	}

	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	if prefixes := c.StringSlice("first-party"); len(prefixes) > 0 {
		cfg.Scan.FirstParty = prefixes
	}
	policy, err := cfg.Policy()
	if err != nil {
		return err
	}

	inv, err := reobf.Inspect(c.Context, path, policy, cfg.Filter())
	if err != nil {
		return err
	}
	if c.Bool("json") {
		return writeJSON(c.App.Writer, inv)
	}

	w := c.App.Writer
	shown := inv.Summary.Path
	if cwd, err := os.Getwd(); err == nil {
		shown = pathutil.ToRelative(shown, cwd)
	}
	fmt.Fprintf(w, "%s: %d classes\n", shown, inv.Summary.Classes)
	fmt.Fprintf(w, "\nMarkers (%d):\n", len(inv.Markers))
	for _, key := range sortedMarkerKeys(inv.Markers) {
		fmt.Fprintf(w, "  %s %s\n", key, inv.Markers[key])
	}
	fmt.Fprintf(w, "\nInterfaces (%d):\n", len(inv.Interfaces))
	for _, name := range inv.Interfaces {
		fmt.Fprintf(w, "  %s\n", name)
	}
	fmt.Fprintf(w, "\nAccessors (%d):\n", len(inv.Accessors))
	for _, a := range inv.Accessors {
		fmt.Fprintf(w, "  %s %s\n", a.Key, a.Fingerprint)
	}
	return nil
}

func sortedMarkerKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
