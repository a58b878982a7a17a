package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/standardbeagle/reobf/internal/config"
	"github.com/standardbeagle/reobf/internal/debug"
	"github.com/standardbeagle/reobf/internal/reobf"
	"github.com/standardbeagle/reobf/internal/rename"
	"github.com/standardbeagle/reobf/pkg/pathutil"
)

func remapCommand() *cli.Command {
	return &cli.Command{
		Name:    "remap",
		Aliases: []string{"r"},
		Usage:   "Rewrite an SRG mapping so it follows the candidate build's synthetic names",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "reference", Usage: "Archive built with final names", EnvVars: []string{"REOBF_REFERENCE"}},
			&cli.StringFlag{Name: "candidate", Usage: "Archive whose synthetic names the mapping must follow", EnvVars: []string{"REOBF_CANDIDATE"}},
			&cli.StringFlag{Name: "srg", Usage: "SRG mapping to rewrite", EnvVars: []string{"REOBF_SRG"}},
			&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Usage: "Where to write the rewritten mapping", EnvVars: []string{"REOBF_OUT"}},
			&cli.StringFlag{Name: "fields", Usage: "Field name table (old,new per line)", EnvVars: []string{"REOBF_FIELDS"}},
			&cli.StringFlag{Name: "methods", Usage: "Method name table (old,new per line)", EnvVars: []string{"REOBF_METHODS"}},
			&cli.StringFlag{Name: "exc", Usage: "Exceptor config with Class=marker entries", EnvVars: []string{"REOBF_EXC"}},
			&cli.StringFlag{Name: "mode", Usage: "Accessor pairing: first-match or strict", EnvVars: []string{"REOBF_MODE"}},
			&cli.StringFlag{Name: "diff", Usage: "Also write a unified diff of the mapping changes", EnvVars: []string{"REOBF_DIFF"}},
			&cli.StringSliceFlag{Name: "first-party", Usage: "First-party package prefix (repeatable, replaces the configured list)"},
			&cli.StringSliceFlag{Name: "exclude", Usage: "Skip archive entries matching glob patterns"},
			&cli.BoolFlag{Name: "json", Aliases: []string{"j"}, Usage: "Print the report as JSON"},
		},
		Action: remapAction,
	}
}

// remapOptions merges the config file with command flags; flags win
func remapOptions(c *cli.Context, cfg *config.Config) (reobf.Options, error) {
	override := func(flag string, target *string) {
		if v := c.String(flag); v != "" {
			*target = v
		}
	}
	in := cfg.Inputs
	override("reference", &in.Reference)
	override("candidate", &in.Candidate)
	override("srg", &in.SRG)
	override("out", &in.Output)
	override("fields", &in.Fields)
	override("methods", &in.Methods)
	override("exc", &in.Exceptions)
	override("diff", &in.Diff)
	override("mode", &cfg.Reconcile.Mode)

	if prefixes := c.StringSlice("first-party"); len(prefixes) > 0 {
		cfg.Scan.FirstParty = prefixes
	}
	if excludes := c.StringSlice("exclude"); len(excludes) > 0 {
		cfg.Scan.Exclude = append(cfg.Scan.Exclude, excludes...)
	}
	if err := config.ValidateConfig(cfg); err != nil {
		return reobf.Options{}, err
	}

	policy, err := cfg.Policy()
	if err != nil {
		return reobf.Options{}, err
	}
	mode, err := cfg.Mode()
	if err != nil {
		return reobf.Options{}, err
	}

	return reobf.Options{
		Reference:   in.Reference,
		Candidate:   in.Candidate,
		FieldNames:  in.Fields,
		MethodNames: in.Methods,
		Exceptions:  in.Exceptions,
		Mapping:     in.SRG,
		Output:      in.Output,
		DiffOutput:  in.Diff,
		Policy:      policy,
		Filter:      cfg.Filter(),
		Mode:        mode,
	}, nil
}

func remapAction(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}
	opts, err := remapOptions(c, cfg)
	if err != nil {
		return err
	}

	report, err := reobf.Run(c.Context, opts)
	if err != nil {
		return err
	}

	for _, u := range report.Unresolved {
		debug.Warn("class %s left unchanged: no candidate class declares %s\n", u.Class, u.Marker)
	}
	for _, g := range report.Ambiguous {
		verb := "paired in declaration order"
		if opts.Mode == rename.ModeStrict {
			verb = "left unpaired"
		}
		debug.Warn("%d accessors in %s share one body and were %s\n", len(g.References), g.Owner, verb)
	}

	if c.Bool("json") {
		return writeJSON(c.App.Writer, report)
	}
	if cwd, err := os.Getwd(); err == nil {
		pathutil.ToRelativeAll(cwd, &report.Reference.Path, &report.Candidate.Path, &report.Output, &report.DiffOutput)
	}
	if err := report.WriteText(c.App.Writer); err != nil {
		return fmt.Errorf("failed to print report: %w", err)
	}
	return nil
}
