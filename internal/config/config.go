package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/standardbeagle/reobf/internal/archive"
	"github.com/standardbeagle/reobf/internal/index"
	"github.com/standardbeagle/reobf/internal/rename"
)

// Config file names, in lookup order
const (
	KDLFile  = ".reobf.kdl"
	TOMLFile = "reobf.toml"
)

type Config struct {
	Version   int       `toml:"version"`
	Scan      Scan      `toml:"scan"`
	Reconcile Reconcile `toml:"reconcile"`
	Inputs    Inputs    `toml:"inputs"`
	Source    string    `toml:"-"` // file the config was read from, empty for defaults
}

// Scan controls how archives are indexed
type Scan struct {
	MarkerField     string   `toml:"marker_field"`
	FirstParty      []string `toml:"first_party"`
	AccessorPattern string   `toml:"accessor_pattern"`
	Include         []string `toml:"include"`
	Exclude         []string `toml:"exclude"`
}

type Reconcile struct {
	Mode string `toml:"mode"` // first-match or strict
}

// Inputs names the files of a run. Relative paths are resolved against the
// directory holding the config file.
type Inputs struct {
	Reference  string `toml:"reference"`
	Candidate  string `toml:"candidate"`
	Fields     string `toml:"fields"`
	Methods    string `toml:"methods"`
	Exceptions string `toml:"exceptions"`
	SRG        string `toml:"srg"`
	Output     string `toml:"output"`
	Diff       string `toml:"diff"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Version: 1,
		Scan: Scan{
			MarkerField:     index.DefaultMarkerField,
			FirstParty:      []string{index.DefaultFirstParty},
			AccessorPattern: index.DefaultAccessorPattern,
			Include:         []string{archive.DefaultInclude},
			Exclude:         []string{},
		},
		Reconcile: Reconcile{Mode: rename.ModeFirstMatch.String()},
	}
}

// Load reads .reobf.kdl from dir, falling back to reobf.toml and then to
// the defaults. The result is validated.
func Load(dir string) (*Config, error) {
	if dir == "" {
		dir = "."
	}

	cfg, err := LoadKDL(dir)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		if cfg, err = LoadTOML(dir); err != nil {
			return nil, err
		}
	}
	if cfg == nil {
		cfg = Default()
	} else {
		cfg.Inputs.resolve(dir)
	}

	if err := NewValidator().ValidateAndSetDefaults(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads one config file, picking the format from its name
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var cfg *Config
	if filepath.Ext(path) == ".toml" {
		cfg, err = parseTOML(data)
	} else {
		cfg, err = parseKDL(string(data))
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.Source = path
	cfg.Inputs.resolve(filepath.Dir(path))

	if err := NewValidator().ValidateAndSetDefaults(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (in *Inputs) resolve(dir string) {
	for _, p := range []*string{
		&in.Reference, &in.Candidate, &in.Fields, &in.Methods,
		&in.Exceptions, &in.SRG, &in.Output, &in.Diff,
	} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Clean(filepath.Join(dir, *p))
		}
	}
}

// Policy converts the scan section into an index policy
func (c *Config) Policy() (index.Policy, error) {
	re, err := regexp.Compile(c.Scan.AccessorPattern)
	if err != nil {
		return index.Policy{}, err
	}
	return index.Policy{
		MarkerField:     c.Scan.MarkerField,
		FirstParty:      append([]string(nil), c.Scan.FirstParty...),
		AccessorPattern: re,
	}, nil
}

// Filter converts the scan section into an archive entry filter
func (c *Config) Filter() archive.Filter {
	return archive.Filter{
		Include: append([]string(nil), c.Scan.Include...),
		Exclude: append([]string(nil), c.Scan.Exclude...),
	}
}

// Mode returns the configured reconcile mode
func (c *Config) Mode() (rename.Mode, error) {
	return rename.ParseMode(c.Reconcile.Mode)
}
