package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// LoadTOML attempts to load configuration from reobf.toml in dir. A missing
// file yields a nil config and no error.
func LoadTOML(dir string) (*Config, error) {
	path := filepath.Join(dir, TOMLFile)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", TOMLFile, err)
	}

	cfg, err := parseTOML(data)
	if err != nil {
		return nil, err
	}
	cfg.Source = path
	return cfg, nil
}

// parseTOML decodes over the defaults, so absent keys keep their default
func parseTOML(data []byte) (*Config, error) {
	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML config: %w", err)
	}
	return cfg, nil
}
