package config

import (
	"errors"
	"regexp"
	"strings"

	"github.com/standardbeagle/reobf/internal/archive"
	reobferrors "github.com/standardbeagle/reobf/internal/errors"
	"github.com/standardbeagle/reobf/internal/rename"
)

// Validator validates configuration and fills in defaults
type Validator struct{}

// NewValidator creates a new configuration validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateAndSetDefaults validates configuration and applies defaults for
// empty settings. Returns a *errors.ConfigError if validation fails.
func (v *Validator) ValidateAndSetDefaults(cfg *Config) error {
	v.setDefaults(cfg)

	if err := v.validateScanConfig(&cfg.Scan); err != nil {
		return err
	}
	if _, err := rename.ParseMode(cfg.Reconcile.Mode); err != nil {
		return reobferrors.NewConfigError("reconcile.mode", cfg.Reconcile.Mode, err)
	}
	return nil
}

func (v *Validator) validateScanConfig(scan *Scan) error {
	if strings.TrimSpace(scan.MarkerField) == "" {
		return reobferrors.NewConfigError("scan.marker_field", scan.MarkerField, errors.New("marker field cannot be empty"))
	}

	if len(scan.FirstParty) == 0 {
		return reobferrors.NewConfigError("scan.first_party", "", errors.New("at least one first-party prefix is required"))
	}
	for _, prefix := range scan.FirstParty {
		if prefix == "" || strings.Contains(prefix, ".") {
			return reobferrors.NewConfigError("scan.first_party", prefix,
				errors.New("prefix must be a non-empty internal name such as net/minecraft/"))
		}
	}

	if _, err := regexp.Compile(scan.AccessorPattern); err != nil {
		return reobferrors.NewConfigError("scan.accessor_pattern", scan.AccessorPattern, err)
	}

	filter := archive.Filter{Include: scan.Include, Exclude: scan.Exclude}
	if err := filter.Validate(); err != nil {
		patterns := append(append([]string{}, scan.Include...), scan.Exclude...)
		return reobferrors.NewConfigError("scan.include", strings.Join(patterns, ","), err)
	}
	return nil
}

func (v *Validator) setDefaults(cfg *Config) {
	def := Default()
	if cfg.Version == 0 {
		cfg.Version = def.Version
	}
	if cfg.Scan.MarkerField == "" {
		cfg.Scan.MarkerField = def.Scan.MarkerField
	}
	if cfg.Scan.AccessorPattern == "" {
		cfg.Scan.AccessorPattern = def.Scan.AccessorPattern
	}
	if len(cfg.Scan.Include) == 0 {
		cfg.Scan.Include = def.Scan.Include
	}
	if cfg.Reconcile.Mode == "" {
		cfg.Reconcile.Mode = def.Reconcile.Mode
	}
}

// ValidateConfig is a convenience function for quick validation
func ValidateConfig(cfg *Config) error {
	return NewValidator().ValidateAndSetDefaults(cfg)
}
