// Package engine implements the rare-style aggregation pipeline:
// classification, merging, quota enforcement, unanimity balancing,
// aggregation, and tally verification.
package engine

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Package-level validator instance for configuration validation.
// Uses go-playground/validator v10 for struct tag-based validation.
var validate = validator.New()

// Config controls the anonymization pipeline. All privacy-relevant
// parameters live here; the engine itself carries no hardcoded policy.
type Config struct {
	// MinBallots is the anonymity threshold k: the minimum number of
	// ballots that must share a published style or aggregate.
	MinBallots int `yaml:"min_ballots" validate:"required,min=2"`

	// StyleColumn is the index of the precinct/style label column within
	// the identifying prefix.
	StyleColumn int `yaml:"style_column" validate:"min=0"`

	// HeaderColumns is the count of identifying prefix columns before the
	// vote matrix begins.
	HeaderColumns int `yaml:"header_columns" validate:"required,min=1"`

	// UnanimitySlack is the near-unanimity detection bound: a contest is
	// flagged when its non-winning vote count is at or below this value.
	UnanimitySlack int `yaml:"unanimity_slack" validate:"min=0"`

	// ContrastTarget is the number of non-winning votes a flagged contest
	// must accumulate before balancing stops borrowing for it.
	ContrastTarget int `yaml:"contrast_target" validate:"min=1"`

	// CoverageWeight scales the contest-coverage term against the
	// balance-improvement term when scoring donor ballots.
	CoverageWeight float64 `yaml:"coverage_weight" validate:"min=1"`

	// Verbose enables the per-style summary in logs and reports.
	Verbose bool `yaml:"verbose"`
}

// DefaultConfig returns the production defaults: the statutory threshold
// of 10 ballots and the Dominion export column layout.
func DefaultConfig() Config {
	return Config{
		MinBallots:     10,
		StyleColumn:    6,
		HeaderColumns:  8,
		UnanimitySlack: 2,
		ContrastTarget: 3,
		CoverageWeight: 10,
	}
}

// Validate checks the configuration against its struct constraints plus
// the cross-field requirement that the style column sits inside the
// identifying prefix.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}
	if c.StyleColumn >= c.HeaderColumns {
		return fmt.Errorf("style column %d must be inside the %d identifying columns",
			c.StyleColumn, c.HeaderColumns)
	}
	return nil
}

// LoadConfig reads a YAML configuration file, overlaying it on the
// defaults so partial files are valid.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
