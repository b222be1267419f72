// Package quality defines the configuration of the data-quality rule
// set. Parsing is pure; reading rules.yaml from disk happens in
// internal/ioquality.
package quality

import (
	"fmt"
	"regexp"

	"gopkg.in/yaml.v3"
)

// RulesConfig configures the advisory quality rules.
type RulesConfig struct {
	// CatalogNumberPattern is the regular expression a well-formed
	// catalog number must match.
	CatalogNumberPattern string `yaml:"catalog_number_pattern"`

	// RequiredFields lists Darwin Core terms that must be present
	// before publication.
	RequiredFields []string `yaml:"required_fields"`

	// PlaceholderValues are substrings that mark a value as a
	// placeholder rather than real data.
	PlaceholderValues []string `yaml:"placeholder_values"`

	// MinCatalogConfidence is the confidence below which a catalog
	// number is flagged as suspect.
	MinCatalogConfidence float64 `yaml:"min_catalog_confidence"`

	// SimilarityThreshold is the perceptual-hash similarity above
	// which two specimens are flagged as duplicate photography.
	SimilarityThreshold float64 `yaml:"similarity_threshold"`

	// BlockingSeverities lists flag severities that block approval
	// while unresolved.
	BlockingSeverities []string `yaml:"blocking_severities"`

	// Verifier configures the optional remote name validator.
	Verifier VerifierConfig `yaml:"verifier"`
}

// VerifierConfig points at a GBIF-style species-match endpoint.
// An empty URL disables remote verification.
type VerifierConfig struct {
	URL        string `yaml:"url"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// Defaults returns the rule configuration used when rules.yaml is
// absent or partial.
func Defaults() *RulesConfig {
	return &RulesConfig{
		CatalogNumberPattern: `^[A-Z]{2,6}-?\d{4,8}$`,
		RequiredFields: []string{
			"catalogNumber", "scientificName", "eventDate",
		},
		PlaceholderValues: []string{
			"unknown", "n/a", "none", "illegible", "xxx",
		},
		MinCatalogConfidence: 0.5,
		SimilarityThreshold:  0.92,
		BlockingSeverities:   []string{"error"},
		Verifier: VerifierConfig{
			URL:        "https://api.gbif.org/v1/species/match",
			TimeoutSec: 10,
		},
	}
}

// Parse decodes a rules.yaml document, filling missing sections from
// Defaults().
func Parse(data []byte) (*RulesConfig, error) {
	res := Defaults()
	if err := yaml.Unmarshal(data, res); err != nil {
		return nil, fmt.Errorf("cannot parse rules config: %w", err)
	}
	if err := res.Validate(); err != nil {
		return nil, err
	}
	return res, nil
}

// Validate checks the config for values that cannot work.
func (rc *RulesConfig) Validate() error {
	if _, err := regexp.Compile(rc.CatalogNumberPattern); err != nil {
		return fmt.Errorf("invalid catalog_number_pattern: %w", err)
	}
	if rc.MinCatalogConfidence < 0 || rc.MinCatalogConfidence > 1 {
		return fmt.Errorf(
			"min_catalog_confidence %v outside [0,1]",
			rc.MinCatalogConfidence)
	}
	if rc.SimilarityThreshold < 0 || rc.SimilarityThreshold > 1 {
		return fmt.Errorf(
			"similarity_threshold %v outside [0,1]",
			rc.SimilarityThreshold)
	}
	for _, s := range rc.BlockingSeverities {
		switch s {
		case "error", "warning", "info":
		default:
			return fmt.Errorf("unknown blocking severity %q", s)
		}
	}
	return nil
}

// Blocks reports whether a flag of the given severity blocks approval.
func (rc *RulesConfig) Blocks(severity string) bool {
	for _, s := range rc.BlockingSeverities {
		if s == severity {
			return true
		}
	}
	return false
}
