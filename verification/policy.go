// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package verification

import (
	"errors"
	"fmt"
	"sort"

	"github.com/jcodagnone/geoverify/geocoding"
)

// Level is the qualitative match level of a geocoding result.
type Level string

const (
	LevelBuilding  Level = "building"
	LevelStreet    Level = "street"
	LevelCity      Level = "city"
	LevelAmbiguous Level = "ambiguous"
	LevelPartial   Level = "partial"
)

// Rule matches a feature when every configured condition holds. Unset
// conditions are ignored, so an empty rule matches everything.
type Rule struct {
	Level Level  `json:"level" yaml:"level"`
	Label string `json:"label" yaml:"label"`

	// ConfidenceBelow requires a confidence strictly lower than the value.
	ConfidenceBelow *float64 `json:"confidence_below,omitempty" yaml:"confidence_below,omitempty"`
	// ConfidenceAbove requires a confidence strictly greater than the value.
	ConfidenceAbove *float64 `json:"confidence_above,omitempty" yaml:"confidence_above,omitempty"`
	// ConfidenceEquals requires exactly the value.
	ConfidenceEquals *float64 `json:"confidence_equals,omitempty" yaml:"confidence_equals,omitempty"`

	RequireHouseNumber bool `json:"require_housenumber,omitempty" yaml:"require_housenumber,omitempty"`
	// RequireStreetLevel requires confidence_street_level == 1.
	RequireStreetLevel bool `json:"require_street_level,omitempty" yaml:"require_street_level,omitempty"`
	// StreetNameCounts lets a street name satisfy RequireStreetLevel.
	StreetNameCounts bool `json:"street_name_counts,omitempty" yaml:"street_name_counts,omitempty"`
}

// Matches reports whether the rule applies to the given properties. A
// confidence condition never holds when the provider sent no confidence.
func (r Rule) Matches(p geocoding.Properties) bool {
	conf := p.Rank.Confidence

	if r.ConfidenceBelow != nil && (conf == nil || !(*conf < *r.ConfidenceBelow)) {
		return false
	}

	if r.ConfidenceAbove != nil && (conf == nil || !(*conf > *r.ConfidenceAbove)) {
		return false
	}

	if r.ConfidenceEquals != nil && (conf == nil || *conf != *r.ConfidenceEquals) {
		return false
	}

	if r.RequireHouseNumber && p.HouseNumber == "" {
		return false
	}

	if r.RequireStreetLevel {
		streetLevel := p.Rank.ConfidenceStreetLevel != nil && *p.Rank.ConfidenceStreetLevel == 1
		if !streetLevel && !(r.StreetNameCounts && p.Street != "") {
			return false
		}
	}

	return true
}

func (r Rule) validate() error {
	if r.Level == "" {
		return errors.New("level is required")
	}

	if r.Label == "" {
		return errors.New("label is required")
	}

	return nil
}

// Policy is an ordered rule table: the first matching rule wins, Fallback
// applies when none does.
type Policy struct {
	Name     string `json:"name" yaml:"name"`
	Rules    []Rule `json:"rules" yaml:"rules"`
	Fallback Rule   `json:"fallback" yaml:"fallback"`
}

// Validate checks that every rule produces a level and a label.
func (p Policy) Validate() error {
	if p.Name == "" {
		return errors.New("policy name is required")
	}

	for i, r := range p.Rules {
		if err := r.validate(); err != nil {
			return fmt.Errorf("policy %s: rule %d: %w", p.Name, i, err)
		}
	}

	if err := p.Fallback.validate(); err != nil {
		return fmt.Errorf("policy %s: fallback: %w", p.Name, err)
	}

	return nil
}

// MatchResult is the classification of a single feature.
type MatchResult struct {
	Level  Level  `json:"level"`
	Label  string `json:"label"`
	Policy string `json:"policy"`
}

// Classify grades f with policy p. It depends on nothing but the feature.
func Classify(p Policy, f *geocoding.Feature) MatchResult {
	rule := p.Fallback

	for _, r := range p.Rules {
		if r.Matches(f.Properties) {
			rule = r

			break
		}
	}

	return MatchResult{Level: rule.Level, Label: rule.Label, Policy: p.Name}
}

func threshold(v float64) *float64 {
	return &v
}

// BadgePolicy grades the match badge shown next to the form.
func BadgePolicy() Policy {
	return Policy{
		Name: "badge",
		Rules: []Rule{
			{Level: LevelAmbiguous, Label: "Ambiguous match", ConfidenceBelow: threshold(0.5)},
			{Level: LevelBuilding, Label: "Building-level match", ConfidenceEquals: threshold(1), RequireHouseNumber: true},
			{Level: LevelStreet, Label: "Street-level match", RequireStreetLevel: true, StreetNameCounts: true},
		},
		Fallback: Rule{Level: LevelCity, Label: "City-level match"},
	}
}

// VerificationPolicy grades the looser verification message of the
// diagnostics panel.
func VerificationPolicy() Policy {
	return Policy{
		Name: "verification",
		Rules: []Rule{
			{Level: LevelBuilding, Label: "Verified to building level.", ConfidenceEquals: threshold(1)},
			{Level: LevelStreet, Label: "Likely accurate; verified to street level.", ConfidenceAbove: threshold(0.5), RequireStreetLevel: true},
			{Level: LevelStreet, Label: "Verified to street level only.", RequireStreetLevel: true},
		},
		Fallback: Rule{Level: LevelPartial, Label: "Partial verification only."},
	}
}

// Presets returns the built-in policies by name.
func Presets() map[string]Policy {
	badge, verification := BadgePolicy(), VerificationPolicy()

	return map[string]Policy{
		badge.Name:        badge,
		verification.Name: verification,
	}
}

// ResolvePolicy looks name up in custom first, then in the presets.
func ResolvePolicy(name string, custom map[string]Policy) (Policy, error) {
	if p, ok := custom[name]; ok {
		if p.Name == "" {
			p.Name = name
		}

		return p, p.Validate()
	}

	if p, ok := Presets()[name]; ok {
		return p, nil
	}

	known := make([]string, 0)
	for n := range Presets() {
		known = append(known, n)
	}

	for n := range custom {
		known = append(known, n)
	}

	sort.Strings(known)

	return Policy{}, fmt.Errorf("unknown policy %q (known: %v)", name, known)
}
