// Package config holds the tuning constants of the decision pipeline.
//
// Defaults match the reference ruleset; a YAML file can override any subset
// of them.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Tuning struct {
	// ThreatRadius is the Manhattan distance within which an enemy counts
	// as a threat for cover decisions.
	ThreatRadius int `yaml:"threat_radius"`
	// CoverHorizon bounds the search for a cover tile.
	CoverHorizon int `yaml:"cover_horizon"`

	ThrowRange  int `yaml:"throw_range"`
	BlastRadius int `yaml:"blast_radius"`
	ThrowDamage int `yaml:"throw_damage"`

	// HunkerBonus is the extra damage reduction of HUNKER_DOWN.
	HunkerBonus float64 `yaml:"hunker_bonus"`

	// Posture is an expr boolean evaluated against the live territory
	// score; when true the engine plays aggressively.
	Posture string `yaml:"posture"`

	// TurnBudget is the wall-clock allowance for one decision pass.
	TurnBudget time.Duration `yaml:"turn_budget"`
}

func Default() Tuning {
	return Tuning{
		ThreatRadius: 5,
		CoverHorizon: 8,
		ThrowRange:   4,
		BlastRadius:  1,
		ThrowDamage:  100,
		HunkerBonus:  0.25,
		Posture:      "EnemyScore > OwnScore",
		TurnBudget:   45 * time.Millisecond,
	}
}

func (t Tuning) Validate() error {
	var errs []error
	if t.ThreatRadius < 0 {
		errs = append(errs, fmt.Errorf("threat_radius must be >= 0, got %d", t.ThreatRadius))
	}
	if t.CoverHorizon < 1 {
		errs = append(errs, fmt.Errorf("cover_horizon must be >= 1, got %d", t.CoverHorizon))
	}
	if t.ThrowRange < 0 {
		errs = append(errs, fmt.Errorf("throw_range must be >= 0, got %d", t.ThrowRange))
	}
	if t.BlastRadius < 0 {
		errs = append(errs, fmt.Errorf("blast_radius must be >= 0, got %d", t.BlastRadius))
	}
	if t.ThrowDamage < 0 {
		errs = append(errs, fmt.Errorf("throw_damage must be >= 0, got %d", t.ThrowDamage))
	}
	if t.HunkerBonus < 0 || t.HunkerBonus > 1 {
		errs = append(errs, fmt.Errorf("hunker_bonus must be in [0,1], got %g", t.HunkerBonus))
	}
	if t.Posture == "" {
		errs = append(errs, errors.New("posture expression is required"))
	}
	if t.TurnBudget <= 0 {
		errs = append(errs, fmt.Errorf("turn_budget must be positive, got %s", t.TurnBudget))
	}
	return errors.Join(errs...)
}

// Load reads a YAML tuning file on top of Default. An empty path returns the
// defaults.
func Load(path string) (Tuning, error) {
	if path == "" {
		return Default(), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return Tuning{}, fmt.Errorf("open tuning file: %w", err)
	}
	defer f.Close()

	t, err := Decode(f)
	if err != nil {
		return Tuning{}, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Decode parses YAML from r over the defaults and validates the result.
func Decode(r io.Reader) (Tuning, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return Tuning{}, fmt.Errorf("read tuning: %w", err)
	}
	t := Default()
	if len(bytes.TrimSpace(raw)) > 0 {
		dec := yaml.NewDecoder(bytes.NewReader(raw))
		dec.KnownFields(true)
		if err := dec.Decode(&t); err != nil {
			return Tuning{}, fmt.Errorf("decode tuning: %w", err)
		}
	}
	if err := t.Validate(); err != nil {
		return Tuning{}, fmt.Errorf("invalid tuning: %w", err)
	}
	return t, nil
}
