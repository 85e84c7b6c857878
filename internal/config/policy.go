// Package config handles configuration loading and management for BotArena.
// The detection policy is a YAML document, attack profiles are JSON.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/botarena/botarena/pkg/types"
	"gopkg.in/yaml.v3"
)

// FeatureRule configures one scored feature: a non-negative weight and
// an optional trigger threshold. Features without a threshold (the
// boolean warmup flag) trigger unconditionally when set.
type FeatureRule struct {
	Weight    float64  `yaml:"weight" json:"weight"`
	Threshold *float64 `yaml:"threshold,omitempty" json:"threshold,omitempty"`
}

// Band is one action band: scores up to and including Max fall into it.
type Band struct {
	Max float64 `yaml:"max" json:"max"`
}

// ActionBands are the four ordered score bands.
type ActionBands struct {
	Allow     Band `yaml:"allow" json:"allow"`
	Throttle  Band `yaml:"throttle" json:"throttle"`
	Challenge Band `yaml:"challenge" json:"challenge"`
	Block     Band `yaml:"block" json:"block"`
}

// Constraints are hard limits a policy promises to respect.
type Constraints struct {
	MaxFalsePositiveRate float64 `yaml:"maxFalsePositiveRate" json:"maxFalsePositiveRate"`
}

// Policy is the detector's scoring configuration.
type Policy struct {
	Features    map[string]FeatureRule `yaml:"features" json:"features"`
	Actions     ActionBands            `yaml:"actions" json:"actions"`
	Constraints Constraints            `yaml:"constraints" json:"constraints"`
}

// DefaultPolicy returns the built-in detection policy used when the
// running service has no policy file. Thresholds target obviously
// non-human behavior so a fresh deployment stays quiet for real users.
func DefaultPolicy() *Policy {
	thr := func(v float64) *float64 { return &v }
	return &Policy{
		Features: map[string]FeatureRule{
			types.FeatureReqsPerMin:         {Weight: 1.5, Threshold: thr(30)},
			types.FeatureUniqueQueries:      {Weight: 2.0, Threshold: thr(20)},
			types.FeaturePaginationRatio:    {Weight: 1.2, Threshold: thr(4)},
			types.FeatureSessionDepth:       {Weight: 1.0, Threshold: thr(10)},
			types.FeatureDwellTimeAvg:       {Weight: 1.8, Threshold: thr(800)},
			types.FeatureTimingVariance:     {Weight: 3.0, Threshold: thr(0.15)},
			types.FeatureAssetWarmupMissing: {Weight: 3.0},
			types.FeatureMouseEntropy:       {Weight: 4.0, Threshold: thr(1.5)},
			types.FeatureDwellContentCorr:   {Weight: 3.5, Threshold: thr(0.2)},
		},
		Actions: ActionBands{
			Allow:     Band{Max: 3},
			Throttle:  Band{Max: 5},
			Challenge: Band{Max: 8},
			Block:     Band{Max: 999},
		},
		Constraints: Constraints{MaxFalsePositiveRate: 0.05},
	}
}

// Validate checks the policy's structural invariants. Action bands must
// be strictly increasing and weights non-negative; a violating policy
// is rejected before a round runs.
func (p *Policy) Validate() error {
	a := p.Actions
	if !(a.Allow.Max < a.Throttle.Max && a.Throttle.Max < a.Challenge.Max && a.Challenge.Max < a.Block.Max) {
		return fmt.Errorf("action bands must be strictly increasing: allow=%.2f throttle=%.2f challenge=%.2f block=%.2f",
			a.Allow.Max, a.Throttle.Max, a.Challenge.Max, a.Block.Max)
	}
	for name, rule := range p.Features {
		if rule.Weight < 0 {
			return fmt.Errorf("feature %s has negative weight %.2f", name, rule.Weight)
		}
	}
	return nil
}

// LoadPolicy reads and parses a policy file. A missing file is an
// error; tournament runs want to know their configuration is gone
// rather than silently fighting with defaults.
func LoadPolicy(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy: %w", err)
	}
	var p Policy
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("failed to parse policy YAML: %w", err)
	}
	if p.Features == nil {
		p.Features = make(map[string]FeatureRule)
	}
	return &p, nil
}

// LoadPolicyOrDefault reads a policy file, falling back to the built-in
// default when the file does not exist. This is the resilient contract
// the running target service uses; parse errors still propagate.
func LoadPolicyOrDefault(path string) (*Policy, error) {
	if path == "" {
		return DefaultPolicy(), nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return DefaultPolicy(), nil
	}
	return LoadPolicy(path)
}

// SavePolicy writes the policy as YAML, creating parent directories.
func SavePolicy(path string, p *Policy) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create policy directory: %w", err)
	}
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal policy: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write policy: %w", err)
	}
	return nil
}
