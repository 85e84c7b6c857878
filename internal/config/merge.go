package config

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// Merge deep-merges delta onto dst and returns the result. Map-typed
// values merge recursively key-by-key; arrays and scalars are fully
// replaced; nil delta values are no-ops (a delta can never null out an
// existing field). Neither input map is modified.
func Merge(dst, delta map[string]any) map[string]any {
	out := make(map[string]any, len(dst))
	for k, v := range dst {
		out[k] = v
	}
	for k, dv := range delta {
		if dv == nil {
			continue
		}
		dm, dok := dv.(map[string]any)
		om, ook := out[k].(map[string]any)
		if dok && ook {
			out[k] = Merge(om, dm)
			continue
		}
		out[k] = dv
	}
	return out
}

// ApplyPolicyDelta merges a partial delta onto a policy, round-tripping
// through the YAML object form so delta keys follow the document schema.
func ApplyPolicyDelta(p *Policy, delta map[string]any) (*Policy, error) {
	raw, err := yaml.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal policy: %w", err)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return nil, fmt.Errorf("failed to decode policy tree: %w", err)
	}
	merged := Merge(tree, delta)
	out, err := yaml.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal merged policy: %w", err)
	}
	var result Policy
	if err := yaml.Unmarshal(out, &result); err != nil {
		return nil, fmt.Errorf("delta does not fit policy schema: %w", err)
	}
	return &result, nil
}

// PolicyTree converts a policy to its generic YAML object form, the
// shape proposers see and deltas merge against.
func PolicyTree(p *Policy) (map[string]any, error) {
	raw, err := yaml.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal policy: %w", err)
	}
	var tree map[string]any
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return nil, fmt.Errorf("failed to decode policy tree: %w", err)
	}
	return tree, nil
}

// ProfileTree converts a profile to its generic JSON object form.
func ProfileTree(p *AttackProfile) (map[string]any, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal profile: %w", err)
	}
	var tree map[string]any
	if err := json.Unmarshal(raw, &tree); err != nil {
		return nil, fmt.Errorf("failed to decode profile tree: %w", err)
	}
	return tree, nil
}

// ApplyProfileDelta merges a partial delta onto an attack profile via
// its JSON object form.
func ApplyProfileDelta(p *AttackProfile, delta map[string]any) (*AttackProfile, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal profile: %w", err)
	}
	var tree map[string]any
	if err := json.Unmarshal(raw, &tree); err != nil {
		return nil, fmt.Errorf("failed to decode profile tree: %w", err)
	}
	merged := Merge(tree, delta)
	out, err := json.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal merged profile: %w", err)
	}
	var result AttackProfile
	if err := json.Unmarshal(out, &result); err != nil {
		return nil, fmt.Errorf("delta does not fit profile schema: %w", err)
	}
	applyProfileDefaults(&result)
	return &result, nil
}
