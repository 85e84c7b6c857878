package config

import (
	"reflect"
	"testing"
)

// --- Merge Tests ---

func TestMerge_ScalarReplace(t *testing.T) {
	dst := map[string]any{"a": 1, "b": "x"}
	delta := map[string]any{"b": "y"}

	out := Merge(dst, delta)
	if out["a"] != 1 || out["b"] != "y" {
		t.Errorf("unexpected merge result: %v", out)
	}
}

func TestMerge_NestedMapsMergeRecursively(t *testing.T) {
	dst := map[string]any{
		"features": map[string]any{
			"reqs_per_min":  map[string]any{"weight": 1.5, "threshold": 30.0},
			"mouse_entropy": map[string]any{"weight": 4.0},
			"timing_signal": map[string]any{"weight": 3.0},
		},
	}
	delta := map[string]any{
		"features": map[string]any{
			"reqs_per_min": map[string]any{"weight": 2.5},
		},
	}

	out := Merge(dst, delta)
	features := out["features"].(map[string]any)

	rule := features["reqs_per_min"].(map[string]any)
	if rule["weight"] != 2.5 {
		t.Errorf("weight should be replaced, got %v", rule["weight"])
	}
	if rule["threshold"] != 30.0 {
		t.Errorf("sibling key should survive, got %v", rule["threshold"])
	}
	if _, ok := features["mouse_entropy"]; !ok {
		t.Error("untouched nested keys must survive")
	}
}

func TestMerge_ArraysReplaceWholesale(t *testing.T) {
	dst := map[string]any{"seeds": []any{"a", "b", "c"}}
	delta := map[string]any{"seeds": []any{"z"}}

	out := Merge(dst, delta)
	if !reflect.DeepEqual(out["seeds"], []any{"z"}) {
		t.Errorf("arrays must replace, not merge: %v", out["seeds"])
	}
}

func TestMerge_NilDeltaValueIsNoop(t *testing.T) {
	dst := map[string]any{"keep": "me"}
	delta := map[string]any{"keep": nil}

	out := Merge(dst, delta)
	if out["keep"] != "me" {
		t.Errorf("nil delta value must not null out the field, got %v", out["keep"])
	}
}

func TestMerge_DoesNotMutateInputs(t *testing.T) {
	dst := map[string]any{"nested": map[string]any{"v": 1}}
	delta := map[string]any{"nested": map[string]any{"v": 2}}

	Merge(dst, delta)
	if dst["nested"].(map[string]any)["v"] != 1 {
		t.Error("merge mutated the destination map")
	}
}

func TestMerge_TypeMismatchReplaces(t *testing.T) {
	dst := map[string]any{"v": map[string]any{"deep": true}}
	delta := map[string]any{"v": 7}

	out := Merge(dst, delta)
	if out["v"] != 7 {
		t.Errorf("scalar over map should replace, got %v", out["v"])
	}
}

// --- ApplyPolicyDelta Tests ---

func TestApplyPolicyDelta(t *testing.T) {
	p := DefaultPolicy()
	delta := map[string]any{
		"features": map[string]any{
			"mouse_movement_entropy": map[string]any{"weight": 5.5},
		},
		"actions": map[string]any{
			"allow": map[string]any{"max": 2.0},
		},
	}

	merged, err := ApplyPolicyDelta(p, delta)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if merged.Features["mouse_movement_entropy"].Weight != 5.5 {
		t.Errorf("weight not applied: %f", merged.Features["mouse_movement_entropy"].Weight)
	}
	if merged.Features["mouse_movement_entropy"].Threshold == nil {
		t.Error("threshold should survive a weight-only delta")
	}
	if merged.Actions.Allow.Max != 2.0 {
		t.Errorf("band not applied: %f", merged.Actions.Allow.Max)
	}
	if merged.Actions.Block.Max != 999 {
		t.Errorf("untouched band changed: %f", merged.Actions.Block.Max)
	}

	// Original untouched.
	if p.Features["mouse_movement_entropy"].Weight == 5.5 {
		t.Error("delta application mutated the source policy")
	}
}

// --- ApplyProfileDelta Tests ---

func TestApplyProfileDelta(t *testing.T) {
	p := DefaultBotProfile()
	delta := map[string]any{
		"requestsPerMinute": 45,
		"evasion": map[string]any{
			"mouseStyle": "humanized",
		},
	}

	merged, err := ApplyProfileDelta(p, delta)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if merged.RPM != 45 {
		t.Errorf("rpm not applied: %d", merged.RPM)
	}
	if merged.Evasion.MouseStyle != "humanized" {
		t.Errorf("evasion not applied: %+v", merged.Evasion)
	}
	if merged.Query.Strategy != QueryRefine {
		t.Errorf("untouched fields must survive, got strategy %s", merged.Query.Strategy)
	}
}

func TestApplyProfileDelta_BadSchema(t *testing.T) {
	p := DefaultBotProfile()
	if _, err := ApplyProfileDelta(p, map[string]any{"requestsPerMinute": "fast"}); err == nil {
		t.Error("expected schema error for string rpm")
	}
}
