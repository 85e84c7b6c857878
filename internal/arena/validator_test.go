package arena

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/botarena/botarena/internal/config"
	"github.com/botarena/botarena/pkg/types"
)

func writeTestPolicy(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "policy.yaml")
	if err := config.SavePolicy(path, config.DefaultPolicy()); err != nil {
		t.Fatal(err)
	}
	return path
}

func writeTestProfile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bot.json")
	if err := config.SaveProfile(path, config.DefaultBotProfile()); err != nil {
		t.Fatal(err)
	}
	return path
}

func fixedRun(after types.MetricsSummary) RunFunc {
	return func(ctx context.Context) (types.RoundMetrics, error) {
		return types.RoundMetrics{
			BotExtractionRate:  after.BotExtractionRate,
			BotSuppressionRate: after.BotSuppressionRate,
			FalsePositiveRate:  after.FalsePositiveRate,
			HumanSuccessRate:   after.HumanSuccessRate,
		}, nil
	}
}

var baselineSummary = types.MetricsSummary{
	HumanSuccessRate:   1.0,
	FalsePositiveRate:  0.0,
	BotExtractionRate:  0.4,
	BotSuppressionRate: 0.6,
}

// --- Red (profile) Validation Tests ---

func TestValidate_RedAcceptedOnImprovedExtraction(t *testing.T) {
	path := writeTestProfile(t)
	after := baselineSummary
	after.BotExtractionRate = 0.55

	v := NewProfileValidator(path, fixedRun(after), types.DefaultWinConditions())
	result := v.Validate(context.Background(), map[string]any{"requestsPerMinute": 60}, baselineSummary)

	if !result.Accepted {
		t.Fatalf("expected acceptance, got: %s", result.Reason)
	}
	if result.ImprovedMetric != "botExtractionRate" {
		t.Errorf("unexpected improved metric %q", result.ImprovedMetric)
	}

	merged, err := config.LoadProfile(path)
	if err != nil {
		t.Fatal(err)
	}
	if merged.RPM != 60 {
		t.Errorf("accepted delta must persist, rpm is %d", merged.RPM)
	}
}

func TestValidate_RedRejectedRestoresFileExactly(t *testing.T) {
	path := writeTestProfile(t)
	original, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	after := baselineSummary // extraction unchanged: not an improvement
	v := NewProfileValidator(path, fixedRun(after), types.DefaultWinConditions())
	result := v.Validate(context.Background(), map[string]any{"requestsPerMinute": 500}, baselineSummary)

	if result.Accepted {
		t.Fatal("unchanged extraction must be rejected")
	}

	restored, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(original, restored) {
		t.Error("rejected proposal must leave the config byte-identical")
	}
}

func TestValidate_TrialErrorRollsBack(t *testing.T) {
	path := writeTestProfile(t)
	original, _ := os.ReadFile(path)

	failing := func(ctx context.Context) (types.RoundMetrics, error) {
		return types.RoundMetrics{}, errors.New("target refused to start")
	}
	v := NewProfileValidator(path, failing, types.DefaultWinConditions())
	result := v.Validate(context.Background(), map[string]any{"requestsPerMinute": 10}, baselineSummary)

	if result.Accepted {
		t.Fatal("failed trial must not accept")
	}
	restored, _ := os.ReadFile(path)
	if !bytes.Equal(original, restored) {
		t.Error("failed trial must restore the original config")
	}
}

func TestValidate_TrialPanicRollsBack(t *testing.T) {
	path := writeTestProfile(t)
	original, _ := os.ReadFile(path)

	panicking := func(ctx context.Context) (types.RoundMetrics, error) {
		panic("boom")
	}
	v := NewProfileValidator(path, panicking, types.DefaultWinConditions())
	result := v.Validate(context.Background(), map[string]any{"requestsPerMinute": 10}, baselineSummary)

	if result.Accepted {
		t.Fatal("panicking trial must not accept")
	}
	restored, _ := os.ReadFile(path)
	if !bytes.Equal(original, restored) {
		t.Error("panicking trial must restore the original config")
	}
}

// --- Blue (policy) Validation Tests ---

func TestValidate_BlueAcceptedWithinConstraints(t *testing.T) {
	path := writeTestPolicy(t)
	after := types.MetricsSummary{
		HumanSuccessRate:   0.98,
		FalsePositiveRate:  0.02,
		BotExtractionRate:  0.2,
		BotSuppressionRate: 0.8,
	}

	v := NewPolicyValidator(path, fixedRun(after), types.DefaultWinConditions())
	delta := map[string]any{
		"features": map[string]any{
			"mouse_movement_entropy": map[string]any{"weight": 6.0},
		},
	}
	result := v.Validate(context.Background(), delta, baselineSummary)

	if !result.Accepted {
		t.Fatalf("expected acceptance, got: %s", result.Reason)
	}

	merged, err := config.LoadPolicy(path)
	if err != nil {
		t.Fatal(err)
	}
	if merged.Features["mouse_movement_entropy"].Weight != 6.0 {
		t.Errorf("accepted policy delta must persist, weight is %f",
			merged.Features["mouse_movement_entropy"].Weight)
	}
}

func TestValidate_BlueRejectedOnFalsePositives(t *testing.T) {
	path := writeTestPolicy(t)
	original, _ := os.ReadFile(path)

	// Suppression improves but humans pay for it.
	after := types.MetricsSummary{
		HumanSuccessRate:   0.8,
		FalsePositiveRate:  0.2,
		BotExtractionRate:  0.1,
		BotSuppressionRate: 0.9,
	}
	v := NewPolicyValidator(path, fixedRun(after), types.DefaultWinConditions())
	delta := map[string]any{
		"actions": map[string]any{"allow": map[string]any{"max": 0.5}},
	}
	result := v.Validate(context.Background(), delta, baselineSummary)

	if result.Accepted {
		t.Fatal("fpr above the limit must reject")
	}
	restored, _ := os.ReadFile(path)
	if !bytes.Equal(original, restored) {
		t.Error("rejected policy must be restored exactly")
	}
}

func TestValidate_BlueRejectedOnNoSuppressionGain(t *testing.T) {
	path := writeTestPolicy(t)
	after := baselineSummary // suppression unchanged

	v := NewPolicyValidator(path, fixedRun(after), types.DefaultWinConditions())
	result := v.Validate(context.Background(),
		map[string]any{"features": map[string]any{"reqs_per_min": map[string]any{"weight": 9.0}}},
		baselineSummary)

	if result.Accepted {
		t.Fatal("flat suppression must be rejected")
	}
}

func TestValidate_InvalidMergedPolicyNeverRuns(t *testing.T) {
	path := writeTestPolicy(t)
	original, _ := os.ReadFile(path)

	ran := false
	run := func(ctx context.Context) (types.RoundMetrics, error) {
		ran = true
		return types.RoundMetrics{}, nil
	}

	// Collapses the band ordering: structurally invalid.
	delta := map[string]any{
		"actions": map[string]any{"allow": map[string]any{"max": 50.0}},
	}
	v := NewPolicyValidator(path, run, types.DefaultWinConditions())
	result := v.Validate(context.Background(), delta, baselineSummary)

	if result.Accepted {
		t.Fatal("invalid merged policy must be rejected")
	}
	if ran {
		t.Error("structurally invalid policy must never reach a trial run")
	}
	current, _ := os.ReadFile(path)
	if !bytes.Equal(original, current) {
		t.Error("config must be untouched after a merge failure")
	}
}
