package arena

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/botarena/botarena/internal/config"
	"github.com/botarena/botarena/pkg/types"
	"gopkg.in/yaml.v3"
)

// RunFunc executes one isolated tournament pass against the currently
// persisted configuration and returns its metrics.
type RunFunc func(ctx context.Context) (types.RoundMetrics, error)

// applyFunc merges a proposal delta into raw config file content.
type applyFunc func(raw []byte, delta map[string]any) ([]byte, error)

// Validator trials a proposed configuration delta for one side:
// persist the merged config, re-run an isolated pass, compare metrics,
// keep the change only if the side's acceptance rule holds. Rejection
// or any error restores the original file content exactly.
type Validator struct {
	side       types.Side
	configPath string
	apply      applyFunc
	run        RunFunc
	conditions types.WinConditions
	logger     *slog.Logger
}

// NewPolicyValidator validates detector-side (blue) policy deltas.
func NewPolicyValidator(policyPath string, run RunFunc, wc types.WinConditions) *Validator {
	return &Validator{
		side:       types.SideBlue,
		configPath: policyPath,
		apply:      applyPolicyBytes,
		run:        run,
		conditions: wc,
		logger:     slog.Default(),
	}
}

// NewProfileValidator validates attacker-side (red) profile deltas.
func NewProfileValidator(profilePath string, run RunFunc, wc types.WinConditions) *Validator {
	return &Validator{
		side:       types.SideRed,
		configPath: profilePath,
		apply:      applyProfileBytes,
		run:        run,
		conditions: wc,
		logger:     slog.Default(),
	}
}

// Validate trials the delta against the before metrics. It never
// panics or propagates trial failures; those come back as rejected
// results with the original config restored.
func (v *Validator) Validate(ctx context.Context, delta map[string]any, before types.MetricsSummary) types.ValidationResult {
	result := types.ValidationResult{
		Side:   v.side,
		Before: before,
		Delta:  delta,
	}

	backup, err := os.ReadFile(v.configPath)
	if err != nil {
		result.Reason = fmt.Sprintf("cannot read config: %v", err)
		return result
	}

	merged, err := v.apply(backup, delta)
	if err != nil {
		result.Reason = fmt.Sprintf("cannot apply delta: %v", err)
		return result
	}
	if err := os.WriteFile(v.configPath, merged, 0644); err != nil {
		result.Reason = fmt.Sprintf("cannot persist merged config: %v", err)
		return result
	}

	after, err := v.trial(ctx)
	if err != nil {
		v.restore(backup)
		result.Reason = fmt.Sprintf("trial run failed: %v", err)
		return result
	}
	result.After = after.Summary()

	accepted, reason, metric, improvement := v.judge(before, result.After)
	result.Accepted = accepted
	result.Reason = reason
	if accepted {
		result.ImprovedMetric = metric
		result.Improvement = improvement
		v.logger.Info("proposal accepted",
			slog.String("side", string(v.side)),
			slog.String("metric", metric),
			slog.Float64("improvement", improvement),
		)
		return result
	}

	v.restore(backup)
	return result
}

// trial runs the isolated pass, converting panics into errors so a
// misbehaving trial can never skip the rollback.
func (v *Validator) trial(ctx context.Context) (m types.RoundMetrics, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("trial panicked: %v", r)
		}
	}()
	return v.run(ctx)
}

func (v *Validator) restore(backup []byte) {
	if err := os.WriteFile(v.configPath, backup, 0644); err != nil {
		v.logger.Error("failed to restore config backup",
			slog.String("path", v.configPath),
			slog.String("error", err.Error()),
		)
	}
}

// judge applies the side's acceptance rule.
//
// Attacker: extraction must strictly improve. Detector: suppression
// must strictly improve while the false-positive and human-success
// constraints both hold.
func (v *Validator) judge(before, after types.MetricsSummary) (bool, string, string, float64) {
	if v.side == types.SideRed {
		if after.BotExtractionRate > before.BotExtractionRate {
			diff := after.BotExtractionRate - before.BotExtractionRate
			return true, fmt.Sprintf("bot extraction improved %.1f%% -> %.1f%%",
				before.BotExtractionRate*100, after.BotExtractionRate*100), "botExtractionRate", diff
		}
		return false, fmt.Sprintf("bot extraction did not improve (%.1f%% -> %.1f%%)",
			before.BotExtractionRate*100, after.BotExtractionRate*100), "", 0
	}

	if after.BotSuppressionRate <= before.BotSuppressionRate {
		return false, fmt.Sprintf("bot suppression did not improve (%.1f%% -> %.1f%%)",
			before.BotSuppressionRate*100, after.BotSuppressionRate*100), "", 0
	}
	if after.FalsePositiveRate > v.conditions.FPRThreshold {
		return false, fmt.Sprintf("false-positive rate %.1f%% exceeds limit %.1f%%",
			after.FalsePositiveRate*100, v.conditions.FPRThreshold*100), "", 0
	}
	if after.HumanSuccessRate < v.conditions.HumanSuccessThreshold {
		return false, fmt.Sprintf("human success %.1f%% below required %.1f%%",
			after.HumanSuccessRate*100, v.conditions.HumanSuccessThreshold*100), "", 0
	}
	diff := after.BotSuppressionRate - before.BotSuppressionRate
	return true, fmt.Sprintf("bot suppression improved %.1f%% -> %.1f%% within constraints",
		before.BotSuppressionRate*100, after.BotSuppressionRate*100), "botSuppressionRate", diff
}

// applyPolicyBytes merges a delta into YAML policy content and
// validates the merged policy before it is persisted.
func applyPolicyBytes(raw []byte, delta map[string]any) ([]byte, error) {
	var p config.Policy
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("invalid policy content: %w", err)
	}
	merged, err := config.ApplyPolicyDelta(&p, delta)
	if err != nil {
		return nil, err
	}
	if err := merged.Validate(); err != nil {
		return nil, fmt.Errorf("merged policy invalid: %w", err)
	}
	return yaml.Marshal(merged)
}

// applyProfileBytes merges a delta into JSON profile content.
func applyProfileBytes(raw []byte, delta map[string]any) ([]byte, error) {
	var p config.AttackProfile
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("invalid profile content: %w", err)
	}
	merged, err := config.ApplyProfileDelta(&p, delta)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(merged, "", "  ")
}
