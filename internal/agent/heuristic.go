package agent

import (
	"context"
	"math"

	"github.com/botarena/botarena/pkg/types"
)

// HeuristicProposer is the built-in fallback strategy used when no
// LLM is configured. It makes one small, directed move per round.
type HeuristicProposer struct{}

// Propose derives a delta from the round metrics.
//
// Blue raises the weight of the feature that best separated bots from
// humans this round, nudging the detector toward its sharpest signal.
// Red slows down and turns on another humanization trick whenever
// suppression is biting.
func (HeuristicProposer) Propose(ctx context.Context, req ProposalRequest) (map[string]any, error) {
	if req.Side == types.SideBlue {
		return proposeBlue(req), nil
	}
	return proposeRed(req), nil
}

func proposeBlue(req ProposalRequest) map[string]any {
	if len(req.Metrics.Discrimination) == 0 {
		return nil
	}
	best := req.Metrics.Discrimination[0]
	if best.Discrimination <= 0 {
		return nil
	}

	weight := 1.0
	if features, ok := req.CurrentConfig["features"].(map[string]any); ok {
		if rule, ok := features[best.Feature].(map[string]any); ok {
			if w, ok := rule["weight"].(float64); ok {
				weight = w
			}
		}
	}
	return map[string]any{
		"features": map[string]any{
			best.Feature: map[string]any{
				"weight": weight * 1.25,
			},
		},
	}
}

func proposeRed(req ProposalRequest) map[string]any {
	bot := req.Metrics.Profiles[types.ProfileBot]
	// Nothing is being suppressed; keep the current strategy.
	if bot.Blocked == 0 && bot.Throttled == 0 && bot.Challenged == 0 {
		return nil
	}

	rpm := 120.0
	if v, ok := req.CurrentConfig["requestsPerMinute"].(float64); ok {
		rpm = v
	}
	// The profile schema holds requests/minute as an integer; a
	// fractional slowdown would fail the typed merge.
	slower := int(math.Round(rpm * 0.75))
	if slower < 10 {
		slower = 10
	}
	return map[string]any{
		"requestsPerMinute": slower,
		"warmup":            true,
		"evasion": map[string]any{
			"mouseStyle":         "humanized",
			"humanizeTiming":     true,
			"simulateDwellTimes": true,
		},
	}
}
