package detector

import (
	"github.com/botarena/botarena/internal/config"
	"github.com/botarena/botarena/pkg/types"
)

// lowSuspicious marks the features where an abnormally LOW value is
// the bot signal. Their thresholds only apply when the underlying
// value is positive, so an unmeasured default never triggers.
var lowSuspicious = map[string]bool{
	types.FeatureDwellTimeAvg:     true,
	types.FeatureTimingVariance:   true,
	types.FeatureMouseEntropy:     true,
	types.FeatureDwellContentCorr: true,
}

// Score evaluates the feature vector against the policy. Each rule
// that fires adds its weight to the score and records the feature
// name; the score accumulates additively with no cap.
func Score(features types.SessionFeatures, policy *config.Policy) (float64, []string) {
	score := 0.0
	triggered := []string{}

	for _, name := range types.FeatureNames {
		rule, ok := policy.Features[name]
		if !ok || rule.Weight == 0 {
			continue
		}

		fired := false
		switch {
		case name == types.FeatureAssetWarmupMissing:
			fired = features.AssetWarmupMissing
		case rule.Threshold == nil:
			// numeric features need a threshold to be scoreable
		case lowSuspicious[name]:
			v := features.Value(name)
			fired = v > 0 && v < *rule.Threshold
		default:
			fired = features.Value(name) > *rule.Threshold
		}

		if fired {
			score += rule.Weight
			triggered = append(triggered, name)
		}
	}
	return score, triggered
}

// DetermineAction maps a score onto the policy's action bands. Bands
// are inclusive on their upper bound; the first matching band in
// increasing order wins.
func DetermineAction(score float64, bands config.ActionBands) types.Action {
	switch {
	case score <= bands.Allow.Max:
		return types.ActionAllow
	case score <= bands.Throttle.Max:
		return types.ActionThrottle
	case score <= bands.Challenge.Max:
		return types.ActionChallenge
	default:
		return types.ActionBlock
	}
}
