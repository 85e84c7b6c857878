package detector

import (
	"testing"

	"github.com/botarena/botarena/internal/config"
	"github.com/botarena/botarena/pkg/types"
)

// humanVector is a plausible browsing session that should not trip any
// rule of the default policy.
func humanVector() types.SessionFeatures {
	return types.SessionFeatures{
		ReqsPerMin:         10,
		UniqueQueriesPerHr: 5,
		PaginationRatio:    1.2,
		SessionDepth:       2,
		DwellTimeAvg:       2500,
		TimingVariance:     0.6,
		AssetWarmupMissing: false,
		MouseEntropy:       3.2,
		DwellContentCorr:   0.6,
	}
}

// botVector trips every rule of the default policy.
func botVector() types.SessionFeatures {
	return types.SessionFeatures{
		ReqsPerMin:         100,
		UniqueQueriesPerHr: 50,
		PaginationRatio:    10,
		SessionDepth:       20,
		DwellTimeAvg:       100,
		TimingVariance:     0.05,
		AssetWarmupMissing: true,
		MouseEntropy:       0.4,
		DwellContentCorr:   0.05,
	}
}

// --- Score Tests ---

func TestScore_HumanVectorScoresZero(t *testing.T) {
	score, triggered := Score(humanVector(), config.DefaultPolicy())
	if score != 0 {
		t.Errorf("human vector should score 0, got %f (triggered %v)", score, triggered)
	}
	if len(triggered) != 0 {
		t.Errorf("no features should trigger, got %v", triggered)
	}
}

func TestScore_AllFeaturesTrigger(t *testing.T) {
	score, triggered := Score(botVector(), config.DefaultPolicy())

	// Sum of all nine default weights.
	want := 1.5 + 2.0 + 1.2 + 1.0 + 1.8 + 3.0 + 3.0 + 4.0 + 3.5
	if score != want {
		t.Errorf("expected score %f, got %f", want, score)
	}
	if len(triggered) != len(types.FeatureNames) {
		t.Errorf("expected all %d features triggered, got %v", len(types.FeatureNames), triggered)
	}
}

func TestScore_LowSuspiciousGuard(t *testing.T) {
	// Unmeasured low-suspicious features sit at zero and must not fire
	// even though 0 < threshold.
	f := humanVector()
	f.DwellTimeAvg = 0
	f.TimingVariance = 0
	f.MouseEntropy = 0
	f.DwellContentCorr = 0

	score, triggered := Score(f, config.DefaultPolicy())
	if score != 0 {
		t.Errorf("zero-valued low signals must not fire, got score %f (%v)", score, triggered)
	}
}

func TestScore_WeightZeroDisablesFeature(t *testing.T) {
	policy := config.DefaultPolicy()
	rule := policy.Features[types.FeatureMouseEntropy]
	rule.Weight = 0
	policy.Features[types.FeatureMouseEntropy] = rule

	f := humanVector()
	f.MouseEntropy = 0.1 // would fire at default weight

	score, triggered := Score(f, policy)
	if score != 0 || len(triggered) != 0 {
		t.Errorf("disabled feature fired: score %f, triggered %v", score, triggered)
	}
}

func TestScore_MissingThresholdIsInert(t *testing.T) {
	policy := config.DefaultPolicy()
	policy.Features[types.FeatureReqsPerMin] = config.FeatureRule{Weight: 5}

	f := humanVector()
	f.ReqsPerMin = 10000

	score, _ := Score(f, policy)
	if score != 0 {
		t.Errorf("numeric rule without threshold must not fire, got %f", score)
	}
}

// --- DetermineAction Tests ---

func TestDetermineAction_BandBoundaries(t *testing.T) {
	bands := config.DefaultPolicy().Actions // 3 / 5 / 8 / 999

	tests := []struct {
		score float64
		want  types.Action
	}{
		{0, types.ActionAllow},
		{3.0, types.ActionAllow}, // inclusive upper bound
		{3.1, types.ActionThrottle},
		{4.9, types.ActionThrottle},
		{5.0, types.ActionThrottle},
		{5.1, types.ActionChallenge},
		{7.9, types.ActionChallenge},
		{8.0, types.ActionChallenge},
		{8.1, types.ActionBlock},
		{100, types.ActionBlock},
		{5000, types.ActionBlock}, // beyond the top band still blocks
	}

	for _, tt := range tests {
		if got := DetermineAction(tt.score, bands); got != tt.want {
			t.Errorf("score %.1f: expected %s, got %s", tt.score, tt.want, got)
		}
	}
}

// --- Detector Tests ---

func TestDetector_Evaluate(t *testing.T) {
	d := NewWithClock(config.DefaultPolicy(), fixedClock)

	// A burst of 40 requests in the last minute with no assets and no
	// variance trips the rate, warmup and timing rules.
	var logs []types.RequestLog
	for i := 0; i < 40; i++ {
		logs = append(logs, logAt(i, "/search"))
	}

	result := d.Evaluate("s1", logs)
	if result.SessionID != "s1" {
		t.Errorf("unexpected session id %q", result.SessionID)
	}
	if result.Score <= 0 {
		t.Errorf("burst session should score above zero, got %f", result.Score)
	}
	if result.Action == types.ActionAllow {
		t.Errorf("burst session should not be allowed (score %f)", result.Score)
	}
	if len(result.Triggered) == 0 {
		t.Error("expected triggered features")
	}
}

func TestDetector_EvaluateEmptySessionAllows(t *testing.T) {
	d := NewWithClock(config.DefaultPolicy(), fixedClock)
	result := d.Evaluate("s1", nil)
	if result.Action != types.ActionAllow {
		t.Errorf("empty history must be allowed, got %s", result.Action)
	}
	if result.Score != 0 {
		t.Errorf("empty history must score 0, got %f", result.Score)
	}
}
