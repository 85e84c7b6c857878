package detector

import (
	"time"

	"github.com/botarena/botarena/internal/config"
	"github.com/botarena/botarena/pkg/types"
)

// Detector composes the feature extractor, scoring engine and action
// classifier. Safe for concurrent use: evaluation is a pure function
// of its inputs.
type Detector struct {
	extractor *Extractor
	policy    *config.Policy
}

// New creates a Detector scoring against the given policy.
func New(policy *config.Policy) *Detector {
	return &Detector{
		extractor: NewExtractor(),
		policy:    policy,
	}
}

// NewWithClock creates a Detector with an injected clock, for tests.
func NewWithClock(policy *config.Policy, clock func() time.Time) *Detector {
	return &Detector{
		extractor: &Extractor{Clock: clock},
		policy:    policy,
	}
}

// Policy returns the policy the detector scores against.
func (d *Detector) Policy() *config.Policy {
	return d.policy
}

// Evaluate scores a session's request history and classifies the
// resulting score into an action.
func (d *Detector) Evaluate(sessionID string, logs []types.RequestLog) types.DetectorResult {
	features := d.extractor.Extract(sessionID, logs)
	score, triggered := Score(features, d.policy)
	action := DetermineAction(score, d.policy.Actions)

	return types.DetectorResult{
		SessionID: sessionID,
		Timestamp: d.extractor.now(),
		Score:     score,
		Action:    action,
		Features:  features,
		Triggered: triggered,
	}
}
