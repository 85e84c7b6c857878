// Package types defines common data structures shared across BotArena components.
package types

import (
	"time"
)

// Action is the verdict the detector hands down for a request.
type Action string

const (
	ActionAllow     Action = "allow"
	ActionThrottle  Action = "throttle"
	ActionChallenge Action = "challenge"
	ActionBlock     Action = "block"
)

// ActionCredit maps an action to the extraction credit it earns under
// weighted aggregation. Allow lets the full page through, block nothing,
// the degraded actions earn partial credit.
var ActionCredit = map[Action]float64{
	ActionBlock:     0.0,
	ActionChallenge: 0.25,
	ActionThrottle:  0.5,
	ActionAllow:     1.0,
}

// ProfileType distinguishes the two kinds of simulated actors.
type ProfileType string

const (
	ProfileHuman ProfileType = "human"
	ProfileBot   ProfileType = "bot"
)

// Side identifies a team in the arena.
type Side string

const (
	SideRed  Side = "red"  // attacker: traffic generation strategy
	SideBlue Side = "blue" // detector: request scoring policy
)

// MousePoint is a single mouse-movement sample carried in the
// X-Mouse-Movements request header.
type MousePoint struct {
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Timestamp int64   `json:"timestamp"`
}

// RequestLog is one entry of a session's request history. Logs are
// append-only per session; only the session that produced an entry
// ever writes it.
type RequestLog struct {
	SessionID      string            `json:"sessionId"`
	Timestamp      time.Time         `json:"timestamp"`
	Path           string            `json:"path"`
	Method         string            `json:"method"`
	Query          map[string]string `json:"query,omitempty"`
	IsAsset        bool              `json:"isAsset"`
	MouseMovements []MousePoint      `json:"mouseMovements,omitempty"`
	DwellTimeMs    float64           `json:"dwellTimeMs,omitempty"`
	PrevContentLen float64           `json:"prevContentLength,omitempty"`
	HasDwell       bool              `json:"hasDwell,omitempty"`
	HasPrevContent bool              `json:"hasPrevContent,omitempty"`
}

// Feature names derived from a session's request history.
const (
	FeatureReqsPerMin         = "reqs_per_min"
	FeatureUniqueQueries      = "unique_queries_per_hour"
	FeaturePaginationRatio    = "pagination_ratio"
	FeatureSessionDepth       = "session_depth"
	FeatureDwellTimeAvg       = "dwell_time_avg"
	FeatureTimingVariance     = "timing_variance"
	FeatureAssetWarmupMissing = "asset_warmup_missing"
	FeatureMouseEntropy       = "mouse_movement_entropy"
	FeatureDwellContentCorr   = "dwell_vs_content_length"
)

// FeatureNames lists the nine derived signals in reporting order.
var FeatureNames = []string{
	FeatureReqsPerMin,
	FeatureUniqueQueries,
	FeaturePaginationRatio,
	FeatureSessionDepth,
	FeatureDwellTimeAvg,
	FeatureTimingVariance,
	FeatureAssetWarmupMissing,
	FeatureMouseEntropy,
	FeatureDwellContentCorr,
}

// SessionFeatures is the feature vector extracted from one session.
type SessionFeatures struct {
	ReqsPerMin         float64 `json:"reqs_per_min"`
	UniqueQueriesPerHr float64 `json:"unique_queries_per_hour"`
	PaginationRatio    float64 `json:"pagination_ratio"`
	SessionDepth       float64 `json:"session_depth"`
	DwellTimeAvg       float64 `json:"dwell_time_avg"`
	TimingVariance     float64 `json:"timing_variance"`
	AssetWarmupMissing bool    `json:"asset_warmup_missing"`
	MouseEntropy       float64 `json:"mouse_movement_entropy"`
	DwellContentCorr   float64 `json:"dwell_vs_content_length"`
}

// Value returns the numeric value of a named feature. The boolean
// warmup flag maps to 1/0.
func (f SessionFeatures) Value(name string) float64 {
	switch name {
	case FeatureReqsPerMin:
		return f.ReqsPerMin
	case FeatureUniqueQueries:
		return f.UniqueQueriesPerHr
	case FeaturePaginationRatio:
		return f.PaginationRatio
	case FeatureSessionDepth:
		return f.SessionDepth
	case FeatureDwellTimeAvg:
		return f.DwellTimeAvg
	case FeatureTimingVariance:
		return f.TimingVariance
	case FeatureAssetWarmupMissing:
		if f.AssetWarmupMissing {
			return 1
		}
		return 0
	case FeatureMouseEntropy:
		return f.MouseEntropy
	case FeatureDwellContentCorr:
		return f.DwellContentCorr
	}
	return 0
}

// DetectorResult is the immutable outcome of scoring one request's
// session history.
type DetectorResult struct {
	SessionID string          `json:"sessionId"`
	Timestamp time.Time       `json:"timestamp"`
	Score     float64         `json:"score"`
	Action    Action          `json:"action"`
	Features  SessionFeatures `json:"features"`
	Triggered []string        `json:"triggered"`
}

// SessionResult summarizes one simulated actor's run.
type SessionResult struct {
	SessionID      string           `json:"sessionId"`
	ProfileType    ProfileType      `json:"profileType"`
	ProfileName    string           `json:"profileName"`
	PagesRequested int              `json:"pagesRequested"`
	PagesExtracted int              `json:"pagesExtracted"`
	Searches       int              `json:"searches"`
	WasBlocked     bool             `json:"wasBlocked"`
	WasThrottled   bool             `json:"wasThrottled"`
	WasChallenged  bool             `json:"wasChallenged"`
	Detections     []DetectorResult `json:"detections"`
	Duration       time.Duration    `json:"duration"`
}

// ProfileStats aggregates session outcomes for one profile type.
type ProfileStats struct {
	Sessions           int     `json:"sessions"`
	PagesRequested     int     `json:"pagesRequested"`
	PagesExtracted     int     `json:"pagesExtracted"`
	Searches           int     `json:"searches"`
	Blocked            int     `json:"blocked"`
	Throttled          int     `json:"throttled"`
	Challenged         int     `json:"challenged"`
	ExtractionRate     float64 `json:"extractionRate"`     // binary: extracted/requested
	WeightedExtraction float64 `json:"weightedExtraction"` // action-credit weighted
}

// FeatureDiscrimination reports how well one feature separates bots
// from humans: bot trigger fraction minus human trigger fraction.
type FeatureDiscrimination struct {
	Feature        string  `json:"feature"`
	BotTriggerRate float64 `json:"botTriggerRate"`
	HumTriggerRate float64 `json:"humanTriggerRate"`
	Discrimination float64 `json:"discrimination"`
}

// RoundMetrics holds everything the win decider and the agents need
// to reason about one round.
type RoundMetrics struct {
	Profiles           map[ProfileType]ProfileStats `json:"profiles"`
	HumanSuccessRate   float64                      `json:"humanSuccessRate"`
	FalsePositiveRate  float64                      `json:"falsePositiveRate"`
	BotExtractionRate  float64                      `json:"botExtractionRate"`
	BotSuppressionRate float64                      `json:"botSuppressionRate"`
	Discrimination     []FeatureDiscrimination      `json:"featureDiscrimination"`
}

// Summary reduces the metrics to the four headline rates.
func (m RoundMetrics) Summary() MetricsSummary {
	return MetricsSummary{
		HumanSuccessRate:   m.HumanSuccessRate,
		FalsePositiveRate:  m.FalsePositiveRate,
		BotExtractionRate:  m.BotExtractionRate,
		BotSuppressionRate: m.BotSuppressionRate,
	}
}

// MetricsSummary is the compact before/after form persisted with
// proposal history entries.
type MetricsSummary struct {
	HumanSuccessRate   float64 `json:"humanSuccessRate"`
	FalsePositiveRate  float64 `json:"falsePositiveRate"`
	BotExtractionRate  float64 `json:"botExtractionRate"`
	BotSuppressionRate float64 `json:"botSuppressionRate"`
}

// WinConditions are the thresholds the win decider evaluates.
type WinConditions struct {
	FPRThreshold          float64 `json:"fprThreshold"`
	HumanSuccessThreshold float64 `json:"humanSuccessThreshold"`
	RedWinThreshold       float64 `json:"redWinThreshold"`
	BlueWinThreshold      float64 `json:"blueWinThreshold"`
}

// DefaultWinConditions returns the standard arena thresholds.
func DefaultWinConditions() WinConditions {
	return WinConditions{
		FPRThreshold:          0.05,
		HumanSuccessThreshold: 0.95,
		RedWinThreshold:       0.5,
		BlueWinThreshold:      0.5,
	}
}

// Winner of a round.
type Winner string

const (
	WinnerRed  Winner = "red"
	WinnerBlue Winner = "blue"
	WinnerDraw Winner = "draw"
)

// Verdict is the win decider's output.
type Verdict struct {
	Winner Winner `json:"winner"`
	Reason string `json:"reason"`
}

// ValidationResult records the outcome of trialing one proposed
// configuration change.
type ValidationResult struct {
	Side           Side           `json:"side"`
	Accepted       bool           `json:"accepted"`
	Reason         string         `json:"reason"`
	Before         MetricsSummary `json:"before"`
	After          MetricsSummary `json:"after"`
	ImprovedMetric string         `json:"improvedMetric,omitempty"`
	Improvement    float64        `json:"improvement,omitempty"`
	Delta          map[string]any `json:"delta,omitempty"`
}

// ProposalHistoryEntry is the immutable record of one proposal attempt.
// Entries are read-only once appended and fed back to agents as memory.
type ProposalHistoryEntry struct {
	Team      Side           `json:"team"`
	Round     int            `json:"round"`
	Fight     int            `json:"fight"`
	Timestamp time.Time      `json:"timestamp"`
	Delta     map[string]any `json:"delta"`
	Accepted  bool           `json:"accepted"`
	Reason    string         `json:"reason"`
	Before    MetricsSummary `json:"before"`
	After     MetricsSummary `json:"after"`
}

// RoundReport is the persisted record of one full round.
type RoundReport struct {
	Fight       int                `json:"fight"`
	Round       int                `json:"round"`
	Timestamp   time.Time          `json:"timestamp"`
	Verdict     Verdict            `json:"verdict"`
	Metrics     RoundMetrics       `json:"metrics"`
	Validations []ValidationResult `json:"validations,omitempty"`
}

// ArenaState is the unit of crash-recoverable persistence: a
// monotonically growing list of round reports plus the fight counter.
type ArenaState struct {
	CurrentFightNumber int           `json:"currentFightNumber"`
	Reports            []RoundReport `json:"reports"`
}
