// Package metrics aggregates per-session outcomes into round-level
// rates and decides the round winner.
package metrics

import (
	"sort"

	"github.com/botarena/botarena/pkg/types"
)

// Mode selects how extraction rates are computed.
type Mode string

const (
	// ModeBinary counts a page either extracted or not.
	ModeBinary Mode = "binary"
	// ModeWeighted credits each detector action partially
	// (block 0, challenge 0.25, throttle 0.5, allow 1). Preferred:
	// it rewards degrading a bot, not just stopping it outright.
	ModeWeighted Mode = "weighted"
)

// Aggregator rolls up session results into RoundMetrics.
type Aggregator struct {
	mode Mode
}

// NewAggregator creates an aggregator in the given mode.
func NewAggregator(mode Mode) *Aggregator {
	if mode == "" {
		mode = ModeWeighted
	}
	return &Aggregator{mode: mode}
}

// Aggregate groups results by profile type and derives the round-level
// human-success, false-positive, bot-extraction and bot-suppression
// rates plus the per-feature discrimination table.
func (a *Aggregator) Aggregate(results []types.SessionResult) types.RoundMetrics {
	m := types.RoundMetrics{
		Profiles: make(map[types.ProfileType]types.ProfileStats),
	}

	grouped := make(map[types.ProfileType][]types.SessionResult)
	for _, r := range results {
		grouped[r.ProfileType] = append(grouped[r.ProfileType], r)
	}

	for ptype, sessions := range grouped {
		m.Profiles[ptype] = a.profileStats(sessions)
	}

	human := m.Profiles[types.ProfileHuman]
	bot := m.Profiles[types.ProfileBot]

	if a.mode == ModeWeighted {
		m.HumanSuccessRate = human.WeightedExtraction
		m.BotExtractionRate = bot.WeightedExtraction
	} else {
		m.HumanSuccessRate = human.ExtractionRate
		m.BotExtractionRate = bot.ExtractionRate
	}
	m.FalsePositiveRate = 1 - m.HumanSuccessRate
	m.BotSuppressionRate = 1 - m.BotExtractionRate
	m.Discrimination = discrimination(grouped[types.ProfileBot], grouped[types.ProfileHuman])
	return m
}

func (a *Aggregator) profileStats(sessions []types.SessionResult) types.ProfileStats {
	var s types.ProfileStats
	s.Sessions = len(sessions)

	var creditSum float64
	var creditCount int
	for _, sess := range sessions {
		s.PagesRequested += sess.PagesRequested
		s.PagesExtracted += sess.PagesExtracted
		s.Searches += sess.Searches
		if sess.WasBlocked {
			s.Blocked++
		}
		if sess.WasThrottled {
			s.Throttled++
		}
		if sess.WasChallenged {
			s.Challenged++
		}
		for _, d := range sess.Detections {
			creditSum += types.ActionCredit[d.Action]
			creditCount++
		}
	}

	if s.PagesRequested > 0 {
		s.ExtractionRate = float64(s.PagesExtracted) / float64(s.PagesRequested)
	}
	if creditCount > 0 {
		s.WeightedExtraction = creditSum / float64(creditCount)
	}
	return s
}

// discrimination computes, per feature, the fraction of bot sessions
// that ever triggered it minus the fraction of human sessions that
// did, sorted descending. A high value means the feature cleanly
// separates bots from humans.
func discrimination(bots, humans []types.SessionResult) []types.FeatureDiscrimination {
	botRate := sessionTriggerRates(bots)
	humRate := sessionTriggerRates(humans)

	out := make([]types.FeatureDiscrimination, 0, len(types.FeatureNames))
	for _, name := range types.FeatureNames {
		out = append(out, types.FeatureDiscrimination{
			Feature:        name,
			BotTriggerRate: botRate[name],
			HumTriggerRate: humRate[name],
			Discrimination: botRate[name] - humRate[name],
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Discrimination > out[j].Discrimination
	})
	return out
}

func sessionTriggerRates(sessions []types.SessionResult) map[string]float64 {
	rates := make(map[string]float64, len(types.FeatureNames))
	if len(sessions) == 0 {
		return rates
	}
	for _, sess := range sessions {
		fired := make(map[string]bool)
		for _, d := range sess.Detections {
			for _, name := range d.Triggered {
				fired[name] = true
			}
		}
		for name := range fired {
			rates[name]++
		}
	}
	for name := range rates {
		rates[name] /= float64(len(sessions))
	}
	return rates
}
