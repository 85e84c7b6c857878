// Package detector turns a session's request history into a
// bot-likelihood decision. Extraction and scoring are pure and
// deterministic; all randomness lives in the traffic generators.
package detector

import (
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/botarena/botarena/pkg/types"
)

const (
	rateWindow  = 60 * time.Second
	queryWindow = 3600 * time.Second

	// Turn angles are binned into 24 bins of 15 degrees for the
	// mouse-entropy histogram.
	entropyBins    = 24
	entropyBinSize = 15.0
)

// Extractor derives the nine session features from a request log.
// The zero value uses the wall clock; tests inject a fixed clock.
type Extractor struct {
	Clock func() time.Time
}

// NewExtractor returns an Extractor using the wall clock.
func NewExtractor() *Extractor {
	return &Extractor{Clock: time.Now}
}

func (e *Extractor) now() time.Time {
	if e.Clock != nil {
		return e.Clock()
	}
	return time.Now()
}

// Extract computes the feature vector for one session. An empty log
// yields an all-zero vector with the warmup flag false.
func (e *Extractor) Extract(sessionID string, logs []types.RequestLog) types.SessionFeatures {
	var f types.SessionFeatures
	if len(logs) == 0 {
		return f
	}

	now := e.now()
	sorted := make([]types.RequestLog, len(logs))
	copy(sorted, logs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Timestamp.Before(sorted[j].Timestamp) })

	f.ReqsPerMin = float64(countWithin(sorted, now, rateWindow))
	f.UniqueQueriesPerHr = float64(uniqueQueries(sorted, now, queryWindow))
	f.PaginationRatio = paginationRatio(sorted)
	f.SessionDepth = sessionDepth(sorted)
	f.DwellTimeAvg = meanInterArrivalMs(sorted)
	f.TimingVariance = timingCoefficientOfVariation(sorted)
	f.AssetWarmupMissing = assetWarmupMissing(sorted)
	f.MouseEntropy = mouseMovementEntropy(sorted)
	f.DwellContentCorr = dwellContentCorrelation(sorted)
	return f
}

func countWithin(logs []types.RequestLog, now time.Time, window time.Duration) int {
	cutoff := now.Add(-window)
	n := 0
	for _, l := range logs {
		if !l.Timestamp.Before(cutoff) {
			n++
		}
	}
	return n
}

func uniqueQueries(logs []types.RequestLog, now time.Time, window time.Duration) int {
	cutoff := now.Add(-window)
	seen := make(map[string]struct{})
	for _, l := range logs {
		if l.Timestamp.Before(cutoff) {
			continue
		}
		if q := l.Query["q"]; q != "" {
			seen[q] = struct{}{}
		}
	}
	return len(seen)
}

// paginationRatio is non-asset requests over distinct non-asset paths.
// A scraper draining page after page of the same listing drives this up.
func paginationRatio(logs []types.RequestLog) float64 {
	total := 0
	paths := make(map[string]struct{})
	for _, l := range logs {
		if l.IsAsset {
			continue
		}
		total++
		paths[l.Path] = struct{}{}
	}
	if total == 0 {
		return 0
	}
	return float64(total) / float64(len(paths))
}

// sessionDepth is the deepest page number requested, defaulting to 1.
func sessionDepth(logs []types.RequestLog) float64 {
	depth := 1.0
	for _, l := range logs {
		if p := l.Query["page"]; p != "" {
			if n, err := strconv.ParseFloat(p, 64); err == nil && n > depth {
				depth = n
			}
		}
	}
	return depth
}

// meanInterArrivalMs is the average gap between consecutive requests
// in milliseconds; 0 with fewer than 2 logs.
func meanInterArrivalMs(sorted []types.RequestLog) float64 {
	if len(sorted) < 2 {
		return 0
	}
	var total float64
	for i := 1; i < len(sorted); i++ {
		total += float64(sorted[i].Timestamp.Sub(sorted[i-1].Timestamp).Milliseconds())
	}
	return total / float64(len(sorted)-1)
}

// timingCoefficientOfVariation is stdDev/mean of inter-arrival gaps.
// Machine-paced traffic has an unnaturally low value. 0 with fewer
// than 3 logs or a zero mean.
func timingCoefficientOfVariation(sorted []types.RequestLog) float64 {
	if len(sorted) < 3 {
		return 0
	}
	gaps := make([]float64, 0, len(sorted)-1)
	for i := 1; i < len(sorted); i++ {
		gaps = append(gaps, float64(sorted[i].Timestamp.Sub(sorted[i-1].Timestamp).Milliseconds()))
	}
	mean := 0.0
	for _, g := range gaps {
		mean += g
	}
	mean /= float64(len(gaps))
	if mean == 0 {
		return 0
	}
	variance := 0.0
	for _, g := range gaps {
		variance += (g - mean) * (g - mean)
	}
	variance /= float64(len(gaps))
	return math.Sqrt(variance) / mean
}

// assetWarmupMissing is true when a session of more than 2 requests
// never touched an asset. Browsers always fetch assets first.
func assetWarmupMissing(logs []types.RequestLog) bool {
	if len(logs) <= 2 {
		return false
	}
	for _, l := range logs {
		if l.IsAsset {
			return false
		}
	}
	return true
}

// mouseMovementEntropy is the base-2 Shannon entropy of turn angles
// between consecutive movement triples, over all movement points in
// the session. Scripted straight-line motion concentrates into few
// bins; 0 with fewer than 3 combined points.
func mouseMovementEntropy(logs []types.RequestLog) float64 {
	var points []types.MousePoint
	for _, l := range logs {
		points = append(points, l.MouseMovements...)
	}
	if len(points) < 3 {
		return 0
	}

	bins := make([]int, entropyBins)
	total := 0
	for i := 2; i < len(points); i++ {
		h1 := math.Atan2(points[i-1].Y-points[i-2].Y, points[i-1].X-points[i-2].X)
		h2 := math.Atan2(points[i].Y-points[i-1].Y, points[i].X-points[i-1].X)
		turn := (h2 - h1) * 180 / math.Pi
		for turn < 0 {
			turn += 360
		}
		for turn >= 360 {
			turn -= 360
		}
		bin := int(turn / entropyBinSize)
		if bin >= entropyBins {
			bin = entropyBins - 1
		}
		bins[bin]++
		total++
	}
	if total == 0 {
		return 0
	}

	entropy := 0.0
	for _, c := range bins {
		if c == 0 {
			continue
		}
		p := float64(c) / float64(total)
		entropy -= p * math.Log2(p)
	}
	return entropy
}

// dwellContentCorrelation is the Pearson correlation between per-request
// dwell time and the previous response's content length. Humans linger
// on heavier pages; scripts do not. Neutral 0.5 under 3 valid pairs so
// short sessions are not penalized; 0 when the denominator is zero.
func dwellContentCorrelation(logs []types.RequestLog) float64 {
	var xs, ys []float64
	for _, l := range logs {
		if l.HasDwell && l.HasPrevContent {
			xs = append(xs, l.DwellTimeMs)
			ys = append(ys, l.PrevContentLen)
		}
	}
	if len(xs) < 3 {
		return 0.5
	}

	n := float64(len(xs))
	var sumX, sumY, sumXY, sumXX, sumYY float64
	for i := range xs {
		sumX += xs[i]
		sumY += ys[i]
		sumXY += xs[i] * ys[i]
		sumXX += xs[i] * xs[i]
		sumYY += ys[i] * ys[i]
	}
	num := n*sumXY - sumX*sumY
	den := math.Sqrt(n*sumXX-sumX*sumX) * math.Sqrt(n*sumYY-sumY*sumY)
	if den == 0 {
		return 0
	}
	return num / den
}
