package detector

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/botarena/botarena/pkg/types"
)

var testNow = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func testExtractor() *Extractor {
	return &Extractor{Clock: fixedClock}
}

// logAt builds a minimal page request n seconds before testNow.
func logAt(secondsAgo int, path string) types.RequestLog {
	return types.RequestLog{
		SessionID: "s1",
		Timestamp: testNow.Add(-time.Duration(secondsAgo) * time.Second),
		Path:      path,
		Method:    "GET",
	}
}

// --- Extract Tests ---

func TestExtract_EmptyLog(t *testing.T) {
	f := testExtractor().Extract("s1", nil)

	if f.ReqsPerMin != 0 || f.UniqueQueriesPerHr != 0 || f.PaginationRatio != 0 {
		t.Errorf("expected zero rates, got %+v", f)
	}
	if f.AssetWarmupMissing {
		t.Error("empty session must not flag missing warmup")
	}
	if f.MouseEntropy != 0 {
		t.Errorf("expected zero entropy, got %f", f.MouseEntropy)
	}
}

func TestExtract_RequestRate(t *testing.T) {
	logs := []types.RequestLog{
		logAt(10, "/search"),
		logAt(30, "/search"),
		logAt(50, "/search"),
		logAt(300, "/search"), // outside the 60s window
	}

	f := testExtractor().Extract("s1", logs)
	if f.ReqsPerMin != 3 {
		t.Errorf("expected 3 requests in window, got %f", f.ReqsPerMin)
	}
}

func TestExtract_UniqueQueries(t *testing.T) {
	mk := func(secondsAgo int, q string) types.RequestLog {
		l := logAt(secondsAgo, "/search")
		l.Query = map[string]string{"q": q}
		return l
	}
	logs := []types.RequestLog{
		mk(10, "widget"),
		mk(20, "widget"),
		mk(30, "gadget"),
		mk(7200, "gizmo"), // outside the hour window
	}

	f := testExtractor().Extract("s1", logs)
	if f.UniqueQueriesPerHr != 2 {
		t.Errorf("expected 2 unique queries, got %f", f.UniqueQueriesPerHr)
	}
}

func TestExtract_PaginationRatio(t *testing.T) {
	logs := []types.RequestLog{
		logAt(10, "/search"),
		logAt(20, "/search"),
		logAt(30, "/search"),
		logAt(40, "/products/1"),
	}
	asset := logAt(50, "/assets/app.css")
	asset.IsAsset = true
	logs = append(logs, asset)

	f := testExtractor().Extract("s1", logs)
	// 4 page requests over 2 distinct paths; the asset does not count.
	if f.PaginationRatio != 2 {
		t.Errorf("expected pagination ratio 2, got %f", f.PaginationRatio)
	}
}

func TestExtract_SessionDepthDefaultsToOne(t *testing.T) {
	f := testExtractor().Extract("s1", []types.RequestLog{logAt(10, "/search")})
	if f.SessionDepth != 1 {
		t.Errorf("expected default depth 1, got %f", f.SessionDepth)
	}
}

func TestExtract_SessionDepth(t *testing.T) {
	mk := func(secondsAgo int, page string) types.RequestLog {
		l := logAt(secondsAgo, "/search")
		l.Query = map[string]string{"page": page}
		return l
	}
	logs := []types.RequestLog{mk(10, "2"), mk(20, "7"), mk(30, "4")}

	f := testExtractor().Extract("s1", logs)
	if f.SessionDepth != 7 {
		t.Errorf("expected depth 7, got %f", f.SessionDepth)
	}
}

func TestExtract_TimingVariance(t *testing.T) {
	// Perfectly machine-paced: one request every 2 seconds.
	var paced []types.RequestLog
	for i := 0; i < 10; i++ {
		paced = append(paced, logAt(i*2, "/search"))
	}
	f := testExtractor().Extract("s1", paced)
	if f.TimingVariance != 0 {
		t.Errorf("constant pacing should have zero variation, got %f", f.TimingVariance)
	}

	// Irregular human-ish gaps.
	gaps := []int{0, 1, 5, 6, 20, 21, 50}
	var human []types.RequestLog
	for _, g := range gaps {
		human = append(human, logAt(g, "/search"))
	}
	f = testExtractor().Extract("s1", human)
	if f.TimingVariance <= 0.3 {
		t.Errorf("irregular pacing should have high variation, got %f", f.TimingVariance)
	}
}

func TestExtract_AssetWarmup(t *testing.T) {
	noAssets := []types.RequestLog{logAt(10, "/search"), logAt(20, "/search"), logAt(30, "/search")}
	f := testExtractor().Extract("s1", noAssets)
	if !f.AssetWarmupMissing {
		t.Error("3+ page requests with no assets should flag missing warmup")
	}

	withAsset := make([]types.RequestLog, len(noAssets))
	copy(withAsset, noAssets)
	a := logAt(40, "/assets/app.js")
	a.IsAsset = true
	withAsset = append(withAsset, a)
	f = testExtractor().Extract("s1", withAsset)
	if f.AssetWarmupMissing {
		t.Error("a session that fetched an asset should not be flagged")
	}

	short := noAssets[:2]
	f = testExtractor().Extract("s1", short)
	if f.AssetWarmupMissing {
		t.Error("sessions of 2 or fewer requests are exempt from the warmup check")
	}
}

// --- Mouse Entropy Tests ---

func TestMouseEntropy_StraightLine(t *testing.T) {
	// Constant heading: every turn angle lands in the same bin.
	var points []types.MousePoint
	for i := 0; i < 20; i++ {
		points = append(points, types.MousePoint{X: float64(i * 10), Y: float64(i * 10), Timestamp: int64(i * 16)})
	}
	l := logAt(10, "/search")
	l.MouseMovements = points

	f := testExtractor().Extract("s1", []types.RequestLog{l})
	if f.MouseEntropy != 0 {
		t.Errorf("straight-line motion should have zero entropy, got %f", f.MouseEntropy)
	}
}

func TestMouseEntropy_WanderingPath(t *testing.T) {
	// Spiral-ish path with continuously changing heading.
	var points []types.MousePoint
	for i := 0; i < 60; i++ {
		angle := float64(i) * 0.7
		r := 5 + float64(i)
		points = append(points, types.MousePoint{
			X:         500 + r*math.Cos(angle),
			Y:         350 + r*math.Sin(angle),
			Timestamp: int64(i * 16),
		})
	}
	l := logAt(10, "/search")
	l.MouseMovements = points

	f := testExtractor().Extract("s1", []types.RequestLog{l})
	if f.MouseEntropy <= 0.5 {
		t.Errorf("wandering motion should carry entropy, got %f", f.MouseEntropy)
	}
}

func TestMouseEntropy_TooFewPoints(t *testing.T) {
	l := logAt(10, "/search")
	l.MouseMovements = []types.MousePoint{{X: 1, Y: 1}, {X: 2, Y: 2}}

	f := testExtractor().Extract("s1", []types.RequestLog{l})
	if f.MouseEntropy != 0 {
		t.Errorf("fewer than 3 points should yield 0, got %f", f.MouseEntropy)
	}
}

// --- Dwell/Content Correlation Tests ---

func dwellLog(secondsAgo int, dwellMs, prevLen float64) types.RequestLog {
	l := logAt(secondsAgo, "/search")
	l.DwellTimeMs = dwellMs
	l.PrevContentLen = prevLen
	l.HasDwell = true
	l.HasPrevContent = true
	return l
}

func TestDwellCorrelation_NeutralUnderThreePairs(t *testing.T) {
	logs := []types.RequestLog{
		dwellLog(10, 1000, 5000),
		dwellLog(20, 2000, 9000),
	}
	f := testExtractor().Extract("s1", logs)
	if f.DwellContentCorr != 0.5 {
		t.Errorf("under 3 pairs should be neutral 0.5, got %f", f.DwellContentCorr)
	}
}

func TestDwellCorrelation_PerfectlyCorrelated(t *testing.T) {
	var logs []types.RequestLog
	for i := 1; i <= 5; i++ {
		logs = append(logs, dwellLog(i*10, float64(i)*400, float64(i)*2000))
	}
	f := testExtractor().Extract("s1", logs)
	if math.Abs(f.DwellContentCorr-1) > 1e-9 {
		t.Errorf("linear dwell/content should correlate at 1, got %f", f.DwellContentCorr)
	}
}

func TestDwellCorrelation_ConstantDwell(t *testing.T) {
	// Fixed dwell regardless of page weight: zero denominator.
	var logs []types.RequestLog
	for i := 1; i <= 5; i++ {
		logs = append(logs, dwellLog(i*10, 500, float64(i)*2000))
	}
	f := testExtractor().Extract("s1", logs)
	if f.DwellContentCorr != 0 {
		t.Errorf("degenerate variance should yield 0, got %f", f.DwellContentCorr)
	}
}

func TestExtract_OrderInsensitive(t *testing.T) {
	ordered := []types.RequestLog{logAt(30, "/a"), logAt(20, "/b"), logAt(10, "/c")}
	shuffled := []types.RequestLog{ordered[2], ordered[0], ordered[1]}

	e := testExtractor()
	a := e.Extract("s1", ordered)
	b := e.Extract("s1", shuffled)
	if fmt.Sprintf("%+v", a) != fmt.Sprintf("%+v", b) {
		t.Errorf("extraction should not depend on log order:\n%+v\n%+v", a, b)
	}
}
