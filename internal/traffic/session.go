package traffic

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	mrand "math/rand"
	"net/url"
	"time"

	"github.com/botarena/botarena/internal/config"
	"github.com/botarena/botarena/pkg/types"
	"golang.org/x/time/rate"
)

// consecutive blocks before a session gives up.
const blockAbortLimit = 3

// session is one simulated actor executing an attack profile against
// the target. It owns its session id exclusively; nothing else writes
// under that id.
type session struct {
	id      string
	profile *config.AttackProfile
	client  *Client
	limiter *rate.Limiter
	rng     *mrand.Rand
	queries *QueryGenerator

	// timeScale divides every sleep; >1 compresses time in fast mode.
	timeScale float64

	prevContentLen int
	result         types.SessionResult
}

func newSession(profile *config.AttackProfile, client *Client, timeScale float64) *session {
	id := fmt.Sprintf("%s-%s", profile.Name, randomHex(6))
	rng := mrand.New(mrand.NewSource(int64(hashString(id))))

	// The limiter paces the session at the profile's requests/minute.
	// Fast mode compresses the pacing along with every other sleep,
	// otherwise a slow human profile would dominate round duration.
	pace := float64(profile.RPM) / 60.0
	if timeScale > 1 {
		pace *= timeScale
	}
	limiter := rate.NewLimiter(rate.Limit(pace), 1)

	return &session{
		id:        id,
		profile:   profile,
		client:    client,
		limiter:   limiter,
		rng:       rng,
		queries:   NewQueryGenerator(profile.Query, rng),
		timeScale: timeScale,
		result: types.SessionResult{
			SessionID:   id,
			ProfileType: profile.Type,
			ProfileName: profile.Name,
		},
	}
}

// run executes the session's full browsing or scraping plan and
// returns its result. Errors degrade the session, never the round.
func (s *session) run(ctx context.Context) types.SessionResult {
	start := time.Now()
	defer func() {
		s.result.Duration = time.Since(start)
	}()

	if s.profile.Warmup {
		s.warmup(ctx)
	}

	queries := len(s.profile.Query.Seeds)
	if queries == 0 {
		queries = 1
	}

	consecutiveBlocks := 0
	for q := 0; q < queries; q++ {
		query := s.queries.Next()
		s.result.Searches++

		for page := 1; page <= s.profile.Pagination.Depth; page++ {
			if ctx.Err() != nil {
				return s.result
			}

			resp := s.fetchPage(ctx, searchPath(query, page))
			if resp.Err != nil {
				continue
			}

			switch {
			case resp.Blocked():
				s.result.WasBlocked = true
				consecutiveBlocks++
				if consecutiveBlocks >= blockAbortLimit {
					return s.result
				}
			case resp.Throttled():
				s.result.WasThrottled = true
				consecutiveBlocks = 0
				// Honor the backpressure signal with cooperative
				// extra latency before continuing.
				s.sleep(time.Second)
			default:
				consecutiveBlocks = 0
				s.result.PagesExtracted++
				if resp.Challenged {
					s.result.WasChallenged = true
				}
			}

			// Rotation hops across listings instead of draining one
			// result list to the bottom.
			if s.profile.Pagination.Rotate && s.rng.Float64() < 0.3 {
				break
			}
		}
	}
	return s.result
}

// warmup fetches the static assets a browser would pull before any
// content request.
func (s *session) warmup(ctx context.Context) {
	for _, asset := range []string{"/assets/app.css", "/assets/app.js"} {
		if err := s.limiter.Wait(ctx); err != nil {
			return
		}
		s.client.Get(PageRequest{Path: asset, SessionID: s.id})
	}
}

// fetchPage performs one paced content request with the profile's
// behavioral evidence attached.
func (s *session) fetchPage(ctx context.Context, path string) PageResponse {
	if err := s.limiter.Wait(ctx); err != nil {
		return PageResponse{Err: err}
	}
	s.jitter()

	req := PageRequest{
		Path:      path,
		SessionID: s.id,
	}

	if style := s.profile.Evasion.MouseStyle; style != "" {
		req.MouseMovements = synthesizeMouse(style, 8+s.rng.Intn(16), s.rng)
	}
	if s.profile.Evasion.SimulateDwellTimes {
		req.DwellTimeMs = s.dwellTime()
		req.PrevContentLen = s.prevContentLen
	}

	s.result.PagesRequested++
	resp := s.client.Get(req)
	if resp.Err == nil {
		s.prevContentLen = resp.ContentLength
	}
	return resp
}

// dwellTime picks how long the actor "read" the previous page. With
// dwell correlation enabled it scales with the previous content
// length, which is what the correlation feature looks for.
func (s *session) dwellTime() int {
	if s.profile.Evasion.CorrelateDwell && s.prevContentLen > 0 {
		base := float64(s.prevContentLen) * 0.4
		noise := (s.rng.Float64() - 0.5) * base * 0.2
		return int(base + noise)
	}
	return 300 + s.rng.Intn(2000)
}

// jitter sleeps a random interval from the profile's range. Timing
// humanization widens the spread so inter-arrival variance looks
// organic.
func (s *session) jitter() {
	lo, hi := s.profile.JitterMs[0], s.profile.JitterMs[1]
	if hi <= lo {
		return
	}
	ms := lo + s.rng.Intn(hi-lo)
	if s.profile.Evasion.HumanizeTiming {
		ms = int(float64(ms) * (0.3 + s.rng.Float64()*2.4))
	}
	s.sleep(time.Duration(ms) * time.Millisecond)
}

func (s *session) sleep(d time.Duration) {
	if s.timeScale > 1 {
		d = time.Duration(float64(d) / s.timeScale)
	}
	time.Sleep(d)
}

// searchPath builds the search request path. Queries are escaped so
// seeds with spaces or metacharacters survive the query string.
func searchPath(query string, page int) string {
	return fmt.Sprintf("/products?q=%s&page=%d", url.QueryEscape(query), page)
}

func randomHex(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}

func hashString(s string) uint32 {
	var h uint32 = 2166136261
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= 16777619
	}
	return h
}
