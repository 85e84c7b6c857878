package traffic

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/botarena/botarena/internal/config"
	"github.com/botarena/botarena/pkg/types"
	"github.com/panjf2000/ants/v2"
)

// GeneratorOptions configures one traffic run.
type GeneratorOptions struct {
	BaseURL            string
	SessionsPerProfile int
	PoolSize           int
	TimeScale          float64 // >1 compresses sleeps (fast mode)

	// OnSessionDone, when set, is called as each session finishes.
	// Used to feed the TUI and the dashboard.
	OnSessionDone func(types.SessionResult)
}

// Generator runs many simulated sessions in parallel, bounded by a
// worker pool, and returns only once every session has finished.
// Partial results are never handed to the aggregator.
type Generator struct {
	opts   *GeneratorOptions
	client *Client
	logger *slog.Logger
}

// NewGenerator creates a traffic generator for one target.
func NewGenerator(opts *GeneratorOptions) *Generator {
	if opts.SessionsPerProfile <= 0 {
		opts.SessionsPerProfile = 5
	}
	if opts.PoolSize <= 0 {
		opts.PoolSize = 32
	}
	if opts.TimeScale <= 0 {
		opts.TimeScale = 1
	}
	return &Generator{
		opts:   opts,
		client: NewClient(DefaultClientOptions(opts.BaseURL)),
		logger: slog.Default(),
	}
}

// Client returns the generator's HTTP client, which also serves the
// admin surface.
func (g *Generator) Client() *Client {
	return g.client
}

// Run executes SessionsPerProfile sessions for every profile in
// parallel and blocks until all of them complete.
func (g *Generator) Run(ctx context.Context, profiles []*config.AttackProfile) ([]types.SessionResult, error) {
	if len(profiles) == 0 {
		return nil, fmt.Errorf("no traffic profiles to run")
	}

	pool, err := ants.NewPool(g.opts.PoolSize, ants.WithPreAlloc(true))
	if err != nil {
		return nil, fmt.Errorf("failed to create session pool: %w", err)
	}
	defer pool.Release()

	var (
		mu      sync.Mutex
		results []types.SessionResult
		wg      sync.WaitGroup
	)

	total := 0
	for _, profile := range profiles {
		for i := 0; i < g.opts.SessionsPerProfile; i++ {
			sess := newSession(profile, g.client, g.opts.TimeScale)
			wg.Add(1)
			total++
			submitErr := pool.Submit(func() {
				defer wg.Done()
				result := sess.run(ctx)

				mu.Lock()
				results = append(results, result)
				mu.Unlock()

				if g.opts.OnSessionDone != nil {
					g.opts.OnSessionDone(result)
				}
			})
			if submitErr != nil {
				wg.Done()
				return nil, fmt.Errorf("failed to submit session: %w", submitErr)
			}
		}
	}

	g.logger.Info("traffic run started",
		slog.Int("profiles", len(profiles)),
		slog.Int("sessions", total),
		slog.Int("pool_size", g.opts.PoolSize),
	)

	// All sessions must finish before results are aggregated.
	wg.Wait()

	g.logger.Info("traffic run complete", slog.Int("sessions", len(results)))
	return results, nil
}
