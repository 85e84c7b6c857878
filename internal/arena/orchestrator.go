// Package arena drives the adversarial loop: tournament passes,
// win decisions, proposal validation and round persistence.
package arena

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/botarena/botarena/internal/config"
	"github.com/botarena/botarena/internal/metrics"
	"github.com/botarena/botarena/internal/target"
	"github.com/botarena/botarena/internal/traffic"
	"github.com/botarena/botarena/pkg/types"
)

// TournamentOptions configures one simulation pass.
type TournamentOptions struct {
	Port               int
	PolicyPath         string
	ProfileDir         string
	SessionsPerProfile int
	PoolSize           int
	TimeScale          float64
	ThrottleLatency    time.Duration
	OnSessionDone      func(types.SessionResult)
}

// Tournament runs one full simulation pass: start the target, reset
// its state, drive the traffic generator to completion, aggregate.
type Tournament struct {
	opts   *TournamentOptions
	agg    *metrics.Aggregator
	logger *slog.Logger
}

// NewTournament creates a tournament orchestrator.
func NewTournament(opts *TournamentOptions) *Tournament {
	if opts.ThrottleLatency <= 0 {
		opts.ThrottleLatency = 500 * time.Millisecond
	}
	if opts.TimeScale <= 0 {
		opts.TimeScale = 1
	}
	return &Tournament{
		opts:   opts,
		agg:    metrics.NewAggregator(metrics.ModeWeighted),
		logger: slog.Default(),
	}
}

// Run executes the pass and returns the aggregated round metrics.
// A policy whose action bands are not strictly increasing aborts the
// round before any traffic runs. The target service is torn down on
// every exit path.
func (t *Tournament) Run(ctx context.Context) (types.RoundMetrics, []types.SessionResult, error) {
	var zero types.RoundMetrics

	profiles, err := config.LoadProfiles(t.opts.ProfileDir)
	if err != nil {
		return zero, nil, fmt.Errorf("failed to load traffic profiles: %w", err)
	}
	if len(profiles) == 0 {
		return zero, nil, fmt.Errorf("no traffic profiles found in %s", t.opts.ProfileDir)
	}

	// Tournament loads are strict: a missing policy file is an error,
	// not a silent default.
	policy, err := config.LoadPolicy(t.opts.PolicyPath)
	if err != nil {
		return zero, nil, err
	}
	if err := policy.Validate(); err != nil {
		return zero, nil, fmt.Errorf("policy rejected: %w", err)
	}

	throttle := t.opts.ThrottleLatency
	if t.opts.TimeScale > 1 {
		throttle = time.Duration(float64(throttle) / t.opts.TimeScale)
	}
	server, err := target.NewServer(&target.ServerOptions{
		Port:            t.opts.Port,
		PolicyPath:      t.opts.PolicyPath,
		CatalogSize:     500,
		ThrottleLatency: throttle,
	})
	if err != nil {
		return zero, nil, fmt.Errorf("failed to build target service: %w", err)
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Listen()
	}()
	defer func() {
		if err := server.Shutdown(); err != nil {
			t.logger.Warn("target shutdown failed", slog.String("error", err.Error()))
		}
	}()

	gen := traffic.NewGenerator(&traffic.GeneratorOptions{
		BaseURL:            fmt.Sprintf("http://127.0.0.1:%d", t.opts.Port),
		SessionsPerProfile: t.opts.SessionsPerProfile,
		PoolSize:           t.opts.PoolSize,
		TimeScale:          t.opts.TimeScale,
		OnSessionDone:      t.opts.OnSessionDone,
	})

	if err := t.awaitReady(ctx, gen.Client(), serveErr); err != nil {
		return zero, nil, err
	}

	results, err := gen.Run(ctx, profiles)
	if err != nil {
		return zero, nil, fmt.Errorf("traffic run failed: %w", err)
	}

	// Join the server-side detector results onto the session results
	// before aggregating.
	detections, err := gen.Client().Detections()
	if err != nil {
		return zero, nil, err
	}
	for i := range results {
		results[i].Detections = detections[results[i].SessionID]
	}

	m := t.agg.Aggregate(results)
	t.logger.Info("tournament pass complete",
		slog.Int("port", t.opts.Port),
		slog.Int("sessions", len(results)),
		slog.Float64("bot_extraction", m.BotExtractionRate),
		slog.Float64("false_positives", m.FalsePositiveRate),
	)
	return m, results, nil
}

// awaitReady polls the admin reset endpoint until the target accepts
// requests. The successful reset doubles as the pre-round state clear.
func (t *Tournament) awaitReady(ctx context.Context, client *traffic.Client, serveErr <-chan error) error {
	deadline := time.Now().Add(5 * time.Second)
	for {
		select {
		case err := <-serveErr:
			return fmt.Errorf("target service exited early: %w", err)
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := client.Reset(); err == nil {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("target service on port %d did not become ready", t.opts.Port)
		}
		time.Sleep(50 * time.Millisecond)
	}
}
