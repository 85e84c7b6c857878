// Package agent produces configuration proposals for the two sides.
// Proposers are injected strategies: the arena runs fine with the
// no-op variant when agents are disabled.
package agent

import (
	"context"

	"github.com/botarena/botarena/pkg/types"
)

// ProposalRequest is everything a proposer may reason over: the
// round's metrics, the side's current configuration and its own
// proposal history.
type ProposalRequest struct {
	Side          types.Side
	Metrics       types.RoundMetrics
	CurrentConfig map[string]any
	History       []types.ProposalHistoryEntry
}

// Proposer suggests a partial configuration delta for one side.
// A nil delta means "no proposal this round".
type Proposer interface {
	Propose(ctx context.Context, req ProposalRequest) (map[string]any, error)
}

// NoopProposer never proposes anything.
type NoopProposer struct{}

// Propose returns no delta.
func (NoopProposer) Propose(ctx context.Context, req ProposalRequest) (map[string]any, error) {
	return nil, nil
}
