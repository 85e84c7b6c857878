package arena

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/botarena/botarena/internal/agent"
	"github.com/botarena/botarena/internal/config"
	"github.com/botarena/botarena/internal/metrics"
	"github.com/botarena/botarena/internal/report"
	"github.com/botarena/botarena/internal/vcs"
	"github.com/botarena/botarena/pkg/types"
)

// Port offsets for the isolated validation passes. Red and blue trial
// on distinct ports, away from the baseline, and run sequentially so
// they never contend for the shared target port space.
const (
	redValidationOffset  = 100
	blueValidationOffset = 200
)

// proposalHistoryContext caps how many past entries feed a proposer.
const proposalHistoryContext = 10

// Options configures the arena loop.
type Options struct {
	Rounds             int
	BasePort           int
	SessionsPerProfile int
	PoolSize           int
	TimeScale          float64

	PolicyPath  string
	ProfileDir  string
	StatePath   string
	HistoryPath string

	// ReportDir, when set, receives rendered fight reports in every
	// registered format.
	ReportDir string

	Conditions types.WinConditions
	AutoCommit bool

	// Emit, when set, receives arena lifecycle events for the TUI and
	// the dashboard.
	Emit func(event string, payload any)

	// OnSessionDone is forwarded to every tournament pass.
	OnSessionDone func(types.SessionResult)
}

// Arena runs the simulate, score, decide, propose, validate cycle.
type Arena struct {
	opts Options

	redProposer  agent.Proposer
	blueProposer agent.Proposer

	state   *StateStore
	history *HistoryStore
	commits vcs.Client
	logger  *slog.Logger

	botProfilePath string
}

// New creates an arena. Proposers may be nil, which disables that
// side's proposals.
func New(opts Options, red, blue agent.Proposer, commits vcs.Client) (*Arena, error) {
	if opts.Rounds <= 0 {
		opts.Rounds = 1
	}
	if opts.BasePort <= 0 {
		opts.BasePort = 8080
	}
	if commits == nil {
		commits = vcs.NoopClient{}
	}

	botPath, err := findBotProfile(opts.ProfileDir)
	if err != nil {
		return nil, err
	}

	return &Arena{
		opts:           opts,
		redProposer:    red,
		blueProposer:   blue,
		state:          NewStateStore(opts.StatePath),
		history:        NewHistoryStore(opts.HistoryPath),
		commits:        commits,
		logger:         slog.Default(),
		botProfilePath: botPath,
	}, nil
}

// State exposes the persisted arena state.
func (a *Arena) State() types.ArenaState {
	return a.state.State()
}

// Run executes the configured number of rounds within one fight.
func (a *Arena) Run(ctx context.Context) ([]types.RoundReport, error) {
	fight := a.state.BeginFight()
	a.emit("fight_start", map[string]any{"fight": fight, "rounds": a.opts.Rounds})

	doc := report.NewReport("BotArena", fight)
	var reports []types.RoundReport
	for round := 1; round <= a.opts.Rounds; round++ {
		rr, err := a.runRound(ctx, fight, round)
		if err != nil {
			return reports, fmt.Errorf("round %d failed: %w", round, err)
		}
		reports = append(reports, rr)
		doc.AddRound(rr)
	}

	a.writeReports(doc)
	a.emit("fight_done", map[string]any{"fight": fight})
	return reports, nil
}

func (a *Arena) writeReports(doc *report.Report) {
	if a.opts.ReportDir == "" {
		return
	}
	paths, err := report.NewManager(a.opts.ReportDir).GenerateAll(doc)
	if err != nil {
		a.logger.Warn("report generation failed", slog.String("error", err.Error()))
	}
	for _, p := range paths {
		a.logger.Info("report written", slog.String("path", p))
	}
}

func (a *Arena) runRound(ctx context.Context, fight, round int) (types.RoundReport, error) {
	a.emit("round_start", map[string]any{"fight": fight, "round": round})
	a.logger.Info("round starting", slog.Int("fight", fight), slog.Int("round", round))

	baseline, _, err := a.tournament(a.opts.BasePort).Run(ctx)
	if err != nil {
		return types.RoundReport{}, err
	}

	verdict := metrics.DecideWinner(baseline, a.opts.Conditions)
	a.emit("verdict", verdict)
	a.logger.Info("round decided",
		slog.String("winner", string(verdict.Winner)),
		slog.String("reason", verdict.Reason),
	)

	report := types.RoundReport{
		Fight:     fight,
		Round:     round,
		Timestamp: time.Now(),
		Verdict:   verdict,
		Metrics:   baseline,
	}

	// Proposal phases run sequentially: red first, then blue.
	if vr := a.proposalPhase(ctx, types.SideRed, fight, round, baseline); vr != nil {
		report.Validations = append(report.Validations, *vr)
	}
	if vr := a.proposalPhase(ctx, types.SideBlue, fight, round, baseline); vr != nil {
		report.Validations = append(report.Validations, *vr)
	}

	if err := a.state.AppendReport(report); err != nil {
		a.logger.Warn("failed to persist round report", slog.String("error", err.Error()))
	}
	a.commitAccepted(report)
	a.emit("round_done", report)
	return report, nil
}

// proposalPhase asks one side for a delta and trials it in isolation.
// Failures here degrade to "no proposal this round"; they never abort
// the round.
func (a *Arena) proposalPhase(ctx context.Context, side types.Side, fight, round int, baseline types.RoundMetrics) *types.ValidationResult {
	proposer := a.redProposer
	if side == types.SideBlue {
		proposer = a.blueProposer
	}
	if proposer == nil {
		return nil
	}

	current, err := a.currentConfigTree(side)
	if err != nil {
		a.logger.Warn("cannot read current config for proposer",
			slog.String("side", string(side)), slog.String("error", err.Error()))
		return nil
	}

	delta, err := proposer.Propose(ctx, agent.ProposalRequest{
		Side:          side,
		Metrics:       baseline,
		CurrentConfig: current,
		History:       a.history.ForSide(side, proposalHistoryContext),
	})
	if err != nil {
		a.logger.Warn("proposer failed",
			slog.String("side", string(side)), slog.String("error", err.Error()))
		return nil
	}
	if len(delta) == 0 {
		return nil
	}

	validator := a.validatorFor(side)
	result := validator.Validate(ctx, delta, baseline.Summary())
	a.emit("validation", result)

	entry := types.ProposalHistoryEntry{
		Team:      side,
		Round:     round,
		Fight:     fight,
		Timestamp: time.Now(),
		Delta:     delta,
		Accepted:  result.Accepted,
		Reason:    result.Reason,
		Before:    result.Before,
		After:     result.After,
	}
	if err := a.history.Append(entry); err != nil {
		a.logger.Warn("failed to persist proposal history", slog.String("error", err.Error()))
	}
	return &result
}

func (a *Arena) validatorFor(side types.Side) *Validator {
	if side == types.SideRed {
		run := func(ctx context.Context) (types.RoundMetrics, error) {
			m, _, err := a.tournament(a.opts.BasePort + redValidationOffset).Run(ctx)
			return m, err
		}
		return NewProfileValidator(a.botProfilePath, run, a.opts.Conditions)
	}
	run := func(ctx context.Context) (types.RoundMetrics, error) {
		m, _, err := a.tournament(a.opts.BasePort + blueValidationOffset).Run(ctx)
		return m, err
	}
	return NewPolicyValidator(a.opts.PolicyPath, run, a.opts.Conditions)
}

func (a *Arena) tournament(port int) *Tournament {
	return NewTournament(&TournamentOptions{
		Port:               port,
		PolicyPath:         a.opts.PolicyPath,
		ProfileDir:         a.opts.ProfileDir,
		SessionsPerProfile: a.opts.SessionsPerProfile,
		PoolSize:           a.opts.PoolSize,
		TimeScale:          a.opts.TimeScale,
		OnSessionDone:      a.opts.OnSessionDone,
	})
}

func (a *Arena) currentConfigTree(side types.Side) (map[string]any, error) {
	if side == types.SideRed {
		p, err := config.LoadProfile(a.botProfilePath)
		if err != nil {
			return nil, err
		}
		return config.ProfileTree(p)
	}
	p, err := config.LoadPolicy(a.opts.PolicyPath)
	if err != nil {
		return nil, err
	}
	return config.PolicyTree(p)
}

// commitAccepted stages and commits the side configs when a round
// accepted at least one proposal.
func (a *Arena) commitAccepted(report types.RoundReport) {
	if !a.opts.AutoCommit {
		return
	}
	accepted := 0
	for _, v := range report.Validations {
		if v.Accepted {
			accepted++
		}
	}
	if accepted == 0 {
		return
	}
	if err := a.commits.Stage(a.opts.PolicyPath, a.botProfilePath); err != nil {
		a.logger.Warn("stage failed", slog.String("error", err.Error()))
		return
	}
	msg := fmt.Sprintf("arena: fight %d round %d accepted %d proposal(s), winner %s",
		report.Fight, report.Round, accepted, report.Verdict.Winner)
	if err := a.commits.Commit(msg); err != nil {
		a.logger.Warn("commit failed", slog.String("error", err.Error()))
	}
}

func (a *Arena) emit(event string, payload any) {
	if a.opts.Emit != nil {
		a.opts.Emit(event, payload)
	}
}

// findBotProfile locates the bot-type profile that red proposals
// mutate.
func findBotProfile(dir string) (string, error) {
	profiles, paths, err := config.LoadProfilesWithPaths(dir)
	if err != nil {
		return "", err
	}
	for i, p := range profiles {
		if p.Type == types.ProfileBot {
			return paths[i], nil
		}
	}
	return "", fmt.Errorf("no bot profile found in %s", dir)
}
