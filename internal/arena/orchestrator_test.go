package arena

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/botarena/botarena/internal/config"
	"github.com/botarena/botarena/pkg/types"
)

// tameProfile issues two quick content requests per session: too few
// for the warmup check, one inter-arrival gap, nothing above the
// default allow band.
func tameProfile(name string, ptype types.ProfileType) *config.AttackProfile {
	return &config.AttackProfile{
		Name:        name,
		Type:        ptype,
		Mode:        "browse",
		Concurrency: 1,
		RPM:         120,
		Query: config.QueryConfig{
			Strategy: config.QuerySequential,
			Seeds:    []string{"widget"},
		},
		Pagination: config.PaginationConfig{Depth: 2},
		JitterMs:   [2]int{1, 3},
	}
}

func writeTournamentConfigs(t *testing.T) (policyPath, profileDir string) {
	t.Helper()
	dir := t.TempDir()

	policyPath = filepath.Join(dir, "policy.yaml")
	if err := config.SavePolicy(policyPath, config.DefaultPolicy()); err != nil {
		t.Fatal(err)
	}

	profileDir = filepath.Join(dir, "profiles")
	if err := config.SaveProfile(filepath.Join(profileDir, "bot.json"), tameProfile("crawler", types.ProfileBot)); err != nil {
		t.Fatal(err)
	}
	if err := config.SaveProfile(filepath.Join(profileDir, "human.json"), tameProfile("shopper", types.ProfileHuman)); err != nil {
		t.Fatal(err)
	}
	return policyPath, profileDir
}

// --- Tournament Tests ---

func TestTournament_FullPassUndetectedTraffic(t *testing.T) {
	policyPath, profileDir := writeTournamentConfigs(t)

	tourney := NewTournament(&TournamentOptions{
		Port:               18731,
		PolicyPath:         policyPath,
		ProfileDir:         profileDir,
		SessionsPerProfile: 2,
		PoolSize:           4,
		TimeScale:          60,
	})

	m, results, err := tourney.Run(context.Background())
	if err != nil {
		t.Fatalf("tournament pass failed: %v", err)
	}

	if len(results) != 4 {
		t.Fatalf("expected 4 sessions (2 per profile), got %d", len(results))
	}
	for _, r := range results {
		if len(r.Detections) == 0 {
			t.Errorf("session %s has no joined detector results", r.SessionID)
		}
		if r.PagesRequested != 2 || r.PagesExtracted != 2 {
			t.Errorf("session %s: expected 2/2 pages, got %d/%d",
				r.SessionID, r.PagesExtracted, r.PagesRequested)
		}
	}

	// Traffic indistinguishable from browsing is allowed everywhere:
	// the bot extracts everything and no human is degraded.
	if m.BotExtractionRate != 1.0 {
		t.Errorf("expected full bot extraction, got %f", m.BotExtractionRate)
	}
	if m.BotSuppressionRate != 0 {
		t.Errorf("expected zero suppression, got %f", m.BotSuppressionRate)
	}
	if m.HumanSuccessRate != 1.0 {
		t.Errorf("expected full human success, got %f", m.HumanSuccessRate)
	}
	if m.FalsePositiveRate != 0 {
		t.Errorf("expected zero false positives, got %f", m.FalsePositiveRate)
	}

	if len(m.Profiles) != 2 {
		t.Errorf("expected stats for both profiles, got %d", len(m.Profiles))
	}
}

func TestTournament_TargetReleasedBetweenPasses(t *testing.T) {
	policyPath, profileDir := writeTournamentConfigs(t)

	opts := &TournamentOptions{
		Port:               18732,
		PolicyPath:         policyPath,
		ProfileDir:         profileDir,
		SessionsPerProfile: 1,
		PoolSize:           2,
		TimeScale:          60,
	}

	// Two passes on the same port prove the target is torn down on exit.
	for i := 0; i < 2; i++ {
		if _, _, err := NewTournament(opts).Run(context.Background()); err != nil {
			t.Fatalf("pass %d failed: %v", i+1, err)
		}
	}
}

func TestTournament_InvalidBandOrderingAborts(t *testing.T) {
	_, profileDir := writeTournamentConfigs(t)

	// Collapse the band ordering: allow swallows throttle and challenge.
	broken := config.DefaultPolicy()
	broken.Actions.Allow.Max = 50
	brokenPath := filepath.Join(t.TempDir(), "broken.yaml")
	if err := config.SavePolicy(brokenPath, broken); err != nil {
		t.Fatal(err)
	}

	tourney := NewTournament(&TournamentOptions{
		Port:               18733,
		PolicyPath:         brokenPath,
		ProfileDir:         profileDir,
		SessionsPerProfile: 1,
		TimeScale:          60,
	})

	if _, _, err := tourney.Run(context.Background()); err == nil {
		t.Fatal("a policy with collapsed band ordering must abort the pass")
	}
}

func TestTournament_MissingPolicyIsFatal(t *testing.T) {
	_, profileDir := writeTournamentConfigs(t)

	tourney := NewTournament(&TournamentOptions{
		Port:               18734,
		PolicyPath:         filepath.Join(t.TempDir(), "nope.yaml"),
		ProfileDir:         profileDir,
		SessionsPerProfile: 1,
		TimeScale:          60,
	})

	if _, _, err := tourney.Run(context.Background()); err == nil {
		t.Fatal("a missing policy file must abort the pass, not fall back to defaults")
	}
}
