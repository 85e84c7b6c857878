package arena

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/botarena/botarena/pkg/types"
)

func sampleReport(fight, round int, winner types.Winner) types.RoundReport {
	return types.RoundReport{
		Fight:     fight,
		Round:     round,
		Timestamp: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
		Verdict:   types.Verdict{Winner: winner, Reason: "test"},
	}
}

// --- StateStore Tests ---

func TestStateStore_StartsEmpty(t *testing.T) {
	s := NewStateStore(filepath.Join(t.TempDir(), "state.json"))
	state := s.State()
	if state.CurrentFightNumber != 0 || len(state.Reports) != 0 {
		t.Errorf("fresh store should be empty, got %+v", state)
	}
}

func TestStateStore_PersistsAcrossLoads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")

	s := NewStateStore(path)
	fight := s.BeginFight()
	if fight != 1 {
		t.Errorf("first fight should be 1, got %d", fight)
	}
	if err := s.AppendReport(sampleReport(fight, 1, types.WinnerBlue)); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if err := s.AppendReport(sampleReport(fight, 2, types.WinnerDraw)); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	reloaded := NewStateStore(path)
	state := reloaded.State()
	if state.CurrentFightNumber != 1 {
		t.Errorf("fight counter lost: %d", state.CurrentFightNumber)
	}
	if len(state.Reports) != 2 {
		t.Fatalf("expected 2 reports, got %d", len(state.Reports))
	}
	if state.Reports[0].Verdict.Winner != types.WinnerBlue {
		t.Errorf("report order lost: %+v", state.Reports[0])
	}

	if next := reloaded.BeginFight(); next != 2 {
		t.Errorf("fight counter should continue at 2, got %d", next)
	}
}

func TestStateStore_CorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	s := NewStateStore(path)
	if state := s.State(); state.CurrentFightNumber != 0 || len(state.Reports) != 0 {
		t.Errorf("corrupt file should reset to empty, got %+v", state)
	}
}

func TestStateStore_StateReturnsCopy(t *testing.T) {
	s := NewStateStore(filepath.Join(t.TempDir(), "state.json"))
	fight := s.BeginFight()
	if err := s.AppendReport(sampleReport(fight, 1, types.WinnerRed)); err != nil {
		t.Fatal(err)
	}

	snapshot := s.State()
	snapshot.Reports[0].Verdict.Winner = types.WinnerDraw

	if s.State().Reports[0].Verdict.Winner != types.WinnerRed {
		t.Error("mutating a snapshot must not affect the store")
	}
}

// --- HistoryStore Tests ---

func historyEntry(side types.Side, round int, accepted bool) types.ProposalHistoryEntry {
	return types.ProposalHistoryEntry{
		Team:     side,
		Round:    round,
		Fight:    1,
		Delta:    map[string]any{"k": "v"},
		Accepted: accepted,
	}
}

func TestHistoryStore_AppendAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")

	h := NewHistoryStore(path)
	if err := h.Append(historyEntry(types.SideRed, 1, false)); err != nil {
		t.Fatalf("append failed: %v", err)
	}
	if err := h.Append(historyEntry(types.SideBlue, 1, true)); err != nil {
		t.Fatalf("append failed: %v", err)
	}

	reloaded := NewHistoryStore(path)
	entries := reloaded.Entries()
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[1].Team != types.SideBlue || !entries[1].Accepted {
		t.Errorf("entry order or content lost: %+v", entries[1])
	}
}

func TestHistoryStore_ForSide(t *testing.T) {
	h := NewHistoryStore(filepath.Join(t.TempDir(), "history.json"))
	for round := 1; round <= 5; round++ {
		if err := h.Append(historyEntry(types.SideRed, round, round%2 == 0)); err != nil {
			t.Fatal(err)
		}
	}
	if err := h.Append(historyEntry(types.SideBlue, 1, true)); err != nil {
		t.Fatal(err)
	}

	red := h.ForSide(types.SideRed, 3)
	if len(red) != 3 {
		t.Fatalf("expected 3 capped entries, got %d", len(red))
	}
	// Newest last: rounds 3, 4, 5.
	if red[0].Round != 3 || red[2].Round != 5 {
		t.Errorf("expected the most recent rounds, got %d..%d", red[0].Round, red[2].Round)
	}
	for _, e := range red {
		if e.Team != types.SideRed {
			t.Errorf("foreign team leaked into side history: %+v", e)
		}
	}

	if blue := h.ForSide(types.SideBlue, 0); len(blue) != 1 {
		t.Errorf("zero limit should return everything for the side, got %d", len(blue))
	}
}

func TestHistoryStore_CorruptFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")
	if err := os.WriteFile(path, []byte("[[["), 0644); err != nil {
		t.Fatal(err)
	}
	if entries := NewHistoryStore(path).Entries(); len(entries) != 0 {
		t.Errorf("corrupt history should reset to empty, got %d entries", len(entries))
	}
}
