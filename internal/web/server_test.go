package web

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/botarena/botarena/pkg/types"
)

func testState() types.ArenaState {
	return types.ArenaState{
		CurrentFightNumber: 2,
		Reports: []types.RoundReport{
			{Fight: 2, Round: 1, Verdict: types.Verdict{Winner: types.WinnerBlue, Reason: "suppressed"}},
		},
	}
}

func TestHandleState(t *testing.T) {
	s := NewServer(testState)

	req := httptest.NewRequest("GET", "/api/state", nil)
	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var state types.ArenaState
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if state.CurrentFightNumber != 2 {
		t.Errorf("expected fight 2, got %d", state.CurrentFightNumber)
	}
	if len(state.Reports) != 1 {
		t.Errorf("expected 1 report, got %d", len(state.Reports))
	}
}

func TestHandleRounds(t *testing.T) {
	s := NewServer(testState)

	req := httptest.NewRequest("GET", "/api/rounds", nil)
	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	var rounds []types.RoundReport
	if err := json.NewDecoder(resp.Body).Decode(&rounds); err != nil {
		t.Fatalf("bad body: %v", err)
	}
	if len(rounds) != 1 || rounds[0].Verdict.Winner != types.WinnerBlue {
		t.Errorf("unexpected rounds payload: %+v", rounds)
	}
}

func TestHandleRounds_EmptyStateIsArray(t *testing.T) {
	s := NewServer(func() types.ArenaState { return types.ArenaState{} })

	req := httptest.NewRequest("GET", "/api/rounds", nil)
	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	var rounds []types.RoundReport
	if err := json.NewDecoder(resp.Body).Decode(&rounds); err != nil {
		t.Fatalf("empty state must still serialize as an array: %v", err)
	}
	if rounds == nil {
		t.Error("expected an empty array, got null")
	}
}

func TestDashboardAssets(t *testing.T) {
	s := NewServer(testState)

	for _, path := range []string{"/", "/dashboard.js", "/dashboard.css"} {
		req := httptest.NewRequest("GET", path, nil)
		resp, err := s.App().Test(req, -1)
		if err != nil {
			t.Fatalf("request %s failed: %v", path, err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", path, resp.StatusCode)
		}
	}
}

func TestWebSocketUpgradeRequired(t *testing.T) {
	s := NewServer(testState)

	req := httptest.NewRequest("GET", "/ws", nil)
	resp, err := s.App().Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusUpgradeRequired {
		t.Errorf("plain GET on /ws should demand an upgrade, got %d", resp.StatusCode)
	}
}

func TestHandleEvent_DoesNotBlock(t *testing.T) {
	s := NewServer(testState)

	// With no clients connected the broadcast channel drains slowly;
	// emitting more events than its capacity must never block.
	for i := 0; i < 500; i++ {
		s.HandleEvent("round_done", types.RoundReport{Round: i})
	}
}
