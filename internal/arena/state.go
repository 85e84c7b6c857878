package arena

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/botarena/botarena/pkg/types"
)

// StateStore persists the arena state: the fight counter plus the
// append-only list of round reports. Every append rewrites the whole
// file. A missing or corrupt file falls back to an empty initial
// state; persistence problems never crash the caller's round.
type StateStore struct {
	mu     sync.Mutex
	path   string
	state  types.ArenaState
	logger *slog.Logger
}

// NewStateStore loads the state at path, or starts empty.
func NewStateStore(path string) *StateStore {
	s := &StateStore{path: path, logger: slog.Default()}
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("arena state unreadable, starting empty", slog.String("error", err.Error()))
		}
		return s
	}
	if err := json.Unmarshal(data, &s.state); err != nil {
		s.logger.Warn("arena state corrupt, starting empty", slog.String("error", err.Error()))
		s.state = types.ArenaState{}
	}
	return s
}

// State returns a copy of the current arena state.
func (s *StateStore) State() types.ArenaState {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.state
	out.Reports = make([]types.RoundReport, len(s.state.Reports))
	copy(out.Reports, s.state.Reports)
	return out
}

// BeginFight bumps the fight counter and returns its new value.
func (s *StateStore) BeginFight() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.CurrentFightNumber++
	s.write()
	return s.state.CurrentFightNumber
}

// AppendReport appends a round report and rewrites the state file.
func (s *StateStore) AppendReport(report types.RoundReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Reports = append(s.state.Reports, report)
	return s.write()
}

func (s *StateStore) write() error {
	data, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal arena state: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write arena state: %w", err)
	}
	return nil
}

// HistoryStore persists the proposal history log: one immutable entry
// per proposal attempt, read back as agent memory across rounds. Same
// durability contract as StateStore.
type HistoryStore struct {
	mu      sync.Mutex
	path    string
	entries []types.ProposalHistoryEntry
	logger  *slog.Logger
}

// NewHistoryStore loads the history at path, or starts empty.
func NewHistoryStore(path string) *HistoryStore {
	h := &HistoryStore{path: path, logger: slog.Default()}
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			h.logger.Warn("proposal history unreadable, starting empty", slog.String("error", err.Error()))
		}
		return h
	}
	if err := json.Unmarshal(data, &h.entries); err != nil {
		h.logger.Warn("proposal history corrupt, starting empty", slog.String("error", err.Error()))
		h.entries = nil
	}
	return h
}

// Entries returns a copy of the full history.
func (h *HistoryStore) Entries() []types.ProposalHistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]types.ProposalHistoryEntry, len(h.entries))
	copy(out, h.entries)
	return out
}

// ForSide returns the most recent entries for one team, newest last,
// capped at limit.
func (h *HistoryStore) ForSide(side types.Side, limit int) []types.ProposalHistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []types.ProposalHistoryEntry
	for _, e := range h.entries {
		if e.Team == side {
			out = append(out, e)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}

// Append records one proposal attempt and rewrites the history file.
func (h *HistoryStore) Append(entry types.ProposalHistoryEntry) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = append(h.entries, entry)

	data, err := json.MarshalIndent(h.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal proposal history: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(h.path), 0755); err != nil {
		return fmt.Errorf("failed to create history directory: %w", err)
	}
	if err := os.WriteFile(h.path, data, 0644); err != nil {
		return fmt.Errorf("failed to write proposal history: %w", err)
	}
	return nil
}
