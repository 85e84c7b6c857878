// Package target implements the simulated storefront the arena runs
// traffic against: a thin product catalog behind the detector
// middleware, plus the admin surface the orchestrator drives.
package target

import (
	"sync"

	"github.com/botarena/botarena/pkg/types"
)

// LogStore owns the per-session request and detection logs. Each
// session id has exactly one logical writer (its own simulated actor),
// but many sessions insert concurrently, so the top-level maps are
// guarded by a lock.
type LogStore struct {
	mu         sync.RWMutex
	logs       map[string][]types.RequestLog
	detections map[string][]types.DetectorResult
}

// NewLogStore creates an empty store.
func NewLogStore() *LogStore {
	return &LogStore{
		logs:       make(map[string][]types.RequestLog),
		detections: make(map[string][]types.DetectorResult),
	}
}

// Append adds one request log entry to a session's history.
func (s *LogStore) Append(sessionID string, entry types.RequestLog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs[sessionID] = append(s.logs[sessionID], entry)
}

// ReadAll returns a copy of a session's request history.
func (s *LogStore) ReadAll(sessionID string) []types.RequestLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	logs := s.logs[sessionID]
	out := make([]types.RequestLog, len(logs))
	copy(out, logs)
	return out
}

// AppendDetection records an immutable detector result for a session.
func (s *LogStore) AppendDetection(sessionID string, result types.DetectorResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.detections[sessionID] = append(s.detections[sessionID], result)
}

// Detections returns a copy of every session's detector results.
func (s *LogStore) Detections() map[string][]types.DetectorResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]types.DetectorResult, len(s.detections))
	for id, results := range s.detections {
		cp := make([]types.DetectorResult, len(results))
		copy(cp, results)
		out[id] = cp
	}
	return out
}

// Logs returns a copy of every session's request history.
func (s *LogStore) Logs() map[string][]types.RequestLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]types.RequestLog, len(s.logs))
	for id, logs := range s.logs {
		cp := make([]types.RequestLog, len(logs))
		copy(cp, logs)
		out[id] = cp
	}
	return out
}

// Reset drops all per-session state.
func (s *LogStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = make(map[string][]types.RequestLog)
	s.detections = make(map[string][]types.DetectorResult)
}
