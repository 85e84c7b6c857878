package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/botarena/botarena/pkg/types"
)

// QueryStrategy selects how a bot session generates search queries.
type QueryStrategy string

const (
	QueryRefine     QueryStrategy = "refine"     // mutate the previous query within an edit-distance budget
	QueryRandom     QueryStrategy = "random"     // independent draws from the seed list
	QuerySequential QueryStrategy = "sequential" // walk the seed list in order
)

// QueryConfig controls query generation for a profile.
type QueryConfig struct {
	Strategy        QueryStrategy `json:"strategy"`
	MaxEditDistance int           `json:"maxEditDistance,omitempty"`
	Seeds           []string      `json:"seeds,omitempty"`
}

// PaginationConfig controls how deep and how a session pages through
// result lists.
type PaginationConfig struct {
	Depth  int  `json:"depth"`
	Rotate bool `json:"rotate"` // rotate across listings instead of draining one
}

// Evasion toggles humanization tricks a bot may enable to dodge the
// detector.
type Evasion struct {
	MouseStyle         string `json:"mouseStyle,omitempty"` // "linear" or "humanized"
	HumanizeTiming     bool   `json:"humanizeTiming,omitempty"`
	CorrelateDwell     bool   `json:"correlateDwell,omitempty"`
	SimulateDwellTimes bool   `json:"simulateDwellTimes,omitempty"`
}

// AttackProfile describes one traffic-generation strategy.
type AttackProfile struct {
	Name        string            `json:"name"`
	Type        types.ProfileType `json:"type"`
	Mode        string            `json:"mode"`
	Concurrency int               `json:"concurrency"`
	RPM         int               `json:"requestsPerMinute"`
	Warmup      bool              `json:"warmup"`
	Query       QueryConfig       `json:"query"`
	Pagination  PaginationConfig  `json:"pagination"`
	JitterMs    [2]int            `json:"jitterRangeMs"`
	Evasion     Evasion           `json:"evasion,omitempty"`
}

// LoadProfile reads one attack profile from a JSON file.
func LoadProfile(path string) (*AttackProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}
	var p AttackProfile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse profile %s: %w", filepath.Base(path), err)
	}
	applyProfileDefaults(&p)
	return &p, nil
}

// LoadProfiles reads every *.json profile in a directory.
func LoadProfiles(dir string) ([]*AttackProfile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile directory: %w", err)
	}
	var profiles []*AttackProfile
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		p, err := LoadProfile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, p)
	}
	return profiles, nil
}

// LoadProfilesWithPaths reads every *.json profile in a directory and
// returns the profiles alongside their file paths, index-aligned.
func LoadProfilesWithPaths(dir string) ([]*AttackProfile, []string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read profile directory: %w", err)
	}
	var profiles []*AttackProfile
	var paths []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		p, err := LoadProfile(path)
		if err != nil {
			return nil, nil, err
		}
		profiles = append(profiles, p)
		paths = append(paths, path)
	}
	return profiles, paths, nil
}

// SaveProfile writes the profile as indented JSON.
func SaveProfile(path string, p *AttackProfile) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create profile directory: %w", err)
	}
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write profile: %w", err)
	}
	return nil
}

func applyProfileDefaults(p *AttackProfile) {
	if p.Type == "" {
		p.Type = types.ProfileBot
	}
	if p.Concurrency <= 0 {
		p.Concurrency = 1
	}
	if p.RPM <= 0 {
		p.RPM = 30
	}
	if p.Query.Strategy == "" {
		p.Query.Strategy = QuerySequential
	}
	if p.Pagination.Depth <= 0 {
		p.Pagination.Depth = 1
	}
}

// DefaultBotProfile returns an aggressive scraper profile.
func DefaultBotProfile() *AttackProfile {
	return &AttackProfile{
		Name:        "scraper",
		Type:        types.ProfileBot,
		Mode:        "scrape",
		Concurrency: 4,
		RPM:         120,
		Warmup:      false,
		Query: QueryConfig{
			Strategy:        QueryRefine,
			MaxEditDistance: 3,
			Seeds:           []string{"widget", "gadget", "gizmo"},
		},
		Pagination: PaginationConfig{Depth: 8, Rotate: true},
		JitterMs:   [2]int{10, 40},
	}
}

// DefaultHumanProfile returns a browsing profile that should never
// trip the detector.
func DefaultHumanProfile() *AttackProfile {
	return &AttackProfile{
		Name:        "shopper",
		Type:        types.ProfileHuman,
		Mode:        "browse",
		Concurrency: 2,
		RPM:         12,
		Warmup:      true,
		Query: QueryConfig{
			Strategy: QuerySequential,
			Seeds:    []string{"lamp", "chair"},
		},
		Pagination: PaginationConfig{Depth: 2},
		JitterMs:   [2]int{400, 2200},
		Evasion: Evasion{
			MouseStyle:         "humanized",
			HumanizeTiming:     true,
			CorrelateDwell:     true,
			SimulateDwellTimes: true,
		},
	}
}
