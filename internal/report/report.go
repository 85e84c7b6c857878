// Package report renders fight reports from persisted round records.
package report

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/botarena/botarena/pkg/types"
)

// Report is one fight's renderable document: every round, the running
// winner tally and proposal outcomes.
type Report struct {
	Title       string    `json:"title"`
	Version     string    `json:"version"`
	GeneratedAt time.Time `json:"generated_at"`

	Fight  int                 `json:"fight"`
	Rounds []types.RoundReport `json:"rounds"`

	// Summaries derived from the rounds.
	WinnerTally       map[types.Winner]int `json:"winner_tally"`
	ProposalsTried    int                  `json:"proposals_tried"`
	ProposalsAccepted int                  `json:"proposals_accepted"`
}

// NewReport creates an empty report for one fight.
func NewReport(title string, fight int) *Report {
	return &Report{
		Title:       title,
		Version:     "1.0",
		GeneratedAt: time.Now(),
		Fight:       fight,
		Rounds:      make([]types.RoundReport, 0),
		WinnerTally: make(map[types.Winner]int),
	}
}

// AddRound appends a round record and updates the tallies.
func (r *Report) AddRound(round types.RoundReport) {
	r.Rounds = append(r.Rounds, round)
	r.WinnerTally[round.Verdict.Winner]++
	for _, v := range round.Validations {
		r.ProposalsTried++
		if v.Accepted {
			r.ProposalsAccepted++
		}
	}
}

// FinalMetrics returns the last round's headline rates, or a zero
// summary when the fight produced no rounds.
func (r *Report) FinalMetrics() types.MetricsSummary {
	if len(r.Rounds) == 0 {
		return types.MetricsSummary{}
	}
	return r.Rounds[len(r.Rounds)-1].Metrics.Summary()
}

// AcceptedValidations returns every accepted proposal across the fight.
func (r *Report) AcceptedValidations() []types.ValidationResult {
	var out []types.ValidationResult
	for _, round := range r.Rounds {
		for _, v := range round.Validations {
			if v.Accepted {
				out = append(out, v)
			}
		}
	}
	return out
}

// Generator is the interface for report generators
type Generator interface {
	Generate(report *Report, w io.Writer) error
	Extension() string
}

// Manager manages report generation
type Manager struct {
	generators map[string]Generator
	outputDir  string
}

// NewManager creates a new report manager
func NewManager(outputDir string) *Manager {
	m := &Manager{
		generators: make(map[string]Generator),
		outputDir:  outputDir,
	}

	// Register default generators
	m.RegisterGenerator("json", &JSONGenerator{Indent: true})
	m.RegisterGenerator("html", NewHTMLGenerator())
	m.RegisterGenerator("markdown", &MarkdownGenerator{})
	m.RegisterGenerator("md", &MarkdownGenerator{})

	return m
}

// RegisterGenerator registers a generator
func (m *Manager) RegisterGenerator(format string, gen Generator) {
	m.generators[format] = gen
}

// GetGenerator returns a generator by format
func (m *Manager) GetGenerator(format string) (Generator, bool) {
	gen, ok := m.generators[format]
	return gen, ok
}

// Generate writes a report in the specified format and returns the
// path of the file it created.
func (m *Manager) Generate(report *Report, format string) (string, error) {
	gen, ok := m.generators[format]
	if !ok {
		return "", fmt.Errorf("unknown report format: %s", format)
	}

	if err := os.MkdirAll(m.outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}

	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("fight%d_%s.%s", report.Fight, timestamp, gen.Extension())
	path := filepath.Join(m.outputDir, filename)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create report file: %w", err)
	}
	defer f.Close()

	if err := gen.Generate(report, f); err != nil {
		return "", fmt.Errorf("failed to generate report: %w", err)
	}

	return path, nil
}

// GenerateAll generates reports in all registered formats
func (m *Manager) GenerateAll(report *Report) ([]string, error) {
	var paths []string
	seen := make(map[string]bool)

	for format, gen := range m.generators {
		// Skip duplicate extensions (e.g., md and markdown both use .md)
		ext := gen.Extension()
		if seen[ext] {
			continue
		}
		seen[ext] = true

		path, err := m.Generate(report, format)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}

	return paths, nil
}

// WriteToWriter generates a report and writes to the given writer
func (m *Manager) WriteToWriter(report *Report, format string, w io.Writer) error {
	gen, ok := m.generators[format]
	if !ok {
		return fmt.Errorf("unknown report format: %s", format)
	}

	return gen.Generate(report, w)
}
