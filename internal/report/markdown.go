package report

import (
	"encoding/json"
	"fmt"
	"io"
)

// MarkdownGenerator generates Markdown reports
type MarkdownGenerator struct {
	// IncludeDetails adds the raw proposal deltas to each round.
	IncludeDetails bool
}

// Generate writes the report as Markdown
func (g *MarkdownGenerator) Generate(report *Report, w io.Writer) error {
	var err error
	p := func(format string, args ...any) {
		if err != nil {
			return
		}
		_, err = fmt.Fprintf(w, format, args...)
	}

	p("# %s\n\n", report.Title)
	p("- **Fight:** %d\n", report.Fight)
	p("- **Generated:** %s\n", report.GeneratedAt.Format("2006-01-02 15:04:05"))
	p("- **Rounds:** %d\n", len(report.Rounds))
	p("- **Proposals:** %d accepted / %d tried\n\n", report.ProposalsAccepted, report.ProposalsTried)

	final := report.FinalMetrics()
	p("## Final Metrics\n\n")
	p("| Metric | Value |\n|---|---|\n")
	p("| Bot extraction | %.1f%% |\n", final.BotExtractionRate*100)
	p("| Bot suppression | %.1f%% |\n", final.BotSuppressionRate*100)
	p("| False positive rate | %.1f%% |\n", final.FalsePositiveRate*100)
	p("| Human success | %.1f%% |\n\n", final.HumanSuccessRate*100)

	p("## Rounds\n\n")
	for _, round := range report.Rounds {
		p("### Round %d — winner: %s\n\n", round.Round, round.Verdict.Winner)
		p("%s\n\n", round.Verdict.Reason)
		p("extraction %.1f%%, suppression %.1f%%, fpr %.1f%%, human success %.1f%%\n\n",
			round.Metrics.BotExtractionRate*100,
			round.Metrics.BotSuppressionRate*100,
			round.Metrics.FalsePositiveRate*100,
			round.Metrics.HumanSuccessRate*100)

		for _, v := range round.Validations {
			status := "rejected"
			if v.Accepted {
				status = "accepted"
			}
			p("- **%s** proposal %s: %s\n", v.Side, status, v.Reason)
			if g.IncludeDetails && len(v.Delta) > 0 {
				delta, merr := json.MarshalIndent(v.Delta, "", "  ")
				if merr == nil {
					p("\n  ```json\n%s\n  ```\n", delta)
				}
			}
		}
		p("\n")
	}

	return err
}

// Extension returns the file extension
func (g *MarkdownGenerator) Extension() string {
	return "md"
}
