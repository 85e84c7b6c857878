package report

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/botarena/botarena/pkg/types"
)

// HTMLGenerator generates HTML reports
type HTMLGenerator struct {
	template *template.Template
}

func htmlFuncs() template.FuncMap {
	return template.FuncMap{
		"winnerClass": func(w types.Winner) string {
			switch w {
			case types.WinnerRed:
				return "red"
			case types.WinnerBlue:
				return "blue"
			default:
				return "draw"
			}
		},
		"formatTime": func(t time.Time) string {
			return t.Format("2006-01-02 15:04:05")
		},
		"pct": func(v float64) string {
			return fmt.Sprintf("%.1f%%", v*100)
		},
	}
}

// NewHTMLGenerator creates a new HTML generator
func NewHTMLGenerator() *HTMLGenerator {
	tmpl := template.Must(template.New("report").Funcs(htmlFuncs()).Parse(htmlTemplate))
	return &HTMLGenerator{template: tmpl}
}

// Generate writes the report as HTML
func (g *HTMLGenerator) Generate(report *Report, w io.Writer) error {
	return g.template.Execute(w, report)
}

// Extension returns the file extension
func (g *HTMLGenerator) Extension() string {
	return "html"
}

// SetTemplate sets a custom template
func (g *HTMLGenerator) SetTemplate(tmpl *template.Template) {
	g.template = tmpl
}

// GetDefaultTemplate returns the default HTML template string
func GetDefaultTemplate() string {
	return htmlTemplate
}

// CustomHTMLGenerator creates a generator with a custom template
func CustomHTMLGenerator(templateStr string) (*HTMLGenerator, error) {
	tmpl, err := template.New("report").Funcs(htmlFuncs()).Parse(templateStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}
	return &HTMLGenerator{template: tmpl}, nil
}

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}} - BotArena Report</title>
    <style>
        :root {
            --bg-dark: #0D0D0D;
            --bg-panel: #1A1A2E;
            --bg-header: #16213E;
            --text-primary: #E0E0E0;
            --text-dim: #666666;
            --cyan: #00FFFF;
            --magenta: #FF00FF;
            --green: #00FF00;
            --yellow: #FFFF00;
            --red: #FF0055;
            --blue: #3388FF;
        }

        * {
            margin: 0;
            padding: 0;
            box-sizing: border-box;
        }

        body {
            font-family: 'Segoe UI', 'Roboto', 'Helvetica Neue', sans-serif;
            background: var(--bg-dark);
            color: var(--text-primary);
            line-height: 1.6;
            min-height: 100vh;
        }

        .container {
            max-width: 1200px;
            margin: 0 auto;
            padding: 20px;
        }

        header {
            background: var(--bg-header);
            padding: 30px;
            border-radius: 10px;
            margin-bottom: 30px;
            border: 1px solid var(--cyan);
        }

        h1 {
            color: var(--cyan);
            font-size: 2.5em;
            margin-bottom: 10px;
            text-shadow: 0 0 10px var(--cyan);
        }

        .meta {
            color: var(--text-dim);
            font-size: 0.9em;
        }

        .meta span {
            margin-right: 20px;
        }

        .section {
            background: var(--bg-panel);
            border-radius: 10px;
            padding: 20px;
            margin-bottom: 20px;
            border: 1px solid var(--magenta);
        }

        h2 {
            color: var(--magenta);
            margin-bottom: 20px;
            font-size: 1.5em;
        }

        .stats-grid {
            display: grid;
            grid-template-columns: repeat(auto-fit, minmax(200px, 1fr));
            gap: 20px;
        }

        .stat-card {
            background: var(--bg-header);
            padding: 20px;
            border-radius: 8px;
            text-align: center;
            border: 1px solid var(--cyan);
        }

        .stat-value {
            font-size: 2em;
            font-weight: bold;
            color: var(--cyan);
        }

        .stat-label {
            color: var(--text-dim);
            font-size: 0.9em;
            margin-top: 5px;
        }

        .round-list {
            list-style: none;
        }

        .round-item {
            background: var(--bg-header);
            padding: 15px;
            margin-bottom: 15px;
            border-radius: 8px;
            border-left: 4px solid var(--cyan);
        }

        .round-item.red { border-left-color: var(--red); }
        .round-item.blue { border-left-color: var(--blue); }
        .round-item.draw { border-left-color: var(--yellow); }

        .round-header {
            display: flex;
            justify-content: space-between;
            align-items: center;
            margin-bottom: 10px;
        }

        .round-title {
            font-weight: bold;
            color: var(--text-primary);
        }

        .badge {
            padding: 5px 15px;
            border-radius: 20px;
            font-weight: bold;
            font-size: 0.9em;
        }

        .badge.red { background: var(--red); color: white; }
        .badge.blue { background: var(--blue); color: white; }
        .badge.draw { background: var(--yellow); color: black; }

        .round-details {
            font-size: 0.9em;
        }

        .round-details code {
            background: var(--bg-dark);
            padding: 2px 6px;
            border-radius: 4px;
            font-family: 'Fira Code', 'Consolas', monospace;
            color: var(--cyan);
        }

        .proposal {
            margin-top: 8px;
            padding-left: 12px;
            border-left: 2px solid var(--text-dim);
            color: var(--text-dim);
        }

        .proposal.accepted { color: var(--green); border-left-color: var(--green); }

        footer {
            text-align: center;
            color: var(--text-dim);
            padding: 20px;
            font-size: 0.9em;
        }
    </style>
</head>
<body>
    <div class="container">
        <header>
            <h1>⚔ {{.Title}}</h1>
            <div class="meta">
                <span>Fight #{{.Fight}}</span>
                <span>Generated: {{formatTime .GeneratedAt}}</span>
                <span>Version: {{.Version}}</span>
            </div>
        </header>

        <section class="section">
            <h2>Final Metrics</h2>
            {{with .FinalMetrics}}
            <div class="stats-grid">
                <div class="stat-card">
                    <div class="stat-value">{{pct .BotExtractionRate}}</div>
                    <div class="stat-label">Bot Extraction</div>
                </div>
                <div class="stat-card">
                    <div class="stat-value">{{pct .BotSuppressionRate}}</div>
                    <div class="stat-label">Bot Suppression</div>
                </div>
                <div class="stat-card">
                    <div class="stat-value">{{pct .FalsePositiveRate}}</div>
                    <div class="stat-label">False Positives</div>
                </div>
                <div class="stat-card">
                    <div class="stat-value">{{pct .HumanSuccessRate}}</div>
                    <div class="stat-label">Human Success</div>
                </div>
            </div>
            {{end}}
        </section>

        <section class="section">
            <h2>Rounds ({{len .Rounds}}) — proposals accepted {{.ProposalsAccepted}}/{{.ProposalsTried}}</h2>
            <ul class="round-list">
                {{range .Rounds}}
                <li class="round-item {{winnerClass .Verdict.Winner}}">
                    <div class="round-header">
                        <span class="round-title">Round {{.Round}}</span>
                        <span class="badge {{winnerClass .Verdict.Winner}}">{{.Verdict.Winner}}</span>
                    </div>
                    <div class="round-details">
                        <p>{{.Verdict.Reason}}</p>
                        <p>extraction <code>{{pct .Metrics.BotExtractionRate}}</code>
                           suppression <code>{{pct .Metrics.BotSuppressionRate}}</code>
                           fpr <code>{{pct .Metrics.FalsePositiveRate}}</code>
                           human <code>{{pct .Metrics.HumanSuccessRate}}</code></p>
                        {{range .Validations}}
                        <div class="proposal{{if .Accepted}} accepted{{end}}">
                            {{.Side}}: {{if .Accepted}}accepted{{else}}rejected{{end}} — {{.Reason}}
                        </div>
                        {{end}}
                    </div>
                </li>
                {{end}}
            </ul>
        </section>

        <footer>
            Generated by BotArena - Adversarial Bot Detection Arena
        </footer>
    </div>
</body>
</html>`
