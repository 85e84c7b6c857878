package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/botarena/botarena/pkg/types"
)

// Status represents the dashboard state
type Status int

const (
	StatusIdle Status = iota
	StatusRunning
	StatusCompleted
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "Idle"
	case StatusRunning:
		return "Running"
	case StatusCompleted:
		return "Completed"
	default:
		return "Unknown"
	}
}

// EventMsg carries one arena event into the TUI. Send it with
// Program.Send from the arena's Emit hook.
type EventMsg struct {
	Event   string
	Payload any
}

// SessionDoneMsg reports one finished traffic session.
type SessionDoneMsg struct {
	Result types.SessionResult
}

// TickMsg is sent on each animation tick
type TickMsg time.Time

// LogEntry represents a feed line
type LogEntry struct {
	Time    time.Time
	Message string
}

// Dashboard is the main TUI model
type Dashboard struct {
	width  int
	height int

	status Status
	fight  int
	round  int
	rounds int

	tally   map[types.Winner]int
	summary types.MetricsSummary
	haveRun bool

	sessions *SessionProgress
	spinner  *SpinnerProgress

	logs    []LogEntry
	maxLogs int

	sessionsPerRound int
}

// NewDashboard creates a new dashboard instance. sessionsPerRound
// sizes the per-round progress bar.
func NewDashboard(sessionsPerRound int) *Dashboard {
	return &Dashboard{
		width:            80,
		height:           24,
		status:           StatusIdle,
		tally:            make(map[types.Winner]int),
		sessions:         NewSessionProgress(70),
		spinner:          NewSpinnerProgress(),
		logs:             make([]LogEntry, 0, 100),
		maxLogs:          50,
		sessionsPerRound: sessionsPerRound,
	}
}

// AddLog adds a feed line
func (d *Dashboard) AddLog(message string) {
	d.logs = append(d.logs, LogEntry{Time: time.Now(), Message: message})
	if len(d.logs) > d.maxLogs {
		d.logs = d.logs[len(d.logs)-d.maxLogs:]
	}
}

// Init initializes the model
func (d *Dashboard) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		tea.EnterAltScreen,
	)
}

func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// Update handles messages
func (d *Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return d, tea.Quit
		}

	case tea.WindowSizeMsg:
		d.width = msg.Width
		d.height = msg.Height
		d.sessions.SetSize(d.width - 4)

	case TickMsg:
		d.spinner.Tick()
		return d, tickCmd()

	case SessionDoneMsg:
		d.sessions.Bump()

	case EventMsg:
		d.handleEvent(msg)
	}

	return d, nil
}

func (d *Dashboard) handleEvent(msg EventMsg) {
	switch msg.Event {
	case "fight_start":
		if m, ok := msg.Payload.(map[string]any); ok {
			if f, ok := m["fight"].(int); ok {
				d.fight = f
			}
			if r, ok := m["rounds"].(int); ok {
				d.rounds = r
			}
		}
		d.status = StatusRunning
		d.spinner.Start()
		d.spinner.SetText("Fight in progress")
		d.AddLog(fmt.Sprintf("fight %d started", d.fight))

	case "round_start":
		if m, ok := msg.Payload.(map[string]any); ok {
			if r, ok := m["round"].(int); ok {
				d.round = r
			}
		}
		d.sessions.Reset(d.sessionsPerRound)
		d.AddLog(fmt.Sprintf("round %d started", d.round))

	case "verdict":
		if v, ok := msg.Payload.(types.Verdict); ok {
			d.tally[v.Winner]++
			d.AddLog(fmt.Sprintf("%s — %s", RenderSide(string(v.Winner)), v.Reason))
		}

	case "validation":
		if v, ok := msg.Payload.(types.ValidationResult); ok {
			status := ErrorStyle.Render("rejected")
			if v.Accepted {
				status = SuccessStyle.Render("accepted")
			}
			d.AddLog(fmt.Sprintf("%s proposal %s: %s", RenderSide(string(v.Side)), status, v.Reason))
		}

	case "round_done":
		if r, ok := msg.Payload.(types.RoundReport); ok {
			d.summary = r.Metrics.Summary()
			d.haveRun = true
		}

	case "fight_done":
		d.status = StatusCompleted
		d.spinner.Stop()
		d.spinner.SetText("Fight complete")
		d.AddLog("fight finished")
	}
}

// View renders the dashboard
func (d *Dashboard) View() string {
	if d.width == 0 {
		return "Loading..."
	}

	var b strings.Builder

	b.WriteString(d.renderHeader())
	b.WriteString("\n")

	mainContent := lipgloss.JoinHorizontal(
		lipgloss.Top,
		d.renderScoreboard(),
		d.renderLogPanel(),
	)
	b.WriteString(mainContent)
	b.WriteString("\n")

	b.WriteString(d.sessions.Render())
	b.WriteString("\n")

	b.WriteString(d.renderFooter())

	return b.String()
}

func (d *Dashboard) renderHeader() string {
	title := TitleStyle.Render("⚔ BotArena")

	var statusText string
	switch d.status {
	case StatusRunning:
		statusText = SuccessStyle.Render("● RUNNING")
	case StatusCompleted:
		statusText = SuccessStyle.Render("✓ COMPLETED")
	default:
		statusText = HelpStyle.Render("○ IDLE")
	}

	progress := ""
	if d.fight > 0 {
		progress = LabelStyle.Render("Fight: ") +
			InfoStyle.Render(fmt.Sprintf("%d  round %d/%d", d.fight, d.round, d.rounds))
	}

	leftSide := title + "  " + statusText
	padding := d.width - lipgloss.Width(leftSide) - lipgloss.Width(progress) - 2
	if padding < 0 {
		padding = 0
	}

	return BoxStyle.Width(d.width - 2).Render(leftSide + strings.Repeat(" ", padding) + progress)
}

func (d *Dashboard) renderScoreboard() string {
	var b strings.Builder

	b.WriteString(HeaderStyle.Render("Scoreboard"))
	b.WriteString("\n\n")
	b.WriteString(RedStyle.Render(fmt.Sprintf("RED  %3d", d.tally[types.WinnerRed])))
	b.WriteString("\n")
	b.WriteString(BlueStyle.Render(fmt.Sprintf("BLUE %3d", d.tally[types.WinnerBlue])))
	b.WriteString("\n")
	b.WriteString(DrawStyle.Render(fmt.Sprintf("DRAW %3d", d.tally[types.WinnerDraw])))
	b.WriteString("\n\n")

	if d.haveRun {
		b.WriteString(RenderLabelValue("Extraction", fmt.Sprintf("%.1f%%", d.summary.BotExtractionRate*100)))
		b.WriteString("\n")
		b.WriteString(RenderLabelValue("Suppression", fmt.Sprintf("%.1f%%", d.summary.BotSuppressionRate*100)))
		b.WriteString("\n")
		b.WriteString(RenderLabelValue("FPR", fmt.Sprintf("%.1f%%", d.summary.FalsePositiveRate*100)))
		b.WriteString("\n")
		b.WriteString(RenderLabelValue("Human OK", fmt.Sprintf("%.1f%%", d.summary.HumanSuccessRate*100)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(d.spinner.Render())

	return PanelStyle.Width(d.width/3 - 2).Render(b.String())
}

func (d *Dashboard) renderLogPanel() string {
	var b strings.Builder

	b.WriteString(HeaderStyle.Render("Activity"))
	b.WriteString("\n\n")

	startIdx := 0
	if len(d.logs) > 8 {
		startIdx = len(d.logs) - 8
	}

	for i := startIdx; i < len(d.logs); i++ {
		log := d.logs[i]
		line := fmt.Sprintf("%s %s",
			HelpStyle.Render(log.Time.Format("15:04:05")),
			log.Message,
		)
		b.WriteString(line)
		b.WriteString("\n")
	}

	return LogPanelStyle.Width(d.width*2/3 - 4).Render(b.String())
}

func (d *Dashboard) renderFooter() string {
	return FooterStyle.Render(RenderHelp("q", "quit"))
}

// Run starts the TUI application
func Run(d *Dashboard) error {
	p := tea.NewProgram(d, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// NewProgram returns the tea.Program for external control; the caller
// feeds it EventMsg and SessionDoneMsg values via Send.
func NewProgram(d *Dashboard) *tea.Program {
	return tea.NewProgram(d, tea.WithAltScreen())
}
