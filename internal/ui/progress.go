package ui

import (
	"fmt"
	"strings"
)

// ProgressBar represents a progress bar component
type ProgressBar struct {
	width      int
	percentage float64
	label      string
}

// NewProgressBar creates a new progress bar
func NewProgressBar(width int) *ProgressBar {
	return &ProgressBar{width: width}
}

// SetProgress sets the progress percentage (0.0 to 1.0)
func (p *ProgressBar) SetProgress(percentage float64) {
	if percentage < 0 {
		percentage = 0
	}
	if percentage > 1 {
		percentage = 1
	}
	p.percentage = percentage
}

// SetLabel sets the progress label
func (p *ProgressBar) SetLabel(label string) {
	p.label = label
}

// SetWidth sets the progress bar width
func (p *ProgressBar) SetWidth(width int) {
	p.width = width
}

// Render renders the progress bar
func (p *ProgressBar) Render() string {
	var b strings.Builder

	barWidth := p.width - 10
	if barWidth < 10 {
		barWidth = 10
	}

	filled := int(float64(barWidth) * p.percentage)
	empty := barWidth - filled

	for i := 0; i < filled; i++ {
		b.WriteString(ProgressFullStyle.Render("█"))
	}
	for i := 0; i < empty; i++ {
		b.WriteString(ProgressEmptyStyle.Render("░"))
	}

	b.WriteString(" ")
	b.WriteString(ValueStyle.Render(fmt.Sprintf("%5.1f%%", p.percentage*100)))

	return b.String()
}

// RenderWithLabel renders the progress bar with a label
func (p *ProgressBar) RenderWithLabel() string {
	if p.label == "" {
		return p.Render()
	}
	return LabelStyle.Render(p.label) + "\n" + p.Render()
}

// SessionProgress tracks traffic session completion within a round.
type SessionProgress struct {
	width     int
	bar       *ProgressBar
	completed int
	total     int
}

// NewSessionProgress creates a session progress view.
func NewSessionProgress(width int) *SessionProgress {
	return &SessionProgress{
		width: width,
		bar:   NewProgressBar(width - 6),
	}
}

// SetSize updates the view size
func (v *SessionProgress) SetSize(width int) {
	v.width = width
	v.bar.SetWidth(width - 6)
}

// Reset clears the counters for a new round.
func (v *SessionProgress) Reset(total int) {
	v.completed = 0
	v.total = total
	v.bar.SetProgress(0)
}

// Bump records one finished session.
func (v *SessionProgress) Bump() {
	v.completed++
	if v.total > 0 {
		v.bar.SetProgress(float64(v.completed) / float64(v.total))
	}
}

// Render renders the session progress view
func (v *SessionProgress) Render() string {
	var b strings.Builder

	b.WriteString(HeaderStyle.Render("Sessions"))
	b.WriteString("\n\n")
	b.WriteString(v.bar.Render())
	b.WriteString("\n\n")

	if v.total > 0 {
		b.WriteString(RenderLabelValue("Completed", fmt.Sprintf("%d / %d", v.completed, v.total)))
	}

	return PanelStyle.Width(v.width).Render(b.String())
}

// SpinnerProgress shows an indeterminate progress with spinner
type SpinnerProgress struct {
	frame   int
	text    string
	running bool
}

// NewSpinnerProgress creates a new spinner progress
func NewSpinnerProgress() *SpinnerProgress {
	return &SpinnerProgress{
		text:    "Waiting...",
		running: true,
	}
}

// SetText sets the spinner text
func (s *SpinnerProgress) SetText(text string) {
	s.text = text
}

// Start starts the spinner
func (s *SpinnerProgress) Start() {
	s.running = true
}

// Stop stops the spinner
func (s *SpinnerProgress) Stop() {
	s.running = false
}

// Tick advances the spinner animation
func (s *SpinnerProgress) Tick() {
	if s.running {
		s.frame = (s.frame + 1) % len(SpinnerChars)
	}
}

// Render renders the spinner
func (s *SpinnerProgress) Render() string {
	if !s.running {
		return SuccessStyle.Render("✓") + " " + s.text
	}
	return InfoStyle.Render(SpinnerChars[s.frame]) + " " + s.text
}
