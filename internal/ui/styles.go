// Package ui provides TUI components for BotArena.
package ui

import "github.com/charmbracelet/lipgloss"

// Color palette
var (
	ColorCyan    = lipgloss.Color("#00FFFF")
	ColorMagenta = lipgloss.Color("#FF00FF")
	ColorGreen   = lipgloss.Color("#00FF00")
	ColorYellow  = lipgloss.Color("#FFFF00")
	ColorRed     = lipgloss.Color("#FF0055")
	ColorBlue    = lipgloss.Color("#3388FF")

	ColorDarkBg   = lipgloss.Color("#0D0D0D")
	ColorPanelBg  = lipgloss.Color("#1A1A2E")
	ColorHeaderBg = lipgloss.Color("#16213E")

	ColorText       = lipgloss.Color("#E0E0E0")
	ColorDimText    = lipgloss.Color("#666666")
	ColorBrightText = lipgloss.Color("#FFFFFF")
)

// Style definitions
var (
	BaseStyle = lipgloss.NewStyle().
			Background(ColorDarkBg).
			Foreground(ColorText)

	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorCyan).
			Background(ColorHeaderBg).
			Padding(0, 1).
			MarginBottom(1)

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorMagenta).
			Background(ColorHeaderBg).
			Padding(0, 2)

	PanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorCyan).
			Padding(1, 2).
			MarginRight(1)

	LogPanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorGreen).
			Padding(0, 1).
			Height(10)

	LabelStyle = lipgloss.NewStyle().
			Foreground(ColorDimText).
			Width(15)

	ValueStyle = lipgloss.NewStyle().
			Foreground(ColorBrightText).
			Bold(true)

	SuccessStyle = lipgloss.NewStyle().
			Foreground(ColorGreen).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ColorRed).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(ColorYellow)

	InfoStyle = lipgloss.NewStyle().
			Foreground(ColorCyan)

	// Side styles
	RedStyle = lipgloss.NewStyle().
			Foreground(ColorRed).
			Bold(true)

	BlueStyle = lipgloss.NewStyle().
			Foreground(ColorBlue).
			Bold(true)

	DrawStyle = lipgloss.NewStyle().
			Foreground(ColorYellow).
			Bold(true)

	FooterStyle = lipgloss.NewStyle().
			Foreground(ColorDimText).
			MarginTop(1)

	KeyStyle = lipgloss.NewStyle().
			Foreground(ColorCyan).
			Bold(true)

	HelpStyle = lipgloss.NewStyle().
			Foreground(ColorDimText)

	ProgressFullStyle = lipgloss.NewStyle().
				Foreground(ColorCyan)

	ProgressEmptyStyle = lipgloss.NewStyle().
				Foreground(ColorDimText)

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(ColorCyan)

	// Spinner chars for animation
	SpinnerChars = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
)

// RenderLabel renders a label with consistent styling
func RenderLabel(label string) string {
	return LabelStyle.Render(label + ":")
}

// RenderValue renders a value with consistent styling
func RenderValue(value string) string {
	return ValueStyle.Render(value)
}

// RenderLabelValue renders a label-value pair
func RenderLabelValue(label, value string) string {
	return RenderLabel(label) + " " + RenderValue(value)
}

// RenderKey renders a keyboard key
func RenderKey(key string) string {
	return KeyStyle.Render("[" + key + "]")
}

// RenderHelp renders help text
func RenderHelp(key, description string) string {
	return RenderKey(key) + " " + HelpStyle.Render(description)
}

// RenderSide styles a team name in its color.
func RenderSide(side string) string {
	switch side {
	case "red":
		return RedStyle.Render("RED")
	case "blue":
		return BlueStyle.Render("BLUE")
	default:
		return DrawStyle.Render("DRAW")
	}
}

// ASCII Art Banner
const Banner = `
╔══════════════════════════════════════════════════════════════╗
║  ██████╗  ██████╗ ████████╗ █████╗ ██████╗ ███████╗███╗  ██╗ █████╗   ║
║  ██╔══██╗██╔═══██╗╚══██╔══╝██╔══██╗██╔══██╗██╔════╝████╗ ██║██╔══██╗  ║
║  ██████╔╝██║   ██║   ██║   ███████║██████╔╝█████╗  ██╔██╗██║███████║  ║
║  ██╔══██╗██║   ██║   ██║   ██╔══██║██╔══██╗██╔══╝  ██║╚████║██╔══██║  ║
║  ██████╔╝╚██████╔╝   ██║   ██║  ██║██║  ██║███████╗██║ ╚███║██║  ██║  ║
║  ╚═════╝  ╚═════╝    ╚═╝   ╚═╝  ╚═╝╚═╝  ╚═╝╚══════╝╚═╝  ╚══╝╚═╝  ╚═╝  ║
║                                                              ║
║            [ Adversarial Bot Detection Arena ]               ║
╚══════════════════════════════════════════════════════════════╝`

// MiniBanner is a compact version
const MiniBanner = `┌─ BotArena ───────────────────────────────────────────────────┐`

// GetBannerStyled returns styled banner
func GetBannerStyled() string {
	return lipgloss.NewStyle().
		Foreground(ColorCyan).
		Bold(true).
		Render(MiniBanner)
}
