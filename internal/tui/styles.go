package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/fveres/dstui/internal/version"
)

// Application branding constants
const (
	AppName   = "DSTUI"
	GitHubURL = "github.com/fveres/dstui"
)

// AppVersion returns the application version from the centralized version package
func AppVersion() string {
	return version.Version
}

// Layout constants
const (
	MinTerminalWidth = 72
	ProgressBarWidth = 20
)

// Color palette
var (
	PrimaryColor   = lipgloss.Color("#7D56F4") // Purple
	SecondaryColor = lipgloss.Color("#43BF6D") // Green
	AccentColor    = lipgloss.Color("#5FB3D4") // Blue
	WarningColor   = lipgloss.Color("#FFA500") // Orange
	ErrorColor     = lipgloss.Color("#FF5F5F") // Red

	TextColor       = lipgloss.Color("#FFFFFF")
	SubtleColor     = lipgloss.Color("#626262")
	BorderColor     = lipgloss.Color("#7D56F4")
	HighlightColor  = lipgloss.Color("#43BF6D")
	BackgroundColor = lipgloss.Color("#1A1A1A")
)

// Common styles
var (
	TitleStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Bold(true).
			Padding(1, 0)

	SubtitleStyle = lipgloss.NewStyle().
			Foreground(SubtleColor).
			Italic(true)

	HeaderRowStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor).
			Bold(true)

	SelectedRowStyle = lipgloss.NewStyle().
				Foreground(HighlightColor).
				Bold(true)

	RowStyle = lipgloss.NewStyle().
			Foreground(TextColor)

	StatusBarStyle = lipgloss.NewStyle().
			Foreground(SubtleColor).
			Padding(0, 1)

	StatusErrorStyle = lipgloss.NewStyle().
				Foreground(ErrorColor).
				Bold(true).
				Padding(0, 1)

	HelpStyle = lipgloss.NewStyle().
			Foreground(SubtleColor).
			Padding(1, 0)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true)

	SpinnerStyle = lipgloss.NewStyle().
			Foreground(PrimaryColor)

	ActiveTabStyle = lipgloss.NewStyle().
			Foreground(HighlightColor).
			Bold(true).
			Padding(0, 2)

	InactiveTabStyle = lipgloss.NewStyle().
				Foreground(SubtleColor).
				Padding(0, 2)

	LabelStyle = lipgloss.NewStyle().
			Foreground(SubtleColor)

	ValueStyle = lipgloss.NewStyle().
			Foreground(TextColor)

	FocusedInputStyle = lipgloss.NewStyle().
				Foreground(PrimaryColor).
				Bold(true)

	BlurredInputStyle = lipgloss.NewStyle().
				Foreground(SubtleColor)

	ModalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(BorderColor).
			Padding(1, 2)

	WarningModalStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(WarningColor).
				Padding(1, 2)
)

// statusColors maps task status labels to their display color
var statusColors = map[string]lipgloss.Color{
	"waiting":     lipgloss.Color("#FFA500"),
	"downloading": lipgloss.Color("#5FB3D4"),
	"paused":      lipgloss.Color("#626262"),
	"finished":    lipgloss.Color("#43BF6D"),
	"error":       lipgloss.Color("#FF5F5F"),
	"seeding":     lipgloss.Color("#7D56F4"),
}

// StatusStyle returns the style for a task status label
func StatusStyle(label string) lipgloss.Style {
	if color, ok := statusColors[label]; ok {
		return lipgloss.NewStyle().Foreground(color)
	}
	return lipgloss.NewStyle().Foreground(TextColor)
}

// BuildHeaderContent creates header content with app name and server host
func BuildHeaderContent(host string) string {
	left := lipgloss.NewStyle().
		Foreground(TextColor).
		Bold(true).
		Render(AppName + " v" + AppVersion())

	var middle string
	if host != "" {
		middle = lipgloss.NewStyle().
			Foreground(AccentColor).
			Render("  " + host)
	}

	right := lipgloss.NewStyle().
		Foreground(SubtleColor).
		Render("  " + GitHubURL)

	return lipgloss.JoinHorizontal(lipgloss.Top, left, middle, right)
}

// RenderApplicationContainer wraps a screen's content with the shared
// header, footer and outer border. Every screen renders through this so
// the frame stays identical across transitions.
func RenderApplicationContainer(content, footerText, host string, width, height int) string {
	if width < MinTerminalWidth {
		width = MinTerminalWidth
	}

	headerStyle := lipgloss.NewStyle().
		BorderStyle(lipgloss.Border{Bottom: "─"}).
		BorderForeground(BorderColor).
		Width(width - 4).
		Padding(0, 1)

	footerStyle := lipgloss.NewStyle().
		BorderStyle(lipgloss.Border{Top: "─"}).
		BorderForeground(BorderColor).
		Width(width - 4).
		Padding(0, 1)

	contentStyle := lipgloss.NewStyle().
		Width(width - 4)

	inner := lipgloss.JoinVertical(
		lipgloss.Left,
		headerStyle.Render(BuildHeaderContent(host)),
		contentStyle.Render(content),
		footerStyle.Render(footerText),
	)

	bordered := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(BorderColor).
		Width(width - 2).
		Height(height - 2).
		AlignVertical(lipgloss.Top).
		Render(inner)

	return lipgloss.Place(width, height, lipgloss.Left, lipgloss.Top, bordered)
}

// RenderModal centers modal content over a dimmed backdrop
func RenderModal(modalContent string, width, height int) string {
	return lipgloss.Place(
		width,
		height,
		lipgloss.Center,
		lipgloss.Center,
		modalContent,
		lipgloss.WithWhitespaceChars("░"),
		lipgloss.WithWhitespaceForeground(lipgloss.Color("240")),
	)
}
