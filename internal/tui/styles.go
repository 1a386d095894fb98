package tui

import "github.com/charmbracelet/lipgloss"

// Colors - using a professional dark theme
var (
	primaryColor   = lipgloss.Color("#7C3AED") // Purple
	secondaryColor = lipgloss.Color("#10B981") // Green
	accentColor    = lipgloss.Color("#F59E0B") // Amber
	errorColor     = lipgloss.Color("#EF4444") // Red
	mutedColor     = lipgloss.Color("#6B7280") // Gray
	textColor      = lipgloss.Color("#F3F4F6") // Light gray
	bgColor        = lipgloss.Color("#1F2937") // Dark gray
)

// List item styles
var (
	selectedItemStyle = lipgloss.NewStyle().
				Foreground(primaryColor).
				Bold(true)

	normalItemStyle = lipgloss.NewStyle().
			Foreground(textColor)

	dimItemStyle = lipgloss.NewStyle().
			Foreground(mutedColor)
)

// Grid styles
var (
	gridHeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(textColor)

	gridCellStyle = lipgloss.NewStyle().
			Foreground(textColor)

	gridNullStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Italic(true)

	gridCursorStyle = lipgloss.NewStyle().
			Background(primaryColor).
			Foreground(lipgloss.Color("#FFF")).
			Bold(true)

	gridSelectedStyle = lipgloss.NewStyle().
				Background(lipgloss.Color("#374151")).
				Foreground(textColor)
)

// Status bar styles
var (
	statusBarStyle = lipgloss.NewStyle().
			Background(bgColor).
			Foreground(textColor).
			Padding(0, 1)

	statusKeyStyle = lipgloss.NewStyle().
			Foreground(accentColor).
			Bold(true)
)

// Connection kind badges
var (
	sqliteBadge = lipgloss.NewStyle().
			Background(secondaryColor).
			Foreground(lipgloss.Color("#FFF")).
			Padding(0, 1)

	mysqlBadge = lipgloss.NewStyle().
			Background(accentColor).
			Foreground(lipgloss.Color("#000")).
			Padding(0, 1)

	postgresBadge = lipgloss.NewStyle().
			Background(primaryColor).
			Foreground(lipgloss.Color("#FFF")).
			Padding(0, 1)
)

// Input bar styles
var (
	inputPromptStyle = lipgloss.NewStyle().
				Foreground(primaryColor).
				Bold(true)
)

// Help styles
var (
	helpKeyStyle = lipgloss.NewStyle().
			Foreground(accentColor).
			Bold(true)

	helpDescStyle = lipgloss.NewStyle().
			Foreground(mutedColor)
)

// Error and status styles
var (
	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor).
			Bold(true)

	errorOverlayStyle = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(errorColor).
				Padding(1, 2)

	successStyle = lipgloss.NewStyle().
			Foreground(secondaryColor)
)

// Border title styles
var (
	borderTitleStyle = lipgloss.NewStyle().
				Foreground(mutedColor).
				Bold(true)

	focusedBorderTitleStyle = lipgloss.NewStyle().
				Foreground(primaryColor).
				Bold(true)
)

// Modal style
var modalStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(primaryColor).
	Padding(1, 2)

// Title style
var titleStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(primaryColor)

func kindBadge(kind string) string {
	switch kind {
	case "mysql":
		return mysqlBadge.Render("mysql")
	case "postgres":
		return postgresBadge.Render("pg")
	default:
		return sqliteBadge.Render("sqlite")
	}
}
