// Package cli provides styled terminal output using lipgloss.
package cli

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	// PrimaryColor is the main theme color (envelope green).
	PrimaryColor = lipgloss.Color("#2EC27E")
	// SuccessColor indicates successful operations.
	SuccessColor = lipgloss.Color("#2EC27E") // Green
	// WarningColor indicates warnings or caution messages.
	WarningColor = lipgloss.Color("#F5C211") // Amber
	// ErrorColor indicates errors or failure messages.
	ErrorColor = lipgloss.Color("#E01B24") // Red
	// NegativeColor is used for amounts below zero.
	NegativeColor = lipgloss.Color("#E01B24")
	// PositiveColor is used for amounts at or above zero.
	PositiveColor = lipgloss.Color("#2EC27E")
	// SubtleColor indicates less prominent UI elements.
	SubtleColor = lipgloss.Color("#666666") // Gray

	// TitleStyle is used for section titles.
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(PrimaryColor).
			MarginBottom(1)

	// SuccessStyle formats success messages.
	SuccessStyle = lipgloss.NewStyle().
			Foreground(SuccessColor)

	// WarningStyle formats warning messages.
	WarningStyle = lipgloss.NewStyle().
			Foreground(WarningColor)

	// ErrorStyle formats error messages.
	ErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor)

	// SubtleStyle formats less prominent text.
	SubtleStyle = lipgloss.NewStyle().
			Foreground(SubtleColor)

	// BoldStyle makes text bold.
	BoldStyle = lipgloss.NewStyle().
			Bold(true)

	// NegativeStyle formats negative amounts.
	NegativeStyle = lipgloss.NewStyle().
			Foreground(NegativeColor)

	// PositiveStyle formats non-negative amounts.
	PositiveStyle = lipgloss.NewStyle().
			Foreground(PositiveColor)

	// TableHeaderStyle is used for table headers.
	TableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				BorderStyle(lipgloss.NormalBorder()).
				BorderBottom(true).
				BorderForeground(lipgloss.Color("#333"))

	// TableCellStyle formats table cells with appropriate padding.
	TableCellStyle = lipgloss.NewStyle().
			PaddingRight(2)

	// TreeBranchStyle formats the indent guides of account and envelope
	// tree listings.
	TreeBranchStyle = lipgloss.NewStyle().
			Foreground(SubtleColor)
)

// Icons.
const (
	SuccessIcon  = "✓"
	ErrorIcon    = "✗"
	WarningIcon  = "⚠️"
	EnvelopeIcon = "✉️"
	BankIcon     = "🏦"
	ArchivedIcon = "🗃️"
)

// FormatSuccess formats a success message with icon.
func FormatSuccess(message string) string {
	return SuccessStyle.Render(SuccessIcon + " " + message)
}

// FormatError formats an error message with icon.
func FormatError(message string) string {
	return ErrorStyle.Render(ErrorIcon + " " + message)
}

// FormatWarning formats a warning message with icon.
func FormatWarning(message string) string {
	return WarningStyle.Render(WarningIcon + " " + message)
}

// FormatTitle formats a section title.
func FormatTitle(title string) string {
	return TitleStyle.Render(title)
}

// FormatAmount colors a formatted monetary value by its sign.
func FormatAmount(formatted string, negative bool) string {
	if negative {
		return NegativeStyle.Render(formatted)
	}
	return PositiveStyle.Render(formatted)
}
