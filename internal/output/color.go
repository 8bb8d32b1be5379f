// Package output provides styled terminal rendering helpers for codecoach.
package output

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"github.com/blackwell-systems/codecoach/internal/analysis"
)

// Color constants for consistent styling across the CLI.
var (
	// ColorPrimary is used for headers and emphasis.
	ColorPrimary = lipgloss.Color("#64b5f6")

	// ColorSuccess is used for positive indicators and improvements.
	ColorSuccess = lipgloss.Color("#66bb6a")

	// ColorError is used for errors and regressions.
	ColorError = lipgloss.Color("#ef5350")

	// ColorWarning is used for warnings.
	ColorWarning = lipgloss.Color("#fff59d")

	// ColorInfo is used for suggestions.
	ColorInfo = lipgloss.Color("#4dd0e1")

	// ColorMuted is used for secondary text and borders.
	ColorMuted = lipgloss.Color("#888888")
)

// Styles provides reusable lipgloss styles.
var (
	StyleHeader  lipgloss.Style
	StyleSuccess lipgloss.Style
	StyleError   lipgloss.Style
	StyleWarning lipgloss.Style
	StyleInfo    lipgloss.Style
	StyleMuted   lipgloss.Style
	StyleBold    lipgloss.Style
	StyleLabel   lipgloss.Style
	StyleValue   lipgloss.Style
)

func init() {
	applyStyles(false)
}

func applyStyles(plain bool) {
	if plain {
		p := lipgloss.NewStyle()
		StyleHeader = p
		StyleSuccess = p
		StyleError = p
		StyleWarning = p
		StyleInfo = p
		StyleMuted = p
		StyleBold = p
		StyleLabel = p.Width(24)
		StyleValue = p.Width(12)
		return
	}
	StyleHeader = lipgloss.NewStyle().Foreground(ColorPrimary).Bold(true)
	StyleSuccess = lipgloss.NewStyle().Foreground(ColorSuccess)
	StyleError = lipgloss.NewStyle().Foreground(ColorError).Bold(true)
	StyleWarning = lipgloss.NewStyle().Foreground(ColorWarning)
	StyleInfo = lipgloss.NewStyle().Foreground(ColorInfo)
	StyleMuted = lipgloss.NewStyle().Foreground(ColorMuted)
	StyleBold = lipgloss.NewStyle().Bold(true)
	StyleLabel = lipgloss.NewStyle().Width(24)
	StyleValue = lipgloss.NewStyle().Bold(true).Width(12)
}

// noColor tracks whether color output is disabled.
var noColor bool

// SetNoColor disables or enables color output globally.
func SetNoColor(disabled bool) {
	noColor = disabled
	applyStyles(disabled)
}

// IsNoColor returns whether color output is currently disabled.
func IsNoColor() bool {
	return noColor
}

// AutoColor disables color when f is not a terminal or NO_COLOR is set.
func AutoColor(f *os.File) {
	if os.Getenv("NO_COLOR") != "" || !IsTerminal(f) {
		SetNoColor(true)
	}
}

// IsTerminal reports whether f is attached to a terminal.
func IsTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// SeverityStyle returns the style used for a severity.
func SeverityStyle(sev analysis.Severity) lipgloss.Style {
	switch sev {
	case analysis.SeverityError:
		return StyleError
	case analysis.SeverityWarning:
		return StyleWarning
	default:
		return StyleInfo
	}
}

// SeverityLabel renders a fixed-width severity tag such as "ERROR".
func SeverityLabel(sev analysis.Severity) string {
	var label string
	switch sev {
	case analysis.SeverityError:
		label = "ERROR"
	case analysis.SeverityWarning:
		label = "WARN "
	default:
		label = "INFO "
	}
	return SeverityStyle(sev).Render(label)
}
