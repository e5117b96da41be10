package output

import "github.com/charmbracelet/lipgloss"

// Styles are the lipgloss styles used for text output. Without a terminal
// every style renders plain text.
type Styles struct {
	Header1       lipgloss.Style
	Header2       lipgloss.Style
	Bold          lipgloss.Style
	Muted         lipgloss.Style
	Info          lipgloss.Style
	Success       lipgloss.Style
	Warning       lipgloss.Style
	Error         lipgloss.Style
	Antenna       lipgloss.Style
	StatusSuccess lipgloss.Style
	StatusFailed  lipgloss.Style
}

var (
	colorAccent  = lipgloss.Color("#20B9B4")
	colorMuted   = lipgloss.Color("#6C7A89")
	colorSuccess = lipgloss.Color("#2CD7C7")
	colorWarning = lipgloss.Color("#F4D03F")
	colorError   = lipgloss.Color("#E74C3C")
)

// NewStyles returns colored styles for a terminal and plain ones otherwise.
func NewStyles(color bool) *Styles {
	if !color {
		plain := lipgloss.NewStyle()
		return &Styles{
			Header1:       plain,
			Header2:       plain,
			Bold:          plain,
			Muted:         plain,
			Info:          plain,
			Success:       plain,
			Warning:       plain,
			Error:         plain,
			Antenna:       plain,
			StatusSuccess: plain.SetString("OK"),
			StatusFailed:  plain.SetString("FAILED"),
		}
	}
	return &Styles{
		Header1:       lipgloss.NewStyle().Bold(true).Foreground(colorAccent),
		Header2:       lipgloss.NewStyle().Bold(true),
		Bold:          lipgloss.NewStyle().Bold(true),
		Muted:         lipgloss.NewStyle().Foreground(colorMuted),
		Info:          lipgloss.NewStyle().Foreground(colorAccent),
		Success:       lipgloss.NewStyle().Foreground(colorSuccess),
		Warning:       lipgloss.NewStyle().Foreground(colorWarning),
		Error:         lipgloss.NewStyle().Foreground(colorError),
		Antenna:       lipgloss.NewStyle().Foreground(colorSuccess),
		StatusSuccess: lipgloss.NewStyle().SetString("✓").Foreground(colorSuccess),
		StatusFailed:  lipgloss.NewStyle().SetString("✗").Foreground(colorError),
	}
}
