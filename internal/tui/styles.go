package tui

import "github.com/charmbracelet/lipgloss"

// Palette.
var (
	colorPrimary     = lipgloss.Color("#007BFF")
	colorDestructive = lipgloss.Color("#DC3545")
	colorText        = lipgloss.Color("#333333")
	colorMuted       = lipgloss.Color("#777777")
	colorBorder      = lipgloss.Color("#DDDDDD")
)

// Styles groups the lipgloss styles used by the screen.
type Styles struct {
	Header      lipgloss.Style
	Row         lipgloss.Style
	SelectedRow lipgloss.Style
	ItemName    lipgloss.Style
	ItemDetail  lipgloss.Style
	Empty       lipgloss.Style
	Help        lipgloss.Style
	Dialog      lipgloss.Style
	DialogTitle lipgloss.Style
	Label       lipgloss.Style
	Button      lipgloss.Style
	ButtonFocus lipgloss.Style
	Danger      lipgloss.Style
	Alert       lipgloss.Style
}

// DefaultStyles returns the default screen styles.
func DefaultStyles() Styles {
	row := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(colorBorder).
		Padding(0, 1).
		MarginBottom(1)

	button := lipgloss.NewStyle().Padding(0, 2).Foreground(colorText)

	return Styles{
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(colorText).
			MarginBottom(1),
		Row:         row,
		SelectedRow: row.BorderForeground(colorPrimary),
		ItemName:    lipgloss.NewStyle().Bold(true).Foreground(colorText),
		ItemDetail:  lipgloss.NewStyle().Foreground(colorMuted),
		Empty:       lipgloss.NewStyle().Foreground(colorMuted).Italic(true),
		Help:        lipgloss.NewStyle().Foreground(colorMuted).MarginTop(1),
		Dialog: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorPrimary).
			Padding(1, 3),
		DialogTitle: lipgloss.NewStyle().Bold(true).Foreground(colorText).MarginBottom(1),
		Label:       lipgloss.NewStyle().Bold(true).Foreground(colorMuted),
		Button:      button,
		ButtonFocus: button.Background(colorPrimary).Foreground(lipgloss.Color("#FFFFFF")),
		Danger:      button.Background(colorDestructive).Foreground(lipgloss.Color("#FFFFFF")),
		Alert: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorDestructive).
			Padding(1, 3),
	}
}
