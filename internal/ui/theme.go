package ui

import (
	"image/color"

	"charm.land/lipgloss/v2"
)

type Theme struct {
	Name         string
	Header       lipgloss.Style
	Status       lipgloss.Style
	PanelTitle   lipgloss.Style
	PanelBorder  lipgloss.Style
	PanelBody    lipgloss.Style
	Overlay      lipgloss.Style
	OverlayTitle lipgloss.Style
	Accent       lipgloss.Style
	Pass         lipgloss.Style
	Fail         lipgloss.Style
	Pending      lipgloss.Style
	Muted        lipgloss.Style
	Info         lipgloss.Style
	Current      lipgloss.Style

	BarFrom color.Color
	BarTo   color.Color
	// Markdown is the glamour standard style for lesson content.
	Markdown string
}

func DefaultTheme() Theme {
	return ThemeFor("light")
}

func ThemeFor(name string) Theme {
	if name == "dark" {
		return darkTheme()
	}
	return lightTheme()
}

func darkTheme() Theme {
	amber := lipgloss.Color("#FFC857")
	mint := lipgloss.Color("#67F0A8")
	brick := lipgloss.Color("#FF6F91")
	ink := lipgloss.Color("#0E1420")
	slate := lipgloss.Color("#1B2740")
	powder := lipgloss.Color("#EAF2FF")
	blue := lipgloss.Color("#5EEBFF")
	border := lipgloss.Color("#4B5F8A")

	return Theme{
		Name:        "dark",
		Header:      lipgloss.NewStyle().Background(ink).Foreground(powder).Padding(0, 1),
		Status:      lipgloss.NewStyle().Background(slate).Foreground(powder).Padding(0, 1),
		PanelTitle:  lipgloss.NewStyle().Foreground(blue).Bold(true),
		PanelBorder: lipgloss.NewStyle().Foreground(border),
		PanelBody:   lipgloss.NewStyle().Foreground(powder),
		Overlay: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(blue).
			Background(ink).
			Foreground(powder).
			Padding(1, 2),
		OverlayTitle: lipgloss.NewStyle().Foreground(blue).Bold(true),
		Accent:       lipgloss.NewStyle().Foreground(blue).Bold(true),
		Pass:         lipgloss.NewStyle().Foreground(mint).Bold(true),
		Fail:         lipgloss.NewStyle().Foreground(brick).Bold(true),
		Pending:      lipgloss.NewStyle().Foreground(amber),
		Muted:        lipgloss.NewStyle().Foreground(lipgloss.Color("#9CAAC6")),
		Info:         lipgloss.NewStyle().Foreground(blue),
		Current:      lipgloss.NewStyle().Foreground(amber).Bold(true),
		BarFrom:      lipgloss.Color("#5EC2FF"),
		BarTo:        lipgloss.Color("#79E6A6"),
		Markdown:     "dark",
	}
}

// lightTheme follows the original player's blue-on-white palette.
func lightTheme() Theme {
	blue := lipgloss.Color("#2563EB")
	green := lipgloss.Color("#16A34A")
	red := lipgloss.Color("#DC2626")
	amber := lipgloss.Color("#B45309")
	paper := lipgloss.Color("#F8FAFC")
	ink := lipgloss.Color("#1F2937")
	gray := lipgloss.Color("#D1D5DB")

	return Theme{
		Name:        "light",
		Header:      lipgloss.NewStyle().Background(blue).Foreground(paper).Padding(0, 1),
		Status:      lipgloss.NewStyle().Background(gray).Foreground(ink).Padding(0, 1),
		PanelTitle:  lipgloss.NewStyle().Foreground(blue).Bold(true),
		PanelBorder: lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF")),
		PanelBody:   lipgloss.NewStyle().Foreground(ink),
		Overlay: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(blue).
			Background(paper).
			Foreground(ink).
			Padding(1, 2),
		OverlayTitle: lipgloss.NewStyle().Foreground(blue).Bold(true),
		Accent:       lipgloss.NewStyle().Foreground(blue).Bold(true),
		Pass:         lipgloss.NewStyle().Foreground(green).Bold(true),
		Fail:         lipgloss.NewStyle().Foreground(red).Bold(true),
		Pending:      lipgloss.NewStyle().Foreground(amber),
		Muted:        lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280")),
		Info:         lipgloss.NewStyle().Foreground(blue),
		Current:      lipgloss.NewStyle().Foreground(blue).Bold(true),
		BarFrom:      lipgloss.Color("#3B82F6"),
		BarTo:        lipgloss.Color("#22C55E"),
		Markdown:     "light",
	}
}
