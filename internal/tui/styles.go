package tui

import (
	"github.com/charmbracelet/lipgloss"
)

// Theme represents the color theme for the TUI
type Theme struct {
	Primary   lipgloss.AdaptiveColor
	Secondary lipgloss.AdaptiveColor
	Success   lipgloss.AdaptiveColor
	Warning   lipgloss.AdaptiveColor
	Error     lipgloss.AdaptiveColor
	Info      lipgloss.AdaptiveColor
	Subtle    lipgloss.AdaptiveColor
	Border    lipgloss.AdaptiveColor
	Text      lipgloss.AdaptiveColor
	TextDim   lipgloss.AdaptiveColor
}

// GruvboxTheme creates a new Gruvbox-inspired theme
func GruvboxTheme() Theme {
	return Theme{
		Primary: lipgloss.AdaptiveColor{
			Light: "#b8bb26",
			Dark:  "#b8bb26",
		},
		Secondary: lipgloss.AdaptiveColor{
			Light: "#fe8019",
			Dark:  "#fe8019",
		},
		Success: lipgloss.AdaptiveColor{
			Light: "#98971a",
			Dark:  "#b8bb26",
		},
		Warning: lipgloss.AdaptiveColor{
			Light: "#d79921",
			Dark:  "#fabd2f",
		},
		Error: lipgloss.AdaptiveColor{
			Light: "#cc241d",
			Dark:  "#fb4934",
		},
		Info: lipgloss.AdaptiveColor{
			Light: "#458588",
			Dark:  "#83a598",
		},
		Subtle: lipgloss.AdaptiveColor{
			Light: "#928374",
			Dark:  "#7c6f64",
		},
		Border: lipgloss.AdaptiveColor{
			Light: "#d5c4a1",
			Dark:  "#504945",
		},
		Text: lipgloss.AdaptiveColor{
			Light: "#3c3836",
			Dark:  "#fbf1c7",
		},
		TextDim: lipgloss.AdaptiveColor{
			Light: "#7c6f64",
			Dark:  "#a89984",
		},
	}
}

// DefaultTheme is the default theme for the TUI
var DefaultTheme = GruvboxTheme()

// Styles contains predefined styles for the TUI
type Styles struct {
	Title      lipgloss.Style
	StatusText lipgloss.Style
	Paragraph  lipgloss.Style
	Subtle     lipgloss.Style
	Error      lipgloss.Style
	Success    lipgloss.Style
	Warning    lipgloss.Style
	Info       lipgloss.Style
	Spinner    lipgloss.Style
	StatusBar  lipgloss.Style
	Header     lipgloss.Style
	TabActive  lipgloss.Style
	TabIdle    lipgloss.Style
	Sev1       lipgloss.Style
	Sev2       lipgloss.Style
	Sev3       lipgloss.Style
	SevOther   lipgloss.Style
}

// DefaultStyles returns default styles for the TUI
func DefaultStyles() Styles {
	theme := DefaultTheme

	return Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Text),

		StatusText: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Primary),

		Paragraph: lipgloss.NewStyle().
			Foreground(theme.Text),

		Subtle: lipgloss.NewStyle().
			Foreground(theme.TextDim),

		Error: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Error),

		Success: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Success),

		Warning: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Warning),

		Info: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Info),

		Spinner: lipgloss.NewStyle().
			Foreground(theme.Secondary),

		StatusBar: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Text).
			PaddingLeft(1).
			PaddingRight(1),

		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Text).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(theme.Border).
			PaddingLeft(1).
			PaddingRight(1),

		TabActive: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Primary).
			Underline(true),

		TabIdle: lipgloss.NewStyle().
			Foreground(theme.TextDim),

		Sev1: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Error),

		Sev2: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Secondary),

		Sev3: lipgloss.NewStyle().
			Bold(true).
			Foreground(theme.Warning),

		SevOther: lipgloss.NewStyle().
			Foreground(theme.TextDim),
	}
}

// SeverityStyle maps a severity label onto its style.
func (s Styles) SeverityStyle(severity string) lipgloss.Style {
	switch severity {
	case "sev1":
		return s.Sev1
	case "sev2":
		return s.Sev2
	case "sev3":
		return s.Sev3
	default:
		return s.SevOther
	}
}
