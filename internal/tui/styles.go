package tui

import "github.com/charmbracelet/lipgloss"

// Palette holds the colors a theme is built from. Dark is Catppuccin
// Macchiato, light is Catppuccin Latte.
type Palette struct {
	Text     lipgloss.Color
	Subtext  lipgloss.Color
	Surface  lipgloss.Color
	Accent   lipgloss.Color
	Bar      lipgloss.Color
	Critical lipgloss.Color
	Done     lipgloss.Color
	Warning  lipgloss.Color
	Error    lipgloss.Color
}

var (
	Macchiato = Palette{
		Text:     lipgloss.Color("#cad3f5"),
		Subtext:  lipgloss.Color("#a5adcb"),
		Surface:  lipgloss.Color("#363a4f"),
		Accent:   lipgloss.Color("#8aadf4"),
		Bar:      lipgloss.Color("#8bd5ca"),
		Critical: lipgloss.Color("#f5a97f"),
		Done:     lipgloss.Color("#a6da95"),
		Warning:  lipgloss.Color("#eed49f"),
		Error:    lipgloss.Color("#ed8796"),
	}

	Latte = Palette{
		Text:     lipgloss.Color("#4c4f69"),
		Subtext:  lipgloss.Color("#6c6f85"),
		Surface:  lipgloss.Color("#ccd0da"),
		Accent:   lipgloss.Color("#1e66f5"),
		Bar:      lipgloss.Color("#179299"),
		Critical: lipgloss.Color("#fe640b"),
		Done:     lipgloss.Color("#40a02b"),
		Warning:  lipgloss.Color("#df8e1d"),
		Error:    lipgloss.Color("#d20f39"),
	}
)

// Styles contains the lipgloss styles used by the viewer
type Styles struct {
	Palette Palette

	Title    lipgloss.Style
	Status   lipgloss.Style
	Running  lipgloss.Style
	Task     lipgloss.Style
	Selected lipgloss.Style
	Critical lipgloss.Style
	Done     lipgloss.Style
	Subtle   lipgloss.Style
	Warning  lipgloss.Style
	Error    lipgloss.Style
}

// NewStyles builds the viewer styles for the dark or light theme.
func NewStyles(dark bool) Styles {
	p := Latte
	if dark {
		p = Macchiato
	}
	return Styles{
		Palette: p,

		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.Accent).
			MarginBottom(1),
		Status:  lipgloss.NewStyle().Foreground(p.Subtext),
		Running: lipgloss.NewStyle().Bold(true).Foreground(p.Done),
		Task:    lipgloss.NewStyle().Foreground(p.Text),
		Selected: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.Text).
			Background(p.Surface),
		Critical: lipgloss.NewStyle().Foreground(p.Critical),
		Done:     lipgloss.NewStyle().Foreground(p.Done),
		Subtle:   lipgloss.NewStyle().Foreground(p.Subtext),
		Warning:  lipgloss.NewStyle().Foreground(p.Warning),
		Error:    lipgloss.NewStyle().Foreground(p.Error),
	}
}
