package status

import "github.com/charmbracelet/lipgloss"

type barStyles struct {
	bracket lipgloss.Style
	fill    lipgloss.Style
	rest    lipgloss.Style
	count   lipgloss.Style
}

type styles struct {
	title   lipgloss.Style
	header  lipgloss.Style
	section lipgloss.Style
	empty   lipgloss.Style
	key     lipgloss.Style
	meta    lipgloss.Style
	counts  lipgloss.Style
	ref     lipgloss.Style
	// failures highlights the failed count once anything failed.
	failures lipgloss.Style
	// phases colors the session phase label shown in the header.
	phases map[string]lipgloss.Style
	bar    barStyles
}

func newStyles() styles {
	return styles{
		title:    lipgloss.NewStyle().Bold(true),
		header:   lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		section:  lipgloss.NewStyle().MarginTop(1),
		empty:    lipgloss.NewStyle().Faint(true),
		key:      lipgloss.NewStyle().Foreground(lipgloss.Color("250")),
		meta:     lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		counts:   lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		ref:      lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		failures: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("203")),
		phases: map[string]lipgloss.Style{
			phaseActive:   lipgloss.NewStyle().Foreground(lipgloss.Color("78")),
			phaseStopped:  lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
			phaseFinished: lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		},
		bar: barStyles{
			bracket: lipgloss.NewStyle().Foreground(lipgloss.Color("244")),
			fill:    lipgloss.NewStyle().Foreground(lipgloss.Color("159")),
			rest:    lipgloss.NewStyle().Foreground(lipgloss.Color("238")),
			count:   lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		},
	}
}

func (s styles) phase(label string) string {
	return s.phases[label].Render(label)
}
