package tui

import "github.com/charmbracelet/lipgloss"

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(10)
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))

	activeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	inactiveStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	phaseStyles = map[string]lipgloss.Style{
		"inhale": lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("39")),
		"exhale": lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214")),
		"hold":   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("141")),
		"idle":   lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	}

	gearStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62"))

	bloomStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("219"))

	frameStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(0, 1)
)
