package ui

import "github.com/charmbracelet/lipgloss"

var (
	accentColor = lipgloss.Color("#2DA44E")
	errorColor  = lipgloss.Color("#CF222E")
	scoreColor  = lipgloss.Color("#F778BA")
	sourceColor = lipgloss.Color("#FFA657")
	dimColor    = lipgloss.Color("#6E7681")

	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accentColor).
			BorderStyle(lipgloss.DoubleBorder()).
			BorderForeground(accentColor).
			BorderTop(true).
			BorderBottom(true).
			Padding(0, 1)

	ScoreStyle   = lipgloss.NewStyle().Foreground(scoreColor).Bold(true)
	SourceStyle  = lipgloss.NewStyle().Foreground(sourceColor)
	SignalStyle  = lipgloss.NewStyle().PaddingLeft(2)
	SuccessStyle = lipgloss.NewStyle().Foreground(accentColor).Bold(true)
	ErrorStyle   = lipgloss.NewStyle().Foreground(errorColor).Bold(true)
	DimStyle     = lipgloss.NewStyle().Foreground(dimColor)
)
