package tui

import "github.com/charmbracelet/lipgloss"

const (
	Title       = "Your personal AI Chatbot"
	Placeholder = "Type your message here..."
	BusyText    = "Thinking..."

	labelUser      = "**You:**"
	labelAssistant = "**Assistant:**"
)

type styles struct {
	title  lipgloss.Style
	hint   lipgloss.Style
	status lipgloss.Style
	notice lipgloss.Style
	frame  lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		title:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).MarginBottom(1),
		hint:   lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		status: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		notice: lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		frame:  lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("8")).Padding(0, 1),
	}
}
