package cmd

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Styles used across the CLI commands
var (
	titleStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#14F195")). // Solana green
		Bold(true).
		Padding(1, 0)

	labelStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#CCCCCC")).
		Width(26)

	valueStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FFFFFF"))

	successStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#14F195")).
		Bold(true)

	warningStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#FF6347")). // Tomato red
		Bold(true)
)

func printField(label string, value interface{}) {
	fmt.Println(labelStyle.Render(label) + valueStyle.Render(fmt.Sprint(value)))
}
