package ui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// SessionStats holds the running session's counters
type SessionStats struct {
	Profiles      int
	ActiveTasks   int
	DoneTasks     int
	FailedTasks   int
	OpenBrowsers  int
	TOTPRemaining int // seconds left in the current 2FA window
	StartTime     time.Time
}

// StatsPanel displays session statistics
type StatsPanel struct {
	stats      SessionStats
	width      int
	height     int
	style      lipgloss.Style
	labelStyle lipgloss.Style
	valueStyle lipgloss.Style
}

func NewStatsPanel() *StatsPanel {
	return &StatsPanel{
		style: borderStyle.Copy().
			BorderForeground(lipgloss.Color("99")),
		labelStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Bold(true),
		valueStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")),
	}
}

func (s *StatsPanel) SetSize(width, height int) {
	s.width = width
	s.height = height
}

func (s *StatsPanel) Update(msg tea.Msg) tea.Cmd {
	return nil
}

func (s *StatsPanel) View() string {
	finished := s.stats.DoneTasks + s.stats.FailedTasks
	successRate := "-"
	if finished > 0 {
		successRate = fmt.Sprintf("%.0f%% (%d/%d)",
			float64(s.stats.DoneTasks)/float64(finished)*100,
			s.stats.DoneTasks, finished)
	}

	stats := []struct {
		label string
		value string
	}{
		{"Profiles", fmt.Sprintf("%d", s.stats.Profiles)},
		{"Active Tasks", fmt.Sprintf("%d", s.stats.ActiveTasks)},
		{"Open Browsers", fmt.Sprintf("%d", s.stats.OpenBrowsers)},
		{"Success Rate", successRate},
		{"2FA Window", fmt.Sprintf("%ds left", s.stats.TOTPRemaining)},
		{"Elapsed Time", s.formatElapsedTime()},
	}

	var content strings.Builder
	content.WriteString(titleStyle.Render("Session") + "\n\n")

	columnWidth := (s.width - 8) / 2 // Account for borders and padding
	for _, stat := range stats {
		line := fmt.Sprintf("%-*s %s\n",
			columnWidth,
			s.labelStyle.Render(stat.label+":"),
			s.valueStyle.Render(stat.value),
		)
		content.WriteString(line)
	}

	return s.style.Width(s.width).Height(s.height).Render(content.String())
}

// UpdateStats updates the statistics
func (s *StatsPanel) UpdateStats(stats SessionStats) {
	s.stats = stats
}

// Helper methods
func (s *StatsPanel) formatElapsedTime() string {
	if s.stats.StartTime.IsZero() {
		return "00:00:00"
	}
	elapsed := time.Since(s.stats.StartTime)
	return fmt.Sprintf("%02d:%02d:%02d",
		int(elapsed.Hours()),
		int(elapsed.Minutes())%60,
		int(elapsed.Seconds())%60,
	)
}
