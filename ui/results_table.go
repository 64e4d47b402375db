package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// TaskResult represents one finished task
type TaskResult struct {
	Profile  string
	Scenario string
	Detail   string // e.g. page title, detected IP, order summary
	Duration time.Duration
	Error    string
}

// ResultsTable manages the finished-task display
type ResultsTable struct {
	viewport    viewport.Model
	results     []TaskResult
	width       int
	height      int
	headerStyle lipgloss.Style
	cellStyle   lipgloss.Style
	style       lipgloss.Style
}

// NewResultsTable creates a new results table
func NewResultsTable() *ResultsTable {
	t := &ResultsTable{
		results: make([]TaskResult, 0),
		headerStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")),
		cellStyle: lipgloss.NewStyle().
			PaddingLeft(1).
			PaddingRight(1),
		style: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("35")),
	}
	t.viewport = viewport.New(0, 0)
	return t
}

// SetSize updates the table dimensions
func (t *ResultsTable) SetSize(width, height int) {
	t.width = width
	t.height = height
	t.viewport.Width = width - 4
	t.viewport.Height = height - 4
}

// Update handles UI updates
func (t *ResultsTable) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			t.viewport.LineUp(1)
		case "down", "j":
			t.viewport.LineDown(1)
		case "pgup":
			t.viewport.HalfViewUp()
		case "pgdown":
			t.viewport.HalfViewDown()
		}
	}

	var cmd tea.Cmd
	t.viewport, cmd = t.viewport.Update(msg)
	return cmd
}

// View renders the table
func (t *ResultsTable) View() string {
	if len(t.results) == 0 {
		return t.style.Render(infoStyle.Render("No finished tasks yet"))
	}

	// Calculate column widths
	profileWidth := min(24, t.width/4)
	scenarioWidth := min(14, t.width/6)
	detailWidth := min(40, t.width/3)

	// Build header
	header := t.headerStyle.Render(fmt.Sprintf(
		"%-*s %-*s %-*s %10s %-8s",
		profileWidth, "Profile",
		scenarioWidth, "Scenario",
		detailWidth, "Detail",
		"Duration",
		"Outcome",
	))

	// Build rows
	var rows []string
	for _, result := range t.results {
		outcome := "ok"
		detail := result.Detail
		if result.Error != "" {
			outcome = "failed"
			detail = result.Error
		}

		row := t.cellStyle.Render(fmt.Sprintf(
			"%-*s %-*s %-*s %10s %-8s",
			profileWidth, truncate(result.Profile, profileWidth),
			scenarioWidth, truncate(result.Scenario, scenarioWidth),
			detailWidth, truncate(detail, detailWidth),
			result.Duration.Round(time.Second),
			outcome,
		))

		if result.Error != "" {
			row = errorStyle.Render(row)
		}

		rows = append(rows, row)
	}

	// Combine content
	content := header + "\n" + strings.Join(rows, "\n")
	t.viewport.SetContent(content)

	stats := fmt.Sprintf(
		"\nTotal Tasks: %d | Success: %d | Failed: %d",
		len(t.results),
		t.successCount(),
		t.errorCount(),
	)

	return t.style.Width(t.width).Render(
		t.viewport.View() + "\n" + infoStyle.Render(stats),
	)
}

// AddResult adds a new finished task
func (t *ResultsTable) AddResult(result TaskResult) {
	t.results = append(t.results, result)
	// Scroll to bottom if we're already at the bottom
	if t.viewport.AtBottom() {
		t.viewport.GotoBottom()
	}
}

// Helper functions
func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func truncate(s string, w int) string {
	if len(s) <= w {
		return s
	}
	if w <= 3 {
		return s[:w]
	}
	return s[:w-3] + "..."
}

func (t *ResultsTable) successCount() int {
	count := 0
	for _, r := range t.results {
		if r.Error == "" {
			count++
		}
	}
	return count
}

func (t *ResultsTable) errorCount() int {
	count := 0
	for _, r := range t.results {
		if r.Error != "" {
			count++
		}
	}
	return count
}
