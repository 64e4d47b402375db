package ui

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// taskSpinner represents a single live task's spinner
type taskSpinner struct {
	spinner  spinner.Model
	profile  string
	scenario string
	status   string
}

// TaskGrid shows every live task with a spinner, keyed by profile name
type TaskGrid struct {
	tasks  map[string]*taskSpinner
	style  lipgloss.Style
	width  int
	height int
}

// NewTaskGrid creates an empty task grid
func NewTaskGrid() *TaskGrid {
	return &TaskGrid{
		tasks: make(map[string]*taskSpinner),
		style: lipgloss.NewStyle().Border(lipgloss.RoundedBorder()),
	}
}

// StartTask adds a spinner for a newly started task
func (g *TaskGrid) StartTask(profile, scenario string) tea.Cmd {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	g.tasks[profile] = &taskSpinner{
		spinner:  s,
		profile:  profile,
		scenario: scenario,
		status:   "starting",
	}
	return s.Tick
}

// SetStatus updates the status line of a live task
func (g *TaskGrid) SetStatus(profile, status string) {
	if t, ok := g.tasks[profile]; ok {
		t.status = status
	}
}

// FinishTask removes a task's spinner
func (g *TaskGrid) FinishTask(profile string) {
	delete(g.tasks, profile)
}

// Update advances the spinner animations
func (g *TaskGrid) Update(msg tea.Msg) tea.Cmd {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		g.width = msg.Width
		g.height = msg.Height
	case spinner.TickMsg:
		for _, t := range g.tasks {
			var cmd tea.Cmd
			t.spinner, cmd = t.spinner.Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	return tea.Batch(cmds...)
}

// View renders the task grid
func (g *TaskGrid) View() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Tasks (%d active)\n\n", len(g.tasks)))

	if len(g.tasks) == 0 {
		sb.WriteString(infoStyle.Render("No tasks running"))
		return g.style.Width(g.width).Render(sb.String())
	}

	// Stable ordering so rows do not jump between frames
	profiles := make([]string, 0, len(g.tasks))
	for name := range g.tasks {
		profiles = append(profiles, name)
	}
	sort.Strings(profiles)

	for _, name := range profiles {
		t := g.tasks[name]
		line := fmt.Sprintf("%s %s - %s: %s\n",
			t.spinner.View(), t.profile, t.scenario, truncate(t.status, 40))
		sb.WriteString(line)
	}

	return g.style.Width(g.width).Render(sb.String())
}

// ActiveCount returns the number of live tasks
func (g *TaskGrid) ActiveCount() int {
	return len(g.tasks)
}

// SetSize updates the grid dimensions
func (g *TaskGrid) SetSize(width, height int) {
	g.width = width
	g.height = height
}
