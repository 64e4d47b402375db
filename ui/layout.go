package ui

import (
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Base component interface
type Component interface {
	Init() tea.Cmd
	Update(tea.Msg) (Component, tea.Cmd)
	View() string
	SetSize(width, height int)
}

// Define common styles
var (
	borderStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("63"))

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			PaddingLeft(1)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("110"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))
)

// ProfilePanel wraps the profile list in a bordered pane
type ProfilePanel struct {
	style  lipgloss.Style
	width  int
	height int
	list   *ProfileList
}

func NewProfilePanel() *ProfilePanel {
	return &ProfilePanel{
		style: borderStyle.Copy().BorderForeground(lipgloss.Color("99")),
		list:  NewProfileList(),
	}
}

func (p *ProfilePanel) Init() tea.Cmd {
	return nil
}

func (p *ProfilePanel) Update(msg tea.Msg) (Component, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k", "down", "j":
			cmd = p.list.Update(msg)
			return p, cmd
		}
		// Other keys are app-level shortcuts, not list navigation
		return p, nil
	}

	cmd = p.list.Update(msg)
	return p, cmd
}

func (p *ProfilePanel) View() string {
	return p.style.Width(p.width).Height(p.height).Render(p.list.View())
}

func (p *ProfilePanel) SetSize(width, height int) {
	p.width = width
	p.height = height
	p.list.SetSize(width-4, height-4)
}

// TaskPanel wraps the live-task grid
type TaskPanel struct {
	viewport viewport.Model
	style    lipgloss.Style
	title    string
	width    int
	height   int
	grid     *TaskGrid
}

func NewTaskPanel() *TaskPanel {
	t := &TaskPanel{
		title: "Running Tasks",
		style: borderStyle.Copy().BorderForeground(lipgloss.Color("63")),
		grid:  NewTaskGrid(),
	}
	t.viewport = viewport.New(0, 0)
	return t
}

func (t *TaskPanel) Init() tea.Cmd {
	return nil
}

func (t *TaskPanel) Update(msg tea.Msg) (Component, tea.Cmd) {
	var cmd tea.Cmd
	t.viewport, cmd = t.viewport.Update(msg)
	gridCmd := t.grid.Update(msg)
	return t, tea.Batch(cmd, gridCmd)
}

func (t *TaskPanel) View() string {
	content := titleStyle.Render(t.title) + "\n\n"
	content += t.grid.View()
	t.viewport.SetContent(content)
	return t.style.Width(t.width).Height(t.height).Render(t.viewport.View())
}

func (t *TaskPanel) SetSize(width, height int) {
	t.width = width
	t.height = height
	t.viewport.Width = width - 4 // Account for borders
	t.viewport.Height = height - 4
	t.grid.SetSize(width-4, height-6)
}

// ResultsPanel wraps the finished-task table
type ResultsPanel struct {
	style  lipgloss.Style
	width  int
	height int
	table  *ResultsTable
}

func NewResultsPanel() *ResultsPanel {
	return &ResultsPanel{
		style: borderStyle.Copy().BorderForeground(lipgloss.Color("35")),
		table: NewResultsTable(),
	}
}

func (r *ResultsPanel) Init() tea.Cmd {
	return nil
}

func (r *ResultsPanel) Update(msg tea.Msg) (Component, tea.Cmd) {
	cmd := r.table.Update(msg)
	return r, cmd
}

func (r *ResultsPanel) View() string {
	return r.style.Width(r.width).Height(r.height).Render(r.table.View())
}

func (r *ResultsPanel) SetSize(width, height int) {
	r.width = width
	r.height = height
	r.table.SetSize(width-4, height-4)
}

func (r *ResultsPanel) AddResult(result TaskResult) {
	r.table.AddResult(result)
}

// LogPanel wraps the log console
type LogPanel struct {
	style   lipgloss.Style
	width   int
	height  int
	console *LogConsole
}

func NewLogPanel() *LogPanel {
	return &LogPanel{
		style:   borderStyle.Copy().BorderForeground(lipgloss.Color("196")),
		console: NewLogConsole(),
	}
}

func (l *LogPanel) Init() tea.Cmd {
	return nil
}

func (l *LogPanel) Update(msg tea.Msg) (Component, tea.Cmd) {
	cmd := l.console.Update(msg)
	return l, cmd
}

func (l *LogPanel) View() string {
	return l.style.Width(l.width).Height(l.height).Render(l.console.View())
}

func (l *LogPanel) SetSize(width, height int) {
	l.width = width
	l.height = height
	l.console.SetSize(width-4, height-4)
}

// Layout manager
type Layout struct {
	profiles Component
	tasks    Component
	results  Component
	logs     Component
	stats    *StatsPanel // Use concrete type for direct access
	width    int
	height   int
}

// NewLayout creates and initializes a new layout with all panels
func NewLayout() *Layout {
	return &Layout{
		profiles: NewProfilePanel(),
		tasks:    NewTaskPanel(),
		results:  NewResultsPanel(),
		logs:     NewLogPanel(),
		stats:    NewStatsPanel(),
	}
}

// SetSize adjusts the layout and all components to the given dimensions
func (l *Layout) SetSize(width, height int) {
	l.width = width
	l.height = height

	// Calculate panel dimensions
	halfWidth := width / 2
	halfHeight := height / 2

	// Tasks and Stats share the right side
	taskHeight := int(float64(halfHeight) * 0.6)
	statsHeight := halfHeight - taskHeight

	l.profiles.SetSize(halfWidth, halfHeight)
	l.tasks.SetSize(halfWidth, taskHeight)
	l.stats.SetSize(halfWidth, statsHeight)
	l.results.SetSize(width, halfHeight/2)
	l.logs.SetSize(width, height-halfHeight-halfHeight/2)
}

// Init initializes all panels
func (l *Layout) Init() tea.Cmd {
	return tea.Batch(
		l.profiles.Init(),
		l.tasks.Init(),
		l.results.Init(),
		l.logs.Init(),
	)
}

// Update processes messages and updates components
func (l *Layout) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		l.SetSize(msg.Width, msg.Height)
	}

	var cmd tea.Cmd
	l.profiles, cmd = l.profiles.Update(msg)
	cmds = append(cmds, cmd)

	l.tasks, cmd = l.tasks.Update(msg)
	cmds = append(cmds, cmd)

	l.results, cmd = l.results.Update(msg)
	cmds = append(cmds, cmd)

	l.logs, cmd = l.logs.Update(msg)
	cmds = append(cmds, cmd)

	// Update stats panel
	statsCmd := l.stats.Update(msg)
	cmds = append(cmds, statsCmd)

	return l, tea.Batch(cmds...)
}

// View renders the complete layout
func (l *Layout) View() string {
	// Right side: tasks and stats stacked
	rightSide := lipgloss.JoinVertical(
		lipgloss.Left,
		l.tasks.View(),
		l.stats.View(),
	)

	// Top row: profiles and right side
	topRow := lipgloss.JoinHorizontal(
		lipgloss.Top,
		l.profiles.View(),
		rightSide,
	)

	// Stack all components
	return lipgloss.JoinVertical(
		lipgloss.Left,
		topRow,
		l.results.View(),
		l.logs.View(),
	)
}

// SetProfiles replaces the profile list contents
func (l *Layout) SetProfiles(profiles []ProfileItem) {
	if pp, ok := l.profiles.(*ProfilePanel); ok {
		pp.list.SetProfiles(profiles)
	}
}

// SelectedProfile returns the profile under the cursor, or ""
func (l *Layout) SelectedProfile() string {
	if pp, ok := l.profiles.(*ProfilePanel); ok {
		return pp.list.Selected()
	}
	return ""
}

// SetProfileStatus updates a profile's status badge
func (l *Layout) SetProfileStatus(name, status string) {
	if pp, ok := l.profiles.(*ProfilePanel); ok {
		pp.list.SetStatus(name, status)
	}
}

// StartTask adds a task spinner; the returned command drives its animation
func (l *Layout) StartTask(profile, scenario string) tea.Cmd {
	if tp, ok := l.tasks.(*TaskPanel); ok {
		return tp.grid.StartTask(profile, scenario)
	}
	return nil
}

// SetTaskStatus updates a live task's status line
func (l *Layout) SetTaskStatus(profile, status string) {
	if tp, ok := l.tasks.(*TaskPanel); ok {
		tp.grid.SetStatus(profile, status)
	}
}

// FinishTask removes a task spinner
func (l *Layout) FinishTask(profile string) {
	if tp, ok := l.tasks.(*TaskPanel); ok {
		tp.grid.FinishTask(profile)
	}
}

// ActiveTasks returns the number of live task spinners
func (l *Layout) ActiveTasks() int {
	if tp, ok := l.tasks.(*TaskPanel); ok {
		return tp.grid.ActiveCount()
	}
	return 0
}

// AddResult adds a finished task to the results panel
func (l *Layout) AddResult(result TaskResult) {
	if rp, ok := l.results.(*ResultsPanel); ok {
		rp.AddResult(result)
	}
}

// AddError adds an error message to the log console
func (l *Layout) AddError(profile, msg string) {
	if lp, ok := l.logs.(*LogPanel); ok {
		lp.console.AddEntry(LevelError, profile, msg)
	}
}

// AddWarning adds a warning message to the log console
func (l *Layout) AddWarning(profile, msg string) {
	if lp, ok := l.logs.(*LogPanel); ok {
		lp.console.AddEntry(LevelWarning, profile, msg)
	}
}

// AddInfo adds an info message to the log console
func (l *Layout) AddInfo(profile, msg string) {
	if lp, ok := l.logs.(*LogPanel); ok {
		lp.console.AddEntry(LevelInfo, profile, msg)
	}
}

// UpdateStats refreshes the statistics panel
func (l *Layout) UpdateStats(stats SessionStats) {
	l.stats.UpdateStats(stats)
}
