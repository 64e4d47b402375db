package main

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"

	"localhost-23231/antik/internal/scenario"
	"localhost-23231/antik/internal/session"
	"localhost-23231/antik/internal/task"
	"localhost-23231/antik/internal/totp"
	"localhost-23231/antik/ui"
)

type TuiCmd struct {
	URL string `help:"Page opened by the 'o' shortcut" default:"https://www.mexc.com"`
}

func (c *TuiCmd) Run(e *appEnv) error {
	model := newModel(e, c.URL)
	p := tea.NewProgram(model, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("dashboard failed: %w", err)
	}
	return nil
}

// trackedTask pairs a live task with its display metadata.
type trackedTask struct {
	task     *task.Task
	profile  string
	scenario string
	start    time.Time
}

// Message types
type taskEventMsg struct {
	tracked *trackedTask
	event   task.Event
}
type taskFinishedMsg struct {
	tracked *trackedTask
}
type statsTickMsg struct{}

// Function to return stats tick message
func tickStats() tea.Cmd {
	return tea.Every(time.Second, func(t time.Time) tea.Msg {
		return statsTickMsg{}
	})
}

// waitForEvent pumps one task event into the program; it reissues itself
// until the task's stream closes.
func waitForEvent(tr *trackedTask) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-tr.task.Events()
		if !ok {
			return taskFinishedMsg{tracked: tr}
		}
		return taskEventMsg{tracked: tr, event: ev}
	}
}

// Base model structure
type Model struct {
	env     *appEnv
	openURL string
	layout  *ui.Layout
	ready   bool
	err     error

	// TUI state fields
	openBrowsers map[string]*task.Task // finished tasks holding a browser
	doneCount    int
	failCount    int
	startTime    time.Time
	quitting     bool
}

func newModel(e *appEnv, openURL string) Model {
	m := Model{
		env:          e,
		openURL:      openURL,
		layout:       ui.NewLayout(),
		ready:        true,
		openBrowsers: make(map[string]*task.Task),
		startTime:    time.Now(),
	}
	m.refreshProfiles()
	return m
}

// Init is the first function called. It returns an optional initial command.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.layout.Init(),
		tickStats(),
	)
}

// refreshProfiles rebuilds the profile list from the store
func (m *Model) refreshProfiles() {
	names := m.env.store.List()
	items := make([]ui.ProfileItem, 0, len(names))
	for _, name := range names {
		rec, ok := m.env.store.Get(name)
		if !ok {
			continue
		}
		status := "idle"
		if _, open := m.openBrowsers[name]; open {
			status = "browser open"
		} else if m.env.runner.Busy(name) {
			status = "running"
		}
		code := ""
		if rec.TwoFASecret != "" {
			if c, err := totp.Code(rec.TwoFASecret); err == nil {
				code = c
			}
		}
		items = append(items, ui.ProfileItem{
			Name:     name,
			Email:    rec.Email,
			Proxy:    session.DisplayProxy(session.NormalizeProxy(rec.Proxy)),
			TOTPCode: code,
			TOTPLeft: totp.Remaining(),
			Status:   status,
		})
	}
	m.layout.SetProfiles(items)
}

// updateStats refreshes the statistics panel
func (m *Model) updateStats() {
	m.layout.UpdateStats(ui.SessionStats{
		Profiles:      m.env.store.Len(),
		ActiveTasks:   len(m.env.runner.Active()) - len(m.openBrowsers),
		DoneTasks:     m.doneCount,
		FailedTasks:   m.failCount,
		OpenBrowsers:  len(m.openBrowsers),
		TOTPRemaining: totp.Remaining(),
		StartTime:     m.startTime,
	})
}

// startScenario launches a scenario against the selected profile
func (m *Model) startScenario(name string, sc task.Scenario) tea.Cmd {
	t, err := m.env.runner.Start(name, sc, m.env.headless)
	if err != nil {
		m.layout.AddError(name, err.Error())
		return nil
	}

	tr := &trackedTask{
		task:     t,
		profile:  name,
		scenario: sc.Name,
		start:    time.Now(),
	}
	m.layout.AddInfo(name, fmt.Sprintf("Started: %s", sc.Name))
	m.layout.SetProfileStatus(name, "running")
	spinCmd := m.layout.StartTask(name, sc.Name)
	return tea.Batch(spinCmd, waitForEvent(tr))
}

// loginSelected builds the login scenario from the stored record
func (m *Model) loginSelected(name string) tea.Cmd {
	rec, ok := m.env.store.Get(name)
	if !ok {
		return nil
	}
	if rec.Email == "" || rec.Password == "" {
		m.layout.AddWarning(name, "No stored credentials, cannot log in")
		return nil
	}
	return m.startScenario(name, scenario.Login(scenario.Credentials{
		Email:       rec.Email,
		Password:    rec.Password,
		TwoFASecret: rec.TwoFASecret,
	}))
}

// checkProxySelected builds the proxy-check scenario from the stored record
func (m *Model) checkProxySelected(name string) tea.Cmd {
	rec, ok := m.env.store.Get(name)
	if !ok {
		return nil
	}
	expected := session.ExtractIP(session.NormalizeProxy(rec.Proxy))
	if expected == "" {
		m.layout.AddWarning(name, "No proxy with a literal IP to verify")
		return nil
	}
	return m.startScenario(name, scenario.CheckProxy(expected))
}

// resultDetail picks the most useful payload field for the results table
func resultDetail(sc string, payload map[string]any) string {
	for _, key := range []string{"detected_ip", "title", "order_type", "email", "url"} {
		if v, ok := payload[key]; ok {
			return fmt.Sprintf("%v", v)
		}
	}
	return sc
}

// Update handles all the updates and state transitions
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// Create a slice to track all commands
	var cmds []tea.Cmd

	// Process message based on type
	switch msg := msg.(type) {
	case statsTickMsg:
		// Second-resolution refresh keeps the 2FA codes and countdown live
		m.refreshProfiles()
		m.updateStats()
		cmds = append(cmds, tickStats())

	case tea.WindowSizeMsg:
		// Handle window size
		m.layout.SetSize(msg.Width, msg.Height)

	case tea.KeyMsg:
		// Handle keyboard input
		switch msg.String() {
		case "ctrl+c", "q":
			if m.quitting {
				return m, tea.Quit
			}
			m.quitting = true
			m.layout.AddInfo("", "Shutting down, closing browsers...")
			runner := m.env.runner
			return m, func() tea.Msg {
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := runner.Shutdown(ctx); err != nil {
					log.Error("Shutdown incomplete", "error", err)
				}
				return tea.Quit()
			}

		case "o":
			if name := m.layout.SelectedProfile(); name != "" {
				cmds = append(cmds, m.startScenario(name, scenario.ManualOpen(m.openURL)))
			}

		case "l":
			if name := m.layout.SelectedProfile(); name != "" {
				cmds = append(cmds, m.loginSelected(name))
			}

		case "p":
			if name := m.layout.SelectedProfile(); name != "" {
				cmds = append(cmds, m.checkProxySelected(name))
			}

		case "x":
			if name := m.layout.SelectedProfile(); name != "" {
				m.env.runner.Cancel(name)
				if _, open := m.openBrowsers[name]; open {
					delete(m.openBrowsers, name)
					m.layout.AddInfo(name, "Browser closed")
				}
				m.layout.SetProfileStatus(name, "idle")
			}

		case "r":
			m.refreshProfiles()
		}

	case taskEventMsg:
		tr := msg.tracked
		switch msg.event.Kind {
		case task.EventLog:
			m.layout.AddInfo(tr.profile, msg.event.Message)
			m.layout.SetTaskStatus(tr.profile, msg.event.Message)
		case task.EventNeedsAttention:
			m.layout.AddWarning(tr.profile, msg.event.Message)
			m.layout.SetTaskStatus(tr.profile, "needs attention")
		}
		cmds = append(cmds, waitForEvent(tr))

	case taskFinishedMsg:
		tr := msg.tracked
		payload, err := tr.task.Result()
		m.env.writeReport(tr.profile, tr.scenario, tr.start, payload, err)

		result := ui.TaskResult{
			Profile:  tr.profile,
			Scenario: tr.scenario,
			Duration: time.Since(tr.start),
		}
		if err != nil {
			m.failCount++
			result.Error = err.Error()
			m.layout.AddError(tr.profile, err.Error())
		} else {
			m.doneCount++
			result.Detail = resultDetail(tr.scenario, payload)
			m.layout.AddInfo(tr.profile, fmt.Sprintf("Finished: %s", tr.scenario))
		}
		m.layout.AddResult(result)
		m.layout.FinishTask(tr.profile)

		if b := tr.task.Browser(); b != nil {
			m.openBrowsers[tr.profile] = tr.task
			m.layout.SetProfileStatus(tr.profile, "browser open")
		} else {
			m.layout.SetProfileStatus(tr.profile, "idle")
		}
		m.updateStats()
	}

	// Update the layout with the message
	layoutModel, layoutCmd := m.layout.Update(msg)
	if updatedLayout, ok := layoutModel.(*ui.Layout); ok {
		m.layout = updatedLayout
	}
	cmds = append(cmds, layoutCmd)

	return m, tea.Batch(cmds...)
}

// View returns a string representation of the UI
func (m Model) View() string {
	if m.err != nil {
		return fmt.Sprintf("Error: %v\n\nPress any key to quit.", m.err)
	}

	if !m.ready {
		return "Initializing...\n"
	}

	help := " o:open l:login p:check proxy x:close r:refresh q:quit"
	return m.layout.View() + "\n" + help
}
