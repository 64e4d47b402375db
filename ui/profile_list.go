package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ProfileItem is one row in the profile list
type ProfileItem struct {
	Name     string
	Email    string
	Proxy    string // credential-masked display form
	TOTPCode string // current 2FA code, "" when no seed is stored
	TOTPLeft int    // seconds before the code rotates
	Status   string // idle, running, browser open, ...
}

// FilterValue implements list.Item interface
func (i ProfileItem) FilterValue() string { return i.Name }

// Title returns the item's title
func (i ProfileItem) Title() string {
	if i.Status != "" && i.Status != "idle" {
		return fmt.Sprintf("%s [%s]", i.Name, i.Status)
	}
	return i.Name
}

// Description returns the item's description
func (i ProfileItem) Description() string {
	proxy := i.Proxy
	if proxy == "" {
		proxy = "no proxy"
	}
	twofa := "2FA: none"
	if i.TOTPCode != "" {
		twofa = fmt.Sprintf("2FA: %s (%ds)", i.TOTPCode, i.TOTPLeft)
	}
	return fmt.Sprintf("%s | %s | %s", i.Email, proxy, twofa)
}

// ProfileList manages the profile selection list
type ProfileList struct {
	list   list.Model
	width  int
	height int
}

// NewProfileList creates a new profile list
func NewProfileList() *ProfileList {
	delegate := list.NewDefaultDelegate()
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.Foreground(lipgloss.Color("170"))
	delegate.Styles.SelectedDesc = delegate.Styles.SelectedDesc.Foreground(lipgloss.Color("244"))

	l := list.New([]list.Item{}, delegate, 0, 0)
	l.Title = "Profiles"
	l.Styles.Title = l.Styles.Title.Foreground(lipgloss.Color("240"))
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)

	return &ProfileList{list: l}
}

// SetSize updates the list dimensions
func (p *ProfileList) SetSize(width, height int) {
	p.width = width
	p.height = height
	p.list.SetSize(width, height)
}

// Update handles UI updates
func (p *ProfileList) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	p.list, cmd = p.list.Update(msg)
	return cmd
}

// View renders the component
func (p *ProfileList) View() string {
	return p.list.View()
}

// SetProfiles replaces the full item set, keeping the cursor in range
func (p *ProfileList) SetProfiles(profiles []ProfileItem) {
	items := make([]list.Item, len(profiles))
	for i, profile := range profiles {
		items[i] = profile
	}
	cursor := p.list.Index()
	p.list.SetItems(items)
	if cursor >= len(items) && len(items) > 0 {
		p.list.Select(len(items) - 1)
	}
	p.updateTitle()
}

// SetStatus updates the status badge of a single profile
func (p *ProfileList) SetStatus(name, status string) {
	for i, item := range p.list.Items() {
		if pItem, ok := item.(ProfileItem); ok && pItem.Name == name {
			pItem.Status = status
			p.list.SetItem(i, pItem)
			break
		}
	}
}

// Selected returns the name of the profile under the cursor, or ""
func (p *ProfileList) Selected() string {
	if item, ok := p.list.SelectedItem().(ProfileItem); ok {
		return item.Name
	}
	return ""
}

// updateTitle updates the component title with the profile count
func (p *ProfileList) updateTitle() {
	p.list.Title = fmt.Sprintf("Profiles (%d)", len(p.list.Items()))
}
