// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Jan Krl

package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/JanKrl/kospel-cmi-lib/pkg/controller"
	"github.com/JanKrl/kospel-cmi-lib/pkg/registry"
)

//////////////////////////////////////////////////////////////
// Constants and Styles
//////////////////////////////////////////////////////////////

const deviceCallTimeout = 10 * time.Second

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	editStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

//////////////////////////////////////////////////////////////
// Types
//////////////////////////////////////////////////////////////

// settingItem is one registry entry shown in the list.
type settingItem struct {
	name     string
	value    string
	register string
	readOnly bool
	pending  bool
}

// Implement list.Item interface
func (s settingItem) Title() string {
	if s.pending {
		return s.name + " *"
	}
	return s.name
}

func (s settingItem) Description() string {
	access := ""
	if s.readOnly {
		access = "  (read-only)"
	}
	return fmt.Sprintf("%s  [%s]%s", s.value, s.register, access)
}

func (s settingItem) FilterValue() string { return s.name }

// settingsModel is the Bubble Tea model for the settings editor.
type settingsModel struct {
	ctrl *controller.Controller
	reg  *registry.Registry

	settingsList list.Model
	input        textinput.Model
	editing      bool
	editName     string

	status   string
	errText  string
	fatalErr error

	width  int
	height int
}

//////////////////////////////////////////////////////////////
// Messages
//////////////////////////////////////////////////////////////

type refreshedMsg struct{}

type savedMsg struct{}

type opFailedMsg struct {
	op  string
	err error
}

//////////////////////////////////////////////////////////////
// Model Initialization
//////////////////////////////////////////////////////////////

func initialSettingsModel(ctrl *controller.Controller, reg *registry.Registry) settingsModel {
	ti := textinput.New()
	ti.Placeholder = "new value"
	ti.CharLimit = 32
	ti.Width = 24

	delegate := list.NewDefaultDelegate()
	delegate.ShowDescription = true
	delegate.SetHeight(2)
	settingsList := list.New([]list.Item{}, delegate, 60, 20)
	settingsList.Title = "Settings"
	settingsList.SetShowStatusBar(false)
	settingsList.SetShowHelp(false)
	settingsList.SetFilteringEnabled(false)

	return settingsModel{
		ctrl:         ctrl,
		reg:          reg,
		settingsList: settingsList,
		input:        ti,
		status:       "refreshing...",
		width:        80,
		height:       24,
	}
}

func (m settingsModel) Init() tea.Cmd {
	return m.refreshCmd()
}

//////////////////////////////////////////////////////////////
// Commands
//////////////////////////////////////////////////////////////

func (m settingsModel) refreshCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), deviceCallTimeout)
		defer cancel()
		if err := m.ctrl.Refresh(ctx); err != nil {
			return opFailedMsg{op: "refresh", err: err}
		}
		return refreshedMsg{}
	}
}

func (m settingsModel) saveCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), deviceCallTimeout)
		defer cancel()
		if err := m.ctrl.Save(ctx); err != nil {
			return opFailedMsg{op: "save", err: err}
		}
		return savedMsg{}
	}
}

//////////////////////////////////////////////////////////////
// Update
//////////////////////////////////////////////////////////////

func (m settingsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.settingsList.SetSize(msg.Width-4, msg.Height-6)
		return m, nil

	case refreshedMsg:
		m.status = "refreshed"
		m.errText = ""
		m.reloadItems()
		return m, nil

	case savedMsg:
		m.status = "saved"
		m.errText = ""
		m.reloadItems()
		return m, nil

	case opFailedMsg:
		m.errText = fmt.Sprintf("%s failed: %v", msg.op, msg.err)
		m.reloadItems()
		return m, nil

	case tea.KeyMsg:
		if m.editing {
			return m.updateEditing(msg)
		}
		return m.updateBrowsing(msg)
	}

	var cmd tea.Cmd
	m.settingsList, cmd = m.settingsList.Update(msg)
	return m, cmd
}

func (m settingsModel) updateBrowsing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "r":
		m.status = "refreshing..."
		return m, m.refreshCmd()

	case "s":
		if len(m.ctrl.Pending()) == 0 {
			m.status = "nothing to save"
			return m, nil
		}
		m.status = "saving..."
		return m, m.saveCmd()

	case "enter":
		item, ok := m.settingsList.SelectedItem().(settingItem)
		if !ok {
			return m, nil
		}
		if item.readOnly {
			m.errText = fmt.Sprintf("%s is read-only", item.name)
			return m, nil
		}
		m.editing = true
		m.editName = item.name
		m.errText = ""
		m.input.SetValue("")
		m.input.Placeholder = item.value
		m.input.Focus()
		return m, textinput.Blink
	}

	var cmd tea.Cmd
	m.settingsList, cmd = m.settingsList.Update(msg)
	return m, cmd
}

func (m settingsModel) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.editing = false
		m.input.Blur()
		return m, nil

	case "enter":
		raw := m.input.Value()
		m.editing = false
		m.input.Blur()
		if raw == "" {
			return m, nil
		}
		if err := m.ctrl.Set(m.editName, parseValue(raw)); err != nil {
			m.errText = err.Error()
			return m, nil
		}
		m.status = fmt.Sprintf("%s buffered (press s to save)", m.editName)
		m.errText = ""
		m.reloadItems()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// reloadItems rebuilds the list from the controller's current view,
// keeping the selection in place.
func (m *settingsModel) reloadItems() {
	pending := m.ctrl.Pending()
	selected := m.settingsList.Index()

	items := make([]list.Item, 0, m.reg.Len())
	for _, name := range m.reg.Names() {
		def, err := m.reg.Lookup(name)
		if err != nil {
			continue
		}
		display := "?"
		if value, ok, err := m.ctrl.Get(name); err == nil && ok {
			display = fmt.Sprintf("%v", value)
		}
		_, isPending := pending[name]
		items = append(items, settingItem{
			name:     name,
			value:    display,
			register: def.Register,
			readOnly: def.ReadOnly(),
			pending:  isPending,
		})
	}
	m.settingsList.SetItems(items)
	m.settingsList.Select(selected)
}

//////////////////////////////////////////////////////////////
// View
//////////////////////////////////////////////////////////////

func (m settingsModel) View() string {
	header := titleStyle.Render("Kospel Settings")

	body := m.settingsList.View()
	if m.editing {
		prompt := fmt.Sprintf("Set %s:\n%s\n(enter to apply, esc to cancel)", m.editName, m.input.View())
		body = lipgloss.JoinVertical(lipgloss.Left, body, editStyle.Render(prompt))
	}

	footer := statusStyle.Render(m.status + "  |  enter edit  s save  r refresh  q quit")
	if m.errText != "" {
		footer = errorStyle.Render(m.errText)
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}
