// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Jan Krl

package cmd

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Interactive settings editor",
	Long: `Edit heater settings in an interactive terminal UI.

The left pane lists every setting with its current value. Enter opens
the selected setting for editing; changes stay local until saved, and
changes to bits of the same register are coalesced into one write.

Keys:
  up/down  select setting
  enter    edit selected setting / apply input
  esc      cancel editing
  r        refresh from device (discards unsaved changes)
  s        save pending changes
  q        quit`,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	ctrl, reg, err := openController()
	if err != nil {
		return err
	}
	defer ctrl.Close()

	m := initialSettingsModel(ctrl, reg)
	p := tea.NewProgram(m, tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("TUI error: %v", err)
	}
	if fm, ok := final.(settingsModel); ok && fm.fatalErr != nil {
		return fm.fatalErr
	}
	return nil
}
