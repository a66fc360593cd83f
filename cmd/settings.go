// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Jan Krl

package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Read and list every known setting",
	Long: `List every setting in the registry with its current value.

Performs one range read covering the registry's registers and decodes
each setting. Read-only settings are marked.`,
	RunE: runSettings,
}

func init() {
	rootCmd.AddCommand(settingsCmd)
}

func runSettings(cmd *cobra.Command, args []string) error {
	ctrl, reg, err := openController()
	if err != nil {
		return err
	}
	defer ctrl.Close()

	if err := ctrl.Refresh(cmd.Context()); err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SETTING\tVALUE\tREGISTER\tACCESS")
	for _, name := range reg.Names() {
		def, err := reg.Lookup(name)
		if err != nil {
			return err
		}
		access := "rw"
		if def.ReadOnly() {
			access = "ro"
		}
		value, ok, err := ctrl.Get(name)
		if err != nil {
			return err
		}
		display := "?"
		if ok {
			display = fmt.Sprintf("%v", value)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", name, display, def.Register, access)
	}
	return w.Flush()
}
