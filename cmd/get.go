// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Jan Krl

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var getCmd = &cobra.Command{
	Use:   "get <setting>...",
	Short: "Read one or more settings by name",
	Example: `  kospel get heater_mode --url http://192.168.1.50/api/dev/65
  kospel get manual_temperature pressure --state-file state.yaml`,
	Args: cobra.MinimumNArgs(1),
	RunE: runGet,
}

func init() {
	rootCmd.AddCommand(getCmd)
}

func runGet(cmd *cobra.Command, args []string) error {
	ctrl, _, err := openController()
	if err != nil {
		return err
	}
	defer ctrl.Close()

	// Resolve names before touching the device so typos fail fast.
	for _, name := range args {
		if _, _, err := ctrl.Get(name); err != nil {
			return err
		}
	}

	if err := ctrl.Refresh(cmd.Context()); err != nil {
		return err
	}
	for _, name := range args {
		value, ok, err := ctrl.Get(name)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("setting %q did not decode", name)
		}
		if len(args) == 1 {
			fmt.Fprintf(cmd.OutOrStdout(), "%v\n", value)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %v\n", name, value)
		}
	}
	return nil
}
