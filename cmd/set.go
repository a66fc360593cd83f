// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Jan Krl

package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/JanKrl/kospel-cmi-lib/pkg/register"
)

var setCmd = &cobra.Command{
	Use:   "set <setting>=<value>...",
	Short: "Write one or more settings by name",
	Long: `Write settings and save them to the device.

Multiple settings may be given in one invocation; changes landing in the
same register are coalesced into a single device write. Values are
matched against enum display strings first ("Winter", "Manual mode"),
then parsed as booleans or numbers.`,
	Example: `  kospel set heater_mode=Winter --url http://192.168.1.50/api/dev/65
  kospel set manual_temperature=21.5 "is_manual_mode_enabled=Manual mode" --state-file state.yaml`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSet,
}

var setNoSave bool

func init() {
	setCmd.Flags().BoolVar(&setNoSave, "no-save", false, "Buffer the changes without writing to the device")
	rootCmd.AddCommand(setCmd)
}

func runSet(cmd *cobra.Command, args []string) error {
	ctrl, _, err := openController()
	if err != nil {
		return err
	}
	defer ctrl.Close()

	if err := ctrl.Refresh(cmd.Context()); err != nil {
		return err
	}

	for _, arg := range args {
		name, raw, err := splitAssignment(arg)
		if err != nil {
			return err
		}
		if err := ctrl.Set(name, parseValue(raw)); err != nil {
			return err
		}
	}

	if setNoSave {
		fmt.Fprintf(cmd.OutOrStdout(), "%d change(s) buffered, not saved\n", len(ctrl.Pending()))
		return nil
	}
	if err := ctrl.Save(cmd.Context()); err != nil {
		return err
	}
	for _, arg := range args {
		name, _, _ := splitAssignment(arg)
		value, _, err := ctrl.Get(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s: %v\n", name, value)
	}
	return nil
}

func splitAssignment(arg string) (name, value string, err error) {
	for i := 0; i < len(arg); i++ {
		if arg[i] == '=' {
			if i == 0 || i == len(arg)-1 {
				break
			}
			return arg[:i], arg[i+1:], nil
		}
	}
	return "", "", fmt.Errorf("invalid assignment %q (want setting=value)", arg)
}

// parseValue turns CLI input into a typed setting value. Enum display
// strings win over literal parsing so "Winter" never ends up a string
// where a HeaterMode is expected.
func parseValue(raw string) any {
	if value, ok := register.ParseEnumValue(raw); ok {
		return value
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	return raw
}
