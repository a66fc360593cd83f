// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Jan Krl

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/JanKrl/kospel-cmi-lib/pkg/scan"
)

var (
	scanStart     string
	scanCount     int
	scanHideEmpty bool
	scanYAML      bool
	scanOut       string
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan a register range and print every interpretation",
	Long: `Scan a contiguous register range in one device call.

Each register is shown as hex, signed raw, temperature-scaled,
pressure-scaled and as its set bits, so unknown registers can be
identified by changing a setting on the heater's panel and comparing
scans (see "kospel watch").`,
	Example: `  kospel scan --start 0b00 --count 96 --url http://192.168.1.50/api/dev/65
  kospel scan --start 0b20 --count 64 --hide-empty --yaml --out before.yaml`,
	RunE: runScan,
}

func init() {
	scanCmd.Flags().StringVar(&scanStart, "start", "0b00", "First register to scan")
	scanCmd.Flags().IntVar(&scanCount, "count", 96, "Number of registers to scan")
	scanCmd.Flags().BoolVar(&scanHideEmpty, "hide-empty", false, "Skip all-zero registers")
	scanCmd.Flags().BoolVar(&scanYAML, "yaml", false, "Emit the YAML report format")
	scanCmd.Flags().StringVar(&scanOut, "out", "", "Write the report to a file instead of stdout")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	backend, err := openBackend()
	if err != nil {
		return err
	}
	defer backend.Close()

	result, err := scan.Range(cmd.Context(), backend, scanStart, scanCount)
	if err != nil {
		return err
	}
	if scanHideEmpty {
		result = result.Filter()
	}

	if scanYAML || scanOut != "" {
		data, err := result.Marshal()
		if err != nil {
			return err
		}
		if scanOut != "" {
			return os.WriteFile(scanOut, data, 0o644)
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	}

	for _, interp := range result.Regs {
		fmt.Fprintln(cmd.OutOrStdout(), interp.String())
	}
	return nil
}
