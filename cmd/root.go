// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Jan Krl

package cmd

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/JanKrl/kospel-cmi-lib/pkg/controller"
	"github.com/JanKrl/kospel-cmi-lib/pkg/kospel"
	"github.com/JanKrl/kospel-cmi-lib/pkg/logging"
	"github.com/JanKrl/kospel-cmi-lib/pkg/registry"
)

var (
	// Backend selection flags
	deviceURL string
	stateFile string
	timeout   time.Duration

	// Registry flags
	registryName string
	registryFile string

	// Logging flags
	logLevel  string
	logFormat string

	log *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "kospel",
	Short: "Kospel C.MI heater control",
	Long: `Kospel - control and inspect Kospel heaters through the C.MI module.

Settings are read and written by name ("heater_mode", "manual_temperature")
through a registry that maps each name onto the device's hex registers.
Register scanning and watching help discover what undocumented registers do.

Connection modes:
  Device:     --url http://<heater>/api/dev/65
  State file: --state-file state.yaml   (local simulation, no hardware)`,
	Version:       "1.0.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		log, err = logging.Setup(logFormat, logLevel)
		return err
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&deviceURL, "url", "u", "", "Device API base URL")
	rootCmd.PersistentFlags().StringVar(&stateFile, "state-file", "", "Local YAML state file instead of a device")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", kospel.DefaultTimeout, "Per-request device timeout")

	rootCmd.PersistentFlags().StringVar(&registryName, "registry", "kospel_cmi_standard", "Built-in registry name")
	rootCmd.PersistentFlags().StringVar(&registryFile, "registry-file", "", "Custom registry YAML file (overrides --registry)")

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format (text, json)")
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// openBackend builds the backend selected by the connection flags.
func openBackend() (kospel.Backend, error) {
	switch {
	case deviceURL != "" && stateFile != "":
		return nil, fmt.Errorf("--url and --state-file are mutually exclusive")
	case deviceURL != "":
		return kospel.NewHTTPBackend(deviceURL, timeout, log), nil
	case stateFile != "":
		return kospel.NewFileBackend(stateFile), nil
	default:
		return nil, fmt.Errorf("no connection specified (use --url or --state-file)")
	}
}

// loadRegistry loads the registry selected by the registry flags.
func loadRegistry() (*registry.Registry, error) {
	if registryFile != "" {
		return registry.LoadFile(registryFile)
	}
	return registry.Load(registryName)
}

// openController wires backend, registry and logger together. The
// loaded registry is returned alongside so callers never load it twice.
func openController() (*controller.Controller, *registry.Registry, error) {
	reg, err := loadRegistry()
	if err != nil {
		return nil, nil, err
	}
	backend, err := openBackend()
	if err != nil {
		return nil, nil, err
	}
	return controller.New(backend, reg, log), reg, nil
}
