// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Jan Krl

package cmd

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/JanKrl/kospel-cmi-lib/pkg/simulator"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run a mock C.MI device server",
	Long: `Serve the device's HTTP register API from a local YAML state file.

The mock speaks the same wire format as the heater's C.MI module, so
every other command (and any other client) runs against it unchanged by
pointing --url at it. Register writes are streamed to /events over
WebSocket for "kospel watch --follow".`,
	Example: `  kospel serve --state-file state.yaml --addr :8065
  kospel get heater_mode --url http://localhost:8065`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8065", "Listen address")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	if stateFile == "" {
		return fmt.Errorf("serve requires --state-file")
	}

	store := simulator.NewStore(stateFile)
	srv := &http.Server{
		Addr:    serveAddr,
		Handler: simulator.NewServer(store, log).Handler(),
	}

	// Shut the listener down when the command is cancelled.
	go func() {
		<-cmd.Context().Done()
		srv.Close()
	}()

	log.Info("mock device listening", "addr", serveAddr, "state", stateFile)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
