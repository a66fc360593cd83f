// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Jan Krl

package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/JanKrl/kospel-cmi-lib/pkg/scan"
	"github.com/JanKrl/kospel-cmi-lib/pkg/simulator"
)

var (
	watchInterval time.Duration
	watchFollow   bool
	watchOut      string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch registers for changes",
	Long: `Watch the scan range and print every register that changes.

By default the range is rescanned on an interval and consecutive scans
are diffed; change a setting on the heater's panel and the register it
lives in shows up here. With --follow the command subscribes to the
simulator's /events WebSocket instead and prints writes as they happen.`,
	Example: `  kospel watch --start 0b20 --count 64 --interval 2s --url http://192.168.1.50/api/dev/65
  kospel watch --follow --url http://localhost:8065`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&scanStart, "start", "0b00", "First register to watch")
	watchCmd.Flags().IntVar(&scanCount, "count", 96, "Number of registers to watch")
	watchCmd.Flags().DurationVar(&watchInterval, "interval", 2*time.Second, "Rescan interval")
	watchCmd.Flags().BoolVar(&watchFollow, "follow", false, "Stream write events over WebSocket (simulator only)")
	watchCmd.Flags().StringVar(&watchOut, "out", "", "Append observed changes to a YAML file")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if watchFollow {
		return followEvents(cmd)
	}
	return pollChanges(cmd)
}

// pollChanges rescans the range on a timer and prints the diff against
// the previous scan.
func pollChanges(cmd *cobra.Command) error {
	backend, err := openBackend()
	if err != nil {
		return err
	}
	defer backend.Close()

	ctx := cmd.Context()
	prev, err := scan.Range(ctx, backend, scanStart, scanCount)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "watching %s+%d every %s (ctrl-c to stop)\n",
		scanStart, scanCount, watchInterval)

	ticker := time.NewTicker(watchInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		next, err := scan.Range(ctx, backend, scanStart, scanCount)
		if err != nil {
			log.Warn("scan failed, will retry", "error", err)
			continue
		}
		for _, change := range scan.Diff(prev, next) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s %s -> %s\n",
				time.Now().Format("15:04:05"), change.Register, change.Old.Hex, change.New.Hex)
			fmt.Fprintf(cmd.OutOrStdout(), "          now: %s\n", change.New.String())
			if err := appendChangeRecord(change.Register, change.Old.Hex, change.New.Hex); err != nil {
				return err
			}
		}
		prev = next
	}
}

// followEvents subscribes to the simulator's write event stream.
func followEvents(cmd *cobra.Command) error {
	if deviceURL == "" {
		return fmt.Errorf("--follow requires --url pointing at a simulator")
	}
	wsURL := toWebSocketURL(deviceURL) + "/events"

	conn, _, err := websocket.DefaultDialer.DialContext(cmd.Context(), wsURL, nil)
	if err != nil {
		return fmt.Errorf("connect %s: %w", wsURL, err)
	}
	defer conn.Close()
	fmt.Fprintf(cmd.OutOrStdout(), "following %s (ctrl-c to stop)\n", wsURL)

	// Close the socket when the command is cancelled so ReadJSON
	// unblocks.
	go func() {
		<-cmd.Context().Done()
		conn.Close()
	}()

	for {
		var event simulator.WriteEvent
		if err := conn.ReadJSON(&event); err != nil {
			if cmd.Context().Err() != nil {
				return nil
			}
			return fmt.Errorf("event stream: %w", err)
		}
		interp, err := scan.Interpret(event.Register, event.Value)
		if err != nil {
			log.Warn("unparseable event", "register", event.Register, "value", event.Value)
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", event.Timestamp, interp.String())
		if err := appendChangeRecord(event.Register, "", event.Value); err != nil {
			return err
		}
	}
}

// changeRecord is one observed register change in the --out file.
type changeRecord struct {
	Time     string `yaml:"time"`
	Register string `yaml:"register"`
	Old      string `yaml:"old,omitempty"`
	New      string `yaml:"new"`
}

// appendChangeRecord appends the change to the --out file as one YAML
// document, so long watch sessions build a reviewable log.
func appendChangeRecord(register, oldHex, newHex string) error {
	if watchOut == "" {
		return nil
	}
	data, err := yaml.Marshal(changeRecord{
		Time:     time.Now().UTC().Format(time.RFC3339),
		Register: register,
		Old:      oldHex,
		New:      newHex,
	})
	if err != nil {
		return err
	}

	f, err := os.OpenFile(watchOut, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.Write(append([]byte("---\n"), data...)); err != nil {
		return err
	}
	return nil
}

func toWebSocketURL(httpURL string) string {
	switch {
	case strings.HasPrefix(httpURL, "https://"):
		return "wss://" + strings.TrimPrefix(httpURL, "https://")
	case strings.HasPrefix(httpURL, "http://"):
		return "ws://" + strings.TrimPrefix(httpURL, "http://")
	default:
		return httpURL
	}
}
