// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Jan Krl

// Package kospel implements transports for the Kospel C.MI register
// protocol: the device's HTTP API and a file-backed store for
// development. The controller depends only on the Backend interface,
// never on a concrete transport.
package kospel

import (
	"context"
	"fmt"

	"github.com/JanKrl/kospel-cmi-lib/pkg/register"
)

// Backend reads and writes device registers. Implementations own their
// transport state (HTTP client, state file); addresses and hex values
// use the 4-character wire format throughout.
type Backend interface {
	// ReadRegister reads a single register's hex value.
	ReadRegister(ctx context.Context, reg string) (string, error)

	// ReadRegisters reads count contiguous registers starting at start,
	// returning a map of address to hex value.
	ReadRegisters(ctx context.Context, start string, count int) (map[string]string, error)

	// WriteRegister writes a single register's hex value.
	WriteRegister(ctx context.Context, reg string, hexValue string) error

	// Close releases transport resources. Idempotent.
	Close() error
}

// OpError wraps a backend failure with the operation and register it
// occurred on. The controller propagates these opaquely; it never
// interprets transport-specific causes.
type OpError struct {
	Op       string // "read", "read_range" or "write"
	Register string
	Err      error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("backend %s %s: %v", e.Op, e.Register, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

// WriteFlagBit flips a single flag bit through any backend using
// read-modify-write. The write is skipped when the bit already holds the
// desired state.
func WriteFlagBit(ctx context.Context, b Backend, reg string, bitIndex int, state bool) error {
	hexVal, err := b.ReadRegister(ctx, reg)
	if err != nil {
		return err
	}
	current, err := register.Decode(hexVal)
	if err != nil {
		return fmt.Errorf("flag bit write %s: %w", reg, err)
	}

	next := register.SetBit(current, bitIndex, state)
	if next == current {
		return nil
	}
	return b.WriteRegister(ctx, reg, register.Encode(next))
}
