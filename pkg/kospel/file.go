// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Jan Krl

package kospel

import (
	"context"

	"github.com/JanKrl/kospel-cmi-lib/pkg/register"
	"github.com/JanKrl/kospel-cmi-lib/pkg/simulator"
)

// FileBackend serves registers from a YAML state file via
// simulator.Store. Registers absent from the file read as "0000";
// writes persist immediately. Intended for development and recorded
// sessions, not for talking to hardware.
type FileBackend struct {
	store *simulator.Store
}

// NewFileBackend creates a backend over the state file at path.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{store: simulator.NewStore(path)}
}

// Store exposes the underlying register store, e.g. for seeding state
// in tests or serving it through the mock device server.
func (b *FileBackend) Store() *simulator.Store {
	return b.store
}

// ReadRegister reads a single register from the state file.
func (b *FileBackend) ReadRegister(_ context.Context, reg string) (string, error) {
	value, err := b.store.Read(reg)
	if err != nil {
		return "", &OpError{Op: "read", Register: reg, Err: err}
	}
	return value, nil
}

// ReadRegisters reads count contiguous registers starting at start.
func (b *FileBackend) ReadRegisters(_ context.Context, start string, count int) (map[string]string, error) {
	startIdx, err := register.AddressToIndex(start)
	if err != nil {
		return nil, &OpError{Op: "read_range", Register: start, Err: err}
	}
	prefix := start[:2]

	result := make(map[string]string, count)
	for i := 0; i < count; i++ {
		reg, err := register.AddressFromIndex(prefix, startIdx+i)
		if err != nil {
			// Range runs off the end of the address page.
			break
		}
		value, readErr := b.store.Read(reg)
		if readErr != nil {
			return nil, &OpError{Op: "read_range", Register: reg, Err: readErr}
		}
		result[reg] = value
	}
	return result, nil
}

// WriteRegister writes a single register to the state file.
func (b *FileBackend) WriteRegister(_ context.Context, reg string, hexValue string) error {
	if err := b.store.Write(reg, hexValue); err != nil {
		return &OpError{Op: "write", Register: reg, Err: err}
	}
	return nil
}

// Close is a no-op; the state file is not held open.
func (b *FileBackend) Close() error {
	return nil
}
