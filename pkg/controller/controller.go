// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Jan Krl

// Package controller orchestrates register reads and writes behind a
// name-based settings API. It caches decoded state between refreshes and
// buffers writes locally until Save, coalescing multiple changes to the
// same register into a single read-modify-write.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/JanKrl/kospel-cmi-lib/pkg/kospel"
	"github.com/JanKrl/kospel-cmi-lib/pkg/register"
	"github.com/JanKrl/kospel-cmi-lib/pkg/registry"
)

// Controller holds decoded device state for one registry over one
// backend. Safe for concurrent use.
//
// State lives in three layers: rawCache (last-known raw register
// values), settings (decoded values from the last refresh, updated per
// register after each successful save) and pending (values set locally
// but not yet written). Get reads pending first so the caller sees
// their own unsaved changes.
type Controller struct {
	backend kospel.Backend
	reg     *registry.Registry
	log     *slog.Logger

	mu       sync.Mutex
	rawCache map[string]int16
	settings map[string]any
	pending  map[string]any
	closed   bool
}

// New creates a controller. A nil logger selects slog.Default().
func New(backend kospel.Backend, reg *registry.Registry, log *slog.Logger) *Controller {
	if log == nil {
		log = slog.Default()
	}
	return &Controller{
		backend:  backend,
		reg:      reg,
		log:      log,
		rawCache: make(map[string]int16),
		settings: make(map[string]any),
		pending:  make(map[string]any),
	}
}

// Refresh reads the registry's full register span from the backend in
// one call and rebuilds the decoded snapshot. Pending writes are
// discarded: after a refresh the controller reflects the device. On
// failure the previous state is left untouched.
func (c *Controller) Refresh(ctx context.Context) error {
	start, count, err := c.reg.Span()
	if err != nil {
		return fmt.Errorf("refresh: %w", err)
	}

	regs, err := c.backend.ReadRegisters(ctx, start, count)
	if err != nil {
		return fmt.Errorf("refresh: %w", err)
	}
	return c.replaceState(regs, false)
}

// FromRegisters rebuilds the decoded snapshot from an already-fetched
// register map, e.g. a scan result or a recorded session. Registers
// missing from the map are treated as empty and logged.
func (c *Controller) FromRegisters(regs map[string]string) error {
	return c.replaceState(regs, true)
}

// replaceState decodes regs into a fresh snapshot and swaps it in.
// A register whose value does not parse is treated like a missing one,
// so a single corrupt value never costs the rest of the snapshot.
func (c *Controller) replaceState(regs map[string]string, warnMissing bool) error {
	rawCache := make(map[string]int16, len(regs))
	for reg, hexVal := range regs {
		rawVal, err := register.Decode(hexVal)
		if err != nil {
			c.log.Warn("register value unreadable, treating as empty",
				"register", reg, "value", hexVal, "error", err)
			continue
		}
		rawCache[reg] = rawVal
	}

	settings := make(map[string]any, c.reg.Len())
	for _, name := range c.reg.Names() {
		def, err := c.reg.Lookup(name)
		if err != nil {
			return err
		}
		rawVal, ok := rawCache[def.Register]
		if !ok {
			if warnMissing {
				c.log.Warn("register missing from snapshot, assuming empty",
					"setting", name, "register", def.Register)
			}
			rawVal = 0
		}
		value, ok := def.Decode(rawVal)
		if !ok {
			c.log.Warn("setting did not decode", "setting", name, "register", def.Register)
			continue
		}
		settings[name] = value
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.rawCache = rawCache
	c.settings = settings
	c.pending = make(map[string]any)
	return nil
}

// Get returns the setting's current value: the pending value when one
// is buffered, otherwise the last decoded value. The second return is
// false when the setting has no decoded value yet (never refreshed, or
// its register pattern was unrecognized).
func (c *Controller) Get(name string) (any, bool, error) {
	if _, err := c.reg.Lookup(name); err != nil {
		return nil, false, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if value, ok := c.pending[name]; ok {
		return value, true, nil
	}
	value, ok := c.settings[name]
	return value, ok, nil
}

// Set buffers a new value for the setting. Nothing is sent to the
// device until Save. Read-only settings are rejected up front so the
// caller learns immediately, not at save time.
func (c *Controller) Set(name string, value any) error {
	def, err := c.reg.Lookup(name)
	if err != nil {
		return err
	}
	if def.ReadOnly() {
		return fmt.Errorf("%w: %q", registry.ErrReadOnlySetting, name)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending[name] = value
	c.log.Debug("setting buffered", "setting", name, "value", value)
	return nil
}

// Pending returns a copy of the buffered, unsaved settings.
func (c *Controller) Pending() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]any, len(c.pending))
	for k, v := range c.pending {
		out[k] = v
	}
	return out
}

// Settings returns a copy of the decoded snapshot with pending values
// layered on top.
func (c *Controller) Settings() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]any, len(c.settings))
	for k, v := range c.settings {
		out[k] = v
	}
	for k, v := range c.pending {
		out[k] = v
	}
	return out
}

// Save writes every pending setting to the device. Settings sharing a
// register are coalesced: their encoders run sequentially against one
// raw value and the register is written once. Writes whose final value
// matches the current register are skipped.
//
// Failures are partial: settings on registers that saved are cleared
// from the buffer, the rest stay pending for a retry. The returned
// error joins every per-register failure.
func (c *Controller) Save(ctx context.Context) error {
	c.mu.Lock()
	pending := make(map[string]any, len(c.pending))
	for k, v := range c.pending {
		pending[k] = v
	}
	c.mu.Unlock()

	if len(pending) == 0 {
		return nil
	}

	// Group pending settings by target register, names sorted so
	// encoders apply in a deterministic order.
	byRegister := make(map[string][]string)
	for name := range pending {
		def, err := c.reg.Lookup(name)
		if err != nil {
			return err
		}
		byRegister[def.Register] = append(byRegister[def.Register], name)
	}
	targets := make([]string, 0, len(byRegister))
	for reg, names := range byRegister {
		sort.Strings(names)
		targets = append(targets, reg)
	}
	sort.Strings(targets)

	var errs []error
	for _, reg := range targets {
		saved, err := c.saveRegister(ctx, reg, byRegister[reg], pending)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		c.mu.Lock()
		for _, name := range saved {
			delete(c.pending, name)
		}
		c.mu.Unlock()
	}
	return errors.Join(errs...)
}

// saveRegister encodes and writes one register's pending settings,
// returning the setting names it saved.
func (c *Controller) saveRegister(ctx context.Context, reg string, names []string, pending map[string]any) ([]string, error) {
	current, err := c.currentRaw(ctx, reg)
	if err != nil {
		return nil, fmt.Errorf("save %s: %w", reg, err)
	}

	next := current
	for _, name := range names {
		def, err := c.reg.Lookup(name)
		if err != nil {
			return nil, err
		}
		encoded, err := def.Encode(pending[name], &next)
		if err != nil {
			return nil, fmt.Errorf("save %s (%s): %w", name, reg, err)
		}
		next = encoded
	}

	if next != current {
		if err := c.backend.WriteRegister(ctx, reg, register.Encode(next)); err != nil {
			return nil, err
		}
		c.log.Info("register written", "register", reg, "settings", names)
	} else {
		c.log.Debug("register unchanged, write skipped", "register", reg, "settings", names)
	}

	c.applyRaw(reg, next)
	return names, nil
}

// currentRaw returns the register's last-known raw value, falling back
// to a single device read when it was never refreshed.
func (c *Controller) currentRaw(ctx context.Context, reg string) (int16, error) {
	c.mu.Lock()
	rawVal, ok := c.rawCache[reg]
	c.mu.Unlock()
	if ok {
		return rawVal, nil
	}

	hexVal, err := c.backend.ReadRegister(ctx, reg)
	if err != nil {
		return 0, err
	}
	return register.Decode(hexVal)
}

// applyRaw updates the cache for one register and re-decodes every
// setting living in it, so siblings of a saved flag reflect the write
// without another refresh.
func (c *Controller) applyRaw(reg string, rawVal int16) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rawCache[reg] = rawVal

	for _, name := range c.reg.Names() {
		def, err := c.reg.Lookup(name)
		if err != nil || def.Register != reg {
			continue
		}
		if value, ok := def.Decode(rawVal); ok {
			c.settings[name] = value
		}
	}
}

// Close releases the backend. Idempotent.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()
	return c.backend.Close()
}
