// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Jan Krl

// Package registry maps semantic setting names to register locations and
// codec rules. A registry is the single source of truth translating a
// name like "heater_mode" into "bits 3 and 5 of register 0b55, via this
// decode/encode pair". Registries are immutable after load and safe to
// share across controllers.
package registry

import (
	"errors"
	"fmt"
	"sort"

	"github.com/JanKrl/kospel-cmi-lib/pkg/register"
)

// Errors returned when callers reference settings by name.
var (
	// ErrUnknownSetting indicates a name absent from the registry.
	ErrUnknownSetting = errors.New("unknown setting")

	// ErrReadOnlySetting indicates a write to a setting without an encoder.
	ErrReadOnlySetting = errors.New("setting is read-only")
)

// Definition binds a setting to its register, optional bit position and
// decode/encode pair. A nil encoder marks the setting read-only.
type Definition struct {
	Register string
	BitIndex *int

	decode register.DecodeFunc
	encode register.EncodeFunc
}

// NewDefinition builds a definition directly, bypassing the YAML loader.
// Intended for programmatic registries and tests.
func NewDefinition(reg string, bitIndex *int, decode register.DecodeFunc, encode register.EncodeFunc) Definition {
	return Definition{Register: reg, BitIndex: bitIndex, decode: decode, encode: encode}
}

// ReadOnly reports whether the setting has no encoder.
func (d Definition) ReadOnly() bool {
	return d.encode == nil
}

// Decode turns the register's raw value into the setting's typed value.
// Returns false when the raw value does not represent a recognized
// pattern; the caller decides whether to log.
func (d Definition) Decode(raw int16) (any, bool) {
	return d.decode(raw, d.BitIndex)
}

// Encode turns a typed value into the register's new raw value.
// current is the register's last-known raw value; bit-level encoders
// require it for read-modify-write.
func (d Definition) Encode(value any, current *int16) (int16, error) {
	if d.encode == nil {
		return 0, fmt.Errorf("%w: no encoder configured", ErrReadOnlySetting)
	}
	return d.encode(value, d.BitIndex, current)
}

// Registry is an immutable set of setting definitions keyed by name.
type Registry struct {
	defs  map[string]Definition
	names []string // sorted
}

// New builds a registry from a definition map. The map is copied; later
// mutation of the argument does not affect the registry.
func New(defs map[string]Definition) *Registry {
	r := &Registry{
		defs:  make(map[string]Definition, len(defs)),
		names: make([]string, 0, len(defs)),
	}
	for name, def := range defs {
		r.defs[name] = def
		r.names = append(r.names, name)
	}
	sort.Strings(r.names)
	return r
}

// Lookup returns the definition for name, or ErrUnknownSetting.
func (r *Registry) Lookup(name string) (Definition, error) {
	def, ok := r.defs[name]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %q", ErrUnknownSetting, name)
	}
	return def, nil
}

// Names returns every setting name in sorted order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Len returns the number of settings.
func (r *Registry) Len() int {
	return len(r.defs)
}

// Span computes the minimal contiguous register range covering every
// definition: the lowest referenced address and the count up to the
// highest. All registers in a definition set share one address page.
func (r *Registry) Span() (start string, count int, err error) {
	if len(r.defs) == 0 {
		return "", 0, errors.New("registry is empty")
	}

	min, max := -1, -1
	prefix := ""
	for _, name := range r.names {
		def := r.defs[name]
		idx, err := register.AddressToIndex(def.Register)
		if err != nil {
			return "", 0, fmt.Errorf("setting %q: %w", name, err)
		}
		if min == -1 || idx < min {
			min = idx
			prefix = def.Register[:2]
		}
		if idx > max {
			max = idx
		}
	}

	start, err = register.AddressFromIndex(prefix, min)
	if err != nil {
		return "", 0, err
	}
	return start, max - min + 1, nil
}
