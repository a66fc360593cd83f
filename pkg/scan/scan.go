// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Jan Krl

// Package scan sweeps register ranges and renders every plausible
// interpretation of each value. Register meanings are discovered by
// changing a setting on the heater's panel and diffing scans, so the
// output shows raw, scaled and bit-level views side by side.
package scan

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/JanKrl/kospel-cmi-lib/pkg/kospel"
	"github.com/JanKrl/kospel-cmi-lib/pkg/register"
)

// FormatVersion identifies the YAML scan report layout.
const FormatVersion = "1"

// Interpretation is one register's value viewed every way at once.
type Interpretation struct {
	Register       string  `yaml:"register"`
	Hex            string  `yaml:"hex"`
	Raw            int16   `yaml:"raw"`
	ScaledTemp     float64 `yaml:"scaled_temp"`
	ScaledPressure float64 `yaml:"scaled_pressure"`
	Bits           []int   `yaml:"bits,flow"` // set bit indexes, ascending
}

// Empty reports whether the register holds the all-zero value.
func (i Interpretation) Empty() bool {
	return i.Raw == 0
}

// String renders the interpretation as a single aligned line.
func (i Interpretation) String() string {
	bits := make([]string, len(i.Bits))
	for n, b := range i.Bits {
		bits[n] = fmt.Sprintf("%d", b)
	}
	return fmt.Sprintf("%s  hex=%s raw=%6d temp=%7.1f press=%7.2f bits=[%s]",
		i.Register, i.Hex, i.Raw, i.ScaledTemp, i.ScaledPressure, strings.Join(bits, " "))
}

// Interpret decodes one register's hex value into all views.
func Interpret(reg, hexVal string) (Interpretation, error) {
	rawVal, err := register.Decode(hexVal)
	if err != nil {
		return Interpretation{}, fmt.Errorf("register %s: %w", reg, err)
	}

	var bits []int
	for b := 0; b < 16; b++ {
		if register.GetBit(rawVal, b) {
			bits = append(bits, b)
		}
	}
	return Interpretation{
		Register:       reg,
		Hex:            hexVal,
		Raw:            rawVal,
		ScaledTemp:     register.ScaleDecode(rawVal, register.TempScale),
		ScaledPressure: register.ScaleDecode(rawVal, register.PressureScale),
		Bits:           bits,
	}, nil
}

// Result is a completed scan over a contiguous register range.
type Result struct {
	Version string           `yaml:"format_version"`
	Start   string           `yaml:"start"`
	Count   int              `yaml:"count"`
	Regs    []Interpretation `yaml:"registers"`
}

// Range scans count registers from start through the backend, one
// device call, and interprets every value. Results come back sorted by
// register address.
func Range(ctx context.Context, b kospel.Backend, start string, count int) (*Result, error) {
	regs, err := b.ReadRegisters(ctx, start, count)
	if err != nil {
		return nil, fmt.Errorf("scan %s+%d: %w", start, count, err)
	}

	result := &Result{Version: FormatVersion, Start: start, Count: count}
	for reg, hexVal := range regs {
		interp, err := Interpret(reg, hexVal)
		if err != nil {
			// Keep sweeping: an unreadable value becomes a hex-only
			// empty row instead of aborting the scan.
			slog.Warn("register value unreadable", "register", reg, "value", hexVal, "error", err)
			interp = Interpretation{Register: reg, Hex: hexVal}
		}
		result.Regs = append(result.Regs, interp)
	}
	sort.Slice(result.Regs, func(i, j int) bool {
		return result.Regs[i].Register < result.Regs[j].Register
	})
	return result, nil
}

// Filter returns a copy of the result without all-zero registers.
func (r *Result) Filter() *Result {
	out := &Result{Version: r.Version, Start: r.Start, Count: r.Count}
	for _, interp := range r.Regs {
		if !interp.Empty() {
			out.Regs = append(out.Regs, interp)
		}
	}
	return out
}

// Marshal serializes the result as a YAML report.
func (r *Result) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal scan result: %w", err)
	}
	return data, nil
}

// Unmarshal parses a YAML scan report.
func Unmarshal(data []byte) (*Result, error) {
	var r Result
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse scan result: %w", err)
	}
	if r.Version != FormatVersion {
		return nil, fmt.Errorf("unsupported scan format version %q", r.Version)
	}
	return &r, nil
}

// Change is one register that differs between two scans.
type Change struct {
	Register string
	Old      Interpretation
	New      Interpretation
}

// Diff compares two scans and returns the registers whose values
// changed, sorted by address. Registers present in only one scan count
// as changed from or to the empty value.
func Diff(prev, next *Result) []Change {
	prevByReg := make(map[string]Interpretation, len(prev.Regs))
	for _, interp := range prev.Regs {
		prevByReg[interp.Register] = interp
	}
	nextByReg := make(map[string]Interpretation, len(next.Regs))
	for _, interp := range next.Regs {
		nextByReg[interp.Register] = interp
	}

	seen := make(map[string]bool)
	var changes []Change
	appendChange := func(reg string) {
		if seen[reg] {
			return
		}
		seen[reg] = true
		oldI, ok := prevByReg[reg]
		if !ok {
			oldI = emptyInterpretation(reg)
		}
		newI, ok := nextByReg[reg]
		if !ok {
			newI = emptyInterpretation(reg)
		}
		if oldI.Hex != newI.Hex {
			changes = append(changes, Change{Register: reg, Old: oldI, New: newI})
		}
	}
	for reg := range prevByReg {
		appendChange(reg)
	}
	for reg := range nextByReg {
		appendChange(reg)
	}

	sort.Slice(changes, func(i, j int) bool {
		return changes[i].Register < changes[j].Register
	})
	return changes
}

func emptyInterpretation(reg string) Interpretation {
	interp, _ := Interpret(reg, "0000")
	return interp
}
