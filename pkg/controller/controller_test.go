// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Jan Krl

package controller

import (
	"context"
	"errors"
	"testing"

	"github.com/JanKrl/kospel-cmi-lib/pkg/register"
	"github.com/JanKrl/kospel-cmi-lib/pkg/registry"
)

// fakeBackend records operations against an in-memory register map.
type fakeBackend struct {
	regs       map[string]string
	writes     []string // "reg=value" in order
	readErr    error
	writeErr   error
	rangeReads int
}

func newFakeBackend(regs map[string]string) *fakeBackend {
	return &fakeBackend{regs: regs}
}

func (f *fakeBackend) ReadRegister(_ context.Context, reg string) (string, error) {
	if f.readErr != nil {
		return "", f.readErr
	}
	if value, ok := f.regs[reg]; ok {
		return value, nil
	}
	return "0000", nil
}

func (f *fakeBackend) ReadRegisters(_ context.Context, start string, count int) (map[string]string, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	f.rangeReads++
	startIdx, err := register.AddressToIndex(start)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, count)
	for i := 0; i < count; i++ {
		reg, err := register.AddressFromIndex(start[:2], startIdx+i)
		if err != nil {
			break
		}
		if value, ok := f.regs[reg]; ok {
			out[reg] = value
		} else {
			out[reg] = "0000"
		}
	}
	return out, nil
}

func (f *fakeBackend) WriteRegister(_ context.Context, reg string, hexValue string) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.regs[reg] = hexValue
	f.writes = append(f.writes, reg+"="+hexValue)
	return nil
}

func (f *fakeBackend) Close() error { return nil }

func bit(i int) *int { return &i }

// testRegistry covers the interaction shapes under test: a multi-bit
// mode, two flags sharing the mode's register, a scaled value in its
// own register and a read-only sensor.
func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	return registry.New(map[string]registry.Definition{
		"heater_mode": registry.NewDefinition("0b55", nil,
			register.DecodeHeaterMode, register.EncodeHeaterMode),
		"is_manual_mode_enabled": registry.NewDefinition("0b55", bit(9),
			register.DecodeMap(register.ManualModeEnabled, register.ManualModeDisabled),
			register.EncodeMap(register.ManualModeEnabled, register.ManualModeDisabled)),
		"is_water_heater_enabled": registry.NewDefinition("0b55", bit(7),
			register.DecodeMap(register.WaterHeaterEnabled, register.WaterHeaterDisabled),
			register.EncodeMap(register.WaterHeaterEnabled, register.WaterHeaterDisabled)),
		"manual_temperature": registry.NewDefinition("0b31", nil,
			register.DecodeScaledTemp, register.EncodeScaledTemp),
		"pressure": registry.NewDefinition("0b4e", nil,
			register.DecodeScaledPressure, nil),
	})
}

// ============================================================
// Refresh Tests
// ============================================================

func TestRefresh_DecodesSnapshot(t *testing.T) {
	backend := newFakeBackend(map[string]string{
		"0b55": "0802", // summer + bit 9
		"0b31": "e100", // 22.5
		"0b4e": "6400", // 1.00
	})
	c := New(backend, testRegistry(t), nil)
	defer c.Close()

	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh error: %v", err)
	}
	if backend.rangeReads != 1 {
		t.Errorf("Refresh issued %d range reads, want 1", backend.rangeReads)
	}

	checks := map[string]any{
		"heater_mode":            register.HeaterModeSummer,
		"is_manual_mode_enabled": register.ManualModeEnabled,
		"manual_temperature":     22.5,
		"pressure":               1.0,
	}
	for name, want := range checks {
		got, ok, err := c.Get(name)
		if err != nil || !ok {
			t.Fatalf("Get(%q) = %v, %v, %v", name, got, ok, err)
		}
		if got != want {
			t.Errorf("Get(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestRefresh_ClearsPending(t *testing.T) {
	backend := newFakeBackend(map[string]string{"0b31": "e100"})
	c := New(backend, testRegistry(t), nil)
	defer c.Close()

	if err := c.Set("manual_temperature", 30.0); err != nil {
		t.Fatal(err)
	}
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}

	got, _, _ := c.Get("manual_temperature")
	if got != 22.5 {
		t.Errorf("after refresh Get = %v, want device value 22.5", got)
	}
	if len(c.Pending()) != 0 {
		t.Errorf("refresh left %d pending entries", len(c.Pending()))
	}
}

func TestRefresh_FailureKeepsState(t *testing.T) {
	backend := newFakeBackend(map[string]string{"0b31": "e100"})
	c := New(backend, testRegistry(t), nil)
	defer c.Close()

	if err := c.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	backend.readErr = errors.New("device unreachable")
	if err := c.Refresh(context.Background()); err == nil {
		t.Fatal("Refresh should fail when the backend fails")
	}

	got, ok, err := c.Get("manual_temperature")
	if err != nil || !ok || got != 22.5 {
		t.Errorf("failed refresh changed state: %v, %v, %v", got, ok, err)
	}
}

func TestFromRegisters(t *testing.T) {
	c := New(newFakeBackend(nil), testRegistry(t), nil)
	defer c.Close()

	// 0b31 and 0b4e missing: default to empty, decode as 0.
	err := c.FromRegisters(map[string]string{"0b55": "2000"}) // winter bit
	if err != nil {
		t.Fatalf("FromRegisters error: %v", err)
	}

	got, _, _ := c.Get("heater_mode")
	if got != register.HeaterModeWinter {
		t.Errorf("heater_mode = %v, want Winter", got)
	}
	got, _, _ = c.Get("manual_temperature")
	if got != 0.0 {
		t.Errorf("missing register decoded to %v, want 0", got)
	}
}

func TestFromRegisters_BadHexKeepsSiblings(t *testing.T) {
	c := New(newFakeBackend(nil), testRegistry(t), nil)
	defer c.Close()

	// A corrupt 0b55 must not cost the readable 0b31.
	err := c.FromRegisters(map[string]string{
		"0b55": "zzzz",
		"0b31": "e100",
	})
	if err != nil {
		t.Fatalf("FromRegisters error: %v", err)
	}

	got, ok, err := c.Get("manual_temperature")
	if err != nil || !ok || got != 22.5 {
		t.Errorf("sibling setting = %v, %v, %v; want 22.5", got, ok, err)
	}
	// The corrupt register itself reads as empty.
	got, _, _ = c.Get("heater_mode")
	if got != register.HeaterModeOff {
		t.Errorf("corrupt register decoded to %v, want Off", got)
	}
}

func TestRefresh_BadHexKeepsSiblings(t *testing.T) {
	backend := newFakeBackend(map[string]string{
		"0b55": "nope",
		"0b31": "e100",
	})
	c := New(backend, testRegistry(t), nil)
	defer c.Close()

	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh error: %v", err)
	}
	got, ok, err := c.Get("manual_temperature")
	if err != nil || !ok || got != 22.5 {
		t.Errorf("sibling setting = %v, %v, %v; want 22.5", got, ok, err)
	}
}

// ============================================================
// Get / Set Tests
// ============================================================

func TestGet_UnknownSetting(t *testing.T) {
	c := New(newFakeBackend(nil), testRegistry(t), nil)
	defer c.Close()

	_, _, err := c.Get("no_such_setting")
	if !errors.Is(err, registry.ErrUnknownSetting) {
		t.Errorf("error = %v, want ErrUnknownSetting", err)
	}
}

func TestGet_PendingWins(t *testing.T) {
	backend := newFakeBackend(map[string]string{"0b31": "e100"})
	c := New(backend, testRegistry(t), nil)
	defer c.Close()

	if err := c.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := c.Set("manual_temperature", 30.0); err != nil {
		t.Fatal(err)
	}

	got, ok, err := c.Get("manual_temperature")
	if err != nil || !ok {
		t.Fatalf("Get = %v, %v, %v", got, ok, err)
	}
	if got != 30.0 {
		t.Errorf("Get = %v, want pending value 30", got)
	}
	if len(backend.writes) != 0 {
		t.Errorf("Set issued %d device writes before Save", len(backend.writes))
	}
}

func TestSet_ReadOnly(t *testing.T) {
	c := New(newFakeBackend(nil), testRegistry(t), nil)
	defer c.Close()

	err := c.Set("pressure", 2.5)
	if !errors.Is(err, registry.ErrReadOnlySetting) {
		t.Errorf("error = %v, want ErrReadOnlySetting", err)
	}
}

func TestSet_UnknownSetting(t *testing.T) {
	c := New(newFakeBackend(nil), testRegistry(t), nil)
	defer c.Close()

	err := c.Set("no_such_setting", 1)
	if !errors.Is(err, registry.ErrUnknownSetting) {
		t.Errorf("error = %v, want ErrUnknownSetting", err)
	}
}

// ============================================================
// Save Tests
// ============================================================

func TestSave_CoalescesSharedRegister(t *testing.T) {
	backend := newFakeBackend(map[string]string{"0b55": "0800"}) // summer
	c := New(backend, testRegistry(t), nil)
	defer c.Close()

	ctx := context.Background()
	if err := c.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	if err := c.Set("is_manual_mode_enabled", register.ManualModeEnabled); err != nil {
		t.Fatal(err)
	}
	if err := c.Set("is_water_heater_enabled", register.WaterHeaterEnabled); err != nil {
		t.Fatal(err)
	}

	if err := c.Save(ctx); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if len(backend.writes) != 1 {
		t.Fatalf("Save issued %d writes, want 1 coalesced write: %v", len(backend.writes), backend.writes)
	}
	// 0x0008 | bit 9 | bit 7 = 0x0288 -> "8802" on the wire.
	if backend.regs["0b55"] != "8802" {
		t.Errorf("register after save = %q, want %q", backend.regs["0b55"], "8802")
	}
	if len(c.Pending()) != 0 {
		t.Errorf("save left %d pending entries", len(c.Pending()))
	}
}

func TestSave_SkipsUnchangedWrite(t *testing.T) {
	backend := newFakeBackend(map[string]string{"0b55": "0802"}) // bit 9 already set
	c := New(backend, testRegistry(t), nil)
	defer c.Close()

	ctx := context.Background()
	if err := c.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	if err := c.Set("is_manual_mode_enabled", register.ManualModeEnabled); err != nil {
		t.Fatal(err)
	}
	if err := c.Save(ctx); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	if len(backend.writes) != 0 {
		t.Errorf("no-op save issued %d writes: %v", len(backend.writes), backend.writes)
	}
	if len(c.Pending()) != 0 {
		t.Errorf("no-op save left %d pending entries", len(c.Pending()))
	}
}

func TestSave_PreservesSiblingBits(t *testing.T) {
	backend := newFakeBackend(map[string]string{"0b55": "2002"}) // winter + bit 9
	c := New(backend, testRegistry(t), nil)
	defer c.Close()

	ctx := context.Background()
	if err := c.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	if err := c.Set("heater_mode", register.HeaterModeSummer); err != nil {
		t.Fatal(err)
	}
	if err := c.Save(ctx); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	// 0x0220 -> clear winter, set summer -> 0x0208 -> "0802".
	if backend.regs["0b55"] != "0802" {
		t.Errorf("register after mode change = %q, want %q", backend.regs["0b55"], "0802")
	}
	got, _, _ := c.Get("is_manual_mode_enabled")
	if got != register.ManualModeEnabled {
		t.Errorf("sibling setting after save = %v, want ENABLED", got)
	}
}

func TestSave_UpdatesSnapshotWithoutRefresh(t *testing.T) {
	backend := newFakeBackend(map[string]string{"0b31": "e100"})
	c := New(backend, testRegistry(t), nil)
	defer c.Close()

	ctx := context.Background()
	if err := c.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	if err := c.Set("manual_temperature", 21.0); err != nil {
		t.Fatal(err)
	}
	if err := c.Save(ctx); err != nil {
		t.Fatalf("Save error: %v", err)
	}

	got, ok, err := c.Get("manual_temperature")
	if err != nil || !ok || got != 21.0 {
		t.Errorf("after save Get = %v, %v, %v; want 21", got, ok, err)
	}
}

func TestSave_WithoutRefreshReadsCurrent(t *testing.T) {
	// Never refreshed: Save must fetch the register before modifying it
	// so sibling bits survive.
	backend := newFakeBackend(map[string]string{"0b55": "0800"})
	c := New(backend, testRegistry(t), nil)
	defer c.Close()

	ctx := context.Background()
	if err := c.Set("is_manual_mode_enabled", register.ManualModeEnabled); err != nil {
		t.Fatal(err)
	}
	if err := c.Save(ctx); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if backend.regs["0b55"] != "0802" {
		t.Errorf("register after save = %q, want %q", backend.regs["0b55"], "0802")
	}
}

func TestSave_PartialFailureKeepsFailedPending(t *testing.T) {
	backend := newFakeBackend(map[string]string{"0b55": "0800", "0b31": "e100"})
	c := New(backend, testRegistry(t), nil)
	defer c.Close()

	ctx := context.Background()
	if err := c.Refresh(ctx); err != nil {
		t.Fatal(err)
	}
	// Winter on 0b55 would succeed, but a bad value type on 0b31 fails
	// at encode time.
	if err := c.Set("heater_mode", register.HeaterModeWinter); err != nil {
		t.Fatal(err)
	}
	if err := c.Set("manual_temperature", "not a number"); err != nil {
		t.Fatal(err)
	}

	err := c.Save(ctx)
	if err == nil {
		t.Fatal("Save should report the failed register")
	}

	pending := c.Pending()
	if _, ok := pending["heater_mode"]; ok {
		t.Error("saved setting should be cleared from the buffer")
	}
	if _, ok := pending["manual_temperature"]; !ok {
		t.Error("failed setting should stay pending for retry")
	}
	if backend.regs["0b55"] != "2000" {
		t.Errorf("succeeded register = %q, want winter %q", backend.regs["0b55"], "2000")
	}
}

func TestSave_Empty(t *testing.T) {
	backend := newFakeBackend(map[string]string{})
	c := New(backend, testRegistry(t), nil)
	defer c.Close()

	if err := c.Save(context.Background()); err != nil {
		t.Fatalf("empty Save error: %v", err)
	}
	if len(backend.writes) != 0 {
		t.Errorf("empty save issued %d writes", len(backend.writes))
	}
}

func TestSettings_LayersPending(t *testing.T) {
	backend := newFakeBackend(map[string]string{"0b31": "e100"})
	c := New(backend, testRegistry(t), nil)
	defer c.Close()

	if err := c.Refresh(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := c.Set("manual_temperature", 19.5); err != nil {
		t.Fatal(err)
	}

	all := c.Settings()
	if all["manual_temperature"] != 19.5 {
		t.Errorf("Settings manual_temperature = %v, want pending 19.5", all["manual_temperature"])
	}
	if all["heater_mode"] != register.HeaterModeOff {
		t.Errorf("Settings heater_mode = %v, want Off", all["heater_mode"])
	}
}

func TestClose_Idempotent(t *testing.T) {
	c := New(newFakeBackend(nil), testRegistry(t), nil)
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
	if err := c.Close(); err != nil {
		t.Fatal(err)
	}
}
