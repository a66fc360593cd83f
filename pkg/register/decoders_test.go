// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Jan Krl

package register

import "testing"

func bit(i int) *int { return &i }

// ============================================================
// Scaled Value Decoder Tests
// ============================================================

func TestDecodeScaledTemp(t *testing.T) {
	tests := []struct {
		name     string
		raw      int16
		expected float64
	}{
		{"21.5 degrees", 215, 21.5},
		{"22.5 degrees", 225, 22.5},
		{"zero", 0, 0.0},
		{"negative", -55, -5.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := DecodeScaledTemp(tt.raw, nil)
			if !ok {
				t.Fatalf("DecodeScaledTemp(%d) failed", tt.raw)
			}
			if got.(float64) != tt.expected {
				t.Errorf("DecodeScaledTemp(%d) = %v, want %v", tt.raw, got, tt.expected)
			}
		})
	}
}

func TestDecodeScaledPressure(t *testing.T) {
	got, ok := DecodeScaledPressure(100, nil)
	if !ok || got.(float64) != 1.0 {
		t.Errorf("DecodeScaledPressure(100) = %v, %v; want 1.0, true", got, ok)
	}
	got, ok = DecodeScaledPressure(500, nil)
	if !ok || got.(float64) != 5.0 {
		t.Errorf("DecodeScaledPressure(500) = %v, %v; want 5.0, true", got, ok)
	}
}

// Scaled decoders ignore a bit index if one is configured.
func TestScaledDecoders_IgnoreBitIndex(t *testing.T) {
	got, ok := DecodeScaledTemp(215, bit(9))
	if !ok || got.(float64) != 21.5 {
		t.Errorf("DecodeScaledTemp with bit index = %v, %v; want 21.5, true", got, ok)
	}
}

// ============================================================
// Bit-Level Decoder Tests
// ============================================================

func TestDecodeBitBoolean(t *testing.T) {
	// 0x0200: only bit 9 set
	raw := int16(0x0200)

	got, ok := DecodeBitBoolean(raw, bit(9))
	if !ok || got.(bool) != true {
		t.Errorf("bit 9 of 0x0200 = %v, %v; want true", got, ok)
	}
	got, ok = DecodeBitBoolean(raw, bit(3))
	if !ok || got.(bool) != false {
		t.Errorf("bit 3 of 0x0200 = %v, %v; want false", got, ok)
	}
}

func TestDecodeBitBoolean_RequiresBitIndex(t *testing.T) {
	if _, ok := DecodeBitBoolean(0x0200, nil); ok {
		t.Error("DecodeBitBoolean without bit index should fail")
	}
}

func TestDecodeMap(t *testing.T) {
	decode := DecodeMap(ManualModeEnabled, ManualModeDisabled)

	got, ok := decode(0x0200, bit(9))
	if !ok || got != ManualModeEnabled {
		t.Errorf("map decode of set bit = %v, %v; want ENABLED", got, ok)
	}
	got, ok = decode(0, bit(9))
	if !ok || got != ManualModeDisabled {
		t.Errorf("map decode of clear bit = %v, %v; want DISABLED", got, ok)
	}
	if _, ok := decode(0, nil); ok {
		t.Error("map decode without bit index should fail")
	}
}

// ============================================================
// Heater Mode Decoder Tests
// ============================================================

func TestDecodeHeaterMode(t *testing.T) {
	tests := []struct {
		name     string
		raw      int16
		expected HeaterMode
	}{
		{"summer bit set", 1 << 3, HeaterModeSummer},
		{"winter bit set", 1 << 5, HeaterModeWinter},
		{"neither bit set", 0, HeaterModeOff},
		{"other flags only", int16(0x0200), HeaterModeOff},
		{"summer among other flags", int16(0x0208), HeaterModeSummer},
		// Both mode bits set is invalid; summer takes precedence.
		{"both bits set", 1<<3 | 1<<5, HeaterModeSummer},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := DecodeHeaterMode(tt.raw, nil)
			if !ok {
				t.Fatalf("DecodeHeaterMode(%#04x) failed", uint16(tt.raw))
			}
			if got != tt.expected {
				t.Errorf("DecodeHeaterMode(%#04x) = %v, want %v", uint16(tt.raw), got, tt.expected)
			}
		})
	}
}

// ============================================================
// Lookup Table Tests
// ============================================================

func TestLookupDecoder(t *testing.T) {
	for _, name := range []string{"heater_mode", "scaled_temp", "scaled_pressure", "bit_boolean"} {
		if _, ok := LookupDecoder(name); !ok {
			t.Errorf("decoder %q not registered", name)
		}
	}
	if _, ok := LookupDecoder("nonexistent"); ok {
		t.Error("unknown decoder should not resolve")
	}
}

func TestLookupEnum(t *testing.T) {
	got, err := LookupEnum("HeaterMode.WINTER")
	if err != nil || got != HeaterModeWinter {
		t.Errorf("LookupEnum(HeaterMode.WINTER) = %v, %v", got, err)
	}
	if _, err := LookupEnum("NoSuchEnum.MEMBER"); err == nil {
		t.Error("unknown enum should fail")
	}
	if _, err := LookupEnum("HeaterMode.NOPE"); err == nil {
		t.Error("unknown member should fail")
	}
	if _, err := LookupEnum("justaname"); err == nil {
		t.Error("path without dot should fail")
	}
}

func TestParseEnumValue(t *testing.T) {
	got, ok := ParseEnumValue("Winter")
	if !ok || got != HeaterModeWinter {
		t.Errorf("ParseEnumValue(Winter) = %v, %v", got, ok)
	}
	if _, ok := ParseEnumValue("NotAnEnumValue"); ok {
		t.Error("unknown display value should not resolve")
	}
}
