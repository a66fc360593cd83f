// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Jan Krl

package register

import "fmt"

// EncodeFunc turns a typed setting value into a raw register value.
//
// bitIndex is non-nil only for bit-level settings. current is the
// register's last-known raw value; bit-level encoders require it to
// preserve sibling bits (read-modify-write) and fail with
// ErrMissingContext when it is absent. A silent fallback would risk
// writing a zeroed register over live flags.
type EncodeFunc func(value any, bitIndex *int, current *int16) (int16, error)

// EncodeScaledTemp encodes a temperature in degrees to tenths of a
// degree. bitIndex and current are ignored (whole-register write).
func EncodeScaledTemp(value any, _ *int, _ *int16) (int16, error) {
	v, err := toFloat(value)
	if err != nil {
		return 0, err
	}
	return ScaleEncode(v, TempScale)
}

// EncodeScaledPressure encodes a pressure in bars to hundredths of a bar.
func EncodeScaledPressure(value any, _ *int, _ *int16) (int16, error) {
	v, err := toFloat(value)
	if err != nil {
		return 0, err
	}
	return ScaleEncode(v, PressureScale)
}

// EncodeBitBoolean encodes a boolean into a single bit of the register,
// preserving every other bit of current.
func EncodeBitBoolean(value any, bitIndex *int, current *int16) (int16, error) {
	state, ok := value.(bool)
	if !ok {
		return 0, fmt.Errorf("cannot encode %T as flag bit", value)
	}
	if bitIndex == nil {
		return 0, ErrBitIndexRequired
	}
	if current == nil {
		return 0, ErrMissingContext
	}
	return SetBit(*current, *bitIndex, state), nil
}

// EncodeMap returns an encoder that maps a pair of enum values onto a
// flag bit: trueValue -> bit set, falseValue -> bit clear. Plain booleans
// are accepted as well.
func EncodeMap(trueValue, falseValue any) EncodeFunc {
	return func(value any, bitIndex *int, current *int16) (int16, error) {
		var state bool
		switch {
		case value == trueValue:
			state = true
		case value == falseValue:
			state = false
		default:
			b, ok := value.(bool)
			if !ok {
				return 0, fmt.Errorf("cannot map %v (%T) onto flag bit", value, value)
			}
			state = b
		}
		return EncodeBitBoolean(state, bitIndex, current)
	}
}

// EncodeHeaterMode encodes the operating mode into bits 3 (summer) and
// 5 (winter) of the mode register. The two bits are mutually exclusive:
// setting one mode always clears the other, whatever the prior state.
// current is required so the remaining flag bits survive the write.
func EncodeHeaterMode(value any, _ *int, current *int16) (int16, error) {
	mode, ok := value.(HeaterMode)
	if !ok {
		return 0, fmt.Errorf("cannot encode %T as heater mode", value)
	}
	if current == nil {
		return 0, ErrMissingContext
	}

	raw := *current
	switch mode {
	case HeaterModeSummer:
		raw = SetBit(raw, summerBit, true)
		raw = SetBit(raw, winterBit, false)
	case HeaterModeWinter:
		raw = SetBit(raw, summerBit, false)
		raw = SetBit(raw, winterBit, true)
	case HeaterModeOff:
		raw = SetBit(raw, summerBit, false)
		raw = SetBit(raw, winterBit, false)
	default:
		return 0, fmt.Errorf("unknown heater mode %q", mode)
	}
	return raw, nil
}

// encoderTable maps config encoder identifiers to encoder functions.
// "map" is special: the loader builds it from parameters via EncodeMap.
var encoderTable = map[string]EncodeFunc{
	"heater_mode":     EncodeHeaterMode,
	"scaled_temp":     EncodeScaledTemp,
	"scaled_pressure": EncodeScaledPressure,
	"bit_boolean":     EncodeBitBoolean,
}

// LookupEncoder resolves a config encoder identifier.
func LookupEncoder(name string) (EncodeFunc, bool) {
	e, ok := encoderTable[name]
	return e, ok
}

func toFloat(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int16:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("cannot encode %T as scaled value", value)
	}
}
