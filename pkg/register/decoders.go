// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Jan Krl

package register

// Heater mode bit positions within the mode/flags register. The two bits
// are mutually exclusive: neither set means the heater is off.
const (
	summerBit = 3
	winterBit = 5
)

// DecodeFunc turns a raw register value into a typed setting value.
//
// bitIndex is non-nil only for bit-level settings; whole-register decoders
// ignore it. Decoders never fail loudly for well-formed input: when the
// raw value does not represent a recognized pattern they return
// (nil, false) and the caller decides whether to log.
type DecodeFunc func(raw int16, bitIndex *int) (any, bool)

// DecodeScaledTemp decodes a whole-register temperature stored in tenths
// of a degree, e.g. 215 -> 21.5.
func DecodeScaledTemp(raw int16, _ *int) (any, bool) {
	return ScaleDecode(raw, TempScale), true
}

// DecodeScaledPressure decodes a whole-register pressure stored in
// hundredths of a bar, e.g. 100 -> 1.0.
func DecodeScaledPressure(raw int16, _ *int) (any, bool) {
	return ScaleDecode(raw, PressureScale), true
}

// DecodeBitBoolean decodes a single flag bit. bitIndex is required.
func DecodeBitBoolean(raw int16, bitIndex *int) (any, bool) {
	if bitIndex == nil {
		return nil, false
	}
	return GetBit(raw, *bitIndex), true
}

// DecodeMap returns a decoder that maps a flag bit onto a pair of enum
// values: bit set -> trueValue, bit clear -> falseValue.
func DecodeMap(trueValue, falseValue any) DecodeFunc {
	return func(raw int16, bitIndex *int) (any, bool) {
		b, ok := DecodeBitBoolean(raw, bitIndex)
		if !ok {
			return nil, false
		}
		if b.(bool) {
			return trueValue, true
		}
		return falseValue, true
	}
}

// DecodeHeaterMode decodes the operating mode packed into bits 3 (summer)
// and 5 (winter) of the mode register. Both bits set is an invalid state
// only reachable through external tampering; summer takes precedence so
// the result stays deterministic. bitIndex is ignored.
func DecodeHeaterMode(raw int16, _ *int) (any, bool) {
	switch {
	case GetBit(raw, summerBit):
		return HeaterModeSummer, true
	case GetBit(raw, winterBit):
		return HeaterModeWinter, true
	default:
		return HeaterModeOff, true
	}
}

// decoderTable maps config decoder identifiers to decoder functions.
// "map" is special: the loader builds it from parameters via DecodeMap.
var decoderTable = map[string]DecodeFunc{
	"heater_mode":     DecodeHeaterMode,
	"scaled_temp":     DecodeScaledTemp,
	"scaled_pressure": DecodeScaledPressure,
	"bit_boolean":     DecodeBitBoolean,
}

// LookupDecoder resolves a config decoder identifier.
func LookupDecoder(name string) (DecodeFunc, bool) {
	d, ok := decoderTable[name]
	return d, ok
}
