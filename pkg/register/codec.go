// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Jan Krl

// Package register implements the bit-level codec for Kospel heater
// registers and the typed decoders/encoders built on top of it.
//
// A register is a 16-bit storage cell on the device, transmitted as a
// 4-character lowercase hex string in little-endian byte order and
// interpreted as a signed two's-complement integer. Meaning is imposed
// entirely by the setting definitions that reference a register: a whole
// register may carry a scaled temperature or pressure, or individual bits
// may carry independent boolean flags.
package register

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

// Fixed-point scale factors used by the heater firmware.
const (
	TempScale     = 10  // temperatures are stored in tenths of a degree
	PressureScale = 100 // pressures are stored in hundredths of a bar
)

// Errors returned by the codec layer.
var (
	// ErrMalformedRegister indicates a wire value that is not exactly
	// 4 hex characters.
	ErrMalformedRegister = errors.New("malformed register value")

	// ErrOutOfRange indicates a scaled value that does not fit in a
	// signed 16-bit register.
	ErrOutOfRange = errors.New("value out of int16 range")

	// ErrMissingContext indicates a bit-level encoder invoked without the
	// current raw register value required for read-modify-write.
	ErrMissingContext = errors.New("current register value required for read-modify-write")

	// ErrBitIndexRequired indicates a bit-level decode or encode invoked
	// without a bit index.
	ErrBitIndexRequired = errors.New("bit index required")
)

// Decode converts the heater's little-endian hex string to a signed
// 16-bit integer, e.g. "d700" -> 0x00d7 -> 215.
func Decode(hexVal string) (int16, error) {
	if len(hexVal) != 4 {
		return 0, fmt.Errorf("%w: %q (want 4 hex characters)", ErrMalformedRegister, hexVal)
	}
	// Swap the bytes: low byte is transmitted first.
	swapped := hexVal[2:] + hexVal[:2]
	unsigned, err := strconv.ParseUint(swapped, 16, 16)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrMalformedRegister, hexVal)
	}
	return int16(unsigned), nil
}

// Encode converts a signed 16-bit integer to the heater's little-endian
// hex string. Inverse of Decode: round-trips exactly for every int16.
func Encode(value int16) string {
	hexStr := fmt.Sprintf("%04x", uint16(value))
	return hexStr[2:] + hexStr[:2]
}

// GetBit reports whether bit bitIndex (0-15) is set in value.
func GetBit(value int16, bitIndex int) bool {
	return uint16(value)&(1<<uint(bitIndex)) != 0
}

// SetBit returns value with bit bitIndex (0-15) set or cleared.
// Exactly one bit differs from the input; all others are preserved.
func SetBit(value int16, bitIndex int, state bool) int16 {
	if state {
		return int16(uint16(value) | 1<<uint(bitIndex))
	}
	return int16(uint16(value) &^ (1 << uint(bitIndex)))
}

// ScaleDecode converts a raw register value to a real-world quantity by
// dividing by the fixed-point factor.
func ScaleDecode(raw int16, factor float64) float64 {
	return float64(raw) / factor
}

// ScaleEncode converts a real-world quantity to a raw register value by
// multiplying by the fixed-point factor and rounding. Returns
// ErrOutOfRange when the scaled value does not fit in an int16.
func ScaleEncode(value float64, factor float64) (int16, error) {
	scaled := math.Round(value * factor)
	if scaled < math.MinInt16 || scaled > math.MaxInt16 {
		return 0, fmt.Errorf("%w: %v scaled by %v", ErrOutOfRange, value, factor)
	}
	return int16(scaled), nil
}

// AddressToIndex converts a register address token (e.g. "0b51") to its
// numeric index within the address page, for sorting and range math.
func AddressToIndex(address string) (int, error) {
	if len(address) != 4 {
		return 0, fmt.Errorf("%w: address %q (want 4 hex characters)", ErrMalformedRegister, address)
	}
	n, err := strconv.ParseUint(address[2:], 16, 8)
	if err != nil {
		return 0, fmt.Errorf("%w: address %q", ErrMalformedRegister, address)
	}
	return int(n), nil
}

// AddressFromIndex builds a register address token from a 2-character
// page prefix (e.g. "0b") and an index. The device uses an 8-bit address
// space per page, so indexes outside 0-255 are rejected.
func AddressFromIndex(prefix string, index int) (string, error) {
	if index < 0 || index > 255 {
		return "", fmt.Errorf("register index %d outside 8-bit address space", index)
	}
	return fmt.Sprintf("%s%02x", prefix, index), nil
}
