// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Jan Krl

package register

import "fmt"

// HeaterMode is the heater operating mode.
type HeaterMode string

const (
	HeaterModeSummer HeaterMode = "Summer" // only water is heated
	HeaterModeWinter HeaterMode = "Winter" // water and radiators are heated
	HeaterModeOff    HeaterMode = "Off"
)

// ManualMode reports whether the heater runs on its manual setpoint or
// follows the programmed schedule.
type ManualMode string

const (
	ManualModeEnabled  ManualMode = "Manual mode"
	ManualModeDisabled ManualMode = "Auto mode"
)

// WaterHeaterState reports whether domestic hot water heating is enabled.
type WaterHeaterState string

const (
	WaterHeaterEnabled  WaterHeaterState = "Water heater enabled"
	WaterHeaterDisabled WaterHeaterState = "Water heater disabled"
)

// ValvePosition is the position of the three-way valve.
type ValvePosition string

const (
	ValvePositionDHW ValvePosition = "DHW" // domestic hot water
	ValvePositionCO  ValvePosition = "CO"  // central heating
)

// PumpStatus reports whether a circulation pump is running.
type PumpStatus string

const (
	PumpRunning PumpStatus = "Running"
	PumpIdle    PumpStatus = "Idle"
)

// enumMembers maps enum type name -> member name -> value. The registry
// loader resolves YAML enum paths ("ManualMode.ENABLED") through this
// table so config files never reference Go identifiers directly.
var enumMembers = map[string]map[string]any{
	"HeaterMode": {
		"SUMMER": HeaterModeSummer,
		"WINTER": HeaterModeWinter,
		"OFF":    HeaterModeOff,
	},
	"ManualMode": {
		"ENABLED":  ManualModeEnabled,
		"DISABLED": ManualModeDisabled,
	},
	"WaterHeaterState": {
		"ENABLED":  WaterHeaterEnabled,
		"DISABLED": WaterHeaterDisabled,
	},
	"ValvePosition": {
		"DHW": ValvePositionDHW,
		"CO":  ValvePositionCO,
	},
	"PumpStatus": {
		"RUNNING": PumpRunning,
		"IDLE":    PumpIdle,
	},
}

// LookupEnum resolves an enum path of the form "EnumName.MEMBER" to its
// value, e.g. "HeaterMode.WINTER" -> HeaterModeWinter.
func LookupEnum(path string) (any, error) {
	for i := 0; i < len(path); i++ {
		if path[i] != '.' {
			continue
		}
		enumName, memberName := path[:i], path[i+1:]
		members, ok := enumMembers[enumName]
		if !ok {
			return nil, fmt.Errorf("unknown enum %q in path %q", enumName, path)
		}
		value, ok := members[memberName]
		if !ok {
			return nil, fmt.Errorf("unknown member %q in enum %s", memberName, enumName)
		}
		return value, nil
	}
	return nil, fmt.Errorf("invalid enum path %q (want \"EnumName.MEMBER\")", path)
}

// ParseEnumValue finds the enum value whose display string matches s,
// e.g. "Winter" -> HeaterModeWinter. Used by the CLI to turn user input
// into setting values. Returns false when no enum member matches.
func ParseEnumValue(s string) (any, bool) {
	for _, members := range enumMembers {
		for _, value := range members {
			if fmt.Sprintf("%v", value) == s {
				return value, true
			}
		}
	}
	return nil, false
}
