// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Jan Krl

package registry

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/JanKrl/kospel-cmi-lib/pkg/register"
)

// ConfigError reports every validation problem found while loading a
// definition set. Loading never constructs a partial registry: one bad
// setting fails the whole load, with all problems collected so a config
// can be fixed in a single pass.
type ConfigError struct {
	Problems []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("registry config: %s", strings.Join(e.Problems, "; "))
}

// settingSpec is the YAML schema for one setting. Decode and Encode are
// kept as raw nodes because they accept either a plain identifier or a
// parameterized map form:
//
//	decode: scaled_temp
//	decode:
//	  type: map
//	  true_value: ManualMode.ENABLED
//	  false_value: ManualMode.DISABLED
type settingSpec struct {
	Register string    `yaml:"register"`
	BitIndex *int      `yaml:"bit_index"`
	Decode   yaml.Node `yaml:"decode"`
	Encode   yaml.Node `yaml:"encode"`
}

type mapSpec struct {
	Type       string `yaml:"type"`
	TrueValue  string `yaml:"true_value"`
	FalseValue string `yaml:"false_value"`
}

// LoadFile loads a definition set from a YAML file on disk.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry config: %w", err)
	}
	return Parse(data)
}

// Parse builds a registry from YAML definition-set content. All
// validation problems are collected into a single *ConfigError.
func Parse(data []byte) (*Registry, error) {
	var raw map[string]settingSpec
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &ConfigError{Problems: []string{fmt.Sprintf("invalid YAML: %v", err)}}
	}
	if len(raw) == 0 {
		return nil, &ConfigError{Problems: []string{"definition set is empty"}}
	}

	// Validate in name order so error output is deterministic.
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)

	var problems []string
	defs := make(map[string]Definition, len(raw))
	for _, name := range names {
		def, errs := parseSetting(name, raw[name])
		if len(errs) > 0 {
			problems = append(problems, errs...)
			continue
		}
		defs[name] = def
	}
	problems = append(problems, checkSinglePage(names, defs)...)

	if len(problems) > 0 {
		return nil, &ConfigError{Problems: problems}
	}
	return New(defs), nil
}

// checkSinglePage verifies every register shares one address page
// prefix. Span's range math relies on this.
func checkSinglePage(names []string, defs map[string]Definition) []string {
	page := ""
	for _, name := range names {
		def, ok := defs[name]
		if !ok {
			continue
		}
		prefix := def.Register[:2]
		if page == "" {
			page = prefix
			continue
		}
		if prefix != page {
			return []string{fmt.Sprintf(
				"%s: register %s is outside address page %q; all registers must share one page",
				name, def.Register, page)}
		}
	}
	return nil
}

func parseSetting(name string, spec settingSpec) (Definition, []string) {
	var problems []string

	if spec.Register == "" {
		problems = append(problems, fmt.Sprintf("%s: register is required", name))
	} else if _, err := register.AddressToIndex(spec.Register); err != nil {
		problems = append(problems, fmt.Sprintf("%s: invalid register %q", name, spec.Register))
	}

	if spec.BitIndex != nil && (*spec.BitIndex < 0 || *spec.BitIndex > 15) {
		problems = append(problems, fmt.Sprintf("%s: bit_index %d outside [0,15]", name, *spec.BitIndex))
	}

	decode, decodeIsMap, errs := resolveDecode(name, spec.Decode)
	problems = append(problems, errs...)

	encode, encodeIsMap, errs := resolveEncode(name, spec.Encode)
	problems = append(problems, errs...)

	// Map decoders and encoders operate on a single flag bit; a
	// definition using one without a bit index can never decode.
	if (decodeIsMap || encodeIsMap) && spec.BitIndex == nil {
		problems = append(problems, fmt.Sprintf("%s: map decode/encode requires bit_index", name))
	}

	if len(problems) > 0 {
		return Definition{}, problems
	}
	return Definition{
		Register: spec.Register,
		BitIndex: spec.BitIndex,
		decode:   decode,
		encode:   encode,
	}, nil
}

func resolveDecode(name string, node yaml.Node) (register.DecodeFunc, bool, []string) {
	switch node.Kind {
	case 0:
		return nil, false, []string{fmt.Sprintf("%s: decode is required", name)}
	case yaml.ScalarNode:
		var id string
		if err := node.Decode(&id); err != nil {
			return nil, false, []string{fmt.Sprintf("%s: invalid decode: %v", name, err)}
		}
		d, ok := register.LookupDecoder(id)
		if !ok {
			return nil, false, []string{fmt.Sprintf("%s: unknown decoder %q", name, id)}
		}
		return d, false, nil
	case yaml.MappingNode:
		trueVal, falseVal, errs := resolveMapSpec(name, "decode", node)
		if len(errs) > 0 {
			return nil, true, errs
		}
		return register.DecodeMap(trueVal, falseVal), true, nil
	default:
		return nil, false, []string{fmt.Sprintf("%s: decode must be an identifier or a map spec", name)}
	}
}

func resolveEncode(name string, node yaml.Node) (register.EncodeFunc, bool, []string) {
	switch node.Kind {
	case 0:
		// Absent encoder marks the setting read-only.
		return nil, false, nil
	case yaml.ScalarNode:
		var id string
		if err := node.Decode(&id); err != nil {
			return nil, false, []string{fmt.Sprintf("%s: invalid encode: %v", name, err)}
		}
		e, ok := register.LookupEncoder(id)
		if !ok {
			return nil, false, []string{fmt.Sprintf("%s: unknown encoder %q", name, id)}
		}
		return e, false, nil
	case yaml.MappingNode:
		trueVal, falseVal, errs := resolveMapSpec(name, "encode", node)
		if len(errs) > 0 {
			return nil, true, errs
		}
		return register.EncodeMap(trueVal, falseVal), true, nil
	default:
		return nil, false, []string{fmt.Sprintf("%s: encode must be an identifier or a map spec", name)}
	}
}

func resolveMapSpec(name, kind string, node yaml.Node) (trueVal, falseVal any, problems []string) {
	var spec mapSpec
	if err := node.Decode(&spec); err != nil {
		return nil, nil, []string{fmt.Sprintf("%s: invalid %s spec: %v", name, kind, err)}
	}
	if spec.Type != "map" {
		return nil, nil, []string{fmt.Sprintf("%s: unknown %s type %q", name, kind, spec.Type)}
	}
	if spec.TrueValue == "" || spec.FalseValue == "" {
		return nil, nil, []string{fmt.Sprintf("%s: %s map requires true_value and false_value", name, kind)}
	}

	trueVal, err := register.LookupEnum(spec.TrueValue)
	if err != nil {
		problems = append(problems, fmt.Sprintf("%s: %s: %v", name, kind, err))
	}
	falseVal, err = register.LookupEnum(spec.FalseValue)
	if err != nil {
		problems = append(problems, fmt.Sprintf("%s: %s: %v", name, kind, err))
	}
	if len(problems) > 0 {
		return nil, nil, problems
	}
	return trueVal, falseVal, nil
}
