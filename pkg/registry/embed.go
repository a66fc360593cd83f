// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Jan Krl

package registry

import (
	"embed"
	"fmt"
)

// Definition sets shipped with the library are compiled into the binary
// so loading by name needs no files on disk.
//
//go:embed configs/*.yaml
var configsFS embed.FS

// Load loads an embedded definition set by name, e.g.
// "kospel_cmi_standard".
func Load(name string) (*Registry, error) {
	data, err := configsFS.ReadFile("configs/" + name + ".yaml")
	if err != nil {
		return nil, &ConfigError{Problems: []string{fmt.Sprintf("definition set %q not found", name)}}
	}
	return Parse(data)
}
