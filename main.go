// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Jan Krl
//
// Kospel - control and inspect Kospel heaters through the C.MI module.

package main

import (
	"fmt"
	"os"

	"github.com/JanKrl/kospel-cmi-lib/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
