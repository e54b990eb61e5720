// SPDX-License-Identifier: MIT
package main

import (
	"specview/cmd"
	applog "specview/internal/log"
	"specview/pkg/build"
)

// main initialises build information and hands over to the command tree.
// Commands return their errors here rather than exiting themselves.
func main() {
	if err := build.Initialize(); err != nil {
		applog.Fatalf("%v", err)
	}

	if err := cmd.Execute(); err != nil {
		applog.Fatalf("%v", err)
	}
}
