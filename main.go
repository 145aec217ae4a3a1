// SPDX-License-Identifier: MIT
package main

import (
	"fmt"
	"os"

	"pocket/cmd"
	"pocket/pkg/build"
)

// main initialises build information, then hands over to the command tree.
// Commands own their resources (PortAudio, servers, the terminal) and
// release them before returning, so errors are reported here on exit.
func main() {
	if err := build.Initialize(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
