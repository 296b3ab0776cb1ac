// Command viewportal opens a portal window fed by a capture source.
//
// Usage:
//
//	viewportal run --config viewportal.yaml [--debug]
//
// Keys typed in the terminal are forwarded to the window; q, Esc or
// Ctrl-C closes it.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
