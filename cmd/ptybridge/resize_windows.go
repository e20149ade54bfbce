//go:build windows

package main

import (
	"github.com/ptybridge/ptybridge/terminal"
)

// watchResize is a no-op: Windows has no SIGWINCH. Callers resize
// explicitly via Terminal.Resize.
func watchResize(*terminal.Terminal) func() {
	return func() {}
}
