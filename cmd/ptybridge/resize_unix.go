//go:build !windows

package main

import (
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/term"

	"github.com/ptybridge/ptybridge/terminal"
)

// watchResize forwards window size changes of the controlling terminal to
// the pty. The returned func stops the watcher.
func watchResize(t *terminal.Terminal) func() {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGWINCH)

	go func() {
		for range ch {
			if w, h, err := term.GetSize(int(os.Stdin.Fd())); err == nil {
				_ = t.Resize(w, h)
			}
		}
	}()

	return func() {
		signal.Stop(ch)
		close(ch)
	}
}
