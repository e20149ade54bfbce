package terminal

import (
	"errors"
	"strings"
	"syscall"
)

var (
	// ErrOpenUnsupported is returned by Open: only spawning a new process
	// is supported, not attaching to an existing terminal device.
	ErrOpenUnsupported = errors.New("terminal: open an existing terminal is not supported")

	// ErrSignalUnsupported is returned by Kill when a signal is given.
	ErrSignalUnsupported = errors.New("terminal: signal delivery is not supported")

	// ErrClosed is returned by operations on a terminal whose session has
	// ended.
	ErrClosed = errors.New("terminal: closed")
)

// isBenignHangup reports whether a channel error is the expected
// "sole attached process exited" condition. The kernel reports EIO when
// reading a pty master whose last slave closed; older bindings surface the
// same condition as a bare "errno 5" message.
// See https://github.com/creack/pty/issues/21 for the EIO case.
func isBenignHangup(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, syscall.EIO) {
		return true
	}

	msg := err.Error()
	return strings.Contains(msg, "errno 5") || strings.Contains(msg, "EIO")
}
