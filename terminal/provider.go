package terminal

import (
	"io"
	"sync/atomic"
)

// Default geometry substituted for missing or zero dimensions.
const (
	DefaultCols = 80
	DefaultRows = 30
)

// SpawnRequest carries everything a Provider needs to create the child
// process and its pty. Argv holds the executable path followed by the
// argument list; CommandLine is the same vector encoded with
// cmdline.Encode. A provider binds whichever form its primitive takes:
// CreateProcess-style primitives consume CommandLine, exec-style
// primitives consume Argv.
type SpawnRequest struct {
	Path        string
	Argv        []string
	CommandLine string
	Env         []string // "KEY=VALUE" pairs, flat C-style block
	Dir         string   // absolute working directory
	Cols        int
	Rows        int
	Debug       bool
}

// Session is what a Provider hands back for a spawned process. Input and
// Output are distinct endpoints of the two directional pipes; neither
// substitutes for the other. Fd is -1 when the platform exposes no file
// descriptor for the pty.
type Session struct {
	Input  io.WriteCloser
	Output io.ReadCloser
	Pid    int
	Fd     int
	PtyID  int
}

// Provider is the native pty primitive the terminal core is built on.
// Which concrete provider to use is resolved once, at construction, via
// Options.Provider or DefaultProvider.
type Provider interface {
	Spawn(req SpawnRequest) (*Session, error)
	Resize(pid, cols, rows int) error
	Kill(pid int) error
}

var ptyCounter atomic.Int64

// nextPtyID returns a process-lifetime unique pty id.
func nextPtyID() int {
	return int(ptyCounter.Add(1))
}
