// Package terminal presents a spawned pty session as a stream-oriented,
// event-driven handle. A Terminal owns exactly one agent (the process and
// its two directional pipes) and gates every operation behind a readiness
// handshake so that nothing issued before the pipes are connected is lost
// or misordered.
package terminal

import (
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/olebedev/emitter"
	"github.com/rs/xid"
)

const eventBufferSize = 16

// Options configures a Terminal. The zero value is usable: geometry falls
// back to 80x30, the working directory to the current one, the
// environment to the process environment and the provider to the platform
// default.
type Options struct {
	// Name is a label reported by Process. Defaults to $TERM, then "pty".
	Name string

	Cols int
	Rows int

	// Dir is the working directory for the child process.
	Dir string

	// Env is the environment as "KEY=VALUE" pairs. Use FlattenEnv to
	// build it from a map.
	Env []string

	Debug bool

	// Timeout, when positive, raises a timeout event after that long
	// with no output from the child.
	Timeout time.Duration

	// Provider is the native pty primitive. Defaults to DefaultProvider.
	Provider Provider

	Logger *slog.Logger
}

// Terminal is the public handle for one pty session.
type Terminal struct {
	id    string
	name  string
	dir   string
	debug bool

	provider Provider
	logger   *slog.Logger
	events   *emitter.Emitter
	gate     *gate
	agent    *agent
	timeout  time.Duration

	startOnce sync.Once

	mu     sync.Mutex
	cols   int
	rows   int
	closed bool
	exited bool
	err    error
}

// New spawns path with args on a fresh pty and returns its Terminal. A
// provider failure (executable not found, resource exhaustion) propagates
// synchronously and no usable Terminal is returned. The I/O pumps do not
// run until Start, so subscriptions made in between cannot miss output.
func New(path string, args []string, opts Options) (*Terminal, error) {
	if opts.Cols <= 0 {
		opts.Cols = DefaultCols
	}
	if opts.Rows <= 0 {
		opts.Rows = DefaultRows
	}
	if opts.Name == "" {
		opts.Name = os.Getenv("TERM")
	}
	if opts.Name == "" {
		opts.Name = "pty"
	}
	if opts.Dir == "" {
		opts.Dir = "."
	}
	if opts.Env == nil {
		opts.Env = os.Environ()
	}
	if opts.Provider == nil {
		opts.Provider = DefaultProvider()
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	id := xid.New().String()
	logger = logger.With("component", "terminal", "terminal", id)

	t := &Terminal{
		id:       id,
		name:     opts.Name,
		dir:      opts.Dir,
		debug:    opts.Debug,
		provider: opts.Provider,
		logger:   logger,
		events:   emitter.New(eventBufferSize),
		gate:     newGate(),
		timeout:  opts.Timeout,
		cols:     opts.Cols,
		rows:     opts.Rows,
	}
	// Deliver synchronously so successive data events reach a subscriber
	// in emit order. A subscriber that stops reading exerts backpressure
	// on the pumps once its buffer fills.
	t.events.Use("*", emitter.Sync)
	t.agent = newAgent(opts.Provider, logger.With("component", "agent"))

	if err := t.agent.spawn(path, args, opts.Env, opts.Dir, opts.Cols, opts.Rows, opts.Debug); err != nil {
		return nil, err
	}

	return t, nil
}

// Start launches the I/O pumps. Subscribe to the event topics of
// interest before calling it: the emitter drops events with no
// listeners, so output pumped before a data subscriber attaches would
// be lost. Until Start the child's output stays buffered in the pipe.
// Idempotent.
func (t *Terminal) Start() {
	t.startOnce.Do(func() {
		t.agent.start(t, t.timeout)
	})
}

// On subscribes to an event topic. See the Event constants.
func (t *Terminal) On(topic string, middlewares ...func(*emitter.Event)) <-chan emitter.Event {
	return t.events.On(topic, middlewares...)
}

// Off removes topic subscriptions.
func (t *Terminal) Off(topic string, channels ...<-chan emitter.Event) {
	t.events.Off(topic, channels...)
}

// Ready returns a channel closed once the first byte arrived on the
// output channel and all deferred operations have run.
func (t *Terminal) Ready() <-chan struct{} {
	return t.gate.Ready()
}

// Open always fails: this binding only spawns new processes.
func (t *Terminal) Open() error {
	return ErrOpenUnsupported
}

// Write sends data to the child's input channel. Before readiness the
// write is captured and delivered, in order, on the readiness transition.
func (t *Terminal) Write(data []byte) error {
	buf := make([]byte, len(data))
	copy(buf, data)

	return t.gate.run(func() error {
		return t.agent.write(buf)
	})
}

// WriteString is Write for strings.
func (t *Terminal) WriteString(s string) error {
	return t.Write([]byte(s))
}

// Resize updates the stored geometry and asks the provider to resize the
// pty. Zero or negative dimensions fall back to the 80x30 default. The
// whole operation is gated: before readiness the stored geometry keeps
// its previous values until the deferred call runs.
func (t *Terminal) Resize(cols, rows int) error {
	if cols <= 0 {
		cols = DefaultCols
	}
	if rows <= 0 {
		rows = DefaultRows
	}

	return t.gate.run(func() error {
		t.mu.Lock()
		t.cols, t.rows = cols, rows
		t.mu.Unlock()

		return t.provider.Resize(t.agent.pid, cols, rows)
	})
}

// Kill ends the session. Passing a signal fails with
// ErrSignalUnsupported: the platform convention this binding follows has
// no process signals, only termination.
func (t *Terminal) Kill(signal ...string) error {
	if len(signal) > 0 {
		return ErrSignalUnsupported
	}

	return t.gate.run(func() error {
		return t.kill()
	})
}

// Destroy is Kill with no signal.
func (t *Terminal) Destroy() error {
	return t.Kill()
}

// Pause suspends delivery of output data events until Resume.
func (t *Terminal) Pause() error {
	return t.gate.run(func() error {
		t.agent.pause()
		return nil
	})
}

// Resume lifts a Pause.
func (t *Terminal) Resume() error {
	return t.gate.run(func() error {
		t.agent.resume()
		return nil
	})
}

// Process returns the configured terminal name. It is a label, not a live
// inspection of the foreground process.
func (t *Terminal) Process() string {
	return t.name
}

// Pid returns the child process id.
func (t *Terminal) Pid() int {
	return t.agent.pid
}

// Fd returns the platform file descriptor of the pty, or -1 when the
// platform exposes none.
func (t *Terminal) Fd() int {
	return t.agent.fd
}

// PtyID returns the opaque, process-lifetime unique pty id.
func (t *Terminal) PtyID() int {
	return t.agent.ptyID
}

// Cols returns the stored column count.
func (t *Terminal) Cols() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.cols
}

// Rows returns the stored row count.
func (t *Terminal) Rows() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.rows
}

// Err returns the first escalated channel error, if any.
func (t *Terminal) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.err
}

// Wait blocks until the session ended and both pumps stopped. Valid
// only after Start.
func (t *Terminal) Wait() {
	<-t.agent.done
}

func (t *Terminal) kill() error {
	t.markClosed()

	if err := t.provider.Kill(t.agent.pid); err != nil {
		return err
	}

	return nil
}

// markClosed is the internal close bookkeeping. Idempotent; actual
// resource release is driven by the output channel's close, not here.
func (t *Terminal) markClosed() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return
	}
	t.closed = true
	t.logger.Debug("session marked closed")
}

// sink implementation: raw channel signals from the agent's pumps.

func (t *Terminal) outputConnected() {
	t.logger.Debug("output channel connected")
	t.events.Emit(EventConnect)
}

func (t *Terminal) outputData(p []byte) {
	// First data flips the gate and drains deferred calls before the
	// data event is forwarded.
	t.gate.fire(func(err error) {
		t.logger.Warn("deferred call failed", "error", err)
	})
	t.events.Emit(EventData, p)
}

func (t *Terminal) outputEnd() {
	t.events.Emit(EventEnd)
}

func (t *Terminal) outputTimeout() {
	t.events.Emit(EventTimeout)
}

func (t *Terminal) inputDrained() {
	t.events.Emit(EventDrain)
}

// outputClosed fires the exit event exactly once, with a nil payload
// because the exit code is unknown in this binding, then runs close
// bookkeeping.
func (t *Terminal) outputClosed() {
	t.mu.Lock()
	if t.exited {
		t.mu.Unlock()
		return
	}
	t.exited = true
	t.mu.Unlock()

	t.events.Emit(EventExit, nil)
	t.markClosed()
}

// channelError classifies a pipe error. The "sole process exited" hangup
// is the expected end-of-session condition and is suppressed. Anything
// else is forwarded to error subscribers, or escalated into Err and the
// log when nobody subscribed.
func (t *Terminal) channelError(err error) {
	if isBenignHangup(err) {
		t.logger.Debug("benign pipe close", "error", err)
		return
	}

	if len(t.events.Listeners(EventError)) == 0 {
		t.mu.Lock()
		if t.err == nil {
			t.err = err
		}
		t.mu.Unlock()
		t.logger.Error("unhandled channel error", "error", err)
		return
	}

	t.events.Emit(EventError, err)
}
