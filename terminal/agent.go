package terminal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/oklog/run"

	"github.com/ptybridge/ptybridge/cmdline"
	pio "github.com/ptybridge/ptybridge/io"
)

const (
	outputBufferSize = 32 * 1024
	writeQueueSize   = 64
)

// sink receives the low-level channel signals raised by the agent's pumps.
// The Terminal implements it and turns signals into consumer events.
type sink interface {
	outputConnected()
	outputData(p []byte)
	outputEnd()
	outputTimeout()
	outputClosed()
	inputDrained()
	channelError(err error)
}

// agent owns one spawned pty session: the process id, the pty id and the
// two directional pipe endpoints. It establishes the pipes via the
// provider and pumps their bytes, forwarding the raw signals to its sink.
type agent struct {
	provider Provider
	logger   *slog.Logger

	pid   int
	fd    int
	ptyID int

	input  io.WriteCloser
	output io.ReadCloser

	writeCh chan []byte

	ctx    context.Context
	cancel context.CancelFunc

	pauseMu  sync.Mutex
	pausedCh chan struct{}

	closeOnce sync.Once
	closeErr  error
	done      chan struct{}
}

func newAgent(provider Provider, logger *slog.Logger) *agent {
	ctx, cancel := context.WithCancel(context.Background())

	return &agent{
		provider: provider,
		logger:   logger,
		fd:       -1,
		writeCh:  make(chan []byte, writeQueueSize),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// spawn resolves the working directory, encodes the command line and asks
// the provider for a live session. A provider failure propagates
// synchronously; no partial agent state is valid afterwards.
func (a *agent) spawn(path string, args, env []string, dir string, cols, rows int, debug bool) error {
	if path == "" {
		return errors.New("terminal: empty executable path")
	}

	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolve working directory: %w", err)
	}

	argv := append([]string{path}, args...)

	sess, err := a.provider.Spawn(SpawnRequest{
		Path:        path,
		Argv:        argv,
		CommandLine: cmdline.Encode(argv),
		Env:         env,
		Dir:         absDir,
		Cols:        cols,
		Rows:        rows,
		Debug:       debug,
	})
	if err != nil {
		return fmt.Errorf("spawn pty: %w", err)
	}

	a.pid = sess.Pid
	a.fd = sess.Fd
	a.ptyID = sess.PtyID
	a.input = sess.Input
	a.output = sess.Output

	a.logger.Debug("spawned pty session", "pid", a.pid, "pty_id", a.ptyID)

	return nil
}

// start launches the pump group. The output pump owns the session
// lifetime: when it returns the group interrupts the input pump, the
// pipes are closed and the sink is told the output channel closed.
func (a *agent) start(s sink, idle time.Duration) {
	var g run.Group
	{
		ctx, cancel := context.WithCancel(a.ctx)
		g.Add(func() error {
			return a.pumpOutput(ctx, s, idle)
		}, func(error) {
			cancel()
		})
	}
	{
		ctx, cancel := context.WithCancel(a.ctx)
		g.Add(func() error {
			return a.pumpInput(ctx, s)
		}, func(error) {
			cancel()
		})
	}

	go func() {
		err := g.Run()
		if err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Debug("pump group finished", "error", err)
		}
		_ = a.close()
		s.outputClosed()
		close(a.done)
	}()
}

// pumpOutput signals the connected handshake, then forwards data chunks
// until end of stream. An idle watchdog, when configured, raises a
// timeout signal after that long with no output.
func (a *agent) pumpOutput(ctx context.Context, s sink, idle time.Duration) error {
	s.outputConnected()

	var watchdog *time.Timer
	if idle > 0 {
		watchdog = time.AfterFunc(idle, s.outputTimeout)
		defer watchdog.Stop()
	}

	r := pio.NewContextReader(ctx, a.output)
	buf := make([]byte, outputBufferSize)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			// A pause holds the chunk in flight until resumed.
			if werr := a.waitResumed(ctx); werr != nil {
				return werr
			}
			if watchdog != nil {
				watchdog.Reset(idle)
			}
			data := make([]byte, n)
			copy(data, buf[:n])
			s.outputData(data)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.outputEnd()
				return nil
			}
			if errors.Is(err, context.Canceled) {
				return err
			}
			s.channelError(err)
			return err
		}
	}
}

// pumpInput flushes queued writes to the input endpoint in FIFO order and
// signals drain whenever the queue empties after carrying data.
func (a *agent) pumpInput(ctx context.Context, s sink) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case p := <-a.writeCh:
			if _, err := a.input.Write(p); err != nil {
				s.channelError(err)
				return err
			}
			if len(a.writeCh) == 0 {
				s.inputDrained()
			}
		}
	}
}

// write enqueues p for the input pump. The queue preserves enqueue order.
func (a *agent) write(p []byte) error {
	buf := make([]byte, len(p))
	copy(buf, p)

	select {
	case a.writeCh <- buf:
		return nil
	case <-a.ctx.Done():
		return ErrClosed
	}
}

// pause suspends the output pump after the chunk in flight.
func (a *agent) pause() {
	a.pauseMu.Lock()
	defer a.pauseMu.Unlock()

	if a.pausedCh == nil {
		a.pausedCh = make(chan struct{})
	}
}

// resume lifts a pause. A no-op when the pump is running.
func (a *agent) resume() {
	a.pauseMu.Lock()
	defer a.pauseMu.Unlock()

	if a.pausedCh != nil {
		close(a.pausedCh)
		a.pausedCh = nil
	}
}

func (a *agent) waitResumed(ctx context.Context) error {
	a.pauseMu.Lock()
	ch := a.pausedCh
	a.pauseMu.Unlock()

	if ch == nil {
		return nil
	}

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// close releases both pipe endpoints. Idempotent; pump teardown and the
// kill path both funnel through here.
func (a *agent) close() error {
	a.closeOnce.Do(func() {
		a.cancel()
		a.resume()

		var result *multierror.Error
		if a.input != nil {
			if err := a.input.Close(); err != nil {
				result = multierror.Append(result, err)
			}
		}
		if a.output != nil {
			if err := a.output.Close(); err != nil {
				result = multierror.Append(result, err)
			}
		}
		a.closeErr = result.ErrorOrNil()
	})

	return a.closeErr
}
