//go:build !windows

package terminal

import (
	"fmt"
	"os"
	"os/exec"
	"sync"

	ptylib "github.com/creack/pty"
)

// DefaultProvider returns the platform pty primitive. On POSIX systems
// that is a creack/pty backed provider.
func DefaultProvider() Provider {
	return NewUnixProvider()
}

// UnixProvider spawns processes on a POSIX pty. It keeps a pid-keyed
// registry of live sessions so Resize and Kill can address them.
type UnixProvider struct {
	mu       sync.Mutex
	sessions map[int]*unixSession
}

type unixSession struct {
	ptmx *guardedPty
	cmd  *exec.Cmd
}

func NewUnixProvider() *UnixProvider {
	return &UnixProvider{sessions: make(map[int]*unixSession)}
}

func (p *UnixProvider) Spawn(req SpawnRequest) (*Session, error) {
	cmd := exec.Command(req.Argv[0], req.Argv[1:]...)
	cmd.Dir = req.Dir
	cmd.Env = req.Env

	f, err := ptylib.StartWithSize(cmd, &ptylib.Winsize{
		Cols: uint16(req.Cols),
		Rows: uint16(req.Rows),
	})
	if err != nil {
		return nil, fmt.Errorf("start pty: %w", err)
	}

	ptmx := &guardedPty{f: f}
	pid := cmd.Process.Pid

	p.mu.Lock()
	p.sessions[pid] = &unixSession{ptmx: ptmx, cmd: cmd}
	p.mu.Unlock()

	go func() {
		// Reap the child and drop it from the registry.
		_ = cmd.Wait()
		p.mu.Lock()
		delete(p.sessions, pid)
		p.mu.Unlock()
	}()

	return &Session{
		Input:  &ptyWriter{p: ptmx},
		Output: &ptyReader{p: ptmx},
		Pid:    pid,
		Fd:     int(f.Fd()),
		PtyID:  nextPtyID(),
	}, nil
}

func (p *UnixProvider) Resize(pid, cols, rows int) error {
	sess := p.lookup(pid)
	if sess == nil {
		return fmt.Errorf("resize: no session for pid %d: %w", pid, ErrClosed)
	}

	return sess.ptmx.setsize(cols, rows)
}

func (p *UnixProvider) Kill(pid int) error {
	sess := p.lookup(pid)
	if sess == nil {
		// Already exited and reaped.
		return nil
	}

	return sess.cmd.Process.Kill()
}

func (p *UnixProvider) lookup(pid int) *unixSession {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.sessions[pid]
}

// guardedPty wraps the pty file with a read/write mutex. This prevents
// the data race that can happen between resizing, reading and closing
// the same descriptor.
type guardedPty struct {
	f         *os.File
	mu        sync.RWMutex
	closeOnce sync.Once
	closeErr  error
}

func (p *guardedPty) read(b []byte) (int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.f.Read(b)
}

func (p *guardedPty) write(b []byte) (int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return p.f.Write(b)
}

func (p *guardedPty) setsize(cols, rows int) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	return ptylib.Setsize(p.f, &ptylib.Winsize{
		Cols: uint16(cols),
		Rows: uint16(rows),
	})
}

func (p *guardedPty) close() error {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		defer p.mu.Unlock()

		p.closeErr = p.f.Close()
	})

	return p.closeErr
}

// ptyReader and ptyWriter are the two directional endpoints handed to the
// agent. On POSIX both map onto the same pty device; they stay distinct
// connections, and closing either releases the device exactly once.
type ptyReader struct{ p *guardedPty }

func (r *ptyReader) Read(b []byte) (int, error) { return r.p.read(b) }
func (r *ptyReader) Close() error               { return r.p.close() }

type ptyWriter struct{ p *guardedPty }

func (w *ptyWriter) Write(b []byte) (int, error) { return w.p.write(b) }
func (w *ptyWriter) Close() error                { return w.p.close() }
