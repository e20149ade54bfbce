//go:build windows

package terminal

import (
	"fmt"
	"os"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"
)

// DefaultProvider returns the platform pty primitive. On Windows that is
// a ConPTY backed provider.
func DefaultProvider() Provider {
	return NewConPtyProvider()
}

// ConPtyProvider spawns processes attached to a Windows pseudo console.
// The child is created with CreateProcessW from the pre-encoded command
// line, which is the argv convention the cmdline package targets.
type ConPtyProvider struct {
	mu       sync.Mutex
	sessions map[int]*conptySession
}

type conptySession struct {
	console windows.Handle
	process windows.Handle
}

func NewConPtyProvider() *ConPtyProvider {
	return &ConPtyProvider{sessions: make(map[int]*conptySession)}
}

func (p *ConPtyProvider) Spawn(req SpawnRequest) (*Session, error) {
	// Two pipe pairs: the console reads input from inR and writes output
	// to outW; the agent keeps the opposite ends.
	inR, inW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("create input pipe: %w", err)
	}
	outR, outW, err := os.Pipe()
	if err != nil {
		inR.Close()
		inW.Close()
		return nil, fmt.Errorf("create output pipe: %w", err)
	}

	var console windows.Handle
	size := coord(req.Cols, req.Rows)
	if err := windows.CreatePseudoConsole(size, windows.Handle(inR.Fd()), windows.Handle(outW.Fd()), 0, &console); err != nil {
		inR.Close()
		inW.Close()
		outR.Close()
		outW.Close()
		return nil, fmt.Errorf("create pseudo console: %w", err)
	}

	// The console duplicated its ends of the pipes.
	inR.Close()
	outW.Close()

	pid, process, err := spawnWithConsole(console, req)
	if err != nil {
		windows.ClosePseudoConsole(console)
		inW.Close()
		outR.Close()
		return nil, err
	}

	p.mu.Lock()
	p.sessions[pid] = &conptySession{console: console, process: process}
	p.mu.Unlock()

	go func() {
		// Reap the child, then release the console and registry entry.
		windows.WaitForSingleObject(process, windows.INFINITE)
		p.mu.Lock()
		delete(p.sessions, pid)
		p.mu.Unlock()
		windows.ClosePseudoConsole(console)
		windows.CloseHandle(process)
	}()

	return &Session{
		Input:  inW,
		Output: outR,
		Pid:    pid,
		Fd:     -1, // ConPTY exposes no file descriptor
		PtyID:  nextPtyID(),
	}, nil
}

func (p *ConPtyProvider) Resize(pid, cols, rows int) error {
	sess := p.lookup(pid)
	if sess == nil {
		return fmt.Errorf("resize: no session for pid %d: %w", pid, ErrClosed)
	}

	if err := windows.ResizePseudoConsole(sess.console, coord(cols, rows)); err != nil {
		return fmt.Errorf("resize pseudo console: %w", err)
	}

	return nil
}

func (p *ConPtyProvider) Kill(pid int) error {
	sess := p.lookup(pid)
	if sess == nil {
		// Already exited and reaped.
		return nil
	}

	if err := windows.TerminateProcess(sess.process, 1); err != nil {
		return fmt.Errorf("terminate process %d: %w", pid, err)
	}

	return nil
}

func (p *ConPtyProvider) lookup(pid int) *conptySession {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.sessions[pid]
}

// spawnWithConsole starts the child with the pseudo console attached via
// the proc-thread attribute list, handing CreateProcessW the pre-encoded
// command line verbatim.
func spawnWithConsole(console windows.Handle, req SpawnRequest) (int, windows.Handle, error) {
	attrs, err := windows.NewProcThreadAttributeList(1)
	if err != nil {
		return 0, 0, fmt.Errorf("create attribute list: %w", err)
	}
	defer attrs.Delete()

	if err := attrs.Update(
		windows.PROC_THREAD_ATTRIBUTE_PSEUDOCONSOLE,
		unsafe.Pointer(console),
		unsafe.Sizeof(console),
	); err != nil {
		return 0, 0, fmt.Errorf("attach pseudo console: %w", err)
	}

	cmdLine, err := windows.UTF16PtrFromString(req.CommandLine)
	if err != nil {
		return 0, 0, fmt.Errorf("encode command line: %w", err)
	}

	var dir *uint16
	if req.Dir != "" {
		dir, err = windows.UTF16PtrFromString(req.Dir)
		if err != nil {
			return 0, 0, fmt.Errorf("encode working directory: %w", err)
		}
	}

	env, err := utf16EnvBlock(req.Env)
	if err != nil {
		return 0, 0, fmt.Errorf("encode environment: %w", err)
	}

	si := &windows.StartupInfoEx{
		ProcThreadAttributeList: attrs.List(),
	}
	si.StartupInfo.Cb = uint32(unsafe.Sizeof(*si))

	flags := uint32(windows.EXTENDED_STARTUPINFO_PRESENT | windows.CREATE_UNICODE_ENVIRONMENT)

	var pi windows.ProcessInformation
	if err := windows.CreateProcess(
		nil,
		cmdLine,
		nil,
		nil,
		false,
		flags,
		env,
		dir,
		&si.StartupInfo,
		&pi,
	); err != nil {
		return 0, 0, fmt.Errorf("create process: %w", err)
	}

	windows.CloseHandle(pi.Thread)

	return int(pi.ProcessId), pi.Process, nil
}

// utf16EnvBlock flattens "KEY=VALUE" pairs into the NUL separated,
// double NUL terminated block CreateProcessW expects. A nil return means
// inherit the parent environment.
func utf16EnvBlock(env []string) (*uint16, error) {
	if len(env) == 0 {
		return nil, nil
	}

	var block []uint16
	for _, kv := range env {
		u, err := windows.UTF16FromString(kv)
		if err != nil {
			return nil, fmt.Errorf("environment entry %q: %w", kv, err)
		}
		block = append(block, u...)
	}
	block = append(block, 0)

	return &block[0], nil
}

func coord(cols, rows int) windows.Coord {
	return windows.Coord{X: int16(cols), Y: int16(rows)}
}
