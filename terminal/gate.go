package terminal

import (
	"sync"
)

// gate is the readiness state machine in front of every terminal
// operation. Pipe connection and first-byte delivery are asynchronous, so
// operations issued right after construction would otherwise race the
// handshake and target an unconnected pipe. Until the first data arrival
// the gate captures operations in a FIFO queue; the first data arrival
// flips it to ready exactly once, drains the queue in enqueue order, and
// from then on operations execute inline.
type gate struct {
	mu    sync.Mutex
	ready bool
	calls []func() error
	done  chan struct{}
}

func newGate() *gate {
	return &gate{done: make(chan struct{})}
}

// run executes fn inline when the gate is ready, otherwise enqueues it.
// The deferred path cannot fail synchronously; fn's error surfaces when it
// eventually runs.
func (g *gate) run(fn func() error) error {
	g.mu.Lock()
	if !g.ready {
		g.calls = append(g.calls, fn)
		g.mu.Unlock()
		return nil
	}
	g.mu.Unlock()

	return fn()
}

// fire transitions the gate to ready and drains the queue. Only the first
// call has any effect; the transition never reverses. The queue lock is
// held across the drain so operations arriving mid-drain execute strictly
// after every queued call.
func (g *gate) fire(onErr func(error)) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.ready {
		return
	}
	g.ready = true

	for _, fn := range g.calls {
		if err := fn(); err != nil && onErr != nil {
			onErr(err)
		}
	}
	g.calls = nil

	// Signal readiness only once the queue is drained, so observers of
	// Ready see every deferred operation already executed.
	close(g.done)
}

// Ready returns a channel closed on the readiness transition. Any number
// of observers can await it.
func (g *gate) Ready() <-chan struct{} {
	return g.done
}

func (g *gate) isReady() bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	return g.ready
}

// pending returns the number of captured calls. Used by tests and debug
// logging only.
func (g *gate) pending() int {
	g.mu.Lock()
	defer g.mu.Unlock()

	return len(g.calls)
}
