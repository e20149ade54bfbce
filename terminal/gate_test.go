package terminal

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGateDefersUntilFired(t *testing.T) {
	assert := assert.New(t)

	g := newGate()

	var order []int
	for i := 1; i <= 3; i++ {
		i := i
		require.NoError(t, g.run(func() error {
			order = append(order, i)
			return nil
		}))
	}

	assert.False(g.isReady())
	assert.Equal(3, g.pending())
	assert.Empty(order, "no call may run before the transition")

	g.fire(nil)

	assert.True(g.isReady())
	assert.Equal(0, g.pending())
	assert.Equal([]int{1, 2, 3}, order)

	select {
	case <-g.Ready():
	default:
		t.Fatal("Ready channel not closed after fire")
	}
}

func TestGateRunsInlineWhenReady(t *testing.T) {
	assert := assert.New(t)

	g := newGate()
	g.fire(nil)

	ran := false
	assert.NoError(g.run(func() error {
		ran = true
		return nil
	}))
	assert.True(ran)
	assert.Equal(0, g.pending())
}

func TestGateFiresOnce(t *testing.T) {
	assert := assert.New(t)

	g := newGate()

	count := 0
	assert.NoError(g.run(func() error {
		count++
		return nil
	}))

	g.fire(nil)
	g.fire(nil)
	g.fire(nil)

	assert.Equal(1, count, "a deferred call executes exactly once")
}

func TestGateReportsDeferredErrors(t *testing.T) {
	assert := assert.New(t)

	g := newGate()
	boom := errors.New("boom")

	// The deferred path cannot fail synchronously.
	assert.NoError(g.run(func() error { return boom }))

	var reported []error
	g.fire(func(err error) { reported = append(reported, err) })

	assert.Equal([]error{boom}, reported)
}

func TestGateInlineErrorsPropagate(t *testing.T) {
	g := newGate()
	g.fire(nil)

	boom := errors.New("boom")
	assert.ErrorIs(t, g.run(func() error { return boom }), boom)
}
