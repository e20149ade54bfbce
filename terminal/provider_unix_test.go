//go:build !windows

package terminal

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnixProviderEndToEnd(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	term, err := New("sh", []string{"-c", "echo go; cat"}, Options{})
	require.NoError(err)
	defer func() {
		_ = term.Destroy()
		term.Wait()
	}()

	var mu sync.Mutex
	var output bytes.Buffer
	dataCh := term.On(EventData)
	defer term.Off(EventData, dataCh)
	go func() {
		for evt := range dataCh {
			if data, ok := evt.Args[0].([]byte); ok {
				mu.Lock()
				output.Write(data)
				mu.Unlock()
			}
		}
	}()

	// Issued before the first byte of output; delivered on readiness.
	require.NoError(term.WriteString("ping\n"))

	term.Start()

	select {
	case <-term.Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("terminal never became ready")
	}

	require.NoError(term.Resize(100, 40))
	assert.Equal(100, term.Cols())
	assert.Equal(40, term.Rows())

	assert.Eventually(func() bool {
		mu.Lock()
		defer mu.Unlock()
		return strings.Contains(output.String(), "ping")
	}, 5*time.Second, 20*time.Millisecond, "deferred write should round-trip through the pty")

	assert.Greater(term.Pid(), 0)
	assert.Greater(term.Fd(), 0)
}

func TestUnixProviderDestroy(t *testing.T) {
	require := require.New(t)

	term, err := New("sh", []string{"-c", "echo started; sleep 30"}, Options{})
	require.NoError(err)

	exitCh := term.On(EventExit)
	defer term.Off(EventExit, exitCh)

	term.Start()

	select {
	case <-term.Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("terminal never became ready")
	}

	require.NoError(term.Destroy())

	select {
	case <-exitCh:
	case <-time.After(5 * time.Second):
		t.Fatal("no exit event after destroy")
	}

	done := make(chan struct{})
	go func() {
		term.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("pumps did not stop after destroy")
	}
}
