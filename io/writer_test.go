package io

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMultiWriterFansOut(t *testing.T) {
	require := require.New(t)
	assert := assert.New(t)

	var a, b bytes.Buffer
	w := NewMultiWriter(&a)

	_, err := w.Write([]byte("one"))
	require.NoError(err)

	// A late writer receives the most recent write.
	require.NoError(w.Append(&b))
	assert.Equal("one", b.String())

	_, err = w.Write([]byte("two"))
	require.NoError(err)
	assert.Equal("onetwo", a.String())
	assert.Equal("onetwo", b.String())

	w.Remove(&b)
	_, err = w.Write([]byte("three"))
	require.NoError(err)
	assert.Equal("onetwothree", a.String())
	assert.Equal("onetwo", b.String())
}
