// Package io provides small stream helpers used by the terminal pumps.
package io

import (
	"context"
	"io"
)

// ContextReader delivers reads from an underlying reader until its
// context is canceled. A single background goroutine owns every call to
// the underlying Read, so cancellation never leaks one goroutine per
// pending read; a Read in flight at cancellation finishes in the
// background and its result is discarded.
type ContextReader struct {
	ctx context.Context
	req chan []byte
	res chan readResult
}

type readResult struct {
	n   int
	err error
}

func NewContextReader(ctx context.Context, r io.Reader) *ContextReader {
	cr := &ContextReader{
		ctx: ctx,
		req: make(chan []byte),
		res: make(chan readResult),
	}
	go cr.serve(r)

	return cr
}

func (cr *ContextReader) serve(r io.Reader) {
	for {
		select {
		case <-cr.ctx.Done():
			return
		case p := <-cr.req:
			n, err := r.Read(p)
			select {
			case cr.res <- readResult{n: n, err: err}:
			case <-cr.ctx.Done():
				return
			}
		}
	}
}

func (cr *ContextReader) Read(p []byte) (int, error) {
	select {
	case cr.req <- p:
	case <-cr.ctx.Done():
		return 0, cr.ctx.Err()
	}

	select {
	case rr := <-cr.res:
		return rr.n, rr.err
	case <-cr.ctx.Done():
		return 0, cr.ctx.Err()
	}
}
