// Copyright (c) 2024 The spvpeer developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"io"
)

// shortWriter accepts writes until limit bytes were written and fails any
// write that would go past it with io.ErrShortWrite.
type shortWriter struct {
	limit   int
	written int
}

func (w *shortWriter) Write(p []byte) (int, error) {
	if w.written+len(p) > w.limit {
		return 0, io.ErrShortWrite
	}
	w.written += len(p)
	return len(p), nil
}

// newShortWriter returns a writer that fails once more than limit bytes were
// written.
func newShortWriter(limit int) io.Writer {
	return &shortWriter{limit: limit}
}

// newShortReader returns a reader over the first limit bytes of buf, padded
// with zeros when buf is shorter.  Reading past them yields io.EOF.
func newShortReader(limit int, buf []byte) io.Reader {
	b := make([]byte, limit)
	copy(b, buf)
	return bytes.NewReader(b)
}
