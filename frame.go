// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package linerpc

import "bytes"

// frameBuffer accumulates bytes read from a stream and yields complete
// newline-terminated messages. Empty segments are skipped; a trailing partial
// message stays buffered until more data arrives.
type frameBuffer struct {
	buf []byte
	off int
}

// Write appends a received chunk. It never fails.
func (f *frameBuffer) Write(p []byte) (int, error) {
	if f.off > 0 && f.off == len(f.buf) {
		f.buf = f.buf[:0]
		f.off = 0
	}
	f.buf = append(f.buf, p...)
	return len(p), nil
}

// Next returns the next complete message without its delimiter. The slice is
// only valid until the following Write.
func (f *frameBuffer) Next() ([]byte, bool) {
	for {
		rest := f.buf[f.off:]
		i := bytes.IndexByte(rest, Delimiter)
		if i < 0 {
			f.compact()
			return nil, false
		}
		f.off += i + 1
		if i > 0 {
			return rest[:i], true
		}
	}
}

// Buffered is the number of bytes waiting for a delimiter.
func (f *frameBuffer) Buffered() int {
	return len(f.buf) - f.off
}

func (f *frameBuffer) compact() {
	if f.off == 0 {
		return
	}
	n := copy(f.buf, f.buf[f.off:])
	f.buf = f.buf[:n]
	f.off = 0
}
