// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 CLN Plugin Host Contributors

package rpccore

import (
	"bytes"
	"io"
)

// frameDelim is the message boundary used on both stdio and the RPC
// socket: every JSON-RPC object, inbound or outbound, is followed by a
// blank line.
var frameDelim = []byte("\n\n")

const initialFrameBuf = 4096

// FrameReader accumulates bytes from r into a growable buffer and yields
// one complete frame (the bytes before a "\n\n" delimiter) at a time. It
// mirrors the original's read buffer, which doubles in size whenever a
// read leaves it full without having found a terminator, and treats a
// buffer that is entirely whitespace as empty rather than a parse error.
type FrameReader struct {
	r      io.Reader
	buf    []byte
	used   int
	onGrow func()
}

// NewFrameReader wraps r. r is read only by ReadFrame, never concurrently.
func NewFrameReader(r io.Reader) *FrameReader {
	return &FrameReader{r: r, buf: make([]byte, initialFrameBuf)}
}

// OnGrow installs a callback invoked each time the internal buffer
// doubles in size, used to feed the bufferGrowths metric.
func (fr *FrameReader) OnGrow(fn func()) {
	fr.onGrow = fn
}

// ReadFrame blocks until one full frame is available and returns its
// bytes, excluding the delimiter. The returned slice is owned by the
// caller; it is copied out of the internal buffer and safe to retain.
//
// ReadFrame returns io.EOF once r is exhausted, whether or not a
// trailing partial frame remains buffered: a partial frame at EOF is not
// a protocol violation on its own (the node closes stdin when it has
// nothing left to say), it just means there is nothing more to dispatch.
func (fr *FrameReader) ReadFrame() ([]byte, error) {
	for {
		if idx := bytes.Index(fr.buf[:fr.used], frameDelim); idx >= 0 {
			frame := make([]byte, idx)
			copy(frame, fr.buf[:idx])
			fr.consume(idx + len(frameDelim))
			if len(bytes.TrimSpace(frame)) == 0 {
				continue
			}
			return frame, nil
		}

		if fr.used == len(fr.buf) {
			fr.grow()
		}

		n, err := fr.r.Read(fr.buf[fr.used:])
		if n > 0 {
			fr.used += n
		}
		if err != nil {
			if err == io.EOF {
				return nil, io.EOF
			}
			return nil, err
		}
	}
}

func (fr *FrameReader) consume(n int) {
	remaining := fr.used - n
	copy(fr.buf, fr.buf[n:fr.used])
	fr.used = remaining
}

func (fr *FrameReader) grow() {
	next := make([]byte, len(fr.buf)*2)
	copy(next, fr.buf[:fr.used])
	fr.buf = next
	if fr.onGrow != nil {
		fr.onGrow()
	}
}

// EncodeFrame returns the raw JSON bytes followed by the frame
// delimiter, ready to be written to stdout or the RPC socket in one
// Write call.
func EncodeFrame(raw []byte) []byte {
	out := make([]byte, 0, len(raw)+len(frameDelim))
	out = append(out, raw...)
	out = append(out, frameDelim...)
	return out
}
