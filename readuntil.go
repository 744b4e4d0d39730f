package iocoro

import (
	"bytes"
	"context"
)

// Reader is the minimal read contract ReadUntil needs, satisfied by
// *StreamConn and *MockConn.
type Reader interface {
	Read(ctx context.Context, buf []byte) (int, error)
}

// ReadUntil reads from r until delim appears in the accumulated data. It
// returns the data up to and including delim, plus any bytes read past the
// delimiter that the caller should prepend to its next read (a tiny
// leftover buffer, since sockets have no "unread" operation). start is
// reused as the destination buffer's backing array to avoid callers having
// to manage their own accumulator.
func ReadUntil(ctx context.Context, r Reader, start []byte, delim []byte) (line []byte, rest []byte, err error) {
	buf := start
	for {
		if idx := bytes.Index(buf, delim); idx >= 0 {
			end := idx + len(delim)
			line = append([]byte(nil), buf[:end]...)
			rest = append([]byte(nil), buf[end:]...)
			return line, rest, nil
		}
		chunk := make([]byte, DefaultReadBufferSize)
		n, rerr := r.Read(ctx, chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
		}
		if rerr != nil {
			return nil, buf, rerr
		}
	}
}
