package iocoro

// Buffer is a mutable view over a byte slice: a thin, allocation-free
// wrapper that read/write operations consume and advance, rather than every
// call site juggling raw []byte slicing by hand.
type Buffer struct {
	data []byte
	pos  int
}

// NewBuffer wraps buf starting at offset 0.
func NewBuffer(buf []byte) *Buffer { return &Buffer{data: buf} }

// Bytes returns the unconsumed remainder.
func (b *Buffer) Bytes() []byte { return b.data[b.pos:] }

// Len returns how many unconsumed bytes remain.
func (b *Buffer) Len() int { return len(b.data) - b.pos }

// Advance marks n bytes as consumed, e.g. after a successful Write of n
// bytes from Bytes().
func (b *Buffer) Advance(n int) {
	b.pos += n
	if b.pos > len(b.data) {
		b.pos = len(b.data)
	}
}

// Reset rewinds the buffer to the start of its backing slice.
func (b *Buffer) Reset() { b.pos = 0 }

// ConstBuffer is Buffer's read-only counterpart, for call sites that must
// not mutate the caller's slice: a separate type from the mutable Buffer so
// the two cannot be confused at compile time. It has no mutating methods,
// though Bytes returns the wrapped slice itself. The socket facades take
// plain []byte rather than either type.
type ConstBuffer struct {
	data []byte
}

// NewConstBuffer wraps buf as a read-only view.
func NewConstBuffer(buf []byte) ConstBuffer { return ConstBuffer{data: buf} }

// Bytes returns the wrapped data.
func (c ConstBuffer) Bytes() []byte { return c.data }

// Len returns the number of bytes in the view.
func (c ConstBuffer) Len() int { return len(c.data) }
