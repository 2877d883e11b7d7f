package serialdiag

import "bytes"

const (
	// MaxBufferSize defines the maximum allowed receive buffer size.
	// 64KB aligns with typical OS serial buffer sizes.
	MaxBufferSize = 64 * 1024
)

// ResponseBuffer is a zero-initialised receive buffer with a fixed capacity
// and an explicit fill length. It never grows.
type ResponseBuffer struct {
	data []byte
	n    int
}

// NewResponseBuffer allocates a buffer holding at most capacity bytes.
func NewResponseBuffer(capacity int) (*ResponseBuffer, error) {
	if err := validateCapacity(capacity); err != nil {
		return nil, err
	}
	return &ResponseBuffer{data: make([]byte, capacity)}, nil
}

func validateCapacity(capacity int) error {
	if capacity <= 0 {
		return ErrInvalidBuffer
	}
	if capacity > MaxBufferSize {
		return ErrBufferTooLarge
	}
	return nil
}

// Cap is the fixed capacity.
func (b *ResponseBuffer) Cap() int { return len(b.data) }

// Len is the number of bytes filled so far.
func (b *ResponseBuffer) Len() int { return b.n }

// Space returns the unfilled tail. Its length is the most a reader may
// deliver without overflowing the buffer.
func (b *ResponseBuffer) Space() []byte {
	return b.data[b.n:]
}

// Advance marks n more bytes of Space as filled. It is clamped to the
// remaining capacity.
func (b *ResponseBuffer) Advance(n int) {
	if n < 0 {
		return
	}
	b.n = min(b.n+n, len(b.data))
}

// Bytes returns the filled region.
func (b *ResponseBuffer) Bytes() []byte {
	return b.data[:b.n]
}

// String returns the filled region up to the first NUL byte.
func (b *ResponseBuffer) String() string {
	filled := b.Bytes()
	if i := bytes.IndexByte(filled, 0); i >= 0 {
		filled = filled[:i]
	}
	return string(filled)
}

// Reset zeroes the buffer and empties it.
func (b *ResponseBuffer) Reset() {
	clear(b.data)
	b.n = 0
}
