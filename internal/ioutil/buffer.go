// Package ioutil provides the Buffer type shared by the filter pipeline,
// the storage layer, and the block-delta engine: a byte slice with three
// cursors — size, used, and limit — instead of the plain growable slice
// the standard library's bytes.Buffer offers.
package ioutil

import (
	"fmt"
	"io"
)

// Buffer is a fixed-capacity byte buffer with an adjustable limit. size is
// the capacity of the backing array, used is how much of it holds valid
// data, and limit caps how much of the buffer a filter stage is currently
// allowed to fill. The invariant used <= limit <= size holds after every
// mutating call.
type Buffer struct {
	data  []byte
	used  int
	limit int
}

// NewBuffer allocates a Buffer with the given capacity. limit starts equal
// to size.
func NewBuffer(size int) *Buffer {
	return &Buffer{data: make([]byte, size), limit: size}
}

// NewBufferFromBytes wraps an existing slice as a full Buffer: size and
// limit equal len(b), used equals len(b).
func NewBufferFromBytes(b []byte) *Buffer {
	return &Buffer{data: b, used: len(b), limit: len(b)}
}

// Size returns the capacity of the backing array.
func (b *Buffer) Size() int {
	return len(b.data)
}

// Used returns the number of valid bytes currently in the buffer.
func (b *Buffer) Used() int {
	return b.used
}

// Limit returns the current limit.
func (b *Buffer) Limit() int {
	return b.limit
}

// Remaining returns how many more bytes may be written before hitting the
// limit.
func (b *Buffer) Remaining() int {
	return b.limit - b.used
}

// Bytes returns the valid portion of the buffer, [0:used).
func (b *Buffer) Bytes() []byte {
	return b.data[:b.used]
}

// Unused returns the writable portion of the buffer, [used:limit).
func (b *Buffer) Unused() []byte {
	return b.data[b.used:b.limit]
}

// SetLimit changes the limit. newLimit must be between used and size
// inclusive; otherwise SetLimit panics, since a caller shrinking the limit
// below used or raising it above size is a contract violation, not a
// recoverable condition.
func (b *Buffer) SetLimit(newLimit int) {
	if newLimit < b.used || newLimit > len(b.data) {
		panic(fmt.Sprintf("ioutil: invalid limit %d (used=%d size=%d)", newLimit, b.used, len(b.data)))
	}
	b.limit = newLimit
}

// SetUsed sets the number of valid bytes directly, for callers that wrote
// into Unused() themselves (e.g. io.Reader.Read into the unused region).
// newUsed must be between 0 and limit inclusive.
func (b *Buffer) SetUsed(newUsed int) {
	if newUsed < 0 || newUsed > b.limit {
		panic(fmt.Sprintf("ioutil: invalid used %d (limit=%d)", newUsed, b.limit))
	}
	b.used = newUsed
}

// Write appends p to the buffer, growing used but never past limit. It
// implements io.Writer. Returns ErrBufferFull if p does not fit.
func (b *Buffer) Write(p []byte) (int, error) {
	if len(p) > b.Remaining() {
		return 0, ErrBufferFull
	}
	n := copy(b.data[b.used:b.limit], p)
	b.used += n
	return n, nil
}

// Read implements io.Reader, draining from the front of the buffer and
// compacting the remainder. Returns io.EOF once used reaches zero.
func (b *Buffer) Read(p []byte) (int, error) {
	if b.used == 0 {
		return 0, io.EOF
	}
	n := copy(p, b.data[:b.used])
	copy(b.data, b.data[n:b.used])
	b.used -= n
	return n, nil
}

// Reset zeroes used, leaving limit and size untouched.
func (b *Buffer) Reset() {
	b.used = 0
}

// Grow reallocates the backing array to newSize, which must be >= the
// current size. If the limit equaled the old size it is raised to
// newSize; otherwise it is left unchanged.
func (b *Buffer) Grow(newSize int) {
	if newSize < len(b.data) {
		panic(fmt.Sprintf("ioutil: Grow to smaller size %d < %d", newSize, len(b.data)))
	}
	limitWasFull := b.limit == len(b.data)
	grown := make([]byte, newSize)
	copy(grown, b.data[:b.used])
	b.data = grown
	if limitWasFull {
		b.limit = newSize
	}
}

// ErrBufferFull is returned by Write when p would exceed the current limit.
var ErrBufferFull = fmt.Errorf("ioutil: buffer full")
