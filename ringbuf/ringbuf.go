// Package ringbuf implements a fixed-capacity byte queue with wraparound
// indices, safe for one producer and one consumer running in different
// execution contexts (e.g. an interrupt handler and foreground code, or two
// goroutines) without locking. The producer only ever advances the end index
// and the consumer only ever advances the start index; each operation
// snapshots the other side's index exactly once before doing any work, so a
// concurrent advance on the other side can only create room or data that the
// current operation does not yet see.
//
// The buffer is empty iff start == end, so of a buffer of size N at most N-1
// bytes are usable.
package ringbuf

import (
	"errors"
	"sync/atomic"
)

// ErrFull is returned by Write when the data cannot fit. The write is
// all-or-nothing: on ErrFull the buffer is unchanged.
var ErrFull = errors.New("ringbuf: buffer full")

// Buffer is a single-producer single-consumer byte queue. The zero value is
// not usable; use New.
//
// Adding a second producer or a second consumer context breaks the index
// discipline and with it the whole structure.
type Buffer struct {
	buf   []byte
	start atomic.Uint32 // consumer-owned, index of the oldest byte
	end   atomic.Uint32 // producer-owned, index one past the newest byte
}

// New returns a buffer with the given backing size. The usable capacity is
// size-1 bytes. New panics if size < 2.
func New(size int) *Buffer {
	if size < 2 {
		panic("ringbuf: size must be at least 2")
	}
	return &Buffer{buf: make([]byte, size)}
}

// Size returns the backing size of the buffer in bytes.
func (b *Buffer) Size() int { return len(b.buf) }

// Used returns the number of occupied bytes.
func (b *Buffer) Used() int {
	start := int(b.start.Load())
	end := int(b.end.Load())
	if start <= end {
		return end - start
	}
	return len(b.buf) - start + end
}

// Free returns the number of bytes that can still be written.
func (b *Buffer) Free() int { return len(b.buf) - 1 - b.Used() }

// Write appends p to the buffer. If p does not fit in the free space nothing
// is written and ErrFull is returned.
func (b *Buffer) Write(p []byte) error {
	// Snapshot both indices up front: the consumer may advance start
	// concurrently, which only ever frees space after this check.
	start := int(b.start.Load())
	end := int(b.end.Load())
	size := len(b.buf)

	used := end - start
	if start > end {
		used = size - start + end
	}
	if size-1-used < len(p) {
		return ErrFull
	}

	if tail := size - end; len(p) <= tail {
		copy(b.buf[end:], p)
	} else {
		// Split across the boundary.
		copy(b.buf[end:], p[:tail])
		copy(b.buf, p[tail:])
	}
	b.end.Store(uint32((end + len(p)) % size))
	return nil
}

// Put appends a single byte, reporting false if the buffer is full. It is the
// allocation-free variant of Write for interrupt paths.
func (b *Buffer) Put(c byte) bool {
	start := int(b.start.Load())
	end := int(b.end.Load())
	size := len(b.buf)
	if (end+1)%size == start {
		return false
	}
	b.buf[end] = c
	b.end.Store(uint32((end + 1) % size))
	return true
}

// Get removes and returns the oldest byte. It reports false if the buffer is
// empty.
func (b *Buffer) Get() (byte, bool) {
	start := int(b.start.Load())
	end := int(b.end.Load())
	if start == end {
		return 0, false
	}
	c := b.buf[start]
	b.start.Store(uint32((start + 1) % len(b.buf)))
	return c, true
}

// Peek copies up to len(p) occupied bytes into p in insertion order without
// consuming them, and returns the number of bytes copied. Use Advance to
// commit consumption afterwards.
func (b *Buffer) Peek(p []byte) int {
	start := int(b.start.Load())
	end := int(b.end.Load())
	if start == end {
		return 0
	}
	if start < end {
		return copy(p, b.buf[start:end])
	}
	// Data wraps: first the tail of the backing array, then the head.
	n := copy(p, b.buf[start:])
	n += copy(p[n:], b.buf[:end])
	return n
}

// Advance consumes n bytes, saturating at the occupied count. It returns the
// number of bytes actually consumed.
func (b *Buffer) Advance(n int) int {
	if n <= 0 {
		return 0
	}
	start := int(b.start.Load())
	end := int(b.end.Load())
	size := len(b.buf)

	used := end - start
	if start > end {
		used = size - start + end
	}
	if n > used {
		n = used
	}
	b.start.Store(uint32((start + n) % size))
	return n
}

// Read copies up to len(p) bytes into p and consumes them. It is equivalent
// to Peek followed by Advance of the returned count.
func (b *Buffer) Read(p []byte) int {
	n := b.Peek(p)
	b.Advance(n)
	return n
}

// Clear resets both indices. It must only be called while neither side is
// operating on the buffer.
func (b *Buffer) Clear() {
	b.start.Store(0)
	b.end.Store(0)
}
