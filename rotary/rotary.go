// Package rotary accumulates rotation and press events from a quadrature
// rotary encoder. The edge interrupts feed an Encoder; the foreground polls
// it with read-and-reset accessors.
package rotary

import "sync/atomic"

// Encoder holds the rotation accumulated since the last ReadOffset and
// whether the knob was pressed since the last ReadPressed.
type Encoder struct {
	offset  atomic.Int32
	pressed atomic.Bool
}

// New returns an encoder with no accumulated events.
func New() *Encoder {
	return &Encoder{}
}

// Edge records one quadrature edge. a and b are the levels of the two
// encoder channels at the edge; unequal levels mean a clockwise detent. The
// accumulated offset saturates at the int8 range, so a long unpolled spin
// cannot wrap around into the opposite direction.
func (e *Encoder) Edge(a, b bool) {
	if a != b {
		if offset := e.offset.Load(); offset < 127 {
			e.offset.Store(offset + 1)
		}
	} else {
		if offset := e.offset.Load(); offset > -128 {
			e.offset.Store(offset - 1)
		}
	}
}

// Press records a button press.
func (e *Encoder) Press() {
	e.pressed.Store(true)
}

// ReadOffset returns the rotation accumulated since the previous call,
// positive for clockwise, and resets it.
func (e *Encoder) ReadOffset() int8 {
	return int8(e.offset.Swap(0))
}

// ReadPressed reports whether the button was pressed since the previous
// call and resets the flag.
func (e *Encoder) ReadPressed() bool {
	return e.pressed.Swap(false)
}
