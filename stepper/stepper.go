// Package stepper controls a four-coil stepper motor through a half-byte
// port. A pending step count is drained one step per tick by the driver's
// timer (hardware) or runner goroutine (host).
package stepper

import "sync/atomic"

// Port drives the coil pattern onto the motor pins. Only the low four bits
// of the pattern are meaningful.
type Port interface {
	Set(pattern byte)
}

// Coil energize sequence for full-step drive. Stepping forward through the
// sequence turns the motor counter-clockwise.
var states = [4]byte{
	0b0011,
	0b0110,
	0b1100,
	0b1001,
}

// Motor tracks the coil index and the number of steps left to perform.
// Move and the tick path may run concurrently; the offset is the only state
// they share.
type Motor struct {
	port   Port
	clock  clock
	offset atomic.Int32
	index  uint8
}

// New returns a motor holding its initial coil pattern.
func New(port Port) *Motor {
	m := &Motor{port: port}
	m.port.Set(states[m.index])
	return m
}

// Move schedules steps to be performed by the tick path. Positive is
// clockwise, negative counter-clockwise. A new call replaces any remaining
// steps from the previous one.
func (m *Motor) Move(steps int32) {
	m.offset.Store(steps)
	m.start()
}

// Pending reports how many scheduled steps remain.
func (m *Motor) Pending() int32 { return m.offset.Load() }

// CW advances the motor one step clockwise.
func (m *Motor) CW() {
	m.index = (m.index + 3) % uint8(len(states))
	m.port.Set(states[m.index])
}

// CCW advances the motor one step counter-clockwise.
func (m *Motor) CCW() {
	m.index = (m.index + 1) % uint8(len(states))
	m.port.Set(states[m.index])
}

// Tick performs one scheduled step, if any, and reports whether more work
// remains. Called from the timer interrupt on hardware and the runner
// goroutine on the host.
func (m *Motor) Tick() bool {
	switch offset := m.offset.Load(); {
	case offset < 0:
		m.CCW()
		m.offset.Add(1)
	case offset > 0:
		m.CW()
		m.offset.Add(-1)
	default:
		m.stop()
		return false
	}
	return true
}
