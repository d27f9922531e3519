// Package twi implements a two-wire (I2C) master as a state machine driven
// by hardware events. A transfer walks through START, address and data
// phases; each completed phase raises one event which advances the machine.
// The asynchronous API issues the START and observes completion later via
// Status; the blocking API detaches the event handler and spin-waits each
// phase itself.
//
// Master satisfies the tinygo.org/x/drivers I2C interface, so devices
// written against that interface run on top of it unchanged.
package twi

import (
	"errors"
	"sync/atomic"
	"time"

	"tinygo.org/x/drivers"
)

// Dir selects the transfer direction encoded into the address byte.
type Dir uint8

const (
	Write Dir = 0
	Read  Dir = 1
)

// Code is a bus status code, following the AVR TWSR values.
type Code uint8

const (
	CodeBusError  Code = 0x00
	CodeStart     Code = 0x08
	CodeRepStart  Code = 0x10
	CodeSlaWAck   Code = 0x18
	CodeSlaWNack  Code = 0x20
	CodeDataWAck  Code = 0x28
	CodeDataWNack Code = 0x30
	CodeArbLost   Code = 0x38
	CodeSlaRAck   Code = 0x40
	CodeSlaRNack  Code = 0x48
	CodeDataRAck  Code = 0x50
	CodeDataRNack Code = 0x58
)

var (
	// ErrNack means the slave did not acknowledge an address or data byte.
	ErrNack = errors.New("twi: nack received")
	// ErrArbitrationLost means another master won the bus mid-transfer.
	ErrArbitrationLost = errors.New("twi: arbitration lost")
	// ErrBusFault covers every other unexpected status code.
	ErrBusFault = errors.New("twi: bus fault")
	// ErrTimeout means a blocking phase exceeded Config.PhaseTimeout.
	ErrTimeout = errors.New("twi: phase timeout")
)

func errForCode(c Code) error {
	switch c {
	case CodeSlaWNack, CodeSlaRNack, CodeDataWNack, CodeDataRNack:
		return ErrNack
	case CodeArbLost:
		return ErrArbitrationLost
	}
	return ErrBusFault
}

// Status is the coarse transfer state visible to callers of the
// asynchronous API.
type Status uint8

const (
	// StatusReady means no transfer is in flight and the last one, if any,
	// completed cleanly.
	StatusReady Status = iota
	// StatusPending means a transfer is mid-protocol.
	StatusPending
	// StatusError means the last transfer aborted; Err holds the reason.
	StatusError
)

type state uint32

const (
	stateIdle state = iota
	stateBusyBlocking
	stateSentStart
	stateSentReadAddr
	stateSentReadData
	stateSentWriteAddr
	stateSentWriteData
)

// Bus is the register surface of the TWI peripheral: enough to issue
// framing conditions, move the data register and observe status codes. The
// avr build programs TWCR/TWSR/TWDR; SimBus simulates a bus with slaves.
type Bus interface {
	// Start issues a START (or repeated START) condition.
	Start()
	// WriteData loads the data register.
	WriteData(b byte)
	// ReadData reads the data register.
	ReadData() byte
	// Proceed clears the event flag so the current phase continues.
	Proceed()
	// Stop issues a STOP condition and releases the bus.
	Stop()
	// Code returns the status code of the most recent event.
	Code() Code
	// EventPending reports whether a phase has completed and is waiting to
	// be handled.
	EventPending() bool
	// SetEventHandler installs fn as the event notification path; nil
	// detaches it (the hardware interrupt is masked).
	SetEventHandler(fn func())
}

// Config holds master parameters.
type Config struct {
	// PhaseTimeout bounds each spin-wait of the blocking API. Zero means
	// wait forever, matching the bare-metal behaviour.
	PhaseTimeout time.Duration
}

// Master drives a Bus through the two-wire protocol. Exactly one transfer
// descriptor is active at a time; the state is idle if and only if no
// transfer is in flight.
type Master struct {
	bus Bus
	cfg Config

	state atomic.Uint32

	// In-flight descriptor. Owned by the event handler between Transfer and
	// the return to idle; the err field is published by the idle store.
	addr byte // SLA byte: 7-bit address plus direction bit
	buf  []byte
	idx  int
	err  error
}

// New wires a master to bus and installs its event handler.
func New(bus Bus, cfg Config) *Master {
	m := &Master{bus: bus, cfg: cfg}
	bus.SetEventHandler(m.HandleEvent)
	return m
}

// Status reports the coarse transfer state.
func (m *Master) Status() Status {
	if state(m.state.Load()) != stateIdle {
		return StatusPending
	}
	if m.err != nil {
		return StatusError
	}
	return StatusReady
}

// Err returns the abort reason of the last transfer, or nil. It is reset by
// the next Transfer.
func (m *Master) Err() error {
	if state(m.state.Load()) != stateIdle {
		return nil
	}
	return m.err
}

// Transfer starts an asynchronous transfer of buf to or from the 7-bit
// address addr and returns immediately; observe completion via Status. It
// panics on a zero-length buffer or if a transfer is already in flight:
// both are programmer errors, not runtime conditions.
//
// buf is owned by the master until the transfer completes or aborts.
func (m *Master) Transfer(addr uint8, dir Dir, buf []byte) {
	if len(buf) == 0 {
		panic("twi: zero-length transfer")
	}
	if !m.state.CompareAndSwap(uint32(stateIdle), uint32(stateSentStart)) {
		panic("twi: transfer while busy")
	}
	m.addr = addr<<1 | byte(dir)
	m.buf = buf
	m.idx = 0
	m.err = nil
	m.bus.Start()
}

// HandleEvent advances the state machine by one hardware event. On avr it is
// the body of the TWI interrupt; SimBus calls it through the registered
// handler. Any status code the current state does not expect aborts the
// transfer and returns the machine to idle.
func (m *Master) HandleEvent() {
	code := m.bus.Code()
	switch state(m.state.Load()) {
	case stateSentStart:
		if code != CodeStart && code != CodeRepStart {
			m.abort(code)
			return
		}
		m.bus.WriteData(m.addr)
		if Dir(m.addr&1) == Read {
			m.state.Store(uint32(stateSentReadAddr))
		} else {
			m.state.Store(uint32(stateSentWriteAddr))
		}
		m.bus.Proceed()

	case stateSentWriteAddr:
		if code != CodeSlaWAck {
			m.abort(code)
			return
		}
		m.bus.WriteData(m.buf[m.idx])
		m.idx++
		m.state.Store(uint32(stateSentWriteData))
		m.bus.Proceed()

	case stateSentWriteData:
		if code != CodeDataWAck {
			m.abort(code)
			return
		}
		if m.idx < len(m.buf) {
			m.bus.WriteData(m.buf[m.idx])
			m.idx++
			m.bus.Proceed()
		} else {
			// Entire buffer sent.
			m.bus.Stop()
			m.state.Store(uint32(stateIdle))
		}

	case stateSentReadAddr:
		if code != CodeSlaRAck {
			m.abort(code)
			return
		}
		m.state.Store(uint32(stateSentReadData))
		m.bus.Proceed()

	case stateSentReadData:
		if code != CodeDataRAck {
			m.abort(code)
			return
		}
		m.buf[m.idx] = m.bus.ReadData()
		m.idx++
		if m.idx < len(m.buf) {
			m.bus.Proceed()
		} else {
			// Entire buffer filled.
			m.bus.Stop()
			m.state.Store(uint32(stateIdle))
		}

	case stateBusyBlocking, stateIdle:
		// The blocking path detaches the handler, and an idle master has no
		// transfer to advance; a stray event is dropped.
	}
}

func (m *Master) abort(code Code) {
	m.err = errForCode(code)
	m.bus.Stop()
	m.state.Store(uint32(stateIdle))
}

// TransferBlocking drives a whole transfer synchronously. The event handler
// is detached for the duration so only this call observes the hardware
// status; it is restored on every exit path, success or error.
func (m *Master) TransferBlocking(addr uint8, dir Dir, buf []byte) error {
	if len(buf) == 0 {
		panic("twi: zero-length transfer")
	}
	deadline := m.phaseDeadline()
	// Wait for any in-flight asynchronous transfer to finish, then claim
	// the bus for the blocking path.
	for !m.state.CompareAndSwap(uint32(stateIdle), uint32(stateBusyBlocking)) {
		if err := checkDeadline(deadline); err != nil {
			return err
		}
		time.Sleep(0)
	}
	m.bus.SetEventHandler(nil)
	defer func() {
		// Single exit funnel: the asynchronous path comes back no matter
		// how the transfer ended.
		m.bus.SetEventHandler(m.HandleEvent)
		m.state.Store(uint32(stateIdle))
	}()

	m.bus.Start()
	if err := m.waitEvent(deadline); err != nil {
		return err
	}
	if c := m.bus.Code(); c != CodeStart && c != CodeRepStart {
		return errForCode(c)
	}

	m.bus.WriteData(addr<<1 | byte(dir))
	m.bus.Proceed()
	if err := m.waitEvent(deadline); err != nil {
		return err
	}

	if dir == Read {
		if c := m.bus.Code(); c != CodeSlaRAck {
			return errForCode(c)
		}
		for i := range buf {
			m.bus.Proceed()
			if err := m.waitEvent(deadline); err != nil {
				return err
			}
			if c := m.bus.Code(); c != CodeDataRAck {
				return errForCode(c)
			}
			buf[i] = m.bus.ReadData()
		}
	} else {
		if c := m.bus.Code(); c != CodeSlaWAck {
			return errForCode(c)
		}
		for _, b := range buf {
			m.bus.WriteData(b)
			m.bus.Proceed()
			if err := m.waitEvent(deadline); err != nil {
				return err
			}
			if c := m.bus.Code(); c != CodeDataWAck {
				return errForCode(c)
			}
		}
	}
	m.bus.Stop()
	return nil
}

// SendByteBlocking writes a single byte to addr.
func (m *Master) SendByteBlocking(addr uint8, value byte) error {
	buf := [1]byte{value}
	return m.TransferBlocking(addr, Write, buf[:])
}

// ReadByteBlocking reads a single byte from addr.
func (m *Master) ReadByteBlocking(addr uint8) (byte, error) {
	var buf [1]byte
	err := m.TransferBlocking(addr, Read, buf[:])
	return buf[0], err
}

// Tx implements drivers.I2C: a write of w followed by a read into r, either
// of which may be empty.
func (m *Master) Tx(addr uint16, w, r []byte) error {
	if len(w) > 0 {
		if err := m.TransferBlocking(uint8(addr), Write, w); err != nil {
			return err
		}
	}
	if len(r) > 0 {
		return m.TransferBlocking(uint8(addr), Read, r)
	}
	return nil
}

var _ drivers.I2C = (*Master)(nil)

func (m *Master) waitEvent(deadline time.Time) error {
	for !m.bus.EventPending() {
		if err := checkDeadline(deadline); err != nil {
			return err
		}
		time.Sleep(0)
	}
	return nil
}

func (m *Master) phaseDeadline() time.Time {
	if m.cfg.PhaseTimeout == 0 {
		return time.Time{}
	}
	return time.Now().Add(m.cfg.PhaseTimeout)
}

func checkDeadline(deadline time.Time) error {
	if !deadline.IsZero() && time.Now().After(deadline) {
		return ErrTimeout
	}
	return nil
}
