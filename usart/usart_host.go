//go:build !avr

package usart

import (
	"sync"
	"sync/atomic"
)

// Host backend: a simulated USART peripheral for tests and host tools.
// Transmitted bytes are captured on a Wire in the order they left the
// device; a pump goroutine stands in for the data-register-empty interrupt.

// Wire records every byte the simulated peripheral shifted out.
type Wire struct {
	mu    sync.Mutex
	bytes []byte
}

func (w *Wire) append(b byte) {
	w.mu.Lock()
	w.bytes = append(w.bytes, b)
	w.mu.Unlock()
}

// Bytes returns a copy of everything transmitted so far, in wire order.
func (w *Wire) Bytes() []byte {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]byte, len(w.bytes))
	copy(out, w.bytes)
	return out
}

// Reset discards the recorded bytes.
func (w *Wire) Reset() {
	w.mu.Lock()
	w.bytes = w.bytes[:0]
	w.mu.Unlock()
}

type hostPhy struct {
	u         *UART
	wire      *Wire
	txEnabled atomic.Bool
	kick      chan struct{}
}

func (p *hostPhy) writeData(b byte) { p.wire.append(b) }

// The simulated data register never stalls.
func (p *hostPhy) dataRegEmpty() bool { return true }

func (p *hostPhy) setTxEventEnabled(on bool) {
	p.txEnabled.Store(on)
	if on {
		select {
		case p.kick <- struct{}{}:
		default:
		}
	}
}

// pump runs in its own goroutine, playing the part of the interrupt
// controller: while the TX event is enabled it keeps delivering
// data-register-empty events until the driver turns itself off.
func (p *hostPhy) pump() {
	for {
		select {
		case <-p.kick:
			for p.txEnabled.Load() {
				p.u.handleTxEmpty()
			}
		case <-p.u.closed:
			return
		}
	}
}

// NewSim returns a UART backed by a simulated peripheral, plus the wire it
// transmits on. Feed received bytes with Receive; stop the pump with Close.
func NewSim(cfg Config) (*UART, *Wire) {
	wire := &Wire{}
	p := &hostPhy{wire: wire, kick: make(chan struct{}, 1)}
	u := newUART(cfg, p)
	p.u = u
	go p.pump()
	return u, wire
}
