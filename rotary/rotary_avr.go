//go:build avr

package rotary

import (
	"device/avr"
	"runtime/interrupt"
)

// AVR backend: channel A on PD2 raises INT2 on any edge, the push button on
// PE4 raises INT4 on the falling edge.

const (
	pinA = 2 // PD2
	pinB = 3 // PD3
)

var encoder *Encoder

// Configure sets up the pins and edge interrupts and returns the encoder
// instance.
func Configure() *Encoder {
	encoder = New()

	avr.DDRD.ClearBits(1<<pinA | 1<<pinB)
	avr.DDRE.ClearBits(1 << 4)

	// Any edge on INT2, falling edge on INT4.
	avr.EICRA.SetBits(avr.EICRA_ISC20)
	avr.EICRB.SetBits(avr.EICRB_ISC41)
	avr.EIMSK.SetBits(avr.EIMSK_INT2 | avr.EIMSK_INT4)

	interrupt.New(avr.IRQ_INT2, handleEdge)
	interrupt.New(avr.IRQ_INT4, handlePress)

	return encoder
}

func handleEdge(interrupt.Interrupt) {
	pins := avr.PIND.Get()
	encoder.Edge(pins&(1<<pinA) != 0, pins&(1<<pinB) != 0)
}

func handlePress(interrupt.Interrupt) {
	encoder.Press()
}
