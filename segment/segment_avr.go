//go:build avr

package segment

import (
	"device/avr"
	"machine"
	"runtime/interrupt"
)

// AVR backend: PORTA carries the segment bus, the low nibble of PORTC selects
// the active digit (active low). TIMER5 in CTC mode drives the multiplexing:
// compare B lights the current digit, compare C blanks it and advances, so
// each digit gets an even share of the frame with a dark gap between digits
// to prevent bleed.

// RefreshRate is the full-display refresh frequency in Hz.
const RefreshRate = 50

var (
	display *Display
	current uint8
)

// Configure sets up the ports and TIMER5 and returns the display instance.
func Configure() *Display {
	display = NewDisplay(DefaultWidth)

	avr.DDRA.Set(0xff)
	avr.PORTA.Set(0x00)

	avr.DDRC.SetBits(0x0f)
	avr.PORTC.SetBits(0x0f)

	period := machine.CPUFrequency() / (DefaultWidth * RefreshRate)
	avr.OCR5B.Set(0x0000)
	avr.OCR5C.Set(uint16(period / 2))
	avr.OCR5A.Set(uint16(period))

	// No prescaling, CTC on OCR5A.
	avr.TCCR5B.SetBits(avr.TCCR5B_CS50 | avr.TCCR5B_WGM52)
	avr.TIMSK5.SetBits(avr.TIMSK5_OCIE5B | avr.TIMSK5_OCIE5C)

	interrupt.New(avr.IRQ_TIMER5_COMPB, handleCompareB)
	interrupt.New(avr.IRQ_TIMER5_COMPC, handleCompareC)

	return display
}

func handleCompareB(interrupt.Interrupt) {
	// Digit select is active low; rightmost digit is bit 0.
	avr.PORTC.ClearBits(1 << (DefaultWidth - 1 - current))
	avr.PORTA.Set(EncodeChar(display.digit(int(current))))
}

func handleCompareC(interrupt.Interrupt) {
	avr.PORTC.SetBits(1 << (DefaultWidth - 1 - current))
	avr.PORTA.Set(0)

	current++
	if current >= DefaultWidth {
		current = 0
	}
}
