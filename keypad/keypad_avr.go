//go:build avr

package keypad

import "device/avr"

// AVR backend: the keypad sits on PORTK, rows on the high nibble as outputs
// and columns on the low nibble as inputs with pull-ups.

type avrPins struct{}

func (avrPins) SelectRow(row uint8)   { avr.PORTK.ClearBits(1 << (row + 4)) }
func (avrPins) DeselectRow(row uint8) { avr.PORTK.SetBits(1 << (row + 4)) }
func (avrPins) ReadColumns() uint8    { return avr.PINK.Get() }

// Configure sets up the port and returns the keypad instance.
func Configure() *Keypad {
	avr.DDRK.Set(0xf0)
	avr.PORTK.Set(0xff)
	return New(avrPins{})
}
