//go:build avr

package twi

import (
	"device/avr"
	"runtime/interrupt"
)

// AVR backend: the TWI peripheral of the atmega2560 behind the Bus
// interface. The event flag is TWINT; the event interrupt enable is TWIE.

type avrBus struct {
	handler func()
}

// HardwareBus returns the Bus for the on-chip TWI peripheral, configured for
// an SCL frequency of 62.5 kHz with internal pull-ups on SDA/SCL.
func HardwareBus() Bus {
	// SCL and SDA as inputs with pull-up resistors.
	avr.DDRD.ClearBits(1<<0 | 1<<1)
	avr.PORTD.SetBits(1<<0 | 1<<1)

	// Bit rate 0 with prescaler 1.
	avr.TWBR.Set(0)
	avr.TWSR.Set(0)

	// Enable TWI with ACK and the event interrupt.
	avr.TWCR.Set(avr.TWCR_TWINT | avr.TWCR_TWEA | avr.TWCR_TWEN | avr.TWCR_TWIE)

	b := &avrBus{}
	hwBus = b
	interrupt.New(avr.IRQ_TWI, handleTwiInterrupt)
	return b
}

var hwBus *avrBus

func handleTwiInterrupt(interrupt.Interrupt) {
	if hwBus != nil && hwBus.handler != nil {
		hwBus.handler()
	}
}

func (b *avrBus) twie() uint8 {
	if b.handler != nil {
		return avr.TWCR_TWIE
	}
	return 0
}

func (b *avrBus) Start() {
	avr.TWCR.Set(avr.TWCR_TWINT | avr.TWCR_TWEN | avr.TWCR_TWSTA | b.twie())
}

func (b *avrBus) WriteData(v byte) { avr.TWDR.Set(v) }

func (b *avrBus) ReadData() byte { return avr.TWDR.Get() }

func (b *avrBus) Proceed() {
	avr.TWCR.Set(avr.TWCR_TWINT | avr.TWCR_TWEN | b.twie())
}

func (b *avrBus) Stop() {
	avr.TWCR.Set(avr.TWCR_TWINT | avr.TWCR_TWEN | avr.TWCR_TWSTO | b.twie())
}

func (b *avrBus) Code() Code {
	// Mask off the prescaler bits.
	return Code(avr.TWSR.Get() & 0xf8)
}

func (b *avrBus) EventPending() bool {
	return avr.TWCR.HasBits(avr.TWCR_TWINT)
}

func (b *avrBus) SetEventHandler(fn func()) {
	b.handler = fn
	if fn != nil {
		avr.TWCR.SetBits(avr.TWCR_TWIE)
	} else {
		avr.TWCR.ClearBits(avr.TWCR_TWIE)
	}
}
