//go:build avr

package usart

import (
	"device/avr"
	"machine"
	"runtime/interrupt"
)

// AVR backend: USART0 of the atmega2560, double-speed mode, 8N1. The RX
// interrupt feeds Receive; the data-register-empty interrupt drains the TX
// queue.

type avrPhy struct{}

func (avrPhy) writeData(b byte) { avr.UDR0.Set(b) }

func (avrPhy) dataRegEmpty() bool { return avr.UCSR0A.HasBits(avr.UCSR0A_UDRE0) }

func (avrPhy) setTxEventEnabled(on bool) {
	if on {
		avr.UCSR0B.SetBits(avr.UCSR0B_UDRIE0)
	} else {
		avr.UCSR0B.ClearBits(avr.UCSR0B_UDRIE0)
	}
}

// UART0 is the driver instance for the first hardware USART.
var (
	UART0  = &_UART0
	_UART0 *UART
)

// Configure programs the peripheral and installs the interrupt handlers.
func Configure(cfg Config) *UART {
	if cfg.BaudRate == 0 {
		cfg.BaudRate = 9600
	}
	_UART0 = newUART(cfg, avrPhy{})

	// Double the transmitter speed to reduce clocking error.
	avr.UCSR0A.Set(avr.UCSR0A_U2X0)
	// RX complete interrupt, receiver and transmitter enabled. The TX-empty
	// interrupt is gated separately by the driver.
	avr.UCSR0B.Set(avr.UCSR0B_RXCIE0 | avr.UCSR0B_RXEN0 | avr.UCSR0B_TXEN0)
	// Asynchronous, no parity, 1 stop bit, 8 data bits.
	avr.UCSR0C.Set(avr.UCSR0C_UCSZ01 | avr.UCSR0C_UCSZ00 | avr.UCSR0C_UCPOL0)

	// UBRR for double-speed mode.
	ubrr := machine.CPUFrequency()/(8*cfg.BaudRate) - 1
	avr.UBRR0H.Set(uint8(ubrr >> 8))
	avr.UBRR0L.Set(uint8(ubrr))

	interrupt.New(avr.IRQ_USART0_RX, handleRxInterrupt)
	interrupt.New(avr.IRQ_USART0_UDRE, handleUdreInterrupt)

	return _UART0
}

func handleRxInterrupt(interrupt.Interrupt) {
	_UART0.Receive(avr.UDR0.Get())
}

func handleUdreInterrupt(interrupt.Interrupt) {
	_UART0.handleTxEmpty()
}
