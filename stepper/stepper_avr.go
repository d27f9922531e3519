//go:build avr

package stepper

import (
	"device/avr"
	"machine"
	"runtime/interrupt"
)

// AVR backend: the coil pattern sits on the low nibble of PORTC and TIMER4
// in CTC mode paces the steps at 2 ms. Move starts the timer clock; the
// compare interrupt stops it again once the scheduled steps are done.

type clock struct{}

func (m *Motor) start() { avr.TCCR4B.SetBits(avr.TCCR4B_CS40) }
func (m *Motor) stop()  { avr.TCCR4B.ClearBits(avr.TCCR4B_CS40) }

type avrPort struct{}

func (avrPort) Set(pattern byte) {
	avr.PORTC.Set(avr.PORTC.Get()&0xf0 | pattern&0x0f)
}

var motor *Motor

// Configure sets up the port and TIMER4 and returns the motor instance.
func Configure() *Motor {
	avr.DDRC.SetBits(0x0f)
	motor = New(avrPort{})

	// 2 ms step interval, CTC on OCR4A. The clock select bit is left clear
	// until Move starts the timer.
	avr.OCR4A.Set(uint16(machine.CPUFrequency() / 500))
	avr.TCCR4B.SetBits(avr.TCCR4B_WGM42)
	avr.TIMSK4.SetBits(avr.TIMSK4_OCIE4A)

	interrupt.New(avr.IRQ_TIMER4_COMPA, handleCompareA)

	return motor
}

func handleCompareA(interrupt.Interrupt) {
	motor.Tick()
}
