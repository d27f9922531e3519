// Package lcd drives an HD44780 character display behind a PCF8574 I/O
// expander on the two-wire bus. The controller runs in 4-bit mode: every
// byte goes out as two nibbles, each strobed with the enable line.
//
// The driver works over any tinygo.org/x/drivers I2C implementation,
// including a twi.Master or a machine.I2C.
package lcd

import (
	"time"

	"tinygo.org/x/drivers"
)

// DefaultAddress is the address pre-programmed into the common PCF8574
// backpack modules.
const DefaultAddress uint8 = 0x27

// HD44780 commands.
const (
	cmdClearDisplay   = 0x01
	cmdReturnHome     = 0x02
	cmdEntryModeSet   = 0x04
	cmdDisplayControl = 0x08
	cmdFunctionSet    = 0x20
	cmdSetDDRAMAddr   = 0x80
)

// Flags for display entry mode.
const (
	entryLeft           = 0x02
	entryShiftDecrement = 0x00
)

// Flags for display on/off control.
const (
	displayOn = 0x04
	cursorOn  = 0x02
	blinkOn   = 0x01
)

// Flags for function set.
const (
	mode4Bit  = 0x00
	lines2    = 0x08
	dots5x8   = 0x00
)

// PCF8574 pin assignments.
const (
	backlightBit = 0x08
	enableBit    = 0x04
	dataMode     = 0x01 // register select: data
	commandMode  = 0x00 // register select: command
)

// Config holds display geometry.
type Config struct {
	Width  uint8 // columns, default 16
	Height uint8 // rows, default 2
}

// Device is an HD44780 display on a two-wire bus.
type Device struct {
	bus       drivers.I2C
	addr      uint16
	backlight byte
	width     uint8
	height    uint8
}

// New creates a device handle. Call Configure before use.
func New(bus drivers.I2C, addr uint8) Device {
	return Device{bus: bus, addr: uint16(addr), backlight: backlightBit}
}

// Configure runs the 4-bit initialization dance and switches the display
// on. The nibble writes and delays follow the HD44780 datasheet reset
// sequence.
func (d *Device) Configure(cfg Config) error {
	d.width = cfg.Width
	if d.width == 0 {
		d.width = 16
	}
	d.height = cfg.Height
	if d.height == 0 {
		d.height = 2
	}

	time.Sleep(50 * time.Millisecond)

	// Force 8-bit mode three times for good measure, then drop to 4-bit.
	for _, delay := range []time.Duration{4500 * time.Microsecond, 4500 * time.Microsecond, 150 * time.Microsecond} {
		if err := d.sendNibble(0x03 << 4); err != nil {
			return err
		}
		time.Sleep(delay)
	}
	if err := d.sendNibble(0x02 << 4); err != nil {
		return err
	}

	if err := d.Command(cmdFunctionSet | mode4Bit | lines2 | dots5x8); err != nil {
		return err
	}
	if err := d.Command(cmdDisplayControl | displayOn | cursorOn | blinkOn); err != nil {
		return err
	}
	if err := d.Command(cmdClearDisplay); err != nil {
		return err
	}
	time.Sleep(2 * time.Millisecond)

	if err := d.Command(cmdEntryModeSet | entryLeft | entryShiftDecrement); err != nil {
		return err
	}
	if err := d.Command(cmdReturnHome); err != nil {
		return err
	}
	time.Sleep(2 * time.Millisecond) // return home takes a long time

	return nil
}

// ClearDisplay wipes the display contents.
func (d *Device) ClearDisplay() error { return d.Command(cmdClearDisplay) }

// Command sends a raw command byte.
func (d *Device) Command(value byte) error { return d.sendByte(value, commandMode) }

// WriteChar writes one character at the cursor.
func (d *Device) WriteChar(value byte) error { return d.sendByte(value, dataMode) }

// Print writes data at the cursor, truncated to the display width.
func (d *Device) Print(data []byte) error {
	if len(data) > int(d.width) {
		data = data[:d.width]
	}
	for _, c := range data {
		if err := d.WriteChar(c); err != nil {
			return err
		}
	}
	return nil
}

// SetCursor moves the cursor to the given column and row.
func (d *Device) SetCursor(col, row uint8) error {
	var offset uint8
	if row != 0 {
		offset = 0x40
	}
	return d.Command(cmdSetDDRAMAddr | (col + offset))
}

// SetBacklight switches the backpack's backlight line.
func (d *Device) SetBacklight(on bool) error {
	if on {
		d.backlight = backlightBit
	} else {
		d.backlight = 0
	}
	// Refresh the expander outputs without strobing enable.
	return d.write(d.backlight)
}

func (d *Device) sendByte(value byte, mode byte) error {
	highNibble := value & 0xf0
	lowNibble := (value << 4) & 0xf0
	if err := d.sendNibble(highNibble | mode); err != nil {
		return err
	}
	return d.sendNibble(lowNibble | mode)
}

// sendNibble pulses the enable line around the nibble so the controller
// latches it.
func (d *Device) sendNibble(value byte) error {
	if err := d.write(value | d.backlight | enableBit); err != nil {
		return err
	}
	time.Sleep(time.Microsecond) // enable pulse must be >450ns
	if err := d.write((value | d.backlight) &^ enableBit); err != nil {
		return err
	}
	time.Sleep(50 * time.Microsecond) // commands need >37us to settle
	return nil
}

func (d *Device) write(value byte) error {
	return d.bus.Tx(d.addr, []byte{value}, nil)
}
