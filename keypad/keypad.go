// Package keypad scans a 4x4 matrix keypad. Columns are inputs with pull-ups
// and rows are outputs; a scan drives one row low at a time and reads which
// columns follow it down.
package keypad

// Pins abstracts the half-in half-out port the keypad hangs off. The low
// four bits are the column inputs, active low; SelectRow drives a single row
// output low and DeselectRow releases it.
type Pins interface {
	SelectRow(row uint8)
	DeselectRow(row uint8)
	ReadColumns() uint8
}

// Symbol layout of the scan mask, bit 0 first: one row per nibble.
var encodings = [16]byte{
	'1', '4', '7', '*',
	'2', '5', '8', '0',
	'3', '6', '9', '#',
	'a', 'b', 'c', 'd',
}

// Keypad scans a matrix keypad through its pins.
type Keypad struct {
	pins Pins
}

// New returns a keypad scanner over the given pins.
func New(pins Pins) *Keypad {
	return &Keypad{pins: pins}
}

// Read scans all four rows and returns a 16-bit mask with one bit per key,
// set while the key is held. Bit i maps to the symbol FirstSymbol reports
// for mask 1<<i.
func (k *Keypad) Read() uint16 {
	var mask uint16
	for row := uint8(0); row < 4; row++ {
		k.pins.SelectRow(row)
		// Columns are active low; invert so a held key reads as a set bit.
		mask |= uint16(^k.pins.ReadColumns()&0x0f) << (4 * row)
		k.pins.DeselectRow(row)
	}
	return mask
}

// ReadSymbol scans the keypad and returns the first held symbol, or ' ' when
// no key is held.
func (k *Keypad) ReadSymbol() byte {
	return FirstSymbol(k.Read())
}

// FirstSymbol returns the symbol of the lowest set bit in mask, or ' ' when
// no bit is set.
func FirstSymbol(mask uint16) byte {
	for i := 0; i < 16; i++ {
		if mask&(1<<i) != 0 {
			return encodings[i]
		}
	}
	return ' '
}
