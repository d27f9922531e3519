// Package segment drives a multiplexed seven-segment display. Characters
// scroll in from the right; the newest character always occupies the
// rightmost digit.
//
// The display content is double buffered. The foreground writes to a private
// buffer and publishes it with an atomic view swap, so the refresh path (a
// timer interrupt on hardware, a ticker goroutine on the host) always reads a
// complete frame and never observes a half-written one.
package segment

// Segment bit layout, most significant bit first:
// top, right top, right bottom, bottom, left bottom, left top, middle, dot.
var encodingsNumbers = [10]byte{
	0b11111100, // zero
	0b01100000, // one
	0b11011010, // two
	0b11110010, // three
	0b01100110, // four
	0b10110110, // five
	0b10111110, // six
	0b11100000, // seven
	0b11111110, // eight
	0b11100110, // nine
}

var encodingsLetters = [4]byte{
	0b11101110, // a
	0b00111110, // b
	0b10011100, // c
	0b01111010, // d
}

// EncodeChar returns the segment pattern for c. Digits '0' through '9' and
// letters 'a' through 'd' have encodings; everything else blanks the digit.
func EncodeChar(c byte) byte {
	switch {
	case 'a' <= c && c <= 'd':
		return encodingsLetters[c-'a']
	case '0' <= c && c <= '9':
		return encodingsNumbers[c-'0']
	default:
		return 0
	}
}

// DefaultWidth is the number of digits on the reference display.
const DefaultWidth = 4

// Display holds the double-buffered content of a segment display.
//
// Write methods (WriteChar, Clear) belong to the foreground and must not be
// called from the refresh path. Snapshot is safe from either side.
type Display struct {
	cs critical

	// wdata is owned by the foreground; rdata is read-only for everyone.
	// Publish swaps the two under the critical section.
	left, right  []byte
	wdata, rdata []byte
}

// NewDisplay returns a cleared display with the given number of digits.
func NewDisplay(width int) *Display {
	if width <= 0 {
		width = DefaultWidth
	}
	d := &Display{
		left:  make([]byte, width),
		right: make([]byte, width),
	}
	d.wdata = d.left
	d.rdata = d.right
	return d
}

// Width returns the number of digits.
func (d *Display) Width() int { return len(d.left) }

// WriteChar shifts the content one digit to the left and places c in the
// rightmost position, then publishes the frame.
func (d *Display) WriteChar(c byte) {
	copy(d.wdata, d.wdata[1:])
	d.wdata[len(d.wdata)-1] = c
	d.publish()
}

// Clear blanks every digit and publishes the empty frame.
func (d *Display) Clear() {
	for i := range d.wdata {
		d.wdata[i] = 0
	}
	d.publish()
}

// Snapshot copies the last published frame into dst and reports how many
// digits were copied.
func (d *Display) Snapshot(dst []byte) int {
	d.cs.enter()
	n := copy(dst, d.rdata)
	d.cs.exit()
	return n
}

// digit returns the published character at position pos, leftmost first.
// Called from the refresh path while the views are stable.
func (d *Display) digit(pos int) byte { return d.rdata[pos] }

func (d *Display) publish() {
	// Swap the views so readers pick up the freshly written frame while the
	// write view now holds the outdated one.
	d.cs.enter()
	d.wdata, d.rdata = d.rdata, d.wdata
	d.cs.exit()

	// The write view lags one publish behind. Copy the published content back
	// so the next write starts from the current frame.
	copy(d.wdata, d.rdata)
}
