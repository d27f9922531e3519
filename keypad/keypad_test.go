//go:build !avr

package keypad

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// simPins simulates the matrix port: held[row] is the active-high column
// mask of keys held on that row.
type simPins struct {
	held     [4]uint8
	selected int
}

func newSimPins() *simPins { return &simPins{selected: -1} }

func (p *simPins) SelectRow(row uint8) { p.selected = int(row) }

func (p *simPins) DeselectRow(row uint8) { p.selected = -1 }

func (p *simPins) ReadColumns() uint8 {
	// Pull-ups keep undriven columns high; a held key on the selected row
	// pulls its column low.
	if p.selected < 0 {
		return 0x0f
	}
	return ^p.held[p.selected] & 0x0f
}

func (p *simPins) hold(row, col uint8) { p.held[row] |= 1 << col }

func TestReadNoKeys(t *testing.T) {
	k := New(newSimPins())
	require.EqualValues(t, 0, k.Read())
	require.EqualValues(t, ' ', k.ReadSymbol())
}

func TestReadSingleKeys(t *testing.T) {
	tests := []struct {
		row, col uint8
		want     byte
	}{
		{0, 0, '1'},
		{0, 3, '*'},
		{1, 3, '0'},
		{2, 2, '9'},
		{2, 3, '#'},
		{3, 0, 'a'},
		{3, 3, 'd'},
	}
	for _, tt := range tests {
		pins := newSimPins()
		pins.hold(tt.row, tt.col)
		k := New(pins)

		mask := k.Read()
		require.EqualValues(t, 1<<(4*tt.row+tt.col), mask, "row %d col %d", tt.row, tt.col)
		require.EqualValues(t, tt.want, FirstSymbol(mask))
	}
}

func TestReadMultipleKeys(t *testing.T) {
	pins := newSimPins()
	pins.hold(1, 1) // '5'
	pins.hold(3, 2) // 'c'
	k := New(pins)

	mask := k.Read()
	require.EqualValues(t, 1<<5|1<<14, mask)
	// The lowest set bit wins.
	require.EqualValues(t, '5', FirstSymbol(mask))
}

func TestFirstSymbolEmptyMask(t *testing.T) {
	require.EqualValues(t, ' ', FirstSymbol(0))
}
