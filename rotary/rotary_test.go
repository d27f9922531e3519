//go:build !avr

package rotary

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadOffsetAccumulates(t *testing.T) {
	e := New()

	e.Edge(true, false)
	e.Edge(false, true)
	e.Edge(true, false)
	require.EqualValues(t, 3, e.ReadOffset())

	// The read reset the accumulator.
	require.EqualValues(t, 0, e.ReadOffset())
}

func TestEqualLevelsCountCCW(t *testing.T) {
	e := New()

	e.Edge(true, true)
	e.Edge(false, false)
	require.EqualValues(t, -2, e.ReadOffset())
}

func TestOffsetSaturates(t *testing.T) {
	e := New()
	for i := 0; i < 200; i++ {
		e.Edge(true, false)
	}
	require.EqualValues(t, 127, e.ReadOffset())

	for i := 0; i < 300; i++ {
		e.Edge(false, false)
	}
	require.EqualValues(t, -128, e.ReadOffset())
}

func TestReadPressedResets(t *testing.T) {
	e := New()
	require.False(t, e.ReadPressed())

	e.Press()
	require.True(t, e.ReadPressed())
	require.False(t, e.ReadPressed())
}
