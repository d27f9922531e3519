//go:build !avr

package stepper

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// recordingPort remembers every coil pattern set on it.
type recordingPort struct {
	patterns []byte
}

func (p *recordingPort) Set(pattern byte) { p.patterns = append(p.patterns, pattern) }

func (p *recordingPort) last() byte { return p.patterns[len(p.patterns)-1] }

func TestNewSetsInitialPattern(t *testing.T) {
	port := &recordingPort{}
	New(port)
	require.Equal(t, []byte{0b0011}, port.patterns)
}

func TestStepSequence(t *testing.T) {
	port := &recordingPort{}
	m := New(port)

	m.CCW()
	m.CCW()
	m.CCW()
	m.CCW()
	require.Equal(t, []byte{0b0011, 0b0110, 0b1100, 0b1001, 0b0011}, port.patterns)

	m.CW()
	require.Equal(t, byte(0b1001), port.last())
}

func TestCWReversesCCW(t *testing.T) {
	port := &recordingPort{}
	m := New(port)
	start := port.last()

	m.CCW()
	m.CW()
	require.Equal(t, start, port.last())
}

func TestTickDrainsScheduledSteps(t *testing.T) {
	port := &recordingPort{}
	m := New(port)

	m.Move(3)
	require.True(t, m.Running())

	for i := 0; i < 3; i++ {
		require.True(t, m.Tick())
	}
	require.EqualValues(t, 0, m.Pending())

	// The next tick sees no work and stops the clock.
	require.False(t, m.Tick())
	require.False(t, m.Running())
	// Initial pattern plus three steps.
	require.Len(t, port.patterns, 4)
}

func TestTickNegativeMovesCCW(t *testing.T) {
	port := &recordingPort{}
	m := New(port)

	m.Move(-2)
	m.Tick()
	m.Tick()
	require.Equal(t, []byte{0b0011, 0b0110, 0b1100}, port.patterns)
	require.EqualValues(t, 0, m.Pending())
}

func TestMoveReplacesPendingSteps(t *testing.T) {
	m := New(&recordingPort{})

	m.Move(100)
	m.Tick()
	m.Move(1)
	m.Tick()
	require.EqualValues(t, 0, m.Pending())
}

func TestRunnerPerformsMove(t *testing.T) {
	port := &recordingPort{}
	m := New(port)
	r := NewRunner(m, time.Millisecond)
	defer r.Stop()

	m.Move(5)

	deadline := time.Now().Add(2 * time.Second)
	for m.Pending() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("runner left %d steps pending", m.Pending())
		}
		time.Sleep(time.Millisecond)
	}
}
