package ringbuf

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWriteThenRead(t *testing.T) {
	b := New(10)
	require.NoError(t, b.Write([]byte{0xff, 0xff, 0x11, 0x22}))
	require.Equal(t, 4, b.Used())

	dest := make([]byte, 5)
	n := b.Peek(dest)
	require.Equal(t, 4, n)
	require.Equal(t, []byte{0xff, 0xff, 0x11, 0x22}, dest[:n])
	// Peek must not consume.
	require.Equal(t, 4, b.Used())

	n = b.Read(dest)
	require.Equal(t, 4, n)
	require.Equal(t, 0, b.Used())
}

func TestWriteAllOrNothing(t *testing.T) {
	b := New(5)
	require.NoError(t, b.Write([]byte("ab")))
	require.Error(t, b.Write([]byte("cde"))) // only 2 bytes free
	require.Equal(t, 2, b.Used())

	dest := make([]byte, 5)
	n := b.Read(dest)
	require.Equal(t, "ab", string(dest[:n]))
}

func TestUsableCapacityIsSizeMinusOne(t *testing.T) {
	b := New(5)
	require.Equal(t, 4, b.Free())
	require.NoError(t, b.Write([]byte("wxyz")))
	require.Equal(t, 0, b.Free())
	require.ErrorIs(t, b.Write([]byte{'!'}), ErrFull)
	require.False(t, b.Put('!'))
}

func TestReadWrapped(t *testing.T) {
	// Capacity 5, start=4, end=3: four bytes spanning the boundary.
	b := New(5)
	require.NoError(t, b.Write([]byte("....")))
	b.Advance(4) // start=end=4
	require.NoError(t, b.Write([]byte{1, 2, 3, 4}))
	require.Equal(t, uint32(4), b.start.Load())
	require.Equal(t, uint32(3), b.end.Load())
	require.Equal(t, 4, b.Used())

	dest := make([]byte, 5)
	n := b.Peek(dest)
	require.Equal(t, 4, n)
	require.Equal(t, []byte{1, 2, 3, 4}, dest[:n])

	require.Equal(t, 3, b.Advance(3))
	require.Equal(t, 1, b.Used())
	n = b.Read(dest)
	require.Equal(t, []byte{4}, dest[:n])
}

func TestWriteAcrossBoundary(t *testing.T) {
	// Capacity 10, start=end=8 (empty): a 4-byte write must survive the wrap.
	b := New(10)
	require.NoError(t, b.Write(make([]byte, 8)))
	b.Advance(8)
	require.Equal(t, uint32(8), b.start.Load())
	require.Equal(t, uint32(8), b.end.Load())

	require.NoError(t, b.Write([]byte("data")))
	require.Equal(t, 4, b.Used())

	dest := make([]byte, 4)
	n := b.Read(dest)
	require.Equal(t, "data", string(dest[:n]))
}

func TestAdvanceSaturates(t *testing.T) {
	b := New(8)
	require.NoError(t, b.Write([]byte("abc")))
	require.Equal(t, 3, b.Advance(100))
	require.Equal(t, 0, b.Used())
	require.Equal(t, 0, b.Advance(1))
}

func TestPutGet(t *testing.T) {
	b := New(4)
	require.True(t, b.Put('x'))
	require.True(t, b.Put('y'))
	require.True(t, b.Put('z'))
	require.False(t, b.Put('!')) // 3 usable bytes in a size-4 buffer

	for _, want := range []byte("xyz") {
		got, ok := b.Get()
		require.True(t, ok)
		require.Equal(t, want, got)
	}
	_, ok := b.Get()
	require.False(t, ok)
}

func TestLengthTracksWritesMinusAdvances(t *testing.T) {
	b := New(16)
	written, advanced := 0, 0
	steps := []struct {
		write   int
		advance int
	}{
		{5, 2}, {3, 3}, {7, 0}, {0, 9}, {10, 10},
	}
	buf := make([]byte, 16)
	for _, s := range steps {
		if s.write > 0 {
			require.NoError(t, b.Write(buf[:s.write]))
			written += s.write
		}
		advanced += b.Advance(s.advance)
		require.Equal(t, written-advanced, b.Used())
	}
}

// A producer goroutine and a consumer goroutine stand in for the
// foreground/interrupt split: all bytes must come out in order with no
// tearing at the wrap points.
func TestConcurrentProducerConsumer(t *testing.T) {
	const total = 10000
	b := New(13) // deliberately small and odd-sized to force frequent wraps

	var got []byte
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		i := 0
		for i < total {
			if b.Put(byte(i)) {
				i++
			}
		}
	}()
	go func() {
		defer wg.Done()
		for len(got) < total {
			if c, ok := b.Get(); ok {
				got = append(got, c)
			}
		}
	}()
	wg.Wait()

	require.Len(t, got, total)
	for i, c := range got {
		require.Equal(t, byte(i), c, "byte %d out of order", i)
	}
}
