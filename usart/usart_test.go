package usart

import (
	"context"
	"testing"
	"time"
)

func newTestUART(t *testing.T) (*UART, *Wire) {
	t.Helper()
	u, wire := NewSim(Config{TxBufferSize: 32, RxBufferSize: 32})
	t.Cleanup(func() { u.Close() })
	return u, wire
}

func waitForWire(t *testing.T, wire *Wire, want string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		got := wire.Bytes()
		if string(got) == want {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("wire = %q, want %q", string(got), want)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestSendDrainsInOrder(t *testing.T) {
	u, wire := newTestUART(t)

	if err := u.Send([]byte("hello, usart")); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	waitForWire(t, wire, "hello, usart")
}

func TestSendOverflowLeavesStateIntact(t *testing.T) {
	u, wire := NewSim(Config{TxBufferSize: 8})
	defer u.Close()

	// More than the 7 usable bytes: must be rejected wholesale.
	if err := u.Send([]byte("way too much data")); err != ErrTxOverflow {
		t.Fatalf("err = %v, want ErrTxOverflow", err)
	}
	if err := u.Send([]byte("ok")); err != nil {
		t.Fatalf("unexpected err after overflow: %v", err)
	}
	waitForWire(t, wire, "ok")
}

func TestSendSyncOrdering(t *testing.T) {
	u, wire := newTestUART(t)

	// Two back-to-back synchronous sends must hit the wire strictly in
	// order, with the second fully draining after the first.
	if err := u.SendStringSync("hi"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if err := u.SendStringSync("!"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if got := string(wire.Bytes()); got != "hi!" {
		t.Fatalf("wire = %q, want %q", got, "hi!")
	}
}

func TestSendSyncWaitsForAsyncDrain(t *testing.T) {
	u, wire := newTestUART(t)

	if err := u.Send([]byte("queued")); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	// The sync byte may not overtake the queued data.
	if err := u.SendByteSync('!'); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	waitForWire(t, wire, "queued!")
}

func TestReceiveOverflowDropsAndCounts(t *testing.T) {
	u, _ := NewSim(Config{RxBufferSize: 4})
	defer u.Close()

	for i := 0; i < 10; i++ {
		u.Receive(byte('0' + i))
	}
	if got := u.Buffered(); got != 3 {
		t.Fatalf("Buffered = %d, want 3", got)
	}
	if got := u.RxDropped(); got != 7 {
		t.Fatalf("RxDropped = %d, want 7", got)
	}
	var buf [8]byte
	n := u.TryRead(buf[:])
	if string(buf[:n]) != "012" {
		t.Fatalf("kept %q, want %q", string(buf[:n]), "012")
	}
}

func TestTakeUntil(t *testing.T) {
	u, _ := newTestUART(t)

	for _, b := range []byte("value=42\r\nrest") {
		u.Receive(b)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	scratch := make([]byte, 32)
	n, err := u.TakeUntilContext(ctx, []byte("\r\n"), scratch)
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if string(scratch[:n]) != "value=42" {
		t.Fatalf("got %q, want %q", string(scratch[:n]), "value=42")
	}

	// Bytes after the needle must still be queued.
	var rest [8]byte
	k := u.TryRead(rest[:])
	if string(rest[:k]) != "rest" {
		t.Fatalf("trailing bytes = %q, want %q", string(rest[:k]), "rest")
	}
}

func TestTakeUntilBlocksForInput(t *testing.T) {
	u, _ := newTestUART(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan struct{})
	var n int
	var err error
	scratch := make([]byte, 32)
	go func() {
		defer close(done)
		n, err = u.TakeUntilContext(ctx, []byte(";"), scratch)
	}()

	time.Sleep(20 * time.Millisecond)
	for _, b := range []byte("abc") {
		u.Receive(b)
	}
	time.Sleep(20 * time.Millisecond)
	u.Receive(';')

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for TakeUntilContext")
	}
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if n != 3 || string(scratch[:n]) != "abc" {
		t.Fatalf("got n=%d data=%q; want 3, \"abc\"", n, string(scratch[:n]))
	}
}

func TestTakeUntilScratchExhausted(t *testing.T) {
	u, _ := newTestUART(t)

	for _, b := range []byte("0123456789") {
		u.Receive(b)
	}

	ctx := context.Background()
	scratch := make([]byte, 8)
	n, err := u.TakeUntilContext(ctx, []byte("\n"), scratch)
	if err != ErrNeedleNotFound {
		t.Fatalf("err = %v, want ErrNeedleNotFound", err)
	}
	if n != 8 {
		t.Fatalf("partial n = %d, want 8", n)
	}
}

func TestDropUntil(t *testing.T) {
	u, _ := newTestUART(t)

	for _, b := range []byte("noise noise OK:payload") {
		u.Receive(b)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	scratch := make([]byte, 8) // smaller than the junk: forces refills
	if err := u.DropUntilContext(ctx, []byte("OK:"), scratch); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	var rest [16]byte
	n := u.TryRead(rest[:])
	if string(rest[:n]) != "payload" {
		t.Fatalf("remaining = %q, want %q", string(rest[:n]), "payload")
	}
}

func TestDropUntilNeedleSplitAcrossRefill(t *testing.T) {
	u, _ := newTestUART(t)

	// The needle straddles the scratch-refill boundary.
	for _, b := range []byte("aaaaaaaXYtail") {
		u.Receive(b)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := u.DropUntilContext(ctx, []byte("XY"), make([]byte, 8)); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	var rest [8]byte
	n := u.TryRead(rest[:])
	if string(rest[:n]) != "tail" {
		t.Fatalf("remaining = %q, want %q", string(rest[:n]), "tail")
	}
}

func TestCloseUnblocksWaiters(t *testing.T) {
	u, _ := NewSim(Config{})

	done := make(chan error, 1)
	go func() {
		_, err := u.TakeUntilContext(context.Background(), []byte("\n"), make([]byte, 16))
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	u.Close()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected non-nil error after close")
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for TakeUntilContext to return after close")
	}
}
