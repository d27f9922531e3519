// Package usart provides an interrupt-driven serial driver built on two
// ringbuf queues. Transmission is drained one byte at a time by the
// data-register-empty event; reception is pushed by the byte-received event.
// Blocking receive helpers search the RX queue for a delimiter and suspend on
// a coalesced notification channel while waiting for more input.
package usart

import (
	"bytes"
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/barskern/avro/ringbuf"
)

var (
	// ErrTxOverflow means the TX queue could not take the data. Nothing was
	// queued; the driver state is unchanged.
	ErrTxOverflow = errors.New("usart: tx buffer full")
	// ErrSyncTimeout means a synchronous send exceeded Config.SyncTimeout.
	ErrSyncTimeout = errors.New("usart: sync send timed out")
	// ErrNeedleNotFound means the scratch buffer filled before the delimiter
	// appeared. The returned count is a partial result; retry with the next
	// chunk of input rather than treating it as success.
	ErrNeedleNotFound = errors.New("usart: needle not found before scratch filled")
)

// Config holds the driver parameters.
type Config struct {
	BaudRate     uint32
	TxBufferSize int // default 32
	RxBufferSize int // default 32

	// SyncTimeout bounds the spin-wait of synchronous sends. Zero means wait
	// forever, matching the bare-metal behaviour.
	SyncTimeout time.Duration
}

// phy is the hardware side of the driver: the transmit data register and the
// gate for the data-register-empty event. The avr build programs USART0; the
// host build simulates the peripheral.
type phy interface {
	writeData(b byte)
	dataRegEmpty() bool
	setTxEventEnabled(on bool)
}

// UART bridges the byte-event-driven peripheral to a queued API.
type UART struct {
	cfg Config
	hw  phy

	tx *ringbuf.Buffer
	rx *ringbuf.Buffer

	sending   atomic.Bool
	rxDropped atomic.Uint32

	notify   chan struct{} // coalesced RX wake-up
	txNotify chan struct{} // coalesced TX progress
	closed   chan struct{}

	stats stats
}

func newUART(cfg Config, hw phy) *UART {
	if cfg.TxBufferSize == 0 {
		cfg.TxBufferSize = 32
	}
	if cfg.RxBufferSize == 0 {
		cfg.RxBufferSize = 32
	}
	return &UART{
		cfg:      cfg,
		hw:       hw,
		tx:       ringbuf.New(cfg.TxBufferSize),
		rx:       ringbuf.New(cfg.RxBufferSize),
		notify:   make(chan struct{}, 1),
		txNotify: make(chan struct{}, 1),
		closed:   make(chan struct{}),
	}
}

// Readable returns a coalesced notification for RX readiness. The receive
// event sends on this channel; callers must re-check state after waking.
func (u *UART) Readable() <-chan struct{} { return u.notify }

// Writable returns a coalesced notification for TX progress.
func (u *UART) Writable() <-chan struct{} { return u.txNotify }

// Buffered returns the number of bytes waiting in the RX queue.
func (u *UART) Buffered() int { return u.rx.Used() }

// RxDropped returns how many received bytes were discarded because the RX
// queue was full.
func (u *UART) RxDropped() uint32 { return u.rxDropped.Load() }

// Send queues p for transmission and makes sure the drain event is running.
// If p does not fit in the TX queue, ErrTxOverflow is returned and nothing is
// queued.
func (u *UART) Send(p []byte) error {
	if err := u.tx.Write(p); err != nil {
		return ErrTxOverflow
	}
	u.startTx()
	return nil
}

// SendByte queues one byte. If no transmission is in flight it takes the
// direct path instead, which cannot block since the drain has already
// signalled that the data register is free.
func (u *UART) SendByte(b byte) error {
	if u.sending.Load() {
		if !u.tx.Put(b) {
			return ErrTxOverflow
		}
		u.startTx()
		return nil
	}
	return u.SendByteSync(b)
}

// SendString queues s for transmission.
func (u *UART) SendString(s string) error { return u.Send([]byte(s)) }

func (u *UART) startTx() {
	u.sending.Store(true)
	u.hw.setTxEventEnabled(true)
}

// SendByteSync bypasses the TX queue: it waits for any in-flight
// asynchronous drain to finish and for the data register to free, then
// writes b directly. It must not be called concurrently with itself from two
// execution contexts.
func (u *UART) SendByteSync(b byte) error {
	deadline := u.syncDeadline()
	for u.sending.Load() {
		if err := checkDeadline(deadline); err != nil {
			return err
		}
		time.Sleep(0) // polite yield
	}
	for !u.hw.dataRegEmpty() {
		if err := checkDeadline(deadline); err != nil {
			return err
		}
		time.Sleep(0)
	}
	u.hw.writeData(b)
	return nil
}

// SendSync writes p byte by byte over the direct path.
func (u *UART) SendSync(p []byte) error {
	for _, b := range p {
		if err := u.SendByteSync(b); err != nil {
			return err
		}
	}
	return nil
}

// SendStringSync writes s over the direct path.
func (u *UART) SendStringSync(s string) error { return u.SendSync([]byte(s)) }

func (u *UART) syncDeadline() time.Time {
	if u.cfg.SyncTimeout == 0 {
		return time.Time{}
	}
	return time.Now().Add(u.cfg.SyncTimeout)
}

func checkDeadline(deadline time.Time) error {
	if !deadline.IsZero() && time.Now().After(deadline) {
		return ErrSyncTimeout
	}
	return nil
}

// TryRead copies up to len(p) buffered bytes out of the RX queue. It never
// blocks; 0 means no data now.
func (u *UART) TryRead(p []byte) int { return u.rx.Read(p) }

// Receive pushes one byte into the RX queue. It is the byte-received event:
// the avr build calls it from the RX interrupt, hosts call it to inject
// input. A full queue drops the byte and counts it.
func (u *UART) Receive(b byte) {
	if !u.rx.Put(b) {
		u.rxDropped.Add(1)
		u.dbgRxDrop()
		return
	}
	select {
	case u.notify <- struct{}{}:
		u.dbgNotify(true)
	default:
		u.dbgNotify(false)
	}
}

// handleTxEmpty is the data-register-empty event: it moves one byte from the
// TX queue to the hardware, and is the only place that turns transmission
// off, so the sending flag can never clear while data remains queued.
func (u *UART) handleTxEmpty() {
	if b, ok := u.tx.Get(); ok {
		u.hw.writeData(b)
	} else {
		u.hw.setTxEventEnabled(false)
		u.sending.Store(false)
	}
	select {
	case u.txNotify <- struct{}{}:
	default:
	}
}

// waitReadable suspends until the next RX notification, standing in for the
// idle sleep between receive interrupts.
func (u *UART) waitReadable(ctx context.Context) error {
	u.dbgReadWait()
	select {
	case <-u.notify:
		return nil
	case <-u.closed:
		return context.Canceled
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TakeUntilContext reads input until needle appears, filling scratch with
// the bytes read. It returns the number of bytes that preceded the needle;
// the needle itself is consumed and anything after it stays queued. If
// scratch fills before the needle is seen, the accumulated count is returned
// with ErrNeedleNotFound. len(scratch) must exceed len(needle).
func (u *UART) TakeUntilContext(ctx context.Context, needle []byte, scratch []byte) (int, error) {
	if len(needle) == 0 || len(scratch) <= len(needle) {
		panic("usart: scratch must be larger than needle")
	}
	total := 0
	for {
		n := u.rx.Peek(scratch[total:])
		total += n

		if i := bytes.Index(scratch[:total], needle); i >= 0 {
			// Everything except the current peek is already consumed; commit
			// only up to the end of the needle so trailing bytes survive.
			consumed := total - n
			u.rx.Advance(i + len(needle) - consumed)
			return i, nil
		}
		u.rx.Advance(n)

		if total >= len(scratch) {
			return total, ErrNeedleNotFound
		}
		if n == 0 {
			if err := u.waitReadable(ctx); err != nil {
				return total, err
			}
		}
	}
}

// DropUntilContext discards input up to and including needle, leaving
// whatever follows in the RX queue. scratch is working space; when it fills,
// the tail that could still hold a split needle is kept and the search
// continues, so the needle is never missed across a refill.
func (u *UART) DropUntilContext(ctx context.Context, needle []byte, scratch []byte) error {
	if len(needle) == 0 || len(scratch) <= len(needle) {
		panic("usart: scratch must be larger than needle")
	}
	total := 0
	for {
		n := u.rx.Peek(scratch[total:])
		total += n

		if i := bytes.Index(scratch[:total], needle); i >= 0 {
			consumed := total - n
			u.rx.Advance(i + len(needle) - consumed)
			return nil
		}
		u.rx.Advance(n)

		if total >= len(scratch) {
			keep := len(needle)
			copy(scratch, scratch[total-keep:total])
			total = keep
		}
		if n == 0 {
			if err := u.waitReadable(ctx); err != nil {
				return err
			}
		}
	}
}

// Close unblocks all waiters. Further notifications are still delivered but
// blocking calls return immediately.
func (u *UART) Close() error {
	select {
	case <-u.closed:
	default:
		close(u.closed)
	}
	return nil
}
