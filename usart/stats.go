//go:build avrodebug

package usart

import "sync/atomic"

// Stats holds driver counters since the last reset. Only collected when the
// avrodebug build tag is set.
type stats = Stats

type Stats struct {
	RxDrops       uint32 // bytes discarded by the receive event
	NotifySent    uint32 // RX notifications that were delivered
	NotifyDropped uint32 // RX notifications coalesced away (channel full)
	ReadWaits     uint32 // times a blocking receive had to suspend
}

func (u *UART) dbgRxDrop() {
	atomic.AddUint32(&u.stats.RxDrops, 1)
}

func (u *UART) dbgNotify(sent bool) {
	if sent {
		atomic.AddUint32(&u.stats.NotifySent, 1)
	} else {
		atomic.AddUint32(&u.stats.NotifyDropped, 1)
	}
}

func (u *UART) dbgReadWait() {
	atomic.AddUint32(&u.stats.ReadWaits, 1)
}

// DebugStats returns a copy of the counters.
func (u *UART) DebugStats() Stats {
	return Stats{
		RxDrops:       atomic.LoadUint32(&u.stats.RxDrops),
		NotifySent:    atomic.LoadUint32(&u.stats.NotifySent),
		NotifyDropped: atomic.LoadUint32(&u.stats.NotifyDropped),
		ReadWaits:     atomic.LoadUint32(&u.stats.ReadWaits),
	}
}

// DebugReset zeroes the counters.
func (u *UART) DebugReset() { u.stats = Stats{} }
