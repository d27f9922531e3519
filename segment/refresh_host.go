//go:build !avr

package segment

import "time"

// Sink receives the multiplexed digit patterns on the host. pos counts from
// the leftmost digit; a zero pattern blanks the position.
type Sink interface {
	ShowDigit(pos int, pattern byte)
}

// Refresher multiplexes a Display onto a Sink at a fixed rate, standing in
// for the timer interrupt used on hardware.
type Refresher struct {
	d    *Display
	sink Sink
	done chan struct{}
}

// NewRefresher starts a refresh goroutine stepping one digit per interval.
// Call Stop to terminate it.
func NewRefresher(d *Display, sink Sink, interval time.Duration) *Refresher {
	r := &Refresher{
		d:    d,
		sink: sink,
		done: make(chan struct{}),
	}
	go r.run(interval)
	return r
}

func (r *Refresher) run(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	pos := 0
	for {
		select {
		case <-r.done:
			return
		case <-ticker.C:
			r.d.cs.enter()
			c := r.d.digit(pos)
			r.d.cs.exit()
			r.sink.ShowDigit(pos, EncodeChar(c))
			pos++
			if pos >= r.d.Width() {
				pos = 0
			}
		}
	}
}

// Stop terminates the refresh goroutine.
func (r *Refresher) Stop() { close(r.done) }
