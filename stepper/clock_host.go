//go:build !avr

package stepper

import (
	"sync/atomic"
	"time"
)

// On the host the step clock is a flag polled by a Runner goroutine; Move
// raises it and Tick lowers it when the scheduled steps run out.
type clock struct {
	running atomic.Bool
}

func (m *Motor) start() { m.clock.running.Store(true) }
func (m *Motor) stop()  { m.clock.running.Store(false) }

// Running reports whether the step clock is active.
func (m *Motor) Running() bool { return m.clock.running.Load() }

// Runner drives a motor at a fixed step interval, standing in for the timer
// interrupt used on hardware.
type Runner struct {
	done chan struct{}
}

// NewRunner starts a goroutine ticking the motor once per interval while its
// clock is running. Call Stop to terminate it.
func NewRunner(m *Motor, interval time.Duration) *Runner {
	r := &Runner{done: make(chan struct{})}
	go r.run(m, interval)
	return r
}

func (r *Runner) run(m *Motor, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.done:
			return
		case <-ticker.C:
			if m.Running() {
				m.Tick()
			}
		}
	}
}

// Stop terminates the runner goroutine.
func (r *Runner) Stop() { close(r.done) }
