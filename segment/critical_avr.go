//go:build avr

package segment

import "runtime/interrupt"

// On hardware the refresh path is a timer interrupt, so the view swap runs
// with interrupts masked.
type critical struct {
	state interrupt.State
}

func (c *critical) enter() { c.state = interrupt.Disable() }
func (c *critical) exit()  { interrupt.Restore(c.state) }
