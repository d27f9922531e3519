//go:build !avr

package segment

import "sync"

// On the host the refresh path runs on a goroutine, so the view swap is
// guarded by a mutex.
type critical struct {
	mu sync.Mutex
}

func (c *critical) enter() { c.mu.Lock() }
func (c *critical) exit()  { c.mu.Unlock() }
