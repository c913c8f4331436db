// Package clock stamps calls with microseconds since epoch.
package clock

import (
	"sync"
	"time"
)

// Clock never goes backwards, even if the wall clock does.
// Two calls within the same microsecond get the same value.
type Clock struct {
	mu   sync.Mutex
	now  func() time.Time
	last int64
}

func New() *Clock {
	return &Clock{now: time.Now}
}

func (c *Clock) NowMicro() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()

	if t := c.now().UnixMicro(); t > c.last {
		c.last = t
	}
	return c.last
}
