package swrcache

import "time"

func (c *Core) startJanitor() {
	ticker := time.NewTicker(c.sweepInterval)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.Sweep()
			case <-c.stopCh:
				return
			}
		}
	}()
}

// Sweep drops expired states nobody listens to from memory and returns how
// many were dropped. Storage entries expire through their own TTL.
// The janitor calls it every CleanupInterval.
func (c *Core) Sweep() int {
	now := c.clock.Now()

	c.mu.RLock()
	var stale []string
	for k, s := range c.mem {
		if s.state.expired(now) && s.state.abort == nil {
			stale = append(stale, k)
		}
	}
	c.mu.RUnlock()

	n := 0
	for _, k := range stale {
		if c.bus.Count(k) > 0 {
			continue
		}
		// skip keys with a writer in progress
		if c.locks.Busy(k) {
			continue
		}
		c.mu.Lock()
		s := c.mem[k]
		drop := s != nil && s.state.expired(now) && s.state.abort == nil
		if drop {
			delete(c.mem, k)
		}
		c.mu.Unlock()
		if drop {
			n++
			c.hooks.Evicted(k, "expired")
		}
	}
	if n > 0 {
		c.log.Debug("janitor evicted expired states", Fields{"count": n})
	}
	return n
}
