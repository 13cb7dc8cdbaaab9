package asynchook

import (
	"sync"
	"testing"

	"github.com/unkn0wn-root/swrcache"
)

type countingHooks struct {
	swrcache.NopHooks
	mu    sync.Mutex
	heals []string
	block chan struct{}
}

func (c *countingHooks) SelfHeal(k, reason string) {
	if c.block != nil {
		<-c.block
	}
	c.mu.Lock()
	c.heals = append(c.heals, k+":"+reason)
	c.mu.Unlock()
}

func TestDeliversBeforeClose(t *testing.T) {
	inner := &countingHooks{}
	h := New(inner, 2, 16)
	for i := 0; i < 10; i++ {
		h.SelfHeal("k", "corrupt")
	}
	h.Close()
	h.Close() // idempotent

	if len(inner.heals) != 10 {
		t.Fatalf("delivered %d events, want 10", len(inner.heals))
	}
	if h.Dropped() != 0 {
		t.Fatalf("dropped=%d", h.Dropped())
	}
}

func TestDropsWhenFull(t *testing.T) {
	inner := &countingHooks{block: make(chan struct{})}
	h := New(inner, 1, 1)

	// worker blocks on the first event, the queue holds one more
	for i := 0; i < 5; i++ {
		h.SelfHeal("k", "expired")
	}
	close(inner.block)
	h.Close()

	got := uint64(len(inner.heals))
	if got+h.Dropped() != 5 {
		t.Fatalf("delivered=%d dropped=%d, want total 5", got, h.Dropped())
	}
	if h.Dropped() == 0 {
		t.Fatalf("expected drops on a full queue")
	}
}
