package timing

import (
	"testing"
	"time"
)

func TestFromDelayRoundTrip(t *testing.T) {
	deadline := FromDelay(time.Now(), time.Second)
	after, ok := IsAfter(deadline, time.Now())
	if !ok || !after {
		t.Fatalf("deadline should be in the future: after=%v ok=%v", after, ok)
	}

	past := FromDelay(time.Now().Add(-2*time.Second), time.Second)
	after, ok = IsAfter(past, time.Now())
	if !ok || after {
		t.Fatalf("deadline should be past: after=%v ok=%v", after, ok)
	}
}

func TestNeverPropagates(t *testing.T) {
	if got := FromDelay(time.Now(), Never); !got.IsZero() {
		t.Fatalf("Never should yield zero time, got %v", got)
	}
	if got := FromDelay(time.Now(), -5*time.Second); !got.IsZero() {
		t.Fatalf("negative delay should yield zero time, got %v", got)
	}
}

func TestUnsetIsNoConstraint(t *testing.T) {
	now := time.Now()
	if _, ok := IsBefore(time.Time{}, now); ok {
		t.Fatalf("IsBefore with unset side must report ok=false")
	}
	if _, ok := IsAfter(now, time.Time{}); ok {
		t.Fatalf("IsAfter with unset side must report ok=false")
	}
	if b, ok := IsBefore(now, now.Add(time.Millisecond)); !ok || !b {
		t.Fatalf("IsBefore: b=%v ok=%v", b, ok)
	}
}

func TestUntil(t *testing.T) {
	now := time.Now()
	if d := Until(now, time.Time{}); d != 0 {
		t.Fatalf("unset deadline should give 0, got %v", d)
	}
	if d := Until(now, now.Add(-time.Second)); d != 0 {
		t.Fatalf("past deadline should give 0, got %v", d)
	}
	if d := Until(now, now.Add(time.Minute)); d != time.Minute {
		t.Fatalf("Until=%v want 1m", d)
	}
}
