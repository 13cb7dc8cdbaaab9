package sloghooks

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func newLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestRedactsKeys(t *testing.T) {
	var buf bytes.Buffer
	h := New(newLogger(&buf), Options{})
	h.StorageError("user:42", "set", errors.New("down"))

	out := buf.String()
	if strings.Contains(out, "user:42") {
		t.Fatalf("raw key leaked: %s", out)
	}
	if !strings.Contains(out, "swrcache.storage_error") || !strings.Contains(out, "op=set") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestCustomRedactor(t *testing.T) {
	var buf bytes.Buffer
	h := New(newLogger(&buf), Options{Redact: func(string) string { return "xxx" }})
	h.OptimisticRollback("todo:1", "op-1", errors.New("rejected"))
	if !strings.Contains(buf.String(), "key=xxx") {
		t.Fatalf("redactor not used: %s", buf.String())
	}
}

func TestSampling(t *testing.T) {
	var buf bytes.Buffer
	h := New(newLogger(&buf), Options{CooldownSkipEvery: 3})
	for i := 0; i < 9; i++ {
		h.CooldownSkip("k")
	}
	if n := strings.Count(buf.String(), "swrcache.cooldown_skip"); n != 3 {
		t.Fatalf("logged %d cooldown skips, want 3", n)
	}
}

func TestNilLogger(t *testing.T) {
	h := New(nil, Options{})
	h.SelfHeal("k", "corrupt")
	h.Evicted("k", "expired")
}
