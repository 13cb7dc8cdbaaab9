// Package sloghooks reports cache events through log/slog, with sampling for
// the noisy ones and cache keys redacted.
package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"

	"github.com/unkn0wn-root/swrcache"
)

type Options struct {
	// Sampling to avoid floods; 0/1 = log all.
	SelfHealEvery     uint64
	CooldownSkipEvery uint64
	AbortEvery        uint64
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	selfHealCtr atomic.Uint64
	cooldownCtr atomic.Uint64
	abortCtr    atomic.Uint64
}

var _ swrcache.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) StorageError(key, op string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("swrcache.storage_error",
		"key", h.redact(key),
		"op", op,
		"err", err)
}

func (h *Hooks) StorageRejected(key string) {
	if h.l == nil {
		return
	}
	h.l.Warn("swrcache.storage_rejected",
		"key", h.redact(key))
}

func (h *Hooks) SelfHeal(key, reason string) {
	if h.l == nil || !sample(h.opts.SelfHealEvery, &h.selfHealCtr) {
		return
	}
	h.l.Debug("swrcache.self_heal",
		"key", h.redact(key),
		"reason", reason)
}

func (h *Hooks) FetchFailed(key string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("swrcache.fetch_failed",
		"key", h.redact(key),
		"err", err)
}

func (h *Hooks) FetchAborted(key string, err error) {
	if h.l == nil || !sample(h.opts.AbortEvery, &h.abortCtr) {
		return
	}
	h.l.Debug("swrcache.fetch_aborted",
		"key", h.redact(key),
		"err", err)
}

func (h *Hooks) CooldownSkip(key string) {
	if h.l == nil || !sample(h.opts.CooldownSkipEvery, &h.cooldownCtr) {
		return
	}
	h.l.Debug("swrcache.cooldown_skip",
		"key", h.redact(key))
}

func (h *Hooks) OptimisticRollback(key, op string, err error) {
	if h.l == nil {
		return
	}
	h.l.Error("swrcache.optimistic_rollback",
		"key", h.redact(key),
		"op", op,
		"err", err)
}

func (h *Hooks) Evicted(key, reason string) {
	if h.l == nil {
		return
	}
	h.l.Debug("swrcache.evicted",
		"key", h.redact(key),
		"reason", reason)
}
