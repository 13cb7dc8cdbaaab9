// Package storage defines the durable store beneath the in-memory cache.
//
// Implementations MUST be byte-for-byte transparent: Get returns exactly the
// bytes previously passed to Set for a key. Storages are owned by the caller
// and may be shared by several cores; they must be safe for concurrent use.
package storage

import (
	"context"
	"time"
)

// Storage is a keyed byte store with TTLs.
//
// Async reports the calling convention of the backend: synchronous stores
// (in-process maps) answer immediately and may be read on paths that cannot
// wait, asynchronous ones (network stores) may only be read through
// context-carrying calls.
type Storage interface {
	// Has reports whether key is present.
	Has(ctx context.Context, key string) (bool, error)

	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value. ttl <= 0 means no expiry. cost may be ignored.
	// ok=false means the store rejected the write under pressure.
	Set(ctx context.Context, key string, value []byte, cost int64, ttl time.Duration) (ok bool, err error)

	// Del removes key. Missing keys are not an error.
	Del(ctx context.Context, key string) error

	// Async reports whether calls may block on I/O.
	Async() bool

	// Close releases resources.
	Close(ctx context.Context) error
}
