package swrcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/unkn0wn-root/swrcache/internal/keys"
)

var (
	// ErrMissingKey is returned when a resource has no identifiable key.
	ErrMissingKey = keys.ErrMissing
	// ErrMissingFetcher is returned when a read needs a fetcher and none is configured.
	ErrMissingFetcher = errors.New("swrcache: missing fetcher")
	// ErrPending is returned by GetSync when the value lives in asynchronous storage.
	ErrPending = errors.New("swrcache: state pending in asynchronous storage")
	// ErrTimeout is the abort cause of a fetch that outlived its timeout.
	ErrTimeout = errors.New("swrcache: fetch timed out")
	// ErrAborted is the abort cause of a fetch cancelled through Abort.
	ErrAborted = errors.New("swrcache: fetch aborted")
	// ErrNoResult is reported when a fetcher returns neither a result nor an error.
	ErrNoResult = errors.New("swrcache: fetcher returned no result")
)

// ErrInvalidTimeout reports a negative default timeout other than timing.Never.
func ErrInvalidTimeout(d time.Duration) error {
	return fmt.Errorf("swrcache: invalid timeout: %v (must be >= 0 or timing.Never)", d)
}

// AbortError marks a fetch that was cancelled or timed out. Consumers usually
// hide it from users.
type AbortError struct {
	Cause error
}

func (e *AbortError) Error() string {
	if e.Cause == nil {
		return "swrcache: fetch aborted"
	}
	return fmt.Sprintf("swrcache: fetch aborted: %v", e.Cause)
}

func (e *AbortError) Unwrap() error { return e.Cause }

// IsAbort reports whether err is a cancellation or timeout rather than a real failure.
func IsAbort(err error) bool {
	if err == nil {
		return false
	}
	var ae *AbortError
	return errors.As(err, &ae) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// StorageError wraps a failure of the storage layer. The in-memory state is
// still authoritative when it is returned.
type StorageError struct {
	Op  string // "get", "set", "del", "encode"
	Key string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("swrcache: storage %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// StoredError is an error restored from storage. Only its message survives
// persistence.
type StoredError struct {
	Msg string
}

func (e *StoredError) Error() string { return e.Msg }
