package objstore

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/minio/minio-go/v7"
)

// Sentinel errors forming the transport error taxonomy. Callers classify
// with errors.Is; the concrete error chain keeps the underlying transport
// detail for logging.
var (
	// ErrNotFound is returned when the requested key does not exist.
	ErrNotFound = errors.New("object not found")

	// ErrPreconditionFailed is returned when a conditional write loses the
	// compare-and-swap: the stored ETag no longer matches IfMatch, or the
	// key already exists under IfNoneMatch.
	ErrPreconditionFailed = errors.New("precondition failed")

	// ErrPermissionDenied is returned on authorization failures (403).
	ErrPermissionDenied = errors.New("permission denied")

	// ErrTransient is returned when a request failed in a way that is safe
	// to retry (5xx, timeout, connection reset) and the internal retry
	// budget was exhausted.
	ErrTransient = errors.New("transient storage failure")

	// ErrFatal is returned for malformed requests and other non-retryable
	// client errors.
	ErrFatal = errors.New("fatal storage failure")
)

// Error wraps a transport failure with the operation and key it occurred
// on. Its Unwrap chain always terminates in one of the sentinels above.
type Error struct {
	Op  string
	Key string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("objstore: %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// IsNotFound reports whether err represents a missing object.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsPreconditionFailed reports whether err represents a lost CAS race.
func IsPreconditionFailed(err error) bool { return errors.Is(err, ErrPreconditionFailed) }

// IsTransient reports whether err is retryable.
func IsTransient(err error) bool { return errors.Is(err, ErrTransient) }

// classify maps a minio transport error onto the sentinel taxonomy.
// The returned error wraps both the sentinel and the original error.
func classify(op, key string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		// Timeouts are transient: conditional writes are idempotent with
		// respect to their precondition, so replaying is safe.
		return &Error{Op: op, Key: key, Err: fmt.Errorf("%w: %w", ErrTransient, err)}
	}
	resp := minio.ToErrorResponse(err)
	sentinel := ErrTransient
	switch {
	case resp.StatusCode == http.StatusNotFound || resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket":
		sentinel = ErrNotFound
	case resp.StatusCode == http.StatusPreconditionFailed || resp.StatusCode == http.StatusConflict:
		sentinel = ErrPreconditionFailed
	case resp.StatusCode == http.StatusForbidden || resp.Code == "AccessDenied":
		sentinel = ErrPermissionDenied
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == 0:
		// 0 means the request never produced an HTTP response (connection
		// reset, DNS failure); treat as transient.
		sentinel = ErrTransient
	default:
		sentinel = ErrFatal
	}
	return &Error{Op: op, Key: key, Err: fmt.Errorf("%w: %w", sentinel, err)}
}
