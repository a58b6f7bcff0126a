// Package objstore provides a typed client for the S3-compatible object
// store backing the wiki.
//
// The store offers exactly two consistency primitives: per-object
// conditional writes (ETag compare-and-swap) and prefix listing. Everything
// higher up (index documents, page CRUD, orphan detection) is built on
// those two, so this package is deliberately thin: it surfaces ETags on
// every read and write, maps transport failures into a small error
// taxonomy, and retries transient failures internally with a bounded,
// jittered backoff. Concurrency conflicts are never retried here; they are
// the caller's signal.
package objstore

import (
	"context"
	"iter"
	"time"
)

// ObjectInfo describes a single stored object as returned by List.
type ObjectInfo struct {
	Key  string
	ETag string
	Size int64
}

// PutOptions carries the precondition and content metadata for a write.
//
// At most one of IfMatch / IfNoneMatch may be set. IfMatch requires the
// stored object's current ETag to equal the given value. IfNoneMatch
// requires the key to not exist. With neither set the write is
// unconditional.
type PutOptions struct {
	IfMatch     string
	IfNoneMatch bool
	ContentType string
}

// Store is the object store contract consumed by the repository layers.
//
// Implementations must guarantee that two Put calls with the same IfMatch
// value cannot both succeed: exactly one observes the expected ETag, the
// other fails with ErrPreconditionFailed. Delete is idempotent; deleting an
// absent key is not an error.
type Store interface {
	// Get returns the object's bytes and its current ETag.
	// Returns ErrNotFound if the key is absent.
	Get(ctx context.Context, key string) ([]byte, string, error)

	// Put writes the object subject to opts and returns the new ETag.
	// Returns ErrPreconditionFailed when the precondition does not hold.
	Put(ctx context.Context, key string, data []byte, opts PutOptions) (string, error)

	// Delete removes the object. Absent keys are ignored.
	Delete(ctx context.Context, key string) error

	// List yields objects under prefix in lexicographic key order. The
	// sequence is lazy; iteration errors are yielded as the second value
	// and terminate the sequence.
	List(ctx context.Context, prefix string) iter.Seq2[ObjectInfo, error]
}

// Retry policy for transient transport failures. This budget is separate
// from the metadata CAS conflict budget on purpose: a flaky network is not
// evidence of contention and must not starve writers of conflict retries.
const (
	transientAttempts  = 4
	transientBaseDelay = 50 * time.Millisecond
	transientMaxDelay  = time.Second
)
