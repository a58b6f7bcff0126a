package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/bucketwiki/bucketwiki/internal/objstore"
)

// ErrIndexContention is returned when the compare-and-swap retry budget is
// exhausted. It is retryable by the caller; it is deliberately distinct
// from a page-level edit conflict, which carries conflicting content and
// needs user mediation.
var ErrIndexContention = errors.New("index document contention")

// CAS retry policy. This budget covers only lost swaps; transient
// transport failures are retried one layer down by the object store client
// and never count against it.
const (
	casAttempts  = 5
	casBaseDelay = 50 * time.Millisecond
	casMaxDelay  = time.Second
)

// Store provides atomic apply-operation semantics over the index
// documents.
type Store struct {
	store objstore.Store
}

// NewStore creates an index store on top of the given object store.
func NewStore(s objstore.Store) *Store {
	return &Store{store: s}
}

// Pages reads the current page index. A missing document is an empty
// index, not an error.
func (s *Store) Pages(ctx context.Context) (*PageIndex, error) {
	doc, _, err := load[PageIndex](ctx, s.store, PagesKey)
	return doc, err
}

// Files reads the current file index. A missing document is an empty
// index, not an error.
func (s *Store) Files(ctx context.Context) (*FileIndex, error) {
	doc, _, err := load[FileIndex](ctx, s.store, FilesKey)
	return doc, err
}

// ApplyPages atomically applies op to the page index and returns the new
// document. See apply for the concurrency contract.
func (s *Store) ApplyPages(ctx context.Context, op func(*PageIndex) error) (*PageIndex, error) {
	return apply[PageIndex](ctx, s.store, PagesKey, op)
}

// ApplyFiles atomically applies op to the file index and returns the new
// document.
func (s *Store) ApplyFiles(ctx context.Context, op func(*FileIndex) error) (*FileIndex, error) {
	return apply[FileIndex](ctx, s.store, FilesKey, op)
}

// load fetches and decodes a document, returning the zero document with an
// empty ETag when the key does not exist yet.
func load[D any](ctx context.Context, store objstore.Store, key string) (*D, string, error) {
	doc := new(D)
	data, etag, err := store.Get(ctx, key)
	if err != nil {
		if objstore.IsNotFound(err) {
			return doc, "", nil
		}
		return nil, "", err
	}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, "", fmt.Errorf("index document %s is corrupt: %w", key, err)
	}
	return doc, etag, nil
}

// apply runs a read-modify-conditional-write loop:
//
//  1. Fetch the document and its ETag (missing key = empty document whose
//     write must-not-exist).
//  2. Apply op to produce the new snapshot.
//  3. Conditionally write keyed on the observed ETag.
//  4. On a lost swap, re-fetch and retry with jittered exponential backoff
//     up to casAttempts, then surface ErrIndexContention. The bound matters:
//     retrying forever under sustained contention would starve callers.
//
// op must be pure with respect to the document: it may be invoked multiple
// times, each time against a freshly fetched snapshot.
func apply[D any](ctx context.Context, store objstore.Store, key string, op func(*D) error) (*D, error) {
	var result *D
	err := retry.Do(func() error {
		doc, etag, err := load[D](ctx, store, key)
		if err != nil {
			return err
		}
		if err := op(doc); err != nil {
			return err
		}
		data, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("failed to encode index document %s: %w", key, err)
		}
		opts := objstore.PutOptions{ContentType: "application/json"}
		if etag == "" {
			opts.IfNoneMatch = true
		} else {
			opts.IfMatch = etag
		}
		if _, err := store.Put(ctx, key, data, opts); err != nil {
			return err
		}
		result = doc
		return nil
	},
		retry.Context(ctx),
		retry.Attempts(casAttempts),
		retry.Delay(casBaseDelay),
		retry.MaxDelay(casMaxDelay),
		retry.MaxJitter(casBaseDelay),
		retry.DelayType(retry.CombineDelay(retry.BackOffDelay, retry.RandomDelay)),
		retry.RetryIf(objstore.IsPreconditionFailed),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		if objstore.IsPreconditionFailed(err) {
			return nil, fmt.Errorf("%w: %s lost %d swap attempts: %w", ErrIndexContention, key, casAttempts, err)
		}
		return nil, err
	}
	return result, nil
}
