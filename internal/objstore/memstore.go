package objstore

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"iter"
	"sort"
	"strings"
	"sync"
)

// MemStore is an in-memory Store with faithful compare-and-swap semantics.
// It exists so the repository and handler layers can be tested hermetically
// without a live bucket. ETags are content MD5s, like single-part S3
// uploads.
//
// Hook, when non-nil, is consulted before every operation and may inject an
// error; tests use it to simulate transient or permission failures.
type MemStore struct {
	Hook func(op, key string) error

	mu      sync.Mutex
	objects map[string]memObject
}

type memObject struct {
	data []byte
	etag string
}

var _ Store = (*MemStore)(nil)

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{objects: map[string]memObject{}}
}

func (m *MemStore) hook(op, key string) error {
	if m.Hook != nil {
		return m.Hook(op, key)
	}
	return nil
}

// Get returns the object's bytes and ETag.
func (m *MemStore) Get(ctx context.Context, key string) ([]byte, string, error) {
	if err := m.hook("get", key); err != nil {
		return nil, "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[key]
	if !ok {
		return nil, "", &Error{Op: "get", Key: key, Err: ErrNotFound}
	}
	data := make([]byte, len(obj.data))
	copy(data, obj.data)
	return data, obj.etag, nil
}

// Put writes the object subject to opts, enforcing CAS under a single lock
// so that two conflicting writers can never both succeed.
func (m *MemStore) Put(ctx context.Context, key string, data []byte, opts PutOptions) (string, error) {
	if err := m.hook("put", key); err != nil {
		return "", err
	}
	if opts.IfMatch != "" && opts.IfNoneMatch {
		return "", &Error{Op: "put", Key: key, Err: fmt.Errorf("%w: both IfMatch and IfNoneMatch set", ErrFatal)}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, exists := m.objects[key]
	if opts.IfNoneMatch && exists {
		return "", &Error{Op: "put", Key: key, Err: ErrPreconditionFailed}
	}
	if opts.IfMatch != "" && (!exists || cur.etag != opts.IfMatch) {
		return "", &Error{Op: "put", Key: key, Err: ErrPreconditionFailed}
	}
	stored := make([]byte, len(data))
	copy(stored, data)
	sum := md5.Sum(stored)
	obj := memObject{data: stored, etag: hex.EncodeToString(sum[:])}
	m.objects[key] = obj
	return obj.etag, nil
}

// Delete removes the object; absent keys are ignored.
func (m *MemStore) Delete(ctx context.Context, key string) error {
	if err := m.hook("delete", key); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

// List yields objects under prefix in lexicographic key order.
func (m *MemStore) List(ctx context.Context, prefix string) iter.Seq2[ObjectInfo, error] {
	return func(yield func(ObjectInfo, error) bool) {
		if err := m.hook("list", prefix); err != nil {
			yield(ObjectInfo{}, err)
			return
		}
		m.mu.Lock()
		keys := make([]string, 0, len(m.objects))
		for k := range m.objects {
			if strings.HasPrefix(k, prefix) {
				keys = append(keys, k)
			}
		}
		infos := make([]ObjectInfo, 0, len(keys))
		sort.Strings(keys)
		for _, k := range keys {
			obj := m.objects[k]
			infos = append(infos, ObjectInfo{Key: k, ETag: obj.etag, Size: int64(len(obj.data))})
		}
		m.mu.Unlock()
		for _, info := range infos {
			if !yield(info, nil) {
				return
			}
		}
	}
}

// Len returns the number of stored objects.
func (m *MemStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}
