// Package index maintains the two metadata index documents (page index,
// file index) stored as single objects in the bucket.
//
// Each document is treated as a versioned immutable snapshot: every
// mutation reads the current snapshot, applies a pure operation to produce
// a new one, and attempts an atomic swap keyed on the document's ETag. The
// swap loop in store.go is the only write path; all callers must go
// through it, since nothing in the object store itself prevents a writer
// from clobbering the document.
package index

import (
	"slices"
	"strings"
	"time"
)

// Object keys of the index documents. Fixed layout, do not change.
const (
	PagesKey = "metadata/pages.json"
	FilesKey = "metadata/files.json"
)

// PageEntry is the denormalized metadata for one page, as stored in
// metadata/pages.json.
type PageEntry struct {
	Path      string    `json:"path"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Author    string    `json:"author"`
	Tags      []string  `json:"tags"`
}

// PageIndex is the metadata/pages.json document. Entries are kept sorted
// by path; each path appears at most once.
type PageIndex struct {
	Pages []PageEntry `json:"pages"`
}

// Get returns the entry for path, or nil.
func (d *PageIndex) Get(path string) *PageEntry {
	i, ok := slices.BinarySearchFunc(d.Pages, path, func(e PageEntry, p string) int {
		return strings.Compare(e.Path, p)
	})
	if !ok {
		return nil
	}
	return &d.Pages[i]
}

// Upsert inserts or replaces the entry for e.Path, preserving path order.
func (d *PageIndex) Upsert(e PageEntry) {
	i, ok := slices.BinarySearchFunc(d.Pages, e.Path, func(cur PageEntry, p string) int {
		return strings.Compare(cur.Path, p)
	})
	if ok {
		d.Pages[i] = e
		return
	}
	d.Pages = slices.Insert(d.Pages, i, e)
}

// Remove deletes the entry for path and reports whether it was present.
func (d *PageIndex) Remove(path string) bool {
	i, ok := slices.BinarySearchFunc(d.Pages, path, func(e PageEntry, p string) int {
		return strings.Compare(e.Path, p)
	})
	if !ok {
		return false
	}
	d.Pages = slices.Delete(d.Pages, i, i+1)
	return true
}

// FileEntry is the denormalized metadata for one uploaded file, as stored
// in metadata/files.json.
type FileEntry struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	Size        int64     `json:"size"`
	ContentType string    `json:"contentType"`
	UploadedAt  time.Time `json:"uploadedAt"`
}

// FileIndex is the metadata/files.json document. Entries are kept sorted
// by id; each id appears at most once.
type FileIndex struct {
	Files []FileEntry `json:"files"`
}

// Get returns the entry for id, or nil.
func (d *FileIndex) Get(id string) *FileEntry {
	i, ok := slices.BinarySearchFunc(d.Files, id, func(e FileEntry, want string) int {
		return strings.Compare(e.ID, want)
	})
	if !ok {
		return nil
	}
	return &d.Files[i]
}

// Upsert inserts or replaces the entry for e.ID, preserving id order.
func (d *FileIndex) Upsert(e FileEntry) {
	i, ok := slices.BinarySearchFunc(d.Files, e.ID, func(cur FileEntry, want string) int {
		return strings.Compare(cur.ID, want)
	})
	if ok {
		d.Files[i] = e
		return
	}
	d.Files = slices.Insert(d.Files, i, e)
}

// Remove deletes the entry for id and reports whether it was present.
func (d *FileIndex) Remove(id string) bool {
	i, ok := slices.BinarySearchFunc(d.Files, id, func(e FileEntry, want string) int {
		return strings.Compare(e.ID, want)
	})
	if !ok {
		return false
	}
	d.Files = slices.Delete(d.Files, i, i+1)
	return true
}
