package wiki

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/bucketwiki/bucketwiki/internal/index"
	"github.com/bucketwiki/bucketwiki/internal/objstore"
)

// PageRepository implements page CRUD as single logical operations over
// the page blob and the page index document.
//
// Ordering within an operation is always blob first, index second: a
// reader that observes an index entry is guaranteed the blob exists,
// while a blob without an index entry is a valid transient state that
// RebuildIndex repairs.
type PageRepository struct {
	store objstore.Store
	idx   *index.Store
	files *FileRepository
}

// NewPageRepository creates a page repository.
func NewPageRepository(store objstore.Store, idx *index.Store, files *FileRepository) *PageRepository {
	return &PageRepository{store: store, idx: idx, files: files}
}

// Get retrieves the page at path.
func (r *PageRepository) Get(ctx context.Context, path string) (*Page, error) {
	path = NormalizePath(path)
	if path == "" {
		return nil, ErrInvalidPath
	}
	data, etag, err := r.store.Get(ctx, pageKey(path))
	if err != nil {
		if objstore.IsNotFound(err) {
			return nil, fmt.Errorf("%w: %s", ErrPageNotFound, path)
		}
		return nil, err
	}
	meta, content, err := decodePage(data)
	if err != nil {
		return nil, fmt.Errorf("page %s: %w", path, err)
	}
	return &Page{Path: path, Content: content, Meta: meta, ETag: etag}, nil
}

// Create writes a new page. The blob write carries a must-not-exist
// precondition so two concurrent creates of the same path cannot both
// succeed.
//
// If the blob lands but the index update exhausts its contention budget,
// the page is still considered created: the returned page is non-nil
// alongside the index error, and RebuildIndex closes the window. The
// inconsistency is surfaced, not hidden.
func (r *PageRepository) Create(ctx context.Context, path, content, author string, tags []string) (*Page, error) {
	path = NormalizePath(path)
	if path == "" {
		return nil, ErrInvalidPath
	}
	now := time.Now().UTC()
	title := ExtractTitle(content)
	if title == "" {
		title = titleForPath(path)
	}
	meta := Metadata{
		Title:     title,
		Author:    author,
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
		Tags:      tags,
	}
	data, err := encodePage(meta, content)
	if err != nil {
		return nil, err
	}
	etag, err := r.store.Put(ctx, pageKey(path), data, objstore.PutOptions{
		IfNoneMatch: true,
		ContentType: "text/markdown; charset=utf-8",
	})
	if err != nil {
		if objstore.IsPreconditionFailed(err) {
			return nil, fmt.Errorf("%w: %s", ErrPageExists, path)
		}
		return nil, err
	}
	page := &Page{Path: path, Content: content, Meta: meta, ETag: etag}

	if _, err := r.idx.ApplyPages(ctx, func(d *index.PageIndex) error {
		d.Upsert(entryFor(page))
		return nil
	}); err != nil {
		slog.WarnContext(ctx, "Page created but index update failed; rebuild will heal", "path", path, "err", err)
		return page, err
	}
	return page, nil
}

// Update replaces the page content, keyed on the caller's ETag. Exactly
// one of two concurrent updates with the same ETag succeeds; the loser
// gets a ConflictError carrying the winner's page and must re-read and
// merge with user mediation.
func (r *PageRepository) Update(ctx context.Context, path, content, expectedETag, author string, tags []string) (*Page, error) {
	path = NormalizePath(path)
	if path == "" {
		return nil, ErrInvalidPath
	}
	cur, err := r.Get(ctx, path)
	if err != nil {
		return nil, err
	}
	if cur.ETag != expectedETag {
		return nil, &ConflictError{Path: path, Current: cur}
	}
	title := ExtractTitle(content)
	if title == "" {
		title = cur.Meta.Title
	}
	if tags == nil {
		tags = cur.Meta.Tags
	}
	meta := Metadata{
		Title:     title,
		Author:    author,
		CreatedAt: cur.Meta.CreatedAt,
		UpdatedAt: time.Now().UTC(),
		Version:   cur.Meta.Version + 1,
		Tags:      tags,
	}
	data, err := encodePage(meta, content)
	if err != nil {
		return nil, err
	}
	etag, err := r.store.Put(ctx, pageKey(path), data, objstore.PutOptions{
		IfMatch:     expectedETag,
		ContentType: "text/markdown; charset=utf-8",
	})
	if err != nil {
		if objstore.IsPreconditionFailed(err) {
			latest, gerr := r.Get(ctx, path)
			if gerr != nil {
				return nil, fmt.Errorf("update conflict on %s, and refetch failed: %w", path, gerr)
			}
			return nil, &ConflictError{Path: path, Current: latest}
		}
		return nil, err
	}
	page := &Page{Path: path, Content: content, Meta: meta, ETag: etag}

	if _, err := r.idx.ApplyPages(ctx, func(d *index.PageIndex) error {
		d.Upsert(entryFor(page))
		return nil
	}); err != nil {
		slog.WarnContext(ctx, "Page updated but index update failed; rebuild will heal", "path", path, "err", err)
		return page, err
	}
	return page, nil
}

// Delete removes the page and its index entry, then reports files that the
// page referenced and that no remaining page references. Deleting those
// files is the caller's decision, never automatic.
//
// Delete is idempotent: deleting an absent path succeeds with no orphans.
func (r *PageRepository) Delete(ctx context.Context, path string) (orphaned []string, err error) {
	path = NormalizePath(path)
	if path == "" {
		return nil, ErrInvalidPath
	}
	var refs []string
	page, err := r.Get(ctx, path)
	switch {
	case err == nil:
		refs = ExtractFileRefs(page.Content)
	case errors.Is(err, ErrPageNotFound):
		// Already gone; still scrub the index entry below.
	default:
		return nil, err
	}

	if err := r.store.Delete(ctx, pageKey(path)); err != nil {
		return nil, err
	}
	if _, err := r.idx.ApplyPages(ctx, func(d *index.PageIndex) error {
		d.Remove(path)
		return nil
	}); err != nil {
		return nil, err
	}

	if len(refs) == 0 {
		return nil, nil
	}
	return r.files.FindOrphaned(ctx, refs)
}

// List returns the index entries whose path starts with prefix. An empty
// prefix lists every page. The index is a single document, so this is one
// read, no pagination.
func (r *PageRepository) List(ctx context.Context, prefix string) ([]index.PageEntry, error) {
	doc, err := r.idx.Pages(ctx)
	if err != nil {
		return nil, err
	}
	if prefix == "" {
		return doc.Pages, nil
	}
	var out []index.PageEntry
	for _, e := range doc.Pages {
		if strings.HasPrefix(e.Path, prefix) {
			out = append(out, e)
		}
	}
	return out, nil
}

// Search relevance tiers, highest first.
const (
	scoreTitleExact = 4
	scoreTitleSub   = 3
	scoreTag        = 2
	scorePathSub    = 1
)

// Search scans the index entries for query, case-insensitively. Results
// are ordered exact title match > title substring > tag match > path
// substring, ties broken by most recently updated.
func (r *PageRepository) Search(ctx context.Context, query string) ([]index.PageEntry, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return nil, nil
	}
	doc, err := r.idx.Pages(ctx)
	if err != nil {
		return nil, err
	}
	type hit struct {
		entry index.PageEntry
		score int
	}
	var hits []hit
	for _, e := range doc.Pages {
		title := strings.ToLower(e.Title)
		score := 0
		switch {
		case title == query:
			score = scoreTitleExact
		case strings.Contains(title, query):
			score = scoreTitleSub
		case tagMatches(e.Tags, query):
			score = scoreTag
		case strings.Contains(strings.ToLower(e.Path), query):
			score = scorePathSub
		default:
			continue
		}
		hits = append(hits, hit{entry: e, score: score})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].entry.UpdatedAt.After(hits[j].entry.UpdatedAt)
	})
	out := make([]index.PageEntry, len(hits))
	for i, h := range hits {
		out[i] = h.entry
	}
	return out, nil
}

func tagMatches(tags []string, query string) bool {
	for _, t := range tags {
		if strings.Contains(strings.ToLower(t), query) {
			return true
		}
	}
	return false
}

// RebuildIndex reconstructs metadata/pages.json from a full listing of the
// pages/ prefix. It is the self-heal path for the accepted inconsistency
// window between a successful blob write and a failed index update.
func (r *PageRepository) RebuildIndex(ctx context.Context) (*index.PageIndex, error) {
	var entries []index.PageEntry
	for info, err := range r.store.List(ctx, pagePrefix) {
		if err != nil {
			return nil, err
		}
		path := strings.TrimPrefix(info.Key, pagePrefix)
		page, err := r.Get(ctx, path)
		if err != nil {
			slog.WarnContext(ctx, "Skipping unreadable page during rebuild", "key", info.Key, "err", err)
			continue
		}
		if page.Meta.Title == "" {
			page.Meta.Title = titleForPath(path)
		}
		entries = append(entries, entryFor(page))
	}
	return r.idx.ApplyPages(ctx, func(d *index.PageIndex) error {
		d.Pages = d.Pages[:0]
		for _, e := range entries {
			d.Upsert(e)
		}
		return nil
	})
}

func entryFor(p *Page) index.PageEntry {
	return index.PageEntry{
		Path:      p.Path,
		Title:     p.Meta.Title,
		CreatedAt: p.Meta.CreatedAt,
		UpdatedAt: p.Meta.UpdatedAt,
		Author:    p.Meta.Author,
		Tags:      p.Meta.Tags,
	}
}
