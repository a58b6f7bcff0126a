package wiki

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bucketwiki/bucketwiki/internal/index"
	"github.com/bucketwiki/bucketwiki/internal/objstore"
)

func newTestRepos(t *testing.T) (context.Context, *PageRepository, *FileRepository, *objstore.MemStore) {
	t.Helper()
	mem := objstore.NewMemStore()
	idx := index.NewStore(mem)
	files := NewFileRepository(mem, idx, 0)
	pages := NewPageRepository(mem, idx, files)
	return t.Context(), pages, files, mem
}

func TestPageRepository_CreateGetRoundTrip(t *testing.T) {
	ctx, pages, _, _ := newTestRepos(t)

	created, err := pages.Create(ctx, "notes/todo.md", "# Todo\n\nitems\n", "alice", []string{"work"})
	if err != nil {
		t.Fatal(err)
	}
	if created.Meta.Version != 1 {
		t.Errorf("Version = %d, want 1", created.Meta.Version)
	}
	if created.ETag == "" {
		t.Error("ETag is empty")
	}
	if created.Meta.Title != "Todo" {
		t.Errorf("Title = %q, want Todo", created.Meta.Title)
	}

	got, err := pages.Get(ctx, "notes/todo.md")
	if err != nil {
		t.Fatal(err)
	}
	if got.Content != "# Todo\n\nitems\n" {
		t.Errorf("Content = %q", got.Content)
	}
	if got.Meta.Version != 1 || got.Meta.Author != "alice" {
		t.Errorf("Meta = %+v", got.Meta)
	}
	if got.ETag != created.ETag {
		t.Errorf("ETag = %q, want %q", got.ETag, created.ETag)
	}
}

func TestPageRepository_CreateRejectsExisting(t *testing.T) {
	ctx, pages, _, _ := newTestRepos(t)
	if _, err := pages.Create(ctx, "a.md", "one", "alice", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := pages.Create(ctx, "a.md", "two", "bob", nil); !errors.Is(err, ErrPageExists) {
		t.Fatalf("err = %v, want ErrPageExists", err)
	}
}

func TestPageRepository_InvalidPath(t *testing.T) {
	ctx, pages, _, _ := newTestRepos(t)
	for _, p := range []string{"", "  ", "../x.md", "a//b.md"} {
		if _, err := pages.Create(ctx, p, "c", "alice", nil); !errors.Is(err, ErrInvalidPath) {
			t.Errorf("Create(%q) = %v, want ErrInvalidPath", p, err)
		}
	}
}

func TestPageRepository_GetMissing(t *testing.T) {
	ctx, pages, _, _ := newTestRepos(t)
	if _, err := pages.Get(ctx, "nope.md"); !errors.Is(err, ErrPageNotFound) {
		t.Fatalf("err = %v, want ErrPageNotFound", err)
	}
}

func TestPageRepository_UpdateIncrementsVersion(t *testing.T) {
	ctx, pages, _, _ := newTestRepos(t)
	p1, err := pages.Create(ctx, "a.md", "# A\nv1", "alice", nil)
	if err != nil {
		t.Fatal(err)
	}
	p2, err := pages.Update(ctx, "a.md", "# A\nv2", p1.ETag, "bob", nil)
	if err != nil {
		t.Fatal(err)
	}
	if p2.Meta.Version != 2 {
		t.Errorf("Version = %d, want 2", p2.Meta.Version)
	}
	if p2.ETag == p1.ETag {
		t.Error("ETag unchanged after update")
	}
	if !p2.Meta.CreatedAt.Equal(p1.Meta.CreatedAt) {
		t.Error("CreatedAt changed on update")
	}
	if p2.Meta.Author != "bob" {
		t.Errorf("Author = %q, want bob", p2.Meta.Author)
	}
}

func TestPageRepository_OptimisticLock(t *testing.T) {
	ctx, pages, _, _ := newTestRepos(t)
	p, err := pages.Create(ctx, "a.md", "# A\nbase", "alice", nil)
	if err != nil {
		t.Fatal(err)
	}

	// First writer wins.
	if _, err := pages.Update(ctx, "a.md", "# A\nwinner", p.ETag, "bob", nil); err != nil {
		t.Fatal(err)
	}

	// Second writer with the stale etag gets a conflict carrying the
	// winner's content, and is never retried automatically.
	_, err = pages.Update(ctx, "a.md", "# A\nloser", p.ETag, "carol", nil)
	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("err = %v, want ConflictError", err)
	}
	if conflict.Current == nil || conflict.Current.Content != "# A\nwinner" {
		t.Fatalf("conflict.Current = %+v, want winner's page", conflict.Current)
	}

	got, err := pages.Get(ctx, "a.md")
	if err != nil {
		t.Fatal(err)
	}
	if got.Content != "# A\nwinner" {
		t.Errorf("Content = %q, want winner's", got.Content)
	}
}

func TestPageRepository_ConcurrentUpdatesExactlyOneWins(t *testing.T) {
	ctx, pages, _, _ := newTestRepos(t)
	p, err := pages.Create(ctx, "a.md", "base", "alice", nil)
	if err != nil {
		t.Fatal(err)
	}

	const writers = 8
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners, conflicts := 0, 0
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := pages.Update(ctx, "a.md", fmt.Sprintf("content %d", i), p.ETag, "w", nil)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners++
			case IsConflict(err):
				conflicts++
			default:
				t.Errorf("writer %d: %v", i, err)
			}
		}()
	}
	wg.Wait()
	if winners != 1 {
		t.Errorf("winners = %d, want exactly 1", winners)
	}
	if conflicts != writers-1 {
		t.Errorf("conflicts = %d, want %d", conflicts, writers-1)
	}
}

func TestPageRepository_ConcurrentCreatesIndexIntegrity(t *testing.T) {
	mem := objstore.NewMemStore()
	idx := index.NewStore(mem)
	files := NewFileRepository(mem, idx, 0)
	pages := NewPageRepository(mem, idx, files)
	ctx := t.Context()

	const n = 8
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			path := fmt.Sprintf("bulk/p%02d.md", i)
			page, err := pages.Create(ctx, path, "# P\nbody", "alice", nil)
			for errors.Is(err, index.ErrIndexContention) {
				// Caller-retryable: the blob landed, only the index entry is
				// missing. Retry just the index insert.
				time.Sleep(10 * time.Millisecond)
				_, err = idx.ApplyPages(ctx, func(d *index.PageIndex) error {
					d.Upsert(entryFor(page))
					return nil
				})
			}
			if err != nil {
				t.Errorf("create %s: %v", path, err)
			}
		}()
	}
	wg.Wait()

	entries, err := pages.List(ctx, "bulk/")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != n {
		t.Fatalf("index has %d entries, want %d", len(entries), n)
	}
	seen := map[string]bool{}
	for _, e := range entries {
		if seen[e.Path] {
			t.Errorf("duplicate index entry %q", e.Path)
		}
		seen[e.Path] = true
	}
}

func TestPageRepository_DeleteIdempotent(t *testing.T) {
	ctx, pages, _, mem := newTestRepos(t)
	if _, err := pages.Create(ctx, "a.md", "# A", "alice", nil); err != nil {
		t.Fatal(err)
	}

	if _, err := pages.Delete(ctx, "a.md"); err != nil {
		t.Fatal(err)
	}
	entries, err := pages.List(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Fatalf("index still has %d entries", len(entries))
	}

	// Second delete of the same path succeeds too.
	if _, err := pages.Delete(ctx, "a.md"); err != nil {
		t.Fatalf("second delete = %v, want nil", err)
	}
	if _, _, err := mem.Get(ctx, "pages/a.md"); !objstore.IsNotFound(err) {
		t.Errorf("blob still present: %v", err)
	}
}

func TestPageRepository_ListPrefix(t *testing.T) {
	ctx, pages, _, _ := newTestRepos(t)
	for _, p := range []string{"notes/a.md", "notes/b.md", "other/c.md"} {
		if _, err := pages.Create(ctx, p, "# X", "alice", nil); err != nil {
			t.Fatal(err)
		}
	}
	entries, err := pages.List(ctx, "notes/")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("len = %d, want 2", len(entries))
	}
	all, err := pages.List(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("len = %d, want 3", len(all))
	}
}

func TestPageRepository_Search(t *testing.T) {
	ctx, pages, _, _ := newTestRepos(t)
	mk := func(path, content string, tags []string) {
		t.Helper()
		if _, err := pages.Create(ctx, path, content, "alice", tags); err != nil {
			t.Fatal(err)
		}
	}
	mk("exact.md", "# Deploy\nhow", nil)
	mk("sub.md", "# Deployment Guide\nhow", nil)
	mk("tagged.md", "# Something Else\nhow", []string{"deploy"})
	mk("deploy-notes/misc.md", "# Misc\nhow", nil)
	mk("unrelated.md", "# Recipes\ncake", nil)

	got, err := pages.Search(ctx, "deploy")
	if err != nil {
		t.Fatal(err)
	}
	wantOrder := []string{"exact.md", "sub.md", "tagged.md", "deploy-notes/misc.md"}
	if len(got) != len(wantOrder) {
		t.Fatalf("got %d results, want %d: %+v", len(got), len(wantOrder), got)
	}
	for i, w := range wantOrder {
		if got[i].Path != w {
			t.Errorf("result[%d] = %q, want %q", i, got[i].Path, w)
		}
	}

	if res, err := pages.Search(ctx, "  "); err != nil || res != nil {
		t.Errorf("blank query = %v, %v; want nil, nil", res, err)
	}
}

func TestPageRepository_RebuildIndexHealsMissingEntry(t *testing.T) {
	ctx, pages, _, mem := newTestRepos(t)
	if _, err := pages.Create(ctx, "kept.md", "# Kept", "alice", nil); err != nil {
		t.Fatal(err)
	}

	// Simulate the accepted inconsistency window: a blob that exists with
	// no index entry (as if the index update had exhausted its budget).
	data, err := encodePage(Metadata{Title: "Lost", Author: "bob", Version: 1,
		CreatedAt: time.Now().UTC(), UpdatedAt: time.Now().UTC()}, "# Lost\n")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := mem.Put(ctx, "pages/lost.md", data, objstore.PutOptions{}); err != nil {
		t.Fatal(err)
	}

	doc, err := pages.RebuildIndex(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Pages) != 2 {
		t.Fatalf("rebuilt index has %d entries, want 2", len(doc.Pages))
	}
	if doc.Get("lost.md") == nil {
		t.Error("lost.md not healed into index")
	}
	if doc.Get("kept.md") == nil {
		t.Error("kept.md dropped by rebuild")
	}
}
