package wiki

import (
	"bytes"
	"errors"
	"slices"
	"strings"
	"testing"

	"github.com/bucketwiki/bucketwiki/internal/index"
	"github.com/bucketwiki/bucketwiki/internal/objstore"
)

func TestFileRepository_UploadRoundTrip(t *testing.T) {
	ctx, _, files, _ := newTestRepos(t)

	data := []byte{0x89, 'P', 'N', 'G'}
	entry, err := files.Upload(ctx, "plan.png", "image/png", data)
	if err != nil {
		t.Fatal(err)
	}
	if entry.ID != "plan.png" {
		t.Errorf("ID = %q, want plan.png", entry.ID)
	}
	if entry.Size != int64(len(data)) {
		t.Errorf("Size = %d, want %d", entry.Size, len(data))
	}

	got, blob, err := files.Get(ctx, "plan.png")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(blob, data) {
		t.Errorf("blob = %v, want %v", blob, data)
	}
	if got.ContentType != "image/png" {
		t.Errorf("ContentType = %q", got.ContentType)
	}
}

func TestFileRepository_SizeBoundary(t *testing.T) {
	ctx := t.Context()
	mem := objstore.NewMemStore()
	files := NewFileRepository(mem, index.NewStore(mem), 16)

	if _, err := files.Upload(ctx, "ok.bin", "", make([]byte, 16)); err != nil {
		t.Fatalf("upload of exactly maxSize bytes = %v, want nil", err)
	}
	if _, err := files.Upload(ctx, "big.bin", "", make([]byte, 17)); !errors.Is(err, ErrFileTooLarge) {
		t.Fatalf("upload of maxSize+1 bytes = %v, want ErrFileTooLarge", err)
	}
}

func TestFileRepository_Validation(t *testing.T) {
	ctx, _, files, _ := newTestRepos(t)

	if _, err := files.Upload(ctx, "", "", []byte("x")); !errors.Is(err, ErrInvalidFileType) {
		t.Errorf("empty filename = %v, want ErrInvalidFileType", err)
	}
	if _, err := files.Upload(ctx, "virus.exe", "", []byte("x")); !errors.Is(err, ErrInvalidFileType) {
		t.Errorf("denylisted extension = %v, want ErrInvalidFileType", err)
	}
	if _, err := files.Upload(ctx, "script.SH", "", []byte("x")); !errors.Is(err, ErrInvalidFileType) {
		t.Errorf("denylist must be case-insensitive, got %v", err)
	}
}

func TestFileRepository_CollisionGetsDisambiguated(t *testing.T) {
	ctx, _, files, _ := newTestRepos(t)

	first, err := files.Upload(ctx, "doc.pdf", "application/pdf", []byte("one"))
	if err != nil {
		t.Fatal(err)
	}
	second, err := files.Upload(ctx, "doc.pdf", "application/pdf", []byte("two"))
	if err != nil {
		t.Fatal(err)
	}
	if second.ID == first.ID {
		t.Fatalf("colliding upload got same id %q", second.ID)
	}
	if !strings.HasPrefix(second.ID, "doc-") || !strings.HasSuffix(second.ID, ".pdf") {
		t.Errorf("disambiguated id = %q, want doc-<suffix>.pdf", second.ID)
	}

	all, err := files.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("indexed files = %d, want 2", len(all))
	}
}

func TestFileRepository_DeleteRemovesBlobAndEntry(t *testing.T) {
	ctx, _, files, mem := newTestRepos(t)
	entry, err := files.Upload(ctx, "a.png", "image/png", []byte("x"))
	if err != nil {
		t.Fatal(err)
	}
	if err := files.Delete(ctx, entry.ID); err != nil {
		t.Fatal(err)
	}
	if err := files.Delete(ctx, entry.ID); !errors.Is(err, ErrFileNotFound) {
		t.Errorf("second delete = %v, want ErrFileNotFound", err)
	}
	if mem.Len() != 1 { // only metadata/files.json remains
		t.Errorf("store has %d objects, want 1", mem.Len())
	}
}

func TestFileRepository_References(t *testing.T) {
	ctx, pages, files, _ := newTestRepos(t)

	if _, err := files.Upload(ctx, "plan.png", "image/png", []byte("p")); err != nil {
		t.Fatal(err)
	}
	if _, err := pages.Create(ctx, "notes/todo.md", "# Todo\n![plan](plan.png)", "alice", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := pages.Create(ctx, "other.md", "# Other\nno refs here", "alice", nil); err != nil {
		t.Fatal(err)
	}

	refs, err := files.References(ctx, "plan.png")
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(refs, []string{"notes/todo.md"}) {
		t.Errorf("References = %v, want [notes/todo.md]", refs)
	}

	if _, err := files.References(ctx, "missing.png"); !errors.Is(err, ErrFileNotFound) {
		t.Errorf("References(missing) = %v, want ErrFileNotFound", err)
	}
}

func TestOrphanDetection_SingleReferrer(t *testing.T) {
	ctx, pages, files, _ := newTestRepos(t)

	if _, err := files.Upload(ctx, "img1", "image/png", []byte("i")); err != nil {
		t.Fatal(err)
	}
	if _, err := pages.Create(ctx, "a.md", "![x](img1)", "alice", nil); err != nil {
		t.Fatal(err)
	}

	orphaned, err := pages.Delete(ctx, "a.md")
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(orphaned, []string{"img1"}) {
		t.Errorf("orphaned = %v, want [img1]", orphaned)
	}
}

func TestOrphanDetection_OtherReferrerKeepsFile(t *testing.T) {
	ctx, pages, files, _ := newTestRepos(t)

	if _, err := files.Upload(ctx, "img1.png", "image/png", []byte("i")); err != nil {
		t.Fatal(err)
	}
	if _, err := pages.Create(ctx, "a.md", "![x](img1.png)", "alice", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := pages.Create(ctx, "b.md", "see ![also](img1.png)", "bob", nil); err != nil {
		t.Fatal(err)
	}

	orphaned, err := pages.Delete(ctx, "a.md")
	if err != nil {
		t.Fatal(err)
	}
	if len(orphaned) != 0 {
		t.Errorf("orphaned = %v, want none while b.md still refers", orphaned)
	}
}

func TestOrphanScenario_EndToEnd(t *testing.T) {
	ctx, pages, files, _ := newTestRepos(t)

	if _, err := pages.Create(ctx, "notes/todo.md", "# Todo\n![plan](plan.png)", "alice", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := files.Upload(ctx, "plan.png", "image/png", []byte("png")); err != nil {
		t.Fatal(err)
	}

	refs, err := files.References(ctx, "plan.png")
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(refs, []string{"notes/todo.md"}) {
		t.Fatalf("References = %v, want [notes/todo.md]", refs)
	}

	if _, err := pages.Delete(ctx, "notes/todo.md"); err != nil {
		t.Fatal(err)
	}

	orphans, err := files.AllOrphaned(ctx)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, e := range orphans {
		if e.ID == "plan.png" {
			found = true
		}
	}
	if !found {
		t.Errorf("AllOrphaned = %+v, want to include plan.png", orphans)
	}
}

func TestFileRepository_DeleteOrphanedBestEffort(t *testing.T) {
	ctx, _, files, _ := newTestRepos(t)

	a, err := files.Upload(ctx, "a.png", "image/png", []byte("a"))
	if err != nil {
		t.Fatal(err)
	}
	b, err := files.Upload(ctx, "b.png", "image/png", []byte("b"))
	if err != nil {
		t.Fatal(err)
	}

	failed, err := files.DeleteOrphaned(ctx, []string{a.ID, "already-gone.png", b.ID})
	if err != nil {
		t.Fatalf("err = %v, want nil (missing ids count as deleted)", err)
	}
	if len(failed) != 0 {
		t.Errorf("failed = %v, want none", failed)
	}
	all, err := files.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 0 {
		t.Errorf("files remaining = %+v, want none", all)
	}
}

func TestFileRepository_RebuildIndex(t *testing.T) {
	ctx, _, files, mem := newTestRepos(t)

	if _, err := files.Upload(ctx, "known.png", "image/png", []byte("k")); err != nil {
		t.Fatal(err)
	}
	// A blob written behind the repository's back.
	if _, err := mem.Put(ctx, "files/images/stray.png", []byte("s"), objstore.PutOptions{}); err != nil {
		t.Fatal(err)
	}

	doc, err := files.RebuildIndex(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Files) != 2 {
		t.Fatalf("rebuilt index has %d entries, want 2", len(doc.Files))
	}
	known := doc.Get("known.png")
	if known == nil || known.Filename != "known.png" {
		t.Errorf("known.png entry = %+v", known)
	}
	stray := doc.Get("stray.png")
	if stray == nil || stray.Size != 1 {
		t.Errorf("stray.png entry = %+v", stray)
	}
}
