package handlers

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/bucketwiki/bucketwiki/internal/index"
	"github.com/bucketwiki/bucketwiki/internal/objstore"
	"github.com/bucketwiki/bucketwiki/internal/server/dto"
	"github.com/bucketwiki/bucketwiki/internal/wiki"
)

func newTestServices(t *testing.T, maxFileSize int64) (*Services, *objstore.MemStore) {
	t.Helper()
	mem := objstore.NewMemStore()
	idx := index.NewStore(mem)
	files := wiki.NewFileRepository(mem, idx, maxFileSize)
	pages := wiki.NewPageRepository(mem, idx, files)
	return &Services{Pages: pages, Files: files, Index: idx, Store: mem}, mem
}

// A blob delete that fails for one id must not discard the ids that were
// deleted: the response reports both sides instead of erroring out.
func TestCleanupOrphansPartialFailure(t *testing.T) {
	ctx := t.Context()
	svc, mem := newTestServices(t, 0)
	h := NewFileHandler(svc)

	for _, name := range []string{"a.png", "b.png"} {
		if _, err := svc.Files.Upload(ctx, name, "image/png", []byte("data")); err != nil {
			t.Fatal(err)
		}
	}
	mem.Hook = func(op, key string) error {
		if op == "delete" && strings.HasSuffix(key, "/b.png") {
			return errors.New("blob delete failed")
		}
		return nil
	}

	resp, err := h.CleanupOrphans(ctx, &dto.CleanupOrphansRequest{IDs: []string{"a.png", "b.png"}})
	if err != nil {
		t.Fatalf("CleanupOrphans: %v", err)
	}
	if len(resp.Deleted) != 1 || resp.Deleted[0] != "a.png" {
		t.Errorf("Deleted = %v, want [a.png]", resp.Deleted)
	}
	if len(resp.Failed) != 1 || resp.Failed[0] != "b.png" {
		t.Errorf("Failed = %v, want [b.png]", resp.Failed)
	}
	if _, _, err := svc.Files.Get(ctx, "a.png"); !errors.Is(err, wiki.ErrFileNotFound) {
		t.Errorf("a.png after cleanup: err = %v, want ErrFileNotFound", err)
	}
	if _, _, err := svc.Files.Get(ctx, "b.png"); err != nil {
		t.Errorf("b.png should have survived the failed delete: %v", err)
	}
}

// An oversized upload is rejected with the configured limit, not the
// compiled-in default.
func TestUploadFileRejectsOversizeWithConfiguredLimit(t *testing.T) {
	ctx := t.Context()
	limit := int64(1 << 20)
	svc, _ := newTestServices(t, limit)
	h := NewFileHandler(svc)

	big := base64.StdEncoding.EncodeToString(make([]byte, limit+1))
	_, err := h.UploadFile(ctx, &dto.UploadFileRequest{Filename: "big.bin", Data: big})
	var ews dto.ErrorWithStatus
	if !errors.As(err, &ews) {
		t.Fatalf("UploadFile error = %v, want ErrorWithStatus", err)
	}
	if ews.StatusCode() != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", ews.StatusCode())
	}
	if got := ews.Details()["limitBytes"]; got != limit {
		t.Errorf("limitBytes = %v, want %d", got, limit)
	}
}
