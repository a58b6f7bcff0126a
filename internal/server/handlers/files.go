package handlers

import (
	"context"
	"encoding/base64"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/bucketwiki/bucketwiki/internal/server/dto"
)

// FileHandler handles file upload, download, and orphan management.
type FileHandler struct {
	svc *Services
}

// NewFileHandler creates a new file handler.
func NewFileHandler(svc *Services) *FileHandler {
	return &FileHandler{svc: svc}
}

// ListFiles lists all uploaded files.
func (h *FileHandler) ListFiles(ctx context.Context, req *dto.ListFilesRequest) (*dto.ListFilesResponse, error) {
	entries, err := h.svc.Files.List(ctx)
	if err != nil {
		return nil, h.svc.apiError(err)
	}
	return &dto.ListFilesResponse{Files: fileResponses(entries)}, nil
}

// GetFile returns a file's metadata.
func (h *FileHandler) GetFile(ctx context.Context, req *dto.GetFileRequest) (*dto.FileResponse, error) {
	entry, _, err := h.svc.Files.Get(ctx, req.ID)
	if err != nil {
		return nil, h.svc.apiError(err)
	}
	resp := fileResponse(entry)
	return &resp, nil
}

// UploadFile stores a new file from a base64-encoded request body.
func (h *FileHandler) UploadFile(ctx context.Context, req *dto.UploadFileRequest) (*dto.FileResponse, error) {
	data, err := base64.StdEncoding.DecodeString(req.Data)
	if err != nil {
		return nil, dto.InvalidField("data", "not valid base64")
	}
	entry, err := h.svc.Files.Upload(ctx, req.Filename, req.ContentType, data)
	if err != nil {
		return nil, h.svc.apiError(err)
	}
	resp := fileResponse(entry)
	return &resp, nil
}

// DeleteFile deletes a file and its index entry.
func (h *FileHandler) DeleteFile(ctx context.Context, req *dto.DeleteFileRequest) (*dto.OkResponse, error) {
	if err := h.svc.Files.Delete(ctx, req.ID); err != nil {
		return nil, h.svc.apiError(err)
	}
	return &dto.OkResponse{Ok: true}, nil
}

// FileReferences lists the pages that reference a file.
func (h *FileHandler) FileReferences(ctx context.Context, req *dto.FileReferencesRequest) (*dto.FileReferencesResponse, error) {
	pages, err := h.svc.Files.References(ctx, req.ID)
	if err != nil {
		return nil, h.svc.apiError(err)
	}
	return &dto.FileReferencesResponse{ID: req.ID, Pages: pages}, nil
}

// ListOrphans lists files no page references.
func (h *FileHandler) ListOrphans(ctx context.Context, req *dto.ListOrphansRequest) (*dto.ListOrphansResponse, error) {
	entries, err := h.svc.Files.AllOrphaned(ctx)
	if err != nil {
		return nil, h.svc.apiError(err)
	}
	return &dto.ListOrphansResponse{Files: fileResponses(entries)}, nil
}

// CleanupOrphans deletes orphaned files. With no explicit ids, everything
// currently orphaned is deleted.
func (h *FileHandler) CleanupOrphans(ctx context.Context, req *dto.CleanupOrphansRequest) (*dto.CleanupOrphansResponse, error) {
	ids := req.IDs
	if len(ids) == 0 {
		entries, err := h.svc.Files.AllOrphaned(ctx)
		if err != nil {
			return nil, h.svc.apiError(err)
		}
		for _, e := range entries {
			ids = append(ids, e.ID)
		}
	}
	// Deletion is best-effort: ids that failed are reported alongside the
	// ones that went through, not turned into an error response.
	failed, err := h.svc.Files.DeleteOrphaned(ctx, ids)
	if err != nil {
		slog.WarnContext(ctx, "Some orphaned files could not be deleted", "failed", failed, "err", err)
	}
	deleted := make([]string, 0, len(ids))
	for _, id := range ids {
		ok := true
		for _, f := range failed {
			if f == id {
				ok = false
				break
			}
		}
		if ok {
			deleted = append(deleted, id)
		}
	}
	return &dto.CleanupOrphansResponse{Deleted: deleted, Failed: failed}, nil
}

// DownloadFile serves the raw file bytes. This is a raw handler because the
// response body is the blob itself, not JSON.
func (h *FileHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeErrorResponse(w, dto.MissingField("id"))
		return
	}
	entry, blob, err := h.svc.Files.Get(r.Context(), id)
	if err != nil {
		writeErrorResponse(w, h.svc.apiError(err))
		return
	}
	ct := entry.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	w.Header().Set("Content-Type", ct)
	w.Header().Set("Content-Length", strconv.FormatInt(entry.Size, 10))
	w.Header().Set("Content-Disposition", `inline; filename="`+entry.Filename+`"`)
	_, _ = w.Write(blob)
}
