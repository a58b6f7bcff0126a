package handlers

import (
	"context"
	"errors"
	"log/slog"

	"github.com/bucketwiki/bucketwiki/internal/index"
	"github.com/bucketwiki/bucketwiki/internal/server/dto"
	"github.com/bucketwiki/bucketwiki/internal/server/reqctx"
	"github.com/bucketwiki/bucketwiki/internal/wiki"
)

// PageHandler handles page CRUD, search, and tree requests.
type PageHandler struct {
	svc *Services
}

// NewPageHandler creates a new page handler.
func NewPageHandler(svc *Services) *PageHandler {
	return &PageHandler{svc: svc}
}

// ListPages lists pages, optionally restricted to a path prefix.
func (h *PageHandler) ListPages(ctx context.Context, req *dto.ListPagesRequest) (*dto.ListPagesResponse, error) {
	entries, err := h.svc.Pages.List(ctx, req.Prefix)
	if err != nil {
		return nil, h.svc.apiError(err)
	}
	return &dto.ListPagesResponse{Pages: pageSummaries(entries)}, nil
}

// GetPage fetches a single page with its content and current ETag.
func (h *PageHandler) GetPage(ctx context.Context, req *dto.GetPageRequest) (*dto.PageResponse, error) {
	page, err := h.svc.Pages.Get(ctx, req.Path)
	if err != nil {
		return nil, h.svc.apiError(err)
	}
	return pageResponse(page), nil
}

// CreatePage creates a new page.
//
// A page whose object write succeeded but whose index insert lost its
// retry budget is still reported as created: the object is durable and the
// next index rebuild picks it up.
func (h *PageHandler) CreatePage(ctx context.Context, req *dto.CreatePageRequest) (*dto.PageResponse, error) {
	page, err := h.svc.Pages.Create(ctx, req.Path, req.Content, reqctx.Author(ctx), req.Tags)
	if err != nil {
		if page != nil && errors.Is(err, index.ErrIndexContention) {
			slog.WarnContext(ctx, "Page created but index update lost", "path", page.Path, "err", err)
			return pageResponse(page), nil
		}
		return nil, h.svc.apiError(err)
	}
	return pageResponse(page), nil
}

// UpdatePage updates an existing page if the caller's ETag still matches.
func (h *PageHandler) UpdatePage(ctx context.Context, req *dto.UpdatePageRequest) (*dto.PageResponse, error) {
	page, err := h.svc.Pages.Update(ctx, req.Path, req.Content, req.ETag, reqctx.Author(ctx), req.Tags)
	if err != nil {
		return nil, h.svc.apiError(err)
	}
	return pageResponse(page), nil
}

// DeletePage deletes a page and reports the files its removal orphaned.
func (h *PageHandler) DeletePage(ctx context.Context, req *dto.DeletePageRequest) (*dto.DeletePageResponse, error) {
	orphaned, err := h.svc.Pages.Delete(ctx, req.Path)
	if err != nil {
		return nil, h.svc.apiError(err)
	}
	return &dto.DeletePageResponse{Ok: true, OrphanedFiles: orphaned}, nil
}

// SearchPages searches page metadata and returns ranked results.
func (h *PageHandler) SearchPages(ctx context.Context, req *dto.SearchPagesRequest) (*dto.SearchPagesResponse, error) {
	entries, err := h.svc.Pages.Search(ctx, req.Query)
	if err != nil {
		return nil, h.svc.apiError(err)
	}
	return &dto.SearchPagesResponse{Pages: pageSummaries(entries)}, nil
}

// GetTree returns the hierarchical folder/page tree.
func (h *PageHandler) GetTree(ctx context.Context, req *dto.GetTreeRequest) (*dto.GetTreeResponse, error) {
	entries, err := h.svc.Pages.List(ctx, "")
	if err != nil {
		return nil, h.svc.apiError(err)
	}
	return &dto.GetTreeResponse{Tree: treeNodes(wiki.BuildTree(entries))}, nil
}

// RebuildIndex rebuilds both metadata index documents from the stored
// objects.
func (h *PageHandler) RebuildIndex(ctx context.Context, req *dto.RebuildIndexRequest) (*dto.RebuildIndexResponse, error) {
	pages, err := h.svc.Pages.RebuildIndex(ctx)
	if err != nil {
		return nil, h.svc.apiError(err)
	}
	files, err := h.svc.Files.RebuildIndex(ctx)
	if err != nil {
		return nil, h.svc.apiError(err)
	}
	return &dto.RebuildIndexResponse{Pages: len(pages.Pages), Files: len(files.Files)}, nil
}
