// Converts repository types into API response types.

package handlers

import (
	"time"

	"github.com/bucketwiki/bucketwiki/internal/index"
	"github.com/bucketwiki/bucketwiki/internal/server/dto"
	"github.com/bucketwiki/bucketwiki/internal/wiki"
)

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func pageResponse(p *wiki.Page) *dto.PageResponse {
	return &dto.PageResponse{
		Path:      p.Path,
		Title:     p.Meta.Title,
		Content:   p.Content,
		Author:    p.Meta.Author,
		Tags:      p.Meta.Tags,
		Version:   p.Meta.Version,
		CreatedAt: formatTime(p.Meta.CreatedAt),
		UpdatedAt: formatTime(p.Meta.UpdatedAt),
		ETag:      p.ETag,
	}
}

func pageSummaries(entries []index.PageEntry) []dto.PageSummary {
	out := make([]dto.PageSummary, len(entries))
	for i, e := range entries {
		out[i] = dto.PageSummary{
			Path:      e.Path,
			Title:     e.Title,
			Author:    e.Author,
			Tags:      e.Tags,
			CreatedAt: formatTime(e.CreatedAt),
			UpdatedAt: formatTime(e.UpdatedAt),
		}
	}
	return out
}

func fileResponse(e *index.FileEntry) dto.FileResponse {
	return dto.FileResponse{
		ID:          e.ID,
		Filename:    e.Filename,
		Size:        e.Size,
		ContentType: e.ContentType,
		Category:    wiki.FileCategory(e.ContentType),
		UploadedAt:  formatTime(e.UploadedAt),
		URL:         "/api/files/" + e.ID + "/content",
	}
}

func fileResponses(entries []index.FileEntry) []dto.FileResponse {
	out := make([]dto.FileResponse, len(entries))
	for i := range entries {
		out[i] = fileResponse(&entries[i])
	}
	return out
}

func treeNodes(nodes []*wiki.TreeNode) []dto.TreeNode {
	if len(nodes) == 0 {
		return nil
	}
	out := make([]dto.TreeNode, len(nodes))
	for i, n := range nodes {
		out[i] = dto.TreeNode{
			Path:     n.Path,
			Title:    n.Title,
			IsFolder: n.IsFolder,
			Children: treeNodes(n.Children),
		}
	}
	return out
}
