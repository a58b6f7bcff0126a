// Package server implements the HTTP server and routing logic.
package server

import (
	"net/http"

	"github.com/bucketwiki/bucketwiki/internal/server/handlers"
	"github.com/bucketwiki/bucketwiki/internal/server/ratelimit"
)

// NewRouter creates and configures the HTTP router. Reads are open;
// mutations and admin operations require a valid Bearer token when a JWT
// secret is configured.
func NewRouter(svc *handlers.Services, cfg *handlers.Config, limits *ratelimit.Config) http.Handler {
	mux := &http.ServeMux{}
	ph := handlers.NewPageHandler(svc)
	fh := handlers.NewFileHandler(svc)
	ch := handlers.NewConfigHandler(svc)
	hh := handlers.NewHealthHandler(cfg.Version)

	// Health check
	mux.Handle("GET /api/health", Wrap(hh.Health, cfg, limits))

	// Pages
	mux.Handle("GET /api/pages", Wrap(ph.ListPages, cfg, limits))
	mux.Handle("GET /api/pages/{path...}", Wrap(ph.GetPage, cfg, limits))
	mux.Handle("POST /api/pages", WrapAuth(ph.CreatePage, cfg, limits))
	mux.Handle("PUT /api/pages/{path...}", WrapAuth(ph.UpdatePage, cfg, limits))
	mux.Handle("DELETE /api/pages/{path...}", WrapAuth(ph.DeletePage, cfg, limits))
	mux.Handle("GET /api/search", Wrap(ph.SearchPages, cfg, limits))
	mux.Handle("GET /api/tree", Wrap(ph.GetTree, cfg, limits))

	// Files
	mux.Handle("GET /api/files", Wrap(fh.ListFiles, cfg, limits))
	mux.Handle("GET /api/files/{id}", Wrap(fh.GetFile, cfg, limits))
	mux.Handle("GET /api/files/{id}/content", WrapRaw(fh.DownloadFile, cfg, limits))
	mux.Handle("GET /api/files/{id}/references", Wrap(fh.FileReferences, cfg, limits))
	mux.Handle("POST /api/files", WrapAuth(fh.UploadFile, cfg, limits))
	mux.Handle("DELETE /api/files/{id}", WrapAuth(fh.DeleteFile, cfg, limits))

	// Admin
	mux.Handle("GET /api/admin/orphans", WrapAuth(fh.ListOrphans, cfg, limits))
	mux.Handle("POST /api/admin/orphans/cleanup", WrapAuth(fh.CleanupOrphans, cfg, limits))
	mux.Handle("POST /api/admin/rebuild-index", WrapAuth(ph.RebuildIndex, cfg, limits))

	// Wiki configuration
	mux.Handle("GET /api/config", Wrap(ch.GetConfig, cfg, limits))
	mux.Handle("PUT /api/config", WrapAuth(ch.UpdateConfig, cfg, limits))

	return mux
}
