package server

import (
	"context"
	"log/slog"
	"net/http"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
)

// SwappableHandler is an http.Handler whose target can be replaced while
// the server is running. The entrypoint swaps in a freshly built router
// when the configuration file changes, so new secrets and limits take
// effect without a restart.
type SwappableHandler struct {
	h atomic.Pointer[http.Handler]
}

// NewSwappableHandler creates a handler initially serving h.
func NewSwappableHandler(h http.Handler) *SwappableHandler {
	s := &SwappableHandler{}
	s.h.Store(&h)
	return s
}

// Swap replaces the active handler. In-flight requests finish on the
// handler they started with.
func (s *SwappableHandler) Swap(h http.Handler) {
	s.h.Store(&h)
}

func (s *SwappableHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	(*s.h.Load()).ServeHTTP(w, r)
}

// WatchServerConfig watches the configuration file and calls apply with
// the freshly loaded configuration on every change. The parent directory
// is watched rather than the file itself: editors and config management
// tools replace files by rename, which would orphan a watch on the old
// inode. Changes that fail to load are logged and skipped, keeping the
// running configuration.
func WatchServerConfig(ctx context.Context, path string, apply func(*ServerConfig)) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		_ = w.Close()
		return err
	}
	go func() {
		defer func() { _ = w.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if event.Name != abs || !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
					continue
				}
				cfg, err := LoadServerConfig(abs)
				if err != nil {
					slog.WarnContext(ctx, "Ignoring invalid config change", "path", abs, "err", err)
					continue
				}
				apply(cfg)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				slog.WarnContext(ctx, "Error watching config file", "err", err)
			}
		}
	}()
	return nil
}
