package server

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"
)

func TestSwappableHandlerSwap(t *testing.T) {
	h := NewSwappableHandler(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusTeapot {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusTeapot)
	}

	h.Swap(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status after swap = %d, want %d", rec.Code, http.StatusNoContent)
	}
}

func TestWatchServerConfigAppliesChanges(t *testing.T) {
	ctx := t.Context()
	path := filepath.Join(t.TempDir(), "server_config.json")
	cfg, err := LoadServerConfig(path)
	if err != nil {
		t.Fatal(err)
	}

	applied := make(chan *ServerConfig, 1)
	if err := WatchServerConfig(ctx, path, func(c *ServerConfig) {
		select {
		case applied <- c:
		default:
		}
	}); err != nil {
		t.Fatal(err)
	}

	cfg.MaxFileSizeMB = 5
	if err := saveServerConfig(path, cfg); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-applied:
		if got.MaxFileSizeMB != 5 {
			t.Errorf("MaxFileSizeMB = %d, want 5", got.MaxFileSizeMB)
		}
		if got.JWTSecret != cfg.JWTSecret {
			t.Error("reload changed the JWT secret")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("config change was not applied")
	}
}
