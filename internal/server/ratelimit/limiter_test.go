package ratelimit

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestLimiter_AllowsBurstThenRejects(t *testing.T) {
	l := NewLimiter(10, time.Minute, 3)
	defer l.Close()

	for i := range 3 {
		if res := l.Allow("k"); !res.Allowed {
			t.Fatalf("request %d rejected within burst", i)
		}
	}
	res := l.Allow("k")
	if res.Allowed {
		t.Fatal("request beyond burst allowed")
	}
	if res.RetryAfter <= 0 {
		t.Errorf("RetryAfter = %v, want > 0", res.RetryAfter)
	}
}

func TestLimiter_KeysAreIndependent(t *testing.T) {
	l := NewLimiter(10, time.Minute, 1)
	defer l.Close()

	if !l.Allow("a").Allowed {
		t.Fatal("first request for a rejected")
	}
	if l.Allow("a").Allowed {
		t.Fatal("second request for a allowed")
	}
	if !l.Allow("b").Allowed {
		t.Fatal("first request for b rejected, keys must not share buckets")
	}
}

func TestWriteHeaders(t *testing.T) {
	w := httptest.NewRecorder()
	WriteHeaders(w, Result{
		Allowed:    false,
		Limit:      60,
		Remaining:  0,
		ResetAt:    time.Unix(1700000000, 0),
		RetryAfter: 2 * time.Second,
	})
	if got := w.Header().Get("X-RateLimit-Limit"); got != "60" {
		t.Errorf("X-RateLimit-Limit = %q", got)
	}
	if got := w.Header().Get("X-RateLimit-Remaining"); got != "0" {
		t.Errorf("X-RateLimit-Remaining = %q", got)
	}
	if got := w.Header().Get("Retry-After"); got != "2" {
		t.Errorf("Retry-After = %q", got)
	}
}

func TestConfig_Match(t *testing.T) {
	c := NewConfig(DefaultLimits())
	defer c.Close()

	tests := []struct {
		method, path string
		want         string
	}{
		{"GET", "/api/health", ""},
		{"GET", "/api/pages", "read"},
		{"POST", "/api/pages", "write"},
		{"PUT", "/api/pages/a.md", "write"},
		{"DELETE", "/api/files/x.png", "write"},
		{"POST", "/api/admin/rebuild-index", "admin"},
		{"GET", "/api/admin/orphans", "admin"},
	}
	for _, tt := range tests {
		tier := c.Match(tt.method, tt.path)
		got := ""
		if tier != nil {
			got = tier.Name
		}
		if got != tt.want {
			t.Errorf("Match(%s %s) = %q, want %q", tt.method, tt.path, got, tt.want)
		}
	}
}

func TestBuildKey(t *testing.T) {
	if got := BuildKey(ScopeIP, "192.0.2.1", "read"); got != "ip:192.0.2.1:read" {
		t.Errorf("BuildKey = %q", got)
	}
	if got := BuildKey(ScopeAuthor, "alice", "write"); got != "author:alice:write" {
		t.Errorf("BuildKey = %q", got)
	}
}
