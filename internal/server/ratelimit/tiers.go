package ratelimit

import (
	"strings"
	"time"
)

// Scope defines how rate limit keys are determined.
type Scope int

const (
	// ScopeIP uses the client IP address as the rate limit key.
	ScopeIP Scope = iota
	// ScopeAuthor uses the authenticated author name as the rate limit key.
	ScopeAuthor
)

// Tier defines a rate limit tier with its limiter and scope.
type Tier struct {
	Name    string
	Limiter *Limiter
	Scope   Scope
}

// Config holds rate limiters for the different request classes.
type Config struct {
	Write Tier // mutating requests, keyed by author
	Read  Tier // read requests, keyed by IP
	Admin Tier // index rebuilds and orphan cleanup, keyed by author
}

// Limits configures the per-minute request budgets of a Config.
type Limits struct {
	WritePerMinute int `json:"write_per_minute"`
	ReadPerMinute  int `json:"read_per_minute"`
	AdminPerMinute int `json:"admin_per_minute"`
}

// DefaultLimits returns the default per-minute budgets.
func DefaultLimits() Limits {
	return Limits{WritePerMinute: 120, ReadPerMinute: 1200, AdminPerMinute: 6}
}

// NewConfig creates a Config from the given budgets. Zero fields fall back
// to the defaults.
func NewConfig(limits Limits) *Config {
	def := DefaultLimits()
	if limits.WritePerMinute <= 0 {
		limits.WritePerMinute = def.WritePerMinute
	}
	if limits.ReadPerMinute <= 0 {
		limits.ReadPerMinute = def.ReadPerMinute
	}
	if limits.AdminPerMinute <= 0 {
		limits.AdminPerMinute = def.AdminPerMinute
	}
	return &Config{
		Write: Tier{
			Name:    "write",
			Limiter: NewLimiter(limits.WritePerMinute, time.Minute, max(limits.WritePerMinute/6, 1)),
			Scope:   ScopeAuthor,
		},
		Read: Tier{
			Name:    "read",
			Limiter: NewLimiter(limits.ReadPerMinute, time.Minute, max(limits.ReadPerMinute/6, 1)),
			Scope:   ScopeIP,
		},
		Admin: Tier{
			Name:    "admin",
			Limiter: NewLimiter(limits.AdminPerMinute, time.Minute, max(limits.AdminPerMinute, 1)),
			Scope:   ScopeAuthor,
		},
	}
}

// Match returns the tier for a request, or nil for paths that are not
// rate limited.
func (c *Config) Match(method, path string) *Tier {
	if path == "/api/health" {
		return nil
	}
	if strings.HasPrefix(path, "/api/admin/") {
		return &c.Admin
	}
	switch method {
	case "POST", "PUT", "PATCH", "DELETE":
		return &c.Write
	case "GET", "HEAD":
		return &c.Read
	}
	return nil
}

// Close stops all limiter cleanup goroutines.
func (c *Config) Close() {
	c.Write.Limiter.Close()
	c.Read.Limiter.Close()
	c.Admin.Limiter.Close()
}
