// Package handlers implements the HTTP API endpoints.
package handlers

import (
	"github.com/bucketwiki/bucketwiki/internal/index"
	"github.com/bucketwiki/bucketwiki/internal/objstore"
	"github.com/bucketwiki/bucketwiki/internal/wiki"
)

// Services holds the repository dependencies shared by handlers.
type Services struct {
	Pages *wiki.PageRepository
	Files *wiki.FileRepository
	Index *index.Store
	Store objstore.Store
}

// Config holds configuration values needed by handlers.
type Config struct {
	JWTSecret           string
	Version             string
	MaxRequestBodyBytes int64
}
