package handlers

import (
	"context"

	"github.com/bucketwiki/bucketwiki/internal/server/dto"
	"github.com/bucketwiki/bucketwiki/internal/wiki"
)

// ConfigHandler serves the wiki configuration document.
type ConfigHandler struct {
	svc *Services
}

// NewConfigHandler creates a new config handler.
func NewConfigHandler(svc *Services) *ConfigHandler {
	return &ConfigHandler{svc: svc}
}

// GetConfig returns the wiki configuration, or the defaults if none has
// been saved yet.
func (h *ConfigHandler) GetConfig(ctx context.Context, req *dto.GetConfigRequest) (*dto.ConfigResponse, error) {
	cfg, err := wiki.LoadConfig(ctx, h.svc.Store)
	if err != nil {
		return nil, h.svc.apiError(err)
	}
	return &dto.ConfigResponse{Title: cfg.Title, Description: cfg.Description}, nil
}

// UpdateConfig replaces the wiki configuration.
func (h *ConfigHandler) UpdateConfig(ctx context.Context, req *dto.UpdateConfigRequest) (*dto.ConfigResponse, error) {
	cfg := wiki.Config{Title: req.Title, Description: req.Description}
	if err := wiki.SaveConfig(ctx, h.svc.Store, cfg); err != nil {
		return nil, h.svc.apiError(err)
	}
	return &dto.ConfigResponse{Title: cfg.Title, Description: cfg.Description}, nil
}
