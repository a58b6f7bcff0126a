package wiki

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bucketwiki/bucketwiki/internal/objstore"
)

// Config is the wiki-wide configuration document stored at ConfigKey.
type Config struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// DefaultConfig returns the configuration used before any has been saved.
func DefaultConfig() Config {
	return Config{Title: "Wiki"}
}

// LoadConfig reads the configuration document. A missing document yields
// the defaults.
func LoadConfig(ctx context.Context, store objstore.Store) (Config, error) {
	data, _, err := store.Get(ctx, ConfigKey)
	if err != nil {
		if objstore.IsNotFound(err) {
			return DefaultConfig(), nil
		}
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// SaveConfig writes the configuration document, replacing any previous one.
func SaveConfig(ctx context.Context, store objstore.Store, cfg Config) error {
	data, err := json.MarshalIndent(&cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if _, err := store.Put(ctx, ConfigKey, data, objstore.PutOptions{ContentType: "application/json"}); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	return nil
}
