package server

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"

	"github.com/bucketwiki/bucketwiki/internal/server/ratelimit"
)

// ServerConfig is the local server configuration file. It holds secrets
// and operational knobs that do not belong in the bucket.
type ServerConfig struct {
	// JWTSecret signs and verifies API tokens. Generated on first start.
	JWTSecret string `json:"jwt_secret"`
	// MaxFileSizeMB caps uploaded file size. 0 uses the default.
	MaxFileSizeMB int64 `json:"max_file_size_mb"`
	// MaxRequestBodyMB caps JSON request bodies. 0 uses the default.
	MaxRequestBodyMB int64            `json:"max_request_body_mb"`
	RateLimits       ratelimit.Limits `json:"rate_limits"`
}

// LoadServerConfig reads the configuration file, creating it with a fresh
// random JWT secret if it does not exist.
func LoadServerConfig(path string) (*ServerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		cfg := &ServerConfig{
			JWTSecret:  newSecret(),
			RateLimits: ratelimit.DefaultLimits(),
		}
		if err := saveServerConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to write %s: %w", path, err)
		}
		return cfg, nil
	}
	cfg := &ServerConfig{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = newSecret()
		if err := saveServerConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to update %s: %w", path, err)
		}
	}
	return cfg, nil
}

func saveServerConfig(path string, cfg *ServerConfig) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	// 0600: the file carries the JWT secret.
	return os.WriteFile(path, append(data, '\n'), 0o600)
}

func newSecret() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		panic(err)
	}
	return hex.EncodeToString(b)
}
