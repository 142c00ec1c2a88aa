// Package config loads tool configuration by layering defaults, an optional
// config file, and environment variables. Credentials live in the same file;
// the engine only ever sees the bearer token derived from them.
package config

import (
	"fmt"
	"os"
	"strings"

	koanfyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"gopkg.in/yaml.v3"

	"github.com/roach88/regimport/internal/icpc"
	"github.com/roach88/regimport/internal/resolve"
)

// DefaultPath is the config file the tool reads and writes by default.
const DefaultPath = ".config.yaml"

// envPrefix maps REGIMPORT_PAGE_SIZE to the page_size key and so on.
const envPrefix = "REGIMPORT_"

// Config is the process configuration.
type Config struct {
	// Username and Password are the icpc.global login. When empty the CLI
	// prompts for them and offers to store them.
	Username string `koanf:"username"`
	Password string `koanf:"password"`

	// BaseURL is the API root.
	BaseURL string `koanf:"base_url"`

	// AuthEndpoint and AuthClientID configure the Cognito handshake.
	AuthEndpoint string `koanf:"auth_endpoint"`
	AuthClientID string `koanf:"auth_client_id"`

	// PageSize is the suggest lookup page size.
	PageSize int `koanf:"page_size"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		BaseURL:      icpc.DefaultBaseURL,
		AuthEndpoint: icpc.DefaultAuthEndpoint,
		AuthClientID: icpc.DefaultAuthClientID,
		PageSize:     resolve.DefaultPageSize,
	}
}

// Load builds a Config by layering (low -> high):
//  1. defaults
//  2. the YAML file at path, if it exists
//  3. environment variables with the REGIMPORT_ prefix
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), koanfyaml.Parser()); err != nil {
				return nil, fmt.Errorf("reading %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
	}

	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, envPrefix))
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("reading environment: %w", err)
	}

	cfg := *Default()
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}
	if cfg.PageSize < 2 {
		return nil, fmt.Errorf("page_size must be at least 2, got %d", cfg.PageSize)
	}
	return &cfg, nil
}

// StoreCredentials writes the login to the config file, merging with keys
// already present. The file is owner-readable only.
func StoreCredentials(path, username, password string) error {
	values := map[string]any{}
	if raw, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(raw, &values); err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	values["username"] = username
	values["password"] = password

	out, err := yaml.Marshal(values)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	if err := os.WriteFile(path, out, 0600); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}
