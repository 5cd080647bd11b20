// Package secrets loads secret configuration values (cypher password and
// salt, token signing secret, bot token) from HashiCorp Vault.
package secrets

import (
	"context"
	"fmt"
	"sort"

	"github.com/hashicorp/vault/api"
	"github.com/robotter-ai/ccxt-telegram-api/internal/logger"
)

// Config of the Vault source. Path points at a KV v2 secret, for example
// "secret/data/ccxt-telegram-api".
type Config struct {
	Enabled bool
	Address string
	Token   string
	Path    string
}

// Setter receives the secret values, typically *properties.Properties.
type Setter interface {
	Set(key string, value interface{})
}

type Source struct {
	client *api.Client
	config Config
}

func New(cfg Config) (*Source, error) {
	if !cfg.Enabled {
		return &Source{config: cfg}, nil
	}
	if cfg.Path == "" {
		return nil, fmt.Errorf("vault secret path is required")
	}

	vaultConfig := api.DefaultConfig()
	if cfg.Address != "" {
		vaultConfig.Address = cfg.Address
	}
	client, err := api.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create vault client: %w", err)
	}
	if cfg.Token != "" {
		client.SetToken(cfg.Token)
	}

	return &Source{client: client, config: cfg}, nil
}

// Apply reads the secret and hands every value to target under its dotted key.
func (s *Source) Apply(ctx context.Context, target Setter) error {
	if !s.config.Enabled {
		return nil
	}
	secret, err := s.client.Logical().ReadWithContext(ctx, s.config.Path)
	if err != nil {
		return fmt.Errorf("failed to read secret from vault: %w", err)
	}
	if secret == nil || secret.Data == nil {
		return fmt.Errorf("secret %s not found", s.config.Path)
	}
	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		// KV v1 mounts return the values directly.
		data = secret.Data
	}

	values := flatten("", data)
	keys := make([]string, 0, len(values))
	for key, value := range values {
		target.Set(key, value)
		keys = append(keys, key)
	}
	sort.Strings(keys)
	logger.LogInfo("Loaded secrets from vault", keys)
	return nil
}

func flatten(prefix string, data map[string]interface{}) map[string]interface{} {
	out := map[string]interface{}{}
	for key, value := range data {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		if nested, ok := value.(map[string]interface{}); ok {
			for k, v := range flatten(path, nested) {
				out[k] = v
			}
			continue
		}
		out[path] = value
	}
	return out
}
