package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/consolehq/admin-front/internal/authflow"
)

// Load loads and processes the config with immediate env var resolution
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}

	var rawConfig map[string]any
	if err := json.Unmarshal(data, &rawConfig); err != nil {
		return Config{}, fmt.Errorf("parsing config JSON: %w", err)
	}

	if err := validateRawConfig(rawConfig); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}

	// Parse directly into the typed Config struct; the custom UnmarshalJSON
	// methods resolve env var references immediately
	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}

	applyDefaults(&config)

	if err := ValidateConfig(&config); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// validateRawConfig validates the config structure before environment resolution.
// Secrets must be env references, never inline strings.
func validateRawConfig(rawConfig map[string]any) error {
	console, ok := rawConfig["console"].(map[string]any)
	if !ok {
		return fmt.Errorf("console section is required")
	}

	value, exists := console["stateSigningKey"]
	if !exists {
		return fmt.Errorf("console.stateSigningKey is required")
	}
	if _, isString := value.(string); isString {
		return fmt.Errorf("stateSigningKey must use environment variable reference for security")
	}
	if refMap, isMap := value.(map[string]any); isMap {
		if _, hasEnv := refMap["$env"]; !hasEnv {
			return fmt.Errorf("stateSigningKey must use {\"$env\": \"VAR_NAME\"} format")
		}
	}
	return nil
}

func applyDefaults(config *Config) {
	if config.Console.Addr == "" {
		config.Console.Addr = ":8080"
	}
	if config.Console.Storage == "" {
		config.Console.Storage = StorageMemory
	}
	if len(config.IdP.Scopes) == 0 {
		config.IdP.Scopes = []string{"openid", "email", "profile"}
	}
	if config.IdP.DefaultFlow == "" {
		config.IdP.DefaultFlow = authflow.FlowCode
	}
}

// ValidateConfig validates the resolved configuration
func ValidateConfig(config *Config) error {
	if config.Console.BaseURL == "" {
		return fmt.Errorf("console.baseURL is required")
	}
	if !strings.HasPrefix(config.Console.BaseURL, "http://") && !strings.HasPrefix(config.Console.BaseURL, "https://") {
		return fmt.Errorf("console.baseURL must start with http:// or https://")
	}
	if len(config.Console.StateSigningKey) < 32 {
		return fmt.Errorf("stateSigningKey must be at least 32 characters (got %d). Generate with: openssl rand -base64 32", len(config.Console.StateSigningKey))
	}
	if config.Console.SessionMaxAge < 0 {
		return fmt.Errorf("console.sessionMaxAge cannot be negative")
	}
	if config.Console.FailureRedirectDelay < 0 {
		return fmt.Errorf("console.failureRedirectDelay cannot be negative")
	}

	switch config.Console.Storage {
	case StorageMemory:
	case StorageSQLite:
		if config.Console.SQLitePath == "" {
			return fmt.Errorf("console.sqlitePath is required when using sqlite storage")
		}
	default:
		return fmt.Errorf("console.storage must be memory or sqlite, got %q", config.Console.Storage)
	}

	if config.Backend.BaseURL == "" {
		return fmt.Errorf("backend.baseURL is required")
	}
	if config.Backend.Timeout < 0 {
		return fmt.Errorf("backend.timeout cannot be negative")
	}

	if err := validateIdP(&config.IdP); err != nil {
		return fmt.Errorf("idp config: %w", err)
	}
	return nil
}

func validateIdP(idp *IdPConfig) error {
	if idp.AuthorizationEndpoint == "" {
		return fmt.Errorf("authorizationEndpoint is required")
	}
	if idp.ClientID == "" {
		return fmt.Errorf("clientId is required")
	}
	if idp.RedirectURI == "" {
		return fmt.Errorf("redirectUri is required")
	}
	switch idp.DefaultFlow {
	case authflow.FlowCode, authflow.FlowImplicit:
	default:
		return fmt.Errorf("defaultFlow must be %q or %q, got %q", authflow.FlowCode, authflow.FlowImplicit, idp.DefaultFlow)
	}
	return nil
}
