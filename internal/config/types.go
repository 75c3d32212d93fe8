package config

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/consolehq/admin-front/internal/authflow"
)

// Secret is a string type that redacts itself when printed
type Secret string

// String implements fmt.Stringer to redact the secret
func (s Secret) String() string {
	if s == "" {
		return ""
	}
	return "***"
}

// MarshalJSON implements json.Marshaler to prevent secrets in JSON logs
func (s Secret) MarshalJSON() ([]byte, error) {
	if s == "" {
		return json.Marshal("")
	}
	return json.Marshal("***")
}

// Duration parses JSON duration strings like "30s" or "24h"
type Duration time.Duration

func (d *Duration) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return fmt.Errorf("duration must be a string like \"30s\": %w", err)
	}
	parsed, err := time.ParseDuration(str)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", str, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// StorageKind selects the credential store backend
type StorageKind string

const (
	StorageMemory StorageKind = "memory"
	StorageSQLite StorageKind = "sqlite"
)

// ConsoleConfig is the outer HTTP surface of the console.
//
// Environment variable references using {"$env": "VAR_NAME"} syntax are
// resolved at config load time. The explicit JSON syntax keeps secrets out of
// the config file itself and avoids accidental shell expansion of $VAR in
// startup scripts.
type ConsoleConfig struct {
	Addr    string `json:"addr"`
	BaseURL string `json:"baseURL"`
	Name    string `json:"name"`

	SessionMaxAge        Duration `json:"sessionMaxAge"`
	FailureRedirectDelay Duration `json:"failureRedirectDelay"`

	Storage    StorageKind `json:"storage"`
	SQLitePath string      `json:"sqlitePath,omitempty"`

	StateSigningKeyRaw json.RawMessage `json:"stateSigningKey"`

	// Computed fields
	StateSigningKey Secret `json:"-"`
}

func (c *ConsoleConfig) UnmarshalJSON(data []byte) error {
	type alias ConsoleConfig
	var parsed alias
	if err := json.Unmarshal(data, &parsed); err != nil {
		return err
	}
	*c = ConsoleConfig(parsed)

	if len(c.StateSigningKeyRaw) > 0 {
		value, err := ParseConfigValue(c.StateSigningKeyRaw)
		if err != nil {
			return fmt.Errorf("stateSigningKey: %w", err)
		}
		c.StateSigningKey = Secret(value)
	}
	return nil
}

// BackendConfig points at the console's own API
type BackendConfig struct {
	BaseURL string   `json:"baseURL"`
	Timeout Duration `json:"timeout,omitempty"`
}

// IdPConfig describes the OAuth identity provider the console redirects to
type IdPConfig struct {
	AuthorizationEndpoint string   `json:"authorizationEndpoint"`
	ClientID              string   `json:"clientId"`
	RedirectURI           string   `json:"redirectUri"`
	Scopes                []string `json:"scopes,omitempty"`

	// DefaultFlow is "code" or "token"; the login page offers both, this one
	// is the primary button.
	DefaultFlow authflow.Flow `json:"defaultFlow,omitempty"`
}

// Config represents the config structure with resolved values
type Config struct {
	Console ConsoleConfig `json:"console"`
	Backend BackendConfig `json:"backend"`
	IdP     IdPConfig     `json:"idp"`
}

// ParseConfigValue parses a JSON value that is either a plain string or an
// {"$env": "VAR_NAME"} reference resolved against the environment
func ParseConfigValue(raw json.RawMessage) (string, error) {
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return str, nil
	}

	var ref map[string]string
	if err := json.Unmarshal(raw, &ref); err != nil {
		return "", fmt.Errorf("config value must be string or reference object")
	}

	envVar, ok := ref["$env"]
	if !ok {
		return "", fmt.Errorf("unknown reference type in config value")
	}
	value := os.Getenv(envVar)
	if value == "" {
		return "", fmt.Errorf("environment variable %s not set", envVar)
	}
	return value, nil
}
