package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"eventbrite-cetd/lib/configutil"
	"eventbrite-cetd/lib/eventbrite"

	"dario.cat/mergo"
)

// TokenEnv is the environment variable holding the Eventbrite private token.
const TokenEnv = "PRIVATE_TOKEN"

// DefaultPath is the config file read when --config is not given.
const DefaultPath = "eventbrite.json5"

type Config struct {
	BaseUrl        string `json:"base_url"`
	TimeoutSeconds int    `json:"timeout_seconds"`
	// RequestsPerSecond of 0 (or absent) takes the default, a negative
	// value disables client side rate limiting.
	RequestsPerSecond float64 `json:"requests_per_second"`
	MaxAttempts       int     `json:"max_attempts"`
	PhoneRegion       string  `json:"phone_region"`
}

func Default() Config {
	return Config{
		BaseUrl:           eventbrite.DefaultBaseUrl,
		TimeoutSeconds:    10,
		RequestsPerSecond: 5,
		MaxAttempts:       eventbrite.DefaultMaxAttempts,
		PhoneRegion:       "US",
	}
}

func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c Config) Validate() error {
	if c.BaseUrl == "" {
		return errors.New("base_url must not be empty")
	}
	if c.TimeoutSeconds <= 0 {
		return fmt.Errorf("timeout_seconds must be positive, got %d", c.TimeoutSeconds)
	}
	if c.MaxAttempts <= 0 {
		return fmt.Errorf("max_attempts must be positive, got %d", c.MaxAttempts)
	}
	return nil
}

// Load reads the config file at `path` (and its .local override), filling
// unset fields with defaults. A missing file is not an error.
func Load(path string) (Config, error) {
	cfg, err := configutil.ReadConfig[Config](path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, err
	}
	err = mergo.Merge(&cfg, Default())
	if err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// Token reads the API token from the environment, it is never read from
// config files.
func Token() (string, error) {
	token := strings.TrimSpace(os.Getenv(TokenEnv))
	if token == "" {
		return "", &eventbrite.AuthenticationError{
			Description: fmt.Sprintf("environment variable %s is not set", TokenEnv),
		}
	}
	return token, nil
}
