/*
Package configs is responsible for loading and validating the application's
configuration from environment variables.

It covers the listener address, TLS certificate material, the token
encryption secret, flat-file storage locations, AI inference endpoint
settings, and chat rate limits.
*/
package configs

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
)

// AppConfig contains all configuration parameters required for the server to run.
// All values are read from environment variables.
type AppConfig struct {
	// General Server Settings
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	Port        int    `envconfig:"PORT" default:"6697" validate:"gte=1024,lte=65535"`

	// TLS Settings
	TLSCertFile string `envconfig:"TLS_CERT_FILE" default:"database/keys/server.crt" validate:"required"`
	TLSKeyFile  string `envconfig:"TLS_KEY_FILE" default:"database/keys/server.key" validate:"required"`

	// TokenSecret is the input for the token encryption key. Required outside
	// development; an insecure default is supplied for local runs.
	TokenSecret string `envconfig:"TOKEN_SECRET"`

	// DataDir is the root directory for all flat-file state
	// (users.dat, rooms.dat, tokens.dat, messages/).
	DataDir string `envconfig:"DATA_DIR" default:"database" validate:"required"`

	// AI Inference Settings
	AIEndpoint string        `envconfig:"AI_ENDPOINT" default:"http://localhost:11434/api/generate" validate:"url"`
	AIModel    string        `envconfig:"AI_MODEL" default:"llama3" validate:"required"`
	AITimeout  time.Duration `envconfig:"AI_TIMEOUT" default:"90s"`

	// Chat Rate Limits (messages per second, with burst allowance)
	MessageRate  float64 `envconfig:"MESSAGE_RATE" default:"5" validate:"gt=0"`
	MessageBurst int     `envconfig:"MESSAGE_BURST" default:"10" validate:"gte=1"`
}

// LoadConfig reads the application configuration from environment variables
// and validates it. It returns a pointer to the AppConfig struct and any
// error encountered.
func LoadConfig() (*AppConfig, error) {
	cfg := &AppConfig{}

	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if cfg.TokenSecret == "" {
		if cfg.Environment != "development" {
			return nil, fmt.Errorf("TOKEN_SECRET environment variable is required in %s environment", cfg.Environment)
		}
		cfg.TokenSecret = "insecure_development_token_secret_change_me"
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}
