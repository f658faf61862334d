// Package config reads process configuration once at startup. Values come
// from the environment, optionally seeded from a .env file.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

const (
	BackendREST = "rest"
	BackendSDK  = "sdk"
)

type Config struct {
	// APIKey authenticates Gemini calls. When empty the key is read from
	// {ParamPrefix}/gemini-api-key in SSM.
	APIKey      string `validate:"required_without=ParamPrefix"`
	ParamPrefix string `validate:"omitempty,startswith=/"`

	Model string `validate:"required"`
	// BaseURL includes the API version, e.g. https://host/v1beta. Both
	// backends send to {BaseURL}/models/{Model}:generateContent.
	BaseURL string `validate:"omitempty,url"`
	Backend string `validate:"oneof=rest sdk"`

	// RulesFile overrides the built-in topic ruleset with a YAML document.
	RulesFile string
	// RulesParameter names an SSM parameter holding a YAML ruleset.
	RulesParameter string

	AllowedOrigin  string
	RequestTimeout time.Duration `validate:"gte=0"`
}

var validate = validator.New()

// Load reads .env (if present) and the environment, then validates.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function.
func FromEnv(getenv func(string) string) (*Config, error) {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	timeout := time.Duration(0)
	if raw := get("REQUEST_TIMEOUT", ""); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("config: REQUEST_TIMEOUT: %w", err)
		}
		timeout = d
	}

	cfg := &Config{
		APIKey:         get("GEMINI_API_KEY", ""),
		ParamPrefix:    strings.TrimRight(get("PARAM_PREFIX", ""), "/"),
		Model:          get("GEMINI_MODEL", "gemini-1.5-flash"),
		BaseURL:        get("GEMINI_BASE_URL", ""),
		Backend:        strings.ToLower(get("GEMINI_BACKEND", BackendREST)),
		RulesFile:      get("RULES_FILE", ""),
		RulesParameter: get("RULES_PARAMETER", ""),
		AllowedOrigin:  get("ALLOWED_ORIGIN", "*"),
		RequestTimeout: timeout,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// LogValue keeps the API key out of logs.
func (c *Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Bool("api_key_set", c.APIKey != ""),
		slog.String("param_prefix", c.ParamPrefix),
		slog.String("model", c.Model),
		slog.String("backend", c.Backend),
		slog.String("rules_file", c.RulesFile),
		slog.String("rules_parameter", c.RulesParameter),
		slog.Duration("request_timeout", c.RequestTimeout),
	)
}

func formatValidationError(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fmt.Errorf("config: %w", err)
	}
	msgs := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		msgs = append(msgs, formatFieldError(e))
	}
	return fmt.Errorf("config: %s", strings.Join(msgs, "; "))
}

func formatFieldError(e validator.FieldError) string {
	field := envName(e.Field())
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "required_without":
		return fmt.Sprintf("%s is required when PARAM_PREFIX is not set", field)
	case "startswith":
		return fmt.Sprintf("%s must start with %q", field, e.Param())
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "gte":
		return fmt.Sprintf("%s must not be negative", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

func envName(field string) string {
	switch field {
	case "APIKey":
		return "GEMINI_API_KEY"
	case "ParamPrefix":
		return "PARAM_PREFIX"
	case "Model":
		return "GEMINI_MODEL"
	case "BaseURL":
		return "GEMINI_BASE_URL"
	case "Backend":
		return "GEMINI_BACKEND"
	case "RequestTimeout":
		return "REQUEST_TIMEOUT"
	default:
		return strings.ToLower(field)
	}
}
