package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type LookupFunc func(string) (string, bool)

type Profile string

const (
	ProfileDev  Profile = "dev"
	ProfileTest Profile = "test"
	ProfileProd Profile = "prod"
)

type Config struct {
	Profile       Profile
	Service       ServiceConfig
	HTTP          HTTPConfig
	Vault         VaultConfig
	Executor      ExecutorConfig
	Introspect    IntrospectConfig
	AI            AIConfig
	Observability ObservabilityConfig
}

type ServiceConfig struct {
	Name string
}

type HTTPConfig struct {
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type VaultConfig struct {
	MasterSecret string
}

type ExecutorConfig struct {
	DefaultRowLimit  int
	MaxRowLimit      int
	StatementTimeout time.Duration
}

type IntrospectConfig struct {
	Timeout time.Duration
}

type AIConfig struct {
	OpenAIBaseURL    string
	OpenAIModel      string
	AnthropicBaseURL string
	AnthropicModel   string
	Temperature      float64
	Timeout          time.Duration
}

type ObservabilityConfig struct {
	LogLevel slog.Level
	LogJSON  bool
}

func LoadFromEnv(serviceName string) (Config, error) {
	return Load(serviceName, os.LookupEnv)
}

func Load(serviceName string, lookup LookupFunc) (Config, error) {
	if lookup == nil {
		return Config{}, fmt.Errorf("lookup function is required")
	}

	profile := ProfileDev
	if raw, ok := lookup("QUERYDECK_PROFILE"); ok {
		profile = Profile(strings.ToLower(strings.TrimSpace(raw)))
	}
	if !isValidProfile(profile) {
		return Config{}, fmt.Errorf("invalid QUERYDECK_PROFILE: %q", profile)
	}

	cfg := defaultsForProfile(profile)
	if serviceName != "" {
		cfg.Service.Name = serviceName
	}

	if err := applyString(lookup, "QUERYDECK_SERVICE_NAME", &cfg.Service.Name); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "QUERYDECK_HTTP_ADDR", &cfg.HTTP.Address); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "QUERYDECK_HTTP_READ_TIMEOUT", &cfg.HTTP.ReadTimeout); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "QUERYDECK_HTTP_WRITE_TIMEOUT", &cfg.HTTP.WriteTimeout); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "QUERYDECK_HTTP_IDLE_TIMEOUT", &cfg.HTTP.IdleTimeout); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "QUERYDECK_VAULT_MASTER_SECRET", &cfg.Vault.MasterSecret); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "QUERYDECK_EXECUTOR_DEFAULT_ROW_LIMIT", &cfg.Executor.DefaultRowLimit); err != nil {
		return Config{}, err
	}
	if err := applyInt(lookup, "QUERYDECK_EXECUTOR_MAX_ROW_LIMIT", &cfg.Executor.MaxRowLimit); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "QUERYDECK_EXECUTOR_STATEMENT_TIMEOUT", &cfg.Executor.StatementTimeout); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "QUERYDECK_INTROSPECT_TIMEOUT", &cfg.Introspect.Timeout); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "QUERYDECK_AI_OPENAI_BASE_URL", &cfg.AI.OpenAIBaseURL); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "QUERYDECK_AI_OPENAI_MODEL", &cfg.AI.OpenAIModel); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "QUERYDECK_AI_ANTHROPIC_BASE_URL", &cfg.AI.AnthropicBaseURL); err != nil {
		return Config{}, err
	}
	if err := applyString(lookup, "QUERYDECK_AI_ANTHROPIC_MODEL", &cfg.AI.AnthropicModel); err != nil {
		return Config{}, err
	}
	if err := applyFloat(lookup, "QUERYDECK_AI_TEMPERATURE", &cfg.AI.Temperature); err != nil {
		return Config{}, err
	}
	if err := applyDuration(lookup, "QUERYDECK_AI_TIMEOUT", &cfg.AI.Timeout); err != nil {
		return Config{}, err
	}
	if err := applyBool(lookup, "QUERYDECK_LOG_JSON", &cfg.Observability.LogJSON); err != nil {
		return Config{}, err
	}
	if err := applyLogLevel(lookup, "QUERYDECK_LOG_LEVEL", &cfg.Observability.LogLevel); err != nil {
		return Config{}, err
	}

	if cfg.Service.Name == "" {
		return Config{}, fmt.Errorf("service name is required")
	}
	if cfg.HTTP.Address == "" {
		return Config{}, fmt.Errorf("http address is required")
	}
	if cfg.Executor.MaxRowLimit > 0 && cfg.Executor.DefaultRowLimit > cfg.Executor.MaxRowLimit {
		return Config{}, fmt.Errorf("default row limit %d exceeds max %d", cfg.Executor.DefaultRowLimit, cfg.Executor.MaxRowLimit)
	}
	return cfg, nil
}

func defaultsForProfile(profile Profile) Config {
	cfg := Config{
		Profile: profile,
		Service: ServiceConfig{Name: "querydeck-api"},
		HTTP: HTTPConfig{
			Address:      ":8080",
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Executor: ExecutorConfig{
			DefaultRowLimit:  500,
			MaxRowLimit:      10000,
			StatementTimeout: 30 * time.Second,
		},
		Introspect: IntrospectConfig{
			Timeout: 30 * time.Second,
		},
		AI: AIConfig{
			OpenAIBaseURL:    "https://api.openai.com",
			OpenAIModel:      "gpt-4o-mini",
			AnthropicBaseURL: "https://api.anthropic.com",
			AnthropicModel:   "claude-sonnet-4-5",
			Temperature:      0.1,
			Timeout:          30 * time.Second,
		},
		Observability: ObservabilityConfig{
			LogLevel: slog.LevelDebug,
			LogJSON:  true,
		},
	}

	switch profile {
	case ProfileTest:
		cfg.HTTP.Address = ":18080"
		cfg.Observability.LogLevel = slog.LevelWarn
		cfg.Vault.MasterSecret = "querydeck-test-secret"
	case ProfileProd:
		cfg.Observability.LogLevel = slog.LevelInfo
	}

	return cfg
}

func isValidProfile(profile Profile) bool {
	switch profile {
	case ProfileDev, ProfileTest, ProfileProd:
		return true
	default:
		return false
	}
}

func applyString(lookup LookupFunc, key string, dst *string) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	*dst = strings.TrimSpace(raw)
	return nil
}

func applyDuration(lookup LookupFunc, key string, dst *time.Duration) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyBool(lookup LookupFunc, key string, dst *bool) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseBool(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyInt(lookup LookupFunc, key string, dst *int) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyFloat(lookup LookupFunc, key string, dst *float64) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", key, err)
	}
	*dst = value
	return nil
}

func applyLogLevel(lookup LookupFunc, key string, dst *slog.Level) error {
	raw, ok := lookup(key)
	if !ok {
		return nil
	}
	level := strings.ToLower(strings.TrimSpace(raw))
	switch level {
	case "debug":
		*dst = slog.LevelDebug
	case "info":
		*dst = slog.LevelInfo
	case "warn", "warning":
		*dst = slog.LevelWarn
	case "error":
		*dst = slog.LevelError
	default:
		return fmt.Errorf("invalid %s: %q", key, raw)
	}
	return nil
}
