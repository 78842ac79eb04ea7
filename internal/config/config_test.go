package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoadDefaultsForDevProfile(t *testing.T) {
	lookup := mapLookup(map[string]string{})
	cfg, err := Load("querydeck-api", lookup)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Profile != ProfileDev {
		t.Fatalf("Profile = %q, want %q", cfg.Profile, ProfileDev)
	}
	if cfg.HTTP.Address != ":8080" {
		t.Fatalf("HTTP.Address = %q", cfg.HTTP.Address)
	}
	if cfg.Observability.LogLevel != slog.LevelDebug {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
	if cfg.Vault.MasterSecret != "" {
		t.Fatal("Vault.MasterSecret should have no default outside the test profile")
	}
	if cfg.Executor.DefaultRowLimit != 500 {
		t.Fatalf("Executor.DefaultRowLimit = %d", cfg.Executor.DefaultRowLimit)
	}
	if cfg.Executor.MaxRowLimit != 10000 {
		t.Fatalf("Executor.MaxRowLimit = %d", cfg.Executor.MaxRowLimit)
	}
	if cfg.Executor.StatementTimeout != 30*time.Second {
		t.Fatalf("Executor.StatementTimeout = %v", cfg.Executor.StatementTimeout)
	}
	if cfg.Introspect.Timeout != 30*time.Second {
		t.Fatalf("Introspect.Timeout = %v", cfg.Introspect.Timeout)
	}
	if cfg.AI.OpenAIModel != "gpt-4o-mini" {
		t.Fatalf("AI.OpenAIModel = %q", cfg.AI.OpenAIModel)
	}
	if cfg.AI.AnthropicModel != "claude-sonnet-4-5" {
		t.Fatalf("AI.AnthropicModel = %q", cfg.AI.AnthropicModel)
	}
	if cfg.AI.Temperature != 0.1 {
		t.Fatalf("AI.Temperature = %v", cfg.AI.Temperature)
	}
}

func TestLoadTestProfileDefaults(t *testing.T) {
	lookup := mapLookup(map[string]string{"QUERYDECK_PROFILE": "test"})
	cfg, err := Load("querydeck-api", lookup)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.HTTP.Address != ":18080" {
		t.Fatalf("HTTP.Address = %q", cfg.HTTP.Address)
	}
	if cfg.Vault.MasterSecret == "" {
		t.Fatal("test profile should carry a vault secret")
	}
	if cfg.Observability.LogLevel != slog.LevelWarn {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
}

func TestLoadProdProfileDefaults(t *testing.T) {
	lookup := mapLookup(map[string]string{"QUERYDECK_PROFILE": "prod"})
	cfg, err := Load("querydeck-api", lookup)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Observability.LogLevel != slog.LevelInfo {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	lookup := mapLookup(map[string]string{
		"QUERYDECK_HTTP_ADDR":                  ":9090",
		"QUERYDECK_VAULT_MASTER_SECRET":        "super-secret",
		"QUERYDECK_EXECUTOR_DEFAULT_ROW_LIMIT": "100",
		"QUERYDECK_EXECUTOR_MAX_ROW_LIMIT":     "2000",
		"QUERYDECK_EXECUTOR_STATEMENT_TIMEOUT": "5s",
		"QUERYDECK_AI_OPENAI_MODEL":            "gpt-4.1",
		"QUERYDECK_AI_TEMPERATURE":             "0.3",
		"QUERYDECK_LOG_JSON":                   "false",
		"QUERYDECK_LOG_LEVEL":                  "error",
	})
	cfg, err := Load("querydeck-api", lookup)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.HTTP.Address != ":9090" {
		t.Fatalf("HTTP.Address = %q", cfg.HTTP.Address)
	}
	if cfg.Vault.MasterSecret != "super-secret" {
		t.Fatalf("Vault.MasterSecret = %q", cfg.Vault.MasterSecret)
	}
	if cfg.Executor.DefaultRowLimit != 100 || cfg.Executor.MaxRowLimit != 2000 {
		t.Fatalf("row limits = %d/%d", cfg.Executor.DefaultRowLimit, cfg.Executor.MaxRowLimit)
	}
	if cfg.Executor.StatementTimeout != 5*time.Second {
		t.Fatalf("StatementTimeout = %v", cfg.Executor.StatementTimeout)
	}
	if cfg.AI.OpenAIModel != "gpt-4.1" {
		t.Fatalf("AI.OpenAIModel = %q", cfg.AI.OpenAIModel)
	}
	if cfg.AI.Temperature != 0.3 {
		t.Fatalf("AI.Temperature = %v", cfg.AI.Temperature)
	}
	if cfg.Observability.LogJSON {
		t.Fatal("LogJSON should be overridable to false")
	}
	if cfg.Observability.LogLevel != slog.LevelError {
		t.Fatalf("LogLevel = %v", cfg.Observability.LogLevel)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []map[string]string{
		{"QUERYDECK_PROFILE": "staging"},
		{"QUERYDECK_EXECUTOR_STATEMENT_TIMEOUT": "soon"},
		{"QUERYDECK_EXECUTOR_DEFAULT_ROW_LIMIT": "many"},
		{"QUERYDECK_AI_TEMPERATURE": "warm"},
		{"QUERYDECK_LOG_LEVEL": "loud"},
		{"QUERYDECK_LOG_JSON": "maybe"},
	}
	for _, env := range cases {
		if _, err := Load("querydeck-api", mapLookup(env)); err == nil {
			t.Fatalf("Load(%v) should fail", env)
		}
	}
}

func TestLoadRejectsDefaultLimitAboveMax(t *testing.T) {
	lookup := mapLookup(map[string]string{
		"QUERYDECK_EXECUTOR_DEFAULT_ROW_LIMIT": "5000",
		"QUERYDECK_EXECUTOR_MAX_ROW_LIMIT":     "1000",
	})
	if _, err := Load("querydeck-api", lookup); err == nil {
		t.Fatal("expected error when default row limit exceeds max")
	}
}

func TestLoadRequiresLookup(t *testing.T) {
	if _, err := Load("querydeck-api", nil); err == nil {
		t.Fatal("expected error for nil lookup")
	}
}

func mapLookup(values map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		value, ok := values[key]
		return value, ok
	}
}
