// Package api is the thin HTTP facade over the SQL core. The surrounding
// product's routing, workspace and authorization layers sit in front of it;
// these handlers assume already-authorized parameters.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/querydeck/querydeck/internal/config"
	"github.com/querydeck/querydeck/internal/engine"
	"github.com/querydeck/querydeck/internal/executor"
	"github.com/querydeck/querydeck/internal/nlgen"
	"github.com/querydeck/querydeck/internal/observability"
	"github.com/querydeck/querydeck/internal/schema"
	"github.com/querydeck/querydeck/internal/vault"
)

type Dependencies struct {
	Logger       *slog.Logger
	Executor     *executor.Executor
	Introspector *schema.Introspector
	Generator    *nlgen.Engine
	ExecutorCfg  config.ExecutorConfig
}

func NewHandler(cfg config.Config, deps Dependencies) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "service": cfg.Service.Name})
	})

	mux.Handle("GET /v1/metrics", promhttp.Handler())

	mux.HandleFunc("POST /v1/query/execute", func(w http.ResponseWriter, r *http.Request) {
		handleExecute(deps, w, r)
	})
	mux.HandleFunc("POST /v1/query/generate", func(w http.ResponseWriter, r *http.Request) {
		handleGenerate(deps, w, r)
	})
	mux.HandleFunc("POST /v1/schema/introspect", func(w http.ResponseWriter, r *http.Request) {
		handleIntrospect(deps, w, r)
	})

	var handler http.Handler = mux
	handler = observability.MetricsMiddleware(handler)
	if deps.Logger != nil {
		handler = observability.LoggingMiddleware(deps.Logger)(handler)
	}
	handler = observability.TraceMiddleware(handler)
	return handler
}

// connectionPayload is the wire form of a resolved connection record. Secret
// fields arrive encrypted; nothing here ever echoes them back.
type connectionPayload struct {
	Kind                string `json:"kind"`
	Host                string `json:"host,omitempty"`
	Port                int    `json:"port,omitempty"`
	Database            string `json:"database,omitempty"`
	Username            string `json:"username,omitempty"`
	EncryptedPassword   string `json:"encrypted_password,omitempty"`
	EncryptedConnString string `json:"encrypted_conn_string,omitempty"`
	TLSMode             string `json:"tls_mode,omitempty"`
	AccessMode          string `json:"access_mode,omitempty"`
}

func (p connectionPayload) toConfig() (engine.ConnectionConfig, error) {
	kind, err := engine.ParseKind(p.Kind)
	if err != nil {
		return engine.ConnectionConfig{}, err
	}
	mode := engine.AccessMode(p.AccessMode)
	if mode == "" {
		mode = engine.ModeReadOnly
	}
	return engine.ConnectionConfig{
		Kind:                kind,
		Host:                p.Host,
		Port:                p.Port,
		Database:            p.Database,
		Username:            p.Username,
		EncryptedPassword:   p.EncryptedPassword,
		EncryptedConnString: p.EncryptedConnString,
		TLSMode:             p.TLSMode,
		AccessMode:          mode,
	}, nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, retryable bool) {
	writeJSON(w, status, map[string]any{
		"error_code": code,
		"message":    message,
		"retryable":  retryable,
		"trace_id":   observability.TraceIDFromContext(r.Context()),
	})
}

// writeCoreError maps the core error taxonomy to stable wire codes.
func writeCoreError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErr  *executor.ValidationError
		execErr        *executor.ExecError
		connErr        *engine.ConnectionError
		unsupportedErr *engine.UnsupportedEngineError
		decryptErr     *vault.DecryptionError
		providerCfgErr *nlgen.ProviderConfigError
		providerErr    *nlgen.ProviderError
	)
	switch {
	case errors.As(err, &validationErr):
		writeError(w, r, http.StatusBadRequest, "VALIDATION_"+codeSuffix(string(validationErr.Reason)), validationErr.Error(), false)
	case errors.As(err, &unsupportedErr):
		writeError(w, r, http.StatusBadRequest, "UNSUPPORTED_ENGINE", unsupportedErr.Error(), false)
	case errors.As(err, &decryptErr):
		writeError(w, r, http.StatusUnprocessableEntity, "DECRYPTION_FAILED", decryptErr.Error(), false)
	case errors.As(err, &connErr):
		writeError(w, r, http.StatusBadGateway, "CONNECTION_FAILED", connErr.Error(), true)
	case errors.As(err, &execErr):
		writeError(w, r, http.StatusBadRequest, "EXECUTION_"+codeSuffix(string(execErr.Kind)), execErr.Error(), execErr.Kind == engine.ErrTimeout)
	case errors.As(err, &providerCfgErr):
		writeError(w, r, http.StatusPreconditionFailed, "PROVIDER_NOT_CONFIGURED", providerCfgErr.Error(), false)
	case errors.As(err, &providerErr):
		writeError(w, r, http.StatusBadGateway, "PROVIDER_FAILED", providerErr.Error(), true)
	default:
		writeError(w, r, http.StatusInternalServerError, "INTERNAL", err.Error(), true)
	}
}

func codeSuffix(value string) string {
	upper := make([]byte, len(value))
	for i := 0; i < len(value); i++ {
		c := value[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		upper[i] = c
	}
	return string(upper)
}
