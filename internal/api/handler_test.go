package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/querydeck/querydeck/internal/config"
	"github.com/querydeck/querydeck/internal/executor"
	"github.com/querydeck/querydeck/internal/nlgen"
	"github.com/querydeck/querydeck/internal/schema"
)

func testConfig() config.Config {
	return config.Config{
		Profile: config.ProfileTest,
		Service: config.ServiceConfig{Name: "querydeck-api"},
		Executor: config.ExecutorConfig{
			DefaultRowLimit: 500,
			MaxRowLimit:     10000,
		},
	}
}

func testHandler() http.Handler {
	cfg := testConfig()
	return NewHandler(cfg, Dependencies{
		Executor:     &executor.Executor{},
		Introspector: &schema.Introspector{},
		Generator:    &nlgen.Engine{},
		ExecutorCfg:  cfg.Executor,
	})
}

func postJSON(t *testing.T, h http.Handler, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) (code, message string) {
	t.Helper()
	var payload struct {
		ErrorCode string `json:"error_code"`
		Message   string `json:"message"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode error body %q: %v", rr.Body.String(), err)
	}
	return payload.ErrorCode, payload.Message
}

func TestHealthEndpoint(t *testing.T) {
	h := testHandler()
	req := httptest.NewRequest(http.MethodGet, "/v1/health", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"status":"ok"`) {
		t.Fatalf("body = %q", rr.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	h := testHandler()
	req := httptest.NewRequest(http.MethodGet, "/v1/metrics", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestExecuteRejectsInvalidJSON(t *testing.T) {
	h := testHandler()
	req := httptest.NewRequest(http.MethodPost, "/v1/query/execute", strings.NewReader("{not json"))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
	code, _ := decodeError(t, rr)
	if code != "INVALID_JSON" {
		t.Fatalf("error_code = %q", code)
	}
}

func TestExecuteRequiresSQL(t *testing.T) {
	h := testHandler()
	rr := postJSON(t, h, "/v1/query/execute", map[string]any{
		"connection": map[string]any{"kind": "sqlite", "database": ":memory:"},
		"sql":        "  ",
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
	code, _ := decodeError(t, rr)
	if code != "SQL_REQUIRED" {
		t.Fatalf("error_code = %q", code)
	}
}

func TestExecuteUnsupportedEngine(t *testing.T) {
	h := testHandler()
	rr := postJSON(t, h, "/v1/query/execute", map[string]any{
		"connection": map[string]any{"kind": "oracle"},
		"sql":        "SELECT 1",
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
	code, _ := decodeError(t, rr)
	if code != "UNSUPPORTED_ENGINE" {
		t.Fatalf("error_code = %q", code)
	}
}

func TestExecuteReadOnlyViolation(t *testing.T) {
	h := testHandler()
	rr := postJSON(t, h, "/v1/query/execute", map[string]any{
		"connection": map[string]any{"kind": "sqlite", "database": ":memory:"},
		"sql":        "DELETE FROM users",
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
	code, _ := decodeError(t, rr)
	if code != "VALIDATION_FORBIDDEN_OPERATION" {
		t.Fatalf("error_code = %q", code)
	}
}

func TestExecuteSQLiteRoundTrip(t *testing.T) {
	h := testHandler()
	path := filepath.Join(t.TempDir(), "api.db")

	seed := postJSON(t, h, "/v1/query/execute", map[string]any{
		"connection": map[string]any{"kind": "sqlite", "database": path, "access_mode": "read_write"},
		"sql":        "CREATE TABLE notes (id INTEGER PRIMARY KEY, body TEXT)",
	})
	if seed.Code != http.StatusOK {
		t.Fatalf("seed status = %d, body = %q", seed.Code, seed.Body.String())
	}

	insert := postJSON(t, h, "/v1/query/execute", map[string]any{
		"connection": map[string]any{"kind": "sqlite", "database": path, "access_mode": "read_write"},
		"sql":        "INSERT INTO notes (body) VALUES ('hello')",
	})
	if insert.Code != http.StatusOK {
		t.Fatalf("insert status = %d, body = %q", insert.Code, insert.Body.String())
	}

	query := postJSON(t, h, "/v1/query/execute", map[string]any{
		"connection": map[string]any{"kind": "sqlite", "database": path},
		"sql":        "SELECT id, body FROM notes",
	})
	if query.Code != http.StatusOK {
		t.Fatalf("query status = %d, body = %q", query.Code, query.Body.String())
	}

	var result executeResponse
	if err := json.Unmarshal(query.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.RowCount != 1 || len(result.Rows) != 1 {
		t.Fatalf("result = %#v", result)
	}
	if result.Rows[0][1] != "hello" {
		t.Fatalf("row = %#v", result.Rows[0])
	}
}

func TestExecuteMissingTableErrorCode(t *testing.T) {
	h := testHandler()
	rr := postJSON(t, h, "/v1/query/execute", map[string]any{
		"connection": map[string]any{"kind": "sqlite", "database": ":memory:"},
		"sql":        "SELECT * FROM absent",
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
	code, _ := decodeError(t, rr)
	if code != "EXECUTION_NO_SUCH_TABLE" {
		t.Fatalf("error_code = %q", code)
	}
}

func TestGenerateRequiresPrompt(t *testing.T) {
	h := testHandler()
	rr := postJSON(t, h, "/v1/query/generate", map[string]any{
		"connection": map[string]any{"kind": "sqlite", "database": ":memory:"},
		"prompt":     "",
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rr.Code)
	}
	code, _ := decodeError(t, rr)
	if code != "PROMPT_REQUIRED" {
		t.Fatalf("error_code = %q", code)
	}
}

func TestGenerateExplorationResponse(t *testing.T) {
	h := testHandler()
	rr := postJSON(t, h, "/v1/query/generate", map[string]any{
		"connection": map[string]any{"kind": "sqlite", "database": ":memory:"},
		"prompt":     "what tables are there?",
		"schema":     map[string]any{"tables": []any{}, "complete": true},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %q", rr.Code, rr.Body.String())
	}

	var resp nlgen.Response
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Type != nlgen.TypeExploration {
		t.Fatalf("Type = %q", resp.Type)
	}
	if !resp.Exploration.RequiresConfirmation {
		t.Fatal("exploration must require confirmation")
	}
}

func TestGenerateMissingProviderKey(t *testing.T) {
	h := testHandler()
	rr := postJSON(t, h, "/v1/query/generate", map[string]any{
		"connection": map[string]any{"kind": "postgres", "host": "db", "database": "app", "username": "r"},
		"prompt":     "show me all users",
		"provider":   "openai",
		"schema": map[string]any{
			"complete": true,
			"tables": []map[string]any{
				{"name": "users", "columns": []map[string]any{{"name": "id", "data_type": "integer"}}},
			},
		},
	})
	if rr.Code != http.StatusPreconditionFailed {
		t.Fatalf("status = %d, body = %q", rr.Code, rr.Body.String())
	}
	code, _ := decodeError(t, rr)
	if code != "PROVIDER_NOT_CONFIGURED" {
		t.Fatalf("error_code = %q", code)
	}
}

func TestIntrospectSQLite(t *testing.T) {
	h := testHandler()
	path := filepath.Join(t.TempDir(), "introspect.db")

	seed := postJSON(t, h, "/v1/query/execute", map[string]any{
		"connection": map[string]any{"kind": "sqlite", "database": path, "access_mode": "read_write"},
		"sql":        "CREATE TABLE things (id INTEGER PRIMARY KEY, label TEXT NOT NULL)",
	})
	if seed.Code != http.StatusOK {
		t.Fatalf("seed status = %d", seed.Code)
	}

	rr := postJSON(t, h, "/v1/schema/introspect", map[string]any{
		"connection": map[string]any{"kind": "sqlite", "database": path},
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %q", rr.Code, rr.Body.String())
	}

	var result schema.Schema
	if err := json.Unmarshal(rr.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode schema: %v", err)
	}
	if !result.Complete {
		t.Fatalf("Complete = false, warnings = %v", result.Warnings)
	}
	if _, ok := result.FindTable("things"); !ok {
		t.Fatalf("things table missing: %#v", result.Tables)
	}
}

func TestTraceIDInErrorEnvelope(t *testing.T) {
	h := testHandler()
	rr := postJSON(t, h, "/v1/query/execute", map[string]any{
		"connection": map[string]any{"kind": "oracle"},
		"sql":        "SELECT 1",
	})
	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	traceID, ok := payload["trace_id"].(string)
	if !ok || traceID == "" {
		t.Fatalf("trace_id missing from error envelope: %v", payload)
	}
}
