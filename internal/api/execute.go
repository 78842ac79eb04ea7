package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/querydeck/querydeck/internal/executor"
)

type executeRequest struct {
	Connection connectionPayload `json:"connection"`
	SQL        string            `json:"sql"`
	RowLimit   int               `json:"row_limit,omitempty"`
	TimeoutMs  int               `json:"timeout_ms,omitempty"`
}

type executeResponse struct {
	Columns    []string `json:"columns,omitempty"`
	Rows       [][]any  `json:"rows,omitempty"`
	RowCount   int64    `json:"row_count"`
	DurationMs int64    `json:"duration_ms"`
}

func handleExecute(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Executor == nil {
		writeError(w, r, http.StatusNotImplemented, "EXECUTE_NOT_CONFIGURED", "executor dependency is not configured", false)
		return
	}

	var req executeRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_JSON", "invalid execute request body", false)
		return
	}
	if strings.TrimSpace(req.SQL) == "" {
		writeError(w, r, http.StatusBadRequest, "SQL_REQUIRED", "sql is required", false)
		return
	}

	conn, err := req.Connection.toConfig()
	if err != nil {
		writeCoreError(w, r, err)
		return
	}

	rowLimit := req.RowLimit
	if rowLimit <= 0 {
		rowLimit = deps.ExecutorCfg.DefaultRowLimit
	}
	if deps.ExecutorCfg.MaxRowLimit > 0 && rowLimit > deps.ExecutorCfg.MaxRowLimit {
		rowLimit = deps.ExecutorCfg.MaxRowLimit
	}

	timeout := deps.ExecutorCfg.StatementTimeout
	if req.TimeoutMs > 0 {
		timeout = time.Duration(req.TimeoutMs) * time.Millisecond
	}

	result, err := deps.Executor.Execute(r.Context(), executor.Request{
		Conn:     conn,
		SQL:      req.SQL,
		RowLimit: rowLimit,
		Timeout:  timeout,
	})
	if err != nil {
		writeCoreError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, executeResponse{
		Columns:    result.Columns,
		Rows:       result.Rows,
		RowCount:   result.RowCount,
		DurationMs: result.Duration.Milliseconds(),
	})
}
