// Package executor applies safety policy to a single SQL statement and runs
// it against the configured external engine: validation, limit injection,
// access-mode enforcement, scoped connection lifetime, result normalization
// and error classification.
package executor

import (
	"context"
	"log/slog"
	"time"

	"github.com/querydeck/querydeck/internal/engine"
	"github.com/querydeck/querydeck/internal/observability"
)

// Request is one statement to run against one resolved connection.
type Request struct {
	Conn     engine.ConnectionConfig
	SQL      string
	RowLimit int
	Timeout  time.Duration
}

// Result is the normalized execution outcome. For row-returning statements
// RowCount equals len(Rows); for write shapes Rows is nil and RowCount is
// the affected-row count. NULL values appear as nil, never as "".
type Result struct {
	Columns  []string      `json:"columns,omitempty"`
	Rows     [][]any       `json:"rows,omitempty"`
	RowCount int64         `json:"row_count"`
	Duration time.Duration `json:"-"`
}

const defaultTimeout = 30 * time.Second

type Executor struct {
	Vault  engine.Decrypter
	Logger *slog.Logger
}

// Execute runs exactly one statement. The engine handle is opened for this
// call alone and closed on every exit path; nothing is pooled or retried.
func (e *Executor) Execute(ctx context.Context, req Request) (Result, error) {
	start := time.Now()
	kind := string(req.Conn.Kind)

	result, err := e.execute(ctx, req)
	observability.RecordExecution(kind, executionStatus(err), time.Since(start))

	if err != nil && e.Logger != nil {
		e.Logger.WarnContext(ctx, "statement execution failed",
			slog.String("engine", kind),
			slog.Any("error", err))
	}
	return result, err
}

func (e *Executor) execute(ctx context.Context, req Request) (Result, error) {
	mode := req.Conn.AccessMode
	if mode == "" {
		mode = engine.ModeReadOnly
	}
	if err := validate(req.SQL, mode); err != nil {
		return Result{}, err
	}

	adapter, err := engine.ForKind(req.Conn.Kind)
	if err != nil {
		return Result{}, err
	}

	// Credentials are decrypted only now, into a transient config that
	// does not outlive this call.
	cfg, err := req.Conn.Resolve(e.Vault)
	if err != nil {
		return Result{}, err
	}

	sqlText := adapter.LimitSQL(req.SQL, req.RowLimit)

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	h, err := adapter.Connect(ctx, cfg)
	if err != nil {
		return Result{}, err
	}
	defer func() { _ = h.Close() }()

	start := time.Now()
	raw, err := adapter.Execute(ctx, h, sqlText)
	if err != nil {
		return Result{}, &ExecError{
			Kind:    adapter.ClassifyError(err),
			Message: err.Error(),
			Err:     err,
		}
	}

	result := Result{Duration: time.Since(start)}
	if raw.HasRows {
		result.Columns = raw.Columns
		result.Rows = raw.Rows
		result.RowCount = int64(len(raw.Rows))
	} else {
		result.RowCount = raw.RowsAffected
	}
	return result, nil
}

func executionStatus(err error) string {
	if err == nil {
		return "ok"
	}
	return "error"
}
