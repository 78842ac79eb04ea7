package engine

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// openHandle opens and verifies one connection. The handle is sized for a
// single statement; this core never pools.
func openHandle(ctx context.Context, driverName, dsn, database string) (*Handle, error) {
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s connection: %w", driverName, err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", driverName, err)
	}
	return &Handle{DB: db, Database: database}, nil
}

var wrappableKeywords = map[string]bool{
	"SELECT": true,
	"WITH":   true,
	"VALUES": true,
}

// isWrappable reports whether the statement can legally appear as a derived
// table. SHOW, EXPLAIN, PRAGMA and friends cannot, and pass through LimitSQL
// unchanged.
func isWrappable(sqlText string) bool {
	fields := strings.Fields(sqlText)
	if len(fields) == 0 {
		return false
	}
	return wrappableKeywords[strings.ToUpper(fields[0])]
}

// wrapWithLimit bounds a wrappable statement by rewriting it as a derived
// table with an outer LIMIT. The outer clause caps the result size even when
// the inner statement carries its own LIMIT; a smaller inner limit still
// governs. The body keeps its own lines so a trailing line comment cannot
// swallow the outer clause.
func wrapWithLimit(sqlText string, limit int) string {
	trimmed := stripTrailingSemicolons(sqlText)
	if limit <= 0 || !isWrappable(trimmed) {
		return trimmed
	}
	return fmt.Sprintf("SELECT * FROM (\n%s\n) AS q LIMIT %d", trimmed, limit)
}

var rowReturningKeywords = map[string]bool{
	"SELECT":   true,
	"WITH":     true,
	"SHOW":     true,
	"DESCRIBE": true,
	"DESC":     true,
	"EXPLAIN":  true,
	"PRAGMA":   true,
	"VALUES":   true,
}

// returnsRows decides between QueryContext and ExecContext from the leading
// keyword of the statement.
func returnsRows(sqlText string) bool {
	fields := strings.Fields(strings.TrimSpace(sqlText))
	if len(fields) == 0 {
		return false
	}
	return rowReturningKeywords[strings.ToUpper(fields[0])]
}

func stripTrailingSemicolons(sqlText string) string {
	trimmed := strings.TrimSpace(sqlText)
	for strings.HasSuffix(trimmed, ";") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
	}
	return trimmed
}

// runStatement executes one statement on an open handle. Row-returning
// statements are scanned positionally in the engine's reported column order;
// NULL scans to nil, never to an empty string.
func runStatement(ctx context.Context, h *Handle, sqlText string) (RawResult, error) {
	if !returnsRows(sqlText) {
		result, err := h.DB.ExecContext(ctx, sqlText)
		if err != nil {
			return RawResult{}, err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			// Some drivers cannot report affected counts for DDL.
			affected = 0
		}
		return RawResult{RowsAffected: affected}, nil
	}

	rows, err := h.DB.QueryContext(ctx, sqlText)
	if err != nil {
		return RawResult{}, err
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return RawResult{}, fmt.Errorf("read result columns: %w", err)
	}

	resultRows := make([][]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return RawResult{}, fmt.Errorf("scan row: %w", err)
		}
		resultRows = append(resultRows, normalizeValues(values))
	}
	if err := rows.Err(); err != nil {
		return RawResult{}, err
	}

	return RawResult{
		Columns: columns,
		Rows:    resultRows,
		HasRows: true,
	}, nil
}

func normalizeValues(values []any) []any {
	normalized := make([]any, len(values))
	for i, value := range values {
		switch typed := value.(type) {
		case []byte:
			normalized[i] = string(typed)
		default:
			normalized[i] = typed
		}
	}
	return normalized
}

func quoteLiteral(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "''") + "'"
}
