package engine

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func init() {
	Register(KindPostgres, &postgresAdapter{})
}

type postgresAdapter struct{}

func (a *postgresAdapter) Kind() Kind { return KindPostgres }

func (a *postgresAdapter) Connect(ctx context.Context, cfg Config) (*Handle, error) {
	dsn, err := a.dsn(cfg)
	if err != nil {
		return nil, &ConnectionError{Kind: KindPostgres, Diagnostic: err.Error(), Err: err}
	}

	h, err := openHandle(ctx, "pgx", dsn, cfg.Database)
	if err != nil {
		return nil, &ConnectionError{Kind: KindPostgres, Diagnostic: err.Error(), Err: err}
	}

	if cfg.AccessMode == ModeReadOnly {
		if _, err := h.DB.ExecContext(ctx, "SET SESSION CHARACTERISTICS AS TRANSACTION READ ONLY"); err != nil {
			_ = h.Close()
			return nil, &ConnectionError{Kind: KindPostgres, Diagnostic: "enforce read-only session: " + err.Error(), Err: err}
		}
	}
	return h, nil
}

func (a *postgresAdapter) dsn(cfg Config) (string, error) {
	if cfg.ConnString != "" {
		return cfg.ConnString, nil
	}
	if cfg.Host == "" || cfg.Database == "" || cfg.Username == "" {
		return "", fmt.Errorf("postgres config requires host, database and username")
	}
	port := cfg.Port
	if port == 0 {
		port = 5432
	}
	sslmode := cfg.TLSMode
	if sslmode == "" {
		sslmode = "prefer"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(cfg.Username), url.QueryEscape(cfg.Password),
		cfg.Host, port, cfg.Database, sslmode), nil
}

func (a *postgresAdapter) Execute(ctx context.Context, h *Handle, sqlText string) (RawResult, error) {
	return runStatement(ctx, h, sqlText)
}

func (a *postgresAdapter) CatalogTables(ctx context.Context, h *Handle) ([]CatalogTable, error) {
	rows, err := h.DB.QueryContext(ctx, `SELECT table_schema, table_name
FROM information_schema.tables
WHERE table_type = 'BASE TABLE'
  AND table_schema NOT IN ('pg_catalog', 'information_schema')
ORDER BY table_schema, table_name`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tables []CatalogTable
	for rows.Next() {
		var t CatalogTable
		if err := rows.Scan(&t.Schema, &t.Name); err != nil {
			return nil, fmt.Errorf("scan table row: %w", err)
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

func (a *postgresAdapter) CatalogColumns(ctx context.Context, h *Handle) ([]CatalogColumn, error) {
	rows, err := h.DB.QueryContext(ctx, `SELECT table_schema, table_name, column_name, data_type, is_nullable, ordinal_position
FROM information_schema.columns
WHERE table_schema NOT IN ('pg_catalog', 'information_schema')
ORDER BY table_schema, table_name, ordinal_position`)
	if err != nil {
		return nil, fmt.Errorf("list columns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var columns []CatalogColumn
	for rows.Next() {
		var c CatalogColumn
		var nullable string
		if err := rows.Scan(&c.TableSchema, &c.TableName, &c.Name, &c.DataType, &nullable, &c.Position); err != nil {
			return nil, fmt.Errorf("scan column row: %w", err)
		}
		c.Nullable = strings.EqualFold(nullable, "YES")
		columns = append(columns, c)
	}
	return columns, rows.Err()
}

func (a *postgresAdapter) CatalogKeys(ctx context.Context, h *Handle) ([]CatalogKey, error) {
	rows, err := h.DB.QueryContext(ctx, `SELECT
  tc.table_schema, tc.table_name, kcu.column_name, tc.constraint_type,
  COALESCE(ccu.table_name, ''), COALESCE(ccu.column_name, '')
FROM information_schema.table_constraints tc
JOIN information_schema.key_column_usage kcu
  ON tc.constraint_name = kcu.constraint_name AND tc.table_schema = kcu.table_schema
LEFT JOIN information_schema.constraint_column_usage ccu
  ON tc.constraint_name = ccu.constraint_name AND tc.constraint_type = 'FOREIGN KEY'
WHERE tc.constraint_type IN ('PRIMARY KEY', 'FOREIGN KEY')
  AND tc.table_schema NOT IN ('pg_catalog', 'information_schema')
ORDER BY tc.table_schema, tc.table_name, kcu.ordinal_position`)
	if err != nil {
		return nil, fmt.Errorf("list key constraints: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var keys []CatalogKey
	for rows.Next() {
		var k CatalogKey
		var constraintType string
		if err := rows.Scan(&k.TableSchema, &k.TableName, &k.Column, &constraintType, &k.RefTable, &k.RefColumn); err != nil {
			return nil, fmt.Errorf("scan key row: %w", err)
		}
		if constraintType == "FOREIGN KEY" {
			k.Kind = KeyForeign
		} else {
			k.Kind = KeyPrimary
			k.RefTable, k.RefColumn = "", ""
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (a *postgresAdapter) LimitSQL(sqlText string, limit int) string {
	return wrapWithLimit(sqlText, limit)
}

func (a *postgresAdapter) ExplorationSQL(schemaFilter string) string {
	if schemaFilter != "" {
		return fmt.Sprintf(`SELECT table_schema, table_name FROM information_schema.tables WHERE table_type = 'BASE TABLE' AND table_schema = %s ORDER BY table_name`, quoteLiteral(schemaFilter))
	}
	return `SELECT table_schema, table_name FROM information_schema.tables WHERE table_type = 'BASE TABLE' AND table_schema NOT IN ('pg_catalog', 'information_schema') ORDER BY table_schema, table_name`
}

func (a *postgresAdapter) ClassifyError(err error) ExecErrorKind {
	if kind, ok := classifyContext(err); ok {
		return kind
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "42P01":
			return ErrNoSuchTable
		case "42703":
			return ErrNoSuchColumn
		case "42601":
			return ErrSyntax
		case "57014":
			return ErrTimeout
		}
	}
	return ErrUnclassified
}
