package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
)

func init() {
	Register(KindMySQL, &mysqlAdapter{})
}

type mysqlAdapter struct{}

func (a *mysqlAdapter) Kind() Kind { return KindMySQL }

func (a *mysqlAdapter) Connect(ctx context.Context, cfg Config) (*Handle, error) {
	dsn, err := a.dsn(cfg)
	if err != nil {
		return nil, &ConnectionError{Kind: KindMySQL, Diagnostic: err.Error(), Err: err}
	}

	h, err := openHandle(ctx, "mysql", dsn, cfg.Database)
	if err != nil {
		return nil, &ConnectionError{Kind: KindMySQL, Diagnostic: err.Error(), Err: err}
	}

	if cfg.AccessMode == ModeReadOnly {
		if _, err := h.DB.ExecContext(ctx, "SET SESSION TRANSACTION READ ONLY"); err != nil {
			_ = h.Close()
			return nil, &ConnectionError{Kind: KindMySQL, Diagnostic: "enforce read-only session: " + err.Error(), Err: err}
		}
	}
	return h, nil
}

func (a *mysqlAdapter) dsn(cfg Config) (string, error) {
	if cfg.ConnString != "" {
		return cfg.ConnString, nil
	}
	if cfg.Host == "" || cfg.Database == "" || cfg.Username == "" {
		return "", fmt.Errorf("mysql config requires host, database and username")
	}
	mc := mysql.NewConfig()
	mc.User = cfg.Username
	mc.Passwd = cfg.Password
	mc.Net = "tcp"
	port := cfg.Port
	if port == 0 {
		port = 3306
	}
	mc.Addr = fmt.Sprintf("%s:%d", cfg.Host, port)
	mc.DBName = cfg.Database
	mc.ParseTime = true
	if cfg.TLSMode != "" && cfg.TLSMode != "disable" {
		mc.TLSConfig = cfg.TLSMode
	}
	return mc.FormatDSN(), nil
}

func (a *mysqlAdapter) Execute(ctx context.Context, h *Handle, sqlText string) (RawResult, error) {
	return runStatement(ctx, h, sqlText)
}

func (a *mysqlAdapter) CatalogTables(ctx context.Context, h *Handle) ([]CatalogTable, error) {
	rows, err := h.DB.QueryContext(ctx, `SELECT table_schema, table_name
FROM information_schema.tables
WHERE table_schema = ? AND table_type = 'BASE TABLE'
ORDER BY table_name`, h.Database)
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

func (a *mysqlAdapter) CatalogColumns(ctx context.Context, h *Handle) ([]CatalogColumn, error) {
	rows, err := h.DB.QueryContext(ctx, `SELECT table_schema, table_name, column_name, data_type, is_nullable, ordinal_position
FROM information_schema.columns
WHERE table_schema = ?
ORDER BY table_name, ordinal_position`, h.Database)
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
		c.Nullable = nullable == "YES"
		columns = append(columns, c)
	}
	return columns, rows.Err()
}

func (a *mysqlAdapter) CatalogKeys(ctx context.Context, h *Handle) ([]CatalogKey, error) {
	rows, err := h.DB.QueryContext(ctx, `SELECT table_schema, table_name, column_name, constraint_name,
  COALESCE(referenced_table_name, ''), COALESCE(referenced_column_name, '')
FROM information_schema.key_column_usage
WHERE table_schema = ?
ORDER BY table_name, ordinal_position`, h.Database)
	if err != nil {
		return nil, fmt.Errorf("list key constraints: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var keys []CatalogKey
	for rows.Next() {
		var k CatalogKey
		var constraintName string
		if err := rows.Scan(&k.TableSchema, &k.TableName, &k.Column, &constraintName, &k.RefTable, &k.RefColumn); err != nil {
			return nil, fmt.Errorf("scan key row: %w", err)
		}
		switch {
		case constraintName == "PRIMARY":
			k.Kind = KeyPrimary
			k.RefTable, k.RefColumn = "", ""
		case k.RefTable != "":
			k.Kind = KeyForeign
		default:
			// Unique and other constraints are not part of the canonical model.
			continue
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

func (a *mysqlAdapter) LimitSQL(sqlText string, limit int) string {
	return wrapWithLimit(sqlText, limit)
}

func (a *mysqlAdapter) ExplorationSQL(schemaFilter string) string {
	if schemaFilter != "" {
		return fmt.Sprintf(`SELECT table_schema, table_name FROM information_schema.tables WHERE table_type = 'BASE TABLE' AND table_schema = %s ORDER BY table_name`, quoteLiteral(schemaFilter))
	}
	return `SELECT table_schema, table_name FROM information_schema.tables WHERE table_type = 'BASE TABLE' AND table_schema = DATABASE() ORDER BY table_name`
}

func (a *mysqlAdapter) ClassifyError(err error) ExecErrorKind {
	if kind, ok := classifyContext(err); ok {
		return kind
	}
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		switch mysqlErr.Number {
		case 1146:
			return ErrNoSuchTable
		case 1054:
			return ErrNoSuchColumn
		case 1064:
			return ErrSyntax
		case 3024, 1317:
			return ErrTimeout
		}
	}
	return ErrUnclassified
}
