package engine

import (
	"context"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"
)

func init() {
	Register(KindSQLite, &sqliteAdapter{})
}

type sqliteAdapter struct{}

func (a *sqliteAdapter) Kind() Kind { return KindSQLite }

func (a *sqliteAdapter) Connect(ctx context.Context, cfg Config) (*Handle, error) {
	dsn, err := a.dsn(cfg)
	if err != nil {
		return nil, &ConnectionError{Kind: KindSQLite, Diagnostic: err.Error(), Err: err}
	}

	h, err := openHandle(ctx, "sqlite", dsn, cfg.Database)
	if err != nil {
		return nil, &ConnectionError{Kind: KindSQLite, Diagnostic: err.Error(), Err: err}
	}

	if cfg.AccessMode == ModeReadOnly {
		// mode=ro in the DSN is the primary guard; query_only is
		// defense-in-depth for connections opened on existing files.
		if _, err := h.DB.ExecContext(ctx, "PRAGMA query_only = ON"); err != nil {
			_ = h.Close()
			return nil, &ConnectionError{Kind: KindSQLite, Diagnostic: "enforce query_only: " + err.Error(), Err: err}
		}
	}
	return h, nil
}

func (a *sqliteAdapter) dsn(cfg Config) (string, error) {
	path := cfg.ConnString
	if path == "" {
		path = cfg.Database
	}
	if path == "" {
		return "", fmt.Errorf("sqlite config requires a database file path")
	}
	if cfg.AccessMode == ModeReadOnly && !strings.Contains(path, "mode=") && path != ":memory:" {
		if strings.Contains(path, "?") {
			return path + "&mode=ro", nil
		}
		return path + "?mode=ro", nil
	}
	return path, nil
}

func (a *sqliteAdapter) Execute(ctx context.Context, h *Handle, sqlText string) (RawResult, error) {
	return runStatement(ctx, h, sqlText)
}

func (a *sqliteAdapter) CatalogTables(ctx context.Context, h *Handle) ([]CatalogTable, error) {
	rows, err := h.DB.QueryContext(ctx, `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tables []CatalogTable
	for rows.Next() {
		var t CatalogTable
		if err := rows.Scan(&t.Name); err != nil {
			return nil, fmt.Errorf("scan table row: %w", err)
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

func (a *sqliteAdapter) CatalogColumns(ctx context.Context, h *Handle) ([]CatalogColumn, error) {
	tables, err := a.CatalogTables(ctx, h)
	if err != nil {
		return nil, err
	}

	var columns []CatalogColumn
	for _, table := range tables {
		cols, err := a.tableColumns(ctx, h, table.Name)
		if err != nil {
			return nil, err
		}
		columns = append(columns, cols...)
	}
	return columns, nil
}

func (a *sqliteAdapter) tableColumns(ctx context.Context, h *Handle, tableName string) ([]CatalogColumn, error) {
	// PRAGMA table_info cannot use placeholders; the table name comes from
	// sqlite_master, quoted defensively anyway.
	rows, err := h.DB.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quoteLiteral(tableName)))
	if err != nil {
		return nil, fmt.Errorf("table_info %q: %w", tableName, err)
	}
	defer func() { _ = rows.Close() }()

	var columns []CatalogColumn
	for rows.Next() {
		var cid, notNull, pk int
		var name, colType string
		var dfltValue any
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return nil, fmt.Errorf("scan table_info row: %w", err)
		}
		columns = append(columns, CatalogColumn{
			TableName: tableName,
			Name:      name,
			DataType:  colType,
			Nullable:  notNull == 0,
			Position:  cid + 1,
		})
	}
	return columns, rows.Err()
}

func (a *sqliteAdapter) CatalogKeys(ctx context.Context, h *Handle) ([]CatalogKey, error) {
	tables, err := a.CatalogTables(ctx, h)
	if err != nil {
		return nil, err
	}

	var keys []CatalogKey
	for _, table := range tables {
		primary, err := a.primaryKeys(ctx, h, table.Name)
		if err != nil {
			return nil, err
		}
		keys = append(keys, primary...)

		foreign, err := a.foreignKeys(ctx, h, table.Name)
		if err != nil {
			return nil, err
		}
		keys = append(keys, foreign...)
	}
	return keys, nil
}

func (a *sqliteAdapter) primaryKeys(ctx context.Context, h *Handle, tableName string) ([]CatalogKey, error) {
	rows, err := h.DB.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quoteLiteral(tableName)))
	if err != nil {
		return nil, fmt.Errorf("table_info %q: %w", tableName, err)
	}
	defer func() { _ = rows.Close() }()

	var keys []CatalogKey
	for rows.Next() {
		var cid, notNull, pk int
		var name, colType string
		var dfltValue any
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return nil, fmt.Errorf("scan table_info row: %w", err)
		}
		if pk > 0 {
			keys = append(keys, CatalogKey{TableName: tableName, Column: name, Kind: KeyPrimary})
		}
	}
	return keys, rows.Err()
}

func (a *sqliteAdapter) foreignKeys(ctx context.Context, h *Handle, tableName string) ([]CatalogKey, error) {
	rows, err := h.DB.QueryContext(ctx, fmt.Sprintf("PRAGMA foreign_key_list(%s)", quoteLiteral(tableName)))
	if err != nil {
		return nil, fmt.Errorf("foreign_key_list %q: %w", tableName, err)
	}
	defer func() { _ = rows.Close() }()

	var keys []CatalogKey
	for rows.Next() {
		// foreign_key_list: id, seq, table, from, to, on_update, on_delete, match
		var id, seq int
		var refTable, from string
		var to any
		var onUpdate, onDelete, match string
		if err := rows.Scan(&id, &seq, &refTable, &from, &to, &onUpdate, &onDelete, &match); err != nil {
			return nil, fmt.Errorf("scan foreign_key_list row: %w", err)
		}
		refColumn := ""
		if s, ok := to.(string); ok {
			refColumn = s
		}
		keys = append(keys, CatalogKey{
			TableName: tableName,
			Column:    from,
			Kind:      KeyForeign,
			RefTable:  refTable,
			RefColumn: refColumn,
		})
	}
	return keys, rows.Err()
}

func (a *sqliteAdapter) LimitSQL(sqlText string, limit int) string {
	return wrapWithLimit(sqlText, limit)
}

func (a *sqliteAdapter) ExplorationSQL(schemaFilter string) string {
	// SQLite has no namespaces; a filter narrows by table name instead.
	if schemaFilter != "" {
		return fmt.Sprintf(`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%%' AND name LIKE %s ORDER BY name`, quoteLiteral("%"+schemaFilter+"%"))
	}
	return `SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`
}

func (a *sqliteAdapter) ClassifyError(err error) ExecErrorKind {
	if kind, ok := classifyContext(err); ok {
		return kind
	}
	if err == nil {
		return ErrUnclassified
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "no such table"):
		return ErrNoSuchTable
	case strings.Contains(msg, "no such column"):
		return ErrNoSuchColumn
	case strings.Contains(msg, "syntax error"):
		return ErrSyntax
	case strings.Contains(msg, "interrupted"):
		return ErrTimeout
	}
	return ErrUnclassified
}
