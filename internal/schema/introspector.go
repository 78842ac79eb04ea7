package schema

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/querydeck/querydeck/internal/engine"
)

// Introspector folds an engine's raw catalog rows into the canonical schema.
// Each call opens exactly one connection and closes it on every path.
type Introspector struct {
	Vault   engine.Decrypter
	Logger  *slog.Logger
	Timeout time.Duration
}

const defaultIntrospectTimeout = 30 * time.Second

// Introspect queries the catalog of the configured engine. Table and column
// query failures propagate; a key-constraint failure yields a partial schema
// with Complete=false, since an approximate schema is still useful to the
// generation engine.
func (in *Introspector) Introspect(ctx context.Context, conn engine.ConnectionConfig) (*Schema, error) {
	adapter, err := engine.ForKind(conn.Kind)
	if err != nil {
		return nil, err
	}

	cfg, err := conn.Resolve(in.Vault)
	if err != nil {
		return nil, err
	}

	timeout := in.Timeout
	if timeout <= 0 {
		timeout = defaultIntrospectTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	h, err := adapter.Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}
	defer func() { _ = h.Close() }()

	return in.fold(ctx, adapter, h)
}

// IntrospectHandle builds the schema over an already-open handle. Split out
// so catalog folding is testable without a live engine.
func (in *Introspector) IntrospectHandle(ctx context.Context, adapter engine.Adapter, h *engine.Handle) (*Schema, error) {
	return in.fold(ctx, adapter, h)
}

func (in *Introspector) fold(ctx context.Context, adapter engine.Adapter, h *engine.Handle) (*Schema, error) {
	tables, err := adapter.CatalogTables(ctx, h)
	if err != nil {
		return nil, fmt.Errorf("introspect tables: %w", err)
	}
	columns, err := adapter.CatalogColumns(ctx, h)
	if err != nil {
		return nil, fmt.Errorf("introspect columns: %w", err)
	}

	result := &Schema{Complete: true}

	keys, err := adapter.CatalogKeys(ctx, h)
	if err != nil {
		result.Complete = false
		result.Warnings = append(result.Warnings, "key constraints unavailable: "+err.Error())
		if in.Logger != nil {
			in.Logger.WarnContext(ctx, "partial schema introspection",
				slog.String("engine", string(adapter.Kind())),
				slog.Any("error", err))
		}
	}

	type tableKey struct{ schema, name string }
	primary := map[tableKey]map[string]bool{}
	foreign := map[tableKey]map[string]engine.CatalogKey{}
	for _, key := range keys {
		tk := tableKey{key.TableSchema, key.TableName}
		switch key.Kind {
		case engine.KeyPrimary:
			if primary[tk] == nil {
				primary[tk] = map[string]bool{}
			}
			primary[tk][key.Column] = true
		case engine.KeyForeign:
			if foreign[tk] == nil {
				foreign[tk] = map[string]engine.CatalogKey{}
			}
			foreign[tk][key.Column] = key
		}
	}

	byTable := map[tableKey][]ColumnInfo{}
	for _, col := range columns {
		tk := tableKey{col.TableSchema, col.TableName}
		info := ColumnInfo{
			Name:     col.Name,
			DataType: col.DataType,
			Nullable: col.Nullable,
		}
		if primary[tk][col.Name] {
			info.PrimaryKey = true
		}
		if fk, ok := foreign[tk][col.Name]; ok {
			info.ForeignKey = true
			info.RefTable = fk.RefTable
			info.RefColumn = fk.RefColumn
		}
		byTable[tk] = append(byTable[tk], info)
	}

	result.Tables = make([]TableInfo, 0, len(tables))
	for _, table := range tables {
		tk := tableKey{table.Schema, table.Name}
		result.Tables = append(result.Tables, TableInfo{
			Schema:  table.Schema,
			Name:    table.Name,
			Columns: byTable[tk],
		})
	}
	return result, nil
}
