// Package engine defines the uniform contract implemented by each supported
// database engine. Adapters know their own dialect (DSN shape, limit clause,
// catalog queries, driver error codes) and nothing else: safety policy and the
// canonical schema model are layered on top by the executor and introspector.
package engine

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"sync"
)

type Kind string

const (
	KindPostgres Kind = "postgres"
	KindMySQL    Kind = "mysql"
	KindSQLite   Kind = "sqlite"
)

// ParseKind resolves a stored engine identifier to a supported Kind.
func ParseKind(raw string) (Kind, error) {
	switch Kind(raw) {
	case KindPostgres, KindMySQL, KindSQLite:
		return Kind(raw), nil
	default:
		return "", &UnsupportedEngineError{Kind: raw}
	}
}

type AccessMode string

const (
	ModeReadOnly  AccessMode = "read_only"
	ModeReadWrite AccessMode = "read_write"
)

// Config carries everything needed to open one connection to an external
// engine. Password and ConnString hold decrypted credential material only for
// the duration of a single call; they must never be logged or echoed back.
type Config struct {
	Kind       Kind
	Host       string
	Port       int
	Database   string
	Username   string
	Password   string
	ConnString string
	TLSMode    string
	AccessMode AccessMode
}

// Handle wraps one open connection to an external engine. It is opened,
// used for exactly one call, and closed; never pooled or shared.
type Handle struct {
	DB       *sql.DB
	Database string
}

func (h *Handle) Close() error {
	if h == nil || h.DB == nil {
		return nil
	}
	return h.DB.Close()
}

// RawResult is the adapter-level result shape before normalization.
type RawResult struct {
	Columns      []string
	Rows         [][]any
	RowsAffected int64
	HasRows      bool
}

// Raw catalog rows, folded into the canonical schema by the introspector.
type CatalogTable struct {
	Schema string
	Name   string
}

type CatalogColumn struct {
	TableSchema string
	TableName   string
	Name        string
	DataType    string
	Nullable    bool
	Position    int
}

type KeyKind string

const (
	KeyPrimary KeyKind = "primary"
	KeyForeign KeyKind = "foreign"
)

type CatalogKey struct {
	TableSchema string
	TableName   string
	Column      string
	Kind        KeyKind
	RefTable    string
	RefColumn   string
}

// Adapter is the per-engine contract. Implementations must honor the caller's
// context on every statement and must not retain the Handle beyond a call.
type Adapter interface {
	Kind() Kind

	// Connect opens and verifies a connection. Failures carry the
	// engine-reported diagnostic wrapped in a ConnectionError.
	Connect(ctx context.Context, cfg Config) (*Handle, error)

	// Execute runs exactly one statement and returns the raw result.
	Execute(ctx context.Context, h *Handle, sqlText string) (RawResult, error)

	// Catalog metadata queries, each independent so the introspector can
	// tolerate partial failure.
	CatalogTables(ctx context.Context, h *Handle) ([]CatalogTable, error)
	CatalogColumns(ctx context.Context, h *Handle) ([]CatalogColumn, error)
	CatalogKeys(ctx context.Context, h *Handle) ([]CatalogKey, error)

	// LimitSQL rewrites a row-returning statement so its result size is
	// bounded, regardless of comments or limits inside the statement text.
	LimitSQL(sqlText string, limit int) string

	// ExplorationSQL synthesizes a deterministic read-only catalog query,
	// optionally filtered to one schema/name.
	ExplorationSQL(schemaFilter string) string

	// ClassifyError maps a driver error to the stable taxonomy.
	ClassifyError(err error) ExecErrorKind
}

var (
	registryMu sync.RWMutex
	registry   = map[Kind]Adapter{}
)

// Register installs an adapter for a kind. Called from adapter init functions.
func Register(kind Kind, adapter Adapter) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[kind]; exists {
		panic(fmt.Sprintf("engine adapter already registered for kind %q", kind))
	}
	registry[kind] = adapter
}

// ForKind resolves the adapter for a kind, failing fast before any
// connection attempt when the kind is not supported.
func ForKind(kind Kind) (Adapter, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	adapter, ok := registry[kind]
	if !ok {
		return nil, &UnsupportedEngineError{Kind: string(kind)}
	}
	return adapter, nil
}

// RegisteredKinds returns the supported kinds in stable order.
func RegisteredKinds() []Kind {
	registryMu.RLock()
	defer registryMu.RUnlock()
	kinds := make([]Kind, 0, len(registry))
	for kind := range registry {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}
