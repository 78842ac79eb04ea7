// Package schema builds an engine-neutral model of a live database from each
// engine's catalog metadata. A schema is built fresh per call and replaced
// wholesale, never mutated in place; this core does not persist it.
package schema

// ColumnInfo describes one column as reported by the engine. Identifiers are
// case-sensitive as reported; nothing here lowercases them.
type ColumnInfo struct {
	Name       string `json:"name"`
	DataType   string `json:"data_type"`
	Nullable   bool   `json:"nullable"`
	PrimaryKey bool   `json:"primary_key"`
	ForeignKey bool   `json:"foreign_key"`
	RefTable   string `json:"ref_table,omitempty"`
	RefColumn  string `json:"ref_column,omitempty"`
}

// TableInfo is one table with its columns in ordinal order.
type TableInfo struct {
	Schema  string       `json:"schema,omitempty"`
	Name    string       `json:"name"`
	Columns []ColumnInfo `json:"columns"`
}

// Schema is the canonical introspection result. Complete is false when a
// secondary catalog query (key constraints) failed and the schema is missing
// that information; Warnings carry the reasons.
type Schema struct {
	Tables   []TableInfo `json:"tables"`
	Complete bool        `json:"complete"`
	Warnings []string    `json:"warnings,omitempty"`
}

// FindTable returns the table with the given name, matching the qualified
// form when the search name contains a dot.
func (s *Schema) FindTable(name string) (TableInfo, bool) {
	if s == nil {
		return TableInfo{}, false
	}
	for _, table := range s.Tables {
		if table.Name == name {
			return table, true
		}
		if table.Schema != "" && table.Schema+"."+table.Name == name {
			return table, true
		}
	}
	return TableInfo{}, false
}
