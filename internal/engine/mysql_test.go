package engine

import (
	"fmt"
	"strings"
	"testing"

	"github.com/go-sql-driver/mysql"
)

func TestMySQLDSNDefaults(t *testing.T) {
	a := &mysqlAdapter{}
	dsn, err := a.dsn(Config{
		Kind:     KindMySQL,
		Host:     "db.internal",
		Database: "app",
		Username: "reader",
		Password: "secret",
	})
	if err != nil {
		t.Fatalf("dsn() error = %v", err)
	}
	if !strings.Contains(dsn, "tcp(db.internal:3306)") {
		t.Fatalf("dsn missing default port: %q", dsn)
	}
	if !strings.Contains(dsn, "/app") {
		t.Fatalf("dsn missing database: %q", dsn)
	}
	if !strings.Contains(dsn, "parseTime=true") {
		t.Fatalf("dsn missing parseTime: %q", dsn)
	}
}

func TestMySQLDSNRequiresCoreFields(t *testing.T) {
	a := &mysqlAdapter{}
	if _, err := a.dsn(Config{Host: "h", Username: "u"}); err == nil {
		t.Fatal("expected error for missing database")
	}
}

func TestMySQLExplorationSQL(t *testing.T) {
	a := &mysqlAdapter{}

	plain := a.ExplorationSQL("")
	if !strings.Contains(plain, "DATABASE()") {
		t.Fatalf("ExplorationSQL() = %q", plain)
	}
	filtered := a.ExplorationSQL("billing")
	if !strings.Contains(filtered, "'billing'") {
		t.Fatalf("filtered ExplorationSQL() = %q", filtered)
	}
}

func TestMySQLClassifyError(t *testing.T) {
	a := &mysqlAdapter{}

	cases := map[string]struct {
		err  error
		want ExecErrorKind
	}{
		"missing table":  {&mysql.MySQLError{Number: 1146, Message: "Table 'app.nope' doesn't exist"}, ErrNoSuchTable},
		"missing column": {&mysql.MySQLError{Number: 1054, Message: "Unknown column"}, ErrNoSuchColumn},
		"syntax":         {&mysql.MySQLError{Number: 1064, Message: "You have an error in your SQL syntax"}, ErrSyntax},
		"exceeded":       {&mysql.MySQLError{Number: 3024, Message: "Query execution was interrupted"}, ErrTimeout},
		"wrapped":        {fmt.Errorf("execute: %w", &mysql.MySQLError{Number: 1054}), ErrNoSuchColumn},
		"other":          {fmt.Errorf("driver: bad connection"), ErrUnclassified},
	}
	for name, tc := range cases {
		if got := a.ClassifyError(tc.err); got != tc.want {
			t.Fatalf("%s: ClassifyError() = %q, want %q", name, got, tc.want)
		}
	}
}
