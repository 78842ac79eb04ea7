package executor

import (
	"errors"
	"strings"
	"testing"

	"github.com/querydeck/querydeck/internal/engine"
)

func assertValidationReason(t *testing.T, err error, want ValidationReason) {
	t.Helper()
	var validationErr *ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("error = %v, want ValidationError", err)
	}
	if validationErr.Reason != want {
		t.Fatalf("Reason = %q, want %q", validationErr.Reason, want)
	}
}

func TestValidateRejectsEmptyStatement(t *testing.T) {
	assertValidationReason(t, validate("", engine.ModeReadOnly), ReasonEmptyStatement)
	assertValidationReason(t, validate("   \n\t", engine.ModeReadOnly), ReasonEmptyStatement)
	assertValidationReason(t, validate("-- just a comment", engine.ModeReadOnly), ReasonEmptyStatement)
	assertValidationReason(t, validate("/* block */", engine.ModeReadOnly), ReasonEmptyStatement)
}

func TestValidateRejectsMultipleStatements(t *testing.T) {
	assertValidationReason(t, validate("SELECT 1; DROP TABLE users;", engine.ModeReadWrite), ReasonMultiStatement)
	assertValidationReason(t, validate("SELECT 1;SELECT 2", engine.ModeReadOnly), ReasonMultiStatement)
}

func TestValidateAllowsSingleTrailingSemicolon(t *testing.T) {
	if err := validate("SELECT 1;", engine.ModeReadOnly); err != nil {
		t.Fatalf("validate() error = %v", err)
	}
}

func TestValidateDenylist(t *testing.T) {
	denied := []string{
		"DROP DATABASE prod",
		"create schema scratch",
		"ALTER USER admin WITH PASSWORD 'x'",
		"CREATE ROLE intruder",
		"GRANT ALL ON users TO intruder",
		"revoke select on users from reader",
	}
	for _, sqlText := range denied {
		assertValidationReason(t, validate(sqlText, engine.ModeReadWrite), ReasonDeniedKeyword)
	}
}

func TestValidateDenylistWordBoundaries(t *testing.T) {
	allowed := []string{
		"SELECT granted_at FROM permissions",
		"SELECT id FROM grants_log WHERE grantee = 'x'",
		"SELECT drop_rate FROM metrics",
	}
	for _, sqlText := range allowed {
		if err := validate(sqlText, engine.ModeReadOnly); err != nil {
			t.Fatalf("validate(%q) error = %v", sqlText, err)
		}
	}
}

func TestValidateDenylistIgnoresComments(t *testing.T) {
	sqlText := "SELECT 1 -- GRANT ALL would be bad here"
	if err := validate(sqlText, engine.ModeReadOnly); err != nil {
		t.Fatalf("validate() error = %v", err)
	}
}

func TestValidateReadOnlyRejectsWrites(t *testing.T) {
	writes := []string{
		"INSERT INTO users (email) VALUES ('a@b.c')",
		"update users set active = false",
		"DELETE FROM users",
		"TRUNCATE users",
		"CREATE TABLE scratch (id int)",
		"DROP TABLE users",
		"ALTER TABLE users ADD COLUMN note text",
	}
	for _, sqlText := range writes {
		assertValidationReason(t, validate(sqlText, engine.ModeReadOnly), ReasonForbiddenOperation)
	}
}

func TestValidateReadWriteAllowsWrites(t *testing.T) {
	if err := validate("INSERT INTO users (email) VALUES ('a@b.c')", engine.ModeReadWrite); err != nil {
		t.Fatalf("validate() error = %v", err)
	}
	if err := validate("CREATE TABLE scratch (id int)", engine.ModeReadWrite); err != nil {
		t.Fatalf("validate() error = %v", err)
	}
}

func TestValidateEmptyModeIsReadOnly(t *testing.T) {
	assertValidationReason(t, validate("DELETE FROM users", engine.AccessMode("")), ReasonForbiddenOperation)
}

func TestStripCommentsPreservesStringLiterals(t *testing.T) {
	got := stripComments("SELECT '--not a comment' /* gone */ FROM t -- tail")
	if !strings.Contains(got, "'--not a comment'") {
		t.Fatalf("literal was mangled: %q", got)
	}
	if strings.Contains(got, "gone") || strings.Contains(got, "tail") {
		t.Fatalf("comments survived: %q", got)
	}
}

func TestStripCommentsEscapedQuote(t *testing.T) {
	got := stripComments("SELECT 'o''brien' FROM t")
	if !strings.Contains(got, "'o''brien'") {
		t.Fatalf("escaped quote was mangled: %q", got)
	}
}
