package engine

import (
	"context"
	"errors"
	"fmt"
)

// UnsupportedEngineError is returned at the adapter-selection boundary for
// kinds outside the closed enumeration.
type UnsupportedEngineError struct {
	Kind string
}

func (e *UnsupportedEngineError) Error() string {
	return fmt.Sprintf("unsupported engine kind %q (supported: postgres, mysql, sqlite)", e.Kind)
}

// ConnectionError wraps a failure to reach or authenticate to an external
// engine, carrying the engine-reported diagnostic.
type ConnectionError struct {
	Kind       Kind
	Diagnostic string
	Err        error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("%s connection failed: %s", e.Kind, e.Diagnostic)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// ExecErrorKind is the stable execution-failure taxonomy. Callers (including
// the generation engine, which inspects failures to decide whether to retry
// with different SQL) branch on these, never on driver strings.
type ExecErrorKind string

const (
	ErrNoSuchTable  ExecErrorKind = "no_such_table"
	ErrNoSuchColumn ExecErrorKind = "no_such_column"
	ErrSyntax       ExecErrorKind = "syntax_error"
	ErrTimeout      ExecErrorKind = "timeout"
	ErrUnclassified ExecErrorKind = "unclassified"
)

// classifyContext handles the engine-independent timeout cases.
func classifyContext(err error) (ExecErrorKind, bool) {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ErrTimeout, true
	}
	return "", false
}
