package executor

import (
	"fmt"

	"github.com/querydeck/querydeck/internal/engine"
)

type ValidationReason string

const (
	ReasonEmptyStatement     ValidationReason = "empty_statement"
	ReasonMultiStatement     ValidationReason = "multi_statement"
	ReasonDeniedKeyword      ValidationReason = "denied_keyword"
	ReasonForbiddenOperation ValidationReason = "forbidden_operation"
)

// ValidationError rejects a statement before dispatch: multi-statement input,
// a denylisted administrative keyword, or a write shape on a read-only
// connection. Detail names what triggered the rejection.
type ValidationError struct {
	Reason ValidationReason
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("statement rejected (%s): %s", e.Reason, e.Detail)
}

// ExecError is a classified execution failure. The raw driver error is kept
// for wrapping but callers branch on Kind, never on driver strings.
type ExecError struct {
	Kind    engine.ExecErrorKind
	Message string
	Err     error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("execution failed (%s): %s", e.Kind, e.Message)
}

func (e *ExecError) Unwrap() error { return e.Err }
