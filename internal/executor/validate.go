package executor

import (
	"regexp"
	"strings"

	"github.com/querydeck/querydeck/internal/engine"
)

// The denylist is a shallow lexical check over comment-stripped SQL. It is
// documented best-effort, not a security boundary: it can over-reject (a
// column named drop_rate used bare) and under-reject unusual phrasings.
// Real containment comes from the connection's access mode and the
// read-only session the adapters establish.
var deniedPatterns = []struct {
	pattern *regexp.Regexp
	desc    string
}{
	{regexp.MustCompile(`(?i)\b(CREATE|ALTER|DROP)\s+(DATABASE|SCHEMA|USER|ROLE)\b`), "database/user administration"},
	{regexp.MustCompile(`(?i)(?:^|[^a-zA-Z_])GRANT(?:[^a-zA-Z_]|$)`), "GRANT"},
	{regexp.MustCompile(`(?i)(?:^|[^a-zA-Z_])REVOKE(?:[^a-zA-Z_]|$)`), "REVOKE"},
}

var writeKeywords = map[string]bool{
	"INSERT":   true,
	"UPDATE":   true,
	"DELETE":   true,
	"CREATE":   true,
	"DROP":     true,
	"ALTER":    true,
	"TRUNCATE": true,
}

// validate applies the pre-dispatch statement policy. Any rejection happens
// here, before credentials are decrypted or an adapter is contacted.
func validate(sqlText string, mode engine.AccessMode) error {
	stripped := strings.TrimSpace(stripComments(sqlText))
	if stripped == "" {
		return &ValidationError{Reason: ReasonEmptyStatement, Detail: "statement is empty"}
	}

	// One statement per invocation: a semicolon anywhere before the final
	// character means a second statement follows.
	trimmed := strings.TrimSpace(strings.TrimSuffix(stripped, ";"))
	if strings.Contains(trimmed, ";") {
		return &ValidationError{Reason: ReasonMultiStatement, Detail: "multiple statements are not allowed"}
	}

	for _, denied := range deniedPatterns {
		if denied.pattern.MatchString(stripped) {
			return &ValidationError{Reason: ReasonDeniedKeyword, Detail: "statement contains " + denied.desc}
		}
	}

	if mode != engine.ModeReadWrite {
		if keyword := leadingKeyword(stripped); writeKeywords[keyword] {
			return &ValidationError{Reason: ReasonForbiddenOperation, Detail: keyword + " is not allowed on a read-only connection"}
		}
	}
	return nil
}

func leadingKeyword(sqlText string) string {
	fields := strings.Fields(sqlText)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToUpper(fields[0])
}

// stripComments removes line (--) and block (/* */) comments while leaving
// string literals intact, so denylist checks do not fire on comment text.
func stripComments(sqlText string) string {
	var result strings.Builder
	i := 0
	n := len(sqlText)

	for i < n {
		if i+1 < n && sqlText[i] == '-' && sqlText[i+1] == '-' {
			for i < n && sqlText[i] != '\n' {
				i++
			}
			result.WriteByte(' ')
			continue
		}

		if i+1 < n && sqlText[i] == '/' && sqlText[i+1] == '*' {
			i += 2
			for i+1 < n && !(sqlText[i] == '*' && sqlText[i+1] == '/') {
				i++
			}
			i += 2
			result.WriteByte(' ')
			continue
		}

		if sqlText[i] == '\'' {
			result.WriteByte('\'')
			i++
			for i < n {
				if sqlText[i] == '\'' {
					if i+1 < n && sqlText[i+1] == '\'' {
						result.WriteString("''")
						i += 2
						continue
					}
					result.WriteByte('\'')
					i++
					break
				}
				result.WriteByte(sqlText[i])
				i++
			}
			continue
		}

		result.WriteByte(sqlText[i])
		i++
	}
	return result.String()
}
