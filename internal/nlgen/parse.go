package nlgen

import (
	"regexp"
	"strings"
)

// Providers are instructed to answer with tagged sections (EXPLORE / QUERY +
// EXPLANATION / CLARIFY). parseResponse is layered most-specific-first:
// tagged sections, then a fenced code block, then a blank-line split, then
// the whole text as a clarification. It never fails; every input maps to
// exactly one response variant.
func parseResponse(raw string, confidence int) Response {
	text := strings.TrimSpace(raw)
	if text == "" {
		return clarificationResponse("The model returned an empty response. Could you rephrase your request?")
	}

	if resp, ok := parseTagged(text, confidence); ok {
		return resp
	}
	if resp, ok := parseFenced(text, confidence); ok {
		return resp
	}
	if resp, ok := parseBlankSplit(text, confidence); ok {
		return resp
	}
	return clarificationResponse(text)
}

var (
	explorePattern = regexp.MustCompile(`(?ms)^\s*EXPLORE:\s*(.+?)(?:^\s*REASON:\s*(.+))?\z`)
	queryPattern   = regexp.MustCompile(`(?ms)^\s*QUERY:\s*(.+?)(?:^\s*EXPLANATION:\s*(.+))?\z`)
	clarifyPattern = regexp.MustCompile(`(?ms)^\s*CLARIFY:\s*(.+)\z`)
)

func parseTagged(text string, confidence int) (Response, bool) {
	if m := explorePattern.FindStringSubmatch(text); m != nil {
		sql := stripFence(strings.TrimSpace(m[1]))
		if sql == "" {
			return Response{}, false
		}
		rationale := strings.TrimSpace(m[2])
		if rationale == "" {
			rationale = "Inspect the database catalog before answering."
		}
		return Response{
			Type: TypeExploration,
			Exploration: &Exploration{
				SQL:                  sql,
				Rationale:            rationale,
				RequiresConfirmation: true,
				Confidence:           confidence,
			},
		}, true
	}

	if m := queryPattern.FindStringSubmatch(text); m != nil {
		sql := stripFence(strings.TrimSpace(m[1]))
		if sql == "" {
			return Response{}, false
		}
		return Response{
			Type: TypeQuery,
			Query: &QueryResult{
				SQL:         sql,
				Explanation: strings.TrimSpace(m[2]),
				Confidence:  confidence,
			},
		}, true
	}

	if m := clarifyPattern.FindStringSubmatch(text); m != nil {
		question := strings.TrimSpace(m[1])
		if question == "" {
			return Response{}, false
		}
		return clarificationResponse(question), true
	}
	return Response{}, false
}

var fencePattern = regexp.MustCompile("(?s)```(?:sql)?\\s*(.*?)```")

func parseFenced(text string, confidence int) (Response, bool) {
	m := fencePattern.FindStringSubmatchIndex(text)
	if m == nil {
		return Response{}, false
	}
	sql := strings.TrimSpace(text[m[2]:m[3]])
	if sql == "" {
		return Response{}, false
	}
	explanation := strings.TrimSpace(text[:m[0]] + " " + text[m[1]:])
	return Response{
		Type: TypeQuery,
		Query: &QueryResult{
			SQL:         sql,
			Explanation: explanation,
			Confidence:  confidence,
		},
	}, true
}

func parseBlankSplit(text string, confidence int) (Response, bool) {
	parts := strings.SplitN(text, "\n\n", 2)
	first := strings.TrimSpace(parts[0])
	if !looksLikeSQL(first) {
		return Response{}, false
	}
	explanation := ""
	if len(parts) == 2 {
		explanation = strings.TrimSpace(parts[1])
	}
	return Response{
		Type: TypeQuery,
		Query: &QueryResult{
			SQL:         first,
			Explanation: explanation,
			Confidence:  confidence,
		},
	}, true
}

var sqlLeadKeywords = []string{"SELECT", "WITH", "INSERT", "UPDATE", "DELETE", "SHOW", "EXPLAIN", "DESCRIBE", "PRAGMA"}

func looksLikeSQL(text string) bool {
	upper := strings.ToUpper(strings.TrimSpace(text))
	for _, keyword := range sqlLeadKeywords {
		if strings.HasPrefix(upper, keyword+" ") || upper == keyword {
			return true
		}
	}
	return false
}

func stripFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```sql")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(trimmed, "```")
		return strings.TrimSpace(trimmed)
	}
	return trimmed
}

func clarificationResponse(question string) Response {
	return Response{
		Type:          TypeClarification,
		Clarification: &Clarification{Question: question},
	}
}
