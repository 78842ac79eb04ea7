package nlgen

import (
	"regexp"
	"strings"
)

// intent is what the analyzer reads off a prompt before any schema or model
// work happens.
type intent struct {
	Question        bool
	SchemaDiscovery bool
	SchemaFilter    string
	Terms           []string
}

var questionWords = map[string]bool{
	"what": true, "which": true, "who": true, "where": true, "when": true,
	"how": true, "why": true, "show": true, "list": true, "find": true,
	"get": true, "give": true, "count": true, "display": true, "fetch": true,
}

// entityVocabulary are domain words that commonly name tables; they survive
// term extraction even when they look like ordinary prose.
var entityVocabulary = map[string]bool{
	"user": true, "users": true, "customer": true, "customers": true,
	"order": true, "orders": true, "product": true, "products": true,
	"invoice": true, "invoices": true, "payment": true, "payments": true,
	"account": true, "accounts": true, "session": true, "sessions": true,
	"event": true, "events": true, "subscription": true, "subscriptions": true,
	"transaction": true, "transactions": true, "item": true, "items": true,
	"category": true, "categories": true, "address": true, "addresses": true,
	"employee": true, "employees": true, "report": true, "reports": true,
}

var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "of": true, "in": true, "on": true,
	"for": true, "to": true, "from": true, "with": true, "and": true,
	"or": true, "all": true, "me": true, "my": true, "is": true, "are": true,
	"do": true, "does": true, "did": true, "have": true, "has": true,
	"i": true, "we": true, "you": true, "it": true, "that": true,
	"this": true, "by": true, "at": true, "as": true, "be": true,
	"can": true, "please": true, "want": true, "need": true, "like": true,
	"many": true, "much": true, "there": true, "tables": true, "table": true,
	"columns": true, "column": true, "database": true, "schema": true,
	"data": true, "rows": true, "records": true,
}

var schemaDiscoveryPhrases = []string{
	"what tables", "which tables", "list tables", "show tables",
	"what columns", "which columns", "describe table", "table structure",
	"what is in the database", "explore the schema", "database schema",
	"schema of", "structure of",
}

var identifierPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

var schemaFilterPattern = regexp.MustCompile(`(?i)(?:in|from|of)\s+the\s+([a-zA-Z_][a-zA-Z0-9_]*)\s+schema|(?i:schema\s+([a-zA-Z_][a-zA-Z0-9_]*))`)

// analyzeIntent classifies the prompt and extracts candidate search terms:
// recognized entity vocabulary plus bare identifier-shaped tokens, minus
// stopwords.
func analyzeIntent(prompt string) intent {
	lower := strings.ToLower(strings.TrimSpace(prompt))
	result := intent{}

	if strings.HasSuffix(lower, "?") {
		result.Question = true
	}
	words := strings.FieldsFunc(lower, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == ',' || r == '.' || r == '?' || r == '!' || r == '\'' || r == '"'
	})
	if len(words) > 0 && questionWords[words[0]] {
		result.Question = true
	}

	for _, phrase := range schemaDiscoveryPhrases {
		if strings.Contains(lower, phrase) {
			result.SchemaDiscovery = true
			break
		}
	}

	if m := schemaFilterPattern.FindStringSubmatch(prompt); m != nil {
		if m[1] != "" {
			result.SchemaFilter = m[1]
		} else {
			result.SchemaFilter = m[2]
		}
	}

	seen := map[string]bool{}
	for _, word := range words {
		if stopwords[word] || seen[word] {
			continue
		}
		if entityVocabulary[word] || (identifierPattern.MatchString(word) && len(word) > 2 && !questionWords[word]) {
			seen[word] = true
			result.Terms = append(result.Terms, word)
		}
	}
	return result
}
