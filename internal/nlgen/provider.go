package nlgen

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/querydeck/querydeck/internal/engine"
	"github.com/querydeck/querydeck/internal/schema"
)

// Provider is one language-model integration. Confidence is fixed or
// provider-declared, in 0-100; this engine computes none of its own.
type Provider interface {
	Name() ProviderChoice
	Complete(ctx context.Context, system, user string) (string, error)
	Confidence() int
}

// ProviderSettings are the non-secret defaults for one provider, supplied by
// configuration. The API key itself arrives per call.
type ProviderSettings struct {
	BaseURL     string
	Model       string
	Temperature float64
	Timeout     time.Duration
}

const systemPromptTemplate = `You translate user requests into a single SQL statement for a %s database.
Respond in exactly one of these forms and nothing else:

QUERY: <one SQL statement>
EXPLANATION: <one or two sentences>

EXPLORE: <one read-only catalog/metadata SQL statement>
REASON: <why you need to inspect the schema first>

CLARIFY: <one question back to the user>

Rules:
- Exactly one statement, no trailing semicolon stacking.
- Prefer explicit column lists over SELECT *.
- Use only tables and columns from the provided schema context.
- If the schema context is missing what you need, answer with EXPLORE.
- If the request is ambiguous, answer with CLARIFY.`

func buildSystemPrompt(kind engine.Kind) string {
	dialect := map[engine.Kind]string{
		engine.KindPostgres: "PostgreSQL",
		engine.KindMySQL:    "MySQL",
		engine.KindSQLite:   "SQLite",
	}[kind]
	if dialect == "" {
		dialect = "SQL"
	}
	return fmt.Sprintf(systemPromptTemplate, dialect)
}

const historyWindow = 6

func buildUserPrompt(prompt string, tables []schema.TableInfo, history []Turn) string {
	var b strings.Builder

	if len(tables) > 0 {
		context := make([]map[string]any, 0, len(tables))
		for _, table := range tables {
			columns := make([]string, 0, len(table.Columns))
			for _, column := range table.Columns {
				columns = append(columns, column.Name+" "+column.DataType)
			}
			entry := map[string]any{"table": table.Name, "columns": columns}
			if table.Schema != "" {
				entry["schema"] = table.Schema
			}
			context = append(context, entry)
		}
		encoded, err := json.Marshal(context)
		if err == nil {
			b.WriteString("Schema context (JSON):\n")
			b.Write(encoded)
			b.WriteString("\n\n")
		}
	}

	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	if len(history) > 0 {
		b.WriteString("Recent conversation:\n")
		for _, turn := range history {
			b.WriteString(string(turn.Role))
			b.WriteString(": ")
			b.WriteString(turn.Content)
			if turn.SQL != "" {
				b.WriteString("\nSQL: ")
				b.WriteString(turn.SQL)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString("Request:\n")
	b.WriteString(strings.TrimSpace(prompt))
	return b.String()
}
