package nlgen

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/querydeck/querydeck/internal/engine"
	"github.com/querydeck/querydeck/internal/match"
	"github.com/querydeck/querydeck/internal/observability"
	"github.com/querydeck/querydeck/internal/schema"
)

// explorationConfidence is the fixed score attached to deterministic
// (non-model) exploration responses.
const explorationConfidence = 90

// tableContextLimit caps how many matched tables are sent to the provider.
const tableContextLimit = 3

// Engine drives one generation turn: intent analysis, schema acquisition,
// relevance matching, then either a deterministic exploration response or a
// provider call whose output is parsed into the response union. No state
// survives between calls beyond the caller-supplied history window.
type Engine struct {
	Introspector *schema.Introspector
	Logger       *slog.Logger
	Providers    map[ProviderChoice]ProviderSettings

	// newProvider is a test seam; nil means the real constructors.
	newProvider func(choice ProviderChoice, settings ProviderSettings, cred ProviderCredential) (Provider, error)
}

// Generate runs the state machine for one prompt. Provider configuration
// problems return an error; provider call failures return an error-tagged
// response. Nothing is retried silently.
func (e *Engine) Generate(ctx context.Context, req GenerateRequest) (Response, error) {
	in := analyzeIntent(req.Prompt)

	sch := req.Schema
	if sch == nil && e.Introspector != nil && req.Connection.Kind != "" {
		introspected, err := e.Introspector.Introspect(ctx, req.Connection)
		if err != nil {
			// Generation proceeds schema-blind; the exploration branch
			// below covers discovery.
			if e.Logger != nil {
				e.Logger.WarnContext(ctx, "introspection unavailable, generating schema-blind",
					slog.Any("error", err))
			}
		} else {
			sch = introspected
		}
	}

	matches := match.FindMatches(sch, in.Terms)

	noSchema := sch == nil || len(sch.Tables) == 0
	if in.SchemaDiscovery || noSchema || len(matches) == 0 {
		resp := e.exploration(req.Connection.Kind, in)
		observability.RecordGeneration(string(req.Provider), "exploration")
		return resp, nil
	}

	tableContext := matches
	if len(tableContext) > tableContextLimit {
		tableContext = tableContext[:tableContextLimit]
	}
	var suggestions []string
	if len(matches) > 1 {
		for _, table := range matches[1:] {
			suggestions = append(suggestions, table.Name)
		}
	}

	resp, err := e.callProvider(ctx, req, tableContext)
	if err != nil {
		return Response{}, err
	}
	if resp.Type == TypeQuery && len(suggestions) > 0 {
		resp.Query.Suggestions = suggestions
	}
	return resp, nil
}

// exploration synthesizes a deterministic read-only catalog query for the
// connection's engine. No model call occurs on this branch, and discovery
// always answers with an exploration response, even for an unknown engine
// kind.
func (e *Engine) exploration(kind engine.Kind, in intent) Response {
	sqlText := fallbackExplorationSQL(in.SchemaFilter)
	if adapter, err := engine.ForKind(kind); err == nil {
		sqlText = adapter.ExplorationSQL(in.SchemaFilter)
	}

	rationale := "I need to see which tables exist before writing this query."
	if in.SchemaFilter != "" {
		rationale = "Listing tables in the " + in.SchemaFilter + " schema to ground the answer."
	}
	return Response{
		Type: TypeExploration,
		Exploration: &Exploration{
			SQL:                  sqlText,
			Rationale:            rationale,
			RequiresConfirmation: true,
			Confidence:           explorationConfidence,
		},
	}
}

// fallbackExplorationSQL is the portable information_schema form used when
// no adapter is registered for the connection's kind.
func fallbackExplorationSQL(schemaFilter string) string {
	if schemaFilter != "" {
		return "SELECT table_schema, table_name FROM information_schema.tables WHERE table_schema = '" +
			strings.ReplaceAll(schemaFilter, "'", "''") + "' ORDER BY table_name"
	}
	return "SELECT table_schema, table_name FROM information_schema.tables ORDER BY table_schema, table_name"
}

func (e *Engine) callProvider(ctx context.Context, req GenerateRequest, tables []schema.TableInfo) (Response, error) {
	provider, err := e.providerFor(req.Provider, req.Credential)
	if err != nil {
		observability.RecordGeneration(string(req.Provider), "config_error")
		return Response{}, err
	}

	system := buildSystemPrompt(req.Connection.Kind)
	user := buildUserPrompt(req.Prompt, tables, req.History)

	start := time.Now()
	raw, err := provider.Complete(ctx, system, user)
	if err != nil {
		observability.RecordGeneration(string(req.Provider), "provider_error")
		if e.Logger != nil {
			e.Logger.WarnContext(ctx, "provider call failed",
				slog.String("provider", string(req.Provider)),
				slog.Any("error", err))
		}
		return Response{Type: TypeError, ErrorMessage: err.Error()}, nil
	}
	if e.Logger != nil {
		e.Logger.DebugContext(ctx, "provider call completed",
			slog.String("provider", string(req.Provider)),
			slog.String("duration", time.Since(start).String()))
	}

	resp := parseResponse(raw, provider.Confidence())
	observability.RecordGeneration(string(req.Provider), string(resp.Type))
	return resp, nil
}

func (e *Engine) providerFor(choice ProviderChoice, cred ProviderCredential) (Provider, error) {
	settings := e.Providers[choice]
	if e.newProvider != nil {
		return e.newProvider(choice, settings, cred)
	}
	switch choice {
	case ProviderOpenAI:
		return newOpenAIProvider(settings, cred)
	case ProviderAnthropic:
		return newAnthropicProvider(settings, cred)
	default:
		return nil, &ProviderConfigError{Provider: choice, Reason: "unknown provider"}
	}
}
