// Package nlgen turns a natural-language request into SQL by reflecting on
// the live schema of the target database and driving an exploration /
// generation / clarification protocol with a language-model provider.
package nlgen

import (
	"fmt"

	"github.com/querydeck/querydeck/internal/engine"
	"github.com/querydeck/querydeck/internal/schema"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in the bounded conversation window threaded into a
// generation call. No other state survives between calls.
type Turn struct {
	Role        Role   `json:"role"`
	Content     string `json:"content"`
	SQL         string `json:"sql,omitempty"`
	Confidence  int    `json:"confidence,omitempty"`
	Engine      string `json:"engine,omitempty"`
	Exploration bool   `json:"exploration,omitempty"`
}

type ResponseType string

const (
	TypeQuery         ResponseType = "query"
	TypeExploration   ResponseType = "exploration"
	TypeClarification ResponseType = "clarification"
	TypeError         ResponseType = "error"
)

// Response is a closed sum: exactly one case is populated, selected by Type.
// Callers must switch on Type, never on field presence.
type Response struct {
	Type          ResponseType   `json:"type"`
	Query         *QueryResult   `json:"query,omitempty"`
	Exploration   *Exploration   `json:"exploration,omitempty"`
	Clarification *Clarification `json:"clarification,omitempty"`
	ErrorMessage  string         `json:"error,omitempty"`
}

type QueryResult struct {
	SQL         string   `json:"sql"`
	Explanation string   `json:"explanation,omitempty"`
	Confidence  int      `json:"confidence"`
	Suggestions []string `json:"suggestions,omitempty"`
}

type Exploration struct {
	SQL                  string `json:"sql"`
	Rationale            string `json:"rationale"`
	RequiresConfirmation bool   `json:"requires_confirmation"`
	Confidence           int    `json:"confidence"`
}

type Clarification struct {
	Question string `json:"question"`
}

type ProviderChoice string

const (
	ProviderOpenAI    ProviderChoice = "openai"
	ProviderAnthropic ProviderChoice = "anthropic"
)

// ProviderCredential is threaded explicitly into each generation call; its
// lifetime is that call. It is never written into process-wide state.
type ProviderCredential struct {
	APIKey string
	// BaseURL and Model override the configured defaults when set.
	BaseURL string
	Model   string
}

// GenerateRequest is one generation turn.
type GenerateRequest struct {
	Prompt     string
	Connection engine.ConnectionConfig
	// Schema, when supplied by the caller, skips introspection.
	Schema     *schema.Schema
	History    []Turn
	Provider   ProviderChoice
	Credential ProviderCredential
}

// ProviderConfigError means the provider cannot be called at all (missing or
// invalid credential). Callers render this differently from a generation
// failure: "configure a key", not "try again".
type ProviderConfigError struct {
	Provider ProviderChoice
	Reason   string
}

func (e *ProviderConfigError) Error() string {
	return fmt.Sprintf("provider %s is not configured: %s", e.Provider, e.Reason)
}

// ProviderError is a failed model call: network, HTTP status, or a response
// that could not be decoded. Never retried silently by this engine.
type ProviderError struct {
	Provider ProviderChoice
	Reason   string
	Err      error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s call failed: %s", e.Provider, e.Reason)
}

func (e *ProviderError) Unwrap() error { return e.Err }
