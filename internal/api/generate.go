package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/querydeck/querydeck/internal/nlgen"
	"github.com/querydeck/querydeck/internal/schema"
)

type generateRequest struct {
	Prompt     string            `json:"prompt"`
	Connection connectionPayload `json:"connection"`
	Schema     *schema.Schema    `json:"schema,omitempty"`
	History    []nlgen.Turn      `json:"history,omitempty"`
	Provider   string            `json:"provider"`
	// The provider key is threaded through this one call; it is not
	// stored or written into process state.
	ProviderAPIKey string `json:"provider_api_key"`
	ProviderModel  string `json:"provider_model,omitempty"`
}

func handleGenerate(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Generator == nil {
		writeError(w, r, http.StatusNotImplemented, "GENERATE_NOT_CONFIGURED", "generation dependency is not configured", false)
		return
	}

	var req generateRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_JSON", "invalid generate request body", false)
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeError(w, r, http.StatusBadRequest, "PROMPT_REQUIRED", "prompt is required", false)
		return
	}

	conn, err := req.Connection.toConfig()
	if err != nil {
		writeCoreError(w, r, err)
		return
	}

	provider := nlgen.ProviderChoice(req.Provider)
	if provider == "" {
		provider = nlgen.ProviderOpenAI
	}

	response, err := deps.Generator.Generate(r.Context(), nlgen.GenerateRequest{
		Prompt:     req.Prompt,
		Connection: conn,
		Schema:     req.Schema,
		History:    req.History,
		Provider:   provider,
		Credential: nlgen.ProviderCredential{
			APIKey: req.ProviderAPIKey,
			Model:  req.ProviderModel,
		},
	})
	if err != nil {
		writeCoreError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, response)
}
