package nlgen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const anthropicConfidence = 85

type anthropicProvider struct {
	baseURL string
	apiKey  string
	model   string
	client  *http.Client
}

func newAnthropicProvider(settings ProviderSettings, cred ProviderCredential) (*anthropicProvider, error) {
	apiKey := strings.TrimSpace(cred.APIKey)
	if apiKey == "" {
		return nil, &ProviderConfigError{Provider: ProviderAnthropic, Reason: "api key is required"}
	}
	baseURL := strings.TrimSpace(cred.BaseURL)
	if baseURL == "" {
		baseURL = settings.BaseURL
	}
	if baseURL == "" {
		baseURL = "https://api.anthropic.com"
	}
	model := strings.TrimSpace(cred.Model)
	if model == "" {
		model = settings.Model
	}
	if model == "" {
		model = "claude-sonnet-4-5"
	}
	timeout := settings.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &anthropicProvider{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		model:   model,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

func (p *anthropicProvider) Name() ProviderChoice { return ProviderAnthropic }
func (p *anthropicProvider) Confidence() int      { return anthropicConfidence }

func (p *anthropicProvider) Complete(ctx context.Context, system, user string) (string, error) {
	payload := map[string]any{
		"model":      p.model,
		"max_tokens": 1024,
		"system":     system,
		"messages": []map[string]string{
			{"role": "user", "content": user},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", &ProviderError{Provider: ProviderAnthropic, Reason: "marshal messages payload", Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", &ProviderError{Provider: ProviderAnthropic, Reason: "build messages request", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", p.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", &ProviderError{Provider: ProviderAnthropic, Reason: "request messages completion", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	rawBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &ProviderError{Provider: ProviderAnthropic, Reason: "read messages response body", Err: err}
	}
	if resp.StatusCode >= 400 {
		return "", &ProviderError{Provider: ProviderAnthropic, Reason: fmt.Sprintf("messages call failed status=%d body=%s", resp.StatusCode, truncate(string(rawBody), 500))}
	}

	var parsed struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(rawBody, &parsed); err != nil {
		return "", &ProviderError{Provider: ProviderAnthropic, Reason: "decode messages response", Err: err}
	}

	var b strings.Builder
	for _, block := range parsed.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	if b.Len() == 0 {
		return "", &ProviderError{Provider: ProviderAnthropic, Reason: "empty messages content"}
	}
	return b.String(), nil
}
