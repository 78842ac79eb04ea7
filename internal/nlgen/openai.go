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

const openAIConfidence = 85

type openAIProvider struct {
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	client      *http.Client
}

func newOpenAIProvider(settings ProviderSettings, cred ProviderCredential) (*openAIProvider, error) {
	apiKey := strings.TrimSpace(cred.APIKey)
	if apiKey == "" {
		return nil, &ProviderConfigError{Provider: ProviderOpenAI, Reason: "api key is required"}
	}
	baseURL := strings.TrimSpace(cred.BaseURL)
	if baseURL == "" {
		baseURL = settings.BaseURL
	}
	if baseURL == "" {
		return nil, &ProviderConfigError{Provider: ProviderOpenAI, Reason: "base URL is required"}
	}
	model := strings.TrimSpace(cred.Model)
	if model == "" {
		model = settings.Model
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	timeout := settings.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &openAIProvider{
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      apiKey,
		model:       model,
		temperature: settings.Temperature,
		client:      &http.Client{Timeout: timeout},
	}, nil
}

func (p *openAIProvider) Name() ProviderChoice { return ProviderOpenAI }
func (p *openAIProvider) Confidence() int      { return openAIConfidence }

func (p *openAIProvider) Complete(ctx context.Context, system, user string) (string, error) {
	payload := map[string]any{
		"model": p.model,
		"messages": []map[string]string{
			{"role": "system", "content": system},
			{"role": "user", "content": user},
		},
		"temperature": p.temperature,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", &ProviderError{Provider: ProviderOpenAI, Reason: "marshal chat payload", Err: err}
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", &ProviderError{Provider: ProviderOpenAI, Reason: "build chat request", Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return "", &ProviderError{Provider: ProviderOpenAI, Reason: "request chat completion", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	rawBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &ProviderError{Provider: ProviderOpenAI, Reason: "read chat response body", Err: err}
	}
	if resp.StatusCode >= 400 {
		return "", &ProviderError{Provider: ProviderOpenAI, Reason: fmt.Sprintf("chat completion failed status=%d body=%s", resp.StatusCode, truncate(string(rawBody), 500))}
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(rawBody, &parsed); err != nil {
		return "", &ProviderError{Provider: ProviderOpenAI, Reason: "decode chat completion response", Err: err}
	}
	if len(parsed.Choices) == 0 {
		return "", &ProviderError{Provider: ProviderOpenAI, Reason: "empty chat completion choices"}
	}
	return parsed.Choices[0].Message.Content, nil
}

func truncate(value string, max int) string {
	if len(value) <= max {
		return value
	}
	return value[:max] + "..."
}
