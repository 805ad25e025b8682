package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"pagequiz/internal/domain"
)

// ollamaVariant talks to a local Ollama-compatible inference server.
// POST {baseURL}/api/generate with {model, prompt, stream:false}; no auth.
// The generate endpoint takes a single prompt field, so the system prompt
// is prepended to the user prompt.
type ollamaVariant struct {
	adapter *Adapter
}

type ollamaGenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type ollamaGenerateResponse struct {
	Response string `json:"response"`
}

func (v *ollamaVariant) generate(ctx context.Context, settings domain.ProviderSettings, systemPrompt, userPrompt string) (string, error) {
	cfg := settings.Ollama
	if cfg.BaseURL == "" {
		return "", domain.NewInvalidInputError("ollama base URL is not configured")
	}

	payload := ollamaGenerateRequest{
		Model:  cfg.Model,
		Prompt: systemPrompt + "\n\n" + userPrompt,
		Stream: false,
	}

	body, err := v.adapter.doJSON(ctx, domain.ProviderOllama, http.MethodPost,
		strings.TrimSuffix(cfg.BaseURL, "/")+"/api/generate", nil, payload)
	if err != nil {
		return "", err
	}

	var resp ollamaGenerateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", domain.NewInternalError("failed to decode ollama response", err)
	}
	return resp.Response, nil
}

// testConnection probes the model list endpoint; it is cheap and requires
// no model load.
func (v *ollamaVariant) testConnection(ctx context.Context, settings domain.ProviderSettings) domain.ConnectionTestResult {
	cfg := settings.Ollama
	if cfg.BaseURL == "" {
		return domain.ConnectionTestResult{Success: false, Message: "Ollama base URL is not configured"}
	}

	_, err := v.adapter.doJSON(ctx, domain.ProviderOllama, http.MethodGet,
		strings.TrimSuffix(cfg.BaseURL, "/")+"/api/tags", nil, nil)
	if err != nil {
		return domain.ConnectionTestResult{
			Success: false,
			Message: fmt.Sprintf("Could not reach Ollama at %s: %v", cfg.BaseURL, err),
		}
	}
	return domain.ConnectionTestResult{
		Success: true,
		Message: fmt.Sprintf("Connected to Ollama at %s", cfg.BaseURL),
	}
}
