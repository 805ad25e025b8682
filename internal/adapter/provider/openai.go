package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"pagequiz/internal/domain"
)

// openAIVariant talks to a chat-completions style cloud API.
// POST {baseURL}/v1/chat/completions with bearer-token auth; the reply text
// is choices[0].message.content. response_format pins JSON output.
type openAIVariant struct {
	adapter *Adapter
}

type openAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatRequest struct {
	Model          string          `json:"model"`
	Messages       []openAIMessage `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat struct {
		Type string `json:"type"`
	} `json:"response_format"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (v *openAIVariant) generate(ctx context.Context, settings domain.ProviderSettings, systemPrompt, userPrompt string) (string, error) {
	cfg := settings.OpenAI
	if cfg.APIKey == "" {
		return "", domain.NewInvalidInputError("OpenAI API key is not configured")
	}
	if cfg.BaseURL == "" {
		return "", domain.NewInvalidInputError("OpenAI base URL is not configured")
	}

	payload := openAIChatRequest{
		Model: cfg.Model,
		Messages: []openAIMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: 0.7,
	}
	payload.ResponseFormat.Type = "json_object"

	headers := map[string]string{"Authorization": "Bearer " + cfg.APIKey}
	body, err := v.adapter.doJSON(ctx, domain.ProviderOpenAI, http.MethodPost,
		strings.TrimSuffix(cfg.BaseURL, "/")+"/v1/chat/completions", headers, payload)
	if err != nil {
		return "", err
	}

	var resp openAIChatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", domain.NewInternalError("failed to decode OpenAI response", err)
	}
	if len(resp.Choices) == 0 {
		return "", domain.NewInternalError("OpenAI response contained no choices", nil)
	}
	return resp.Choices[0].Message.Content, nil
}

// testConnection lists models, which validates both reachability and the
// credential without spending tokens.
func (v *openAIVariant) testConnection(ctx context.Context, settings domain.ProviderSettings) domain.ConnectionTestResult {
	cfg := settings.OpenAI
	if cfg.APIKey == "" {
		return domain.ConnectionTestResult{Success: false, Message: "OpenAI API key is not configured"}
	}
	if cfg.BaseURL == "" {
		return domain.ConnectionTestResult{Success: false, Message: "OpenAI base URL is not configured"}
	}

	headers := map[string]string{"Authorization": "Bearer " + cfg.APIKey}
	_, err := v.adapter.doJSON(ctx, domain.ProviderOpenAI, http.MethodGet,
		strings.TrimSuffix(cfg.BaseURL, "/")+"/v1/models", headers, nil)
	if err != nil {
		return domain.ConnectionTestResult{
			Success: false,
			Message: fmt.Sprintf("OpenAI connection failed: %v", err),
		}
	}
	return domain.ConnectionTestResult{
		Success: true,
		Message: fmt.Sprintf("Connected to OpenAI (model %s)", cfg.Model),
	}
}
