package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"pagequiz/internal/domain"
)

// anthropicVariant talks to a messages style cloud API.
// POST {baseURL}/v1/messages with x-api-key and anthropic-version headers;
// the system prompt is a top-level field and the reply text is
// content[0].text.
type anthropicVariant struct {
	adapter *Adapter
}

const anthropicMaxTokens = 4096

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicMessagesRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessagesResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

func (v *anthropicVariant) headers(cfg domain.AnthropicSettings) map[string]string {
	return map[string]string{
		"x-api-key":         cfg.APIKey,
		"anthropic-version": cfg.Version,
	}
}

func (v *anthropicVariant) generate(ctx context.Context, settings domain.ProviderSettings, systemPrompt, userPrompt string) (string, error) {
	cfg := settings.Anthropic
	if cfg.APIKey == "" {
		return "", domain.NewInvalidInputError("Anthropic API key is not configured")
	}
	if cfg.BaseURL == "" {
		return "", domain.NewInvalidInputError("Anthropic base URL is not configured")
	}

	payload := anthropicMessagesRequest{
		Model:     cfg.Model,
		MaxTokens: anthropicMaxTokens,
		System:    systemPrompt,
		Messages:  []anthropicMessage{{Role: "user", Content: userPrompt}},
	}

	body, err := v.adapter.doJSON(ctx, domain.ProviderAnthropic, http.MethodPost,
		strings.TrimSuffix(cfg.BaseURL, "/")+"/v1/messages", v.headers(cfg), payload)
	if err != nil {
		return "", err
	}

	var resp anthropicMessagesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", domain.NewInternalError("failed to decode Anthropic response", err)
	}
	if len(resp.Content) == 0 {
		return "", domain.NewInternalError("Anthropic response contained no content blocks", nil)
	}
	return resp.Content[0].Text, nil
}

// testConnection issues a one-token message; the messages API has no free
// list endpoint, so this is the lightest probe that validates the key.
func (v *anthropicVariant) testConnection(ctx context.Context, settings domain.ProviderSettings) domain.ConnectionTestResult {
	cfg := settings.Anthropic
	if cfg.APIKey == "" {
		return domain.ConnectionTestResult{Success: false, Message: "Anthropic API key is not configured"}
	}
	if cfg.BaseURL == "" {
		return domain.ConnectionTestResult{Success: false, Message: "Anthropic base URL is not configured"}
	}

	payload := anthropicMessagesRequest{
		Model:     cfg.Model,
		MaxTokens: 1,
		Messages:  []anthropicMessage{{Role: "user", Content: "ping"}},
	}
	_, err := v.adapter.doJSON(ctx, domain.ProviderAnthropic, http.MethodPost,
		strings.TrimSuffix(cfg.BaseURL, "/")+"/v1/messages", v.headers(cfg), payload)
	if err != nil {
		return domain.ConnectionTestResult{
			Success: false,
			Message: fmt.Sprintf("Anthropic connection failed: %v", err),
		}
	}
	return domain.ConnectionTestResult{
		Success: true,
		Message: fmt.Sprintf("Connected to Anthropic (model %s)", cfg.Model),
	}
}
