// Package provider normalizes the LLM backends (local Ollama server,
// OpenAI-style chat completions, Anthropic-style messages) into the single
// domain.TextGenerator contract. Each variant speaks its backend's wire
// format directly; there is no retry, a non-2xx response surfaces as
// *domain.ProviderHTTPError with the status and body verbatim.
package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"pagequiz/internal/domain"

	"go.uber.org/zap"
)

// maxErrorBodyBytes caps how much of an error body is carried into the
// error message.
const maxErrorBodyBytes = 4 * 1024

type variant interface {
	generate(ctx context.Context, settings domain.ProviderSettings, systemPrompt, userPrompt string) (string, error)
	testConnection(ctx context.Context, settings domain.ProviderSettings) domain.ConnectionTestResult
}

// Adapter dispatches to the variant selected by settings.Provider. Adding a
// backend means adding one variant here; callers never change.
type Adapter struct {
	client *http.Client
	logger *zap.Logger
}

func NewAdapter(timeout time.Duration, logger *zap.Logger) *Adapter {
	if timeout <= 0 {
		timeout = 90 * time.Second
	}
	return &Adapter{
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

var _ domain.TextGenerator = (*Adapter)(nil)

func (a *Adapter) variantFor(settings domain.ProviderSettings) (variant, error) {
	switch settings.Provider {
	case domain.ProviderOllama:
		return &ollamaVariant{adapter: a}, nil
	case domain.ProviderOpenAI:
		return &openAIVariant{adapter: a}, nil
	case domain.ProviderAnthropic:
		return &anthropicVariant{adapter: a}, nil
	default:
		return nil, &domain.UnknownProviderError{Provider: string(settings.Provider)}
	}
}

// Generate sends the prompts to the configured backend and returns its raw
// text output.
func (a *Adapter) Generate(ctx context.Context, settings domain.ProviderSettings, systemPrompt, userPrompt string) (string, error) {
	v, err := a.variantFor(settings)
	if err != nil {
		return "", err
	}

	start := time.Now()
	text, err := v.generate(ctx, settings, systemPrompt, userPrompt)
	if err != nil {
		a.logger.Error("LLM generation failed",
			zap.String("provider", string(settings.Provider)),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return "", err
	}
	a.logger.Info("LLM generation completed",
		zap.String("provider", string(settings.Provider)),
		zap.Duration("duration", time.Since(start)),
		zap.Int("response_length", len(text)))
	return text, nil
}

// TestConnection performs a minimal probe against the configured backend.
// Expected failure modes come back as Success=false with a human-readable
// message, never as an error.
func (a *Adapter) TestConnection(ctx context.Context, settings domain.ProviderSettings) domain.ConnectionTestResult {
	v, err := a.variantFor(settings)
	if err != nil {
		return domain.ConnectionTestResult{Success: false, Message: err.Error()}
	}
	return v.testConnection(ctx, settings)
}

// doJSON issues one HTTP request with a JSON body (nil for none) and
// returns the response body. Non-2xx statuses become ProviderHTTPError.
func (a *Adapter) doJSON(ctx context.Context, name domain.ProviderName, method, url string, headers map[string]string, payload interface{}) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, domain.NewInternalError("failed to encode request payload", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, domain.NewInternalError("failed to build provider request", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NewInternalError("failed to read provider response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail := data
		if len(detail) > maxErrorBodyBytes {
			detail = detail[:maxErrorBodyBytes]
		}
		return nil, &domain.ProviderHTTPError{
			Provider: name,
			Status:   resp.StatusCode,
			Body:     string(detail),
		}
	}
	return data, nil
}
