package domain

import "context"

// ProviderName selects one of the interchangeable LLM backends.
type ProviderName string

const (
	ProviderOllama    ProviderName = "ollama"
	ProviderOpenAI    ProviderName = "openai"
	ProviderAnthropic ProviderName = "anthropic"
)

// OllamaSettings configures the local inference server backend.
type OllamaSettings struct {
	BaseURL string
	Model   string
}

// OpenAISettings configures the chat-completions style cloud backend.
type OpenAISettings struct {
	APIKey  string
	Model   string
	BaseURL string
}

// AnthropicSettings configures the messages style cloud backend.
type AnthropicSettings struct {
	APIKey  string
	Model   string
	BaseURL string
	Version string
}

// ProviderSettings is the read-only provider configuration the core
// receives from the configuration collaborator.
type ProviderSettings struct {
	Provider     ProviderName
	Ollama       OllamaSettings
	OpenAI       OpenAISettings
	Anthropic    AnthropicSettings
	MaxQuestions int
	Difficulty   string
}

// ConnectionTestResult is the structured, non-throwing outcome of a
// connection probe. Expected failure modes (missing credential, unreachable
// server) land here as Success=false, never as an error.
type ConnectionTestResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// TextGenerator normalizes the provider backends into one capability:
// send a system prompt plus a user prompt, get raw text back. Adding a
// provider means adding one variant behind this interface; the orchestrator
// is never touched.
type TextGenerator interface {
	Generate(ctx context.Context, settings ProviderSettings, systemPrompt, userPrompt string) (string, error)
	TestConnection(ctx context.Context, settings ProviderSettings) ConnectionTestResult
}

// SettingsSource exposes the provider settings owned by the configuration
// collaborator. Read-only to the core.
type SettingsSource interface {
	ProviderSettings() ProviderSettings
}
