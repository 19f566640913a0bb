package llm

import (
	"context"

	"github.com/sashabaranov/go-openai"
)

// ChatClient is the subset of *openai.Client used here.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// LLM represents a generic interface for interacting with LLMs
type LLM interface {
	// Query sends one system prompt and one user message and returns the
	// content of the first choice.
	Query(ctx context.Context, systemPrompt, text string) (string, error)

	// Ping issues a minimal completion to check the provider is reachable.
	Ping(ctx context.Context) error
}

// Provider names accepted by NewClient.
const (
	ProviderAzure    = "azure"
	ProviderOpenAI   = "openai"
	ProviderOllama   = "ollama"
	ProviderLMStudio = "lmstudio"
)

// Config describes a chat completion provider.
type Config struct {
	Provider    string
	Endpoint    string
	APIKey      string
	APIVersion  string
	Model       string
	Temperature float32
	MaxTokens   int
}
