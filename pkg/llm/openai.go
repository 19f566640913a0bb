package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// NewClient builds a go-openai client for the configured provider. Azure
// deployments are addressed by name, so the model mapper is the identity.
func NewClient(cfg Config) (*openai.Client, error) {
	switch strings.ToLower(cfg.Provider) {
	case ProviderAzure, "":
		if cfg.Endpoint == "" {
			return nil, fmt.Errorf("azure endpoint is required")
		}
		conf := openai.DefaultAzureConfig(cfg.APIKey, cfg.Endpoint)
		if cfg.APIVersion != "" {
			conf.APIVersion = cfg.APIVersion
		}
		conf.AzureModelMapperFunc = func(model string) string { return model }
		return openai.NewClientWithConfig(conf), nil
	case ProviderOpenAI:
		conf := openai.DefaultConfig(cfg.APIKey)
		if cfg.Endpoint != "" {
			conf.BaseURL = cfg.Endpoint
		}
		return openai.NewClientWithConfig(conf), nil
	case ProviderOllama, ProviderLMStudio:
		return newLocalClient(cfg), nil
	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", cfg.Provider)
	}
}

// OpenAIHandler implements LLM on top of a chat completion client.
type OpenAIHandler struct {
	client      ChatClient
	model       string
	temperature float32
	maxTokens   int
	logger      *zap.Logger
}

// NewOpenAIHandler creates a handler for model. A nil logger disables logging.
func NewOpenAIHandler(client ChatClient, cfg Config, logger *zap.Logger) *OpenAIHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OpenAIHandler{
		client:      client,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		logger:      logger,
	}
}

// Model returns the model or deployment name.
func (h *OpenAIHandler) Model() string {
	return h.model
}

// Query queries the LLM with text and gets a response
func (h *OpenAIHandler) Query(ctx context.Context, systemPrompt, text string) (string, error) {
	return h.complete(ctx, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: text},
	}, h.temperature, h.maxTokens)
}

// Ping sends "test" with a five token budget.
func (h *OpenAIHandler) Ping(ctx context.Context) error {
	_, err := h.complete(ctx, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleUser, Content: "test"},
	}, 0, 5)
	return err
}

func (h *OpenAIHandler) complete(ctx context.Context, messages []openai.ChatCompletionMessage, temperature float32, maxTokens int) (string, error) {
	resp, err := h.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       h.model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}

	h.logger.Debug("chat completion",
		zap.String("model", h.model),
		zap.Int("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int("completion_tokens", resp.Usage.CompletionTokens))

	return resp.Choices[0].Message.Content, nil
}
