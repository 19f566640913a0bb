package llm

import "github.com/sashabaranov/go-openai"

// Default endpoints of the OpenAI compatible local servers.
const (
	DefaultOllamaURL   = "http://localhost:11434/v1"
	DefaultLMStudioURL = "http://localhost:1234/v1"
)

// newLocalClient targets an Ollama or LM Studio server through their OpenAI
// compatible API. Both ignore the key but the header must be present.
func newLocalClient(cfg Config) *openai.Client {
	url := cfg.Endpoint
	if url == "" {
		url = DefaultOllamaURL
		if cfg.Provider == ProviderLMStudio {
			url = DefaultLMStudioURL
		}
	}

	key := cfg.APIKey
	if key == "" {
		key = cfg.Provider
	}

	conf := openai.DefaultConfig(key)
	conf.BaseURL = url
	return openai.NewClientWithConfig(conf)
}
