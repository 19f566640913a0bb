package transcribe

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

// AudioClient is the subset of *openai.Client used for transcription.
type AudioClient interface {
	CreateTranscription(ctx context.Context, request openai.AudioRequest) (openai.AudioResponse, error)
}

// RemoteEngine sends the file to an OpenAI compatible transcription API.
type RemoteEngine struct {
	client AudioClient
	model  string
}

func NewRemoteEngine(client AudioClient, model string) *RemoteEngine {
	if model == "" {
		model = openai.Whisper1
	}
	return &RemoteEngine{client: client, model: model}
}

func (e *RemoteEngine) Name() string { return "openai" }

func (e *RemoteEngine) Transcribe(ctx context.Context, path, language string) (Output, error) {
	resp, err := e.client.CreateTranscription(ctx, openai.AudioRequest{
		Model:    e.model,
		FilePath: path,
		Language: language,
		Format:   openai.AudioResponseFormatVerboseJSON,
	})
	if err != nil {
		return Output{}, fmt.Errorf("openai transcription: %w", err)
	}

	out := Output{
		Text:     resp.Text,
		Language: resp.Language,
	}
	if out.Language == "" {
		out.Language = language
	}
	if resp.Duration > 0 {
		d := resp.Duration
		out.Duration = &d
	}
	return out, nil
}

// NewOpenAIClient builds the client used by RemoteEngine. An empty baseURL
// targets api.openai.com.
func NewOpenAIClient(apiKey, baseURL string) *openai.Client {
	conf := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		conf.BaseURL = baseURL
	}
	return openai.NewClientWithConfig(conf)
}
