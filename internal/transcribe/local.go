package transcribe

import (
	"context"
	"strings"
)

// Segment is one piece of decoded speech.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Info is what the local model reports about the whole file.
type Info struct {
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
}

// LocalModel runs speech recognition in-process or on the same host.
type LocalModel interface {
	Transcribe(ctx context.Context, path, language string, beamSize int, vadFilter bool) ([]Segment, Info, error)
}

const (
	localBeamSize  = 5
	localVADFilter = true
)

// LocalEngine runs a LocalModel with beam search and voice activity
// detection enabled.
type LocalEngine struct {
	model LocalModel
}

func NewLocalEngine(model LocalModel) *LocalEngine {
	return &LocalEngine{model: model}
}

func (e *LocalEngine) Name() string { return "local" }

func (e *LocalEngine) Transcribe(ctx context.Context, path, language string) (Output, error) {
	segments, info, err := e.model.Transcribe(ctx, path, language, localBeamSize, localVADFilter)
	if err != nil {
		return Output{}, err
	}

	parts := make([]string, 0, len(segments))
	for _, s := range segments {
		if t := strings.TrimSpace(s.Text); t != "" {
			parts = append(parts, t)
		}
	}

	out := Output{
		Text:     strings.Join(parts, " "),
		Language: language,
	}
	if info.Language != "" {
		out.Language = info.Language
	}
	if info.Duration > 0 {
		d := info.Duration
		out.Duration = &d
	}
	return out, nil
}
