// Package transcribe turns audio files into text through one of two
// interchangeable engines: a local faster-whisper model or the OpenAI
// transcription API. The engine is chosen once at startup.
package transcribe

import (
	"context"
)

// DefaultLanguage is used when the caller gives no language hint.
const DefaultLanguage = "fr"

// Engine transcribes a single audio file.
type Engine interface {
	// Name identifies the engine in responses, logs and metrics.
	Name() string

	// Transcribe reads the file at path. language is a hint and may be
	// replaced by the language the engine detected.
	Transcribe(ctx context.Context, path, language string) (Output, error)
}

// Output is what an engine produces.
type Output struct {
	Text     string
	Language string
	// Duration of the audio in seconds, nil when the engine did not report it.
	Duration *float64
}

// Result is a completed transcription.
type Result struct {
	Text           string   `json:"text"`
	Language       string   `json:"language"`
	Duration       *float64 `json:"duration,omitempty"`
	WordCount      int      `json:"word_count"`
	ProcessingTime float64  `json:"processing_time"`
	Backend        string   `json:"backend"`
}
