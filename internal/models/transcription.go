package models

import (
	"time"

	"Whispen/internal/service"
)

// TranscriptionResponse is returned by the upload endpoint.
type TranscriptionResponse struct {
	ID                    string    `json:"id"`
	Filename              string    `json:"filename"`
	Text                  string    `json:"text"`
	Language              string    `json:"language"`
	DurationSeconds       *float64  `json:"duration_seconds"`
	WordCount             int       `json:"word_count"`
	ProcessingTimeSeconds float64   `json:"processing_time_seconds"`
	Backend               string    `json:"backend"`
	CreatedAt             time.Time `json:"created_at"`
}

func NewTranscriptionResponse(o *service.TranscriptionOutcome) TranscriptionResponse {
	return TranscriptionResponse{
		ID:                    o.ID,
		Filename:              o.Filename,
		Text:                  o.Result.Text,
		Language:              o.Result.Language,
		DurationSeconds:       o.Result.Duration,
		WordCount:             o.Result.WordCount,
		ProcessingTimeSeconds: o.Result.ProcessingTime,
		Backend:               o.Result.Backend,
		CreatedAt:             o.CreatedAt,
	}
}
