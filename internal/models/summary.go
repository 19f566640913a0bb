package models

import (
	"time"

	"Whispen/internal/service"
)

// SummaryRequest is the body of the generate endpoint.
type SummaryRequest struct {
	TranscriptionText string `json:"transcription_text" form:"transcription_text" binding:"required"`
	SummaryType       string `json:"summary_type" form:"summary_type"`
	Language          string `json:"language" form:"language"`
}

// QuickSummaryRequest is read from the query string or a form body.
type QuickSummaryRequest struct {
	TranscriptionText string `form:"transcription_text" binding:"required"`
	Language          string `form:"language"`
}

// SummaryResponse is returned by the summary endpoints.
type SummaryResponse struct {
	ID                    string    `json:"id"`
	Summary               string    `json:"summary"`
	KeyPoints             []string  `json:"key_points"`
	Decisions             []string  `json:"decisions"`
	ActionItems           []string  `json:"action_items"`
	Participants          []string  `json:"participants"`
	ProcessingTimeSeconds float64   `json:"processing_time_seconds"`
	CreatedAt             time.Time `json:"created_at"`
}

func NewSummaryResponse(o *service.SummaryOutcome) SummaryResponse {
	return SummaryResponse{
		ID:                    o.ID,
		Summary:               o.Result.Summary,
		KeyPoints:             nonNil(o.Result.KeyPoints),
		Decisions:             nonNil(o.Result.Decisions),
		ActionItems:           nonNil(o.Result.ActionItems),
		Participants:          nonNil(o.Result.Participants),
		ProcessingTimeSeconds: o.Result.ProcessingTime,
		CreatedAt:             o.CreatedAt,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
