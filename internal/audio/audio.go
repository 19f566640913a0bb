// Package audio manages uploaded audio files in the temp folder: validation,
// storage under a random name, deletion and retention sweeps.
package audio

import (
	"time"
)

// Artifact is an uploaded file persisted in the temp folder.
type Artifact struct {
	ID           string    `json:"id"`
	OriginalName string    `json:"original_name"`
	Extension    string    `json:"extension"`
	Size         int64     `json:"size"`
	Path         string    `json:"path"`
	MimeType     string    `json:"mime_type"`
	CreatedAt    time.Time `json:"created_at"`
}

// FileInfo describes a file in the temp folder.
type FileInfo struct {
	Filename   string    `json:"filename"`
	SizeBytes  int64     `json:"size_bytes"`
	SizeMB     float64   `json:"size_mb"`
	ModifiedAt time.Time `json:"modified_at"`
}

// Config configures a Manager.
type Config struct {
	Root              string
	MaxBytes          int64
	AllowedExtensions []string
	Retention         time.Duration
}

// Content types accepted without a warning. Matching is by substring so that
// parameters such as "; charset=binary" do not matter.
var audioMimeTypes = []string{
	"audio/mpeg",
	"audio/wav",
	"audio/x-wav",
	"audio/mp4",
	"audio/x-m4a",
	"audio/flac",
	"audio/ogg",
	"audio/webm",
	"video/webm",
}
