// Package service ties file storage, transcription and summarization
// together for one request at a time.
package service

import (
	"context"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"Whispen/internal/audio"
	"Whispen/internal/summary"
	"Whispen/internal/transcribe"
	"Whispen/pkg/errors"
	"Whispen/pkg/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultMinChars is the shortest transcript that can be summarized.
const DefaultMinChars = 50

// Upload is an incoming audio file. Size is the declared size, zero when
// the file is streamed and its size is not known up front.
type Upload struct {
	Reader   io.Reader
	Filename string
	Size     int64
	Language string
}

// TranscriptionOutcome is a transcription tied to its upload.
type TranscriptionOutcome struct {
	ID        string
	Filename  string
	Result    *transcribe.Result
	CreatedAt time.Time
}

// SummaryRequest asks for a summary of Text.
type SummaryRequest struct {
	Text     string
	Style    string
	Language string
}

// SummaryOutcome is a generated summary.
type SummaryOutcome struct {
	ID        string
	Result    *summary.Result
	CreatedAt time.Time
}

// Options tune a Service.
type Options struct {
	// MinChars is the minimum transcript length, in characters after trimming.
	MinChars int
}

// Service is stateless apart from the files it stores, which never outlive
// the request that created them.
type Service struct {
	files       *audio.Manager
	transcriber *transcribe.Transcriber
	generator   *summary.Generator
	metrics     *metrics.Metrics
	logger      *zap.Logger
	minChars    int
	now         func() time.Time
}

func New(files *audio.Manager, transcriber *transcribe.Transcriber, generator *summary.Generator,
	m *metrics.Metrics, logger *zap.Logger, opts Options) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.MinChars <= 0 {
		opts.MinChars = DefaultMinChars
	}
	return &Service{
		files:       files,
		transcriber: transcriber,
		generator:   generator,
		metrics:     m,
		logger:      logger.Named("service"),
		minChars:    opts.MinChars,
		now:         time.Now,
	}
}

// TranscribeUpload stores the upload, transcribes it and removes the file
// again whatever the outcome.
func (s *Service) TranscribeUpload(ctx context.Context, up Upload) (*TranscriptionOutcome, error) {
	artifact, err := s.Store(ctx, up)
	if err != nil {
		return nil, err
	}
	return s.TranscribeStored(ctx, artifact, up.Language)
}

// Store validates and saves an upload. The caller owns the artifact and
// must hand it to TranscribeStored or Discard.
func (s *Service) Store(ctx context.Context, up Upload) (*audio.Artifact, error) {
	artifact, err := s.files.Save(ctx, up.Reader, up.Filename, up.Size)
	if err != nil {
		return nil, err
	}
	s.metrics.RecordUpload(artifact.Size)
	return artifact, nil
}

// TranscribeStored transcribes a stored artifact, then discards it.
func (s *Service) TranscribeStored(ctx context.Context, artifact *audio.Artifact, language string) (*TranscriptionOutcome, error) {
	defer s.Discard(artifact)

	res, err := s.transcriber.Transcribe(ctx, artifact.Path, language)
	if err != nil {
		return nil, err
	}

	return &TranscriptionOutcome{
		ID:        artifact.ID,
		Filename:  artifact.OriginalName,
		Result:    res,
		CreatedAt: s.now().UTC(),
	}, nil
}

// Discard deletes a stored artifact. Calling it again is a no-op.
func (s *Service) Discard(artifact *audio.Artifact) {
	if artifact == nil {
		return
	}
	if s.files.Delete(artifact.Path) {
		s.metrics.RecordDeleted("request", 1)
	}
}

// Summarize checks the transcript length before calling the model.
func (s *Service) Summarize(ctx context.Context, req SummaryRequest) (*SummaryOutcome, error) {
	if n := utf8.RuneCountInString(strings.TrimSpace(req.Text)); n < s.minChars {
		return nil, errors.WithKindf(errors.KindTextTooShort,
			"text too short: %d characters, minimum %d", n, s.minChars)
	}
	if req.Style == "" {
		req.Style = summary.DefaultStyle
	}
	if req.Language == "" {
		req.Language = summary.DefaultLanguage
	}

	res, err := s.generator.Generate(ctx, req.Text, req.Style, req.Language)
	if err != nil {
		return nil, err
	}
	return &SummaryOutcome{
		ID:        uuid.New().String(),
		Result:    res,
		CreatedAt: s.now().UTC(),
	}, nil
}

// QuickSummary is Summarize with the short style.
func (s *Service) QuickSummary(ctx context.Context, text, language string) (*SummaryOutcome, error) {
	return s.Summarize(ctx, SummaryRequest{Text: text, Style: summary.StyleShort, Language: language})
}

// CheckConnectivity reports whether the summary model answers. Failures are
// logged, never returned.
func (s *Service) CheckConnectivity(ctx context.Context) bool {
	if err := s.generator.Ping(ctx); err != nil {
		s.logger.Warn("llm connectivity check failed", zap.Error(err))
		return false
	}
	return true
}

// Sweep removes stored files older than maxAgeHours (retention when <= 0).
func (s *Service) Sweep(maxAgeHours int) int {
	n := s.files.Sweep(maxAgeHours)
	s.metrics.RecordDeleted("sweep", n)
	return n
}

// Backend names the transcription engine in use.
func (s *Service) Backend() string { return s.transcriber.Backend() }

// TranscriptionAvailable reports whether an engine is configured.
func (s *Service) TranscriptionAvailable() bool { return s.transcriber.Available() }

// MinChars returns the minimum transcript length.
func (s *Service) MinChars() int { return s.minChars }

// Files exposes the file manager for limits and disk reporting.
func (s *Service) Files() *audio.Manager { return s.files }
