package transcribe

import (
	"context"
	"strings"
	"time"

	"Whispen/pkg/errors"
	"Whispen/pkg/metrics"

	"go.uber.org/zap"
)

// Transcriber runs the selected engine and completes its output.
type Transcriber struct {
	engine  Engine
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewTranscriber(engine Engine, m *metrics.Metrics, logger *zap.Logger) *Transcriber {
	if engine == nil {
		engine = unavailable{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Transcriber{engine: engine, metrics: m, logger: logger.Named("transcribe")}
}

// Backend names the engine in use.
func (t *Transcriber) Backend() string { return t.engine.Name() }

// Available reports whether an engine is configured.
func (t *Transcriber) Available() bool { return Available(t.engine) }

// Transcribe runs the engine on path. Engine failures are reported as
// TranscriptionFailed, except a missing engine which keeps its own kind.
func (t *Transcriber) Transcribe(ctx context.Context, path, language string) (*Result, error) {
	if language == "" {
		language = DefaultLanguage
	}
	backend := t.engine.Name()

	start := time.Now()
	out, err := t.engine.Transcribe(ctx, path, language)
	elapsed := time.Since(start)
	t.metrics.RecordTranscription(backend, err == nil, elapsed)

	if err != nil {
		t.logger.Error("transcription failed",
			zap.String("backend", backend),
			zap.String("path", path),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
		if errors.IsKind(err, errors.KindNoBackendAvailable) {
			return nil, err
		}
		return nil, errors.WrapKind(err, errors.KindTranscriptionFailed, "transcription failed").
			WithContext("backend", backend)
	}

	res := &Result{
		Text:           out.Text,
		Language:       out.Language,
		Duration:       out.Duration,
		WordCount:      CountWords(out.Text),
		ProcessingTime: elapsed.Seconds(),
		Backend:        backend,
	}
	if res.Language == "" {
		res.Language = language
	}

	t.logger.Info("transcription done",
		zap.String("backend", backend),
		zap.String("language", res.Language),
		zap.Int("words", res.WordCount),
		zap.Duration("elapsed", elapsed))
	return res, nil
}

// CountWords counts whitespace separated tokens.
func CountWords(text string) int {
	return len(strings.Fields(text))
}
