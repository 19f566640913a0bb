// Package summary builds meeting summaries with a chat completion model and
// extracts their sections.
package summary

import (
	"context"
	"time"

	"Whispen/pkg/errors"
	"Whispen/pkg/llm"
	"Whispen/pkg/metrics"

	"go.uber.org/zap"
)

// Result is a parsed summary.
type Result struct {
	Summary        string   `json:"summary"`
	KeyPoints      []string `json:"key_points"`
	Decisions      []string `json:"decisions"`
	ActionItems    []string `json:"action_items"`
	Participants   []string `json:"participants"`
	ProcessingTime float64  `json:"processing_time"`
}

// Generator asks the model for a summary and parses it.
type Generator struct {
	llm     llm.LLM
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewGenerator(model llm.LLM, m *metrics.Metrics, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{llm: model, metrics: m, logger: logger.Named("summary")}
}

// Generate summarizes text in the given style and language. Empty values
// take the defaults.
func (g *Generator) Generate(ctx context.Context, text, style, language string) (*Result, error) {
	if style == "" {
		style = DefaultStyle
	}
	if language == "" {
		language = DefaultLanguage
	}

	start := time.Now()
	out, err := g.llm.Query(ctx, Prompt(style, language), text)
	elapsed := time.Since(start)
	g.metrics.RecordSummary(style, err == nil, elapsed)

	if err != nil {
		g.logger.Error("summary failed",
			zap.String("style", style),
			zap.String("language", language),
			zap.Duration("elapsed", elapsed),
			zap.Error(err))
		return nil, errors.WrapKind(err, errors.KindSummarizationFailed, "summary generation failed").
			WithContext("style", style)
	}

	res := Parse(out)
	res.ProcessingTime = elapsed.Seconds()

	g.logger.Info("summary done",
		zap.String("style", style),
		zap.String("language", language),
		zap.Int("key_points", len(res.KeyPoints)),
		zap.Int("decisions", len(res.Decisions)),
		zap.Int("action_items", len(res.ActionItems)),
		zap.Duration("elapsed", elapsed))
	return &res, nil
}

// Ping checks that the model answers.
func (g *Generator) Ping(ctx context.Context) error {
	if err := g.llm.Ping(ctx); err != nil {
		return errors.WrapKind(err, errors.KindConnectivityCheckFailed, "llm unreachable")
	}
	return nil
}
