package transcribe

import (
	"context"

	"Whispen/pkg/errors"
)

// Select picks the engine used for the life of the process: local when
// configured, else remote, else one that always fails. A failing engine is
// never swapped for the other at call time.
func Select(local, remote Engine) Engine {
	switch {
	case local != nil:
		return local
	case remote != nil:
		return remote
	default:
		return unavailable{}
	}
}

// Available reports whether e can transcribe at all.
func Available(e Engine) bool {
	_, none := e.(unavailable)
	return e != nil && !none
}

type unavailable struct{}

func (unavailable) Name() string { return "none" }

func (unavailable) Transcribe(context.Context, string, string) (Output, error) {
	return Output{}, errors.WithKind(errors.KindNoBackendAvailable, "no transcription backend available")
}
