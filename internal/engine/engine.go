// Package engine wraps the text-to-speech backends behind a single
// synthesis interface. The real backend is a kitten-tts python worker;
// a deterministic mock stands in when no python runtime is available.
package engine

import (
	"context"

	"github.com/ent0n29/kittenweb/internal/audio"
)

// Request is one synthesis call. Text is assumed already validated and
// whitespace-normalized by the caller.
type Request struct {
	Text  string
	Voice string
	Speed float64
}

// Engine converts text into raw PCM16LE audio.
type Engine interface {
	Name() string
	Synthesize(ctx context.Context, req Request) ([]byte, audio.Format, error)
	Close() error
}
