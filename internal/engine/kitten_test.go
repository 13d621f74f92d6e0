package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/ent0n29/kittenweb/internal/audio"
)

// pickyModel simulates the phonemizer's failure modes: it records every call
// and rejects text according to the configured predicates.
type pickyModel struct {
	calls        []string
	rejectRaw    bool
	rejectAll    bool
	maxChunkLen  int
	perCallBytes int
}

func (p *pickyModel) synth(_ context.Context, text, _ string, _ float64) ([]byte, audio.Format, error) {
	p.calls = append(p.calls, text)
	if p.rejectAll {
		return nil, audio.Format{}, errors.New("phonemizer rejected input")
	}
	if p.rejectRaw && len(p.calls) == 1 {
		return nil, audio.Format{}, errors.New("phonemizer rejected input")
	}
	if p.maxChunkLen > 0 && len(text) > p.maxChunkLen {
		return nil, audio.Format{}, fmt.Errorf("text too long for model: %d chars", len(text))
	}
	n := p.perCallBytes
	if n == 0 {
		n = 100
	}
	return make([]byte, n), audio.DefaultFormat, nil
}

func TestFallbackFirstCallSucceeds(t *testing.T) {
	model := &pickyModel{}
	req := Request{Text: "Hello world.", Voice: "Bella", Speed: 1.0}

	pcm, _, err := synthesizeWithFallback(context.Background(), model.synth, req)
	if err != nil {
		t.Fatalf("synthesizeWithFallback() error = %v", err)
	}
	if len(pcm) == 0 {
		t.Fatalf("no PCM returned")
	}
	if len(model.calls) != 1 {
		t.Fatalf("calls = %d, want 1 when the raw text succeeds", len(model.calls))
	}
}

func TestFallbackRetriesWithSanitizedText(t *testing.T) {
	model := &pickyModel{rejectRaw: true}
	req := Request{Text: "Café 🐱 naïve", Voice: "Bella", Speed: 1.0}

	pcm, _, err := synthesizeWithFallback(context.Background(), model.synth, req)
	if err != nil {
		t.Fatalf("synthesizeWithFallback() error = %v", err)
	}
	if len(pcm) == 0 {
		t.Fatalf("no PCM returned")
	}
	if len(model.calls) != 2 {
		t.Fatalf("calls = %d, want 2 (raw then sanitized): %q", len(model.calls), model.calls)
	}
	if model.calls[1] != "Cafe naive" {
		t.Fatalf("second call text = %q, want sanitized %q", model.calls[1], "Cafe naive")
	}
}

func TestFallbackChunksAndConcatenates(t *testing.T) {
	// The model accepts nothing longer than the safe chunk length, so the
	// ladder must end up in the chunk loop even for already-ASCII text.
	sentence := strings.TrimSpace(strings.Repeat("all work and no play. ", 20))
	model := &pickyModel{maxChunkLen: safeChunkLen, perCallBytes: 10}
	req := Request{Text: sentence, Voice: "Bella", Speed: 1.0}

	pcm, format, err := synthesizeWithFallback(context.Background(), model.synth, req)
	if err != nil {
		t.Fatalf("synthesizeWithFallback() error = %v", err)
	}
	chunkCalls := len(model.calls) - 1 // first call is the raw rejection
	if chunkCalls < 2 {
		t.Fatalf("chunk calls = %d, want several: %q", chunkCalls, model.calls)
	}
	if len(pcm) != chunkCalls*10 {
		t.Fatalf("len(pcm) = %d, want %d (concatenation of %d chunks)", len(pcm), chunkCalls*10, chunkCalls)
	}
	if format != audio.DefaultFormat {
		t.Fatalf("format = %+v, want %+v", format, audio.DefaultFormat)
	}
}

func TestFallbackSkipsFailedChunks(t *testing.T) {
	text := strings.Repeat("one sentence here. ", 15) + strings.Repeat("waytoolongword", 20)
	model := &pickyModel{maxChunkLen: safeChunkLen, perCallBytes: 10}
	req := Request{Text: strings.TrimSpace(text), Voice: "Bella", Speed: 1.0}

	// The oversized unbreakable word fails its chunk call; the rest of the
	// chunks still come back concatenated.
	pcm, _, err := synthesizeWithFallback(context.Background(), model.synth, req)
	if err != nil {
		t.Fatalf("synthesizeWithFallback() error = %v", err)
	}
	if len(pcm) == 0 || len(pcm)%10 != 0 {
		t.Fatalf("len(pcm) = %d, want non-empty multiple of 10", len(pcm))
	}
}

func TestFallbackAllCallsFailWrapsFirstError(t *testing.T) {
	model := &pickyModel{rejectAll: true}
	req := Request{Text: "Hello there. General Kenobi.", Voice: "Bella", Speed: 1.0}

	_, _, err := synthesizeWithFallback(context.Background(), model.synth, req)
	if err == nil {
		t.Fatalf("synthesizeWithFallback() succeeded, want error")
	}
	if !strings.Contains(err.Error(), "phonemizer rejected input") {
		t.Fatalf("error %q does not wrap the first model error", err)
	}
	if len(model.calls) < 2 {
		t.Fatalf("calls = %d, want the ladder to keep trying: %q", len(model.calls), model.calls)
	}
}

func TestFallbackUnsupportedCharactersOnly(t *testing.T) {
	model := &pickyModel{rejectRaw: true}
	req := Request{Text: "日本語", Voice: "Bella", Speed: 1.0}

	_, _, err := synthesizeWithFallback(context.Background(), model.synth, req)
	if err == nil {
		t.Fatalf("synthesizeWithFallback() succeeded, want error")
	}
	if !strings.Contains(err.Error(), "unsupported characters") {
		t.Fatalf("error = %q, want unsupported-characters message", err)
	}
	if len(model.calls) != 1 {
		t.Fatalf("calls = %d, want 1 (nothing sanitizable to retry)", len(model.calls))
	}
}
