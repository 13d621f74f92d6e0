package engine

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"

	"github.com/ent0n29/kittenweb/internal/audio"
)

// Mock is a fallback engine used when no python runtime is available. It
// produces a quiet tone whose length tracks the text and speed, so the web
// UI and tests exercise the full pipeline without the model.
type Mock struct {
	Format audio.Format
	// Fail, when set, makes every call return this error.
	Fail error
}

func NewMock() *Mock {
	return &Mock{Format: audio.DefaultFormat}
}

func (m *Mock) Name() string { return "mock" }

func (m *Mock) Synthesize(ctx context.Context, req Request) ([]byte, audio.Format, error) {
	if err := ctx.Err(); err != nil {
		return nil, audio.Format{}, err
	}
	if m.Fail != nil {
		return nil, audio.Format{}, m.Fail
	}
	if strings.TrimSpace(req.Text) == "" {
		return nil, audio.Format{}, fmt.Errorf("empty text")
	}

	format := m.Format
	if format.SampleRate <= 0 {
		format = audio.DefaultFormat
	}
	speed := req.Speed
	if speed <= 0 {
		speed = 1.0
	}

	// Roughly 60ms of audio per word, shortened by faster speeds.
	words := len(strings.Fields(req.Text))
	if words == 0 {
		words = 1
	}
	samples := int(float64(words) * 0.06 * float64(format.SampleRate) / speed)
	if samples < format.SampleRate/20 {
		samples = format.SampleRate / 20
	}

	// Pick a pitch per voice so different voices are audibly distinct.
	h := fnv.New32a()
	_, _ = h.Write([]byte(req.Voice))
	freq := 180 + float64(h.Sum32()%220)

	pcm := make([]byte, samples*2)
	for i := 0; i < samples; i++ {
		v := math.Sin(2 * math.Pi * freq * float64(i) / float64(format.SampleRate))
		sample := int16(v * 0.2 * math.MaxInt16)
		pcm[2*i] = byte(sample)
		pcm[2*i+1] = byte(sample >> 8)
	}
	return pcm, format, nil
}

func (m *Mock) Close() error { return nil }
