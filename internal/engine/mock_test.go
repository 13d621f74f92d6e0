package engine

import (
	"context"
	"errors"
	"testing"
)

func TestMockSynthesizeProducesPCM(t *testing.T) {
	m := NewMock()
	pcm, format, err := m.Synthesize(context.Background(), Request{Text: "Hello world", Voice: "Bella", Speed: 1.0})
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if len(pcm) == 0 {
		t.Fatalf("Synthesize() returned empty PCM")
	}
	if len(pcm)%2 != 0 {
		t.Fatalf("PCM length %d is not 16-bit aligned", len(pcm))
	}
	if format.SampleRate != 24000 {
		t.Fatalf("SampleRate = %d, want 24000", format.SampleRate)
	}
}

func TestMockSpeedShortensAudio(t *testing.T) {
	m := NewMock()
	text := "one two three four five six seven eight"

	slow, _, err := m.Synthesize(context.Background(), Request{Text: text, Voice: "Leo", Speed: 0.5})
	if err != nil {
		t.Fatalf("slow Synthesize() error = %v", err)
	}
	fast, _, err := m.Synthesize(context.Background(), Request{Text: text, Voice: "Leo", Speed: 2.0})
	if err != nil {
		t.Fatalf("fast Synthesize() error = %v", err)
	}
	if len(fast) >= len(slow) {
		t.Fatalf("fast audio (%d bytes) not shorter than slow audio (%d bytes)", len(fast), len(slow))
	}
}

func TestMockFailMode(t *testing.T) {
	boom := errors.New("engine exploded")
	m := &Mock{Fail: boom}
	if _, _, err := m.Synthesize(context.Background(), Request{Text: "hi", Voice: "Kiki", Speed: 1.0}); !errors.Is(err, boom) {
		t.Fatalf("Synthesize() error = %v, want %v", err, boom)
	}
}

func TestMockHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := NewMock()
	if _, _, err := m.Synthesize(ctx, Request{Text: "hi", Voice: "Kiki", Speed: 1.0}); err == nil {
		t.Fatalf("Synthesize() with canceled context succeeded, want error")
	}
}
