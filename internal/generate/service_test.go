package generate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/ent0n29/kittenweb/internal/audio"
	"github.com/ent0n29/kittenweb/internal/engine"
	"github.com/ent0n29/kittenweb/internal/observability"
)

var metricsSeq atomic.Int64

func newTestMetrics() *observability.Metrics {
	return observability.NewMetrics(fmt.Sprintf("test_generate_%d", metricsSeq.Add(1)))
}

type fakeEngine struct {
	calls int
	err   error
}

func (f *fakeEngine) Name() string { return "fake" }

func (f *fakeEngine) Synthesize(_ context.Context, req engine.Request) ([]byte, audio.Format, error) {
	f.calls++
	if f.err != nil {
		return nil, audio.Format{}, f.err
	}
	return make([]byte, 4800), audio.DefaultFormat, nil
}

func (f *fakeEngine) Close() error { return nil }

func newTestService(eng engine.Engine, scratchDir string) *Service {
	return NewService(eng, testRules(), newTestMetrics(), scratchDir)
}

func TestGenerateDownloadMode(t *testing.T) {
	eng := &fakeEngine{}
	svc := newTestService(eng, "")

	result, err := svc.Generate(context.Background(), Request{Text: "Hello world", Voice: "Bella", Speed: 1.0}, ModeDownload)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if eng.calls != 1 {
		t.Fatalf("engine calls = %d, want exactly 1", eng.calls)
	}
	if len(result.WAV) == 0 {
		t.Fatalf("download result has empty WAV payload")
	}
	if result.Filename != "kitten_tts_Bella.wav" {
		t.Fatalf("Filename = %q, want kitten_tts_Bella.wav", result.Filename)
	}
	if result.DataURI != "" {
		t.Fatalf("download result unexpectedly carries a data URI")
	}
	if _, err := audio.Probe(result.WAV); err != nil {
		t.Fatalf("WAV payload does not parse: %v", err)
	}
	if result.ID == "" {
		t.Fatalf("result has no generation ID")
	}
}

func TestGenerateStreamMode(t *testing.T) {
	svc := newTestService(&fakeEngine{}, "")

	result, err := svc.Generate(context.Background(), Request{Text: " Hello   world ", Voice: "Luna", Speed: 1.0}, ModeStream)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if !strings.HasPrefix(result.DataURI, "data:audio/wav;base64,") {
		t.Fatalf("DataURI = %q, want data:audio/wav;base64,... prefix", result.DataURI)
	}
	if len(result.DataURI) <= len("data:audio/wav;base64,") {
		t.Fatalf("DataURI carries no payload")
	}
	if result.Voice != "Luna" {
		t.Fatalf("Voice = %q, want Luna", result.Voice)
	}
	if result.Text != "Hello world" {
		t.Fatalf("Text = %q, want normalized echo %q", result.Text, "Hello world")
	}
	if result.WAV != nil {
		t.Fatalf("stream result unexpectedly carries raw WAV bytes")
	}
}

func TestGenerateValidationFailureSkipsEngine(t *testing.T) {
	eng := &fakeEngine{}
	svc := newTestService(eng, "")

	_, err := svc.Generate(context.Background(), Request{Text: "", Voice: "Bella", Speed: 1.0}, ModeDownload)
	assertValidationCode(t, err, CodeEmptyText)
	if eng.calls != 0 {
		t.Fatalf("engine calls = %d, want 0 for invalid request", eng.calls)
	}
}

func TestGenerateEngineFailure(t *testing.T) {
	boom := errors.New("phonemizer exploded")
	eng := &fakeEngine{err: boom}
	svc := newTestService(eng, "")

	_, err := svc.Generate(context.Background(), Request{Text: "hi", Voice: "Bella", Speed: 1.0}, ModeStream)
	if err == nil {
		t.Fatalf("Generate() succeeded, want engine failure")
	}
	if !errors.Is(err, boom) {
		t.Fatalf("error = %v, want wrapped %v", err, boom)
	}
	var verr *ValidationError
	if errors.As(err, &verr) {
		t.Fatalf("engine failure classified as validation error")
	}
	if eng.calls != 1 {
		t.Fatalf("engine calls = %d, want exactly 1 (no retry)", eng.calls)
	}
}

func TestGenerateVerboseGatesRequestLogs(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	svc := newTestService(&fakeEngine{}, "")
	req := Request{Text: "hi", Voice: "Bella", Speed: 1.0}

	if _, err := svc.Generate(context.Background(), req, ModeStream); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if strings.Contains(buf.String(), "generating audio") {
		t.Fatalf("quiet service logged request chatter: %q", buf.String())
	}

	svc.Verbose = true
	if _, err := svc.Generate(context.Background(), req, ModeStream); err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if !strings.Contains(buf.String(), "generating audio") {
		t.Fatalf("verbose service logged nothing: %q", buf.String())
	}
}

func TestGenerateEngineFailureAlwaysLogged(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	t.Cleanup(func() { log.SetOutput(os.Stderr) })

	svc := newTestService(&fakeEngine{err: errors.New("worker died")}, "")
	if _, err := svc.Generate(context.Background(), Request{Text: "hi", Voice: "Bella", Speed: 1.0}, ModeStream); err == nil {
		t.Fatalf("Generate() succeeded, want engine failure")
	}
	if !strings.Contains(buf.String(), "synthesis failed") {
		t.Fatalf("engine failure not logged by quiet service: %q", buf.String())
	}
}

func TestGenerateScratchDirWriteThenForget(t *testing.T) {
	dir := t.TempDir()
	svc := newTestService(&fakeEngine{}, dir)

	result, err := svc.Generate(context.Background(), Request{Text: "hi", Voice: "Bella", Speed: 1.0}, ModeDownload)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	path := filepath.Join(dir, result.ID+".wav")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("scratch file missing before cleanup: %v", err)
	}
	result.Cleanup()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("scratch file still present after cleanup")
	}
	result.Cleanup() // second cleanup is a no-op
}
