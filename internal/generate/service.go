package generate

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/ent0n29/kittenweb/internal/audio"
	"github.com/ent0n29/kittenweb/internal/engine"
	"github.com/ent0n29/kittenweb/internal/observability"
)

// Mode selects how a generated artifact is delivered.
type Mode string

const (
	// ModeDownload returns the complete WAV payload as a file attachment.
	ModeDownload Mode = "download"
	// ModeStream returns a base64 data URI for in-browser playback. The
	// name is historical: synthesis completes before the response is sent.
	ModeStream Mode = "stream"
)

// Result is a successful generation. Exactly one of WAV or DataURI is
// meaningful, depending on the requested mode.
type Result struct {
	ID       string
	Voice    string
	Text     string
	Duration time.Duration

	WAV      []byte
	Filename string

	DataURI string

	scratchPath string
}

// Cleanup removes the scratch-dir copy of the artifact, if one was written.
// Callers defer it after the response is sent; nothing outlives the request.
func (r *Result) Cleanup() {
	if r == nil || r.scratchPath == "" {
		return
	}
	if err := os.Remove(r.scratchPath); err != nil && !os.IsNotExist(err) {
		log.Printf("scratch cleanup failed: %v", err)
	}
	r.scratchPath = ""
}

// Service orchestrates validation, synthesis, and response packaging. It is
// stateless between calls and safe for concurrent use; the only shared data
// is the read-only rule set and the engine, which guards itself.
type Service struct {
	engine     engine.Engine
	rules      Rules
	metrics    *observability.Metrics
	scratchDir string

	// Verbose enables per-request log lines. Failures are always logged.
	Verbose bool
}

func NewService(eng engine.Engine, rules Rules, metrics *observability.Metrics, scratchDir string) *Service {
	return &Service{engine: eng, rules: rules, metrics: metrics, scratchDir: scratchDir}
}

func (s *Service) Rules() Rules { return s.rules }

// Generate validates req, synthesizes it with a single engine call, and
// packages the artifact for the requested mode. Validation failures come
// back as *ValidationError; anything else is a synthesis failure. A failed
// synthesis is never retried here.
func (s *Service) Generate(ctx context.Context, req Request, mode Mode) (*Result, error) {
	validated, err := s.rules.Validate(req)
	if err != nil {
		s.metrics.Generations.WithLabelValues(string(mode), "invalid").Inc()
		return nil, err
	}

	id := uuid.NewString()
	s.logf("generating audio: id=%s mode=%s voice=%s speed=%.2f chars=%d",
		id, mode, validated.Voice, validated.Speed, len(validated.Text))

	s.metrics.ActiveGenerations.Inc()
	start := time.Now()
	pcm, format, err := s.engine.Synthesize(ctx, engine.Request{
		Text:  validated.Text,
		Voice: validated.Voice,
		Speed: validated.Speed,
	})
	s.metrics.ActiveGenerations.Dec()
	s.metrics.ObserveSynthesisLatency(time.Since(start))
	if err != nil {
		s.metrics.Generations.WithLabelValues(string(mode), "error").Inc()
		s.metrics.EngineErrors.WithLabelValues(s.engine.Name()).Inc()
		log.Printf("synthesis failed: id=%s err=%v", id, err)
		return nil, fmt.Errorf("synthesis failed: %w", err)
	}

	wav := audio.EncodeWAV(pcm, format)
	result := &Result{
		ID:       id,
		Voice:    validated.Voice,
		Text:     validated.Text,
		Duration: format.Duration(pcm),
	}

	switch mode {
	case ModeStream:
		result.DataURI = "data:audio/wav;base64," + base64.StdEncoding.EncodeToString(wav)
	default:
		result.WAV = wav
		result.Filename = fmt.Sprintf("kitten_tts_%s.wav", validated.Voice)
		if s.scratchDir != "" {
			path := filepath.Join(s.scratchDir, id+".wav")
			if err := os.WriteFile(path, wav, 0o644); err != nil {
				log.Printf("scratch write failed: id=%s err=%v", id, err)
			} else {
				result.scratchPath = path
			}
		}
	}

	s.metrics.Generations.WithLabelValues(string(mode), "ok").Inc()
	s.logf("generated audio: id=%s bytes=%d duration=%s", id, len(wav), result.Duration)
	return result, nil
}

func (s *Service) logf(format string, args ...any) {
	if s.Verbose {
		log.Printf(format, args...)
	}
}
