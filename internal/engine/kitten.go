package engine

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ent0n29/kittenweb/internal/audio"
)

// KittenConfig configures the kitten-tts python worker.
type KittenConfig struct {
	// Python is the interpreter path. Empty means probe a local venv, then
	// PATH.
	Python       string
	WorkerScript string
	Model        string
	CacheDir     string
	WarmupVoice  string
}

// Kitten runs the kitten-tts model in a long-lived python worker process and
// speaks a JSON-lines request/response protocol over its stdin/stdout. The
// worker handles one request at a time; the mutex keeps calls single-flight.
type Kitten struct {
	mu     sync.Mutex
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	dec    *json.Decoder
	closed bool
}

type workerRequest struct {
	ID    string  `json:"id"`
	Text  string  `json:"text"`
	Voice string  `json:"voice"`
	Speed float64 `json:"speed"`
}

type workerResponse struct {
	ID          string `json:"id"`
	OK          bool   `json:"ok"`
	SampleRate  int    `json:"sample_rate"`
	AudioBase64 string `json:"audio_base64"`
	Error       string `json:"error"`
}

// StartKitten launches the worker and fires a warmup request so missing
// python dependencies surface as a startup error instead of a failed first
// generation.
func StartKitten(cfg KittenConfig) (*Kitten, error) {
	py := strings.TrimSpace(cfg.Python)
	if py == "" {
		py = probePython()
	}
	if py == "" {
		return nil, fmt.Errorf("no python interpreter found (set KITTEN_PYTHON)")
	}
	script := strings.TrimSpace(cfg.WorkerScript)
	if script == "" {
		script = "scripts/kitten_worker.py"
	}
	if _, err := os.Stat(script); err != nil {
		return nil, fmt.Errorf("kitten worker script not found: %s", script)
	}

	cmd := exec.Command(py, "-u", script)
	env := os.Environ()
	if m := strings.TrimSpace(cfg.Model); m != "" {
		env = append(env, "KITTEN_MODEL="+m)
	}
	if d := strings.TrimSpace(cfg.CacheDir); d != "" {
		env = append(env, "HF_HOME="+d)
	}
	cmd.Env = env
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, err
	}

	k := &Kitten{cmd: cmd, stdin: stdin, dec: json.NewDecoder(stdout)}

	warmupVoice := strings.TrimSpace(cfg.WarmupVoice)
	if warmupVoice == "" {
		warmupVoice = "Jasper"
	}
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()
	if _, _, err := k.call(ctx, "warmup", warmupVoice, 1.0); err != nil {
		_ = stdin.Close()
		_ = cmd.Process.Kill()
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, fmt.Errorf("kitten worker failed to start: %s", msg)
	}
	return k, nil
}

func probePython() string {
	for _, candidate := range []string{".venv/bin/python3", ".venv/bin/python", "python3", "python"} {
		if p, err := exec.LookPath(candidate); err == nil && strings.TrimSpace(p) != "" {
			return p
		}
	}
	return ""
}

func (k *Kitten) Name() string { return "kitten" }

// Synthesize runs one model call. When the model rejects the raw text (the
// phonemizer chokes on some inputs) it retries with an ASCII-sanitized
// rendering, then synthesizes sentence chunks and concatenates their PCM.
func (k *Kitten) Synthesize(ctx context.Context, req Request) ([]byte, audio.Format, error) {
	return synthesizeWithFallback(ctx, k.call, req)
}

// synthFunc is one model invocation.
type synthFunc func(ctx context.Context, text, voice string, speed float64) ([]byte, audio.Format, error)

func synthesizeWithFallback(ctx context.Context, call synthFunc, req Request) ([]byte, audio.Format, error) {
	pcm, format, firstErr := call(ctx, req.Text, req.Voice, req.Speed)
	if firstErr == nil {
		return pcm, format, nil
	}

	sanitized := sanitizeForModel(req.Text)
	if sanitized == "" {
		return nil, audio.Format{}, fmt.Errorf("text contains unsupported characters for this model: %w", firstErr)
	}
	if sanitized != req.Text {
		if pcm, format, err := call(ctx, sanitized, req.Voice, req.Speed); err == nil {
			return pcm, format, nil
		}
	}

	var joined []byte
	format = audio.Format{}
	for _, chunk := range splitSafeChunks(sanitized, safeChunkLen) {
		chunkPCM, chunkFormat, err := call(ctx, chunk, req.Voice, req.Speed)
		if err != nil || len(chunkPCM) == 0 {
			continue
		}
		joined = append(joined, chunkPCM...)
		format = chunkFormat
	}
	if len(joined) > 0 {
		return joined, format, nil
	}
	return nil, audio.Format{}, fmt.Errorf("model could not synthesize this text, try shorter or English-only phrasing: %w", firstErr)
}

func (k *Kitten) call(ctx context.Context, text, voice string, speed float64) ([]byte, audio.Format, error) {
	if err := ctx.Err(); err != nil {
		return nil, audio.Format{}, err
	}

	k.mu.Lock()
	defer k.mu.Unlock()
	if k.closed {
		return nil, audio.Format{}, fmt.Errorf("kitten worker closed")
	}

	line := workerRequest{
		ID:    uuid.NewString(),
		Text:  text,
		Voice: voice,
		Speed: speed,
	}
	if line.Speed <= 0 {
		line.Speed = 1.0
	}

	b, _ := json.Marshal(line)
	b = append(b, '\n')
	if _, err := k.stdin.Write(b); err != nil {
		return nil, audio.Format{}, err
	}

	// Exactly one response per request; the mutex guarantees ordering.
	var resp workerResponse
	if err := k.dec.Decode(&resp); err != nil {
		return nil, audio.Format{}, err
	}
	if resp.ID != line.ID {
		return nil, audio.Format{}, fmt.Errorf("kitten worker out-of-sync (got %q, expected %q)", resp.ID, line.ID)
	}
	if !resp.OK {
		msg := strings.TrimSpace(resp.Error)
		if msg == "" {
			msg = "unknown kitten worker error"
		}
		return nil, audio.Format{}, fmt.Errorf("%s", msg)
	}

	format := audio.Format{SampleRate: resp.SampleRate, Channels: 1}
	if format.SampleRate <= 0 {
		format = audio.DefaultFormat
	}
	if strings.TrimSpace(resp.AudioBase64) == "" {
		return []byte{}, format, nil
	}
	pcm, err := base64.StdEncoding.DecodeString(resp.AudioBase64)
	if err != nil {
		return nil, audio.Format{}, fmt.Errorf("decode audio_base64: %w", err)
	}
	return pcm, format, nil
}

// Close shuts the worker down, politely first, then by force.
func (k *Kitten) Close() error {
	k.mu.Lock()
	if k.closed {
		k.mu.Unlock()
		return nil
	}
	k.closed = true
	stdin := k.stdin
	cmd := k.cmd
	k.stdin = nil
	k.cmd = nil
	k.mu.Unlock()

	if stdin != nil {
		_ = stdin.Close()
	}
	if cmd == nil || cmd.Process == nil {
		return nil
	}

	_ = cmd.Process.Signal(os.Interrupt)
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case <-time.After(1200 * time.Millisecond):
		_ = cmd.Process.Kill()
		<-done
	case <-done:
	}
	return nil
}
