package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// DefaultVoices lists the speakers built into the kitten-tts nano model.
var DefaultVoices = []string{
	"Bella", "Jasper", "Luna", "Bruno",
	"Rosie", "Hugo", "Kiki", "Leo",
}

// Config contains all runtime settings for the TTS web service.
type Config struct {
	BindHost        string
	Port            int
	ShutdownTimeout time.Duration
	// RequestTimeout bounds a single generation request end to end.
	RequestTimeout   time.Duration
	WebConcurrency   int
	ThreadsPerWorker int
	MetricsNamespace string

	// Engine selects the synthesis backend: auto, kitten, or mock.
	Engine             string
	KittenPython       string
	KittenWorkerScript string
	KittenModel        string
	ModelCacheDir      string

	MaxTextLength int
	MinSpeed      float64
	MaxSpeed      float64
	SampleRate    int

	Voices       []string
	DefaultVoice string

	// ScratchDir, when set, holds download-mode WAVs for the duration of one
	// response. Empty means artifacts stay in memory.
	ScratchDir string
}

// Load reads the optional config file and environment variables, applying
// safe defaults. Environment variables win over file values.
func Load() (Config, error) {
	return LoadWithFile(stringsTrimSpace("KITTENWEB_CONFIG"))
}

// LoadWithFile is Load with an explicit config file path (e.g. from a CLI
// flag). An empty path skips the file layer.
func LoadWithFile(path string) (Config, error) {
	cfg := Config{
		BindHost:           envOrDefault("APP_BIND_HOST", "0.0.0.0"),
		Port:               5000,
		ShutdownTimeout:    15 * time.Second,
		RequestTimeout:     120 * time.Second,
		WebConcurrency:     2,
		ThreadsPerWorker:   4,
		MetricsNamespace:   envOrDefault("APP_METRICS_NAMESPACE", "kittenweb"),
		Engine:             envOrDefault("TTS_ENGINE", "auto"),
		KittenPython:       stringsTrimSpace("KITTEN_PYTHON"),
		KittenWorkerScript: envOrDefault("KITTEN_WORKER_SCRIPT", "scripts/kitten_worker.py"),
		KittenModel:        envOrDefault("KITTEN_MODEL", "KittenML/kitten-tts-nano-0.8-fp32"),
		ModelCacheDir:      envOrDefault("HF_HOME", ".cache/huggingface"),
		MaxTextLength:      1000,
		MinSpeed:           0.5,
		MaxSpeed:           2.0,
		SampleRate:         24000,
		Voices:             append([]string(nil), DefaultVoices...),
		DefaultVoice:       envOrDefault("DEFAULT_VOICE", "Jasper"),
		ScratchDir:         stringsTrimSpace("AUDIO_SCRATCH_DIR"),
	}

	if path != "" {
		if err := applyFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	var err error
	cfg.Port, err = intFromEnv("PORT", cfg.Port)
	if err != nil {
		return Config{}, err
	}
	cfg.WebConcurrency, err = intFromEnv("WEB_CONCURRENCY", cfg.WebConcurrency)
	if err != nil {
		return Config{}, err
	}
	cfg.ThreadsPerWorker, err = intFromEnv("GUNICORN_THREADS", cfg.ThreadsPerWorker)
	if err != nil {
		return Config{}, err
	}
	// GUNICORN_TIMEOUT follows the launcher convention: whole seconds.
	timeoutSec, err := intFromEnv("GUNICORN_TIMEOUT", int(cfg.RequestTimeout/time.Second))
	if err != nil {
		return Config{}, err
	}
	cfg.RequestTimeout = time.Duration(timeoutSec) * time.Second
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.MaxTextLength, err = intFromEnv("MAX_TEXT_LENGTH", cfg.MaxTextLength)
	if err != nil {
		return Config{}, err
	}

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return Config{}, fmt.Errorf("PORT must be between 1 and 65535")
	}
	if cfg.WebConcurrency <= 0 {
		return Config{}, fmt.Errorf("WEB_CONCURRENCY must be positive")
	}
	if cfg.ThreadsPerWorker <= 0 {
		return Config{}, fmt.Errorf("GUNICORN_THREADS must be positive")
	}
	if cfg.RequestTimeout <= 0 {
		return Config{}, fmt.Errorf("GUNICORN_TIMEOUT must be positive")
	}
	if cfg.MaxTextLength <= 0 {
		return Config{}, fmt.Errorf("MAX_TEXT_LENGTH must be positive")
	}
	if len(cfg.Voices) == 0 {
		return Config{}, fmt.Errorf("voice list must not be empty")
	}
	if !containsVoice(cfg.Voices, cfg.DefaultVoice) {
		return Config{}, fmt.Errorf("default voice %q is not in the voice list", cfg.DefaultVoice)
	}
	if cfg.MinSpeed <= 0 || cfg.MaxSpeed <= cfg.MinSpeed {
		return Config{}, fmt.Errorf("speed bounds must satisfy 0 < min < max")
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Engine)) {
	case "auto", "kitten", "mock":
	default:
		return Config{}, fmt.Errorf("invalid TTS_ENGINE: %q (expected auto|kitten|mock)", cfg.Engine)
	}

	return cfg, nil
}

// BindAddr combines host and port into a listen address.
func (c Config) BindAddr() string {
	return fmt.Sprintf("%s:%d", c.BindHost, c.Port)
}

// ConcurrencyBudget is the number of generation requests admitted in
// parallel: worker count times threads per worker, matching what the
// original WSGI launcher would have provided.
func (c Config) ConcurrencyBudget() int {
	return c.WebConcurrency * c.ThreadsPerWorker
}

// containsVoice matches exactly, like the request validator does; a default
// voice that only matches case-insensitively would pass load but fail every
// defaulted request.
func containsVoice(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}
