package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors the YAML config file. All fields are optional; unset
// fields keep their defaults and environment variables still win afterwards.
type fileConfig struct {
	BindHost         *string  `yaml:"bind_host"`
	Port             *int     `yaml:"port"`
	WebConcurrency   *int     `yaml:"web_concurrency"`
	ThreadsPerWorker *int     `yaml:"threads_per_worker"`
	RequestTimeoutS  *int     `yaml:"request_timeout_seconds"`
	ShutdownTimeout  *string  `yaml:"shutdown_timeout"`
	MetricsNamespace *string  `yaml:"metrics_namespace"`
	Engine           *string  `yaml:"engine"`
	KittenPython     *string  `yaml:"kitten_python"`
	KittenWorker     *string  `yaml:"kitten_worker_script"`
	KittenModel      *string  `yaml:"kitten_model"`
	ModelCacheDir    *string  `yaml:"model_cache_dir"`
	MaxTextLength    *int     `yaml:"max_text_length"`
	Voices           []string `yaml:"voices"`
	DefaultVoice     *string  `yaml:"default_voice"`
	ScratchDir       *string  `yaml:"scratch_dir"`
}

func applyFile(path string, cfg *Config) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return fmt.Errorf("config file %s: %w", path, err)
	}

	setString(&cfg.BindHost, fc.BindHost)
	setInt(&cfg.Port, fc.Port)
	setInt(&cfg.WebConcurrency, fc.WebConcurrency)
	setInt(&cfg.ThreadsPerWorker, fc.ThreadsPerWorker)
	if fc.RequestTimeoutS != nil {
		cfg.RequestTimeout = time.Duration(*fc.RequestTimeoutS) * time.Second
	}
	if fc.ShutdownTimeout != nil {
		d, err := time.ParseDuration(*fc.ShutdownTimeout)
		if err != nil {
			return fmt.Errorf("config file %s: shutdown_timeout: %w", path, err)
		}
		cfg.ShutdownTimeout = d
	}
	setString(&cfg.MetricsNamespace, fc.MetricsNamespace)
	setString(&cfg.Engine, fc.Engine)
	setString(&cfg.KittenPython, fc.KittenPython)
	setString(&cfg.KittenWorkerScript, fc.KittenWorker)
	setString(&cfg.KittenModel, fc.KittenModel)
	setString(&cfg.ModelCacheDir, fc.ModelCacheDir)
	setInt(&cfg.MaxTextLength, fc.MaxTextLength)
	if len(fc.Voices) > 0 {
		cfg.Voices = append([]string(nil), fc.Voices...)
	}
	setString(&cfg.DefaultVoice, fc.DefaultVoice)
	setString(&cfg.ScratchDir, fc.ScratchDir)
	return nil
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}
