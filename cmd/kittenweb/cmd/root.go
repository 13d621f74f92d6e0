package cmd

import (
	"fmt"
	"log"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ent0n29/kittenweb/internal/config"
	"github.com/ent0n29/kittenweb/internal/engine"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "kittenweb",
	Short: "Web interface for KittenTTS text-to-speech",
	Long: `kittenweb packages the kitten-tts model behind a small web service:
a browser form posts text, voice, and speed, and gets back a playable or
downloadable WAV.

Commands:
  serve    - run the HTTP service
  say      - one-shot synthesis to a WAV file
  voices   - list the configured voices`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML, optional)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log every generation request")
}

func loadConfig() (config.Config, error) {
	if cfgFile != "" {
		return config.LoadWithFile(cfgFile)
	}
	return config.Load()
}

// buildEngine resolves the configured backend. In auto mode a failed kitten
// worker start falls back to the mock engine with a logged warning, so the
// UI stays usable on machines without the python stack. The returned name is
// the backend actually running.
func buildEngine(cfg config.Config) (engine.Engine, string, error) {
	kittenCfg := engine.KittenConfig{
		Python:       cfg.KittenPython,
		WorkerScript: cfg.KittenWorkerScript,
		Model:        cfg.KittenModel,
		CacheDir:     cfg.ModelCacheDir,
		WarmupVoice:  cfg.DefaultVoice,
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Engine)) {
	case "kitten":
		eng, err := engine.StartKitten(kittenCfg)
		if err != nil {
			return nil, "", fmt.Errorf("kitten engine init failed: %w", err)
		}
		return eng, "kitten", nil
	case "mock":
		return engine.NewMock(), "mock", nil
	default: // auto
		eng, err := engine.StartKitten(kittenCfg)
		if err == nil {
			return eng, "kitten", nil
		}
		log.Printf("kitten engine unavailable, using mock: %v", err)
		return engine.NewMock(), "mock", nil
	}
}
