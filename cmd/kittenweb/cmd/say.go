package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ent0n29/kittenweb/internal/generate"
	"github.com/ent0n29/kittenweb/internal/observability"
)

var (
	sayVoice  string
	saySpeed  float64
	sayOutput string
)

var sayCmd = &cobra.Command{
	Use:   "say <text>",
	Short: "Synthesize text to a WAV file",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSay,
}

func init() {
	sayCmd.Flags().StringVar(&sayVoice, "voice", "", "voice to use (default: configured default voice)")
	sayCmd.Flags().Float64Var(&saySpeed, "speed", 1.0, "playback speed")
	sayCmd.Flags().StringVarP(&sayOutput, "out", "o", "", "output file (default: kitten_tts_<voice>_<id>.wav)")
	rootCmd.AddCommand(sayCmd)
}

func runSay(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	eng, _, err := buildEngine(cfg)
	if err != nil {
		return err
	}
	defer eng.Close()

	voice := strings.TrimSpace(sayVoice)
	if voice == "" {
		voice = cfg.DefaultVoice
	}

	metrics := observability.NewMetrics(cfg.MetricsNamespace)
	svc := generate.NewService(eng, generate.RulesFromConfig(cfg), metrics, "")
	svc.Verbose = verbose
	result, err := svc.Generate(context.Background(), generate.Request{
		Text:  strings.Join(args, " "),
		Voice: voice,
		Speed: saySpeed,
	}, generate.ModeDownload)
	if err != nil {
		return err
	}

	out := strings.TrimSpace(sayOutput)
	if out == "" {
		out = fmt.Sprintf("kitten_tts_%s_%s.wav", voice, uuid.NewString()[:8])
	}
	if err := os.WriteFile(out, result.WAV, 0o644); err != nil {
		return err
	}
	fmt.Printf("wrote %s (%d bytes, %s)\n", out, len(result.WAV), result.Duration.Round(10*time.Millisecond))
	return nil
}
