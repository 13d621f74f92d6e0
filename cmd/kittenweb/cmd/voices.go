package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var voicesCmd = &cobra.Command{
	Use:   "voices",
	Short: "List the configured voices",
	RunE:  runVoices,
}

func init() {
	rootCmd.AddCommand(voicesCmd)
}

func runVoices(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	for _, voice := range cfg.Voices {
		if voice == cfg.DefaultVoice {
			fmt.Printf("%s (default)\n", voice)
			continue
		}
		fmt.Println(voice)
	}
	return nil
}
