package commands

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	presetFile string
	model      string
	deployment string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "voxline",
	Short: "Realtime session CLI",
	Long: `voxline drives a realtime generative-AI session from the terminal.

The API key is read from OPENAI_KEY or OPENAI_API_KEY. Session settings
can be kept in a YAML preset file and passed with --preset.

Examples:
  # Text chat with defaults
  voxline chat

  # Chat against a gateway deployment with a preset
  voxline chat --preset agent.yaml --deployment my-deployment

  # Validate a preset file
  voxline config check agent.yaml
`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initLogging)

	rootCmd.PersistentFlags().StringVarP(&presetFile, "preset", "p", "", "session preset file (YAML)")
	rootCmd.PersistentFlags().StringVarP(&model, "model", "m", "", "model id (overrides preset)")
	rootCmd.PersistentFlags().StringVar(&deployment, "deployment", "", "gateway deployment id (overrides preset)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(configCmd)
}

func initLogging() {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}
