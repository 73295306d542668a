package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	realtime "github.com/voxline/realtime-go"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Preset file management",
}

var configCheckCmd = &cobra.Command{
	Use:   "check <preset.yaml>",
	Short: "Validate a preset file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		preset, err := realtime.LoadPreset(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s: ok", args[0])
		if preset.Model != "" {
			fmt.Printf(" (model %s)", preset.Model)
		}
		if preset.Deployment != "" {
			fmt.Printf(" (deployment %s)", preset.Deployment)
		}
		fmt.Println()
		return nil
	},
}

func init() {
	configCmd.AddCommand(configCheckCmd)
}
