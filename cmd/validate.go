package cmd

import (
	"github.com/spf13/cobra"

	"PipelineUtils/internal/config"
)

func init() {
	rootCmd.AddCommand(validateCmd)
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	RunE:  runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	v, err := config.Load(configPath, false, true)
	if err != nil {
		return err
	}
	cfg, err := config.Unmarshal(v)
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}
	cmd.Printf("config OK (bucket=%s, folder=%s)\n", cfg.Bucket, cfg.Folder)
	return nil
}
