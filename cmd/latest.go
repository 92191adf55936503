package cmd

import (
	"github.com/spf13/cobra"

	"PipelineUtils/internal/artefact"
)

var latestFormat string

func init() {
	latestCmd.Flags().StringVar(&latestFormat, "format", "csv", "artefact format (csv, parquet, pkl)")
	rootCmd.AddCommand(latestCmd)
}

var latestCmd = &cobra.Command{
	Use:   "latest",
	Short: "Show the newest artefact of a format",
	RunE:  runLatest,
}

func runLatest(cmd *cobra.Command, args []string) error {
	format, err := artefact.ParseFormat(latestFormat)
	if err != nil {
		return err
	}
	cfg, store, err := setup(cmd)
	if err != nil {
		return err
	}
	a, err := artefact.FindLatest(cmd.Context(), store, format, cfg.Bucket, cfg.Folder)
	if err != nil {
		return err
	}
	cmd.Printf("key:       %s\n", a.Key())
	cmd.Printf("format:    %s\n", a.Format())
	cmd.Printf("timestamp: %s\n", a.Timestamp().Format("2006-01-02T15:04:05"))
	cmd.Printf("etag:      %s\n", a.ETag())
	return nil
}
