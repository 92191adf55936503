package cmd

import (
	"github.com/spf13/cobra"

	"PipelineUtils/internal/artefact"
)

var putFileName string

func init() {
	putFileCmd.Flags().StringVar(&putFileName, "name", "", "object name (default: local file name)")
	rootCmd.AddCommand(putFileCmd)
}

var putFileCmd = &cobra.Command{
	Use:   "put-file FILE",
	Short: "Upload a local file to the configured folder",
	Args:  cobra.ExactArgs(1),
	RunE:  runPutFile,
}

func runPutFile(cmd *cobra.Command, args []string) error {
	cfg, store, err := setup(cmd)
	if err != nil {
		return err
	}
	key, err := artefact.PutFile(cmd.Context(), store, args[0], cfg.Bucket, cfg.Folder, putFileName)
	if err != nil {
		return err
	}
	cmd.Printf("uploaded %s\n", artefact.Location(cfg.Bucket, key))
	return nil
}
