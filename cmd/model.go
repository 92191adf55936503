package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"PipelineUtils/internal/artefact"
	"PipelineUtils/internal/config"
	"PipelineUtils/internal/dataset"
	"PipelineUtils/internal/model"
)

var (
	modelName          string
	modelDatasetFolder string
	modelDatasetFormat string
)

func init() {
	modelPutCmd.Flags().StringVar(&modelName, "name", "", "model name used as filename prefix (default: local file name)")
	modelPutCmd.Flags().StringVar(&modelDatasetFolder, "dataset-folder", "", "folder holding the training datasets (default: --folder)")
	modelPutCmd.Flags().StringVar(&modelDatasetFormat, "dataset-format", "csv", "training dataset format (csv, parquet)")

	modelCmd.AddCommand(modelLatestCmd, modelPutCmd)
	rootCmd.AddCommand(modelCmd)
}

var modelCmd = &cobra.Command{
	Use:   "model",
	Short: "Inspect and store model envelopes",
}

var modelLatestCmd = &cobra.Command{
	Use:   "latest",
	Short: "Show provenance of the newest model",
	RunE:  runModelLatest,
}

var modelPutCmd = &cobra.Command{
	Use:   "put FILE",
	Short: "Store a trained model file with provenance from the newest training dataset",
	Args:  cobra.ExactArgs(1),
	RunE:  runModelPut,
}

func runModelLatest(cmd *cobra.Command, args []string) error {
	cfg, store, err := setup(cmd)
	if err != nil {
		return err
	}
	env, err := model.GetLatest[any](cmd.Context(), store, cfg.Bucket, cfg.Folder)
	if err != nil {
		return err
	}
	cmd.Println(env.String())
	return nil
}

func runModelPut(cmd *cobra.Command, args []string) error {
	format, err := artefact.ParseFormat(modelDatasetFormat)
	if err != nil {
		return err
	}
	cfg, store, err := setup(cmd)
	if err != nil {
		return err
	}
	folder := modelDatasetFolder
	if folder == "" {
		folder = cfg.Folder
	}
	loc, env, err := putModelFile(cmd.Context(), store, cfg, args[0], modelName, format, folder)
	if err != nil {
		return err
	}
	cmd.Printf("uploaded %s\n%s\n", loc, env)
	return nil
}

// putModelFile wraps the bytes of a model file in an envelope tied to the
// newest training dataset and stores it under the configured folder.
func putModelFile(ctx context.Context, store artefact.Storage, cfg *config.Config, path, name string, format artefact.Format, datasetFolder string) (string, *model.Envelope[[]byte], error) {
	body, err := os.ReadFile(path)
	if err != nil {
		return "", nil, fmt.Errorf("%w at %s: %w", artefact.ErrLocalFileMissing, path, err)
	}
	if name == "" {
		name = trimExt(filepath.Base(path))
	}
	a, err := artefact.FindLatest(ctx, store, format, cfg.Bucket, datasetFolder)
	if err != nil {
		return "", nil, err
	}
	train := &dataset.Dataset{
		Timestamp: a.Timestamp(),
		Bucket:    a.Bucket(),
		Key:       a.Key(),
		Hash:      a.ETag(),
	}
	env, err := model.New(name, body, train,
		model.WithRevisionEnv(cfg.RevisionEnv),
		model.WithMetadata(map[string]any{"source_file": filepath.Base(path)}),
	)
	if err != nil {
		return "", nil, err
	}
	loc, err := env.Put(ctx, store, cfg.Bucket, cfg.Folder)
	if err != nil {
		return "", nil, err
	}
	return loc, env, nil
}
