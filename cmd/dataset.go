package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"PipelineUtils/internal/artefact"
	"PipelineUtils/internal/dataset"
	"PipelineUtils/internal/table"
)

var (
	datasetFormat    string
	datasetOutput    string
	datasetSummary   bool
	datasetPrefix    string
	datasetTimestamp string
)

func init() {
	datasetGetCmd.Flags().StringVar(&datasetFormat, "format", "csv", "dataset format (csv, parquet)")
	datasetGetCmd.Flags().StringVarP(&datasetOutput, "output", "o", "", "write the table to this file as CSV (default stdout)")
	datasetGetCmd.Flags().BoolVar(&datasetSummary, "summary", false, "print a YAML summary instead of the data")

	datasetPutCmd.Flags().StringVar(&datasetPrefix, "prefix", "", "filename prefix (default: local file name)")
	datasetPutCmd.Flags().StringVar(&datasetTimestamp, "timestamp", "", "reference time, RFC 3339 or YYYY-MM-DD (default now, UTC)")

	datasetCmd.AddCommand(datasetGetCmd, datasetPutCmd)
	rootCmd.AddCommand(datasetCmd)
}

var datasetCmd = &cobra.Command{
	Use:   "dataset",
	Short: "Download or upload timestamped datasets",
}

var datasetGetCmd = &cobra.Command{
	Use:   "get",
	Short: "Download the newest dataset",
	RunE:  runDatasetGet,
}

var datasetPutCmd = &cobra.Command{
	Use:   "put FILE",
	Short: "Upload a local CSV or Parquet file as a timestamped dataset",
	Args:  cobra.ExactArgs(1),
	RunE:  runDatasetPut,
}

type datasetSummaryView struct {
	Bucket    string   `yaml:"bucket"`
	Key       string   `yaml:"key"`
	Timestamp string   `yaml:"timestamp"`
	Hash      string   `yaml:"hash"`
	Rows      int      `yaml:"rows"`
	Columns   []string `yaml:"columns"`
}

func runDatasetGet(cmd *cobra.Command, args []string) error {
	format, err := artefact.ParseFormat(datasetFormat)
	if err != nil {
		return err
	}
	cfg, store, err := setup(cmd)
	if err != nil {
		return err
	}
	ds, err := dataset.GetLatest(cmd.Context(), store, format, cfg.Bucket, cfg.Folder)
	if err != nil {
		return err
	}

	if datasetSummary {
		view := datasetSummaryView{
			Bucket:    ds.Bucket,
			Key:       ds.Key,
			Timestamp: ds.Timestamp.Format(time.RFC3339),
			Hash:      ds.Hash,
			Rows:      ds.Data.NumRows(),
		}
		for _, c := range ds.Data.Columns {
			view.Columns = append(view.Columns, c.Name+" ("+c.Kind.String()+")")
		}
		out, err := yaml.Marshal(view)
		if err != nil {
			return err
		}
		cmd.Print(string(out))
		return nil
	}

	if datasetOutput == "" {
		return table.WriteCSV(cmd.OutOrStdout(), ds.Data)
	}
	f, err := os.Create(datasetOutput)
	if err != nil {
		return err
	}
	if err := table.WriteCSV(f, ds.Data); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func runDatasetPut(cmd *cobra.Command, args []string) error {
	path := args[0]
	format, ok := artefact.ExtractFormat(path)
	if !ok || format == artefact.FormatPickle {
		return fmt.Errorf("%w: %s must end in .csv or .parquet", artefact.ErrUnsupportedFormat, path)
	}
	ref, err := parseReference(datasetTimestamp)
	if err != nil {
		return err
	}
	prefix := datasetPrefix
	if prefix == "" {
		prefix = trimExt(filepath.Base(path))
	}

	data, err := readTable(path, format)
	if err != nil {
		return err
	}
	cfg, store, err := setup(cmd)
	if err != nil {
		return err
	}
	key, err := dataset.Put(cmd.Context(), store, data, format, prefix, ref, cfg.Bucket, cfg.Folder)
	if err != nil {
		return err
	}
	cmd.Printf("uploaded %s\n", artefact.Location(cfg.Bucket, key))
	return nil
}

func readTable(path string, format artefact.Format) (*table.Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w at %s: %w", artefact.ErrLocalFileMissing, path, err)
	}
	if format == artefact.FormatParquet {
		return table.ReadParquet(bytes.NewReader(raw), int64(len(raw)))
	}
	return table.ReadCSV(bytes.NewReader(raw))
}

func parseReference(s string) (time.Time, error) {
	if s == "" {
		return time.Now().UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	if t, ok := artefact.ExtractTimestamp(s); ok {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("invalid --timestamp %q", s)
}

func trimExt(name string) string {
	return name[:len(name)-len(filepath.Ext(name))]
}
