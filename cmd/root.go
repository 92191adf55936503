package cmd

import (
	"context"
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"PipelineUtils/internal/config"
	"PipelineUtils/internal/s3"
	"PipelineUtils/pkg/logger"
)

var (
	configPath     string
	logLevel       string
	bucketOverride string
	folderOverride string
)

var rootCmd = &cobra.Command{
	Use:           "pipelineutils",
	Short:         "Manage timestamped datasets and models in S3-compatible storage",
	Long:          "Pipelineutils finds, downloads and uploads timestamped dataset (CSV/Parquet) and model artefacts kept in an S3 bucket.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		_ = godotenv.Load()
		if logLevel != "" {
			logger.SetLevel(logLevel)
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default $"+config.EnvConfigPath+" or "+config.DefaultConfigPath()+")")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&bucketOverride, "bucket", "", "bucket to use instead of the configured one")
	rootCmd.PersistentFlags().StringVar(&folderOverride, "folder", "", "folder within the bucket")
}

func Execute() int {
	if err := rootCmd.Execute(); err != nil {
		logger.Log.Error().Err(err).Msg("command failed")
		return 1
	}
	return 0
}

// loadConfig reads the config file if present, applies flag overrides and
// validates the result. checkPerms rejects a config file readable by group
// or others.
func loadConfig(cmd *cobra.Command, checkPerms bool) (*config.Config, error) {
	v, err := config.Load(configPath, checkPerms, configPath != "")
	if err != nil {
		return nil, err
	}
	cfg, err := config.Unmarshal(v)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("bucket") {
		cfg.Bucket = bucketOverride
	}
	if cmd.Flags().Changed("folder") {
		cfg.Folder = folderOverride
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	if logLevel == "" {
		logger.SetLevel(cfg.LogLevel)
	}
	return cfg, nil
}

func newStore(ctx context.Context, cfg *config.Config) (*s3.Client, error) {
	client, err := s3.New(ctx, s3.Options{
		Endpoint:                cfg.S3.Endpoint,
		Region:                  cfg.S3.Region,
		AccessKey:               cfg.S3.AccessKey,
		SecretKey:               cfg.S3.SecretKey,
		PathStyle:               cfg.S3.PathStyle,
		InsecureSkipVerify:      cfg.S3.TLS != nil && cfg.S3.TLS.InsecureSkipVerify,
		MultipartThresholdBytes: cfg.S3.MultipartThresholdMB * 1024 * 1024,
		PartSizeBytes:           cfg.S3.PartSizeMB * 1024 * 1024,
	})
	if err != nil {
		return nil, fmt.Errorf("s3 client: %w", err)
	}
	return client, nil
}

// setup is the common prelude of commands that talk to the store.
func setup(cmd *cobra.Command) (*config.Config, *s3.Client, error) {
	cfg, err := loadConfig(cmd, false)
	if err != nil {
		return nil, nil, err
	}
	store, err := newStore(cmd.Context(), cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, store, nil
}
