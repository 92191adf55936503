package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"PipelineUtils/internal/config"
	"PipelineUtils/internal/s3"
)

var (
	initEndpoint  string
	initRegion    string
	initAccessKey string
	initSecretKey string
	initPathStyle bool
	initForce     bool
)

func init() {
	initCmd.Flags().StringVar(&initEndpoint, "endpoint", "", "S3 endpoint (empty for AWS)")
	initCmd.Flags().StringVar(&initRegion, "region", s3.DefaultRegion, "S3 region")
	initCmd.Flags().StringVar(&initAccessKey, "access-key", "", "S3 access key (empty to use the default AWS credential chain)")
	initCmd.Flags().StringVar(&initSecretKey, "secret-key", "", "S3 secret key")
	initCmd.Flags().BoolVar(&initPathStyle, "path-style", false, "use path-style addressing (MinIO)")
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config file")
	rootCmd.AddCommand(initCmd)
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a configuration file",
	RunE:  runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	path := config.ResolveConfigPath(configPath)
	if _, err := os.Stat(path); err == nil && !initForce {
		return fmt.Errorf("config %s already exists (use --force to overwrite)", path)
	}
	cfg := &config.Config{
		Bucket: bucketOverride,
		Folder: folderOverride,
		S3: &config.S3Config{
			Endpoint:  initEndpoint,
			Region:    initRegion,
			AccessKey: initAccessKey,
			SecretKey: initSecretKey,
			PathStyle: initPathStyle,
		},
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}
	if err := config.Write(cfg, path); err != nil {
		return err
	}
	cmd.Printf("wrote %s\n", path)
	return nil
}
