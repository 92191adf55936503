package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"PipelineUtils/internal/model"
	"PipelineUtils/internal/s3"
)

const DefaultLogLevel = "info"

var (
	ErrMissingBucket = errors.New("bucket is required")
	ErrInvalidLevel  = errors.New("invalid log_level")
	ErrInvalidSize   = errors.New("invalid size")
)

// Validate checks cfg and fills in defaults. The folder is normalised in
// place.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	if strings.TrimSpace(cfg.Bucket) == "" {
		return ErrMissingBucket
	}
	cfg.Folder = NormalizeFolder(cfg.Folder)

	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	if _, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel)); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidLevel, cfg.LogLevel)
	}
	if cfg.RevisionEnv == "" {
		cfg.RevisionEnv = model.DefaultRevisionEnv
	}

	if cfg.S3 == nil {
		cfg.S3 = &S3Config{}
	}
	if cfg.S3.Region == "" {
		cfg.S3.Region = s3.DefaultRegion
	}
	if cfg.S3.MultipartThresholdMB < 0 {
		return fmt.Errorf("%w: s3.multipart_threshold_mb must not be negative", ErrInvalidSize)
	}
	if cfg.S3.PartSizeMB < 0 {
		return fmt.Errorf("%w: s3.part_size_mb must not be negative", ErrInvalidSize)
	}
	if cfg.S3.PartSizeMB > 0 && cfg.S3.PartSizeMB < s3.MinPartSizeMB {
		return fmt.Errorf("%w: s3.part_size_mb must be at least %d", ErrInvalidSize, s3.MinPartSizeMB)
	}
	return nil
}
