package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"PipelineUtils/internal/model"
	"PipelineUtils/internal/s3"
)

// EnvPrefix scopes environment overrides, e.g. PIPELINEUTILS_S3_ENDPOINT.
const EnvPrefix = "PIPELINEUTILS"

// Load reads the config file at path (see ResolveConfigPath). Environment
// variables override file values. A missing file is an error only when
// required is set.
func Load(path string, checkPerms, required bool) (*viper.Viper, error) {
	path = ResolveConfigPath(path)
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if checkPerms {
		if err := checkConfigPermissions(path); err != nil {
			return nil, err
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			if required {
				return nil, fmt.Errorf("config file not found: %s", path)
			}
			return v, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	return v, nil
}

func setDefaults(v *viper.Viper) {
	// Keys must be known to viper for AutomaticEnv to apply during Unmarshal.
	v.SetDefault("bucket", "")
	v.SetDefault("folder", "")
	v.SetDefault("log_level", DefaultLogLevel)
	v.SetDefault("revision_env", model.DefaultRevisionEnv)
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.region", s3.DefaultRegion)
	v.SetDefault("s3.access_key", "")
	v.SetDefault("s3.secret_key", "")
	v.SetDefault("s3.path_style", false)
	v.SetDefault("s3.multipart_threshold_mb", s3.DefaultMultipartThresholdMB)
	v.SetDefault("s3.part_size_mb", s3.MinPartSizeMB)
}

func checkConfigPermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	mode := info.Mode().Perm()

	if mode&0077 != 0 {
		return fmt.Errorf("config file %s has overly permissive mode %s (recommended: 0600)", path, mode)
	}
	return nil
}
