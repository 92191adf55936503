package config

import "github.com/spf13/viper"

type Config struct {
	S3          *S3Config `mapstructure:"s3" yaml:"s3,omitempty"`
	Bucket      string    `mapstructure:"bucket" yaml:"bucket"`
	Folder      string    `mapstructure:"folder" yaml:"folder,omitempty"`
	LogLevel    string    `mapstructure:"log_level" yaml:"log_level,omitempty"`
	RevisionEnv string    `mapstructure:"revision_env" yaml:"revision_env,omitempty"`
}

type S3Config struct {
	Endpoint             string     `mapstructure:"endpoint" yaml:"endpoint,omitempty"`
	Region               string     `mapstructure:"region" yaml:"region,omitempty"`
	AccessKey            string     `mapstructure:"access_key" yaml:"access_key,omitempty"`
	SecretKey            string     `mapstructure:"secret_key" yaml:"secret_key,omitempty"`
	PathStyle            bool       `mapstructure:"path_style" yaml:"path_style,omitempty"`
	MultipartThresholdMB int64      `mapstructure:"multipart_threshold_mb" yaml:"multipart_threshold_mb,omitempty"`
	PartSizeMB           int64      `mapstructure:"part_size_mb" yaml:"part_size_mb,omitempty"`
	TLS                  *TLSConfig `mapstructure:"tls" yaml:"tls,omitempty"`
}

type TLSConfig struct {
	InsecureSkipVerify bool `mapstructure:"insecure_skip_verify" yaml:"insecure_skip_verify"`
}

func Unmarshal(v *viper.Viper) (*Config, error) {
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}
	return &c, nil
}
