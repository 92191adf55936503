package config

import (
	"os"
	"path/filepath"
)

const (
	DefaultConfigDir  = "/etc/pipelineutils"
	DefaultConfigName = "config.yaml"
)

const EnvConfigPath = "PIPELINEUTILS_CONFIG"

func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir, DefaultConfigName)
}

// ResolveConfigPath prefers an explicit path, then PIPELINEUTILS_CONFIG,
// then the default location.
func ResolveConfigPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	return DefaultConfigPath()
}
