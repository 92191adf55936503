package config

import (
	"path"
	"strings"
)

// NormalizeFolder cleans a bucket folder to "a/b" form. Slashes are added
// back when keys are built.
func NormalizeFolder(folder string) string {
	if folder == "" {
		return ""
	}
	folder = strings.ReplaceAll(folder, "\\", "/")
	for strings.Contains(folder, "//") {
		folder = strings.ReplaceAll(folder, "//", "/")
	}

	folder = strings.Trim(folder, "/")
	if folder == "" {
		return ""
	}
	return path.Clean(folder)
}
