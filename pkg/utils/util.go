// Package utils contains shared path sanitization and formatting helpers
package utils

import (
	"fmt"
	"path"
	"strings"
	"time"
)

// CleanVaultPath validates a vault-relative path coming from a tool call.
// Absolute paths and paths escaping the vault root are rejected.
func CleanVaultPath(inputPath string) (string, error) {
	if inputPath == "" {
		return "", fmt.Errorf("path must not be empty")
	}

	cleaned := path.Clean(strings.ReplaceAll(inputPath, "\\", "/"))

	if strings.HasPrefix(cleaned, "/") {
		return "", fmt.Errorf("path must be relative to the vault root: %s", inputPath)
	}
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("path is outside the vault: %s", inputPath)
	}
	if cleaned == "." {
		return "", fmt.Errorf("path must name a file or folder: %s", inputPath)
	}

	return cleaned, nil
}

// CleanVaultDir is CleanVaultPath for directory arguments, where an empty
// string means the vault root.
func CleanVaultDir(inputPath string) (string, error) {
	if inputPath == "" || inputPath == "." || inputPath == "/" {
		return "", nil
	}
	return CleanVaultPath(strings.TrimRight(inputPath, "/"))
}

// FormatEpochMillis renders a millisecond epoch timestamp for tool output.
func FormatEpochMillis(ms int64) string {
	if ms == 0 {
		return ""
	}
	return time.UnixMilli(ms).UTC().Format("2006-01-02 15:04:05")
}
