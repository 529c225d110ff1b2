package config

import (
	"os"
	"path/filepath"
)

// DefaultRoot returns the working root used when neither CMDQ_DIR nor
// the config file selects one. It prefers standard per-user data
// locations and falls back to a dotdir in the user's home directory.
func DefaultRoot() string {
	homeDir, err := os.UserHomeDir()
	if err != nil || homeDir == "" {
		return "./cmdq"
	}

	// XDG (Linux) override
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "cmdq")
	}

	// macOS: ~/Library/Application Support/cmdq
	if isDir(filepath.Join(homeDir, "Library")) {
		return filepath.Join(homeDir, "Library", "Application Support", "cmdq")
	}

	// Fallback: ~/.cmdq
	return filepath.Join(homeDir, ".cmdq")
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}
