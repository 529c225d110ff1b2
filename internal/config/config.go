// Package config resolves tool settings from three layers applied in
// increasing precedence: built-in defaults, an optional YAML config
// file, and CMDQ_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Config holds the resolved settings. Dir is the working root that
// contains the queue, the processed archive, command logs and the pass
// lock. Hash names the digest used to derive keys for inline actions.
type Config struct {
	Dir  string `yaml:"dir" env:"CMDQ_DIR"`
	Hash string `yaml:"hash" env:"CMDQ_HASH"`
}

// ConfigPathVar overrides where the config file is read from. Without
// it the file lives at <user config dir>/cmdq/config.yaml.
const ConfigPathVar = "CMDQ_CONFIG"

const (
	appDirName     = "cmdq"
	configFileName = "config.yaml"
)

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Dir:  DefaultRoot(),
		Hash: "sha256",
	}
}

// Load resolves the effective configuration: defaults first, then the
// config file when one exists, then environment overrides. A missing
// config file is not an error; an unreadable or malformed one is.
func Load() (Config, error) {
	cfg := Default()

	path := configPath()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	case errors.Is(err, fs.ErrNotExist):
		// No file, defaults stand.
	default:
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	// env.Parse only touches fields whose variable is actually set, so
	// the file layer survives where the environment is silent.
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: environment: %w", err)
	}
	return cfg, nil
}

func configPath() string {
	if p := os.Getenv(ConfigPathVar); p != "" {
		return p
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(base, appDirName, configFileName)
}
