package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config holds settings loaded from previewforge.toml. Flags override
// everything here; the file only supplies defaults for settings that are
// awkward to repeat on every invocation.
type Config struct {
	Model          string   `toml:"model"`            // vision model name
	Variants       int      `toml:"variants"`         // default variant count
	Workers        int      `toml:"workers"`          // variant worker pool size
	MaxFixAttempts int      `toml:"max_fix_attempts"` // readability fix budget
	Platforms      []string `toml:"platforms"`        // default platform targets

	Cache CacheConfig `toml:"cache"`
	Store StoreConfig `toml:"store"`
}

// CacheConfig selects the stage cache backend. When RedisAddr is set the
// cache lives in Redis, otherwise in the XDG cache directory.
type CacheConfig struct {
	RedisAddr     string `toml:"redis_addr"`
	RedisPassword string `toml:"redis_password"`
	RedisDB       int    `toml:"redis_db"`
}

// StoreConfig selects the result audit sink. MongoURI wins over
// ResultsDir; both empty disables the sink.
type StoreConfig struct {
	MongoURI   string `toml:"mongo_uri"`
	MongoDB    string `toml:"mongo_db"`
	ResultsDir string `toml:"results_dir"`
}

// configFileName is the config file looked up in the search path.
const configFileName = "previewforge.toml"

// loadConfig reads the config file at path, or searches the default
// locations when path is empty: the working directory, then
// $XDG_CONFIG_HOME/previewforge/, then ~/.config/previewforge/.
// A missing file is not an error; the zero Config is returned.
func loadConfig(path string) (Config, error) {
	var cfg Config

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("load config %s: %w", path, err)
		}
		return cfg, nil
	}

	for _, candidate := range configSearchPath() {
		if _, err := os.Stat(candidate); err != nil {
			continue
		}
		if _, err := toml.DecodeFile(candidate, &cfg); err != nil {
			return cfg, fmt.Errorf("load config %s: %w", candidate, err)
		}
		return cfg, nil
	}
	return cfg, nil
}

// configSearchPath returns candidate config file locations in priority
// order.
func configSearchPath() []string {
	paths := []string{configFileName}
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		paths = append(paths, filepath.Join(configHome, appName, configFileName))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", appName, configFileName))
	}
	return paths
}
