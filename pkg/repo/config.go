package repo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// Config stores repository-local settings, persisted as .kiln/config.toml.
type Config struct {
	User  UserConfig  `toml:"user"`
	Merge MergeConfig `toml:"merge"`
}

// UserConfig identifies the commit author.
type UserConfig struct {
	Name  string `toml:"name"`
	Email string `toml:"email"`
	// SigningKey is the SSH private key used by commit --sign when no
	// explicit key path is given.
	SigningKey string `toml:"signing_key,omitempty"`
}

// MergeConfig tunes merge behavior.
type MergeConfig struct {
	// ContextLines is the context size used when rendering conflict diffs.
	ContextLines int `toml:"context_lines"`
}

const defaultMergeContextLines = 3

func defaultConfig() *Config {
	return &Config{
		User:  UserConfig{Name: "kiln", Email: "kiln@localhost"},
		Merge: MergeConfig{ContextLines: defaultMergeContextLines},
	}
}

func (r *Repo) configPath() string {
	return filepath.Join(r.KilnDir, "config.toml")
}

// ReadConfig reads .kiln/config.toml. A missing file yields defaults.
func (r *Repo) ReadConfig() (*Config, error) {
	cfg := defaultConfig()
	if _, err := toml.DecodeFile(r.configPath(), cfg); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if cfg.Merge.ContextLines <= 0 {
		cfg.Merge.ContextLines = defaultMergeContextLines
	}
	return cfg, nil
}

// WriteConfig atomically writes .kiln/config.toml.
func (r *Repo) WriteConfig(cfg *Config) error {
	if cfg == nil {
		cfg = defaultConfig()
	}

	tmp, err := os.CreateTemp(r.KilnDir, ".config-tmp-*")
	if err != nil {
		return fmt.Errorf("write config: tmpfile: %w", err)
	}
	tmpName := tmp.Name()

	if err := toml.NewEncoder(tmp).Encode(cfg); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write config: encode: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write config: close: %w", err)
	}
	if err := os.Rename(tmpName, r.configPath()); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("write config: rename: %w", err)
	}
	return nil
}
