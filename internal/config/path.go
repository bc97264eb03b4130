package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// UserConfigPath returns the XDG-style location of the persisted
// configuration file, honoring $XDG_CONFIG_HOME before falling back to
// ~/.config. It only computes the path; callers are responsible for
// actually reading or writing it.
func UserConfigPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "voxloop", "listener.yaml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "voxloop", "listener.yaml"), nil
}

// Save writes cfg as YAML to its user config path, creating the parent
// directory if necessary. Used by the reload controller (C8) to persist
// an applied patch.
func Save(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
