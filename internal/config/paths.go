package config

import (
	"path/filepath"

	"github.com/adrg/xdg"
)

// Paths contains commonly used file paths.
type Paths struct {
	Config string // YAML config file
	Index  string // Vector index root
	Model  string // Fine-tuned model
	Logs   string // Log directory
}

// GetPaths returns all commonly used paths based on config.
func GetPaths(cfg *Config) Paths {
	return Paths{
		Config: filepath.Join(cfg.BaseDir, "config.yaml"),
		Index:  filepath.Join(cfg.BaseDir, "index"),
		Model:  filepath.Join(cfg.BaseDir, "model"),
		Logs:   filepath.Join(cfg.BaseDir, "logs"),
	}
}

// DefaultBaseDir returns the default base directory ($XDG_DATA_HOME/partmatch).
func DefaultBaseDir() string {
	return filepath.Join(xdg.DataHome, "partmatch")
}
