package models

import (
	"os"
	"path/filepath"
)

// Config holds user defaults for the command line tools. It is read from
// config.yaml; flags override it.
type Config struct {
	Color       *bool  `yaml:"color"`
	JSON        bool   `yaml:"json"`
	LogLevel    string `yaml:"log_level"`
	Strict      bool   `yaml:"strict"`
	SkipOverlay bool   `yaml:"skip_overlay"`
	// ImageDir is searched for relative image paths that do not exist in
	// the working directory.
	ImageDir    string `yaml:"image_dir"`
	SnapshotDir string `yaml:"snapshot_dir"`
}

// ImagePath resolves path against ImageDir when path is relative and not
// present as given.
func (c *Config) ImagePath(path string) string {
	if c.ImageDir == "" || filepath.IsAbs(path) {
		return path
	}
	if _, err := os.Stat(path); err == nil {
		return path
	}
	target := filepath.Join(c.ImageDir, path)
	if _, err := os.Stat(target); err == nil {
		return target
	}
	return path
}

// SnapshotPath places a bare snapshot name under SnapshotDir.
func (c *Config) SnapshotPath(path string) string {
	if c.SnapshotDir == "" || filepath.IsAbs(path) || filepath.Base(path) != path {
		return path
	}
	return filepath.Join(c.SnapshotDir, path)
}
