package app

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	// Paths are the files or directories to scan for annotated tests.
	Paths []string

	// Check verifies generated files are current instead of writing them.
	Check bool

	// List prints the expanded test instances instead of generating.
	List bool

	// Watch keeps the process alive, regenerating on source changes.
	Watch bool

	LogFormat string
	LogLevel  string

	// Workers bounds how many files are processed concurrently.
	Workers int
}

func NewConfig(cfg Config) (*Config, error) {
	if len(cfg.Paths) == 0 {
		return nil, errors.New("Paths is a required configuration field and cannot be empty")
	}
	if cfg.Workers < 1 {
		return nil, fmt.Errorf("Workers must be at least 1, got %d", cfg.Workers)
	}
	if cfg.Check && cfg.Watch {
		return nil, errors.New("check and watch modes are mutually exclusive")
	}

	return &cfg, nil
}

// FileConfig mirrors the optional .assay.yaml project file. Values from it
// become flag defaults; explicit flags always win.
type FileConfig struct {
	Paths     []string `yaml:"paths"`
	LogFormat string   `yaml:"log_format"`
	LogLevel  string   `yaml:"log_level"`
	Workers   int      `yaml:"workers"`
}

// LoadFileConfig reads a project configuration file. A missing file is not
// an error; the zero FileConfig is returned.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return fc, nil
	}
	if err != nil {
		return fc, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fc, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return fc, nil
}
