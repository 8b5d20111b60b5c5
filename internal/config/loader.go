package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the default configuration file name.
const DefaultConfigFile = ".picdedup"

// ErrConfigNotFound is returned when the configuration file does not exist.
var ErrConfigNotFound = errors.New("configuration file not found")

// File represents the structure of the .picdedup configuration file.
// Unset fields leave the corresponding Config value unchanged.
type File struct {
	// Workers bounds per-stage concurrency.
	Workers int `yaml:"workers,omitempty"`

	// Detectors replaces the default detector chain when non-empty.
	Detectors []DetectorSpec `yaml:"detectors,omitempty"`

	// Thumbnail holds thumbnail generation settings.
	Thumbnail ThumbnailFile `yaml:"thumbnail,omitempty"`

	// MetricsFile is the Prometheus textfile written after each run.
	MetricsFile string `yaml:"metricsFile,omitempty"`
}

// ThumbnailFile is the thumbnail section of the configuration file.
type ThumbnailFile struct {
	Size      int   `yaml:"size,omitempty"`
	Grayscale *bool `yaml:"grayscale,omitempty"`
	Quality   int   `yaml:"quality,omitempty"`
}

// LoadConfigFile loads a YAML configuration file.
// If the file does not exist, it returns ErrConfigNotFound.
func LoadConfigFile(path string) (*File, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrConfigNotFound
		}
		return nil, err
	}

	var cf File
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, err
	}
	return &cf, nil
}

// Apply copies the values set in the file onto cfg.
// Detector parameters left at zero are filled with their defaults.
func (cf *File) Apply(cfg *Config) {
	if cf.Workers != 0 {
		cfg.Workers = cf.Workers
	}
	if len(cf.Detectors) > 0 {
		cfg.Detectors = make([]DetectorSpec, len(cf.Detectors))
		for i, spec := range cf.Detectors {
			cfg.Detectors[i] = spec.WithDefaults()
		}
	}
	if cf.Thumbnail.Size != 0 {
		cfg.ThumbnailSize = cf.Thumbnail.Size
	}
	if cf.Thumbnail.Grayscale != nil {
		cfg.ThumbnailGrayscale = *cf.Thumbnail.Grayscale
	}
	if cf.Thumbnail.Quality != 0 {
		cfg.ThumbnailQuality = cf.Thumbnail.Quality
	}
	if cf.MetricsFile != "" {
		cfg.MetricsFile = cf.MetricsFile
	}
}

// WithDefaults returns a copy of s with unset parameters replaced by the
// defaults for its kind.
func (s DetectorSpec) WithDefaults() DetectorSpec {
	switch s.Kind {
	case KindHash:
		if s.Precision == 0 {
			s.Precision = DefaultHashPrecision
		}
	case KindORB:
		if s.Features == 0 {
			s.Features = DefaultORBFeatures
		}
		if s.Threshold == 0 {
			s.Threshold = DefaultORBThreshold
		}
		if s.MaxDistance == 0 {
			s.MaxDistance = DefaultORBMaxDistance
		}
	}
	return s
}

// FindConfigFile searches for the configuration file in the following order:
// 1. If configPath is specified, use it directly
// 2. Look for .picdedup in workdir, when given
// 3. Look for .picdedup in the current directory
// 4. Look for .picdedup in the user's home directory
//
// Returns the path to the configuration file if found, or empty string if not found.
func FindConfigFile(configPath, workdir string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		return ""
	}

	var dirs []string
	if workdir != "" {
		dirs = append(dirs, workdir)
	}
	if cwd, err := os.Getwd(); err == nil {
		dirs = append(dirs, cwd)
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, home)
	}

	for _, dir := range dirs {
		candidate := filepath.Join(dir, DefaultConfigFile)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}
	return ""
}
