package config

import (
	"path/filepath"
	"runtime"

	"github.com/adrg/xdg"
)

// Detector kinds accepted in DetectorSpec.Kind.
const (
	// KindHash selects the perceptual hash detector.
	KindHash = "hash"

	// KindORB selects the keypoint feature matching detector.
	KindORB = "orb"
)

// Default configuration values.
const (
	// AppName is the application name used for XDG directory paths.
	AppName = "picdedup"

	// ThumbnailDirName is the directory inside a working directory that holds
	// the thumbnails the pipeline reads.
	ThumbnailDirName = "thumbnail"

	// MappingFileName is the thumbnail-to-source table written next to the
	// thumbnail directory.
	MappingFileName = "mapping.txt"

	// DefaultHashPrecision is the side length, in pixels, images are reduced
	// to before hashing.
	DefaultHashPrecision = 16

	// MinHashPrecision is the smallest precision the perceptual hash accepts.
	MinHashPrecision = 8

	// DefaultORBFeatures is the number of keypoints extracted per image.
	DefaultORBFeatures = 500

	// DefaultORBThreshold is the fraction of DefaultORBFeatures that must
	// match for two images to be similar.
	DefaultORBThreshold = 0.5

	// DefaultORBMaxDistance is the largest Hamming distance, out of 256 bits,
	// at which two keypoint descriptors still count as a match.
	DefaultORBMaxDistance = 64

	// DefaultThumbnailSize is the side length of generated thumbnails.
	DefaultThumbnailSize = 256

	// DefaultThumbnailQuality is the JPEG quality of generated thumbnails.
	DefaultThumbnailQuality = 85
)

// DetectorSpec describes one stage of the detector chain.
// Only the fields relevant to Kind are read.
type DetectorSpec struct {
	// Kind is KindHash or KindORB.
	Kind string `yaml:"kind"`

	// Precision is the hash resize side length (hash only).
	Precision int `yaml:"precision,omitempty"`

	// Features is the number of keypoints per image (orb only).
	Features int `yaml:"features,omitempty"`

	// Threshold is the fraction of Features that must match (orb only).
	Threshold float64 `yaml:"threshold,omitempty"`

	// MaxDistance is the Hamming distance cutoff for a match (orb only).
	// Zero means DefaultORBMaxDistance.
	MaxDistance int `yaml:"maxDistance,omitempty"`
}

// Validate checks a single detector specification.
func (s DetectorSpec) Validate() error {
	switch s.Kind {
	case KindHash:
		if s.Precision < MinHashPrecision {
			return ErrInvalidPrecision
		}
	case KindORB:
		if s.Features <= 0 {
			return ErrInvalidFeatures
		}
		if s.Threshold <= 0 || s.Threshold > 1 {
			return ErrInvalidThreshold
		}
		if s.MaxDistance < 0 || s.MaxDistance > 256 {
			return ErrInvalidMaxDistance
		}
	default:
		return ErrUnknownDetector
	}
	return nil
}

// DefaultDetectors returns the detector chain used when no configuration
// file names one: a single perceptual hash stage.
func DefaultDetectors() []DetectorSpec {
	return []DetectorSpec{
		{Kind: KindHash, Precision: DefaultHashPrecision},
	}
}

// Config holds all configuration options for picdedup.
// It is populated from the configuration file and CLI flags and passed
// through the application rather than kept in global state.
type Config struct {
	// Detectors is the ordered detector chain. Stage i runs Detectors[i].
	Detectors []DetectorSpec

	// Workers bounds how many groups are detected concurrently within a stage.
	Workers int

	// Verbose enables debug log output.
	Verbose bool

	// ConfigFilePath is the explicit configuration file path, if any.
	ConfigFilePath string

	// JSONReport prints the summary as JSON. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport prints the summary as Markdown. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile writes the summary to a file instead of stdout.
	ReportFile string

	// DBDir is the directory holding the history database.
	// Defaults to the XDG data directory.
	DBDir string

	// SaveToDB records runs and thumbnail mappings in the history database.
	SaveToDB bool

	// MetricsFile, when set, receives pipeline metrics in the Prometheus
	// text exposition format.
	MetricsFile string

	// ThumbnailSize is the side length of generated thumbnails.
	ThumbnailSize int

	// ThumbnailGrayscale converts thumbnails to grayscale.
	ThumbnailGrayscale bool

	// ThumbnailQuality is the JPEG quality of generated thumbnails.
	ThumbnailQuality int
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Detectors:          DefaultDetectors(),
		Workers:            runtime.NumCPU(),
		DBDir:              XDGDataDir(),
		SaveToDB:           true,
		ThumbnailSize:      DefaultThumbnailSize,
		ThumbnailGrayscale: true,
		ThumbnailQuality:   DefaultThumbnailQuality,
	}
}

// XDGDataDir returns the XDG data directory for picdedup.
// On Linux: ~/.local/share/picdedup
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for picdedup.
// On Linux: ~/.config/picdedup
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid and returns the first
// problem found.
func (c *Config) Validate() error {
	if len(c.Detectors) == 0 {
		return ErrNoDetectors
	}
	for i, spec := range c.Detectors {
		if err := spec.Validate(); err != nil {
			return &DetectorError{Index: i, Kind: spec.Kind, Err: err}
		}
	}

	if c.Workers <= 0 {
		return ErrInvalidWorkers
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	if c.ThumbnailSize <= 0 {
		return ErrInvalidThumbnailSize
	}

	if c.ThumbnailQuality < 1 || c.ThumbnailQuality > 100 {
		return ErrInvalidThumbnailQuality
	}

	return nil
}
