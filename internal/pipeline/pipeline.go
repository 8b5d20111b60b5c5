package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/nao1215/picdedup/internal/config"
	"github.com/nao1215/picdedup/internal/descriptor"
	"github.com/nao1215/picdedup/internal/detector"
	"github.com/nao1215/picdedup/internal/metrics"
	"github.com/nao1215/picdedup/internal/model"
)

// StageRecord summarizes one stage once its descriptor file is written.
type StageRecord struct {
	// Index is the 0-based stage number.
	Index int `json:"index"`

	// Kind is the detector type name.
	Kind string `json:"kind"`

	// FileName is the descriptor file name inside the working directory.
	FileName string `json:"file_name"`

	// Unique is the number of images proven unique up to this stage.
	Unique int `json:"unique"`

	// Groups is the number of similarity groups left after this stage.
	Groups int `json:"groups"`

	// Removed is the number of this stage's groups the next stage dissolved.
	Removed int `json:"removed"`

	// NewUnique is the number of images the next stage proved unique.
	NewUnique int `json:"new_unique"`

	// Failed is the number of images this stage could not read.
	Failed int `json:"failed"`

	// Duration is the time spent detecting and merging the stage.
	Duration time.Duration `json:"duration"`
}

// Deduplicator runs a detector chain over a working directory.
type Deduplicator struct {
	// detectors is the ordered chain; stage i runs detectors[i].
	detectors []detector.Detector

	// logger is used for structured logging during execution.
	logger *slog.Logger

	// workers bounds how many groups of a stage are detected at once.
	workers int

	// clock supplies the stage completion time used in file names.
	clock func() time.Time

	// progress receives per-image progress of the first stage.
	progress detector.ProgressFunc

	// metrics records stage outcomes. nil disables metrics.
	metrics *metrics.Recorder

	// observer is called after each descriptor file is written.
	observer func(StageRecord)
}

// Option is a function that configures a Deduplicator.
type Option func(*Deduplicator)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Deduplicator) {
		d.logger = logger
	}
}

// WithWorkers sets the maximum number of groups detected concurrently.
// The same number caps image decodes across all of a stage's groups, so
// detectors never decode more than n images at once in total.
// Default is runtime.NumCPU().
func WithWorkers(n int) Option {
	return func(d *Deduplicator) {
		if n > 0 {
			d.workers = n
		}
	}
}

// WithClock replaces time.Now for stage timestamps.
func WithClock(clock func() time.Time) Option {
	return func(d *Deduplicator) {
		if clock != nil {
			d.clock = clock
		}
	}
}

// WithProgress reports per-image progress of the first stage to fn.
func WithProgress(fn detector.ProgressFunc) Option {
	return func(d *Deduplicator) {
		d.progress = fn
	}
}

// WithMetrics records stage outcomes in r.
func WithMetrics(r *metrics.Recorder) Option {
	return func(d *Deduplicator) {
		d.metrics = r
	}
}

// WithStageObserver calls fn after each descriptor file is written,
// in stage order, from the goroutine running Run.
func WithStageObserver(fn func(StageRecord)) Option {
	return func(d *Deduplicator) {
		d.observer = fn
	}
}

// New creates a Deduplicator for the given detector chain.
// An empty chain is reported by Run as a ConfigurationError.
func New(detectors []detector.Detector, opts ...Option) *Deduplicator {
	d := &Deduplicator{
		detectors: detectors,
		workers:   runtime.NumCPU(),
		clock:     time.Now,
	}

	for _, opt := range opts {
		opt(d)
	}

	if d.logger == nil {
		d.logger = slog.Default()
	}

	return d
}

// Kinds returns the detector type names in stage order.
func (d *Deduplicator) Kinds() []string {
	kinds := make([]string, len(d.detectors))
	for i, det := range d.detectors {
		kinds[i] = det.Kind()
	}
	return kinds
}

// Run deduplicates the thumbnails in <workdir>/thumbnail and returns the
// final descriptor. Each stage's descriptor is written to workdir, the last
// one as descriptor_final.txt.
//
// Configuration problems are reported as *ConfigurationError before any file
// is written. A descriptor write failure stops the run with a
// *SerializationError. Cancelling ctx stops the run with ctx's error.
func (d *Deduplicator) Run(ctx context.Context, workdir string) (*model.Descriptor, error) {
	thumbDir, err := d.validate(workdir)
	if err != nil {
		return nil, err
	}

	images, err := collectThumbnails(thumbDir)
	if err != nil {
		return nil, &ConfigurationError{Err: err}
	}
	d.metrics.AddImages(len(images))

	d.logger.Info("starting deduplication",
		"workdir", workdir,
		"images", len(images),
		"stages", len(d.detectors),
		"workers", d.workers,
	)
	startTime := time.Now()

	acc := seedStage(images)
	for i, det := range d.detectors {
		if err := ctx.Err(); err != nil {
			d.logger.Warn("deduplication cancelled", "stage", i, "reason", err)
			return nil, err
		}

		next, err := d.runStage(ctx, i, det, acc)
		if err != nil {
			return nil, err
		}

		if !acc.isSeed() {
			if _, err := d.emit(workdir, acc, next); err != nil {
				return nil, err
			}
		}
		acc = next
	}

	final, err := d.emit(workdir, acc, nil)
	if err != nil {
		return nil, err
	}

	d.logger.Info("deduplication complete",
		"unique", len(final.Unique()),
		"groups", final.GroupCount(),
		"elapsed", time.Since(startTime),
	)
	return final, nil
}

// validate checks the detector chain and directory layout without touching
// the filesystem beyond stat calls. It returns the thumbnail directory.
func (d *Deduplicator) validate(workdir string) (string, error) {
	if len(d.detectors) == 0 {
		return "", &ConfigurationError{Err: config.ErrNoDetectors}
	}
	for i, det := range d.detectors {
		if det == nil {
			return "", &ConfigurationError{Err: fmt.Errorf("%w: detector %d is nil", config.ErrUnknownDetector, i)}
		}
	}

	if info, err := os.Stat(workdir); err != nil || !info.IsDir() {
		return "", &ConfigurationError{Err: fmt.Errorf("%w: %s", ErrInvalidWorkDir, workdir)}
	}

	thumbDir := filepath.Join(workdir, config.ThumbnailDirName)
	if info, err := os.Stat(thumbDir); err != nil || !info.IsDir() {
		return "", &ConfigurationError{Err: fmt.Errorf("%w: %s", ErrMissingThumbnailDir, thumbDir)}
	}
	return thumbDir, nil
}

// emit freezes cur against its successor next (nil for the last stage),
// writes the descriptor file and notifies the observer.
func (d *Deduplicator) emit(workdir string, cur, next *stage) (*model.Descriptor, error) {
	desc, err := cur.descriptor(next)
	if err != nil {
		return nil, fmt.Errorf("stage %d: %w", cur.index, err)
	}

	var (
		name string
		path string
	)
	if next == nil {
		name = descriptor.FinalFileName
		path = filepath.Join(workdir, name)
		err = descriptor.Save(path, desc, true)
	} else {
		name, err = d.saveStage(workdir, cur, desc)
		path = filepath.Join(workdir, name)
	}
	if err != nil {
		d.logger.Error("failed to write descriptor",
			"stage", cur.index,
			"path", path,
			"error", err,
		)
		return nil, &SerializationError{Path: path, Err: err}
	}

	d.metrics.ObserveRemoved(cur.index, cur.kind, desc.RemovedCount())

	record := StageRecord{
		Index:     cur.index,
		Kind:      cur.kind,
		FileName:  name,
		Unique:    len(desc.Unique()),
		Groups:    desc.GroupCount(),
		Removed:   desc.RemovedCount(),
		NewUnique: len(desc.NewUnique()),
		Failed:    cur.failed,
		Duration:  cur.duration,
	}
	d.logger.Debug("descriptor written",
		"stage", record.Index,
		"detector", record.Kind,
		"file", record.FileName,
		"removed", record.Removed,
		"new_unique", record.NewUnique,
	)
	if d.observer != nil {
		d.observer(record)
	}
	return desc, nil
}

// maxStageNameAttempts bounds how many one-second steps saveStage takes
// past a stage's completion time looking for a free file name.
const maxStageNameAttempts = 60

// saveStage writes an intermediate descriptor without replacing existing
// files and returns the file name used. A file that already holds the same
// descriptor, as left by an earlier run over an unchanged directory, is
// reused. Otherwise the timestamp in the name moves forward one second at a
// time until a free name is found.
func (d *Deduplicator) saveStage(workdir string, cur *stage, desc *model.Descriptor) (string, error) {
	var err error
	for i := range maxStageNameAttempts {
		name := descriptor.StageFileName(cur.index, cur.kind, cur.completed.Add(time.Duration(i)*time.Second))
		path := filepath.Join(workdir, name)
		err = descriptor.Save(path, desc, false)
		if err == nil {
			return name, nil
		}
		if !errors.Is(err, descriptor.ErrExists) {
			return name, err
		}
		if descriptor.HasContent(path, desc) {
			d.logger.Debug("descriptor already written", "stage", cur.index, "path", path)
			return name, nil
		}
	}
	return descriptor.StageFileName(cur.index, cur.kind, cur.completed), err
}
