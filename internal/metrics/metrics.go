package metrics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "picdedup"

// Recorder collects pipeline metrics. A nil *Recorder discards everything,
// so callers never need to check whether metrics are enabled.
type Recorder struct {
	registry *prometheus.Registry

	images        prometheus.Counter
	failed        prometheus.Counter
	stageGroups   *prometheus.GaugeVec
	stageUnique   *prometheus.GaugeVec
	stageRemoved  *prometheus.GaugeVec
	stageDuration *prometheus.HistogramVec
}

// NewRecorder creates a Recorder with its own registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		images: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "images_total",
			Help:      "Number of thumbnails fed into the pipeline.",
		}),
		failed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "images_failed_total",
			Help:      "Number of thumbnails a detector could not read.",
		}),
		stageGroups: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stage_groups",
			Help:      "Similarity groups left after each stage.",
		}, []string{"stage", "detector"}),
		stageUnique: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stage_unique",
			Help:      "Images proven unique after each stage.",
		}, []string{"stage", "detector"}),
		stageRemoved: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stage_removed_groups",
			Help:      "Groups of each stage dissolved by the following stage.",
		}, []string{"stage", "detector"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "stage_duration_seconds",
			Help:      "Time spent detecting and merging one stage.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 10),
		}, []string{"detector"}),
	}

	r.registry.MustRegister(
		r.images,
		r.failed,
		r.stageGroups,
		r.stageUnique,
		r.stageRemoved,
		r.stageDuration,
	)
	return r
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// AddImages counts thumbnails entering the pipeline.
func (r *Recorder) AddImages(n int) {
	if r == nil {
		return
	}
	r.images.Add(float64(n))
}

// AddFailed counts unreadable thumbnails.
func (r *Recorder) AddFailed(n int) {
	if r == nil {
		return
	}
	r.failed.Add(float64(n))
}

// ObserveStage records the outcome of one completed stage.
func (r *Recorder) ObserveStage(index int, kind string, unique, groups int, elapsed time.Duration) {
	if r == nil {
		return
	}
	stage := strconv.Itoa(index)
	r.stageUnique.WithLabelValues(stage, kind).Set(float64(unique))
	r.stageGroups.WithLabelValues(stage, kind).Set(float64(groups))
	r.stageDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// ObserveRemoved records how many groups of a stage the next stage dissolved.
func (r *Recorder) ObserveRemoved(index int, kind string, removed int) {
	if r == nil {
		return
	}
	r.stageRemoved.WithLabelValues(strconv.Itoa(index), kind).Set(float64(removed))
}

// WriteTextfile writes all metrics to path in the text exposition format.
// The file is replaced atomically.
func (r *Recorder) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
