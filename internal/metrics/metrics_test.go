package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestRecorder(t *testing.T) {
	t.Parallel()

	t.Run("gathers recorded values", func(t *testing.T) {
		t.Parallel()

		r := NewRecorder()
		r.AddImages(10)
		r.AddFailed(1)
		r.ObserveStage(0, "HashDetector", 7, 1, 250*time.Millisecond)
		r.ObserveRemoved(0, "HashDetector", 1)

		families, err := r.Registry().Gather()
		if err != nil {
			t.Fatalf("gather failed: %v", err)
		}

		values := make(map[string]float64)
		for _, mf := range families {
			for _, m := range mf.GetMetric() {
				switch {
				case m.GetCounter() != nil:
					values[mf.GetName()] = m.GetCounter().GetValue()
				case m.GetGauge() != nil:
					values[mf.GetName()] = m.GetGauge().GetValue()
				case m.GetHistogram() != nil:
					values[mf.GetName()] = float64(m.GetHistogram().GetSampleCount())
				}
			}
		}

		want := map[string]float64{
			"picdedup_images_total":          10,
			"picdedup_images_failed_total":   1,
			"picdedup_stage_unique":          7,
			"picdedup_stage_groups":          1,
			"picdedup_stage_removed_groups":  1,
			"picdedup_stage_duration_seconds": 1,
		}
		for name, v := range want {
			if values[name] != v {
				t.Errorf("%s: expected %v, got %v", name, v, values[name])
			}
		}
	})

	t.Run("writes textfile", func(t *testing.T) {
		t.Parallel()

		r := NewRecorder()
		r.AddImages(3)
		r.ObserveStage(1, "ORBDetector", 2, 0, time.Second)

		path := filepath.Join(t.TempDir(), "picdedup.prom")
		if err := r.WriteTextfile(path); err != nil {
			t.Fatalf("write failed: %v", err)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read failed: %v", err)
		}
		content := string(data)
		for _, s := range []string{
			"picdedup_images_total 3",
			`picdedup_stage_unique{detector="ORBDetector",stage="1"} 2`,
		} {
			if !strings.Contains(content, s) {
				t.Errorf("expected %q in textfile:\n%s", s, content)
			}
		}
	})

	t.Run("nil recorder is a no-op", func(t *testing.T) {
		t.Parallel()

		var r *Recorder
		r.AddImages(1)
		r.AddFailed(1)
		r.ObserveStage(0, "HashDetector", 1, 1, time.Second)
		r.ObserveRemoved(0, "HashDetector", 1)
		if r.Registry() != nil {
			t.Error("expected nil registry")
		}
		if err := r.WriteTextfile(filepath.Join(t.TempDir(), "x.prom")); err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	})
}
