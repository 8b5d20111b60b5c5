package main

import (
	"encoding/json"
	"image/color"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/picdedup/internal/report"
)

// TestWorkflow runs thumbnail, dedup and show against one photo directory.
func TestWorkflow(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	red := solidImage(120, 60, color.RGBA{R: 220, G: 10, B: 10, A: 255})
	writePNG(t, filepath.Join(dir, "2024", "beach.png"), red)
	writePNG(t, filepath.Join(dir, "backup", "beach-copy.png"), red)
	writePNG(t, filepath.Join(dir, "2024", "sunset.png"), splitImage(90))
	cfgPath := writeChainConfig(t)

	if _, _, err := executeRoot(t, "thumbnail", "--no-history", "-c", cfgPath, dir); err != nil {
		t.Fatalf("thumbnail failed: %v", err)
	}

	out, _, err := executeRoot(t, "dedup", "--no-history", "-c", cfgPath, "--json", dir)
	if err != nil {
		t.Fatalf("dedup failed: %v", err)
	}
	var summary report.Summary
	if err := json.Unmarshal([]byte(out), &summary); err != nil {
		t.Fatalf("dedup output is not JSON: %v\n%s", err, out)
	}
	if summary.Images != 3 || summary.Groups != 1 || summary.Unique != 1 {
		t.Fatalf("unexpected counts: %+v", summary)
	}

	var sources []string
	for _, m := range summary.GroupDetails[0].Members {
		sources = append(sources, m.Source)
	}
	beach := filepath.Join(dir, "2024", "beach.png")
	beachCopy := filepath.Join(dir, "backup", "beach-copy.png")
	sunset := filepath.Join(dir, "2024", "sunset.png")
	got := strings.Join(sources, ",")
	if got != beach+","+beachCopy && got != beachCopy+","+beach {
		t.Errorf("group sources = %s, want %s and %s", got, beach, beachCopy)
	}
	if summary.UniqueImages[0].Source != sunset {
		t.Errorf("unique source = %q, want %q", summary.UniqueImages[0].Source, sunset)
	}

	out, _, err = executeRoot(t, "show", "--sources", "--index", "0", dir)
	if err != nil {
		t.Fatalf("show failed: %v", err)
	}
	if !strings.Contains(out, "source: "+sunset) {
		t.Errorf("unexpected show output: %q", out)
	}
}
