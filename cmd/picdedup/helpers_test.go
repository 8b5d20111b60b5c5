package main

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/nao1215/picdedup/internal/config"
)

// solidImage returns a w x h image filled with c.
func solidImage(w, h int, c color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, c)
		}
	}
	return img
}

// splitImage returns a square image that is black on the left half and
// white on the right half.
func splitImage(size int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := range size {
		for x := range size {
			if x < size/2 {
				img.Set(x, y, color.Black)
			} else {
				img.Set(x, y, color.White)
			}
		}
	}
	return img
}

// writePNG encodes img to path, creating parent directories.
func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		t.Fatalf("failed to create directory: %v", err)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode png: %v", err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

// newThumbnailWorkdir creates a working directory whose thumbnail directory
// holds two identical images (a.png, b.png) and one distinct image (c.png).
func newThumbnailWorkdir(t *testing.T) string {
	t.Helper()
	workdir := t.TempDir()
	thumbDir := filepath.Join(workdir, config.ThumbnailDirName)
	red := solidImage(64, 64, color.RGBA{R: 200, A: 255})
	writePNG(t, filepath.Join(thumbDir, "a.png"), red)
	writePNG(t, filepath.Join(thumbDir, "b.png"), red)
	writePNG(t, filepath.Join(thumbDir, "c.png"), splitImage(64))
	return workdir
}

// writeChainConfig writes a configuration file with a single hash stage and
// returns its path. Tests pass it with -c so no .picdedup from the home
// directory is picked up.
func writeChainConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), config.DefaultConfigFile)
	content := "detectors:\n  - kind: hash\n    precision: 16\nthumbnail:\n  size: 64\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

// executeRoot runs the root command with args and returns stdout and stderr.
func executeRoot(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// discardLogger returns a logger that drops every record.
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
