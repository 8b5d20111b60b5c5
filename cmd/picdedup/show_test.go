package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nao1215/picdedup/internal/config"
	"github.com/nao1215/picdedup/internal/descriptor"
	"github.com/nao1215/picdedup/internal/model"
)

// writeFinalDescriptor saves a descriptor with unique a.jpg and one group
// [b.jpg c.jpg] into workdir and returns its path.
func writeFinalDescriptor(t *testing.T, workdir string) (string, *model.Descriptor) {
	t.Helper()
	thumbDir := filepath.Join(workdir, config.ThumbnailDirName)
	img := func(name string) model.Image { return model.NewImage(filepath.Join(thumbDir, name)) }

	d, err := model.NewDescriptor(
		model.NewImageSet(img("a.jpg")),
		[]model.Group{{img("b.jpg"), img("c.jpg")}},
		[]bool{false},
		model.NewImageSet(),
	)
	if err != nil {
		t.Fatalf("NewDescriptor() error = %v", err)
	}
	path := filepath.Join(workdir, descriptor.FinalFileName)
	if err := descriptor.Save(path, d, true); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	return path, d
}

func TestResolveDescriptorPath(t *testing.T) {
	t.Parallel()

	workdir := t.TempDir()
	path, _ := writeFinalDescriptor(t, workdir)

	tests := []struct {
		name string
		arg  string
		want string
	}{
		{name: "descriptor file", arg: path, want: path},
		{name: "working directory", arg: workdir, want: path},
		{name: "missing file is passed through", arg: filepath.Join(workdir, "nope.txt"), want: filepath.Join(workdir, "nope.txt")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := resolveDescriptorPath(tt.arg)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("resolveDescriptorPath() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestShowIndex(t *testing.T) {
	t.Parallel()

	workdir := t.TempDir()
	_, d := writeFinalDescriptor(t, workdir)
	sources := map[string]string{"c.jpg": "trip/IMG_0002.JPG"}

	t.Run("text output", func(t *testing.T) {
		t.Parallel()
		var buf bytes.Buffer
		if err := showIndex(&buf, config.NewConfig(), d, 2, sources); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := filepath.Join(workdir, config.ThumbnailDirName, "c.jpg") + "\nsource: trip/IMG_0002.JPG\n"
		if buf.String() != want {
			t.Errorf("got %q, want %q", buf.String(), want)
		}
	})

	t.Run("json output", func(t *testing.T) {
		t.Parallel()
		cfg := config.NewConfig()
		cfg.JSONReport = true
		var buf bytes.Buffer
		if err := showIndex(&buf, cfg, d, 0, nil); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		var got struct {
			Index int    `json:"index"`
			Name  string `json:"name"`
			Path  string `json:"path"`
		}
		if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if got.Index != 0 || got.Name != "a.jpg" || !strings.HasSuffix(got.Path, "a.jpg") {
			t.Errorf("unexpected entry: %+v", got)
		}
	})

	t.Run("out of range", func(t *testing.T) {
		t.Parallel()
		err := showIndex(&bytes.Buffer{}, config.NewConfig(), d, 3, nil)
		if !errors.Is(err, model.ErrIndexOutOfRange) {
			t.Errorf("expected ErrIndexOutOfRange, got %v", err)
		}
	})
}

func TestShowCmd(t *testing.T) {
	t.Parallel()

	workdir := t.TempDir()
	writeFinalDescriptor(t, workdir)
	mapping := "2024/beach.jpg*a\n2024/dup1.jpg*b\n2024/dup2.jpg*c\n"
	if err := os.WriteFile(filepath.Join(workdir, config.MappingFileName), []byte(mapping), 0o600); err != nil {
		t.Fatalf("failed to write mapping: %v", err)
	}

	t.Run("summary with sources", func(t *testing.T) {
		t.Parallel()
		out, _, err := executeRoot(t, "show", "--sources", "--unique", workdir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for _, want := range []string{"PICDEDUP SUMMARY", "UNIQUE IMAGES", "2024/beach.jpg", "2024/dup2.jpg"} {
			if !strings.Contains(out, want) {
				t.Errorf("expected output to contain %q\n%s", want, out)
			}
		}
	})

	t.Run("index with sources", func(t *testing.T) {
		t.Parallel()
		out, _, err := executeRoot(t, "show", "-s", "-i", "1", workdir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(out, "b.jpg\nsource: 2024/dup1.jpg") {
			t.Errorf("unexpected output: %q", out)
		}
	})

	t.Run("markdown to file", func(t *testing.T) {
		t.Parallel()
		reportPath := filepath.Join(t.TempDir(), "reports", "summary.md")
		if _, _, err := executeRoot(t, "show", "-m", "-o", reportPath, workdir); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		content, err := os.ReadFile(reportPath)
		if err != nil {
			t.Fatalf("failed to read report: %v", err)
		}
		if !strings.Contains(string(content), "# picdedup Summary") {
			t.Errorf("unexpected markdown:\n%s", content)
		}
	})

	t.Run("json and markdown conflict", func(t *testing.T) {
		t.Parallel()
		if _, _, err := executeRoot(t, "show", "-j", "-m", workdir); err == nil {
			t.Error("expected configuration error")
		}
	})

	t.Run("not a descriptor", func(t *testing.T) {
		t.Parallel()
		if _, _, err := executeRoot(t, "show", t.TempDir()); err == nil {
			t.Error("expected error for a directory without a descriptor")
		}
	})
}
