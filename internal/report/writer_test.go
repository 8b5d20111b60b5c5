package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/nao1215/picdedup/internal/model"
)

func img(name string) model.Image {
	return model.NewImage("/work/thumbnail/" + name)
}

// createTestDescriptor builds a descriptor with two unique images and two
// groups, the first of which was dissolved by the next stage.
func createTestDescriptor(t *testing.T) *model.Descriptor {
	t.Helper()

	d, err := model.NewDescriptor(
		model.NewImageSet(img("e.jpg"), img("c.jpg")),
		[]model.Group{
			{img("f.jpg"), img("h.jpg"), img("j.jpg")},
			{img("k.jpg"), img("m.jpg")},
		},
		[]bool{true, false},
		model.NewImageSet(img("f.jpg")),
	)
	if err != nil {
		t.Fatalf("failed to build descriptor: %v", err)
	}
	return d
}

func emptyDescriptor(t *testing.T) *model.Descriptor {
	t.Helper()

	d, err := model.NewDescriptor(model.NewImageSet(), nil, nil, model.NewImageSet())
	if err != nil {
		t.Fatalf("failed to build descriptor: %v", err)
	}
	return d
}

func TestNewSummary(t *testing.T) {
	t.Parallel()

	sources := map[string]string{"c.jpg": "/photos/a.jpg", "k.jpg": "/photos/x.png"}
	s := NewSummary("/work/descriptor_final.txt", createTestDescriptor(t), sources)

	if s.Images != 7 || s.Unique != 2 || s.Groups != 2 || s.Grouped != 5 {
		t.Errorf("unexpected counts %+v", s)
	}
	if s.Removed != 1 || s.NewUnique != 1 || s.LargestGroup != 3 {
		t.Errorf("unexpected derived counts %+v", s)
	}
	if s.Duplicates() != 3 {
		t.Errorf("expected 3 duplicates, got %d", s.Duplicates())
	}

	if s.UniqueImages[0].Name != "c.jpg" || s.UniqueImages[0].Source != "/photos/a.jpg" || s.UniqueImages[0].Index != 0 {
		t.Errorf("unexpected first unique entry %+v", s.UniqueImages[0])
	}
	if s.UniqueImages[1].Source != "" {
		t.Errorf("expected no source for e.jpg, got %q", s.UniqueImages[1].Source)
	}

	second := s.GroupDetails[1]
	if second.Removed || second.Members[0].Name != "k.jpg" || second.Members[0].Index != 5 {
		t.Errorf("unexpected second group %+v", second)
	}
	if !s.GroupDetails[0].Removed {
		t.Error("expected first group to be marked removed")
	}
}

// TestSimpleWriter tests the human-readable summary writer.
func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes header and counts", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(NewSummary("final.txt", createTestDescriptor(t), nil)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{"PICDEDUP SUMMARY", "Descriptor: final.txt", "Images:", "Largest group:"} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q", want)
			}
		}
		if strings.Contains(output, "GROUPS") {
			t.Error("expected group listing only in verbose mode")
		}
	})

	t.Run("uses thousands separators", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewSimpleWriter(&buf).Write(&Summary{Images: 12345, Unique: 12345}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "12,345") {
			t.Errorf("expected formatted count, got:\n%s", buf.String())
		}
	})

	t.Run("verbose lists groups and sources", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		sources := map[string]string{"k.jpg": "/photos/x.png"}
		w := NewSimpleWriter(&buf, WithVerbose(true), WithShowUnique(true))
		if _, err := w.Write(NewSummary("", createTestDescriptor(t), sources)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		for _, want := range []string{
			"UNIQUE IMAGES",
			"#0 c.jpg",
			"[1] 3 images (removed by next stage)",
			"[2] 2 images\n",
			"#5 k.jpg <- /photos/x.png",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q, got:\n%s", want, output)
			}
		}
	})

	t.Run("verbose with empty descriptor", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewSimpleWriter(&buf, WithVerbose(true), WithShowUnique(true))
		if _, err := w.Write(NewSummary("", emptyDescriptor(t), nil)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "No groups") || !strings.Contains(buf.String(), "No unique images") {
			t.Errorf("expected empty-section messages, got:\n%s", buf.String())
		}
	})
}

// TestMarkdownWriter tests the Markdown summary writer.
func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("writes tables, chart and alert", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		sources := map[string]string{"k.jpg": "/photos/a|b.png"}
		n, err := NewMarkdownWriter(&buf).Write(NewSummary("final.txt", createTestDescriptor(t), sources))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if n == 0 {
			t.Error("expected a non-zero byte count")
		}

		output := buf.String()
		for _, want := range []string{
			"# picdedup Summary",
			"## Counts",
			"| Metric",
			"```mermaid",
			"[!IMPORTANT]",
			"### Group 1 (removed by next stage)",
			"### Group 2",
			`/photos/a\|b.png`,
		} {
			if !strings.Contains(output, want) {
				t.Errorf("expected output to contain %q, got:\n%s", want, output)
			}
		}
	})

	t.Run("all unique gets a tip", func(t *testing.T) {
		t.Parallel()

		d, err := model.NewDescriptor(model.NewImageSet(img("c.jpg")), nil, nil, model.NewImageSet())
		if err != nil {
			t.Fatal(err)
		}

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(NewSummary("", d, nil)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "[!TIP]") || !strings.Contains(buf.String(), "No similarity groups.") {
			t.Errorf("unexpected output:\n%s", buf.String())
		}
	})

	t.Run("empty descriptor gets a note and no chart", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(NewSummary("", emptyDescriptor(t), nil)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(buf.String(), "[!NOTE]") {
			t.Errorf("expected a note, got:\n%s", buf.String())
		}
		if strings.Contains(buf.String(), "mermaid") {
			t.Error("expected no chart for an empty descriptor")
		}
	})
}

// TestJSONWriter tests the JSON summary writer.
func TestJSONWriter(t *testing.T) {
	t.Parallel()

	t.Run("compact output parses back", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewJSONWriter(&buf).Write(NewSummary("final.txt", createTestDescriptor(t), nil)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		output := buf.String()
		if !strings.HasSuffix(output, "\n") {
			t.Error("expected trailing newline")
		}
		if strings.Contains(strings.TrimSpace(output), "\n") {
			t.Error("expected compact output on one line")
		}

		var got Summary
		if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if got.Images != 7 || got.Groups != 2 || len(got.GroupDetails[0].Members) != 3 {
			t.Errorf("unexpected decoded summary %+v", got)
		}
	})

	t.Run("pretty print", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewJSONWriter(&buf, WithPrettyPrint())
		if _, err := w.WriteValue(map[string]int{"runs": 2}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if buf.String() != "{\n  \"runs\": 2\n}\n" {
			t.Errorf("unexpected output %q", buf.String())
		}
	})

	t.Run("custom indent", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		w := NewJSONWriter(&buf, WithIndent(">", "\t"))
		if _, err := w.WriteValue([]int{1}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if buf.String() != "[\n>\t1\n>]\n" {
			t.Errorf("unexpected output %q", buf.String())
		}
	})
}
