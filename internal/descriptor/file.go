package descriptor

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nao1215/picdedup/internal/config"
	"github.com/nao1215/picdedup/internal/model"
)

// FinalFileName is the fixed name of the last stage's descriptor.
// Downstream tools look for this name, so it never carries a timestamp.
const FinalFileName = "descriptor_final.txt"

// timestampLayout is yyyyMMddHHmmss.
const timestampLayout = "20060102150405"

// filePerm is the permission used for descriptor files.
const filePerm = 0o644

// StageFileName returns the file name for an intermediate stage descriptor:
// descriptor_<index>_<kind>_<yyyyMMddHHmmss>.txt.
func StageFileName(index int, kind string, t time.Time) string {
	return fmt.Sprintf("descriptor_%d_%s_%s.txt", index, kind, t.Format(timestampLayout))
}

// Save writes the descriptor to path.
//
// With overwrite false an existing file is never replaced and ErrExists is
// returned. With overwrite true the file is written to a temporary sibling
// and renamed into place, so readers never observe a half-written file.
func Save(path string, d *model.Descriptor, overwrite bool) error {
	if !overwrite {
		return saveExclusive(path, d)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".descriptor-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) //nolint:errcheck // no-op after a successful rename

	if err := Encode(tmp, d); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write descriptor: %w", err)
	}
	if err := tmp.Chmod(filePerm); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to set descriptor permissions: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close descriptor: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to move descriptor into place: %w", err)
	}
	return nil
}

// saveExclusive creates path, failing if it already exists.
func saveExclusive(path string, d *model.Descriptor) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, filePerm) //nolint:gosec // path is chosen by the pipeline
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%w: %s", ErrExists, path)
		}
		return fmt.Errorf("failed to create descriptor: %w", err)
	}

	if err := Encode(f, d); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return fmt.Errorf("failed to write descriptor: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return fmt.Errorf("failed to close descriptor: %w", err)
	}
	return nil
}

// HasContent reports whether the file at path holds exactly the encoding
// of d. Unreadable files report false.
func HasContent(path string, d *model.Descriptor) bool {
	existing, err := os.ReadFile(path) //nolint:gosec // path is chosen by the pipeline
	if err != nil {
		return false
	}
	var buf bytes.Buffer
	if err := Encode(&buf, d); err != nil {
		return false
	}
	return bytes.Equal(existing, buf.Bytes())
}

// Load reads a descriptor file. Image names are resolved against the
// thumbnail directory next to the file.
func Load(path string) (*model.Descriptor, error) {
	f, err := os.Open(path) //nolint:gosec // user-provided descriptor path is intentional
	if err != nil {
		return nil, err
	}
	defer f.Close()

	imageDir := filepath.Join(filepath.Dir(path), config.ThumbnailDirName)
	d, err := Decode(f, imageDir)
	if err != nil {
		var perr *ParseError
		if errors.As(err, &perr) {
			perr.Path = path
		}
		return nil, err
	}
	return d, nil
}

// IsDescriptorFile reports whether the file at path starts with the
// descriptor header. Unreadable files are reported as not descriptors.
func IsDescriptorFile(path string) bool {
	f, err := os.Open(path) //nolint:gosec // caller-provided path
	if err != nil {
		return false
	}
	defer f.Close()

	line, err := bufio.NewReader(f).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	return strings.TrimRight(line, "\r\n") == headerUnique
}
