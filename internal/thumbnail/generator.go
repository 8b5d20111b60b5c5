package thumbnail

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"image/color"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"github.com/disintegration/imaging"
	"golang.org/x/sync/errgroup"

	"github.com/nao1215/picdedup/internal/config"
	"github.com/nao1215/picdedup/internal/model"
)

// sourceExts are the accepted source image extensions, lower-cased.
var sourceExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
}

// Result describes one Generate call.
type Result struct {
	// Mappings lists the thumbnails written, in source walk order.
	Mappings []model.Mapping `json:"mappings"`

	// Failed is the number of source images that could not be rendered.
	Failed int `json:"failed"`

	// SourceBytes is the total size of all source images found.
	SourceBytes int64 `json:"source_bytes"`

	// ThumbnailBytes is the total size of the thumbnails written.
	ThumbnailBytes int64 `json:"thumbnail_bytes"`

	// Elapsed is the wall time of the call.
	Elapsed time.Duration `json:"elapsed"`
}

// Generator renders thumbnails.
type Generator struct {
	size      int
	grayscale bool
	quality   int
	workers   int
	logger    *slog.Logger
	progress  func(done, total int)
}

// Option configures a Generator.
type Option func(*Generator)

// WithSize sets the side length of the square thumbnails.
func WithSize(size int) Option {
	return func(g *Generator) {
		if size > 0 {
			g.size = size
		}
	}
}

// WithGrayscale controls conversion to grayscale.
func WithGrayscale(grayscale bool) Option {
	return func(g *Generator) {
		g.grayscale = grayscale
	}
}

// WithQuality sets the JPEG quality (1-100).
func WithQuality(quality int) Option {
	return func(g *Generator) {
		if quality >= 1 && quality <= 100 {
			g.quality = quality
		}
	}
}

// WithWorkers bounds how many images are rendered at once.
func WithWorkers(n int) Option {
	return func(g *Generator) {
		if n > 0 {
			g.workers = n
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Generator) {
		g.logger = logger
	}
}

// WithProgress reports the number of rendered images to fn. fn may be
// called from several goroutines at once.
func WithProgress(fn func(done, total int)) Option {
	return func(g *Generator) {
		g.progress = fn
	}
}

// NewGenerator creates a Generator with 256 pixel grayscale thumbnails at
// JPEG quality 85 unless overridden.
func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		size:      config.DefaultThumbnailSize,
		grayscale: true,
		quality:   config.DefaultThumbnailQuality,
		workers:   runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(g)
	}
	if g.logger == nil {
		g.logger = slog.Default()
	}
	return g
}

// Generate renders every image under dir into <dir>/thumbnail, replacing
// whatever that directory held, and writes <dir>/mapping.txt.
//
// Hidden directories, hidden files and the thumbnail directory itself are
// skipped. Images that fail to render are logged and counted in
// Result.Failed; they do not stop the run.
func (g *Generator) Generate(ctx context.Context, dir string) (*Result, error) {
	start := time.Now()

	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, dir)
	}
	dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	sources, sourceBytes, err := collectSources(dir)
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoImages, dir)
	}
	g.logger.Info("found source images", "dir", dir, "images", len(sources), "bytes", sourceBytes)

	thumbDir := filepath.Join(dir, config.ThumbnailDirName)
	if err := os.RemoveAll(thumbDir); err != nil {
		return nil, fmt.Errorf("failed to remove old thumbnails: %w", err)
	}
	if err := os.MkdirAll(thumbDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create thumbnail directory: %w", err)
	}

	type outcome struct {
		ok          bool
		orientation int
		bytes       int64
	}
	outcomes := make([]outcome, len(sources))
	var done atomic.Int64

	eg, egctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.workers)
	for i, src := range sources {
		eg.Go(func() error {
			if err := egctx.Err(); err != nil {
				return err
			}

			name := EncodeName(i+1) + ".jpg"
			orientation, size, err := g.render(src, filepath.Join(thumbDir, name))
			if err != nil {
				g.logger.Warn("failed to render thumbnail", "source", src, "error", err)
			} else {
				outcomes[i] = outcome{ok: true, orientation: orientation, bytes: size}
			}

			if g.progress != nil {
				g.progress(int(done.Add(1)), len(sources))
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	result := &Result{SourceBytes: sourceBytes}
	for i, o := range outcomes {
		if !o.ok {
			result.Failed++
			continue
		}
		result.Mappings = append(result.Mappings, model.Mapping{
			Name:        EncodeName(i+1) + ".jpg",
			Source:      sources[i],
			Orientation: o.orientation,
		})
		result.ThumbnailBytes += o.bytes
	}

	if err := WriteMapping(filepath.Join(dir, config.MappingFileName), result.Mappings); err != nil {
		return nil, err
	}

	result.Elapsed = time.Since(start)
	g.logger.Info("thumbnails generated",
		"written", len(result.Mappings),
		"failed", result.Failed,
		"elapsed", result.Elapsed,
	)
	return result, nil
}

// render writes one thumbnail and returns the applied orientation and the
// thumbnail's size in bytes.
func (g *Generator) render(src, dst string) (int, int64, error) {
	data, err := os.ReadFile(src) //nolint:gosec // paths come from walking the user's directory
	if err != nil {
		return 0, 0, err
	}

	orientation := readOrientation(data)
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return 0, 0, fmt.Errorf("failed to decode: %w", err)
	}

	img = applyOrientation(img, orientation)
	if g.grayscale {
		img = imaging.Grayscale(img)
	}
	fitted := imaging.Fit(img, g.size, g.size, imaging.Lanczos)
	canvas := imaging.New(g.size, g.size, color.White)
	out := imaging.PasteCenter(canvas, fitted)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, out, imaging.JPEG, imaging.JPEGQuality(g.quality)); err != nil {
		return 0, 0, fmt.Errorf("failed to encode: %w", err)
	}
	if err := os.WriteFile(dst, buf.Bytes(), 0o644); err != nil { //nolint:gosec // thumbnails are meant to be readable
		return 0, 0, err
	}
	return orientation, int64(buf.Len()), nil
}

// collectSources walks dir in lexical order and returns the absolute paths
// of supported images and their total size.
func collectSources(dir string) ([]string, int64, error) {
	thumbDir := filepath.Join(dir, config.ThumbnailDirName)

	var (
		sources []string
		total   int64
	)
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		if d.IsDir() {
			if path != dir && (strings.HasPrefix(name, ".") || path == thumbDir) {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasPrefix(name, ".") || !sourceExts[strings.ToLower(filepath.Ext(name))] {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		sources = append(sources, path)
		total += info.Size()
		return nil
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to scan %s: %w", dir, err)
	}
	return sources, total, nil
}

// WriteMapping writes mapping lines "source*stem", where stem is the
// thumbnail name without its extension.
func WriteMapping(path string, mappings []model.Mapping) error {
	var buf bytes.Buffer
	for _, m := range mappings {
		buf.WriteString(m.Source)
		buf.WriteByte('*')
		buf.WriteString(strings.TrimSuffix(m.Name, filepath.Ext(m.Name)))
		buf.WriteByte('\n')
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil { //nolint:gosec // mapping is meant to be readable
		return fmt.Errorf("failed to write mapping: %w", err)
	}
	return nil
}

// ReadMapping parses a mapping file written by WriteMapping. Thumbnail names
// are returned with the ".jpg" extension; orientation is not recorded in the
// file and is reported as upright.
func ReadMapping(path string) ([]model.Mapping, error) {
	f, err := os.Open(path) //nolint:gosec // user-provided mapping path is intentional
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var mappings []model.Mapping
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		sep := strings.LastIndex(line, "*")
		if sep <= 0 || sep == len(line)-1 {
			return nil, fmt.Errorf("%s:%d: %w", path, lineNo, ErrMalformedMapping)
		}
		mappings = append(mappings, model.Mapping{
			Name:        line[sep+1:] + ".jpg",
			Source:      line[:sep],
			Orientation: orientationUpright,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return mappings, nil
}
