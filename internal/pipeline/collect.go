package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/nao1215/picdedup/internal/model"
)

// thumbnailExts are the accepted thumbnail extensions, lower-cased.
var thumbnailExts = map[string]bool{
	".jpg": true,
	".png": true,
}

// collectThumbnails lists the thumbnails directly inside dir, sorted by
// name. Dotfiles, directories and other extensions are ignored.
func collectThumbnails(dir string) ([]model.Image, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read thumbnail directory: %w", err)
	}

	var images []model.Image
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}
		if !thumbnailExts[strings.ToLower(filepath.Ext(name))] {
			continue
		}
		images = append(images, model.NewImage(filepath.Join(dir, name)))
	}
	return images, nil
}
