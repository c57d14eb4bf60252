package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"glyph-skeleton/internal/logger"
	"glyph-skeleton/internal/mask"
	"glyph-skeleton/internal/opencv/conversion"

	"gocv.io/x/gocv"
)

// imageSaver writes processed masks as PNG files into a directory.
type imageSaver struct {
	dir    string
	logger logger.Logger
}

// outputName derives the file name: the source file's base name for path
// inputs, a sequence number otherwise.
func outputName(input interface{}, seq int) string {
	if path, ok := input.(string); ok && path != "" {
		base := filepath.Base(path)
		return strings.TrimSuffix(base, filepath.Ext(base)) + ".png"
	}
	return fmt.Sprintf("image-%04d.png", seq)
}

func (s *imageSaver) save(name string, m *mask.Mask) (string, error) {
	if m.Width() == 0 || m.Height() == 0 {
		return "", fmt.Errorf("no image data to save")
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create image dir: %w", err)
	}

	mat, err := conversion.MaskToMat(m)
	if err != nil {
		return "", err
	}
	defer mat.Close()

	path := filepath.Join(s.dir, name)
	if ok := gocv.IMWrite(path, mat.GetMat()); !ok {
		return "", fmt.Errorf("failed to write %s", path)
	}

	s.logger.Debug("ImageSaver", "image saved", map[string]interface{}{
		"path":   path,
		"width":  m.Width(),
		"height": m.Height(),
	})
	return path, nil
}
