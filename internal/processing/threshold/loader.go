package threshold

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"glyph-skeleton/internal/logger"
	"glyph-skeleton/internal/opencv/conversion"
	"glyph-skeleton/internal/opencv/safe"

	"gocv.io/x/gocv"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Loader decodes raster files into Mats. OpenCV is tried first; Go decoders
// cover builds of OpenCV that lack a codec.
type Loader struct {
	logger logger.Logger
}

func NewLoader(log logger.Logger) *Loader {
	return &Loader{logger: log}
}

// LoadFile reads and decodes path. Missing, unreadable and undecodable files
// all yield ErrImageNotFound.
func (l *Loader) LoadFile(path string) (*safe.Mat, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrImageNotFound, path)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrImageNotFound, path, err)
	}

	l.logger.Debug("ImageLoader", "image data read", map[string]interface{}{
		"path":       path,
		"extension":  strings.ToLower(filepath.Ext(path)),
		"size_bytes": len(data),
	})

	mat, err := l.LoadBytes(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return mat, nil
}

// LoadBytes decodes an encoded image held in memory.
func (l *Loader) LoadBytes(data []byte) (*safe.Mat, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty image data", ErrImageNotFound)
	}

	format := "unknown"
	if _, name, err := image.DecodeConfig(bytes.NewReader(data)); err == nil {
		format = name
	}

	mat, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err == nil && !mat.Empty() {
		safeMat, adoptErr := safe.Adopt(mat, "loaded_image")
		if adoptErr == nil {
			l.logLoaded("opencv", format, safeMat)
			return safeMat, nil
		}
	} else if err == nil {
		mat.Close()
	}

	img, stdFormat, decodeErr := image.Decode(bytes.NewReader(data))
	if decodeErr != nil {
		return nil, fmt.Errorf("%w: undecodable image (format %s): %v", ErrImageNotFound, format, decodeErr)
	}

	safeMat, err := conversion.ImageToMat(img)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImageNotFound, err)
	}

	l.logLoaded("go", stdFormat, safeMat)
	return safeMat, nil
}

func (l *Loader) logLoaded(decoder, format string, mat *safe.Mat) {
	l.logger.Debug("ImageLoader", "image loaded", map[string]interface{}{
		"decoder":  decoder,
		"format":   format,
		"width":    mat.Cols(),
		"height":   mat.Rows(),
		"channels": mat.Channels(),
		"mat_id":   mat.ID(),
		"mat_tag":  mat.Tag(),
	})
}
