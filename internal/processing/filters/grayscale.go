package filters

import (
	"fmt"

	"glyph-skeleton/internal/opencv/safe"

	"gocv.io/x/gocv"
)

// ConvertToGrayscale reduces a BGR or BGRA Mat to one luminance channel
// (0.299 R + 0.587 G + 0.114 B). Single-channel input is cloned unchanged.
func ConvertToGrayscale(src *safe.Mat) (*safe.Mat, error) {
	if err := safe.ValidateMatForOperation(src, "grayscale conversion"); err != nil {
		return nil, err
	}

	if src.Channels() == 1 {
		return src.Clone()
	}

	dst, err := safe.NewTaggedMat(src.Rows(), src.Cols(), gocv.MatTypeCV8UC1, "grayscale")
	if err != nil {
		return nil, fmt.Errorf("destination Mat creation failed: %w", err)
	}

	srcMat := src.GetMat()
	dstMat := dst.GetMat()

	switch src.Channels() {
	case 3:
		gocv.CvtColor(srcMat, &dstMat, gocv.ColorBGRToGray)
	case 4:
		gocv.CvtColor(srcMat, &dstMat, gocv.ColorBGRAToGray)
	default:
		dst.Close()
		return nil, fmt.Errorf("unsupported channel count for grayscale conversion: %d", src.Channels())
	}

	if dst.Empty() {
		dst.Close()
		return nil, fmt.Errorf("grayscale conversion produced an empty Mat")
	}

	return dst, nil
}
