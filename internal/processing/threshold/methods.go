package threshold

import (
	"fmt"
	"math"
	"strings"
)

// Method selects how the binarization threshold is derived.
type Method string

const (
	MethodOtsu     Method = "otsu"
	MethodMean     Method = "mean"
	MethodMedian   Method = "median"
	MethodTriangle Method = "triangle"
	MethodFixed    Method = "fixed"
)

// ParseMethod accepts any casing; the empty string means Otsu.
func ParseMethod(name string) (Method, error) {
	switch m := Method(strings.ToLower(strings.TrimSpace(name))); m {
	case "":
		return MethodOtsu, nil
	case MethodOtsu, MethodMean, MethodMedian, MethodTriangle, MethodFixed:
		return m, nil
	default:
		return "", fmt.Errorf("unknown threshold method %q", name)
	}
}

// Calculator derives a threshold from a 256-bin intensity histogram.
type Calculator struct {
	method Method
	fixed  float64
}

func NewCalculator(method Method, fixed float64) *Calculator {
	return &Calculator{method: method, fixed: fixed}
}

func (c *Calculator) Method() Method {
	return c.method
}

func (c *Calculator) Calculate(histogram []int) float64 {
	switch c.method {
	case MethodFixed:
		return c.fixed
	case MethodMean:
		return calculateMeanThreshold(histogram)
	case MethodMedian:
		return calculateMedianThreshold(histogram)
	case MethodTriangle:
		return calculateTriangleThreshold(histogram)
	default:
		return calculateOtsuThreshold(histogram)
	}
}

func calculateOtsuThreshold(histogram []int) float64 {
	total := 0
	for _, count := range histogram {
		total += count
	}

	if total == 0 {
		return 127.5
	}

	// A single populated level is its own threshold, so a uniform image is
	// all background.
	levels, only := 0, 0
	for i, count := range histogram {
		if count > 0 {
			levels++
			only = i
		}
	}
	if levels == 1 {
		return float64(only)
	}

	sum := 0.0
	for i, count := range histogram {
		sum += float64(i) * float64(count)
	}

	sumB := 0.0
	wB := 0
	maxVariance := 0.0
	bestThreshold := 127.5

	for i := 0; i < len(histogram); i++ {
		wB += histogram[i]
		if wB == 0 {
			continue
		}

		wF := total - wB
		if wF == 0 {
			break
		}

		sumB += float64(i) * float64(histogram[i])
		mB := sumB / float64(wB)
		mF := (sum - sumB) / float64(wF)

		varBetween := float64(wB) * float64(wF) * (mB - mF) * (mB - mF)

		if varBetween > maxVariance {
			maxVariance = varBetween
			bestThreshold = float64(i)
		}
	}

	return bestThreshold
}

func calculateMeanThreshold(histogram []int) float64 {
	totalPixels := 0
	weightedSum := 0.0

	for i, count := range histogram {
		totalPixels += count
		weightedSum += float64(i) * float64(count)
	}

	if totalPixels == 0 {
		return 127.5
	}

	return weightedSum / float64(totalPixels)
}

func calculateMedianThreshold(histogram []int) float64 {
	totalPixels := 0
	for _, count := range histogram {
		totalPixels += count
	}

	if totalPixels == 0 {
		return 127.5
	}

	halfPixels := totalPixels / 2
	cumSum := 0

	for i, count := range histogram {
		cumSum += count
		if cumSum >= halfPixels {
			return float64(i)
		}
	}

	return 127.5
}

func calculateTriangleThreshold(histogram []int) float64 {
	maxCount := 0
	peakIndex := 0
	for i, count := range histogram {
		if count > maxCount {
			maxCount = count
			peakIndex = i
		}
	}

	last := len(histogram) - 1
	leftEnd := 0
	rightEnd := last

	for i := 0; i <= last; i++ {
		if histogram[i] > 0 {
			leftEnd = i
			break
		}
	}

	for i := last; i >= 0; i-- {
		if histogram[i] > 0 {
			rightEnd = i
			break
		}
	}

	maxDistance := 0.0
	bestThreshold := float64(peakIndex)

	// The longer tail decides which side of the peak is searched.
	farEnd := rightEnd
	if peakIndex-leftEnd > rightEnd-peakIndex {
		farEnd = leftEnd
	}

	x1, y1 := float64(peakIndex), float64(maxCount)
	x2, y2 := float64(farEnd), float64(histogram[farEnd])

	if x1 != x2 {
		norm := math.Hypot(y2-y1, x2-x1)
		for i := min(peakIndex, farEnd); i <= max(peakIndex, farEnd); i++ {
			distance := math.Abs((y2-y1)*float64(i)-(x2-x1)*float64(histogram[i])+x2*y1-y2*x1) / norm

			if distance > maxDistance {
				maxDistance = distance
				bestThreshold = float64(i)
			}
		}
	}

	return bestThreshold
}
