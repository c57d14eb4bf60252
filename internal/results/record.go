// Package results holds branch records and the accumulated, persisted table.
package results

import (
	"fmt"
	"image"
	"strconv"
	"strings"
)

// BranchType classifies a branch by the kinds of node at its two ends.
type BranchType int

const (
	EndpointToEndpoint BranchType = iota
	EndpointToJunction
	JunctionToJunction
	IsolatedCycle
)

var branchTypeNames = [...]string{
	EndpointToEndpoint: "endpoint-to-endpoint",
	EndpointToJunction: "endpoint-to-junction",
	JunctionToJunction: "junction-to-junction",
	IsolatedCycle:      "isolated-cycle",
}

func (t BranchType) String() string {
	if t < 0 || int(t) >= len(branchTypeNames) {
		return "unknown"
	}
	return branchTypeNames[t]
}

// ParseBranchType is the inverse of BranchType.String.
func ParseBranchType(name string) (BranchType, error) {
	for i, n := range branchTypeNames {
		if n == name {
			return BranchType(i), nil
		}
	}
	return 0, fmt.Errorf("unknown branch type %q", name)
}

// BranchRecord is one row of the table: a single branch of one image's skeleton.
type BranchRecord struct {
	BranchID    int
	SkeletonID  int
	Type        BranchType
	Length      float64
	Coordinates []image.Point
}

// Table is an ordered sequence of branch records.
type Table []BranchRecord

// TotalLength sums the branch lengths.
func (t Table) TotalLength() float64 {
	total := 0.0
	for _, r := range t {
		total += r.Length
	}
	return total
}

// CountByType tallies records per branch type.
func (t Table) CountByType() map[BranchType]int {
	counts := make(map[BranchType]int)
	for _, r := range t {
		counts[r.Type]++
	}
	return counts
}

// BySkeleton groups row counts by skeleton id.
func (t Table) BySkeleton() map[int]int {
	counts := make(map[int]int)
	for _, r := range t {
		counts[r.SkeletonID]++
	}
	return counts
}

// FormatCoordinates renders points as "x:y" pairs joined by ';'.
func FormatCoordinates(points []image.Point) string {
	parts := make([]string, len(points))
	for i, p := range points {
		parts[i] = strconv.Itoa(p.X) + ":" + strconv.Itoa(p.Y)
	}
	return strings.Join(parts, ";")
}

// ParseCoordinates is the inverse of FormatCoordinates.
func ParseCoordinates(s string) ([]image.Point, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ";")
	points := make([]image.Point, len(parts))
	for i, part := range parts {
		xs, ys, ok := strings.Cut(part, ":")
		if !ok {
			return nil, fmt.Errorf("malformed coordinate %q", part)
		}
		x, err := strconv.Atoi(xs)
		if err != nil {
			return nil, fmt.Errorf("malformed coordinate %q: %w", part, err)
		}
		y, err := strconv.Atoi(ys)
		if err != nil {
			return nil, fmt.Errorf("malformed coordinate %q: %w", part, err)
		}
		points[i] = image.Point{X: x, Y: y}
	}
	return points, nil
}
