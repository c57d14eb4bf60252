package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"glyph-skeleton/internal/pipeline"
	"glyph-skeleton/internal/processors"
	"glyph-skeleton/internal/results"
)

func printOutput(w io.Writer, path string, out *pipeline.Output) {
	if out.SkeletonID == 0 {
		fmt.Fprintf(w, "%s: %dx%d, stages [%s], not skeletonized\n",
			path, out.Mask.Width(), out.Mask.Height(), strings.Join(out.Stages, " "))
		return
	}

	fmt.Fprintf(w, "%s: skeleton #%d, %d branches, length %.2f (%s)\n",
		path, out.SkeletonID, len(out.Records), out.Records.TotalLength(), formatCounts(out.Records))
	if out.Classified {
		fmt.Fprintf(w, "  result: %s\n", formatResult(out.Result))
	}
}

// formatCounts renders per-type branch counts in branch type order.
func formatCounts(table results.Table) string {
	counts := table.CountByType()
	kinds := make([]results.BranchType, 0, len(counts))
	for kind := range counts {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })

	parts := make([]string, 0, len(kinds))
	for _, kind := range kinds {
		parts = append(parts, fmt.Sprintf("%s=%d", kind, counts[kind]))
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ", ")
}

func formatResult(r processors.Result) string {
	if s, ok := r.(processors.Summary); ok {
		return fmt.Sprintf("%s: %d branches, length %.2f", s.Processor, s.Branches, s.TotalLength)
	}
	return fmt.Sprintf("%v", r)
}
