package main

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"glyph-skeleton/internal/results"
)

var tableCmd = &cobra.Command{
	Use:   "table <file>",
	Short: "Summarize a branch table per skeleton",
	Args:  cobra.ExactArgs(1),
	RunE:  runTable,
}

func runTable(cmd *cobra.Command, args []string) error {
	table, err := results.ReadTable(args[0])
	if err != nil {
		return fmt.Errorf("read table: %w", err)
	}

	groups := make(map[int]results.Table)
	for _, r := range table {
		groups[r.SkeletonID] = append(groups[r.SkeletonID], r)
	}
	ids := make([]int, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SKELETON\tBRANCHES\tLENGTH\tTYPES")
	for _, id := range ids {
		g := groups[id]
		fmt.Fprintf(w, "%d\t%d\t%.2f\t%s\n", id, len(g), g.TotalLength(), formatCounts(g))
	}
	fmt.Fprintf(w, "total\t%d\t%.2f\t%s\n", len(table), table.TotalLength(), formatCounts(table))
	return w.Flush()
}
