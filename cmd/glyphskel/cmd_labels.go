package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"glyph-skeleton/internal/processors"
)

var labelsCmd = &cobra.Command{
	Use:   "labels",
	Short: "List the registered class labels",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		for _, label := range processors.Default().Labels() {
			fmt.Fprintln(cmd.OutOrStdout(), label)
		}
		return nil
	},
}
