package main

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "glyphskel",
	Short: "Skeletonize glyph images and tabulate their branches",
	Long: "glyphskel binarizes character images, optionally erodes and dilates them,\n" +
		"thins them to a skeleton and appends the skeleton's branches to a table.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(tableCmd)
	rootCmd.AddCommand(labelsCmd)
	rootCmd.Version = version
}

func main() {
	configureRuntime()

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// configureRuntime raises the GC target for the large per-image allocations
// unless the caller tuned it already.
func configureRuntime() {
	if os.Getenv("GOGC") == "" {
		debug.SetGCPercent(200)
	}
}
