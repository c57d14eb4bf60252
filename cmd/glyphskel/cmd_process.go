package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"glyph-skeleton/internal/config"
	"glyph-skeleton/internal/logger"
	"glyph-skeleton/internal/pipeline"
	"glyph-skeleton/internal/processing/filters"
	"glyph-skeleton/internal/processing/threshold"
	"glyph-skeleton/internal/processors"
	"glyph-skeleton/internal/results"
)

var processFlags struct {
	configPath     string
	skeletonize    bool
	erode          bool
	dilate         bool
	iterations     int
	label          string
	output         string
	method         string
	thresholdValue float64
	saveImages     string
	metricsFile    string
	logLevel       string
}

var processCmd = &cobra.Command{
	Use:   "process <image>...",
	Short: "Run images through the skeleton pipeline",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runProcess,
}

func init() {
	f := processCmd.Flags()
	f.StringVarP(&processFlags.configPath, "config", "c", "", "YAML or JSON config file")
	f.BoolVar(&processFlags.skeletonize, "skeletonize", true, "Thin to a skeleton and extract branches")
	f.BoolVar(&processFlags.erode, "erode", false, "Erode before thinning")
	f.BoolVar(&processFlags.dilate, "dilate", false, "Dilate before thinning")
	f.IntVarP(&processFlags.iterations, "iterations", "n", 1, "Erosion and dilation iterations")
	f.StringVarP(&processFlags.label, "label", "l", "", "Class label selecting the processor")
	f.StringVarP(&processFlags.output, "output", "o", "skeletons.csv", "Table destination (.csv, .db, .sqlite)")
	f.StringVar(&processFlags.method, "threshold", "otsu", "Threshold method: otsu, mean, median, triangle, fixed")
	f.Float64Var(&processFlags.thresholdValue, "threshold-value", 127, "Threshold for the fixed method")
	f.StringVar(&processFlags.saveImages, "save-images", "", "Directory for processed PNG images")
	f.StringVar(&processFlags.metricsFile, "metrics-file", "", "Write Prometheus metrics to this file on exit")
	f.StringVar(&processFlags.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
}

// loadConfig merges the config file, if any, with flags set on the command
// line. Explicit flags win.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.Default()
	if processFlags.configPath != "" {
		loaded, err := config.LoadFromPath(processFlags.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	f := cmd.Flags()
	if f.Changed("skeletonize") {
		cfg.Skeletonize = processFlags.skeletonize
	}
	if f.Changed("erode") {
		cfg.Erode = processFlags.erode
	}
	if f.Changed("dilate") {
		cfg.Dilate = processFlags.dilate
	}
	if f.Changed("iterations") {
		cfg.Iterations = processFlags.iterations
	}
	if f.Changed("label") {
		cfg.ClassLabel = processFlags.label
	}
	if f.Changed("output") {
		cfg.Output = processFlags.output
	}
	if f.Changed("threshold") {
		cfg.Threshold.Method = processFlags.method
	}
	if f.Changed("threshold-value") {
		cfg.Threshold.Value = processFlags.thresholdValue
	}
	if f.Changed("save-images") {
		cfg.ImageDir = processFlags.saveImages
	}
	if f.Changed("metrics-file") {
		cfg.MetricsFile = processFlags.metricsFile
	}
	if f.Changed("log-level") {
		cfg.LogLevel = processFlags.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runProcess(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	log := logger.NewConsoleLogger(logger.ParseLevel(cfg.LogLevel))

	calc, err := cfg.Calculator()
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	metrics, err := pipeline.NewMetrics(reg)
	if err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	transformer := filters.NewTransformer()
	defer transformer.Close()

	acc := results.NewAccumulator(log)
	defer func() {
		if err := acc.Close(); err != nil {
			log.Error("CLI", err, nil)
		}
	}()

	p := pipeline.New(
		threshold.NewBinarizer(calc, log),
		transformer,
		acc,
		processors.Default(),
		pipeline.WithDestination(cfg.Output),
		pipeline.WithImageDir(cfg.ImageDir),
		pipeline.WithMetrics(metrics),
		pipeline.WithLogger(log),
	)

	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	start := time.Now()
	opts := cfg.Options()
	out := cmd.OutOrStdout()
	processed := 0

	for _, path := range args {
		if ctx.Err() != nil {
			log.Warning("CLI", "interrupted, stopping before next image", map[string]interface{}{
				"processed": processed,
				"remaining": len(args) - processed,
			})
			break
		}

		result, err := p.Process(path, opts)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		processed++
		printOutput(out, path, result)
	}

	log.Info("CLI", "batch finished", map[string]interface{}{
		"images":      processed,
		"rows":        len(acc.Rows()),
		"destination": cfg.Output,
		"duration":    time.Since(start).String(),
	})

	if cfg.MetricsFile != "" {
		if err := pipeline.WriteTextfile(cfg.MetricsFile, reg); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	return nil
}
