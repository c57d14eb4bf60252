// Package pipeline binarizes an image, runs the optional morphology and
// thinning stages in a fixed order, and folds the skeleton's branches into the
// owned accumulator before dispatching them to a class processor.
package pipeline

import (
	"errors"
	"fmt"
	"image"
	"time"

	"glyph-skeleton/internal/logger"
	"glyph-skeleton/internal/mask"
	"glyph-skeleton/internal/processing/chain"
	"glyph-skeleton/internal/processing/filters"
	"glyph-skeleton/internal/processors"
	"glyph-skeleton/internal/results"
	"glyph-skeleton/internal/skelgraph"
)

// ErrNoDestination is returned when a skeletonizing run has nowhere to flush.
var ErrNoDestination = errors.New("no table destination configured")

// Options selects the stages of a single Process call.
type Options struct {
	Skeletonize bool
	Erode       bool
	Dilate      bool
	Iterations  int
	// ClassLabel picks the processor; empty skips classification.
	ClassLabel string
	// Destination overrides the pipeline's default table destination.
	Destination string
}

// DefaultOptions skeletonizes with one morphology iteration and no label.
func DefaultOptions() Options {
	return Options{
		Skeletonize: true,
		Iterations:  1,
	}
}

func (o Options) flags() chain.Flags {
	return chain.Flags{
		Erode:       o.Erode,
		Dilate:      o.Dilate,
		Skeletonize: o.Skeletonize,
		Iterations:  o.Iterations,
	}
}

// Output is the result of one Process call.
type Output struct {
	// Image is the final mask encoded as 0 (background) and 255 (foreground).
	Image *image.Gray
	Mask  *mask.Mask
	// Stages lists the optional stages that ran, in order.
	Stages []string
	// SkeletonID is 0 when the skeleton stage did not run.
	SkeletonID int
	Records    results.Table
	Stats      skelgraph.Stats
	Result     processors.Result
	Classified bool
	SavedPath  string
}

type Option func(*Pipeline)

// WithDestination sets the table destination used when Options leave it empty.
func WithDestination(destination string) Option {
	return func(p *Pipeline) { p.destination = destination }
}

// WithImageDir saves every processed image as PNG into dir.
func WithImageDir(dir string) Option {
	return func(p *Pipeline) {
		if dir != "" {
			p.saver = &imageSaver{dir: dir}
		}
	}
}

func WithMetrics(m *Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

func WithLogger(log logger.Logger) Option {
	return func(p *Pipeline) { p.logger = log }
}

// Pipeline is not safe for concurrent Process calls; independent pipelines
// with their own accumulators may run in parallel.
type Pipeline struct {
	binarizer   Binarizer
	chain       *chain.ProcessingChain
	accumulator *results.Accumulator
	registry    *processors.Registry
	metrics     *Metrics
	saver       *imageSaver
	logger      logger.Logger
	destination string
	processed   int
}

// New assembles a pipeline and seals the registry.
func New(binarizer Binarizer, morph Morphology, acc *results.Accumulator, registry *processors.Registry, opts ...Option) *Pipeline {
	p := &Pipeline{
		binarizer:   binarizer,
		chain:       chain.Standard(morph),
		accumulator: acc,
		registry:    registry,
		logger:      logger.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.saver != nil {
		p.saver.logger = p.logger
	}
	registry.Seal()
	return p
}

func (p *Pipeline) Accumulator() *results.Accumulator {
	return p.accumulator
}

func (p *Pipeline) Registry() *processors.Registry {
	return p.registry
}

// Process runs one image through the pipeline. Option and label errors are
// reported before any stage runs or any state changes.
func (p *Pipeline) Process(input interface{}, opts Options) (*Output, error) {
	start := time.Now()

	destination, err := p.validate(opts)
	if err != nil {
		return nil, err
	}

	stageStart := time.Now()
	binary, err := p.binarizer.Binarize(input)
	if err != nil {
		return nil, err
	}
	p.metrics.observeStage("binarize", time.Since(stageStart))

	final, ran, err := p.chain.Execute(binary, opts.flags(), p.metrics)
	if err != nil {
		return nil, err
	}

	out := &Output{
		Image:  final.Gray(),
		Mask:   final,
		Stages: ran,
		Result: processors.NoResult,
	}

	if opts.Skeletonize {
		if err := p.accumulate(out, destination, opts.ClassLabel); err != nil {
			return nil, err
		}
	}

	p.processed++
	if p.saver != nil {
		path, err := p.saver.save(outputName(input, p.processed), final)
		if err != nil {
			return nil, fmt.Errorf("save processed image: %w", err)
		}
		out.SavedPath = path
	}

	p.metrics.imageProcessed(out.Records)
	p.logger.Info("Pipeline", "image processed", map[string]interface{}{
		"skeleton_id": out.SkeletonID,
		"rows":        len(out.Records),
		"stages":      ran,
		"classified":  out.Classified,
		"duration":    time.Since(start).String(),
	})
	return out, nil
}

func (p *Pipeline) validate(opts Options) (string, error) {
	if err := filters.ValidateIterations(opts.Iterations); err != nil {
		return "", err
	}
	if !opts.Skeletonize {
		return "", nil
	}
	if opts.ClassLabel != "" && !p.registry.Has(opts.ClassLabel) {
		return "", fmt.Errorf("%w: %q", ErrUnknownProcessorClass, opts.ClassLabel)
	}

	destination := opts.Destination
	if destination == "" {
		destination = p.destination
	}
	if destination == "" {
		return "", ErrNoDestination
	}
	return destination, nil
}

// accumulate extracts the branch graph of the skeleton in out.Mask, appends
// it under a fresh skeleton id, flushes, and dispatches to the class
// processor.
func (p *Pipeline) accumulate(out *Output, destination, label string) error {
	stageStart := time.Now()
	id := p.accumulator.NextID()
	records := skelgraph.Extract(out.Mask, id)
	out.Stats = skelgraph.Analyze(out.Mask)
	p.metrics.observeStage("extract", time.Since(stageStart))

	out.SkeletonID = p.accumulator.Append(records)
	out.Records = p.accumulator.Latest()

	stageStart = time.Now()
	if err := p.accumulator.Flush(destination); err != nil {
		p.metrics.flushFailed()
		return err
	}
	p.metrics.observeStage("flush", time.Since(stageStart))

	if label == "" {
		return nil
	}

	stageStart = time.Now()
	result, err := p.registry.Dispatch(label, out.Records)
	if err != nil {
		return err
	}
	p.metrics.observeStage("dispatch", time.Since(stageStart))

	out.Result = result
	out.Classified = true
	return nil
}
