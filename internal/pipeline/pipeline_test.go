package pipeline

import (
	"errors"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"glyph-skeleton/internal/logger"
	"glyph-skeleton/internal/mask"
	"glyph-skeleton/internal/processors"
	"glyph-skeleton/internal/results"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

// fakeBinarizer treats *mask.Mask inputs as already binarized.
type fakeBinarizer struct{ calls int }

func (f *fakeBinarizer) Binarize(input interface{}) (*mask.Mask, error) {
	f.calls++
	m, ok := input.(*mask.Mask)
	if !ok {
		return nil, fmt.Errorf("%w: got %T", ErrInvalidInputType, input)
	}
	return m.Clone(), nil
}

// identityMorphology records calls and leaves masks unchanged.
type identityMorphology struct{ calls []string }

func (m *identityMorphology) Erode(in *mask.Mask, _ int) (*mask.Mask, error) {
	m.calls = append(m.calls, "erode")
	return in.Clone(), nil
}

func (m *identityMorphology) Dilate(in *mask.Mask, _ int) (*mask.Mask, error) {
	m.calls = append(m.calls, "dilate")
	return in.Clone(), nil
}

var (
	tee  = mask.Parse("#####\n..#..\n..#..")
	line = mask.Parse(".....\n#####\n.....")
	ring = mask.Parse(".###.\n#...#\n#...#\n#...#\n.###.")
)

func newTestPipeline(t *testing.T, opts ...Option) (*Pipeline, *fakeBinarizer, string) {
	t.Helper()
	dest := filepath.Join(t.TempDir(), "skeletons.csv")
	bin := &fakeBinarizer{}
	acc := results.NewAccumulator(logger.Nop())
	t.Cleanup(func() { acc.Close() })
	opts = append([]Option{WithDestination(dest)}, opts...)
	return New(bin, &identityMorphology{}, acc, processors.Default(), opts...), bin, dest
}

func TestProcess_SequentialIDs(t *testing.T) {
	p, _, dest := newTestPipeline(t)
	images := []*mask.Mask{tee, line, mask.New(5, 5), ring, tee}

	for i, img := range images {
		out, err := p.Process(img, DefaultOptions())
		if err != nil {
			t.Fatalf("image %d: %v", i, err)
		}
		if out.SkeletonID != i+1 {
			t.Errorf("image %d: SkeletonID = %d, want %d", i, out.SkeletonID, i+1)
		}
	}

	rows := p.Accumulator().Rows()
	want := map[int]int{1: 3, 2: 1, 4: 1, 5: 3}
	if diff := cmp.Diff(want, rows.BySkeleton()); diff != "" {
		t.Errorf("rows per skeleton mismatch:\n%s", diff)
	}
	if got := p.Accumulator().Counter(); got != len(images) {
		t.Errorf("Counter = %d, want %d", got, len(images))
	}

	persisted, err := results.ReadCSVFile(dest)
	if err != nil {
		t.Fatalf("ReadCSVFile: %v", err)
	}
	if len(persisted) != len(rows) {
		t.Errorf("persisted %d rows, want %d", len(persisted), len(rows))
	}
}

func TestProcess_EmptyImageStillCounts(t *testing.T) {
	p, _, dest := newTestPipeline(t)
	out, err := p.Process(mask.New(10, 10), DefaultOptions())
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if out.SkeletonID != 1 || len(out.Records) != 0 {
		t.Errorf("SkeletonID = %d, records = %d", out.SkeletonID, len(out.Records))
	}
	if _, err := os.Stat(dest); err != nil {
		t.Errorf("table not flushed: %v", err)
	}
}

func TestProcess_Classification(t *testing.T) {
	p, _, _ := newTestPipeline(t)

	opts := DefaultOptions()
	opts.ClassLabel = "A"
	out, err := p.Process(tee, opts)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !out.Classified {
		t.Fatal("labelled run was not classified")
	}
	summary, ok := out.Result.(processors.Summary)
	if !ok {
		t.Fatalf("Result = %#v, want processors.Summary", out.Result)
	}
	if summary.Processor != "AProcessor" || summary.Branches != 3 {
		t.Errorf("summary = %+v", summary)
	}

	out, err = p.Process(line, DefaultOptions())
	if err != nil {
		t.Fatal(err)
	}
	if out.Classified || out.Result != processors.NoResult {
		t.Errorf("unlabelled run: Classified=%v Result=%v", out.Classified, out.Result)
	}
	if out.SkeletonID != 2 {
		t.Errorf("unlabelled run still accumulates; SkeletonID = %d, want 2", out.SkeletonID)
	}
}

func TestProcess_UnknownLabelChangesNothing(t *testing.T) {
	p, bin, dest := newTestPipeline(t)
	opts := DefaultOptions()
	opts.ClassLabel = "Z"

	_, err := p.Process(tee, opts)
	if !errors.Is(err, ErrUnknownProcessorClass) {
		t.Fatalf("Process = %v, want ErrUnknownProcessorClass", err)
	}
	if bin.calls != 0 {
		t.Errorf("binarizer ran %d times", bin.calls)
	}
	if got := p.Accumulator().Counter(); got != 0 {
		t.Errorf("Counter = %d after rejected label", got)
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Errorf("table written after rejected label: %v", err)
	}
}

func TestProcess_InvalidIterations(t *testing.T) {
	p, bin, _ := newTestPipeline(t)
	for _, n := range []int{0, -1} {
		opts := DefaultOptions()
		opts.Erode = true
		opts.Iterations = n
		if _, err := p.Process(tee, opts); !errors.Is(err, ErrInvalidIterationCount) {
			t.Errorf("iterations %d: err = %v", n, err)
		}
	}
	if bin.calls != 0 {
		t.Errorf("binarizer ran %d times", bin.calls)
	}
}

func TestProcess_InvalidInput(t *testing.T) {
	p, _, _ := newTestPipeline(t)
	if _, err := p.Process(3.14, DefaultOptions()); !errors.Is(err, ErrInvalidInputType) {
		t.Errorf("Process(float) = %v, want ErrInvalidInputType", err)
	}
	if got := p.Accumulator().Counter(); got != 0 {
		t.Errorf("Counter = %d after failed binarization", got)
	}
}

func TestProcess_WithoutSkeleton(t *testing.T) {
	p, _, dest := newTestPipeline(t)
	opts := Options{Erode: true, Dilate: true, Iterations: 2, ClassLabel: "A"}

	out, err := p.Process(tee, opts)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if out.Result != processors.NoResult || out.Classified || out.SkeletonID != 0 {
		t.Errorf("output = %+v", out)
	}
	if diff := cmp.Diff([]string{"erode", "dilate"}, out.Stages); diff != "" {
		t.Errorf("stages mismatch:\n%s", diff)
	}
	if got := p.Accumulator().Counter(); got != 0 {
		t.Errorf("Counter = %d without skeletonization", got)
	}
	if _, err := os.Stat(dest); !os.IsNotExist(err) {
		t.Errorf("table written without skeletonization: %v", err)
	}
}

func TestProcess_OutputImage(t *testing.T) {
	p, _, _ := newTestPipeline(t)
	out, err := p.Process(line, Options{Iterations: 1})
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range out.Image.Pix {
		want := uint8(0)
		if line.At(i%line.Width(), i/line.Width()) {
			want = 255
		}
		if v != want {
			t.Fatalf("pixel %d = %d, want %d", i, v, want)
		}
	}
}

func TestProcess_NoDestination(t *testing.T) {
	acc := results.NewAccumulator(logger.Nop())
	p := New(&fakeBinarizer{}, &identityMorphology{}, acc, processors.Default())
	if _, err := p.Process(line, DefaultOptions()); !errors.Is(err, ErrNoDestination) {
		t.Errorf("Process = %v, want ErrNoDestination", err)
	}

	opts := DefaultOptions()
	opts.Destination = filepath.Join(t.TempDir(), "override.csv")
	if _, err := p.Process(line, opts); err != nil {
		t.Errorf("Process with per-call destination: %v", err)
	}
}

func TestProcess_FlushFailureKeepsRows(t *testing.T) {
	p, _, _ := newTestPipeline(t)
	opts := DefaultOptions()
	opts.Destination = filepath.Join(t.TempDir(), "missing", "table.csv")

	_, err := p.Process(tee, opts)
	if !errors.Is(err, ErrFlushFailed) {
		t.Fatalf("Process = %v, want ErrFlushFailed", err)
	}
	if got := len(p.Accumulator().Rows()); got != 3 {
		t.Errorf("rows after failed flush = %d, want 3", got)
	}
}

func TestProcess_IndependentPipelines(t *testing.T) {
	const pipelines, images = 4, 6

	var g errgroup.Group
	accs := make([]*results.Accumulator, pipelines)
	for i := 0; i < pipelines; i++ {
		acc := results.NewAccumulator(logger.Nop())
		accs[i] = acc
		dest := filepath.Join(t.TempDir(), fmt.Sprintf("p%d.csv", i))
		p := New(&fakeBinarizer{}, &identityMorphology{}, acc, processors.Default(), WithDestination(dest))

		g.Go(func() error {
			for j := 0; j < images; j++ {
				if _, err := p.Process(tee, DefaultOptions()); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}

	want := make(map[int]int)
	for id := 1; id <= images; id++ {
		want[id] = 3
	}
	for i, acc := range accs {
		if diff := cmp.Diff(want, acc.Rows().BySkeleton()); diff != "" {
			t.Errorf("pipeline %d rows mismatch:\n%s", i, diff)
		}
		acc.Close()
	}
}

func TestProcess_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	if err != nil {
		t.Fatal(err)
	}
	p, _, _ := newTestPipeline(t, WithMetrics(m))

	for _, img := range []*mask.Mask{tee, line} {
		if _, err := p.Process(img, DefaultOptions()); err != nil {
			t.Fatal(err)
		}
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	got := make(map[string]float64)
	for _, mf := range families {
		for _, metric := range mf.GetMetric() {
			if c := metric.GetCounter(); c != nil {
				name := mf.GetName()
				for _, l := range metric.GetLabel() {
					name += "/" + l.GetValue()
				}
				got[name] = c.GetValue()
			}
		}
	}
	want := map[string]float64{
		"glyphskel_images_processed_total":                        2,
		"glyphskel_branches_extracted_total/endpoint-to-junction": 3,
		"glyphskel_branches_extracted_total/endpoint-to-endpoint": 1,
		"glyphskel_flush_failures_total":                          0,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("counters mismatch (-want +got):\n%s", diff)
	}

	if _, err := NewMetrics(reg); err == nil {
		t.Error("registering twice should fail")
	}

	path := filepath.Join(t.TempDir(), "glyphskel.prom")
	if err := WriteTextfile(path, reg); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	if info, err := os.Stat(path); err != nil || info.Size() == 0 {
		t.Errorf("metrics file missing or empty: %v", err)
	}
}

func TestProcess_SavesImages(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "images")
	p, _, _ := newTestPipeline(t, WithImageDir(dir))

	out, err := p.Process(line, DefaultOptions())
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if want := filepath.Join(dir, "image-0001.png"); out.SavedPath != want {
		t.Fatalf("SavedPath = %q, want %q", out.SavedPath, want)
	}

	f, err := os.Open(out.SavedPath)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode saved image: %v", err)
	}
	if img.Bounds() != line.Bounds() {
		t.Errorf("saved bounds = %v, want %v", img.Bounds(), line.Bounds())
	}
}

func TestOutputName(t *testing.T) {
	if got := outputName("/data/glyphs/a_07.jpg", 3); got != "a_07.png" {
		t.Errorf("outputName(path) = %q", got)
	}
	if got := outputName([]byte{1}, 12); got != "image-0012.png" {
		t.Errorf("outputName(bytes) = %q", got)
	}
}
