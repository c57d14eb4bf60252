package results

import (
	"errors"
	"fmt"
	"image"
	"sync"

	"glyph-skeleton/internal/logger"
)

// ErrFlushFailed wraps any failure to persist the table.
var ErrFlushFailed = errors.New("flush failed")

// Accumulator owns the running table and the skeleton id counter for one
// pipeline. Rows are only ever appended; a failed flush leaves them in place
// so the next flush can retry.
type Accumulator struct {
	mu      sync.Mutex
	counter int
	table   Table
	latest  int // index of the first row of the most recent Append
	sinks   map[string]Sink
	logger  logger.Logger
}

func NewAccumulator(log logger.Logger) *Accumulator {
	if log == nil {
		log = logger.Nop()
	}
	return &Accumulator{
		sinks:  make(map[string]Sink),
		logger: log,
	}
}

// NextID returns the id the next Append will assign.
func (a *Accumulator) NextID() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.counter + 1
}

// Append increments the counter, stamps the new id onto records that carry
// none (SkeletonID 0) and appends them in order. The counter advances even
// when records is empty.
func (a *Accumulator) Append(records []BranchRecord) int {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.counter++
	a.latest = len(a.table)
	for _, r := range records {
		if r.SkeletonID == 0 {
			r.SkeletonID = a.counter
		}
		r.Coordinates = append([]image.Point(nil), r.Coordinates...)
		a.table = append(a.table, r)
	}

	a.logger.Debug("Accumulator", "rows appended", map[string]interface{}{
		"skeleton_id": a.counter,
		"rows":        len(records),
		"total_rows":  len(a.table),
	})

	return a.counter
}

// Flush persists the whole table to destination. The sink is picked from the
// destination's extension (see NewSink) and kept for later flushes.
func (a *Accumulator) Flush(destination string) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if destination == "" {
		return fmt.Errorf("%w: empty destination", ErrFlushFailed)
	}

	sink, ok := a.sinks[destination]
	if !ok {
		sink = NewSink(destination)
		a.sinks[destination] = sink
	}

	if err := sink.Write(a.table); err != nil {
		a.logger.Error("Accumulator", err, map[string]interface{}{
			"destination": destination,
			"rows":        len(a.table),
		})
		return fmt.Errorf("%w: %s: %v", ErrFlushFailed, destination, err)
	}

	a.logger.Debug("Accumulator", "table flushed", map[string]interface{}{
		"destination": destination,
		"rows":        len(a.table),
	})
	return nil
}

// Rows returns a copy of the accumulated table.
func (a *Accumulator) Rows() Table {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append(Table(nil), a.table...)
}

// Latest returns a copy of the rows added by the most recent Append.
func (a *Accumulator) Latest() Table {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append(Table(nil), a.table[a.latest:]...)
}

// Counter returns the last id handed out; 0 before the first Append.
func (a *Accumulator) Counter() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.counter
}

// Close releases sink resources such as database handles.
func (a *Accumulator) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	var errs []error
	for dest, sink := range a.sinks {
		if err := sink.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", dest, err))
		}
	}
	a.sinks = make(map[string]Sink)
	return errors.Join(errs...)
}
