package scanner

import (
	"sync"

	"github.com/heefoo/codeweave/internal/parser"
)

// fileUnit is one parsed file pending inclusion in a batch.
type fileUnit struct {
	FilePath string
	Blocks   []parser.CodeBlock
	Edges    []parser.CodeEdge
	// IsNew is true when the file had no prior hash cache entry. Only
	// modified (non-new) files need their old vector points deleted
	// before the batch's new points are upserted.
	IsNew bool
}

// Batch is a sealed group of files ready for batch processing.
type Batch struct {
	Files        []fileUnit
	SegmentCount int
}

// batchAccumulator atomically appends whole files to the in-progress
// batch and seals it once it reaches segmentThreshold, per spec §4.4: "a
// file is never split across batches."
type batchAccumulator struct {
	mu sync.Mutex

	segmentThreshold int
	current          Batch
}

func newBatchAccumulator(segmentThreshold int) *batchAccumulator {
	return &batchAccumulator{segmentThreshold: segmentThreshold}
}

// Append adds a file to the current batch. If the batch has reached the
// segment threshold, it returns the sealed batch and resets the
// accumulator; otherwise sealed is nil.
func (a *batchAccumulator) Append(f fileUnit) (sealed *Batch) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.current.Files = append(a.current.Files, f)
	a.current.SegmentCount += len(f.Blocks)

	if a.current.SegmentCount >= a.segmentThreshold {
		b := a.current
		a.current = Batch{}
		return &b
	}
	return nil
}

// Drain seals and returns whatever remains in the accumulator,
// regardless of the segment threshold, for the end of a scan. Returns
// nil if nothing is pending.
func (a *batchAccumulator) Drain() *Batch {
	a.mu.Lock()
	defer a.mu.Unlock()

	if len(a.current.Files) == 0 {
		return nil
	}
	b := a.current
	a.current = Batch{}
	return &b
}
