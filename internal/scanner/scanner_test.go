package scanner

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/heefoo/codeweave/internal/bm25"
	"github.com/heefoo/codeweave/internal/graph"
	"github.com/heefoo/codeweave/internal/parser"
	"github.com/heefoo/codeweave/internal/vectorstore"
)

type fakeGraphIndexer struct {
	mu        sync.Mutex
	calls     int
	lastFile  string
	lastNodes int
	err       func(filePath string) error
}

func (f *fakeGraphIndexer) IndexFile(ctx context.Context, filePath string, nodes []*graph.CodeNode, edges []*graph.CodeEdge) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastFile = filePath
	f.lastNodes = len(nodes)
	if f.err != nil {
		return f.err(filePath)
	}
	return nil
}

func testScanner(t *testing.T, graphIdx GraphIndexer) (*Scanner, *vectorstore.MemoryStore, *bm25.MemoryIndex) {
	t.Helper()
	vs := vectorstore.NewMemoryStore()
	bi := bm25.NewMemoryIndex()
	cfg := DefaultConfig()
	cfg.BatchSegmentThreshold = 1000
	cfg.MaxPendingBatches = 2
	cfg.BatchProcessingConcurrency = 2
	cfg.ParsingConcurrency = 2
	cfg.MaxBatchRetries = 1

	deps := Deps{
		Parser:       parser.NewParser(parser.WithEdgeExtraction()),
		VectorStore:  vs,
		BM25Index:    bi,
		GraphIndexer: graphIdx,
	}
	return New(deps, cfg), vs, bi
}

func writeGoFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}
	return path
}

const sampleGoSource = `package sample

func Greet() string {
	return "hello"
}
`

func TestScanner_Scan_NewFileProducesVectorAndGraphWrites(t *testing.T) {
	dir := t.TempDir()
	writeGoFile(t, dir, "sample.go", sampleGoSource)

	idx := &fakeGraphIndexer{}
	s, vs, bi := testScanner(t, idx)

	if err := s.Scan(context.Background(), dir); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if idx.calls != 1 {
		t.Errorf("expected exactly 1 graph indexing call, got %d", idx.calls)
	}
	if idx.lastNodes == 0 {
		t.Error("expected at least one node to have been indexed")
	}

	results, _ := vs.Search(context.Background(), nil, 10)
	if len(results) == 0 {
		t.Error("expected at least one vector point to have been upserted")
	}

	matches, _ := bi.Search("Greet", 10)
	if len(matches) == 0 {
		t.Error("expected the bm25 index to contain the new function")
	}
}

func TestScanner_Scan_UnchangedFileIsSkippedOnRescan(t *testing.T) {
	dir := t.TempDir()
	writeGoFile(t, dir, "sample.go", sampleGoSource)

	idx := &fakeGraphIndexer{}
	s, _, _ := testScanner(t, idx)

	ctx := context.Background()
	if err := s.Scan(ctx, dir); err != nil {
		t.Fatalf("unexpected error on first scan: %v", err)
	}
	callsAfterFirst := idx.calls

	if err := s.Scan(ctx, dir); err != nil {
		t.Fatalf("unexpected error on second scan: %v", err)
	}
	if idx.calls != callsAfterFirst {
		t.Errorf("expected no new graph indexing calls for an unchanged file, got %d more", idx.calls-callsAfterFirst)
	}
}

func TestScanner_Scan_ModifiedFileReindexes(t *testing.T) {
	dir := t.TempDir()
	path := writeGoFile(t, dir, "sample.go", sampleGoSource)

	idx := &fakeGraphIndexer{}
	s, _, _ := testScanner(t, idx)
	ctx := context.Background()
	s.Scan(ctx, dir)

	if err := os.WriteFile(path, []byte(sampleGoSource+"\nfunc Farewell() string { return \"bye\" }\n"), 0o644); err != nil {
		t.Fatalf("failed to modify file: %v", err)
	}

	if err := s.Scan(ctx, dir); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx.calls != 2 {
		t.Errorf("expected the modified file to be reindexed, got %d total calls", idx.calls)
	}
}

func TestScanner_Scan_DeletedFileRemovesVectorPoints(t *testing.T) {
	dir := t.TempDir()
	path := writeGoFile(t, dir, "sample.go", sampleGoSource)

	idx := &fakeGraphIndexer{}
	s, vs, bi := testScanner(t, idx)
	ctx := context.Background()
	s.Scan(ctx, dir)

	if err := os.Remove(path); err != nil {
		t.Fatalf("failed to remove file: %v", err)
	}
	if err := s.Scan(ctx, dir); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	results, _ := vs.Search(ctx, nil, 10)
	if len(results) != 0 {
		t.Errorf("expected vector points for the deleted file to be removed, got %+v", results)
	}
	matches, _ := bi.Search("Greet", 10)
	if len(matches) != 0 {
		t.Errorf("expected bm25 documents for the deleted file to be removed, got %+v", matches)
	}
	if idx.calls != 1 {
		t.Errorf("expected the scanner to not touch the graph for a vanished file, got %d calls", idx.calls)
	}
}

func TestScanner_Scan_CriticalGraphErrorAbortsScan(t *testing.T) {
	dir := t.TempDir()
	writeGoFile(t, dir, "a.go", sampleGoSource)
	writeGoFile(t, dir, "b.go", "package sample\n\nfunc Other() int { return 1 }\n")

	idx := &fakeGraphIndexer{err: func(string) error { return errors.New("authentication failed") }}
	s, _, _ := testScanner(t, idx)

	err := s.Scan(context.Background(), dir)
	if err == nil {
		t.Fatal("expected a critical graph error to abort the scan")
	}
}

func TestGraphBreaker_SkipsGraphWritesAfterConsecutiveFailures(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 4; i++ {
		writeGoFile(t, dir, filepathName(i), sampleGoSource)
	}

	idx := &fakeGraphIndexer{err: func(string) error { return errors.New("temporary graph failure") }}
	s, _, _ := testScanner(t, idx)

	if err := s.Scan(context.Background(), dir); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.graphBreaker.allow() {
		t.Error("expected the pipeline-side graph breaker to be tripped after repeated failures")
	}
}

func filepathName(i int) string {
	return "f" + string(rune('a'+i)) + ".go"
}
