// Package scanner implements the directory-walk, hash-based
// change-detection, and batched dual-store (vector + graph) ingestion
// pipeline (spec §4.4), built from the teacher's internal/indexer
// (directory walk + hash cache) and internal/daemon (fsnotify watch),
// generalized to the batch/backpressure/circuit-breaker model the
// pipeline requires.
package scanner

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/heefoo/codeweave/internal/bm25"
	"github.com/heefoo/codeweave/internal/embedding"
	"github.com/heefoo/codeweave/internal/graph"
	"github.com/heefoo/codeweave/internal/ignore"
	"github.com/heefoo/codeweave/internal/parser"
	"github.com/heefoo/codeweave/internal/state"
	"github.com/heefoo/codeweave/internal/vectorstore"
)

// Deps collects the scanner's external collaborators. Embedder, VectorStore,
// BM25Index, GraphIndexer, and State are all optional; a nil collaborator's
// stage of the pipeline is simply skipped.
type Deps struct {
	Parser       *parser.Parser
	HashCache    HashCache
	VectorStore  vectorstore.Store
	BM25Index    bm25.Index
	GraphIndexer GraphIndexer
	Embedder     embedding.Provider
	IgnoreFilter ignore.Filter
	State        *state.Manager
}

// Scanner walks a directory, detects changed files via content hashing,
// parses them, and drives the batched vector+BM25+graph ingestion
// pipeline described in spec §4.4.
type Scanner struct {
	deps Deps
	cfg  Config

	// fileMu is the single global file mutex (spec §5): it serializes
	// every per-file graph update across every batch, so a referenced
	// file's delete-then-create cannot race another file's edge writes.
	fileMu sync.Mutex

	graphBreaker *graphBreaker
	cancelled    atomic.Bool
}

// New builds a Scanner. A nil IgnoreFilter falls back to
// ignore.DefaultPatterns; a nil HashCache falls back to an in-memory cache.
func New(deps Deps, cfg Config) *Scanner {
	if deps.IgnoreFilter == nil {
		deps.IgnoreFilter = ignore.New(nil)
	}
	if deps.HashCache == nil {
		deps.HashCache = NewMemoryHashCache()
	}
	return &Scanner{
		deps:         deps,
		cfg:          cfg,
		graphBreaker: newGraphBreaker(cfg.GraphBreakerThreshold, cfg.GraphBreakerCooldown),
	}
}

// Cancel requests cooperative cancellation. The scan checks it before
// starting a new batch or retry and stops without a hard kill.
func (s *Scanner) Cancel() {
	s.cancelled.Store(true)
}

func (s *Scanner) cancelledOrDone(ctx context.Context) bool {
	if s.cancelled.Load() {
		return true
	}
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}

type scanFile struct {
	path  string
	isNew bool
}

// Scan walks dir, indexes changed files through the batch pipeline, and
// deletes vector points (and hash entries) for files that vanished since
// the last scan. Graph deletion for vanished files is driven separately
// by file-watch callers; Scan itself does not delete graph nodes for
// files it no longer sees.
func (s *Scanner) Scan(ctx context.Context, dir string) error {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to resolve directory: %w", err)
	}

	previousHashes := s.deps.HashCache.GetAllHashes()

	changed, err := s.discoverChangedFiles(absDir)
	if err != nil {
		return fmt.Errorf("directory walk error: %w", err)
	}

	if s.deps.State != nil {
		s.deps.State.ReportProgress(0, len(changed), "scanning")
	}

	var processed sync.Map
	var processedCount int32

	var scanErr error
	var scanErrOnce sync.Once
	setScanErr := func(err error) {
		scanErrOnce.Do(func() { scanErr = err })
		s.Cancel()
	}

	parseSem := make(chan struct{}, maxInt(1, s.cfg.ParsingConcurrency))
	batchSlots := make(chan struct{}, maxInt(1, s.cfg.MaxPendingBatches))
	batchSem := make(chan struct{}, maxInt(1, s.cfg.BatchProcessingConcurrency))

	acc := newBatchAccumulator(maxInt(1, s.cfg.BatchSegmentThreshold))

	var parseWG, batchWG sync.WaitGroup

	submitBatch := func(b *Batch) {
		if b == nil {
			return
		}
		batchSlots <- struct{}{} // backpressure: blocks once MAX_PENDING_BATCHES are already queued
		batchWG.Add(1)
		go func() {
			defer batchWG.Done()
			defer func() { <-batchSlots }()

			batchSem <- struct{}{}
			defer func() { <-batchSem }()

			if s.cancelledOrDone(ctx) {
				return
			}
			if err := s.processBatchWithRetry(ctx, b); err != nil {
				if isCriticalGraphError(err) {
					setScanErr(err)
					return
				}
				log.Printf("scanner: batch failed after retries: %v", err)
				return
			}
			for _, f := range b.Files {
				processed.Store(f.FilePath, struct{}{})
			}
			n := atomic.AddInt32(&processedCount, int32(len(b.Files)))
			if s.deps.State != nil {
				s.deps.State.ReportProgress(int(n), len(changed), "scanning")
			}
		}()
	}

	for _, cf := range changed {
		if s.cancelledOrDone(ctx) {
			break
		}
		cf := cf
		parseSem <- struct{}{}
		parseWG.Add(1)
		go func() {
			defer parseWG.Done()
			defer func() { <-parseSem }()

			if s.cancelledOrDone(ctx) {
				return
			}
			result, err := s.deps.Parser.ParseFile(ctx, cf.path)
			if err != nil {
				log.Printf("scanner: failed to parse %s: %v", cf.path, err)
				return
			}
			submitBatch(acc.Append(fileUnit{
				FilePath: cf.path,
				Blocks:   result.Nodes,
				Edges:    result.Edges,
				IsNew:    cf.isNew,
			}))
		}()
	}
	parseWG.Wait()
	submitBatch(acc.Drain())
	batchWG.Wait()

	if scanErr != nil {
		return scanErr
	}

	vanished := s.findVanishedFiles(previousHashes, &processed)
	if len(vanished) > 0 {
		if s.deps.VectorStore != nil {
			if err := s.deps.VectorStore.DeletePointsByMultipleFilePaths(ctx, vanished); err != nil {
				log.Printf("scanner: failed to delete vector points for vanished files: %v", err)
			}
		}
		if s.deps.BM25Index != nil {
			if err := s.deps.BM25Index.DeleteByMultipleFilePaths(vanished); err != nil {
				log.Printf("scanner: failed to delete bm25 documents for vanished files: %v", err)
			}
		}
		for _, path := range vanished {
			s.deps.HashCache.DeleteHash(path)
		}
	}

	if s.deps.State != nil {
		s.deps.State.ReportProgress(int(atomic.LoadInt32(&processedCount)), len(changed), "idle")
	}

	return nil
}

// findVanishedFiles diffs the hash map captured at the start of the scan
// against everything actually processed this run; a path present in the
// old map, absent from processed, and no longer on disk has vanished.
func (s *Scanner) findVanishedFiles(previousHashes map[string]string, processed *sync.Map) []string {
	var vanished []string
	for path := range previousHashes {
		if _, ok := processed.Load(path); ok {
			continue
		}
		if _, err := os.Stat(path); err == nil {
			continue // unchanged, still present, simply wasn't reprocessed
		}
		vanished = append(vanished, path)
	}
	return vanished
}

func (s *Scanner) discoverChangedFiles(absDir string) ([]scanFile, error) {
	var out []scanFile
	err := filepath.Walk(absDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // skip files/dirs that errored during the walk
		}
		if info.IsDir() {
			if path != absDir && s.deps.IgnoreFilter.ShouldExclude(path) {
				return filepath.SkipDir
			}
			return nil
		}
		if s.deps.IgnoreFilter.ShouldExclude(path) {
			return nil
		}
		if !s.deps.Parser.IsSupportedFile(path) {
			return nil
		}
		if s.cfg.MaxFileSizeBytes > 0 && info.Size() > s.cfg.MaxFileSizeBytes {
			return nil
		}

		existingHash, exists := s.deps.HashCache.GetHash(path)
		hash, err := hashFile(path)
		if err != nil {
			log.Printf("scanner: failed to hash %s: %v", path, err)
			return nil
		}
		if exists && hash == existingHash {
			return nil
		}
		out = append(out, scanFile{path: path, isNew: !exists})
		return nil
	})
	return out, err
}

func hashFile(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// processBatchWithRetry makes up to MaxBatchRetries attempts (at least one)
// at a batch, with exponential backoff INITIAL_RETRY_DELAY_MS * 2^(attempt-1). A critical
// graph error (authentication failure) short-circuits retry entirely.
func (s *Scanner) processBatchWithRetry(ctx context.Context, b *Batch) error {
	maxAttempts := maxInt(1, s.cfg.MaxBatchRetries)
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if s.cancelledOrDone(ctx) {
			return fmt.Errorf("scan cancelled")
		}

		err := s.processBatch(ctx, b)
		if err == nil {
			return nil
		}
		if isCriticalGraphError(err) {
			return err
		}
		lastErr = err
		if attempt == maxAttempts {
			break
		}

		delay := s.cfg.InitialRetryDelay * time.Duration(uint64(1)<<uint(attempt-1))
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return lastErr
}

// processBatch runs the five-step batch pipeline from spec §4.4: delete
// stale vector points for modified files, embed + upsert, feed BM25,
// delegate each file's graph update under the global file mutex, then
// persist hashes.
func (s *Scanner) processBatch(ctx context.Context, b *Batch) error {
	if err := s.deleteStaleVectorPoints(ctx, b); err != nil {
		return err
	}

	embeddings, err := s.embedBatch(ctx, b)
	if err != nil {
		return err
	}

	if s.deps.VectorStore != nil {
		points := buildVectorPoints(b, embeddings)
		if len(points) > 0 {
			if err := s.deps.VectorStore.UpsertPoints(ctx, points); err != nil {
				return fmt.Errorf("failed to upsert vector points: %w", err)
			}
		}
	}

	if s.deps.BM25Index != nil {
		if err := s.deps.BM25Index.AddDocuments(buildBM25Documents(b)); err != nil {
			return fmt.Errorf("failed to index bm25 documents: %w", err)
		}
	}

	for _, f := range b.Files {
		if err := s.indexFileGraph(ctx, f, embeddings); err != nil {
			if isCriticalGraphError(err) {
				return err
			}
			log.Printf("scanner: graph update skipped for %s: %v", f.FilePath, err)
		}
	}

	for _, f := range b.Files {
		hash, err := hashFile(f.FilePath)
		if err != nil {
			log.Printf("scanner: failed to re-hash %s after indexing: %v", f.FilePath, err)
			continue
		}
		s.deps.HashCache.UpdateHash(f.FilePath, hash)
	}

	return nil
}

func (s *Scanner) deleteStaleVectorPoints(ctx context.Context, b *Batch) error {
	if s.deps.VectorStore == nil {
		return nil
	}
	var modified []string
	for _, f := range b.Files {
		if !f.IsNew {
			modified = append(modified, f.FilePath)
		}
	}
	if len(modified) == 0 {
		return nil
	}
	if err := s.deps.VectorStore.DeletePointsByMultipleFilePaths(ctx, modified); err != nil {
		return fmt.Errorf("failed to delete stale vector points: %w", err)
	}
	return nil
}

// embedBatch generates embeddings for every block with content, keyed by
// block id, in a single embedder call per batch.
func (s *Scanner) embedBatch(ctx context.Context, b *Batch) (map[string][]float32, error) {
	if s.deps.Embedder == nil {
		return nil, nil
	}

	var ids, texts []string
	for _, f := range b.Files {
		for _, blk := range f.Blocks {
			if blk.Content == "" {
				continue
			}
			ids = append(ids, blk.ID)
			texts = append(texts, enrichedEmbeddingText(&blk))
		}
	}
	if len(texts) == 0 {
		return nil, nil
	}

	embs, err := s.deps.Embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to generate embeddings: %w", err)
	}
	if len(embs) != len(texts) {
		return nil, fmt.Errorf("embedder returned %d embeddings for %d inputs", len(embs), len(texts))
	}

	out := make(map[string][]float32, len(ids))
	for i, id := range ids {
		out[id] = embs[i]
	}
	return out, nil
}

// enrichedEmbeddingText folds a block's doc comment into its content so
// the embedding captures symbol documentation, not just raw code.
func enrichedEmbeddingText(blk *parser.CodeBlock) string {
	if blk.DocComment == "" {
		return blk.Content
	}
	return blk.DocComment + "\n" + blk.Content
}

func buildVectorPoints(b *Batch, embeddings map[string][]float32) []vectorstore.Point {
	var points []vectorstore.Point
	for _, f := range b.Files {
		for _, blk := range f.Blocks {
			points = append(points, vectorstore.Point{
				ID:       vectorstore.PointID(blk.Fingerprint),
				FilePath: f.FilePath,
				Vector:   embeddings[blk.ID],
				Payload: map[string]any{
					"content":    blk.Content,
					"name":       blk.Name,
					"node_type":  string(blk.NodeType),
					"language":   string(blk.Language),
					"start_line": blk.StartLine,
					"end_line":   blk.EndLine,
				},
			})
		}
	}
	return points
}

func buildBM25Documents(b *Batch) []bm25.Document {
	var docs []bm25.Document
	for _, f := range b.Files {
		for _, blk := range f.Blocks {
			docs = append(docs, bm25.Document{ID: blk.ID, FilePath: f.FilePath, Content: blk.Content})
		}
	}
	return docs
}

// indexFileGraph delegates one file's graph update under the scanner's
// global file mutex, gated by the pipeline-side breaker.
func (s *Scanner) indexFileGraph(ctx context.Context, f fileUnit, embeddings map[string][]float32) error {
	if s.deps.GraphIndexer == nil {
		return nil
	}
	if !s.graphBreaker.allow() {
		return fmt.Errorf("graph breaker open, skipping graph update for %s", f.FilePath)
	}

	nodes := make([]*graph.CodeNode, 0, len(f.Blocks))
	for i := range f.Blocks {
		nodes = append(nodes, blockToNode(&f.Blocks[i], embeddings[f.Blocks[i].ID]))
	}
	edges := make([]*graph.CodeEdge, 0, len(f.Edges))
	for i := range f.Edges {
		edges = append(edges, edgeToGraphEdge(&f.Edges[i]))
	}

	s.fileMu.Lock()
	err := s.deps.GraphIndexer.IndexFile(ctx, f.FilePath, nodes, edges)
	s.fileMu.Unlock()

	if err != nil {
		if isCriticalGraphError(err) {
			return err
		}
		s.graphBreaker.recordFailure()
		return err
	}
	s.graphBreaker.recordSuccess()
	return nil
}

func blockToNode(blk *parser.CodeBlock, emb []float32) *graph.CodeNode {
	return &graph.CodeNode{
		ID:          blk.ID,
		Name:        blk.Name,
		NodeType:    mapNodeType(blk.NodeType),
		Language:    string(blk.Language),
		FilePath:    blk.FilePath,
		StartLine:   blk.StartLine,
		EndLine:     blk.EndLine,
		Content:     blk.Content,
		DocComment:  blk.DocComment,
		Annotations: blk.Annotations,
		Embedding:   emb,
	}
}

// mapNodeType folds the parser's language-level syntactic kinds onto the
// graph's fixed seven-kind CodeNode taxonomy. Kinds the graph has no
// dedicated slot for collapse onto their closest structural analogue:
// struct/enum/type aliases are type declarations like class; macros behave
// like functions at the call-graph level; a module groups declarations the
// way a file does.
func mapNodeType(nt parser.NodeType) graph.NodeType {
	switch nt {
	case parser.NodeTypeFunction:
		return graph.NodeTypeFunction
	case parser.NodeTypeMethod:
		return graph.NodeTypeMethod
	case parser.NodeTypeClass, parser.NodeTypeStruct, parser.NodeTypeEnum, parser.NodeTypeType:
		return graph.NodeTypeClass
	case parser.NodeTypeInterface:
		return graph.NodeTypeInterface
	case parser.NodeTypeVariable:
		return graph.NodeTypeVariable
	case parser.NodeTypeImport:
		return graph.NodeTypeImport
	case parser.NodeTypeMacro:
		return graph.NodeTypeFunction
	case parser.NodeTypeModule:
		return graph.NodeTypeFile
	default:
		return graph.NodeTypeFunction
	}
}

func edgeToGraphEdge(e *parser.CodeEdge) *graph.CodeEdge {
	edgeType := mapEdgeType(e.EdgeType)
	return &graph.CodeEdge{
		ID:       graph.FormatEdgeID(e.FromID, e.ToID, edgeType),
		FromID:   e.FromID,
		ToID:     e.ToID,
		EdgeType: edgeType,
		Weight:   1.0,
	}
}

// mapEdgeType folds the parser's five lowercase relationship kinds onto
// their graph-schema equivalents. The parser never derives a TESTS,
// HAS_TYPE/ACCEPTS_TYPE/RETURNS_TYPE, CONTAINS, or DEFINES edge today, so
// those allowlisted types are reachable only through direct
// Service.CreateRelationship calls, not this mapping.
func mapEdgeType(et parser.EdgeType) graph.EdgeType {
	switch et {
	case parser.EdgeTypeCalls:
		return graph.EdgeTypeCalls
	case parser.EdgeTypeImports:
		return graph.EdgeTypeImports
	case parser.EdgeTypeExtends:
		return graph.EdgeTypeExtends
	case parser.EdgeTypeImplements:
		return graph.EdgeTypeImplements
	case parser.EdgeTypeUses:
		return graph.EdgeTypeUses
	default:
		return graph.EdgeTypeUses
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
