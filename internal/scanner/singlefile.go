package scanner

import (
	"context"
	"fmt"
)

// IndexPath runs a single file through the same embed/upsert/graph-update
// pipeline Scan uses for a batch, for file-watch-driven incremental
// updates outside of a full directory scan.
func (s *Scanner) IndexPath(ctx context.Context, path string) error {
	if !s.deps.Parser.IsSupportedFile(path) {
		return nil
	}
	result, err := s.deps.Parser.ParseFile(ctx, path)
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}

	_, exists := s.deps.HashCache.GetHash(path)
	b := &Batch{
		Files: []fileUnit{{
			FilePath: path,
			Blocks:   result.Nodes,
			Edges:    result.Edges,
			IsNew:    !exists,
		}},
		SegmentCount: len(result.Nodes),
	}
	return s.processBatchWithRetry(ctx, b)
}

// DeletePath removes a file's vector points, bm25 documents, hash entry,
// and graph nodes. Unlike Scan's deletion pass (which leaves graph
// deletion to watch callers), a watch-driven delete owns the whole file
// lifecycle and so also clears the graph side, mirroring the teacher's
// watcher.handleDelete.
func (s *Scanner) DeletePath(ctx context.Context, path string) error {
	if s.deps.VectorStore != nil {
		if err := s.deps.VectorStore.DeletePointsByFilePath(ctx, path); err != nil {
			return fmt.Errorf("failed to delete vector points for %s: %w", path, err)
		}
	}
	if s.deps.BM25Index != nil {
		if err := s.deps.BM25Index.DeleteByFilePath(path); err != nil {
			return fmt.Errorf("failed to delete bm25 documents for %s: %w", path, err)
		}
	}
	if s.deps.GraphIndexer != nil {
		s.fileMu.Lock()
		err := s.deps.GraphIndexer.IndexFile(ctx, path, nil, nil)
		s.fileMu.Unlock()
		if err != nil {
			return fmt.Errorf("failed to delete graph nodes for %s: %w", path, err)
		}
	}
	s.deps.HashCache.DeleteHash(path)
	return nil
}
