package scanner

import (
	"context"

	"github.com/heefoo/codeweave/internal/graph"
)

// GraphIndexer is the collaborator the batch processor delegates each
// file's delete-then-create graph update to, while holding that file's
// global mutex. Kept as its own interface so tests can substitute a fake
// without a live graph Service.
type GraphIndexer interface {
	IndexFile(ctx context.Context, filePath string, nodes []*graph.CodeNode, edges []*graph.CodeEdge) error
}

// ServiceGraphIndexer adapts a *graph.Service into a GraphIndexer, mirroring
// the teacher's UpdateFileAtomic shape (delete the file's old nodes, then
// write the new nodes and edges) through the Service's validated,
// breaker-and-retry-protected write API rather than the raw driver.
type ServiceGraphIndexer struct {
	Service *graph.Service
}

func (g *ServiceGraphIndexer) IndexFile(ctx context.Context, filePath string, nodes []*graph.CodeNode, edges []*graph.CodeEdge) error {
	if err := g.Service.DeleteNodesByFilePath(ctx, filePath); err != nil {
		return err
	}
	if len(nodes) > 0 {
		if err := g.Service.UpsertNodes(ctx, nodes); err != nil {
			return err
		}
	}
	if len(edges) > 0 {
		if err := g.Service.CreateRelationships(ctx, edges); err != nil {
			return err
		}
	}
	return nil
}
