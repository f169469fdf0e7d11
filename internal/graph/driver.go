package graph

import "context"

// Driver is the explicit backend interface the Service depends on. It
// replaces direct, duck-typed use of *surrealdb.DB so the Service can be
// exercised against a fake in tests and, in principle, against a different
// property-graph backend without touching Service logic.
//
// *Storage satisfies this interface directly; it is the only concrete
// implementation shipped, but nothing in Service assumes that.
type Driver interface {
	UpsertNode(ctx context.Context, node *CodeNode) error
	UpsertNodesBatch(ctx context.Context, nodes []*CodeNode) error
	UpsertEdgesBatch(ctx context.Context, edges []*CodeEdge) error
	GetNode(ctx context.Context, id string) (*CodeNode, error)
	FindByName(ctx context.Context, name string) ([]CodeNode, error)
	GetNodesByFile(ctx context.Context, filePath string) ([]CodeNode, error)
	GetAllNodes(ctx context.Context) ([]CodeNode, error)
	GetAllEdges(ctx context.Context) ([]CodeEdge, error)
	GetEdgesByType(ctx context.Context, edgeType EdgeType) ([]CodeEdge, error)
	GetCallers(ctx context.Context, nodeID string) ([]CodeNode, error)
	GetCallees(ctx context.Context, nodeID string) ([]CodeNode, error)
	GetIncomingEdges(ctx context.Context, nodeID string) ([]CodeEdge, error)
	GetOutgoingEdges(ctx context.Context, nodeID string) ([]CodeEdge, error)
	GetTransitiveDependencies(ctx context.Context, nodeID string, depth int) ([]CodeNode, error)
	GetImpactedNodes(ctx context.Context, nodeID string, depth int) ([]CodeNode, error)
	DeleteNodesByFile(ctx context.Context, filePath string) error
	DeleteNodesByMultipleFilePaths(ctx context.Context, filePaths []string) error
	DeleteEdgesByFile(ctx context.Context, filePath string) error
	StoreGraphAtomic(ctx context.Context, nodes []*CodeNode, edges []*CodeEdge) error
	UpdateFileAtomic(ctx context.Context, filePath string, nodes []*CodeNode, edges []*CodeEdge) error
	ClearAll(ctx context.Context) error
	RawQuery(ctx context.Context, query string, params map[string]any) (any, error)
	Ping(ctx context.Context) error
	Close() error
}

var _ Driver = (*Storage)(nil)
