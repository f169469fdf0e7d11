package graph

import (
	"context"
	"sync"
)

// fakeDriver is a Driver test double whose behavior is controlled by
// injectable functions; unset functions return zero values.
type fakeDriver struct {
	mu sync.Mutex

	upsertNodeErr func(n *CodeNode) error
	getNodeFn     func(id string) (*CodeNode, error)
	pingErr       error

	nodesByFile map[string][]CodeNode
	callers     map[string][]CodeNode
	callees     map[string][]CodeNode
	impacted    map[string][]CodeNode
	deps        map[string][]CodeNode

	rawQueryFn func(query string, params map[string]any) (any, error)

	upsertCalls int
	storedNodes int
	closed      bool
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		nodesByFile: map[string][]CodeNode{},
		callers:     map[string][]CodeNode{},
		callees:     map[string][]CodeNode{},
		impacted:    map[string][]CodeNode{},
		deps:        map[string][]CodeNode{},
	}
}

func (f *fakeDriver) UpsertNode(ctx context.Context, node *CodeNode) error {
	f.mu.Lock()
	f.upsertCalls++
	f.mu.Unlock()
	if f.upsertNodeErr != nil {
		return f.upsertNodeErr(node)
	}
	return nil
}

func (f *fakeDriver) UpsertNodesBatch(ctx context.Context, nodes []*CodeNode) error { return nil }
func (f *fakeDriver) UpsertEdgesBatch(ctx context.Context, edges []*CodeEdge) error { return nil }

func (f *fakeDriver) GetNode(ctx context.Context, id string) (*CodeNode, error) {
	if f.getNodeFn != nil {
		return f.getNodeFn(id)
	}
	return &CodeNode{ID: id, Name: id}, nil
}

func (f *fakeDriver) FindByName(ctx context.Context, name string) ([]CodeNode, error) { return nil, nil }
func (f *fakeDriver) GetNodesByFile(ctx context.Context, filePath string) ([]CodeNode, error) {
	return f.nodesByFile[filePath], nil
}
func (f *fakeDriver) GetAllNodes(ctx context.Context) ([]CodeNode, error) { return nil, nil }
func (f *fakeDriver) GetAllEdges(ctx context.Context) ([]CodeEdge, error) { return nil, nil }
func (f *fakeDriver) GetEdgesByType(ctx context.Context, edgeType EdgeType) ([]CodeEdge, error) {
	return nil, nil
}
func (f *fakeDriver) GetCallers(ctx context.Context, nodeID string) ([]CodeNode, error) {
	return f.callers[nodeID], nil
}
func (f *fakeDriver) GetCallees(ctx context.Context, nodeID string) ([]CodeNode, error) {
	return f.callees[nodeID], nil
}
func (f *fakeDriver) GetIncomingEdges(ctx context.Context, nodeID string) ([]CodeEdge, error) {
	return nil, nil
}
func (f *fakeDriver) GetOutgoingEdges(ctx context.Context, nodeID string) ([]CodeEdge, error) {
	return nil, nil
}
func (f *fakeDriver) GetTransitiveDependencies(ctx context.Context, nodeID string, depth int) ([]CodeNode, error) {
	return f.deps[nodeID], nil
}
func (f *fakeDriver) GetImpactedNodes(ctx context.Context, nodeID string, depth int) ([]CodeNode, error) {
	return f.impacted[nodeID], nil
}
func (f *fakeDriver) DeleteNodesByFile(ctx context.Context, filePath string) error { return nil }
func (f *fakeDriver) DeleteNodesByMultipleFilePaths(ctx context.Context, filePaths []string) error {
	return nil
}
func (f *fakeDriver) DeleteEdgesByFile(ctx context.Context, filePath string) error { return nil }
func (f *fakeDriver) StoreGraphAtomic(ctx context.Context, nodes []*CodeNode, edges []*CodeEdge) error {
	f.mu.Lock()
	f.storedNodes += len(nodes)
	f.mu.Unlock()
	return nil
}
func (f *fakeDriver) UpdateFileAtomic(ctx context.Context, filePath string, nodes []*CodeNode, edges []*CodeEdge) error {
	return nil
}
func (f *fakeDriver) ClearAll(ctx context.Context) error { return nil }
func (f *fakeDriver) RawQuery(ctx context.Context, query string, params map[string]any) (any, error) {
	if f.rawQueryFn != nil {
		return f.rawQueryFn(query, params)
	}
	return nil, nil
}
func (f *fakeDriver) Ping(ctx context.Context) error { return f.pingErr }
func (f *fakeDriver) Close() error {
	f.closed = true
	return nil
}

var _ Driver = (*fakeDriver)(nil)
