package mcpserver

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/heefoo/codeweave/internal/bm25"
	"github.com/heefoo/codeweave/internal/graph"
	"github.com/heefoo/codeweave/internal/parser"
	"github.com/heefoo/codeweave/internal/scanner"
	"github.com/heefoo/codeweave/internal/vectorstore"
)

// fakeDriver is a minimal graph.Driver test double returning a small,
// fixed graph so the structural-query handlers have something to report.
type fakeDriver struct {
	nodes map[string]graph.CodeNode
}

func newFakeDriver() *fakeDriver {
	return &fakeDriver{
		nodes: map[string]graph.CodeNode{
			"pkg.Target": {ID: "pkg.Target", Name: "Target", FilePath: "pkg/target.go", NodeType: graph.NodeTypeFunction},
			"pkg.Caller": {ID: "pkg.Caller", Name: "Caller", FilePath: "pkg/caller.go", NodeType: graph.NodeTypeFunction},
			"pkg.Callee": {ID: "pkg.Callee", Name: "Callee", FilePath: "pkg/callee_test.go", NodeType: graph.NodeTypeFunction},
		},
	}
}

func (f *fakeDriver) UpsertNode(ctx context.Context, node *graph.CodeNode) error         { return nil }
func (f *fakeDriver) UpsertNodesBatch(ctx context.Context, nodes []*graph.CodeNode) error { return nil }
func (f *fakeDriver) UpsertEdgesBatch(ctx context.Context, edges []*graph.CodeEdge) error { return nil }
func (f *fakeDriver) GetNode(ctx context.Context, id string) (*graph.CodeNode, error) {
	n, ok := f.nodes[id]
	if !ok {
		return nil, os.ErrNotExist
	}
	return &n, nil
}
func (f *fakeDriver) FindByName(ctx context.Context, name string) ([]graph.CodeNode, error) {
	return nil, nil
}
func (f *fakeDriver) GetNodesByFile(ctx context.Context, filePath string) ([]graph.CodeNode, error) {
	return nil, nil
}
func (f *fakeDriver) GetAllNodes(ctx context.Context) ([]graph.CodeNode, error) { return nil, nil }
func (f *fakeDriver) GetAllEdges(ctx context.Context) ([]graph.CodeEdge, error) { return nil, nil }
func (f *fakeDriver) GetEdgesByType(ctx context.Context, edgeType graph.EdgeType) ([]graph.CodeEdge, error) {
	return nil, nil
}
func (f *fakeDriver) GetCallers(ctx context.Context, nodeID string) ([]graph.CodeNode, error) {
	return []graph.CodeNode{f.nodes["pkg.Caller"]}, nil
}
func (f *fakeDriver) GetCallees(ctx context.Context, nodeID string) ([]graph.CodeNode, error) {
	return []graph.CodeNode{f.nodes["pkg.Callee"]}, nil
}
func (f *fakeDriver) GetIncomingEdges(ctx context.Context, nodeID string) ([]graph.CodeEdge, error) {
	return nil, nil
}
func (f *fakeDriver) GetOutgoingEdges(ctx context.Context, nodeID string) ([]graph.CodeEdge, error) {
	return nil, nil
}
func (f *fakeDriver) GetTransitiveDependencies(ctx context.Context, nodeID string, depth int) ([]graph.CodeNode, error) {
	return []graph.CodeNode{f.nodes["pkg.Callee"]}, nil
}
func (f *fakeDriver) GetImpactedNodes(ctx context.Context, nodeID string, depth int) ([]graph.CodeNode, error) {
	return []graph.CodeNode{f.nodes["pkg.Caller"]}, nil
}
func (f *fakeDriver) DeleteNodesByFile(ctx context.Context, filePath string) error { return nil }
func (f *fakeDriver) DeleteNodesByMultipleFilePaths(ctx context.Context, filePaths []string) error {
	return nil
}
func (f *fakeDriver) DeleteEdgesByFile(ctx context.Context, filePath string) error { return nil }
func (f *fakeDriver) StoreGraphAtomic(ctx context.Context, nodes []*graph.CodeNode, edges []*graph.CodeEdge) error {
	return nil
}
func (f *fakeDriver) UpdateFileAtomic(ctx context.Context, filePath string, nodes []*graph.CodeNode, edges []*graph.CodeEdge) error {
	return nil
}
func (f *fakeDriver) ClearAll(ctx context.Context) error { return nil }
func (f *fakeDriver) RawQuery(ctx context.Context, query string, params map[string]any) (any, error) {
	return nil, nil
}
func (f *fakeDriver) Ping(ctx context.Context) error { return nil }
func (f *fakeDriver) Close() error                   { return nil }

func toolRequest(args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{Arguments: args},
	}
}

func decodeResult(t *testing.T, res *mcp.CallToolResult) map[string]interface{} {
	t.Helper()
	if len(res.Content) == 0 {
		t.Fatal("expected non-empty tool result content")
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected text content, got %T", res.Content[0])
	}
	var out map[string]interface{}
	if err := json.Unmarshal([]byte(text.Text), &out); err != nil {
		t.Fatalf("failed to decode result JSON: %v", err)
	}
	return out
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	svc := graph.NewService(newFakeDriver(), graph.DefaultServiceConfig())

	deps := scanner.Deps{
		Parser:      parser.NewParser(parser.WithEdgeExtraction()),
		VectorStore: vectorstore.NewMemoryStore(),
		BM25Index:   bm25.NewMemoryIndex(),
	}
	s := scanner.New(deps, scanner.DefaultConfig())

	return New(Config{Scanner: s, Service: svc})
}

func TestHandleFindCallers_ReturnsConfiguredCaller(t *testing.T) {
	s := newTestServer(t)
	res, err := s.handleFindCallers(context.Background(), toolRequest(map[string]interface{}{"node_id": "pkg.Target"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := decodeResult(t, res)
	if out["count"].(float64) != 1 {
		t.Errorf("expected 1 caller, got %v", out["count"])
	}
}

func TestHandleFindCallers_MissingNodeID(t *testing.T) {
	s := newTestServer(t)
	res, _ := s.handleFindCallers(context.Background(), toolRequest(map[string]interface{}{}))
	out := decodeResult(t, res)
	if out["error"] != true {
		t.Error("expected an error result for a missing node_id")
	}
}

func TestHandleBlastRadius_ReturnsRiskScore(t *testing.T) {
	s := newTestServer(t)
	res, err := s.handleBlastRadius(context.Background(), toolRequest(map[string]interface{}{"node_id": "pkg.Target"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := decodeResult(t, res)
	if _, ok := out["risk_score"]; !ok {
		t.Error("expected a risk_score field in the result")
	}
}

func TestHandleChangeSafety_ReturnsSafetyLevel(t *testing.T) {
	s := newTestServer(t)
	res, err := s.handleChangeSafety(context.Background(), toolRequest(map[string]interface{}{"node_id": "pkg.Target"}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := decodeResult(t, res)
	if out["safety"] == "" || out["safety"] == nil {
		t.Error("expected a non-empty safety level")
	}
}

func TestHandleScanDirectory_ScansRealDirectory(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "a.go"), []byte("package a\nfunc F() {}\n"), 0o644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	s := newTestServer(t)
	res, err := s.handleScanDirectory(context.Background(), toolRequest(map[string]interface{}{"directory": dir}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := decodeResult(t, res)
	if out["success"] != true {
		t.Errorf("expected success=true, got %+v", out)
	}
}

func TestHandleDependencyTree_MissingService(t *testing.T) {
	s := New(Config{})
	res, _ := s.handleDependencyTree(context.Background(), toolRequest(map[string]interface{}{"node_id": "pkg.Target"}))
	out := decodeResult(t, res)
	if out["error"] != true {
		t.Error("expected an error result when no graph service is configured")
	}
}
