// Package mcpserver exposes the scanner and the graph service's
// structural queries as MCP tools (spec.md §2's "code search and
// structural queries run against this dual index" external surface),
// built from the teacher's pkg/mcp/server.go tool-registration style but
// trimmed to this system's read-only structural query set plus a single
// scan-trigger tool.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/heefoo/codeweave/internal/graph"
	"github.com/heefoo/codeweave/internal/scanner"
)

// Server wires a Scanner and a graph Service into an MCP tool surface.
type Server struct {
	scan *scanner.Scanner
	svc  *graph.Service
	mcp  *server.MCPServer
}

// Config collects Server's collaborators. Scanner may be nil if only
// read queries are needed; Service may be nil if only scanning is.
type Config struct {
	Scanner *scanner.Scanner
	Service *graph.Service
}

// New builds a Server and registers its tool set.
func New(cfg Config) *Server {
	s := &Server{scan: cfg.Scanner, svc: cfg.Service}

	mcpServer := server.NewMCPServer(
		"codeweave",
		"0.1.0",
		server.WithToolCapabilities(true),
	)
	s.registerTools(mcpServer)
	s.mcp = mcpServer
	return s
}

func (s *Server) registerTools(mcpServer *server.MCPServer) {
	mcpServer.AddTool(mcp.Tool{
		Name: "scan_directory",
		Description: `Index a source directory into the code graph and vector/lexical
stores. Call this before using the other tools against a new or changed
codebase.

Example: {"directory": "./src"}`,
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"directory": map[string]interface{}{
					"type":        "string",
					"description": "Path to the directory to scan",
				},
			},
			Required: []string{"directory"},
		},
	}, s.handleScanDirectory)

	mcpServer.AddTool(mcp.Tool{
		Name: "find_callers",
		Description: `List the code nodes that call/reference the given node.

Example: {"node_id": "pkg.Foo"}`,
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"node_id": map[string]interface{}{
					"type":        "string",
					"description": "ID of the node to find callers of",
				},
			},
			Required: []string{"node_id"},
		},
	}, s.handleFindCallers)

	mcpServer.AddTool(mcp.Tool{
		Name: "find_callees",
		Description: `List the code nodes the given node calls/references.

Example: {"node_id": "pkg.Foo"}`,
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"node_id": map[string]interface{}{
					"type":        "string",
					"description": "ID of the node to find callees of",
				},
			},
			Required: []string{"node_id"},
		},
	}, s.handleFindCallees)

	mcpServer.AddTool(mcp.Tool{
		Name: "blast_radius",
		Description: `Estimate how much of the codebase would be affected by changing a
node: impacted nodes, dependencies, file count, test coverage, and a
risk score.

Example: {"node_id": "pkg.Foo", "max_depth": 3}`,
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"node_id": map[string]interface{}{
					"type":        "string",
					"description": "ID of the node to assess",
				},
				"max_depth": map[string]interface{}{
					"type":        "number",
					"description": "Traversal depth, 1-10 (default 3)",
				},
			},
			Required: []string{"node_id"},
		},
	}, s.handleBlastRadius)

	mcpServer.AddTool(mcp.Tool{
		Name: "dependency_tree",
		Description: `Walk the dependency edges from a node out to max_depth levels.

Example: {"node_id": "pkg.Foo", "max_depth": 3}`,
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"node_id": map[string]interface{}{
					"type":        "string",
					"description": "ID of the node to start from",
				},
				"max_depth": map[string]interface{}{
					"type":        "number",
					"description": "Traversal depth, 1-10 (default 3)",
				},
			},
			Required: []string{"node_id"},
		},
	}, s.handleDependencyTree)

	mcpServer.AddTool(mcp.Tool{
		Name: "change_safety",
		Description: `Assess how safe it is to change a node: safety level (safe/
moderate/risky/dangerous), risk score, reasons, and recommendations.

Example: {"node_id": "pkg.Foo"}`,
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"node_id": map[string]interface{}{
					"type":        "string",
					"description": "ID of the node to assess",
				},
			},
			Required: []string{"node_id"},
		},
	}, s.handleChangeSafety)
}

func (s *Server) handleScanDirectory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dir, _ := request.Params.Arguments["directory"].(string)
	if dir == "" {
		return errorResult("directory is required")
	}
	if s.scan == nil {
		return errorResult("scanner not configured")
	}

	if err := s.scan.Scan(ctx, dir); err != nil {
		return errorResult(fmt.Sprintf("scan failed: %v", err))
	}

	return jsonResult(map[string]interface{}{
		"success":   true,
		"directory": dir,
	})
}

func (s *Server) handleFindCallers(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	nodeID, _ := request.Params.Arguments["node_id"].(string)
	if nodeID == "" {
		return errorResult("node_id is required")
	}
	if s.svc == nil {
		return errorResult("graph service not configured")
	}

	nodes := s.svc.FindCallers(ctx, nodeID)
	return jsonResult(map[string]interface{}{
		"node_id": nodeID,
		"callers": nodeSummaries(nodes),
		"count":   len(nodes),
	})
}

func (s *Server) handleFindCallees(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	nodeID, _ := request.Params.Arguments["node_id"].(string)
	if nodeID == "" {
		return errorResult("node_id is required")
	}
	if s.svc == nil {
		return errorResult("graph service not configured")
	}

	nodes := s.svc.FindCallees(ctx, nodeID)
	return jsonResult(map[string]interface{}{
		"node_id": nodeID,
		"callees": nodeSummaries(nodes),
		"count":   len(nodes),
	})
}

func (s *Server) handleBlastRadius(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	nodeID, _ := request.Params.Arguments["node_id"].(string)
	if nodeID == "" {
		return errorResult("node_id is required")
	}
	if s.svc == nil {
		return errorResult("graph service not configured")
	}
	depth := requestDepth(request, 3)

	radius, err := s.svc.CalculateBlastRadius(ctx, nodeID, depth, 0)
	if err != nil {
		return errorResult(fmt.Sprintf("failed to calculate blast radius: %v", err))
	}

	return jsonResult(map[string]interface{}{
		"node_id":        nodeID,
		"max_depth":      radius.MaxDepth,
		"impacted_files": radius.ImpactedFiles,
		"test_count":     radius.TestCount,
		"risk_score":     radius.RiskScore,
		"from_cache":     radius.FromCache,
		"impacted_nodes": nodeSummaries(radius.ImpactedNodes),
		"dependencies":   nodeSummaries(radius.Dependencies),
	})
}

func (s *Server) handleDependencyTree(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	nodeID, _ := request.Params.Arguments["node_id"].(string)
	if nodeID == "" {
		return errorResult("node_id is required")
	}
	if s.svc == nil {
		return errorResult("graph service not configured")
	}
	depth := requestDepth(request, 3)

	nodes, err := s.svc.FindDependencyTree(ctx, nodeID, depth, 0)
	if err != nil {
		return errorResult(fmt.Sprintf("failed to build dependency tree: %v", err))
	}

	return jsonResult(map[string]interface{}{
		"node_id":      nodeID,
		"max_depth":    depth,
		"dependencies": nodeSummaries(nodes),
		"count":        len(nodes),
	})
}

func (s *Server) handleChangeSafety(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	nodeID, _ := request.Params.Arguments["node_id"].(string)
	if nodeID == "" {
		return errorResult("node_id is required")
	}
	if s.svc == nil {
		return errorResult("graph service not configured")
	}

	safety, err := s.svc.AssessChangeSafety(ctx, nodeID)
	if err != nil {
		return errorResult(fmt.Sprintf("failed to assess change safety: %v", err))
	}

	return jsonResult(map[string]interface{}{
		"node_id":         nodeID,
		"safety":          safety.Safety,
		"risk_score":      safety.RiskScore,
		"reasons":         safety.Reasons,
		"recommendations": safety.Recommendations,
	})
}

func requestDepth(request mcp.CallToolRequest, def int) int {
	if d, ok := request.Params.Arguments["max_depth"].(float64); ok && d > 0 {
		return int(d)
	}
	return def
}

func nodeSummaries(nodes []graph.CodeNode) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, map[string]interface{}{
			"id":        n.ID,
			"name":      n.Name,
			"type":      n.NodeType,
			"file_path": n.FilePath,
			"line":      n.StartLine,
		})
	}
	return out
}

func jsonResult(v map[string]interface{}) (*mcp.CallToolResult, error) {
	jsonBytes, _ := json.Marshal(v)
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: string(jsonBytes)},
		},
	}, nil
}

func errorResult(msg string) (*mcp.CallToolResult, error) {
	jsonBytes, _ := json.Marshal(map[string]interface{}{
		"error":   true,
		"message": msg,
	})
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: string(jsonBytes)},
		},
	}, nil
}

// ServeStdio runs the MCP server over stdio, the default transport for
// editor/agent integrations.
func (s *Server) ServeStdio(ctx context.Context) error {
	log.Println("mcpserver: starting on stdio")
	return server.ServeStdio(s.mcp)
}
