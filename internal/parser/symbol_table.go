package parser

import (
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// EdgeExtractor handles extraction of call edges from AST.
// It performs no cross-file symbol resolution: callees are recorded either
// as already-qualified names (dotted/scoped) or prefixed with the
// declaring file path, leaving resolution to the graph layer.
type EdgeExtractor struct{}

// NewEdgeExtractor creates a new, language-agnostic edge extractor.
func NewEdgeExtractor() *EdgeExtractor {
	return &EdgeExtractor{}
}

// ExtractEdges walks the AST and extracts call edges.
// callerID is the ID of the containing function/method.
func (e *EdgeExtractor) ExtractEdges(node *sitter.Node, callerID string, filePath string, content []byte, result *ParseResult) {
	if node == nil {
		return
	}

	nodeType := node.Type()

	switch nodeType {
	case "call_expression", "method_invocation", "invocation_expression", "list_lit":
		callee := e.extractCalleeName(node, content)
		if callee != "" && callerID != "" {
			toID := e.resolveCallee(callee, filePath)
			result.Edges = append(result.Edges, CodeEdge{
				FromID:   callerID,
				ToID:     toID,
				EdgeType: EdgeTypeCalls,
			})
		}
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		e.ExtractEdges(child, callerID, filePath, content, result)
	}
}

// extractCalleeName extracts the name of the function being called.
func (e *EdgeExtractor) extractCalleeName(node *sitter.Node, content []byte) string {
	if funcNode := node.ChildByFieldName("function"); funcNode != nil {
		return e.extractIdentifier(funcNode, content)
	}
	if nameNode := node.ChildByFieldName("name"); nameNode != nil {
		return e.extractIdentifier(nameNode, content)
	}
	if methodNode := node.ChildByFieldName("method"); methodNode != nil {
		return e.extractIdentifier(methodNode, content)
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		switch child.Type() {
		case "identifier", "sym_lit":
			return string(content[child.StartByte():child.EndByte()])
		case "selector_expression", "member_expression", "field_expression":
			return e.extractSelectorExpression(child, content)
		case "scoped_identifier", "qualified_identifier":
			return string(content[child.StartByte():child.EndByte()])
		}
	}

	return ""
}

// extractSelectorExpression extracts "pkg.Func" style calls.
func (e *EdgeExtractor) extractSelectorExpression(node *sitter.Node, content []byte) string {
	return string(content[node.StartByte():node.EndByte()])
}

// extractIdentifier recursively extracts an identifier from complex nodes.
func (e *EdgeExtractor) extractIdentifier(node *sitter.Node, content []byte) string {
	if node == nil {
		return ""
	}

	switch node.Type() {
	case "identifier", "type_identifier", "sym_lit":
		return string(content[node.StartByte():node.EndByte()])
	case "selector_expression", "member_expression", "field_expression":
		return e.extractSelectorExpression(node, content)
	case "scoped_identifier", "qualified_identifier":
		return string(content[node.StartByte():node.EndByte()])
	default:
		for i := 0; i < int(node.ChildCount()); i++ {
			child := node.Child(i)
			if child.Type() == "identifier" {
				return string(content[child.StartByte():child.EndByte()])
			}
		}
	}

	return ""
}

// resolveCallee turns a callee name into a best-effort node id.
// Qualified names (containing "." or "::") are assumed to reference a
// symbol outside the current file; everything else is scoped to filePath
// so the graph layer can still resolve same-file calls deterministically.
func (e *EdgeExtractor) resolveCallee(callee string, filePath string) string {
	if strings.Contains(callee, ".") || strings.Contains(callee, "::") {
		return fmt.Sprintf("external::%s", callee)
	}
	return fmt.Sprintf("%s::%s", filePath, callee)
}
