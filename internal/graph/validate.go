package graph

import (
	"fmt"
	"sync/atomic"
)

// FieldError is a single validation failure on one field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Value   any    `json:"value,omitempty"`
}

// RelationshipFieldError additionally carries the expected/actual type,
// used for metadata shape mismatches keyed on the relationship type.
type RelationshipFieldError struct {
	Field        string `json:"field"`
	ExpectedType string `json:"expectedType"`
	ActualType   string `json:"actualType"`
	Message      string `json:"message"`
}

var allowedEdgeTypes = map[EdgeType]bool{
	EdgeTypeCalls:         true,
	EdgeTypeCalledBy:      true,
	EdgeTypeTests:         true,
	EdgeTypeTestedBy:      true,
	EdgeTypeHasType:       true,
	EdgeTypeAcceptsType:   true,
	EdgeTypeReturnsType:   true,
	EdgeTypeImports:       true,
	EdgeTypeExtends:       true,
	EdgeTypeExtendedBy:    true,
	EdgeTypeImplements:    true,
	EdgeTypeImplementedBy: true,
	EdgeTypeContains:      true,
	EdgeTypeDefines:       true,
	EdgeTypeUses:          true,
}

var allowedNodeTypes = map[NodeType]bool{
	NodeTypeFunction:  true,
	NodeTypeClass:     true,
	NodeTypeMethod:    true,
	NodeTypeInterface: true,
	NodeTypeVariable:  true,
	NodeTypeImport:    true,
	NodeTypeFile:      true,
}

// validationCounters tracks per-class validation failures (§4.3.10).
type validationCounters struct {
	nodeFailures         int64
	relationshipFailures int64
	metadataFailures     int64
}

func (c *validationCounters) incNode()         { atomic.AddInt64(&c.nodeFailures, 1) }
func (c *validationCounters) incRelationship() { atomic.AddInt64(&c.relationshipFailures, 1) }
func (c *validationCounters) incMetadata()     { atomic.AddInt64(&c.metadataFailures, 1) }

func (c *validationCounters) snapshot() (node, relationship, metadata int64) {
	return atomic.LoadInt64(&c.nodeFailures), atomic.LoadInt64(&c.relationshipFailures), atomic.LoadInt64(&c.metadataFailures)
}

// validateNode returns a list of field errors; it never returns an error
// value itself, matching the teacher's validate-then-report style used in
// internal/config's Violation model.
func (svc *Service) validateNode(node *CodeNode) []FieldError {
	if svc.validationDisabled {
		return nil
	}

	var errs []FieldError
	if node == nil {
		return []FieldError{{Field: "node", Message: "node is nil"}}
	}
	if node.ID == "" {
		errs = append(errs, FieldError{Field: "id", Message: "id is required"})
	}
	if node.Name == "" {
		errs = append(errs, FieldError{Field: "name", Message: "name is required"})
	}
	if node.FilePath == "" {
		errs = append(errs, FieldError{Field: "filePath", Message: "filePath is required"})
	}
	if node.NodeType != "" && !allowedNodeTypes[node.NodeType] {
		errs = append(errs, FieldError{Field: "nodeType", Message: fmt.Sprintf("node type %q is not in the allowlist", node.NodeType), Value: node.NodeType})
	}
	if node.StartLine < 0 {
		errs = append(errs, FieldError{Field: "startLine", Message: "startLine must be non-negative", Value: node.StartLine})
	}
	if node.EndLine < node.StartLine {
		errs = append(errs, FieldError{Field: "endLine", Message: "endLine must be >= startLine", Value: node.EndLine})
	}

	if len(errs) > 0 {
		svc.validationCounters.incNode()
	}
	return errs
}

// validateRelationship checks the edge type against the allowlist and
// validates metadata structure. It never embeds caller-supplied edge types
// into a query string before this check passes.
func (svc *Service) validateRelationship(edge *CodeEdge, metadata map[string]interface{}) []RelationshipFieldError {
	if svc.validationDisabled {
		return nil
	}

	var errs []RelationshipFieldError
	if edge == nil {
		return []RelationshipFieldError{{Field: "edge", Message: "edge is nil"}}
	}
	if !allowedEdgeTypes[edge.EdgeType] {
		errs = append(errs, RelationshipFieldError{
			Field:        "edgeType",
			ExpectedType: "one of the allowlisted edge types",
			ActualType:   string(edge.EdgeType),
			Message:      fmt.Sprintf("edge type %q is not in the allowlist", edge.EdgeType),
		})
	}
	if edge.FromID == "" || edge.ToID == "" {
		errs = append(errs, RelationshipFieldError{Field: "fromId/toId", Message: "both endpoints are required"})
	}

	if len(errs) > 0 {
		svc.validationCounters.incRelationship()
	}

	if metaErrs := svc.validateRelationshipMetadata(edge.EdgeType, metadata); len(metaErrs) > 0 {
		errs = append(errs, metaErrs...)
		svc.validationCounters.incMetadata()
	}

	return errs
}

// validateRelationshipMetadata enforces the typed metadata shape for each
// relationship type. A nil metadata map is not checked here — callers that
// never attach metadata (e.g. a bare structural edge) aren't required to.
func (svc *Service) validateRelationshipMetadata(edgeType EdgeType, metadata map[string]interface{}) []RelationshipFieldError {
	if metadata == nil {
		return nil
	}

	switch edgeType {
	case EdgeTypeImports:
		var errs []RelationshipFieldError
		errs = append(errs, requireString(metadata, "source")...)
		errs = append(errs, requireStringSlice(metadata, "symbols")...)
		errs = append(errs, requireBool(metadata, "isDefault")...)
		return errs
	case EdgeTypeCalls:
		var errs []RelationshipFieldError
		errs = append(errs, requireString(metadata, "callType")...)
		errs = append(errs, requireNonNegativeInt(metadata, "line")...)
		errs = append(errs, requireNonNegativeInt(metadata, "column")...)
		return errs
	case EdgeTypeTests:
		var errs []RelationshipFieldError
		errs = append(errs, requireConfidence(metadata, "confidence")...)
		errs = append(errs, requireString(metadata, "detectionMethod")...)
		return errs
	case EdgeTypeHasType, EdgeTypeAcceptsType, EdgeTypeReturnsType:
		return requireString(metadata, "typeString")
	case EdgeTypeExtends:
		return requireString(metadata, "parentClass")
	case EdgeTypeImplements:
		return requireString(metadata, "interface")
	default:
		return nil
	}
}

// requireField fetches a required metadata field, reporting it missing if
// absent or explicitly null.
func requireField(metadata map[string]interface{}, field string) (interface{}, *RelationshipFieldError) {
	v, ok := metadata[field]
	if !ok || v == nil {
		return nil, &RelationshipFieldError{
			Field:        field,
			ExpectedType: "present",
			ActualType:   "missing",
			Message:      fmt.Sprintf("metadata field %q is required", field),
		}
	}
	return v, nil
}

func requireString(metadata map[string]interface{}, field string) []RelationshipFieldError {
	v, missing := requireField(metadata, field)
	if missing != nil {
		return []RelationshipFieldError{*missing}
	}
	if _, ok := v.(string); !ok {
		return []RelationshipFieldError{{
			Field:        field,
			ExpectedType: "string",
			ActualType:   fieldTypeName(v),
			Message:      fmt.Sprintf("metadata field %q must be a string", field),
		}}
	}
	return nil
}

func requireBool(metadata map[string]interface{}, field string) []RelationshipFieldError {
	v, missing := requireField(metadata, field)
	if missing != nil {
		return []RelationshipFieldError{*missing}
	}
	if _, ok := v.(bool); !ok {
		return []RelationshipFieldError{{
			Field:        field,
			ExpectedType: "bool",
			ActualType:   fieldTypeName(v),
			Message:      fmt.Sprintf("metadata field %q must be a bool", field),
		}}
	}
	return nil
}

func requireStringSlice(metadata map[string]interface{}, field string) []RelationshipFieldError {
	v, missing := requireField(metadata, field)
	if missing != nil {
		return []RelationshipFieldError{*missing}
	}
	switch s := v.(type) {
	case []string:
		return nil
	case []interface{}:
		for _, elem := range s {
			if _, ok := elem.(string); !ok {
				return []RelationshipFieldError{{
					Field:        field,
					ExpectedType: "string[]",
					ActualType:   fieldTypeName(v),
					Message:      fmt.Sprintf("metadata field %q must be an array of strings", field),
				}}
			}
		}
		return nil
	default:
		return []RelationshipFieldError{{
			Field:        field,
			ExpectedType: "string[]",
			ActualType:   fieldTypeName(v),
			Message:      fmt.Sprintf("metadata field %q must be an array of strings", field),
		}}
	}
}

func requireNonNegativeInt(metadata map[string]interface{}, field string) []RelationshipFieldError {
	v, missing := requireField(metadata, field)
	if missing != nil {
		return []RelationshipFieldError{*missing}
	}
	n, ok := asInt(v)
	if !ok {
		return []RelationshipFieldError{{
			Field:        field,
			ExpectedType: "int",
			ActualType:   fieldTypeName(v),
			Message:      fmt.Sprintf("metadata field %q must be an integer", field),
		}}
	}
	if n < 0 {
		return []RelationshipFieldError{{
			Field:        field,
			ExpectedType: "int>=0",
			ActualType:   fmt.Sprintf("%d", n),
			Message:      fmt.Sprintf("metadata field %q must be non-negative", field),
		}}
	}
	return nil
}

func requireConfidence(metadata map[string]interface{}, field string) []RelationshipFieldError {
	v, missing := requireField(metadata, field)
	if missing != nil {
		return []RelationshipFieldError{*missing}
	}
	f, ok := asFloat(v)
	if !ok {
		return []RelationshipFieldError{{
			Field:        field,
			ExpectedType: "float",
			ActualType:   fieldTypeName(v),
			Message:      fmt.Sprintf("metadata field %q must be a float", field),
		}}
	}
	if f < 0 || f > 1 {
		return []RelationshipFieldError{{
			Field:        field,
			ExpectedType: "float in [0,1]",
			ActualType:   fmt.Sprintf("%v", f),
			Message:      fmt.Sprintf("metadata field %q must be in [0,1], got %v", field, f),
		}}
	}
	return nil
}

func asInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		if n == float64(int(n)) {
			return int(n), true
		}
		return 0, false
	default:
		return 0, false
	}
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}

func fieldTypeName(v interface{}) string {
	if v == nil {
		return "null"
	}
	switch v.(type) {
	case string:
		return "string"
	case bool:
		return "bool"
	case int, int32, int64, float32, float64:
		return "number"
	case []string, []interface{}:
		return "array"
	default:
		return fmt.Sprintf("%T", v)
	}
}
