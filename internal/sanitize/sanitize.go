// Package sanitize normalizes arbitrary key-value metadata into a mapping
// of primitives, primitive arrays, typed envelopes and depth-limited
// nested mappings, safe for property-graph storage.
package sanitize

import (
	"encoding/json"
	"fmt"
	"math/big"
	"reflect"
	"sort"
	"time"
)

// ErrorKind distinguishes the sanitizer's failure modes.
type ErrorKind string

const (
	ErrCircularReference ErrorKind = "CIRCULAR_REFERENCE"
	ErrSizeLimitExceeded ErrorKind = "SIZE_LIMIT_EXCEEDED"
	ErrUnsupportedType   ErrorKind = "UNSUPPORTED_TYPE"
)

// Error reports a sanitization failure with its kind.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string { return e.Message }

func newError(kind ErrorKind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Limits bounds the sanitizer's output shape.
type Limits struct {
	MaxDepth        int
	MaxStringLength int
	MaxArrayLength  int
	MaxSize         int
	AllowTruncation bool
}

// DefaultLimits mirrors the teacher's conservative defaults for
// metadata attached to graph relationships.
func DefaultLimits() Limits {
	return Limits{
		MaxDepth:        5,
		MaxStringLength: 1024,
		MaxArrayLength:  100,
		MaxSize:         16 * 1024,
		AllowTruncation: true,
	}
}

// Result is the sanitizer's output: the sanitized mapping plus diagnostics.
type Result struct {
	Value     map[string]interface{}
	Warnings  []string
	Truncated bool
}

// Sanitize normalizes input into a mapping whose values are each a string,
// number, boolean, array, typed envelope (dates, big integers, subtrees
// beyond the depth limit), or nested mapping sanitized by the same rules.
// Nested mappings stay nested; they are not flattened into dotted keys.
// Rules are applied in the order documented on each step below.
func Sanitize(input interface{}, limits Limits) (*Result, error) {
	s := &sanitizer{limits: limits}

	obj, ok := input.(map[string]interface{})
	if !ok {
		obj = map[string]interface{}{"value": input}
	}

	visited := map[uintptr]bool{}
	out, err := s.sanitizeObject(obj, "root", 0, visited)
	if err != nil {
		return nil, err
	}

	result := &Result{Value: out, Warnings: s.warnings}

	if err := s.enforceSize(result); err != nil {
		return nil, err
	}

	return result, nil
}

type sanitizer struct {
	limits   Limits
	warnings []string
}

func (s *sanitizer) warn(format string, args ...interface{}) {
	s.warnings = append(s.warnings, fmt.Sprintf(format, args...))
}

// sanitizeObject walks a map, applying rules 1-5 key by key. visited tracks
// the pointer identity of every map/slice currently open on the path from
// root to here, so a back-reference is reported as a cycle rather than
// walked forever.
func (s *sanitizer) sanitizeObject(obj map[string]interface{}, path string, depth int, visited map[uintptr]bool) (map[string]interface{}, error) {
	if ptr, ok := mapIdentity(obj); ok {
		if visited[ptr] {
			return nil, newError(ErrCircularReference, "Circular reference detected at path: %s", path)
		}
		visited[ptr] = true
		defer delete(visited, ptr)
	}

	if depth >= s.limits.MaxDepth {
		stringified, err := stringifyForDepth(obj)
		if err != nil {
			return nil, err
		}
		return stringified, nil
	}

	out := make(map[string]interface{}, len(obj))

	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, key := range keys {
		childPath := path + "." + key
		val, dropped, err := s.sanitizeValue(obj[key], childPath, depth, visited)
		if err != nil {
			return nil, err
		}
		if dropped {
			continue
		}
		out[key] = val
	}

	return out, nil
}

// sanitizeValue applies rules 1, 2, 3 and 4 to a single value. The bool
// return reports whether the key should be dropped entirely (rule 1).
func (s *sanitizer) sanitizeValue(v interface{}, path string, depth int, visited map[uintptr]bool) (interface{}, bool, error) {
	if v == nil {
		s.warn("Dropped null value at path: %s", path)
		return nil, true, nil
	}

	switch val := v.(type) {
	case string:
		return s.sanitizeString(val, path), false, nil

	case bool:
		return val, false, nil

	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return val, false, nil

	case *big.Int:
		return map[string]interface{}{"__type": "BigInt", "value": val.String()}, false, nil

	case time.Time:
		return map[string]interface{}{"__type": "Date", "value": val.UTC().Format(time.RFC3339Nano)}, false, nil

	case fmt.Stringer:
		// Treats symbol-like values (anything whose only identity is its
		// description) as their string form, per rule 2.
		return s.sanitizeString(val.String(), path), false, nil

	case map[string]interface{}:
		nested, err := s.sanitizeObject(val, path, depth+1, visited)
		if err != nil {
			return nil, false, err
		}
		return nested, false, nil

	case []interface{}:
		arr, err := s.sanitizeArray(val, path, depth, visited)
		if err != nil {
			return nil, false, err
		}
		return arr, false, nil

	default:
		rv := reflect.ValueOf(v)
		switch rv.Kind() {
		case reflect.Func, reflect.Chan, reflect.Invalid:
			s.warn("Dropped unsupported type %T at path: %s", v, path)
			return nil, true, nil
		case reflect.Slice, reflect.Array:
			generic := make([]interface{}, rv.Len())
			for i := 0; i < rv.Len(); i++ {
				generic[i] = rv.Index(i).Interface()
			}
			arr, err := s.sanitizeArray(generic, path, depth, visited)
			if err != nil {
				return nil, false, err
			}
			return arr, false, nil
		case reflect.Map:
			generic := make(map[string]interface{}, rv.Len())
			for _, key := range rv.MapKeys() {
				generic[fmt.Sprintf("%v", key.Interface())] = rv.MapIndex(key).Interface()
			}
			nested, err := s.sanitizeObject(generic, path, depth+1, visited)
			if err != nil {
				return nil, false, err
			}
			return nested, false, nil
		default:
			s.warn("Coerced unsupported type %T to string at path: %s", v, path)
			return fmt.Sprintf("%v", v), false, nil
		}
	}
}

// sanitizeString applies the string-length limit (rule 4).
func (s *sanitizer) sanitizeString(v string, path string) string {
	if len(v) <= s.limits.MaxStringLength {
		return v
	}
	truncated := v[:s.limits.MaxStringLength] + "…"
	s.warn("Truncated string at path %s from %d to %d characters", path, len(v), s.limits.MaxStringLength)
	return truncated
}

// sanitizeArray applies the array-length limit (rule 4) and recurses into
// elements.
func (s *sanitizer) sanitizeArray(arr []interface{}, path string, depth int, visited map[uintptr]bool) ([]interface{}, error) {
	limit := len(arr)
	truncated := false
	if limit > s.limits.MaxArrayLength {
		limit = s.limits.MaxArrayLength
		truncated = true
	}

	out := make([]interface{}, 0, limit+1)
	for i := 0; i < limit; i++ {
		elemPath := fmt.Sprintf("%s[%d]", path, i)
		val, dropped, err := s.sanitizeValue(arr[i], elemPath, depth, visited)
		if err != nil {
			return nil, err
		}
		if dropped {
			continue
		}
		out = append(out, val)
	}

	if truncated {
		more := len(arr) - limit
		out = append(out, fmt.Sprintf("…(%d more)", more))
		s.warn("Truncated array at path %s from %d to %d elements", path, len(arr), limit)
	}

	return out, nil
}

// stringifyForDepth implements rule 3: subtrees beyond the depth limit are
// JSON-stringified so they stay round-trippable.
func stringifyForDepth(obj map[string]interface{}) (map[string]interface{}, error) {
	raw, err := json.Marshal(obj)
	if err != nil {
		return nil, newError(ErrUnsupportedType, "failed to stringify subtree beyond depth limit: %v", err)
	}
	return map[string]interface{}{
		"__stringified":  true,
		"__originalType": "Object",
		"value":          string(raw),
	}, nil
}

// enforceSize implements rule 6. If the sanitized mapping serializes
// larger than the size limit, keys are dropped in insertion (here: sorted
// key) order until the mapping fits, or the sanitizer fails outright if
// truncation isn't allowed.
func (s *sanitizer) enforceSize(result *Result) error {
	raw, err := json.Marshal(result.Value)
	if err != nil {
		return newError(ErrUnsupportedType, "failed to measure sanitized size: %v", err)
	}
	if len(raw) <= s.limits.MaxSize {
		return nil
	}

	if !s.limits.AllowTruncation {
		return newError(ErrSizeLimitExceeded, "sanitized metadata size %d exceeds limit %d", len(raw), s.limits.MaxSize)
	}

	keys := make([]string, 0, len(result.Value))
	for k := range result.Value {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	kept := make(map[string]interface{}, len(result.Value))
	for k, v := range result.Value {
		kept[k] = v
	}

	var dropped []string
	for _, k := range keys {
		delete(kept, k)
		dropped = append(dropped, k)

		kept["__truncated"] = true
		kept["__remainingProperties"] = dropped

		raw, err = json.Marshal(kept)
		if err != nil {
			return newError(ErrUnsupportedType, "failed to measure sanitized size: %v", err)
		}
		if len(raw) <= s.limits.MaxSize {
			result.Value = kept
			result.Truncated = true
			result.Warnings = append(result.Warnings, "Aggressive truncation was applied to fit the metadata size limit")
			return nil
		}
	}

	return newError(ErrSizeLimitExceeded, "sanitized metadata size %d exceeds limit %d even after dropping all keys", len(raw), s.limits.MaxSize)
}

// mapIdentity returns a map's backing-pointer value for cycle detection.
// Only maps carry Go-level reference identity that can legitimately form
// a cycle through user-supplied metadata; slices holding a map element
// are still walked through that element's own identity check.
func mapIdentity(m map[string]interface{}) (uintptr, bool) {
	if m == nil {
		return 0, false
	}
	return reflect.ValueOf(m).Pointer(), true
}
