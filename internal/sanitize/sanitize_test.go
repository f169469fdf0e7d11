package sanitize

import (
	"math/big"
	"strings"
	"testing"
	"time"
)

func TestSanitize_NonObjectInputIsWrapped(t *testing.T) {
	result, err := Sanitize("hello", DefaultLimits())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Value["value"] != "hello" {
		t.Errorf("expected wrapped value, got %v", result.Value)
	}
}

func TestSanitize_DropsNullValues(t *testing.T) {
	result, err := Sanitize(map[string]interface{}{"a": nil, "b": "keep"}, DefaultLimits())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := result.Value["a"]; ok {
		t.Errorf("expected null key 'a' to be dropped, got %v", result.Value)
	}
	if result.Value["b"] != "keep" {
		t.Errorf("expected 'b' to survive, got %v", result.Value)
	}
	if len(result.Warnings) == 0 {
		t.Errorf("expected a warning for the dropped null")
	}
}

func TestSanitize_DatesAndBigIntsGetTypeEnvelopes(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	result, err := Sanitize(map[string]interface{}{"when": now, "big": big.NewInt(42)}, DefaultLimits())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	when, ok := result.Value["when"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected 'when' to be a type envelope, got %T", result.Value["when"])
	}
	if when["__type"] != "Date" {
		t.Errorf("expected __type Date, got %v", when["__type"])
	}
	bigVal, ok := result.Value["big"].(map[string]interface{})
	if !ok || bigVal["__type"] != "BigInt" || bigVal["value"] != "42" {
		t.Errorf("expected a BigInt envelope with value \"42\", got %v", result.Value["big"])
	}
}

func TestSanitize_DepthLimitStringifiesSubtree(t *testing.T) {
	limits := DefaultLimits()
	limits.MaxDepth = 1

	nested := map[string]interface{}{
		"level1": map[string]interface{}{
			"level2": "too deep",
		},
	}
	result, err := Sanitize(nested, limits)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	level1, ok := result.Value["level1"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected level1 to be present, got %v", result.Value)
	}
	if level1["__stringified"] != true {
		t.Errorf("expected subtree beyond depth limit to be stringified, got %v", level1)
	}
}

func TestSanitize_StringAndArrayTruncation(t *testing.T) {
	limits := DefaultLimits()
	limits.MaxStringLength = 5
	limits.MaxArrayLength = 2

	input := map[string]interface{}{
		"s": "abcdefghij",
		"a": []interface{}{1, 2, 3, 4},
	}
	result, err := Sanitize(input, limits)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	s, ok := result.Value["s"].(string)
	if !ok || !strings.HasSuffix(s, "…") {
		t.Errorf("expected truncated string with ellipsis, got %v", result.Value["s"])
	}
	arr, ok := result.Value["a"].([]interface{})
	if !ok || len(arr) != 3 {
		t.Fatalf("expected truncated array of length 3 (2 kept + sentinel), got %v", result.Value["a"])
	}
	sentinel, ok := arr[2].(string)
	if !ok || !strings.Contains(sentinel, "more") {
		t.Errorf("expected '...more' sentinel, got %v", arr[2])
	}
}

func TestSanitize_CircularReferenceFails(t *testing.T) {
	a := map[string]interface{}{}
	b := map[string]interface{}{"a": a}
	a["b"] = b

	_, err := Sanitize(a, DefaultLimits())
	if err == nil {
		t.Fatal("expected a circular reference error")
	}
	sanErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T", err)
	}
	if sanErr.Kind != ErrCircularReference {
		t.Errorf("expected kind %s, got %s", ErrCircularReference, sanErr.Kind)
	}
	if !strings.Contains(sanErr.Message, "Circular reference detected at path:") {
		t.Errorf("unexpected message: %s", sanErr.Message)
	}
}

func TestSanitize_SizeLimitTruncatesWhenAllowed(t *testing.T) {
	limits := DefaultLimits()
	limits.MaxSize = 64
	limits.AllowTruncation = true

	input := map[string]interface{}{
		"a": strings.Repeat("x", 40),
		"b": strings.Repeat("y", 40),
		"c": strings.Repeat("z", 40),
	}
	result, err := Sanitize(input, limits)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Truncated {
		t.Errorf("expected the oversized mapping to be marked truncated")
	}
	if result.Value["__truncated"] != true {
		t.Errorf("expected __truncated marker in output, got %v", result.Value)
	}
}

func TestSanitize_SizeLimitFailsWhenTruncationDisallowed(t *testing.T) {
	limits := DefaultLimits()
	limits.MaxSize = 16
	limits.AllowTruncation = false

	input := map[string]interface{}{
		"a": strings.Repeat("x", 40),
	}
	_, err := Sanitize(input, limits)
	if err == nil {
		t.Fatal("expected a size limit error")
	}
	sanErr, ok := err.(*Error)
	if !ok || sanErr.Kind != ErrSizeLimitExceeded {
		t.Fatalf("expected SIZE_LIMIT_EXCEEDED, got %v", err)
	}
}
