package config

import (
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"
)

// Severity classifies how serious a Violation is.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// ViolationAction records what the validator did about an out-of-range value.
type ViolationAction string

const (
	ActionRejected ViolationAction = "rejected"
	ActionClamped  ViolationAction = "clamped"
	ActionAccepted ViolationAction = "accepted"
)

// ViolationCode distinguishes the validator's failure modes.
type ViolationCode string

const (
	CodeOutOfBounds             ViolationCode = "OUT_OF_BOUNDS"
	CodeInvalidType             ViolationCode = "INVALID_TYPE"
	CodeInvalidLength           ViolationCode = "INVALID_LENGTH"
	CodeInvalidURL              ViolationCode = "INVALID_URL"
	CodeInvalidProtocol         ViolationCode = "INVALID_PROTOCOL"
	CodeTestSecretDetected      ViolationCode = "TEST_SECRET_DETECTED"
	CodeSuspiciousSecretPattern ViolationCode = "SUSPICIOUS_SECRET_PATTERN"
	CodeProductionSafety        ViolationCode = "PRODUCTION_SAFETY"
)

// Violation describes a single validation finding.
type Violation struct {
	Field    string
	Code     ViolationCode
	Message  string
	Value    interface{}
	Min      interface{}
	Max      interface{}
	Action   ViolationAction
	Severity Severity
}

// ValidateNumericBounds checks value against [min, max], and additionally
// warns (while still accepting) if it falls outside a narrower recommended
// range. A nil value passes through as valid-but-absent. NaN and +/-Inf are
// always rejected.
func ValidateNumericBounds(value *float64, min, max float64, field string, recommendedMin, recommendedMax *float64) (bool, *Violation) {
	if value == nil {
		return true, nil
	}
	v := *value

	if math.IsNaN(v) || math.IsInf(v, 0) {
		return false, &Violation{
			Field: field, Code: CodeOutOfBounds, Action: ActionRejected, Severity: SeverityError,
			Value: v, Min: min, Max: max,
			Message: fmt.Sprintf("%s must be a finite number, got %v", field, v),
		}
	}

	if v < min || v > max {
		return false, &Violation{
			Field: field, Code: CodeOutOfBounds, Action: ActionRejected, Severity: SeverityError,
			Value: v, Min: min, Max: max,
			Message: fmt.Sprintf("%s must be between %v and %v, got %v", field, min, max, v),
		}
	}

	if recommendedMin != nil && recommendedMax != nil && (v < *recommendedMin || v > *recommendedMax) {
		return true, &Violation{
			Field: field, Code: CodeOutOfBounds, Action: ActionAccepted, Severity: SeverityWarning,
			Value: v, Min: *recommendedMin, Max: *recommendedMax,
			Message: fmt.Sprintf("%s (%v) is within bounds but outside the recommended range [%v, %v]", field, v, *recommendedMin, *recommendedMax),
		}
	}

	return true, nil
}

// ValidateStringLength checks a value's length against [min, max]. value is
// interface{} so a non-string configured value surfaces as INVALID_TYPE
// rather than a silent zero-length string. nil passes through as absent.
func ValidateStringLength(value interface{}, min, max int, field string) (bool, *Violation) {
	if value == nil {
		return true, nil
	}

	s, ok := value.(string)
	if !ok {
		return false, &Violation{
			Field: field, Code: CodeInvalidType, Action: ActionRejected, Severity: SeverityError,
			Value:   value,
			Message: fmt.Sprintf("%s must be a string, got %T", field, value),
		}
	}

	if len(s) < min || len(s) > max {
		return false, &Violation{
			Field: field, Code: CodeInvalidLength, Action: ActionRejected, Severity: SeverityError,
			Value: len(s), Min: min, Max: max,
			Message: fmt.Sprintf("%s length must be between %d and %d, got %d", field, min, max, len(s)),
		}
	}

	return true, nil
}

// ValidateURL checks that a URL parses, uses an allowed protocol, and
// doesn't exceed a reasonable length. IPv4/IPv6 literals and percent-encoded
// paths are handled by net/url natively.
func ValidateURL(rawURL *string, allowedProtocols []string, field string) (bool, *Violation) {
	if rawURL == nil {
		return true, nil
	}

	const maxURLLength = 2048
	if len(*rawURL) > maxURLLength {
		return false, &Violation{
			Field: field, Code: CodeInvalidLength, Action: ActionRejected, Severity: SeverityError,
			Value:   len(*rawURL),
			Max:     maxURLLength,
			Message: fmt.Sprintf("%s exceeds maximum URL length of %d", field, maxURLLength),
		}
	}

	parsed, err := url.Parse(*rawURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return false, &Violation{
			Field: field, Code: CodeInvalidURL, Action: ActionRejected, Severity: SeverityError,
			Value:   *rawURL,
			Message: fmt.Sprintf("%s is not a valid URL: %v", field, err),
		}
	}

	if len(allowedProtocols) > 0 {
		allowed := false
		for _, proto := range allowedProtocols {
			if strings.EqualFold(parsed.Scheme, proto) {
				allowed = true
				break
			}
		}
		if !allowed {
			return false, &Violation{
				Field: field, Code: CodeInvalidProtocol, Action: ActionRejected, Severity: SeverityError,
				Value:   parsed.Scheme,
				Message: fmt.Sprintf("%s uses protocol %q, allowed: %v", field, parsed.Scheme, allowedProtocols),
			}
		}
	}

	return true, nil
}

var placeholderSecretPatterns = []string{"test", "example", "your_key_here", "replace_me", "dummy"}

// ValidateAPIKey enforces a length range and flags (without failing
// validation) credentials that look like placeholders or have a
// suspiciously low-entropy shape.
func ValidateAPIKey(key *string, minLen, maxLen int, provider, field string) (bool, []Violation) {
	if key == nil || *key == "" {
		return true, nil
	}

	k := *key
	var violations []Violation

	if len(k) < minLen || len(k) > maxLen {
		return false, []Violation{{
			Field: field, Code: CodeOutOfBounds, Action: ActionRejected, Severity: SeverityError,
			Value: len(k), Min: minLen, Max: maxLen,
			Message: fmt.Sprintf("%s length must be between %d and %d for provider %s", field, minLen, maxLen, provider),
		}}
	}

	lower := strings.ToLower(k)
	for _, pattern := range placeholderSecretPatterns {
		if strings.Contains(lower, pattern) {
			violations = append(violations, Violation{
				Field: field, Code: CodeTestSecretDetected, Severity: SeverityWarning,
				Message: fmt.Sprintf("%s for provider %s looks like a placeholder value", field, provider),
			})
			break
		}
	}

	if isAllSameChar(k) || isAllDigits(k) {
		violations = append(violations, Violation{
			Field: field, Code: CodeSuspiciousSecretPattern, Severity: SeverityWarning,
			Message: fmt.Sprintf("%s for provider %s has a suspicious repeated or all-numeric pattern", field, provider),
		})
	}

	return true, violations
}

func isAllSameChar(s string) bool {
	if len(s) == 0 {
		return false
	}
	for i := 1; i < len(s); i++ {
		if s[i] != s[0] {
			return false
		}
	}
	return true
}

func isAllDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// ValidationResult is ValidateConfig's aggregated report.
type ValidationResult struct {
	Valid               bool
	Errors              []Violation
	Warnings            []Violation
	Version             string
	Duration            time.Duration
	ReachabilityChecked bool
}

func (r *ValidationResult) record(valid bool, v *Violation) {
	if v == nil {
		return
	}
	if v.Severity == SeverityWarning {
		r.Warnings = append(r.Warnings, *v)
		return
	}
	r.Errors = append(r.Errors, *v)
	if !valid {
		r.Valid = false
	}
}

// ValidateConfig runs every structured validator against cfg and aggregates
// the result. It never performs network reachability checks itself, hence
// ReachabilityChecked is always false here — left for a caller that layers
// live connectivity probes on top.
func ValidateConfig(cfg *Config) *ValidationResult {
	start := time.Now()
	result := &ValidationResult{Valid: true, Version: CurrentConfigSchemaVersion}

	embDim := float64(cfg.Embedding.Dimension)
	recMin, recMax := 64.0, 4096.0
	ok, v := ValidateNumericBounds(&embDim, 1, 10000, "embedding.dimension", &recMin, &recMax)
	result.record(ok, v)

	batchSize := float64(cfg.Embedding.BatchSize)
	recMin, recMax = 8, 256
	ok, v = ValidateNumericBounds(&batchSize, 1, 1000, "embedding.batch_size", &recMin, &recMax)
	result.record(ok, v)

	poolSize := float64(cfg.Graph.PoolSize)
	recMin, recMax = 10, 200
	ok, v = ValidateNumericBounds(&poolSize, 1, 1000, "graph.pool_size", &recMin, &recMax)
	result.record(ok, v)

	retries := float64(cfg.Graph.MaxRetries)
	recMin, recMax = 1, 5
	ok, v = ValidateNumericBounds(&retries, 0, 20, "graph.max_retries", &recMin, &recMax)
	result.record(ok, v)

	port := float64(cfg.Server.Port)
	ok, v = ValidateNumericBounds(&port, 1, 65535, "server.port", nil, nil)
	result.record(ok, v)

	if cfg.Database.Backend == "surrealdb" {
		ok, v = ValidateURL(&cfg.Database.SurrealDB.URL, []string{"ws", "wss", "http", "https"}, "database.surrealdb.url")
		result.record(ok, v)

		ok, v = ValidateStringLength(cfg.Database.SurrealDB.Namespace, 1, 128, "database.surrealdb.namespace")
		result.record(ok, v)

		ok, v = ValidateStringLength(cfg.Database.SurrealDB.Database, 1, 128, "database.surrealdb.database")
		result.record(ok, v)
	}

	if cfg.LLM.Enabled && cfg.LLM.APIKey != "" {
		_, apiViolations := ValidateAPIKey(&cfg.LLM.APIKey, 8, 256, cfg.LLM.Provider, "llm.api_key")
		result.Warnings = append(result.Warnings, apiViolations...)
	}
	if cfg.Embedding.APIKey != "" {
		_, apiViolations := ValidateAPIKey(&cfg.Embedding.APIKey, 8, 256, cfg.Embedding.Provider, "embedding.api_key")
		result.Warnings = append(result.Warnings, apiViolations...)
	}

	result.Warnings = append(result.Warnings, CheckProductionSafety(cfg)...)

	result.Duration = time.Since(start)
	return result
}

// CheckProductionSafety emits heuristic warnings about settings that are
// risky to run unattended in production.
func CheckProductionSafety(cfg *Config) []Violation {
	var warnings []Violation

	if !cfg.Graph.CircuitBreakerEnabled {
		warnings = append(warnings, Violation{
			Field: "graph.circuit_breaker_enabled", Code: CodeProductionSafety, Severity: SeverityWarning,
			Message: "circuit breaker is disabled; a failing graph backend will not be isolated",
		})
	}

	if cfg.Graph.MaxRetries == 0 {
		warnings = append(warnings, Violation{
			Field: "graph.max_retries", Code: CodeProductionSafety, Severity: SeverityWarning,
			Message: "retries are disabled; transient graph failures will surface immediately",
		})
	}

	if cfg.Graph.PoolSize < 5 {
		warnings = append(warnings, Violation{
			Field: "graph.pool_size", Code: CodeProductionSafety, Severity: SeverityWarning,
			Message: fmt.Sprintf("pool size %d is low for production load", cfg.Graph.PoolSize),
		})
	}

	if cfg.Embedding.BatchSize < 4 || cfg.Embedding.BatchSize > 512 {
		warnings = append(warnings, Violation{
			Field: "embedding.batch_size", Code: CodeProductionSafety, Severity: SeverityWarning,
			Message: fmt.Sprintf("batch size %d is outside the recommended production range", cfg.Embedding.BatchSize),
		})
	}

	const fiveMinutesMs = 5 * 60 * 1000
	if cfg.Server.IndexTimeoutMs > fiveMinutesMs {
		warnings = append(warnings, Violation{
			Field: "server.index_timeout_ms", Code: CodeProductionSafety, Severity: SeverityWarning,
			Message: "index timeout exceeds 5 minutes",
		})
	}
	if cfg.Graph.QueryTimeoutMs > fiveMinutesMs {
		warnings = append(warnings, Violation{
			Field: "graph.query_timeout_ms", Code: CodeProductionSafety, Severity: SeverityWarning,
			Message: "query timeout exceeds 5 minutes",
		})
	}

	if cfg.LLM.Enabled && looksLikeTestSecret(cfg.LLM.APIKey) {
		warnings = append(warnings, Violation{
			Field: "llm.api_key", Code: CodeProductionSafety, Severity: SeverityWarning,
			Message: "LLM API key looks like a placeholder value in what appears to be a production config",
		})
	}

	return warnings
}

func looksLikeTestSecret(key string) bool {
	if key == "" {
		return false
	}
	lower := strings.ToLower(key)
	for _, pattern := range placeholderSecretPatterns {
		if strings.Contains(lower, pattern) {
			return true
		}
	}
	return false
}

// IsWithinBounds reports whether value falls in [min, max].
func IsWithinBounds(value, min, max float64) bool {
	return value >= min && value <= max
}

// IsWithinRecommendedBounds reports whether value falls in the narrower
// recommended range.
func IsWithinRecommendedBounds(value, recommendedMin, recommendedMax float64) bool {
	return value >= recommendedMin && value <= recommendedMax
}

// ClampValue clamps value into [min, max].
func ClampValue(value, min, max float64) float64 {
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}

// ErrOutOfBounds is returned by EnforceNumericBounds when clamp is false
// and value falls outside [min, max].
type ErrOutOfBounds struct {
	Field      string
	Value, Min, Max float64
}

func (e *ErrOutOfBounds) Error() string {
	return fmt.Sprintf("%s: value %v is out of bounds [%v, %v]", e.Field, e.Value, e.Min, e.Max)
}

// EnforceNumericBounds clamps value into [min, max] when clamp is true,
// otherwise returns an *ErrOutOfBounds for a value outside the range.
func EnforceNumericBounds(field string, value, min, max float64, clamp bool) (float64, error) {
	if IsWithinBounds(value, min, max) {
		return value, nil
	}
	if clamp {
		return ClampValue(value, min, max), nil
	}
	return value, &ErrOutOfBounds{Field: field, Value: value, Min: min, Max: max}
}
