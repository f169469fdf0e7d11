// Package graph provides the durable write and structural read API over
// the property-graph backend: a connection pool, retrying execution with a
// circuit breaker, a periodic health monitor, transactions, validation,
// a blast-radius cache, and the risk-scoring / change-safety analyzer
// layered on top of the driver's raw CRUD.
package graph

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/heefoo/codeweave/internal/sanitize"
)

// ServiceConfig configures the Service's pool, retry, breaker, health
// monitor, and cache behavior. Fields mirror spec.md §4.3's tunables.
type ServiceConfig struct {
	MaxPoolSize        int
	AcquisitionTimeout time.Duration

	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration

	CircuitBreakerThreshold int
	CircuitBreakerTimeout   time.Duration

	HealthCheckInterval time.Duration
	QueryTimeout        time.Duration

	SlowQueryThreshold time.Duration

	BlastRadiusCacheSize int
	BlastRadiusCacheTTL  time.Duration

	ValidateRelationships bool
	DisableValidation     bool
}

// DefaultServiceConfig matches the defaults spec.md §4.3 and §4.2's
// GraphConfig call out.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		MaxPoolSize:             50,
		AcquisitionTimeout:      30 * time.Second,
		MaxRetries:              3,
		InitialDelay:            100 * time.Millisecond,
		MaxDelay:                30 * time.Second,
		CircuitBreakerThreshold: 5,
		CircuitBreakerTimeout:   60 * time.Second,
		HealthCheckInterval:     30 * time.Second,
		QueryTimeout:            30 * time.Second,
		SlowQueryThreshold:      1 * time.Second,
		BlastRadiusCacheSize:    100,
		BlastRadiusCacheTTL:     5 * time.Minute,
		ValidateRelationships:   true,
	}
}

// serviceMetrics collects the counters spec.md §4.3 exposes.
type serviceMetrics struct {
	mu sync.Mutex

	totalErrors       int
	connectionErrors  int
	deadlocks         int
	timeoutErrors     int
	slowQueryCount    int
	lastSlowQueryOp   string
	lastSlowQueryTime time.Duration
	acquisitionFails  int
}

func (m *serviceMetrics) incTotalErrors()        { m.mu.Lock(); m.totalErrors++; m.mu.Unlock() }
func (m *serviceMetrics) incConnectionErrors()   { m.mu.Lock(); m.connectionErrors++; m.mu.Unlock() }
func (m *serviceMetrics) incDeadlocks()          { m.mu.Lock(); m.deadlocks++; m.mu.Unlock() }
func (m *serviceMetrics) incTimeoutErrors()      { m.mu.Lock(); m.timeoutErrors++; m.mu.Unlock() }
func (m *serviceMetrics) incAcquisitionFailures() { m.mu.Lock(); m.acquisitionFails++; m.mu.Unlock() }

func (m *serviceMetrics) deadlockCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deadlocks
}

func (m *serviceMetrics) recordSlow(op string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.slowQueryCount++
	m.lastSlowQueryOp = op
	m.lastSlowQueryTime = d
}

// ServiceMetricsSnapshot is the read-only view returned by Service.Metrics.
type ServiceMetricsSnapshot struct {
	TotalErrors         int
	ConnectionErrors    int
	Deadlocks           int
	TimeoutErrors       int
	SlowQueryCount      int
	AcquisitionFailures int
	Pool                PoolMetrics
	Breaker             breakerMetrics
	NodeValidationFail  int64
	RelValidationFail   int64
	MetaValidationFail  int64
}

// Service wraps a Driver (normally *Storage) with everything spec.md §4.3
// requires. The driver's own CRUD methods are not duplicated — they are
// the bottom of this stack, invoked after the pool/breaker/retry/timeout
// layers have done their job.
type Service struct {
	driver Driver
	cfg    ServiceConfig

	pool    *Pool
	breaker *circuitBreaker
	cache   *blastRadiusCache
	metrics *serviceMetrics

	validationDisabled bool
	validationCounters validationCounters

	mu                 sync.Mutex
	isHealthy          bool
	isShuttingDown     bool
	activeTransactions int

	healthStop chan struct{}
	healthDone chan struct{}
}

// NewService constructs a Service around driver. It does not start the
// health monitor; call Start for that.
func NewService(driver Driver, cfg ServiceConfig) *Service {
	if cfg.MaxPoolSize == 0 {
		cfg = DefaultServiceConfig()
	}
	return &Service{
		driver:              driver,
		cfg:                 cfg,
		pool:                newPool(cfg.MaxPoolSize, cfg.AcquisitionTimeout),
		breaker:             newCircuitBreaker(cfg.CircuitBreakerThreshold, cfg.CircuitBreakerTimeout),
		cache:               newBlastRadiusCache(cfg.BlastRadiusCacheSize, cfg.BlastRadiusCacheTTL),
		metrics:             &serviceMetrics{},
		validationDisabled:  cfg.DisableValidation,
		isHealthy:           true,
	}
}

func (svc *Service) recordSlowQuery(op string, d time.Duration) {
	if d >= svc.cfg.SlowQueryThreshold {
		svc.metrics.recordSlow(op, d)
	}
}

// Start launches the periodic health monitor. Call Close to stop it.
func (svc *Service) Start(ctx context.Context) {
	svc.mu.Lock()
	if svc.healthStop != nil {
		svc.mu.Unlock()
		return
	}
	svc.healthStop = make(chan struct{})
	svc.healthDone = make(chan struct{})
	svc.mu.Unlock()

	go svc.healthLoop(ctx)
}

func (svc *Service) healthLoop(ctx context.Context) {
	defer close(svc.healthDone)

	interval := svc.cfg.HealthCheckInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			svc.runHealthCheck(ctx)
		case <-svc.healthStop:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (svc *Service) runHealthCheck(ctx context.Context) {
	timeout, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	err := svc.driver.Ping(timeout)

	svc.mu.Lock()
	svc.isHealthy = err == nil
	svc.mu.Unlock()

	if err != nil {
		log.Printf("graph health check failed: %v", err)
		svc.breaker.trip()
	}
}

// IsConnected reports spec.md §4.3.5's isConnected() formula.
func (svc *Service) IsConnected() bool {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return svc.isHealthy && !svc.isShuttingDown
}

// Metrics returns a point-in-time snapshot of the service's counters.
func (svc *Service) Metrics() ServiceMetricsSnapshot {
	svc.metrics.mu.Lock()
	node, rel, meta := svc.validationCounters.snapshot()
	snap := ServiceMetricsSnapshot{
		TotalErrors:         svc.metrics.totalErrors,
		ConnectionErrors:    svc.metrics.connectionErrors,
		Deadlocks:           svc.metrics.deadlocks,
		TimeoutErrors:       svc.metrics.timeoutErrors,
		SlowQueryCount:      svc.metrics.slowQueryCount,
		AcquisitionFailures: svc.metrics.acquisitionFails,
		Pool:                svc.pool.metrics(),
		Breaker:             svc.breaker.metrics(),
		NodeValidationFail:  node,
		RelValidationFail:   rel,
		MetaValidationFail:  meta,
	}
	svc.metrics.mu.Unlock()
	return snap
}

// Close drains active transactions (up to 30s), stops the health monitor,
// and closes the driver. Errors are logged, not returned, matching
// spec.md §4.3.11's close() contract; a metrics line is emitted noting
// whether the drain was graceful.
func (svc *Service) Close() error {
	svc.mu.Lock()
	if svc.isShuttingDown {
		svc.mu.Unlock()
		return nil
	}
	svc.isShuttingDown = true
	healthStop := svc.healthStop
	healthDone := svc.healthDone
	svc.mu.Unlock()

	graceful := svc.waitForTransactionsDrain(30 * time.Second)

	if healthStop != nil {
		close(healthStop)
		<-healthDone
	}

	if err := svc.driver.Close(); err != nil {
		log.Printf("graph service close: driver close failed: %v", err)
	}

	log.Printf("graph service closed: graceful=%v", graceful)
	return nil
}

func (svc *Service) waitForTransactionsDrain(max time.Duration) bool {
	deadline := time.Now().Add(max)
	for time.Now().Before(deadline) {
		svc.mu.Lock()
		n := svc.activeTransactions
		svc.mu.Unlock()
		if n == 0 {
			return true
		}
		time.Sleep(50 * time.Millisecond)
	}
	return false
}

// withSession acquires a pool session of the given mode for the duration
// of fn, releasing it afterward, and fails fast when the breaker is open.
func (svc *Service) withSession(ctx context.Context, mode SessionMode, fn func(ctx context.Context) error) error {
	if !svc.breaker.allow() {
		return ErrCircuitOpen
	}

	session, err := svc.pool.Acquire(ctx, mode)
	if err != nil {
		return err
	}
	defer session.Release()

	return fn(ctx)
}

// --- Write API (spec.md §4.3.8) ---

// UpsertNode validates and writes a single node, under retry.
func (svc *Service) UpsertNode(ctx context.Context, node *CodeNode) error {
	if errs := svc.validateNode(node); len(errs) > 0 {
		return fmt.Errorf("node validation failed: %+v", errs)
	}
	return svc.withSession(ctx, SessionWrite, func(ctx context.Context) error {
		return svc.executeWithRetry(ctx, "upsertNode", svc.retryOpts(), func(ctx context.Context) error {
			return svc.driver.UpsertNode(ctx, node)
		})
	})
}

// UpsertNodes validates and batch-writes nodes.
func (svc *Service) UpsertNodes(ctx context.Context, nodes []*CodeNode) error {
	for _, n := range nodes {
		if errs := svc.validateNode(n); len(errs) > 0 {
			return fmt.Errorf("node validation failed for %s: %+v", n.ID, errs)
		}
	}
	return svc.withSession(ctx, SessionWrite, func(ctx context.Context) error {
		return svc.executeWithRetry(ctx, "upsertNodes", svc.retryOpts(), func(ctx context.Context) error {
			return svc.driver.UpsertNodesBatch(ctx, nodes)
		})
	})
}

// CreateRelationship validates the edge, sanitizes metadata (C1), and
// writes it. If cfg.ValidateRelationships is set, both endpoints are
// confirmed to exist first.
func (svc *Service) CreateRelationship(ctx context.Context, edge *CodeEdge, metadata map[string]interface{}) error {
	if metadata != nil {
		result, err := sanitize.Sanitize(metadata, sanitize.DefaultLimits())
		if err != nil {
			return fmt.Errorf("relationship metadata sanitation failed: %w", err)
		}
		metadata = result.Value
	}

	if errs := svc.validateRelationship(edge, metadata); len(errs) > 0 {
		return fmt.Errorf("relationship validation failed: %+v", errs)
	}

	if svc.cfg.ValidateRelationships {
		if _, err := svc.driver.GetNode(ctx, edge.FromID); err != nil {
			return fmt.Errorf("relationship endpoint %q does not exist: %w", edge.FromID, err)
		}
		if _, err := svc.driver.GetNode(ctx, edge.ToID); err != nil {
			return fmt.Errorf("relationship endpoint %q does not exist: %w", edge.ToID, err)
		}
	}

	return svc.withSession(ctx, SessionWrite, func(ctx context.Context) error {
		return svc.executeWithRetry(ctx, "createRelationship", svc.retryOpts(), func(ctx context.Context) error {
			return svc.driver.UpsertEdgesBatch(ctx, []*CodeEdge{edge})
		})
	})
}

// CreateRelationships batches CreateRelationship's validation across many
// edges, grouping the write by edge type.
func (svc *Service) CreateRelationships(ctx context.Context, edges []*CodeEdge) error {
	byType := make(map[EdgeType][]*CodeEdge)
	for _, e := range edges {
		if errs := svc.validateRelationship(e, nil); len(errs) > 0 {
			return fmt.Errorf("relationship validation failed: %+v", errs)
		}
		byType[e.EdgeType] = append(byType[e.EdgeType], e)
	}

	return svc.withSession(ctx, SessionWrite, func(ctx context.Context) error {
		for _, batch := range byType {
			if err := svc.executeWithRetry(ctx, "createRelationships", svc.retryOpts(), func(ctx context.Context) error {
				return svc.driver.UpsertEdgesBatch(ctx, batch)
			}); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteNode removes a node and its edges.
func (svc *Service) DeleteNode(ctx context.Context, id string) error {
	return svc.withSession(ctx, SessionWrite, func(ctx context.Context) error {
		return svc.executeWithRetry(ctx, "deleteNode", svc.retryOpts(), func(ctx context.Context) error {
			if err := svc.driver.DeleteEdgesByFile(ctx, id); err != nil {
				return err
			}
			return svc.driver.DeleteNodesByFile(ctx, id)
		})
	})
}

// DeleteNodesByFilePath removes all nodes and edges for one file.
func (svc *Service) DeleteNodesByFilePath(ctx context.Context, filePath string) error {
	return svc.withSession(ctx, SessionWrite, func(ctx context.Context) error {
		return svc.executeWithRetry(ctx, "deleteNodesByFilePath", svc.retryOpts(), func(ctx context.Context) error {
			if err := svc.driver.DeleteEdgesByFile(ctx, filePath); err != nil {
				return err
			}
			return svc.driver.DeleteNodesByFile(ctx, filePath)
		})
	})
}

// DeleteNodesByMultipleFilePaths removes nodes/edges for each of the given paths.
func (svc *Service) DeleteNodesByMultipleFilePaths(ctx context.Context, filePaths []string) error {
	return svc.withSession(ctx, SessionWrite, func(ctx context.Context) error {
		return svc.executeWithRetry(ctx, "deleteNodesByMultipleFilePaths", svc.retryOpts(), func(ctx context.Context) error {
			return svc.driver.DeleteNodesByMultipleFilePaths(ctx, filePaths)
		})
	})
}

// ClearAll is destructive and rethrows on failure — unlike the read paths,
// a silent failure here would leave the caller believing the graph was
// wiped when it wasn't.
func (svc *Service) ClearAll(ctx context.Context) error {
	return svc.driver.ClearAll(ctx)
}

func (svc *Service) retryOpts() RetryOptions {
	return RetryOptions{
		MaxRetries:   svc.cfg.MaxRetries,
		InitialDelay: svc.cfg.InitialDelay,
		MaxDelay:     svc.cfg.MaxDelay,
	}
}

// --- Read API (spec.md §4.3.9) ---
//
// Every read method returns a safe empty default ([]CodeNode{} / []CodeEdge{})
// on disconnect rather than propagating the error, so a caller composing a
// dashboard or an MCP tool response degrades gracefully instead of failing
// the whole request over one disconnected store.

func (svc *Service) FindCallers(ctx context.Context, nodeID string) []CodeNode {
	return svc.safeNodes(ctx, "findCallers", func(ctx context.Context) ([]CodeNode, error) {
		return svc.driver.GetCallers(ctx, nodeID)
	})
}

func (svc *Service) FindCallees(ctx context.Context, nodeID string) []CodeNode {
	return svc.safeNodes(ctx, "findCallees", func(ctx context.Context) ([]CodeNode, error) {
		return svc.driver.GetCallees(ctx, nodeID)
	})
}

func (svc *Service) FindDependencies(ctx context.Context, nodeID string, maxDepth int) []CodeNode {
	return svc.safeNodes(ctx, "findDependencies", func(ctx context.Context) ([]CodeNode, error) {
		return svc.driver.GetTransitiveDependencies(ctx, nodeID, maxDepth)
	})
}

func (svc *Service) FindDependents(ctx context.Context, nodeID string, maxDepth int) []CodeNode {
	return svc.safeNodes(ctx, "findDependents", func(ctx context.Context) ([]CodeNode, error) {
		return svc.driver.GetImpactedNodes(ctx, nodeID, maxDepth)
	})
}

func (svc *Service) safeNodes(ctx context.Context, op string, fn func(ctx context.Context) ([]CodeNode, error)) []CodeNode {
	if !svc.IsConnected() {
		return []CodeNode{}
	}
	var nodes []CodeNode
	err := svc.executeWithTimeout(ctx, op, func(ctx context.Context) error {
		var err error
		nodes, err = fn(ctx)
		return err
	})
	if err != nil {
		log.Printf("graph read %s failed: %v", op, err)
		return []CodeNode{}
	}
	return nodes
}

func (svc *Service) executeWithTimeout(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	timeout := svc.cfg.QueryTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	err := executeWithTimeout(ctx, op, timeout, fn)
	if err != nil && strings.HasPrefix(err.Error(), "query timeout") {
		svc.metrics.incTimeoutErrors()
	}
	return err
}

// --- Impact, dependency tree, blast radius, change safety (§4.3.9) ---

const (
	maxImpactDepth = 10
	minImpactDepth = 1
)

// ImpactResult is findImpactedNodes' structured return value.
type ImpactResult struct {
	Nodes        []CodeNode
	TestCoverage int
}

// FindImpactedNodes walks maxDepth levels of reverse call/extend/implement
// edges from id and reports how many of the impacted nodes look like
// tests (file path contains "test", case-insensitively — the closest
// signal available without a dedicated test-edge type).
func (svc *Service) FindImpactedNodes(ctx context.Context, id string, maxDepth, limit int) (*ImpactResult, error) {
	if maxDepth < minImpactDepth || maxDepth > maxImpactDepth {
		return nil, fmt.Errorf("maxDepth must be in [%d, %d], got %d", minImpactDepth, maxImpactDepth, maxDepth)
	}

	nodes := svc.safeNodes(ctx, "findImpactedNodes", func(ctx context.Context) ([]CodeNode, error) {
		return svc.driver.GetImpactedNodes(ctx, id, maxDepth)
	})
	nodes = limitNodes(nodes, limit)

	return &ImpactResult{Nodes: nodes, TestCoverage: countTestNodes(nodes)}, nil
}

// FindDependencyTree walks maxDepth levels of forward calls/extends/
// implements/imports/type edges from id.
func (svc *Service) FindDependencyTree(ctx context.Context, id string, maxDepth, limit int) ([]CodeNode, error) {
	if maxDepth < minImpactDepth || maxDepth > maxImpactDepth {
		return nil, fmt.Errorf("maxDepth must be in [%d, %d], got %d", minImpactDepth, maxImpactDepth, maxDepth)
	}
	nodes := svc.safeNodes(ctx, "findDependencyTree", func(ctx context.Context) ([]CodeNode, error) {
		return svc.driver.GetTransitiveDependencies(ctx, id, maxDepth)
	})
	return limitNodes(nodes, limit), nil
}

func limitNodes(nodes []CodeNode, limit int) []CodeNode {
	if limit > 0 && len(nodes) > limit {
		return nodes[:limit]
	}
	return nodes
}

func countTestNodes(nodes []CodeNode) int {
	count := 0
	for _, n := range nodes {
		if strings.Contains(strings.ToLower(n.FilePath), "test") {
			count++
		}
	}
	return count
}

// BlastRadius is calculateBlastRadius's result: the target plus aggregate
// impact/dependency metrics and a risk score.
type BlastRadius struct {
	Target          CodeNode
	ImpactedNodes   []CodeNode
	Dependencies    []CodeNode
	ImpactedFiles   int
	TestCount       int
	MaxDepth        int
	RiskScore       float64
	FromCache       bool
}

// CalculateBlastRadius fetches the target, consults the LRU/TTL cache
// keyed by "<id>_<maxDepth>", and on miss runs the impact and dependency
// queries to compute the risk score.
func (svc *Service) CalculateBlastRadius(ctx context.Context, id string, maxDepth, limit int) (*BlastRadius, error) {
	key := blastRadiusCacheKey(id, maxDepth)
	if cached, ok := svc.cache.get(key); ok {
		hit := *cached
		hit.FromCache = true
		return &hit, nil
	}

	target, err := svc.driver.GetNode(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("blast radius target %q not found: %w", id, err)
	}

	impact, err := svc.FindImpactedNodes(ctx, id, maxDepth, limit)
	if err != nil {
		return nil, err
	}
	deps, err := svc.FindDependencyTree(ctx, id, maxDepth, limit)
	if err != nil {
		return nil, err
	}

	files := distinctFileCount(impact.Nodes)
	risk := calculateRiskScore(len(impact.Nodes), files, maxDepth, impact.TestCoverage)

	result := &BlastRadius{
		Target:        *target,
		ImpactedNodes: impact.Nodes,
		Dependencies:  deps,
		ImpactedFiles: files,
		TestCount:     impact.TestCoverage,
		MaxDepth:      maxDepth,
		RiskScore:     risk,
	}

	svc.cache.put(key, result)
	return result, nil
}

func distinctFileCount(nodes []CodeNode) int {
	seen := map[string]bool{}
	for _, n := range nodes {
		seen[n.FilePath] = true
	}
	return len(seen)
}

// calculateRiskScore implements spec.md §4.3's formula, clamped to [0, 100]
// (P8).
func calculateRiskScore(impactedNodes, impactedFiles, maxDepth, testCount int) float64 {
	score := 0.0
	score += minFloat(10*float64(impactedNodes), 30)
	score += minFloat(20*float64(impactedFiles), 40)
	score += minFloat(15*float64(maxDepth), 30)
	if testCount == 0 {
		score += 50
	} else {
		score -= minFloat(5*float64(testCount), 25)
	}
	return clampFloat(0, 100, score)
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func clampFloat(lo, hi, v float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// SafetyLevel is assessChangeSafety's coarse categorization.
type SafetyLevel string

const (
	SafetySafe      SafetyLevel = "safe"
	SafetyModerate  SafetyLevel = "moderate"
	SafetyRisky     SafetyLevel = "risky"
	SafetyDangerous SafetyLevel = "dangerous"
)

// ChangeSafety is assessChangeSafety's structured result.
type ChangeSafety struct {
	Safety          SafetyLevel
	RiskScore       float64
	Reasons         []string
	Recommendations []string
}

// dangerousSafetyResult is the safe default returned on disconnect — a
// read-path failure here must not be mistaken for "this change is safe".
func dangerousSafetyResult() *ChangeSafety {
	return &ChangeSafety{
		Safety:          SafetyDangerous,
		RiskScore:       100,
		Reasons:         []string{"graph service is disconnected; change impact could not be assessed"},
		Recommendations: []string{"retry once the graph store is reachable before proceeding"},
	}
}

// AssessChangeSafety derives a safety level and human-readable guidance
// from the blast radius metrics for id.
func (svc *Service) AssessChangeSafety(ctx context.Context, id string) (*ChangeSafety, error) {
	if !svc.IsConnected() {
		return dangerousSafetyResult(), nil
	}

	blast, err := svc.CalculateBlastRadius(ctx, id, 3, 0)
	if err != nil {
		return dangerousSafetyResult(), nil
	}

	var safety SafetyLevel
	switch {
	case blast.RiskScore < 20:
		safety = SafetySafe
	case blast.RiskScore < 40:
		safety = SafetyModerate
	case blast.RiskScore < 70:
		safety = SafetyRisky
	default:
		safety = SafetyDangerous
	}

	reasons := []string{
		fmt.Sprintf("%d impacted node(s) across %d file(s)", len(blast.ImpactedNodes), blast.ImpactedFiles),
	}
	var recs []string
	if blast.TestCount == 0 {
		reasons = append(reasons, "no test coverage found among impacted nodes")
		recs = append(recs, "add or run tests covering the impacted nodes before merging")
	}
	if len(blast.ImpactedNodes) > 10 {
		recs = append(recs, "consider splitting this change — it touches a large blast radius")
	}

	return &ChangeSafety{
		Safety:          safety,
		RiskScore:       blast.RiskScore,
		Reasons:         reasons,
		Recommendations: recs,
	}, nil
}

// --- Custom query (§4.3.9) ---

var dangerousQueryPatterns = []string{"${", "`", "'+'", "\"+\""}

// ExecuteQuery refuses queries that look string-concatenated unless
// allowDangerous is set, as a heuristic guard against injection from
// external input — this is not a substitute for parameterization, which
// the driver already enforces on every other path.
func (svc *Service) ExecuteQuery(ctx context.Context, query string, params map[string]any, timeout time.Duration, allowDangerous bool) (any, error) {
	if !allowDangerous {
		for _, p := range dangerousQueryPatterns {
			if strings.Contains(query, p) {
				return nil, fmt.Errorf("query rejected: looks string-concatenated (contains %q); pass allowDangerous to override", p)
			}
		}
	}
	if timeout <= 0 {
		timeout = svc.cfg.QueryTimeout
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	var result any
	err := executeWithTimeout(ctx, "executeQuery", timeout, func(ctx context.Context) error {
		return svc.executeWithRetry(ctx, "executeQuery", svc.retryOpts(), func(ctx context.Context) error {
			var err error
			result, err = svc.driver.RawQuery(ctx, query, params)
			return err
		})
	})
	if err != nil && strings.HasPrefix(err.Error(), "query timeout") {
		svc.metrics.incTimeoutErrors()
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}
