// Command codeloomd scans, watches, and serves a code graph over MCP.
// Its flag-parsing style follows the teacher's cmd/codeloom/main.go,
// trimmed to this system's three operations.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/heefoo/codeweave/internal/bm25"
	"github.com/heefoo/codeweave/internal/config"
	"github.com/heefoo/codeweave/internal/embedding"
	"github.com/heefoo/codeweave/internal/graph"
	"github.com/heefoo/codeweave/internal/ignore"
	"github.com/heefoo/codeweave/internal/mcpserver"
	"github.com/heefoo/codeweave/internal/parser"
	"github.com/heefoo/codeweave/internal/scanner"
	"github.com/heefoo/codeweave/internal/vectorstore"
)

func main() {
	if len(os.Args) < 2 {
		printHelp()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "scan":
		scanCmd(os.Args[2:])
	case "watch":
		watchCmd(os.Args[2:])
	case "serve":
		serveCmd(os.Args[2:])
	case "version":
		fmt.Println("codeloomd v0.1.0")
	case "help", "-h", "--help":
		printHelp()
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		printHelp()
		os.Exit(1)
	}
}

func printHelp() {
	fmt.Println(`codeloomd - dual-store (vector + graph) code indexing

Usage:
  codeloomd scan <directory> [-config path]
  codeloomd watch <directory>... [-config path]
  codeloomd serve [-config path]
  codeloomd version
  codeloomd help`)
}

// buildPipeline loads config and wires a Scanner (vector store, BM25
// index, embedding provider, graph service) shared by scan/watch/serve.
func buildPipeline(configPath string) (*scanner.Scanner, *graph.Service, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	storage, err := graph.NewStorage(graph.StorageConfig{
		URL:       cfg.Database.SurrealDB.URL,
		Namespace: cfg.Database.SurrealDB.Namespace,
		Database:  cfg.Database.SurrealDB.Database,
		Username:  cfg.Database.SurrealDB.Username,
		Password:  cfg.Database.SurrealDB.Password,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	svc := graph.NewService(storage, graphServiceConfig(cfg.Graph))
	svc.Start(context.Background())

	embProvider, err := embedding.NewProvider(cfg.Embedding)
	if err != nil {
		log.Printf("warning: embedding provider not available: %v", err)
		embProvider = nil
	}

	deps := scanner.Deps{
		Parser:       parser.NewParser(parser.WithEdgeExtraction()),
		VectorStore:  vectorstore.NewMemoryStore(),
		BM25Index:    bm25.NewMemoryIndex(),
		GraphIndexer: &scanner.ServiceGraphIndexer{Service: svc},
		Embedder:     embProvider,
		IgnoreFilter: ignore.New(nil),
	}
	s := scanner.New(deps, scanner.DefaultConfig())

	cleanup := func() {
		if err := svc.Close(); err != nil {
			log.Printf("warning: graph service close failed: %v", err)
		}
	}
	return s, svc, cleanup, nil
}

func graphServiceConfig(cfg config.GraphConfig) graph.ServiceConfig {
	out := graph.DefaultServiceConfig()
	if cfg.PoolSize > 0 {
		out.MaxPoolSize = cfg.PoolSize
	}
	if cfg.MaxRetries > 0 {
		out.MaxRetries = cfg.MaxRetries
	}
	if cfg.QueryTimeoutMs > 0 {
		out.QueryTimeout = time.Duration(cfg.QueryTimeoutMs) * time.Millisecond
	}
	if cfg.CircuitBreakerThreshold > 0 {
		out.CircuitBreakerThreshold = cfg.CircuitBreakerThreshold
	}
	if cfg.HealthCheckIntervalMs > 0 {
		out.HealthCheckInterval = time.Duration(cfg.HealthCheckIntervalMs) * time.Millisecond
	}
	if cfg.BlastRadiusCacheSize > 0 {
		out.BlastRadiusCacheSize = cfg.BlastRadiusCacheSize
	}
	if cfg.BlastRadiusCacheTTLMs > 0 {
		out.BlastRadiusCacheTTL = time.Duration(cfg.BlastRadiusCacheTTLMs) * time.Millisecond
	}
	return out
}

func scanCmd(args []string) {
	fs := flag.NewFlagSet("scan", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	fs.Parse(args)

	remaining := fs.Args()
	if len(remaining) == 0 {
		fmt.Println("Usage: codeloomd scan [options] <directory>")
		fs.PrintDefaults()
		os.Exit(1)
	}
	dir := remaining[0]

	s, _, cleanup, err := buildPipeline(*configPath)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer cleanup()

	start := time.Now()
	if err := s.Scan(context.Background(), dir); err != nil {
		log.Fatalf("scan failed: %v", err)
	}
	log.Printf("scan of %s complete in %s", dir, time.Since(start))
}

func watchCmd(args []string) {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	debounceMs := fs.Int("debounce-ms", 100, "Debounce window in milliseconds")
	fs.Parse(args)

	dirs := fs.Args()
	if len(dirs) == 0 {
		fmt.Println("Usage: codeloomd watch [options] <directory>...")
		fs.PrintDefaults()
		os.Exit(1)
	}

	s, _, cleanup, err := buildPipeline(*configPath)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer cleanup()

	for _, dir := range dirs {
		if err := s.Scan(context.Background(), dir); err != nil {
			log.Printf("warning: initial scan of %s failed: %v", dir, err)
		}
	}

	w, err := scanner.NewWatcher(s, time.Duration(*debounceMs)*time.Millisecond)
	if err != nil {
		log.Fatalf("failed to create watcher: %v", err)
	}
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutting down...")
		cancel()
	}()

	log.Printf("watching %d director(ies) for changes", len(dirs))
	if err := w.Watch(ctx, dirs); err != nil && err != context.Canceled {
		log.Fatalf("watch error: %v", err)
	}
}

func serveCmd(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	fs.Parse(args)

	s, svc, cleanup, err := buildPipeline(*configPath)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer cleanup()

	mcpSrv := mcpserver.New(mcpserver.Config{Scanner: s, Service: svc})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutting down...")
		cancel()
	}()

	if err := mcpSrv.ServeStdio(ctx); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
