// Package main provides the MCP server entry point for the Pakistani law index.
package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/paklaw/lawrag/internal/answer"
	"github.com/paklaw/lawrag/internal/config"
	"github.com/paklaw/lawrag/internal/embedding"
	"github.com/paklaw/lawrag/internal/generation"
	mcpserver "github.com/paklaw/lawrag/internal/mcp"
	"github.com/paklaw/lawrag/internal/retrieve"
	"github.com/paklaw/lawrag/internal/router"
	"github.com/paklaw/lawrag/internal/storage"
)

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Create context that cancels on SIGTERM/SIGINT
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	cfg, err := config.Load(getEnv("LAWRAG_CONFIG", "config.yaml"))
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	port := getEnv("PORT", "8080")

	// Initialize storage
	store, err := storage.NewQdrantStore(cfg.Qdrant.Host, cfg.Qdrant.Port, cfg.Qdrant.Collection, cfg.Embedding.Dimensions)
	if err != nil {
		log.Fatalf("failed to connect to Qdrant: %v", err)
	}
	defer store.Close()

	// Ensure collection exists
	if err := store.EnsureCollection(ctx); err != nil {
		log.Fatalf("failed to ensure collection: %v", err)
	}

	// Initialize the query stack
	client, err := embedding.NewClient()
	if err != nil {
		log.Fatalf("failed to create embedding client: %v", err)
	}
	embedder := embedding.NewEmbedder(client,
		embedding.WithModel(cfg.Embedding.Model),
		embedding.WithDimensions(cfg.Embedding.Dimensions),
		embedding.WithBatchSize(cfg.Embedding.BatchSize),
		embedding.WithTimeout(time.Duration(cfg.Embedding.TimeoutSecs)*time.Second),
		embedding.WithMaxAttempts(cfg.Index.RetryAttempts),
	)
	retriever := retrieve.NewRetriever(store, embedder,
		router.NewRouter(cfg.Retrieval.StructuralConfidence),
		retrieve.WithTopK(cfg.Retrieval.TopK),
		retrieve.WithOverfetch(cfg.Retrieval.OverfetchFactor),
		retrieve.WithTimeout(time.Duration(cfg.Embedding.TimeoutSecs)*time.Second),
	)
	generator := generation.NewGenerator(client.Client(),
		generation.WithModel(cfg.Generation.Model),
		generation.WithTimeout(time.Duration(cfg.Generation.TimeoutSecs)*time.Second),
		generation.WithMaxAttempts(cfg.Index.RetryAttempts),
	)
	composer := answer.NewComposer(generator, answer.WithContextBudget(cfg.Retrieval.ContextBudget))

	// Create MCP server
	server := mcpserver.NewServer(&mcpserver.Config{
		Retriever: retriever,
		Composer:  composer,
		Index:     store,
	})

	// Create HTTP server with multiple endpoints
	mux := http.NewServeMux()
	mux.HandleFunc("/", mcpserver.NewLandingHandler())
	mux.HandleFunc("/health", mcpserver.NewHealthHandler(store))
	mux.Handle("/mcp", mcpserver.NewHTTPHandler(server, nil))

	// Check if running in server mode (HTTP) or stdio mode (local development)
	serverMode := getEnv("SERVER_MODE", "false") == "true"

	if serverMode {
		// HTTP mode: serve MCP over HTTP for remote clients
		addr := "0.0.0.0:" + port
		log.Printf("Starting HTTP server on %s (MCP at /mcp, health at /health)", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Fatalf("HTTP server error: %v", err)
		}
	} else {
		// Stdio mode: run MCP server over stdin/stdout for local clients
		// Also start HTTP health endpoint in background for local testing
		go func() {
			addr := "0.0.0.0:" + port
			log.Printf("Starting health server on %s", addr)
			if err := http.ListenAndServe(addr, mux); err != nil {
				log.Printf("Health server error: %v", err)
			}
		}()

		log.Println("Starting Pakistan Law MCP Server (stdio mode)...")
		if err := server.Run(ctx); err != nil {
			log.Printf("server error: %v", err)
			os.Exit(1)
		}
	}
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
