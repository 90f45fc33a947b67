// ReceiptLens answers questions about stored purchase receipts.
//
// Receipt images arrive over HTTP or through a watched drop folder; each
// is OCR'd, structured by an LLM, stored in SQLite, and indexed for
// similarity search. Questions run through a refine/retrieve/reason
// pipeline that keeps a short per-session conversation.
package main

import (
	"context"
	"encoding/base64"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/receiptlens/receiptlens-go/internal/adapters/embedding"
	"github.com/receiptlens/receiptlens-go/internal/adapters/filewatcher"
	"github.com/receiptlens/receiptlens-go/internal/adapters/llm"
	"github.com/receiptlens/receiptlens-go/internal/adapters/ocr"
	"github.com/receiptlens/receiptlens-go/internal/adapters/receiptstore"
	"github.com/receiptlens/receiptlens-go/internal/adapters/session"
	"github.com/receiptlens/receiptlens-go/internal/adapters/vectorindex"
	"github.com/receiptlens/receiptlens-go/internal/config"
	"github.com/receiptlens/receiptlens-go/internal/domain/ports"
	"github.com/receiptlens/receiptlens-go/internal/domain/usecases"
	httpserver "github.com/receiptlens/receiptlens-go/internal/infrastructure/http"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("[ERROR] %v", err)
	}
}

func run() error {
	configPath := flag.String("config", "config.yaml", "path to the configuration file")
	flag.Parse()

	// .env is optional; real deployments set the environment directly
	if err := godotenv.Load(); err == nil {
		log.Printf("[INFO] loaded environment from .env")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := os.MkdirAll(filepath.Dir(cfg.Storage.ReceiptsDB), 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	store, err := receiptstore.NewSQLiteStore(cfg.Storage.ReceiptsDB)
	if err != nil {
		return fmt.Errorf("opening receipt store: %w", err)
	}
	defer store.Close()

	embedder := embedding.NewOllamaAdapter(cfg.Embedding.BaseURL, cfg.Embedding.Model)

	index, err := vectorindex.NewFileIndex(cfg.Storage.IndexPath, embedder)
	if err != nil {
		return fmt.Errorf("opening vector index: %w", err)
	}
	log.Printf("[INFO] vector index loaded with %d entries", index.Len())

	generator, err := llm.NewOpenRouterAdapter(llm.Config{
		BaseURL:     cfg.LLM.BaseURL,
		APIKeyEnv:   cfg.LLM.APIKeyEnv,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
	})
	if err != nil {
		return fmt.Errorf("creating generation service: %w", err)
	}

	sessions, closeSessions, err := newSessionStore(ctx, cfg.Session)
	if err != nil {
		return fmt.Errorf("creating session store: %w", err)
	}
	defer closeSessions()

	ocrClient := ocr.NewHTTPClient(cfg.OCR.BaseURL)
	if !ocrClient.IsServiceHealthy(ctx) {
		log.Printf("[WARN] OCR service at %s is not responding; ingestion will fail until it is up", cfg.OCR.BaseURL)
	}

	// one gate serializes every pipeline and ingestion invocation
	gate := &sync.Mutex{}

	retrieval := usecases.NewRetrieval(index, store)
	pipeline := usecases.NewPipeline(generator, retrieval, sessions, gate, cfg.TopK)
	ingestion := usecases.NewIngestion(ocrClient, generator, store, index, gate)

	if cfg.Watch.Dir != "" {
		if err := startDropFolder(ctx, cfg.Watch, ingestion); err != nil {
			return fmt.Errorf("starting drop folder watch: %w", err)
		}
	}

	server := httpserver.NewServer(pipeline, ingestion, store, cfg.Server.Addr)
	if err := server.Start(ctx); err != nil && err != http.ErrServerClosed {
		return err
	}
	log.Printf("[INFO] server stopped")
	return nil
}

// newSessionStore builds the configured session backend. The returned
// close function is a no-op for the in-memory store.
func newSessionStore(ctx context.Context, cfg config.SessionConfig) (ports.SessionStore, func(), error) {
	switch cfg.Backend {
	case "redis":
		store, err := session.NewRedisStore(ctx, session.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, nil, err
		}
		log.Printf("[INFO] using redis session store at %s", cfg.RedisAddr)
		return store, func() { store.Close() }, nil
	case "memory":
		return session.NewMemoryStore(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown session backend %q", cfg.Backend)
	}
}

// startDropFolder ingests every image file dropped into the watched
// directory until ctx is cancelled.
func startDropFolder(ctx context.Context, cfg config.WatchConfig, ingestion *usecases.Ingestion) error {
	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return err
	}

	watcher, err := filewatcher.NewWatcher(cfg.Extensions)
	if err != nil {
		return err
	}

	events, err := watcher.Watch(ctx, cfg.Dir)
	if err != nil {
		watcher.Stop()
		return err
	}
	log.Printf("[INFO] watching %s for receipt images", cfg.Dir)

	go func() {
		defer watcher.Stop()
		for event := range events {
			data, err := os.ReadFile(event.Path)
			if err != nil {
				log.Printf("[WARN] reading %s: %v", event.Path, err)
				continue
			}
			encoded := base64.StdEncoding.EncodeToString(data)
			receipt, err := ingestion.ProcessImage(ctx, encoded)
			if err != nil {
				log.Printf("[ERROR] ingesting %s: %v", event.Path, err)
				continue
			}
			log.Printf("[INFO] ingested %s as receipt %s", filepath.Base(event.Path), receipt.DocID)
		}
	}()
	return nil
}
