// File path: cmd/litrag/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/openbiomed/litrag/internal/api"
	"github.com/openbiomed/litrag/internal/catalog"
	"github.com/openbiomed/litrag/internal/common"
	"github.com/openbiomed/litrag/internal/llm"
	"github.com/openbiomed/litrag/internal/retriever"
	"github.com/openbiomed/litrag/internal/vector"
)

func main() {
	logger := common.Logger()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := godotenv.Load(); err != nil {
		logger.Warn("litrag: .env file not loaded", "error", err)
	} else {
		logger.Info("litrag: environment loaded from .env")
	}

	addr := flag.String("addr", ":8081", "listen address")
	catalogPath := flag.String("catalog", defaultCatalogPath(), "path to the SQLite paper catalog")
	flag.Parse()

	logger.Info("litrag: startup initiated", "addr", *addr, "catalog", *catalogPath)

	var cat *catalog.Store
	if trimmed := strings.TrimSpace(*catalogPath); trimmed != "" {
		opened, err := catalog.Open(trimmed)
		if err != nil {
			logger.Error("litrag: catalog open failed", "error", err)
			fmt.Println("catalog error:", err)
			os.Exit(1)
		}
		cat = opened
		defer cat.Close()
	}

	provider := llm.NewProvider()
	logger.Info("litrag: llm provider ready", "provider", provider.Name())

	var store vector.Store
	client, err := vector.NewFromEnv()
	if err != nil {
		logger.Warn("litrag: qdrant config invalid, dense search degraded", "error", err)
	} else {
		store = client
		defer client.Close()
		if client.Available() {
			logger.Info("litrag: qdrant available", "collection", client.Collection())
		} else {
			logger.Warn("litrag: qdrant unreachable", "collection", client.Collection())
		}
	}

	engine := retriever.NewEngine(provider, store)

	syncCtx, syncCancel := context.WithTimeout(ctx, 30*time.Second)
	if restored, err := engine.SyncFromVector(syncCtx); err != nil {
		logger.Warn("litrag: corpus rehydration failed", "error", err)
	} else if restored > 0 {
		logger.Info("litrag: corpus rehydrated", "chunks", restored)
	}
	syncCancel()

	server := api.NewServer(engine, cat)

	logger.Info("litrag: server listening", "addr", *addr, "health", "/healthz")
	fmt.Printf("Serving on %s\n", *addr)
	reachable := *addr
	if strings.HasPrefix(reachable, ":") {
		reachable = "localhost" + reachable
	}
	logger.Info("litrag: verify reachability", "suggestion", fmt.Sprintf("curl http://%s/healthz", reachable))
	if err := http.ListenAndServe(*addr, server); err != nil {
		logger.Error("litrag: server stopped", "error", err)
		fmt.Println("server error:", err)
		os.Exit(1)
	}
}

func defaultCatalogPath() string {
	if env := strings.TrimSpace(os.Getenv("LITRAG_CATALOG_PATH")); env != "" {
		return env
	}
	return filepath.Join("data", "catalog.db")
}
