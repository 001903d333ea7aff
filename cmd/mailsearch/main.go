package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dshills/mailsearch/internal/mcpserver"
	"github.com/dshills/mailsearch/internal/metadata"
	"github.com/dshills/mailsearch/internal/search"
	"github.com/dshills/mailsearch/internal/store"
	"github.com/dshills/mailsearch/internal/tokenizer"
	"github.com/dshills/mailsearch/pkg/types"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

// DefaultDBPath is the default location for the encrypted index database.
const DefaultDBPath = "~/.mailsearch/index.db"

func main() {
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		fmt.Printf("mailsearch\n")
		fmt.Printf("Version: %s\n", version)
		fmt.Printf("Build Time: %s\n", buildTime)
		fmt.Printf("Build Mode: %s\n", store.BuildMode)
		fmt.Printf("SQLite Driver: %s\n", store.DriverName)
		os.Exit(0)
	}

	log.SetOutput(os.Stderr)
	log.Printf("mailsearch v%s starting...", version)
	log.Printf("Build Mode: %s, Driver: %s", store.BuildMode, store.DriverName)

	dbPath := os.Getenv("MAILSEARCH_DB_PATH")
	if dbPath == "" {
		dbPath = DefaultDBPath
	}

	dbKey, err := decodeEnvKey("MAILSEARCH_DB_KEY")
	if err != nil {
		log.Fatalf("Failed to read MAILSEARCH_DB_KEY: %v", err)
	}
	dbIV, err := decodeEnvKey("MAILSEARCH_DB_IV")
	if err != nil {
		log.Fatalf("Failed to read MAILSEARCH_DB_IV: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := store.Open(ctx, dbPath)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer func() { _ = st.Close() }()

	engine, err := search.New(search.Config{
		DBKey:             dbKey,
		IV:                dbIV,
		TypeInfo:          defaultTypeInfo(),
		MetadataCacheSize: 512,
	}, st, tokenizer.New(), nil, nil, nil, nil)
	if err != nil {
		log.Fatalf("Failed to create search engine: %v", err)
	}

	srv, err := mcpserver.NewServer(engine)
	if err != nil {
		log.Fatalf("Failed to create MCP server: %v", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		log.Println("MCP server ready, listening on stdio...")
		errChan <- srv.Serve(ctx)
	}()

	select {
	case sig := <-sigChan:
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	case err := <-errChan:
		if err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}

	log.Println("Server stopped")
}

// decodeEnvKey reads and base64-decodes an environment variable
// carrying key material; dbKey/iv are never passed on the command
// line to keep them out of process listings.
func decodeEnvKey(name string) ([]byte, error) {
	encoded := os.Getenv(name)
	if encoded == "" {
		return nil, fmt.Errorf("%s is required", name)
	}
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("invalid base64: %w", err)
	}
	return decoded, nil
}

// defaultTypeInfo assigns each entity type its own (app, type) pair in
// the shared metadata namespace, all sharing App 0 and keyed by Type.
func defaultTypeInfo() map[types.EntityType]metadata.TypeInfo {
	return map[types.EntityType]metadata.TypeInfo{
		types.EntityTypeMail:          {App: 0, Type: 0},
		types.EntityTypeContact:       {App: 0, Type: 1},
		types.EntityTypeCalendarEvent: {App: 0, Type: 2},
	}
}
