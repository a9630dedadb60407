package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/schemactx/schemactx-mcp/internal/mcp"
	"github.com/schemactx/schemactx-mcp/internal/retriever"
	"github.com/schemactx/schemactx-mcp/internal/storage"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	// Handle version flag
	if len(os.Args) > 1 && os.Args[1] == "--version" {
		fmt.Printf("SchemaCtx MCP Server\n")
		fmt.Printf("Version: %s\n", version)
		fmt.Printf("Build Time: %s\n", buildTime)
		fmt.Printf("Build Mode: %s\n", storage.BuildMode)
		fmt.Printf("SQLite Driver: %s\n", storage.DriverName)
		os.Exit(0)
	}

	// stdout is reserved for the MCP protocol; everything else goes to stderr
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	logger.Info("SchemaCtx MCP server starting",
		"version", version, "build_mode", storage.BuildMode, "driver", storage.DriverName)

	dbPath := os.Getenv("SCHEMACTX_DB_PATH")
	if dbPath == "" {
		dbPath = mcp.DefaultDBPath
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	server, err := mcp.NewServer(ctx, mcp.Options{
		DBPath:                dbPath,
		Retriever:             retriever.Config{},
		Logger:                logger,
		DisableVectorFallback: os.Getenv("SCHEMACTX_DISABLE_VECTOR") != "",
	})
	if err != nil {
		logger.Error("failed to create MCP server", "error", err)
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	errChan := make(chan error, 1)
	go func() {
		logger.Info("MCP server ready, listening on stdio")
		errChan <- server.Serve(ctx)
	}()

	select {
	case sig := <-sigChan:
		logger.Info("received signal, shutting down", "signal", sig.String())
		cancel()
	case err := <-errChan:
		if err != nil {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}

	logger.Info("server stopped")
}
