package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/mark3labs/mcp-go/server"

	"github.com/schemactx/schemactx-mcp/internal/retriever"
	"github.com/schemactx/schemactx-mcp/internal/schemadoc"
	"github.com/schemactx/schemactx-mcp/internal/storage"
	"github.com/schemactx/schemactx-mcp/internal/vectorstore"
	"github.com/schemactx/schemactx-mcp/pkg/types"
)

const (
	// ServerName is the MCP server name
	ServerName = "schemactx-mcp"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
	// DefaultDBPath is the default location for the database
	DefaultDBPath = "~/.schemactx"
)

// Options configures server construction
type Options struct {
	DBPath    string
	Retriever retriever.Config
	Logger    *slog.Logger

	// DisableVectorFallback skips embedder construction entirely;
	// otherwise the provider is chosen from the environment.
	DisableVectorFallback bool
}

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp    *server.MCPServer
	store  storage.Store
	engine *retriever.Engine
	vstore *vectorstore.Store
	logger *slog.Logger

	mu             sync.Mutex
	activeSchemaID string
}

// NewServer creates a new MCP server instance and, when the store
// holds an active schema from a previous run, restores it into the
// engine.
func NewServer(ctx context.Context, opts Options) (*Server, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	dbPath := opts.DBPath
	if dbPath == "" || dbPath == DefaultDBPath {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dbPath = filepath.Join(home, ".schemactx")
	}
	if err := os.MkdirAll(dbPath, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	store, err := storage.NewSQLiteStore(ctx, filepath.Join(dbPath, "schemactx.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	engineOpts := []retriever.Option{retriever.WithLogger(logger)}
	var vstore *vectorstore.Store
	if !opts.DisableVectorFallback {
		embedder, err := vectorstore.NewFromEnv()
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to initialize embedder: %w", err)
		}
		vstore = vectorstore.NewStore(embedder, vectorstore.StoreConfig{})
		engineOpts = append(engineOpts, retriever.WithVectorStore(vstore))
	}

	engine, err := retriever.New(opts.Retriever, engineOpts...)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to initialize retriever: %w", err)
	}

	s := &Server{
		mcp:    server.NewMCPServer(ServerName, ServerVersion),
		store:  store,
		engine: engine,
		vstore: vstore,
		logger: logger,
	}
	s.registerTools()

	if err := s.restoreActiveSchema(ctx); err != nil {
		// A corrupted stored schema should not keep the server from
		// starting; the operator can load a fresh one.
		logger.Warn("failed to restore persisted schema", "error", err)
	}

	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(_ context.Context) error {
	defer func() { _ = s.store.Close() }()
	return server.ServeStdio(s.mcp)
}

func (s *Server) registerTools() {
	s.mcp.AddTool(loadSchemaTool(), s.handleLoadSchema)
	s.mcp.AddTool(retrieveContextTool(), s.handleRetrieveContext)
	s.mcp.AddTool(graphStatsTool(), s.handleGraphStats)
	s.mcp.AddTool(resolveValueTool(), s.handleResolveValue)
	s.mcp.AddTool(listConceptsTool(), s.handleListConcepts)
	s.mcp.AddTool(addExampleTool(), s.handleAddExample)
	s.mcp.AddTool(removeExampleTool(), s.handleRemoveExample)
}

// restoreActiveSchema reloads the persisted active schema and its
// examples into the engine.
func (s *Server) restoreActiveSchema(ctx context.Context) error {
	rec, err := s.store.GetActiveSchema(ctx)
	if errors.Is(err, types.ErrSnapshotNotFound) {
		return nil // fresh database
	}
	if err != nil {
		return err
	}

	doc, warnings, err := schemadoc.Parse(rec.Content)
	if err != nil {
		return fmt.Errorf("stored schema %s is invalid: %w", rec.ID, err)
	}
	for _, w := range warnings {
		s.logger.Warn("schema warning", "detail", w.String())
	}

	if err := s.activateDocument(ctx, doc, rec.ID); err != nil {
		return err
	}

	examples, err := s.store.ListExamples(ctx, rec.ID)
	if err != nil {
		return err
	}
	for _, ex := range examples {
		err := s.engine.AddExample(&types.Example{
			ID:       ex.ID,
			Question: ex.Question,
			Query:    ex.Query,
			Concepts: ex.Concepts,
			Fields:   ex.Fields,
			Values:   ex.Values,
			Variants: ex.Variants,
		})
		if err != nil {
			s.logger.Warn("skipping persisted example", "id", ex.ID, "error", err)
		}
	}

	s.logger.Info("restored persisted schema",
		"schema", doc.Name, "version", doc.Version, "examples", len(examples))
	return nil
}

// activateDocument loads a parsed document into the engine and the
// vector fallback, and records it as the active schema.
func (s *Server) activateDocument(ctx context.Context, doc *types.SchemaDocument, schemaID string) error {
	if err := s.engine.Load(doc); err != nil {
		return err
	}
	if s.vstore != nil {
		if err := s.vstore.BuildFromSchema(ctx, doc); err != nil {
			// Degraded mode: retrieval works without the fallback.
			s.logger.Warn("vector store build failed", "error", err)
		}
	}
	s.mu.Lock()
	s.activeSchemaID = schemaID
	s.mu.Unlock()
	return nil
}

func (s *Server) schemaID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeSchemaID
}
