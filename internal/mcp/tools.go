package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/schemactx/schemactx-mcp/internal/retriever"
	"github.com/schemactx/schemactx-mcp/internal/schemadoc"
	"github.com/schemactx/schemactx-mcp/internal/storage"
	"github.com/schemactx/schemactx-mcp/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams   = -32602 // Invalid method parameters
	ErrorCodeInternalError   = -32603 // Internal JSON-RPC error
	ErrorCodeNoSchemaLoaded  = -32001 // No schema has been loaded yet
	ErrorCodeSchemaInvalid   = -32002 // Schema document failed validation
	ErrorCodeEmptyQuestion   = -32004 // Question parameter is empty
	ErrorCodeExampleConflict = -32005 // Example id already registered
	ErrorCodeNotFound        = -32006 // Referenced entity does not exist
)

// handleLoadSchema handles the load_schema tool invocation
func (s *Server) handleLoadSchema(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	inline := getStringDefault(args, "yaml", "")
	path := getStringDefault(args, "path", "")
	if inline == "" && path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "either yaml or path is required", map[string]interface{}{
			"params": []string{"yaml", "path"},
			"reason": "both missing",
		})
	}

	var content []byte
	if inline != "" {
		content = []byte(inline)
	} else {
		if !filepath.IsAbs(path) {
			return nil, newMCPError(ErrorCodeInvalidParams, "path must be absolute", map[string]interface{}{
				"param": "path",
				"value": path,
			})
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, newMCPError(ErrorCodeInvalidParams, "failed to read schema file", map[string]interface{}{
				"param": "path",
				"error": err.Error(),
			})
		}
		content = data
	}

	doc, warnings, err := schemadoc.Parse(content)
	if err != nil {
		return nil, newMCPError(ErrorCodeSchemaInvalid, "schema validation failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	rec := &storage.SchemaRecord{
		Name:        doc.Name,
		Version:     doc.Version,
		Description: doc.Description,
		Content:     content,
	}
	if err := s.store.SaveSchema(ctx, rec); err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to persist schema", map[string]interface{}{
			"error": err.Error(),
		})
	}
	if err := s.store.ActivateSchema(ctx, rec.ID); err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to activate schema", map[string]interface{}{
			"error": err.Error(),
		})
	}

	if err := s.activateDocument(ctx, doc, rec.ID); err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to build indices", map[string]interface{}{
			"error": err.Error(),
		})
	}

	stats, err := s.engine.Stats()
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to read graph stats", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"loaded":    true,
		"schema_id": rec.ID,
		"name":      doc.Name,
		"version":   doc.Version,
		"concepts":  stats.Concepts,
		"fields":    stats.Fields,
		"endpoints": stats.Endpoints,
		"examples":  stats.Examples,
	}
	if len(warnings) > 0 {
		list := make([]string, len(warnings))
		for i, w := range warnings {
			list[i] = w.String()
		}
		response["warnings"] = list
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleRetrieveContext handles the retrieve_context tool invocation
func (s *Server) handleRetrieveContext(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	question := getStringDefault(args, "question", "")
	if question == "" {
		return nil, newMCPError(ErrorCodeEmptyQuestion, "question parameter is required and cannot be empty", map[string]interface{}{
			"param":  "question",
			"reason": "missing or empty",
		})
	}

	mode, err := retriever.ParseMode(getStringDefault(args, "strategy", ""))
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid strategy", map[string]interface{}{
			"param":   "strategy",
			"allowed": []string{"concept", "field", "hybrid", "fusion"},
		})
	}

	rc, err := s.engine.RetrieveWithStrategy(ctx, question, mode)
	if errors.Is(err, types.ErrNoSchemaLoaded) {
		return nil, newMCPError(ErrorCodeNoSchemaLoaded, "no schema loaded", map[string]interface{}{
			"hint": "use the load_schema tool first",
		})
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "retrieval failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	// Best-effort query log; retrieval results never depend on it.
	logRec := &storage.QueryRecord{
		SchemaID:      s.schemaID(),
		Question:      question,
		Strategy:      rc.Strategy,
		FieldCount:    rc.Stats.TotalCount,
		EndpointCount: rc.Stats.EndpointCount,
		DurationMs:    rc.Duration.Milliseconds(),
	}
	if err := s.store.LogQuery(ctx, logRec); err != nil {
		s.logger.Warn("failed to log query", "error", err)
	}

	return mcp.NewToolResultText(formatJSONValue(rc)), nil
}

// handleGraphStats handles the graph_stats tool invocation
func (s *Server) handleGraphStats(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	stats, err := s.engine.Stats()
	if errors.Is(err, types.ErrNoSchemaLoaded) {
		return mcp.NewToolResultText(formatJSON(map[string]interface{}{
			"loaded":  false,
			"message": "No schema loaded. Use the load_schema tool first.",
		})), nil
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to read graph stats", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"loaded": true,
		"graph": map[string]interface{}{
			"nodes":         stats.Nodes,
			"edges":         stats.Edges,
			"nodes_by_kind": stats.NodesByKind,
			"concepts":      stats.Concepts,
			"fields":        stats.Fields,
			"endpoints":     stats.Endpoints,
			"examples":      stats.Examples,
		},
	}

	if status, err := s.store.Status(ctx); err == nil {
		response["store"] = map[string]interface{}{
			"schemas":          status.SchemaCount,
			"examples":         status.ExampleCount,
			"queries_logged":   status.QueryCount,
			"active_schema_id": status.ActiveSchemaID,
		}
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleResolveValue handles the resolve_value tool invocation
func (s *Server) handleResolveValue(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	word := getStringDefault(args, "word", "")
	if word == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "word parameter is required", map[string]interface{}{
			"param":  "word",
			"reason": "missing or empty",
		})
	}

	ref, found := s.engine.ResolveValue(word)
	response := map[string]interface{}{
		"word":     word,
		"resolved": found,
	}
	if found {
		response["owner"] = ref.Owner
		response["canonical_value"] = ref.Canonical
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleListConcepts handles the list_concepts tool invocation
func (s *Server) handleListConcepts(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	concepts, err := s.engine.Concepts()
	if errors.Is(err, types.ErrNoSchemaLoaded) {
		return nil, newMCPError(ErrorCodeNoSchemaLoaded, "no schema loaded", map[string]interface{}{
			"hint": "use the load_schema tool first",
		})
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to list concepts", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"concepts": concepts,
		"count":    len(concepts),
	})), nil
}

// handleAddExample handles the add_example tool invocation
func (s *Server) handleAddExample(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	id := getStringDefault(args, "id", "")
	question := getStringDefault(args, "question", "")
	if id == "" || question == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "id and question are required", map[string]interface{}{
			"params": []string{"id", "question"},
		})
	}

	example := &types.Example{
		ID:       id,
		Question: question,
		Query:    getStringDefault(args, "query", ""),
		Concepts: getStringList(args, "concepts"),
		Fields:   getStringList(args, "fields"),
		Values:   getStringList(args, "values"),
		Variants: getStringList(args, "variants"),
	}

	err := s.engine.AddExample(example)
	switch {
	case errors.Is(err, types.ErrNoSchemaLoaded):
		return nil, newMCPError(ErrorCodeNoSchemaLoaded, "no schema loaded", map[string]interface{}{
			"hint": "use the load_schema tool first",
		})
	case errors.Is(err, types.ErrDuplicateExample):
		return nil, newMCPError(ErrorCodeExampleConflict, "example id already registered", map[string]interface{}{
			"id": id,
		})
	case err != nil:
		return nil, newMCPError(ErrorCodeInvalidParams, "example rejected", map[string]interface{}{
			"error": err.Error(),
		})
	}

	rec := &storage.ExampleRecord{
		ID:       example.ID,
		SchemaID: s.schemaID(),
		Question: example.Question,
		Query:    example.Query,
		Concepts: example.Concepts,
		Fields:   example.Fields,
		Values:   example.Values,
		Variants: example.Variants,
	}
	if err := s.store.SaveExample(ctx, rec); err != nil {
		s.logger.Warn("failed to persist example", "id", id, "error", err)
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"added": true,
		"id":    id,
	})), nil
}

// handleRemoveExample handles the remove_example tool invocation
func (s *Server) handleRemoveExample(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	id := getStringDefault(args, "id", "")
	if id == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "id parameter is required", map[string]interface{}{
			"param":  "id",
			"reason": "missing or empty",
		})
	}

	err := s.engine.RemoveExample(id)
	switch {
	case errors.Is(err, types.ErrNoSchemaLoaded):
		return nil, newMCPError(ErrorCodeNoSchemaLoaded, "no schema loaded", map[string]interface{}{
			"hint": "use the load_schema tool first",
		})
	case errors.Is(err, types.ErrExampleNotFound):
		return nil, newMCPError(ErrorCodeNotFound, "example not found", map[string]interface{}{
			"id": id,
		})
	case err != nil:
		return nil, newMCPError(ErrorCodeInternalError, "failed to remove example", map[string]interface{}{
			"error": err.Error(),
		})
	}

	if err := s.store.DeleteExample(ctx, s.schemaID(), id); err != nil && !errors.Is(err, types.ErrExampleNotFound) {
		s.logger.Warn("failed to delete persisted example", "id", id, "error", err)
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"removed": true,
		"id":      id,
	})), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{Code: code, Message: message, Data: data}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	return formatJSONValue(data)
}

// formatJSONValue formats any value as indented JSON
func formatJSONValue(data interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// getStringList extracts a string array parameter
func getStringList(args map[string]interface{}, key string) []string {
	raw, ok := args[key].([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
