package mcp

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSchemaYAML = `
name: commerce
version: 1.0.0
concepts:
  - name: order
    aliases: [orders, purchase]
    relationships:
      - target: customer
        kind: belongs_to
        linking_field: customer_id
  - name: customer
    aliases: [customers]
    related_pronouns: [my, mine]
indices:
  - name: orders
    fields:
      - name: status
        maps_to: order
        allowed_values: [pending, shipped, delivered]
        value_synonyms:
          pending: [waiting, unfulfilled]
      - name: order_id
        maps_to: order
      - name: customer_id
        maps_to: customer
endpoints:
  - method: GET
    path: /orders
    summary: List orders
    maps_to: order
    params:
      - name: status
        location: query
        maps_to: order
`

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	dbDir := t.TempDir()
	return newTestServerAt(t, dbDir), dbDir
}

func newTestServerAt(t *testing.T, dbDir string) *Server {
	t.Helper()
	s, err := NewServer(context.Background(), Options{
		DBPath:                dbDir,
		Logger:                slog.New(slog.NewTextHandler(io.Discard, nil)),
		DisableVectorFallback: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.store.Close() })
	return s
}

func toolRequest(name string, args map[string]interface{}) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

// resultJSON decodes the text content of a tool result
func resultJSON(t *testing.T, result *mcp.CallToolResult) map[string]interface{} {
	t.Helper()
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &payload))
	return payload
}

func loadTestSchema(t *testing.T, s *Server) {
	t.Helper()
	result, err := s.handleLoadSchema(context.Background(),
		toolRequest("load_schema", map[string]interface{}{"yaml": testSchemaYAML}))
	require.NoError(t, err)
	payload := resultJSON(t, result)
	require.Equal(t, true, payload["loaded"])
}

func assertMCPCode(t *testing.T, err error, code int) {
	t.Helper()
	require.Error(t, err)
	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, code, mcpErr.Code)
}

func TestLoadSchemaInline(t *testing.T) {
	s, _ := newTestServer(t)

	result, err := s.handleLoadSchema(context.Background(),
		toolRequest("load_schema", map[string]interface{}{"yaml": testSchemaYAML}))
	require.NoError(t, err)

	payload := resultJSON(t, result)
	assert.Equal(t, "commerce", payload["name"])
	assert.Equal(t, "1.0.0", payload["version"])
	assert.Equal(t, float64(2), payload["concepts"])
	assert.NotEmpty(t, payload["schema_id"])
}

func TestLoadSchemaFromPath(t *testing.T) {
	s, _ := newTestServer(t)

	path := filepath.Join(t.TempDir(), "schema.yaml")
	require.NoError(t, os.WriteFile(path, []byte(testSchemaYAML), 0o644))

	result, err := s.handleLoadSchema(context.Background(),
		toolRequest("load_schema", map[string]interface{}{"path": path}))
	require.NoError(t, err)
	assert.Equal(t, "commerce", resultJSON(t, result)["name"])
}

func TestLoadSchemaRejectsRelativePath(t *testing.T) {
	s, _ := newTestServer(t)

	_, err := s.handleLoadSchema(context.Background(),
		toolRequest("load_schema", map[string]interface{}{"path": "schema.yaml"}))
	assertMCPCode(t, err, ErrorCodeInvalidParams)
}

func TestLoadSchemaRequiresInput(t *testing.T) {
	s, _ := newTestServer(t)

	_, err := s.handleLoadSchema(context.Background(),
		toolRequest("load_schema", map[string]interface{}{}))
	assertMCPCode(t, err, ErrorCodeInvalidParams)
}

func TestLoadSchemaInvalidDocument(t *testing.T) {
	s, _ := newTestServer(t)

	_, err := s.handleLoadSchema(context.Background(),
		toolRequest("load_schema", map[string]interface{}{"yaml": "version: 1.0.0\n"}))
	assertMCPCode(t, err, ErrorCodeSchemaInvalid)
}

func TestRetrieveContext(t *testing.T) {
	s, _ := newTestServer(t)
	loadTestSchema(t, s)

	result, err := s.handleRetrieveContext(context.Background(),
		toolRequest("retrieve_context", map[string]interface{}{
			"question": "show me waiting orders",
		}))
	require.NoError(t, err)

	payload := resultJSON(t, result)
	assert.Equal(t, "fusion", payload["strategy"])

	seeds, ok := payload["seed_fields"].([]interface{})
	require.True(t, ok)
	assert.Contains(t, seeds, "status")
}

func TestRetrieveContextStrategyOverride(t *testing.T) {
	s, _ := newTestServer(t)
	loadTestSchema(t, s)

	result, err := s.handleRetrieveContext(context.Background(),
		toolRequest("retrieve_context", map[string]interface{}{
			"question": "show me waiting orders",
			"strategy": "concept",
		}))
	require.NoError(t, err)
	assert.Equal(t, "concept", resultJSON(t, result)["strategy"])
}

func TestRetrieveContextBeforeLoad(t *testing.T) {
	s, _ := newTestServer(t)

	_, err := s.handleRetrieveContext(context.Background(),
		toolRequest("retrieve_context", map[string]interface{}{"question": "anything"}))
	assertMCPCode(t, err, ErrorCodeNoSchemaLoaded)
}

func TestRetrieveContextEmptyQuestion(t *testing.T) {
	s, _ := newTestServer(t)
	loadTestSchema(t, s)

	_, err := s.handleRetrieveContext(context.Background(),
		toolRequest("retrieve_context", map[string]interface{}{}))
	assertMCPCode(t, err, ErrorCodeEmptyQuestion)
}

func TestRetrieveContextInvalidStrategy(t *testing.T) {
	s, _ := newTestServer(t)
	loadTestSchema(t, s)

	_, err := s.handleRetrieveContext(context.Background(),
		toolRequest("retrieve_context", map[string]interface{}{
			"question": "anything",
			"strategy": "telepathy",
		}))
	assertMCPCode(t, err, ErrorCodeInvalidParams)
}

func TestGraphStats(t *testing.T) {
	s, _ := newTestServer(t)

	result, err := s.handleGraphStats(context.Background(), toolRequest("graph_stats", nil))
	require.NoError(t, err)
	assert.Equal(t, false, resultJSON(t, result)["loaded"])

	loadTestSchema(t, s)

	result, err = s.handleGraphStats(context.Background(), toolRequest("graph_stats", nil))
	require.NoError(t, err)
	payload := resultJSON(t, result)
	assert.Equal(t, true, payload["loaded"])

	graph, ok := payload["graph"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(2), graph["concepts"])
	assert.Equal(t, float64(1), graph["endpoints"])

	store, ok := payload["store"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(1), store["schemas"])
}

func TestResolveValue(t *testing.T) {
	s, _ := newTestServer(t)
	loadTestSchema(t, s)

	result, err := s.handleResolveValue(context.Background(),
		toolRequest("resolve_value", map[string]interface{}{"word": "waiting"}))
	require.NoError(t, err)

	payload := resultJSON(t, result)
	assert.Equal(t, true, payload["resolved"])
	assert.Equal(t, "status", payload["owner"])
	assert.Equal(t, "pending", payload["canonical_value"])

	result, err = s.handleResolveValue(context.Background(),
		toolRequest("resolve_value", map[string]interface{}{"word": "nonsense"}))
	require.NoError(t, err)
	assert.Equal(t, false, resultJSON(t, result)["resolved"])
}

func TestListConcepts(t *testing.T) {
	s, _ := newTestServer(t)

	_, err := s.handleListConcepts(context.Background(), toolRequest("list_concepts", nil))
	assertMCPCode(t, err, ErrorCodeNoSchemaLoaded)

	loadTestSchema(t, s)

	result, err := s.handleListConcepts(context.Background(), toolRequest("list_concepts", nil))
	require.NoError(t, err)
	payload := resultJSON(t, result)
	assert.Equal(t, float64(2), payload["count"])
	assert.ElementsMatch(t, []interface{}{"customer", "order"}, payload["concepts"])
}

func TestAddAndRemoveExample(t *testing.T) {
	s, _ := newTestServer(t)
	loadTestSchema(t, s)

	args := map[string]interface{}{
		"id":       "waiting-orders",
		"question": "show me waiting orders",
		"query":    "SELECT * FROM orders WHERE status = 'pending'",
		"concepts": []interface{}{"order"},
		"fields":   []interface{}{"status"},
	}

	result, err := s.handleAddExample(context.Background(), toolRequest("add_example", args))
	require.NoError(t, err)
	assert.Equal(t, true, resultJSON(t, result)["added"])

	_, err = s.handleAddExample(context.Background(), toolRequest("add_example", args))
	assertMCPCode(t, err, ErrorCodeExampleConflict)

	// The example now surfaces in retrieval for its own question.
	rcResult, err := s.handleRetrieveContext(context.Background(),
		toolRequest("retrieve_context", map[string]interface{}{
			"question": "show me waiting orders",
		}))
	require.NoError(t, err)
	rc := resultJSON(t, rcResult)
	require.NotEmpty(t, rc["examples"])

	result, err = s.handleRemoveExample(context.Background(),
		toolRequest("remove_example", map[string]interface{}{"id": "waiting-orders"}))
	require.NoError(t, err)
	assert.Equal(t, true, resultJSON(t, result)["removed"])

	_, err = s.handleRemoveExample(context.Background(),
		toolRequest("remove_example", map[string]interface{}{"id": "waiting-orders"}))
	assertMCPCode(t, err, ErrorCodeNotFound)
}

func TestAddExampleRequiresIDAndQuestion(t *testing.T) {
	s, _ := newTestServer(t)
	loadTestSchema(t, s)

	_, err := s.handleAddExample(context.Background(),
		toolRequest("add_example", map[string]interface{}{"id": "only-id"}))
	assertMCPCode(t, err, ErrorCodeInvalidParams)
}

func TestRestoreAcrossRestart(t *testing.T) {
	dbDir := t.TempDir()

	first := newTestServerAt(t, dbDir)
	loadTestSchema(t, first)
	_, err := first.handleAddExample(context.Background(),
		toolRequest("add_example", map[string]interface{}{
			"id":       "waiting-orders",
			"question": "show me waiting orders",
			"concepts": []interface{}{"order"},
		}))
	require.NoError(t, err)
	require.NoError(t, first.store.Close())

	second := newTestServerAt(t, dbDir)

	// Schema and examples come back without a fresh load_schema call.
	result, err := second.handleRetrieveContext(context.Background(),
		toolRequest("retrieve_context", map[string]interface{}{
			"question": "show me waiting orders",
		}))
	require.NoError(t, err)
	payload := resultJSON(t, result)

	seeds, ok := payload["seed_fields"].([]interface{})
	require.True(t, ok)
	assert.Contains(t, seeds, "status")
	assert.NotEmpty(t, payload["examples"])
}
