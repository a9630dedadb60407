// Package mcp implements the Model Context Protocol (MCP) server for SchemaCtx.
//
// The MCP server exposes seven tools to AI assistants translating
// natural-language questions into structured queries:
//   - load_schema: Load a schema document and build the retrieval indices
//   - retrieve_context: Retrieve schema context relevant to a question
//   - graph_stats: Report schema graph and store statistics
//   - resolve_value: Resolve a literal word to its canonical value
//   - list_concepts: List the business concepts in the loaded schema
//   - add_example: Register a worked question/query example
//   - remove_example: Remove a previously registered example
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// The server listens on stdin and writes responses to stdout, so all
// logging goes to stderr.
//
// # Basic Usage
//
// The server is started as a plain binary:
//
//	schemactx
//
// On startup it restores the active schema (and its examples) from the
// SQLite store of a previous run, so clients can call retrieve_context
// immediately after a restart.
//
// # Tool: load_schema
//
// Load a schema document, either inline or from a file:
//
//	Request:
//	{
//	  "name": "load_schema",
//	  "arguments": {
//	    "yaml": "name: commerce\nversion: 1.0.0\n..."
//	  }
//	}
//
//	Response:
//	{
//	  "loaded": true,
//	  "schema_id": "7c2f...",
//	  "name": "commerce",
//	  "version": "1.0.0",
//	  "concepts": 12,
//	  "fields": 240,
//	  "endpoints": 31,
//	  "warnings": ["field orders.customer: maps_to references unknown concept \"client\""]
//	}
//
// Validation errors (duplicate concepts, nameless fields, malformed
// YAML) reject the document; dangling references are reported as
// warnings but do not block loading. The document is persisted and
// marked active before the indices are rebuilt.
//
// # Tool: retrieve_context
//
// Retrieve the fields, concepts, endpoints, and examples relevant to a
// question:
//
//	Request:
//	{
//	  "name": "retrieve_context",
//	  "arguments": {
//	    "question": "show me waiting orders",
//	    "strategy": "fusion"
//	  }
//	}
//
//	Response (abridged):
//	{
//	  "question": "show me waiting orders",
//	  "strategy": "fusion",
//	  "seed_fields": ["status", "order_id"],
//	  "expanded_fields": ["customer_id"],
//	  "field_scores": {"status": 0.615, "order_id": 0.30, "customer_id": 0.15},
//	  "concepts": [{"name": "order", "confidence": 1.0}],
//	  "endpoints": [{"method": "GET", "path": "/orders", "score": 1.0}],
//	  "stats": {"total_count": 3, "endpoint_count": 1}
//	}
//
// The strategy argument selects concept, field, hybrid, or fusion
// retrieval; fusion is the default and combines all four scorers with
// configured weights. Each call is logged to the query log with its
// duration and result counts.
//
// # Tool: resolve_value
//
// Resolve a literal word against the schema's value vocabulary:
//
//	Request:
//	{"name": "resolve_value", "arguments": {"word": "waiting"}}
//
//	Response:
//	{"word": "waiting", "resolved": true, "owner": "status", "canonical_value": "pending"}
//
// # Tool: add_example / remove_example
//
// Worked examples bias retrieval toward known-good question shapes and
// are surfaced in retrieve_context responses. Examples are persisted
// against the active schema and survive restarts:
//
//	Request:
//	{
//	  "name": "add_example",
//	  "arguments": {
//	    "id": "waiting-orders",
//	    "question": "show me waiting orders",
//	    "query": "SELECT * FROM orders WHERE status = 'pending'",
//	    "concepts": ["order"],
//	    "fields": ["status"]
//	  }
//	}
//
// # Error Codes
//
// Tool failures use JSON-RPC error codes: -32602 for invalid
// parameters, -32603 for internal failures, and server-specific codes
// -32001 (no schema loaded), -32002 (schema invalid), -32004 (empty
// question), -32005 (duplicate example id), -32006 (not found).
package mcp
