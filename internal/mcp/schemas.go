package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// loadSchemaTool returns the tool definition for load_schema
func loadSchemaTool() mcp.Tool {
	return mcp.Tool{
		Name:        "load_schema",
		Description: "Load a schema document (YAML) and build the retrieval indices",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"yaml": map[string]interface{}{
					"type":        "string",
					"description": "Schema document as inline YAML",
				},
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to a schema YAML file (alternative to inline yaml)",
				},
			},
		},
	}
}

// retrieveContextTool returns the tool definition for retrieve_context
func retrieveContextTool() mcp.Tool {
	return mcp.Tool{
		Name:        "retrieve_context",
		Description: "Retrieve the schema fields, concepts, endpoints, and examples relevant to a natural-language question",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"question": map[string]interface{}{
					"type":        "string",
					"description": "The natural-language question to retrieve schema context for",
				},
				"strategy": map[string]interface{}{
					"type":        "string",
					"description": "Retrieval strategy override",
					"enum":        []string{"concept", "field", "hybrid", "fusion"},
					"default":     "fusion",
				},
			},
			Required: []string{"question"},
		},
	}
}

// graphStatsTool returns the tool definition for graph_stats
func graphStatsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "graph_stats",
		Description: "Report statistics about the loaded schema graph and the persistence store",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// resolveValueTool returns the tool definition for resolve_value
func resolveValueTool() mcp.Tool {
	return mcp.Tool{
		Name:        "resolve_value",
		Description: "Resolve a literal word to its canonical schema value (e.g. 'waiting' -> status=pending)",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"word": map[string]interface{}{
					"type":        "string",
					"description": "The literal word to resolve",
				},
			},
			Required: []string{"word"},
		},
	}
}

// listConceptsTool returns the tool definition for list_concepts
func listConceptsTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_concepts",
		Description: "List all business concepts in the loaded schema",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

// addExampleTool returns the tool definition for add_example
func addExampleTool() mcp.Tool {
	return mcp.Tool{
		Name:        "add_example",
		Description: "Register a worked question/query example against the loaded schema",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"id": map[string]interface{}{
					"type":        "string",
					"description": "Stable unique example id",
				},
				"question": map[string]interface{}{
					"type":        "string",
					"description": "The natural-language question",
				},
				"query": map[string]interface{}{
					"type":        "string",
					"description": "The target query the question translates to",
				},
				"concepts": map[string]interface{}{
					"type":        "array",
					"description": "Concept names the example demonstrates",
					"items":       map[string]interface{}{"type": "string"},
				},
				"fields": map[string]interface{}{
					"type":        "array",
					"description": "Field paths the example uses",
					"items":       map[string]interface{}{"type": "string"},
				},
				"values": map[string]interface{}{
					"type":        "array",
					"description": "field:value pairs the example demonstrates",
					"items":       map[string]interface{}{"type": "string"},
				},
				"variants": map[string]interface{}{
					"type":        "array",
					"description": "Alternative phrasings of the question",
					"items":       map[string]interface{}{"type": "string"},
				},
			},
			Required: []string{"id", "question"},
		},
	}
}

// removeExampleTool returns the tool definition for remove_example
func removeExampleTool() mcp.Tool {
	return mcp.Tool{
		Name:        "remove_example",
		Description: "Remove a previously registered worked example",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"id": map[string]interface{}{
					"type":        "string",
					"description": "The example id to remove",
				},
			},
			Required: []string{"id"},
		},
	}
}
