package schemagraph

// EdgeKind identifies the typed relation an edge carries
type EdgeKind string

const (
	EdgeHasField       EdgeKind = "HAS_FIELD"        // Index -> Field
	EdgeNestedIn       EdgeKind = "NESTED_IN"        // child Field -> parent Field
	EdgeMapsTo         EdgeKind = "MAPS_TO"          // Field/Param/ResponseField -> Concept
	EdgeRelatesTo      EdgeKind = "RELATES_TO"       // Concept -> Concept
	EdgeAliasOf        EdgeKind = "ALIAS_OF"         // Alias -> Field/Concept/Value
	EdgeHasValue       EdgeKind = "HAS_VALUE"        // Concept/Field/Param -> Value
	EdgeSynonymOf      EdgeKind = "SYNONYM_OF"       // Alias -> Value
	EdgeDemonstrates   EdgeKind = "DEMONSTRATES"     // Example -> Concept
	EdgeUsesField      EdgeKind = "USES_FIELD"       // Example -> Field
	EdgeUsesValue      EdgeKind = "USES_VALUE"       // Example -> Value
	EdgeHasVariant     EdgeKind = "HAS_VARIANT"      // Example -> variant phrasing
	EdgeHasParam       EdgeKind = "HAS_PARAM"        // Endpoint -> Param
	EdgeEndpointMapsTo EdgeKind = "ENDPOINT_MAPS_TO" // Endpoint -> Concept
	EdgeReturns        EdgeKind = "RETURNS"          // Endpoint -> ResponseField
	EdgeResponseMapsTo EdgeKind = "RESPONSE_MAPS_TO" // ResponseField -> Concept
)

// Edge is a directed typed relation between two existing nodes.
// RELATES_TO edges additionally carry the relationship kind and the
// optional linking field.
type Edge struct {
	From NodeID
	To   NodeID
	Kind EdgeKind

	// Rel and LinkingField are populated for RELATES_TO edges only
	Rel          string
	LinkingField string
}
