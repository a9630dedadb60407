package schemagraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schemactx/schemactx-mcp/pkg/types"
)

// testSchema builds a small commerce schema used across the package
// tests: two related concepts, one index with a nested field, and one
// endpoint.
func testSchema() *types.SchemaDocument {
	return &types.SchemaDocument{
		Name:    "commerce",
		Version: "1.0.0",
		Concepts: []types.Concept{
			{
				Name:    "order",
				Aliases: []string{"purchase"},
				ValueSynonyms: map[string][]string{
					"pending": {"waiting", "open"},
				},
				RelatedPronouns: []string{"my", "mine"},
				Relationships: []types.Relationship{
					{Target: "customer", Kind: "belongs_to", LinkingField: "orders.customer_id"},
				},
			},
			{
				Name:      "customer",
				Aliases:   []string{"client", "buyer"},
				RelatedTo: []string{"address"},
			},
			{
				Name: "address",
			},
		},
		Indices: []types.SchemaIndex{
			{
				Name: "orders",
				Fields: []types.Field{
					{
						Name:   "status",
						Type:   "keyword",
						MapsTo: "order",
						ValueSynonyms: map[string][]string{
							"shipped": {"sent", "dispatched"},
						},
					},
					{Name: "customer_id", Type: "keyword", MapsTo: "customer"},
					{
						Name: "shipping",
						NestedFields: []types.Field{
							{Name: "zip_code", Type: "keyword", MapsTo: "address"},
						},
					},
					{Name: "total", Type: "float", MapsTo: "missing_concept"},
				},
			},
		},
		Endpoints: []types.Endpoint{
			{
				Method:  "GET",
				Path:    "/customers/{customerId}/orders",
				Summary: "List orders for a customer",
				MapsTo:  "order",
				Params: []types.Param{
					{Name: "status", Location: types.LocationQuery, MapsTo: "order"},
					{Name: "customerId", Location: types.LocationPath, MapsTo: "customer"},
				},
				ResponseFields: []types.ResponseField{
					{Path: "orderStatus", MapsTo: "order"},
				},
			},
		},
	}
}

func buildTestGraph(t *testing.T) *Graph {
	t.Helper()
	g, err := Build(testSchema())
	require.NoError(t, err)
	return g
}

func TestBuildNilDocument(t *testing.T) {
	_, err := Build(nil)
	assert.ErrorIs(t, err, types.ErrEmptySchema)
}

func TestFindFieldsByConceptExactMatches(t *testing.T) {
	g := buildTestGraph(t)

	res := g.FindFieldsByConcept("order", false, 0)
	require.Len(t, res.MatchedConcepts, 1)
	assert.Equal(t, "order", res.MatchedConcepts[0].Name)
	assert.Equal(t, 1.0, res.MatchedConcepts[0].Confidence)

	paths := fieldPaths(res.MatchedFields)
	assert.Equal(t, []string{"status", "query.status"}, paths)
	for _, fm := range res.MatchedFields {
		assert.Equal(t, 1.0, fm.Score)
	}
	assert.Empty(t, res.ExpandedFields)
}

func TestFindFieldsByConceptAlias(t *testing.T) {
	g := buildTestGraph(t)

	res := g.FindFieldsByConcept("purchase", false, 0)
	require.Len(t, res.MatchedConcepts, 1)
	assert.Equal(t, "order", res.MatchedConcepts[0].Name)
	assert.Equal(t, "alias", res.MatchedConcepts[0].MatchType)
}

func TestFindFieldsByConceptUnknown(t *testing.T) {
	g := buildTestGraph(t)

	res := g.FindFieldsByConcept("warehouse", true, 2)
	assert.True(t, res.Empty())
}

func TestFindFieldsByConceptExpansion(t *testing.T) {
	g := buildTestGraph(t)

	res := g.FindFieldsByConcept("order", true, 2)

	// hop 1: customer, hop 2: address (via customer.related_to)
	expanded := fieldPaths(res.ExpandedFields)
	assert.Contains(t, expanded, "customer_id")
	assert.Contains(t, expanded, "shipping.zip_code")
	assert.Equal(t, 2, res.Hops)
	assert.Contains(t, res.Adjacency["order"], "customer")
	assert.Contains(t, res.Adjacency["customer"], "address")

	// one hop only: address fields must not appear
	oneHop := g.FindFieldsByConcept("order", true, 1)
	assert.NotContains(t, fieldPaths(oneHop.ExpandedFields), "shipping.zip_code")
	assert.Equal(t, 1, oneHop.Hops)
}

func TestExpansionScoresDecayPerHop(t *testing.T) {
	g := buildTestGraph(t)

	res := g.FindFieldsByConcept("order", true, 2)
	byPath := make(map[string]float64)
	for _, fm := range res.ExpandedFields {
		byPath[fm.Path] = fm.Score
	}
	assert.Greater(t, byPath["customer_id"], byPath["shipping.zip_code"])
}

func TestFindRelatedFields(t *testing.T) {
	g := buildTestGraph(t)

	// status -> order concept -> expansion budget reduced by one
	res := g.FindRelatedFields("status", "orders", 2)
	assert.Contains(t, fieldPaths(res.MatchedFields), "status")
	assert.Contains(t, fieldPaths(res.ExpandedFields), "customer_id")
	// hop budget 2, one consumed by field->concept: address is out
	assert.NotContains(t, fieldPaths(res.ExpandedFields), "shipping.zip_code")
}

func TestFindRelatedFieldsWrongIndex(t *testing.T) {
	g := buildTestGraph(t)
	res := g.FindRelatedFields("status", "products", 2)
	assert.True(t, res.Empty())
}

func TestResolveValueSynonym(t *testing.T) {
	g := buildTestGraph(t)

	ref, ok := g.ResolveValueSynonym("waiting")
	require.True(t, ok)
	assert.Equal(t, "order", ref.Owner)
	assert.Equal(t, "pending", ref.Canonical)

	ref, ok = g.ResolveValueSynonym("DISPATCHED")
	require.True(t, ok)
	assert.Equal(t, "status", ref.Owner)
	assert.Equal(t, "shipped", ref.Canonical)

	_, ok = g.ResolveValueSynonym("nonexistent")
	assert.False(t, ok)
}

func TestDanglingMapsToOmitted(t *testing.T) {
	g := buildTestGraph(t)

	// orders.total maps to a concept that doesn't exist: the field is
	// present, the edge is not.
	assert.Contains(t, g.GetAllFields("orders"), "total")
	assert.Empty(t, g.FieldConcepts("total"))
}

func TestConceptFieldInversesExact(t *testing.T) {
	g := buildTestGraph(t)

	for _, concept := range g.GetAllConcepts() {
		for _, path := range g.ConceptFields(concept) {
			assert.Contains(t, g.FieldConcepts(path), concept,
				"field_to_concepts must invert concept_to_fields for %s/%s", concept, path)
		}
	}
	for _, path := range g.GetAllFields("") {
		for _, concept := range g.FieldConcepts(path) {
			assert.Contains(t, g.ConceptFields(concept), path)
		}
	}
}

func TestEndpointIndexing(t *testing.T) {
	g := buildTestGraph(t)
	key := "GET /customers/{customerId}/orders"

	assert.Contains(t, g.EndpointsForPathSegment("customers"), key)
	// camelCase path variable split
	assert.Contains(t, g.EndpointsForPathSegment("customer"), key)
	assert.Contains(t, g.EndpointsForResponseSegment("status"), key)

	// params are field-equivalents with qualified paths
	idx, ok := g.IndexForField("query.status")
	require.True(t, ok)
	assert.Equal(t, key, idx)
	assert.Contains(t, g.ConceptFields("customer"), "path.customerId")
}

func TestLoadFromSchemaReplacesState(t *testing.T) {
	g := buildTestGraph(t)
	require.NotEmpty(t, g.GetAllConcepts())

	fresh := &types.SchemaDocument{
		Name:     "minimal",
		Concepts: []types.Concept{{Name: "ticket"}},
	}
	require.NoError(t, g.LoadFromSchema(fresh))
	assert.Equal(t, []string{"ticket"}, g.GetAllConcepts())
	assert.Empty(t, g.GetAllFields(""))
}

func TestStats(t *testing.T) {
	g := buildTestGraph(t)
	stats := g.Stats()

	assert.Equal(t, 3, stats.Concepts)
	assert.Equal(t, 1, stats.Endpoints)
	// 5 index fields (incl. nested parent and child) + 2 params
	assert.Equal(t, 7, stats.Fields)
	assert.Positive(t, stats.Edges)
	assert.Equal(t, 3, stats.NodesByKind[string(KindConcept)])
}

func fieldPaths(matches []FieldMatch) []string {
	paths := make([]string, 0, len(matches))
	for _, m := range matches {
		paths = append(paths, m.Path)
	}
	return paths
}
