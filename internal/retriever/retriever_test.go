package retriever

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schemactx/schemactx-mcp/pkg/types"
)

// testSchema covers every strategy: concepts with aliases and
// pronouns, field-level value synonyms, nested relationships, and one
// REST endpoint.
func testSchema() *types.SchemaDocument {
	return &types.SchemaDocument{
		Name:    "commerce",
		Version: "1.0.0",
		Concepts: []types.Concept{
			{
				Name:    "order",
				Aliases: []string{"orders", "purchase"},
				Relationships: []types.Relationship{
					{Target: "customer", Kind: "belongs_to", LinkingField: "customer_id"},
				},
			},
			{
				Name:            "customer",
				Aliases:         []string{"customers"},
				RelatedPronouns: []string{"my", "mine"},
			},
		},
		Indices: []types.SchemaIndex{
			{
				Name: "orders",
				Fields: []types.Field{
					{
						Name:          "status",
						Type:          "keyword",
						MapsTo:        "order",
						AllowedValues: []string{"pending", "shipped", "delivered"},
						ValueSynonyms: map[string][]string{
							"pending": {"waiting", "unfulfilled"},
						},
					},
					{Name: "order_id", Type: "keyword", MapsTo: "order"},
					{Name: "customer_id", Type: "keyword", MapsTo: "customer"},
				},
			},
		},
		Endpoints: []types.Endpoint{
			{
				Method:  "GET",
				Path:    "/orders",
				Summary: "List orders",
				MapsTo:  "order",
				Params: []types.Param{
					{Name: "status", Location: types.LocationQuery, MapsTo: "order"},
				},
			},
		},
	}
}

func newTestEngine(t *testing.T, cfg Config) *Engine {
	t.Helper()
	e, err := New(cfg)
	require.NoError(t, err)
	require.NoError(t, e.Load(testSchema()))
	return e
}

func TestRetrieveBeforeLoad(t *testing.T) {
	e, err := New(DefaultConfig())
	require.NoError(t, err)

	_, err = e.Retrieve(context.Background(), "anything")
	assert.ErrorIs(t, err, types.ErrNoSchemaLoaded)
}

func TestNewRejectsUnknownStrategy(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Strategy = "semantic"

	_, err := New(cfg)
	assert.ErrorIs(t, err, types.ErrUnknownStrategy)
}

func TestParseMode(t *testing.T) {
	tests := []struct {
		input   string
		want    Mode
		wantErr bool
	}{
		{"concept", ModeConcept, false},
		{"field", ModeField, false},
		{"hybrid", ModeHybrid, false},
		{"fusion", ModeFusion, false},
		{"", ModeFusion, false},
		{"vector", "", true},
	}
	for _, tt := range tests {
		got, err := ParseMode(tt.input)
		if tt.wantErr {
			assert.ErrorIs(t, err, types.ErrUnknownStrategy, tt.input)
			continue
		}
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, got, tt.input)
	}
}

// Concept and value evidence for the same field must stack: the status
// field is reached via the "orders" alias (concept weight 0.30 at
// confidence 1.0) and via the "waiting" synonym (value weight 0.35 at
// confidence 0.9), fusing to 0.615.
func TestFusionStacksStrategies(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())

	rc, err := e.Retrieve(context.Background(), "show waiting orders")
	require.NoError(t, err)

	require.NotEmpty(t, rc.SeedFields)
	assert.InDelta(t, 0.615, rc.FieldScores["status"], 1e-9)
	assert.Equal(t, "status", rc.SeedFields[0], "stacked field should rank first")

	require.NotEmpty(t, rc.Concepts)
	assert.Equal(t, "order", rc.Concepts[0].Name)
	assert.InDelta(t, 1.0, rc.Concepts[0].Confidence, 1e-9)
}

func TestFusionRankingAndExpansion(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())

	rc, err := e.Retrieve(context.Background(), "show waiting orders")
	require.NoError(t, err)

	// order_id is concept-only evidence
	assert.InDelta(t, 0.30, rc.FieldScores["order_id"], 1e-9)
	assert.Greater(t, rc.FieldScores["status"], rc.FieldScores["order_id"])

	// customer_id is one relationship hop away, decayed to 0.5
	assert.InDelta(t, 0.30*0.5, rc.FieldScores["customer_id"], 1e-9)
	assert.Contains(t, rc.ExpandedFields, "customer_id")

	assert.Equal(t, len(rc.SeedFields), rc.Stats.SeedCount)
	assert.Equal(t, len(rc.ExpandedFields), rc.Stats.ExpandedCount)
	assert.Equal(t, rc.Stats.SeedCount+rc.Stats.ExpandedCount, rc.Stats.TotalCount)
	assert.Positive(t, rc.Stats.HopCount)
}

func TestEndpointRanking(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())

	rc, err := e.Retrieve(context.Background(), "show waiting orders")
	require.NoError(t, err)

	require.NotEmpty(t, rc.Endpoints)
	ep := rc.Endpoints[0]
	assert.Equal(t, "GET /orders", ep.Key)
	assert.True(t, ep.DirectMatch)

	// concept 0.40*1.0, path 0.25*0.5, param 0.20*1.0, text 0.15*0.5,
	// plus the 0.2 direct-match bonus
	assert.InDelta(t, 1.0, ep.Score, 1e-9)
	assert.Contains(t, ep.Params, "query.status")
}

func TestPronounResolution(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())

	rc, err := e.Retrieve(context.Background(), "where are my orders")
	require.NoError(t, err)

	var customer *types.ConceptScore
	for i := range rc.Concepts {
		if rc.Concepts[i].Name == "customer" {
			customer = &rc.Concepts[i]
		}
	}
	require.NotNil(t, customer, "pronoun should surface the customer concept")
	assert.Equal(t, "pronoun", customer.MatchType)
	assert.InDelta(t, 0.85, customer.Confidence, 1e-9)

	// customer_id gains pronoun evidence on top of relationship expansion
	assert.Greater(t, rc.FieldScores["customer_id"], 0.30*0.5)
}

func TestRetrieveIsDeterministic(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())

	first, err := e.Retrieve(context.Background(), "waiting orders for customers")
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := e.Retrieve(context.Background(), "waiting orders for customers")
		require.NoError(t, err)
		assert.Equal(t, first.SeedFields, again.SeedFields)
		assert.Equal(t, first.FieldScores, again.FieldScores)
		assert.Equal(t, first.Concepts, again.Concepts)
		assert.Equal(t, first.Endpoints, again.Endpoints)
	}
}

func TestFuseOrderIndependence(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())
	snap := e.snap.Load()

	keywords := []string{"waiting", "orders"}
	a := e.conceptSearch(snap, keywords)
	b := e.valueSearch(snap, keywords)

	forward := e.fuse([]strategyResult{a, b})
	reversed := e.fuse([]strategyResult{b, a})

	require.Equal(t, len(forward.fields), len(reversed.fields))
	for i := range forward.fields {
		assert.Equal(t, forward.fields[i].path, reversed.fields[i].path)
		assert.InDelta(t, forward.fields[i].score, reversed.fields[i].score, 1e-9)
	}
}

func TestConceptModeOnConceptFreeSchema(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Strategy = ModeConcept
	e, err := New(cfg)
	require.NoError(t, err)

	doc := &types.SchemaDocument{
		Name:    "bare",
		Version: "1.0.0",
		Indices: []types.SchemaIndex{
			{Name: "logs", Fields: []types.Field{{Name: "message", Type: "text"}}},
		},
	}
	require.NoError(t, e.Load(doc))

	rc, err := e.Retrieve(context.Background(), "error message")
	require.NoError(t, err)
	assert.Empty(t, rc.SeedFields)
	assert.Zero(t, rc.Stats.ConceptCount)
}

func TestFieldModeMatchesPaths(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Strategy = ModeField
	e := newTestEngine(t, cfg)

	rc, err := e.Retrieve(context.Background(), "filter by customer_id")
	require.NoError(t, err)
	assert.Contains(t, rc.SeedFields, "customer_id")
}

func TestHybridModeFallsBack(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Strategy = ModeHybrid
	e := newTestEngine(t, cfg)

	// "status" is neither a concept nor a known value, so concept and
	// value search come back empty and the field-path fallback has to
	// find the literal path.
	rc, err := e.Retrieve(context.Background(), "status field check")
	require.NoError(t, err)
	assert.Contains(t, rc.SeedFields, "status")
}

func TestFuzzyConceptMatch(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())

	// one deletion away from "customer"
	rc, err := e.Retrieve(context.Background(), "custmer details")
	require.NoError(t, err)

	require.NotEmpty(t, rc.Concepts)
	assert.Equal(t, "customer", rc.Concepts[0].Name)
	assert.Equal(t, "fuzzy", rc.Concepts[0].MatchType)
	assert.Less(t, rc.Concepts[0].Confidence, 1.0)
	assert.GreaterOrEqual(t, rc.Concepts[0].Confidence, DefaultConfig().FuzzyThreshold)
}

func TestMaxFieldsTruncation(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxFields = 1
	e := newTestEngine(t, cfg)

	rc, err := e.Retrieve(context.Background(), "show waiting orders")
	require.NoError(t, err)
	assert.Len(t, rc.AllFields(), 1)
	assert.Equal(t, "status", rc.SeedFields[0])
}

func TestMinFusionScoreDropsWeakFields(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MinFusionScore = 0.2
	e := newTestEngine(t, cfg)

	rc, err := e.Retrieve(context.Background(), "show waiting orders")
	require.NoError(t, err)
	// customer_id fuses to 0.15, below the raised floor
	assert.NotContains(t, rc.FieldScores, "customer_id")
	assert.Contains(t, rc.FieldScores, "status")
}

func TestCacheReturnsSameResult(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())

	first, err := e.Retrieve(context.Background(), "waiting orders")
	require.NoError(t, err)
	second, err := e.Retrieve(context.Background(), "waiting orders")
	require.NoError(t, err)
	assert.Same(t, first, second)
}

func TestCachePurgedOnLoad(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())

	first, err := e.Retrieve(context.Background(), "waiting orders")
	require.NoError(t, err)

	require.NoError(t, e.Load(testSchema()))
	second, err := e.Retrieve(context.Background(), "waiting orders")
	require.NoError(t, err)
	assert.NotSame(t, first, second)
}

func TestCacheDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.UseCache = false
	e := newTestEngine(t, cfg)

	first, err := e.Retrieve(context.Background(), "waiting orders")
	require.NoError(t, err)
	second, err := e.Retrieve(context.Background(), "waiting orders")
	require.NoError(t, err)
	assert.NotSame(t, first, second)
}

func TestCacheExpiry(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CacheTTL = time.Nanosecond
	e := newTestEngine(t, cfg)

	first, err := e.Retrieve(context.Background(), "waiting orders")
	require.NoError(t, err)
	time.Sleep(time.Millisecond)
	second, err := e.Retrieve(context.Background(), "waiting orders")
	require.NoError(t, err)
	assert.NotSame(t, first, second)
}

func TestResolveValue(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())

	ref, ok := e.ResolveValue("waiting")
	require.True(t, ok)
	assert.Equal(t, "pending", ref.Canonical)
	assert.Equal(t, "status", ref.Owner)

	_, ok = e.ResolveValue("nonexistent")
	assert.False(t, ok)
}

func TestExamplesSurfacedAndPurgeCache(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())

	before, err := e.Retrieve(context.Background(), "waiting orders")
	require.NoError(t, err)
	assert.Empty(t, before.Examples)

	require.NoError(t, e.AddExample(&types.Example{
		ID:       "ex-1",
		Question: "which orders are still pending?",
		Query:    `{"term":{"status":"pending"}}`,
		Concepts: []string{"order"},
		Fields:   []string{"status"},
	}))

	after, err := e.Retrieve(context.Background(), "waiting orders")
	require.NoError(t, err)
	require.NotEmpty(t, after.Examples)
	assert.Equal(t, "ex-1", after.Examples[0].ID)
	assert.Equal(t, len(after.Examples), after.Stats.ExampleCount)

	require.NoError(t, e.RemoveExample("ex-1"))
	final, err := e.Retrieve(context.Background(), "waiting orders")
	require.NoError(t, err)
	assert.Empty(t, final.Examples)
}

func TestAddExampleBeforeLoad(t *testing.T) {
	e, err := New(DefaultConfig())
	require.NoError(t, err)
	err = e.AddExample(&types.Example{ID: "x", Question: "q"})
	assert.ErrorIs(t, err, types.ErrNoSchemaLoaded)
}

type stubVectorStore struct {
	paths []string
	err   error
	calls int
}

func (s *stubVectorStore) Search(_ context.Context, _ []string, _ string) ([]string, error) {
	s.calls++
	return s.paths, s.err
}

func TestVectorFallbackFillsThinResults(t *testing.T) {
	vs := &stubVectorStore{paths: []string{"order_id", "customer_id"}}
	cfg := DefaultConfig()
	e, err := New(cfg, WithVectorStore(vs))
	require.NoError(t, err)
	require.NoError(t, e.Load(testSchema()))

	// "shipment" matches nothing structurally, leaving room for fallback
	rc, err := e.Retrieve(context.Background(), "shipment tracking")
	require.NoError(t, err)
	assert.Equal(t, 1, vs.calls)
	assert.Contains(t, rc.FieldScores, "order_id")
	assert.Contains(t, rc.FieldScores, "customer_id")
}

func TestVectorFallbackErrorIsIgnored(t *testing.T) {
	vs := &stubVectorStore{err: errors.New("connection refused")}
	e, err := New(DefaultConfig(), WithVectorStore(vs))
	require.NoError(t, err)
	require.NoError(t, e.Load(testSchema()))

	rc, err := e.Retrieve(context.Background(), "shipment tracking")
	require.NoError(t, err)
	assert.NotNil(t, rc)
}

func TestVectorFallbackSkippedWhenCovered(t *testing.T) {
	vs := &stubVectorStore{paths: []string{"order_id"}}
	cfg := DefaultConfig()
	cfg.MaxFields = 3
	cfg.VectorFallbackDivisor = 3 // threshold of 1 fused field
	e, err := New(cfg, WithVectorStore(vs))
	require.NoError(t, err)
	require.NoError(t, e.Load(testSchema()))

	_, err = e.Retrieve(context.Background(), "show waiting orders")
	require.NoError(t, err)
	assert.Zero(t, vs.calls)
}

func TestStats(t *testing.T) {
	e := newTestEngine(t, DefaultConfig())

	stats, err := e.Stats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Concepts)
	assert.Equal(t, 1, stats.Endpoints)
	assert.Positive(t, stats.Fields)
}

func TestConfigNormalizeFillsDefaults(t *testing.T) {
	cfg := Config{Strategy: ModeFusion, EnableConcept: true}.normalize()
	def := DefaultConfig()
	assert.Equal(t, def.MaxFields, cfg.MaxFields)
	assert.Equal(t, def.Fusion, cfg.Fusion)
	assert.Equal(t, def.Endpoint, cfg.Endpoint)
	assert.False(t, cfg.EnableBM25, "explicit enable flags must not be overridden")
}
