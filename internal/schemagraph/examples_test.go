package schemagraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schemactx/schemactx-mcp/pkg/types"
)

func testExample() *types.Example {
	return &types.Example{
		ID:       "ex-1",
		Question: "how many pending orders does each customer have",
		Query:    `{"query":{"term":{"status":"pending"}}}`,
		Concepts: []string{"order", "customer"},
		Fields:   []string{"status", "customer_id"},
		Values:   []string{"status:shipped"},
		Variants: []string{"count of waiting orders per buyer"},
	}
}

func TestAddExampleIndexes(t *testing.T) {
	g := buildTestGraph(t)
	require.NoError(t, g.AddExample(testExample()))

	assert.Equal(t, []string{"ex-1"}, g.ExamplesForConcept("order"))
	assert.Equal(t, []string{"ex-1"}, g.ExamplesForConcept("customer"))
	assert.Equal(t, []string{"ex-1"}, g.ExamplesForField("status"))
	assert.Equal(t, []string{"ex-1"}, g.ExamplesForValue("status:shipped"))

	// keywords come from question and variants
	assert.Equal(t, []string{"ex-1"}, g.ExamplesForKeyword("pending"))
	assert.Equal(t, []string{"ex-1"}, g.ExamplesForKeyword("waiting"))
	assert.Empty(t, g.ExamplesForKeyword("unrelated"))

	ex, ok := g.GetExample("ex-1")
	require.True(t, ok)
	assert.Equal(t, "ex-1", ex.ID)
}

func TestAddExampleDuplicate(t *testing.T) {
	g := buildTestGraph(t)
	require.NoError(t, g.AddExample(testExample()))
	assert.ErrorIs(t, g.AddExample(testExample()), types.ErrDuplicateExample)
}

func TestAddExampleInvalid(t *testing.T) {
	g := buildTestGraph(t)
	assert.Error(t, g.AddExample(&types.Example{Question: "no id"}))
	assert.Error(t, g.AddExample(&types.Example{ID: "no-question"}))
}

func TestRemoveExampleNotFound(t *testing.T) {
	g := buildTestGraph(t)
	assert.ErrorIs(t, g.RemoveExample("ghost"), types.ErrExampleNotFound)
}

// Add followed by remove must restore every derived example index to
// its pre-add state.
func TestAddRemoveExampleIsInverse(t *testing.T) {
	g := buildTestGraph(t)

	before := g.Stats()
	require.NoError(t, g.AddExample(testExample()))
	require.NoError(t, g.RemoveExample("ex-1"))
	after := g.Stats()

	assert.Equal(t, before, after)
	assert.Empty(t, g.ExamplesForConcept("order"))
	assert.Empty(t, g.ExamplesForField("status"))
	assert.Empty(t, g.ExamplesForValue("status:shipped"))
	assert.Empty(t, g.ExamplesForKeyword("pending"))

	_, ok := g.GetExample("ex-1")
	assert.False(t, ok)

	// the graph is usable for a fresh add after removal
	require.NoError(t, g.AddExample(testExample()))
	assert.Equal(t, []string{"ex-1"}, g.ExamplesForConcept("order"))
}

func TestAddExampleSkipsUnknownReferences(t *testing.T) {
	g := buildTestGraph(t)
	ex := &types.Example{
		ID:       "ex-2",
		Question: "orders by ghost concept",
		Concepts: []string{"ghost"},
		Fields:   []string{"no.such.field"},
		Values:   []string{"malformed"},
	}
	require.NoError(t, g.AddExample(ex))
	assert.Empty(t, g.ExamplesForConcept("ghost"))
	assert.Empty(t, g.ExamplesForField("no.such.field"))
}
