package vectorstore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schemactx/schemactx-mcp/pkg/types"
)

func TestLocalProviderDeterministic(t *testing.T) {
	provider, err := NewLocalProvider(nil)
	require.NoError(t, err)
	ctx := context.Background()

	first, err := provider.Embed(ctx, "order status")
	require.NoError(t, err)
	second, err := provider.Embed(ctx, "order status")
	require.NoError(t, err)

	assert.Equal(t, first.Vector, second.Vector)
	assert.Equal(t, LocalDimension, first.Dimension)
	assert.InDelta(t, 1.0, CosineSimilarity(first.Vector, second.Vector), 1e-9)

	other, err := provider.Embed(ctx, "customer name")
	require.NoError(t, err)
	assert.NotEqual(t, first.Vector, other.Vector)
}

func TestLocalProviderRejectsEmptyText(t *testing.T) {
	provider, err := NewLocalProvider(nil)
	require.NoError(t, err)
	_, err = provider.Embed(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestCacheRoundTrip(t *testing.T) {
	cache := NewCache(10)
	emb := &Embedding{Vector: []float32{1, 2, 3}, Dimension: 3, Provider: "test", Hash: "h"}
	cache.Set("h", emb)

	got, ok := cache.Get("h")
	require.True(t, ok)
	assert.Equal(t, emb.Vector, got.Vector)

	// Mutating the returned copy must not touch the cached value.
	got.Vector[0] = 99
	again, ok := cache.Get("h")
	require.True(t, ok)
	assert.Equal(t, float32(1), again.Vector[0])

	_, ok = cache.Get("missing")
	assert.False(t, ok)
}

func TestCosineSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, CosineSimilarity([]float32{1, 0}, []float32{2, 0}), 1e-9)
	assert.InDelta(t, 0.0, CosineSimilarity([]float32{1, 0}, []float32{0, 1}), 1e-9)
	assert.Zero(t, CosineSimilarity([]float32{1, 0}, []float32{1, 0, 0}), "dimension mismatch")
	assert.Zero(t, CosineSimilarity([]float32{0, 0}, []float32{1, 0}), "zero vector")
}

func testStoreSchema() *types.SchemaDocument {
	return &types.SchemaDocument{
		Name:    "commerce",
		Version: "1.0.0",
		Indices: []types.SchemaIndex{
			{
				Name: "orders",
				Fields: []types.Field{
					{Name: "status"},
					{Name: "shipping", NestedFields: []types.Field{{Name: "zip_code"}}},
				},
			},
			{
				Name:   "customers",
				Fields: []types.Field{{Name: "email"}},
			},
		},
	}
}

func newTestStore(t *testing.T, cfg StoreConfig) *Store {
	t.Helper()
	provider, err := NewLocalProvider(NewCache(100))
	require.NoError(t, err)
	store := NewStore(provider, cfg)
	require.NoError(t, store.BuildFromSchema(context.Background(), testStoreSchema()))
	return store
}

func TestStoreSearchExactText(t *testing.T) {
	store := newTestStore(t, StoreConfig{})
	assert.Equal(t, 4, store.Size())

	// The local provider is hash-based, so only an exact document text
	// match reaches similarity 1.0.
	paths, err := store.Search(context.Background(), []string{"status"}, "")
	require.NoError(t, err)
	require.NotEmpty(t, paths)
	assert.Equal(t, "status", paths[0])
}

func TestStoreSearchMinSimilarity(t *testing.T) {
	store := newTestStore(t, StoreConfig{MinSimilarity: 0.99})

	paths, err := store.Search(context.Background(), []string{"status"}, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"status"}, paths)
}

func TestStoreSearchIndexPattern(t *testing.T) {
	store := newTestStore(t, StoreConfig{})

	paths, err := store.Search(context.Background(), []string{"status"}, "customers")
	require.NoError(t, err)
	assert.NotContains(t, paths, "status")
}

func TestStoreSearchBeforeBuild(t *testing.T) {
	provider, err := NewLocalProvider(nil)
	require.NoError(t, err)
	store := NewStore(provider, StoreConfig{})

	_, err = store.Search(context.Background(), []string{"status"}, "")
	assert.ErrorIs(t, err, ErrNotBuilt)
}

func TestStoreBuildNilSchema(t *testing.T) {
	provider, err := NewLocalProvider(nil)
	require.NoError(t, err)
	store := NewStore(provider, StoreConfig{})
	assert.ErrorIs(t, store.BuildFromSchema(context.Background(), nil), types.ErrEmptySchema)
}

func TestHTTPProviderEmbedBatch(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		type datum struct {
			Embedding []float32 `json:"embedding"`
			Index     int       `json:"index"`
		}
		data := make([]datum, len(req.Input))
		for i := range req.Input {
			data[i] = datum{Embedding: []float32{float32(i), 1}, Index: i}
		}
		json.NewEncoder(w).Encode(map[string]any{"data": data, "model": req.Model})
	}))
	defer server.Close()

	provider := &HTTPProvider{
		name:       ProviderOpenAI,
		endpoint:   server.URL,
		apiKey:     "test-key",
		model:      DefaultOpenAIModel,
		dimension:  OpenAIDimension,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		cache:      NewCache(10),
	}

	embeddings, err := provider.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, embeddings, 2)
	assert.Equal(t, []float32{1, 1}, embeddings[1].Vector)
	assert.Equal(t, 1, requests)

	// Second single-text call is served from cache.
	_, err = provider.Embed(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, 1, requests)
}

func TestHTTPProviderRetriesThenFails(t *testing.T) {
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		requests++
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	provider := &HTTPProvider{
		name:       ProviderJina,
		endpoint:   server.URL,
		apiKey:     "test-key",
		model:      DefaultJinaModel,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}

	_, err := provider.EmbedBatch(context.Background(), []string{"a"})
	assert.ErrorIs(t, err, ErrProviderFailed)
	assert.Equal(t, maxRetries, requests)
}

func TestProviderConstructorsRequireKey(t *testing.T) {
	_, err := NewJinaProvider("", nil)
	assert.ErrorIs(t, err, ErrNoProviderEnabled)
	_, err = NewOpenAIProvider("", nil)
	assert.ErrorIs(t, err, ErrNoProviderEnabled)
}

func TestNewEmbedderUnknownProvider(t *testing.T) {
	_, err := NewEmbedder(EmbedderConfig{Provider: "quantum"})
	assert.ErrorIs(t, err, ErrUnsupportedModel)
}
