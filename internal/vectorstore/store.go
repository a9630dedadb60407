package vectorstore

import (
	"context"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/schemactx/schemactx-mcp/pkg/types"
)

// fieldVector is one embedded schema element
type fieldVector struct {
	fieldPath string
	indexName string
	vector    []float32
}

// Store ranks schema field paths by embedding similarity to a
// question. It backs the retrieval engine's fallback path when graph
// and lexical strategies come up thin.
type Store struct {
	embedder Embedder
	topK     int
	minSim   float64

	mu      sync.RWMutex
	vectors []fieldVector
}

// StoreConfig configures the vector store
type StoreConfig struct {
	TopK          int
	MinSimilarity float64
}

// NewStore creates a vector store over the given embedder
func NewStore(embedder Embedder, cfg StoreConfig) *Store {
	if cfg.TopK <= 0 {
		cfg.TopK = 10
	}
	return &Store{
		embedder: embedder,
		topK:     cfg.TopK,
		minSim:   cfg.MinSimilarity,
	}
}

// BuildFromSchema embeds a synthetic document per field and parameter.
// Builds replace the previous state wholesale; a failed build leaves
// it untouched.
func (s *Store) BuildFromSchema(ctx context.Context, doc *types.SchemaDocument) error {
	if doc == nil {
		return types.ErrEmptySchema
	}

	var paths, indexNames, texts []string
	for i := range doc.Indices {
		idx := &doc.Indices[i]
		for j := range idx.Fields {
			collectFieldDocs(idx.Name, "", &idx.Fields[j], &paths, &indexNames, &texts)
		}
	}
	for i := range doc.Endpoints {
		ep := &doc.Endpoints[i]
		for j := range ep.Params {
			p := &ep.Params[j]
			paths = append(paths, p.QualifiedName())
			indexNames = append(indexNames, "")
			texts = append(texts, fieldText(p.QualifiedName(), p.Description, p.Aliases, p.MapsTo))
		}
	}
	if len(texts) == 0 {
		s.mu.Lock()
		s.vectors = nil
		s.mu.Unlock()
		return nil
	}

	vectors := make([]fieldVector, 0, len(texts))
	for start := 0; start < len(texts); start += MaxBatchSize {
		end := start + MaxBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		embeddings, err := s.embedder.EmbedBatch(ctx, texts[start:end])
		if err != nil {
			return fmt.Errorf("failed to embed schema fields: %w", err)
		}
		for i, emb := range embeddings {
			vectors = append(vectors, fieldVector{
				fieldPath: paths[start+i],
				indexName: indexNames[start+i],
				vector:    emb.Vector,
			})
		}
	}

	s.mu.Lock()
	s.vectors = vectors
	s.mu.Unlock()
	return nil
}

// Search embeds the keywords and returns the top-K most similar field
// paths, optionally filtered by an index name glob pattern.
func (s *Store) Search(ctx context.Context, keywords []string, indexPattern string) ([]string, error) {
	s.mu.RLock()
	vectors := s.vectors
	s.mu.RUnlock()
	if len(vectors) == 0 {
		return nil, ErrNotBuilt
	}
	if len(keywords) == 0 {
		return nil, nil
	}

	query, err := s.embedder.Embed(ctx, strings.Join(keywords, " "))
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	type scored struct {
		path string
		sim  float64
		pos  int
	}
	candidates := make([]scored, 0, len(vectors))
	for i := range vectors {
		fv := &vectors[i]
		if indexPattern != "" && fv.indexName != "" {
			if ok, _ := path.Match(indexPattern, fv.indexName); !ok {
				continue
			}
		}
		sim := CosineSimilarity(query.Vector, fv.vector)
		if sim < s.minSim {
			continue
		}
		candidates = append(candidates, scored{path: fv.fieldPath, sim: sim, pos: i})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].sim != candidates[j].sim {
			return candidates[i].sim > candidates[j].sim
		}
		return candidates[i].pos < candidates[j].pos
	})
	if len(candidates) > s.topK {
		candidates = candidates[:s.topK]
	}

	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.path
	}
	return out, nil
}

// Size returns the number of embedded field documents
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vectors)
}

func collectFieldDocs(indexName, parentPath string, f *types.Field, paths, indexNames, texts *[]string) {
	fp := f.Name
	if parentPath != "" {
		fp = parentPath + "." + f.Name
	}
	*paths = append(*paths, fp)
	*indexNames = append(*indexNames, indexName)
	*texts = append(*texts, fieldText(fp, f.Description, f.Aliases, f.MapsTo))
	for i := range f.NestedFields {
		collectFieldDocs(indexName, fp, &f.NestedFields[i], paths, indexNames, texts)
	}
}

func fieldText(fieldPath, description string, aliases []string, mapsTo string) string {
	parts := []string{strings.ReplaceAll(fieldPath, ".", " ")}
	if description != "" {
		parts = append(parts, description)
	}
	parts = append(parts, aliases...)
	if mapsTo != "" {
		parts = append(parts, mapsTo)
	}
	return strings.Join(parts, " ")
}
