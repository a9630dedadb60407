package retriever

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/schemactx/schemactx-mcp/internal/bm25"
	"github.com/schemactx/schemactx-mcp/internal/schemagraph"
	"github.com/schemactx/schemactx-mcp/internal/textutil"
	"github.com/schemactx/schemactx-mcp/internal/valueindex"
	"github.com/schemactx/schemactx-mcp/pkg/types"
)

// VectorStore is the optional external fallback used when graph and
// BM25 coverage is thin. Its internals are out of scope here; failures
// are treated as "no additional fields found".
type VectorStore interface {
	Search(ctx context.Context, keywords []string, indexPattern string) ([]string, error)
}

// snapshot bundles the three indices built from one schema version.
// All reads go through an atomically swapped snapshot pointer, which
// gives the single-writer/many-reader property without locks on the
// query path.
type snapshot struct {
	schema *types.SchemaDocument
	graph  *schemagraph.Graph
	bm25   *bm25.Index
	values *valueindex.Index
}

type cacheEntry struct {
	ctx       *types.RetrievalContext
	expiresAt time.Time
}

// Engine turns free-text questions into ranked field and endpoint
// sets. Create with New, feed with Load, query with Retrieve.
type Engine struct {
	cfg    Config
	logger *slog.Logger

	snap    atomic.Pointer[snapshot]
	buildMu sync.Mutex

	cache   *lru.Cache[[32]byte, *cacheEntry]
	cacheMu sync.RWMutex

	vector VectorStore
}

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the structured logger. Default discards nothing and
// writes to slog's default handler.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithVectorStore plugs in the optional vector fallback
func WithVectorStore(vs VectorStore) Option {
	return func(e *Engine) { e.vector = vs }
}

// New creates an engine. An unknown strategy name is the one fatal
// configuration error; drifted fusion or endpoint weights are logged
// as warnings and retrieval proceeds with the given values.
func New(cfg Config, opts ...Option) (*Engine, error) {
	cfg = cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cache, err := lru.New[[32]byte, *cacheEntry](1024)
	if err != nil {
		return nil, fmt.Errorf("failed to create query cache: %w", err)
	}

	e := &Engine{
		cfg:    cfg,
		logger: slog.Default(),
		cache:  cache,
	}
	for _, opt := range opts {
		opt(e)
	}

	if cfg.WeightsDrifted() {
		e.logger.Warn("fusion weights do not sum to 1.0",
			"sum", cfg.Fusion.Sum(),
			"concept", cfg.Fusion.Concept,
			"value", cfg.Fusion.Value,
			"pronoun", cfg.Fusion.Pronoun,
			"bm25", cfg.Fusion.BM25)
	}
	if cfg.EndpointWeightsDrifted() {
		e.logger.Warn("endpoint scoring weights do not sum to 1.0")
	}

	return e, nil
}

// Load builds all three indices from the document and atomically swaps
// them in. Building is single-writer; a failed build leaves the prior
// snapshot intact and readers never observe partial state.
func (e *Engine) Load(doc *types.SchemaDocument) error {
	e.buildMu.Lock()
	defer e.buildMu.Unlock()

	if doc == nil {
		return types.ErrEmptySchema
	}

	next := &snapshot{schema: doc}

	// Independent build passes over the same document; no shared
	// mutable state between them.
	var g errgroup.Group
	g.Go(func() error {
		graph, err := schemagraph.Build(doc)
		if err != nil {
			return err
		}
		next.graph = graph
		return nil
	})
	g.Go(func() error {
		next.bm25 = bm25.BuildFromSchema(doc, e.cfg.BM25)
		return nil
	})
	g.Go(func() error {
		next.values = valueindex.Build(doc)
		return nil
	})
	if err := g.Wait(); err != nil {
		return fmt.Errorf("failed to build indices: %w", err)
	}

	e.snap.Store(next)
	e.purgeCache()

	stats := next.graph.Stats()
	e.logger.Info("schema loaded",
		"schema", doc.Name,
		"version", doc.Version,
		"concepts", stats.Concepts,
		"fields", stats.Fields,
		"endpoints", stats.Endpoints,
		"bm25_docs", next.bm25.Size())
	return nil
}

// Retrieve answers "which schema elements are relevant to this
// question" using the configured strategy. It performs no I/O and no
// blocking beyond the optional vector fallback; strategies read shared
// immutable indices only.
func (e *Engine) Retrieve(ctx context.Context, question string) (*types.RetrievalContext, error) {
	return e.RetrieveWithStrategy(ctx, question, e.cfg.Strategy)
}

// RetrieveWithStrategy is Retrieve with a per-call strategy override
func (e *Engine) RetrieveWithStrategy(ctx context.Context, question string, mode Mode) (*types.RetrievalContext, error) {
	snap := e.snap.Load()
	if snap == nil {
		return nil, types.ErrNoSchemaLoaded
	}

	start := time.Now()
	keywords := textutil.ExtractKeywords(question, textutil.DefaultKeywordMinLength)

	if e.cfg.UseCache {
		if cached, ok := e.checkCache(question, mode); ok {
			return cached, nil
		}
	}

	results, err := e.runStrategies(ctx, snap, mode, question, keywords)
	if err != nil {
		return nil, err
	}

	fused := e.fuse(results)
	e.applyVectorFallback(ctx, keywords, fused)

	rc := e.assemble(snap, question, keywords, mode, fused)
	rc.Duration = time.Since(start)

	if e.cfg.UseCache {
		e.storeCache(question, mode, rc)
	}
	return rc, nil
}

// runStrategies executes the strategy set selected by the configured
// mode. FUSION fans the enabled strategies out concurrently; results
// land in fixed slots so fusion order never depends on completion
// order.
func (e *Engine) runStrategies(ctx context.Context, snap *snapshot, mode Mode, question string, keywords []string) ([]strategyResult, error) {
	switch mode {
	case ModeConcept:
		return []strategyResult{e.conceptSearch(snap, keywords)}, nil

	case ModeField:
		return []strategyResult{
			e.conceptSearch(snap, keywords),
			e.fieldPathSearch(snap, keywords, ""),
		}, nil

	case ModeHybrid:
		results := []strategyResult{
			e.conceptSearch(snap, keywords),
			e.valueSearch(snap, keywords),
		}
		if fieldCount(results) < e.cfg.MaxFields/e.cfg.HybridFieldFallbackDivisor {
			results = append(results, e.fieldPathSearch(snap, keywords, ""))
		}
		if fieldCount(results) < e.cfg.MaxFields/e.cfg.HybridBM25FallbackDivisor {
			results = append(results, e.bm25Search(snap, question))
		}
		return results, nil

	case ModeFusion:
		type slot struct {
			enabled bool
			run     func() strategyResult
		}
		slots := []slot{
			{e.cfg.EnableConcept, func() strategyResult { return e.conceptSearch(snap, keywords) }},
			{e.cfg.EnableValue, func() strategyResult { return e.valueSearch(snap, keywords) }},
			{e.cfg.EnablePronoun, func() strategyResult { return e.pronounSearch(snap, question) }},
			{e.cfg.EnableBM25, func() strategyResult { return e.bm25Search(snap, question) }},
		}

		results := make([]strategyResult, len(slots))
		g, _ := errgroup.WithContext(ctx)
		for i, s := range slots {
			if !s.enabled {
				continue
			}
			g.Go(func() error {
				results[i] = s.run()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
		return results, nil

	default:
		return nil, fmt.Errorf("%w: %q", types.ErrUnknownStrategy, mode)
	}
}

// applyVectorFallback asks the optional vector store for more fields
// when fused coverage is thin. Any failure degrades to no additional
// fields.
func (e *Engine) applyVectorFallback(ctx context.Context, keywords []string, fused *fusedResult) {
	if e.vector == nil || len(keywords) == 0 {
		return
	}
	if len(fused.fields) >= e.cfg.MaxFields/e.cfg.VectorFallbackDivisor {
		return
	}

	paths, err := e.vector.Search(ctx, keywords, "")
	if err != nil {
		e.logger.Warn("vector fallback failed", "error", err)
		return
	}

	present := make(map[string]bool, len(fused.fields))
	for _, f := range fused.fields {
		present[f.path] = true
	}
	for _, path := range paths {
		if present[path] || len(fused.fields) >= e.cfg.MaxFields {
			continue
		}
		fused.fields = append(fused.fields, fusedField{path: path, score: e.cfg.MinFusionScore})
		present[path] = true
	}
}

// assemble packages the fused result into the immutable context handed
// to the downstream generation pipeline.
func (e *Engine) assemble(snap *snapshot, question string, keywords []string, mode Mode, fused *fusedResult) *types.RetrievalContext {
	rc := &types.RetrievalContext{
		Question:    question,
		Keywords:    keywords,
		Strategy:    string(mode),
		FieldScores: make(map[string]float64, len(fused.fields)),
		Concepts:    fused.concepts,
		Adjacency:   fused.adjacency,
	}

	matchedFields := make(map[string]bool, len(fused.fields))
	for _, f := range fused.fields {
		rc.FieldScores[f.path] = f.score
		matchedFields[f.path] = true
		if f.seed {
			rc.SeedFields = append(rc.SeedFields, f.path)
		} else {
			rc.ExpandedFields = append(rc.ExpandedFields, f.path)
		}
	}

	rc.Endpoints = e.scoreEndpoints(snap, keywords, fused.concepts, matchedFields)
	rc.Examples = e.collectExamples(snap, keywords, fused)

	rc.Stats = types.ExpansionStats{
		SeedCount:     len(rc.SeedFields),
		ExpandedCount: len(rc.ExpandedFields),
		TotalCount:    len(rc.SeedFields) + len(rc.ExpandedFields),
		ConceptCount:  len(rc.Concepts),
		HopCount:      fused.hops,
		EndpointCount: len(rc.Endpoints),
		ExampleCount:  len(rc.Examples),
	}
	return rc
}

// collectExamples gathers worked examples linked to the matched
// concepts, seed fields, and question keywords, deduplicated in
// first-seen order.
func (e *Engine) collectExamples(snap *snapshot, keywords []string, fused *fusedResult) []types.ExampleHint {
	seen := make(map[string]bool)
	var hints []types.ExampleHint

	add := func(ids []string) {
		for _, id := range ids {
			if seen[id] || len(hints) >= e.cfg.MaxExamples {
				continue
			}
			seen[id] = true
			if ex, ok := snap.graph.GetExample(id); ok {
				hints = append(hints, types.ExampleHint{ID: ex.ID, Question: ex.Question, Query: ex.Query})
			}
		}
	}

	for _, c := range fused.concepts {
		add(snap.graph.ExamplesForConcept(c.Name))
	}
	for _, f := range fused.fields {
		if f.seed {
			add(snap.graph.ExamplesForField(f.path))
		}
	}
	for _, keyword := range keywords {
		add(snap.graph.ExamplesForKeyword(keyword))
	}
	return hints
}

// Stats returns graph statistics for the current snapshot
func (e *Engine) Stats() (schemagraph.GraphStats, error) {
	snap := e.snap.Load()
	if snap == nil {
		return schemagraph.GraphStats{}, types.ErrNoSchemaLoaded
	}
	return snap.graph.Stats(), nil
}

// Schema returns the currently loaded schema document
func (e *Engine) Schema() (*types.SchemaDocument, error) {
	snap := e.snap.Load()
	if snap == nil {
		return nil, types.ErrNoSchemaLoaded
	}
	return snap.schema, nil
}

// ResolveValue resolves a literal word to its canonical schema value
func (e *Engine) ResolveValue(word string) (schemagraph.ValueRef, bool) {
	snap := e.snap.Load()
	if snap == nil {
		return schemagraph.ValueRef{}, false
	}
	return snap.graph.ResolveValueSynonym(word)
}

// Concepts lists all concept names in the current snapshot
func (e *Engine) Concepts() ([]string, error) {
	snap := e.snap.Load()
	if snap == nil {
		return nil, types.ErrNoSchemaLoaded
	}
	return snap.graph.GetAllConcepts(), nil
}

// AddExample inserts a worked example into the live graph. Same
// single-writer discipline as Load.
func (e *Engine) AddExample(ex *types.Example) error {
	snap := e.snap.Load()
	if snap == nil {
		return types.ErrNoSchemaLoaded
	}
	e.buildMu.Lock()
	defer e.buildMu.Unlock()
	if err := snap.graph.AddExample(ex); err != nil {
		return err
	}
	e.purgeCache()
	return nil
}

// RemoveExample removes a worked example from the live graph
func (e *Engine) RemoveExample(id string) error {
	snap := e.snap.Load()
	if snap == nil {
		return types.ErrNoSchemaLoaded
	}
	e.buildMu.Lock()
	defer e.buildMu.Unlock()
	if err := snap.graph.RemoveExample(id); err != nil {
		return err
	}
	e.purgeCache()
	return nil
}

func (e *Engine) checkCache(question string, mode Mode) (*types.RetrievalContext, bool) {
	key := e.cacheKey(question, mode)
	now := time.Now()

	e.cacheMu.RLock()
	entry, ok := e.cache.Get(key)
	if !ok {
		e.cacheMu.RUnlock()
		return nil, false
	}
	if now.After(entry.expiresAt) {
		e.cacheMu.RUnlock()
		e.cacheMu.Lock()
		e.cache.Remove(key)
		e.cacheMu.Unlock()
		return nil, false
	}
	rc := entry.ctx
	e.cacheMu.RUnlock()
	return rc, true
}

func (e *Engine) storeCache(question string, mode Mode, rc *types.RetrievalContext) {
	entry := &cacheEntry{ctx: rc, expiresAt: time.Now().Add(e.cfg.CacheTTL)}
	e.cacheMu.Lock()
	e.cache.Add(e.cacheKey(question, mode), entry)
	e.cacheMu.Unlock()
}

func (e *Engine) purgeCache() {
	e.cacheMu.Lock()
	e.cache.Purge()
	e.cacheMu.Unlock()
}

// cacheKey hashes the question together with every setting that
// affects the result.
func (e *Engine) cacheKey(question string, mode Mode) [32]byte {
	var b strings.Builder
	b.WriteString(question)
	b.WriteString("|")
	b.WriteString(string(mode))
	b.WriteString("|")
	b.WriteString(fmt.Sprintf("%d|%d|%d|%.3f", e.cfg.MaxFields, e.cfg.MaxConcepts, e.cfg.MaxHops, e.cfg.MinFusionScore))
	return sha256.Sum256([]byte(b.String()))
}
