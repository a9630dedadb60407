package bm25

import (
	"math"
	"sort"

	"github.com/schemactx/schemactx-mcp/internal/textutil"
	"github.com/schemactx/schemactx-mcp/pkg/types"
)

// Config holds BM25 parameters and document field weights. The zero
// value is usable; Normalize fills in the defaults.
type Config struct {
	K1 float64 // term-frequency saturation, default 1.5
	B  float64 // length normalization, default 0.75

	// Integer repetition counts used to weight document sections.
	// DescriptionWeight is truncated to an int at build time.
	PathWeight        int
	DescriptionWeight float64
	AliasWeight       int
	ConceptWeight     int

	MinTokenLength int
}

// Normalize returns the config with defaults applied
func (c Config) Normalize() Config {
	if c.K1 == 0 {
		c.K1 = 1.5
	}
	if c.B == 0 {
		c.B = 0.75
	}
	if c.PathWeight == 0 {
		c.PathWeight = 2
	}
	if c.DescriptionWeight == 0 {
		c.DescriptionWeight = 1.5
	}
	if c.AliasWeight == 0 {
		c.AliasWeight = 1
	}
	if c.ConceptWeight == 0 {
		c.ConceptWeight = 1
	}
	if c.MinTokenLength == 0 {
		c.MinTokenLength = textutil.DefaultMinTokenLength
	}
	return c
}

// FieldDoc is the raw material for one synthetic document
type FieldDoc struct {
	Path        string
	Description string
	Aliases     []string
	Concepts    []string
}

// document is a built document: per-term frequency and length
type document struct {
	path     string
	termFreq map[string]int
	length   int
}

// Result is one search hit
type Result struct {
	Path  string
	Score float64
}

// Index ranks field and parameter paths by lexical similarity to a
// free-text query. It is built once and read-only afterwards.
type Index struct {
	cfg   Config
	docs  []document
	byPos map[string]int // path -> insertion position
	df    map[string]int
	idf   map[string]float64
	avgdl float64
}

// New creates an empty index with the given config
func New(cfg Config) *Index {
	return &Index{
		cfg:   cfg.Normalize(),
		byPos: make(map[string]int),
		df:    make(map[string]int),
		idf:   make(map[string]float64),
	}
}

// BuildFromSchema constructs the index over every field and REST
// parameter in the document, an independent pass from the graph build.
func BuildFromSchema(doc *types.SchemaDocument, cfg Config) *Index {
	ix := New(cfg)
	if doc == nil {
		ix.finalize()
		return ix
	}

	for i := range doc.Indices {
		idx := &doc.Indices[i]
		for j := range idx.Fields {
			ix.addFieldTree("", &idx.Fields[j])
		}
	}
	for i := range doc.Endpoints {
		ep := &doc.Endpoints[i]
		for j := range ep.Params {
			p := &ep.Params[j]
			ix.Add(FieldDoc{
				Path:        p.QualifiedName(),
				Description: p.Description,
				Aliases:     p.Aliases,
				Concepts:    conceptList(p.MapsTo),
			})
		}
	}

	ix.finalize()
	return ix
}

func (ix *Index) addFieldTree(parentPath string, f *types.Field) {
	path := f.Name
	if parentPath != "" {
		path = parentPath + "." + f.Name
	}
	ix.Add(FieldDoc{
		Path:        path,
		Description: f.Description,
		Aliases:     f.Aliases,
		Concepts:    conceptList(f.MapsTo),
	})
	for i := range f.NestedFields {
		ix.addFieldTree(path, &f.NestedFields[i])
	}
}

// Add builds and stores the synthetic document for one field. Sections
// are concatenated with integer repetition to approximate weighting:
// path tokens PathWeight times, description tokens int(DescriptionWeight)
// times, alias tokens AliasWeight times, concept tokens ConceptWeight
// times. Duplicate paths are ignored. Callers must invoke finalize
// (via Build*) before searching.
func (ix *Index) Add(doc FieldDoc) {
	if doc.Path == "" {
		return
	}
	if _, dup := ix.byPos[doc.Path]; dup {
		return
	}

	tf := make(map[string]int)
	length := 0
	weigh := func(text string, repeat int) {
		if repeat <= 0 || text == "" {
			return
		}
		for _, tok := range textutil.Tokenize(text, ix.cfg.MinTokenLength) {
			tf[tok] += repeat
			length += repeat
		}
	}

	weigh(doc.Path, ix.cfg.PathWeight)
	weigh(doc.Description, int(ix.cfg.DescriptionWeight))
	for _, alias := range doc.Aliases {
		weigh(alias, ix.cfg.AliasWeight)
	}
	for _, concept := range doc.Concepts {
		weigh(concept, ix.cfg.ConceptWeight)
	}

	ix.byPos[doc.Path] = len(ix.docs)
	ix.docs = append(ix.docs, document{path: doc.Path, termFreq: tf, length: length})
	for term := range tf {
		ix.df[term]++
	}
}

// finalize computes corpus statistics: avgdl and per-term idf using
// idf(t) = ln((N - df + 0.5)/(df + 0.5) + 1).
func (ix *Index) finalize() {
	n := len(ix.docs)
	if n == 0 {
		ix.avgdl = 0
		return
	}
	total := 0
	for i := range ix.docs {
		total += ix.docs[i].length
	}
	ix.avgdl = float64(total) / float64(n)

	for term, df := range ix.df {
		ix.idf[term] = math.Log((float64(n)-float64(df)+0.5)/(float64(df)+0.5) + 1)
	}
}

// Size returns the number of indexed documents
func (ix *Index) Size() int {
	return len(ix.docs)
}

// Search scores the tokenized query against every document and returns
// up to topK results with score >= minScore, sorted descending. Ties
// keep insertion order. Empty and entirely unmatched queries return an
// empty slice, never an error.
func (ix *Index) Search(query string, topK int, minScore float64) []Result {
	terms := textutil.Tokenize(query, ix.cfg.MinTokenLength)
	if len(terms) == 0 || len(ix.docs) == 0 {
		return nil
	}

	results := make([]Result, 0, 16)
	for i := range ix.docs {
		score := ix.score(&ix.docs[i], terms)
		if score > 0 && score >= minScore {
			results = append(results, Result{Path: ix.docs[i].path, Score: score})
		}
	}

	// Stable keeps insertion order between equal scores.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results
}

// score sums the BM25 term score over matched query terms only
func (ix *Index) score(d *document, terms []string) float64 {
	var score float64
	for _, term := range terms {
		tf := d.termFreq[term]
		if tf == 0 {
			continue
		}
		idf := ix.idf[term]
		num := float64(tf) * (ix.cfg.K1 + 1)
		den := float64(tf) + ix.cfg.K1*(1-ix.cfg.B+ix.cfg.B*float64(d.length)/ix.avgdl)
		score += idf * num / den
	}
	return score
}

func conceptList(mapsTo string) []string {
	if mapsTo == "" {
		return nil
	}
	return []string{mapsTo}
}
