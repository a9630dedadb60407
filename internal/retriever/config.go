package retriever

import (
	"fmt"
	"math"
	"time"

	"github.com/schemactx/schemactx-mcp/internal/bm25"
	"github.com/schemactx/schemactx-mcp/pkg/types"
)

// Mode selects which retrieval strategies run
type Mode string

const (
	// ModeConcept runs concept search only
	ModeConcept Mode = "concept"
	// ModeField runs concept plus field-path search
	ModeField Mode = "field"
	// ModeHybrid runs concept and value search, falling back to
	// field-path and then BM25 when coverage is thin
	ModeHybrid Mode = "hybrid"
	// ModeFusion runs concept, value, pronoun, and BM25 search
	// unconditionally and fuses their scores
	ModeFusion Mode = "fusion"
)

// ParseMode validates a retrieval strategy name. An unrecognized name
// is a configuration error, the one lookup in this engine that is.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeConcept, ModeField, ModeHybrid, ModeFusion:
		return Mode(s), nil
	case "":
		return ModeFusion, nil
	default:
		return "", fmt.Errorf("%w: %q", types.ErrUnknownStrategy, s)
	}
}

// Weights are the per-strategy fusion weights. They should sum to
// roughly 1.0; a drifted sum is logged as a warning, not rejected.
type Weights struct {
	Concept float64
	Value   float64
	Pronoun float64
	BM25    float64
}

// DefaultWeights returns the default fusion weights
func DefaultWeights() Weights {
	return Weights{Concept: 0.30, Value: 0.35, Pronoun: 0.15, BM25: 0.20}
}

// Sum returns the total of all four weights
func (w Weights) Sum() float64 {
	return w.Concept + w.Value + w.Pronoun + w.BM25
}

// EndpointScoring configures REST endpoint relevance ranking
type EndpointScoring struct {
	ConceptWeight float64
	PathWeight    float64
	ParamWeight   float64
	TextWeight    float64

	// DirectMatchBonus is added when the endpoint was independently
	// hit via path-segment or response-field indexing.
	DirectMatchBonus  float64
	MinScoreThreshold float64
	MaxEndpoints      int

	// StrongEvidenceThreshold decides when an endpoint's full
	// parameter list is surfaced instead of only the matched ones.
	StrongEvidenceThreshold float64

	// DefaultConceptConfidence scores a mapped-concept hit whose fused
	// confidence is unknown.
	DefaultConceptConfidence float64
}

// DefaultEndpointScoring returns the default endpoint scoring config
func DefaultEndpointScoring() EndpointScoring {
	return EndpointScoring{
		ConceptWeight:            0.40,
		PathWeight:               0.25,
		ParamWeight:              0.20,
		TextWeight:               0.15,
		DirectMatchBonus:         0.2,
		MinScoreThreshold:        0.1,
		MaxEndpoints:             10,
		StrongEvidenceThreshold:  0.5,
		DefaultConceptConfidence: 0.8,
	}
}

// Config is the full retrieval configuration. DefaultConfig returns a
// usable baseline; zero-valued fields of a hand-built Config are
// filled in by normalize at engine construction.
type Config struct {
	Strategy Mode

	MaxFields   int
	MaxConcepts int
	MaxExamples int
	MaxHops     int

	// FuzzyThreshold is the minimum levenshtein similarity for a
	// keyword to fuzzy-match a concept name.
	FuzzyThreshold float64

	// Per-strategy enable flags (fusion mode honors these)
	EnableConcept bool
	EnableValue   bool
	EnablePronoun bool
	EnableBM25    bool

	BM25          bm25.Config
	BM25TopK      int
	BM25MinScore  float64
	BM25ScoreNorm float64 // raw score divisor for [0,1] normalization

	Fusion         Weights
	MinFusionScore float64

	// FieldPathWeight is the fusion weight of the field-path strategy,
	// which participates only in FIELD mode and HYBRID fallback.
	FieldPathWeight float64

	// Value-strategy confidences
	ValueExactConfidence    float64
	ValueSynonymConfidence  float64
	ConceptLevelValueFactor float64

	// PronounConfidence is the fixed alias-match confidence for
	// pronoun-derived concepts.
	PronounConfidence float64

	Endpoint EndpointScoring

	// HYBRID fallback thresholds: field-path search joins when the
	// combined hit count is below MaxFields/HybridFieldFallbackDivisor,
	// BM25 when still below MaxFields/HybridBM25FallbackDivisor. Fixed
	// heuristics in the reference behavior, configurable here.
	HybridFieldFallbackDivisor int
	HybridBM25FallbackDivisor  int

	// VectorFallbackDivisor triggers the optional vector store when
	// the fused field count is below MaxFields/VectorFallbackDivisor.
	VectorFallbackDivisor int

	UseCache bool
	CacheTTL time.Duration
}

// DefaultConfig returns the default retrieval configuration
func DefaultConfig() Config {
	return Config{
		Strategy:                   ModeFusion,
		MaxFields:                  20,
		MaxConcepts:                10,
		MaxExamples:                5,
		MaxHops:                    2,
		FuzzyThreshold:             0.8,
		EnableConcept:              true,
		EnableValue:                true,
		EnablePronoun:              true,
		EnableBM25:                 true,
		BM25TopK:                   10,
		BM25ScoreNorm:              10,
		Fusion:                     DefaultWeights(),
		MinFusionScore:             0.1,
		FieldPathWeight:            0.30,
		ValueExactConfidence:       1.0,
		ValueSynonymConfidence:     0.9,
		ConceptLevelValueFactor:    0.8,
		PronounConfidence:          0.85,
		Endpoint:                   DefaultEndpointScoring(),
		HybridFieldFallbackDivisor: 2,
		HybridBM25FallbackDivisor:  3,
		VectorFallbackDivisor:      3,
		UseCache:                   true,
		CacheTTL:                   time.Hour,
	}
}

// normalize fills zero-valued fields with defaults. Enable flags are
// left as given: an explicit false stays false.
func (c Config) normalize() Config {
	def := DefaultConfig()
	if c.Strategy == "" {
		c.Strategy = def.Strategy
	}
	if c.MaxFields <= 0 {
		c.MaxFields = def.MaxFields
	}
	if c.MaxConcepts <= 0 {
		c.MaxConcepts = def.MaxConcepts
	}
	if c.MaxExamples <= 0 {
		c.MaxExamples = def.MaxExamples
	}
	if c.MaxHops <= 0 {
		c.MaxHops = def.MaxHops
	}
	if c.FuzzyThreshold <= 0 {
		c.FuzzyThreshold = def.FuzzyThreshold
	}
	if c.BM25TopK <= 0 {
		c.BM25TopK = def.BM25TopK
	}
	if c.BM25ScoreNorm <= 0 {
		c.BM25ScoreNorm = def.BM25ScoreNorm
	}
	if c.Fusion == (Weights{}) {
		c.Fusion = def.Fusion
	}
	if c.MinFusionScore <= 0 {
		c.MinFusionScore = def.MinFusionScore
	}
	if c.FieldPathWeight <= 0 {
		c.FieldPathWeight = def.FieldPathWeight
	}
	if c.ValueExactConfidence <= 0 {
		c.ValueExactConfidence = def.ValueExactConfidence
	}
	if c.ValueSynonymConfidence <= 0 {
		c.ValueSynonymConfidence = def.ValueSynonymConfidence
	}
	if c.ConceptLevelValueFactor <= 0 {
		c.ConceptLevelValueFactor = def.ConceptLevelValueFactor
	}
	if c.PronounConfidence <= 0 {
		c.PronounConfidence = def.PronounConfidence
	}
	if c.Endpoint == (EndpointScoring{}) {
		c.Endpoint = def.Endpoint
	}
	if c.HybridFieldFallbackDivisor <= 0 {
		c.HybridFieldFallbackDivisor = def.HybridFieldFallbackDivisor
	}
	if c.HybridBM25FallbackDivisor <= 0 {
		c.HybridBM25FallbackDivisor = def.HybridBM25FallbackDivisor
	}
	if c.VectorFallbackDivisor <= 0 {
		c.VectorFallbackDivisor = def.VectorFallbackDivisor
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = def.CacheTTL
	}
	return c
}

// Validate reports configuration errors. Only an unknown strategy is
// fatal; weight drift is the caller's to warn about.
func (c Config) Validate() error {
	_, err := ParseMode(string(c.Strategy))
	return err
}

// WeightsDrifted reports whether the fusion weights deviate from
// summing to 1.0 by more than the tolerance.
func (c Config) WeightsDrifted() bool {
	return math.Abs(c.Fusion.Sum()-1.0) > 0.01
}

// EndpointWeightsDrifted reports drift of the endpoint scoring weights
func (c Config) EndpointWeightsDrifted() bool {
	sum := c.Endpoint.ConceptWeight + c.Endpoint.PathWeight + c.Endpoint.ParamWeight + c.Endpoint.TextWeight
	return math.Abs(sum-1.0) > 0.01
}
