package types

import "time"

// ConceptScore is a matched concept with the confidence the retriever
// assigned to it after deduplication across strategies.
type ConceptScore struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
	MatchType  string  `json:"match_type,omitempty"` // exact, alias, fuzzy, value, pronoun
}

// RankedEndpoint is a REST endpoint scored against a question
type RankedEndpoint struct {
	Key     string  `json:"key"`
	Method  string  `json:"method"`
	Path    string  `json:"path"`
	Summary string  `json:"summary,omitempty"`
	Score   float64 `json:"score"`

	// Sub-scores retained for explainability
	ConceptScore float64 `json:"concept_score"`
	PathScore    float64 `json:"path_score"`
	ParamScore   float64 `json:"param_score"`
	TextScore    float64 `json:"text_score"`

	// DirectMatch is set when the endpoint was independently hit via
	// path-segment or response-field indexing.
	DirectMatch bool `json:"direct_match,omitempty"`

	// Params are the parameter paths surfaced for this endpoint. All
	// declared parameters when concept or path evidence is strong,
	// otherwise only the specifically matched ones.
	Params []string `json:"params,omitempty"`
}

// ExampleHint is a worked example attached to a retrieval result
type ExampleHint struct {
	ID       string `json:"id"`
	Question string `json:"question"`
	Query    string `json:"query,omitempty"`
}

// ExpansionStats summarizes how a retrieval result was assembled
type ExpansionStats struct {
	SeedCount     int `json:"seed_count"`
	ExpandedCount int `json:"expanded_count"`
	TotalCount    int `json:"total_count"`
	ConceptCount  int `json:"concept_count"`
	HopCount      int `json:"hop_count"`
	EndpointCount int `json:"endpoint_count"`
	ExampleCount  int `json:"example_count"`
}

// RetrievalContext is the immutable payload handed to the downstream
// query-generation pipeline. Seed fields were matched directly by a
// strategy; expanded fields were pulled in through graph traversal.
type RetrievalContext struct {
	Question string   `json:"question"`
	Keywords []string `json:"keywords"`
	Strategy string   `json:"strategy"`

	SeedFields     []string           `json:"seed_fields"`
	ExpandedFields []string           `json:"expanded_fields"`
	FieldScores    map[string]float64 `json:"field_scores"`

	Concepts  []ConceptScore      `json:"concepts"`
	Endpoints []RankedEndpoint    `json:"endpoints,omitempty"`
	Adjacency map[string][]string `json:"adjacency,omitempty"`
	Examples  []ExampleHint       `json:"examples,omitempty"`

	Stats    ExpansionStats `json:"stats"`
	Duration time.Duration  `json:"duration"`
}

// AllFields returns seed fields followed by expanded fields
func (rc *RetrievalContext) AllFields() []string {
	out := make([]string, 0, len(rc.SeedFields)+len(rc.ExpandedFields))
	out = append(out, rc.SeedFields...)
	out = append(out, rc.ExpandedFields...)
	return out
}
