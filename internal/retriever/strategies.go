package retriever

import (
	"strings"

	"github.com/agnivade/levenshtein"

	"github.com/schemactx/schemactx-mcp/internal/schemagraph"
)

// Strategy names, used in adjacency/explainability output and logs
const (
	strategyConcept   = "concept"
	strategyFieldPath = "field_path"
	strategyValue     = "value"
	strategyPronoun   = "pronoun"
	strategyBM25      = "bm25"
)

// strategyResult is the partial outcome of one search strategy.
// Seeds were matched directly; expanded came from graph traversal.
// Fusion treats seeds and expanded alike when summing weights.
type strategyResult struct {
	name      string
	weight    float64
	concepts  []schemagraph.ConceptMatch
	seeds     []schemagraph.FieldMatch
	expanded  []schemagraph.FieldMatch
	adjacency map[string][]string
	hops      int
}

func (r *strategyResult) merge(sub *schemagraph.SearchResult) {
	r.concepts = append(r.concepts, sub.MatchedConcepts...)
	r.seeds = append(r.seeds, sub.MatchedFields...)
	r.expanded = append(r.expanded, sub.ExpandedFields...)
	for from, to := range sub.Adjacency {
		if r.adjacency == nil {
			r.adjacency = make(map[string][]string)
		}
		r.adjacency[from] = append(r.adjacency[from], to...)
	}
	if sub.Hops > r.hops {
		r.hops = sub.Hops
	}
}

// conceptSearch matches keywords against concept names, aliases and
// synonyms. Resolution order per keyword: exact/alias lookup, trailing
// plural fold, then fuzzy matching against all concept names at the
// configured threshold. Each resolved concept is expanded through the
// graph.
func (e *Engine) conceptSearch(snap *snapshot, keywords []string) strategyResult {
	result := strategyResult{name: strategyConcept, weight: e.cfg.Fusion.Concept}

	for _, keyword := range keywords {
		name, confidence, matchType := e.resolveConceptKeyword(snap, keyword)
		if name == "" {
			continue
		}
		sub := snap.graph.FindFieldsByConcept(name, true, e.cfg.MaxHops)
		if len(sub.MatchedConcepts) > 0 {
			sub.MatchedConcepts[0].Confidence = confidence
			sub.MatchedConcepts[0].MatchType = matchType
		}
		result.merge(sub)
	}
	return result
}

// resolveConceptKeyword maps one keyword to a concept name. Returns
// the empty string when nothing clears the fuzzy threshold.
func (e *Engine) resolveConceptKeyword(snap *snapshot, keyword string) (name string, confidence float64, matchType string) {
	probe := snap.graph.FindFieldsByConcept(keyword, false, 0)
	if len(probe.MatchedConcepts) > 0 {
		m := probe.MatchedConcepts[0]
		return m.Name, 1.0, m.MatchType
	}

	// naive plural fold: "orders" -> "order"
	if trimmed := strings.TrimSuffix(keyword, "s"); trimmed != keyword {
		probe = snap.graph.FindFieldsByConcept(trimmed, false, 0)
		if len(probe.MatchedConcepts) > 0 {
			return probe.MatchedConcepts[0].Name, 1.0, "alias"
		}
	}

	best := ""
	bestScore := e.cfg.FuzzyThreshold
	for _, concept := range snap.graph.GetAllConcepts() {
		score := similarity(keyword, strings.ToLower(concept))
		if score > bestScore {
			best = concept
			bestScore = score
		}
	}
	if best == "" {
		return "", 0, ""
	}
	return best, bestScore, "fuzzy"
}

// similarity is normalized levenshtein: 1 - dist/maxLen
func similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	longest := len(a)
	if len(b) > longest {
		longest = len(b)
	}
	if longest == 0 {
		return 0
	}
	dist := levenshtein.ComputeDistance(a, b)
	return 1.0 - float64(dist)/float64(longest)
}

// fieldPathSearch substring-matches keywords against every known field
// path, optionally scoped to one index, and expands each hit through
// its mapped concepts.
func (e *Engine) fieldPathSearch(snap *snapshot, keywords []string, indexName string) strategyResult {
	result := strategyResult{name: strategyFieldPath, weight: e.cfg.FieldPathWeight}

	paths := snap.graph.GetAllFields(indexName)
	for _, keyword := range keywords {
		for _, path := range paths {
			lower := strings.ToLower(path)
			if !strings.Contains(lower, keyword) {
				continue
			}
			score := 0.7
			if segmentEquals(lower, keyword) {
				score = 1.0
			}
			result.seeds = append(result.seeds, schemagraph.FieldMatch{Path: path, Score: score})
			result.merge(snap.graph.FindRelatedFields(path, indexName, e.cfg.MaxHops))
		}
	}
	return result
}

// segmentEquals reports whether the keyword equals a full dot-path
// segment of the field path.
func segmentEquals(path, keyword string) bool {
	for _, seg := range strings.Split(path, ".") {
		if seg == keyword {
			return true
		}
	}
	return false
}

// valueSearch resolves keywords through the value synonym index.
// Field-level matches add the specific field directly at full
// confidence; concept-level matches expand through the concept's
// mapped fields at a reduced factor, being inherently less precise.
func (e *Engine) valueSearch(snap *snapshot, keywords []string) strategyResult {
	result := strategyResult{name: strategyValue, weight: e.cfg.Fusion.Value}

	for _, keyword := range keywords {
		for _, match := range snap.values.LookupValue(keyword) {
			confidence := e.cfg.ValueSynonymConfidence
			if match.IsExactMatch {
				confidence = e.cfg.ValueExactConfidence
			}

			if match.FieldPath != "" {
				result.seeds = append(result.seeds, schemagraph.FieldMatch{
					Path:  match.FieldPath,
					Score: confidence,
					Via:   match.CanonicalValue,
				})
				continue
			}

			// concept-level match
			conceptConfidence := confidence * e.cfg.ConceptLevelValueFactor
			result.concepts = append(result.concepts, schemagraph.ConceptMatch{
				Name:       strings.ToLower(match.OwningEntity),
				Confidence: conceptConfidence,
				MatchType:  "value",
			})
			for _, path := range snap.graph.ConceptFields(match.OwningEntity) {
				result.expanded = append(result.expanded, schemagraph.FieldMatch{
					Path:  path,
					Score: conceptConfidence,
					Via:   strings.ToLower(match.OwningEntity),
				})
			}
		}
	}
	return result
}

// pronounSearch maps whole-word pronoun occurrences in the raw
// question to concepts at the fixed alias-match confidence.
func (e *Engine) pronounSearch(snap *snapshot, question string) strategyResult {
	result := strategyResult{name: strategyPronoun, weight: e.cfg.Fusion.Pronoun}

	for _, match := range snap.values.FindPronounsInText(question) {
		canonical := strings.ToLower(match.Concept)
		result.concepts = append(result.concepts, schemagraph.ConceptMatch{
			Name:       canonical,
			Confidence: e.cfg.PronounConfidence,
			MatchType:  "pronoun",
		})
		for _, path := range snap.graph.ConceptFields(canonical) {
			result.expanded = append(result.expanded, schemagraph.FieldMatch{
				Path:  path,
				Score: e.cfg.PronounConfidence,
				Via:   canonical,
			})
		}
	}
	return result
}

// bm25Search takes the top-k lexical matches and expands each one hop
// through its mapped concepts. Raw scores are normalized to roughly
// [0,1] via min(score/norm, 1) before fusion.
func (e *Engine) bm25Search(snap *snapshot, question string) strategyResult {
	result := strategyResult{name: strategyBM25, weight: e.cfg.Fusion.BM25}

	for _, hit := range snap.bm25.Search(question, e.cfg.BM25TopK, e.cfg.BM25MinScore) {
		normalized := hit.Score / e.cfg.BM25ScoreNorm
		if normalized > 1 {
			normalized = 1
		}
		result.seeds = append(result.seeds, schemagraph.FieldMatch{
			Path:  hit.Path,
			Score: normalized,
			Via:   strategyBM25,
		})

		for _, concept := range snap.graph.FieldConcepts(hit.Path) {
			result.concepts = append(result.concepts, schemagraph.ConceptMatch{
				Name:       concept,
				Confidence: normalized,
				MatchType:  "bm25",
			})
			for _, path := range snap.graph.ConceptFields(concept) {
				if path == hit.Path {
					continue
				}
				result.expanded = append(result.expanded, schemagraph.FieldMatch{
					Path:  path,
					Score: normalized,
					Via:   concept,
				})
			}
		}
	}
	return result
}
