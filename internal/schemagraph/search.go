package schemagraph

import "strings"

// ConceptMatch is a concept hit with the confidence of the match
type ConceptMatch struct {
	Name       string
	Confidence float64
	MatchType  string // exact, alias, fuzzy, value, pronoun
}

// FieldMatch is a field hit with its score and the concept that
// contributed it, kept for explainability.
type FieldMatch struct {
	Path  string
	Score float64
	Via   string
}

// SearchResult is the outcome of one graph search. Matched fields were
// hit directly; expanded fields were pulled in by RELATES_TO
// traversal. An unknown concept produces an empty result, never an
// error.
type SearchResult struct {
	MatchedConcepts []ConceptMatch
	MatchedFields   []FieldMatch
	ExpandedFields  []FieldMatch
	Adjacency       map[string][]string
	Hops            int
}

// Empty reports whether the search found nothing at all
func (r *SearchResult) Empty() bool {
	return len(r.MatchedConcepts) == 0 && len(r.MatchedFields) == 0 && len(r.ExpandedFields) == 0
}

func newSearchResult() *SearchResult {
	return &SearchResult{Adjacency: make(map[string][]string)}
}

// FindFieldsByConcept resolves name (or an alias of it) to a canonical
// concept and returns its directly mapped fields as exact matches with
// score 1.0. With includeRelated, RELATES_TO edges are expanded
// breadth-first up to maxHops hops; each newly visited concept
// contributes its own fields to ExpandedFields with a score that
// decays per hop (1/(hop+1)), and the traversal adjacency is recorded.
func (g *Graph) FindFieldsByConcept(name string, includeRelated bool, maxHops int) *SearchResult {
	result := newSearchResult()

	canonical := g.resolveConcept(name)
	if canonical == "" {
		return result
	}

	matchType := "exact"
	if !strings.EqualFold(name, canonical) {
		matchType = "alias"
	}
	result.MatchedConcepts = append(result.MatchedConcepts, ConceptMatch{
		Name:       canonical,
		Confidence: 1.0,
		MatchType:  matchType,
	})

	for _, path := range g.conceptToFields[canonical] {
		result.MatchedFields = append(result.MatchedFields, FieldMatch{
			Path:  path,
			Score: 1.0,
			Via:   canonical,
		})
	}

	if includeRelated && maxHops > 0 {
		g.expandRelated(canonical, maxHops, result)
	}

	return result
}

// FindRelatedFields expands from a field through its mapped concepts.
// The field-to-concept step consumes one hop of the budget.
func (g *Graph) FindRelatedFields(fieldPath, indexName string, maxHops int) *SearchResult {
	result := newSearchResult()

	if indexName != "" {
		if owner, ok := g.fieldIndexName[fieldPath]; !ok || owner != indexName {
			return result
		}
	}

	concepts := g.fieldToConcepts[fieldPath]
	if len(concepts) == 0 {
		return result
	}

	for _, concept := range concepts {
		sub := g.FindFieldsByConcept(concept, maxHops > 1, maxHops-1)
		result.MatchedConcepts = append(result.MatchedConcepts, sub.MatchedConcepts...)
		result.MatchedFields = append(result.MatchedFields, sub.MatchedFields...)
		result.ExpandedFields = append(result.ExpandedFields, sub.ExpandedFields...)
		for from, to := range sub.Adjacency {
			result.Adjacency[from] = append(result.Adjacency[from], to...)
		}
		if sub.Hops+1 > result.Hops {
			result.Hops = sub.Hops + 1
		}
	}

	return result
}

// expandRelated walks RELATES_TO adjacency breadth-first from the
// starting concept, collecting every newly visited concept's fields.
func (g *Graph) expandRelated(start string, maxHops int, result *SearchResult) {
	visited := map[string]bool{start: true}
	frontier := []string{start}

	for hop := 1; hop <= maxHops && len(frontier) > 0; hop++ {
		var next []string
		score := 1.0 / float64(hop+1)

		for _, current := range frontier {
			for _, rel := range g.conceptRelations[current] {
				if visited[rel.target] {
					continue
				}
				visited[rel.target] = true
				next = append(next, rel.target)

				result.Adjacency[current] = appendUnique(result.Adjacency[current], rel.target)
				result.MatchedConcepts = append(result.MatchedConcepts, ConceptMatch{
					Name:       rel.target,
					Confidence: score,
					MatchType:  "related",
				})
				for _, path := range g.conceptToFields[rel.target] {
					result.ExpandedFields = append(result.ExpandedFields, FieldMatch{
						Path:  path,
						Score: score,
						Via:   rel.target,
					})
				}
			}
		}

		if len(next) > 0 {
			result.Hops = hop
		}
		frontier = next
	}
}
