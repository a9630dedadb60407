package retriever

import (
	"sort"
	"strings"

	"github.com/schemactx/schemactx-mcp/internal/schemagraph"
	"github.com/schemactx/schemactx-mcp/internal/textutil"
	"github.com/schemactx/schemactx-mcp/pkg/types"
)

// scoreEndpoints ranks every REST endpoint against the question,
// independent of field fusion. Four sub-scores (concept, path segment,
// parameter, text) are combined by the configured weights, with an
// additive bonus for endpoints hit directly through path-segment or
// response-field indexing. Deterministic: identical inputs always
// yield the same ranked list.
func (e *Engine) scoreEndpoints(snap *snapshot, keywords []string, concepts []types.ConceptScore, matchedFields map[string]bool) []types.RankedEndpoint {
	endpoints := snap.graph.GetAllEndpoints()
	if len(endpoints) == 0 {
		return nil
	}

	conceptConfidence := make(map[string]float64, len(concepts))
	for _, c := range concepts {
		conceptConfidence[strings.ToLower(c.Name)] = c.Confidence
	}

	direct := e.directEndpointMatches(snap, keywords)
	cfg := e.cfg.Endpoint

	ranked := make([]types.RankedEndpoint, 0, len(endpoints))
	for _, ep := range endpoints {
		re := types.RankedEndpoint{
			Key:         ep.Key,
			Method:      ep.Method,
			Path:        ep.Path,
			Summary:     ep.Summary,
			DirectMatch: direct[ep.Key],
		}

		re.ConceptScore = e.endpointConceptScore(ep, conceptConfidence)
		re.PathScore = pathSegmentScore(ep.Path, keywords)
		re.ParamScore, re.Params = e.paramScore(ep, matchedFields)
		re.TextScore = textMatchScore(ep.Summary+" "+ep.Description, keywords)

		re.Score = cfg.ConceptWeight*re.ConceptScore +
			cfg.PathWeight*re.PathScore +
			cfg.ParamWeight*re.ParamScore +
			cfg.TextWeight*re.TextScore
		if re.DirectMatch {
			re.Score += cfg.DirectMatchBonus
		}

		if re.Score < cfg.MinScoreThreshold && !re.DirectMatch {
			continue
		}

		// Strong concept or path evidence surfaces every declared
		// parameter; weak evidence keeps only the matched ones.
		if re.ConceptScore >= cfg.StrongEvidenceThreshold || re.PathScore >= cfg.StrongEvidenceThreshold {
			re.Params = allParams(ep)
		}

		ranked = append(ranked, re)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Key < ranked[j].Key
	})
	if len(ranked) > cfg.MaxEndpoints {
		ranked = ranked[:cfg.MaxEndpoints]
	}
	return ranked
}

// directEndpointMatches collects endpoints hit by any keyword through
// the path-segment or response-field indices.
func (e *Engine) directEndpointMatches(snap *snapshot, keywords []string) map[string]bool {
	direct := make(map[string]bool)
	for _, keyword := range keywords {
		for _, key := range snap.graph.EndpointsForPathSegment(keyword) {
			direct[key] = true
		}
		for _, key := range snap.graph.EndpointsForResponseSegment(keyword) {
			direct[key] = true
		}
	}
	return direct
}

// endpointConceptScore scores the endpoint's mapped concept against
// the matched concept set: the concept's fused confidence when known,
// the default confidence when matched without one, zero otherwise.
func (e *Engine) endpointConceptScore(ep *schemagraph.EndpointNode, confidence map[string]float64) float64 {
	if ep.MapsTo == "" {
		return 0
	}
	conf, matched := confidence[strings.ToLower(ep.MapsTo)]
	if !matched {
		return 0
	}
	if conf <= 0 {
		return e.cfg.Endpoint.DefaultConceptConfidence
	}
	return conf
}

// pathSegmentScore is the fraction of keywords found among the
// endpoint's URL path segment tokens, camelCase/snake_case aware.
func pathSegmentScore(path string, keywords []string) float64 {
	if len(keywords) == 0 {
		return 0
	}
	tokens := make(map[string]bool)
	for _, segment := range strings.Split(path, "/") {
		segment = strings.Trim(segment, "{}")
		for _, tok := range textutil.Tokenize(segment, 2) {
			tokens[tok] = true
		}
	}
	found := 0
	for _, keyword := range keywords {
		if tokens[keyword] {
			found++
		}
	}
	return float64(found) / float64(len(keywords))
}

// paramScore is the fraction of the endpoint's declared parameters
// present in the matched-field set, alongside the matched subset.
func (e *Engine) paramScore(ep *schemagraph.EndpointNode, matchedFields map[string]bool) (float64, []string) {
	if ep.Spec == nil || len(ep.Spec.Params) == 0 {
		return 0, nil
	}
	var matched []string
	for i := range ep.Spec.Params {
		qualified := ep.Spec.Params[i].QualifiedName()
		if matchedFields[qualified] {
			matched = append(matched, qualified)
		}
	}
	return float64(len(matched)) / float64(len(ep.Spec.Params)), matched
}

// textMatchScore is the fraction of keywords found in the endpoint's
// summary and description.
func textMatchScore(text string, keywords []string) float64 {
	if len(keywords) == 0 || text == "" {
		return 0
	}
	tokens := make(map[string]bool)
	for _, tok := range textutil.Tokenize(text, 2) {
		tokens[tok] = true
	}
	found := 0
	for _, keyword := range keywords {
		if tokens[keyword] {
			found++
		}
	}
	return float64(found) / float64(len(keywords))
}

func allParams(ep *schemagraph.EndpointNode) []string {
	if ep.Spec == nil {
		return nil
	}
	params := make([]string, 0, len(ep.Spec.Params))
	for i := range ep.Spec.Params {
		params = append(params, ep.Spec.Params[i].QualifiedName())
	}
	return params
}
