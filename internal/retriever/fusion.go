package retriever

import (
	"sort"

	"github.com/schemactx/schemactx-mcp/pkg/types"
)

// fusedResult is the combined outcome of all executed strategies
type fusedResult struct {
	fields    []fusedField
	concepts  []types.ConceptScore
	adjacency map[string][]string
	hops      int
}

type fusedField struct {
	path  string
	score float64
	seed  bool
}

// fieldCount returns how many distinct fields the strategies produced,
// before thresholding. HYBRID mode uses this to decide fallbacks.
func fieldCount(results []strategyResult) int {
	seen := make(map[string]struct{})
	for i := range results {
		for _, fm := range results[i].seeds {
			seen[fm.Path] = struct{}{}
		}
		for _, fm := range results[i].expanded {
			seen[fm.Path] = struct{}{}
		}
	}
	return len(seen)
}

// fuse combines strategy results. A field's fused score is the sum
// over strategies of weight * best per-strategy confidence, so a field
// found by several strategies outranks one found by a single strategy.
// Fields below minScore are dropped; the rest are sorted descending
// with ties broken by first-seen order and truncated to maxFields.
// Concepts are deduplicated by name keeping the maximum confidence.
func (e *Engine) fuse(results []strategyResult) *fusedResult {
	type accum struct {
		score     float64
		firstSeen int
		seed      bool
	}
	fields := make(map[string]*accum)
	order := 0

	record := func(path string, contribution float64, seed bool) {
		acc, ok := fields[path]
		if !ok {
			acc = &accum{firstSeen: order}
			order++
			fields[path] = acc
		}
		acc.score += contribution
		if seed {
			acc.seed = true
		}
	}

	fused := &fusedResult{adjacency: make(map[string][]string)}

	for i := range results {
		r := &results[i]

		// Within one strategy a field contributes once, at its best
		// confidence, regardless of how many keywords produced it.
		best := make(map[string]float64)
		seeds := make(map[string]bool)
		for _, fm := range r.seeds {
			if fm.Score > best[fm.Path] {
				best[fm.Path] = fm.Score
			}
			seeds[fm.Path] = true
		}
		for _, fm := range r.expanded {
			if fm.Score > best[fm.Path] {
				best[fm.Path] = fm.Score
			}
		}

		// Deterministic accumulation order: seeds then expanded, in
		// the order the strategy emitted them.
		emitted := make(map[string]bool)
		for _, fm := range r.seeds {
			if !emitted[fm.Path] {
				emitted[fm.Path] = true
				record(fm.Path, r.weight*best[fm.Path], true)
			}
		}
		for _, fm := range r.expanded {
			if !emitted[fm.Path] {
				emitted[fm.Path] = true
				record(fm.Path, r.weight*best[fm.Path], seeds[fm.Path])
			}
		}

		for from, to := range r.adjacency {
			for _, target := range to {
				fused.adjacency[from] = appendUnique(fused.adjacency[from], target)
			}
		}
		if r.hops > fused.hops {
			fused.hops = r.hops
		}
	}

	kept := make([]fusedField, 0, len(fields))
	for path, acc := range fields {
		if acc.score < e.cfg.MinFusionScore {
			continue
		}
		kept = append(kept, fusedField{path: path, score: acc.score, seed: acc.seed})
	}
	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].score != kept[j].score {
			return kept[i].score > kept[j].score
		}
		return fields[kept[i].path].firstSeen < fields[kept[j].path].firstSeen
	})
	if len(kept) > e.cfg.MaxFields {
		kept = kept[:e.cfg.MaxFields]
	}
	fused.fields = kept

	fused.concepts = e.dedupeConcepts(results)
	return fused
}

// dedupeConcepts merges concept matches across strategies by name,
// keeping the maximum confidence seen, sorted descending with
// first-seen tie-breaking and truncated to MaxConcepts.
func (e *Engine) dedupeConcepts(results []strategyResult) []types.ConceptScore {
	type accum struct {
		score     types.ConceptScore
		firstSeen int
	}
	byName := make(map[string]*accum)
	order := 0

	for i := range results {
		for _, cm := range results[i].concepts {
			acc, ok := byName[cm.Name]
			if !ok {
				byName[cm.Name] = &accum{
					score:     types.ConceptScore{Name: cm.Name, Confidence: cm.Confidence, MatchType: cm.MatchType},
					firstSeen: order,
				}
				order++
				continue
			}
			if cm.Confidence > acc.score.Confidence {
				acc.score.Confidence = cm.Confidence
				acc.score.MatchType = cm.MatchType
			}
		}
	}

	concepts := make([]types.ConceptScore, 0, len(byName))
	for _, acc := range byName {
		concepts = append(concepts, acc.score)
	}
	sort.SliceStable(concepts, func(i, j int) bool {
		if concepts[i].Confidence != concepts[j].Confidence {
			return concepts[i].Confidence > concepts[j].Confidence
		}
		return byName[concepts[i].Name].firstSeen < byName[concepts[j].Name].firstSeen
	})
	if len(concepts) > e.cfg.MaxConcepts {
		concepts = concepts[:e.cfg.MaxConcepts]
	}
	return concepts
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
