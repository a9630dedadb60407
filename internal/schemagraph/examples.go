package schemagraph

import (
	"fmt"
	"strings"

	"github.com/schemactx/schemactx-mcp/internal/textutil"
	"github.com/schemactx/schemactx-mcp/pkg/types"
)

// AddExample inserts a worked example and updates every derived
// example index. AddExample and RemoveExample are exact inverses and
// follow single-writer discipline: concurrent callers must serialize.
func (g *Graph) AddExample(ex *types.Example) error {
	if err := ex.Validate(); err != nil {
		return fmt.Errorf("invalid example: %w", err)
	}

	g.exampleMu.Lock()
	defer g.exampleMu.Unlock()

	node := &ExampleNode{ExampleID: ex.ID, Spec: ex}
	if !g.addNode(node) {
		return types.ErrDuplicateExample
	}
	exampleID := node.ID()

	for _, concept := range ex.Concepts {
		canonical := g.resolveConcept(concept)
		if canonical == "" {
			continue
		}
		if g.addEdge(Edge{From: exampleID, To: ConceptNodeID(canonical), Kind: EdgeDemonstrates}) {
			g.conceptToExamples[canonical] = append(g.conceptToExamples[canonical], ex.ID)
		}
	}

	for _, path := range ex.Fields {
		index, ok := g.fieldIndexName[path]
		if !ok {
			continue
		}
		target := FieldNodeID(index, path)
		if _, isParam := g.nodes[target]; !isParam {
			target = ParamNodeID(index, path)
		}
		if g.addEdge(Edge{From: exampleID, To: target, Kind: EdgeUsesField}) {
			g.fieldToExamples[path] = append(g.fieldToExamples[path], ex.ID)
		}
	}

	for _, fv := range ex.Values {
		field, value, ok := strings.Cut(fv, ":")
		if !ok {
			continue
		}
		if g.addEdge(Edge{From: exampleID, To: ValueNodeID(field, value), Kind: EdgeUsesValue}) {
			g.valueToExamples[fv] = append(g.valueToExamples[fv], ex.ID)
		}
	}

	for _, keyword := range exampleKeywords(ex) {
		g.keywordToExamples[keyword] = append(g.keywordToExamples[keyword], ex.ID)
	}

	return nil
}

// RemoveExample deletes an example node, its edges, and every derived
// index entry added for it, restoring the pre-add state.
func (g *Graph) RemoveExample(id string) error {
	g.exampleMu.Lock()
	defer g.exampleMu.Unlock()

	exampleID := ExampleNodeID(id)
	node, ok := g.nodes[exampleID]
	if !ok {
		return types.ErrExampleNotFound
	}
	exNode, ok := node.(*ExampleNode)
	if !ok {
		return types.ErrExampleNotFound
	}
	ex := exNode.Spec

	// Drop outgoing edges and the mirrored incoming entries.
	for _, e := range g.out[exampleID] {
		g.in[e.To] = removeEdges(g.in[e.To], exampleID)
	}
	delete(g.out, exampleID)
	delete(g.nodes, exampleID)

	for _, concept := range ex.Concepts {
		if canonical := g.resolveConcept(concept); canonical != "" {
			g.conceptToExamples[canonical] = removeString(g.conceptToExamples[canonical], id)
			if len(g.conceptToExamples[canonical]) == 0 {
				delete(g.conceptToExamples, canonical)
			}
		}
	}
	for _, path := range ex.Fields {
		g.fieldToExamples[path] = removeString(g.fieldToExamples[path], id)
		if len(g.fieldToExamples[path]) == 0 {
			delete(g.fieldToExamples, path)
		}
	}
	for _, fv := range ex.Values {
		g.valueToExamples[fv] = removeString(g.valueToExamples[fv], id)
		if len(g.valueToExamples[fv]) == 0 {
			delete(g.valueToExamples, fv)
		}
	}
	for _, keyword := range exampleKeywords(ex) {
		g.keywordToExamples[keyword] = removeString(g.keywordToExamples[keyword], id)
		if len(g.keywordToExamples[keyword]) == 0 {
			delete(g.keywordToExamples, keyword)
		}
	}

	return nil
}

// ExamplesForConcept returns example ids demonstrating a concept
func (g *Graph) ExamplesForConcept(concept string) []string {
	g.exampleMu.RLock()
	defer g.exampleMu.RUnlock()
	return copyStrings(g.conceptToExamples[strings.ToLower(concept)])
}

// ExamplesForField returns example ids using a field path
func (g *Graph) ExamplesForField(path string) []string {
	g.exampleMu.RLock()
	defer g.exampleMu.RUnlock()
	return copyStrings(g.fieldToExamples[path])
}

// ExamplesForValue returns example ids using a "field:value" pair
func (g *Graph) ExamplesForValue(fieldValue string) []string {
	g.exampleMu.RLock()
	defer g.exampleMu.RUnlock()
	return copyStrings(g.valueToExamples[fieldValue])
}

// ExamplesForKeyword returns example ids whose question or variants
// contain the keyword.
func (g *Graph) ExamplesForKeyword(keyword string) []string {
	g.exampleMu.RLock()
	defer g.exampleMu.RUnlock()
	return copyStrings(g.keywordToExamples[strings.ToLower(keyword)])
}

// GetExample returns the example spec for an id
func (g *Graph) GetExample(id string) (*types.Example, bool) {
	g.exampleMu.RLock()
	defer g.exampleMu.RUnlock()
	if node, ok := g.nodes[ExampleNodeID(id)]; ok {
		if exNode, isExample := node.(*ExampleNode); isExample {
			return exNode.Spec, true
		}
	}
	return nil, false
}

// exampleKeywords derives the deduplicated keyword set of an example
// from its question and variant phrasings.
func exampleKeywords(ex *types.Example) []string {
	text := ex.Question
	for _, variant := range ex.Variants {
		text += " " + variant
	}
	return textutil.ExtractKeywords(text, textutil.DefaultKeywordMinLength)
}

func removeEdges(edges []Edge, from NodeID) []Edge {
	out := edges[:0]
	for _, e := range edges {
		if e.From != from {
			out = append(out, e)
		}
	}
	return out
}

func removeString(list []string, v string) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		if s != v {
			out = append(out, s)
		}
	}
	return out
}

func copyStrings(list []string) []string {
	if list == nil {
		return nil
	}
	out := make([]string, len(list))
	copy(out, list)
	return out
}
