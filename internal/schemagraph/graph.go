package schemagraph

import (
	"sort"
	"strings"
	"sync"
)

// ValueRef identifies the canonical value a literal word resolves to
type ValueRef struct {
	Owner     string // concept name or field path
	Canonical string
}

// conceptRelation is one outgoing RELATES_TO link, kept in a compact
// form for breadth-first expansion.
type conceptRelation struct {
	target       string
	kind         string
	linkingField string
}

// GraphStats summarizes the loaded graph
type GraphStats struct {
	Nodes       int            `json:"nodes"`
	Edges       int            `json:"edges"`
	NodesByKind map[string]int `json:"nodes_by_kind"`
	Concepts    int            `json:"concepts"`
	Fields      int            `json:"fields"`
	Endpoints   int            `json:"endpoints"`
	Examples    int            `json:"examples"`
}

// Graph is the authoritative in-memory representation of schema
// structure and semantics. It is built once by Build and read-only
// afterwards, so concurrent queries need no locking. The example
// sub-index is the single exception: AddExample and RemoveExample are
// guarded by a writer lock and example reads take the read lock.
type Graph struct {
	nodes map[NodeID]Node
	out   map[NodeID][]Edge
	in    map[NodeID][]Edge

	// Derived indices, rebuilt on every load and exact inverses of the
	// edges they mirror.
	conceptToFields  map[string][]string
	fieldToConcepts  map[string][]string
	aliasToEntity    map[string]string
	indexToFields    map[string][]string
	valueLookup      map[string]ValueRef
	conceptToValues  map[string][]string
	pathSegments     map[string][]string // segment token -> endpoint keys
	responseSegments map[string][]string
	conceptRelations map[string][]conceptRelation
	fieldIndexName   map[string]string // field path -> owning index

	exampleMu         sync.RWMutex
	conceptToExamples map[string][]string
	fieldToExamples   map[string][]string
	valueToExamples   map[string][]string // "field:value" -> example ids
	keywordToExamples map[string][]string
}

// New returns an empty graph. Most callers use Build instead.
func New() *Graph {
	return &Graph{
		nodes:             make(map[NodeID]Node),
		out:               make(map[NodeID][]Edge),
		in:                make(map[NodeID][]Edge),
		conceptToFields:   make(map[string][]string),
		fieldToConcepts:   make(map[string][]string),
		aliasToEntity:     make(map[string]string),
		indexToFields:     make(map[string][]string),
		valueLookup:       make(map[string]ValueRef),
		conceptToValues:   make(map[string][]string),
		pathSegments:      make(map[string][]string),
		responseSegments:  make(map[string][]string),
		conceptRelations:  make(map[string][]conceptRelation),
		fieldIndexName:    make(map[string]string),
		conceptToExamples: make(map[string][]string),
		fieldToExamples:   make(map[string][]string),
		valueToExamples:   make(map[string][]string),
		keywordToExamples: make(map[string][]string),
	}
}

// addNode inserts a node. Node ids are immutable once inserted: a
// duplicate id keeps the existing node and reports false.
func (g *Graph) addNode(n Node) bool {
	id := n.ID()
	if _, exists := g.nodes[id]; exists {
		return false
	}
	g.nodes[id] = n
	return true
}

// addEdge inserts a directed edge. Both endpoints must already exist;
// an edge referencing a missing node is silently omitted, which is how
// dangling maps_to references degrade.
func (g *Graph) addEdge(e Edge) bool {
	if _, ok := g.nodes[e.From]; !ok {
		return false
	}
	if _, ok := g.nodes[e.To]; !ok {
		return false
	}
	g.out[e.From] = append(g.out[e.From], e)
	g.in[e.To] = append(g.in[e.To], e)
	return true
}

// Node returns the node with the given id
func (g *Graph) Node(id NodeID) (Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// OutEdges returns outgoing edges of the given kind
func (g *Graph) OutEdges(id NodeID, kind EdgeKind) []Edge {
	var out []Edge
	for _, e := range g.out[id] {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// ResolveValueSynonym resolves a literal word to the canonical value
// it denotes. O(1); the boolean is false for unknown words.
func (g *Graph) ResolveValueSynonym(value string) (ValueRef, bool) {
	ref, ok := g.valueLookup[strings.ToLower(value)]
	return ref, ok
}

// resolveConcept maps a name or alias to the canonical concept name.
// Returns "" when the name resolves to nothing.
func (g *Graph) resolveConcept(name string) string {
	lower := strings.ToLower(name)
	if _, ok := g.nodes[ConceptNodeID(lower)]; ok {
		if cn, isConcept := g.nodes[ConceptNodeID(lower)].(*ConceptNode); isConcept {
			return strings.ToLower(cn.Name)
		}
	}
	if canonical, ok := g.aliasToEntity[lower]; ok {
		if _, isConcept := g.nodes[ConceptNodeID(canonical)].(*ConceptNode); isConcept {
			return strings.ToLower(canonical)
		}
	}
	return ""
}

// GetFieldSpec returns the field or parameter node for a path
func (g *Graph) GetFieldSpec(path string) (Node, bool) {
	if index, ok := g.fieldIndexName[path]; ok {
		if n, found := g.nodes[FieldNodeID(index, path)]; found {
			return n, true
		}
		if n, found := g.nodes[NodeID("param:" + index + ":" + path)]; found {
			return n, true
		}
	}
	return nil, false
}

// GetAllConcepts returns all concept names, sorted
func (g *Graph) GetAllConcepts() []string {
	var names []string
	for _, n := range g.nodes {
		if cn, ok := n.(*ConceptNode); ok {
			names = append(names, cn.Name)
		}
	}
	sort.Strings(names)
	return names
}

// GetAllFields returns all field paths, optionally scoped to one
// index. Paths are sorted for deterministic iteration.
func (g *Graph) GetAllFields(indexName string) []string {
	var paths []string
	if indexName != "" {
		paths = append(paths, g.indexToFields[indexName]...)
	} else {
		for path := range g.fieldIndexName {
			paths = append(paths, path)
		}
	}
	sort.Strings(paths)
	return paths
}

// GetAllEndpoints returns all endpoint nodes, sorted by key
func (g *Graph) GetAllEndpoints() []*EndpointNode {
	var eps []*EndpointNode
	for _, n := range g.nodes {
		if ep, ok := n.(*EndpointNode); ok {
			eps = append(eps, ep)
		}
	}
	sort.Slice(eps, func(i, j int) bool { return eps[i].Key < eps[j].Key })
	return eps
}

// EndpointsForPathSegment returns endpoint keys whose URL path
// contains the given segment token.
func (g *Graph) EndpointsForPathSegment(token string) []string {
	return g.pathSegments[strings.ToLower(token)]
}

// EndpointsForResponseSegment returns endpoint keys whose response
// schema contains the given segment token.
func (g *Graph) EndpointsForResponseSegment(token string) []string {
	return g.responseSegments[strings.ToLower(token)]
}

// FieldConcepts returns the concepts a field maps to
func (g *Graph) FieldConcepts(path string) []string {
	return g.fieldToConcepts[path]
}

// ConceptFields returns the fields directly mapped to a concept name
// (canonical, lowercase).
func (g *Graph) ConceptFields(concept string) []string {
	return g.conceptToFields[strings.ToLower(concept)]
}

// ConceptValues returns the canonical values owned by a concept
func (g *Graph) ConceptValues(concept string) []string {
	return g.conceptToValues[strings.ToLower(concept)]
}

// IndexForField returns the owning index of a field path
func (g *Graph) IndexForField(path string) (string, bool) {
	idx, ok := g.fieldIndexName[path]
	return idx, ok
}

// Stats returns node and edge counts by kind
func (g *Graph) Stats() GraphStats {
	stats := GraphStats{
		Nodes:       len(g.nodes),
		NodesByKind: make(map[string]int),
	}
	for _, edges := range g.out {
		stats.Edges += len(edges)
	}
	for _, n := range g.nodes {
		stats.NodesByKind[string(n.Kind())]++
		switch n.Kind() {
		case KindConcept:
			stats.Concepts++
		case KindField, KindParam:
			stats.Fields++
		case KindEndpoint:
			stats.Endpoints++
		case KindExample:
			stats.Examples++
		}
	}
	return stats
}
