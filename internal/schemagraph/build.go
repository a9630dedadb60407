package schemagraph

import (
	"sort"
	"strings"

	"github.com/schemactx/schemactx-mcp/internal/textutil"
	"github.com/schemactx/schemactx-mcp/pkg/types"
)

// Build constructs a graph from a schema document. The returned graph
// is complete or the error describes why construction could not start;
// there is no observable half-built state. Dangling references inside
// the document (a maps_to naming an unknown concept) degrade to
// omitted edges rather than failing the build.
func Build(doc *types.SchemaDocument) (*Graph, error) {
	if doc == nil {
		return nil, types.ErrEmptySchema
	}

	g := New()

	// Concepts first: they are the semantic anchors every other pass
	// wires into.
	for i := range doc.Concepts {
		g.insertConcept(&doc.Concepts[i])
	}

	// Indices and their fields, recursively for nested fields.
	for i := range doc.Indices {
		g.insertIndex(&doc.Indices[i])
	}

	// REST endpoints with parameters as field-equivalents.
	for i := range doc.Endpoints {
		g.insertEndpoint(&doc.Endpoints[i])
	}

	// Concept-to-concept relationships need every concept present, so
	// they come after all inserts.
	for i := range doc.Concepts {
		g.insertRelationships(&doc.Concepts[i])
	}

	// Worked examples last: they reference concepts, fields, values.
	for i := range doc.Examples {
		// Build-time examples that fail validation are skipped, not
		// fatal; AddExample reports the error for incremental use.
		_ = g.AddExample(&doc.Examples[i])
	}

	return g, nil
}

// LoadFromSchema rebuilds this graph from the document. All derived
// indices are cleared atomically: the new state is built on the side
// and swapped in at the end, so a failed load leaves the receiver
// untouched.
func (g *Graph) LoadFromSchema(doc *types.SchemaDocument) error {
	fresh, err := Build(doc)
	if err != nil {
		return err
	}
	g.nodes = fresh.nodes
	g.out = fresh.out
	g.in = fresh.in
	g.conceptToFields = fresh.conceptToFields
	g.fieldToConcepts = fresh.fieldToConcepts
	g.aliasToEntity = fresh.aliasToEntity
	g.indexToFields = fresh.indexToFields
	g.valueLookup = fresh.valueLookup
	g.conceptToValues = fresh.conceptToValues
	g.pathSegments = fresh.pathSegments
	g.responseSegments = fresh.responseSegments
	g.conceptRelations = fresh.conceptRelations
	g.fieldIndexName = fresh.fieldIndexName
	g.conceptToExamples = fresh.conceptToExamples
	g.fieldToExamples = fresh.fieldToExamples
	g.valueToExamples = fresh.valueToExamples
	g.keywordToExamples = fresh.keywordToExamples
	return nil
}

func (g *Graph) insertConcept(c *types.Concept) {
	node := &ConceptNode{Name: c.Name, Description: c.Description, Spec: c}
	if !g.addNode(node) {
		return
	}
	conceptID := node.ID()
	lower := strings.ToLower(c.Name)

	// Aliases and synonyms both resolve to the concept name.
	for _, alias := range append(append([]string{}, c.Aliases...), c.Synonyms...) {
		aliasNode := &AliasNode{Alias: alias, Target: conceptID}
		g.addNode(aliasNode)
		g.addEdge(Edge{From: aliasNode.ID(), To: conceptID, Kind: EdgeAliasOf})
		g.aliasToEntity[strings.ToLower(alias)] = lower
	}

	// Concept-level values with their synonym aliases. Keys are
	// iterated sorted so first-wins collisions stay deterministic.
	for _, canonical := range sortedKeys(c.ValueSynonyms) {
		g.insertValue(lower, conceptID, canonical, c.ValueSynonyms[canonical], "")
	}
}

// insertValue creates a Value node owned by a concept or field plus a
// SYNONYM_OF alias node per synonym, and keeps the value lookup index
// in sync. fieldPath is empty for concept-owned values.
func (g *Graph) insertValue(owner string, ownerID NodeID, canonical string, synonyms []string, fieldPath string) {
	valueNode := &ValueNode{Owner: owner, Canonical: canonical, FieldPath: fieldPath}
	if g.addNode(valueNode) {
		g.conceptToValues[owner] = append(g.conceptToValues[owner], canonical)
	}
	g.addEdge(Edge{From: ownerID, To: valueNode.ID(), Kind: EdgeHasValue})

	ref := ValueRef{Owner: owner, Canonical: canonical}
	lowerCanonical := strings.ToLower(canonical)
	if _, taken := g.valueLookup[lowerCanonical]; !taken {
		g.valueLookup[lowerCanonical] = ref
	}
	for _, syn := range synonyms {
		synNode := &AliasNode{Alias: syn, Target: valueNode.ID()}
		g.addNode(synNode)
		g.addEdge(Edge{From: synNode.ID(), To: valueNode.ID(), Kind: EdgeSynonymOf})
		lowerSyn := strings.ToLower(syn)
		if _, taken := g.valueLookup[lowerSyn]; !taken {
			g.valueLookup[lowerSyn] = ref
		}
	}
}

func (g *Graph) insertIndex(idx *types.SchemaIndex) {
	node := &IndexNode{Name: idx.Name, Description: idx.Description, Spec: idx}
	if !g.addNode(node) {
		return
	}
	for i := range idx.Fields {
		g.insertField(idx.Name, node.ID(), "", &idx.Fields[i])
	}
}

// insertField wires a field to its index, parent, concept, aliases and
// values, then recurses into nested fields.
func (g *Graph) insertField(indexName string, indexID NodeID, parentPath string, f *types.Field) {
	path := f.Name
	if parentPath != "" {
		path = parentPath + "." + f.Name
	}

	node := &FieldNode{
		Index:        indexName,
		Path:         path,
		Name:         f.Name,
		Type:         f.Type,
		Description:  f.Description,
		MapsTo:       f.MapsTo,
		PII:          f.PII,
		Aggregatable: f.Aggregatable,
		Spec:         f,
	}
	if !g.addNode(node) {
		return
	}
	fieldID := node.ID()

	g.addEdge(Edge{From: indexID, To: fieldID, Kind: EdgeHasField})
	g.indexToFields[indexName] = append(g.indexToFields[indexName], path)
	g.fieldIndexName[path] = indexName

	if parentPath != "" {
		g.addEdge(Edge{From: fieldID, To: FieldNodeID(indexName, parentPath), Kind: EdgeNestedIn})
	}

	g.mapToConcept(fieldID, path, f.MapsTo)

	for _, alias := range f.Aliases {
		aliasNode := &AliasNode{Alias: alias, Target: fieldID}
		g.addNode(aliasNode)
		g.addEdge(Edge{From: aliasNode.ID(), To: fieldID, Kind: EdgeAliasOf})
		g.aliasToEntity[strings.ToLower(alias)] = path
	}

	for _, allowed := range f.AllowedValues {
		g.insertValue(path, fieldID, allowed, nil, path)
	}
	for _, canonical := range sortedKeys(f.ValueSynonyms) {
		g.insertValue(path, fieldID, canonical, f.ValueSynonyms[canonical], path)
	}

	for i := range f.NestedFields {
		g.insertField(indexName, indexID, path, &f.NestedFields[i])
	}
}

// mapToConcept records a MAPS_TO edge and keeps concept_to_fields and
// field_to_concepts as exact inverses. A maps_to naming an unknown
// concept is dropped.
func (g *Graph) mapToConcept(fromID NodeID, path, mapsTo string) {
	if mapsTo == "" {
		return
	}
	canonical := g.resolveConcept(mapsTo)
	if canonical == "" {
		return
	}
	if !g.addEdge(Edge{From: fromID, To: ConceptNodeID(canonical), Kind: EdgeMapsTo}) {
		return
	}
	g.conceptToFields[canonical] = append(g.conceptToFields[canonical], path)
	g.fieldToConcepts[path] = append(g.fieldToConcepts[path], canonical)
}

func (g *Graph) insertEndpoint(ep *types.Endpoint) {
	key := ep.Key()
	node := &EndpointNode{
		Key:         key,
		Method:      ep.Method,
		Path:        ep.Path,
		Summary:     ep.Summary,
		Description: ep.Description,
		MapsTo:      ep.MapsTo,
		Spec:        ep,
	}
	if !g.addNode(node) {
		return
	}
	endpointID := node.ID()

	if ep.MapsTo != "" {
		if canonical := g.resolveConcept(ep.MapsTo); canonical != "" {
			g.addEdge(Edge{From: endpointID, To: ConceptNodeID(canonical), Kind: EdgeEndpointMapsTo})
		}
	}

	// Path segments, camelCase/snake_case aware, for keyword search.
	for _, segment := range strings.Split(ep.Path, "/") {
		segment = strings.Trim(segment, "{}")
		for _, token := range textutil.Tokenize(segment, 2) {
			g.pathSegments[token] = appendUnique(g.pathSegments[token], key)
		}
	}

	for i := range ep.Params {
		g.insertParam(key, endpointID, &ep.Params[i])
	}

	for i := range ep.ResponseFields {
		g.insertResponseField(key, endpointID, &ep.ResponseFields[i])
	}
}

func (g *Graph) insertParam(endpointKey string, endpointID NodeID, p *types.Param) {
	qualified := p.QualifiedName()
	node := &ParamNode{
		EndpointKey: endpointKey,
		Qualified:   qualified,
		Name:        p.Name,
		Location:    string(p.Location),
		Type:        p.Type,
		Description: p.Description,
		MapsTo:      p.MapsTo,
		Spec:        p,
	}
	if !g.addNode(node) {
		return
	}
	paramID := node.ID()

	g.addEdge(Edge{From: endpointID, To: paramID, Kind: EdgeHasParam})
	if _, taken := g.fieldIndexName[qualified]; !taken {
		g.fieldIndexName[qualified] = endpointKey
	}

	g.mapToConcept(paramID, qualified, p.MapsTo)

	for _, alias := range p.Aliases {
		aliasNode := &AliasNode{Alias: alias, Target: paramID}
		g.addNode(aliasNode)
		g.addEdge(Edge{From: aliasNode.ID(), To: paramID, Kind: EdgeAliasOf})
		g.aliasToEntity[strings.ToLower(alias)] = qualified
	}

	for _, allowed := range p.AllowedValues {
		g.insertValue(qualified, paramID, allowed, nil, qualified)
	}
	for _, canonical := range sortedKeys(p.ValueSynonyms) {
		g.insertValue(qualified, paramID, canonical, p.ValueSynonyms[canonical], qualified)
	}
}

func (g *Graph) insertResponseField(endpointKey string, endpointID NodeID, rf *types.ResponseField) {
	node := &ResponseFieldNode{
		EndpointKey: endpointKey,
		Path:        rf.Path,
		Type:        rf.Type,
		Description: rf.Description,
		MapsTo:      rf.MapsTo,
	}
	if !g.addNode(node) {
		return
	}
	g.addEdge(Edge{From: endpointID, To: node.ID(), Kind: EdgeReturns})

	if rf.MapsTo != "" {
		if canonical := g.resolveConcept(rf.MapsTo); canonical != "" {
			g.addEdge(Edge{From: node.ID(), To: ConceptNodeID(canonical), Kind: EdgeResponseMapsTo})
		}
	}

	for _, token := range textutil.Tokenize(rf.Path, 2) {
		g.responseSegments[token] = appendUnique(g.responseSegments[token], endpointKey)
	}
}

// insertRelationships adds typed relationships plus legacy related_to
// entries as RELATES_TO edges, and mirrors them into the adjacency
// index used by breadth-first expansion.
func (g *Graph) insertRelationships(c *types.Concept) {
	source := strings.ToLower(c.Name)
	add := func(target, kind, linkingField string) {
		canonical := g.resolveConcept(target)
		if canonical == "" || canonical == source {
			return
		}
		if kind == "" {
			kind = "related"
		}
		ok := g.addEdge(Edge{
			From:         ConceptNodeID(source),
			To:           ConceptNodeID(canonical),
			Kind:         EdgeRelatesTo,
			Rel:          kind,
			LinkingField: linkingField,
		})
		if ok {
			g.conceptRelations[source] = append(g.conceptRelations[source], conceptRelation{
				target:       canonical,
				kind:         kind,
				linkingField: linkingField,
			})
		}
	}

	for _, rel := range c.Relationships {
		add(rel.Target, rel.Kind, rel.LinkingField)
	}
	for _, target := range c.RelatedTo {
		add(target, "related", "")
	}
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
