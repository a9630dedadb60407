package valueindex

import (
	"regexp"
	"sort"
	"strings"

	"github.com/schemactx/schemactx-mcp/pkg/types"
)

// MatchSource records whether a value match came from a concept-level
// or field-level value_synonyms declaration.
type MatchSource string

const (
	SourceConcept MatchSource = "concept"
	SourceField   MatchSource = "field"
)

// ValueMatch is one resolution of a literal word to a canonical value
type ValueMatch struct {
	OwningEntity   string
	CanonicalValue string
	IsExactMatch   bool // query text equals the canonical value
	FieldPath      string
	Source         MatchSource
}

// PronounMatch is a pronoun found in question text and the concept it
// implicitly denotes.
type PronounMatch struct {
	Pronoun string
	Concept string
}

// Index maps literal words to canonical schema values and pronouns to
// concepts. Built once from a schema document; lookups are O(1) and
// safe for concurrent use.
type Index struct {
	values   map[string][]ValueMatch
	pronouns map[string]string // lowercase pronoun -> concept name
	patterns []pronounPattern
}

type pronounPattern struct {
	pronoun string
	concept string
	re      *regexp.Regexp
}

// Build constructs the index from concept-level and field/param-level
// value synonyms plus concept pronoun references. A nil document
// yields an empty, queryable index.
func Build(doc *types.SchemaDocument) *Index {
	ix := &Index{
		values:   make(map[string][]ValueMatch),
		pronouns: make(map[string]string),
	}
	if doc == nil {
		return ix
	}

	for i := range doc.Concepts {
		c := &doc.Concepts[i]
		for _, canonical := range sortedKeys(c.ValueSynonyms) {
			ix.addValue(c.Name, canonical, c.ValueSynonyms[canonical], "", SourceConcept)
		}
		for _, pronoun := range c.RelatedPronouns {
			ix.addPronoun(pronoun, c.Name)
		}
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
			for _, canonical := range sortedKeys(p.ValueSynonyms) {
				ix.addValue(p.QualifiedName(), canonical, p.ValueSynonyms[canonical], p.QualifiedName(), SourceField)
			}
		}
	}

	return ix
}

func (ix *Index) addFieldTree(parentPath string, f *types.Field) {
	path := f.Name
	if parentPath != "" {
		path = parentPath + "." + f.Name
	}
	for _, canonical := range sortedKeys(f.ValueSynonyms) {
		ix.addValue(path, canonical, f.ValueSynonyms[canonical], path, SourceField)
	}
	for i := range f.NestedFields {
		ix.addFieldTree(path, &f.NestedFields[i])
	}
}

func (ix *Index) addValue(owner, canonical string, synonyms []string, fieldPath string, source MatchSource) {
	exact := ValueMatch{
		OwningEntity:   owner,
		CanonicalValue: canonical,
		IsExactMatch:   true,
		FieldPath:      fieldPath,
		Source:         source,
	}
	key := strings.ToLower(canonical)
	ix.values[key] = append(ix.values[key], exact)

	for _, syn := range synonyms {
		match := exact
		match.IsExactMatch = false
		synKey := strings.ToLower(syn)
		ix.values[synKey] = append(ix.values[synKey], match)
	}
}

func (ix *Index) addPronoun(pronoun, concept string) {
	lower := strings.ToLower(pronoun)
	if _, taken := ix.pronouns[lower]; taken {
		return
	}
	ix.pronouns[lower] = concept
	// Whole-word occurrences only: "my" must not match in "mystery".
	re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(lower) + `\b`)
	ix.patterns = append(ix.patterns, pronounPattern{pronoun: lower, concept: concept, re: re})
}

// LookupValue returns every value resolution for a literal word,
// case-insensitive. Unknown words return nil.
func (ix *Index) LookupValue(word string) []ValueMatch {
	return ix.values[strings.ToLower(word)]
}

// LookupPronoun returns the concept a pronoun denotes
func (ix *Index) LookupPronoun(pronoun string) (string, bool) {
	concept, ok := ix.pronouns[strings.ToLower(pronoun)]
	return concept, ok
}

// FindPronounsInText scans raw question text for whole-word pronoun
// occurrences. Each configured pronoun is reported at most once, in
// build order.
func (ix *Index) FindPronounsInText(text string) []PronounMatch {
	if text == "" {
		return nil
	}
	var matches []PronounMatch
	for _, p := range ix.patterns {
		if p.re.MatchString(text) {
			matches = append(matches, PronounMatch{Pronoun: p.pronoun, Concept: p.concept})
		}
	}
	return matches
}

// Size returns the number of distinct value keys
func (ix *Index) Size() int {
	return len(ix.values)
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
