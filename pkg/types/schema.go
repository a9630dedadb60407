package types

import "errors"

// ParamLocation identifies where a REST parameter is carried
type ParamLocation string

const (
	LocationQuery  ParamLocation = "query"
	LocationPath   ParamLocation = "path"
	LocationHeader ParamLocation = "header"
	LocationBody   ParamLocation = "body"
)

// SchemaDocument is the typed schema consumed by the retrieval engine.
// It is produced by the schemadoc loader (or any other collaborator that
// can build one) and treated as read-only once handed to the engine.
type SchemaDocument struct {
	Name        string        `yaml:"name"`
	Version     string        `yaml:"version"`
	Description string        `yaml:"description,omitempty"`
	Concepts    []Concept     `yaml:"concepts,omitempty"`
	Indices     []SchemaIndex `yaml:"indices,omitempty"`
	Endpoints   []Endpoint    `yaml:"endpoints,omitempty"`
	Examples    []Example     `yaml:"examples,omitempty"`
}

// Concept is a named business entity that fields and parameters map to
type Concept struct {
	Name            string              `yaml:"name"`
	Description     string              `yaml:"description,omitempty"`
	Aliases         []string            `yaml:"aliases,omitempty"`
	Synonyms        []string            `yaml:"synonyms,omitempty"`
	ValueSynonyms   map[string][]string `yaml:"value_synonyms,omitempty"`
	RelatedPronouns []string            `yaml:"related_pronouns,omitempty"`
	Relationships   []Relationship      `yaml:"relationships,omitempty"`

	// RelatedTo is the legacy untyped relationship list. Entries are
	// concept names; treated as kind "related".
	RelatedTo []string `yaml:"related_to,omitempty"`
}

// Relationship is a typed concept-to-concept relation
type Relationship struct {
	Target       string `yaml:"target"`
	Kind         string `yaml:"kind,omitempty"`
	LinkingField string `yaml:"linking_field,omitempty"`
}

// SchemaIndex is a searchable index or table containing fields
type SchemaIndex struct {
	Name        string  `yaml:"name"`
	Description string  `yaml:"description,omitempty"`
	Fields      []Field `yaml:"fields,omitempty"`
}

// Field is a leaf schema element addressed by a dot-notation path.
// Nested fields carry their parent-relative name; full paths are
// composed during graph construction.
type Field struct {
	Name          string              `yaml:"name"`
	Type          string              `yaml:"type,omitempty"`
	Description   string              `yaml:"description,omitempty"`
	MapsTo        string              `yaml:"maps_to,omitempty"`
	Aliases       []string            `yaml:"aliases,omitempty"`
	AllowedValues []string            `yaml:"allowed_values,omitempty"`
	ValueSynonyms map[string][]string `yaml:"value_synonyms,omitempty"`
	NestedFields  []Field             `yaml:"nested_fields,omitempty"`
	PII           bool                `yaml:"pii,omitempty"`
	Aggregatable  bool                `yaml:"aggregatable,omitempty"`
}

// Endpoint is a REST operation with parameters and response fields
type Endpoint struct {
	Method         string          `yaml:"method"`
	Path           string          `yaml:"path"`
	Summary        string          `yaml:"summary,omitempty"`
	Description    string          `yaml:"description,omitempty"`
	MapsTo         string          `yaml:"maps_to,omitempty"`
	Params         []Param         `yaml:"params,omitempty"`
	ResponseFields []ResponseField `yaml:"response_fields,omitempty"`
}

// Key returns the stable endpoint identifier "METHOD /path"
func (e *Endpoint) Key() string {
	return e.Method + " " + e.Path
}

// Param is a REST parameter, treated as a field-equivalent by the
// engine with the qualified name "{location}.{name}".
type Param struct {
	Name          string              `yaml:"name"`
	Location      ParamLocation       `yaml:"location"`
	Type          string              `yaml:"type,omitempty"`
	Description   string              `yaml:"description,omitempty"`
	MapsTo        string              `yaml:"maps_to,omitempty"`
	Aliases       []string            `yaml:"aliases,omitempty"`
	AllowedValues []string            `yaml:"allowed_values,omitempty"`
	ValueSynonyms map[string][]string `yaml:"value_synonyms,omitempty"`
	Required      bool                `yaml:"required,omitempty"`
}

// QualifiedName returns the field-equivalent path for a parameter
func (p *Param) QualifiedName() string {
	loc := p.Location
	if loc == "" {
		loc = LocationQuery
	}
	return string(loc) + "." + p.Name
}

// ResponseField is an element of an endpoint's output schema
type ResponseField struct {
	Path        string `yaml:"path"`
	Type        string `yaml:"type,omitempty"`
	Description string `yaml:"description,omitempty"`
	MapsTo      string `yaml:"maps_to,omitempty"`
}

// Example is a worked question/query pair linked to schema elements
type Example struct {
	ID       string   `yaml:"id"`
	Question string   `yaml:"question"`
	Query    string   `yaml:"query,omitempty"`
	Concepts []string `yaml:"concepts,omitempty"`
	Fields   []string `yaml:"fields,omitempty"`

	// Values are "field:value" pairs the example demonstrates
	Values   []string `yaml:"values,omitempty"`
	Variants []string `yaml:"variants,omitempty"`
}

// Validate performs structural validation of an example
func (ex *Example) Validate() error {
	if ex.ID == "" {
		return errors.New("example id is required")
	}
	if ex.Question == "" {
		return errors.New("example question is required")
	}
	return nil
}

// Validate checks the minimum structural requirements of a schema
// document. Semantic issues (dangling maps_to targets, duplicate
// values) are reported as warnings by the schemadoc loader instead.
func (d *SchemaDocument) Validate() error {
	if d.Name == "" {
		return errors.New("schema name is required")
	}
	seen := make(map[string]struct{}, len(d.Concepts))
	for i := range d.Concepts {
		c := &d.Concepts[i]
		if c.Name == "" {
			return errors.New("concept name is required")
		}
		if _, dup := seen[c.Name]; dup {
			return errors.New("duplicate concept name: " + c.Name)
		}
		seen[c.Name] = struct{}{}
	}
	for i := range d.Indices {
		if d.Indices[i].Name == "" {
			return errors.New("index name is required")
		}
	}
	for i := range d.Endpoints {
		ep := &d.Endpoints[i]
		if ep.Method == "" || ep.Path == "" {
			return errors.New("endpoint method and path are required")
		}
	}
	for i := range d.Examples {
		if err := d.Examples[i].Validate(); err != nil {
			return err
		}
	}
	return nil
}
