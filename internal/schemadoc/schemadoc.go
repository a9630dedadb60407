package schemadoc

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/schemactx/schemactx-mcp/pkg/types"
)

// Warning is a non-fatal finding from schema validation. Dangling
// references degrade gracefully at query time, so they warn instead of
// failing the load.
type Warning struct {
	Path    string
	Message string
}

func (w Warning) String() string {
	return w.Path + ": " + w.Message
}

// Load reads and parses a schema document from a YAML file
func Load(path string) (*types.SchemaDocument, []Warning, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read schema file: %w", err)
	}
	return Parse(data)
}

// Parse decodes a schema document from YAML and validates it. The
// document is returned only when structurally valid; warnings report
// recoverable issues like dangling maps_to references.
func Parse(data []byte) (*types.SchemaDocument, []Warning, error) {
	var doc types.SchemaDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, nil, fmt.Errorf("failed to parse schema YAML: %w", err)
	}

	warnings, err := Validate(&doc)
	if err != nil {
		return nil, warnings, err
	}
	return &doc, warnings, nil
}

// Validate checks structural requirements and cross-references. Errors
// make the document unusable; warnings do not.
func Validate(doc *types.SchemaDocument) ([]Warning, error) {
	if doc.Name == "" {
		return nil, fmt.Errorf("schema name is required")
	}
	if len(doc.Concepts) == 0 && len(doc.Indices) == 0 && len(doc.Endpoints) == 0 {
		return nil, fmt.Errorf("schema %q: %w", doc.Name, types.ErrEmptySchema)
	}

	concepts := make(map[string]bool, len(doc.Concepts))
	for i := range doc.Concepts {
		c := &doc.Concepts[i]
		if c.Name == "" {
			return nil, fmt.Errorf("concept %d: name is required", i)
		}
		lower := strings.ToLower(c.Name)
		if concepts[lower] {
			return nil, fmt.Errorf("duplicate concept %q", c.Name)
		}
		concepts[lower] = true
	}

	var warnings []Warning
	warnDangling := func(path, mapsTo string) {
		if mapsTo != "" && !concepts[strings.ToLower(mapsTo)] {
			warnings = append(warnings, Warning{
				Path:    path,
				Message: fmt.Sprintf("maps_to references unknown concept %q", mapsTo),
			})
		}
	}

	for i := range doc.Concepts {
		c := &doc.Concepts[i]
		for _, rel := range c.Relationships {
			if rel.Target == "" {
				return nil, fmt.Errorf("concept %q: relationship target is required", c.Name)
			}
			if !concepts[strings.ToLower(rel.Target)] {
				warnings = append(warnings, Warning{
					Path:    "concepts." + c.Name,
					Message: fmt.Sprintf("relationship targets unknown concept %q", rel.Target),
				})
			}
		}
		for _, target := range c.RelatedTo {
			if !concepts[strings.ToLower(target)] {
				warnings = append(warnings, Warning{
					Path:    "concepts." + c.Name,
					Message: fmt.Sprintf("related_to targets unknown concept %q", target),
				})
			}
		}
	}

	seenIndices := make(map[string]bool, len(doc.Indices))
	for i := range doc.Indices {
		idx := &doc.Indices[i]
		if idx.Name == "" {
			return nil, fmt.Errorf("index %d: name is required", i)
		}
		if seenIndices[idx.Name] {
			return nil, fmt.Errorf("duplicate index %q", idx.Name)
		}
		seenIndices[idx.Name] = true
		if err := validateFields(idx.Name, "", idx.Fields, warnDangling); err != nil {
			return nil, err
		}
	}

	seenEndpoints := make(map[string]bool, len(doc.Endpoints))
	for i := range doc.Endpoints {
		ep := &doc.Endpoints[i]
		if ep.Method == "" || ep.Path == "" {
			return nil, fmt.Errorf("endpoint %d: method and path are required", i)
		}
		key := ep.Key()
		if seenEndpoints[key] {
			return nil, fmt.Errorf("duplicate endpoint %q", key)
		}
		seenEndpoints[key] = true
		warnDangling("endpoints."+key, ep.MapsTo)
		for j := range ep.Params {
			p := &ep.Params[j]
			if p.Name == "" {
				return nil, fmt.Errorf("endpoint %q: param %d: name is required", key, j)
			}
			warnDangling("endpoints."+key+"."+p.QualifiedName(), p.MapsTo)
		}
		for j := range ep.ResponseFields {
			rf := &ep.ResponseFields[j]
			if rf.Path == "" {
				return nil, fmt.Errorf("endpoint %q: response field %d: path is required", key, j)
			}
			warnDangling("endpoints."+key+".response."+rf.Path, rf.MapsTo)
		}
	}

	for i := range doc.Examples {
		if err := doc.Examples[i].Validate(); err != nil {
			return nil, fmt.Errorf("example %d: %w", i, err)
		}
	}

	return warnings, nil
}

func validateFields(indexName, parentPath string, fields []types.Field, warnDangling func(path, mapsTo string)) error {
	for i := range fields {
		f := &fields[i]
		if f.Name == "" {
			return fmt.Errorf("index %q: field %q has a nameless child", indexName, parentPath)
		}
		path := f.Name
		if parentPath != "" {
			path = parentPath + "." + f.Name
		}
		warnDangling(indexName+"."+path, f.MapsTo)
		if err := validateFields(indexName, path, f.NestedFields, warnDangling); err != nil {
			return err
		}
	}
	return nil
}
