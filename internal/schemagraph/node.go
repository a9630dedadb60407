package schemagraph

import (
	"strings"

	"github.com/schemactx/schemactx-mcp/pkg/types"
)

// NodeKind identifies the variant of a graph node
type NodeKind string

const (
	KindIndex         NodeKind = "index"
	KindField         NodeKind = "field"
	KindConcept       NodeKind = "concept"
	KindAlias         NodeKind = "alias"
	KindValue         NodeKind = "value"
	KindExample       NodeKind = "example"
	KindEndpoint      NodeKind = "endpoint"
	KindParam         NodeKind = "param"
	KindResponseField NodeKind = "response_field"
)

// NodeID is the stable string identity of a node, always composed by
// one of the constructor functions below, never by ad-hoc
// concatenation at call sites.
type NodeID string

func ConceptNodeID(name string) NodeID {
	return NodeID("concept:" + strings.ToLower(name))
}

func IndexNodeID(name string) NodeID {
	return NodeID("index:" + name)
}

func FieldNodeID(index, path string) NodeID {
	return NodeID("field:" + index + ":" + path)
}

func AliasNodeID(alias string, target NodeID) NodeID {
	return NodeID("alias:" + strings.ToLower(alias) + ":" + string(target))
}

func ValueNodeID(owner, value string) NodeID {
	return NodeID("value:" + owner + ":" + strings.ToLower(value))
}

func ExampleNodeID(id string) NodeID {
	return NodeID("example:" + id)
}

func EndpointNodeID(key string) NodeID {
	return NodeID("endpoint:" + key)
}

func ParamNodeID(endpointKey, qualified string) NodeID {
	return NodeID("param:" + endpointKey + ":" + qualified)
}

func ResponseFieldNodeID(endpointKey, path string) NodeID {
	return NodeID("response:" + endpointKey + ":" + path)
}

// Node is the common interface over all graph node variants.
// Traversal sites type-switch on the concrete type; adding a new
// variant makes every switch without a default arm fail review, which
// is the point.
type Node interface {
	ID() NodeID
	Kind() NodeKind
	Label() string
}

// ConceptNode is a semantic anchor that fields and parameters map to
type ConceptNode struct {
	Name        string
	Description string
	Spec        *types.Concept
}

func (n *ConceptNode) ID() NodeID     { return ConceptNodeID(n.Name) }
func (n *ConceptNode) Kind() NodeKind { return KindConcept }
func (n *ConceptNode) Label() string  { return n.Name }

// IndexNode is a searchable index or table
type IndexNode struct {
	Name        string
	Description string
	Spec        *types.SchemaIndex
}

func (n *IndexNode) ID() NodeID     { return IndexNodeID(n.Name) }
func (n *IndexNode) Kind() NodeKind { return KindIndex }
func (n *IndexNode) Label() string  { return n.Name }

// FieldNode is a leaf field addressed by its dot path within an index.
// REST parameters are inserted as ParamNode, not FieldNode, but share
// the same search population through their qualified path.
type FieldNode struct {
	Index        string
	Path         string
	Name         string
	Type         string
	Description  string
	MapsTo       string
	PII          bool
	Aggregatable bool
	Spec         *types.Field
}

func (n *FieldNode) ID() NodeID     { return FieldNodeID(n.Index, n.Path) }
func (n *FieldNode) Kind() NodeKind { return KindField }
func (n *FieldNode) Label() string  { return n.Path }

// AliasNode is an alternate name resolving to a concept, field, or value
type AliasNode struct {
	Alias  string
	Target NodeID
}

func (n *AliasNode) ID() NodeID     { return AliasNodeID(n.Alias, n.Target) }
func (n *AliasNode) Kind() NodeKind { return KindAlias }
func (n *AliasNode) Label() string  { return n.Alias }

// ValueNode is a canonical enumerated value owned by a concept or field
type ValueNode struct {
	Owner     string // concept name or field path
	Canonical string
	FieldPath string // set when owned by a field
}

func (n *ValueNode) ID() NodeID     { return ValueNodeID(n.Owner, n.Canonical) }
func (n *ValueNode) Kind() NodeKind { return KindValue }
func (n *ValueNode) Label() string  { return n.Canonical }

// ExampleNode is a worked question/query pair
type ExampleNode struct {
	ExampleID string
	Spec      *types.Example
}

func (n *ExampleNode) ID() NodeID     { return ExampleNodeID(n.ExampleID) }
func (n *ExampleNode) Kind() NodeKind { return KindExample }
func (n *ExampleNode) Label() string  { return n.ExampleID }

// EndpointNode is a REST operation
type EndpointNode struct {
	Key         string
	Method      string
	Path        string
	Summary     string
	Description string
	MapsTo      string
	Spec        *types.Endpoint
}

func (n *EndpointNode) ID() NodeID     { return EndpointNodeID(n.Key) }
func (n *EndpointNode) Kind() NodeKind { return KindEndpoint }
func (n *EndpointNode) Label() string  { return n.Key }

// ParamNode is a REST parameter, field-equivalent with qualified name
// "{location}.{name}".
type ParamNode struct {
	EndpointKey string
	Qualified   string
	Name        string
	Location    string
	Type        string
	Description string
	MapsTo      string
	Spec        *types.Param
}

func (n *ParamNode) ID() NodeID     { return ParamNodeID(n.EndpointKey, n.Qualified) }
func (n *ParamNode) Kind() NodeKind { return KindParam }
func (n *ParamNode) Label() string  { return n.Qualified }

// ResponseFieldNode is an element of an endpoint's output schema
type ResponseFieldNode struct {
	EndpointKey string
	Path        string
	Type        string
	Description string
	MapsTo      string
}

func (n *ResponseFieldNode) ID() NodeID     { return ResponseFieldNodeID(n.EndpointKey, n.Path) }
func (n *ResponseFieldNode) Kind() NodeKind { return KindResponseField }
func (n *ResponseFieldNode) Label() string  { return n.Path }
