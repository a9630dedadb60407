// Package schemagraph builds and queries a typed directed graph over
// schema metadata: indices, fields, concepts, aliases, values, REST
// endpoints, parameters, response fields, and worked examples.
//
// # Construction
//
//	g, err := schemagraph.Build(doc)
//	if err != nil {
//	    return err
//	}
//
// Build inserts concepts first (they anchor every maps_to edge), then
// indices and fields, then endpoints, then concept relationships, then
// examples. Dangling references degrade to omitted edges; the build
// never fails on a bad maps_to.
//
// # Derived indices
//
// Alongside nodes and edges the graph maintains lookup maps rebuilt on
// every load: concept->fields, field->concepts (exact inverses of the
// MAPS_TO edges), alias->entity, value->canonical value, endpoint path
// and response segment indices, and the four example indices.
//
// # Concurrency
//
// A built graph is immutable and safe for concurrent reads without
// locking. The example sub-index is the one mutable part; AddExample
// and RemoveExample require single-writer discipline and the example
// accessors take a read lock.
package schemagraph
