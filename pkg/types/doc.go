// Package types defines the shared domain model for the schema
// retrieval engine: the typed schema document consumed at build time
// (concepts, indices, fields, endpoints, examples) and the
// RetrievalContext payload produced for the downstream query
// generator.
//
// Everything in this package is a plain data type with no behavior
// beyond validation, so that the engine packages (schemagraph, bm25,
// valueindex, retriever) can each walk the document independently
// without sharing mutable state.
package types
