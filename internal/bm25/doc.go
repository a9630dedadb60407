// Package bm25 implements a from-scratch BM25 ranking index over the
// field and parameter population of a schema document.
//
// Each field becomes a synthetic document built from its dot-path,
// description, aliases, and mapped concept name, with integer
// repetition approximating section weights. Corpus statistics (avgdl,
// document frequency, idf) are precomputed at build time; Search is a
// pure read and safe for concurrent use.
//
// The index is intentionally independent of the schema graph: it keys
// documents by field path alone so the two structures can be rebuilt
// and swapped together without shared state.
package bm25
