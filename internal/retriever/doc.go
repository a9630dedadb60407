// Package retriever turns natural-language questions into ranked sets
// of schema fields, concepts, REST endpoints, and worked examples.
//
// Four strategies feed a weighted score fusion:
//
//   - concept: keyword to concept resolution (exact, alias, plural
//     fold, fuzzy) followed by graph expansion
//   - value: literal value and synonym lookup ("waiting" resolving to
//     status=pending)
//   - pronoun: possessive pronoun to entity mapping ("my", "mine")
//   - bm25: lexical ranking over field documents
//
// A field's fused score is the sum over strategies of the strategy
// weight times the field's best per-strategy confidence. CONCEPT,
// FIELD, and HYBRID modes run reduced strategy sets for callers that
// want cheaper or more predictable retrieval; HYBRID adds field-path
// and BM25 search only when coverage is thin.
//
// The engine is safe for concurrent use. Load builds fresh indices and
// swaps them in atomically; Retrieve reads a consistent snapshot and
// never blocks on a concurrent Load.
package retriever
