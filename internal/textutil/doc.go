// Package textutil provides the shared text-normalization routine used
// by the BM25 index and question keyword extraction.
//
// Tokenization splits camelCase boundaries and non-alphanumeric runs,
// lowercases, and drops short tokens:
//
//	textutil.Tokenize("orderStatus.createdAt", 2)
//	// -> ["order", "status", "created", "at"]
//
// Keyword extraction additionally removes stopwords and deduplicates:
//
//	textutil.ExtractKeywords("show me all pending orders", 3)
//	// -> ["pending", "orders"]
//
// Both functions are pure; identical input always yields identical
// output, which keeps every downstream ranking deterministic.
package textutil
