// Package vectorstore provides the optional embedding-based fallback
// for schema retrieval. It embeds one synthetic document per schema
// field and parameter, and ranks them against question keywords by
// cosine similarity.
//
// Three providers exist: Jina AI and OpenAI over their (wire
// compatible) HTTP embedding APIs with exponential-backoff retry, and
// a deterministic local provider for offline operation and tests.
// Embeddings are cached in an LRU keyed by content hash, so rebuilding
// after a schema tweak re-embeds only what changed.
//
// The store is a supporting signal, not a primary strategy: the
// retrieval engine consults it only when its structural and lexical
// strategies return thin coverage, and treats every failure here as
// "nothing found".
package vectorstore
