// Package valueindex resolves literal words found in a question to the
// canonical schema values or concepts they denote.
//
// Two maps are built from a schema document: value synonyms (both
// concept-level and field/parameter-level) and pronoun references
// ("my", "mine" -> the concept tied to the requesting user). Value
// lookups are case-insensitive and O(1); pronoun scanning matches
// whole words only.
package valueindex
