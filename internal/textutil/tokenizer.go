package textutil

import (
	"strings"
	"unicode"
)

const (
	// DefaultMinTokenLength is the minimum token length for index documents
	DefaultMinTokenLength = 2
	// DefaultKeywordMinLength is the minimum length for question keywords
	DefaultKeywordMinLength = 3
)

// stopwords are dropped during keyword extraction. The list is small
// on purpose: schema vocabularies are narrow and over-aggressive
// filtering loses real signal ("count", "status" must survive).
var stopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "of": {},
	"in": {}, "on": {}, "at": {}, "to": {}, "for": {}, "with": {},
	"by": {}, "from": {}, "is": {}, "are": {}, "was": {}, "were": {},
	"be": {}, "been": {}, "do": {}, "does": {}, "did": {}, "have": {},
	"has": {}, "had": {}, "what": {}, "which": {}, "who": {}, "whom": {},
	"this": {}, "that": {}, "these": {}, "those": {}, "it": {}, "its": {},
	"all": {}, "any": {}, "can": {}, "will": {}, "me": {}, "show": {},
	"list": {}, "get": {}, "give": {}, "find": {}, "please": {},
	"how": {}, "many": {}, "much": {}, "per": {}, "about": {},
}

// SplitCamel inserts spaces at camelCase boundaries: "fooBar" ->
// "foo Bar", "HTTPStatus" -> "HTTP Status".
func SplitCamel(s string) string {
	if s == "" {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 4)
	runes := []rune(s)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prev := runes[i-1]
			nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				b.WriteByte(' ')
			}
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Tokenize splits text into lowercase tokens. Camel-case boundaries
// and any non-alphanumeric run are split points; tokens shorter than
// minLength are dropped. Pure and deterministic.
func Tokenize(text string, minLength int) []string {
	if minLength <= 0 {
		minLength = DefaultMinTokenLength
	}
	text = SplitCamel(text)

	tokens := make([]string, 0, 8)
	var cur strings.Builder
	flush := func() {
		if cur.Len() >= minLength {
			tokens = append(tokens, strings.ToLower(cur.String()))
		}
		cur.Reset()
	}
	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			cur.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()
	return tokens
}

// ExtractKeywords tokenizes text, removes stopwords, and deduplicates
// while preserving first-seen order so downstream tie-breaking stays
// deterministic.
func ExtractKeywords(text string, minLength int) []string {
	if minLength <= 0 {
		minLength = DefaultKeywordMinLength
	}
	tokens := Tokenize(text, minLength)
	seen := make(map[string]struct{}, len(tokens))
	keywords := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if _, stop := stopwords[tok]; stop {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		keywords = append(keywords, tok)
	}
	return keywords
}

// IsStopword reports whether the lowercase token is in the stopword set
func IsStopword(token string) bool {
	_, ok := stopwords[token]
	return ok
}
