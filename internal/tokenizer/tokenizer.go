// Package tokenizer splits identifier-like strings into lowercase
// sub-tokens for search indexing and query matching.
package tokenizer

import (
	"strings"
	"unicode"
)

// Tokenize splits an identifier into an ordered, deduplicated sequence of
// lowercase sub-tokens followed by the lowercased original token.
//
// Splitting happens on explicit separators (underscore, hyphen) and on
// camel-case boundaries, including uppercase runs: "HTTPServer" yields
// "http" and "server". Each token additionally contributes a singular
// form when it carries a common plural suffix, so "iterators" matches
// "iterator". No further stemming is applied.
func Tokenize(identifier string) []string {
	trimmed := strings.TrimSpace(identifier)
	if trimmed == "" {
		return nil
	}

	var out []string
	seen := make(map[string]struct{})
	emit := func(tok string) {
		tok = strings.ToLower(tok)
		if tok == "" {
			return
		}
		if _, ok := seen[tok]; ok {
			return
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}

	for _, word := range splitSeparators(trimmed) {
		for _, sub := range splitCamel(word) {
			emit(sub)
			if singular, ok := singularize(sub); ok {
				emit(singular)
			}
		}
	}
	emit(trimmed)
	return out
}

// TokenizeText tokenizes free-form text such as a documentation body or
// a search query: words are split on any non-identifier rune and each is
// tokenized as an identifier. Unlike Tokenize, repeats across words are
// preserved so term frequencies stay meaningful.
func TokenizeText(text string) []string {
	words := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '-'
	})
	var out []string
	for _, word := range words {
		out = append(out, Tokenize(word)...)
	}
	return out
}

func splitSeparators(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == '_' || r == '-'
	})
}

// splitCamel splits on lowercase-to-uppercase transitions and at the end
// of uppercase runs, so "parseJSONValue" yields "parse", "JSON", "Value".
func splitCamel(word string) []string {
	runes := []rune(word)
	if len(runes) == 0 {
		return nil
	}

	var parts []string
	start := 0
	for i := 1; i < len(runes); i++ {
		prev, cur := runes[i-1], runes[i]
		switch {
		case !unicode.IsUpper(prev) && unicode.IsUpper(cur):
			parts = append(parts, string(runes[start:i]))
			start = i
		case unicode.IsUpper(prev) && unicode.IsUpper(cur) &&
			i+1 < len(runes) && unicode.IsLower(runes[i+1]):
			// End of an uppercase run: "HTTPServer" splits before "Server".
			parts = append(parts, string(runes[start:i]))
			start = i
		}
	}
	parts = append(parts, string(runes[start:]))
	return parts
}

// singularize folds common plural suffixes. It returns the singular form
// and whether one applies; short tokens are left alone to avoid mangling
// identifiers like "es" or "is".
func singularize(tok string) (string, bool) {
	tok = strings.ToLower(tok)
	switch {
	case len(tok) > 3 && strings.HasSuffix(tok, "ies"):
		return tok[:len(tok)-3] + "y", true
	case len(tok) > 3 && strings.HasSuffix(tok, "es"):
		return tok[:len(tok)-2], true
	case len(tok) > 2 && strings.HasSuffix(tok, "s") && !strings.HasSuffix(tok, "ss"):
		return tok[:len(tok)-1], true
	default:
		return "", false
	}
}
