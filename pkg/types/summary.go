package types

import "strings"

// FieldInfo describes one struct field or one function parameter.
type FieldInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// ItemSummary is the renderer-facing view of a resolved item: enough
// structural data for the caller to format at any verbosity.
type ItemSummary struct {
	DisplayPath string      `json:"display_path"`
	Name        string      `json:"name"`
	Kind        ItemKind    `json:"kind"`
	DocExcerpt  string      `json:"doc,omitempty"`
	Signature   string      `json:"signature,omitempty"`
	Generics    string      `json:"generics,omitempty"`
	Fields      []FieldInfo `json:"fields,omitempty"`
	Variants    []string    `json:"variants,omitempty"`
	Relevance   float64     `json:"relevance,omitempty"`
}

// Suggestion is one fuzzy-match candidate with its similarity score.
type Suggestion struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// DocExcerpt returns the first line of a documentation body, trimmed.
func DocExcerpt(docs string) string {
	if docs == "" {
		return ""
	}
	line := docs
	if i := strings.IndexByte(docs, '\n'); i >= 0 {
		line = docs[:i]
	}
	return strings.TrimSpace(line)
}
