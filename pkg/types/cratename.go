package types

import "strings"

// CrateName carries both the name as declared (which may use hyphens) and
// the normalized form used in item paths (hyphens become underscores).
// Cargo treats my-crate and my_crate as the same package, so comparisons
// always go through the normalized form.
type CrateName struct {
	original   string
	normalized string
}

// NewCrateName builds a CrateName from a declared name.
func NewCrateName(name string) CrateName {
	return CrateName{
		original:   name,
		normalized: NormalizeCrateName(name),
	}
}

// NormalizeCrateName lowercases a crate name and folds hyphens to underscores.
func NormalizeCrateName(name string) string {
	return strings.ReplaceAll(strings.ToLower(name), "-", "_")
}

// Original returns the name as declared in the manifest.
func (c CrateName) Original() string { return c.original }

// Normalized returns the underscore form used in item paths.
func (c CrateName) Normalized() string { return c.normalized }

// Matches reports whether the given string names this crate under
// hyphen/underscore and case normalization.
func (c CrateName) Matches(s string) bool {
	return NormalizeCrateName(s) == c.normalized
}

func (c CrateName) String() string { return c.original }
