// Package types defines the shared value types exchanged between the
// corpus, query, search, and MCP layers: item kinds, crate names with
// hyphen/underscore normalization, item summaries, and sentinel errors.
package types
