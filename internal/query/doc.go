// Package query implements request-scoped traversal of loaded corpora:
// the per-request corpus cache (Scope), ephemeral item locators (Ref),
// child/method/trait-impl iteration with re-export and glob expansion,
// and the path resolver with fuzzy fallback.
package query
