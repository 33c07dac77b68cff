// Package corpus loads rustdoc JSON exports into immutable item graphs.
//
// A Corpus owns the decoded items for the life of the request scope that
// loaded it and exposes only pure accessors; traversal with re-export and
// glob expansion lives in the query package, which composes corpora into
// a per-request loaded set.
package corpus
