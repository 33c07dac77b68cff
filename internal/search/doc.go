// Package search maintains the persistent relevance index: a sqlite
// database of per-item term frequencies built from the corpus item graph,
// invalidated wholesale by corpus fingerprint, and queried with TF-IDF
// ranking where name matches outweigh documentation matches.
package search
