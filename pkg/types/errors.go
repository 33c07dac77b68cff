package types

import "errors"

var (
	// ErrUnknownCorpus is returned when a path references a corpus the
	// session never discovered. Distinct from a not-found resolution: it
	// indicates a missing dependency rather than a typo.
	ErrUnknownCorpus = errors.New("unknown corpus")
	// ErrScopeClosed is returned when a request scope is used after Close.
	ErrScopeClosed = errors.New("request scope closed")
	// ErrNoWorkspace is returned when a tool runs before set_workspace.
	ErrNoWorkspace = errors.New("no workspace selected")
)
