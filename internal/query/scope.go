package query

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/Xevion/rustdoc-mcp/internal/corpus"
	"github.com/Xevion/rustdoc-mcp/pkg/types"
)

// Loader resolves a corpus name to a loaded Corpus. It reports
// types.ErrUnknownCorpus when the name was never discovered.
type Loader interface {
	LoadCorpus(ctx context.Context, name string) (*corpus.Corpus, error)
}

// Scope is the per-request corpus cache. Corpora load on first touch and
// are reused for the life of the request; Close releases all of them and
// invalidates every Ref minted from the scope. There is no cross-request
// corpus cache, so steady-state memory stays bounded on large dependency
// graphs at the cost of a reload per request.
type Scope struct {
	loader Loader

	mu      sync.Mutex
	corpora map[string]*corpus.Corpus
	closed  bool
}

// NewScope starts an empty request scope backed by loader.
func NewScope(loader Loader) *Scope {
	return &Scope{
		loader:  loader,
		corpora: make(map[string]*corpus.Corpus),
	}
}

// Load returns the corpus for name, loading it on first touch.
func (s *Scope) Load(ctx context.Context, name string) (*corpus.Corpus, error) {
	key := types.NormalizeCrateName(name)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, types.ErrScopeClosed
	}
	if c, ok := s.corpora[key]; ok {
		s.mu.Unlock()
		return c, nil
	}
	s.mu.Unlock()

	// Load outside the lock so independent corpora can load in parallel.
	c, err := s.loader.LoadCorpus(ctx, name)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		// The request ended while we were loading; never publish a
		// corpus into a dead scope.
		return nil, types.ErrScopeClosed
	}
	if existing, ok := s.corpora[key]; ok {
		return existing, nil
	}
	s.corpora[key] = c
	return c, nil
}

// LoadAll loads every named corpus, in parallel. A failed corpus does not
// abort its siblings: the group deliberately carries no shared
// cancellation, so every load settles and the first error is returned.
func (s *Scope) LoadAll(ctx context.Context, names []string) error {
	var g errgroup.Group
	for _, name := range names {
		g.Go(func() error {
			if _, err := s.Load(ctx, name); err != nil {
				return fmt.Errorf("load corpus %s: %w", name, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Corpus returns an already-loaded corpus without triggering a load.
func (s *Scope) Corpus(name string) (*corpus.Corpus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, false
	}
	c, ok := s.corpora[types.NormalizeCrateName(name)]
	return c, ok
}

// LoadedNames returns the sorted normalized names of loaded corpora.
func (s *Scope) LoadedNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.corpora))
	for name := range s.corpora {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close releases every loaded corpus and marks the scope dead. Refs
// minted from this scope stop dereferencing. Close is idempotent and must
// run on every request exit path.
func (s *Scope) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.corpora = nil
}

// Alive reports whether the scope is still usable.
func (s *Scope) Alive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed
}
