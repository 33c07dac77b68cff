package workspace

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/Xevion/rustdoc-mcp/internal/corpus"
	"github.com/Xevion/rustdoc-mcp/pkg/types"
)

// Session is an immutable snapshot of one selected workspace: the project
// root, the discovered corpora, and which corpus the "crate" alias means.
// A Session is never mutated; workspace changes build a new one.
type Session struct {
	Root          string
	Members       []string
	Targets       []Target
	DefaultCorpus string
}

// Lookup finds the target for a corpus name under normalization.
func (s *Session) Lookup(name string) (Target, bool) {
	for _, t := range s.Targets {
		if t.Name.Matches(name) {
			return t, true
		}
	}
	return Target{}, false
}

// CorpusNames returns every discovered corpus name, declaration order.
func (s *Session) CorpusNames() []string {
	names := make([]string, len(s.Targets))
	for i, t := range s.Targets {
		names[i] = t.Name.Original()
	}
	return names
}

// LoadCorpus loads the named corpus from its discovered export file,
// satisfying the request scope's loader seam.
func (s *Session) LoadCorpus(ctx context.Context, name string) (*corpus.Corpus, error) {
	target, ok := s.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", types.ErrUnknownCorpus, name)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return corpus.Load(target.DocPath, target.Name.Original())
}

// Manager owns the process-wide session tier. The current session is
// replaced atomically on workspace change and never mutated in place
// while a request is reading it.
type Manager struct {
	discoverer Discoverer
	log        zerolog.Logger
	current    atomic.Pointer[Session]
}

// NewManager returns a Manager with no workspace selected.
func NewManager(d Discoverer, log zerolog.Logger) *Manager {
	return &Manager{discoverer: d, log: log}
}

// SetWorkspace discovers root's corpora and installs the new session.
func (m *Manager) SetWorkspace(ctx context.Context, root string) (*Session, error) {
	disc, err := m.discoverer.Discover(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("workspace discovery: %w", err)
	}

	session := &Session{
		Root:          disc.Root,
		Members:       disc.Members,
		Targets:       disc.Targets,
		DefaultCorpus: disc.DefaultCorpus,
	}
	m.current.Store(session)
	m.log.Info().
		Str("root", session.Root).
		Int("corpora", len(session.Targets)).
		Str("default", session.DefaultCorpus).
		Msg("workspace selected")
	return session, nil
}

// Current returns the active session, or ErrNoWorkspace before the first
// SetWorkspace.
func (m *Manager) Current() (*Session, error) {
	if s := m.current.Load(); s != nil {
		return s, nil
	}
	return nil, types.ErrNoWorkspace
}
