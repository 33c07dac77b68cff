package query

import (
	"context"

	"github.com/Xevion/rustdoc-mcp/internal/corpus"
	"github.com/Xevion/rustdoc-mcp/pkg/types"
)

// Ref is an ephemeral, copyable locator for one item inside one loaded
// corpus. It never owns data: the corpus owns the item, the scope owns
// the corpus, and a Ref is only usable while its scope is alive. Two refs
// reached through different import aliases are equal when they denote the
// same underlying item.
type Ref struct {
	scope *Scope
	owner *corpus.Corpus
	id    corpus.ID
	alias string
}

// NewRef mints a ref inside this scope. Only the scope, traversal, and
// resolver construct refs; callers receive them as results.
func (s *Scope) NewRef(c *corpus.Corpus, id corpus.ID, alias string) Ref {
	return Ref{scope: s, owner: c, id: id, alias: alias}
}

type refKey struct {
	corpus string
	id     corpus.ID
}

func (r Ref) key() refKey {
	name := ""
	if r.owner != nil {
		name = r.owner.Name().Normalized()
	}
	return refKey{corpus: name, id: r.id}
}

// Valid reports whether the ref can still be dereferenced. A ref dies
// with its scope.
func (r Ref) Valid() bool {
	return r.scope != nil && r.scope.Alive() && r.owner != nil
}

// Item returns the underlying item, or nil after the scope closed.
func (r Ref) Item() *corpus.Item {
	if !r.Valid() {
		return nil
	}
	return r.owner.ItemByID(r.id)
}

// Corpus returns the owning corpus, or nil after the scope closed.
func (r Ref) Corpus() *corpus.Corpus {
	if !r.Valid() {
		return nil
	}
	return r.owner
}

// ID returns the item identifier within the owning corpus.
func (r Ref) ID() corpus.ID { return r.id }

// DisplayName returns the name the item was reached under: the renaming
// import's alias when one was crossed, otherwise the declared name.
func (r Ref) DisplayName() string {
	if !r.Valid() {
		return ""
	}
	if r.alias != "" {
		return r.alias
	}
	if it := r.owner.ItemByID(r.id); it != nil {
		return it.DeclaredName()
	}
	return ""
}

// DisplayPath returns the canonical "::" joined path of the item.
func (r Ref) DisplayPath() string {
	if !r.Valid() {
		return ""
	}
	return r.owner.DisplayPath(r.id)
}

// Kind returns the item kind, or KindUnknown after the scope closed.
func (r Ref) Kind() types.ItemKind {
	it := r.Item()
	if it == nil {
		return types.KindUnknown
	}
	return it.Kind()
}

// Equal compares by identity: owning corpus name plus item identifier.
// Aliases do not participate.
func (r Ref) Equal(other Ref) bool {
	return r.key() == other.key()
}

// ResolveFurther resolves one more path segment against this ref's
// children, crossing corpora through the scope when the segment names a
// re-export into another crate.
func (r Ref) ResolveFurther(ctx context.Context, segment string) ([]Ref, error) {
	if !r.Valid() {
		return nil, types.ErrScopeClosed
	}
	return r.scope.childrenNamed(ctx, r, segment)
}
