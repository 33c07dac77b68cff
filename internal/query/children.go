package query

import (
	"context"
	"errors"
	"strings"

	"github.com/Xevion/rustdoc-mcp/internal/corpus"
	"github.com/Xevion/rustdoc-mcp/pkg/types"
)

// Children walks one level of an item's contents: module children, struct
// and union fields, enum variants, or a trait's associated items. Types
// also surface the functions of their impl blocks, so a method is
// reachable as a child of its type. Re-exports and glob imports are
// expanded inline so callers never see the indirection, and an item
// reachable through multiple import paths appears once.
// Traversal tracks visited identifiers per call; a cyclic or degenerate
// self-referencing glob terminates instead of recursing.
func (s *Scope) Children(ctx context.Context, ref Ref) ([]Ref, error) {
	if !ref.Valid() {
		return nil, types.ErrScopeClosed
	}
	visited := map[refKey]struct{}{ref.key(): {}}
	seen := make(map[refKey]struct{})
	return s.appendChildren(ctx, nil, ref, visited, seen)
}

func (s *Scope) appendChildren(ctx context.Context, out []Ref, ref Ref, visited, seen map[refKey]struct{}) ([]Ref, error) {
	it := ref.Item()
	if it == nil {
		return out, nil
	}

	emit := func(r Ref) {
		if _, dup := seen[r.key()]; dup {
			return
		}
		seen[r.key()] = struct{}{}
		out = append(out, r)
	}

	switch {
	case it.Inner.Module != nil:
		for _, childID := range it.Inner.Module.Items {
			child := ref.owner.ItemByID(childID)
			if child == nil {
				continue
			}
			u := child.Inner.Use
			if u == nil {
				emit(s.NewRef(ref.owner, childID, ""))
				continue
			}
			target, ok, err := s.resolveUseTarget(ctx, ref.owner, u)
			if err != nil {
				return out, err
			}
			if !ok {
				continue
			}
			if !u.IsGlob {
				emit(target)
				continue
			}
			// Glob: splice in the target module's children. The visited
			// set keeps a self-glob or an import cycle from re-expanding.
			if _, done := visited[target.key()]; done {
				continue
			}
			visited[target.key()] = struct{}{}
			out, err = s.appendChildren(ctx, out, target, visited, seen)
			if err != nil {
				return out, err
			}
		}

	case it.Inner.Struct != nil:
		if plain := it.Inner.Struct.Kind.Plain; plain != nil {
			for _, fieldID := range plain.Fields {
				emit(s.NewRef(ref.owner, fieldID, ""))
			}
		}
		s.emitImplFunctions(ref, it.Inner.Struct.Impls, emit)

	case it.Inner.Union != nil:
		for _, fieldID := range it.Inner.Union.Fields {
			emit(s.NewRef(ref.owner, fieldID, ""))
		}
		s.emitImplFunctions(ref, it.Inner.Union.Impls, emit)

	case it.Inner.Enum != nil:
		for _, variantID := range it.Inner.Enum.Variants {
			emit(s.NewRef(ref.owner, variantID, ""))
		}
		s.emitImplFunctions(ref, it.Inner.Enum.Impls, emit)

	case it.Inner.Trait != nil:
		for _, assocID := range it.Inner.Trait.Items {
			emit(s.NewRef(ref.owner, assocID, ""))
		}
	}
	return out, nil
}

// emitImplFunctions surfaces the functions of a type's impl blocks as
// children, so paths of the form Type::method resolve. Negative impls
// declare an absence and carry nothing to surface.
func (s *Scope) emitImplFunctions(ref Ref, impls []corpus.ID, emit func(Ref)) {
	for _, implID := range impls {
		impl := ref.owner.ItemByID(implID)
		if impl == nil || impl.Inner.Impl == nil || impl.Inner.Impl.IsNegative {
			continue
		}
		for _, fnID := range impl.Inner.Impl.Items {
			fn := ref.owner.ItemByID(fnID)
			if fn == nil || fn.Inner.Function == nil {
				continue
			}
			emit(s.NewRef(ref.owner, fnID, ""))
		}
	}
}

// resolveUseTarget turns a re-export into a ref to its target, loading
// the target's corpus through the scope when the re-export crosses crate
// boundaries. ok is false when the target is external to every corpus the
// session knows about or the export carries no target id.
func (s *Scope) resolveUseTarget(ctx context.Context, owner *corpus.Corpus, u *corpus.Use) (Ref, bool, error) {
	if u.ID == nil {
		return Ref{}, false, nil
	}
	targetID := *u.ID

	alias := u.Name
	if u.IsGlob {
		alias = ""
	}

	if owner.IsLocal(targetID) {
		return s.NewRef(owner, targetID, alias), true, nil
	}

	entry, ok := owner.PathEntry(targetID)
	if !ok || len(entry.Path) == 0 {
		return Ref{}, false, nil
	}
	crateName, ok := owner.ExternalCrateName(entry.CrateID)
	if !ok {
		return Ref{}, false, nil
	}

	ext, err := s.Load(ctx, crateName)
	if err != nil {
		if isUnknownCorpus(err) {
			return Ref{}, false, nil
		}
		return Ref{}, false, err
	}

	target, err := s.walkPath(ctx, ext, entry.Path[1:], types.ParseKind(entry.Kind))
	if err != nil || target == nil {
		return Ref{}, false, err
	}
	target.alias = alias
	return *target, true, nil
}

// walkPath follows canonical path segments from a corpus root. Used to
// re-anchor a cross-corpus identifier, whose numeric id is meaningless
// outside its own export. When the final segment names items in more than
// one namespace, the candidate matching the paths-table kind wins;
// earlier segments are module-like and cannot collide.
func (s *Scope) walkPath(ctx context.Context, c *corpus.Corpus, segments []string, kind types.ItemKind) (*Ref, error) {
	cur := s.NewRef(c, c.Root(), "")
	for i, seg := range segments {
		matches, err := s.childrenNamed(ctx, cur, seg)
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			return nil, nil
		}
		cur = matches[0]
		if i == len(segments)-1 && len(matches) > 1 && kind != types.KindUnknown {
			for _, m := range matches {
				if m.Kind() == kind {
					cur = m
					break
				}
			}
		}
	}
	return &cur, nil
}

// childrenNamed filters Children down to refs whose visible name matches
// the segment exactly.
func (s *Scope) childrenNamed(ctx context.Context, ref Ref, name string) ([]Ref, error) {
	children, err := s.Children(ctx, ref)
	if err != nil {
		return nil, err
	}
	var matches []Ref
	for _, child := range children {
		if child.DisplayName() == name {
			matches = append(matches, child)
		}
	}
	return matches, nil
}

// unresolvedExternal reports whether a module re-exports `name` from a
// corpus the session cannot load, and which crate that is. The resolver
// reports this as a missing dependency rather than a not-found.
func (s *Scope) unresolvedExternal(ctx context.Context, ref Ref, name string) (string, bool) {
	it := ref.Item()
	if it == nil || it.Inner.Module == nil {
		return "", false
	}
	for _, childID := range it.Inner.Module.Items {
		child := ref.owner.ItemByID(childID)
		if child == nil || child.Inner.Use == nil {
			continue
		}
		u := child.Inner.Use
		if u.IsGlob || u.Name != name || u.ID == nil || ref.owner.IsLocal(*u.ID) {
			continue
		}
		entry, ok := ref.owner.PathEntry(*u.ID)
		if !ok {
			continue
		}
		crateName, ok := ref.owner.ExternalCrateName(entry.CrateID)
		if !ok {
			crateName = strings.SplitN(u.Source, "::", 2)[0]
		}
		if _, err := s.Load(ctx, crateName); isUnknownCorpus(err) {
			return crateName, true
		}
	}
	return "", false
}

func isUnknownCorpus(err error) bool {
	return errors.Is(err, types.ErrUnknownCorpus)
}
