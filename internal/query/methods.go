package query

import (
	"context"

	"github.com/Xevion/rustdoc-mcp/internal/corpus"
	"github.com/Xevion/rustdoc-mcp/pkg/types"
)

// Method is one callable function on a type, tagged with where it came
// from: declared directly on the type, or supplied by a trait impl.
type Method struct {
	Ref      Ref
	Inherent bool
	Trait    string
}

// TraitImpl is one trait implementation block on a type.
type TraitImpl struct {
	Ref   Ref
	Trait string
}

// Methods merges a type's directly-declared methods with those obtained
// through trait implementations. Inherent methods come first, in
// declaration order; trait methods follow grouped by impl block.
func (s *Scope) Methods(ctx context.Context, ref Ref) ([]Method, error) {
	if !ref.Valid() {
		return nil, types.ErrScopeClosed
	}

	var methods []Method
	for _, implID := range implsOf(ref) {
		impl := ref.owner.ItemByID(implID)
		if impl == nil || impl.Inner.Impl == nil {
			continue
		}
		block := impl.Inner.Impl
		if block.IsNegative {
			continue
		}
		traitName := ""
		if block.Trait != nil {
			traitName = block.Trait.Path
		}
		for _, fnID := range block.Items {
			fn := ref.owner.ItemByID(fnID)
			if fn == nil || fn.Inner.Function == nil {
				continue
			}
			methods = append(methods, Method{
				Ref:      s.NewRef(ref.owner, fnID, ""),
				Inherent: traitName == "",
				Trait:    traitName,
			})
		}
	}

	// Inherent methods lead, trait methods follow; order within each
	// group stays as declared.
	inherent := make([]Method, 0, len(methods))
	var viaTrait []Method
	for _, m := range methods {
		if m.Inherent {
			inherent = append(inherent, m)
		} else {
			viaTrait = append(viaTrait, m)
		}
	}
	return append(inherent, viaTrait...), nil
}

// TraitImpls lists the trait implementation blocks on a type.
func (s *Scope) TraitImpls(ctx context.Context, ref Ref) ([]TraitImpl, error) {
	if !ref.Valid() {
		return nil, types.ErrScopeClosed
	}

	var impls []TraitImpl
	for _, implID := range implsOf(ref) {
		impl := ref.owner.ItemByID(implID)
		if impl == nil || impl.Inner.Impl == nil || impl.Inner.Impl.Trait == nil {
			continue
		}
		if impl.Inner.Impl.IsNegative {
			continue
		}
		impls = append(impls, TraitImpl{
			Ref:   s.NewRef(ref.owner, implID, ""),
			Trait: impl.Inner.Impl.Trait.Path,
		})
	}
	return impls, nil
}

func implsOf(ref Ref) []corpus.ID {
	it := ref.Item()
	switch {
	case it == nil:
		return nil
	case it.Inner.Struct != nil:
		return it.Inner.Struct.Impls
	case it.Inner.Union != nil:
		return it.Inner.Union.Impls
	case it.Inner.Enum != nil:
		return it.Inner.Enum.Impls
	default:
		return nil
	}
}
