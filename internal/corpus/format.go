package corpus

import (
	"encoding/json"
	"strings"
)

// Type is a rustdoc type expression. The JSON form is an externally
// tagged enum: an object with one variant key, or the bare string
// "infer". Only the variants needed for readable field and signature
// rendering are decoded; anything else renders as "_".
type Type struct {
	ResolvedPath    *Path
	DynTrait        *DynTrait
	Generic         string
	Primitive       string
	Tuple           []Type
	Slice           *Type
	Array           *ArrayType
	ImplTrait       []GenericBound
	RawPointer      *PointerType
	BorrowedRef     *BorrowedRef
	QualifiedPath   *QualifiedPath
	FunctionPointer json.RawMessage
	Infer           bool
}

type ArrayType struct {
	Type Type   `json:"type"`
	Len  string `json:"len"`
}

type PointerType struct {
	IsMutable bool `json:"is_mutable"`
	Type      Type `json:"type"`
}

type BorrowedRef struct {
	Lifetime  *string `json:"lifetime"`
	IsMutable bool    `json:"is_mutable"`
	Type      Type    `json:"type"`
}

type QualifiedPath struct {
	Name     string `json:"name"`
	SelfType Type   `json:"self_type"`
	Trait    *Path  `json:"trait"`
}

type DynTrait struct {
	Traits []PolyTrait `json:"traits"`
}

type PolyTrait struct {
	Trait Path `json:"trait"`
}

type GenericBound struct {
	TraitBound *struct {
		Trait Path `json:"trait"`
	} `json:"trait_bound"`
	Outlives string `json:"outlives"`
}

func (t *Type) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		// Unit variants serialize as bare strings.
		t.Infer = s == "infer"
		return nil
	}
	var tagged struct {
		ResolvedPath    *Path           `json:"resolved_path"`
		DynTrait        *DynTrait       `json:"dyn_trait"`
		Generic         string          `json:"generic"`
		Primitive       string          `json:"primitive"`
		Tuple           []Type          `json:"tuple"`
		Slice           *Type           `json:"slice"`
		Array           *ArrayType      `json:"array"`
		ImplTrait       []GenericBound  `json:"impl_trait"`
		RawPointer      *PointerType    `json:"raw_pointer"`
		BorrowedRef     *BorrowedRef    `json:"borrowed_ref"`
		QualifiedPath   *QualifiedPath  `json:"qualified_path"`
		FunctionPointer json.RawMessage `json:"function_pointer"`
	}
	if err := json.Unmarshal(b, &tagged); err != nil {
		return err
	}
	t.ResolvedPath = tagged.ResolvedPath
	t.DynTrait = tagged.DynTrait
	t.Generic = tagged.Generic
	t.Primitive = tagged.Primitive
	t.Tuple = tagged.Tuple
	t.Slice = tagged.Slice
	t.Array = tagged.Array
	t.ImplTrait = tagged.ImplTrait
	t.RawPointer = tagged.RawPointer
	t.BorrowedRef = tagged.BorrowedRef
	t.QualifiedPath = tagged.QualifiedPath
	t.FunctionPointer = tagged.FunctionPointer
	return nil
}

// Render produces a compact, human-readable form of the type.
func (t *Type) Render() string {
	switch {
	case t == nil:
		return "_"
	case t.ResolvedPath != nil:
		return t.ResolvedPath.Path
	case t.Generic != "":
		return t.Generic
	case t.Primitive != "":
		return t.Primitive
	case t.Tuple != nil:
		parts := make([]string, len(t.Tuple))
		for i := range t.Tuple {
			parts[i] = t.Tuple[i].Render()
		}
		return "(" + strings.Join(parts, ", ") + ")"
	case t.Slice != nil:
		return "[" + t.Slice.Render() + "]"
	case t.Array != nil:
		return "[" + t.Array.Type.Render() + "; " + t.Array.Len + "]"
	case t.BorrowedRef != nil:
		var sb strings.Builder
		sb.WriteByte('&')
		if t.BorrowedRef.Lifetime != nil {
			sb.WriteString(*t.BorrowedRef.Lifetime)
			sb.WriteByte(' ')
		}
		if t.BorrowedRef.IsMutable {
			sb.WriteString("mut ")
		}
		sb.WriteString(t.BorrowedRef.Type.Render())
		return sb.String()
	case t.RawPointer != nil:
		if t.RawPointer.IsMutable {
			return "*mut " + t.RawPointer.Type.Render()
		}
		return "*const " + t.RawPointer.Type.Render()
	case t.QualifiedPath != nil:
		q := t.QualifiedPath
		if q.Trait != nil && q.Trait.Path != "" {
			return "<" + q.SelfType.Render() + " as " + q.Trait.Path + ">::" + q.Name
		}
		return q.SelfType.Render() + "::" + q.Name
	case t.ImplTrait != nil:
		for _, bound := range t.ImplTrait {
			if bound.TraitBound != nil {
				return "impl " + bound.TraitBound.Trait.Path
			}
		}
		return "impl Trait"
	case t.DynTrait != nil:
		if len(t.DynTrait.Traits) > 0 {
			return "dyn " + t.DynTrait.Traits[0].Trait.Path
		}
		return "dyn Trait"
	case t.FunctionPointer != nil:
		return "fn(..)"
	default:
		return "_"
	}
}

// RenderGenerics formats an item's declared generic parameters and where
// clause, e.g. "<'a, T: Clone + Send> where U: Default". Returns "" for
// non-generic items.
func RenderGenerics(g *Generics) string {
	params := renderGenericParams(g)
	where := renderWhereClause(g)
	switch {
	case params == "":
		return where
	case where == "":
		return params
	default:
		return params + " " + where
	}
}

func renderGenericParams(g *Generics) string {
	if g == nil || len(g.Params) == 0 {
		return ""
	}
	parts := make([]string, 0, len(g.Params))
	for i := range g.Params {
		parts = append(parts, renderGenericParam(&g.Params[i]))
	}
	return "<" + strings.Join(parts, ", ") + ">"
}

func renderGenericParam(p *GenericParamDef) string {
	switch {
	case p.Kind.Lifetime != nil:
		if len(p.Kind.Lifetime.Outlives) > 0 {
			return p.Name + ": " + strings.Join(p.Kind.Lifetime.Outlives, " + ")
		}
		return p.Name
	case p.Kind.Const != nil:
		return "const " + p.Name + ": " + p.Kind.Const.Type.Render()
	case p.Kind.Type != nil:
		out := p.Name
		if b := renderBounds(p.Kind.Type.Bounds); b != "" {
			out += ": " + b
		}
		if p.Kind.Type.Default != nil {
			out += " = " + p.Kind.Type.Default.Render()
		}
		return out
	default:
		return p.Name
	}
}

func renderBounds(bounds []GenericBound) string {
	parts := make([]string, 0, len(bounds))
	for _, b := range bounds {
		switch {
		case b.TraitBound != nil:
			parts = append(parts, b.TraitBound.Trait.Path)
		case b.Outlives != "":
			parts = append(parts, b.Outlives)
		}
	}
	return strings.Join(parts, " + ")
}

func renderWhereClause(g *Generics) string {
	if g == nil || len(g.WherePredicates) == 0 {
		return ""
	}
	var parts []string
	for i := range g.WherePredicates {
		pred := g.WherePredicates[i].BoundPredicate
		if pred == nil {
			continue
		}
		b := renderBounds(pred.Bounds)
		if b == "" {
			continue
		}
		parts = append(parts, pred.Type.Render()+": "+b)
	}
	if len(parts) == 0 {
		return ""
	}
	return "where " + strings.Join(parts, ", ")
}

// RenderSignature formats a function item as "fn name(a: i32) -> bool",
// including declared generics and any where clause. The return type is
// omitted for unit-returning functions.
func RenderSignature(name string, fn *Function) string {
	var sb strings.Builder
	sb.WriteString("fn ")
	sb.WriteString(name)
	sb.WriteString(renderGenericParams(&fn.Generics))
	sb.WriteByte('(')
	for i, in := range fn.Sig.Inputs {
		if i > 0 {
			sb.WriteString(", ")
		}
		if in.Name == "self" {
			sb.WriteString(renderSelfParam(&in.Type))
			continue
		}
		sb.WriteString(in.Name)
		sb.WriteString(": ")
		sb.WriteString(in.Type.Render())
	}
	sb.WriteByte(')')
	if fn.Sig.Output != nil {
		sb.WriteString(" -> ")
		sb.WriteString(fn.Sig.Output.Render())
	}
	if wc := renderWhereClause(&fn.Generics); wc != "" {
		sb.WriteByte(' ')
		sb.WriteString(wc)
	}
	return sb.String()
}

// renderSelfParam collapses receiver types to the conventional shorthand.
func renderSelfParam(t *Type) string {
	if t.BorrowedRef != nil {
		inner := &t.BorrowedRef.Type
		if inner.Generic == "Self" {
			if t.BorrowedRef.IsMutable {
				return "&mut self"
			}
			return "&self"
		}
	}
	if t.Generic == "Self" {
		return "self"
	}
	return "self: " + t.Render()
}
