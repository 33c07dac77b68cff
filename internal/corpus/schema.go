package corpus

import (
	"bytes"
	"encoding/json"

	"github.com/Xevion/rustdoc-mcp/pkg/types"
)

// SupportedFormatVersion is the rustdoc JSON format version this decoder
// understands. Exports with any other version are rejected as malformed
// rather than parsed on a guess.
const SupportedFormatVersion = 45

// ID is a rustdoc item identifier, unique within one export.
type ID uint32

// Crate is the root of a rustdoc JSON export. Only the subset of the
// format needed for resolution, traversal, and indexing is decoded.
type Crate struct {
	Root           ID                       `json:"root"`
	CrateVersion   *string                  `json:"crate_version"`
	Index          map[ID]*Item             `json:"index"`
	Paths          map[ID]*ItemPath         `json:"paths"`
	ExternalCrates map[uint32]ExternalCrate `json:"external_crates"`
	FormatVersion  uint32                   `json:"format_version"`
}

// ItemPath is one entry of the paths table: the canonical path of an item,
// present for both local and external items.
type ItemPath struct {
	CrateID uint32   `json:"crate_id"`
	Path    []string `json:"path"`
	Kind    string   `json:"kind"`
}

// ExternalCrate names a crate referenced from this export.
type ExternalCrate struct {
	Name string `json:"name"`
}

// Item is one documentation node.
type Item struct {
	ID         ID              `json:"id"`
	CrateID    uint32          `json:"crate_id"`
	Name       *string         `json:"name"`
	Visibility json.RawMessage `json:"visibility"`
	Docs       *string         `json:"docs"`
	Inner      ItemInner       `json:"inner"`
}

// ItemInner holds the kind-specific payload. Exactly one field is set.
type ItemInner struct {
	Module      *Module    `json:"module"`
	Use         *Use       `json:"use"`
	Struct      *Struct    `json:"struct"`
	Union       *Union     `json:"union"`
	StructField *Type      `json:"struct_field"`
	Enum        *Enum      `json:"enum"`
	Variant     *Variant   `json:"variant"`
	Function    *Function  `json:"function"`
	Trait       *Trait     `json:"trait"`
	Impl        *Impl      `json:"impl"`
	TypeAlias   *TypeAlias `json:"type_alias"`
	Constant    *Constant  `json:"constant"`
	Static      *Static    `json:"static"`
}

type Module struct {
	IsCrate bool `json:"is_crate"`
	Items   []ID `json:"items"`
}

// Use is a re-export declaration. ID is nil when the target is not part of
// any documented crate (e.g. a primitive).
type Use struct {
	Source string `json:"source"`
	Name   string `json:"name"`
	ID     *ID    `json:"id"`
	IsGlob bool   `json:"is_glob"`
}

type Struct struct {
	Kind     StructKind `json:"kind"`
	Generics Generics   `json:"generics"`
	Impls    []ID       `json:"impls"`
}

// Union is a C-style union; fields and impls mirror Struct.
type Union struct {
	Generics          Generics `json:"generics"`
	Fields            []ID     `json:"fields"`
	Impls             []ID     `json:"impls"`
	HasStrippedFields bool     `json:"has_stripped_fields"`
}

// StructKind distinguishes unit, tuple, and plain structs. The JSON form
// is either the string "unit" or an object tagged "tuple"/"plain".
type StructKind struct {
	Unit  bool
	Tuple []*ID
	Plain *PlainStruct
}

type PlainStruct struct {
	Fields            []ID `json:"fields"`
	HasStrippedFields bool `json:"has_stripped_fields"`
}

func (k *StructKind) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte(`"unit"`)) {
		k.Unit = true
		return nil
	}
	var tagged struct {
		Tuple []*ID        `json:"tuple"`
		Plain *PlainStruct `json:"plain"`
	}
	if err := json.Unmarshal(b, &tagged); err != nil {
		return err
	}
	k.Tuple = tagged.Tuple
	k.Plain = tagged.Plain
	return nil
}

type Enum struct {
	Generics Generics `json:"generics"`
	Variants []ID     `json:"variants"`
	Impls    []ID     `json:"impls"`
}

type Variant struct {
	Kind json.RawMessage `json:"kind"`
}

type Function struct {
	Sig      FunctionSignature `json:"sig"`
	Generics Generics          `json:"generics"`
}

type FunctionSignature struct {
	Inputs []FunctionInput `json:"inputs"`
	Output *Type           `json:"output"`
}

// FunctionInput is one parameter, serialized as a [name, type] pair.
type FunctionInput struct {
	Name string
	Type Type
}

func (f *FunctionInput) UnmarshalJSON(b []byte) error {
	var pair []json.RawMessage
	if err := json.Unmarshal(b, &pair); err != nil {
		return err
	}
	if len(pair) != 2 {
		return &json.UnmarshalTypeError{Value: "function input pair", Type: nil}
	}
	if err := json.Unmarshal(pair[0], &f.Name); err != nil {
		return err
	}
	return json.Unmarshal(pair[1], &f.Type)
}

type Trait struct {
	Generics        Generics `json:"generics"`
	Items           []ID     `json:"items"`
	Implementations []ID     `json:"implementations"`
}

// Impl is an impl block. Trait is nil for inherent impls.
type Impl struct {
	Trait       *Path `json:"trait"`
	For         Type  `json:"for"`
	Items       []ID  `json:"items"`
	IsNegative  bool  `json:"is_negative"`
	BlanketImpl *Type `json:"blanket_impl"`
}

type TypeAlias struct {
	Type     Type     `json:"type"`
	Generics Generics `json:"generics"`
}

// Generics is an item's declared generic parameter list plus its where
// clause.
type Generics struct {
	Params          []GenericParamDef `json:"params"`
	WherePredicates []WherePredicate  `json:"where_predicates"`
}

// GenericParamDef is one declared parameter: a lifetime, a type
// parameter, or a const parameter.
type GenericParamDef struct {
	Name string           `json:"name"`
	Kind GenericParamKind `json:"kind"`
}

type GenericParamKind struct {
	Lifetime *LifetimeParam `json:"lifetime"`
	Type     *TypeParamDef  `json:"type"`
	Const    *ConstParamDef `json:"const"`
}

type LifetimeParam struct {
	Outlives []string `json:"outlives"`
}

type TypeParamDef struct {
	Bounds  []GenericBound `json:"bounds"`
	Default *Type          `json:"default"`
}

type ConstParamDef struct {
	Type Type `json:"type"`
}

// WherePredicate is one clause of a where list. Only bound predicates
// are rendered; lifetime and eq predicates are rare in public APIs.
type WherePredicate struct {
	BoundPredicate *BoundPredicate `json:"bound_predicate"`
}

type BoundPredicate struct {
	Type   Type           `json:"type"`
	Bounds []GenericBound `json:"bounds"`
}

type Constant struct {
	Type Type `json:"type"`
}

type Static struct {
	Type Type `json:"type"`
}

// Path references a named item, possibly in another crate.
type Path struct {
	Path string `json:"path"`
	ID   ID     `json:"id"`
}

// Kind reports which inner variant this item carries.
func (it *Item) Kind() types.ItemKind {
	switch {
	case it.Inner.Module != nil:
		return types.KindModule
	case it.Inner.Use != nil:
		return types.KindUse
	case it.Inner.Struct != nil:
		return types.KindStruct
	case it.Inner.Union != nil:
		return types.KindUnion
	case it.Inner.StructField != nil:
		return types.KindField
	case it.Inner.Enum != nil:
		return types.KindEnum
	case it.Inner.Variant != nil:
		return types.KindVariant
	case it.Inner.Function != nil:
		return types.KindFunction
	case it.Inner.Trait != nil:
		return types.KindTrait
	case it.Inner.Impl != nil:
		return types.KindImpl
	case it.Inner.TypeAlias != nil:
		return types.KindTypeAlias
	case it.Inner.Constant != nil:
		return types.KindConstant
	case it.Inner.Static != nil:
		return types.KindStatic
	default:
		return types.KindUnknown
	}
}

// DeclaredName returns the item's own name, or "" for anonymous items
// such as impl blocks.
func (it *Item) DeclaredName() string {
	if it.Name != nil {
		return *it.Name
	}
	return ""
}

// DocBody returns the item's documentation text, or "".
func (it *Item) DocBody() string {
	if it.Docs != nil {
		return *it.Docs
	}
	return ""
}

// Public reports whether the item is publicly visible. rustdoc encodes
// visibility as the string "public"/"default"/"crate" or an object for
// restricted paths; "default" covers enum variants and trait items, which
// inherit their container's visibility.
func (it *Item) Public() bool {
	s := string(it.Visibility)
	return s == `"public"` || s == `"default"` || s == ""
}
