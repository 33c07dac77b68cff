package types

// ItemKind identifies what sort of documentation item a record describes.
type ItemKind string

const (
	KindModule    ItemKind = "module"
	KindStruct    ItemKind = "struct"
	KindEnum      ItemKind = "enum"
	KindUnion     ItemKind = "union"
	KindFunction  ItemKind = "function"
	KindTrait     ItemKind = "trait"
	KindTypeAlias ItemKind = "type_alias"
	KindConstant  ItemKind = "constant"
	KindStatic    ItemKind = "static"
	KindField     ItemKind = "field"
	KindVariant   ItemKind = "variant"
	KindImpl      ItemKind = "impl"
	KindUse       ItemKind = "use"
	KindUnknown   ItemKind = "item"
)

// ParseKind maps a user-supplied kind filter to an ItemKind.
// Unknown strings map to KindUnknown so callers can reject them explicitly.
func ParseKind(s string) ItemKind {
	switch s {
	case "module", "mod":
		return KindModule
	case "struct":
		return KindStruct
	case "enum":
		return KindEnum
	case "union":
		return KindUnion
	case "function", "fn", "method":
		// rustdoc has no separate method kind; methods are functions that
		// live inside impl blocks.
		return KindFunction
	case "trait":
		return KindTrait
	case "type_alias", "type":
		return KindTypeAlias
	case "constant", "const":
		return KindConstant
	case "static":
		return KindStatic
	case "field":
		return KindField
	case "variant":
		return KindVariant
	default:
		return KindUnknown
	}
}
