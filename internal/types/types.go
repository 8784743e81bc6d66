// Package types implements the language's type model: names, sizes, and
// structural equality of primitive, list, pointer, and user-defined record
// types.
package types

import "fmt"

// Name is a tagged variant over the three type shapes the language supports.
// Exactly one of the embedded fields is non-nil/non-zero for any given value;
// callers should switch on Kind rather than probe the fields directly.
type Name struct {
	Kind Kind

	// Simple holds the fundamental or record name when Kind == KindSimple.
	Simple string

	// List holds the element type and fixed length when Kind == KindList.
	List *ListShape

	// Pointer holds the pointee type when Kind == KindPointer.
	Pointer *Name
}

// Kind discriminates the three Name shapes.
type Kind int

const (
	KindSimple Kind = iota
	KindList
	KindPointer
)

// ListShape is the payload of a List type: a homogeneous, fixed-length array.
type ListShape struct {
	Inner Name
	Count uint64
}

// Fundamental type names reserved by the language.
const (
	I32  = "i32"
	I64  = "i64"
	U64  = "u64"
	F64  = "f64"
	Char = "char"
	Bool = "bool"
	Null = "null"
)

var fundamentalSizes = map[string]uint64{
	I32:  4,
	I64:  8,
	U64:  8,
	F64:  8,
	Char: 1,
	Bool: 1,
	Null: 1,
}

// Simple constructs a Name for a fundamental or record name.
func Simple(name string) Name { return Name{Kind: KindSimple, Simple: name} }

// I32Type, I64Type, ... return the canonical Name for each fundamental.
func I32Type() Name  { return Simple(I32) }
func I64Type() Name  { return Simple(I64) }
func U64Type() Name  { return Simple(U64) }
func F64Type() Name  { return Simple(F64) }
func CharType() Name { return Simple(Char) }
func BoolType() Name { return Simple(Bool) }
func NullType() Name { return Simple(Null) }

// List constructs a fixed-length homogeneous array type.
func List(inner Name, count uint64) Name {
	return Name{Kind: KindList, List: &ListShape{Inner: inner, Count: count}}
}

// Pointer constructs a pointer-to-inner type.
func Pointer(inner Name) Name {
	return Name{Kind: KindPointer, Pointer: &inner}
}

// IsFundamental reports whether t is one of the seven reserved primitive names.
func IsFundamental(t Name) bool {
	if t.Kind != KindSimple {
		return false
	}
	_, ok := fundamentalSizes[t.Simple]
	return ok
}

// Equal reports structural equality between two type names.
func Equal(a, b Name) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindSimple:
		return a.Simple == b.Simple
	case KindList:
		return a.List.Count == b.List.Count && Equal(a.List.Inner, b.List.Inner)
	case KindPointer:
		return Equal(*a.Pointer, *b.Pointer)
	default:
		return false
	}
}

// EqualSlice reports structural equality of two type-name lists, element-wise.
func EqualSlice(a, b []Name) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !Equal(a[i], b[i]) {
			return false
		}
	}
	return true
}

// Inner returns the element/pointee type of a List or Pointer type. Panics if
// t is neither - callers are expected to check Kind first, mirroring the
// compiler's own invariant that it never calls Inner on a malformed tree.
func Inner(t Name) Name {
	switch t.Kind {
	case KindList:
		return t.List.Inner
	case KindPointer:
		return *t.Pointer
	default:
		panic(fmt.Sprintf("types: Inner called on non-list/pointer type %s", t))
	}
}

// String renders a type name the way diagnostics and Program.String expect to
// see it: "i64", "char[2]", "&V".
func (t Name) String() string {
	switch t.Kind {
	case KindSimple:
		return t.Simple
	case KindList:
		return fmt.Sprintf("%s[%d]", t.List.Inner, t.List.Count)
	case KindPointer:
		return "&" + t.Pointer.String()
	default:
		return "?"
	}
}

// Field is one member of a record type, in declaration order.
type Field struct {
	Name string
	Type Name
}

// Signature is a callable's ordered parameter list and return type.
type Signature struct {
	Params     []Field
	ReturnType Name
}

func (s Signature) String() string {
	out := "("
	for i, p := range s.Params {
		if i > 0 {
			out += ", "
		}
		out += p.Type.String()
	}
	return out + ") -> " + s.ReturnType.String()
}
