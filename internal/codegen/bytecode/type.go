package bytecode

import (
	"strings"

	"github.com/pkg/errors"
)

// Sort classifies a machine type.
type Sort uint8

const (
	SortVoid Sort = iota
	SortBoolean
	SortChar
	SortByte
	SortShort
	SortInt
	SortFloat
	SortLong
	SortDouble
	SortArray
	SortObject
)

// Type is a machine-level type: a primitive, an array or a class reference.
type Type struct {
	Sort Sort
	// Internal is the binary class name of an object type and the element
	// descriptor of an array type.
	Internal string
}

var (
	Void    = Type{Sort: SortVoid}
	Boolean = Type{Sort: SortBoolean}
	Char    = Type{Sort: SortChar}
	Byte    = Type{Sort: SortByte}
	Short   = Type{Sort: SortShort}
	Int     = Type{Sort: SortInt}
	Float   = Type{Sort: SortFloat}
	Long    = Type{Sort: SortLong}
	Double  = Type{Sort: SortDouble}

	Object    = ObjectType("java/lang/Object")
	String    = ObjectType("java/lang/String")
	Throwable = ObjectType("java/lang/Throwable")
)

// ObjectType is the reference type of a class.
func ObjectType(internal string) Type {
	return Type{Sort: SortObject, Internal: internal}
}

// ArrayOf is the array type with elements of t.
func ArrayOf(t Type) Type {
	return Type{Sort: SortArray, Internal: t.Descriptor()}
}

// Element returns the element type of an array type.
func (t Type) Element() Type {
	el, _, err := parseType(t.Internal, 0)
	if err != nil {
		return Object
	}
	return el
}

// Descriptor renders the field descriptor of t.
func (t Type) Descriptor() string {
	switch t.Sort {
	case SortVoid:
		return "V"
	case SortBoolean:
		return "Z"
	case SortChar:
		return "C"
	case SortByte:
		return "B"
	case SortShort:
		return "S"
	case SortInt:
		return "I"
	case SortFloat:
		return "F"
	case SortLong:
		return "J"
	case SortDouble:
		return "D"
	case SortArray:
		return "[" + t.Internal
	}
	return "L" + t.Internal + ";"
}

// ClassName is the operand naming t in NEW, CHECKCAST, INSTANCEOF and
// ANEWARRAY: the internal name, or the descriptor for arrays.
func (t Type) ClassName() string {
	if t.Sort == SortArray {
		return t.Descriptor()
	}
	return t.Internal
}

func (t Type) String() string {
	if t.Sort == SortObject {
		return t.Internal
	}
	return t.Descriptor()
}

// Size is the number of stack or local slots a value of t takes.
func (t Type) Size() int {
	switch t.Sort {
	case SortVoid:
		return 0
	case SortLong, SortDouble:
		return 2
	}
	return 1
}

// IsPrimitive reports non-reference, non-void types.
func (t Type) IsPrimitive() bool {
	return t.Sort >= SortBoolean && t.Sort <= SortDouble
}

// IsReference reports objects and arrays.
func (t Type) IsReference() bool {
	return t.Sort == SortObject || t.Sort == SortArray
}

// IsIntLike reports the types the machine computes on as int.
func (t Type) IsIntLike() bool {
	return t.Sort >= SortBoolean && t.Sort <= SortInt
}

// Opcode adapts an ILOAD, ISTORE, IALOAD, IASTORE, IADD (and the other
// arithmetic families) or IRETURN opcode to t, the way the machine selects
// variants by operand type.
func (t Type) Opcode(base Opcode) Opcode {
	switch base {
	case IALOAD, IASTORE:
		switch t.Sort {
		case SortBoolean, SortByte:
			return base + 5
		case SortChar:
			return base + 6
		case SortShort:
			return base + 7
		}
		return base + t.variant()
	case ILOAD, ISTORE, IRETURN:
		return base + t.variant()
	case IADD, ISUB, IMUL, IDIV, IREM, INEG:
		return base + t.variant()
	case IAND, IOR, IXOR:
		if t.Sort == SortLong {
			return base + 1
		}
		return base
	}
	return base
}

// variant is the offset of t's opcode within a typed opcode family.
func (t Type) variant() Opcode {
	switch t.Sort {
	case SortLong:
		return 1
	case SortFloat:
		return 2
	case SortDouble:
		return 3
	case SortObject, SortArray:
		return 4
	case SortVoid:
		return 5
	}
	return 0
}

// MethodDescriptor renders `(args)result`.
func MethodDescriptor(result Type, args ...Type) string {
	var sb strings.Builder
	sb.WriteByte('(')
	for _, a := range args {
		sb.WriteString(a.Descriptor())
	}
	sb.WriteByte(')')
	sb.WriteString(result.Descriptor())
	return sb.String()
}

// ParseMethodDescriptor splits a method descriptor into argument and result
// types.
func ParseMethodDescriptor(desc string) ([]Type, Type, error) {
	if len(desc) == 0 || desc[0] != '(' {
		return nil, Void, errors.Errorf("malformed method descriptor %q", desc)
	}
	var args []Type
	i := 1
	for i < len(desc) && desc[i] != ')' {
		t, next, err := parseType(desc, i)
		if err != nil {
			return nil, Void, err
		}
		args = append(args, t)
		i = next
	}
	if i >= len(desc) {
		return nil, Void, errors.Errorf("unterminated method descriptor %q", desc)
	}
	ret, next, err := parseType(desc, i+1)
	if err != nil {
		return nil, Void, err
	}
	if next != len(desc) {
		return nil, Void, errors.Errorf("trailing characters in method descriptor %q", desc)
	}
	return args, ret, nil
}

// ParseDescriptor parses a field descriptor.
func ParseDescriptor(desc string) (Type, error) {
	t, next, err := parseType(desc, 0)
	if err != nil {
		return Void, err
	}
	if next != len(desc) {
		return Void, errors.Errorf("trailing characters in descriptor %q", desc)
	}
	return t, nil
}

func parseType(desc string, i int) (Type, int, error) {
	if i >= len(desc) {
		return Void, i, errors.Errorf("truncated descriptor %q", desc)
	}
	switch desc[i] {
	case 'V':
		return Void, i + 1, nil
	case 'Z':
		return Boolean, i + 1, nil
	case 'C':
		return Char, i + 1, nil
	case 'B':
		return Byte, i + 1, nil
	case 'S':
		return Short, i + 1, nil
	case 'I':
		return Int, i + 1, nil
	case 'F':
		return Float, i + 1, nil
	case 'J':
		return Long, i + 1, nil
	case 'D':
		return Double, i + 1, nil
	case 'L':
		end := strings.IndexByte(desc[i:], ';')
		if end < 0 {
			return Void, i, errors.Errorf("unterminated class name in %q", desc)
		}
		return ObjectType(desc[i+1 : i+end]), i + end + 1, nil
	case '[':
		_, next, err := parseType(desc, i+1)
		if err != nil {
			return Void, i, err
		}
		return Type{Sort: SortArray, Internal: desc[i+1 : next]}, next, nil
	}
	return Void, i, errors.Errorf("unexpected %q in descriptor %q", desc[i], desc)
}
