package types

import (
	"fmt"
	"strings"

	"jetc/internal/invariant"
)

// CtorKind tags a type constructor.
type CtorKind uint8

const (
	CtorClass CtorKind = iota + 1
	CtorTypeParam
	CtorSelf
	CtorFunction
	CtorTuple
	CtorError
)

// Constructor is the head of a type. Two constructors are the same iff they
// compare equal with ==.
type Constructor struct {
	Kind        CtorKind
	Decl        ID // class, type parameter or (for self types) the class
	Name        string
	Arity       int // function value parameters or tuple elements
	HasReceiver bool
}

// ParamCount is the number of type arguments a type built from c carries.
// Function types carry the receiver (if any), the parameters and the result.
func (c Constructor) paramCount(t *Table) int {
	switch c.Kind {
	case CtorClass:
		return len(t.Get(c.Decl).Class.TypeParams)
	case CtorFunction:
		n := c.Arity + 1
		if c.HasReceiver {
			n++
		}
		return n
	case CtorTuple:
		return c.Arity
	}
	return 0
}

// ProjKind is the use-site projection of a type argument.
type ProjKind uint8

const (
	ProjInvariant ProjKind = iota
	ProjIn
	ProjOut
	ProjStar
)

// Projection is a type argument. Type is nil for star projections.
type Projection struct {
	Kind ProjKind
	Type *Type
}

// Inv builds an invariant projection.
func Inv(t *Type) Projection { return Projection{Kind: ProjInvariant, Type: t} }

// Star is the `*` projection.
func Star() Projection { return Projection{Kind: ProjStar} }

func (p Projection) String() string {
	switch p.Kind {
	case ProjStar:
		return "*"
	case ProjIn:
		return "in " + p.Type.String()
	case ProjOut:
		return "out " + p.Type.String()
	}
	return p.Type.String()
}

// Type is an immutable (constructor, arguments, nullable) triple.
type Type struct {
	ctor     Constructor
	args     []Projection
	nullable bool
}

func newType(ctor Constructor, args []Projection, nullable bool) *Type {
	return &Type{ctor: ctor, args: args, nullable: nullable}
}

func (t *Type) Ctor() Constructor    { return t.ctor }
func (t *Type) Args() []Projection   { return t.args }
func (t *Type) Arg(i int) Projection { return t.args[i] }
func (t *Type) Nullable() bool       { return t.nullable }
func (t *Type) IsError() bool        { return t.ctor.Kind == CtorError }
func (t *Type) IsClass() bool        { return t.ctor.Kind == CtorClass }
func (t *Type) IsTypeParam() bool    { return t.ctor.Kind == CtorTypeParam }
func (t *Type) IsFunction() bool     { return t.ctor.Kind == CtorFunction }
func (t *Type) IsTuple() bool        { return t.ctor.Kind == CtorTuple }
func (t *Type) IsSelf() bool         { return t.ctor.Kind == CtorSelf }
func (t *Type) Decl() ID             { return t.ctor.Decl }

// MakeNullable returns t?.
func MakeNullable(t *Type) *Type {
	if t.nullable || t.IsError() {
		return t
	}
	return newType(t.ctor, t.args, true)
}

// MakeNotNull strips the nullable flag.
func MakeNotNull(t *Type) *Type {
	if !t.nullable {
		return t
	}
	return newType(t.ctor, t.args, false)
}

// WithNullable returns t with the flag set to n.
func WithNullable(t *Type, n bool) *Type {
	if n {
		return MakeNullable(t)
	}
	return MakeNotNull(t)
}

var errorType = newType(Constructor{Kind: CtorError, Name: "<error>"}, nil, false)

// ErrorType is the type of expressions that failed to resolve. It is
// compatible with everything so one mistake yields one diagnostic.
func ErrorType() *Type { return errorType }

// FunctionType builds `R.(P1, ..) -> Result`; receiver may be nil.
func FunctionType(receiver *Type, params []*Type, result *Type) *Type {
	ctor := Constructor{Kind: CtorFunction, Arity: len(params), HasReceiver: receiver != nil}
	ctor.Name = fmt.Sprintf("Function%d", len(params))
	args := make([]Projection, 0, len(params)+2)
	if receiver != nil {
		args = append(args, Inv(receiver))
	}
	for _, p := range params {
		args = append(args, Inv(p))
	}
	args = append(args, Inv(result))
	return newType(ctor, args, false)
}

// TupleType builds `#(E1, E2, ..)`.
func TupleType(elems []*Type) *Type {
	ctor := Constructor{Kind: CtorTuple, Arity: len(elems), Name: fmt.Sprintf("Tuple%d", len(elems))}
	args := make([]Projection, len(elems))
	for i, e := range elems {
		args[i] = Inv(e)
	}
	return newType(ctor, args, false)
}

// FunctionParts splits a function type into receiver, parameters and result.
func FunctionParts(t *Type) (receiver *Type, params []*Type, result *Type) {
	invariant.Check(t.IsFunction(), "FunctionParts on %s", t)
	args := t.args
	if t.ctor.HasReceiver {
		receiver = args[0].Type
		args = args[1:]
	}
	for _, a := range args[:len(args)-1] {
		params = append(params, a.Type)
	}
	return receiver, params, args[len(args)-1].Type
}

// String renders the type in source syntax.
func (t *Type) String() string {
	if t == nil {
		return "<none>"
	}
	var sb strings.Builder
	switch t.ctor.Kind {
	case CtorFunction:
		recv, params, result := FunctionParts(t)
		if t.nullable {
			sb.WriteString("(")
		}
		if recv != nil {
			sb.WriteString(recv.String() + ".")
		}
		sb.WriteString("(")
		for i, p := range params {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(p.String())
		}
		sb.WriteString(") -> ")
		sb.WriteString(result.String())
		if t.nullable {
			sb.WriteString(")")
		}
	case CtorTuple:
		sb.WriteString("#(")
		for i, a := range t.args {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(a.String())
		}
		sb.WriteString(")")
	case CtorSelf:
		sb.WriteString("This")
	default:
		sb.WriteString(t.ctor.Name)
		if len(t.args) > 0 {
			sb.WriteString("<")
			for i, a := range t.args {
				if i > 0 {
					sb.WriteString(", ")
				}
				sb.WriteString(a.String())
			}
			sb.WriteString(">")
		}
	}
	if t.nullable {
		sb.WriteString("?")
	}
	return sb.String()
}

// TypeList renders a comma separated list.
func TypeList(ts []*Type) string {
	parts := make([]string, len(ts))
	for i, t := range ts {
		parts[i] = t.String()
	}
	return strings.Join(parts, ", ")
}
