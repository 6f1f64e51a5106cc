package ast

import (
	"jetc/internal/source"
)

// Variance of a declared type parameter.
type Variance int

const (
	Invariant Variance = iota
	In
	Out
)

// Projection is the use-site modifier of a type argument.
type Projection int

const (
	ProjectionNone Projection = iota
	ProjectionIn
	ProjectionOut
	ProjectionStar
)

// UserType is a (possibly qualified) class or type parameter reference.
type UserType struct {
	Name string
	Args []*TypeArg
	source.Location
}

func (u *UserType) INode()                {}
func (u *UserType) TypeExpr()             {}
func (u *UserType) Loc() *source.Location { return &u.Location }

// TypeArg is one argument of a UserType. Type is nil for `*`.
type TypeArg struct {
	Projection Projection
	Type       TypeNode
	source.Location
}

func (t *TypeArg) INode()                {}
func (t *TypeArg) Loc() *source.Location { return &t.Location }

// NullableType represents `T?`.
type NullableType struct {
	Inner TypeNode
	source.Location
}

func (n *NullableType) INode()                {}
func (n *NullableType) TypeExpr()             {}
func (n *NullableType) Loc() *source.Location { return &n.Location }

// FunctionType represents `(A, B) -> R` and `R.(A) -> R`.
type FunctionType struct {
	Receiver TypeNode
	Params   []TypeNode
	Result   TypeNode
	source.Location
}

func (f *FunctionType) INode()                {}
func (f *FunctionType) TypeExpr()             {}
func (f *FunctionType) Loc() *source.Location { return &f.Location }

// TupleType represents `#(A, B)`.
type TupleType struct {
	Elems []TypeNode
	source.Location
}

func (t *TupleType) INode()                {}
func (t *TupleType) TypeExpr()             {}
func (t *TupleType) Loc() *source.Location { return &t.Location }

// SelfType represents `This`, the runtime type of the receiver.
type SelfType struct {
	source.Location
}

func (s *SelfType) INode()                {}
func (s *SelfType) TypeExpr()             {}
func (s *SelfType) Loc() *source.Location { return &s.Location }
