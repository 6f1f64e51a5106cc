// Package ast defines the syntax tree the semantic core consumes.
//
// The tree is produced by the parser collaborator (or decoded by treeio) and
// is never mutated by later phases: everything the compiler learns about a
// node lives in the binding store, keyed by the node pointer.
package ast

import (
	"jetc/internal/source"
)

// Node is the base interface for all AST nodes
type Node interface {
	INode()
	Loc() *source.Location
}

// Expression represents any node that produces a value. Jet is
// expression-oriented: if, when, try and blocks are expressions too.
type Expression interface {
	Node
	Expr()
}

// TypeNode represents a type in the AST (for use in declarations, annotations, etc.)
// This is separate from Expression to maintain clean separation between values and types
type TypeNode interface {
	Node
	TypeExpr()
}

// Decl represents a declaration (class, fun, property, parameter, ...)
type Decl interface {
	Node
	Decl()
}

// Ident is a declared name.
type Ident struct {
	Name string
	source.Location
}

func (i *Ident) INode()                {}
func (i *Ident) Loc() *source.Location { return &i.Location }
