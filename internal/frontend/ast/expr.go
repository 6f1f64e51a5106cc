package ast

import (
	"jetc/internal/source"
	"jetc/internal/tokens"
)

// LitKind is the kind of a literal constant.
type LitKind int

const (
	INT LitKind = iota
	LONG
	DOUBLE
	FLOAT
	CHAR
	STRING
	BOOL
	NULL
)

// Literal represents a constant, Value holds the source text without suffixes or quotes.
type Literal struct {
	Kind  LitKind
	Value string
	source.Location
}

func (l *Literal) INode()                {}
func (l *Literal) Expr()                 {}
func (l *Literal) Loc() *source.Location { return &l.Location }

// NameExpr is a simple name reference.
type NameExpr struct {
	Name string
	source.Location
}

func (n *NameExpr) INode()                {}
func (n *NameExpr) Expr()                 {}
func (n *NameExpr) Loc() *source.Location { return &n.Location }

// ThisExpr is `this` or `this@Label`.
type ThisExpr struct {
	Label string
	source.Location
}

func (t *ThisExpr) INode()                {}
func (t *ThisExpr) Expr()                 {}
func (t *ThisExpr) Loc() *source.Location { return &t.Location }

// BinaryExpr represents a binary expression
type BinaryExpr struct {
	X  Expression   // left operand
	Op tokens.Token // operator
	Y  Expression   // right operand
	source.Location
}

func (b *BinaryExpr) INode()                {}
func (b *BinaryExpr) Expr()                 {}
func (b *BinaryExpr) Loc() *source.Location { return &b.Location }

// UnaryExpr represents a prefix expression: -x, +x, !x, ++x, --x
type UnaryExpr struct {
	Op tokens.Token
	X  Expression
	source.Location
}

func (u *UnaryExpr) INode()                {}
func (u *UnaryExpr) Expr()                 {}
func (u *UnaryExpr) Loc() *source.Location { return &u.Location }

// PostfixExpr represents x++, x-- and x!!
type PostfixExpr struct {
	X  Expression
	Op tokens.Token
	source.Location
}

func (p *PostfixExpr) INode()                {}
func (p *PostfixExpr) Expr()                 {}
func (p *PostfixExpr) Loc() *source.Location { return &p.Location }

// AssignExpr is `target = value` or a compound assignment.
type AssignExpr struct {
	Target Expression
	Op     tokens.Token
	Value  Expression
	source.Location
}

func (a *AssignExpr) INode()                {}
func (a *AssignExpr) Expr()                 {}
func (a *AssignExpr) Loc() *source.Location { return &a.Location }

// IsExpr is `x is T` / `x !is T`.
type IsExpr struct {
	X       Expression
	Type    TypeNode
	Negated bool
	source.Location
}

func (i *IsExpr) INode()                {}
func (i *IsExpr) Expr()                 {}
func (i *IsExpr) Loc() *source.Location { return &i.Location }

// CastExpr is `x as T` / `x as? T`.
type CastExpr struct {
	X    Expression
	Type TypeNode
	Safe bool
	source.Location
}

func (c *CastExpr) INode()                {}
func (c *CastExpr) Expr()                 {}
func (c *CastExpr) Loc() *source.Location { return &c.Location }

// Argument is a value argument of a call, optionally named.
type Argument struct {
	Name  string
	Value Expression
	source.Location
}

func (a *Argument) INode()                {}
func (a *Argument) Loc() *source.Location { return &a.Location }

// CallExpr represents a function call expression. Callee is a NameExpr for
// ordinary calls and any expression for invocations of function values.
type CallExpr struct {
	Callee   Expression
	TypeArgs []TypeNode
	Args     []*Argument
	source.Location
}

func (c *CallExpr) INode()                {}
func (c *CallExpr) Expr()                 {}
func (c *CallExpr) Loc() *source.Location { return &c.Location }

// QualifiedExpr is `receiver.selector` or `receiver?.selector` where the
// selector is a NameExpr or a CallExpr.
type QualifiedExpr struct {
	Receiver Expression
	Selector Expression
	Safe     bool
	source.Location
}

func (q *QualifiedExpr) INode()                {}
func (q *QualifiedExpr) Expr()                 {}
func (q *QualifiedExpr) Loc() *source.Location { return &q.Location }

// IndexExpr is `x[i]`.
type IndexExpr struct {
	X       Expression
	Indices []Expression
	source.Location
}

func (i *IndexExpr) INode()                {}
func (i *IndexExpr) Expr()                 {}
func (i *IndexExpr) Loc() *source.Location { return &i.Location }

// TupleExpr is `#(a, b)`.
type TupleExpr struct {
	Elems []Expression
	source.Location
}

func (t *TupleExpr) INode()                {}
func (t *TupleExpr) Expr()                 {}
func (t *TupleExpr) Loc() *source.Location { return &t.Location }

// FunctionLiteral is `{ a: Int -> body }`. Params with nil Type take their
// type from the expected function type.
type FunctionLiteral struct {
	Params []*Param
	Body   *Block
	source.Location
}

func (f *FunctionLiteral) INode()                {}
func (f *FunctionLiteral) Expr()                 {}
func (f *FunctionLiteral) Loc() *source.Location { return &f.Location }

// ObjectLiteral is `object : Base() { ... }`.
type ObjectLiteral struct {
	Decl *ClassDecl
	source.Location
}

func (o *ObjectLiteral) INode()                {}
func (o *ObjectLiteral) Expr()                 {}
func (o *ObjectLiteral) Loc() *source.Location { return &o.Location }
