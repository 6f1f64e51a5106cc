package ast

import (
	"jetc/internal/source"
)

// Block is a braced sequence of statements. Each statement is an
// Expression or a local Decl; the value of the block is its last expression.
type Block struct {
	Stmts []Node
	source.Location
}

func (b *Block) INode()                {}
func (b *Block) Expr()                 {}
func (b *Block) Loc() *source.Location { return &b.Location }

// IfExpr represents `if (cond) then else other`; Else may be nil.
type IfExpr struct {
	Cond Expression
	Then Expression
	Else Expression
	source.Location
}

func (i *IfExpr) INode()                {}
func (i *IfExpr) Expr()                 {}
func (i *IfExpr) Loc() *source.Location { return &i.Location }

// WhenExpr is `when (subject) { ... }`; Subject may be nil.
type WhenExpr struct {
	Subject Expression
	Entries []*WhenEntry
	source.Location
}

func (w *WhenExpr) INode()                {}
func (w *WhenExpr) Expr()                 {}
func (w *WhenExpr) Loc() *source.Location { return &w.Location }

// WhenEntry is `c1, c2 -> body` or `else -> body`.
type WhenEntry struct {
	Conds []WhenCond
	Else  bool
	Body  Expression
	source.Location
}

func (w *WhenEntry) INode()                {}
func (w *WhenEntry) Loc() *source.Location { return &w.Location }

// WhenCond is a closed set of `when` branch conditions.
type WhenCond interface {
	Node
	whenCond()
}

// WhenValueCond matches when the subject equals Value, or when Value is true
// for subject-less `when`.
type WhenValueCond struct {
	Value Expression
	source.Location
}

func (w *WhenValueCond) INode()                {}
func (w *WhenValueCond) whenCond()             {}
func (w *WhenValueCond) Loc() *source.Location { return &w.Location }

// WhenIsCond is `is T` / `!is T`.
type WhenIsCond struct {
	Type    TypeNode
	Negated bool
	source.Location
}

func (w *WhenIsCond) INode()                {}
func (w *WhenIsCond) whenCond()             {}
func (w *WhenIsCond) Loc() *source.Location { return &w.Location }

// WhileExpr represents `while (cond) body`.
type WhileExpr struct {
	Cond Expression
	Body Expression
	source.Location
}

func (w *WhileExpr) INode()                {}
func (w *WhileExpr) Expr()                 {}
func (w *WhileExpr) Loc() *source.Location { return &w.Location }

// DoWhileExpr represents `do body while (cond)`.
type DoWhileExpr struct {
	Body Expression
	Cond Expression
	source.Location
}

func (d *DoWhileExpr) INode()                {}
func (d *DoWhileExpr) Expr()                 {}
func (d *DoWhileExpr) Loc() *source.Location { return &d.Location }

// ForExpr represents `for (v in iterable) body`.
type ForExpr struct {
	Var      *Param
	Iterable Expression
	Body     Expression
	source.Location
}

func (f *ForExpr) INode()                {}
func (f *ForExpr) Expr()                 {}
func (f *ForExpr) Loc() *source.Location { return &f.Location }

// LabeledExpr is `label@ body`.
type LabeledExpr struct {
	Label string
	Body  Expression
	source.Location
}

func (l *LabeledExpr) INode()                {}
func (l *LabeledExpr) Expr()                 {}
func (l *LabeledExpr) Loc() *source.Location { return &l.Location }

// BreakExpr is `break` or `break@label`.
type BreakExpr struct {
	Label string
	source.Location
}

func (b *BreakExpr) INode()                {}
func (b *BreakExpr) Expr()                 {}
func (b *BreakExpr) Loc() *source.Location { return &b.Location }

// ContinueExpr is `continue` or `continue@label`.
type ContinueExpr struct {
	Label string
	source.Location
}

func (c *ContinueExpr) INode()                {}
func (c *ContinueExpr) Expr()                 {}
func (c *ContinueExpr) Loc() *source.Location { return &c.Location }

// ReturnExpr is `return`, `return value` or `return@label value`.
type ReturnExpr struct {
	Label string
	Value Expression
	source.Location
}

func (r *ReturnExpr) INode()                {}
func (r *ReturnExpr) Expr()                 {}
func (r *ReturnExpr) Loc() *source.Location { return &r.Location }

// ThrowExpr is `throw x`.
type ThrowExpr struct {
	X Expression
	source.Location
}

func (t *ThrowExpr) INode()                {}
func (t *ThrowExpr) Expr()                 {}
func (t *ThrowExpr) Loc() *source.Location { return &t.Location }

// TryExpr is try with any number of catch clauses and an optional finally.
type TryExpr struct {
	Body    *Block
	Catches []*CatchClause
	Finally *Block
	source.Location
}

func (t *TryExpr) INode()                {}
func (t *TryExpr) Expr()                 {}
func (t *TryExpr) Loc() *source.Location { return &t.Location }

// CatchClause is `catch (e: T) { ... }`.
type CatchClause struct {
	Param *Param
	Body  *Block
	source.Location
}

func (c *CatchClause) INode()                {}
func (c *CatchClause) Loc() *source.Location { return &c.Location }
