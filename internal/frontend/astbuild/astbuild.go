// Package astbuild constructs syntax trees in code. Every node gets its own
// single-line location so diagnostics stay distinguishable and ordered.
package astbuild

import (
	"strconv"

	"jetc/internal/frontend/ast"
	"jetc/internal/source"
	"jetc/internal/tokens"
)

// B hands out locations in one file, one line per node.
type B struct {
	file string
	line int
}

// New returns a builder for nodes of file.
func New(file string) *B {
	return &B{file: file}
}

// Loc returns the next location.
func (b *B) Loc() source.Location {
	b.line++
	return source.Span(b.file, b.line, 1, b.line, 10)
}

func (b *B) Ident(name string) *ast.Ident {
	return &ast.Ident{Name: name, Location: b.Loc()}
}

// File wraps decls in a file of package pkg.
func (b *B) File(pkg string, decls ...ast.Decl) *ast.File {
	return &ast.File{Path: b.file, Package: pkg, Decls: decls, Location: b.Loc()}
}

// Import adds an import to f. A path ending in ".*" imports everything.
func (b *B) Import(f *ast.File, path, alias string) {
	imp := &ast.Import{Path: path, Alias: alias, Location: b.Loc()}
	if n := len(path); n > 2 && path[n-2:] == ".*" {
		imp.Path, imp.All = path[:n-2], true
	}
	f.Imports = append(f.Imports, imp)
}

// Types

// Type is a user type reference with optional invariant arguments.
func (b *B) Type(name string, args ...ast.TypeNode) *ast.UserType {
	t := &ast.UserType{Name: name, Location: b.Loc()}
	for _, a := range args {
		t.Args = append(t.Args, &ast.TypeArg{Type: a, Location: b.Loc()})
	}
	return t
}

func (b *B) Nullable(t ast.TypeNode) *ast.NullableType {
	return &ast.NullableType{Inner: t, Location: b.Loc()}
}

func (b *B) FunType(recv ast.TypeNode, result ast.TypeNode, params ...ast.TypeNode) *ast.FunctionType {
	return &ast.FunctionType{Receiver: recv, Params: params, Result: result, Location: b.Loc()}
}

func (b *B) TupleType(elems ...ast.TypeNode) *ast.TupleType {
	return &ast.TupleType{Elems: elems, Location: b.Loc()}
}

func (b *B) SelfType() *ast.SelfType {
	return &ast.SelfType{Location: b.Loc()}
}

// Declarations

// Class declares an ordinary final class with an empty primary constructor.
func (b *B) Class(name string, members ...ast.Decl) *ast.ClassDecl {
	return &ast.ClassDecl{
		Kind:           ast.ClassKindClass,
		Name:           b.Ident(name),
		HasPrimaryCtor: true,
		Members:        members,
		Location:       b.Loc(),
	}
}

// Open is Class with the open modifier.
func (b *B) Open(name string, members ...ast.Decl) *ast.ClassDecl {
	c := b.Class(name, members...)
	c.Mods.Open = true
	return c
}

// Abstract is Class with the abstract modifier.
func (b *B) Abstract(name string, members ...ast.Decl) *ast.ClassDecl {
	c := b.Class(name, members...)
	c.Mods.Abstract = true
	return c
}

func (b *B) Trait(name string, members ...ast.Decl) *ast.ClassDecl {
	return &ast.ClassDecl{Kind: ast.ClassKindTrait, Name: b.Ident(name), Members: members, Location: b.Loc()}
}

func (b *B) Object(name string, members ...ast.Decl) *ast.ClassDecl {
	return &ast.ClassDecl{Kind: ast.ClassKindObject, Name: b.Ident(name), Members: members, Location: b.Loc()}
}

// Enum declares an enum class with body-less entries.
func (b *B) Enum(name string, entries []string, members ...ast.Decl) *ast.ClassDecl {
	c := &ast.ClassDecl{Kind: ast.ClassKindEnum, Name: b.Ident(name), HasPrimaryCtor: true, Members: members, Location: b.Loc()}
	for _, e := range entries {
		c.Entries = append(c.Entries, &ast.EnumEntry{Name: b.Ident(e), Location: b.Loc()})
	}
	return c
}

// Extends appends supertypes to c. Class supertypes are given as calls.
func (b *B) Extends(c *ast.ClassDecl, supers ...*ast.UserType) *ast.ClassDecl {
	for _, s := range supers {
		c.Supers = append(c.Supers, &ast.SuperEntry{Type: s, Location: b.Loc()})
	}
	return c
}

// ExtendsCall appends a superclass constructor call to c.
func (b *B) ExtendsCall(c *ast.ClassDecl, super *ast.UserType, args ...ast.Expression) *ast.ClassDecl {
	c.Supers = append(c.Supers, &ast.SuperEntry{Type: super, Args: b.args(args), Call: true, Location: b.Loc()})
	return c
}

func (b *B) TypeParam(name string, v ast.Variance, bound ast.TypeNode) *ast.TypeParam {
	return &ast.TypeParam{Name: b.Ident(name), Variance: v, Bound: bound, Location: b.Loc()}
}

func (b *B) Param(name string, t ast.TypeNode) *ast.Param {
	return &ast.Param{Name: b.Ident(name), Type: t, Location: b.Loc()}
}

// ValParam is a primary constructor parameter that declares a property.
func (b *B) ValParam(name string, t ast.TypeNode, mutable bool) *ast.Param {
	p := b.Param(name, t)
	p.Binding = ast.ParamVal
	if mutable {
		p.Binding = ast.ParamVar
	}
	return p
}

// Fun declares a function with a block body built from stmts.
func (b *B) Fun(name string, params []*ast.Param, result ast.TypeNode, stmts ...ast.Node) *ast.FunDecl {
	return &ast.FunDecl{Name: b.Ident(name), Params: params, Result: result, Body: b.Block(stmts...), Location: b.Loc()}
}

// ExprFun declares `fun name(params): result = body`; result may be nil.
func (b *B) ExprFun(name string, params []*ast.Param, result ast.TypeNode, body ast.Expression) *ast.FunDecl {
	return &ast.FunDecl{Name: b.Ident(name), Params: params, Result: result, Body: body, ExprBody: true, Location: b.Loc()}
}

// AbstractFun declares a function without a body.
func (b *B) AbstractFun(name string, params []*ast.Param, result ast.TypeNode) *ast.FunDecl {
	f := &ast.FunDecl{Name: b.Ident(name), Params: params, Result: result, Location: b.Loc()}
	f.Mods.Abstract = true
	return f
}

// Override sets the override modifier on a function or property.
func Override[T ast.Decl](d T) T {
	switch d := any(d).(type) {
	case *ast.FunDecl:
		d.Mods.Override = true
	case *ast.PropertyDecl:
		d.Mods.Override = true
	case *ast.Param:
		d.Mods.Override = true
	}
	return d
}

// OpenMember sets the open modifier on a function or property.
func OpenMember[T ast.Decl](d T) T {
	switch d := any(d).(type) {
	case *ast.FunDecl:
		d.Mods.Open = true
	case *ast.PropertyDecl:
		d.Mods.Open = true
	}
	return d
}

func (b *B) Val(name string, t ast.TypeNode, init ast.Expression) *ast.PropertyDecl {
	return &ast.PropertyDecl{Name: b.Ident(name), Type: t, Init: init, Location: b.Loc()}
}

func (b *B) Var(name string, t ast.TypeNode, init ast.Expression) *ast.PropertyDecl {
	p := b.Val(name, t, init)
	p.Var = true
	return p
}

// Expressions

func (b *B) Int(v int) *ast.Literal {
	return &ast.Literal{Kind: ast.INT, Value: strconv.Itoa(v), Location: b.Loc()}
}

func (b *B) Long(v int64) *ast.Literal {
	return &ast.Literal{Kind: ast.LONG, Value: strconv.FormatInt(v, 10), Location: b.Loc()}
}

func (b *B) Double(v string) *ast.Literal {
	return &ast.Literal{Kind: ast.DOUBLE, Value: v, Location: b.Loc()}
}

func (b *B) Str(v string) *ast.Literal {
	return &ast.Literal{Kind: ast.STRING, Value: v, Location: b.Loc()}
}

func (b *B) Char(v rune) *ast.Literal {
	return &ast.Literal{Kind: ast.CHAR, Value: string(v), Location: b.Loc()}
}

func (b *B) Bool(v bool) *ast.Literal {
	return &ast.Literal{Kind: ast.BOOL, Value: strconv.FormatBool(v), Location: b.Loc()}
}

func (b *B) Null() *ast.Literal {
	return &ast.Literal{Kind: ast.NULL, Value: "null", Location: b.Loc()}
}

func (b *B) Name(n string) *ast.NameExpr {
	return &ast.NameExpr{Name: n, Location: b.Loc()}
}

func (b *B) This(label string) *ast.ThisExpr {
	return &ast.ThisExpr{Label: label, Location: b.Loc()}
}

func (b *B) Bin(x ast.Expression, op tokens.TOKEN, y ast.Expression) *ast.BinaryExpr {
	return &ast.BinaryExpr{X: x, Op: b.tok(op), Y: y, Location: b.Loc()}
}

func (b *B) Unary(op tokens.TOKEN, x ast.Expression) *ast.UnaryExpr {
	return &ast.UnaryExpr{Op: b.tok(op), X: x, Location: b.Loc()}
}

func (b *B) Postfix(x ast.Expression, op tokens.TOKEN) *ast.PostfixExpr {
	return &ast.PostfixExpr{X: x, Op: b.tok(op), Location: b.Loc()}
}

func (b *B) Assign(target ast.Expression, op tokens.TOKEN, v ast.Expression) *ast.AssignExpr {
	return &ast.AssignExpr{Target: target, Op: b.tok(op), Value: v, Location: b.Loc()}
}

func (b *B) Is(x ast.Expression, t ast.TypeNode, negated bool) *ast.IsExpr {
	return &ast.IsExpr{X: x, Type: t, Negated: negated, Location: b.Loc()}
}

func (b *B) As(x ast.Expression, t ast.TypeNode, safe bool) *ast.CastExpr {
	return &ast.CastExpr{X: x, Type: t, Safe: safe, Location: b.Loc()}
}

func (b *B) tok(k tokens.TOKEN) tokens.Token {
	return tokens.Token{Kind: k, Location: b.Loc()}
}

func (b *B) args(vals []ast.Expression) []*ast.Argument {
	out := make([]*ast.Argument, len(vals))
	for i, v := range vals {
		out[i] = &ast.Argument{Value: v, Location: b.Loc()}
	}
	return out
}

// Call calls a function by simple name.
func (b *B) Call(name string, args ...ast.Expression) *ast.CallExpr {
	return &ast.CallExpr{Callee: b.Name(name), Args: b.args(args), Location: b.Loc()}
}

// CallT calls a function by simple name with explicit type arguments.
func (b *B) CallT(name string, typeArgs []ast.TypeNode, args ...ast.Expression) *ast.CallExpr {
	c := b.Call(name, args...)
	c.TypeArgs = typeArgs
	return c
}

// Invoke calls an arbitrary expression.
func (b *B) Invoke(callee ast.Expression, args ...ast.Expression) *ast.CallExpr {
	return &ast.CallExpr{Callee: callee, Args: b.args(args), Location: b.Loc()}
}

// Dot is `recv.name`.
func (b *B) Dot(recv ast.Expression, name string) *ast.QualifiedExpr {
	return &ast.QualifiedExpr{Receiver: recv, Selector: b.Name(name), Location: b.Loc()}
}

// SafeDot is `recv?.name`.
func (b *B) SafeDot(recv ast.Expression, name string) *ast.QualifiedExpr {
	q := b.Dot(recv, name)
	q.Safe = true
	return q
}

// Method is `recv.name(args)`.
func (b *B) Method(recv ast.Expression, name string, args ...ast.Expression) *ast.QualifiedExpr {
	return &ast.QualifiedExpr{Receiver: recv, Selector: b.Call(name, args...), Location: b.Loc()}
}

func (b *B) Index(x ast.Expression, idx ...ast.Expression) *ast.IndexExpr {
	return &ast.IndexExpr{X: x, Indices: idx, Location: b.Loc()}
}

func (b *B) Tuple(elems ...ast.Expression) *ast.TupleExpr {
	return &ast.TupleExpr{Elems: elems, Location: b.Loc()}
}

func (b *B) Lambda(params []*ast.Param, stmts ...ast.Node) *ast.FunctionLiteral {
	return &ast.FunctionLiteral{Params: params, Body: b.Block(stmts...), Location: b.Loc()}
}

func (b *B) ObjectLit(decl *ast.ClassDecl) *ast.ObjectLiteral {
	decl.Name = nil
	return &ast.ObjectLiteral{Decl: decl, Location: b.Loc()}
}

func (b *B) Block(stmts ...ast.Node) *ast.Block {
	return &ast.Block{Stmts: stmts, Location: b.Loc()}
}

func (b *B) If(cond, then, els ast.Expression) *ast.IfExpr {
	return &ast.IfExpr{Cond: cond, Then: then, Else: els, Location: b.Loc()}
}

func (b *B) When(subject ast.Expression, entries ...*ast.WhenEntry) *ast.WhenExpr {
	return &ast.WhenExpr{Subject: subject, Entries: entries, Location: b.Loc()}
}

// WhenValue is a branch matching any of vals.
func (b *B) WhenValue(body ast.Expression, vals ...ast.Expression) *ast.WhenEntry {
	e := &ast.WhenEntry{Body: body, Location: b.Loc()}
	for _, v := range vals {
		e.Conds = append(e.Conds, &ast.WhenValueCond{Value: v, Location: b.Loc()})
	}
	return e
}

func (b *B) WhenElse(body ast.Expression) *ast.WhenEntry {
	return &ast.WhenEntry{Else: true, Body: body, Location: b.Loc()}
}

func (b *B) While(cond ast.Expression, stmts ...ast.Node) *ast.WhileExpr {
	return &ast.WhileExpr{Cond: cond, Body: b.Block(stmts...), Location: b.Loc()}
}

func (b *B) DoWhile(cond ast.Expression, stmts ...ast.Node) *ast.DoWhileExpr {
	return &ast.DoWhileExpr{Body: b.Block(stmts...), Cond: cond, Location: b.Loc()}
}

func (b *B) For(name string, iterable ast.Expression, stmts ...ast.Node) *ast.ForExpr {
	return &ast.ForExpr{Var: b.Param(name, nil), Iterable: iterable, Body: b.Block(stmts...), Location: b.Loc()}
}

func (b *B) Labeled(label string, body ast.Expression) *ast.LabeledExpr {
	return &ast.LabeledExpr{Label: label, Body: body, Location: b.Loc()}
}

func (b *B) Break(label string) *ast.BreakExpr {
	return &ast.BreakExpr{Label: label, Location: b.Loc()}
}

func (b *B) Continue(label string) *ast.ContinueExpr {
	return &ast.ContinueExpr{Label: label, Location: b.Loc()}
}

func (b *B) Return(v ast.Expression) *ast.ReturnExpr {
	return &ast.ReturnExpr{Value: v, Location: b.Loc()}
}

func (b *B) ReturnAt(label string, v ast.Expression) *ast.ReturnExpr {
	return &ast.ReturnExpr{Label: label, Value: v, Location: b.Loc()}
}

func (b *B) Throw(x ast.Expression) *ast.ThrowExpr {
	return &ast.ThrowExpr{X: x, Location: b.Loc()}
}

// Try builds try/catch/finally; finally may be nil.
func (b *B) Try(body *ast.Block, finally *ast.Block, catches ...*ast.CatchClause) *ast.TryExpr {
	return &ast.TryExpr{Body: body, Catches: catches, Finally: finally, Location: b.Loc()}
}

func (b *B) Catch(name string, t ast.TypeNode, stmts ...ast.Node) *ast.CatchClause {
	return &ast.CatchClause{Param: b.Param(name, t), Body: b.Block(stmts...), Location: b.Loc()}
}
