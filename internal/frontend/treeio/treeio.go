// Package treeio reads syntax trees exported by the parser as JSON.
//
// Every node has the same shape:
//
//	{"kind": "binary", "span": [3, 5, 3, 10], "attrs": {"op": ">"},
//	 "children": {"x": [...], "y": [...]}}
//
// span is [line, column, endLine, endColumn] and may be omitted. children maps
// a role to its nodes; roles holding a single node use a one-element list.
package treeio

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"

	"jetc/internal/frontend/ast"
	"jetc/internal/source"
	"jetc/internal/tokens"
)

// Node is the interchange form of one syntax node.
type Node struct {
	Kind     string             `json:"kind"`
	Span     []int              `json:"span,omitempty"`
	Attrs    map[string]any     `json:"attrs,omitempty"`
	Children map[string][]*Node `json:"children,omitempty"`
}

// ReadFile decodes the tree stored at path.
func ReadFile(path string) (*ast.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open syntax tree")
	}
	defer f.Close()
	file, err := Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	return file, nil
}

// Decode reads one file node from r.
func Decode(r io.Reader) (*ast.File, error) {
	var root Node
	if err := json.NewDecoder(r).Decode(&root); err != nil {
		return nil, errors.Wrap(err, "malformed syntax tree")
	}
	return Convert(&root)
}

// Convert turns a decoded file node into an ast.File.
func Convert(root *Node) (*ast.File, error) {
	if root.Kind != "file" {
		return nil, errors.Errorf("root node is %q, want \"file\"", root.Kind)
	}
	d := &decoder{path: root.str("path")}
	f := d.file(root)
	if d.err != nil {
		return nil, d.err
	}
	return f, nil
}

type decoder struct {
	path string
	err  error
}

func (d *decoder) fail(n *Node, format string, args ...any) {
	if d.err != nil {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if len(n.Span) >= 2 {
		msg = fmt.Sprintf("%d:%d: %s", n.Span[0], n.Span[1], msg)
	}
	d.err = errors.New(msg)
}

func (d *decoder) loc(n *Node) source.Location {
	if len(n.Span) != 4 {
		return source.Location{Filename: &d.path}
	}
	return source.Span(d.path, n.Span[0], n.Span[1], n.Span[2], n.Span[3])
}

func (n *Node) str(name string) string {
	s, _ := n.Attrs[name].(string)
	return s
}

func (n *Node) flag(name string) bool {
	b, _ := n.Attrs[name].(bool)
	return b
}

// one returns the only child in role, or nil.
func (n *Node) one(role string) *Node {
	if cs := n.Children[role]; len(cs) > 0 {
		return cs[0]
	}
	return nil
}

func (d *decoder) ident(n *Node) *ast.Ident {
	name := n.str("name")
	if name == "" {
		d.fail(n, "%s without a name", n.Kind)
	}
	return &ast.Ident{Name: name, Location: d.loc(n)}
}

func (d *decoder) file(n *Node) *ast.File {
	f := &ast.File{Path: d.path, Package: n.str("package"), Location: d.loc(n)}
	for _, c := range n.Children["imports"] {
		f.Imports = append(f.Imports, &ast.Import{
			Path:     c.str("path"),
			Alias:    c.str("alias"),
			All:      c.flag("all"),
			Location: d.loc(c),
		})
	}
	f.Decls = d.decls(n.Children["decls"])
	return f
}

func (d *decoder) mods(n *Node) ast.Modifiers {
	m := ast.Modifiers{
		Open:     n.flag("open"),
		Abstract: n.flag("abstract"),
		Final:    n.flag("final"),
		Override: n.flag("override"),
	}
	switch v := n.str("visibility"); v {
	case "":
	case "public":
		m.Visibility = ast.VisibilityPublic
	case "internal":
		m.Visibility = ast.VisibilityInternal
	case "protected":
		m.Visibility = ast.VisibilityProtected
	case "private":
		m.Visibility = ast.VisibilityPrivate
	default:
		d.fail(n, "unknown visibility %q", v)
	}
	return m
}

func (d *decoder) decls(ns []*Node) []ast.Decl {
	var out []ast.Decl
	for _, c := range ns {
		if decl := d.decl(c); decl != nil {
			out = append(out, decl)
		}
	}
	return out
}

func (d *decoder) decl(n *Node) ast.Decl {
	switch n.Kind {
	case "class":
		return d.class(n)
	case "fun":
		return d.fun(n)
	case "property":
		return d.property(n)
	case "init":
		return &ast.Initializer{Body: d.block(n.one("body")), Location: d.loc(n)}
	}
	d.fail(n, "unexpected %q in declaration position", n.Kind)
	return nil
}

func (d *decoder) class(n *Node) *ast.ClassDecl {
	c := &ast.ClassDecl{
		Mods:           d.mods(n),
		HasPrimaryCtor: n.flag("primaryCtor"),
		Location:       d.loc(n),
	}
	switch k := n.str("classKind"); k {
	case "", "class":
		c.Kind = ast.ClassKindClass
	case "trait":
		c.Kind = ast.ClassKindTrait
	case "enum":
		c.Kind = ast.ClassKindEnum
	case "object":
		c.Kind = ast.ClassKindObject
	default:
		d.fail(n, "unknown class kind %q", k)
	}
	if n.str("name") != "" {
		c.Name = d.ident(n)
	}
	c.TypeParams = d.typeParams(n.Children["typeParams"])
	c.Params = d.params(n.Children["params"])
	for _, s := range n.Children["supers"] {
		ut, _ := d.typ(s.one("type")).(*ast.UserType)
		if ut == nil {
			d.fail(s, "supertype is not a class type")
			continue
		}
		c.Supers = append(c.Supers, &ast.SuperEntry{
			Type:     ut,
			Args:     d.args(s.Children["args"]),
			Call:     s.flag("call"),
			Location: d.loc(s),
		})
	}
	c.Members = d.decls(n.Children["members"])
	for _, e := range n.Children["entries"] {
		c.Entries = append(c.Entries, &ast.EnumEntry{
			Name:     d.ident(e),
			Args:     d.args(e.Children["args"]),
			Members:  d.decls(e.Children["members"]),
			Location: d.loc(e),
		})
	}
	return c
}

func (d *decoder) typeParams(ns []*Node) []*ast.TypeParam {
	var out []*ast.TypeParam
	for _, c := range ns {
		tp := &ast.TypeParam{Name: d.ident(c), Location: d.loc(c)}
		switch v := c.str("variance"); v {
		case "":
		case "in":
			tp.Variance = ast.In
		case "out":
			tp.Variance = ast.Out
		default:
			d.fail(c, "unknown variance %q", v)
		}
		if b := c.one("bound"); b != nil {
			tp.Bound = d.typ(b)
		}
		out = append(out, tp)
	}
	return out
}

func (d *decoder) param(n *Node) *ast.Param {
	p := &ast.Param{Mods: d.mods(n), Name: d.ident(n), Location: d.loc(n)}
	switch b := n.str("binding"); b {
	case "":
	case "val":
		p.Binding = ast.ParamVal
	case "var":
		p.Binding = ast.ParamVar
	default:
		d.fail(n, "unknown parameter binding %q", b)
	}
	if t := n.one("type"); t != nil {
		p.Type = d.typ(t)
	}
	if v := n.one("default"); v != nil {
		p.Default = d.expr(v)
	}
	return p
}

func (d *decoder) params(ns []*Node) []*ast.Param {
	var out []*ast.Param
	for _, c := range ns {
		out = append(out, d.param(c))
	}
	return out
}

func (d *decoder) fun(n *Node) *ast.FunDecl {
	f := &ast.FunDecl{
		Mods:       d.mods(n),
		TypeParams: d.typeParams(n.Children["typeParams"]),
		Name:       d.ident(n),
		Params:     d.params(n.Children["params"]),
		ExprBody:   n.flag("exprBody"),
		Location:   d.loc(n),
	}
	if r := n.one("receiver"); r != nil {
		f.Receiver = d.typ(r)
	}
	if r := n.one("result"); r != nil {
		f.Result = d.typ(r)
	}
	if b := n.one("body"); b != nil {
		f.Body = d.expr(b)
	}
	return f
}

func (d *decoder) property(n *Node) *ast.PropertyDecl {
	p := &ast.PropertyDecl{Mods: d.mods(n), Var: n.flag("var"), Name: d.ident(n), Location: d.loc(n)}
	if t := n.one("type"); t != nil {
		p.Type = d.typ(t)
	}
	if v := n.one("init"); v != nil {
		p.Init = d.expr(v)
	}
	if g := n.one("getter"); g != nil {
		p.Getter = d.accessor(g)
	}
	if s := n.one("setter"); s != nil {
		p.Setter = d.accessor(s)
	}
	return p
}

func (d *decoder) accessor(n *Node) *ast.Accessor {
	a := &ast.Accessor{ExprBody: n.flag("exprBody"), Location: d.loc(n)}
	if p := n.one("param"); p != nil {
		a.Param = d.param(p)
	}
	if b := n.one("body"); b != nil {
		a.Body = d.expr(b)
	}
	return a
}

func (d *decoder) types(ns []*Node) []ast.TypeNode {
	var out []ast.TypeNode
	for _, c := range ns {
		out = append(out, d.typ(c))
	}
	return out
}

func (d *decoder) typ(n *Node) ast.TypeNode {
	if n == nil {
		return nil
	}
	switch n.Kind {
	case "userType":
		ut := &ast.UserType{Name: n.str("name"), Location: d.loc(n)}
		for _, a := range n.Children["args"] {
			ta := &ast.TypeArg{Location: d.loc(a)}
			switch p := a.str("projection"); p {
			case "":
			case "in":
				ta.Projection = ast.ProjectionIn
			case "out":
				ta.Projection = ast.ProjectionOut
			case "*":
				ta.Projection = ast.ProjectionStar
			default:
				d.fail(a, "unknown projection %q", p)
			}
			if ta.Projection != ast.ProjectionStar {
				ta.Type = d.typ(a.one("type"))
			}
			ut.Args = append(ut.Args, ta)
		}
		return ut
	case "nullable":
		return &ast.NullableType{Inner: d.typ(n.one("inner")), Location: d.loc(n)}
	case "functionType":
		ft := &ast.FunctionType{Params: d.types(n.Children["params"]), Result: d.typ(n.one("result")), Location: d.loc(n)}
		if r := n.one("receiver"); r != nil {
			ft.Receiver = d.typ(r)
		}
		return ft
	case "tupleType":
		return &ast.TupleType{Elems: d.types(n.Children["elems"]), Location: d.loc(n)}
	case "selfType":
		return &ast.SelfType{Location: d.loc(n)}
	}
	d.fail(n, "unexpected %q in type position", n.Kind)
	return nil
}

func (d *decoder) args(ns []*Node) []*ast.Argument {
	var out []*ast.Argument
	for _, c := range ns {
		out = append(out, &ast.Argument{Name: c.str("name"), Value: d.expr(c.one("value")), Location: d.loc(c)})
	}
	return out
}

func (d *decoder) exprs(ns []*Node) []ast.Expression {
	var out []ast.Expression
	for _, c := range ns {
		out = append(out, d.expr(c))
	}
	return out
}

func (d *decoder) op(n *Node) tokens.Token {
	op := n.str("op")
	if op == "" {
		d.fail(n, "%s without an operator", n.Kind)
	}
	return tokens.Token{Kind: tokens.TOKEN(op), Location: d.loc(n)}
}

var literals = map[string]ast.LitKind{
	"int":    ast.INT,
	"long":   ast.LONG,
	"double": ast.DOUBLE,
	"float":  ast.FLOAT,
	"char":   ast.CHAR,
	"string": ast.STRING,
	"bool":   ast.BOOL,
	"null":   ast.NULL,
}

func (d *decoder) block(n *Node) *ast.Block {
	if n == nil {
		return nil
	}
	if n.Kind != "block" {
		d.fail(n, "expected a block, got %q", n.Kind)
		return nil
	}
	b := &ast.Block{Location: d.loc(n)}
	for _, s := range n.Children["stmts"] {
		switch s.Kind {
		case "class", "fun", "property":
			if decl := d.decl(s); decl != nil {
				b.Stmts = append(b.Stmts, decl)
			}
		default:
			if e := d.expr(s); e != nil {
				b.Stmts = append(b.Stmts, e)
			}
		}
	}
	return b
}

// expr decodes an expression. A missing operand yields nil and an error.
func (d *decoder) expr(n *Node) ast.Expression {
	if n == nil {
		if d.err == nil {
			d.err = errors.Wrap(errMissing, "expression")
		}
		return nil
	}
	loc := d.loc(n)
	switch n.Kind {
	case "literal":
		k, ok := literals[n.str("litKind")]
		if !ok {
			d.fail(n, "unknown literal kind %q", n.str("litKind"))
		}
		return &ast.Literal{Kind: k, Value: n.str("value"), Location: loc}
	case "name":
		return &ast.NameExpr{Name: n.str("name"), Location: loc}
	case "this":
		return &ast.ThisExpr{Label: n.str("label"), Location: loc}
	case "binary":
		return &ast.BinaryExpr{X: d.expr(n.one("x")), Op: d.op(n), Y: d.expr(n.one("y")), Location: loc}
	case "unary":
		return &ast.UnaryExpr{Op: d.op(n), X: d.expr(n.one("x")), Location: loc}
	case "postfix":
		return &ast.PostfixExpr{X: d.expr(n.one("x")), Op: d.op(n), Location: loc}
	case "assign":
		return &ast.AssignExpr{Target: d.expr(n.one("target")), Op: d.op(n), Value: d.expr(n.one("value")), Location: loc}
	case "is":
		return &ast.IsExpr{X: d.expr(n.one("x")), Type: d.typ(n.one("type")), Negated: n.flag("negated"), Location: loc}
	case "as":
		return &ast.CastExpr{X: d.expr(n.one("x")), Type: d.typ(n.one("type")), Safe: n.flag("safe"), Location: loc}
	case "call":
		return &ast.CallExpr{
			Callee:   d.expr(n.one("callee")),
			TypeArgs: d.types(n.Children["typeArgs"]),
			Args:     d.args(n.Children["args"]),
			Location: loc,
		}
	case "qualified":
		return &ast.QualifiedExpr{Receiver: d.expr(n.one("receiver")), Selector: d.expr(n.one("selector")), Safe: n.flag("safe"), Location: loc}
	case "index":
		return &ast.IndexExpr{X: d.expr(n.one("x")), Indices: d.exprs(n.Children["indices"]), Location: loc}
	case "tuple":
		return &ast.TupleExpr{Elems: d.exprs(n.Children["elems"]), Location: loc}
	case "lambda":
		body := d.block(n.one("body"))
		if body == nil {
			body = &ast.Block{Location: loc}
		}
		return &ast.FunctionLiteral{Params: d.params(n.Children["params"]), Body: body, Location: loc}
	case "objectLiteral":
		c := n.one("decl")
		if c == nil || c.Kind != "class" {
			d.fail(n, "object literal without a class body")
			return nil
		}
		return &ast.ObjectLiteral{Decl: d.class(c), Location: loc}
	case "block":
		return d.block(n)
	case "if":
		e := &ast.IfExpr{Cond: d.expr(n.one("cond")), Then: d.expr(n.one("then")), Location: loc}
		if els := n.one("else"); els != nil {
			e.Else = d.expr(els)
		}
		return e
	case "when":
		return d.when(n)
	case "while":
		return &ast.WhileExpr{Cond: d.expr(n.one("cond")), Body: d.expr(n.one("body")), Location: loc}
	case "doWhile":
		return &ast.DoWhileExpr{Body: d.expr(n.one("body")), Cond: d.expr(n.one("cond")), Location: loc}
	case "for":
		v := n.one("var")
		if v == nil {
			d.fail(n, "for loop without a variable")
			return nil
		}
		return &ast.ForExpr{Var: d.param(v), Iterable: d.expr(n.one("iterable")), Body: d.expr(n.one("body")), Location: loc}
	case "labeled":
		return &ast.LabeledExpr{Label: n.str("label"), Body: d.expr(n.one("body")), Location: loc}
	case "break":
		return &ast.BreakExpr{Label: n.str("label"), Location: loc}
	case "continue":
		return &ast.ContinueExpr{Label: n.str("label"), Location: loc}
	case "return":
		r := &ast.ReturnExpr{Label: n.str("label"), Location: loc}
		if v := n.one("value"); v != nil {
			r.Value = d.expr(v)
		}
		return r
	case "throw":
		return &ast.ThrowExpr{X: d.expr(n.one("x")), Location: loc}
	case "try":
		return d.try(n)
	}
	d.fail(n, "unexpected %q in expression position", n.Kind)
	return nil
}

var errMissing = errors.New("missing child node")

func (d *decoder) when(n *Node) *ast.WhenExpr {
	w := &ast.WhenExpr{Location: d.loc(n)}
	if s := n.one("subject"); s != nil {
		w.Subject = d.expr(s)
	}
	for _, e := range n.Children["entries"] {
		entry := &ast.WhenEntry{Else: e.flag("else"), Body: d.expr(e.one("body")), Location: d.loc(e)}
		for _, c := range e.Children["conds"] {
			switch c.Kind {
			case "whenValue":
				entry.Conds = append(entry.Conds, &ast.WhenValueCond{Value: d.expr(c.one("value")), Location: d.loc(c)})
			case "whenIs":
				entry.Conds = append(entry.Conds, &ast.WhenIsCond{Type: d.typ(c.one("type")), Negated: c.flag("negated"), Location: d.loc(c)})
			default:
				d.fail(c, "unexpected %q in when condition", c.Kind)
			}
		}
		if !entry.Else && len(entry.Conds) == 0 {
			d.fail(e, "when entry without conditions")
		}
		w.Entries = append(w.Entries, entry)
	}
	return w
}

func (d *decoder) try(n *Node) *ast.TryExpr {
	t := &ast.TryExpr{Body: d.block(n.one("body")), Location: d.loc(n)}
	if t.Body == nil {
		d.fail(n, "try without a body")
	}
	for _, c := range n.Children["catches"] {
		p := c.one("param")
		if p == nil {
			d.fail(c, "catch without a parameter")
			continue
		}
		t.Catches = append(t.Catches, &ast.CatchClause{Param: d.param(p), Body: d.block(c.one("body")), Location: d.loc(c)})
	}
	if f := n.one("finally"); f != nil {
		t.Finally = d.block(f)
	}
	return t
}
