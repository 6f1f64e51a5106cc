package typechecker

import (
	"jetc/internal/frontend/ast"
	"jetc/internal/semantics/binding"
	"jetc/internal/tokens"
)

// closures marks the local variables and parameters a closure reads or
// assigns. Names are matched lexically before the body is typed, so a val
// written by a closure is already unstable when a check on it is typed.
func (c *Checker) closures(root ast.Node) {
	w := &closureWalker{store: c.store}
	w.push()
	switch r := root.(type) {
	case *ast.FunDecl:
		w.function(r.Params, r.Body, false)
	case *ast.Accessor:
		w.function([]*ast.Param{r.Param}, r.Body, false)
	default:
		w.walk(root)
	}
	w.pop()
}

type closureWalker struct {
	store  *binding.Store
	scopes []map[string]closureVar
	depth  int // closure nesting of the code being walked
}

type closureVar struct {
	decl  ast.Node
	depth int
}

func (w *closureWalker) push() { w.scopes = append(w.scopes, map[string]closureVar{}) }
func (w *closureWalker) pop()  { w.scopes = w.scopes[:len(w.scopes)-1] }

func (w *closureWalker) declare(name string, decl ast.Node) {
	w.scopes[len(w.scopes)-1][name] = closureVar{decl: decl, depth: w.depth}
}

func (w *closureWalker) use(name string, write bool) {
	for i := len(w.scopes) - 1; i >= 0; i-- {
		v, ok := w.scopes[i][name]
		if !ok {
			continue
		}
		if v.depth < w.depth {
			mark(w.store, binding.Captured, v.decl)
			if write {
				mark(w.store, binding.ClosureWrite, v.decl)
			}
		}
		return
	}
}

func mark(s *binding.Store, sl *binding.Slice[bool], n ast.Node) {
	if !binding.Has(s, sl, n) {
		binding.MustRecord(s, sl, n, true)
	}
}

// function walks parameters and body in a new scope; deeper is set for
// local functions and literals, whose bodies run later than their
// declaration.
func (w *closureWalker) function(params []*ast.Param, body ast.Node, deeper bool) {
	if deeper {
		w.depth++
		defer func() { w.depth-- }()
	}
	w.push()
	defer w.pop()
	for _, p := range params {
		if p == nil {
			continue
		}
		if p.Default != nil {
			w.walk(p.Default)
		}
		w.declare(p.Name.Name, p)
	}
	if body != nil {
		w.walk(body)
	}
}

func (w *closureWalker) walk(n ast.Node) {
	if n == nil {
		return
	}
	switch n := n.(type) {
	case *ast.NameExpr:
		w.use(n.Name, false)
	case *ast.FunDecl:
		w.function(n.Params, n.Body, true)
	case *ast.FunctionLiteral:
		w.function(n.Params, n.Body, true)
	case *ast.Accessor:
		w.function([]*ast.Param{n.Param}, n.Body, true)
	case *ast.ClassDecl:
		w.depth++
		w.push()
		for _, p := range n.Params {
			w.walk(p)
			w.declare(p.Name.Name, p)
		}
		for _, ch := range ast.Children(n) {
			if _, ok := ch.(*ast.Param); !ok {
				w.walk(ch)
			}
		}
		w.pop()
		w.depth--
	case *ast.Block:
		w.push()
		for _, s := range n.Stmts {
			if p, ok := s.(*ast.PropertyDecl); ok {
				w.walk(p.Init)
				w.declare(p.Name.Name, p)
				continue
			}
			w.walk(s)
		}
		w.pop()
	case *ast.ForExpr:
		w.walk(n.Iterable)
		w.push()
		w.declare(n.Var.Name.Name, n.Var)
		w.walk(n.Body)
		w.pop()
	case *ast.CatchClause:
		w.push()
		w.declare(n.Param.Name.Name, n.Param)
		w.walk(n.Body)
		w.pop()
	case *ast.AssignExpr:
		if name, ok := n.Target.(*ast.NameExpr); ok {
			w.use(name.Name, true)
		} else {
			w.walk(n.Target)
		}
		w.walk(n.Value)
	case *ast.UnaryExpr:
		w.increment(n.Op.Kind, n.X)
	case *ast.PostfixExpr:
		w.increment(n.Op.Kind, n.X)
	case *ast.QualifiedExpr:
		w.walk(n.Receiver)
		if call, ok := n.Selector.(*ast.CallExpr); ok {
			for _, a := range call.Args {
				w.walk(a.Value)
			}
		}
	default:
		for _, ch := range ast.Children(n) {
			w.walk(ch)
		}
	}
}

func (w *closureWalker) increment(op tokens.TOKEN, x ast.Expression) {
	name, ok := x.(*ast.NameExpr)
	if ok && (op == tokens.PLUS_PLUS_TOKEN || op == tokens.MINUS_MINUS_TOKEN) {
		w.use(name.Name, true)
		return
	}
	w.walk(x)
}
