package ast

import "fmt"

// Children returns the direct child nodes of n in source order. Nil children
// are omitted.
func Children(n Node) []Node {
	var out []Node
	add := func(nodes ...Node) {
		for _, c := range nodes {
			if c == nil || isNilNode(c) {
				continue
			}
			out = append(out, c)
		}
	}
	switch n := n.(type) {
	case *File:
		for _, d := range n.Decls {
			add(d)
		}
	case *Import, *Ident, *Literal, *NameExpr, *ThisExpr, *BreakExpr, *ContinueExpr, *SelfType:
	case *ClassDecl:
		for _, p := range n.Params {
			add(p)
		}
		for _, s := range n.Supers {
			add(s)
		}
		for _, e := range n.Entries {
			add(e)
		}
		for _, m := range n.Members {
			add(m)
		}
	case *SuperEntry:
		add(n.Type)
		for _, a := range n.Args {
			add(a)
		}
	case *EnumEntry:
		for _, a := range n.Args {
			add(a)
		}
		for _, m := range n.Members {
			add(m)
		}
	case *Initializer:
		add(n.Body)
	case *Param:
		add(n.Type, n.Default)
	case *TypeParam:
		add(n.Bound)
	case *FunDecl:
		for _, tp := range n.TypeParams {
			add(tp)
		}
		add(n.Receiver)
		for _, p := range n.Params {
			add(p)
		}
		add(n.Result, n.Body)
	case *PropertyDecl:
		add(n.Type, n.Init, n.Getter, n.Setter)
	case *Accessor:
		add(n.Param, n.Body)
	case *UserType:
		for _, a := range n.Args {
			add(a)
		}
	case *TypeArg:
		add(n.Type)
	case *NullableType:
		add(n.Inner)
	case *FunctionType:
		add(n.Receiver)
		for _, p := range n.Params {
			add(p)
		}
		add(n.Result)
	case *TupleType:
		for _, e := range n.Elems {
			add(e)
		}
	case *BinaryExpr:
		add(n.X, n.Y)
	case *UnaryExpr:
		add(n.X)
	case *PostfixExpr:
		add(n.X)
	case *AssignExpr:
		add(n.Target, n.Value)
	case *IsExpr:
		add(n.X, n.Type)
	case *CastExpr:
		add(n.X, n.Type)
	case *Argument:
		add(n.Value)
	case *CallExpr:
		add(n.Callee)
		for _, t := range n.TypeArgs {
			add(t)
		}
		for _, a := range n.Args {
			add(a)
		}
	case *QualifiedExpr:
		add(n.Receiver, n.Selector)
	case *IndexExpr:
		add(n.X)
		for _, i := range n.Indices {
			add(i)
		}
	case *TupleExpr:
		for _, e := range n.Elems {
			add(e)
		}
	case *FunctionLiteral:
		for _, p := range n.Params {
			add(p)
		}
		add(n.Body)
	case *ObjectLiteral:
		add(n.Decl)
	case *Block:
		add(n.Stmts...)
	case *IfExpr:
		add(n.Cond, n.Then, n.Else)
	case *WhenExpr:
		add(n.Subject)
		for _, e := range n.Entries {
			add(e)
		}
	case *WhenEntry:
		for _, c := range n.Conds {
			add(c)
		}
		add(n.Body)
	case *WhenValueCond:
		add(n.Value)
	case *WhenIsCond:
		add(n.Type)
	case *WhileExpr:
		add(n.Cond, n.Body)
	case *DoWhileExpr:
		add(n.Body, n.Cond)
	case *ForExpr:
		add(n.Var, n.Iterable, n.Body)
	case *LabeledExpr:
		add(n.Body)
	case *ReturnExpr:
		add(n.Value)
	case *ThrowExpr:
		add(n.X)
	case *TryExpr:
		add(n.Body)
		for _, c := range n.Catches {
			add(c)
		}
		add(n.Finally)
	case *CatchClause:
		add(n.Param, n.Body)
	default:
		panic(fmt.Sprintf("ast.Children: unexpected node %T", n))
	}
	return out
}

// Inspect traverses the tree rooted at n in depth-first order, calling f for
// each node. If f returns false the children of that node are skipped.
func Inspect(n Node, f func(Node) bool) {
	if n == nil || isNilNode(n) || !f(n) {
		return
	}
	for _, c := range Children(n) {
		Inspect(c, f)
	}
}

// isNilNode catches typed nil pointers stored in interface fields.
func isNilNode(n Node) bool {
	switch v := n.(type) {
	case *Block:
		return v == nil
	case *Param:
		return v == nil
	case *Accessor:
		return v == nil
	case *ClassDecl:
		return v == nil
	case *UserType:
		return v == nil
	case *Ident:
		return v == nil
	}
	return false
}
