// Package dataflow tracks what is known about stable values along one
// control-flow path: whether they can be null and which types `is` checks
// established. Expression typing threads an Info through the tree and asks
// for the smart cast type of every stable read.
package dataflow

import (
	"jetc/internal/frontend/ast"
	"jetc/internal/semantics/binding"
	"jetc/internal/types"
)

// Nullability of a value on a path.
type Nullability uint8

const (
	Unknown    Nullability = iota // may be null
	NotNull                       // never null
	Null                          // always null
	Impossible                    // contradictory facts, the path cannot execute
)

func (n Nullability) String() string {
	return [...]string{"unknown", "not-null", "null", "impossible"}[n]
}

// CanBeNull reports Unknown and Null.
func (n Nullability) CanBeNull() bool { return n == Unknown || n == Null }

// And combines two facts that hold at the same time.
func (n Nullability) And(o Nullability) Nullability {
	switch {
	case n == o, o == Unknown:
		return n
	case n == Unknown:
		return o
	}
	return Impossible
}

// Or combines facts from two paths meeting at a confluence point.
func (n Nullability) Or(o Nullability) Nullability {
	switch {
	case n == o, o == Impossible:
		return n
	case n == Impossible:
		return o
	}
	return Unknown
}

// Kind tells what a Value stands for.
type Kind uint8

const (
	Other    Kind = iota // not trackable
	Variable             // local, parameter, property or top-level variable
	This                 // implicit or explicit receiver
	Property             // stable property of a stable receiver
	Constant             // literal or object reference
)

// Value is the identity of a trackable expression together with its static
// type and the nullability its type implies.
type Value struct {
	Kind     Kind
	ID       types.ID // variable, property, or class of `this`
	Receiver types.ID // receiver variable or class of a Property value
	RecvThis bool     // the receiver of a Property value is `this`
	Type     *types.Type
	Immanent Nullability
	Stable   bool
}

type key struct {
	kind     Kind
	id       types.ID
	recv     types.ID
	recvThis bool
}

func (v Value) key() key {
	return key{v.Kind, v.ID, v.Receiver, v.RecvThis}
}

// Trackable reports values facts can be recorded for.
func (v Value) Trackable() bool {
	return v.Stable && (v.Kind == Variable || v.Kind == This || v.Kind == Property)
}

func immanent(t *types.Type, b *types.Builtins) Nullability {
	switch {
	case t == nil || t.IsError():
		return Unknown
	case types.IsClassType(t, b.Nothing) && t.Nullable():
		return Null
	case t.Nullable():
		return Unknown
	}
	return NotNull
}

// Analyzer creates values and analyses conditions for code of one package.
type Analyzer struct {
	table   *types.Table
	checker *types.Checker
	store   *binding.Store
	pkg     types.ID
}

// New creates an analyzer for code declared in pkg. Expression types and
// references are read from store.
func New(checker *types.Checker, store *binding.Store, pkg types.ID) *Analyzer {
	return &Analyzer{table: checker.Table(), checker: checker, store: store, pkg: pkg}
}

// ValueOf returns the data flow value of an expression of static type t.
func (a *Analyzer) ValueOf(e ast.Expression, t *types.Type) Value {
	v := Value{Kind: Other, Type: t, Immanent: immanent(t, a.table.Builtins())}
	switch e := e.(type) {
	case *ast.Literal:
		v.Kind = Constant
		v.Stable = true
		if e.Kind == ast.NULL {
			v.Immanent = Null
		} else {
			v.Immanent = NotNull
		}
	case *ast.NameExpr:
		id, ok := binding.Get(a.store, binding.Reference, ast.Node(e))
		if !ok {
			return v
		}
		switch d := a.table.Get(id); d.Kind {
		case types.KindVariable:
			v.Kind = Variable
			v.ID = id
			v.Stable = IsStableIdentifier(a.table, a.store, id, a.pkg)
		case types.KindClass, types.KindPackage:
			v.Kind = Constant
			v.ID = id
			v.Stable = true
			v.Immanent = NotNull
		}
	case *ast.ThisExpr:
		id, ok := binding.Get(a.store, binding.Reference, ast.Node(e))
		if !ok {
			return v
		}
		v.Kind = This
		v.ID = id
		v.Stable = true
		v.Immanent = NotNull
	case *ast.QualifiedExpr:
		name, ok := e.Selector.(*ast.NameExpr)
		if !ok || e.Safe {
			return v
		}
		recvType, _ := binding.Get(a.store, binding.ExpressionType, ast.Node(e.Receiver))
		recv := a.ValueOf(e.Receiver, recvType)
		if !recv.Stable || (recv.Kind != Variable && recv.Kind != This) {
			return v
		}
		id, ok := binding.Get(a.store, binding.Reference, ast.Node(name))
		if !ok || a.table.Get(id).Kind != types.KindVariable {
			return v
		}
		v.Kind = Property
		v.ID = id
		v.Receiver = recv.ID
		v.RecvThis = recv.Kind == This
		v.Stable = IsStableIdentifier(a.table, a.store, id, a.pkg)
	}
	return v
}

// VariableValue returns the value of a read of variable id.
func (a *Analyzer) VariableValue(id types.ID) Value {
	t := a.table.Get(id).Var.Type
	return Value{
		Kind:     Variable,
		ID:       id,
		Type:     t,
		Immanent: immanent(t, a.table.Builtins()),
		Stable:   IsStableIdentifier(a.table, a.store, id, a.pkg),
	}
}

// IsStableIdentifier reports whether the value of descriptor id cannot
// change between a check and a later use in package pkg (NoID skips the
// package check). Vars are never stable, nor are vals a closure assigns.
func IsStableIdentifier(tab *types.Table, store *binding.Store, id types.ID, pkg types.ID) bool {
	d := tab.Get(id)
	switch d.Kind {
	case types.KindPackage, types.KindClass:
		return true
	case types.KindVariable:
	default:
		return false
	}
	if d.Var.Mutable {
		return false
	}
	switch d.Var.Storage {
	case types.StorageLocal, types.StorageParameter:
		if store != nil && d.Decl != nil && binding.Has(store, binding.ClosureWrite, d.Decl) {
			return false
		}
		return true
	case types.StorageProperty:
		if d.Var.CustomGetter {
			return false
		}
		if !d.IsFinal() && !tab.Get(d.Owner).IsFinal() {
			return false
		}
	case types.StorageTopLevel:
		if d.Var.CustomGetter {
			return false
		}
	}
	return pkg == types.NoID || tab.PackageOf(id) == pkg
}
