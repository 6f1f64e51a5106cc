package typechecker

import (
	"jetc/internal/diagnostics"
	"jetc/internal/frontend/ast"
	"jetc/internal/semantics/binding"
	"jetc/internal/semantics/calls"
	"jetc/internal/semantics/dataflow"
	"jetc/internal/semantics/table"
	"jetc/internal/source"
	"jetc/internal/types"
)

// variableRef is a variable a simple name resolved to.
type variableRef struct {
	id       types.ID
	typ      *types.Type
	receiver *table.Scope // scope of the implicit receiver of a member, nil otherwise
}

// lookupVariable resolves a simple name to a variable, walking outwards
// through locals, implicit receivers' members and package members.
func (b *body) lookupVariable(name string, sc *table.Scope) (variableRef, bool) {
	for s := sc; s != nil; s = s.Parent() {
		for _, id := range s.LookupLocal(name) {
			if b.table.Get(id).Kind == types.KindVariable {
				return variableRef{id: id, typ: b.VariableType(id)}, true
			}
		}
		if s.Receiver == nil {
			continue
		}
		for _, m := range b.checker.LookupMembers(s.Receiver, name) {
			if b.table.Get(m.ID).Kind == types.KindVariable {
				return variableRef{id: m.ID, typ: b.memberType(m), receiver: s}, true
			}
		}
	}
	return variableRef{}, false
}

// memberType is the type of a member variable seen through its receiver.
func (b *body) memberType(m types.Member) *types.Type {
	t := b.VariableType(m.ID)
	if t == nil {
		return types.ErrorType()
	}
	return types.Substitute(b.table, t, m.Subst)
}

// classValue is the type of a class name used as a value: objects and enum
// entries denote their single instance. Other classes have no value.
func (b *body) classValue(id types.ID) *types.Type {
	d := b.table.Get(id)
	if d.Kind != types.KindClass {
		return nil
	}
	switch d.Class.Kind {
	case types.ClassObject:
		return b.table.DefaultType(id)
	case types.ClassEnumEntry:
		return b.table.DefaultType(d.Owner)
	}
	return nil
}

// name types a simple name used as a value.
func (b *body) name(n *ast.NameExpr, c ctx) (*types.Type, *dataflow.Info) {
	if v, ok := b.lookupVariable(n.Name, c.sc); ok {
		binding.MustRecord(b.store, binding.Reference, ast.Node(n), v.id)
		if v.receiver != nil {
			note(b.store, ImplicitReceiver, ast.Node(n), v.receiver.Owner)
		}
		b.checkVisible(v.id, n.Loc())
		return b.narrow(n, v.typ, c), c.info
	}
	if id, ok := c.sc.LookupClassifier(n.Name); ok {
		if t := b.classValue(id); t != nil {
			binding.MustRecord(b.store, binding.Reference, ast.Node(n), id)
			return t, c.info
		}
		b.report(diagnostics.NewError("classifier '"+n.Name+"' does not have a value").
			WithCode(diagnostics.ErrUnresolvedReference).
			WithPrimaryLabel(n.Loc(), "only objects and enum entries can be used as values"))
		return types.ErrorType(), c.info
	}
	if ids, _ := c.sc.Lookup(n.Name); len(ids) > 0 {
		b.report(diagnostics.NewError("function '"+n.Name+"' cannot be used as a value").
			WithCode(diagnostics.ErrUnresolvedReference).
			WithPrimaryLabel(n.Loc(), "call it or wrap it in a function literal"))
		return types.ErrorType(), c.info
	}
	b.report(diagnostics.UnresolvedReference(n.Loc(), n.Name))
	return types.ErrorType(), c.info
}

func (b *body) checkVisible(id types.ID, loc *source.Location) {
	if !b.calls.Visible(id, b.from) {
		b.report(calls.Invisible(b.table, id, loc))
	}
}

// this types `this` or `this@label`: the innermost implicit receiver, or
// the one introduced by the class or function named label.
func (b *body) this(n *ast.ThisExpr, c ctx) *types.Type {
	for _, s := range c.sc.Receivers() {
		if n.Label != "" && s.Label != n.Label {
			continue
		}
		binding.MustRecord(b.store, binding.Reference, ast.Node(n), s.Owner)
		return b.narrow(n, s.Receiver, c)
	}
	msg := "'this' is not defined in this context"
	if n.Label != "" {
		msg = "no receiver is labelled '" + n.Label + "'"
	}
	b.report(diagnostics.NewError(msg).
		WithCode(diagnostics.ErrThisOutsideClass).
		WithPrimaryLabel(n.Loc(), "no implicit receiver here"))
	return types.ErrorType()
}

// receiver is the explicit receiver of a member access.
type receiver struct {
	node *ast.QualifiedExpr
	typ  *types.Type // nil for a class or package qualifier
	qual types.ID    // class or package the receiver names, NoID for values
}

// qualified types `recv.name`, `recv?.name` and member calls.
func (b *body) qualified(n *ast.QualifiedExpr, c ctx) (*types.Type, *dataflow.Info) {
	recv := &receiver{node: n}
	info := c.info
	if q, ok := b.qualifier(n.Receiver, c); ok {
		recv.qual = q
		if t := b.classValue(q); t != nil {
			recv.typ = t
			note(b.store, binding.ExpressionType, ast.Node(n.Receiver), t)
		}
	} else {
		recv.typ, info = b.expr(n.Receiver, c.value(nil))
	}
	c = c.at(info)

	switch sel := n.Selector.(type) {
	case *ast.NameExpr:
		if recv.typ == nil {
			return b.staticName(n, sel, recv.qual, c), info
		}
		return b.property(n, sel, recv, c), info
	case *ast.CallExpr:
		t, after := b.call(sel, c, recv)
		note(b.store, binding.ExpressionType, ast.Node(sel), t)
		return t, after
	}
	b.report(diagnostics.NewError("unsupported selector").
		WithCode(diagnostics.ErrUnsupported).
		WithPrimaryLabel(n.Selector.Loc(), "expected a name or a call"))
	return types.ErrorType(), info
}

// qualifier resolves a receiver expression naming a class or package.
// Variables shadow classifiers of the same name.
func (b *body) qualifier(e ast.Expression, c ctx) (types.ID, bool) {
	switch e := e.(type) {
	case *ast.NameExpr:
		if _, ok := b.lookupVariable(e.Name, c.sc); ok {
			return types.NoID, false
		}
		if id, ok := c.sc.LookupClassifier(e.Name); ok && b.table.Get(id).Kind == types.KindClass {
			note(b.store, binding.Reference, ast.Node(e), id)
			return id, true
		}
		if pkg, ok := b.table.LookupPackage(e.Name); ok {
			note(b.store, binding.Reference, ast.Node(e), pkg)
			return pkg, true
		}
	case *ast.QualifiedExpr:
		sel, ok := e.Selector.(*ast.NameExpr)
		if !ok || e.Safe {
			return types.NoID, false
		}
		q, ok := b.qualifier(e.Receiver, c)
		if !ok {
			return types.NoID, false
		}
		for _, m := range b.table.Members(q, sel.Name) {
			if b.table.Get(m).Kind == types.KindClass {
				note(b.store, binding.Reference, ast.Node(sel), m)
				return m, true
			}
		}
		if b.table.Get(q).Kind == types.KindPackage {
			fq := sel.Name
			if prefix := b.table.QualifiedName(q); prefix != "" {
				fq = prefix + "." + sel.Name
			}
			if pkg, ok := b.table.LookupPackage(fq); ok {
				note(b.store, binding.Reference, ast.Node(sel), pkg)
				return pkg, true
			}
		}
	}
	return types.NoID, false
}

// staticName types `Qualifier.name`: an enum entry, a nested object or a
// package-level property.
func (b *body) staticName(n *ast.QualifiedExpr, sel *ast.NameExpr, q types.ID, c ctx) *types.Type {
	for _, m := range b.table.Members(q, sel.Name) {
		md := b.table.Get(m)
		switch md.Kind {
		case types.KindClass:
			if t := b.classValue(m); t != nil {
				binding.MustRecord(b.store, binding.Reference, ast.Node(sel), m)
				note(b.store, binding.ExpressionType, ast.Node(sel), t)
				return t
			}
		case types.KindVariable:
			if b.table.Get(q).Kind != types.KindPackage {
				continue
			}
			binding.MustRecord(b.store, binding.Reference, ast.Node(sel), m)
			b.checkVisible(m, sel.Loc())
			t := b.VariableType(m)
			note(b.store, binding.ExpressionType, ast.Node(sel), t)
			return b.narrow(n, t, c)
		}
	}
	b.report(diagnostics.UnresolvedReference(sel.Loc(), sel.Name))
	return types.ErrorType()
}

// property types a member property read through an explicit receiver.
func (b *body) property(n *ast.QualifiedExpr, sel *ast.NameExpr, recv *receiver, c ctx) *types.Type {
	if recv.typ.IsError() {
		return types.ErrorType()
	}
	var member *types.Member
	for _, m := range b.checker.LookupMembers(types.MakeNotNull(recv.typ), sel.Name) {
		if b.table.Get(m.ID).Kind == types.KindVariable {
			m := m
			member = &m
			break
		}
	}
	if member == nil {
		if recv.qual != types.NoID {
			return b.staticName(n, sel, recv.qual, c)
		}
		b.report(diagnostics.UnresolvedReference(sel.Loc(), sel.Name))
		return types.ErrorType()
	}
	binding.MustRecord(b.store, binding.Reference, ast.Node(sel), member.ID)
	b.checkVisible(member.ID, sel.Loc())
	t := b.memberType(*member)
	note(b.store, binding.ExpressionType, ast.Node(sel), t)
	return b.narrow(n, b.nullSafe(n, recv.typ, t), c)
}

// nullSafe applies the receiver's nullability to the result of a member
// access: a safe access makes the result nullable, a plain access on a
// nullable receiver is an error.
func (b *body) nullSafe(n *ast.QualifiedExpr, recv, result *types.Type) *types.Type {
	switch {
	case recv.IsError() || result == nil:
		return result
	case recv.Nullable() && n.Safe:
		return types.MakeNullable(result)
	case recv.Nullable():
		b.report(diagnostics.NewError("only safe (?.) or non-null asserted (!!.) calls are allowed on a nullable receiver of type "+recv.String()).
			WithCode(diagnostics.ErrUnsafeCall).
			WithPrimaryLabel(n.Receiver.Loc(), "this can be null").
			WithHelp("use '?.' or check the receiver for null first"))
	case n.Safe:
		b.report(diagnostics.NewWarning("unnecessary safe call on a non-null receiver of type "+recv.String()).
			WithCode(diagnostics.WarnUnnecessarySafeCall).
			WithPrimaryLabel(n.Loc(), "the receiver is never null"))
	}
	return result
}
