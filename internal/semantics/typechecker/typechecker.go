// Package typechecker types the bodies of a translation unit.
//
// Every expression is typed against the type its context expects while the
// data flow information of the current path is threaded through it, so that
// stable values are smart cast where a check proves it. Results are recorded
// in the binding store. Once a subroutine is typed its control-flow graph is
// built and checked.
package typechecker

import (
	"jetc/internal/frontend/ast"
	"jetc/internal/semantics/binding"
	"jetc/internal/semantics/calls"
	"jetc/internal/semantics/cfganalyzer"
	"jetc/internal/semantics/consteval"
	"jetc/internal/semantics/controlflow"
	"jetc/internal/semantics/dataflow"
	"jetc/internal/semantics/declres"
	"jetc/internal/semantics/table"
	"jetc/internal/types"
)

// Checker types every body of one compilation.
type Checker struct {
	table    *types.Table
	builtins *types.Builtins
	checker  *types.Checker
	store    *binding.Store
	decls    *declres.Resolver
	calls    *calls.Resolver
	flow     *cfganalyzer.Analyzer
	consts   *consteval.Evaluator

	typed      map[ast.Node]bool
	lambdas    map[*ast.FunctionLiteral]bool
	initScopes map[types.ID]*table.Scope
	graphs     []*controlflow.Pseudocode
	pending    []ast.Node // subroutines of local classes, analysed after their root
	locals     map[*ast.ClassDecl]bool
}

// New creates a checker over the table of checker. Declarations are
// resolved by Check.
func New(checker *types.Checker, store *binding.Store) *Checker {
	tab := checker.Table()
	c := &Checker{
		table:      tab,
		builtins:   tab.Builtins(),
		checker:    checker,
		store:      store,
		decls:      declres.New(tab, store),
		flow:       cfganalyzer.New(tab, store),
		consts:     consteval.New(store, tab),
		typed:      make(map[ast.Node]bool),
		lambdas:    make(map[*ast.FunctionLiteral]bool),
		initScopes: make(map[types.ID]*table.Scope),
		locals:     make(map[*ast.ClassDecl]bool),
	}
	c.calls = calls.New(checker, store, c)
	return c
}

// Declarations returns the declaration resolver, valid once Check ran.
func (c *Checker) Declarations() *declres.Resolver { return c.decls }

// Graphs returns the control-flow graphs built so far, in analysis order.
func (c *Checker) Graphs() []*controlflow.Pseudocode { return c.graphs }

// Check resolves the declarations of files, types every body and runs the
// control-flow checks. Diagnostics are reported to the store.
func (c *Checker) Check(files []*ast.File) {
	c.Declare(files)
	for _, f := range files {
		c.CheckFile(f)
	}
}

// Declare resolves the declarations of every file of the compilation. It
// runs once, before any CheckFile.
func (c *Checker) Declare(files []*ast.File) {
	c.decls.Resolve(files, c)
}

// CheckFile types the bodies of one file's declarations.
func (c *Checker) CheckFile(f *ast.File) {
	for _, d := range f.Decls {
		c.checkDecl(d)
	}
}

func (c *Checker) checkDecl(d ast.Decl) {
	id, ok := binding.Get(c.store, binding.Declaration, ast.Node(d))
	if !ok {
		return
	}
	switch d := d.(type) {
	case *ast.FunDecl:
		c.checkFunction(id, d)
	case *ast.PropertyDecl:
		c.checkProperty(id, d, true)
	case *ast.ClassDecl:
		c.checkClass(id, d)
	}
}

// InferDeclarationType types the initializer or expression body a
// declaration's type is taken from.
func (c *Checker) InferDeclarationType(id types.ID) *types.Type {
	switch d := c.table.Get(id).Decl.(type) {
	case *ast.FunDecl:
		return c.typeFunction(id, d)
	case *ast.PropertyDecl:
		return c.typeProperty(id, d)
	}
	return types.ErrorType()
}

// VariableType returns the type of a variable, inferring it on demand.
func (c *Checker) VariableType(id types.ID) *types.Type {
	d := c.table.Get(id)
	if d.Var.Type == nil || c.decls.IsDeferred(id) {
		return c.decls.InferType(id, c)
	}
	return d.Var.Type
}

// ResultType returns the result of a function, inferring it on demand.
func (c *Checker) ResultType(id types.ID) *types.Type {
	d := c.table.Get(id)
	if d.Func.Result == nil || c.decls.IsDeferred(id) {
		return c.decls.InferType(id, c)
	}
	return d.Func.Result
}

func (c *Checker) checkFunction(id types.ID, d *ast.FunDecl) {
	c.typeFunction(id, d)
	if d.Body != nil {
		c.analyze(d)
	}
}

// checkProperty types a property and its accessors. Initializers of member
// properties are analysed as part of their class.
func (c *Checker) checkProperty(id types.ID, d *ast.PropertyDecl, topLevel bool) {
	t := c.typeProperty(id, d)
	if topLevel && d.Init != nil {
		c.analyze(d)
	}
	for _, acc := range []*ast.Accessor{d.Getter, d.Setter} {
		if acc == nil || acc.Body == nil {
			continue
		}
		c.typeAccessor(id, acc, t)
		c.analyze(acc)
	}
}

func (c *Checker) checkClass(id types.ID, cd *ast.ClassDecl) {
	c.typeClassInit(id, cd)
	c.checkMembers(cd.Members)
	for _, e := range cd.Entries {
		c.checkMembers(e.Members)
	}
	if cd.Kind != ast.ClassKindTrait {
		c.analyze(cd)
	}
}

func (c *Checker) checkMembers(members []ast.Decl) {
	for _, m := range members {
		id, ok := binding.Get(c.store, binding.Declaration, ast.Node(m))
		if !ok {
			continue
		}
		switch m := m.(type) {
		case *ast.FunDecl:
			c.checkFunction(id, m)
		case *ast.PropertyDecl:
			c.checkProperty(id, m, false)
		case *ast.ClassDecl:
			c.checkClass(id, m)
		}
	}
}

// analyze builds and checks the graph of a typed subroutine, then of the
// local class members typed while it was.
func (c *Checker) analyze(owner ast.Node) {
	var pc *controlflow.Pseudocode
	if cd, ok := owner.(*ast.ClassDecl); ok && c.locals[cd] {
		pc = controlflow.NewBuilder(c.store).BuildLocalClass(cd)
	} else {
		pc = controlflow.NewBuilder(c.store).Build(owner)
	}
	c.graphs = append(c.graphs, pc)
	c.flow.Analyze(pc)
	for len(c.pending) > 0 {
		next := c.pending[0]
		c.pending = c.pending[1:]
		c.analyze(next)
	}
}

// typeFunction types the parameters' default values and the body of a
// function once and returns its result type.
func (c *Checker) typeFunction(id types.ID, d *ast.FunDecl) *types.Type {
	fd := c.table.Get(id)
	if c.typed[d] {
		return fd.Func.Result
	}
	c.typed[d] = true
	c.closures(d)

	b := c.newBody(id)
	sig := c.decls.SignatureScope(id)
	for i, p := range d.Params {
		if p.Default != nil && i < len(fd.Func.Params) {
			pt := c.table.Get(fd.Func.Params[i]).Var.Type
			b.expr(p.Default, ctx{sc: sig, info: dataflow.Empty(), expected: pt})
		}
	}
	if d.Body == nil {
		return fd.Func.Result
	}

	sc := table.NewScope(sig, table.ScopeBlock, id)
	sc.Label = d.Name.Name
	if fd.Func.Receiver != nil {
		sc.Receiver = fd.Func.Receiver
	}
	b.declareParams(sc, d.Params, fd.Func.Params)

	result := fd.Func.Result
	if c.decls.IsDeferred(id) {
		result = nil
	}
	f := b.push(d, []string{d.Name.Name}, true, result)
	t := b.subroutineBody(d.Body, d.ExprBody, ctx{sc: sc, info: dataflow.Empty()}, result)
	b.pop()
	if result != nil {
		return result
	}
	return c.inferredResult(t, f)
}

// inferredResult joins the type of an expression body with the values
// returned from inside it.
func (c *Checker) inferredResult(t *types.Type, f *frame) *types.Type {
	ts := append([]*types.Type{t}, f.returned...)
	if r := c.checker.CommonSupertype(ts); r != nil {
		return r
	}
	return c.builtins.UnitType
}

// typeProperty types the initializer of a property once and returns the
// property's type.
func (c *Checker) typeProperty(id types.ID, d *ast.PropertyDecl) *types.Type {
	pd := c.table.Get(id)
	declared := pd.Var.Type
	if c.decls.IsDeferred(id) {
		declared = nil
	}
	if c.typed[d] {
		if declared != nil {
			return declared
		}
		return c.VariableType(id)
	}
	c.typed[d] = true
	c.closures(d)

	var t *types.Type
	if d.Init != nil {
		b := c.newBody(id)
		t, _ = b.expr(d.Init, ctx{sc: c.propertyScope(id), info: dataflow.Empty(), expected: declared})
	}
	if declared != nil {
		return declared
	}
	if t == nil && d.Getter != nil && d.Getter.ExprBody {
		t = c.typeAccessor(id, d.Getter, nil)
	}
	if t == nil {
		return types.ErrorType()
	}
	return t
}

// propertyScope is the scope a property initializer is typed in. Member
// initializers see the primary constructor's parameters.
func (c *Checker) propertyScope(id types.ID) *table.Scope {
	owner := c.table.Get(id).Owner
	if c.table.Get(owner).Kind == types.KindClass {
		return c.initScope(owner)
	}
	return c.decls.SignatureScope(id)
}

// initScope is the scope of a class's initialization code: the class body
// with the primary constructor's parameters declared.
func (c *Checker) initScope(class types.ID) *table.Scope {
	if sc, ok := c.initScopes[class]; ok {
		return sc
	}
	cd := c.table.Get(class)
	sc := c.decls.ClassScope(class)
	if ctor := cd.Class.Primary; ctor != types.NoID {
		if sig := c.decls.SignatureScope(ctor); sig != nil {
			sc = sig
		}
		sc = table.NewScope(sc, table.ScopeBlock, ctor)
		for _, p := range c.table.Get(ctor).Func.Params {
			_ = sc.DeclareVar(c.table.Get(p).Name, p)
		}
	}
	c.initScopes[class] = sc
	return sc
}

// typeAccessor types a getter or setter body. propType is nil while the
// property's type is being inferred from its getter.
func (c *Checker) typeAccessor(prop types.ID, acc *ast.Accessor, propType *types.Type) *types.Type {
	if c.typed[acc] {
		return propType
	}
	c.typed[acc] = true
	c.closures(acc)

	b := c.newBody(prop)
	sc := table.NewScope(c.decls.SignatureScope(prop), table.ScopeBlock, prop)
	result := propType
	if acc.Param != nil {
		result = c.builtins.UnitType
		pt := propType
		if acc.Param.Type != nil {
			pt = c.decls.ResolveType(acc.Param.Type, sc)
		}
		if pt == nil {
			pt = types.ErrorType()
		}
		pid := c.table.Add(&types.Descriptor{
			Kind:  types.KindVariable,
			Name:  acc.Param.Name.Name,
			Owner: prop,
			Loc:   acc.Param.Loc(),
			Decl:  acc.Param,
			Var:   &types.VarInfo{Storage: types.StorageParameter, Type: pt},
		})
		binding.MustRecord(c.store, binding.Declaration, ast.Node(acc.Param), pid)
		_ = sc.DeclareVar(acc.Param.Name.Name, pid)
	}
	f := b.push(acc, nil, true, result)
	t := b.subroutineBody(acc.Body, acc.ExprBody, ctx{sc: sc, info: dataflow.Empty()}, result)
	b.pop()
	if result != nil {
		return result
	}
	return c.inferredResult(t, f)
}

// typeClassInit types what runs when an instance is created: superclass
// constructor arguments, enum entry arguments, default values of the
// primary constructor, property initializers and initializer blocks.
func (c *Checker) typeClassInit(id types.ID, cd *ast.ClassDecl) {
	if c.typed[cd] {
		return
	}
	c.typed[cd] = true
	c.closures(cd)

	class := c.table.Get(id)
	from := class.Class.Primary
	if from == types.NoID {
		from = id
	}
	b := c.newBody(from)
	sc := c.initScope(id)
	info := dataflow.Empty()

	if ctor := class.Class.Primary; ctor != types.NoID {
		sig := c.decls.SignatureScope(ctor)
		params := c.table.Get(ctor).Func.Params
		for i, p := range cd.Params {
			if p.Default != nil && i < len(params) {
				b.expr(p.Default, ctx{sc: sig, info: info, expected: c.table.Get(params[i]).Var.Type})
			}
		}
	}
	for _, s := range cd.Supers {
		b.superCall(id, s, sc)
	}
	for _, e := range cd.Entries {
		b.enumEntry(id, e, sc)
	}
	for _, m := range cd.Members {
		switch m := m.(type) {
		case *ast.PropertyDecl:
			if pid, ok := binding.Get(c.store, binding.Declaration, ast.Node(m)); ok {
				c.typeProperty(pid, m)
			}
		case *ast.Initializer:
			b.push(m, nil, false, c.builtins.UnitType)
			b.block(m.Body, ctx{sc: sc, info: info, statement: true})
			b.pop()
		}
	}
	for _, e := range cd.Entries {
		if eid, ok := binding.Get(c.store, binding.Declaration, ast.Node(e)); ok {
			c.typeEntryInit(eid, e)
		}
	}
}

// typeEntryInit types the property initializers of an enum entry body.
func (c *Checker) typeEntryInit(id types.ID, e *ast.EnumEntry) {
	for _, m := range e.Members {
		switch m := m.(type) {
		case *ast.PropertyDecl:
			if pid, ok := binding.Get(c.store, binding.Declaration, ast.Node(m)); ok {
				c.typeProperty(pid, m)
			}
		case *ast.Initializer:
			b := c.newBody(c.table.Get(id).Class.Primary)
			b.push(m, nil, false, c.builtins.UnitType)
			b.block(m.Body, ctx{sc: c.initScope(id), info: dataflow.Empty(), statement: true})
			b.pop()
		}
	}
}

// checkLocalClass types a class declared inside a body and queues its
// subroutines for analysis.
func (c *Checker) checkLocalClass(id types.ID, cd *ast.ClassDecl) {
	for _, d := range c.decls.TakeLocalDeferred() {
		c.decls.InferType(d, c)
	}
	c.typeClassInit(id, cd)
	c.typeLocalMembers(cd.Members)
	for _, e := range cd.Entries {
		c.typeLocalMembers(e.Members)
	}
	c.locals[cd] = true
	c.pending = append(c.pending, cd)
}

func (c *Checker) typeLocalMembers(members []ast.Decl) {
	for _, m := range members {
		id, ok := binding.Get(c.store, binding.Declaration, ast.Node(m))
		if !ok {
			continue
		}
		switch m := m.(type) {
		case *ast.FunDecl:
			c.typeFunction(id, m)
			if m.Body != nil {
				c.pending = append(c.pending, m)
			}
		case *ast.PropertyDecl:
			t := c.typeProperty(id, m)
			for _, acc := range []*ast.Accessor{m.Getter, m.Setter} {
				if acc != nil && acc.Body != nil {
					c.typeAccessor(id, acc, t)
					c.pending = append(c.pending, acc)
				}
			}
		case *ast.ClassDecl:
			c.checkLocalClass(id, m)
		}
	}
}
