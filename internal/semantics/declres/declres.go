// Package declres performs top-down declaration resolution: it creates a
// descriptor for every class, function, constructor and property of a
// translation unit, resolves signatures and supertypes, reports
// redeclarations and finally seals the descriptor table.
//
// Resolution is single-threaded and must complete before body analysis
// starts; registration order determines diagnostic order.
package declres

import (
	"jetc/internal/diagnostics"
	"jetc/internal/frontend/ast"
	"jetc/internal/semantics/binding"
	"jetc/internal/semantics/table"
	"jetc/internal/types"
)

// Inferrer computes the type of a declaration whose type was not written:
// properties with initializers and expression-bodied functions. It runs
// before the table is sealed.
type Inferrer interface {
	InferDeclarationType(id types.ID) *types.Type
}

// Resolver holds the result of declaration resolution and keeps resolving
// local declarations (local classes, object literals) during body analysis.
type Resolver struct {
	table    *types.Table
	store    *binding.Store
	builtins *types.Builtins

	jetScope    *table.Scope
	fileScopes  map[*ast.File]*table.Scope
	pkgScopes   map[string][]*table.Scope
	classScopes map[types.ID]*table.Scope
	sigScopes   map[types.ID]*table.Scope // scope a declaration's signature and body resolve in
	fileOf      map[types.ID]*ast.File
	imports     map[*ast.File]*fileImports

	classes       []*classWork
	deferred      []types.ID
	localDeferred []types.ID
	localCount    map[types.ID]int
	checker       *types.Checker
	inferring     map[types.ID]bool
	inferred      map[types.ID]*types.Type
	files         []*ast.File
}

type classWork struct {
	decl   *ast.ClassDecl
	entry  *ast.EnumEntry
	id     types.ID
	parent *table.Scope // set for local classes only
	scope  *table.Scope // class body scope
}

// New creates a resolver over table and store.
func New(tab *types.Table, store *binding.Store) *Resolver {
	r := &Resolver{
		table:       tab,
		store:       store,
		builtins:    tab.Builtins(),
		fileScopes:  make(map[*ast.File]*table.Scope),
		pkgScopes:   make(map[string][]*table.Scope),
		classScopes: make(map[types.ID]*table.Scope),
		sigScopes:   make(map[types.ID]*table.Scope),
		fileOf:      make(map[types.ID]*ast.File),
		imports:     make(map[*ast.File]*fileImports),
		inferring:   make(map[types.ID]bool),
		inferred:    make(map[types.ID]*types.Type),
		localCount:  make(map[types.ID]int),
		checker:     types.NewChecker(tab),
	}
	r.jetScope = r.packageMembersScope(nil, r.builtins.Package, table.ScopeFile)
	return r
}

// Table returns the descriptor table.
func (r *Resolver) Table() *types.Table { return r.table }

// Store returns the binding store.
func (r *Resolver) Store() *binding.Store { return r.store }

// Resolve runs every declaration phase over files, infers deferred types
// through inf (which may be nil) and seals the table.
func (r *Resolver) Resolve(files []*ast.File, inf Inferrer) {
	r.files = files
	for _, f := range files {
		pkg := r.table.Package(f.Package)
		for _, d := range f.Decls {
			if c, ok := d.(*ast.ClassDecl); ok {
				r.declareClass(c, pkg, f)
			}
		}
	}
	for _, f := range files {
		r.buildFileScope(f)
	}
	for _, w := range r.classes {
		r.buildClassScope(w)
	}
	for _, w := range r.classes {
		r.resolveTypeParams(w)
	}
	for _, w := range r.classes {
		r.resolveSupertypes(w)
	}
	r.checkSupertypeCycles()

	for _, f := range files {
		pkg := r.table.Package(f.Package)
		sc := r.fileScopes[f]
		for _, d := range f.Decls {
			switch d := d.(type) {
			case *ast.FunDecl:
				r.declareFunction(d, pkg, sc, f)
			case *ast.PropertyDecl:
				r.declareProperty(d, pkg, sc, f)
			}
		}
	}
	for _, w := range r.classes {
		r.declareMembers(w)
	}
	for _, f := range files {
		pkg := r.table.Package(f.Package)
		for _, sc := range r.pkgScopes[f.Package] {
			r.addPackageMembers(sc, pkg, false, true)
		}
		delete(r.pkgScopes, f.Package)
	}
	for _, f := range files {
		r.importValues(f)
	}

	r.checkRedeclarations()
	r.checkOverrides()

	if inf != nil {
		for _, id := range r.deferred {
			r.InferType(id, inf)
		}
	}
	r.table.Seal()
}

// InferType returns the inferred type of a deferred declaration, computing
// it through inf on first use. Cycles yield the error type.
func (r *Resolver) InferType(id types.ID, inf Inferrer) *types.Type {
	if t, ok := r.inferred[id]; ok {
		return t
	}
	d := r.table.Get(id)
	if r.inferring[id] {
		r.store.Report(diagnostics.NewError("type checking has run into a recursive problem").
			WithCode(diagnostics.ErrTypeMismatch).
			WithPrimaryLabel(d.Loc, "cannot infer the type of '"+d.Name+"'").
			WithHelp("specify the type explicitly"))
		return types.ErrorType()
	}
	r.inferring[id] = true
	t := inf.InferDeclarationType(id)
	delete(r.inferring, id)
	if t == nil {
		t = types.ErrorType()
	}
	r.inferred[id] = t
	r.table.Update(id, func(d *types.Descriptor) {
		switch {
		case d.Var != nil:
			d.Var.Type = t
		case d.Func != nil:
			d.Func.Result = t
		}
	})
	return t
}

// IsDeferred reports whether id had no written type and has not been
// inferred yet.
func (r *Resolver) IsDeferred(id types.ID) bool {
	d := r.table.Get(id)
	if d.Var != nil {
		return d.Var.Type == nil
	}
	return d.Func != nil && d.Func.Result == nil
}

// FileScope returns the outermost scope of a file.
func (r *Resolver) FileScope(f *ast.File) *table.Scope { return r.fileScopes[f] }

// ClassScope returns the scope of a class body: type parameters, nested
// classes and the implicit receiver.
func (r *Resolver) ClassScope(id types.ID) *table.Scope { return r.classScopes[id] }

// SignatureScope returns the scope a function, constructor or property
// resolves its signature and body in.
func (r *Resolver) SignatureScope(id types.ID) *table.Scope { return r.sigScopes[id] }

// FileOf returns the file a top-level or member declaration came from.
func (r *Resolver) FileOf(id types.ID) *ast.File { return r.fileOf[id] }

// Files returns the resolved files.
func (r *Resolver) Files() []*ast.File { return r.files }

// Classes returns every class descriptor created from source, in
// declaration order, including enum entries.
func (r *Resolver) Classes() []types.ID {
	out := make([]types.ID, len(r.classes))
	for i, w := range r.classes {
		out[i] = w.id
	}
	return out
}

func (r *Resolver) report(d *diagnostics.Diagnostic) {
	r.store.Report(d)
}

func visibility(m ast.Modifiers) types.Visibility {
	switch m.Visibility {
	case ast.VisibilityPrivate:
		return types.Private
	case ast.VisibilityProtected:
		return types.Protected
	case ast.VisibilityInternal:
		return types.Internal
	}
	return types.Public
}
