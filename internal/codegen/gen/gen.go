// Package gen lowers typed syntax trees to the class model of package
// bytecode. Every class, trait, object and enum becomes one class node; enum
// entries with a body, function literals, local functions and local or
// anonymous classes get synthetic nested classes; top-level functions and
// properties live in a per-package facade class.
//
// Generation is total: a construct the generator cannot lower becomes an
// UNSUPPORTED instruction, which bytecode.Validate rejects.
package gen

import (
	"path/filepath"
	"strconv"

	"jetc/internal/codegen/bytecode"
	"jetc/internal/frontend/ast"
	"jetc/internal/semantics/binding"
	"jetc/internal/semantics/consteval"
	"jetc/internal/semantics/declres"
	"jetc/internal/types"
)

// Generator generates the classes of one compilation.
type Generator struct {
	table   *types.Table
	checker *types.Checker
	store   *binding.Store
	decls   *declres.Resolver
	bi      *types.Builtins
	types   *typeMapper
	consts  *consteval.Evaluator

	module   *bytecode.Module
	facades  map[types.ID]*classGen
	classes  map[types.ID]*classGen // classes, lambdas and local functions by declaration
	names    map[ast.Node]string    // closure classes of literals and local functions
	seq      map[string]int
	closures map[types.ID]*closure
	overs    map[types.ID][]types.ID
}

// New creates a generator over the results of a finished analysis.
func New(checker *types.Checker, store *binding.Store, decls *declres.Resolver) *Generator {
	tab := checker.Table()
	return &Generator{
		table:    tab,
		checker:  checker,
		store:    store,
		decls:    decls,
		bi:       tab.Builtins(),
		types:    newTypeMapper(tab),
		consts:   consteval.New(store, tab),
		module:   &bytecode.Module{},
		facades:  make(map[types.ID]*classGen),
		classes:  make(map[types.ID]*classGen),
		names:    make(map[ast.Node]string),
		seq:      make(map[string]int),
		closures: make(map[types.ID]*closure),
		overs:    make(map[types.ID][]types.ID),
	}
}

// Generate lowers files and returns the module with its classes sorted by
// name.
func (g *Generator) Generate(files []*ast.File) *bytecode.Module {
	for _, f := range files {
		g.nameLocals(f, "")
	}
	for _, f := range files {
		for _, d := range f.Decls {
			g.topLevel(f, d)
		}
	}
	for _, fc := range g.facades {
		fc.finish()
	}
	g.module.Sort()
	return g.module
}

func (g *Generator) topLevel(f *ast.File, d ast.Decl) {
	id, ok := binding.Get(g.store, binding.Declaration, ast.Node(d))
	if !ok {
		return
	}
	switch d := d.(type) {
	case *ast.FunDecl:
		g.function(g.facade(f, id), id, d)
	case *ast.PropertyDecl:
		g.property(g.facade(f, id), id, d)
	case *ast.ClassDecl:
		g.class(id, d, nil)
	}
}

// facade returns the class holding the top-level declarations of the
// package of id.
func (g *Generator) facade(f *ast.File, id types.ID) *classGen {
	pkg := g.table.PackageOf(id)
	if fc, ok := g.facades[pkg]; ok {
		return fc
	}
	node := &bytecode.ClassNode{
		Access: bytecode.AccPublic | bytecode.AccFinal | bytecode.AccSuper,
		Name:   g.table.FacadeName(pkg),
		Super:  "java/lang/Object",
		Source: filepath.Base(f.Path),
	}
	fc := &classGen{g: g, node: node, static: true}
	g.facades[pkg] = fc
	g.module.Classes = append(g.module.Classes, node)
	return fc
}

// nameLocals assigns binary names to the classes generated for function
// literals, local functions and local or anonymous classes, numbering them
// per enclosing class in source order. encl is the class the code of n
// belongs to; "" at file level.
func (g *Generator) nameLocals(n ast.Node, encl string) {
	switch n := n.(type) {
	case *ast.File:
		for _, d := range n.Decls {
			if id, ok := binding.Get(g.store, binding.Declaration, ast.Node(d)); ok {
				g.nameLocals(d, g.table.FacadeName(g.table.PackageOf(id)))
			}
		}
		return
	case *ast.ClassDecl:
		id, ok := binding.Get(g.store, binding.Declaration, ast.Node(n))
		if !ok {
			return
		}
		d := g.table.Get(id)
		name := g.table.InternalName(id)
		if d.Class.Local || d.Class.Kind == types.ClassAnonymous {
			name = encl + "$" + strconv.Itoa(g.next(encl))
			if d.Class.Kind != types.ClassAnonymous {
				name += d.Name
			}
			g.types.names[id] = name
		} else if outer, ok := g.types.names[d.Owner]; ok {
			// nested in a local class
			name = outer + "$" + d.Name
			g.types.names[id] = name
		}
		g.nameChildren(n, name)
		return
	case *ast.EnumEntry:
		if id, ok := binding.Get(g.store, binding.Declaration, ast.Node(n)); ok && len(n.Members) > 0 {
			name := encl + "$" + n.Name.Name
			g.types.names[id] = name
			g.nameChildren(n, name)
			return
		}
	case *ast.FunctionLiteral:
		name := encl + "$" + strconv.Itoa(g.next(encl))
		g.names[n] = name
		g.nameChildren(n, name)
		return
	case *ast.FunDecl:
		if id, ok := binding.Get(g.store, binding.Declaration, ast.Node(n)); ok && g.table.Get(id).Func.Local {
			name := encl + "$" + n.Name.Name + "$" + strconv.Itoa(g.next(encl))
			g.names[n] = name
			g.nameChildren(n, name)
			return
		}
	}
	g.nameChildren(n, encl)
}

func (g *Generator) nameChildren(n ast.Node, encl string) {
	for _, ch := range ast.Children(n) {
		g.nameLocals(ch, encl)
	}
}

func (g *Generator) next(encl string) int {
	g.seq[encl]++
	return g.seq[encl]
}

// typeOf is the type e is used at: its smart cast, else its static type.
func (g *Generator) typeOf(e ast.Node) *types.Type {
	if t, ok := binding.Get(g.store, binding.SmartCast, e); ok {
		return t
	}
	t, _ := binding.Get(g.store, binding.ExpressionType, e)
	return t
}

// staticType is the declared type of the value e reads.
func (g *Generator) staticType(e ast.Node) *types.Type {
	t, _ := binding.Get(g.store, binding.ExpressionType, e)
	return t
}

func (g *Generator) ref(n ast.Node) (types.ID, bool) {
	return binding.Get(g.store, binding.Reference, n)
}

func (g *Generator) decl(n ast.Node) (types.ID, bool) {
	return binding.Get(g.store, binding.Declaration, n)
}

// varType is the machine type a variable is stored at.
func (g *Generator) varType(id types.ID) bytecode.Type {
	return g.types.mapType(g.table.Get(id).Var.Type)
}

// isBoxed reports a local var some closure captures. Such a variable lives
// in a Ref cell shared with the closures.
func (g *Generator) isBoxed(id types.ID) bool {
	d := g.table.Get(id)
	if d.Kind != types.KindVariable || !d.Var.Mutable || d.Var.Storage != types.StorageLocal || d.Decl == nil {
		return false
	}
	return binding.Has(g.store, binding.Captured, d.Decl)
}

func (g *Generator) isUnitOrNothing(t *types.Type) bool {
	return g.types.mapReturn(t) == bytecode.Void
}

func (g *Generator) isNothing(t *types.Type) bool {
	return t != nil && !t.Nullable() && types.IsClassType(t, g.bi.Nothing)
}

// inside reports whether the declaration id is nested in container.
func (g *Generator) inside(id, container types.ID) bool {
	for ; id != types.NoID; id = g.table.Get(id).Owner {
		if id == container {
			return true
		}
	}
	return false
}

func (g *Generator) sourceOf(id types.ID) string {
	if f := g.decls.FileOf(id); f != nil {
		return filepath.Base(f.Path)
	}
	return ""
}
