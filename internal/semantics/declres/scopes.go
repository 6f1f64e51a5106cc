package declres

import (
	"strings"

	"jetc/internal/diagnostics"
	"jetc/internal/frontend/ast"
	"jetc/internal/semantics/table"
	"jetc/internal/types"
)

// packageMembersScope exposes every member of pkg currently registered.
func (r *Resolver) packageMembersScope(parent *table.Scope, pkg types.ID, kind table.ScopeKind) *table.Scope {
	sc := table.NewScope(parent, kind, pkg)
	r.addPackageMembers(sc, pkg, true, true)
	return sc
}

func (r *Resolver) addPackageMembers(sc *table.Scope, pkg types.ID, classes, values bool) {
	for _, m := range r.table.Members(pkg, "") {
		d := r.table.Get(m)
		switch {
		case d.Kind == types.KindClass && classes:
			_ = sc.DeclareClassifier(d.Name, m)
		case d.Kind == types.KindFunction && values:
			sc.DeclareFun(d.Name, m)
		case d.Kind == types.KindVariable && values:
			_ = sc.DeclareVar(d.Name, m)
		}
	}
}

// fileImports keeps the import layers of a file so values can be added once
// functions and properties exist.
type fileImports struct {
	star     *table.Scope
	explicit *table.Scope
}

// buildFileScope creates, for one file, the chain
// jet <- star imports <- same package <- explicit imports.
func (r *Resolver) buildFileScope(f *ast.File) {
	pkg := r.table.Package(f.Package)
	star := table.NewScope(r.jetScope, table.ScopeFile, types.NoID)
	pkgScope := table.NewScope(star, table.ScopeFile, pkg)
	explicit := table.NewScope(pkgScope, table.ScopeFile, pkg)

	r.addPackageMembers(pkgScope, pkg, true, false)
	r.pkgScopes[f.Package] = append(r.pkgScopes[f.Package], pkgScope)

	for _, imp := range f.Imports {
		if imp.All {
			if id, ok := r.table.LookupPackage(imp.Path); ok {
				r.addPackageMembers(star, id, true, false)
			}
			continue
		}
		pkgPath, name := splitLast(imp.Path)
		alias := name
		if imp.Alias != "" {
			alias = imp.Alias
		}
		if id, ok := r.table.LookupPackage(pkgPath); ok {
			for _, m := range r.table.Members(id, name) {
				if r.table.Get(m).Kind == types.KindClass {
					_ = explicit.DeclareClassifier(alias, m)
				}
			}
		}
	}
	r.imports[f] = &fileImports{star: star, explicit: explicit}
	r.fileScopes[f] = explicit
}

// importValues adds imported functions and properties and reports imports
// that resolve to nothing.
func (r *Resolver) importValues(f *ast.File) {
	layers := r.imports[f]
	delete(r.imports, f)
	for _, imp := range f.Imports {
		if imp.All {
			id, ok := r.table.LookupPackage(imp.Path)
			if !ok {
				r.report(diagnostics.UnresolvedReference(imp.Loc(), imp.Path))
				continue
			}
			r.addPackageMembers(layers.star, id, false, true)
			continue
		}
		pkgPath, name := splitLast(imp.Path)
		alias := name
		if imp.Alias != "" {
			alias = imp.Alias
		}
		id, ok := r.table.LookupPackage(pkgPath)
		var found []types.ID
		if ok {
			found = r.table.Members(id, name)
		}
		if len(found) == 0 {
			r.report(diagnostics.UnresolvedReference(imp.Loc(), imp.Path))
			continue
		}
		for _, m := range found {
			switch r.table.Get(m).Kind {
			case types.KindFunction:
				layers.explicit.DeclareFun(alias, m)
			case types.KindVariable:
				_ = layers.explicit.DeclareVar(alias, m)
			}
		}
	}
}

func splitLast(path string) (string, string) {
	if i := strings.LastIndex(path, "."); i >= 0 {
		return path[:i], path[i+1:]
	}
	return "", path
}

// buildClassScope creates the body scope of a class once its parent scope
// exists.
func (r *Resolver) buildClassScope(w *classWork) {
	parent := w.parent
	if parent == nil {
		if outer := r.table.Get(w.id).Owner; r.table.Get(outer).Kind == types.KindClass {
			parent = r.classScopes[outer]
		} else {
			parent = r.fileScopes[r.fileOf[w.id]]
		}
	}
	sc := table.NewScope(parent, table.ScopeClass, w.id)
	sc.Label = r.table.Get(w.id).Name
	for _, m := range r.table.Members(w.id, "") {
		if d := r.table.Get(m); d.Kind == types.KindClass {
			_ = sc.DeclareClassifier(d.Name, m)
		}
	}
	r.classScopes[w.id] = sc
	w.scope = sc
}
