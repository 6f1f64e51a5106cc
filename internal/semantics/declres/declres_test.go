package declres

import (
	"testing"

	"github.com/nalgeon/be"

	"jetc/internal/diagnostics"
	"jetc/internal/frontend/ast"
	"jetc/internal/frontend/astbuild"
	"jetc/internal/invariant"
	"jetc/internal/semantics/binding"
	"jetc/internal/semantics/table"
	"jetc/internal/types"
)

type inferFunc func(types.ID) *types.Type

func (f inferFunc) InferDeclarationType(id types.ID) *types.Type { return f(id) }

func resolve(inf Inferrer, files ...*ast.File) (*Resolver, *binding.Store) {
	store := binding.NewStore(nil)
	r := New(types.NewTable(), store)
	r.Resolve(files, inf)
	return r, store
}

func codes(s *binding.Store) []string {
	var out []string
	for _, d := range s.Bag().Sorted() {
		out = append(out, d.Code)
	}
	return out
}

func declOf(t *testing.T, s *binding.Store, n ast.Node) types.ID {
	t.Helper()
	id, ok := binding.Get(s, binding.Declaration, n)
	be.True(t, ok)
	return id
}

func TestDuplicateOverloadsReportedOnEveryDeclaration(t *testing.T) {
	b := astbuild.New("dup.jet")
	f1 := b.Fun("f", []*ast.Param{b.Param("x", b.Type("Int"))}, nil)
	f2 := b.Fun("f", []*ast.Param{b.Param("y", b.Type("Int"))}, nil)
	file := b.File("", b.Class("A", f1, f2))

	_, s := resolve(nil, file)

	diags := s.Bag().WithCode(diagnostics.ErrConflictingOverloads)
	be.Equal(t, len(diags), 2)
	be.Equal(t, diags[0].Location(), f1.Loc())
	be.Equal(t, diags[1].Location(), f2.Loc())
}

func TestOverloadsWithDifferentParametersAreAccepted(t *testing.T) {
	b := astbuild.New("ok.jet")
	file := b.File("",
		b.Fun("f", []*ast.Param{b.Param("x", b.Type("Int"))}, nil),
		b.Fun("f", []*ast.Param{b.Param("x", b.Type("String"))}, nil),
		b.Fun("f", nil, nil),
	)
	r, s := resolve(nil, file)
	be.Equal(t, len(codes(s)), 0)

	pkg, _ := r.Table().LookupPackage("")
	be.Equal(t, len(r.Table().Members(pkg, "f")), 3)
}

func TestRedeclaredPropertiesAndClasses(t *testing.T) {
	b := astbuild.New("redecl.jet")
	file := b.File("p",
		b.Val("x", b.Type("Int"), nil),
		b.Val("x", b.Type("String"), nil),
		b.Class("C"),
		b.Class("C"),
	)
	_, s := resolve(nil, file)
	be.Equal(t, len(s.Bag().WithCode(diagnostics.ErrRedeclaration)), 4)
}

func TestTableIsSealedAfterResolve(t *testing.T) {
	b := astbuild.New("seal.jet")
	c := b.Class("C")
	r, s := resolve(nil, b.File("", c))
	be.True(t, r.Table().Sealed())

	id := declOf(t, s, c)
	err := invariant.Catch(func() {
		r.Table().Update(id, func(d *types.Descriptor) { d.Name = "D" })
	})
	be.True(t, err != nil)
	be.Equal(t, r.Table().Get(id).Name, "C")
}

func TestSupertypes(t *testing.T) {
	b := astbuild.New("super.jet")
	tr := b.Trait("T")
	base := b.Open("Base")
	derived := b.Extends(b.Class("Derived"), b.Type("Base"), b.Type("T"))
	plain := b.Class("Plain")
	r, s := resolve(nil, b.File("", tr, base, derived, plain))
	be.Equal(t, len(codes(s)), 0)

	tab := r.Table()
	bt := tab.Builtins()
	d := tab.Get(declOf(t, s, derived))
	be.Equal(t, len(d.Class.Supertypes), 2)
	be.Equal(t, d.Class.Supertypes[0].String(), "Base")
	be.Equal(t, d.Class.Supertypes[1].String(), "T")
	be.True(t, tab.IsSubclassOf(d.ID(), declOf(t, s, tr)))

	p := tab.Get(declOf(t, s, plain))
	be.True(t, types.IsClassType(p.Class.Supertypes[0], bt.Any))
}

func TestSupertypeErrors(t *testing.T) {
	tests := []struct {
		name  string
		decls func(b *astbuild.B) []ast.Decl
		code  string
	}{
		{"final class", func(b *astbuild.B) []ast.Decl {
			return []ast.Decl{b.Class("A"), b.Extends(b.Class("B"), b.Type("A"))}
		}, diagnostics.ErrFinalSupertype},
		{"two classes", func(b *astbuild.B) []ast.Decl {
			return []ast.Decl{b.Open("A"), b.Open("B"), b.Extends(b.Class("C"), b.Type("A"), b.Type("B"))}
		}, diagnostics.ErrManyClassSupertypes},
		{"unresolved", func(b *astbuild.B) []ast.Decl {
			return []ast.Decl{b.Extends(b.Class("C"), b.Type("Missing"))}
		}, diagnostics.ErrUnresolvedType},
		{"type parameter", func(b *astbuild.B) []ast.Decl {
			c := b.Extends(b.Class("C"), b.Type("T"))
			c.TypeParams = []*ast.TypeParam{b.TypeParam("T", ast.Invariant, nil)}
			return []ast.Decl{c}
		}, diagnostics.ErrSupertypeNotClass},
		{"object", func(b *astbuild.B) []ast.Decl {
			return []ast.Decl{b.Object("O"), b.Extends(b.Class("C"), b.Type("O"))}
		}, diagnostics.ErrFinalSupertype},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := astbuild.New(tt.name + ".jet")
			_, s := resolve(nil, b.File("", tt.decls(b)...))
			be.Equal(t, codes(s), []string{tt.code})
		})
	}
}

func TestSupertypeCycleIsReportedAndCut(t *testing.T) {
	b := astbuild.New("cycle.jet")
	a := b.Extends(b.Open("A"), b.Type("B"))
	bb := b.Extends(b.Open("B"), b.Type("A"))
	c := b.Extends(b.Class("C"), b.Type("A"))
	r, s := resolve(nil, b.File("", a, bb, c))

	be.Equal(t, codes(s), []string{diagnostics.ErrCyclicSupertypes, diagnostics.ErrCyclicSupertypes})

	checker := types.NewChecker(r.Table())
	at := r.Table().DefaultType(declOf(t, s, a))
	ct := r.Table().DefaultType(declOf(t, s, c))
	be.True(t, checker.IsSubtypeOf(ct, at))
	be.True(t, checker.IsSubtypeOf(at, r.Table().Builtins().AnyType))
}

func TestGenericClassSignature(t *testing.T) {
	b := astbuild.New("box.jet")
	box := b.Class("Box", b.Fun("get", nil, b.Type("T"), b.Return(b.Null())))
	box.TypeParams = []*ast.TypeParam{b.TypeParam("T", ast.Out, b.Type("Number"))}
	box.Params = []*ast.Param{b.ValParam("value", b.Type("T"), false)}
	r, s := resolve(nil, b.File("", box))
	be.Equal(t, len(codes(s)), 0)

	tab := r.Table()
	d := tab.Get(declOf(t, s, box))
	be.Equal(t, len(d.Class.TypeParams), 1)
	tp := tab.Get(d.Class.TypeParams[0])
	be.Equal(t, tp.TypeParam.Variance, types.Out)
	be.Equal(t, tp.TypeParam.Bounds[0].String(), "Number")

	ctor := tab.Get(d.Class.Primary)
	be.Equal(t, ctor.Kind, types.KindConstructor)
	be.Equal(t, ctor.Func.Result.String(), "Box<T>")
	be.Equal(t, len(ctor.Func.Params), 1)

	prop, ok := binding.Get(s, PropertyParam, ast.Node(box.Params[0]))
	be.True(t, ok)
	pd := tab.Get(prop)
	be.Equal(t, pd.Var.Storage, types.StorageProperty)
	be.True(t, !pd.Var.Mutable)
	be.Equal(t, pd.Var.Type.String(), "T")
	be.Equal(t, len(tab.Members(d.ID(), "value")), 1)
}

func TestWrongTypeArgumentCount(t *testing.T) {
	b := astbuild.New("arity.jet")
	box := b.Class("Box")
	box.TypeParams = []*ast.TypeParam{b.TypeParam("T", ast.Invariant, nil)}
	_, s := resolve(nil, b.File("", box, b.Val("x", b.Type("Box"), nil)))
	be.Equal(t, codes(s), []string{diagnostics.ErrWrongTypeArity})
}

func TestEnumDeclaration(t *testing.T) {
	b := astbuild.New("enum.jet")
	color := b.Enum("Color", []string{"RED", "GREEN"})
	r, s := resolve(nil, b.File("", color))
	be.Equal(t, len(codes(s)), 0)

	tab := r.Table()
	d := tab.Get(declOf(t, s, color))
	be.Equal(t, d.Class.Kind, types.ClassEnum)
	be.Equal(t, len(d.Class.Entries), 2)
	be.Equal(t, d.Class.Supertypes[0].String(), "Enum<Color>")
	be.Equal(t, tab.Get(d.Class.Primary).Visibility, types.Private)

	green := tab.Get(d.Class.Entries[1])
	be.Equal(t, green.Name, "GREEN")
	be.Equal(t, green.Class.Ordinal, 1)
	be.True(t, green.Static)
	be.True(t, green.IsObject())
	be.Equal(t, green.Class.Supertypes[0].String(), "Color")
	be.Equal(t, tab.InternalName(green.ID()), "Color$GREEN")
}

func TestOverrideChecks(t *testing.T) {
	tests := []struct {
		name    string
		members func(b *astbuild.B) []ast.Decl
		code    string
	}{
		{"missing override", func(b *astbuild.B) []ast.Decl {
			return []ast.Decl{b.Fun("f", nil, nil)}
		}, diagnostics.ErrMissingOverride},
		{"overrides nothing", func(b *astbuild.B) []ast.Decl {
			return []ast.Decl{astbuild.Override(b.Fun("g", nil, nil))}
		}, diagnostics.ErrOverridesNothing},
		{"final member", func(b *astbuild.B) []ast.Decl {
			return []ast.Decl{astbuild.Override(b.Fun("h", nil, nil))}
		}, diagnostics.ErrFinalOverride},
		{"valid override", func(b *astbuild.B) []ast.Decl {
			return []ast.Decl{astbuild.Override(b.Fun("f", nil, nil))}
		}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := astbuild.New(tt.name + ".jet")
			base := b.Open("Base",
				astbuild.OpenMember(b.Fun("f", nil, nil)),
				b.Fun("h", nil, nil),
			)
			derived := b.ExtendsCall(b.Class("Derived", tt.members(b)...), b.Type("Base"))
			_, s := resolve(nil, b.File("", base, derived))
			if tt.code == "" {
				be.Equal(t, len(codes(s)), 0)
				return
			}
			be.Equal(t, codes(s), []string{tt.code})
		})
	}
}

func TestAbstractMemberNotImplemented(t *testing.T) {
	b := astbuild.New("abstract.jet")
	shape := b.Trait("Shape", b.AbstractFun("area", nil, b.Type("Double")))
	square := b.Extends(b.Class("Square"), b.Type("Shape"))
	circle := b.Extends(b.Class("Circle",
		astbuild.Override(b.ExprFun("area", nil, b.Type("Double"), b.Double("3.14"))),
	), b.Type("Shape"))
	half := b.Extends(b.Abstract("Half"), b.Type("Shape"))
	_, s := resolve(nil, b.File("", shape, square, circle, half))

	diags := s.Bag().WithCode(diagnostics.ErrAbstractNotImpl)
	be.Equal(t, len(diags), 1)
	be.Equal(t, diags[0].Location(), square.Name.Loc())
}

func TestDeferredTypesAreInferredBeforeSeal(t *testing.T) {
	b := astbuild.New("infer.jet")
	x := b.Val("x", nil, b.Int(1))
	f := b.ExprFun("f", nil, nil, b.Name("x"))

	var r *Resolver
	var s *binding.Store
	var calls []string
	inf := inferFunc(func(id types.ID) *types.Type {
		d := r.Table().Get(id)
		calls = append(calls, d.Name)
		be.True(t, !r.Table().Sealed())
		if d.Name == "f" {
			return r.InferType(declOf(t, s, x), nil)
		}
		return r.Table().Builtins().IntType
	})
	s = binding.NewStore(nil)
	r = New(types.NewTable(), s)
	r.Resolve([]*ast.File{b.File("", x, f)}, inf)

	be.Equal(t, calls, []string{"x", "f"})
	be.Equal(t, r.Table().Get(declOf(t, s, f)).Func.Result.String(), "Int")
	be.True(t, !r.IsDeferred(declOf(t, s, x)))
	be.Equal(t, len(codes(s)), 0)
}

func TestRecursiveInferenceIsReported(t *testing.T) {
	b := astbuild.New("rec.jet")
	f := b.ExprFun("f", nil, nil, b.Call("f"))

	var r *Resolver
	var inf inferFunc
	inf = func(id types.ID) *types.Type {
		return r.InferType(id, inf)
	}
	s := binding.NewStore(nil)
	r = New(types.NewTable(), s)
	r.Resolve([]*ast.File{b.File("", f)}, inf)

	be.Equal(t, codes(s), []string{diagnostics.ErrTypeMismatch})
	be.True(t, r.Table().Get(declOf(t, s, f)).Func.Result.IsError())
}

func TestImports(t *testing.T) {
	lib := astbuild.New("lib.jet")
	point := lib.Class("Point")
	libFile := lib.File("geo.shapes", point, lib.Fun("origin", nil, lib.Type("Point")))

	app := astbuild.New("app.jet")
	v := app.Val("p", app.Type("P"), nil)
	appFile := app.File("app", v)
	app.Import(appFile, "geo.shapes.Point", "P")
	app.Import(appFile, "geo.shapes.origin", "")
	app.Import(appFile, "geo.missing.*", "")

	r, s := resolve(nil, libFile, appFile)
	be.Equal(t, codes(s), []string{diagnostics.ErrUnresolvedReference})

	tab := r.Table()
	be.Equal(t, tab.Get(declOf(t, s, v)).Var.Type.Decl(), declOf(t, s, point))
	ids, _ := r.FileScope(appFile).Lookup("origin")
	be.Equal(t, len(ids), 1)
	be.Equal(t, tab.InternalName(declOf(t, s, point)), "geo/shapes/Point")
}

func TestSamePackageAcrossFiles(t *testing.T) {
	b1 := astbuild.New("a.jet")
	a := b1.Open("A")
	b2 := astbuild.New("b.jet")
	c := b2.Extends(b2.Class("C"), b2.Type("A"))
	r, s := resolve(nil, b1.File("pkg", a), b2.File("pkg", c))
	be.Equal(t, len(codes(s)), 0)
	be.True(t, r.Table().IsSubclassOf(declOf(t, s, c), declOf(t, s, a)))
}

func TestNestedClassScopes(t *testing.T) {
	b := astbuild.New("nested.jet")
	inner := b.Class("Inner")
	useInner := b.Val("i", b.Type("Inner"), nil)
	outer := b.Class("Outer", inner, useInner)
	outside := b.Val("o", b.Type("Outer.Inner"), nil)
	r, s := resolve(nil, b.File("", outer, outside))
	be.Equal(t, len(codes(s)), 0)

	tab := r.Table()
	innerID := declOf(t, s, inner)
	be.Equal(t, tab.InternalName(innerID), "Outer$Inner")
	be.Equal(t, tab.Get(declOf(t, s, outside)).Var.Type.Decl(), innerID)
	be.Equal(t, r.ClassScope(innerID).Parent(), r.ClassScope(declOf(t, s, outer)))
}

func TestSelfTypeOutsideClass(t *testing.T) {
	b := astbuild.New("self.jet")
	_, s := resolve(nil, b.File("", b.Val("x", b.SelfType(), nil)))
	be.Equal(t, codes(s), []string{diagnostics.ErrUnresolvedType})
}

func TestDeclareLocalClass(t *testing.T) {
	b := astbuild.New("local.jet")
	main := b.Fun("main", nil, nil)
	r, s := resolve(nil, b.File("", main))
	mainID := declOf(t, s, main)

	sc := table.NewScope(r.SignatureScope(mainID), table.ScopeBlock, mainID)
	local := b.Class("Local", b.Val("n", nil, b.Int(1)))
	id := r.DeclareLocalClass(local, mainID, sc)

	tab := r.Table()
	be.Equal(t, tab.InternalName(id), "namespace$1Local")
	got, ok := sc.LookupClassifier("Local")
	be.True(t, ok)
	be.Equal(t, got, id)
	be.True(t, tab.Get(id).Class.Local)
	be.Equal(t, len(r.TakeLocalDeferred()), 1)
	be.Equal(t, len(r.TakeLocalDeferred()), 0)

	anon := b.ObjectLit(b.Object("ignored"))
	aid := r.DeclareLocalClass(anon.Decl, mainID, sc)
	be.Equal(t, tab.InternalName(aid), "namespace$2")
	be.Equal(t, tab.Get(aid).Class.Kind, types.ClassAnonymous)
}

func TestDeclareLocalFunction(t *testing.T) {
	b := astbuild.New("localfun.jet")
	main := b.Fun("main", nil, nil)
	r, s := resolve(nil, b.File("", main))
	mainID := declOf(t, s, main)

	sc := table.NewScope(r.SignatureScope(mainID), table.ScopeBlock, mainID)
	helper := b.ExprFun("helper", []*ast.Param{b.Param("x", b.Type("Int"))}, nil, b.Name("x"))
	id := r.DeclareLocalFunction(helper, mainID, sc)

	d := r.Table().Get(id)
	be.True(t, d.Func.Local)
	be.True(t, r.IsDeferred(id))
	be.Equal(t, sc.LookupLocal("helper"), []types.ID{id})
	be.Equal(t, r.Table().Get(d.Func.Params[0]).Var.Storage, types.StorageParameter)
}
