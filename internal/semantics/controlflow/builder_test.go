package controlflow

import (
	"strings"
	"testing"

	"github.com/nalgeon/be"

	"jetc/internal/diagnostics"
	"jetc/internal/frontend/ast"
	"jetc/internal/frontend/astbuild"
	"jetc/internal/invariant"
	"jetc/internal/semantics/binding"
	"jetc/internal/tokens"
)

func build(owner ast.Node) (*Pseudocode, *binding.Store) {
	s := binding.NewStore(nil)
	return NewBuilder(s).Build(owner), s
}

func kinds(pc *Pseudocode) []Kind {
	out := make([]Kind, len(pc.Instructions()))
	for i, in := range pc.Instructions() {
		out[i] = in.Kind
	}
	return out
}

func countElement(pc *Pseudocode, n ast.Node) int {
	c := 0
	for _, in := range pc.Instructions() {
		if in.Element == n {
			c++
		}
	}
	return c
}

func TestWhileLoopShape(t *testing.T) {
	b := astbuild.New("while.jet")
	cond := b.Bin(b.Name("x"), tokens.GREATER_TOKEN, b.Int(0))
	loop := b.While(cond, b.Assign(b.Name("x"), tokens.EQUALS_TOKEN, b.Bin(b.Name("x"), tokens.MINUS_TOKEN, b.Int(1))))
	fn := b.Fun("f", nil, nil, loop)
	pc, s := build(fn)
	be.Equal(t, len(s.Diagnostics()), 0)

	ins := pc.Instructions()
	var condJump, backEdge *Instruction
	for _, in := range ins {
		switch {
		case in.Kind == CondJump && in.Element == ast.Node(cond):
			condJump = in
		case in.Kind == Jump && in.Jump == Goto:
			backEdge = in
		}
	}
	be.True(t, condJump != nil)
	be.True(t, backEdge != nil)
	be.True(t, !condJump.OnTrue)
	// the exit jump lands right after the back edge
	be.Equal(t, condJump.Label.Index(), backEdge.Index()+1)
	// the back edge returns to the first instruction of the condition
	be.Equal(t, ins[backEdge.Label.Index()].Element, ast.Node(cond.X))
	be.True(t, condJump.Index() < backEdge.Index())
}

func TestSealedGraphHasBoundLabels(t *testing.T) {
	b := astbuild.New("labels.jet")
	fn := b.Fun("f", []*ast.Param{b.Param("c", b.Type("Boolean"))}, b.Type("Int"),
		b.If(b.Name("c"), b.Return(b.Int(1)), nil),
		b.When(b.Name("c"),
			b.WhenValue(b.Int(2), b.Bool(true)),
			b.WhenElse(b.Int(3)),
		),
		b.For("i", b.Name("xs"), b.If(b.Name("c"), b.Break(""), b.Continue(""))),
		b.Try(b.Block(b.Call("g")), b.Block(b.Call("h")), b.Catch("e", b.Type("Exception"))),
		b.Return(b.Bin(b.Name("c"), tokens.AND_TOKEN, b.Name("c"))),
	)
	pc, _ := build(fn)

	be.True(t, pc.Sealed())
	for _, in := range pc.Instructions() {
		if in.Label != nil {
			be.True(t, in.Label.Bound())
		}
		for _, l := range in.Targets {
			be.True(t, l.Bound())
		}
	}
	n := len(pc.Instructions())
	be.Equal(t, pc.ExitIndex(), n-3)
	be.Equal(t, pc.ErrorIndex(), n-2)
	be.Equal(t, pc.SinkIndex(), n-1)
	be.Equal(t, len(pc.Successors(pc.SinkIndex())), 0)
	be.Equal(t, kinds(pc)[0], Enter)
}

func TestEmitAfterSealPanics(t *testing.T) {
	b := astbuild.New("seal.jet")
	pc, _ := build(b.Fun("f", nil, nil))
	err := invariant.Catch(func() { pc.add(&Instruction{Kind: Read}) })
	be.Err(t, err, "sealed pseudocode")
}

func TestUnboundLabelFailsSeal(t *testing.T) {
	pc := newPseudocode(nil, nil)
	pc.add(&Instruction{Kind: Jump, Label: pc.newLabel("dangling")})
	err := invariant.Catch(pc.seal)
	be.Err(t, err, "unbound label")
}

func TestJumpDiagnostics(t *testing.T) {
	tests := []struct {
		name string
		body func(b *astbuild.B) ast.Node
		code string
	}{
		{"break outside loop", func(b *astbuild.B) ast.Node { return b.Break("") }, diagnostics.ErrBreakOutsideLoop},
		{"continue outside loop", func(b *astbuild.B) ast.Node { return b.Continue("") }, diagnostics.ErrContinueOutsideLoop},
		{"unknown loop label", func(b *astbuild.B) ast.Node {
			return b.While(b.Bool(true), b.Break("outer"))
		}, diagnostics.ErrUnresolvedLabel},
		{"break across lambda", func(b *astbuild.B) ast.Node {
			return b.While(b.Bool(true), b.Lambda(nil, b.Break("")))
		}, diagnostics.ErrBreakOutsideLoop},
		{"unknown return label", func(b *astbuild.B) ast.Node { return b.ReturnAt("nope", nil) }, diagnostics.ErrUnresolvedLabel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := astbuild.New(tt.name + ".jet")
			_, s := build(b.Fun("f", nil, nil, tt.body(b)))
			diags := s.Diagnostics()
			be.Equal(t, len(diags), 1)
			be.Equal(t, diags[0].Code, tt.code)
		})
	}
}

func TestLabelledBreakTargetsOuterLoop(t *testing.T) {
	b := astbuild.New("labelled.jet")
	brk := b.Break("outer")
	inner := b.While(b.Name("c"), brk)
	outer := b.While(b.Name("c"), inner)
	_, s := build(b.Fun("f", nil, nil, b.Labeled("outer", outer)))

	target, ok := binding.Get(s, binding.LoopTarget, ast.Node(brk))
	be.True(t, ok)
	be.Equal(t, target, ast.Expression(outer))
}

func TestFinallyIsReemittedOnCrossingJumps(t *testing.T) {
	b := astbuild.New("finally.jet")
	innerCall := b.Call("inner")
	outerCall := b.Call("outer")
	brk := b.Break("")
	inner := b.Try(b.Block(brk), b.Block(innerCall))
	outer := b.Try(b.Block(inner), b.Block(outerCall))
	pc, _ := build(b.Fun("f", nil, nil, b.While(b.Bool(true), outer)))

	// break copy, error copy and normal copy for each finally
	be.Equal(t, countElement(pc, innerCall), 3)
	be.Equal(t, countElement(pc, outerCall), 3)

	// on the break path the inner finally runs before the outer one
	var order []string
	for _, in := range pc.Instructions() {
		if in.Element == ast.Node(innerCall) {
			order = append(order, "inner")
		}
		if in.Element == ast.Node(outerCall) {
			order = append(order, "outer")
		}
		if in.Element == ast.Node(brk) {
			break
		}
	}
	be.Equal(t, order, []string{"inner", "outer"})
}

func TestJumpsInsideFinallyAreRecordedOnce(t *testing.T) {
	b := astbuild.New("finallyjump.jet")
	inFinally := b.Break("")
	ret := b.Return(nil)
	loop := b.While(b.Bool(true), b.Try(b.Block(ret), b.Block(inFinally)))
	fn := b.Fun("f", nil, nil, loop)

	pc, s := build(fn)

	// the finally block is walked for the return, the error path and the
	// normal exit
	be.Equal(t, countElement(pc, inFinally), 3)
	got, ok := binding.Get(s, binding.LoopTarget, ast.Node(inFinally))
	be.True(t, ok)
	be.Equal(t, got, ast.Expression(loop))
	target, ok := binding.Get(s, binding.ReturnTarget, ast.Node(ret))
	be.True(t, ok)
	be.Equal(t, target, ast.Node(fn))
}

func TestRebuildingASubroutineFailsFast(t *testing.T) {
	b := astbuild.New("twice.jet")
	fn := b.Fun("f", nil, nil, b.While(b.Bool(true), b.Break("")))
	s := binding.NewStore(nil)
	NewBuilder(s).Build(fn)

	err := invariant.Catch(func() { NewBuilder(s).Build(fn) })
	be.Err(t, err, "invariant violation")
}

func TestReturnTargets(t *testing.T) {
	b := astbuild.New("returns.jet")
	plain := b.Return(b.Int(1))
	labelled := b.ReturnAt("forEach", b.Int(2))
	lambda := b.Lambda(nil, plain, labelled)
	call := b.Call("forEach", lambda)
	fn := b.Fun("f", nil, b.Type("Int"), call, b.Return(b.Int(0)))
	pc, s := build(fn)
	be.Equal(t, len(s.Diagnostics()), 0)

	got, _ := binding.Get(s, binding.ReturnTarget, ast.Node(plain))
	be.Equal(t, got, ast.Node(fn))
	got, _ = binding.Get(s, binding.ReturnTarget, ast.Node(labelled))
	be.Equal(t, got, ast.Node(lambda))

	be.Equal(t, len(pc.Locals()), 1)
	local := pc.Locals()[0]
	be.Equal(t, local.Parent, pc)
	for _, in := range local.Instructions() {
		if in.Element == ast.Node(plain) {
			be.True(t, in.NonLocal)
		}
		if in.Element == ast.Node(labelled) {
			be.True(t, !in.NonLocal)
		}
	}
}

func TestReturnOutsideFunction(t *testing.T) {
	b := astbuild.New("init.jet")
	c := b.Class("C", b.Val("x", nil, b.Return(nil)))
	_, s := build(c)
	be.Equal(t, s.Diagnostics()[0].Code, diagnostics.ErrReturnNotAllowed)
}

func TestClassInitializerOrder(t *testing.T) {
	b := astbuild.New("class.jet")
	first := b.Val("a", nil, b.Int(1))
	init := &ast.Initializer{Body: b.Block(b.Call("log")), Location: b.Loc()}
	second := b.Val("b", nil, b.Int(2))
	c := b.Class("C", first, init, second)
	c.Params = []*ast.Param{b.ValParam("p", b.Type("Int"), false)}
	pc, _ := build(c)

	var writes []string
	for _, in := range pc.Instructions() {
		if in.Kind == Write {
			writes = append(writes, describe(in.Element))
		}
	}
	be.Equal(t, writes, []string{"p", "a", "b"})
}

func TestStringRendering(t *testing.T) {
	b := astbuild.New("render.jet")
	pc, _ := build(b.Fun("f", nil, nil, b.Val("x", nil, b.Int(1))))
	text := pc.String()
	be.True(t, strings.Contains(text, "<START>"))
	be.True(t, strings.Contains(text, "v(x)"))
	be.True(t, strings.Contains(text, "w(x)"))
	be.True(t, strings.Contains(text, "L0 [exit]:"))
	be.True(t, strings.Contains(text, "<SINK>"))
}
