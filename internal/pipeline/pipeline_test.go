package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nalgeon/be"
	"go.opentelemetry.io/otel/trace/noop"

	"jetc/internal/context_v2"
	"jetc/internal/diagnostics"
	"jetc/internal/frontend/ast"
	"jetc/internal/frontend/astbuild"
	"jetc/internal/invariant"
	"jetc/internal/tokens"
)

func newContext(files ...*ast.File) *context_v2.CompilerContext {
	ctx := context_v2.New(nil, false)
	for _, f := range files {
		ctx.AddUnit(&context_v2.Unit{Path: f.Path, File: f})
	}
	return ctx
}

func countdown(b *astbuild.B) *ast.File {
	f := b.File("demo",
		b.Fun("countdown", []*ast.Param{b.Param("x0", b.Type("Int"))}, nil,
			b.Var("x", nil, b.Name("x0")),
			b.While(b.Bin(b.Name("x"), tokens.GREATER_TOKEN, b.Int(0)),
				b.Assign(b.Name("x"), tokens.MINUS_EQUALS_TOKEN, b.Int(1)),
			),
		),
	)
	f.Path = "count.jet"
	return f
}

func TestRunGeneratesModule(t *testing.T) {
	ctx := newContext(countdown(astbuild.New("count.jet")))
	mod, err := New(ctx).Run(context.Background())
	be.Err(t, err, nil)
	be.Equal(t, mod.Build, ctx.BuildID.String())
	be.True(t, mod.Class("demo/namespace") != nil)
	be.Equal(t, ctx.GetUnitPhase("count.jet"), context_v2.PhaseGenerated)
}

func TestRunStopsOnErrors(t *testing.T) {
	b := astbuild.New("bad.jet")
	f := b.File("demo",
		b.Fun("f", nil, b.Type("Int"), b.Return(b.Str("not a number"))),
	)
	f.Path = "bad.jet"
	ctx := newContext(f)

	mod, err := New(ctx).Run(context.Background())
	be.True(t, err != nil)
	be.True(t, mod == nil)
	be.True(t, ctx.HasErrors())
	// checking finished, generation never ran
	be.Equal(t, ctx.GetUnitPhase("bad.jet"), context_v2.PhaseChecked)
}

func TestRunLoadsTrees(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "main.json")
	err := os.WriteFile(good, []byte(`{"kind": "file", "attrs": {"path": "main.jet", "package": "app"},
		"children": {"decls": [{"kind": "fun", "attrs": {"name": "main"},
			"children": {"body": [{"kind": "block"}]}}]}}`), 0644)
	be.Err(t, err, nil)

	ctx := context_v2.New(nil, false)
	ctx.Config.Inputs = []string{good, good}
	mod, err := New(ctx).Run(context.Background())
	be.Err(t, err, nil)
	be.Equal(t, ctx.UnitCount(), 1)
	be.True(t, mod.Class("app/namespace").Method("main", "()V") != nil)

	ctx = context_v2.New(nil, false)
	ctx.Config.Inputs = []string{filepath.Join(dir, "missing.json")}
	_, err = New(ctx).Run(context.Background())
	be.True(t, err != nil)
	be.True(t, strings.Contains(ctx.Diagnostics.Diagnostics()[0].Message, "cannot load"))
}

func TestRecoveredReportsInternalError(t *testing.T) {
	ctx := newContext()
	p := New(ctx)
	span := noop.Span{}

	failed := p.recovered(span, nil, func() { invariant.Failf("slot %d released twice", 3) })
	be.True(t, failed)
	be.Equal(t, ctx.Diagnostics.ErrorCount(), 1)
	d := ctx.Diagnostics.Diagnostics()[0]
	be.Equal(t, d.Code, diagnostics.ErrInternal)
	be.Equal(t, d.Message, "internal compiler error")

	be.True(t, !p.recovered(span, nil, func() {}))
	be.Equal(t, ctx.Diagnostics.ErrorCount(), 1)
}
