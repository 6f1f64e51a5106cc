package pipeline

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"jetc/colors"
	"jetc/internal/codegen/bytecode"
	"jetc/internal/context_v2"
	"jetc/internal/frontend/treeio"
	"jetc/internal/semantics/typechecker"
)

var tracer = otel.Tracer("jetc/internal/pipeline")

// Pipeline coordinates the compilation process
type Pipeline struct {
	ctx     *context_v2.CompilerContext
	checker *typechecker.Checker

	// seen ensures each input is loaded exactly once
	seen sync.Map // map[string]struct{}

	// wg tracks all loading tasks
	wg sync.WaitGroup
}

// New creates a new compilation pipeline
func New(ctx *context_v2.CompilerContext) *Pipeline {
	return &Pipeline{
		ctx:     ctx,
		checker: typechecker.New(ctx.Checker, ctx.Store),
	}
}

// Run executes the full compilation pipeline. The module is nil when any
// error was reported; diagnostics are in the context either way.
func (p *Pipeline) Run(ctx context.Context) (*bytecode.Module, error) {
	ctx, span := tracer.Start(ctx, "Pipeline.Run", trace.WithAttributes(
		attribute.String("build.id", p.ctx.BuildID.String()),
		attribute.Int("inputs", len(p.ctx.Config.Inputs)),
	))
	defer span.End()

	if p.ctx.Debug {
		colors.CYAN.Printf("\n[Phase 1] Load (build %s)\n", p.ctx.BuildID)
	}
	p.phase(ctx, "load", p.runLoadPhase)
	p.ctx.ComputeOrder()

	if p.ctx.Debug {
		colors.CYAN.Printf("\n[Phase 2] Declaration Resolution\n")
	}
	p.phase(ctx, "declare", p.runDeclarePhase)

	if p.ctx.Debug {
		colors.CYAN.Printf("\n[Phase 3] Type Checking + Flow Analysis\n")
	}
	p.phase(ctx, "check", p.runCheckPhase)

	if p.ctx.HasErrors() {
		err := fmt.Errorf("compilation failed with %d error(s)", p.ctx.Diagnostics.ErrorCount())
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if p.ctx.Debug {
		colors.CYAN.Printf("\n[Phase 4] Code Generation\n")
	}
	var mod *bytecode.Module
	p.phase(ctx, "generate", func(ctx context.Context) {
		mod = p.runGeneratePhase(ctx)
	})
	if mod == nil || p.ctx.HasErrors() {
		err := fmt.Errorf("code generation failed")
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("classes", len(mod.Classes)))
	if p.ctx.Debug {
		colors.GREEN.Printf("\n✓ Compilation successful! (%d units, %d classes)\n", p.ctx.UnitCount(), len(mod.Classes))
	}
	return mod, nil
}

// phase runs fn inside a span named after the phase.
func (p *Pipeline) phase(ctx context.Context, name string, fn func(context.Context)) {
	ctx, span := tracer.Start(ctx, "Pipeline."+name)
	defer span.End()
	before := p.ctx.Diagnostics.ErrorCount()
	fn(ctx)
	after := p.ctx.Diagnostics.ErrorCount()
	span.SetAttributes(attribute.Int("errors", after-before))
	if after > before {
		span.SetStatus(codes.Error, fmt.Sprintf("%d error(s)", after-before))
	}
}

// runLoadPhase reads every input tree. Units registered before Run with a
// tree already attached are taken as they are.
func (p *Pipeline) runLoadPhase(ctx context.Context) {
	for _, path := range p.ctx.Config.Inputs {
		p.load(ctx, path)
	}
	p.wg.Wait()

	for path, u := range p.ctx.Units {
		if u.File != nil && u.Phase == context_v2.PhaseNotStarted {
			p.ctx.AdvanceUnitPhase(path, context_v2.PhaseLoaded)
		}
	}
}

// load schedules reading a tree exactly once (thread-safe)
func (p *Pipeline) load(ctx context.Context, path string) {
	if _, loaded := p.seen.LoadOrStore(path, struct{}{}); loaded {
		return
	}
	if _, exists := p.ctx.GetUnit(path); exists {
		return
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		_, span := tracer.Start(ctx, "Pipeline.loadUnit", trace.WithAttributes(attribute.String("unit", path)))
		defer span.End()

		file, err := treeio.ReadFile(path)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "unreadable tree")
			p.ctx.ReportError(fmt.Sprintf("cannot load %s: %v", path, err), nil)
			return
		}
		p.ctx.AddUnit(&context_v2.Unit{Path: path, File: file, Phase: context_v2.PhaseLoaded})
		if p.ctx.Debug {
			colors.PURPLE.Printf("  ✓ %s\n", path)
		}
	}()
}
