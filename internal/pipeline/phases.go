package pipeline

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"jetc/colors"
	"jetc/internal/codegen/bytecode"
	"jetc/internal/codegen/gen"
	"jetc/internal/context_v2"
	"jetc/internal/diagnostics"
	"jetc/internal/frontend/ast"
	"jetc/internal/invariant"
	"jetc/internal/source"
)

// recovered turns a panic raised while compiling into an internal compiler
// error diagnostic. It reports whether fn panicked.
func (p *Pipeline) recovered(span trace.Span, loc *source.Location, fn func()) (failed bool) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		failed = true
		cause := r
		if v, ok := invariant.FromRecover(r); ok {
			cause = v
			if p.ctx.Debug {
				colors.RED.Printf("%+v\n", r)
			}
		}
		span.RecordError(fmt.Errorf("%v", cause))
		span.SetStatus(codes.Error, "internal compiler error")
		p.ctx.Diagnostics.Add(diagnostics.Internal(loc, cause))
	}()
	fn()
	return false
}

func (p *Pipeline) units(phase context_v2.UnitPhase) []*context_v2.Unit {
	var out []*context_v2.Unit
	for _, path := range p.ctx.UnitNames() {
		if u, ok := p.ctx.GetUnit(path); ok && !u.Failed && u.Phase == phase {
			out = append(out, u)
		}
	}
	return out
}

// runDeclarePhase resolves the declarations of all loaded units together:
// a package may span several units and they may refer to each other.
func (p *Pipeline) runDeclarePhase(ctx context.Context) {
	_, span := tracer.Start(ctx, "Pipeline.declareUnits")
	defer span.End()

	units := p.units(context_v2.PhaseLoaded)
	files := make([]*ast.File, len(units))
	for i, u := range units {
		files[i] = u.File
	}
	span.SetAttributes(attribute.Int("units", len(units)))

	if p.recovered(span, nil, func() { p.checker.Declare(files) }) {
		for _, u := range units {
			p.ctx.MarkFailed(u.Path)
		}
		return
	}
	for _, u := range units {
		if !p.ctx.AdvanceUnitPhase(u.Path, context_v2.PhaseDeclared) {
			p.ctx.ReportError(fmt.Sprintf("cannot advance unit %s to %s", u.Path, context_v2.PhaseDeclared), nil)
			continue
		}
		if p.ctx.Debug {
			colors.PURPLE.Printf("  ✓ %s\n", u.Path)
		}
	}
}

// runCheckPhase types the bodies of each unit. An internal error stops its
// unit only.
func (p *Pipeline) runCheckPhase(ctx context.Context) {
	for _, u := range p.units(context_v2.PhaseDeclared) {
		_, span := tracer.Start(ctx, "Pipeline.checkUnit", trace.WithAttributes(
			attribute.String("unit", u.Path),
			attribute.String("package", u.Package),
		))
		if p.recovered(span, u.File.Loc(), func() { p.checker.CheckFile(u.File) }) {
			p.ctx.MarkFailed(u.Path)
			span.End()
			continue
		}
		if !p.ctx.AdvanceUnitPhase(u.Path, context_v2.PhaseChecked) {
			p.ctx.ReportError(fmt.Sprintf("cannot advance unit %s to %s", u.Path, context_v2.PhaseChecked), nil)
		} else if p.ctx.Debug {
			colors.PURPLE.Printf("  ✓ %s\n", u.Path)
		}
		span.End()
	}
}

// runGeneratePhase lowers all checked units into one module. Package facades
// collect top-level members from several units, so generation is not split
// per unit.
func (p *Pipeline) runGeneratePhase(ctx context.Context) *bytecode.Module {
	_, span := tracer.Start(ctx, "Pipeline.generate")
	defer span.End()

	units := p.units(context_v2.PhaseChecked)
	files := make([]*ast.File, len(units))
	for i, u := range units {
		files[i] = u.File
	}

	var mod *bytecode.Module
	g := gen.New(p.ctx.Checker, p.ctx.Store, p.checker.Declarations())
	if p.recovered(span, nil, func() { mod = g.Generate(files) }) {
		return nil
	}
	mod.Build = p.ctx.BuildID.String()
	for _, u := range units {
		p.ctx.AdvanceUnitPhase(u.Path, context_v2.PhaseGenerated)
	}
	span.SetAttributes(attribute.Int("classes", len(mod.Classes)))
	if p.ctx.Debug {
		for _, c := range mod.Classes {
			colors.PURPLE.Printf("  ✓ %s\n", c.Name)
		}
	}
	return mod
}
