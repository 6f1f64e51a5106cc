package compiler

import (
	"context"
	"fmt"
	"os"

	"jetc/colors"
	"jetc/internal/codegen"
	"jetc/internal/codegen/bytecode"
	"jetc/internal/config"
	"jetc/internal/context_v2"
	"jetc/internal/diagnostics"
	"jetc/internal/frontend/ast"
	"jetc/internal/pipeline"
)

type FORMAT int

const (
	ANSI FORMAT = iota
	PLAIN
)

// Options for compilation
type Options struct {
	// Syntax tree files to compile
	Inputs []string
	// Trees already in memory, compiled along with Inputs
	Files []*ast.File
	// Settings from the environment; zero value means config.Load()
	Settings *config.Settings
	// Overrides of Settings, applied when set
	OutDir    string
	Classpath []string
	Debug     bool
	// Write the classes under the output directory
	Write bool
	// Put a disassembly of the module into Result.Output
	Dump bool
	// Output format of diagnostics: coloured or plain text
	LogFormat FORMAT
}

// Result of compilation
type Result struct {
	Success bool
	// Module is nil unless the compilation had no errors
	Module *bytecode.Module
	// Written lists the class files stored when Options.Write is set
	Written []string
	// Output holds the disassembly when Options.Dump is set
	Output string
	// Diagnostics holds every diagnostic in reporting order
	Diagnostics []*diagnostics.Diagnostic
	// Rendered diagnostics for PLAIN format
	Log string
}

// Compile compiles Jet syntax trees and returns the result. Diagnostics are
// printed to stderr in ANSI format and returned in Log in PLAIN format.
func Compile(opts *Options) Result {
	settings := config.Load()
	if opts.Settings != nil {
		settings = *opts.Settings
	}
	if opts.OutDir != "" {
		settings.OutDir = opts.OutDir
	}
	if len(opts.Classpath) > 0 {
		settings.Classpath = opts.Classpath
	}
	settings.Debug = settings.Debug || opts.Debug

	ctx := context_v2.New(&context_v2.Config{Settings: settings, Inputs: opts.Inputs}, settings.Debug)
	for i, f := range opts.Files {
		path := f.Path
		if path == "" {
			path = fmt.Sprintf("<memory %d>", i)
		}
		ctx.AddUnit(&context_v2.Unit{Path: path, File: f})
	}
	checkClasspath(ctx)

	p := pipeline.New(ctx)
	mod, err := p.Run(context.Background())
	if err != nil && ctx.Debug {
		colors.RED.Printf("%v\n", err)
	}

	res := Result{Module: mod, Diagnostics: ctx.Diagnostics.Diagnostics()}
	if mod != nil && opts.Write {
		w := &codegen.Writer{Dir: settings.OutDir, Debug: ctx.Debug}
		written, werr := w.Write(mod)
		res.Written = written
		if werr != nil {
			reportWriteError(ctx, werr)
			res.Diagnostics = ctx.Diagnostics.Diagnostics()
		}
	}
	if mod != nil && opts.Dump {
		res.Output = bytecode.Disassemble(mod)
	}
	res.Success = mod != nil && !ctx.HasErrors()

	if ctx.Debug {
		p.PrintSummary()
	}
	if opts.LogFormat == PLAIN {
		res.Log = colors.StripANSI(ctx.Diagnostics.EmitAllToString())
		return res
	}
	ctx.EmitDiagnostics()
	return res
}

// checkClasspath warns about classpath entries that do not exist.
func checkClasspath(ctx *context_v2.CompilerContext) {
	for _, entry := range ctx.Config.Classpath {
		if _, err := os.Stat(entry); err != nil {
			ctx.Diagnostics.Add(diagnostics.NewWarning(fmt.Sprintf("classpath entry %s not found", entry)).
				WithCode(diagnostics.WarnClasspath))
		}
	}
}

// reportWriteError reports every construct the generator could not lower, or
// the error itself when nothing was unsupported.
func reportWriteError(ctx *context_v2.CompilerContext, err error) {
	var found []*bytecode.UnsupportedError
	var walk func(error)
	walk = func(e error) {
		switch x := e.(type) {
		case *bytecode.UnsupportedError:
			found = append(found, x)
		case interface{ Unwrap() []error }:
			for _, c := range x.Unwrap() {
				walk(c)
			}
		case interface{ Unwrap() error }:
			walk(x.Unwrap())
		}
	}
	walk(err)
	if len(found) == 0 {
		ctx.ReportError(err.Error(), nil)
		return
	}
	for _, u := range found {
		ctx.Diagnostics.Add(diagnostics.NewError("unsupported construct: "+u.Reason).
			WithCode(diagnostics.ErrUnsupported).
			WithNotef("in %s.%s at instruction %d", u.Class, u.Method, u.Index))
	}
}
