package main

import (
	"fmt"
	"os"

	"gopkg.in/urfave/cli.v1"

	"jetc/internal/compiler"
	"jetc/internal/config"
)

const version = "0.1.0"

var (
	classpathFlag = cli.StringFlag{
		Name:  "classpath, cp",
		Usage: "Class path entries, separated by the OS list separator",
	}
	outFlag = cli.StringFlag{
		Name:  "out, o",
		Usage: "Directory for the generated classes",
	}
	debugFlag = cli.BoolFlag{
		Name:  "debug, d",
		Usage: "Enable debug output",
	}

	compileCommand = cli.Command{
		Action:    compile,
		Name:      "compile",
		Usage:     "Compile syntax trees into class listings",
		ArgsUsage: "<tree.json> [tree.json...]",
		Flags:     []cli.Flag{classpathFlag, outFlag, debugFlag},
		Description: `
Each argument is a syntax tree exported by the front end. All trees are
compiled together and one listing per class is written under --out.
`,
	}
	dumpCommand = cli.Command{
		Action:    dump,
		Name:      "dump",
		Usage:     "Print the disassembly of the compiled trees",
		ArgsUsage: "<tree.json> [tree.json...]",
		Flags:     []cli.Flag{classpathFlag, debugFlag},
	}
)

func main() {
	app := cli.NewApp()
	app.Name = "jetc"
	app.Usage = "the Jet compiler"
	app.Version = version
	app.Commands = []cli.Command{compileCommand, dumpCommand}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func options(ctx *cli.Context) (*compiler.Options, error) {
	if len(ctx.Args()) == 0 {
		return nil, fmt.Errorf("%s: no input trees given", ctx.Command.Name)
	}
	return &compiler.Options{
		Inputs:    ctx.Args(),
		Classpath: config.SplitPath(ctx.String("classpath")),
		Debug:     ctx.Bool("debug"),
		LogFormat: compiler.ANSI,
	}, nil
}

func compile(ctx *cli.Context) error {
	opts, err := options(ctx)
	if err != nil {
		return err
	}
	opts.OutDir = ctx.String("out")
	opts.Write = true

	if result := compiler.Compile(opts); !result.Success {
		return cli.NewExitError("", 1)
	}
	return nil
}

func dump(ctx *cli.Context) error {
	opts, err := options(ctx)
	if err != nil {
		return err
	}
	opts.Dump = true

	result := compiler.Compile(opts)
	fmt.Print(result.Output)
	if !result.Success {
		return cli.NewExitError("", 1)
	}
	return nil
}
