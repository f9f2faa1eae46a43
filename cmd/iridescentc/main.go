package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/teris-io/cli"

	"iridescent.dev/compiler/pkg/ir"
	"iridescent.dev/compiler/pkg/mips"
	"iridescent.dev/compiler/pkg/parser"
	"iridescent.dev/compiler/pkg/symtab"
	"iridescent.dev/compiler/pkg/validator"
)

// sourceExtension is the only input file extension the driver accepts.
const sourceExtension = ".iri"

var Description = strings.ReplaceAll(`
The Iridescent Compiler turns a single-file Iridescent source program into MIPS
assembly. It runs the program through parsing, symbol table construction, semantic
validation, IR emission and MIPS lowering, writing the result to <output-stem>.s.
`, "\n", " ")

var Iridescentc = cli.New(Description).
	WithArg(cli.NewArg("input", fmt.Sprintf("The source (%s) file to be compiled", sourceExtension))).
	WithArg(cli.NewArg("output-stem", "The compiled output's path, without extension")).
	WithOption(cli.NewOption("mips", "Targets the MIPS backend (the only backend currently implemented)").
		WithType(cli.TypeBool)).
	WithOption(cli.NewOption("ird", "Reserved for a future IR-dump backend").
		WithType(cli.TypeBool)).
	WithOption(cli.NewOption("x64", "Reserved for a future x86-64 backend").
		WithType(cli.TypeBool)).
	WithAction(Handler)

func Handler(args []string, options map[string]string) int {
	if len(args) < 2 {
		fmt.Printf("ERROR: Not enough arguments provided, use --help\n")
		return -1
	}

	if _, wantsIrd := options["ird"]; wantsIrd {
		fmt.Printf("ERROR: -ird backend is not supported\n")
		return -1
	}
	if _, wantsX64 := options["x64"]; wantsX64 {
		fmt.Printf("ERROR: -x64 backend is not supported\n")
		return -1
	}

	input, outputStem := args[0], args[1]
	if filepath.Ext(input) != sourceExtension {
		fmt.Printf("ERROR: input file must have a %q extension, got %q\n", sourceExtension, filepath.Ext(input))
		return -1
	}

	source, err := os.Open(input)
	if err != nil {
		fmt.Printf("ERROR: Unable to open input file: %s\n", err)
		return -1
	}
	defer source.Close()

	assembly, err := Compile(source)
	if err != nil {
		fmt.Printf("ERROR: %s\n", err)
		return -1
	}

	output, err := os.Create(outputStem + ".s")
	if err != nil {
		fmt.Printf("ERROR: Unable to open output file: %s\n", err)
		return -1
	}
	defer output.Close()

	if _, err := output.WriteString(assembly); err != nil {
		fmt.Printf("ERROR: Unable to write output file: %s\n", err)
		return -1
	}

	return 0
}

// Compile runs the full pass pipeline - parsing, symbol table construction, semantic
// validation, IR emission and MIPS lowering - over source and returns the final
// assembly text. Each pass wraps its own failure with the stage it failed in, so a
// caller can tell a parse error from a validation error from a lowering error without
// inspecting error types.
func Compile(source io.Reader) (string, error) {
	p := parser.NewParser(source)
	functions, err := p.Parse()
	if err != nil {
		return "", errors.Wrap(err, "parsing")
	}

	table, err := symtab.Build(functions)
	if err != nil {
		return "", errors.Wrap(err, "symbol table construction")
	}

	if errs := validator.New(table).Validate(functions); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return "", errors.Errorf("semantic validation: %s", strings.Join(msgs, "; "))
	}

	instrs, err := ir.NewEmitter(table).Emit(functions)
	if err != nil {
		return "", errors.Wrap(err, "IR emission")
	}

	assembly, err := mips.NewLowerer(functions).Lower(instrs)
	if err != nil {
		return "", errors.Wrap(err, "MIPS lowering")
	}

	return assembly, nil
}

func main() { os.Exit(Iridescentc.Run(os.Args, os.Stdout)) }
