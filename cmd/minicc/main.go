// Copyright (c) 2024 The Falcon Contributors
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

// Command minicc lowers a typed-AST fixture to AT&T-syntax x86-64 assembly.
// It plays the role the teacher's main.go plays for falcon -- a thin flag
// parse followed by one call into the compile package -- except the
// source it accepts is not mini-C text (no parser is implemented here) but
// either the name of a bundled canonical scenario or a JSON fixture file.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"minicc/ast"
	"minicc/cerr"
	"minicc/compile"
	"minicc/internal/testprog"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := flag.NewFlagSet("minicc", flag.ContinueOnError)
	output := fs.String("output", "", "assembly output path (default stdout)")
	fs.StringVar(output, "o", "", "shorthand for --output")
	debugParser := fs.Bool("debug-parser", false, "dump the parse tree (out of scope; no-op)")
	debugTyper := fs.Bool("debug-typer", false, "dump the typed AST (out of scope; no-op)")
	debugRTL := fs.Bool("debug-rtl", false, "dump the RTL IR")
	debugERTL := fs.Bool("debug-ertl", false, "dump the ERTL IR")
	debugLiveness := fs.Bool("debug-liveness", false, "dump liveness/interference info")
	debugLTL := fs.Bool("debug-ltl", false, "dump the LTL IR")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: minicc [flags] <scenario-name|fixture.json>")
		fmt.Fprintln(fs.Output(), "\navailable scenarios:", scenarioNames())
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fs.Usage()
		return 2
	}
	source := fs.Arg(0)

	if *debugParser || *debugTyper {
		fmt.Fprintln(os.Stderr, "note: parser/typer are out of scope for this module; --debug-parser/--debug-typer are no-ops")
	}

	file, err := loadFile(source)
	if err != nil {
		fmt.Fprintln(os.Stderr, "minicc:", err)
		return 1
	}

	dbg := &compile.Debug{
		RTL: *debugRTL, ERTL: *debugERTL, Liveness: *debugLiveness, LTL: *debugLTL,
		Out: os.Stderr,
	}
	res, err := compile.Compile(file, dbg)
	if err != nil {
		fmt.Fprintln(os.Stderr, "minicc:", err)
		return exitCode(err)
	}

	if *output == "" {
		fmt.Print(res.Asm)
		return 0
	}
	if err := os.WriteFile(*output, []byte(res.Asm), 0o644); err != nil {
		fmt.Fprintln(os.Stderr, "minicc:", err)
		return 1
	}
	return 0
}

// loadFile resolves the positional argument: a bundled scenario name, a
// .json typed-AST fixture, or (neither existing) an error. A real .c path
// would also land here once a parser exists; documented as out of scope in
// section 6.
func loadFile(source string) (*ast.File, error) {
	if build, ok := testprog.Programs[source]; ok {
		return build(), nil
	}
	return loadJSONFixture(source)
}

func scenarioNames() []string {
	names := make([]string, 0, len(testprog.Programs))
	for name := range testprog.Programs {
		names = append(names, name)
	}
	return names
}

// exitCode picks a distinct non-zero status per error tag (section 7),
// rather than collapsing every lowering failure to a single generic 1.
func exitCode(err error) int {
	switch {
	case errors.Is(err, cerr.ErrMissingMain):
		return 3
	case errors.Is(err, cerr.ErrDuplicateLocal), errors.Is(err, cerr.ErrLocalNotFound):
		return 4
	case errors.Is(err, cerr.ErrMissingColor):
		return 5
	default:
		return 1
	}
}
