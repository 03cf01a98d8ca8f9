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

// Package compile drives the whole typed-AST-to-assembly pipeline, stage by
// stage, the way the teacher's compile.CompileTheWorld walks parse -> type
// -> codegen -> assemble -> link. Every stage here returns its intermediate
// result so a caller (cmd/minicc's --debug-* flags, or a test) can inspect
// it without re-running the pipeline.
package compile

import (
	"fmt"
	"io"

	"minicc/asm"
	"minicc/ast"
	"minicc/cerr"
	"minicc/coloring"
	"minicc/interference"
	"minicc/ir/ertl"
	"minicc/ir/ltl"
	"minicc/ir/rtl"
	"minicc/liveness"
)

// Debug, when non-nil, receives a human-readable dump of each stage's
// output as it completes. Mirrors the teacher's Debug* booleans gating
// println calls in compile/compiler.go, reified as an io.Writer so tests
// can capture it instead of going to stderr.
type Debug struct {
	Parser, Typer              bool // accepted for CLI fidelity; both stages are out of scope here
	RTL, ERTL, Liveness, LTL    bool
	Out                        io.Writer
}

func (d *Debug) logf(enabled bool, format string, args ...interface{}) {
	if d == nil || !enabled || d.Out == nil {
		return
	}
	fmt.Fprintf(d.Out, format, args...)
}

// Result collects every stage's output for a compiled file, so a caller
// that only needs the final assembly can ignore the rest, and a test that
// needs to assert on an intermediate IR doesn't need to re-derive it.
type Result struct {
	RTL         *rtl.File
	ERTL        *ertl.File
	Liveness    map[string]*liveness.Graph
	Interf      map[string]*interference.Graph
	Colors      map[string]*coloring.Result
	LTL         *ltl.File
	Asm         string
}

// Compile runs every stage in order and returns each one's output. An error
// from any stage aborts the pipeline; later stages never run on a partial
// result.
func Compile(file *ast.File, dbg *Debug) (*Result, error) {
	if _, ok := file.Funs["main"]; !ok {
		return nil, cerr.ErrMissingMain
	}

	res := &Result{
		Liveness: make(map[string]*liveness.Graph),
		Interf:   make(map[string]*interference.Graph),
		Colors:   make(map[string]*coloring.Result),
	}

	rtlFile, err := rtl.Build(file)
	if err != nil {
		return nil, fmt.Errorf("rtl: %w", err)
	}
	res.RTL = rtlFile
	dbg.logf(dbg != nil && dbg.RTL, "%s", rtlFile.String())

	ertlFile, err := ertl.Build(rtlFile)
	if err != nil {
		return nil, fmt.Errorf("ertl: %w", err)
	}
	res.ERTL = ertlFile
	dbg.logf(dbg != nil && dbg.ERTL, "%s", ertlFile.String())

	for _, fn := range ertlFile.Funs {
		lv := liveness.Build(fn)
		res.Liveness[fn.Name] = lv
		dbg.logf(dbg != nil && dbg.Liveness, "function %s liveness:\n%v\n", fn.Name, lv)

		ig := interference.Build(lv)
		res.Interf[fn.Name] = ig
		dbg.logf(dbg != nil && dbg.Liveness, "function %s interference:\n%v%s\n", fn.Name, ig, ig.DumpDot(fn.Name))
		res.Colors[fn.Name] = coloring.Build(ig)
	}

	ltlFile, err := ltl.Build(ertlFile, res.Colors)
	if err != nil {
		return nil, fmt.Errorf("ltl: %w", err)
	}
	res.LTL = ltlFile
	dbg.logf(dbg != nil && dbg.LTL, "%s", ltlFile.String())
	for _, fn := range ltlFile.Funs {
		dbg.logf(dbg != nil && dbg.LTL, "%s", fn.DumpDot())
	}

	res.Asm = asm.Emit(ltlFile)
	return res, nil
}

// CompileToAsm is the common case: run the full pipeline and return only
// the rendered assembly text.
func CompileToAsm(file *ast.File) (string, error) {
	res, err := Compile(file, nil)
	if err != nil {
		return "", err
	}
	return res.Asm, nil
}
