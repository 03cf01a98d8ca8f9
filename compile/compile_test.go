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
package compile

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"minicc/ast"
	"minicc/cerr"
	"minicc/internal/testprog"
	"minicc/reg"
)

// TestCompileSucceedsForEveryCanonicalScenario runs the full pipeline
// end-to-end over every fixture and checks it produces nonempty assembly
// with no error.
func TestCompileSucceedsForEveryCanonicalScenario(t *testing.T) {
	for name, build := range testprog.Programs {
		reg.ResetForTest()
		res, err := Compile(build(), nil)
		if err != nil {
			t.Fatalf("Compile(%s): %v", name, err)
		}
		if res.Asm == "" {
			t.Errorf("Compile(%s) produced empty assembly", name)
		}
		if !strings.Contains(res.Asm, "main:") {
			t.Errorf("Compile(%s) assembly missing main: label", name)
		}
	}
}

func TestCompileRejectsMissingMain(t *testing.T) {
	reg.ResetForTest()
	file := &ast.File{Funs: map[string]*ast.Fun{}}
	_, err := Compile(file, nil)
	if !errors.Is(err, cerr.ErrMissingMain) {
		t.Fatalf("Compile on a file with no main = %v, want cerr.ErrMissingMain", err)
	}
}

// TestDebugLogsOnlyRequestedStages checks Debug.logf's gating: asking for
// only RTL output must not also produce ERTL/LTL dumps.
func TestDebugLogsOnlyRequestedStages(t *testing.T) {
	reg.ResetForTest()
	var buf bytes.Buffer
	dbg := &Debug{RTL: true, Out: &buf}
	if _, err := Compile(testprog.PutChar1(), dbg); err != nil {
		t.Fatal(err)
	}
	got := buf.String()
	if !strings.Contains(got, "=== RTL ===") {
		t.Errorf("Debug.RTL=true produced no RTL dump:\n%s", got)
	}
	if strings.Contains(got, "=== ERTL ===") || strings.Contains(got, "=== LTL ===") {
		t.Errorf("Debug.RTL=true leaked ERTL/LTL dumps:\n%s", got)
	}
}

// TestCompileToAsmIsDeterministic checks section 5's determinism property
// at the whole-pipeline level: two independent compiles of the same
// fixture (counters reset between them) produce byte-identical assembly.
func TestCompileToAsmIsDeterministic(t *testing.T) {
	for name, build := range testprog.Programs {
		reg.ResetForTest()
		first, err := CompileToAsm(build())
		if err != nil {
			t.Fatal(err)
		}
		reg.ResetForTest()
		second, err := CompileToAsm(build())
		if err != nil {
			t.Fatal(err)
		}
		if first != second {
			t.Errorf("%s: CompileToAsm is not deterministic across counter-reset runs", name)
		}
	}
}

// TestResultCarriesEveryStage checks Compile populates every stage's slot
// in Result, not just the final assembly, so cmd/minicc's --debug-* flags
// and future tests can inspect intermediate IRs.
func TestResultCarriesEveryStage(t *testing.T) {
	reg.ResetForTest()
	res, err := Compile(testprog.FactRec(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.RTL == nil || res.ERTL == nil || res.LTL == nil {
		t.Fatal("Compile left RTL/ERTL/LTL nil")
	}
	if len(res.Liveness) == 0 || len(res.Interf) == 0 || len(res.Colors) == 0 {
		t.Fatal("Compile left per-function liveness/interference/coloring maps empty")
	}
}
