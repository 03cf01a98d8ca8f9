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
package main

import (
	"bytes"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"minicc/cerr"
	"minicc/reg"
)

func TestRunOnEveryCanonicalScenario(t *testing.T) {
	for _, name := range scenarioNames() {
		reg.ResetForTest()
		dir := t.TempDir()
		out := filepath.Join(dir, "out.s")
		if code := run([]string{"-o", out, name}); code != 0 {
			t.Fatalf("run([-o %s %s]) = %d, want 0", out, name, code)
		}
		if _, err := os.Stat(out); err != nil {
			t.Fatalf("run did not write %s: %v", out, err)
		}
	}
}

func TestRunOnJSONFixture(t *testing.T) {
	reg.ResetForTest()
	fixture := filepath.Join(t.TempDir(), "main.json")
	src := `{
		"funs": {
			"main": {
				"signature": {"name": "main", "type": {"kind": "int"}, "args": []},
				"body": {"stmts": [
					{"stmt": "return", "expr": {"node": "const", "value": 0}}
				]}
			}
		}
	}`
	if err := os.WriteFile(fixture, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}
	if code := run([]string{fixture}); code != 0 {
		t.Fatalf("run([%s]) = %d, want 0", fixture, code)
	}
}

func TestExitCodeMapsSentinelErrors(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{cerr.ErrMissingMain, 3},
		{cerr.ErrDuplicateLocal, 4},
		{cerr.ErrLocalNotFound, 4},
		{cerr.ErrMissingColor, 5},
		{errors.New("boom"), 1},
	}
	for _, c := range cases {
		if got := exitCode(c.err); got != c.want {
			t.Errorf("exitCode(%v) = %d, want %d", c.err, got, c.want)
		}
	}
}

func TestRunRejectsUnknownSource(t *testing.T) {
	if code := run([]string{"/no/such/scenario/or/file.json"}); code != 1 {
		t.Fatalf("run on an unknown source = %d, want 1", code)
	}
}

// expectedRuntimeStdout mirrors interp's oracle: the bytes each canonical
// scenario writes via putchar once actually assembled and run.
var expectedRuntimeStdout = map[string]string{
	"putchar1":       string(rune(65)),
	"fact_rec":       string(rune(120)),
	"and1":           string(rune(48)),
	"field4":         string(rune(48 + 1 + 2 + 3 + 4)),
	"while2":         string(rune(48 + 9)),
	"spilled1":       string(rune(13 * 14 / 2)),
	"field_sideeffs": "VB",
}

// resolveCC mirrors the teacher's utils.ExecuteCmd/CommandExists pattern
// ($CC, falling back to "cc") but skips the test instead of os.Exit(1)-ing
// the whole run when no C toolchain is available to assemble and link
// against, since that dependency is not guaranteed to exist in every
// environment this module's tests run in.
func resolveCC(t *testing.T) string {
	t.Helper()
	cc := os.Getenv("CC")
	if cc == "" {
		cc = "cc"
	}
	if _, err := exec.LookPath(cc); err != nil {
		t.Skipf("no C compiler (%s) on PATH, skipping assemble-and-run test", cc)
	}
	return cc
}

// TestAssembledOutputRunsAndPrintsExpectedByte is the real end-to-end
// check promised by section 8: compile each canonical scenario to AT&T
// assembly, hand it to the system's C compiler to assemble and link
// against libc (for putchar/malloc), run the resulting binary, and check
// its captured stdout against the same oracle interp's tests use.
func TestAssembledOutputRunsAndPrintsExpectedByte(t *testing.T) {
	cc := resolveCC(t)
	for _, name := range scenarioNames() {
		name := name
		t.Run(name, func(t *testing.T) {
			reg.ResetForTest()
			dir := t.TempDir()
			asmPath := filepath.Join(dir, name+".s")
			if code := run([]string{"-o", asmPath, name}); code != 0 {
				t.Fatalf("run([-o %s %s]) = %d, want 0", asmPath, name, code)
			}
			binPath := filepath.Join(dir, name)
			link := exec.Command(cc, "-o", binPath, asmPath)
			var stderr bytes.Buffer
			link.Stderr = &stderr
			if err := link.Run(); err != nil {
				t.Fatalf("%s failed to assemble/link %s: %v\n%s", cc, asmPath, err, stderr.String())
			}
			var stdout bytes.Buffer
			proc := exec.Command(binPath)
			proc.Stdout = &stdout
			if err := proc.Run(); err != nil {
				t.Fatalf("running %s: %v", binPath, err)
			}
			want := expectedRuntimeStdout[name]
			if got := stdout.String(); got != want {
				t.Errorf("%s printed %q, want %q", name, got, want)
			}
		})
	}
}

func TestRunRequiresExactlyOnePositionalArg(t *testing.T) {
	if code := run([]string{}); code != 2 {
		t.Fatalf("run with no args = %d, want 2", code)
	}
	if code := run([]string{"putchar1", "extra"}); code != 2 {
		t.Fatalf("run with two args = %d, want 2", code)
	}
}
