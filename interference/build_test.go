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
package interference

import (
	"strings"
	"testing"

	"minicc/internal/testprog"
	"minicc/ir/ertl"
	"minicc/ir/rtl"
	"minicc/liveness"
	"minicc/reg"
)

func buildInterference(t *testing.T, name string) map[string]*Graph {
	t.Helper()
	reg.ResetForTest()
	rtlFile, err := rtl.Build(testprog.Programs[name]())
	if err != nil {
		t.Fatalf("rtl.Build(%s): %v", name, err)
	}
	ertlFile, err := ertl.Build(rtlFile)
	if err != nil {
		t.Fatalf("ertl.Build(%s): %v", name, err)
	}
	out := make(map[string]*Graph, len(ertlFile.Funs))
	for _, fn := range ertlFile.Funs {
		out[fn.Name] = Build(liveness.Build(fn))
	}
	return out
}

// TestInterferenceIsSymmetric checks every adjacency is recorded on both
// endpoints, since the graph is meant to be undirected.
func TestInterferenceIsSymmetric(t *testing.T) {
	for name := range testprog.Programs {
		graphs := buildInterference(t, name)
		for fn, g := range graphs {
			for r, v := range g.Verts {
				for o := range v.Intfs {
					if _, ok := g.Verts[o].Intfs[r]; !ok {
						t.Errorf("%s/%s: %s interferes with %s but not vice versa", name, fn, r, o)
					}
				}
				for o := range v.Prefs {
					if _, ok := g.Verts[o].Prefs[r]; !ok {
						t.Errorf("%s/%s: %s prefers %s but not vice versa", name, fn, r, o)
					}
				}
			}
		}
	}
}

// TestNoRegisterInterferesWithItself checks the self-loop guard in addIntf/
// addPref.
func TestNoRegisterInterferesWithItself(t *testing.T) {
	for name := range testprog.Programs {
		graphs := buildInterference(t, name)
		for fn, g := range graphs {
			for r, v := range g.Verts {
				if _, ok := v.Intfs[r]; ok {
					t.Errorf("%s/%s: %s interferes with itself", name, fn, r)
				}
				if _, ok := v.Prefs[r]; ok {
					t.Errorf("%s/%s: %s prefers itself", name, fn, r)
				}
			}
		}
	}
}

// TestCanonicalizationDropsSubsumedPreferences checks that no edge is ever
// both a preference and an interference edge at once, the post-hoc cleanup
// Build performs at the end.
func TestCanonicalizationDropsSubsumedPreferences(t *testing.T) {
	for name := range testprog.Programs {
		graphs := buildInterference(t, name)
		for fn, g := range graphs {
			for r, v := range g.Verts {
				for o := range v.Prefs {
					if _, ok := v.Intfs[o]; ok {
						t.Errorf("%s/%s: %s-%s is both a preference and an interference edge", name, fn, r, o)
					}
				}
			}
		}
	}
}

// TestDumpDotEmitsOneEdgeLinePerAdjacency checks DumpDot produces valid-
// looking dot source (graph header, one "--" line per interference edge,
// every preference edge marked dashed) without needing a `dot` binary to
// render it.
func TestDumpDotEmitsOneEdgeLinePerAdjacency(t *testing.T) {
	graphs := buildInterference(t, "fact_rec")
	for fn, g := range graphs {
		dot := g.DumpDot(fn)
		if !strings.HasPrefix(dot, "graph "+fn+" {\n") {
			t.Fatalf("%s: DumpDot did not start with a graph header:\n%s", fn, dot)
		}
		if !strings.HasSuffix(dot, "}\n") {
			t.Fatalf("%s: DumpDot did not end with a closing brace:\n%s", fn, dot)
		}
		// Both adjacency maps are symmetric, so each edge is counted twice.
		wantIntfEdges, wantPrefEdges := 0, 0
		for _, v := range g.Verts {
			wantIntfEdges += len(v.Intfs)
			wantPrefEdges += len(v.Prefs)
		}
		wantIntfEdges /= 2
		wantPrefEdges /= 2
		gotDashed := strings.Count(dot, "[style=dashed]")
		gotSolid := strings.Count(dot, "--") - gotDashed
		if gotSolid != wantIntfEdges {
			t.Errorf("%s: DumpDot emitted %d solid edge lines, want %d:\n%s", fn, gotSolid, wantIntfEdges, dot)
		}
		if gotDashed != wantPrefEdges {
			t.Errorf("%s: DumpDot emitted %d dashed edge lines, want %d:\n%s", fn, gotDashed, wantPrefEdges, dot)
		}
	}
}
