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
package coloring

import (
	"testing"

	"minicc/internal/testprog"
	"minicc/interference"
	"minicc/ir/ertl"
	"minicc/ir/rtl"
	"minicc/liveness"
	"minicc/reg"
)

func buildColors(t *testing.T, name string) map[string]*Result {
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
	out := make(map[string]*Result, len(ertlFile.Funs))
	for _, fn := range ertlFile.Funs {
		ig := interference.Build(liveness.Build(fn))
		out[fn.Name] = Build(ig)
	}
	return out
}

// TestEveryPseudoGetsExactlyOneColor is invariant I5.
func TestEveryPseudoGetsExactlyOneColor(t *testing.T) {
	for name := range testprog.Programs {
		results := buildColors(t, name)
		for fn, res := range results {
			seen := make(map[reg.PseudoReg]bool)
			for p := range res.Colors {
				if seen[p] {
					t.Errorf("%s/%s: pseudo %s colored more than once", name, fn, p)
				}
				seen[p] = true
			}
		}
	}
}

// TestInterferingPhysicalColorsDiffer checks the coloring is actually
// valid: two pseudo-registers that interfere, and both land on a physical
// register, must never share that register.
func TestInterferingPhysicalColorsDiffer(t *testing.T) {
	for name := range testprog.Programs {
		reg.ResetForTest()
		rtlFile, err := rtl.Build(testprog.Programs[name]())
		if err != nil {
			t.Fatal(err)
		}
		ertlFile, err := ertl.Build(rtlFile)
		if err != nil {
			t.Fatal(err)
		}
		for _, fn := range ertlFile.Funs {
			ig := interference.Build(liveness.Build(fn))
			res := Build(ig)
			for r, v := range ig.Verts {
				if r.IsPhysical {
					continue
				}
				colorR, ok := res.Colors[r.Pseudo]
				if !ok || colorR.Spilled {
					continue
				}
				for o := range v.Intfs {
					if o.IsPhysical {
						if colorR.Phys == o.Phys {
							t.Errorf("%s/%s: pseudo %s colored %s but interferes with physical %s", name, fn.Name, r, colorR, o)
						}
						continue
					}
					colorO, ok := res.Colors[o.Pseudo]
					if !ok || colorO.Spilled {
						continue
					}
					if colorR.Equal(colorO) {
						t.Errorf("%s/%s: interfering pseudos %s and %s both colored %s", name, fn.Name, r, o, colorR)
					}
				}
			}
		}
	}
}

// TestSpilled1ForcesASpill checks that a function receiving more arguments
// than there are allocatable registers (spilled1's sum13) actually produces
// at least one spilled color; this is the scenario the fixture exists for.
func TestSpilled1ForcesASpill(t *testing.T) {
	results := buildColors(t, "spilled1")
	res, ok := results["sum13"]
	if !ok {
		t.Fatal("no coloring result for sum13")
	}
	if res.CountOnStack < 1 {
		t.Errorf("sum13's 13-argument body produced CountOnStack = %d, want at least 1", res.CountOnStack)
	}
}
