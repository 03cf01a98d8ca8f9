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

// Package interference builds, from a liveness result, the undirected
// interference and preference graphs over a function's registers.
package interference

import (
	"fmt"
	"sort"
	"strings"

	"minicc/ir/ertl"
	"minicc/liveness"
	"minicc/reg"
)

// Vertex is one register's adjacency record.
type Vertex struct {
	Prefs, Intfs map[reg.Register]struct{}
}

func newVertex() *Vertex {
	return &Vertex{Prefs: make(map[reg.Register]struct{}), Intfs: make(map[reg.Register]struct{})}
}

// Graph maps every register appearing in a function to its Vertex.
type Graph struct {
	Verts map[reg.Register]*Vertex
}

func (g *Graph) vertex(r reg.Register) *Vertex {
	v, ok := g.Verts[r]
	if !ok {
		v = newVertex()
		g.Verts[r] = v
	}
	return v
}

func (g *Graph) addPref(a, b reg.Register) {
	if a == b {
		return
	}
	g.vertex(a).Prefs[b] = struct{}{}
	g.vertex(b).Prefs[a] = struct{}{}
}

func (g *Graph) addIntf(a, b reg.Register) {
	if a == b {
		return
	}
	g.vertex(a).Intfs[b] = struct{}{}
	g.vertex(b).Intfs[a] = struct{}{}
}

// Build constructs the interference graph for one function's liveness
// result: a preference edge for every move's source/destination pair, an
// interference edge for every def × live-out pair (excluding a move's own
// source, per the special case), then canonicalizes by dropping any
// preference edge that is also an interference edge.
func Build(lv *liveness.Graph) *Graph {
	g := &Graph{Verts: make(map[reg.Register]*Vertex)}

	for _, info := range lv.Infos {
		for _, r := range info.Def {
			g.vertex(r)
		}
		for _, r := range info.Use {
			g.vertex(r)
		}
	}

	for _, info := range lv.Infos {
		if mov, ok := info.Instr.(ertl.IBinop); ok && mov.Op == ertl.MMov {
			g.addPref(mov.Src, mov.Dst)
		}
	}

	for _, info := range lv.Infos {
		mov, isMov := info.Instr.(ertl.IBinop)
		for _, d := range info.Def {
			for o := range info.Out {
				if o == d {
					continue
				}
				if isMov && mov.Op == ertl.MMov && o == mov.Src {
					continue
				}
				g.addIntf(d, o)
			}
		}
	}

	for r, v := range g.Verts {
		for p := range v.Prefs {
			if _, isIntf := v.Intfs[p]; isIntf {
				delete(v.Prefs, p)
				delete(g.Verts[p].Prefs, r)
			}
		}
	}

	return g
}

func sortedRegs(m map[reg.Register]struct{}) []reg.Register {
	out := make([]reg.Register, 0, len(m))
	for r := range m {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// SortedRegs returns every register in the graph, in the canonical
// physical-then-pseudo ordering used everywhere determinism matters.
func SortedRegs(g *Graph) []reg.Register {
	out := make([]reg.Register, 0, len(g.Verts))
	for r := range g.Verts {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

func (g *Graph) String() string {
	var b strings.Builder
	for _, r := range SortedRegs(g) {
		v := g.Verts[r]
		fmt.Fprintf(&b, "%s: intf={%s} pref={%s}\n", r, joinRegs(sortedRegs(v.Intfs)), joinRegs(sortedRegs(v.Prefs)))
	}
	return b.String()
}

func joinRegs(rs []reg.Register) string {
	parts := make([]string, len(rs))
	for i, r := range rs {
		parts[i] = r.String()
	}
	return strings.Join(parts, ",")
}

// DumpDot renders the graph in Graphviz dot form, interference edges solid
// and preference edges dashed, in the style of the teacher's
// DumpSSAToDotFile. Unlike that helper this one returns the dot source
// directly instead of shelling out to `dot`/writing a file, since the
// caller (--debug-liveness) only needs the text and a missing `dot` binary
// should never break a debug dump.
func (g *Graph) DumpDot(name string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "graph %s {\n", name)
	seen := make(map[[2]reg.Register]bool)
	for _, r := range SortedRegs(g) {
		v := g.Verts[r]
		for _, o := range sortedRegs(v.Intfs) {
			edge := [2]reg.Register{r, o}
			if r.Less(o) {
				edge = [2]reg.Register{o, r}
			}
			if seen[edge] {
				continue
			}
			seen[edge] = true
			fmt.Fprintf(&b, "  %q -- %q;\n", r, o)
		}
	}
	for _, r := range SortedRegs(g) {
		v := g.Verts[r]
		for _, o := range sortedRegs(v.Prefs) {
			edge := [2]reg.Register{r, o}
			if r.Less(o) {
				edge = [2]reg.Register{o, r}
			}
			if seen[edge] {
				continue
			}
			seen[edge] = true
			fmt.Fprintf(&b, "  %q -- %q [style=dashed];\n", r, o)
		}
	}
	b.WriteString("}\n")
	return b.String()
}
