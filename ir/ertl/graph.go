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
package ertl

import (
	"fmt"
	"sort"
	"strings"

	"minicc/reg"
)

type Graph struct {
	Instrs map[reg.Label]Instr
}

func NewGraph() *Graph {
	return &Graph{Instrs: make(map[reg.Label]Instr)}
}

// Fun is one ERTL function.
type Fun struct {
	Name  string
	Entry reg.Label
	Exit  reg.Label
	Graph *Graph
}

type File struct {
	Funs []*Fun
}

func SortedLabels(g *Graph) []reg.Label {
	out := make([]reg.Label, 0, len(g.Instrs))
	for l := range g.Instrs {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ordinal() < out[j].Ordinal() })
	return out
}

func (f *File) String() string {
	var b strings.Builder
	b.WriteString("=== ERTL ===\n")
	for _, fn := range f.Funs {
		b.WriteString(fn.String())
		b.WriteString("\n")
	}
	return b.String()
}

func (fn *Fun) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  entry: %s, exit: %s\n", fn.Name, fn.Entry, fn.Exit)
	for _, l := range SortedLabels(fn.Graph) {
		fmt.Fprintf(&b, "  %s: %s\n", l, InstrString(fn.Graph.Instrs[l]))
	}
	return b.String()
}
