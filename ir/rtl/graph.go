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
package rtl

import (
	"fmt"
	"sort"
	"strings"

	"minicc/ast"
	"minicc/reg"
)

// Graph maps a label to the instruction found there. Labels not present in
// the map represent the function's exit (invariant I2).
type Graph struct {
	Instrs map[reg.Label]Instr
}

func newGraph() *Graph {
	return &Graph{Instrs: make(map[reg.Label]Instr)}
}

// Fun is one RTL function.
type Fun struct {
	Name   string
	Result reg.PseudoReg
	Args   []reg.PseudoReg
	Locals map[ast.BlockIdent]reg.PseudoReg
	Entry  reg.Label
	Exit   reg.Label
	Graph  *Graph
}

// File is a whole translation unit lowered to RTL.
type File struct {
	Funs []*Fun
}

func sortedLabels(g *Graph) []reg.Label {
	out := make([]reg.Label, 0, len(g.Instrs))
	for l := range g.Instrs {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ordinal() < out[j].Ordinal() })
	return out
}

func (f *File) String() string {
	var b strings.Builder
	b.WriteString("=== RTL ===\n")
	for _, fun := range f.Funs {
		b.WriteString(fun.String())
		b.WriteString("\n")
	}
	return b.String()
}

func (fn *Fun) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s(%v)\n", fn.Result, fn.Name, fn.Args)
	fmt.Fprintf(&b, "  entry: %s, exit: %s\n", fn.Entry, fn.Exit)
	for _, l := range sortedLabels(fn.Graph) {
		fmt.Fprintf(&b, "  %s: %s\n", l, instrString(fn.Graph.Instrs[l]))
	}
	return b.String()
}

func instrString(in Instr) string {
	switch i := in.(type) {
	case IConst:
		return fmt.Sprintf("const %d -> %s --> %s", i.Value, i.Dst, i.Next)
	case ILoad:
		return fmt.Sprintf("load [%s+%d] -> %s --> %s", i.Addr, i.Offset, i.Dst, i.Next)
	case IStore:
		return fmt.Sprintf("store %s -> [%s+%d] --> %s", i.Val, i.Addr, i.Offset, i.Next)
	case IUnop:
		return fmt.Sprintf("%s %s --> %s", i.Op, i.Reg, i.Next)
	case IBinop:
		return fmt.Sprintf("%s %s, %s --> %s", i.Op, i.Src, i.Dst, i.Next)
	case IUBranch:
		return fmt.Sprintf("%s %s --> %s, %s", i.Op, i.Reg, i.L1, i.L2)
	case IBBranch:
		return fmt.Sprintf("%s %s, %s --> %s, %s", i.Op, i.R1, i.R2, i.L1, i.L2)
	case ICall:
		return fmt.Sprintf("call %s <- %s(%v) --> %s", i.Dst, i.Name, i.Args, i.Next)
	case IGoto:
		return fmt.Sprintf("goto --> %s", i.Next)
	}
	panic("unreachable Instr")
}
