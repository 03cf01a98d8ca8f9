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
package asm

import (
	"strings"

	"minicc/ir/ltl"
	"minicc/reg"
)

// Linearize schedules every function in file into a single flat node list,
// eliding every label that nothing ever jumps to. Only "main" is ever a
// cross-translation-unit symbol (the program's single entry point); every
// other function stays file-local but keeps its own name label, since
// intra-file references to it resolve regardless of visibility.
func Linearize(file *ltl.File) []Node {
	c := &linCtx{
		visited:   make(map[reg.Label]bool),
		needLabel: make(map[reg.Label]bool),
	}
	c.emit(NGlobl{"main"})
	for _, fn := range file.Funs {
		c.g = fn.Graph
		c.emit(NFuncLabel{fn.Name})
		c.lin(fn.Entry)
	}

	kept := make([]Node, 0, len(c.nodes))
	for _, n := range c.nodes {
		if lbl, ok := n.(NLabel); ok && !c.needLabel[lbl.L] {
			continue
		}
		kept = append(kept, n)
	}
	return kept
}

// Emit renders file as a complete AT&T-syntax assembly text section, ready
// to hand to an external assembler.
func Emit(file *ltl.File) string {
	var b strings.Builder
	b.WriteString("\t.text\n")
	for _, n := range Linearize(file) {
		b.WriteString(n.String())
		b.WriteString("\n")
	}
	return b.String()
}
