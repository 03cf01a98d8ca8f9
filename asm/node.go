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
	"fmt"

	"minicc/reg"
)

// Node is one line of the linearized program: a label, a directive, or an
// instruction. Grouped by arity rather than one struct per mnemonic --
// mirrors the teacher's emit0/emit1/emit2 helpers, just reified as data
// instead of buffer writes.
type Node interface {
	fmt.Stringer
	isNode()
}

type NLabel struct{ L reg.Label }

type NGlobl struct{ Name string }

type NFuncLabel struct{ Name string }

type NZero struct{ Mnemonic string }

type NOne struct {
	Mnemonic string
	Op       operand
}

type NTwo struct {
	Mnemonic string
	Src, Dst operand
}

// NJump covers jmp and every conditional jcc: all take one label operand.
type NJump struct {
	Mnemonic string
	L        reg.Label
}

type NCall struct{ Name string }

// NSet is setcc writing its single byte-sized destination register.
type NSet struct {
	Mnemonic string
	Reg      reg.PhysReg
}

// NZeroExtend is the movzbq that must follow every NSet: setcc only ever
// writes the low byte of its destination, leaving the upper 56 bits as
// whatever garbage was already in the register, so a comparison's 0/1
// result is not safe to use as a full operand until this runs. Mirrors
// the teacher's `movzx` helper in compile/codegen/asm_x86.go.
type NZeroExtend struct{ Reg reg.PhysReg }

func (NLabel) isNode()       {}
func (NGlobl) isNode()       {}
func (NFuncLabel) isNode()   {}
func (NZero) isNode()        {}
func (NOne) isNode()         {}
func (NTwo) isNode()         {}
func (NJump) isNode()        {}
func (NCall) isNode()        {}
func (NSet) isNode()         {}
func (NZeroExtend) isNode()  {}

func (n NLabel) String() string     { return fmt.Sprintf("%s:", n.L) }
func (n NGlobl) String() string     { return fmt.Sprintf("\t.globl %s", n.Name) }
func (n NFuncLabel) String() string { return fmt.Sprintf("%s:", n.Name) }
func (n NZero) String() string      { return "\t" + n.Mnemonic }
func (n NOne) String() string       { return fmt.Sprintf("\t%s %s", n.Mnemonic, n.Op) }
func (n NTwo) String() string       { return fmt.Sprintf("\t%s %s, %s", n.Mnemonic, n.Src, n.Dst) }
func (n NJump) String() string      { return fmt.Sprintf("\t%s %s", n.Mnemonic, n.L) }
func (n NCall) String() string      { return fmt.Sprintf("\tcall %s", n.Name) }
func (n NSet) String() string       { return fmt.Sprintf("\t%s %%%s", n.Mnemonic, byteAlias(n.Reg)) }
func (n NZeroExtend) String() string {
	return fmt.Sprintf("\tmovzbq %%%s, %%%s", byteAlias(n.Reg), n.Reg)
}
