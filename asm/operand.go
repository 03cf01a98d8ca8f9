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

// Package asm is the final stage: linearizing an LTL control-flow graph
// into a straight-line sequence of AT&T-syntax x86-64 instructions.
package asm

import (
	"fmt"

	"minicc/reg"
)

// operand is an already fully-resolved x86 operand: a physical register, a
// frame slot (always relative to %rbp), or an immediate. By the time code
// reaches this package every reg.Operand has already been colored, so
// rendering never needs a pseudo-register case.
type operand struct {
	kind   byte // 'r' register, 'm' memory, 'i' immediate
	reg    reg.PhysReg
	offset int
	imm    int64
}

func regOp(p reg.PhysReg) operand           { return operand{kind: 'r', reg: p} }
func memOp(base reg.PhysReg, off int) operand { return operand{kind: 'm', reg: base, offset: off} }
func immOp(v int64) operand                 { return operand{kind: 'i', imm: v} }

// slotOffset maps a 0-indexed frame slot (coloring.Result.Colors' Operand.Slot)
// to its byte offset from %rbp: slot 0 sits at -8(%rbp), slot 1 at -16(%rbp),
// matching the stack layout ltl.lowerAllocFrame carves out below %rbp.
func slotOffset(slot int) int { return -8 * (slot + 1) }

// fromOperand renders an already-colored reg.Operand as an asm operand.
func fromOperand(o reg.Operand) operand {
	if o.Spilled {
		return memOp(reg.Rbp, slotOffset(o.Slot))
	}
	return regOp(o.Phys)
}

func (o operand) String() string {
	switch o.kind {
	case 'r':
		return "%" + o.reg.String()
	case 'm':
		if o.offset == 0 {
			return fmt.Sprintf("(%%%s)", o.reg)
		}
		return fmt.Sprintf("%d(%%%s)", o.offset, o.reg)
	case 'i':
		return fmt.Sprintf("$%d", o.imm)
	}
	panic("unreachable operand")
}

// byteAlias names the 8-bit alias of a general-purpose register, needed
// only to stage setcc's single-byte destination (see lowerUnop/lowerBinop).
var byteAliases = map[reg.PhysReg]string{
	reg.Rax: "al", reg.Rbx: "bl", reg.Rcx: "cl", reg.Rdx: "dl",
	reg.Rsi: "sil", reg.Rdi: "dil", reg.Rbp: "bpl", reg.Rsp: "spl",
	reg.R8: "r8b", reg.R9: "r9b", reg.R10: "r10b", reg.R11: "r11b",
	reg.R12: "r12b", reg.R13: "r13b", reg.R14: "r14b", reg.R15: "r15b",
}

func byteAlias(p reg.PhysReg) string { return byteAliases[p] }
