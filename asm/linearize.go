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
	"minicc/ir/ltl"
	"minicc/ir/rtl"
	"minicc/reg"
)

// linCtx is shared across every function in the file: labels are globally
// fresh (reg.FreshLabel never resets between functions), so one visited/
// needLabel bookkeeping pair threaded across all of them is sufficient and
// keeps the final label-elision pass a single global filter.
type linCtx struct {
	g         *ltl.Graph
	visited   map[reg.Label]bool
	needLabel map[reg.Label]bool
	nodes     []Node
}

func (c *linCtx) emit(n Node) { c.nodes = append(c.nodes, n) }

func (c *linCtx) emitAtLabel(l reg.Label, n Node) {
	c.emit(NLabel{l})
	c.emit(n)
}

func (c *linCtx) need(l reg.Label) { c.needLabel[l] = true }

// lin schedules label l: if it's unvisited, lower its instruction in place
// (falling through to successors); if it was already scheduled elsewhere
// (a backward or merge edge), emit an explicit jump to it instead.
func (c *linCtx) lin(l reg.Label) {
	if c.visited[l] {
		c.need(l)
		c.emit(NJump{"jmp", l})
		return
	}
	c.visited[l] = true
	c.instr(l, c.g.Instrs[l])
}

func (c *linCtx) instr(l reg.Label, in ltl.Instr) {
	switch i := in.(type) {
	case ltl.IConst:
		c.emitAtLabel(l, NTwo{"movq", immOp(i.Value), fromOperand(i.Dst)})
		c.lin(i.Next)

	case ltl.ILoad:
		c.emitAtLabel(l, NTwo{"movq", memOp(i.Addr, i.Offset), regOp(i.Dst)})
		c.lin(i.Next)

	case ltl.IStore:
		c.emitAtLabel(l, NTwo{"movq", regOp(i.Val), memOp(i.Addr, i.Offset)})
		c.lin(i.Next)

	case ltl.IUnop:
		c.lowerUnop(l, i)

	case ltl.IBinop:
		c.lowerBinop(l, i)

	case ltl.IUBranch:
		c.lowerUBranch(l, i)

	case ltl.IBBranch:
		c.lowerBBranch(l, i)

	case ltl.ICall:
		c.emitAtLabel(l, NCall{i.Name})
		c.lin(i.Next)

	case ltl.IGoto:
		if c.visited[i.Next] {
			c.need(i.Next)
			c.emitAtLabel(l, NJump{"jmp", i.Next})
			return
		}
		c.emit(NLabel{l})
		c.lin(i.Next)

	case ltl.IPush:
		c.emitAtLabel(l, NOne{"pushq", fromOperand(i.Operand)})
		c.lin(i.Next)

	case ltl.IPop:
		c.emitAtLabel(l, NOne{"popq", fromOperand(i.Operand)})
		c.lin(i.Next)

	case ltl.IReturn:
		c.emitAtLabel(l, NZero{"ret"})

	default:
		panic("unreachable LTL Instr")
	}
}

// lowerUnop elaborates addi/neg (which operate directly on their operand,
// memory included) and setei/setnei (which need a register to set into,
// staged through TMP_1 when the operand is a frame slot).
func (c *linCtx) lowerUnop(l reg.Label, i ltl.IUnop) {
	switch i.Op.Kind {
	case rtl.MAddi:
		c.emitAtLabel(l, NTwo{"addq", immOp(i.Op.Imm), fromOperand(i.Operand)})
		c.lin(i.Next)
		return
	case rtl.MNeg:
		c.emitAtLabel(l, NOne{"negq", fromOperand(i.Operand)})
		c.lin(i.Next)
		return
	}

	firstAtOrig := true
	rReg := reg.TMP_1
	if i.Operand.Spilled {
		c.emitAtLabel(l, NTwo{"movq", fromOperand(i.Operand), regOp(reg.TMP_1)})
		firstAtOrig = false
	} else {
		rReg = i.Operand.Phys
	}

	movImm := NTwo{"movq", immOp(i.Op.Imm), regOp(reg.TMP_2)}
	if firstAtOrig {
		c.emitAtLabel(l, movImm)
	} else {
		c.emit(movImm)
	}
	c.emit(NTwo{"cmpq", regOp(rReg), regOp(reg.TMP_2)})

	mnemonic := "sete"
	if i.Op.Kind == rtl.MSetnei {
		mnemonic = "setne"
	}
	c.emit(NSet{mnemonic, rReg})
	c.emit(NZeroExtend{rReg})

	if i.Operand.Spilled {
		c.emit(NTwo{"movq", regOp(rReg), fromOperand(i.Operand)})
	}
	c.lin(i.Next)
}

func setMnemonic(op ltl.Mbinop) string {
	switch op {
	case ltl.MSete:
		return "sete"
	case ltl.MSetne:
		return "setne"
	case ltl.MSetl:
		return "setl"
	case ltl.MSetle:
		return "setle"
	case ltl.MSetg:
		return "setg"
	case ltl.MSetge:
		return "setge"
	}
	panic("unreachable Mbinop")
}

// lowerBinop is where the one case the LTL stage leaves open -- both
// operands of a binop landed on a frame slot -- gets closed: the source is
// staged through TMP_1 before the real operation, so at most one operand
// of the emitted instruction is ever a memory reference (see I6 in
// DESIGN.md).
func (c *linCtx) lowerBinop(l reg.Label, i ltl.IBinop) {
	firstAtOrig := true
	src := fromOperand(i.Src)
	if i.Src.Spilled && i.Dst.Spilled {
		c.emitAtLabel(l, NTwo{"movq", src, regOp(reg.TMP_1)})
		src = regOp(reg.TMP_1)
		firstAtOrig = false
	}
	dst := fromOperand(i.Dst)

	emitFirst := func(n Node) {
		if firstAtOrig {
			c.emitAtLabel(l, n)
			firstAtOrig = false
		} else {
			c.emit(n)
		}
	}

	switch i.Op {
	case ltl.MMov:
		emitFirst(NTwo{"movq", src, dst})
		c.lin(i.Next)
	case ltl.MAdd:
		emitFirst(NTwo{"addq", src, dst})
		c.lin(i.Next)
	case ltl.MSub:
		emitFirst(NTwo{"subq", src, dst})
		c.lin(i.Next)
	case ltl.MMul:
		if i.Dst.Spilled {
			emitFirst(NTwo{"movq", dst, regOp(reg.TMP_2)})
			c.emit(NTwo{"imulq", src, regOp(reg.TMP_2)})
			c.emit(NTwo{"movq", regOp(reg.TMP_2), dst})
		} else {
			emitFirst(NTwo{"imulq", src, dst})
		}
		c.lin(i.Next)
	case ltl.MDiv:
		// Dst is always the physical %rax by construction (ertl's
		// translateBinop always materializes div's dividend/result there).
		emitFirst(NZero{"cqto"})
		c.emit(NOne{"idivq", src})
		c.lin(i.Next)
	default:
		rReg := reg.TMP_2
		cmpDst := dst
		if i.Dst.Spilled {
			emitFirst(NTwo{"movq", dst, regOp(reg.TMP_2)})
			cmpDst = regOp(reg.TMP_2)
		} else {
			rReg = i.Dst.Phys
		}
		emitFirst(NTwo{"cmpq", src, cmpDst})
		c.emit(NSet{setMnemonic(i.Op), rReg})
		c.emit(NZeroExtend{rReg})
		if i.Dst.Spilled {
			c.emit(NTwo{"movq", regOp(reg.TMP_2), dst})
		}
		c.lin(i.Next)
	}
}

func invertJcc(mnemonic string) string {
	switch mnemonic {
	case "jz":
		return "jnz"
	case "jnz":
		return "jz"
	case "jl":
		return "jge"
	case "jge":
		return "jl"
	case "jle":
		return "jg"
	case "jg":
		return "jle"
	}
	panic("unreachable jcc mnemonic")
}

// branchOrient picks which successor falls through and which needs an
// explicit jump, per section 4.7: prefer falling through to an unvisited
// successor so the common case needs no jump at all.
func (c *linCtx) branchOrient(mnemonic string, l1, l2 reg.Label) {
	if !c.visited[l2] {
		c.emit(NJump{mnemonic, l1})
		c.need(l1)
		c.lin(l2)
		c.lin(l1)
		return
	}
	if !c.visited[l1] {
		c.emit(NJump{invertJcc(mnemonic), l2})
		c.need(l2)
		c.lin(l1)
		c.lin(l2)
		return
	}
	c.emit(NJump{mnemonic, l1})
	c.emit(NJump{"jmp", l2})
	c.need(l1)
	c.need(l2)
}

func (c *linCtx) lowerUBranch(l reg.Label, i ltl.IUBranch) {
	if i.Op.Kind == rtl.MJlei || i.Op.Kind == rtl.MJgi {
		c.emitAtLabel(l, NTwo{"cmpq", immOp(i.Op.Imm), fromOperand(i.Operand)})
		mnemonic := "jle"
		if i.Op.Kind == rtl.MJgi {
			mnemonic = "jg"
		}
		c.branchOrient(mnemonic, i.L1, i.L2)
		return
	}

	firstAtOrig := true
	test := fromOperand(i.Operand)
	if i.Operand.Spilled {
		c.emitAtLabel(l, NTwo{"movq", test, regOp(reg.TMP_1)})
		test = regOp(reg.TMP_1)
		firstAtOrig = false
	}
	testNode := NTwo{"testq", test, test}
	if firstAtOrig {
		c.emitAtLabel(l, testNode)
	} else {
		c.emit(testNode)
	}

	mnemonic := "jz"
	if i.Op.Kind == rtl.MJnz {
		mnemonic = "jnz"
	}
	c.branchOrient(mnemonic, i.L1, i.L2)
}

// lowerBBranch is declared but, like ltl.IBBranch itself, never constructed
// by the current front end (relational comparisons lower through
// IBinop(setcc)+IUBranch(jz/jnz) instead); implemented anyway since nothing
// in the IR forbids a future caller from emitting it.
func (c *linCtx) lowerBBranch(l reg.Label, i ltl.IBBranch) {
	firstAtOrig := true
	r1 := fromOperand(i.R1)
	if i.R1.Spilled && i.R2.Spilled {
		c.emitAtLabel(l, NTwo{"movq", r1, regOp(reg.TMP_1)})
		r1 = regOp(reg.TMP_1)
		firstAtOrig = false
	}
	r2 := fromOperand(i.R2)

	cmpNode := NTwo{"cmpq", r2, r1}
	if firstAtOrig {
		c.emitAtLabel(l, cmpNode)
	} else {
		c.emit(cmpNode)
	}

	mnemonic := "jl"
	if i.Op == ltl.MJle {
		mnemonic = "jle"
	}
	c.branchOrient(mnemonic, i.L1, i.L2)
}
