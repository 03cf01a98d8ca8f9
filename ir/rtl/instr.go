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

// Package rtl is the first intermediate representation: a per-function
// control-flow graph of three-address instructions over an unlimited
// supply of pseudo-registers, keyed by label.
package rtl

import (
	"fmt"

	"minicc/reg"
)

// MunopKind is the family of RTL unary register-modifying ops.
type MunopKind int

const (
	MAddi MunopKind = iota
	MSetei
	MSetnei
	MNeg
)

// Munop is a unary op, plus the immediate operand addi/setei/setnei carry
// (unused, zero, for neg).
type Munop struct {
	Kind MunopKind
	Imm  int64
}

func (m Munop) String() string {
	switch m.Kind {
	case MAddi:
		return fmt.Sprintf("addi %d", m.Imm)
	case MSetei:
		return fmt.Sprintf("setei %d", m.Imm)
	case MSetnei:
		return fmt.Sprintf("setnei %d", m.Imm)
	case MNeg:
		return "neg"
	}
	panic("unreachable Munop")
}

// Mbinop is a two-register op: `op dst, src` reads both operands and writes
// dst, following x86 dest-on-the-left convention.
type Mbinop int

const (
	MMov Mbinop = iota
	MAdd
	MSub
	MMul
	MDiv
	MSete
	MSetne
	MSetl
	MSetle
	MSetg
	MSetge
)

func (m Mbinop) String() string {
	return [...]string{"mov", "add", "sub", "mul", "div", "sete", "setne", "setl", "setle", "setg", "setge"}[m]
}

// IsCompare reports whether this binop writes a 0/1 boolean rather than an
// arithmetic result.
func (m Mbinop) IsCompare() bool {
	return m == MSete || m == MSetne || m == MSetl || m == MSetle || m == MSetg || m == MSetge
}

// MuBranchKind is a one-register conditional branch.
type MuBranchKind int

const (
	MJz MuBranchKind = iota
	MJnz
	MJlei
	MJgi
)

type MuBranch struct {
	Kind MuBranchKind
	Imm  int64 // only meaningful for MJlei/MJgi
}

func (m MuBranch) String() string {
	switch m.Kind {
	case MJz:
		return "jz"
	case MJnz:
		return "jnz"
	case MJlei:
		return fmt.Sprintf("jlei %d", m.Imm)
	case MJgi:
		return fmt.Sprintf("jgi %d", m.Imm)
	}
	panic("unreachable MuBranch")
}

// MbBranchKind is a two-register conditional branch.
type MbBranchKind int

const (
	MJl MbBranchKind = iota
	MJle
)

func (m MbBranchKind) String() string {
	if m == MJl {
		return "jl"
	}
	return "jle"
}

// Instr is the RTL instruction sum type. Each case is its own struct
// carrying its successor label(s) inline, so the graph never needs a
// separate CFG edge list: walking the graph is just following Succs().
type Instr interface {
	isInstr()
	// Succs returns every label this instruction may transfer control to.
	Succs() []reg.Label
}

type IConst struct {
	Value int64
	Dst   reg.PseudoReg
	Next  reg.Label
}

type ILoad struct {
	Addr   reg.PseudoReg
	Offset int
	Dst    reg.PseudoReg
	Next   reg.Label
}

type IStore struct {
	Val    reg.PseudoReg
	Addr   reg.PseudoReg
	Offset int
	Next   reg.Label
}

type IUnop struct {
	Op   Munop
	Reg  reg.PseudoReg
	Next reg.Label
}

type IBinop struct {
	Op   Mbinop
	Src  reg.PseudoReg
	Dst  reg.PseudoReg
	Next reg.Label
}

// IUBranch tests Reg and transfers to L1 if the test holds, else L2.
type IUBranch struct {
	Op     MuBranch
	Reg    reg.PseudoReg
	L1, L2 reg.Label
}

// IBBranch compares R1 to R2 and transfers to L1 if the comparison holds,
// else L2.
type IBBranch struct {
	Op     MbBranchKind
	R1, R2 reg.PseudoReg
	L1, L2 reg.Label
}

type ICall struct {
	Dst  reg.PseudoReg
	Name string
	Args []reg.PseudoReg
	Next reg.Label
}

type IGoto struct {
	Next reg.Label
}

func (IConst) isInstr()   {}
func (ILoad) isInstr()    {}
func (IStore) isInstr()   {}
func (IUnop) isInstr()    {}
func (IBinop) isInstr()   {}
func (IUBranch) isInstr() {}
func (IBBranch) isInstr() {}
func (ICall) isInstr()    {}
func (IGoto) isInstr()    {}

func (i IConst) Succs() []reg.Label   { return []reg.Label{i.Next} }
func (i ILoad) Succs() []reg.Label    { return []reg.Label{i.Next} }
func (i IStore) Succs() []reg.Label   { return []reg.Label{i.Next} }
func (i IUnop) Succs() []reg.Label    { return []reg.Label{i.Next} }
func (i IBinop) Succs() []reg.Label   { return []reg.Label{i.Next} }
func (i IUBranch) Succs() []reg.Label { return []reg.Label{i.L1, i.L2} }
func (i IBBranch) Succs() []reg.Label { return []reg.Label{i.L1, i.L2} }
func (i ICall) Succs() []reg.Label    { return []reg.Label{i.Next} }
func (i IGoto) Succs() []reg.Label    { return []reg.Label{i.Next} }
