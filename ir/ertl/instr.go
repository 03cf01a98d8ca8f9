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

// Package ertl is the second intermediate representation: RTL with the
// System V AMD64 calling convention made explicit (frame markers, argument
// register/stack moves, callee-saved preservation).
package ertl

import (
	"fmt"

	"minicc/ir/rtl"
	"minicc/reg"
)

type Munop = rtl.Munop
type Mbinop = rtl.Mbinop
type MuBranch = rtl.MuBranch
type MbBranchKind = rtl.MbBranchKind

const (
	MMov   = rtl.MMov
	MAdd   = rtl.MAdd
	MSub   = rtl.MSub
	MMul   = rtl.MMul
	MDiv   = rtl.MDiv
	MSete  = rtl.MSete
	MSetne = rtl.MSetne
	MSetl  = rtl.MSetl
	MSetle = rtl.MSetle
	MSetg  = rtl.MSetg
	MSetge = rtl.MSetge
)

const (
	MJz   = rtl.MJz
	MJnz  = rtl.MJnz
	MJlei = rtl.MJlei
	MJgi  = rtl.MJgi
)

const (
	MJl  = rtl.MJl
	MJle = rtl.MJle
)

// Instr is the ERTL instruction sum type: every RTL opcode survives, plus
// the calling-convention instructions AllocFrame/DeleteFrame/GetParam/
// PushParam/Return. Registers are now reg.Register (pseudo or physical)
// rather than bare pseudo-registers.
type Instr interface {
	isInstr()
	Succs() []reg.Label
}

type IConst struct {
	Value int64
	Dst   reg.Register
	Next  reg.Label
}

type ILoad struct {
	Addr   reg.Register
	Offset int
	Dst    reg.Register
	Next   reg.Label
}

type IStore struct {
	Val    reg.Register
	Addr   reg.Register
	Offset int
	Next   reg.Label
}

type IUnop struct {
	Op   Munop
	Reg  reg.Register
	Next reg.Label
}

type IBinop struct {
	Op   Mbinop
	Src  reg.Register
	Dst  reg.Register
	Next reg.Label
}

type IUBranch struct {
	Op     MuBranch
	Reg    reg.Register
	L1, L2 reg.Label
}

type IBBranch struct {
	Op     MbBranchKind
	R1, R2 reg.Register
	L1, L2 reg.Label
}

// ICall no longer carries result/argument registers: by this stage they
// travel implicitly through physical registers per the calling convention.
// NArgs is the number of register (non-stack) arguments, needed by liveness
// to know which PARAMETERS entries are live-in to the call.
type ICall struct {
	Name  string
	NArgs int
	Next  reg.Label
}

type IGoto struct{ Next reg.Label }

type IAllocFrame struct{ Next reg.Label }

type IDeleteFrame struct{ Next reg.Label }

// IGetParam fetches the (Index-6)-th stack argument (Index >= 6) into Dst.
type IGetParam struct {
	Index int
	Dst   reg.Register
	Next  reg.Label
}

type IPushParam struct {
	Reg  reg.Register
	Next reg.Label
}

type IReturn struct{}

func (IConst) isInstr()       {}
func (ILoad) isInstr()        {}
func (IStore) isInstr()       {}
func (IUnop) isInstr()        {}
func (IBinop) isInstr()       {}
func (IUBranch) isInstr()     {}
func (IBBranch) isInstr()     {}
func (ICall) isInstr()        {}
func (IGoto) isInstr()        {}
func (IAllocFrame) isInstr()  {}
func (IDeleteFrame) isInstr() {}
func (IGetParam) isInstr()    {}
func (IPushParam) isInstr()   {}
func (IReturn) isInstr()      {}

func (i IConst) Succs() []reg.Label       { return []reg.Label{i.Next} }
func (i ILoad) Succs() []reg.Label        { return []reg.Label{i.Next} }
func (i IStore) Succs() []reg.Label       { return []reg.Label{i.Next} }
func (i IUnop) Succs() []reg.Label        { return []reg.Label{i.Next} }
func (i IBinop) Succs() []reg.Label       { return []reg.Label{i.Next} }
func (i IUBranch) Succs() []reg.Label     { return []reg.Label{i.L1, i.L2} }
func (i IBBranch) Succs() []reg.Label     { return []reg.Label{i.L1, i.L2} }
func (i ICall) Succs() []reg.Label        { return []reg.Label{i.Next} }
func (i IGoto) Succs() []reg.Label        { return []reg.Label{i.Next} }
func (i IAllocFrame) Succs() []reg.Label  { return []reg.Label{i.Next} }
func (i IDeleteFrame) Succs() []reg.Label { return []reg.Label{i.Next} }
func (i IGetParam) Succs() []reg.Label    { return []reg.Label{i.Next} }
func (i IPushParam) Succs() []reg.Label   { return []reg.Label{i.Next} }
func (i IReturn) Succs() []reg.Label      { return nil }

func InstrString(in Instr) string {
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
		return fmt.Sprintf("call %s/%d --> %s", i.Name, i.NArgs, i.Next)
	case IGoto:
		return fmt.Sprintf("goto --> %s", i.Next)
	case IAllocFrame:
		return fmt.Sprintf("alloc_frame --> %s", i.Next)
	case IDeleteFrame:
		return fmt.Sprintf("delete_frame --> %s", i.Next)
	case IGetParam:
		return fmt.Sprintf("get_param %d -> %s --> %s", i.Index, i.Dst, i.Next)
	case IPushParam:
		return fmt.Sprintf("push_param %s --> %s", i.Reg, i.Next)
	case IReturn:
		return "return"
	}
	panic("unreachable Instr")
}
