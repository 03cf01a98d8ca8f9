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

// Package liveness computes, for every ERTL label, the set of registers
// live on entry and on exit, by worklist dataflow over the per-opcode
// def/use table below.
package liveness

import (
	"minicc/ir/ertl"
	"minicc/reg"
)

// DefUse returns the (def, use) register sets of a single ERTL
// instruction. Return's use set is {Rax} ∪ CALLEE_SAVED, not the differing
// CALLER_SAVED ∪ {Rax} variant some reference implementations compute --
// see DESIGN.md.
func DefUse(in ertl.Instr) (def, use []reg.Register) {
	switch i := in.(type) {
	case ertl.IConst:
		return []reg.Register{i.Dst}, nil
	case ertl.IGetParam:
		return []reg.Register{i.Dst}, nil
	case ertl.ILoad:
		return []reg.Register{i.Dst}, []reg.Register{i.Addr}
	case ertl.IStore:
		return nil, []reg.Register{i.Val, i.Addr}
	case ertl.IUnop:
		return []reg.Register{i.Reg}, []reg.Register{i.Reg}
	case ertl.IBinop:
		if i.Op == ertl.MMov {
			return []reg.Register{i.Dst}, []reg.Register{i.Src}
		}
		if i.Op == ertl.MDiv {
			rax, rdx := reg.Phys(reg.Rax), reg.Phys(reg.Rdx)
			return []reg.Register{rax, rdx}, []reg.Register{rax, rdx, i.Src}
		}
		return []reg.Register{i.Dst}, []reg.Register{i.Src, i.Dst}
	case ertl.IUBranch:
		return nil, []reg.Register{i.Reg}
	case ertl.IPushParam:
		return nil, []reg.Register{i.Reg}
	case ertl.IBBranch:
		return nil, []reg.Register{i.R1, i.R2}
	case ertl.ICall:
		return reg.CallerSavedRegs(), reg.ParamRegs()[:i.NArgs]
	case ertl.IReturn:
		use := append([]reg.Register{reg.Phys(reg.Rax)}, reg.CalleeSavedRegs()...)
		return nil, use
	case ertl.IGoto, ertl.IAllocFrame, ertl.IDeleteFrame:
		return nil, nil
	}
	panic("unreachable ERTL Instr")
}
