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
	"sort"

	"minicc/ir/rtl"
	"minicc/reg"
)

// Build makes the calling convention explicit, function by function.
// Labels are stable across RTL and ERTL: most RTL instructions are
// rewritten in place at their original label, and only the div and call
// expansions (which turn one RTL instruction into several) allocate fresh
// interior labels.
func Build(file *rtl.File) (*File, error) {
	out := &File{}
	for _, fn := range file.Funs {
		out.Funs = append(out.Funs, buildFun(fn))
	}
	return out, nil
}

func buildFun(fn *rtl.Fun) *Fun {
	g := NewGraph()

	// Translate in label order: div/call expansions allocate fresh labels,
	// and ranging the map directly would number them differently per run.
	labels := make([]reg.Label, 0, len(fn.Graph.Instrs))
	for l := range fn.Graph.Instrs {
		labels = append(labels, l)
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i].Ordinal() < labels[j].Ordinal() })
	for _, l := range labels {
		translateInstr(g, l, fn.Graph.Instrs[l])
	}

	saves := make([]reg.PseudoReg, len(reg.CALLEE_SAVED))
	for i := range reg.CALLEE_SAVED {
		saves[i] = reg.FreshPseudoReg()
	}

	exit := buildExitSequence(g, fn, saves)
	entry := buildEntrySequence(g, fn, saves)

	return &Fun{Name: fn.Name, Entry: entry, Exit: exit, Graph: g}
}

// buildExitSequence attaches the return sequence at fn.Exit (reusing that
// label as the entry point so every `return` statement's branch target
// keeps working unmodified) and allocates a fresh, instruction-less true
// exit label to preserve invariant I2.
func buildExitSequence(g *Graph, fn *rtl.Fun, saves []reg.PseudoReg) reg.Label {
	trueExit := reg.FreshLabel()

	retLbl := reg.FreshLabel()
	g.Instrs[retLbl] = IReturn{}

	delLbl := reg.FreshLabel()
	g.Instrs[delLbl] = IDeleteFrame{Next: retLbl}

	cur := delLbl
	for i := len(reg.CALLEE_SAVED) - 1; i >= 0; i-- {
		l := reg.FreshLabel()
		g.Instrs[l] = IBinop{Op: MMov, Src: reg.FromPseudo(saves[i]), Dst: reg.Phys(reg.CALLEE_SAVED[i]), Next: cur}
		cur = l
	}

	g.Instrs[fn.Exit] = IBinop{Op: MMov, Src: reg.FromPseudo(fn.Result), Dst: reg.Phys(reg.Rax), Next: cur}

	return trueExit
}

// buildEntrySequence builds, from the inside out: the original entry's
// argument-fetch chain, then AllocFrame, then the callee-saved preservation
// chain, per section 4.2 item 3-4. Execution therefore runs the reverse
// way: callee-saved saves, AllocFrame, argument fetch, original entry.
func buildEntrySequence(g *Graph, fn *rtl.Fun, saves []reg.PseudoReg) reg.Label {
	cur := fn.Entry
	for i := len(fn.Args) - 1; i >= 0; i-- {
		l := reg.FreshLabel()
		dst := reg.FromPseudo(fn.Args[i])
		if i < len(reg.PARAMETERS) {
			g.Instrs[l] = IBinop{Op: MMov, Src: reg.Phys(reg.PARAMETERS[i]), Dst: dst, Next: cur}
		} else {
			g.Instrs[l] = IGetParam{Index: i, Dst: dst, Next: cur}
		}
		cur = l
	}

	allocLbl := reg.FreshLabel()
	g.Instrs[allocLbl] = IAllocFrame{Next: cur}
	cur = allocLbl

	for i := len(reg.CALLEE_SAVED) - 1; i >= 0; i-- {
		l := reg.FreshLabel()
		g.Instrs[l] = IBinop{Op: MMov, Src: reg.Phys(reg.CALLEE_SAVED[i]), Dst: reg.FromPseudo(saves[i]), Next: cur}
		cur = l
	}

	return cur
}

func translateInstr(g *Graph, l reg.Label, in rtl.Instr) {
	switch i := in.(type) {
	case rtl.IConst:
		g.Instrs[l] = IConst{Value: i.Value, Dst: reg.FromPseudo(i.Dst), Next: i.Next}
	case rtl.ILoad:
		g.Instrs[l] = ILoad{Addr: reg.FromPseudo(i.Addr), Offset: i.Offset, Dst: reg.FromPseudo(i.Dst), Next: i.Next}
	case rtl.IStore:
		g.Instrs[l] = IStore{Val: reg.FromPseudo(i.Val), Addr: reg.FromPseudo(i.Addr), Offset: i.Offset, Next: i.Next}
	case rtl.IUnop:
		g.Instrs[l] = IUnop{Op: i.Op, Reg: reg.FromPseudo(i.Reg), Next: i.Next}
	case rtl.IBinop:
		translateBinop(g, l, i)
	case rtl.IUBranch:
		g.Instrs[l] = IUBranch{Op: i.Op, Reg: reg.FromPseudo(i.Reg), L1: i.L1, L2: i.L2}
	case rtl.IBBranch:
		g.Instrs[l] = IBBranch{Op: MbBranchKind(i.Op), R1: reg.FromPseudo(i.R1), R2: reg.FromPseudo(i.R2), L1: i.L1, L2: i.L2}
	case rtl.ICall:
		translateCall(g, l, i)
	case rtl.IGoto:
		g.Instrs[l] = IGoto{Next: i.Next}
	default:
		panic("unreachable RTL Instr")
	}
}

// translateBinop expands `div rs, rd` into the Rax materialize/restore
// dance (section 4.2); every other binop is a straight register-kind lift.
func translateBinop(g *Graph, l reg.Label, i rtl.IBinop) {
	if i.Op != rtl.MDiv {
		g.Instrs[l] = IBinop{Op: i.Op, Src: reg.FromPseudo(i.Src), Dst: reg.FromPseudo(i.Dst), Next: i.Next}
		return
	}

	movBackLbl := reg.FreshLabel()
	g.Instrs[movBackLbl] = IBinop{Op: MMov, Src: reg.Phys(reg.Rax), Dst: reg.FromPseudo(i.Dst), Next: i.Next}

	divLbl := reg.FreshLabel()
	g.Instrs[divLbl] = IBinop{Op: MDiv, Src: reg.FromPseudo(i.Src), Dst: reg.Phys(reg.Rax), Next: movBackLbl}

	g.Instrs[l] = IBinop{Op: MMov, Src: reg.FromPseudo(i.Dst), Dst: reg.Phys(reg.Rax), Next: divLbl}
}

// translateCall expands a single RTL Call into the full mini-protocol:
// move/push arguments, `call`, clean the stack if more than 6 arguments
// were passed, move Rax into the destination.
func translateCall(g *Graph, l reg.Label, i rtl.ICall) {
	k := len(i.Args)
	stackArgs := 0
	if k > len(reg.PARAMETERS) {
		stackArgs = k - len(reg.PARAMETERS)
	}
	regArgs := k - stackArgs

	addiLbl := reg.FreshLabel()
	g.Instrs[addiLbl] = IUnop{Op: rtl.Munop{Kind: rtl.MAddi, Imm: int64(8 * stackArgs)}, Reg: reg.Phys(reg.Rsp), Next: i.Next}

	movResLbl := reg.FreshLabel()
	g.Instrs[movResLbl] = IBinop{Op: MMov, Src: reg.Phys(reg.Rax), Dst: reg.FromPseudo(i.Dst), Next: addiLbl}

	callLbl := reg.FreshLabel()
	g.Instrs[callLbl] = ICall{Name: i.Name, NArgs: regArgs, Next: movResLbl}

	if k == 0 {
		g.Instrs[l] = ICall{Name: i.Name, NArgs: regArgs, Next: movResLbl}
		delete(g.Instrs, callLbl)
		return
	}

	// Stack-passed arguments must be pushed highest-index first so that
	// arg index 6 (the lowest stack-passed index) is the last thing pushed
	// before the call, landing at [rsp] and therefore [rbp+16] in the
	// callee -- matching GetParam's 16+8*(index-6) offset formula (section
	// 9). Building this chain in ASCENDING index order here yields that
	// DESCENDING execution order, since each newly built label's Next
	// points at the previously built one (the same backward-construction
	// trick the RTL builder uses throughout, just threaded in the
	// direction that keeps push order consistent with GetParam on the
	// other end of the call). Register-argument movs (index < 6) carry no
	// such ordering constraint -- they touch only physical registers, not
	// the stack -- so interleaving them anywhere in this chain is safe.
	cur := callLbl
	for idx := 0; idx < k; idx++ {
		argReg := reg.FromPseudo(i.Args[idx])
		var lbl reg.Label
		if idx == k-1 {
			lbl = l
		} else {
			lbl = reg.FreshLabel()
		}
		if idx >= len(reg.PARAMETERS) {
			g.Instrs[lbl] = IPushParam{Reg: argReg, Next: cur}
		} else {
			g.Instrs[lbl] = IBinop{Op: MMov, Src: argReg, Dst: reg.Phys(reg.PARAMETERS[idx]), Next: cur}
		}
		cur = lbl
	}
}
