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
package interp

import (
	"fmt"

	"minicc/ir/rtl"
	"minicc/reg"
)

// RunRTL interprets file's main function over the RTL graph itself,
// following each instruction's Succs() the way
// original_source/src/rtl/interpreter/mod.rs's interp_instr/interp_label
// pair does. Grounded on that file's opcode semantics (see the rtlFrame
// comment below for the one place this module's register model
// deliberately diverges from it).
func RunRTL(file *rtl.File) (*Stdout, error) {
	funs := make(map[string]*rtl.Fun, len(file.Funs))
	for _, fn := range file.Funs {
		funs[fn.Name] = fn
	}
	main, ok := funs["main"]
	if !ok {
		return nil, fmt.Errorf("interp: no main function")
	}
	out := NewStdout()
	h := newHeap()
	_, err := callRTLFun(funs, h, out, main, nil)
	return out, err
}

// rtlFrame holds one activation's pseudo-register storage. Every
// invocation of a function (recursive or not) gets its own fresh frame:
// original_source's rtl interpreter instead clones an Rc to a single
// HashMap<Register, Value> shared by every activation, which is sound
// only because its ERTL/asm sibling stages introduce a real stack -- at
// the bare RTL level, with no save/restore, sharing storage would let a
// recursive call clobber a pseudo-register the caller still needs (e.g.
// fact_rec's `n` and result registers are the same pseudo-registers at
// every recursion depth). Per-activation frames are the direct fix and
// are what a real machine's stack effectively gives the compiled binary
// for free, so this keeps property P1 meaningful for recursive programs
// like fact_rec.
type rtlFrame struct {
	regs map[reg.PseudoReg]int64
}

func (f *rtlFrame) get(r reg.PseudoReg) int64   { return f.regs[r] }
func (f *rtlFrame) put(r reg.PseudoReg, v int64) { f.regs[r] = v }

func callRTLFun(funs map[string]*rtl.Fun, h *heap, out *Stdout, fn *rtl.Fun, args []int64) (int64, error) {
	frame := &rtlFrame{regs: make(map[reg.PseudoReg]int64)}
	for i, a := range fn.Args {
		frame.put(a, args[i])
	}
	if err := runRTLLabel(funs, h, out, fn, frame, fn.Entry); err != nil {
		return 0, err
	}
	return frame.get(fn.Result), nil
}

// runRTLLabel walks the graph from l until it reaches fn.Exit (I2: the
// exit label carries no instruction, and reaching it represents return).
func runRTLLabel(funs map[string]*rtl.Fun, h *heap, out *Stdout, fn *rtl.Fun, frame *rtlFrame, l reg.Label) error {
	for l != fn.Exit {
		instr, ok := fn.Graph.Instrs[l]
		if !ok {
			return fmt.Errorf("interp: no instruction at %s in %s", l, fn.Name)
		}
		next, err := execRTLInstr(funs, h, out, frame, instr)
		if err != nil {
			return err
		}
		l = next
	}
	return nil
}

func execRTLInstr(funs map[string]*rtl.Fun, h *heap, out *Stdout, frame *rtlFrame, in rtl.Instr) (reg.Label, error) {
	switch i := in.(type) {
	case rtl.IConst:
		frame.put(i.Dst, i.Value)
		return i.Next, nil

	case rtl.ILoad:
		v, err := h.load(frame.get(i.Addr), i.Offset)
		if err != nil {
			return reg.Label{}, err
		}
		frame.put(i.Dst, v)
		return i.Next, nil

	case rtl.IStore:
		if err := h.store(frame.get(i.Addr), i.Offset, frame.get(i.Val)); err != nil {
			return reg.Label{}, err
		}
		return i.Next, nil

	case rtl.IUnop:
		v := frame.get(i.Reg)
		switch i.Op.Kind {
		case rtl.MAddi:
			v += i.Op.Imm
		case rtl.MSetei:
			v = boolToInt(v == i.Op.Imm)
		case rtl.MSetnei:
			v = boolToInt(v != i.Op.Imm)
		case rtl.MNeg:
			v = -v
		}
		frame.put(i.Reg, v)
		return i.Next, nil

	case rtl.IBinop:
		frame.put(i.Dst, applyRTLBinop(i.Op, frame.get(i.Dst), frame.get(i.Src)))
		return i.Next, nil

	case rtl.IUBranch:
		v := frame.get(i.Reg)
		var taken bool
		switch i.Op.Kind {
		case rtl.MJz:
			taken = v == 0
		case rtl.MJnz:
			taken = v != 0
		case rtl.MJlei:
			taken = v <= i.Op.Imm
		case rtl.MJgi:
			taken = v > i.Op.Imm
		}
		if taken {
			return i.L1, nil
		}
		return i.L2, nil

	case rtl.IBBranch:
		r1, r2 := frame.get(i.R1), frame.get(i.R2)
		var taken bool
		switch i.Op {
		case rtl.MJl:
			taken = r1 < r2
		case rtl.MJle:
			taken = r1 <= r2
		}
		if taken {
			return i.L1, nil
		}
		return i.L2, nil

	case rtl.ICall:
		args := make([]int64, len(i.Args))
		for idx, a := range i.Args {
			args[idx] = frame.get(a)
		}
		result, err := callBuiltinOrUserRTL(funs, h, out, i.Name, args)
		if err != nil {
			return reg.Label{}, err
		}
		frame.put(i.Dst, result)
		return i.Next, nil

	case rtl.IGoto:
		return i.Next, nil
	}
	panic("unreachable RTL Instr")
}

// applyRTLBinop computes `dst = dst OP src`, matching the x86
// dest-on-the-left convention rtl_expr's default EBinop case builds
// (section 4.1: "dest_reg holds e1; reg_2 holds e2").
func applyRTLBinop(op rtl.Mbinop, dst, src int64) int64 {
	switch op {
	case rtl.MMov:
		return src
	case rtl.MAdd:
		return dst + src
	case rtl.MSub:
		return dst - src
	case rtl.MMul:
		return dst * src
	case rtl.MDiv:
		return dst / src
	case rtl.MSete:
		return boolToInt(dst == src)
	case rtl.MSetne:
		return boolToInt(dst != src)
	case rtl.MSetl:
		return boolToInt(dst < src)
	case rtl.MSetle:
		return boolToInt(dst <= src)
	case rtl.MSetg:
		return boolToInt(dst > src)
	case rtl.MSetge:
		return boolToInt(dst >= src)
	}
	panic("unreachable Mbinop")
}

func callBuiltinOrUserRTL(funs map[string]*rtl.Fun, h *heap, out *Stdout, name string, args []int64) (int64, error) {
	switch name {
	case "putchar":
		out.Putchar(args[0])
		return args[0], nil
	case "malloc":
		return h.alloc(int(args[0])), nil
	}
	fn, ok := funs[name]
	if !ok {
		return 0, fmt.Errorf("interp: function %s not found", name)
	}
	return callRTLFun(funs, h, out, fn, args)
}
