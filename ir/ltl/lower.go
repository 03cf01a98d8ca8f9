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
package ltl

import (
	"minicc/cerr"
	"minicc/coloring"
	"minicc/ir/ertl"
	"minicc/ir/rtl"
	"minicc/reg"
)

// Build lowers a whole ERTL file to LTL, given each function's coloring
// result (keyed by function name, since coloring runs per function on top
// of that function's own liveness/interference graphs).
func Build(file *ertl.File, colors map[string]*coloring.Result) (*File, error) {
	out := &File{}
	for _, fn := range file.Funs {
		res, ok := colors[fn.Name]
		if !ok {
			return nil, cerr.MissingColor(nameStringer(fn.Name))
		}
		lfn, err := buildFun(fn, res)
		if err != nil {
			return nil, err
		}
		out.Funs = append(out.Funs, lfn)
	}
	return out, nil
}

type nameStringer string

func (n nameStringer) String() string { return string(n) }

type builder struct {
	g      *Graph
	colors *coloring.Result
}

func buildFun(fn *ertl.Fun, res *coloring.Result) (*Fun, error) {
	b := &builder{g: NewGraph(), colors: res}
	// Label order, not map order: lowering allocates fresh interior labels.
	for _, l := range ertl.SortedLabels(fn.Graph) {
		if err := b.lower(l, fn.Graph.Instrs[l]); err != nil {
			return nil, err
		}
	}
	return &Fun{
		Name:         fn.Name,
		Entry:        fn.Entry,
		Exit:         fn.Exit,
		Graph:        b.g,
		CountOnStack: res.CountOnStack,
	}, nil
}

func (b *builder) color(r reg.Register) (reg.Operand, error) {
	if r.IsPhysical {
		return reg.OperandPhys(r.Phys), nil
	}
	op, ok := b.colors.Colors[r.Pseudo]
	if !ok {
		return reg.Operand{}, cerr.MissingColor(r.Pseudo)
	}
	return op, nil
}

func (b *builder) emit(l reg.Label, in Instr) {
	b.g.Instrs[l] = in
}

func rbp() reg.Operand { return reg.OperandPhys(reg.Rbp) }
func rsp() reg.Operand { return reg.OperandPhys(reg.Rsp) }

func (b *builder) lower(l reg.Label, in ertl.Instr) error {
	switch i := in.(type) {
	case ertl.IConst:
		dst, err := b.color(i.Dst)
		if err != nil {
			return err
		}
		b.emit(l, IConst{Value: i.Value, Dst: dst, Next: i.Next})

	case ertl.ILoad:
		return b.lowerLoad(l, i)

	case ertl.IStore:
		return b.lowerStore(l, i)

	case ertl.IUnop:
		operand, err := b.color(i.Reg)
		if err != nil {
			return err
		}
		b.emit(l, IUnop{Op: i.Op, Operand: operand, Next: i.Next})

	case ertl.IBinop:
		return b.lowerBinop(l, i)

	case ertl.IUBranch:
		operand, err := b.color(i.Reg)
		if err != nil {
			return err
		}
		b.emit(l, IUBranch{Op: i.Op, Operand: operand, L1: i.L1, L2: i.L2})

	case ertl.IBBranch:
		r1, err := b.color(i.R1)
		if err != nil {
			return err
		}
		r2, err := b.color(i.R2)
		if err != nil {
			return err
		}
		b.emit(l, IBBranch{Op: i.Op, R1: r1, R2: r2, L1: i.L1, L2: i.L2})

	case ertl.ICall:
		b.emit(l, ICall{Name: i.Name, Next: i.Next})

	case ertl.IGoto:
		b.emit(l, IGoto{Next: i.Next})

	case ertl.IAllocFrame:
		b.lowerAllocFrame(l, i)

	case ertl.IDeleteFrame:
		b.lowerDeleteFrame(l, i)

	case ertl.IGetParam:
		return b.lowerGetParam(l, i)

	case ertl.IPushParam:
		operand, err := b.color(i.Reg)
		if err != nil {
			return err
		}
		b.emit(l, IPush{Operand: operand, Next: i.Next})

	case ertl.IReturn:
		b.emit(l, IReturn{})

	default:
		panic("unreachable ERTL Instr")
	}
	return nil
}

// lowerLoad realizes `Load(addr, off) -> dest`: the final Load instruction
// always carries physical address/destination registers, so a spilled
// addr is staged through TMP_1 and a spilled dest is staged through TMP_2
// plus a trailing store-back, per section 4.6.
func (b *builder) lowerLoad(l reg.Label, i ertl.ILoad) error {
	addr, err := b.color(i.Addr)
	if err != nil {
		return err
	}
	dst, err := b.color(i.Dst)
	if err != nil {
		return err
	}

	next := i.Next
	dstPhys := dst.Phys
	if dst.Spilled {
		storeBack := reg.FreshLabel()
		b.emit(storeBack, IBinop{Op: MMov, Src: reg.OperandPhys(reg.TMP_2), Dst: dst, Next: next})
		next = storeBack
		dstPhys = reg.TMP_2
	}

	if !addr.Spilled {
		b.emit(l, ILoad{Addr: addr.Phys, Offset: i.Offset, Dst: dstPhys, Next: next})
		return nil
	}

	loadLbl := reg.FreshLabel()
	b.emit(loadLbl, ILoad{Addr: reg.TMP_1, Offset: i.Offset, Dst: dstPhys, Next: next})
	b.emit(l, IBinop{Op: MMov, Src: addr, Dst: reg.OperandPhys(reg.TMP_1), Next: loadLbl})
	return nil
}

// lowerStore is the symmetric case: TMP_1 stages a spilled address, TMP_2
// stages a spilled value.
func (b *builder) lowerStore(l reg.Label, i ertl.IStore) error {
	val, err := b.color(i.Val)
	if err != nil {
		return err
	}
	addr, err := b.color(i.Addr)
	if err != nil {
		return err
	}

	valReg := reg.TMP_2
	next := i.Next
	cur := l

	if !val.Spilled {
		valReg = val.Phys
	}

	if !addr.Spilled {
		storeLbl := cur
		if val.Spilled {
			storeLbl = reg.FreshLabel()
			b.emit(cur, IBinop{Op: MMov, Src: val, Dst: reg.OperandPhys(reg.TMP_2), Next: storeLbl})
		}
		b.emit(storeLbl, IStore{Val: valReg, Addr: addr.Phys, Offset: i.Offset, Next: next})
		return nil
	}

	storeLbl := reg.FreshLabel()
	b.emit(storeLbl, IStore{Val: valReg, Addr: reg.TMP_1, Offset: i.Offset, Next: next})

	movAddrLbl := storeLbl
	if val.Spilled {
		movAddrLbl = reg.FreshLabel()
	}
	b.emit(cur, IBinop{Op: MMov, Src: addr, Dst: reg.OperandPhys(reg.TMP_1), Next: movAddrLbl})
	if val.Spilled {
		b.emit(movAddrLbl, IBinop{Op: MMov, Src: val, Dst: reg.OperandPhys(reg.TMP_2), Next: storeLbl})
	}
	return nil
}

func (b *builder) lowerBinop(l reg.Label, i ertl.IBinop) error {
	src, err := b.color(i.Src)
	if err != nil {
		return err
	}
	dst, err := b.color(i.Dst)
	if err != nil {
		return err
	}
	if i.Op == MMov && src.Equal(dst) {
		b.emit(l, IGoto{Next: i.Next})
		return nil
	}
	b.emit(l, IBinop{Op: i.Op, Src: src, Dst: dst, Next: i.Next})
	return nil
}

// lowerAllocFrame elaborates the frame-setup marker into its concrete
// instruction sequence (section 4.6): a degenerate Goto when this function
// spills nothing, else push %rbp; mov %rsp,%rbp; addi -8*count, %rsp.
func (b *builder) lowerAllocFrame(l reg.Label, i ertl.IAllocFrame) {
	if b.colors.CountOnStack == 0 {
		b.emit(l, IGoto{Next: i.Next})
		return
	}
	subLbl := reg.FreshLabel()
	b.emit(subLbl, IUnop{Op: rtl.Munop{Kind: rtl.MAddi, Imm: int64(-8 * b.colors.CountOnStack)}, Operand: rsp(), Next: i.Next})
	movLbl := reg.FreshLabel()
	b.emit(movLbl, IBinop{Op: MMov, Src: rsp(), Dst: rbp(), Next: subLbl})
	b.emit(l, IPush{Operand: rbp(), Next: movLbl})
}

// lowerDeleteFrame is the symmetric teardown: mov %rbp,%rsp; pop %rbp; or
// a degenerate Goto.
func (b *builder) lowerDeleteFrame(l reg.Label, i ertl.IDeleteFrame) {
	if b.colors.CountOnStack == 0 {
		b.emit(l, IGoto{Next: i.Next})
		return
	}
	popLbl := reg.FreshLabel()
	b.emit(popLbl, IPop{Operand: rbp(), Next: i.Next})
	b.emit(l, IBinop{Op: MMov, Src: rbp(), Dst: rsp(), Next: popLbl})
}

// lowerGetParam elaborates GetParam(i) into a Load from [%rbp + 16 +
// 8*(index-6)], per section 9's resolved offset formula.
func (b *builder) lowerGetParam(l reg.Label, i ertl.IGetParam) error {
	dst, err := b.color(i.Dst)
	if err != nil {
		return err
	}
	offset := 16 + 8*(i.Index-6)

	if !dst.Spilled {
		b.emit(l, ILoad{Addr: reg.Rbp, Offset: offset, Dst: dst.Phys, Next: i.Next})
		return nil
	}

	storeLbl := reg.FreshLabel()
	b.emit(storeLbl, IBinop{Op: MMov, Src: reg.OperandPhys(reg.TMP_1), Dst: dst, Next: i.Next})
	b.emit(l, ILoad{Addr: reg.Rbp, Offset: offset, Dst: reg.TMP_1, Next: storeLbl})
	return nil
}
