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
package rtl

import (
	"sort"

	"minicc/ast"
	"minicc/cerr"
	"minicc/reg"
)

// Build lowers a whole typed-AST file to RTL by backward construction: each
// helper is handed the label execution should reach once it's done, and
// returns the label execution should enter at.
func Build(file *ast.File) (*File, error) {
	out := &File{}
	// Functions are built in name order so fresh labels and registers are
	// numbered the same way on every run.
	names := make([]string, 0, len(file.Funs))
	for name := range file.Funs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		rfn, err := buildFun(file.Funs[name])
		if err != nil {
			return nil, err
		}
		out.Funs = append(out.Funs, rfn)
	}
	return out, nil
}

type builder struct {
	graph     *Graph
	locals    map[ast.BlockIdent]reg.PseudoReg
	resultReg reg.PseudoReg
	retLbl    reg.Label
}

func (b *builder) emit(l reg.Label, in Instr) {
	b.graph.Instrs[l] = in
}

func buildFun(fn *ast.Fun) (*Fun, error) {
	exit := reg.FreshLabel()
	locals := make(map[ast.BlockIdent]reg.PseudoReg)

	var args []reg.PseudoReg
	for _, formal := range fn.Signature.Args {
		r := reg.FreshPseudoReg()
		args = append(args, r)
		locals[formal.Name] = r
	}
	for _, local := range fn.Locals {
		if _, exists := locals[local.Name]; exists {
			return nil, cerr.DuplicateLocal(local.Name.String())
		}
		locals[local.Name] = reg.FreshPseudoReg()
	}

	b := &builder{
		graph:     newGraph(),
		locals:    locals,
		resultReg: reg.FreshPseudoReg(),
		retLbl:    exit,
	}

	entry, err := b.rtlBlock(exit, fn.Body)
	if err != nil {
		return nil, err
	}

	return &Fun{
		Name:   fn.Signature.Name,
		Result: b.resultReg,
		Args:   args,
		Locals: locals,
		Entry:  entry,
		Exit:   exit,
		Graph:  b.graph,
	}, nil
}

func (b *builder) rtlBlock(destLbl reg.Label, block *ast.Block) (reg.Label, error) {
	lbl := destLbl
	for i := len(block.Stmts) - 1; i >= 0; i-- {
		var err error
		lbl, err = b.rtlStmt(lbl, block.Stmts[i])
		if err != nil {
			return reg.Label{}, err
		}
	}
	return lbl, nil
}

func (b *builder) rtlStmt(destLbl reg.Label, stmt ast.Stmt) (reg.Label, error) {
	switch s := stmt.(type) {
	case ast.SSkip:
		return destLbl, nil
	case ast.SExpr:
		throwaway := reg.FreshPseudoReg()
		return b.rtlExpr(throwaway, destLbl, s.Expr)
	case ast.SIf:
		entryElse, err := b.rtlStmt(destLbl, s.Else)
		if err != nil {
			return reg.Label{}, err
		}
		entryThen, err := b.rtlStmt(destLbl, s.Then)
		if err != nil {
			return reg.Label{}, err
		}
		condReg := reg.FreshPseudoReg()
		branchLbl := reg.FreshLabel()
		b.emit(branchLbl, IUBranch{Op: MuBranch{Kind: MJnz}, Reg: condReg, L1: entryThen, L2: entryElse})
		return b.rtlExpr(condReg, branchLbl, s.Cond)
	case ast.SWhile:
		backJump := reg.FreshLabel()
		entryBody, err := b.rtlStmt(backJump, s.Body)
		if err != nil {
			return reg.Label{}, err
		}
		condReg := reg.FreshPseudoReg()
		branchLbl := reg.FreshLabel()
		b.emit(branchLbl, IUBranch{Op: MuBranch{Kind: MJz}, Reg: condReg, L1: destLbl, L2: entryBody})
		entryCond, err := b.rtlExpr(condReg, branchLbl, s.Cond)
		if err != nil {
			return reg.Label{}, err
		}
		b.emit(backJump, IGoto{Next: entryCond})
		return entryCond, nil
	case ast.SBlock:
		return b.rtlBlock(destLbl, s.Block)
	case ast.SReturn:
		return b.rtlExpr(b.resultReg, b.retLbl, s.Expr)
	}
	panic("unreachable Stmt")
}

func (b *builder) rtlExpr(destReg reg.PseudoReg, destLbl reg.Label, expr *ast.Expr) (reg.Label, error) {
	switch e := expr.Node.(type) {
	case ast.EConst:
		lbl := reg.FreshLabel()
		b.emit(lbl, IConst{Value: e.Value, Dst: destReg, Next: destLbl})
		return lbl, nil

	case ast.EAccessLocal:
		varReg, ok := b.locals[e.Ident]
		if !ok {
			return reg.Label{}, cerr.LocalNotFound(e.Ident.String())
		}
		lbl := reg.FreshLabel()
		b.emit(lbl, IBinop{Op: MMov, Src: varReg, Dst: destReg, Next: destLbl})
		return lbl, nil

	case ast.EAccessField:
		baseReg := reg.FreshPseudoReg()
		lbl := reg.FreshLabel()
		b.emit(lbl, ILoad{Addr: baseReg, Offset: e.Field.Offset(), Dst: destReg, Next: destLbl})
		return b.rtlExpr(baseReg, lbl, e.Base)

	case ast.EAssignLocal:
		varReg, ok := b.locals[e.Ident]
		if !ok {
			return reg.Label{}, cerr.LocalNotFound(e.Ident.String())
		}
		lbl := reg.FreshLabel()
		b.emit(lbl, IBinop{Op: MMov, Src: varReg, Dst: destReg, Next: destLbl})
		return b.rtlExpr(varReg, lbl, e.Value)

	case ast.EAssignField:
		// Value is lowered into destReg continuing into the chain that lowers
		// Base into baseReg, which continues into the store, so Value
		// executes first and Base second -- the same order evalASTExpr's
		// EAssignField case uses.
		baseReg := reg.FreshPseudoReg()
		storeLbl := reg.FreshLabel()
		b.emit(storeLbl, IStore{Val: destReg, Addr: baseReg, Offset: e.Field.Offset(), Next: destLbl})
		entryBase, err := b.rtlExpr(baseReg, storeLbl, e.Base)
		if err != nil {
			return reg.Label{}, err
		}
		return b.rtlExpr(destReg, entryBase, e.Value)

	case ast.EUnop:
		switch e.Op {
		case ast.UNot:
			lbl := reg.FreshLabel()
			b.emit(lbl, IUnop{Op: Munop{Kind: MSetei, Imm: 0}, Reg: destReg, Next: destLbl})
			return b.rtlExpr(destReg, lbl, e.Expr)
		case ast.UMinus:
			srcReg := reg.FreshPseudoReg()
			subLbl := reg.FreshLabel()
			b.emit(subLbl, IBinop{Op: MSub, Src: srcReg, Dst: destReg, Next: destLbl})
			zeroLbl := reg.FreshLabel()
			b.emit(zeroLbl, IConst{Value: 0, Dst: destReg, Next: subLbl})
			return b.rtlExpr(srcReg, zeroLbl, e.Expr)
		}
		panic("unreachable Unop")

	case ast.EBinop:
		if e.Op == ast.BAnd || e.Op == ast.BOr {
			return b.rtlShortCircuit(destReg, destLbl, e)
		}
		op, err := rtlBinop(e.Op)
		if err != nil {
			return reg.Label{}, err
		}
		reg2 := reg.FreshPseudoReg()
		lbl := reg.FreshLabel()
		b.emit(lbl, IBinop{Op: op, Src: reg2, Dst: destReg, Next: destLbl})
		entry2, err := b.rtlExpr(reg2, lbl, e.Right)
		if err != nil {
			return reg.Label{}, err
		}
		return b.rtlExpr(destReg, entry2, e.Left)

	case ast.ECall:
		evalLbl := reg.FreshLabel()
		argRegs := make([]reg.PseudoReg, len(e.Args))
		lbl := evalLbl
		for i := len(e.Args) - 1; i >= 0; i-- {
			argRegs[i] = reg.FreshPseudoReg()
			entry, err := b.rtlExpr(argRegs[i], lbl, e.Args[i].Expr)
			if err != nil {
				return reg.Label{}, err
			}
			lbl = entry
		}
		b.emit(evalLbl, ICall{Dst: destReg, Name: e.Signature.Name, Args: argRegs, Next: destLbl})
		return lbl, nil
	}
	panic("unreachable ExprNode")
}

// rtlShortCircuit lowers && and || directly to conditional jumps on the
// destination register, per the "do not attempt SSA" design note: evaluate
// the left operand, branch on it, evaluate the right operand only on the
// live path, and converge on a literal 0/1 write to destReg.
func (b *builder) rtlShortCircuit(destReg reg.PseudoReg, destLbl reg.Label, e ast.EBinop) (reg.Label, error) {
	setTrueLbl := reg.FreshLabel()
	b.emit(setTrueLbl, IConst{Value: 1, Dst: destReg, Next: destLbl})
	setFalseLbl := reg.FreshLabel()
	b.emit(setFalseLbl, IConst{Value: 0, Dst: destReg, Next: destLbl})

	rightReg := reg.FreshPseudoReg()
	leftReg := reg.FreshPseudoReg()

	testRightLbl := reg.FreshLabel()
	if e.Op == ast.BAnd {
		// zero right operand kills the chain to false, else true.
		b.emit(testRightLbl, IUBranch{Op: MuBranch{Kind: MJz}, Reg: rightReg, L1: setFalseLbl, L2: setTrueLbl})
	} else {
		// nonzero right operand short-circuits to true, else false.
		b.emit(testRightLbl, IUBranch{Op: MuBranch{Kind: MJnz}, Reg: rightReg, L1: setTrueLbl, L2: setFalseLbl})
	}
	entryRight, err := b.rtlExpr(rightReg, testRightLbl, e.Right)
	if err != nil {
		return reg.Label{}, err
	}

	testLeftLbl := reg.FreshLabel()
	if e.Op == ast.BAnd {
		b.emit(testLeftLbl, IUBranch{Op: MuBranch{Kind: MJz}, Reg: leftReg, L1: setFalseLbl, L2: entryRight})
	} else {
		b.emit(testLeftLbl, IUBranch{Op: MuBranch{Kind: MJnz}, Reg: leftReg, L1: setTrueLbl, L2: entryRight})
	}
	return b.rtlExpr(leftReg, testLeftLbl, e.Left)
}

func rtlBinop(op ast.Binop) (Mbinop, error) {
	switch op {
	case ast.BAdd:
		return MAdd, nil
	case ast.BSub:
		return MSub, nil
	case ast.BMul:
		return MMul, nil
	case ast.BDiv:
		return MDiv, nil
	case ast.BEq:
		return MSete, nil
	case ast.BNeq:
		return MSetne, nil
	case ast.BLt:
		return MSetl, nil
	case ast.BLe:
		return MSetle, nil
	case ast.BGt:
		return MSetg, nil
	case ast.BGe:
		return MSetge, nil
	}
	panic("unreachable Binop: && and || are handled by rtlShortCircuit")
}
