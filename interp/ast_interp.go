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

	"minicc/ast"
)

// RunAST interprets file's main function directly over the typed AST (no
// lowering at all), the baseline P1 compares the pipeline's output
// against. Every function call gets its own fresh locals map -- unlike
// original_source's rtl interpreter, whose shared-register-map recursion
// model only happens to work because a real call stack discipline is
// layered on top at ERTL -- so this interpreter (and the RTL one below)
// isolate each activation's storage themselves.
func RunAST(file *ast.File) (*Stdout, error) {
	main, ok := file.Funs["main"]
	if !ok {
		return nil, fmt.Errorf("interp: no main function")
	}
	out := NewStdout()
	h := newHeap()
	_, err := callASTFun(file, h, out, main, nil)
	return out, err
}

type astFrame struct {
	locals map[ast.BlockIdent]int64
}

func callASTFun(file *ast.File, h *heap, out *Stdout, fn *ast.Fun, args []int64) (int64, error) {
	frame := &astFrame{locals: make(map[ast.BlockIdent]int64)}
	for i, formal := range fn.Signature.Args {
		frame.locals[formal.Name] = args[i]
	}
	ret, returned, err := execASTBlock(file, h, out, frame, fn.Body)
	if err != nil {
		return 0, err
	}
	if !returned {
		return 0, nil
	}
	return ret, nil
}

// execASTBlock runs stmts in order, short-circuiting on the first
// `return`. It reports whether a return was actually hit so nested
// if/while can propagate "no return yet" up to their caller.
func execASTBlock(file *ast.File, h *heap, out *Stdout, frame *astFrame, block *ast.Block) (int64, bool, error) {
	for _, stmt := range block.Stmts {
		val, returned, err := execASTStmt(file, h, out, frame, stmt)
		if err != nil || returned {
			return val, returned, err
		}
	}
	return 0, false, nil
}

func execASTStmt(file *ast.File, h *heap, out *Stdout, frame *astFrame, stmt ast.Stmt) (int64, bool, error) {
	switch s := stmt.(type) {
	case ast.SSkip:
		return 0, false, nil

	case ast.SExpr:
		_, err := evalASTExpr(file, h, out, frame, s.Expr)
		return 0, false, err

	case ast.SIf:
		cond, err := evalASTExpr(file, h, out, frame, s.Cond)
		if err != nil {
			return 0, false, err
		}
		if cond != 0 {
			return execASTStmt(file, h, out, frame, s.Then)
		}
		return execASTStmt(file, h, out, frame, s.Else)

	case ast.SWhile:
		for {
			cond, err := evalASTExpr(file, h, out, frame, s.Cond)
			if err != nil {
				return 0, false, err
			}
			if cond == 0 {
				return 0, false, nil
			}
			val, returned, err := execASTStmt(file, h, out, frame, s.Body)
			if err != nil || returned {
				return val, returned, err
			}
		}

	case ast.SBlock:
		return execASTBlock(file, h, out, frame, s.Block)

	case ast.SReturn:
		val, err := evalASTExpr(file, h, out, frame, s.Expr)
		return val, true, err
	}
	panic("unreachable Stmt")
}

// evalASTExpr evaluates in the same left-to-right, "evaluate assigned
// value before the base pointer" order the RTL builder's rtl_expr uses
// (section 4.1), so P1's two sides observe side effects in the same
// sequence even though this interpreter never builds RTL at all.
func evalASTExpr(file *ast.File, h *heap, out *Stdout, frame *astFrame, expr *ast.Expr) (int64, error) {
	switch e := expr.Node.(type) {
	case ast.EConst:
		return e.Value, nil

	case ast.EAccessLocal:
		return frame.locals[e.Ident], nil

	case ast.EAccessField:
		base, err := evalASTExpr(file, h, out, frame, e.Base)
		if err != nil {
			return 0, err
		}
		return h.load(base, e.Field.Offset())

	case ast.EAssignLocal:
		val, err := evalASTExpr(file, h, out, frame, e.Value)
		if err != nil {
			return 0, err
		}
		frame.locals[e.Ident] = val
		return val, nil

	case ast.EAssignField:
		val, err := evalASTExpr(file, h, out, frame, e.Value)
		if err != nil {
			return 0, err
		}
		base, err := evalASTExpr(file, h, out, frame, e.Base)
		if err != nil {
			return 0, err
		}
		if err := h.store(base, e.Field.Offset(), val); err != nil {
			return 0, err
		}
		return val, nil

	case ast.EUnop:
		v, err := evalASTExpr(file, h, out, frame, e.Expr)
		if err != nil {
			return 0, err
		}
		switch e.Op {
		case ast.UNot:
			return boolToInt(v == 0), nil
		case ast.UMinus:
			return -v, nil
		}
		panic("unreachable Unop")

	case ast.EBinop:
		if e.Op == ast.BAnd || e.Op == ast.BOr {
			return evalASTShortCircuit(file, h, out, frame, e)
		}
		l, err := evalASTExpr(file, h, out, frame, e.Left)
		if err != nil {
			return 0, err
		}
		r, err := evalASTExpr(file, h, out, frame, e.Right)
		if err != nil {
			return 0, err
		}
		return applyASTBinop(e.Op, l, r), nil

	case ast.ECall:
		args := make([]int64, len(e.Args))
		for i, a := range e.Args {
			v, err := evalASTExpr(file, h, out, frame, a.Expr)
			if err != nil {
				return 0, err
			}
			args[i] = v
		}
		return callBuiltinOrUserAST(file, h, out, e.Signature.Name, args)
	}
	panic("unreachable ExprNode")
}

// evalASTShortCircuit mirrors rtl_expr's three-branch lowering for &&/||:
// evaluate the left operand; for && a zero left short-circuits to 0
// without evaluating right, a nonzero left evaluates right and the result
// is right's boolean value (not right's raw value). Symmetric for ||.
func evalASTShortCircuit(file *ast.File, h *heap, out *Stdout, frame *astFrame, e ast.EBinop) (int64, error) {
	l, err := evalASTExpr(file, h, out, frame, e.Left)
	if err != nil {
		return 0, err
	}
	if e.Op == ast.BAnd {
		if l == 0 {
			return 0, nil
		}
		r, err := evalASTExpr(file, h, out, frame, e.Right)
		if err != nil {
			return 0, err
		}
		return boolToInt(r != 0), nil
	}
	// BOr
	if l != 0 {
		return 1, nil
	}
	r, err := evalASTExpr(file, h, out, frame, e.Right)
	if err != nil {
		return 0, err
	}
	return boolToInt(r != 0), nil
}

func applyASTBinop(op ast.Binop, l, r int64) int64 {
	switch op {
	case ast.BAdd:
		return l + r
	case ast.BSub:
		return l - r
	case ast.BMul:
		return l * r
	case ast.BDiv:
		return l / r
	case ast.BEq:
		return boolToInt(l == r)
	case ast.BNeq:
		return boolToInt(l != r)
	case ast.BLt:
		return boolToInt(l < r)
	case ast.BLe:
		return boolToInt(l <= r)
	case ast.BGt:
		return boolToInt(l > r)
	case ast.BGe:
		return boolToInt(l >= r)
	}
	panic("unreachable Binop")
}

func callBuiltinOrUserAST(file *ast.File, h *heap, out *Stdout, name string, args []int64) (int64, error) {
	switch name {
	case "putchar":
		out.Putchar(args[0])
		return args[0], nil
	case "malloc":
		return h.alloc(int(args[0])), nil
	}
	fn, ok := file.Funs[name]
	if !ok {
		return 0, fmt.Errorf("interp: function %s not found", name)
	}
	return callASTFun(file, h, out, fn, args)
}
