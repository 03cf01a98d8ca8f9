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

// Package testprog hand-builds typed-AST fixtures for the canonical
// scenarios the pipeline is exercised against. Parsing and typing are out
// of scope for this module, so these stand in for what a parser+typer
// would otherwise hand the RTL builder.
package testprog

import "minicc/ast"

func local(idx uint8, name string, t *ast.Type) *ast.Formal {
	return &ast.Formal{Name: ast.BlockIdent{Kind: ast.IdentLocal, Index: idx, Name: name}, Type: t}
}

func arg(idx uint8, name string, t *ast.Type) *ast.Formal {
	return &ast.Formal{Name: ast.BlockIdent{Kind: ast.IdentArg, Index: idx, Name: name}, Type: t}
}

func e(n ast.ExprNode, t *ast.Type) *ast.Expr { return &ast.Expr{Node: n, Type: t} }

func constE(v int64) *ast.Expr { return e(ast.EConst{Value: v}, ast.TInt) }

func localE(f *ast.Formal) *ast.Expr { return e(ast.EAccessLocal{Ident: f.Name}, f.Type) }

func assignE(f *ast.Formal, v *ast.Expr) *ast.Expr {
	return e(ast.EAssignLocal{Ident: f.Name, Value: v}, f.Type)
}

func binE(op ast.Binop, l, r *ast.Expr) *ast.Expr { return e(ast.EBinop{Op: op, Left: l, Right: r}, ast.TInt) }

func callE(sig *ast.Signature, args ...*ast.Expr) *ast.Expr {
	argExprs := make([]*ast.ArgExpr, len(args))
	for i, a := range args {
		argExprs[i] = &ast.ArgExpr{Formal: sig.Args[i], Expr: a}
	}
	return e(ast.ECall{Signature: sig, Args: argExprs}, sig.Type)
}

func exprS(ex *ast.Expr) ast.Stmt  { return ast.SExpr{Expr: ex} }
func returnS(ex *ast.Expr) ast.Stmt { return ast.SReturn{Expr: ex} }
func blockS(stmts ...ast.Stmt) ast.Stmt { return ast.SBlock{Block: &ast.Block{Stmts: stmts}} }

func ifS(cond *ast.Expr, then, els ast.Stmt) ast.Stmt {
	if els == nil {
		els = ast.SSkip{}
	}
	return ast.SIf{Cond: cond, Then: then, Else: els}
}

func whileS(cond *ast.Expr, body ast.Stmt) ast.Stmt {
	return ast.SWhile{Cond: cond, Body: body}
}

func fileOf(funs ...*ast.Fun) *ast.File {
	f := &ast.File{Funs: make(map[string]*ast.Fun)}
	for _, fn := range funs {
		f.Funs[fn.Signature.Name] = fn
	}
	return f
}

// Programs indexes every canonical scenario by the name cmd/minicc accepts
// on its positional argument when it doesn't look like a path to a .json
// fixture.
var Programs = map[string]func() *ast.File{
	"putchar1":       PutChar1,
	"fact_rec":       FactRec,
	"and1":           And1,
	"field4":         Field4,
	"while2":         While2,
	"spilled1":       Spilled1,
	"field_sideeffs": FieldAssignSideEffects,
}

// PutChar1: the smallest possible program exercising a call to an
// intrinsic. main() { putchar(65); return 0; }
func PutChar1() *ast.File {
	putchar := ast.SignaturePutchar()
	main := &ast.Fun{
		Signature: ast.SignatureMain(),
		Body: &ast.Block{Stmts: []ast.Stmt{
			exprS(callE(putchar, constE(65))),
			returnS(constE(0)),
		}},
	}
	return fileOf(main)
}

// FactRec: recursion and the full call/return path.
//
//	int fact(int n) { if (n <= 1) return 1; return n * fact(n - 1); }
//	int main() { putchar(fact(5)); return 0; }
func FactRec() *ast.File {
	n := arg(0, "n", ast.TInt)
	factSig := &ast.Signature{Name: "fact", Type: ast.TInt, Args: []*ast.Formal{n}}

	body := &ast.Block{Stmts: []ast.Stmt{
		ifS(binE(ast.BLe, localE(n), constE(1)), returnS(constE(1)), nil),
		returnS(binE(ast.BMul, localE(n), callE(factSig, binE(ast.BSub, localE(n), constE(1))))),
	}}
	fact := &ast.Fun{Signature: factSig, Body: body}

	putchar := ast.SignaturePutchar()
	main := &ast.Fun{
		Signature: ast.SignatureMain(),
		Body: &ast.Block{Stmts: []ast.Stmt{
			exprS(callE(putchar, callE(factSig, constE(5)))),
			returnS(constE(0)),
		}},
	}
	return fileOf(fact, main)
}

// And1: short-circuit boolean operators.
//
//	int main() {
//	  int a; int b;
//	  a = 1; b = 0;
//	  putchar(48 + (a && b));
//	  return 0;
//	}
func And1() *ast.File {
	a := local(0, "a", ast.TInt)
	b := local(1, "b", ast.TInt)
	putchar := ast.SignaturePutchar()

	main := &ast.Fun{
		Signature: ast.SignatureMain(),
		Locals:    []*ast.Formal{a, b},
		Body: &ast.Block{Stmts: []ast.Stmt{
			exprS(assignE(a, constE(1))),
			exprS(assignE(b, constE(0))),
			exprS(callE(putchar, binE(ast.BAdd, constE(48), binE(ast.BAnd, localE(a), localE(b))))),
			returnS(constE(0)),
		}},
	}
	return fileOf(main)
}

// Field4: a four-field struct allocated with malloc and accessed through
// its pointer.
//
//	struct quad { w, x, y, z: int }
//	int main() {
//	  struct quad *p = malloc(32);
//	  p->w = 1; p->x = 2; p->y = 3; p->z = 4;
//	  putchar(48 + p->w + p->x + p->y + p->z);
//	  return 0;
//	}
func Field4() *ast.File {
	s := &ast.Struct{Name: "quad", Fields: []*ast.Field{
		{Name: "w", Index: 0, Type: ast.TInt},
		{Name: "x", Index: 1, Type: ast.TInt},
		{Name: "y", Index: 2, Type: ast.TInt},
		{Name: "z", Index: 3, Type: ast.TInt},
	}}
	structT := ast.TStruct(s)
	p := local(0, "p", structT)

	malloc := ast.SignatureMalloc()
	putchar := ast.SignaturePutchar()

	pE := localE(p)
	field := func(name string) *ast.Expr {
		return e(ast.EAccessField{Base: pE, Field: s.Field(name)}, ast.TInt)
	}
	setField := func(name string, v *ast.Expr) *ast.Expr {
		return e(ast.EAssignField{Base: pE, Field: s.Field(name), Value: v}, ast.TInt)
	}

	mallocCall := e(ast.ECall{
		Signature: malloc,
		Args:      []*ast.ArgExpr{{Formal: malloc.Args[0], Expr: constE(int64(s.Size()))}},
	}, structT)

	sum := binE(ast.BAdd, binE(ast.BAdd, field("w"), field("x")), binE(ast.BAdd, field("y"), field("z")))

	main := &ast.Fun{
		Signature: ast.SignatureMain(),
		Locals:    []*ast.Formal{p},
		Body: &ast.Block{Stmts: []ast.Stmt{
			exprS(assignE(p, mallocCall)),
			exprS(setField("w", constE(1))),
			exprS(setField("x", constE(2))),
			exprS(setField("y", constE(3))),
			exprS(setField("z", constE(4))),
			exprS(callE(putchar, binE(ast.BAdd, constE(48), sum))),
			returnS(constE(0)),
		}},
	}
	return fileOf(main)
}

// While2: two nested while loops, enough control flow to exercise the
// linearizer's fallthrough/backward-edge handling twice over.
//
//	int main() {
//	  int i; int j; int total;
//	  i = 0; total = 0;
//	  while (i < 3) {
//	    j = 0;
//	    while (j < 3) { total = total + 1; j = j + 1; }
//	    i = i + 1;
//	  }
//	  putchar(48 + total);
//	  return 0;
//	}
func While2() *ast.File {
	i := local(0, "i", ast.TInt)
	j := local(1, "j", ast.TInt)
	total := local(2, "total", ast.TInt)
	putchar := ast.SignaturePutchar()

	innerWhile := whileS(binE(ast.BLt, localE(j), constE(3)), blockS(
		exprS(assignE(total, binE(ast.BAdd, localE(total), constE(1)))),
		exprS(assignE(j, binE(ast.BAdd, localE(j), constE(1)))),
	))

	outerWhile := whileS(binE(ast.BLt, localE(i), constE(3)), blockS(
		exprS(assignE(j, constE(0))),
		innerWhile,
		exprS(assignE(i, binE(ast.BAdd, localE(i), constE(1)))),
	))

	main := &ast.Fun{
		Signature: ast.SignatureMain(),
		Locals:    []*ast.Formal{i, j, total},
		Body: &ast.Block{Stmts: []ast.Stmt{
			exprS(assignE(i, constE(0))),
			exprS(assignE(total, constE(0))),
			outerWhile,
			exprS(callE(putchar, binE(ast.BAdd, constE(48), localE(total)))),
			returnS(constE(0)),
		}},
	}
	return fileOf(main)
}

// FieldAssignSideEffects: a field assignment `e->f = v` whose base and
// value sub-expressions both print a marker byte, so the order the two
// interpreters (and the RTL path) evaluate them in is externally
// observable rather than just an internal detail.
//
//	struct cell { v: int }
//	struct cell *mark_base() { putchar('B'); return malloc(8); }
//	int mark_value() { putchar('V'); return 7; }
//	int main() { mark_base()->v = mark_value(); return 0; }
func FieldAssignSideEffects() *ast.File {
	s := &ast.Struct{Name: "cell", Fields: []*ast.Field{
		{Name: "v", Index: 0, Type: ast.TInt},
	}}
	structT := ast.TStruct(s)

	putchar := ast.SignaturePutchar()
	malloc := ast.SignatureMalloc()

	markBaseSig := &ast.Signature{Name: "mark_base", Type: structT}
	mallocCall := e(ast.ECall{
		Signature: malloc,
		Args:      []*ast.ArgExpr{{Formal: malloc.Args[0], Expr: constE(int64(s.Size()))}},
	}, structT)
	markBase := &ast.Fun{
		Signature: markBaseSig,
		Body: &ast.Block{Stmts: []ast.Stmt{
			exprS(callE(putchar, constE(int64('B')))),
			returnS(mallocCall),
		}},
	}

	markValueSig := &ast.Signature{Name: "mark_value", Type: ast.TInt}
	markValue := &ast.Fun{
		Signature: markValueSig,
		Body: &ast.Block{Stmts: []ast.Stmt{
			exprS(callE(putchar, constE(int64('V')))),
			returnS(constE(7)),
		}},
	}

	assign := e(ast.EAssignField{
		Base:  callE(markBaseSig),
		Field: s.Field("v"),
		Value: callE(markValueSig),
	}, ast.TInt)

	main := &ast.Fun{
		Signature: ast.SignatureMain(),
		Body: &ast.Block{Stmts: []ast.Stmt{
			exprS(assign),
			returnS(constE(0)),
		}},
	}
	return fileOf(markBase, markValue, main)
}

// Spilled1: a 13-argument helper, one more than the coloring allocator's 12
// allocatable registers, so the call site's argument evaluation forces at
// least one of them onto a frame slot no matter how coloring orders it.
//
//	int sum13(int a..int m) { return a+b+c+d+e+f+g+h+i+j+k+l+m; }
//	int main() { putchar(sum13(1,2,3,4,5,6,7,8,9,10,11,12,13)); return 0; }
func Spilled1() *ast.File {
	const n = 13
	names := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l", "m"}
	formals := make([]*ast.Formal, n)
	for idx, name := range names {
		formals[idx] = arg(uint8(idx), name, ast.TInt)
	}
	sig := &ast.Signature{Name: "sum13", Type: ast.TInt, Args: formals}

	var sum *ast.Expr
	for _, f := range formals {
		if sum == nil {
			sum = localE(f)
			continue
		}
		sum = binE(ast.BAdd, sum, localE(f))
	}
	sum13 := &ast.Fun{Signature: sig, Body: &ast.Block{Stmts: []ast.Stmt{returnS(sum)}}}

	args := make([]*ast.Expr, n)
	for idx := range args {
		args[idx] = constE(int64(idx + 1))
	}
	putchar := ast.SignaturePutchar()
	main := &ast.Fun{
		Signature: ast.SignatureMain(),
		Body: &ast.Block{Stmts: []ast.Stmt{
			exprS(callE(putchar, callE(sig, args...))),
			returnS(constE(0)),
		}},
	}
	return fileOf(sum13, main)
}
