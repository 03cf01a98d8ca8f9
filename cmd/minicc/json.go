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
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"minicc/ast"
)

// The JSON fixture format is a flat, hand-authorable stand-in for a real
// parser's output: ast.Stmt and ast.ExprNode are Go interfaces, so every
// node in the wire format carries a "kind" discriminator this decoder
// switches on instead of relying on encoding/json's (interface-blind)
// default unmarshaling.

type jsonFile struct {
	Structs map[string]*jsonStruct `json:"structs"`
	Funs    map[string]*jsonFun    `json:"funs"`
}

type jsonStruct struct {
	Name   string       `json:"name"`
	Fields []jsonField  `json:"fields"`
}

type jsonField struct {
	Name  string   `json:"name"`
	Index uint8    `json:"index"`
	Type  jsonType `json:"type"`
}

type jsonType struct {
	Kind   string `json:"kind"` // "int", "voidstar", "null", "struct"
	Struct string `json:"struct,omitempty"`
}

type jsonIdent struct {
	Kind  string `json:"kind"` // "arg" or "local"
	Index uint8  `json:"index"`
	Name  string `json:"name"`
}

type jsonFormal struct {
	Name jsonIdent `json:"name"`
	Type jsonType  `json:"type"`
}

type jsonSignature struct {
	Name string       `json:"name"`
	Type jsonType     `json:"type"`
	Args []jsonFormal `json:"args"`
}

type jsonFun struct {
	Signature jsonSignature `json:"signature"`
	Locals    []jsonFormal  `json:"locals"`
	Body      jsonBlock     `json:"body"`
}

type jsonBlock struct {
	Stmts []jsonStmt `json:"stmts"`
}

type jsonStmt struct {
	Stmt string          `json:"stmt"` // skip, expr, if, while, block, return
	Expr *jsonExpr       `json:"expr,omitempty"`
	Cond *jsonExpr       `json:"cond,omitempty"`
	Then *jsonStmt       `json:"then,omitempty"`
	Else *jsonStmt       `json:"else,omitempty"`
	Body *jsonStmt       `json:"body,omitempty"`
	Block *jsonBlock     `json:"block,omitempty"`
}

type jsonExpr struct {
	Node  string      `json:"node"` // const, local, field, assignlocal, assignfield, unop, binop, call
	Type  jsonType    `json:"type,omitempty"`
	Value int64       `json:"value,omitempty"`
	Ident jsonIdent   `json:"ident,omitempty"`
	Base  *jsonExpr   `json:"base,omitempty"`
	Field string      `json:"field,omitempty"`
	Value_ *jsonExpr  `json:"assignvalue,omitempty"`
	Op    string      `json:"op,omitempty"`
	Left  *jsonExpr   `json:"left,omitempty"`
	Right *jsonExpr   `json:"right,omitempty"`
	Call  string      `json:"call,omitempty"` // callee signature name: main/putchar/malloc/user function
	Args  []*jsonExpr `json:"args,omitempty"`
}

// decoder carries the struct/signature registries a fixture's nodes refer
// to by name, so every reference to the same struct or function resolves
// to the same shared *ast.Struct / *ast.Signature the rest of the pipeline
// expects (see ast.Struct and ast.Signature's doc comments).
type decoder struct {
	structs map[string]*ast.Struct
	sigs    map[string]*ast.Signature
}

func loadJSONFixture(path string) (*ast.File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fixture: %w", err)
	}
	var jf jsonFile
	if err := json.Unmarshal(raw, &jf); err != nil {
		return nil, fmt.Errorf("parsing fixture %s: %w", path, err)
	}

	d := &decoder{
		structs: make(map[string]*ast.Struct),
		sigs: map[string]*ast.Signature{
			"putchar": ast.SignaturePutchar(),
			"malloc":  ast.SignatureMalloc(),
		},
	}
	for name, js := range jf.Structs {
		d.structs[name] = &ast.Struct{Name: js.Name}
	}
	for name, js := range jf.Structs {
		s := d.structs[name]
		for _, jfld := range js.Fields {
			s.Fields = append(s.Fields, &ast.Field{Name: jfld.Name, Index: jfld.Index, Type: d.decodeType(jfld.Type)})
		}
	}
	for name, jfn := range jf.Funs {
		d.sigs[name] = d.decodeSignature(jfn.Signature)
	}

	out := &ast.File{Funs: make(map[string]*ast.Fun)}
	for name, jfn := range jf.Funs {
		fn, err := d.decodeFun(jfn)
		if err != nil {
			return nil, err
		}
		out.Funs[name] = fn
	}
	return out, nil
}

func (d *decoder) decodeType(jt jsonType) *ast.Type {
	switch jt.Kind {
	case "voidstar":
		return ast.TVoidStar
	case "null":
		return ast.TNull
	case "struct":
		return ast.TStruct(d.structs[jt.Struct])
	default:
		return ast.TInt
	}
}

func (d *decoder) decodeIdent(ji jsonIdent) ast.BlockIdent {
	kind := ast.IdentLocal
	if ji.Kind == "arg" {
		kind = ast.IdentArg
	}
	return ast.BlockIdent{Kind: kind, Index: ji.Index, Name: ji.Name}
}

func (d *decoder) decodeFormal(jf jsonFormal) *ast.Formal {
	return &ast.Formal{Name: d.decodeIdent(jf.Name), Type: d.decodeType(jf.Type)}
}

func (d *decoder) decodeSignature(js jsonSignature) *ast.Signature {
	sig := &ast.Signature{Name: js.Name, Type: d.decodeType(js.Type)}
	for _, jf := range js.Args {
		sig.Args = append(sig.Args, d.decodeFormal(jf))
	}
	return sig
}

func (d *decoder) decodeFun(jfn *jsonFun) (*ast.Fun, error) {
	sig := d.sigs[jfn.Signature.Name]
	fn := &ast.Fun{Signature: sig}
	for _, jf := range jfn.Locals {
		fn.Locals = append(fn.Locals, d.decodeFormal(jf))
	}
	body, err := d.decodeBlock(jfn.Body)
	if err != nil {
		return nil, err
	}
	fn.Body = body
	return fn, nil
}

func (d *decoder) decodeBlock(jb jsonBlock) (*ast.Block, error) {
	b := &ast.Block{}
	for _, js := range jb.Stmts {
		st, err := d.decodeStmt(js)
		if err != nil {
			return nil, err
		}
		b.Stmts = append(b.Stmts, st)
	}
	return b, nil
}

func (d *decoder) decodeStmt(js jsonStmt) (ast.Stmt, error) {
	switch js.Stmt {
	case "skip":
		return ast.SSkip{}, nil
	case "expr":
		ex, err := d.decodeExpr(js.Expr)
		if err != nil {
			return nil, err
		}
		return ast.SExpr{Expr: ex}, nil
	case "if":
		cond, err := d.decodeExpr(js.Cond)
		if err != nil {
			return nil, err
		}
		then, err := d.decodeStmt(*js.Then)
		if err != nil {
			return nil, err
		}
		els := ast.Stmt(ast.SSkip{})
		if js.Else != nil {
			els, err = d.decodeStmt(*js.Else)
			if err != nil {
				return nil, err
			}
		}
		return ast.SIf{Cond: cond, Then: then, Else: els}, nil
	case "while":
		cond, err := d.decodeExpr(js.Cond)
		if err != nil {
			return nil, err
		}
		body, err := d.decodeStmt(*js.Body)
		if err != nil {
			return nil, err
		}
		return ast.SWhile{Cond: cond, Body: body}, nil
	case "block":
		blk, err := d.decodeBlock(*js.Block)
		if err != nil {
			return nil, err
		}
		return ast.SBlock{Block: blk}, nil
	case "return":
		ex, err := d.decodeExpr(js.Expr)
		if err != nil {
			return nil, err
		}
		return ast.SReturn{Expr: ex}, nil
	}
	return nil, fmt.Errorf("unknown statement kind %q", js.Stmt)
}

var binops = map[string]ast.Binop{
	"add": ast.BAdd, "sub": ast.BSub, "mul": ast.BMul, "div": ast.BDiv,
	"eq": ast.BEq, "neq": ast.BNeq, "lt": ast.BLt, "le": ast.BLe,
	"gt": ast.BGt, "ge": ast.BGe, "and": ast.BAnd, "or": ast.BOr,
}

var unops = map[string]ast.Unop{"not": ast.UNot, "neg": ast.UMinus}

func (d *decoder) decodeExpr(je *jsonExpr) (*ast.Expr, error) {
	if je == nil {
		return nil, fmt.Errorf("missing expression")
	}
	switch je.Node {
	case "const":
		return &ast.Expr{Node: ast.EConst{Value: je.Value}, Type: ast.TInt}, nil
	case "local":
		return &ast.Expr{Node: ast.EAccessLocal{Ident: d.decodeIdent(je.Ident)}, Type: d.decodeType(je.Type)}, nil
	case "field":
		base, err := d.decodeExpr(je.Base)
		if err != nil {
			return nil, err
		}
		fld, err := d.resolveField(base, je.Field)
		if err != nil {
			return nil, err
		}
		return &ast.Expr{Node: ast.EAccessField{Base: base, Field: fld}, Type: fld.Type}, nil
	case "assignlocal":
		val, err := d.decodeExpr(je.Value_)
		if err != nil {
			return nil, err
		}
		return &ast.Expr{Node: ast.EAssignLocal{Ident: d.decodeIdent(je.Ident), Value: val}, Type: d.decodeType(je.Type)}, nil
	case "assignfield":
		base, err := d.decodeExpr(je.Base)
		if err != nil {
			return nil, err
		}
		fld, err := d.resolveField(base, je.Field)
		if err != nil {
			return nil, err
		}
		val, err := d.decodeExpr(je.Value_)
		if err != nil {
			return nil, err
		}
		return &ast.Expr{Node: ast.EAssignField{Base: base, Field: fld, Value: val}, Type: fld.Type}, nil
	case "unop":
		op, ok := unops[je.Op]
		if !ok {
			return nil, fmt.Errorf("unknown unop %q", je.Op)
		}
		operand, err := d.decodeExpr(je.Right)
		if err != nil {
			return nil, err
		}
		return &ast.Expr{Node: ast.EUnop{Op: op, Expr: operand}, Type: ast.TInt}, nil
	case "binop":
		op, ok := binops[je.Op]
		if !ok {
			return nil, fmt.Errorf("unknown binop %q", je.Op)
		}
		left, err := d.decodeExpr(je.Left)
		if err != nil {
			return nil, err
		}
		right, err := d.decodeExpr(je.Right)
		if err != nil {
			return nil, err
		}
		return &ast.Expr{Node: ast.EBinop{Op: op, Left: left, Right: right}, Type: ast.TInt}, nil
	case "call":
		sig, ok := d.sigs[je.Call]
		if !ok {
			return nil, fmt.Errorf("call to undeclared function %q", je.Call)
		}
		args := make([]*ast.ArgExpr, len(je.Args))
		for i, ja := range je.Args {
			ex, err := d.decodeExpr(ja)
			if err != nil {
				return nil, err
			}
			var formal *ast.Formal
			if i < len(sig.Args) {
				formal = sig.Args[i]
			}
			args[i] = &ast.ArgExpr{Formal: formal, Expr: ex}
		}
		return &ast.Expr{Node: ast.ECall{Signature: sig, Args: args}, Type: sig.Type}, nil
	}
	return nil, fmt.Errorf("unknown expression kind %q", je.Node)
}

// resolveField looks the named field up on base's declared struct type,
// falling back to a scan of every known struct (base's Type is only
// informational here, same as everywhere else in ast -- a fixture author
// may have left it as void* the way a raw malloc result would read).
func (d *decoder) resolveField(base *ast.Expr, name string) (*ast.Field, error) {
	if base.Type != nil && base.Type.Kind == ast.KindStruct {
		if f := base.Type.Struct.Field(name); f != nil {
			return f, nil
		}
	}
	for _, s := range d.structs {
		if f := s.Field(name); f != nil {
			return f, nil
		}
	}
	return nil, fmt.Errorf("unknown field %q", name)
}
