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
package ast

import "fmt"

// Kind tags the handful of types mini-C's typed AST carries. There is no
// float, array or function-pointer type: those are excluded by the
// middle-end's non-goals.
type Kind int

const (
	KindInt Kind = iota
	KindVoidStar
	KindNull
	KindStruct
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindVoidStar:
		return "void*"
	case KindNull:
		return "<null>"
	case KindStruct:
		return "struct"
	}
	panic("unreachable Kind")
}

// FieldSize is the storage size, in bytes, of every struct field. mini-C
// only has 8-byte scalar/pointer fields, so layout is a flat multiple of
// this constant rather than a per-type size table.
const FieldSize = 8

// Field is one member of a Struct: its source name, its zero-based index
// (which doubles as its layout slot), and its type.
type Field struct {
	Name  string
	Index uint8
	Type  *Type
}

// Offset is the byte offset of this field from the start of the struct,
// used directly as the RTL Load/Store offset operand.
func (f *Field) Offset() int {
	return int(f.Index) * FieldSize
}

// Struct is a named aggregate of Fields, shared by reference so that every
// Type that mentions it (and every Field's Offset/Size arithmetic) sees the
// same layout.
type Struct struct {
	Name   string
	Fields []*Field
}

// Size is the struct's total storage size in bytes.
func (s *Struct) Size() int {
	return len(s.Fields) * FieldSize
}

func (s *Struct) Field(name string) *Field {
	for _, f := range s.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// Type is a value type in the typed AST: either a scalar (Int, VoidStar,
// the type of the literal `null`) or a pointer to a named Struct.
type Type struct {
	Kind   Kind
	Struct *Struct
}

var (
	TInt      = &Type{Kind: KindInt}
	TVoidStar = &Type{Kind: KindVoidStar}
	TNull     = &Type{Kind: KindNull}
)

func TStruct(s *Struct) *Type {
	return &Type{Kind: KindStruct, Struct: s}
}

func (t *Type) String() string {
	if t.Kind == KindStruct {
		return fmt.Sprintf("struct %s*", t.Struct.Name)
	}
	return t.Kind.String()
}

// IsPointer reports whether a value of this type is a machine pointer
// (struct references and void* both lower the same way: one 8-byte word).
func (t *Type) IsPointer() bool {
	return t.Kind == KindVoidStar || t.Kind == KindStruct
}
