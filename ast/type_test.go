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

import "testing"

func TestFieldOffsetIsIndexTimesFieldSize(t *testing.T) {
	s := &Struct{Name: "quad", Fields: []*Field{
		{Name: "w", Index: 0, Type: TInt},
		{Name: "x", Index: 1, Type: TInt},
		{Name: "y", Index: 2, Type: TInt},
		{Name: "z", Index: 3, Type: TInt},
	}}
	for i, f := range s.Fields {
		if got, want := f.Offset(), i*FieldSize; got != want {
			t.Errorf("field %s offset = %d, want %d", f.Name, got, want)
		}
	}
	if got, want := s.Size(), 4*FieldSize; got != want {
		t.Errorf("Struct.Size() = %d, want %d", got, want)
	}
}

func TestStructFieldLookupMissReturnsNil(t *testing.T) {
	s := &Struct{Name: "pair", Fields: []*Field{{Name: "a", Index: 0, Type: TInt}}}
	if f := s.Field("b"); f != nil {
		t.Errorf("Field(%q) on a struct without that member = %v, want nil", "b", f)
	}
	if f := s.Field("a"); f == nil || f.Name != "a" {
		t.Errorf("Field(%q) = %v, want the `a` field", "a", f)
	}
}

func TestPointerTypesIncludeVoidStarAndStruct(t *testing.T) {
	s := TStruct(&Struct{Name: "quad"})
	for _, typ := range []*Type{TVoidStar, s} {
		if !typ.IsPointer() {
			t.Errorf("%s.IsPointer() = false, want true", typ)
		}
	}
	if TInt.IsPointer() {
		t.Error("TInt.IsPointer() = true, want false")
	}
	if TNull.IsPointer() {
		t.Error("TNull.IsPointer() = true, want false")
	}
}
