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
package utils

import "testing"

func TestBitMapSetResetIsSet(t *testing.T) {
	bm := NewBitMap(12)
	if bm.IsSet(3) {
		t.Fatal("fresh BitMap has bit 3 set")
	}
	bm.Set(3)
	if !bm.IsSet(3) {
		t.Fatal("Set(3) did not set bit 3")
	}
	bm.Reset(3)
	if bm.IsSet(3) {
		t.Fatal("Reset(3) did not clear bit 3")
	}
}

func TestBitMapCopyIsIndependent(t *testing.T) {
	bm := NewBitMap(12)
	bm.Set(0)
	cp := bm.Copy()
	cp.Set(1)
	if bm.IsSet(1) {
		t.Fatal("mutating the copy affected the original")
	}
	if !cp.IsSet(0) {
		t.Fatal("Copy lost the original's bits")
	}
}

func TestBitMapSpansMultipleWords(t *testing.T) {
	bm := NewBitMap(20)
	bm.Set(19)
	if !bm.IsSet(19) {
		t.Fatal("Set(19) did not set a bit in the third backing byte")
	}
	if bm.IsSet(18) {
		t.Fatal("Set(19) unexpectedly set an adjacent bit")
	}
}
