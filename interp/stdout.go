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

// Package interp hosts tree-walking interpreters over the typed AST and
// over RTL, used only by tests (property P1: the two must agree with a
// native-assembly run's stdout). Neither interpreter is a shipped compiler
// feature -- parsing/typing/interpretation are out-of-scope collaborators
// per spec.md section 1 -- but P1 needs something to diff the pipeline's
// output against, and shelling out to an assembler isn't a hermetic test
// dependency here (see DESIGN.md).
package interp

// Stdout is the observable-output capture sink both interpreters write
// putchar's byte to, ported from original_source's common.rs Stdout
// (there a RefCell<Vec<char>> wrapped for Display/Debug; here a plain
// []byte buffer, since mini-C's only observable side effect is putchar).
type Stdout struct {
	buf []byte
}

func NewStdout() *Stdout { return &Stdout{} }

// Putchar appends v's low byte, matching the runtime ABI's putchar(int)
// signature (the value is a full 64-bit mini-C int; only the byte mini-C
// programs pass in practice, 0-255, round-trips through a real char write).
func (s *Stdout) Putchar(v int64) {
	s.buf = append(s.buf, byte(v))
}

func (s *Stdout) String() string { return string(s.buf) }

func (s *Stdout) Bytes() []byte { return s.buf }
