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

// Package reg owns the two process-wide monotonic counters (labels and
// pseudo-registers) and the x86-64 physical register tables shared by every
// stage of the pipeline.
package reg

import (
	"fmt"
	"sync/atomic"
)

// Label is a fresh, opaque CFG node identifier. Two Labels are equal iff
// their ordinal is equal.
type Label struct{ ordinal int64 }

func (l Label) Ordinal() int64 { return l.ordinal }

func (l Label) String() string { return fmt.Sprintf("L%d", l.ordinal) }

// PseudoReg is a fresh, unlimited-supply abstract register produced by the
// RTL builder.
type PseudoReg struct{ ordinal int64 }

func (p PseudoReg) Ordinal() int64 { return p.ordinal }

func (p PseudoReg) String() string { return fmt.Sprintf("%%%d", p.ordinal) }

var labelCounter int64
var pseudoCounter int64

// FreshLabel allocates a new, never-before-seen Label. Safe to call from
// multiple goroutines, even though today's driver is single-threaded
// throughout: the fresh-counters are the only process-wide mutable state in
// the core, so they are atomics rather than plain fields.
func FreshLabel() Label {
	return Label{ordinal: atomic.AddInt64(&labelCounter, 1)}
}

// FreshPseudoReg allocates a new, never-before-seen PseudoReg.
func FreshPseudoReg() PseudoReg {
	return PseudoReg{ordinal: atomic.AddInt64(&pseudoCounter, 1)}
}

// ResetForTest rewinds both counters to zero. Exposed only so tests can
// assert on exact label/register ordinals and so the "deterministic output"
// property (section 5) can be checked by running the pipeline twice.
func ResetForTest() {
	atomic.StoreInt64(&labelCounter, 0)
	atomic.StoreInt64(&pseudoCounter, 0)
}
