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

// Package coloring assigns every pseudo-register a physical register or a
// frame slot, from an interference graph, preferring physical allocation
// and honoring preference edges where possible.
package coloring

import (
	"sort"

	"minicc/interference"
	"minicc/reg"
	"minicc/utils"
)

// Result is one function's coloring output.
type Result struct {
	Colors       map[reg.PseudoReg]reg.Operand
	CountOnStack int
}

var allocatable = reg.AllocatableRegs()

func allocIndex(p reg.PhysReg) int {
	for i, c := range allocatable {
		if c == p {
			return i
		}
	}
	return -1
}

// candidateSet is a dense bitmap over the ALLOCATABLE register indices.
type candidateSet struct{ bm *utils.BitMap }

func fullCandidates() candidateSet {
	bm := utils.NewBitMap(len(allocatable))
	for i := range allocatable {
		bm.Set(i)
	}
	return candidateSet{bm}
}

func (c candidateSet) remove(p reg.PhysReg) {
	if i := allocIndex(p); i >= 0 {
		c.bm.Reset(i)
	}
}

func (c candidateSet) has(p reg.PhysReg) bool {
	if i := allocIndex(p); i >= 0 {
		return c.bm.IsSet(i)
	}
	return false
}

func (c candidateSet) isSingleton() (reg.PhysReg, bool) {
	found := -1
	count := 0
	for i, p := range allocatable {
		if c.bm.IsSet(i) {
			count++
			found = i
		}
		_ = p
	}
	if count == 1 {
		return allocatable[found], true
	}
	return 0, false
}

func (c candidateSet) any() (reg.PhysReg, bool) {
	for i, p := range allocatable {
		if c.bm.IsSet(i) {
			return p, true
		}
	}
	return 0, false
}

func (c candidateSet) empty() bool {
	_, ok := c.any()
	return !ok
}

// Build runs the four-priority coloring heuristic to a fixed point, then
// spills whatever remains onto monotonically increasing frame slots.
func Build(ig *interference.Graph) *Result {
	pseudos := pseudoOnly(ig)

	candidates := make(map[reg.PseudoReg]candidateSet, len(pseudos))
	for _, p := range pseudos {
		c := fullCandidates()
		r := reg.FromPseudo(p)
		for o := range ig.Verts[r].Intfs {
			if o.IsPhysical {
				c.remove(o.Phys)
			}
		}
		candidates[p] = c
	}

	todo := make(map[reg.PseudoReg]struct{}, len(pseudos))
	for _, p := range pseudos {
		todo[p] = struct{}{}
	}

	colors := make(map[reg.PseudoReg]reg.Operand)

	applyColor := func(p reg.PseudoReg, c reg.PhysReg) {
		colors[p] = reg.OperandPhys(c)
		delete(todo, p)
		r := reg.FromPseudo(p)
		for o := range ig.Verts[r].Intfs {
			if !o.IsPhysical {
				if cs, ok := candidates[o.Pseudo]; ok {
					cs.remove(c)
				}
			}
		}
	}

	preferredColorOf := func(p reg.PseudoReg) (reg.PhysReg, bool) {
		r := reg.FromPseudo(p)
		for _, q := range sortedPrefs(ig.Verts[r].Prefs) {
			if q.IsPhysical {
				return q.Phys, true
			}
			if c, ok := colors[q.Pseudo]; ok && !c.Spilled {
				return c.Phys, true
			}
		}
		return 0, false
	}

	for len(todo) > 0 {
		order := sortedTodo(todo)

		if p, c, ok := pickOneColorWithPreference(order, candidates, preferredColorOf); ok {
			applyColor(p, c)
			continue
		}
		if p, c, ok := pickOneColor(order, candidates); ok {
			applyColor(p, c)
			continue
		}
		if p, c, ok := pickPreferenceWithKnownColor(order, candidates, preferredColorOf); ok {
			applyColor(p, c)
			continue
		}
		if p, c, ok := pickAnyColor(order, candidates); ok {
			applyColor(p, c)
			continue
		}

		p := order[0]
		colors[p] = reg.OperandSlot(nextSlot(colors))
		delete(todo, p)
	}

	return &Result{Colors: colors, CountOnStack: countSpilled(colors)}
}

func pickOneColorWithPreference(order []reg.PseudoReg, candidates map[reg.PseudoReg]candidateSet, preferredColorOf func(reg.PseudoReg) (reg.PhysReg, bool)) (reg.PseudoReg, reg.PhysReg, bool) {
	for _, p := range order {
		c, ok := candidates[p].isSingleton()
		if !ok {
			continue
		}
		if pref, has := preferredColorOf(p); has && pref == c {
			return p, c, true
		}
	}
	return reg.PseudoReg{}, 0, false
}

func pickOneColor(order []reg.PseudoReg, candidates map[reg.PseudoReg]candidateSet) (reg.PseudoReg, reg.PhysReg, bool) {
	for _, p := range order {
		if c, ok := candidates[p].isSingleton(); ok {
			return p, c, true
		}
	}
	return reg.PseudoReg{}, 0, false
}

func pickPreferenceWithKnownColor(order []reg.PseudoReg, candidates map[reg.PseudoReg]candidateSet, preferredColorOf func(reg.PseudoReg) (reg.PhysReg, bool)) (reg.PseudoReg, reg.PhysReg, bool) {
	for _, p := range order {
		pref, has := preferredColorOf(p)
		if !has {
			continue
		}
		if candidates[p].has(pref) {
			return p, pref, true
		}
	}
	return reg.PseudoReg{}, 0, false
}

func pickAnyColor(order []reg.PseudoReg, candidates map[reg.PseudoReg]candidateSet) (reg.PseudoReg, reg.PhysReg, bool) {
	for _, p := range order {
		if c, ok := candidates[p].any(); ok {
			return p, c, true
		}
	}
	return reg.PseudoReg{}, 0, false
}

func sortedTodo(todo map[reg.PseudoReg]struct{}) []reg.PseudoReg {
	out := make([]reg.PseudoReg, 0, len(todo))
	for p := range todo {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Ordinal() < out[j].Ordinal() })
	return out
}

// sortedPrefs gives a deterministic scan order over a vertex's preference
// set, same discipline as sortedTodo above and interference.SortedRegs:
// ranging a map directly would let Go's randomized iteration order pick a
// different preferred color across otherwise-identical runs.
func sortedPrefs(prefs map[reg.Register]struct{}) []reg.Register {
	out := make([]reg.Register, 0, len(prefs))
	for r := range prefs {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

func pseudoOnly(ig *interference.Graph) []reg.PseudoReg {
	var out []reg.PseudoReg
	for _, r := range interference.SortedRegs(ig) {
		if !r.IsPhysical {
			out = append(out, r.Pseudo)
		}
	}
	return out
}

func nextSlot(colors map[reg.PseudoReg]reg.Operand) int {
	max := -1
	for _, op := range colors {
		if op.Spilled && op.Slot > max {
			max = op.Slot
		}
	}
	return max + 1
}

func countSpilled(colors map[reg.PseudoReg]reg.Operand) int {
	n := 0
	for _, op := range colors {
		if op.Spilled {
			n++
		}
	}
	return n
}
