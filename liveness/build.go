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
package liveness

import (
	"sort"

	"minicc/ir/ertl"
	"minicc/reg"
)

// RegSet is an unordered register set; Sorted gives the deterministic
// iteration order (by reg.Register.Less) that every downstream consumer
// relies on for reproducible output.
type RegSet map[reg.Register]struct{}

func newRegSet(rs ...reg.Register) RegSet {
	s := make(RegSet, len(rs))
	for _, r := range rs {
		s[r] = struct{}{}
	}
	return s
}

func (s RegSet) Clone() RegSet {
	out := make(RegSet, len(s))
	for r := range s {
		out[r] = struct{}{}
	}
	return out
}

func (s RegSet) Equal(o RegSet) bool {
	if len(s) != len(o) {
		return false
	}
	for r := range s {
		if _, ok := o[r]; !ok {
			return false
		}
	}
	return true
}

func (s RegSet) Sorted() []reg.Register {
	out := make([]reg.Register, 0, len(s))
	for r := range s {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Less(out[j]) })
	return out
}

// Info is the per-label liveness record: the instruction, its graph
// neighbors, and its def/use/in/out register sets.
type Info struct {
	Instr      ertl.Instr
	Succ, Pred []reg.Label
	Def, Use   []reg.Register
	In, Out    RegSet
}

// Graph is the whole-function liveness result, one Info per label.
type Graph struct {
	Infos map[reg.Label]*Info
}

// Build runs the standard worklist dataflow: initialize every in-set
// empty, then repeatedly recompute out/in at the label with the smallest
// ordinal still on the worklist, re-enqueueing predecessors whenever in
// grows.
func Build(fn *ertl.Fun) *Graph {
	succMap := make(map[reg.Label][]reg.Label)
	predMap := make(map[reg.Label][]reg.Label)
	defUse := make(map[reg.Label][2][]reg.Register)

	for l, instr := range fn.Graph.Instrs {
		s := instr.Succs()
		succMap[l] = s
		def, use := DefUse(instr)
		defUse[l] = [2][]reg.Register{def, use}
	}
	for l := range fn.Graph.Instrs {
		predMap[l] = nil
	}
	for l, succs := range succMap {
		for _, s := range succs {
			predMap[s] = append(predMap[s], l)
		}
	}

	in := make(map[reg.Label]RegSet)
	out := make(map[reg.Label]RegSet)
	for l := range fn.Graph.Instrs {
		in[l] = newRegSet()
	}

	todo := make(map[reg.Label]struct{}, len(fn.Graph.Instrs))
	for l := range fn.Graph.Instrs {
		todo[l] = struct{}{}
	}

	popMin := func() (reg.Label, bool) {
		var best reg.Label
		found := false
		for l := range todo {
			if !found || l.Ordinal() < best.Ordinal() {
				best = l
				found = true
			}
		}
		if found {
			delete(todo, best)
		}
		return best, found
	}

	for {
		l, ok := popMin()
		if !ok {
			break
		}

		newOut := newRegSet()
		for _, s := range succMap[l] {
			for r := range in[s] {
				newOut[r] = struct{}{}
			}
		}

		def, use := defUse[l][0], defUse[l][1]
		newIn := newOut.Clone()
		for _, d := range def {
			delete(newIn, d)
		}
		for _, u := range use {
			newIn[u] = struct{}{}
		}

		if !newIn.Equal(in[l]) {
			in[l] = newIn
			for _, p := range predMap[l] {
				todo[p] = struct{}{}
			}
		}
		out[l] = newOut
	}

	infos := make(map[reg.Label]*Info, len(fn.Graph.Instrs))
	for l, instr := range fn.Graph.Instrs {
		def, use := defUse[l][0], defUse[l][1]
		infos[l] = &Info{
			Instr: instr,
			Succ:  succMap[l],
			Pred:  predMap[l],
			Def:   def,
			Use:   use,
			In:    in[l],
			Out:   out[l],
		}
	}
	return &Graph{Infos: infos}
}
