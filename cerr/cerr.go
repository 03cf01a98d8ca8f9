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

// Package cerr is the stage-boundary error taxonomy: one sentinel per tag
// named in the error handling design, each wrapped with the offending
// detail via fmt.Errorf so a caller can still errors.Is against the tag
// after unwrapping.
package cerr

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateLocal: duplicate block-scoped identifier seen by the RTL
	// builder's local register map.
	ErrDuplicateLocal = errors.New("rtl: duplicate block-scoped identifier")
	// ErrLocalNotFound: a variable looked up in the RTL register map was
	// never registered -- indicates a corrupted typed AST, since the typer
	// (out of scope here) is responsible for catching undefined variables.
	ErrLocalNotFound = errors.New("rtl: local not found in register map")
	// ErrMissingColor: LTL lowering found no coloring entry for a
	// pseudo-register -- indicates a corrupted upstream coloring result.
	ErrMissingColor = errors.New("ltl: missing register color")
	// ErrMissingMain: the input file has no `main` function.
	ErrMissingMain = errors.New("missing main function")
)

func DuplicateLocal(name string) error {
	return fmt.Errorf("%w: %s", ErrDuplicateLocal, name)
}

func LocalNotFound(name string) error {
	return fmt.Errorf("%w: %s", ErrLocalNotFound, name)
}

func MissingColor(pseudo fmt.Stringer) error {
	return fmt.Errorf("%w: %s", ErrMissingColor, pseudo)
}
