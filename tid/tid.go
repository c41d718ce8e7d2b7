/*
Copyright (C) 2023-2026  Carl-Philip Hänsch

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

// Package tid holds the (block, offset) tuple identifier. It is split
// out from package page so that package undo — whose UPDATE records
// carry a ctid payload — can reference it without importing page (which
// in turn depends on undo for its undo-pointer field).
package tid

import "fmt"

// TID identifies a physical row slot on a page. It stays stable across
// in-place updates (spec.md §3: "a self-identifier (block, offset),
// stable across in-place updates").
type TID struct {
	Block  uint32
	Offset uint16
}

// Invalid is the zero TID, used as "no ctid" for tuples that were never
// moved by a non-in-place update.
var Invalid = TID{}

// Valid reports whether t identifies a real slot.
func (t TID) Valid() bool {
	return t != Invalid
}

func (t TID) String() string {
	return fmt.Sprintf("(%d,%d)", t.Block, t.Offset)
}
