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

// Package visibility is the public surface of the tuple visibility core
// (components D and E): the undo chain walker and the six predicates
// that decide, for a given snapshot semantics, whether a physical tuple
// is visible and what its prior version looks like.
package visibility

import "github.com/houjibofa/zheap/page"

// opClass is the operation-class axis of every decision table in
// ztqual.c: what kind of mutation produced the tuple under inspection.
type opClass int

const (
	// classRoot covers plain inserts: no delete/update/lock flag set.
	classRoot opClass = iota
	classInplaceUpdated
	classXidLockOnly
	// classDeletedOrUpdated never legitimately reaches the walker's own
	// materialize step (invariant: an undo tuple's predecessor can't
	// itself be mid-delete), but is the class a predicate resolves its
	// *starting* tuple to.
	classDeletedOrUpdated
)

func classify(im page.Infomask) opClass {
	switch {
	case im.Has(page.Deleted) || im.Has(page.Updated):
		return classDeletedOrUpdated
	case im.Has(page.InplaceUpdated):
		return classInplaceUpdated
	case im.Has(page.XidLockOnly):
		return classXidLockOnly
	default:
		return classRoot
	}
}
