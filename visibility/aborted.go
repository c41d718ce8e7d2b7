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
package visibility

import "github.com/houjibofa/zheap/page"

// AbortedStrategy is the hook for a tuple whose producing xid aborted
// before rollback was applied. The other predicates fix their aborted
// arms in their decision tables: SatisfiesUpdate probes the undo chain
// through the walker, and SatisfiesOldestXmin returns Live for a
// deleted/updated tuple and Dead otherwise, without reading undo. This
// hook exists purely for SatisfiesDirty's open branch, which the source
// marks with an assertion-failure placeholder (ztqual.c's
// `Assert(false)` in ZHeapTupleSatisfiesDirty's aborted arms).
type AbortedStrategy interface {
	// Dirty is consulted by SatisfiesDirty when the tuple's producing
	// xid is aborted and rollback has not yet been applied. Callers are
	// not expected to rely on this until a real rollback worker is
	// wired in (spec.md §7 item 4).
	Dirty(tuple page.Tuple) *page.Tuple
}

// ReturnUnmodified is the default AbortedStrategy: it hands back the
// tuple exactly as read, deliberately not attempting to reconstruct
// what a rollback would have produced.
type ReturnUnmodified struct{}

func (ReturnUnmodified) Dirty(tuple page.Tuple) *page.Tuple {
	return &tuple
}
