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

import (
	"github.com/houjibofa/zheap/page"
	"github.com/houjibofa/zheap/undo"
	"github.com/houjibofa/zheap/xid"
)

// resolveIdentity resolves (xid, cid, urecPtr) for the *starting* tuple
// of a predicate call (spec.md §4.E preamble). This is deliberately
// simpler than the walker's own inner resolution step (4.D step 5,
// implemented in resolveInvalidSlotChain): it carries no captured-xid
// comparison and no per-iteration horizon check, just a walk of
// INVALID_XACT_SLOT header records until one of that exact type is
// found or the chain ends — grounded on ztqual.c's repeated
//
//	do { ... } while (uur_type != UNDO_INVALID_XACT_SLOT);
//
// preamble shared by ZHeapTupleSatisfiesMVCC, ZHeapTupleSatisfiesUpdate,
// ZHeapTupleSatisfiesDirty, ZHeapTupleSatisfiesOldestXmin and
// ZHeapTupleIsSurelyDead (ztqual.c lines ~531-578, ~732-779, ~1105-1150,
// ~1300-1346, ~1002-1045). A real reader error is fatal (spec.md §5/§7
// item 1) and is returned to the caller rather than folded into the
// xid.Invalid "not applicable" sentinel.
func resolveIdentity(reader undo.Reader, t page.Tuple, op page.Opaque) (x xid.XID, cid xid.CID, urecPtr undo.Ptr, err error) {
	slotID, frozen := page.Slot(t)
	if frozen {
		return xid.Invalid, xid.InvalidCID, undo.Invalid, nil
	}

	if !t.Infomask.Has(page.InvalidXactSlot) {
		x, _ = page.RawXid(t, op)
		urecPtr, _ = page.RawUndoPtr(t, op)
		return x, t.Cid, urecPtr, nil
	}

	entry, ok := op.Entry(slotID)
	if !ok {
		return xid.Invalid, xid.InvalidCID, undo.Invalid, nil
	}
	ptr := entry.UndoPtr
	for {
		rec, fetchErr := reader.Fetch(ptr, t.Self, xid.Invalid)
		if fetchErr != nil {
			if fetchErr == undo.ErrDiscarded || fetchErr == undo.ErrNotFound {
				return xid.Invalid, xid.InvalidCID, undo.Invalid, nil
			}
			return xid.Invalid, xid.InvalidCID, undo.Invalid, fetchErr
		}
		x, cid, urecPtr = rec.PrevXid, rec.PrevCid, rec.BlkPrev
		recType := rec.Type
		reader.Release(rec)
		if recType == undo.InvalidXactSlot {
			return x, cid, urecPtr, nil
		}
		ptr = urecPtr
	}
}

// allVisible reports the "frozen slot, or xid precedes the horizon"
// shortcut that recurs throughout every predicate and the walker
// itself (spec.md invariant 4).
func allVisible(frozen bool, x xid.XID, horizon xid.XID) bool {
	return frozen || x.Precedes(horizon)
}
