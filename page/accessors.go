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
package page

import (
	"github.com/houjibofa/zheap/tid"
	"github.com/houjibofa/zheap/undo"
	"github.com/houjibofa/zheap/xact"
	"github.com/houjibofa/zheap/xid"
)

// Slot returns t's slot index and whether it resolves to the frozen
// sentinel (spec.md §4.C "slot(tuple) → slot index or frozen").
func Slot(t Tuple) (slotID int32, frozen bool) {
	return t.SlotID, t.SlotID == FrozenSlot
}

// RawXid returns the owning xid straight from the page's slot table.
// It is undefined (ok == false) when t carries InvalidXactSlot — the
// slot table entry no longer belongs to this tuple's true history, and
// only a walk of the undo chain (package visibility) can recover it —
// or when the slot is frozen, since a frozen slot carries no live xid.
func RawXid(t Tuple, op Opaque) (xid.XID, bool) {
	if t.Infomask.Has(InvalidXactSlot) {
		return xid.Invalid, false
	}
	entry, ok := op.Entry(t.SlotID)
	if !ok {
		return xid.Invalid, false
	}
	return entry.Xid, true
}

// RawUndoPtr returns the slot's most recent undo pointer, under the
// same validity rule as RawXid.
func RawUndoPtr(t Tuple, op Opaque) (undo.Ptr, bool) {
	if t.Infomask.Has(InvalidXactSlot) {
		return undo.Invalid, false
	}
	entry, ok := op.Entry(t.SlotID)
	if !ok {
		return undo.Invalid, false
	}
	return entry.UndoPtr, true
}

// GetCid returns t's command id if its owning xid is the oracle's
// current transaction, else ok is false (spec.md §4.C get_cid).
func GetCid(t Tuple, op Opaque, oracle xact.Oracle) (xid.CID, bool) {
	owner, ok := RawXid(t, op)
	if !ok || !oracle.IsCurrent(owner) {
		return xid.InvalidCID, false
	}
	return t.Cid, true
}

// GetCtid populates the moved-to location of an Updated tuple from the
// most recent undo UPDATE record (spec.md §4.C get_ctid). It returns
// ok == false for any tuple that is not currently Updated, whose slot
// cannot be resolved, or whose most recent undo record is not itself an
// UPDATE (a racing in-place update since this image was read, or a
// discarded record — the caller should re-read the tuple rather than
// trust a stale Ctid).
func GetCtid(t Tuple, op Opaque, reader undo.Reader) (tid.TID, bool) {
	if !t.Infomask.Has(Updated) {
		return tid.Invalid, false
	}
	ptr, ok := RawUndoPtr(t, op)
	if !ok {
		return tid.Invalid, false
	}
	rec, err := reader.Fetch(ptr, t.Self, xid.Invalid)
	if err != nil {
		return tid.Invalid, false
	}
	defer reader.Release(rec)
	if rec.Type != undo.Update {
		return tid.Invalid, false
	}
	return rec.Ctid, true
}
