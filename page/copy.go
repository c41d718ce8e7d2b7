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

import "github.com/houjibofa/zheap/undo"

// CopyTupleFromUndoRecord materializes the prior tuple image an undo
// record describes, grounded on ztqual.c's CopyTupleFromUndoRecord: it
// builds a fresh zheap tuple header whose infomask is derived from the
// undo record's type rather than copied from the current on-page
// tuple, since the whole point of the record is that *something*
// changed since that prior image existed. InvalidXactSlot is ORed in
// separately from the Type switch, since the historical image a
// DELETE/UPDATE/INPLACE_UPDATE/XID_LOCK_ONLY record reconstructs can
// itself have had its slot invalidated by reuse (rec.InvalidSlot),
// independent of what kind of record it is.
func CopyTupleFromUndoRecord(rec undo.Record) Tuple {
	var im Infomask
	switch rec.Type {
	case undo.Delete:
		// The prior image predates the delete: no Deleted flag.
	case undo.Update:
		im |= Updated
	case undo.InplaceUpdate:
		im |= InplaceUpdated
	case undo.XidLockOnly:
		im |= XidLockOnly
	case undo.InvalidXactSlot:
		// No tuple image; handled by the walker before materialization.
	}
	if rec.InvalidSlot {
		im |= InvalidXactSlot
	}
	return Tuple{
		Infomask: im,
		SlotID:   rec.Slot,
		Ctid:     rec.Ctid,
		Self:     rec.Self,
		Payload:  rec.Payload,
	}
}
