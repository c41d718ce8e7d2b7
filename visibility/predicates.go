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
	"github.com/houjibofa/zheap/tid"
	"github.com/houjibofa/zheap/xact"
	"github.com/houjibofa/zheap/xid"
)

// SatisfiesMVCC decides whether t is visible to snapshot, reconstructing
// a prior version via the walker when the latest version is not (spec.md
// §4.E SatisfiesMVCC, grounded on ztqual.c's ZHeapTupleSatisfiesMVCC,
// lines 510-691). It includes the effects of every transaction committed
// as of snapshot plus earlier commands of the current transaction; it
// excludes in-progress-at-snapshot transactions, transactions that began
// after snapshot, and the current command's own changes.
func (w *Walker) SatisfiesMVCC(t page.Tuple, op page.Opaque, snapshot xact.Snapshot) *page.Tuple {
	x, cid, urecPtr, _ := resolveIdentity(w.Reader, t, op)
	horizon := w.Oracle.Horizon()
	_, frozen := page.Slot(t)

	switch classify(t.Infomask) {
	case classDeletedOrUpdated:
		if allVisible(frozen, x, horizon) {
			return nil
		}
		switch xact.ClassifyMVCC(w.Oracle, x, snapshot) {
		case xact.Current:
			if cid >= snapshot.CurCid {
				return w.GetFromUndo(urecPtr, t, op, snapshot, xid.Invalid)
			}
			return nil // deleted before scan started
		case xact.InProgress:
			return w.GetFromUndo(urecPtr, t, op, snapshot, xid.Invalid)
		case xact.Committed:
			return nil // tuple is deleted
		default: // Aborted
			return w.GetFromUndo(urecPtr, t, op, snapshot, xid.Invalid)
		}

	case classInplaceUpdated, classXidLockOnly:
		if allVisible(frozen, x, horizon) {
			return &t
		}
		switch xact.ClassifyMVCC(w.Oracle, x, snapshot) {
		case xact.Current:
			if classify(t.Infomask) == classXidLockOnly {
				return &t
			}
			if cid >= snapshot.CurCid {
				return w.GetFromUndo(urecPtr, t, op, snapshot, xid.Invalid)
			}
			return &t // updated before scan started
		case xact.InProgress:
			return w.GetFromUndo(urecPtr, t, op, snapshot, xid.Invalid)
		case xact.Committed:
			return &t
		default: // Aborted
			return w.GetFromUndo(urecPtr, t, op, snapshot, xid.Invalid)
		}

	default: // classRoot: insert
		if allVisible(frozen, x, horizon) {
			return &t
		}
		switch xact.ClassifyMVCC(w.Oracle, x, snapshot) {
		case xact.Current:
			if cid >= snapshot.CurCid {
				return nil // inserted after scan started
			}
			return &t
		case xact.InProgress:
			return nil
		case xact.Committed:
			return &t
		default: // Aborted
			return nil
		}
	}
}

// UpdateResult is the would-be-updater verdict SatisfiesUpdate returns
// (spec.md §4.E SatisfiesUpdate; HTSU_Result in ztqual.c).
type UpdateResult int

const (
	MayBeUpdated UpdateResult = iota
	SelfUpdated
	BeingUpdated
	Updated
	Invisible
)

// SatisfiesUpdate categorizes t from the perspective of a transaction
// that wants to update it, probing the undo chain via the walker when
// the concrete prior version matters (spec.md §4.E SatisfiesUpdate,
// grounded on ztqual.c's ZHeapTupleSatisfiesUpdate, lines 709-976). It
// also reports ctid (for already-moved rows) and whether the returned
// verdict reflects an in-place update or a lock.
func (w *Walker) SatisfiesUpdate(t page.Tuple, op page.Opaque, curcid xid.CID, snapshot xact.Snapshot, lockAllowed bool) (result UpdateResult, outXid xid.XID, outCid xid.CID, outCtid tid.TID, inPlaceOrLocked bool) {
	x, cid, urecPtr, _ := resolveIdentity(w.Reader, t, op)
	outXid, outCid = x, cid

	switch classify(t.Infomask) {
	case classDeletedOrUpdated:
		switch xact.ClassifyInProgress(w.Oracle, x) {
		case xact.Current:
			if cid >= curcid {
				visible, ctid, flag := w.SatisfiesUpdateWalk(urecPtr, t, op, curcid, xid.Invalid)
				if visible {
					return SelfUpdated, outXid, outCid, ctid, flag
				}
				return Invisible, outXid, outCid, tid.Invalid, flag
			}
			return Invisible, outXid, outCid, tid.Invalid, false // deleted before scan started
		case xact.InProgress:
			visible, ctid, flag := w.SatisfiesUpdateWalk(urecPtr, t, op, curcid, xid.Invalid)
			if visible {
				return BeingUpdated, outXid, outCid, ctid, flag
			}
			return Invisible, outXid, outCid, tid.Invalid, flag
		case xact.Committed:
			if t.Infomask.Has(page.Updated) {
				if ctid, ok := page.GetCtid(t, op, w.Reader); ok {
					return Updated, outXid, outCid, ctid, false
				}
			}
			return Updated, outXid, outCid, tid.Invalid, false
		default: // Aborted: probe undo as if aborted (§7 item 4)
			ptr, _ := page.RawUndoPtr(t, op)
			visible, ctid, flag := w.SatisfiesUpdateWalk(ptr, t, op, curcid, xid.Invalid)
			if visible {
				return MayBeUpdated, outXid, outCid, ctid, flag
			}
			return Invisible, outXid, outCid, tid.Invalid, flag
		}

	case classInplaceUpdated, classXidLockOnly:
		inPlaceOrLocked = true
		horizon := w.Oracle.Horizon()
		_, frozen := page.Slot(t)
		if allVisible(frozen, x, horizon) {
			return MayBeUpdated, outXid, outCid, tid.Invalid, inPlaceOrLocked
		}
		switch xact.ClassifyInProgress(w.Oracle, x) {
		case xact.Current:
			if classify(t.Infomask) == classXidLockOnly {
				return BeingUpdated, outXid, outCid, tid.Invalid, inPlaceOrLocked
			}
			if cid >= curcid {
				visible, ctid, flag := w.SatisfiesUpdateWalk(urecPtr, t, op, curcid, xid.Invalid)
				if visible {
					return SelfUpdated, outXid, outCid, ctid, flag
				}
				return Invisible, outXid, outCid, tid.Invalid, flag
			}
			return MayBeUpdated, outXid, outCid, tid.Invalid, inPlaceOrLocked // updated before scan started
		case xact.InProgress:
			visible, ctid, flag := w.SatisfiesUpdateWalk(urecPtr, t, op, curcid, xid.Invalid)
			if visible {
				return BeingUpdated, outXid, outCid, ctid, flag
			}
			return Invisible, outXid, outCid, tid.Invalid, flag
		case xact.Committed:
			if lockAllowed || !w.Oracle.XidInSnapshot(x, snapshot) {
				return MayBeUpdated, outXid, outCid, tid.Invalid, inPlaceOrLocked
			}
			return Updated, outXid, outCid, tid.Invalid, inPlaceOrLocked
		default: // Aborted
			visible, ctid, flag := w.SatisfiesUpdateWalk(urecPtr, t, op, curcid, xid.Invalid)
			if visible {
				return MayBeUpdated, outXid, outCid, ctid, flag
			}
			return Invisible, outXid, outCid, tid.Invalid, flag
		}

	default: // classRoot: insert
		horizon := w.Oracle.Horizon()
		_, frozen := page.Slot(t)
		if allVisible(frozen, x, horizon) {
			return MayBeUpdated, outXid, outCid, tid.Invalid, false
		}
		switch xact.ClassifyInProgress(w.Oracle, x) {
		case xact.Current:
			if cid >= curcid {
				return Invisible, outXid, outCid, tid.Invalid, false
			}
			return MayBeUpdated, outXid, outCid, tid.Invalid, false
		case xact.InProgress:
			return Invisible, outXid, outCid, tid.Invalid, false
		case xact.Committed:
			return MayBeUpdated, outXid, outCid, tid.Invalid, false
		default: // Aborted
			return Invisible, outXid, outCid, tid.Invalid, false
		}
	}
}

// SatisfiesDirty includes the effects of every committed and in-progress
// transaction plus the current transaction's own changes (spec.md §4.E
// SatisfiesDirty, grounded on ztqual.c's ZHeapTupleSatisfiesDirty, lines
// 1082-1263). snapshot.Xmin/Xmax and SpeculativeToken are reset on entry
// and populated per the decision table. ctid mirrors
// ZHeapTupleSatisfiesDirty's ItemPointer out-parameter: when a
// DELETED/UPDATED tuple's xid is current or committed, and the tuple
// carries UPDATED, it is populated from the tuple's most recent undo
// UPDATE record, so a caller can chase the moved row the same way
// SatisfiesUpdate's ctid output lets it. Every other branch returns
// tid.Invalid.
func (w *Walker) SatisfiesDirty(t page.Tuple, op page.Opaque, snapshot *xact.Snapshot) (result *page.Tuple, ctid tid.TID) {
	snapshot.Xmin, snapshot.Xmax = xid.Invalid, xid.Invalid
	snapshot.SpeculativeToken = 0

	x, _, _, _ := resolveIdentity(w.Reader, t, op)
	horizon := w.Oracle.Horizon()
	_, frozen := page.Slot(t)

	switch classify(t.Infomask) {
	case classDeletedOrUpdated:
		switch xact.ClassifyInProgress(w.Oracle, x) {
		case xact.Current:
			return nil, w.dirtyCtid(t, op)
		case xact.InProgress:
			snapshot.Xmax = x
			return &t, tid.Invalid // in deletion by other
		case xact.Committed:
			return nil, w.dirtyCtid(t, op)
		default: // Aborted: open question, see AbortedStrategy
			return w.Aborted.Dirty(t), tid.Invalid
		}

	case classInplaceUpdated, classXidLockOnly:
		if allVisible(frozen, x, horizon) {
			return &t, tid.Invalid
		}
		switch xact.ClassifyInProgress(w.Oracle, x) {
		case xact.Current:
			return &t, tid.Invalid
		case xact.InProgress:
			if classify(t.Infomask) != classXidLockOnly {
				snapshot.Xmax = x
			}
			return &t, tid.Invalid // being updated
		case xact.Committed:
			return &t, tid.Invalid
		default: // Aborted
			return w.Aborted.Dirty(t), tid.Invalid
		}

	default: // classRoot: insert
		if allVisible(frozen, x, horizon) {
			return &t, tid.Invalid
		}
		switch xact.ClassifyInProgress(w.Oracle, x) {
		case xact.Current:
			return &t, tid.Invalid
		case xact.InProgress:
			snapshot.Xmin = x
			return &t, tid.Invalid // in insertion by other
		case xact.Committed:
			return &t, tid.Invalid
		default: // Aborted
			return w.Aborted.Dirty(t), tid.Invalid
		}
	}
}

// dirtyCtid populates the moved-to location for a deleted/updated tuple
// SatisfiesDirty has just ruled invisible, mirroring
// ZHeapTupleSatisfiesDirty's ZHeapTupleGetCtid(zhtup, buffer, ctid) call
// in its Current/Committed classDeletedOrUpdated branches.
func (w *Walker) dirtyCtid(t page.Tuple, op page.Opaque) tid.TID {
	if ctid, ok := page.GetCtid(t, op, w.Reader); ok {
		return ctid
	}
	return tid.Invalid
}

// SatisfiesAny returns t unconditionally (spec.md §4.E SatisfiesAny,
// ztqual.c's ZHeapTupleSatisfiesAny): every tuple satisfies SnapshotAny.
func (w *Walker) SatisfiesAny(t page.Tuple) *page.Tuple {
	return &t
}

// OldestXminResult is the vacuum-facing liveness classification
// SatisfiesOldestXmin returns (spec.md §4.E; HTSV_Result in ztqual.c).
type OldestXminResult int

const (
	Live OldestXminResult = iota
	DeleteInProgress
	InsertInProgress
	RecentlyDead
	Dead
)

// SatisfiesOldestXmin reports whether t is visible to any open
// transaction as of oldestXmin (spec.md §4.E SatisfiesOldestXmin,
// grounded on ztqual.c's ZHeapTupleSatisfiesOldestXmin, lines
// 1281-1425). Identity resolution skips the undo walk entirely when the
// tuple's raw xid already precedes the global horizon, the one
// optimization the source applies before any slot/infomask branching.
func (w *Walker) SatisfiesOldestXmin(t page.Tuple, op page.Opaque, oldestXmin xid.XID) OldestXminResult {
	horizon := w.Oracle.Horizon()
	_, frozen := page.Slot(t)

	var x xid.XID
	if frozen {
		x = xid.Invalid
	} else if rawXid, ok := page.RawXid(t, op); ok && rawXid.Precedes(horizon) {
		x = rawXid
	} else {
		x, _, _, _ = resolveIdentity(w.Reader, t, op)
	}

	switch classify(t.Infomask) {
	case classDeletedOrUpdated:
		if allVisible(frozen, x, horizon) {
			return Dead
		}
		switch xact.ClassifyInProgress(w.Oracle, x) {
		case xact.Current, xact.InProgress:
			return DeleteInProgress
		case xact.Committed:
			if !x.Precedes(oldestXmin) {
				return RecentlyDead
			}
			return Dead
		default: // Aborted
			return Live
		}

	case classXidLockOnly:
		return Live

	default: // classRoot or classInplaceUpdated
		if allVisible(frozen, x, horizon) {
			return Live
		}
		switch xact.ClassifyInProgress(w.Oracle, x) {
		case xact.Current, xact.InProgress:
			return InsertInProgress
		case xact.Committed:
			return Live
		default: // Aborted: an aborted in-place update is reported Dead
			// like an aborted insert; undo is not consulted.
			return Dead
		}
	}
}

// IsSurelyDead reports whether t can never become visible again to any
// snapshot (spec.md §4.E IsSurelyDead, grounded on ztqual.c's
// ZHeapTupleIsSurelyDead, lines 983-1063): true iff the tuple is
// DELETED/UPDATED and the all-visible shortcut fires.
func (w *Walker) IsSurelyDead(t page.Tuple, op page.Opaque, oldestXmin xid.XID) bool {
	horizon := w.Oracle.Horizon()
	_, frozen := page.Slot(t)
	x, _, _, _ := resolveIdentity(w.Reader, t, op)

	if classify(t.Infomask) != classDeletedOrUpdated {
		return false
	}
	return allVisible(frozen, x, horizon)
}
