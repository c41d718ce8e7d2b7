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

// Package undo implements the external undo-log collaborator the
// visibility core consumes through a single fetch/release primitive
// (spec.md §4.B, component B), plus the pluggable segment storage that
// backs it (out of scope for the spec itself, but needed for a runnable
// module — see SPEC_FULL.md §3 "Undo segment storage").
package undo

import (
	"fmt"

	"github.com/houjibofa/zheap/tid"
	"github.com/houjibofa/zheap/xid"
)

// RecordType identifies the kind of operation an undo record reverses.
type RecordType uint8

const (
	// Delete reverses a delete-mark: applying it recovers the tuple as
	// it stood immediately before the delete.
	Delete RecordType = iota
	// Update reverses a non-in-place update (the row moved); payload
	// carries the ctid of the new location.
	Update
	// InplaceUpdate reverses an in-place update.
	InplaceUpdate
	// XidLockOnly reverses nothing but records that a lock (not a data
	// change) was the last operation against this xid.
	XidLockOnly
	// InvalidXactSlot is a marker-only record: no tuple image, written
	// purely to preserve the true xid/undo-ptr of a tuple whose
	// transaction slot is about to be reused by another transaction
	// (spec.md §3 invariant 3).
	InvalidXactSlot
)

func (t RecordType) String() string {
	switch t {
	case Delete:
		return "DELETE"
	case Update:
		return "UPDATE"
	case InplaceUpdate:
		return "INPLACE_UPDATE"
	case XidLockOnly:
		return "XID_LOCK_ONLY"
	case InvalidXactSlot:
		return "INVALID_XACT_SLOT"
	default:
		return fmt.Sprintf("RecordType(%d)", uint8(t))
	}
}

// Record is the unpacked undo record the reader hands back: component B
// of spec.md §4.B / data model §3.
type Record struct {
	Type RecordType

	// PrevXid/PrevCid identify the transaction and command that
	// produced the *prior* version this record lets the walker
	// reconstruct.
	PrevXid xid.XID
	PrevCid xid.CID

	// BlkPrev points to the previous record in this tuple's undo chain.
	// The zero Ptr means "end of chain".
	BlkPrev Ptr

	// Ctid is populated only for Type == Update: the new location a
	// non-in-place update moved the row to.
	Ctid tid.TID

	// Self is the (block, offset) of the tuple this record belongs to,
	// stamped at Append time. Reader.Fetch checks it against the
	// caller-supplied self identity as a cheap corruption guard.
	Self tid.TID

	// Payload is an opaque delta applied by
	// page.CopyTupleFromUndoRecord to reconstruct the prior tuple image.
	// It is nil for InvalidXactSlot records, which carry no tuple image
	// by definition.
	Payload []byte

	// slot records which transaction slot wrote this record; it is
	// copied onto the materialized prior tuple by CopyTupleFromUndoRecord
	// so the walker can detect slot switches (spec.md invariant 2).
	Slot int32

	// InvalidSlot marks that the historical tuple image this record
	// reconstructs had, by the time of that image, already had its own
	// transaction slot invalidated by reuse (spec.md invariant 3). It is
	// independent of Type: an INPLACE_UPDATE/UPDATE/XID_LOCK_ONLY record
	// can describe an image whose slot was later reused, just as a DELETE
	// one can. CopyTupleFromUndoRecord ORs this into the materialized
	// tuple's infomask alongside the Type-derived flag.
	InvalidSlot bool

	// ownerXid is not set or read by any Store or Reader. The xid that
	// was current when a record was appended travels beside the record
	// instead: as Store.Append's ownerXid argument and Store.Read's
	// second result, which Reader.Fetch compares against the caller's
	// expected_prev_xid to detect a slot having been reused out from
	// under an in-flight chain walk (spec.md §4.B).
	ownerXid xid.XID
}
