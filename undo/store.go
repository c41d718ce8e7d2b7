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
package undo

import "github.com/houjibofa/zheap/xid"

// Store is the external undo-log persistence interface. It is out of
// the visibility core's scope (spec.md §1 "out of scope: the undo log
// storage") but something has to implement it for the module to run;
// this mirrors the teacher's PersistenceEngine split between an
// interface (storage/persistence.go) and several concrete backends
// (storage/persistence-files.go, -s3.go, -ceph.go).
//
// Segments are append-only and identified by a uuid so they can rotate
// and, for remote backends, be distributed without a shared offset
// counter.
type Store interface {
	// Append writes rec as the next record in whichever segment is
	// currently open for writing and returns the Ptr it was written at.
	// ownerXid is the xid performing the operation this record reverses
	// (the "current" xid at write time); Reader uses it for the
	// expected_prev_xid continuity check.
	Append(rec Record, ownerXid xid.XID) (Ptr, error)

	// Read returns the record at ptr and the xid that owned it at write
	// time, or ErrDiscarded if ptr's segment has been truncated, or
	// ErrNotFound if ptr was never written by this store. MemoryStore
	// also reports ErrNotFound for a record its DiscardBefore deleted.
	Read(ptr Ptr) (Record, xid.XID, error)

	// DiscardBefore is the mechanical act a separate vacuum/truncation
	// policy would trigger; no truncation decision is made here.
	// MemoryStore deletes each record whose owner xid precedes horizon.
	// FileStore, S3Store and CephStore drop every sealed segment whole
	// and keep the open one, without comparing horizon against the
	// records a segment holds. No store rewrites a segment in place.
	DiscardBefore(horizon xid.XID) error

	// Close releases any resources (file handles, network clients,
	// watchers) held by the store.
	Close() error
}
