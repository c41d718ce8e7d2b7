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

// Package xact provides the transaction oracle (component A of the
// visibility core): answering whether an xid is current, in-progress,
// committed, or precedes some horizon, plus the MVCC snapshot type.
package xact

import "github.com/houjibofa/zheap/xid"

// Snapshot is the visible-set specification a predicate evaluates
// against: the calling transaction's current command id and the set of
// xids that were in-flight when the snapshot was taken.
type Snapshot struct {
	CurCid xid.CID

	// InFlight holds the xids that had not yet committed when this
	// snapshot was taken; XidInSnapshot consults it via Oracle.
	InFlight map[xid.XID]struct{}

	// Xmin/Xmax are output slots written by SatisfiesDirty. Zero value
	// (xid.Invalid) means "not set".
	Xmin xid.XID
	Xmax xid.XID

	// SpeculativeToken is reset to 0 by SatisfiesDirty on entry; it
	// exists purely so callers that track speculative insertion tokens
	// (not modeled further here) have somewhere to read it from.
	SpeculativeToken uint64
}

// NewSnapshot creates a snapshot with the given curcid and in-flight
// set. A nil inFlight is treated as "nothing in flight".
func NewSnapshot(curcid xid.CID, inFlight []xid.XID) Snapshot {
	m := make(map[xid.XID]struct{}, len(inFlight))
	for _, x := range inFlight {
		m[x] = struct{}{}
	}
	return Snapshot{CurCid: curcid, InFlight: m}
}

// contains reports whether x was in-flight at snapshot time.
func (s Snapshot) contains(x xid.XID) bool {
	_, ok := s.InFlight[x]
	return ok
}
