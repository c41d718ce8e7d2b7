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
package xact

import "github.com/houjibofa/zheap/xid"

// Oracle answers questions about transaction outcome. Implementations
// need not be linearizable across calls, only consistent within one
// predicate invocation (spec.md §4.A).
//
// Aborted status is never reported directly: callers infer "aborted" as
// "not current, not in-progress, not committed", exactly as spec.md
// prescribes, so that an oracle only has to track the positive outcomes.
type Oracle interface {
	// IsCurrent reports whether x is the xid of the calling goroutine's
	// own, still-open transaction.
	IsCurrent(x xid.XID) bool
	// IsInProgress reports whether x is open (running) right now.
	IsInProgress(x xid.XID) bool
	// DidCommit reports whether x committed.
	DidCommit(x xid.XID) bool
	// Precedes reports whether x precedes the given horizon.
	Precedes(x xid.XID, horizon xid.XID) bool
	// XidInSnapshot reports whether x would be deemed not-yet-visible
	// to snapshot s (i.e. x was in-flight when s was taken).
	XidInSnapshot(x xid.XID, s Snapshot) bool
	// Horizon returns the current RecentGlobalXmin: the smallest xid
	// any live snapshot may still care about.
	Horizon() xid.XID
}

// Outcome is the exhaustive sum-type view of a transaction's state,
// mirroring §9's "tagged variants over flag bitsets" design note.
// Predicates written in terms of Outcome read as an exhaustive match
// instead of a chain of oracle calls.
type Outcome int

const (
	Current Outcome = iota
	InProgress
	Committed
	Aborted
)

// ClassifyMVCC collapses the oracle predicates into one Outcome for xid
// x the way ztqual.c's ZHeapTupleSatisfiesMVCC/GetTupleFromUndo do: the
// in-progress check is answered purely by whether x was in-flight at
// snapshot time (XidInMVCCSnapshot), never by the oracle's live
// IsInProgress bit. Used by SatisfiesMVCC and the walker, whose job is
// to answer "visible as of this snapshot", not "visible right now".
func ClassifyMVCC(o Oracle, x xid.XID, s Snapshot) Outcome {
	switch {
	case o.IsCurrent(x):
		return Current
	case o.XidInSnapshot(x, s):
		return InProgress
	case o.DidCommit(x):
		return Committed
	default:
		return Aborted
	}
}

// ClassifyInProgress collapses the oracle predicates into one Outcome
// for xid x the way ztqual.c's ZHeapTupleSatisfiesUpdate/
// UndoTupleSatisfiesUpdate and ZHeapTupleSatisfiesDirty do: the
// in-progress check is answered purely by the oracle's live
// TransactionIdIsInProgress bit, never by a caller's snapshot. Used by
// SatisfiesUpdate, SatisfiesDirty and SatisfiesOldestXmin, whose job is
// to answer "visible right now", not "visible as of some snapshot
// taken earlier" — an xid that was in-flight when a caller's snapshot
// was captured but has since committed must classify as Committed, not
// InProgress.
func ClassifyInProgress(o Oracle, x xid.XID) Outcome {
	switch {
	case o.IsCurrent(x):
		return Current
	case o.IsInProgress(x):
		return InProgress
	case o.DidCommit(x):
		return Committed
	default:
		return Aborted
	}
}
