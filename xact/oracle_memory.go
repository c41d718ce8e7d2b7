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

import (
	"sync/atomic"

	"github.com/jtolds/gls"
	NonLockingReadMap "github.com/launix-de/NonLockingReadMap"

	"github.com/houjibofa/zheap/xid"
)

// mgr is the goroutine-local context manager carrying "which xid is the
// calling goroutine's own transaction". Grounded on the teacher's use of
// jtolds/gls (storage/partition.go, storage/scan.go) to label parallel
// scan workers; here the same library carries a different value down a
// goroutine's call stack instead of a worker label.
var mgr = gls.NewContextManager()

const currentXidKey = "zundo.currentXid"

// WithCurrentTransaction runs fn with x bound as the calling goroutine's
// current transaction id, so MemoryOracle.IsCurrent(x) reports true for
// the duration of fn (and for any goroutine spawned inside fn via
// gls.Go, mirroring the teacher's pattern).
func WithCurrentTransaction(x xid.XID, fn func()) {
	mgr.SetValues(gls.Values{currentXidKey: x}, fn)
}

// CurrentTransaction returns the xid bound by the innermost enclosing
// WithCurrentTransaction call, or xid.Invalid if none is bound.
func CurrentTransaction() xid.XID {
	if v, ok := mgr.GetValue(currentXidKey); ok {
		return v.(xid.XID)
	}
	return xid.Invalid
}

// MemoryOracle is the default, in-process Oracle. The committed and the
// in-progress sets are tracked with NonBlockingBitMap bitmaps (aborted
// is inferred as neither, per the Oracle contract) for O(1)
// concurrent-safe lookups — grounded on storage/transaction.go's
// shardOverlay bitmaps and storage/tables_catalog.go's direct bitmap
// use. xid allocation and the global horizon are sync/atomic counters,
// grounded on storage/transaction.go's txIDCounter/GlobalCommitEpoch.
//
// Like real PostgreSQL xids, transaction ids tracked by this oracle are
// assumed to fit in 32 bits (NonBlockingBitMap indexes by uint32); xid
// values above that range are a caller error.
type MemoryOracle struct {
	nextXid   uint64 // atomic
	horizon   uint64 // atomic: RecentGlobalXmin
	committed NonLockingReadMap.NonBlockingBitMap
	inProgres NonLockingReadMap.NonBlockingBitMap // currently running
}

// NewMemoryOracle creates an oracle whose first allocated xid is
// xid.FirstNormal.
func NewMemoryOracle() *MemoryOracle {
	return &MemoryOracle{nextXid: uint64(xid.FirstNormal), horizon: uint64(xid.FirstNormal)}
}

// Begin allocates a fresh xid and marks it in-progress.
func (o *MemoryOracle) Begin() xid.XID {
	x := xid.XID(atomic.AddUint64(&o.nextXid, 1) - 1)
	o.inProgres.Set(uint32(x), true)
	return x
}

// Commit marks x committed and no longer in progress.
func (o *MemoryOracle) Commit(x xid.XID) {
	o.committed.Set(uint32(x), true)
	o.inProgres.Set(uint32(x), false)
}

// Abort marks x as no longer in progress without recording it as
// committed; ClassifyInProgress will then report it as Aborted.
func (o *MemoryOracle) Abort(x xid.XID) {
	o.inProgres.Set(uint32(x), false)
}

// AdvanceHorizon raises RecentGlobalXmin to x if x is newer than the
// current horizon (never moves it backwards).
func (o *MemoryOracle) AdvanceHorizon(x xid.XID) {
	for {
		cur := atomic.LoadUint64(&o.horizon)
		if !xid.XID(cur).Precedes(x) {
			return
		}
		if atomic.CompareAndSwapUint64(&o.horizon, cur, uint64(x)) {
			return
		}
	}
}

func (o *MemoryOracle) IsCurrent(x xid.XID) bool {
	return x.IsValid() && x == CurrentTransaction()
}

func (o *MemoryOracle) IsInProgress(x xid.XID) bool {
	return o.inProgres.Get(uint32(x))
}

func (o *MemoryOracle) DidCommit(x xid.XID) bool {
	return o.committed.Get(uint32(x))
}

func (o *MemoryOracle) Precedes(x xid.XID, horizon xid.XID) bool {
	return x.Precedes(horizon)
}

func (o *MemoryOracle) XidInSnapshot(x xid.XID, s Snapshot) bool {
	return s.contains(x)
}

func (o *MemoryOracle) Horizon() xid.XID {
	return xid.XID(atomic.LoadUint64(&o.horizon))
}
