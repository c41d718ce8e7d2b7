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

// The zundoctl REPL drives a single synthetic page against the
// visibility core, standing in for the buffer manager / scan executors
// spec.md §1 treats as out-of-scope collaborators.
package main

import (
	"fmt"
	"sync"

	"github.com/houjibofa/zheap/page"
	"github.com/houjibofa/zheap/tid"
	"github.com/houjibofa/zheap/undo"
	"github.com/houjibofa/zheap/visibility"
	"github.com/houjibofa/zheap/xact"
	"github.com/houjibofa/zheap/xid"
)

// Engine holds one synthetic page (an Opaque slot table and its
// tuples), the undo store backing it, and the oracle/walker the REPL
// runs commands against. Everything the buffer manager would own in a
// real engine is flattened into this one struct for demo purposes.
type Engine struct {
	mu sync.Mutex

	Oracle *xact.MemoryOracle
	Store  undo.Store
	Reader undo.Reader
	Walker *visibility.Walker

	op     page.Opaque
	tuples map[tid.TID]page.Tuple

	currentXid xid.XID
	nextBlock  uint32
	nextCid    xid.CID
}

// NewEngine wires a fresh in-memory undo store and oracle, matching the
// REPL demo default SPEC_FULL.md §3 calls out ("an in-memory store
// (tests, the REPL demo default)").
func NewEngine() *Engine {
	oracle := xact.NewMemoryOracle()
	store := undo.NewMemoryStore()
	reader := undo.NewReader(store)
	return &Engine{
		Oracle: oracle,
		Store:  store,
		Reader: reader,
		Walker: visibility.NewWalker(reader, oracle),
		tuples: make(map[tid.TID]page.Tuple),
	}
}

// Run executes fn with the engine's current transaction bound as the
// calling goroutine's own (xact.WithCurrentTransaction), so
// Oracle.IsCurrent reflects whatever `begin` last produced — re-bound on
// every REPL line since gls context does not otherwise persist across
// separate top-level calls.
func (e *Engine) Run(fn func() string) string {
	var out string
	xact.WithCurrentTransaction(e.currentXid, func() {
		out = fn()
	})
	return out
}

func (e *Engine) Begin() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.currentXid = e.Oracle.Begin()
	return fmt.Sprintf("began xid=%d", e.currentXid)
}

func (e *Engine) Commit() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.currentXid.IsValid() {
		return "no open transaction"
	}
	e.Oracle.Commit(e.currentXid)
	out := fmt.Sprintf("committed xid=%d", e.currentXid)
	e.currentXid = xid.Invalid
	return out
}

func (e *Engine) Abort() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.currentXid.IsValid() {
		return "no open transaction"
	}
	e.Oracle.Abort(e.currentXid)
	out := fmt.Sprintf("aborted xid=%d", e.currentXid)
	e.currentXid = xid.Invalid
	return out
}

func (e *Engine) Horizon(h xid.XID) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Oracle.AdvanceHorizon(h)
	return fmt.Sprintf("RecentGlobalXmin advanced to %d", e.Oracle.Horizon())
}

// newSlot appends a fresh, invalid slot entry and returns its index.
func (e *Engine) newSlot() int32 {
	e.op.Slots = append(e.op.Slots, page.SlotEntry{})
	return int32(len(e.op.Slots) - 1)
}

// Insert creates a fresh root tuple owned by the current transaction.
func (e *Engine) Insert(payload string) (tid.TID, string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.currentXid.IsValid() {
		return tid.Invalid, "no open transaction: run begin first"
	}
	self := tid.TID{Block: e.nextBlock, Offset: 1}
	e.nextBlock++
	slot := e.newSlot()
	e.op.Slots[slot] = page.SlotEntry{Xid: e.currentXid}
	cid := e.nextCid
	e.nextCid++
	tup := page.Tuple{SlotID: slot, Cid: cid, Self: self, Payload: []byte(payload)}
	e.tuples[self] = tup
	return self, fmt.Sprintf("inserted %s slot=%d xid=%d cid=%d", self, slot, e.currentXid, cid)
}

// InPlaceUpdate mutates t's payload without moving it: the current
// on-page image is replaced, and the image being overwritten is pushed
// onto the undo chain as an INPLACE_UPDATE record (spec.md §3 data
// model).
func (e *Engine) InPlaceUpdate(self tid.TID, payload string) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.currentXid.IsValid() {
		return "no open transaction: run begin first"
	}
	tup, ok := e.tuples[self]
	if !ok {
		return "no such tuple"
	}
	entry, ok := e.op.Entry(tup.SlotID)
	if !ok {
		return "tuple's slot is frozen or invalid"
	}
	rec := undo.Record{
		Type:    undo.InplaceUpdate,
		PrevXid: entry.Xid,
		PrevCid: tup.Cid,
		BlkPrev: entry.UndoPtr,
		Self:    self,
		Payload: tup.Payload,
		Slot:    tup.SlotID,
	}
	ptr, err := e.Store.Append(rec, e.currentXid)
	if err != nil {
		return fmt.Sprintf("undo append failed: %v", err)
	}
	e.op.Slots[tup.SlotID] = page.SlotEntry{Xid: e.currentXid, UndoPtr: ptr}
	cid := e.nextCid
	e.nextCid++
	tup.Cid = cid
	tup.Payload = []byte(payload)
	tup.Infomask |= page.InplaceUpdated
	e.tuples[self] = tup
	return fmt.Sprintf("in-place updated %s xid=%d cid=%d", self, e.currentXid, cid)
}

// Delete marks t deleted: the pre-delete image is pushed onto undo as a
// DELETE record and the live tuple gains the Deleted flag.
func (e *Engine) Delete(self tid.TID) string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.currentXid.IsValid() {
		return "no open transaction: run begin first"
	}
	tup, ok := e.tuples[self]
	if !ok {
		return "no such tuple"
	}
	entry, ok := e.op.Entry(tup.SlotID)
	if !ok {
		return "tuple's slot is frozen or invalid"
	}
	rec := undo.Record{
		Type:    undo.Delete,
		PrevXid: entry.Xid,
		PrevCid: tup.Cid,
		BlkPrev: entry.UndoPtr,
		Self:    self,
		Payload: tup.Payload,
		Slot:    tup.SlotID,
	}
	ptr, err := e.Store.Append(rec, e.currentXid)
	if err != nil {
		return fmt.Sprintf("undo append failed: %v", err)
	}
	e.op.Slots[tup.SlotID] = page.SlotEntry{Xid: e.currentXid, UndoPtr: ptr}
	cid := e.nextCid
	e.nextCid++
	tup.Cid = cid
	tup.Infomask |= page.Deleted
	e.tuples[self] = tup
	return fmt.Sprintf("deleted %s xid=%d cid=%d", self, e.currentXid, cid)
}

// Move performs a non-in-place update: the row's logical content moves
// to a fresh (block, offset), and the original slot gains the Updated
// flag plus a ctid pointing at the new location (spec.md §3 "UPDATE
// payload carries the new-location pointer").
func (e *Engine) Move(self tid.TID, payload string) (tid.TID, string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.currentXid.IsValid() {
		return tid.Invalid, "no open transaction: run begin first"
	}
	tup, ok := e.tuples[self]
	if !ok {
		return tid.Invalid, "no such tuple"
	}
	entry, ok := e.op.Entry(tup.SlotID)
	if !ok {
		return tid.Invalid, "tuple's slot is frozen or invalid"
	}
	newSelf := tid.TID{Block: e.nextBlock, Offset: 1}
	e.nextBlock++
	newSlot := e.newSlot()
	e.op.Slots[newSlot] = page.SlotEntry{Xid: e.currentXid}
	newCid := e.nextCid
	e.nextCid++
	newTup := page.Tuple{SlotID: newSlot, Cid: newCid, Self: newSelf, Payload: []byte(payload)}
	e.tuples[newSelf] = newTup

	rec := undo.Record{
		Type:    undo.Update,
		PrevXid: entry.Xid,
		PrevCid: tup.Cid,
		BlkPrev: entry.UndoPtr,
		Self:    self,
		Payload: tup.Payload,
		Ctid:    newSelf,
		Slot:    tup.SlotID,
	}
	ptr, err := e.Store.Append(rec, e.currentXid)
	if err != nil {
		return tid.Invalid, fmt.Sprintf("undo append failed: %v", err)
	}
	e.op.Slots[tup.SlotID] = page.SlotEntry{Xid: e.currentXid, UndoPtr: ptr}
	cid := e.nextCid
	e.nextCid++
	tup.Cid = cid
	tup.Infomask |= page.Updated
	tup.Ctid = newSelf
	e.tuples[self] = tup
	return newSelf, fmt.Sprintf("moved %s -> %s xid=%d", self, newSelf, e.currentXid)
}

// Describe runs all six visibility predicates against t under a
// snapshot built from the engine's current transaction and returns a
// human-readable report for the REPL.
func (e *Engine) Describe(self tid.TID) string {
	e.mu.Lock()
	tup, ok := e.tuples[self]
	op := e.op
	e.mu.Unlock()
	if !ok {
		return "no such tuple"
	}

	snapshot := xact.Snapshot{CurCid: e.nextCid}
	mvcc := e.Walker.SatisfiesMVCC(tup, op, snapshot)
	any := e.Walker.SatisfiesAny(tup)
	dirty, dirtyCtid := e.Walker.SatisfiesDirty(tup, op, &snapshot)
	update, upXid, upCid, upCtid, inPlace := e.Walker.SatisfiesUpdate(tup, op, e.nextCid, snapshot, false)
	oldest := e.Walker.SatisfiesOldestXmin(tup, op, e.Oracle.Horizon())
	surelyDead := e.Walker.IsSurelyDead(tup, op, e.Oracle.Horizon())

	return fmt.Sprintf(
		"%s infomask=%v\n  MVCC:        %s\n  Any:         %s\n  Dirty:       %s (xmin=%d xmax=%d ctid=%s)\n  Update:      %v (xid=%d cid=%d ctid=%s inPlaceOrLocked=%v)\n  OldestXmin:  %v\n  SurelyDead:  %v",
		self, tup.Infomask,
		describeTuple(mvcc), describeTuple(any), describeTuple(dirty), snapshot.Xmin, snapshot.Xmax, dirtyCtid,
		update, upXid, upCid, upCtid, inPlace,
		oldest, surelyDead,
	)
}

func describeTuple(t *page.Tuple) string {
	if t == nil {
		return "<invisible>"
	}
	return fmt.Sprintf("visible payload=%q", string(t.Payload))
}
