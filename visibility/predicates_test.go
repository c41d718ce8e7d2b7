package visibility

import (
	"reflect"
	"testing"

	"github.com/houjibofa/zheap/page"
	"github.com/houjibofa/zheap/tid"
	"github.com/houjibofa/zheap/undo"
	"github.com/houjibofa/zheap/xact"
	"github.com/houjibofa/zheap/xid"
)

// newFixture builds a fresh oracle/store/walker triple with the given
// horizon, grounded on the same MemoryOracle/MemoryStore used by the
// undo and xact package tests.
func newFixture(horizon xid.XID) (*xact.MemoryOracle, *undo.MemoryStore, *Walker) {
	oracle := xact.NewMemoryOracle()
	oracle.AdvanceHorizon(horizon)
	store := undo.NewMemoryStore()
	w := NewWalker(undo.NewReader(store), oracle)
	return oracle, store, w
}

// --- spec.md §8 scenario 1 --------------------------------------------
// Tuple (xid=5, slot=2, INPLACE_UPDATED); xid precedes the horizon, so
// SatisfiesMVCC must return the current image without consulting undo
// at all.
func TestScenario1HorizonShortcut(t *testing.T) {
	_, _, w := newFixture(10)
	op := page.Opaque{Slots: make([]page.SlotEntry, 3)}
	op.Slots[2] = page.SlotEntry{Xid: 5}
	tup := page.Tuple{SlotID: 2, Infomask: page.InplaceUpdated}

	got := w.SatisfiesMVCC(tup, op, xact.Snapshot{})
	if got == nil {
		t.Fatal("expected current image, got nil")
	}
	if got.SlotID != tup.SlotID {
		t.Errorf("expected the unmodified current tuple, got a different image")
	}
}

// --- spec.md §8 scenario 2 --------------------------------------------
// Tuple (xid=50, slot=2, INPLACE_UPDATED, cid=3) is in-flight at
// snapshot time; its undo chain points to a prior root-insert version
// at xid=5, which precedes the horizon and is therefore all-visible.
// SatisfiesMVCC must walk the chain and return that prior image.
func TestScenario2WalksToVisiblePriorInsert(t *testing.T) {
	_, store, w := newFixture(10)
	self := tid.TID{Block: 1, Offset: 1}

	priorPtr, err := store.Append(undo.Record{
		Type:    undo.Delete, // materializes to classRoot: the original insert
		PrevXid: 5,
		PrevCid: 0,
		BlkPrev: undo.Invalid,
		Self:    self,
		Slot:    2,
	}, 50)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}

	op := page.Opaque{Slots: make([]page.SlotEntry, 3)}
	op.Slots[2] = page.SlotEntry{Xid: 50, UndoPtr: priorPtr}
	tup := page.Tuple{SlotID: 2, Infomask: page.InplaceUpdated, Cid: 3, Self: self}
	snapshot := xact.NewSnapshot(5, []xid.XID{50})

	got := w.SatisfiesMVCC(tup, op, snapshot)
	if got == nil {
		t.Fatal("expected walker to reconstruct the prior insert image, got nil")
	}
	if got.Infomask.Has(page.InplaceUpdated) {
		t.Error("the reconstructed prior image should be a plain root insert, not in-place-updated")
	}
}

// --- spec.md §8 scenario 3 --------------------------------------------
// A tuple deleted by the current transaction with cid >= curcid: the
// delete postdates the scan, so MVCC must recover the pre-delete image
// and Update must report SelfUpdated.
func TestScenario3SelfDeleteAfterCurcid(t *testing.T) {
	_, store, w := newFixture(10)
	me := xid.XID(200)
	self := tid.TID{Block: 4, Offset: 2}

	priorPtr, _ := store.Append(undo.Record{
		Type:    undo.Delete,
		PrevXid: 5, // precedes horizon: unconditionally visible once reached
		Self:    self,
		Slot:    2,
	}, me)

	op := page.Opaque{Slots: make([]page.SlotEntry, 3)}
	op.Slots[2] = page.SlotEntry{Xid: me, UndoPtr: priorPtr}
	tup := page.Tuple{SlotID: 2, Infomask: page.Deleted, Cid: 7, Self: self}
	snapshot := xact.Snapshot{CurCid: 5}

	xact.WithCurrentTransaction(me, func() {
		got := w.SatisfiesMVCC(tup, op, snapshot)
		if got == nil {
			t.Fatal("expected MVCC to reconstruct the pre-delete image")
		}

		result, _, _, _, _ := w.SatisfiesUpdate(tup, op, 5, snapshot, false)
		if result != SelfUpdated {
			t.Errorf("SatisfiesUpdate = %v, want SelfUpdated", result)
		}
	})
}

// --- spec.md §8 scenario 4 --------------------------------------------
// The same shape, but cid < curcid: the delete predates the scan, so
// the tuple is simply gone — no undo walk needed.
func TestScenario4SelfDeleteBeforeCurcid(t *testing.T) {
	_, _, w := newFixture(10)
	me := xid.XID(200)
	self := tid.TID{Block: 4, Offset: 3}

	op := page.Opaque{Slots: make([]page.SlotEntry, 3)}
	op.Slots[2] = page.SlotEntry{Xid: me}
	tup := page.Tuple{SlotID: 2, Infomask: page.Deleted, Cid: 3, Self: self}
	snapshot := xact.Snapshot{CurCid: 5}

	xact.WithCurrentTransaction(me, func() {
		if got := w.SatisfiesMVCC(tup, op, snapshot); got != nil {
			t.Error("expected nil: the delete predates the scan")
		}
		result, _, _, _, _ := w.SatisfiesUpdate(tup, op, 5, snapshot, false)
		if result != Invisible {
			t.Errorf("SatisfiesUpdate = %v, want Invisible", result)
		}
	})
}

// --- spec.md §8 scenario 5 --------------------------------------------
// A tuple with INVALID_XACT_SLOT set must resolve its true identity by
// walking invalid-slot header records before any snapshot check: R1
// (INVALID_XACT_SLOT, prev_xid=70) -> R2 (INPLACE_UPDATE, prev_xid=60)
// -> R3 (INVALID_XACT_SLOT, prev_xid=60). Identity resolution stops at
// R1 and yields xid=70; 70 is committed, so MVCC returns the current
// image.
func TestScenario5InvalidSlotIdentityResolution(t *testing.T) {
	oracle, store, w := newFixture(10)
	self := tid.TID{Block: 7, Offset: 1}

	r3Ptr, _ := store.Append(undo.Record{
		Type: undo.InvalidXactSlot, PrevXid: 60, BlkPrev: undo.Invalid, Self: self,
	}, 60)
	r2Ptr, _ := store.Append(undo.Record{
		Type: undo.InplaceUpdate, PrevXid: 60, BlkPrev: r3Ptr, Self: self, Slot: 2,
	}, 70)
	r1Ptr, _ := store.Append(undo.Record{
		Type: undo.InvalidXactSlot, PrevXid: 70, BlkPrev: r2Ptr, Self: self,
	}, 70)

	oracle.Commit(70)

	op := page.Opaque{Slots: make([]page.SlotEntry, 3)}
	op.Slots[2] = page.SlotEntry{Xid: 0, UndoPtr: r1Ptr}
	tup := page.Tuple{SlotID: 2, Infomask: page.InvalidXactSlot | page.InplaceUpdated, Self: self}

	got := w.SatisfiesMVCC(tup, op, xact.Snapshot{CurCid: 1})
	if got == nil {
		t.Fatal("expected the current image once identity resolves to a committed xid")
	}
}

// --- spec.md §8 scenario 6 --------------------------------------------
// A committed non-in-place update: MVCC must return nil (the row
// moved), and SatisfiesUpdate must report Updated with ctid populated
// from the UPDATE undo record's payload.
func TestScenario6CommittedNonInPlaceUpdate(t *testing.T) {
	oracle, store, w := newFixture(10)
	self := tid.TID{Block: 3, Offset: 9}
	movedTo := tid.TID{Block: 5, Offset: 9}

	ptr, _ := store.Append(undo.Record{
		Type: undo.Update, PrevXid: 60, Self: self, Ctid: movedTo,
	}, 80)
	oracle.Commit(80)

	op := page.Opaque{Slots: make([]page.SlotEntry, 3)}
	op.Slots[2] = page.SlotEntry{Xid: 80, UndoPtr: ptr}
	tup := page.Tuple{SlotID: 2, Infomask: page.Updated, Self: self}

	if got := w.SatisfiesMVCC(tup, op, xact.Snapshot{}); got != nil {
		t.Error("expected nil: the row was moved by a committed update")
	}

	result, _, _, ctid, _ := w.SatisfiesUpdate(tup, op, 0, xact.Snapshot{}, false)
	if result != Updated {
		t.Errorf("SatisfiesUpdate = %v, want Updated", result)
	}
	if ctid != movedTo {
		t.Errorf("ctid = %s, want %s", ctid, movedTo)
	}
}

// --- §8 property 1: frozen implies visible ------------------------------
func TestPropertyFrozenImpliesVisible(t *testing.T) {
	_, _, w := newFixture(10)
	op := page.Opaque{}
	tup := page.Tuple{SlotID: page.FrozenSlot, Infomask: page.InplaceUpdated}
	snap := xact.Snapshot{CurCid: 1}

	if w.SatisfiesMVCC(tup, op, snap) == nil {
		t.Error("frozen tuple must be MVCC-visible")
	}
	dirtySnap := xact.Snapshot{}
	if got, _ := w.SatisfiesDirty(tup, op, &dirtySnap); got == nil {
		t.Error("frozen tuple must be Dirty-visible")
	}
	if w.SatisfiesAny(tup) == nil {
		t.Error("frozen tuple must be Any-visible")
	}
}

// --- §8 property 2: horizon implies visible -----------------------------
func TestPropertyHorizonImpliesVisible(t *testing.T) {
	_, _, w := newFixture(100)
	op := page.Opaque{Slots: make([]page.SlotEntry, 1)}
	op.Slots[0] = page.SlotEntry{Xid: 50}
	snap := xact.Snapshot{CurCid: 1}

	insert := page.Tuple{SlotID: 0}
	if got := w.SatisfiesMVCC(insert, op, snap); got == nil {
		t.Error("an insert older than the horizon must be visible")
	}

	deleted := page.Tuple{SlotID: 0, Infomask: page.Deleted}
	if got := w.SatisfiesMVCC(deleted, op, snap); got != nil {
		t.Error("a delete older than the horizon must be invisible")
	}
}

// --- §8 property 3/4: self-transaction cid comparisons ------------------
func TestPropertySelfTransactionCidOrdering(t *testing.T) {
	_, store, w := newFixture(10)
	me := xid.XID(200)
	self := tid.TID{Block: 1, Offset: 1}

	priorPtr, _ := store.Append(undo.Record{
		Type: undo.Delete, PrevXid: 5, Self: self,
	}, me)

	op := page.Opaque{Slots: make([]page.SlotEntry, 1)}
	op.Slots[0] = page.SlotEntry{Xid: me, UndoPtr: priorPtr}

	xact.WithCurrentTransaction(me, func() {
		// cid < curcid: see the new (in-place-updated) image directly.
		before := page.Tuple{SlotID: 0, Infomask: page.InplaceUpdated, Cid: 2, Self: self}
		got := w.SatisfiesMVCC(before, op, xact.Snapshot{CurCid: 5})
		if got == nil || !got.Infomask.Has(page.InplaceUpdated) {
			t.Error("cid < curcid should return the new image unmodified")
		}

		// cid >= curcid: reconstruct the prior image via undo.
		after := page.Tuple{SlotID: 0, Infomask: page.InplaceUpdated, Cid: 7, Self: self}
		got = w.SatisfiesMVCC(after, op, xact.Snapshot{CurCid: 5})
		if got == nil {
			t.Fatal("cid >= curcid should reconstruct a prior image, got nil")
		}

		// The self-insert analog: cid >= curcid on one's own insert is
		// invisible (inserted after the scan started).
		ownInsert := page.Tuple{SlotID: 0, Cid: 7, Self: self}
		if got := w.SatisfiesMVCC(ownInsert, op, xact.Snapshot{CurCid: 5}); got != nil {
			t.Error("an own-insert with cid >= curcid must be invisible")
		}
	})
}

// --- §8 property 6: slot-switch soundness -------------------------------
// When a chain step crosses to a new slot, the next fetch must use that
// slot's own undo pointer, not the record's blkprev.
func TestPropertySlotSwitchUsesSlotPointer(t *testing.T) {
	oracle, store, w := newFixture(10)
	self := tid.TID{Block: 2, Offset: 2}

	// The true prior version, reachable only through slot 3's pointer.
	// Slot matches the step record's slot (3) so no further slot-switch
	// is triggered when this frame is materialized in turn.
	truePriorPtr, _ := store.Append(undo.Record{
		Type: undo.Delete, PrevXid: 5, Self: self, Slot: 3,
	}, 60)
	// A decoy that blkprev would lead to if slot-switch handling were
	// broken and the record's blkprev were followed instead.
	decoyPtr, _ := store.Append(undo.Record{
		Type: undo.Delete, PrevXid: 999, Self: self,
	}, 999)

	stepPtr, _ := store.Append(undo.Record{
		Type: undo.InplaceUpdate, PrevXid: 60, BlkPrev: decoyPtr, Self: self, Slot: 3,
	}, 70)

	op := page.Opaque{Slots: make([]page.SlotEntry, 4)}
	op.Slots[2] = page.SlotEntry{Xid: 70, UndoPtr: stepPtr}
	op.Slots[3] = page.SlotEntry{Xid: 60, UndoPtr: truePriorPtr}

	oracle.Commit(70)
	oracle.AdvanceHorizon(10)

	tup := page.Tuple{SlotID: 2, Infomask: page.InplaceUpdated, Self: self}
	got := w.GetFromUndo(op.Slots[2].UndoPtr, tup, op, xact.Snapshot{CurCid: 1}, xid.Invalid)
	if got == nil {
		t.Fatal("expected a reconstructed image")
	}
	// Following blkprev into the decoy (owner xid 999, never committed)
	// would dead-end in an Aborted/recurse loop that never reaches the
	// true root image at xid 5.
	if got.Infomask.Has(page.InplaceUpdated) {
		t.Error("expected the walk to land on the true prior root image via the slot pointer, not the decoy")
	}
}

// --- §8 property 7: Any is identity -------------------------------------
func TestPropertyAnyIsIdentity(t *testing.T) {
	_, _, w := newFixture(10)
	tup := page.Tuple{SlotID: 5, Infomask: page.Deleted, Cid: 42}
	got := w.SatisfiesAny(tup)
	if got == nil || !reflect.DeepEqual(*got, tup) {
		t.Errorf("SatisfiesAny must return the tuple unchanged, got %+v", got)
	}
}

// --- §8 property 8: SurelyDead soundness --------------------------------
func TestPropertySurelyDeadImpliesMVCCNull(t *testing.T) {
	_, _, w := newFixture(10)
	op := page.Opaque{Slots: make([]page.SlotEntry, 1)}
	op.Slots[0] = page.SlotEntry{Xid: 5}
	tup := page.Tuple{SlotID: 0, Infomask: page.Deleted}

	if !w.IsSurelyDead(tup, op, 1000) {
		t.Fatal("expected IsSurelyDead to report true for a deleted tuple older than the horizon")
	}
	for _, curcid := range []xid.CID{0, 1, 1000} {
		if got := w.SatisfiesMVCC(tup, op, xact.Snapshot{CurCid: curcid}); got != nil {
			t.Errorf("IsSurelyDead=true but SatisfiesMVCC(curcid=%d) returned non-nil", curcid)
		}
	}
}

// --- SatisfiesDirty: in-progress insert sets snapshot.Xmin --------------
func TestSatisfiesDirtyInProgressInsertSetsXmin(t *testing.T) {
	// Dirty asks the oracle whether the xid is running right now, so the
	// inserter must be begun on the oracle; the low horizon keeps that
	// freshly allocated xid from preceding it.
	oracle, _, w := newFixture(2)
	other := oracle.Begin()
	op := page.Opaque{Slots: make([]page.SlotEntry, 1)}
	op.Slots[0] = page.SlotEntry{Xid: other}
	tup := page.Tuple{SlotID: 0}
	snap := xact.NewSnapshot(1, []xid.XID{other})

	got, _ := w.SatisfiesDirty(tup, op, &snap)
	if got == nil {
		t.Fatal("an in-progress insert is still visible to Dirty")
	}
	if snap.Xmin != other {
		t.Errorf("snapshot.Xmin = %d, want %d", snap.Xmin, other)
	}
	if snap.Xmax != xid.Invalid {
		t.Errorf("snapshot.Xmax should remain invalid, got %d", snap.Xmax)
	}
}

// --- SatisfiesDirty: in-progress delete sets snapshot.Xmax --------------
func TestSatisfiesDirtyInProgressDeleteSetsXmax(t *testing.T) {
	oracle, _, w := newFixture(10)
	other := oracle.Begin() // running right now, as Dirty's oracle check requires
	op := page.Opaque{Slots: make([]page.SlotEntry, 1)}
	op.Slots[0] = page.SlotEntry{Xid: other}
	tup := page.Tuple{SlotID: 0, Infomask: page.Deleted}
	snap := xact.NewSnapshot(1, []xid.XID{other})

	got, _ := w.SatisfiesDirty(tup, op, &snap)
	if got == nil {
		t.Fatal("an in-progress delete is still visible to Dirty (dirty read of the old row)")
	}
	if snap.Xmax != other {
		t.Errorf("snapshot.Xmax = %d, want %d", snap.Xmax, other)
	}
}

// --- SatisfiesOldestXmin classification ---------------------------------
func TestSatisfiesOldestXmin(t *testing.T) {
	// A low horizon so the freshly allocated in-progress xid (the first
	// one handed out, xid.FirstNormal) does not itself precede it.
	oracle, _, w := newFixture(2)
	oracle.Commit(20)
	inProgressXid := oracle.Begin()

	op := page.Opaque{Slots: make([]page.SlotEntry, 2)}
	op.Slots[0] = page.SlotEntry{Xid: 20}
	op.Slots[1] = page.SlotEntry{Xid: inProgressXid}

	recentlyDead := page.Tuple{SlotID: 0, Infomask: page.Deleted}
	// oldestXmin=15: 20 does not precede it, so the deleting xid might
	// still be needed by some open snapshot.
	if got := w.SatisfiesOldestXmin(recentlyDead, op, 15); got != RecentlyDead {
		t.Errorf("got %v, want RecentlyDead", got)
	}
	// oldestXmin=1000: 20 precedes it, so no open snapshot can still
	// need the pre-delete image.
	if got := w.SatisfiesOldestXmin(recentlyDead, op, 1000); got != Dead {
		t.Errorf("got %v, want Dead when oldestXmin has advanced past the deleting xid", got)
	}

	lockOnly := page.Tuple{SlotID: 0, Infomask: page.XidLockOnly}
	if got := w.SatisfiesOldestXmin(lockOnly, op, 1000); got != Live {
		t.Errorf("got %v, want Live for a lock-only tuple", got)
	}

	insertInProgress := page.Tuple{SlotID: 1}
	if got := w.SatisfiesOldestXmin(insertInProgress, op, 1000); got != InsertInProgress {
		t.Errorf("got %v, want InsertInProgress", got)
	}
}
