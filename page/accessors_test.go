package page

import (
	"testing"

	"github.com/houjibofa/zheap/tid"
	"github.com/houjibofa/zheap/undo"
	"github.com/houjibofa/zheap/xact"
)

func TestSlotFrozen(t *testing.T) {
	tup := Tuple{SlotID: FrozenSlot}
	id, frozen := Slot(tup)
	if !frozen || id != FrozenSlot {
		t.Errorf("Slot() = (%d, %v), want (FrozenSlot, true)", id, frozen)
	}
}

func TestRawXidNormal(t *testing.T) {
	op := Opaque{Slots: []SlotEntry{{Xid: 77}}}
	tup := Tuple{SlotID: 0}
	got, ok := RawXid(tup, op)
	if !ok || got != 77 {
		t.Errorf("RawXid = (%d, %v), want (77, true)", got, ok)
	}
}

func TestRawXidUndefinedOnInvalidSlot(t *testing.T) {
	op := Opaque{Slots: []SlotEntry{{Xid: 77}}}
	tup := Tuple{SlotID: 0, Infomask: InvalidXactSlot}
	_, ok := RawXid(tup, op)
	if ok {
		t.Error("RawXid should be undefined (ok=false) when InvalidXactSlot is set")
	}
}

func TestRawXidFrozenHasNoEntry(t *testing.T) {
	op := Opaque{Slots: []SlotEntry{{Xid: 77}}}
	tup := Tuple{SlotID: FrozenSlot}
	_, ok := RawXid(tup, op)
	if ok {
		t.Error("a frozen slot carries no xid")
	}
}

func TestGetCidOnlyForCurrentTransaction(t *testing.T) {
	oracle := xact.NewMemoryOracle()
	me := oracle.Begin()
	other := oracle.Begin()

	op := Opaque{Slots: []SlotEntry{{Xid: me}}}
	tup := Tuple{SlotID: 0, Cid: 9}

	xact.WithCurrentTransaction(me, func() {
		cid, ok := GetCid(tup, op, oracle)
		if !ok || cid != 9 {
			t.Errorf("GetCid for own transaction = (%d, %v), want (9, true)", cid, ok)
		}
	})

	op2 := Opaque{Slots: []SlotEntry{{Xid: other}}}
	xact.WithCurrentTransaction(me, func() {
		_, ok := GetCid(tup, op2, oracle)
		if ok {
			t.Error("GetCid should be invalid for a tuple owned by a different transaction")
		}
	})
}

func TestGetCtidForUpdatedTuple(t *testing.T) {
	store := undo.NewMemoryStore()
	self := tid.TID{Block: 1, Offset: 1}
	ptr, _ := store.Append(undo.Record{
		Type: undo.Update,
		Self: self,
		Ctid: tid.TID{Block: 5, Offset: 9},
	}, 1)
	reader := undo.NewReader(store)

	op := Opaque{Slots: []SlotEntry{{Xid: 1, UndoPtr: ptr}}}
	tup := Tuple{SlotID: 0, Infomask: Updated, Self: self}

	got, ok := GetCtid(tup, op, reader)
	if !ok {
		t.Fatal("GetCtid should succeed for an Updated tuple with an UPDATE undo record")
	}
	if got != (tid.TID{Block: 5, Offset: 9}) {
		t.Errorf("GetCtid = %s, want (5,9)", got)
	}
}

func TestGetCtidNotUpdated(t *testing.T) {
	reader := undo.NewReader(undo.NewMemoryStore())
	tup := Tuple{SlotID: 0}
	if _, ok := GetCtid(tup, Opaque{Slots: []SlotEntry{{}}}, reader); ok {
		t.Error("GetCtid should fail for a tuple that is not Updated")
	}
}

func TestCopyTupleFromUndoRecord(t *testing.T) {
	rec := undo.Record{
		Type:    undo.InplaceUpdate,
		Slot:    3,
		Payload: []byte("prior image"),
	}
	tup := CopyTupleFromUndoRecord(rec)
	if !tup.Infomask.Has(InplaceUpdated) {
		t.Error("expected InplaceUpdated flag on a materialized InplaceUpdate record")
	}
	if tup.SlotID != 3 {
		t.Errorf("SlotID = %d, want 3", tup.SlotID)
	}
	if string(tup.Payload) != "prior image" {
		t.Errorf("Payload = %q, want %q", tup.Payload, "prior image")
	}
}
