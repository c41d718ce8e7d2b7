package undo

import (
	"testing"

	"github.com/houjibofa/zheap/tid"
)

func TestReaderFetchOk(t *testing.T) {
	store := NewMemoryStore()
	self := tid.TID{Block: 3, Offset: 1}
	rec := Record{Type: Delete, PrevXid: 7, Self: self}
	ptr, _ := store.Append(rec, 7)

	r := NewReader(store)
	got, err := r.Fetch(ptr, self, 7)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got.Type != Delete {
		t.Errorf("got Type=%v, want Delete", got.Type)
	}
}

func TestReaderFetchInvalidPtr(t *testing.T) {
	r := NewReader(NewMemoryStore())
	_, err := r.Fetch(Invalid, tid.TID{}, 0)
	if err != ErrDiscarded {
		t.Errorf("err = %v, want ErrDiscarded", err)
	}
}

func TestReaderFetchSlotReuse(t *testing.T) {
	store := NewMemoryStore()
	self := tid.TID{Block: 1, Offset: 1}
	ptr, _ := store.Append(Record{Type: Delete, Self: self}, 5)

	r := NewReader(store)
	// expectedPrevXid (99) does not match the record's true owner (5):
	// the slot was reused by a different transaction than the walker
	// expected.
	got, err := r.Fetch(ptr, self, 99)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if got.Type != InvalidXactSlot {
		t.Errorf("got Type=%v, want InvalidXactSlot on owner mismatch", got.Type)
	}
	if got.PrevXid != 5 {
		t.Errorf("synthesized record should carry the true owner xid, got %d", got.PrevXid)
	}
}

func TestReaderFetchDiscarded(t *testing.T) {
	store := NewMemoryStore()
	ptr, _ := store.Append(Record{Type: Delete}, 1)
	store.discards[ptr.Segment] = true

	r := NewReader(store)
	if _, err := r.Fetch(ptr, tid.TID{}, 1); err != ErrDiscarded {
		t.Errorf("err = %v, want ErrDiscarded", err)
	}
}
