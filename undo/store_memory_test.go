package undo

import (
	"testing"

	"github.com/google/uuid"

	"github.com/houjibofa/zheap/tid"
)

func TestMemoryStoreAppendRead(t *testing.T) {
	s := NewMemoryStore()
	rec := Record{Type: Delete, PrevXid: 5, Self: tid.TID{Block: 1, Offset: 2}}
	ptr, err := s.Append(rec, 10)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	got, owner, err := s.Read(ptr)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if owner != 10 {
		t.Errorf("owner = %d, want 10", owner)
	}
	if got.Type != Delete || got.PrevXid != 5 {
		t.Errorf("got %+v, want Type=Delete PrevXid=5", got)
	}
}

func TestMemoryStoreReadMissing(t *testing.T) {
	s := NewMemoryStore()
	_, _, err := s.Read(Ptr{Segment: s.segment, Offset: 99})
	if err != ErrNotFound {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreDiscardBefore(t *testing.T) {
	s := NewMemoryStore()
	oldPtr, _ := s.Append(Record{Type: Delete}, 1)
	newPtr, _ := s.Append(Record{Type: Delete}, 100)

	if err := s.DiscardBefore(50); err != nil {
		t.Fatalf("DiscardBefore: %v", err)
	}
	if _, _, err := s.Read(oldPtr); err != ErrNotFound {
		t.Errorf("old record err = %v, want ErrNotFound (deleted, not a whole-segment discard)", err)
	}
	if _, _, err := s.Read(newPtr); err != nil {
		t.Errorf("new record should survive: %v", err)
	}
}

func TestMemoryStoreRotate(t *testing.T) {
	s := NewMemoryStore()
	ptr1, _ := s.Append(Record{Type: Delete}, 1)
	sealed := s.Rotate()
	if sealed != ptr1.Segment {
		t.Errorf("Rotate returned %s, want sealed segment %s", sealed, ptr1.Segment)
	}
	ptr2, _ := s.Append(Record{Type: Delete}, 2)
	if ptr2.Segment == ptr1.Segment {
		t.Error("expected a new segment id after Rotate")
	}
	if _, _, err := s.Read(ptr1); err != nil {
		t.Errorf("records in the sealed segment should still read until discarded: %v", err)
	}
}

func TestMemoryStoreDiscardedSegment(t *testing.T) {
	s := NewMemoryStore()
	ptr, _ := s.Append(Record{Type: Delete}, 1)
	s.discards[ptr.Segment] = true
	if _, _, err := s.Read(ptr); err != ErrDiscarded {
		t.Errorf("err = %v, want ErrDiscarded", err)
	}
}

func TestPtrValidAndOrdering(t *testing.T) {
	if Invalid.Valid() {
		t.Error("zero Ptr must not be valid")
	}
	seg := uuid.New()
	a := Ptr{Segment: seg, Offset: 1}
	b := Ptr{Segment: seg, Offset: 2}
	if !a.Less(b) || b.Less(a) {
		t.Error("same-segment Ptrs should order by Offset")
	}
	if !a.Valid() {
		t.Error("non-zero Ptr should be valid")
	}
}
