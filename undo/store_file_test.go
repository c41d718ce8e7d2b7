package undo

import (
	"testing"

	"github.com/houjibofa/zheap/tid"
)

func TestFileStoreAppendReadRoundTrip(t *testing.T) {
	s, err := NewFileStore(StoreConfig{Dir: t.TempDir()})
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	defer s.Close()

	rec := Record{
		Type:    Delete,
		PrevXid: 42,
		Self:    tid.TID{Block: 9, Offset: 3},
		Payload: []byte("hello undo"),
	}
	ptr, err := s.Append(rec, 42)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}

	got, owner, err := s.Read(ptr)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if owner != 42 || got.Type != Delete || string(got.Payload) != "hello undo" {
		t.Errorf("got %+v owner=%d, want matching round trip", got, owner)
	}
}

func TestFileStoreRotationAndColdCompression(t *testing.T) {
	s, err := NewFileStore(StoreConfig{
		Dir:             t.TempDir(),
		SegmentSize:     "1KB",
		ColdCompression: true,
	})
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	defer s.Close()

	payload := make([]byte, 256)
	var first Ptr
	for i := 0; i < 16; i++ {
		ptr, err := s.Append(Record{Type: Delete, Payload: payload}, 1)
		if err != nil {
			t.Fatalf("Append #%d: %v", i, err)
		}
		if i == 0 {
			first = ptr
		}
	}

	if first.Segment == s.segment {
		t.Skip("segment size threshold was not reached with this payload size on this run")
	}

	if _, _, err := s.Read(first); err != nil {
		t.Errorf("reading from a sealed, xz-recompressed segment should still work: %v", err)
	}
}

func TestFileStoreDiscardBefore(t *testing.T) {
	s, err := NewFileStore(StoreConfig{Dir: t.TempDir(), SegmentSize: "1KB"})
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	defer s.Close()

	payload := make([]byte, 256)
	var sealed Ptr
	for i := 0; i < 16; i++ {
		ptr, err := s.Append(Record{Type: Delete, Payload: payload}, 1)
		if err != nil {
			t.Fatalf("Append #%d: %v", i, err)
		}
		if ptr.Segment != s.segment && !sealed.Valid() {
			sealed = ptr
		}
	}
	if !sealed.Valid() {
		t.Skip("no segment was sealed with this payload size on this run")
	}

	if err := s.DiscardBefore(1000); err != nil {
		t.Fatalf("DiscardBefore: %v", err)
	}
	if _, _, err := s.Read(sealed); err != ErrDiscarded {
		t.Errorf("err = %v, want ErrDiscarded after DiscardBefore", err)
	}
}
