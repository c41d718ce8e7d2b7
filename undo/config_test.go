package undo

import "testing"

func TestSegmentSizeBytesDefault(t *testing.T) {
	c := StoreConfig{}
	n, err := c.segmentSizeBytes()
	if err != nil {
		t.Fatalf("segmentSizeBytes: %v", err)
	}
	if n != 64*1024*1024 {
		t.Errorf("default = %d, want 64MiB", n)
	}
}

func TestSegmentSizeBytesParsed(t *testing.T) {
	c := StoreConfig{SegmentSize: "128MB"}
	n, err := c.segmentSizeBytes()
	if err != nil {
		t.Fatalf("segmentSizeBytes: %v", err)
	}
	if n != 128*1000*1000 {
		t.Errorf("128MB = %d, want %d", n, 128*1000*1000)
	}
}

func TestSegmentSizeBytesInvalid(t *testing.T) {
	c := StoreConfig{SegmentSize: "not-a-size"}
	if _, err := c.segmentSizeBytes(); err == nil {
		t.Error("expected an error for an unparseable SegmentSize")
	}
}

func TestSegmentSizeBytesNonPositive(t *testing.T) {
	c := StoreConfig{SegmentSize: "0MB"}
	if _, err := c.segmentSizeBytes(); err == nil {
		t.Error("expected an error for a non-positive SegmentSize")
	}
}
