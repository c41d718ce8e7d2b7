package xid

import (
	"math"
	"testing"
)

func TestPrecedesBasic(t *testing.T) {
	cases := []struct {
		a, b XID
		want bool
	}{
		{10, 20, true},
		{20, 10, false},
		{10, 10, false},
		{0, 1, true},
	}
	for _, c := range cases {
		if got := c.a.Precedes(c.b); got != c.want {
			t.Errorf("%d.Precedes(%d) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}

func TestPrecedesWraparound(t *testing.T) {
	// a very old xid (near the top of the ring) still precedes a freshly
	// allocated low xid once the counter has wrapped.
	old := XID(math.MaxUint64 - 5)
	if !old.Precedes(10) {
		t.Errorf("expected wrapped xid %d to precede 10", old)
	}
	if XID(10).Precedes(old) {
		t.Errorf("did not expect 10 to precede wrapped xid %d", old)
	}
}

func TestFollowsIsInverse(t *testing.T) {
	if !XID(20).Follows(10) {
		t.Error("20 should follow 10")
	}
	if XID(10).Follows(20) {
		t.Error("10 should not follow 20")
	}
}

func TestPrecedesOrEquals(t *testing.T) {
	if !XID(5).PrecedesOrEquals(5) {
		t.Error("xid should precede-or-equal itself")
	}
	if !XID(5).PrecedesOrEquals(6) {
		t.Error("5 should precede-or-equal 6")
	}
	if XID(6).PrecedesOrEquals(5) {
		t.Error("6 should not precede-or-equal 5")
	}
}

func TestValidity(t *testing.T) {
	if Invalid.IsValid() {
		t.Error("Invalid must not be valid")
	}
	if !XID(42).IsValid() {
		t.Error("42 must be valid")
	}
	if InvalidCID.IsValid() {
		t.Error("InvalidCID must not be valid")
	}
	if !CID(0).IsValid() {
		t.Error("cid 0 must be valid (first command)")
	}
}
