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
package undo

import (
	"github.com/houjibofa/zheap/tid"
	"github.com/houjibofa/zheap/xid"
	"github.com/houjibofa/zheap/zassert"
)

// Reader is component B of spec.md §4: the undo record fetch/release
// primitive the walker (package visibility) drives.
type Reader interface {
	// Fetch returns the record at ptr, or (nil, ErrDiscarded) if it has
	// been truncated below the global horizon. When expectedPrevXid is
	// valid, Fetch ensures the record still belongs to that xid's chain;
	// on mismatch (the slot was reused under the walker) it returns a
	// synthesized InvalidXactSlot boundary record rather than silently
	// returning the wrong tuple's data, satisfying the "signal via
	// INVALID_XACT_SLOT" half of spec.md §4.B's contract.
	Fetch(ptr Ptr, self tid.TID, expectedPrevXid xid.XID) (*Record, error)
	// Release returns r to the reader once the caller is done
	// inspecting it (spec.md §4.B, §5 lifetime contract).
	Release(r *Record)
}

// StoreReader adapts a Store into a Reader.
type StoreReader struct {
	store Store
}

// NewReader wraps store as a Reader.
func NewReader(store Store) *StoreReader {
	return &StoreReader{store: store}
}

func (r *StoreReader) Fetch(ptr Ptr, self tid.TID, expectedPrevXid xid.XID) (*Record, error) {
	if !ptr.Valid() {
		return nil, ErrDiscarded
	}
	rec, owner, err := r.store.Read(ptr)
	if err == ErrDiscarded {
		return nil, ErrDiscarded
	}
	if err != nil {
		return nil, err
	}
	zassert.Assertf(!self.Valid() || !rec.Self.Valid() || self == rec.Self,
		"undo: fetched record for %s but expected %s", rec.Self, self)

	if expectedPrevXid.IsValid() && owner != expectedPrevXid {
		// The transaction slot under this pointer was reused by a
		// different transaction than the one the walker expected to
		// still own this position in the chain. Signal the switch
		// rather than hand back data that belongs to someone else's
		// chain.
		return &Record{
			Type:    InvalidXactSlot,
			PrevXid: owner,
			BlkPrev: rec.BlkPrev,
			Self:    rec.Self,
		}, nil
	}
	out := rec
	return &out, nil
}

// Release is a no-op for StoreReader: records are plain Go values owned
// by the GC. It exists so callers can use the Reader interface uniformly
// with a pooled implementation that does need it.
func (r *StoreReader) Release(rec *Record) {}
