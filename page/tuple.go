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
package page

import (
	"github.com/houjibofa/zheap/tid"
	"github.com/houjibofa/zheap/xid"
)

// Tuple is the physical tuple header the visibility core reads: an
// infomask, a slot indirection (or FrozenSlot), the command id stamped
// by the tuple's owning transaction (meaningful only when that
// transaction is the current one — see GetCid), and, for Updated
// tuples, the location it moved to.
type Tuple struct {
	Infomask Infomask

	// SlotID indexes into the page's Opaque slot table, or equals
	// FrozenSlot.
	SlotID int32

	// Cid is this tuple's own command id, as stamped by its writer. It
	// is only meaningful when RawXid(t, opaque) equals the current
	// transaction (spec.md §4.C get_cid); readers must not trust it
	// otherwise.
	Cid xid.CID

	// Ctid holds the new location of a non-in-place update. Populated
	// only when Infomask.Has(Updated).
	Ctid tid.TID

	// Self is this tuple's own (block, offset) identity.
	Self tid.TID

	// Payload is the tuple's current data image.
	Payload []byte
}
