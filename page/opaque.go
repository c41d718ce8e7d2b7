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
	"github.com/houjibofa/zheap/undo"
	"github.com/houjibofa/zheap/xid"
)

// FrozenSlot is the distinguished slot index meaning "older than any
// live snapshot, fully visible" (spec.md §3). It never indexes into
// Opaque.Slots.
const FrozenSlot int32 = -1

// SlotEntry is one row of a page's transaction-slot table: the xid that
// owns the slot and the most recent undo pointer it has produced.
type SlotEntry struct {
	Xid     xid.XID
	UndoPtr undo.Ptr
}

// Opaque is the fixed per-page footer: a small array of transaction
// slots, indirected from tuples to save header space (spec.md §3,
// GLOSSARY "Transaction slot"). A slot may be reused for a new
// transaction; tuples still referencing the old identity carry
// InvalidXactSlot and must recover their real owner by walking undo.
type Opaque struct {
	Slots []SlotEntry
}

// Entry returns the slot table row for slotID, or the zero SlotEntry and
// false if slotID is out of range or FrozenSlot.
func (o Opaque) Entry(slotID int32) (SlotEntry, bool) {
	if slotID == FrozenSlot || slotID < 0 || int(slotID) >= len(o.Slots) {
		return SlotEntry{}, false
	}
	return o.Slots[slotID], true
}
