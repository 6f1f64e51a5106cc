package gen

import (
	"jetc/internal/invariant"
	"jetc/internal/types"
)

type frameEntry struct {
	id   types.ID // NoID for temporaries
	slot int
	size int
}

// FrameMap assigns local variable slots. Slots are taken and released in
// stack order: a variable leaves the frame only after every variable that
// entered after it has left. Long and Double values take two slots.
type FrameMap struct {
	slots map[types.ID]int
	stack []frameEntry
	next  int
	max   int
}

func NewFrameMap() *FrameMap {
	return &FrameMap{slots: make(map[types.ID]int)}
}

// Enter gives id the next free slot.
func (f *FrameMap) Enter(id types.ID, size int) int {
	_, taken := f.slots[id]
	invariant.Check(!taken, "descriptor %d entered the frame twice", id)
	slot := f.push(id, size)
	f.slots[id] = slot
	return slot
}

// Leave releases the slot of id, which must be the last one entered.
func (f *FrameMap) Leave(id types.ID) int {
	n := len(f.stack)
	invariant.Check(n > 0 && f.stack[n-1].id == id, "descriptor %d left the frame out of order", id)
	e := f.pop()
	delete(f.slots, id)
	return e.slot
}

// EnterTemp reserves an anonymous slot.
func (f *FrameMap) EnterTemp(size int) int {
	return f.push(types.NoID, size)
}

// LeaveTemp releases the temporary at slot, which must be the last one
// entered.
func (f *FrameMap) LeaveTemp(slot int) {
	n := len(f.stack)
	invariant.Check(n > 0 && f.stack[n-1].id == types.NoID && f.stack[n-1].slot == slot,
		"temporary slot %d released out of order", slot)
	f.pop()
}

// Lookup returns the slot of id.
func (f *FrameMap) Lookup(id types.ID) (int, bool) {
	s, ok := f.slots[id]
	return s, ok
}

// Top returns the descriptor (NoID for a temporary) and slot of the last
// entry. The frame must not be empty.
func (f *FrameMap) Top() (types.ID, int) {
	invariant.Check(len(f.stack) > 0, "empty frame has no top")
	e := f.stack[len(f.stack)-1]
	return e.id, e.slot
}

// Mark returns the current depth for DropTo.
func (f *FrameMap) Mark() int { return len(f.stack) }

// DropTo releases everything entered after mark, newest first.
func (f *FrameMap) DropTo(mark int) {
	for len(f.stack) > mark {
		e := f.pop()
		if e.id != types.NoID {
			delete(f.slots, e.id)
		}
	}
}

// Max is the number of slots the method needs.
func (f *FrameMap) Max() int { return f.max }

func (f *FrameMap) push(id types.ID, size int) int {
	slot := f.next
	f.stack = append(f.stack, frameEntry{id: id, slot: slot, size: size})
	f.next += size
	if f.next > f.max {
		f.max = f.next
	}
	return slot
}

func (f *FrameMap) pop() frameEntry {
	e := f.stack[len(f.stack)-1]
	f.stack = f.stack[:len(f.stack)-1]
	f.next = e.slot
	return e
}
