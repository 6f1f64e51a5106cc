package bytecode

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"jetc/internal/invariant"
)

// Slot is one entry of a Stream: a resolved instruction, or a place
// reserved for a forward jump whose target is not known yet.
type Slot struct {
	Pending bool
	Insn    Instruction
}

// Stream is the growable instruction list of one method. Instructions are
// addressed by index; jumps to later code are reserved first and replaced
// once the target index is known.
type Stream struct {
	slots   []Slot
	pending int
	sealed  bool
}

func NewStream() *Stream { return &Stream{} }

// Len is the index the next instruction will get.
func (s *Stream) Len() int { return len(s.slots) }

// Emit appends in and returns its index.
func (s *Stream) Emit(in Instruction) int {
	invariant.Check(!s.sealed, "emit into a sealed stream")
	s.slots = append(s.slots, Slot{Insn: in})
	return len(s.slots) - 1
}

// Reserve appends a pending slot and returns its index.
func (s *Stream) Reserve() int {
	invariant.Check(!s.sealed, "reserve in a sealed stream")
	s.slots = append(s.slots, Slot{Pending: true})
	s.pending++
	return len(s.slots) - 1
}

// Replace resolves the pending slot at i. Replacing a resolved slot is a
// compiler bug.
func (s *Stream) Replace(i int, in Instruction) {
	invariant.Check(i >= 0 && i < len(s.slots), "replace of slot %d outside a stream of %d", i, len(s.slots))
	invariant.Check(s.slots[i].Pending, "replace of resolved slot %d (%s)", i, s.slots[i].Insn)
	s.slots[i] = Slot{Insn: in}
	s.pending--
}

// Pending lists the indices of slots that were reserved and never replaced.
func (s *Stream) Pending() []int {
	if s.pending == 0 {
		return nil
	}
	var out []int
	for i, sl := range s.slots {
		if sl.Pending {
			out = append(out, i)
		}
	}
	return out
}

// At returns the slot at i.
func (s *Stream) At(i int) Slot { return s.slots[i] }

// Last returns the last resolved instruction, if the stream ends with one.
func (s *Stream) Last() (Instruction, bool) {
	if len(s.slots) == 0 || s.slots[len(s.slots)-1].Pending {
		return Instruction{}, false
	}
	return s.slots[len(s.slots)-1].Insn, true
}

// Instructions returns the resolved instructions. Pending slots read as NOP.
func (s *Stream) Instructions() []Instruction {
	out := make([]Instruction, len(s.slots))
	for i, sl := range s.slots {
		if sl.Pending {
			out[i] = Op(NOP)
			continue
		}
		out[i] = sl.Insn
	}
	return out
}

// Seal freezes the stream. It reports pending slots and jumps whose target
// is outside the stream; the stream is frozen either way.
func (s *Stream) Seal() error {
	s.sealed = true
	if p := s.Pending(); len(p) > 0 {
		idx := make([]string, len(p))
		for i, v := range p {
			idx[i] = strconv.Itoa(v)
		}
		return errors.Errorf("unresolved jump slots at %s", strings.Join(idx, ", "))
	}
	for i, sl := range s.slots {
		if sl.Insn.Op.IsJump() && (sl.Insn.Target < 0 || sl.Insn.Target >= len(s.slots)) {
			return errors.Errorf("jump at %d targets %d outside the method", i, sl.Insn.Target)
		}
	}
	return nil
}

func (s *Stream) Sealed() bool { return s.sealed }
