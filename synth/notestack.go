package synth

const noteStackCapacity = 16

// NoNote marks an empty note slot, a rest in a sequence and "no previous
// note" in the generators.
const NoNote = 0xff

type NoteEntry struct {
	Note     uint8
	Velocity uint8
}

// NoteStack keeps the held keys in the order they were pressed, plus a
// view sorted by pitch for the arpeggiator.
type NoteStack struct {
	notes  [noteStackCapacity]NoteEntry
	sorted [noteStackCapacity]NoteEntry
	size   int
}

// NoteOn pushes a note as the most recent one. A note that is already held
// is moved to the top. When the stack is full the oldest note is dropped.
func (s *NoteStack) NoteOn(note, velocity uint8) {
	s.NoteOff(note)
	if s.size == noteStackCapacity {
		s.NoteOff(s.notes[0].Note)
	}
	s.notes[s.size] = NoteEntry{Note: note, Velocity: velocity}

	i := s.size
	for i > 0 && s.sorted[i-1].Note > note {
		s.sorted[i] = s.sorted[i-1]
		i--
	}
	s.sorted[i] = NoteEntry{Note: note, Velocity: velocity}
	s.size++
}

func (s *NoteStack) NoteOff(note uint8) {
	n := remove(s.notes[:s.size], note)
	if n == s.size {
		return
	}
	remove(s.sorted[:s.size], note)
	s.size = n
}

func remove(entries []NoteEntry, note uint8) int {
	for i, e := range entries {
		if e.Note != note {
			continue
		}
		copy(entries[i:], entries[i+1:])
		entries[len(entries)-1] = NoteEntry{}
		return len(entries) - 1
	}
	return len(entries)
}

func (s *NoteStack) Clear() {
	*s = NoteStack{}
}

func (s *NoteStack) Size() int { return s.size }

// MostRecentNote returns the last pressed key, or a NoNote entry when no
// key is held.
func (s *NoteStack) MostRecentNote() NoteEntry {
	if s.size == 0 {
		return NoteEntry{Note: NoNote}
	}
	return s.notes[s.size-1]
}

// SortedNote returns the i-th lowest held note.
func (s *NoteStack) SortedNote(i int) NoteEntry {
	if i < 0 || i >= s.size {
		return NoteEntry{Note: NoNote}
	}
	return s.sorted[i]
}
