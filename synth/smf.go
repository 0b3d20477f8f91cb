package synth

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

const (
	smfTicksPerQuarter = 96
	smfTicksPerStep    = smfTicksPerQuarter / 4
	accentVelocity     = 0x7f
)

// ExportSequence writes the sequence as a single track Standard MIDI File
// with one 16th note per step. Ties extend the sounding note and rests
// release it. A slid note overlaps the previous one, every other note is
// released one tick before the next step.
func ExportSequence(w io.Writer, seq *Sequence, channel, velocity uint8, bpm float64) error {
	var tr smf.Track
	tr.Add(0, smf.MetaMeter(4, 4))
	tr.Add(0, smf.MetaTempo(bpm))

	var last uint32
	add := func(tick uint32, msg midi.Message) {
		tr.Add(tick-last, msg)
		last = tick
	}
	sounding := uint8(NoNote)
	release := func(tick uint32) {
		if sounding != NoNote {
			add(tick, midi.NoteOff(channel, sounding))
			sounding = NoNote
		}
	}

	steps := seq.Steps()
	for i, note := range steps {
		start := uint32(i) * smfTicksPerStep
		switch {
		case note == StepRest:
			release(start - 1)
		case note == StepTie:
		case seq.Slide(i) && note == sounding:
		default:
			v := velocity
			if seq.Accent(i) {
				v = accentVelocity
			}
			if seq.Slide(i) && sounding != NoNote {
				add(start, midi.NoteOn(channel, note, v))
				add(start, midi.NoteOff(channel, sounding))
			} else {
				release(start - 1)
				add(start, midi.NoteOn(channel, note, v))
			}
			sounding = note
		}
	}
	end := uint32(len(steps)) * smfTicksPerStep
	if len(steps) > 0 {
		release(end - 1)
	}
	tr.Close(end - last)

	sm := smf.New()
	sm.TimeFormat = smf.MetricTicks(smfTicksPerQuarter)
	if err := sm.Add(tr); err != nil {
		return fmt.Errorf("add track: %w", err)
	}
	if _, err := sm.WriteTo(w); err != nil {
		return fmt.Errorf("write midi file: %w", err)
	}
	return nil
}

type noteSpan struct {
	start, end    uint32
	key, velocity uint8
	open          bool
}

var ErrNoNotes = errors.New("no notes")

// ImportSequence reads the notes of a Standard MIDI File into a sequence,
// quantized to 16th notes. Overlapping notes become slides and a velocity
// of 127 an accent. It also returns the first tempo of the file.
func ImportSequence(r io.Reader) (Sequence, float64, error) {
	var seq Sequence
	sm, err := smf.ReadFrom(r)
	if err != nil {
		return seq, 0, fmt.Errorf("read midi file: %w", err)
	}
	mt, ok := sm.TimeFormat.(smf.MetricTicks)
	if !ok || mt == 0 {
		return seq, 0, fmt.Errorf("unsupported time format %v", sm.TimeFormat)
	}
	bpm := 120.0
	if tc := sm.TempoChanges(); len(tc) > 0 {
		bpm = tc[0].BPM
	}

	var notes []noteSpan
	for _, tr := range sm.Tracks {
		var tick uint32
		for _, ev := range tr {
			tick += ev.Delta
			msg := midi.Message(ev.Message)
			var ch, key, vel uint8
			switch {
			case msg.GetNoteStart(&ch, &key, &vel):
				notes = append(notes, noteSpan{start: tick, end: tick, key: key, velocity: vel, open: true})
			case msg.GetNoteEnd(&ch, &key):
				for j := len(notes) - 1; j >= 0; j-- {
					if notes[j].open && notes[j].key == key {
						notes[j].end = tick
						notes[j].open = false
						break
					}
				}
			}
		}
	}
	if len(notes) == 0 {
		return seq, bpm, ErrNoNotes
	}
	sort.SliceStable(notes, func(i, j int) bool { return notes[i].start < notes[j].start })

	stepTicks := uint32(mt) / 4
	if stepTicks == 0 {
		stepTicks = 1
	}
	quantize := func(tick uint32) int { return int((tick + stepTicks/2) / stepTicks) }

	var (
		steps   [MaxSequenceLength]uint8
		accents [MaxSequenceLength]bool
		slides  [MaxSequenceLength]bool
		length  int
	)
	for i := range steps {
		steps[i] = StepRest
	}
	for i, n := range notes {
		s := quantize(n.start)
		if s >= MaxSequenceLength {
			break
		}
		e := quantize(n.end)
		if e <= s || n.open {
			e = s + 1
		}
		steps[s] = n.key
		accents[s] = n.velocity == accentVelocity
		slides[s] = i > 0 && !notes[i-1].open && notes[i-1].start < n.start && notes[i-1].end >= n.start
		for k := s + 1; k < e && k < MaxSequenceLength; k++ {
			if steps[k] == StepRest {
				steps[k] = StepTie
			}
		}
		if e > length {
			length = e
		}
	}
	if length > MaxSequenceLength {
		length = MaxSequenceLength
	}

	seq.NumNotes = uint8(length)
	copy(seq.Notes[:], steps[:length])
	for i := 0; i < length; i++ {
		if accents[i] {
			seq.SetAccent(i)
		}
		if slides[i] {
			seq.SetSlide(i)
		}
	}
	return seq, bpm, nil
}
