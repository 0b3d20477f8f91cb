package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mrdg/cvsynth/dub"
	"github.com/mrdg/cvsynth/synth"
)

var drumParts = map[string]int{
	"bd": synth.BassDrum,
	"sd": synth.SnareDrum,
	"hh": synth.HiHat,
}

var drumPartNames = [synth.NumDrumParts]string{"bd", "sd", "hh"}

func lookupDrumPart(name string) (int, error) {
	part, ok := drumParts[strings.ToLower(name)]
	if !ok {
		names := make([]string, 0, len(drumParts))
		for n := range drumParts {
			names = append(names, n)
		}
		sort.Strings(names)
		return 0, fmt.Errorf("unknown drum part %q, want one of %s", name, strings.Join(names, ", "))
	}
	return part, nil
}

// buildSequence converts the arguments of the seq command: notes, with an
// optional accent and slide, ties and rests.
func buildSequence(args []dub.Node) (synth.Sequence, error) {
	var seq synth.Sequence
	if len(args) > synth.MaxSequenceLength {
		return seq, fmt.Errorf("sequence has %d steps, the maximum is %d", len(args), synth.MaxSequenceLength)
	}
	for i, arg := range args {
		switch v := arg.(type) {
		case dub.Step:
			seq.Append(uint8(v.Note))
			if v.Accent {
				seq.SetAccent(i)
			}
			if v.Slide {
				seq.SetSlide(i)
			}
		case dub.Int:
			if v < 0 || v > 127 {
				return seq, fmt.Errorf("step %d: note out of range: %d", i+1, v)
			}
			seq.Append(uint8(v))
		case dub.Tie:
			seq.Append(synth.StepTie)
		case dub.Rest:
			seq.Append(synth.StepRest)
		default:
			return seq, fmt.Errorf("step %d: not a note, tie or rest: %v", i+1, arg)
		}
	}
	return seq, nil
}

// formatSequence writes a sequence in the syntax of the seq command.
func formatSequence(seq *synth.Sequence) string {
	steps := make([]string, seq.NumNotes)
	for i := range steps {
		steps[i] = stepName(seq, i)
	}
	return strings.Join(steps, " ")
}

// formatMask shows a 16 step drum pattern, x for a hit.
func formatMask(mask uint16) string {
	var b strings.Builder
	for step := 0; step < 16; step++ {
		if mask&(1<<step) != 0 {
			b.WriteByte('x')
		} else {
			b.WriteByte('.')
		}
	}
	return b.String()
}
