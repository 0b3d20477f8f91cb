package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/mrdg/cvsynth/dub"
	"github.com/mrdg/cvsynth/synth"
)

// status is a snapshot of the engine taken on the main loop.
type status struct {
	tempo     uint8
	internal  bool
	clock     bool
	running   bool
	recording bool
	hold      bool
	dirty     bool
	pressed   int
	step      uint8
	drumStep  uint8
	sequence  synth.Sequence
	settings  synth.SequencerSettings
	tuning    synth.TuningState
	channel   uint8
}

func takeStatus(e *synth.Engine) status {
	var st status
	e.Update(func(e *synth.Engine) {
		c := e.Controller()
		st = status{
			internal:  c.InternalClock(),
			clock:     c.ClockRunning(),
			running:   c.SequencerRunning(),
			recording: c.Recording(),
			hold:      c.HoldState(),
			dirty:     c.Dirty(),
			pressed:   c.PressedKeys(),
			step:      c.SequencerStep(),
			drumStep:  c.DrumStep(),
			sequence:  c.Sequence(),
			settings:  c.Settings(),
			tuning:    e.Tuner().State(),
			channel:   e.System().MidiChannel,
		}
		st.tempo = st.settings.Tempo
	})
	return st
}

const stepsPerRow = 16

func renderStatus(st status, w io.Writer) {
	tempo := "midi clock"
	if st.internal {
		tempo = fmt.Sprintf("♩ = %d", st.tempo)
	}
	transport := "stopped"
	switch {
	case st.recording:
		transport = colorize("recording", colorRed)
	case st.running:
		transport = colorize("playing", colorGreen)
	case st.clock:
		transport = colorize("arpeggiating", colorGreen)
	}
	fmt.Fprintf(w, "%s  %s  channel %d", transport, tempo, st.channel+1)
	if st.hold {
		fmt.Fprint(w, "  hold")
	}
	if st.dirty {
		fmt.Fprint(w, "  *")
	}
	if st.tuning != synth.TuningOff {
		fmt.Fprintf(w, "  tuning: %v", st.tuning)
	}
	fmt.Fprintln(w)

	steps := st.sequence.Steps()
	if len(steps) == 0 {
		fmt.Fprintln(w, colorize("no sequence", colorBlue))
	}
	// The sequencer has already advanced past the step that sounds.
	current := -1
	if st.running && len(steps) > 0 {
		current = (int(st.step) + len(steps) - 1) % len(steps)
	}
	for row := 0; row < len(steps); row += stepsPerRow {
		var cells []string
		for i := row; i < row+stepsPerRow && i < len(steps); i++ {
			cell := fmt.Sprintf("%-5s", stepName(&st.sequence, i))
			if i == current {
				cell = colorize(cell, colorYellow)
			}
			cells = append(cells, cell)
		}
		fmt.Fprintf(w, "%s %s\n", colorize(fmt.Sprintf("%3d", row+1), colorMagenta), strings.Join(cells, ""))
	}

	if st.settings.DrumsOverride == 0 {
		return
	}
	for part, name := range drumPartNames {
		if st.settings.DrumsOverride&(1<<part) == 0 {
			continue
		}
		var cells string
		for step := 0; step < 16; step++ {
			cell := "⬜️"
			if st.settings.DrumsPattern[part]&(1<<step) != 0 {
				cell = "⬛️"
			}
			cells += cell + " "
		}
		fmt.Fprintf(w, "%s %s\n", colorize(name, colorGreen), cells)
	}
}

func stepName(seq *synth.Sequence, i int) string {
	switch note := seq.Notes[i]; note {
	case synth.StepTie:
		return "~"
	case synth.StepRest:
		return "_"
	default:
		return dub.Step{Note: int(note), Accent: seq.Accent(i), Slide: seq.Slide(i)}.String()
	}
}

const (
	colorBlack = iota + 30
	colorRed
	colorGreen
	colorYellow
	colorBlue
	colorMagenta
)

func colorize(text string, color int) string {
	return fmt.Sprintf("\033[%dm%s\033[0m", color, text)
}
