package main

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mrdg/cvsynth/synth"
)

func newTestEnv() *env {
	return &env{engine: synth.NewEngine(nil, 1), seed: 1}
}

func mustEval(t *testing.T, env *env, input string) string {
	t.Helper()
	result, err := env.eval(input)
	if err != nil {
		t.Fatalf("%s: %v", input, err)
	}
	return result
}

func TestEvalErrors(t *testing.T) {
	env := newTestEnv()
	tests := []string{
		"frobnicate",
		"note",
		"off c4 d4",
		"seq",
		"set cutoff",
		"set cutoff 300",
		"set dco-range 5",
		"set no-such-param 1",
		"get no-such-param",
		"knob no-such-param 1",
		"cc 128 1",
		"bend 20000",
		"gate maybe",
		"channel 17",
		"trigger 0",
		"drums cowbell '*",
		"drums bd 12",
		"seq c3 foo",
		"preset no-such-preset",
		"sound bd kick.wav",
		"done",
	}
	for _, input := range tests {
		if _, err := env.eval(input); err == nil {
			t.Errorf("%s: expected error", input)
		}
	}
}

func TestSetGet(t *testing.T) {
	env := newTestEnv()
	tests := []struct {
		name  string
		value string
	}{
		{"cutoff", "40"},
		{"dco-range", "-2"},
		{"tempo", "130"},
		{"acidity", "7"},
	}
	for _, test := range tests {
		mustEval(t, env, "set "+test.name+" "+test.value)
		if want, got := test.value, mustEval(t, env, "get "+test.name); want != got {
			t.Errorf("%s: want %v, got %v", test.name, want, got)
		}
	}
}

func TestKnob(t *testing.T) {
	env := newTestEnv()
	if want, got := "tempo = 0", mustEval(t, env, "knob tempo 0"); want != got {
		t.Errorf("want %q, got %q", want, got)
	}
	if want, got := "arp-mode = 8", mustEval(t, env, "knob arp-mode 255"); want != got {
		t.Errorf("want %q, got %q", want, got)
	}
	if want, got := "0", mustEval(t, env, "get tempo"); want != got {
		t.Errorf("want %v, got %v", want, got)
	}
	if _, err := env.eval("start"); err == nil {
		t.Errorf("expected start to fail on the external clock")
	}
}

func TestNotes(t *testing.T) {
	env := newTestEnv()
	pressed := func() int {
		var n int
		env.update(func(c *synth.Controller) { n = c.PressedKeys() })
		return n
	}
	mustEval(t, env, "note c4")
	mustEval(t, env, "note 64 90")
	if want, got := 2, pressed(); want != got {
		t.Errorf("want %v pressed keys, got %v", want, got)
	}
	if want, got := "hold on", mustEval(t, env, "hold"); want != got {
		t.Errorf("want %q, got %q", want, got)
	}
	mustEval(t, env, "off c4")
	if want, got := 2, pressed(); want != got {
		t.Errorf("hold: want %v pressed keys, got %v", want, got)
	}
	if want, got := "hold off", mustEval(t, env, "hold"); want != got {
		t.Errorf("want %q, got %q", want, got)
	}
	if want, got := 0, pressed(); want != got {
		t.Errorf("want %v pressed keys, got %v", want, got)
	}
}

func TestSeqCommand(t *testing.T) {
	env := newTestEnv()
	if want, got := "c3 ~ _ d#3!^", mustEval(t, env, "seq c3 ~ _ eb3!^"); want != got {
		t.Errorf("want %q, got %q", want, got)
	}
	mustEval(t, env, "start")
	st := takeStatus(env.engine)
	if !st.running {
		t.Errorf("expected the sequencer to run")
	}
	if want, got := uint8(4), st.sequence.NumNotes; want != got {
		t.Errorf("want %v steps, got %v", want, got)
	}
	mustEval(t, env, "stop")
	if takeStatus(env.engine).running {
		t.Errorf("expected the sequencer to stop")
	}
}

func TestRecord(t *testing.T) {
	env := newTestEnv()
	for _, input := range []string{"record", "note c3", "off c3", "rest", "tie", "note 62!"} {
		mustEval(t, env, input)
	}
	if want, got := "c3 _ ~ d4", mustEval(t, env, "done"); want != got {
		t.Errorf("want %q, got %q", want, got)
	}
	if takeStatus(env.engine).recording {
		t.Errorf("expected recording to end")
	}
}

func TestDrumsCommand(t *testing.T) {
	env := newTestEnv()
	if want, got := "x...x...x...x...", mustEval(t, env, "drums bd '*"); want != got {
		t.Errorf("want %q, got %q", want, got)
	}
	if want, got := "....x.x.....x.x.", mustEval(t, env, "drums hh '2,4/*"); want != got {
		t.Errorf("want %q, got %q", want, got)
	}
	var override uint8
	var pattern uint16
	env.update(func(c *synth.Controller) {
		override = c.GetValue(synth.SeqDrumsOverride)
		pattern = c.DrumPattern(synth.BassDrum)
	})
	if want, got := uint8(1<<synth.BassDrum|1<<synth.HiHat), override; want != got {
		t.Errorf("want override %b, got %b", want, got)
	}
	if want, got := uint16(0x1111), pattern; want != got {
		t.Errorf("want pattern %x, got %x", want, got)
	}

	mustEval(t, env, "drums bd off")
	env.update(func(c *synth.Controller) { override = c.GetValue(synth.SeqDrumsOverride) })
	if want, got := uint8(1<<synth.HiHat), override; want != got {
		t.Errorf("want override %b, got %b", want, got)
	}
}

func TestPresetCommands(t *testing.T) {
	env := newTestEnv()
	mustEval(t, env, "preset acid-bass")
	if want, got := "-1", mustEval(t, env, "get dco-range"); want != got {
		t.Errorf("want %v, got %v", want, got)
	}
	if want, got := strings.Join(synth.PresetNames(), "\n"), mustEval(t, env, "presets"); want != got {
		t.Errorf("want %q, got %q", want, got)
	}

	file := filepath.Join(t.TempDir(), "bass.json")
	mustEval(t, env, `save-preset "`+file+`"`)
	mustEval(t, env, "preset sub-sine")
	mustEval(t, env, `preset "`+file+`"`)
	if want, got := "12", mustEval(t, env, "get acidity"); want != got {
		t.Errorf("want %v, got %v", want, got)
	}
}

func TestMidiFileCommands(t *testing.T) {
	env := newTestEnv()
	file := filepath.Join(t.TempDir(), "seq.mid")
	mustEval(t, env, "seq c3 d3")
	mustEval(t, env, `export "`+file+`"`)
	mustEval(t, env, "seq e3")
	if want, got := "c3 d3", mustEval(t, env, `import "`+file+`"`); want != got {
		t.Errorf("want %q, got %q", want, got)
	}
}

func TestRenderCommand(t *testing.T) {
	env := newTestEnv()
	file := filepath.Join(t.TempDir(), "out.wav")
	mustEval(t, env, "seq c3 g3")
	mustEval(t, env, `render "`+file+`" 0.1`)
	info, err := os.Stat(file)
	if err != nil {
		t.Fatal(err)
	}
	// 44 byte header and 4 bytes per frame.
	if want, got := int64(44+4*audioFrames(0.1)), info.Size(); want != got {
		t.Errorf("want %v bytes, got %v", want, got)
	}
}

func audioFrames(seconds float64) int { return int(seconds * renderRate) }

func TestSystemCommands(t *testing.T) {
	env := newTestEnv()
	mustEval(t, env, "channel 2")
	var channel uint8
	env.engine.Update(func(e *synth.Engine) { channel = e.System().MidiChannel })
	if want, got := uint8(1), channel; want != got {
		t.Errorf("want channel %v, got %v", want, got)
	}
	if want, got := "offset 7680, scale 21333/21333", mustEval(t, env, "calibration"); want != got {
		t.Errorf("want %q, got %q", want, got)
	}
	mustEval(t, env, "reset")
	env.engine.Update(func(e *synth.Engine) { channel = e.System().MidiChannel })
	if want, got := uint8(0), channel; want != got {
		t.Errorf("want channel %v after reset, got %v", want, got)
	}
}

func TestHelp(t *testing.T) {
	env := newTestEnv()
	help := mustEval(t, env, "help")
	for _, cmd := range commands {
		if !strings.Contains(help, cmd.name) {
			t.Errorf("help does not mention %s", cmd.name)
		}
	}
	if want, got := len(commands), len(completer().GetChildren()); want != got {
		t.Errorf("want %v completions, got %v", want, got)
	}
	if _, err := env.eval("quit"); !errors.Is(err, errQuit) {
		t.Errorf("want errQuit, got %v", err)
	}
}
