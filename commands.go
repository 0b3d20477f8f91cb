package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mrdg/cvsynth/audio"
	"github.com/mrdg/cvsynth/dub"
	"github.com/mrdg/cvsynth/synth"
)

const defaultVelocity = 100

var errQuit = errors.New("quit")

var commands []command

func init() {
	commands = []command{
		{"note", noteCommand, -1, "note <note> [velocity]: press a key"},
		{"off", offCommand, 1, "off <note>: release a key"},
		{"cc", ccCommand, 2, "cc <controller> <value>: send a control change"},
		{"bend", bendCommand, 1, "bend <0..16383>: set the pitch bend"},
		{"at", aftertouchCommand, 1, "at <value>: set the aftertouch"},
		{"gate", gateCommand, 1, "gate on|off: set the gate input"},
		{"trigger", triggerCommand, 1, "trigger <count>: pulse the clock input"},
		{"hold", holdCommand, 0, "hold: toggle the hold of the pressed keys"},
		{"panic", panicCommand, 0, "panic: silence the voice and release all keys"},
		{"start", startCommand, 0, "start: start the sequencer, arpeggiator and drums"},
		{"stop", stopCommand, 0, "stop: stop the sequencer"},
		{"set", setCommand, 2, "set <name> <value>: set a patch or sequencer value"},
		{"get", getCommand, 1, "get <name>: show a patch or sequencer value"},
		{"knob", knobCommand, 2, "knob <name> <0..255>: turn a control"},
		{"params", paramsCommand, 0, "params: show the patch and sequencer settings"},
		{"record", recordCommand, 0, "record: record a sequence from the played notes"},
		{"rest", restCommand, 0, "rest: record a rest"},
		{"tie", tieCommand, 0, "tie: record a tie"},
		{"done", doneCommand, 0, "done: end recording"},
		{"seq", seqCommand, -1, "seq <step>...: set the sequence, e.g. seq c3 ~ _ eb3!^"},
		{"drums", drumsCommand, 2, "drums <part> '<pattern>|off: program a drum part"},
		{"sound", soundCommand, 2, "sound <part> <file>: load a WAV file into a drum part"},
		{"tune", tuneCommand, 0, "tune: calibrate the VCO"},
		{"abort", abortCommand, 0, "abort: abort tuning"},
		{"calibration", calibrationCommand, 0, "calibration: show the VCO calibration"},
		{"render", renderCommand, 2, "render <file> <seconds>: render the sequence to a WAV file"},
		{"export", exportCommand, 1, "export <file>: write the sequence to a MIDI file"},
		{"import", importCommand, 1, "import <file>: read the sequence from a MIDI file"},
		{"preset", presetCommand, 1, "preset <name|file>: load a preset"},
		{"presets", presetsCommand, 0, "presets: list the built-in presets"},
		{"save-preset", savePresetCommand, 1, "save-preset <file>: write the patch to a JSON file"},
		{"save", saveCommand, 0, "save: store the patch, settings and sequence"},
		{"reset", resetCommand, 0, "reset: restore the factory defaults"},
		{"learn", learnCommand, 0, "learn: take the channel from the next note on"},
		{"channel", channelCommand, 1, "channel <1..16>: set the MIDI channel"},
		{"ports", portsCommand, 0, "ports: list the MIDI ports"},
		{"status", statusCommand, 0, "status: show the transport and the sequence"},
		{"help", helpCommand, 0, "help: list the commands"},
		{"quit", quitCommand, 0, "quit: save and exit"},
	}
}

func noteCommand(env *env, args []dub.Node) (string, error) {
	var step dub.Step
	velocity := uint8(defaultVelocity)
	if err := readArgs(args[:1], &step); err != nil {
		return "", err
	}
	if len(args) > 1 {
		if err := readArgs(args[1:], &velocity); err != nil {
			return "", err
		}
	}
	if step.Accent {
		velocity = 127
	}
	env.update(func(c *synth.Controller) { c.NoteOn(uint8(step.Note), velocity) })
	return "", nil
}

func offCommand(env *env, args []dub.Node) (string, error) {
	var step dub.Step
	if err := readArgs(args, &step); err != nil {
		return "", err
	}
	env.update(func(c *synth.Controller) { c.NoteOff(uint8(step.Note)) })
	return "", nil
}

func ccCommand(env *env, args []dub.Node) (string, error) {
	var cc, value uint8
	if err := readArgs(args, &cc, &value); err != nil {
		return "", err
	}
	if cc > 127 || value > 127 {
		return "", fmt.Errorf("controller and value must be in 0..127")
	}
	env.update(func(c *synth.Controller) { c.ControlChange(cc, value) })
	return "", nil
}

func bendCommand(env *env, args []dub.Node) (string, error) {
	var value int
	if err := readArgs(args, &value); err != nil {
		return "", err
	}
	if value < 0 || value > 0x3fff {
		return "", fmt.Errorf("bend out of range: %d", value)
	}
	env.update(func(c *synth.Controller) { c.PitchBend(uint16(value)) })
	return "", nil
}

func aftertouchCommand(env *env, args []dub.Node) (string, error) {
	var value uint8
	if err := readArgs(args, &value); err != nil {
		return "", err
	}
	if value > 127 {
		return "", fmt.Errorf("aftertouch out of range: %d", value)
	}
	env.update(func(c *synth.Controller) { c.Aftertouch(value) })
	return "", nil
}

func gateCommand(env *env, args []dub.Node) (string, error) {
	var high bool
	if err := readArgs(args, &high); err != nil {
		return "", err
	}
	env.engine.SetGate(high)
	return "", nil
}

func triggerCommand(env *env, args []dub.Node) (string, error) {
	var count int
	if err := readArgs(args, &count); err != nil {
		return "", err
	}
	if count < 1 {
		return "", fmt.Errorf("count must be positive, got %d", count)
	}
	for i := 0; i < count; i++ {
		env.engine.Trigger()
	}
	return "", nil
}

func holdCommand(env *env, args []dub.Node) (string, error) {
	var held bool
	env.update(func(c *synth.Controller) {
		c.HoldNotes()
		held = c.HoldState()
	})
	if held {
		return "hold on", nil
	}
	return "hold off", nil
}

func panicCommand(env *env, args []dub.Node) (string, error) {
	env.update(func(c *synth.Controller) {
		c.AllSoundOff()
		c.ReleaseAllHeldNotes()
	})
	return "", nil
}

func startCommand(env *env, args []dub.Node) (string, error) {
	var err error
	env.update(func(c *synth.Controller) {
		if !c.InternalClock() {
			err = fmt.Errorf("the sequencer follows the external clock, set a tempo first")
			return
		}
		c.Start()
	})
	return "", err
}

func stopCommand(env *env, args []dub.Node) (string, error) {
	env.update(func(c *synth.Controller) { c.Stop() })
	return "", nil
}

// setCommand changes a value through a preset, which validates it and
// handles the signed patch values.
func setCommand(env *env, args []dub.Node) (string, error) {
	var name string
	var value int
	if err := readArgs(args, &name, &value); err != nil {
		return "", err
	}
	f := &synth.PresetFile{Patch: map[string]int{name: value}}
	if _, ok := synth.LookupSeqParam(name); ok {
		f = &synth.PresetFile{Sequencer: map[string]int{name: value}}
	}
	var err error
	env.update(func(c *synth.Controller) { err = c.ApplyPreset(f) })
	return "", err
}

func currentValues(env *env) *synth.PresetFile {
	var f *synth.PresetFile
	env.update(func(c *synth.Controller) {
		patch := c.Voice().Patch()
		settings := c.Settings()
		f = synth.NewPresetFile("", &patch, &settings)
	})
	return f
}

func getCommand(env *env, args []dub.Node) (string, error) {
	var name string
	if err := readArgs(args, &name); err != nil {
		return "", err
	}
	f := currentValues(env)
	if v, ok := f.Patch[name]; ok {
		return fmt.Sprint(v), nil
	}
	if v, ok := f.Sequencer[name]; ok {
		return fmt.Sprint(v), nil
	}
	return "", fmt.Errorf("unknown parameter %q", name)
}

func knobCommand(env *env, args []dub.Node) (string, error) {
	var name string
	var position uint8
	if err := readArgs(args, &name, &position); err != nil {
		return "", err
	}
	id, ok := synth.LookupParameter(name)
	if !ok {
		return "", fmt.Errorf("unknown parameter %q", name)
	}
	var value uint8
	env.update(func(c *synth.Controller) {
		c.SetScaled(id, position)
		value = c.GetParameter(id)
	})
	if def := id.Definition(); def.Unit == synth.UnitInt8 || def.Unit == synth.UnitQuantizedPitch {
		return fmt.Sprintf("%s = %d", id, int8(value)), nil
	}
	return fmt.Sprintf("%s = %d", id, value), nil
}

func paramsCommand(env *env, args []dub.Node) (string, error) {
	f := currentValues(env)
	var b strings.Builder
	for _, section := range []struct {
		title  string
		values map[string]int
	}{
		{"patch", f.Patch},
		{"sequencer", f.Sequencer},
	} {
		names := make([]string, 0, len(section.values))
		for name := range section.values {
			names = append(names, name)
		}
		sort.Strings(names)
		fmt.Fprintf(&b, "%s:\n", colorize(section.title, colorMagenta))
		for _, name := range names {
			fmt.Fprintf(&b, "  %-16s %d\n", name, section.values[name])
		}
	}
	return strings.TrimSuffix(b.String(), "\n"), nil
}

func recordCommand(env *env, args []dub.Node) (string, error) {
	env.update(func(c *synth.Controller) { c.StartRecording() })
	return "recording", nil
}

func restCommand(env *env, args []dub.Node) (string, error) {
	env.update(func(c *synth.Controller) { c.InsertRest() })
	return "", nil
}

func tieCommand(env *env, args []dub.Node) (string, error) {
	env.update(func(c *synth.Controller) { c.InsertTie() })
	return "", nil
}

func doneCommand(env *env, args []dub.Node) (string, error) {
	var seq synth.Sequence
	var err error
	env.update(func(c *synth.Controller) {
		if !c.Recording() {
			err = errors.New("not recording")
			return
		}
		c.StopRecording()
		seq = c.Sequence()
	})
	if err != nil {
		return "", err
	}
	return formatSequence(&seq), nil
}

func seqCommand(env *env, args []dub.Node) (string, error) {
	seq, err := buildSequence(args)
	if err != nil {
		return "", err
	}
	env.update(func(c *synth.Controller) {
		c.SetSequence(seq)
		err = c.SaveSequence()
	})
	return formatSequence(&seq), err
}

func drumsCommand(env *env, args []dub.Node) (string, error) {
	var name string
	if err := readArgs(args[:1], &name); err != nil {
		return "", err
	}
	part, err := lookupDrumPart(name)
	if err != nil {
		return "", err
	}
	if id, ok := args[1].(dub.Identifier); ok && id == "off" {
		env.update(func(c *synth.Controller) {
			override := c.GetValue(synth.SeqDrumsOverride)
			c.SetValue(synth.SeqDrumsOverride, override&^(1<<part))
		})
		return "", nil
	}
	var expr dub.MatchExpr
	if err := readArgs(args[1:], &expr); err != nil {
		return "", err
	}
	mask, err := dub.StepMask(expr)
	if err != nil {
		return "", err
	}
	env.update(func(c *synth.Controller) { c.SetDrumPattern(part, mask) })
	return formatMask(mask), nil
}

func soundCommand(env *env, args []dub.Node) (string, error) {
	var name, file string
	if err := readArgs(args, &name, &file); err != nil {
		return "", err
	}
	if env.kit == nil {
		return "", errors.New("no drum kit, start with -monitor")
	}
	part, err := lookupDrumPart(name)
	if err != nil {
		return "", err
	}
	sound, err := audio.LoadSound(file)
	if err != nil {
		return "", err
	}
	if err := env.kit.SetSound(part, sound); err != nil {
		return "", err
	}
	return sound.String(), nil
}

func tuneCommand(env *env, args []dub.Node) (string, error) {
	env.engine.Update(func(e *synth.Engine) { e.Tuner().Start() })
	return "tuning", nil
}

func abortCommand(env *env, args []dub.Node) (string, error) {
	env.engine.Update(func(e *synth.Engine) { e.Tuner().Abort() })
	return "", nil
}

func calibrationCommand(env *env, args []dub.Node) (string, error) {
	var s synth.SystemSettings
	env.engine.Update(func(e *synth.Engine) { s = e.System().SystemSettings })
	return fmt.Sprintf("offset %d, scale %d/%d", s.VcoCvOffset, s.VcoCvScaleLow, s.VcoCvScaleHigh), nil
}

func renderCommand(env *env, args []dub.Node) (string, error) {
	var file string
	var seconds float64
	if err := readArgs(args, &file, &seconds); err != nil {
		return "", err
	}
	f, err := os.Create(file)
	if err != nil {
		return "", err
	}
	if err := renderWAV(f, env.engine, seconds, env.seed); err != nil {
		f.Close()
		return "", err
	}
	return "", f.Close()
}

func exportCommand(env *env, args []dub.Node) (string, error) {
	var file string
	if err := readArgs(args, &file); err != nil {
		return "", err
	}
	var (
		seq     synth.Sequence
		channel uint8
		tempo   float64
	)
	env.engine.Update(func(e *synth.Engine) {
		seq = e.Controller().Sequence()
		channel = e.System().MidiChannel
		tempo = float64(e.Controller().Settings().Tempo)
	})
	if tempo == 0 {
		tempo = 120
	}
	f, err := os.Create(file)
	if err != nil {
		return "", err
	}
	if err := synth.ExportSequence(f, &seq, channel, defaultVelocity, tempo); err != nil {
		f.Close()
		return "", err
	}
	return "", f.Close()
}

func importCommand(env *env, args []dub.Node) (string, error) {
	var file string
	if err := readArgs(args, &file); err != nil {
		return "", err
	}
	f, err := os.Open(file)
	if err != nil {
		return "", err
	}
	defer f.Close()
	seq, bpm, err := synth.ImportSequence(f)
	if err != nil {
		return "", err
	}
	env.update(func(c *synth.Controller) {
		c.SetSequence(seq)
		if c.InternalClock() && bpm >= 40 && bpm <= 240 {
			c.SetValue(synth.SeqTempo, uint8(bpm+0.5))
		}
		err = c.SaveSequence()
	})
	return formatSequence(&seq), err
}

func loadPreset(name string) (*synth.PresetFile, error) {
	if strings.HasSuffix(name, ".json") {
		return synth.LoadPresetJSON(name)
	}
	return synth.LoadPreset(name)
}

func presetCommand(env *env, args []dub.Node) (string, error) {
	var name string
	if err := readArgs(args, &name); err != nil {
		return "", err
	}
	f, err := loadPreset(name)
	if err != nil {
		return "", err
	}
	env.update(func(c *synth.Controller) { err = c.ApplyPreset(f) })
	return "", err
}

func presetsCommand(env *env, args []dub.Node) (string, error) {
	return strings.Join(synth.PresetNames(), "\n"), nil
}

func savePresetCommand(env *env, args []dub.Node) (string, error) {
	var file string
	if err := readArgs(args, &file); err != nil {
		return "", err
	}
	f := currentValues(env)
	f.Name = strings.TrimSuffix(filepath.Base(file), ".json")
	return "", f.Save(file)
}

func saveCommand(env *env, args []dub.Node) (string, error) {
	var err error
	env.update(func(c *synth.Controller) {
		err = errors.Join(c.SavePatch(), c.SaveSequence())
	})
	return "", err
}

func resetCommand(env *env, args []dub.Node) (string, error) {
	var err error
	env.engine.Update(func(e *synth.Engine) {
		err = errors.Join(e.System().ResetToFactoryDefaults(), e.Controller().ResetToFactoryDefaults())
	})
	return "", err
}

func learnCommand(env *env, args []dub.Node) (string, error) {
	env.engine.Update(func(e *synth.Engine) { e.MIDI().LearnChannel() })
	return "waiting for a note", nil
}

func channelCommand(env *env, args []dub.Node) (string, error) {
	var channel int
	if err := readArgs(args, &channel); err != nil {
		return "", err
	}
	if channel < 1 || channel > 16 {
		return "", fmt.Errorf("channel must be in 1..16, got %d", channel)
	}
	var err error
	env.engine.Update(func(e *synth.Engine) { err = e.System().SetMidiChannel(uint8(channel - 1)) })
	return "", err
}

func portsCommand(env *env, args []dub.Node) (string, error) {
	return listPorts()
}

func statusCommand(env *env, args []dub.Node) (string, error) {
	var b strings.Builder
	renderStatus(takeStatus(env.engine), &b)
	return strings.TrimSuffix(b.String(), "\n"), nil
}

func helpCommand(env *env, args []dub.Node) (string, error) {
	lines := make([]string, len(commands))
	for i, cmd := range commands {
		lines[i] = cmd.help
	}
	return strings.Join(lines, "\n"), nil
}

func quitCommand(env *env, args []dub.Node) (string, error) {
	return "", errQuit
}
