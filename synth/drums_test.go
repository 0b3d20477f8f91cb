package synth

import (
	"fmt"
	"reflect"
	"testing"
)

type recordingDrums struct {
	triggers  []string
	ccs       [][2]uint8
	tones     [NumDrumParts]uint8
	balance   uint8
	bandwidth uint8
}

func (d *recordingDrums) Trigger(instrument, level uint8) {
	d.triggers = append(d.triggers, fmt.Sprintf("%d/%d", instrument, level))
}

func (d *recordingDrums) SetParameterCc(cc, value uint8) {
	d.ccs = append(d.ccs, [2]uint8{cc, value})
}

func (d *recordingDrums) MorphPatch(instrument, tone uint8) { d.tones[instrument] = tone }
func (d *recordingDrums) SetBalance(balance uint8)          { d.balance = balance }
func (d *recordingDrums) SetBandwidth(bandwidth uint8)      { d.bandwidth = bandwidth }

func TestDrumOverridePattern(t *testing.T) {
	c, out, _ := newTestController()
	drums := &recordingDrums{}
	c.SetDrumVoice(drums)
	c.SetDrumPattern(BassDrum, 1<<0|1<<4)
	c.Start()
	clockSteps(c, stepsPerPattern)

	if want, got := []string{"0/255", "0/255"}, drums.triggers; !reflect.DeepEqual(want, got) {
		t.Errorf("wrong triggers: want %v, got %v", want, got)
	}
	if want, got := []uint8{36, 36}, out.drums; !reflect.DeepEqual(want, got) {
		t.Errorf("wrong drum notes: want %v, got %v", want, got)
	}
	if want, got := uint8(0), c.DrumStep(); want != got {
		t.Errorf("drum step should wrap after a pattern: got %v", got)
	}
}

func TestDrumsNeedSequencer(t *testing.T) {
	c, _, _ := newTestController()
	drums := &recordingDrums{}
	c.SetDrumVoice(drums)
	c.SetDrumPattern(SnareDrum, 0xffff)
	clockSteps(c, stepsPerPattern)
	if len(drums.triggers) != 0 {
		t.Errorf("drums played without the sequencer: %v", drums.triggers)
	}
}

func TestDrumDensity(t *testing.T) {
	count := func(density uint8) int {
		c, _, _ := newTestController()
		drums := &recordingDrums{}
		c.SetDrumVoice(drums)
		c.SetValue(SeqDrumsHhDensity, density)
		c.Start()
		clockSteps(c, 4*stepsPerPattern)
		return len(drums.triggers)
	}
	sparse, dense := count(40), count(255)
	if dense <= sparse {
		t.Errorf("higher density should trigger more: %v <= %v", dense, sparse)
	}
}

func TestDrumSettingsReachVoice(t *testing.T) {
	c, _, _ := newTestController()
	drums := &recordingDrums{}
	c.SetDrumVoice(drums)
	if want, got := uint8(128), drums.balance; want != got {
		t.Errorf("wrong balance: want %v, got %v", want, got)
	}
	c.SetValue(SeqDrumsSdTone, 99)
	c.SetValue(SeqDrumsBandwidth, 12)
	if want, got := uint8(99), drums.tones[SnareDrum]; want != got {
		t.Errorf("wrong tone: want %v, got %v", want, got)
	}
	if want, got := uint8(12), drums.bandwidth; want != got {
		t.Errorf("wrong bandwidth: want %v, got %v", want, got)
	}
}

func TestRemoteControlDrumSequencer(t *testing.T) {
	c, _, _ := newTestController()
	c.RemoteControlDrumSequencer(drumRemoteBaseNote + 8)
	c.RemoteControlDrumSequencer(drumRemoteBaseNote)
	c.RemoteControlDrumSequencer(drumRemoteBaseNote + 2)
	c.RemoteControlDrumSequencer(drumRemoteBaseNote + 26)
	if want, got := uint16(1<<0|1<<1|1<<15), c.DrumPattern(SnareDrum); want != got {
		t.Errorf("wrong pattern: want %016b, got %016b", want, got)
	}

	c.RemoteControlDrumSequencer(drumRemoteBaseNote + 1)
	if want, got := uint8(0xff), c.Settings().DrumsOverride; want != got {
		t.Errorf("wrong override: want %v, got %v", want, got)
	}

	c.RemoteControlDrumSequencer(drumRemoteBaseNote + 3)
	if want, got := uint16(0), c.DrumPattern(SnareDrum); want != got {
		t.Errorf("pattern not cleared: %016b", got)
	}

	if err := c.SavePatch(); err != nil {
		t.Fatal(err)
	}
	c.RemoteControlDrumSequencer(drumRemoteBaseNote + 13)
	if c.Dirty() {
		t.Errorf("unmapped key should change nothing")
	}
}
