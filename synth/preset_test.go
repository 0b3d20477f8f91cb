package synth

import (
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestBuiltinPresets(t *testing.T) {
	for _, name := range PresetNames() {
		t.Run(name, func(t *testing.T) {
			f, err := LoadPreset(name)
			if err != nil {
				t.Fatal(err)
			}
			c, _, _ := newTestController()
			if err := c.ApplyPreset(f); err != nil {
				t.Errorf("preset does not apply: %v", err)
			}
		})
	}
}

func TestApplyPreset(t *testing.T) {
	c, _, _ := newTestController()
	f, err := LoadPreset("acid-bass")
	if err != nil {
		t.Fatal(err)
	}
	if err := c.ApplyPreset(f); err != nil {
		t.Fatal(err)
	}
	if want, got := int8(-1), c.Voice().Patch().VcoDcoRange; want != got {
		t.Errorf("wrong range: want %v, got %v", want, got)
	}
	if want, got := uint8(12), c.Settings().Acidity; want != got {
		t.Errorf("wrong acidity: want %v, got %v", want, got)
	}
	if !c.Dirty() {
		t.Errorf("expected a dirty patch")
	}

	if _, err := LoadPreset("organ"); err == nil {
		t.Errorf("expected an unknown preset error")
	}
}

func TestApplyInvalidPreset(t *testing.T) {
	c, _, _ := newTestController()
	want := c.Voice().Patch()
	for _, f := range []*PresetFile{
		{Patch: map[string]int{"cutoff": 10, "dco-range": 3}},
		{Patch: map[string]int{"cutoff": 10, "flanger": 1}},
		{Patch: map[string]int{"cutoff": 10}, Sequencer: map[string]int{"acidity": 16}},
	} {
		if err := c.ApplyPreset(f); err == nil {
			t.Errorf("expected an error for %v", f)
		}
		if got := c.Voice().Patch(); !reflect.DeepEqual(want, got) {
			t.Errorf("patch changed by an invalid preset: %+v", got)
		}
	}

	err := c.ApplyPreset(&PresetFile{Sequencer: map[string]int{"acidity": 16}})
	if err == nil || !strings.HasPrefix(err.Error(), "sequencer: ") {
		t.Errorf("expected a sequencer error, got %v", err)
	}
}

func TestPresetFile(t *testing.T) {
	c, _, _ := newTestController()
	c.Voice().SetValue(PatchVcoDcoRange, uint8(0xfe))
	c.Voice().SetValue(PatchCutoffBias, 77)
	patch := c.Voice().Patch()
	settings := c.Settings()

	path := filepath.Join(t.TempDir(), "patch.json")
	if err := NewPresetFile("test", &patch, &settings).Save(path); err != nil {
		t.Fatal(err)
	}
	f, err := LoadPresetJSON(path)
	if err != nil {
		t.Fatal(err)
	}
	if want, got := -2, f.Patch["dco-range"]; want != got {
		t.Errorf("wrong signed value: want %v, got %v", want, got)
	}

	other, _, _ := newTestController()
	if err := other.ApplyPreset(f); err != nil {
		t.Fatal(err)
	}
	if want, got := patch, other.Voice().Patch(); !reflect.DeepEqual(want, got) {
		t.Errorf("want %+v, got %+v", want, got)
	}
	if want, got := settings, other.Settings(); !reflect.DeepEqual(want, got) {
		t.Errorf("want %+v, got %+v", want, got)
	}
}
