package synth

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

// PresetFile is the JSON form of a patch and, optionally, the sequencer
// settings. Values are keyed by parameter name and written as plain
// integers, signed for the signed patch bytes.
type PresetFile struct {
	Name      string         `json:"name,omitempty"`
	Patch     map[string]int `json:"patch,omitempty"`
	Sequencer map[string]int `json:"sequencer,omitempty"`
}

var presets = map[string]PresetFile{
	"acid-bass": {
		Patch: map[string]int{
			"dco-range":    -1,
			"cutoff":       40,
			"cutoff-env":   170,
			"tracking":     64,
			"attack":       0,
			"decay":        40,
			"sustain":      0,
			"release":      20,
			"vca-morph":    200,
			"glide":        0,
			"vcf-velocity": 96,
		},
		Sequencer: map[string]int{"acidity": 12, "tempo": 128},
	},
	"pluck": {
		Patch: map[string]int{
			"cutoff":     90,
			"cutoff-env": 120,
			"decay":      32,
			"sustain":    0,
			"release":    32,
		},
	},
	"slow-pad": {
		Patch: map[string]int{
			"pw-lfo":       40,
			"cutoff":       110,
			"cutoff-lfo":   20,
			"attack":       120,
			"decay":        100,
			"sustain":      200,
			"release":      140,
			"legato":       1,
			"glide":        60,
			"lfo-rate":     40,
			"vibrato-rate": 120,
		},
	},
	"sub-sine": {
		Patch: map[string]int{
			"dco-range":  -2,
			"pw-lfo":     0,
			"cutoff":     20,
			"tracking":   0,
			"cutoff-env": 0,
			"sustain":    255,
		},
	},
}

// PresetNames returns the built-in presets in alphabetical order.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func LoadPreset(name string) (*PresetFile, error) {
	p, ok := presets[name]
	if !ok {
		return nil, fmt.Errorf("unknown preset: %v", name)
	}
	p.Name = name
	return &p, nil
}

// LoadPresetJSON reads a preset file.
func LoadPresetJSON(path string) (*PresetFile, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var f PresetFile
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &f, nil
}

// NewPresetFile captures a full patch and sequencer settings.
func NewPresetFile(name string, patch *Patch, settings *SequencerSettings) *PresetFile {
	f := &PresetFile{Name: name, Patch: valuesOf(patch, patchFields[:])}
	if settings != nil {
		f.Sequencer = valuesOf(settings, seqFields[:])
	}
	return f
}

func (f *PresetFile) Save(path string) error {
	b, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(b, '\n'), 0o644)
}

// Apply validates every value and then updates the patch and settings.
// Values missing from the file are left unchanged. Nothing is modified when
// a value is invalid.
func (f *PresetFile) Apply(patch *Patch, settings *SequencerSettings) error {
	p := *patch
	if err := applyValues(&p, patchFields[:], f.Patch); err != nil {
		return fmt.Errorf("patch: %w", err)
	}
	s := *settings
	if err := applyValues(&s, seqFields[:], f.Sequencer); err != nil {
		return fmt.Errorf("sequencer: %w", err)
	}
	*patch = p
	*settings = s
	return nil
}

// ApplyPreset loads a preset into the voice and the sequencer settings.
func (c *Controller) ApplyPreset(f *PresetFile) error {
	patch := c.voice.Patch()
	settings := c.settings
	if err := f.Apply(&patch, &settings); err != nil {
		return err
	}
	c.voice.SetPatch(patch)
	if len(f.Sequencer) > 0 {
		c.SetSettings(settings)
	}
	return nil
}

func valuesOf[T any](v *T, fields []field[T]) map[string]int {
	m := make(map[string]int)
	for _, f := range fields {
		if f.name == "" {
			continue
		}
		b := f.get(v)
		if f.min < 0 {
			m[f.name] = int(int8(b))
		} else {
			m[f.name] = int(b)
		}
	}
	return m
}

func applyValues[T any](v *T, fields []field[T], values map[string]int) error {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	byName := make(map[string]field[T], len(fields))
	for _, f := range fields {
		if f.name != "" {
			byName[f.name] = f
		}
	}
	for _, name := range names {
		f, ok := byName[name]
		if !ok {
			return fmt.Errorf("unknown parameter %q", name)
		}
		b, err := checkField(f, values[name])
		if err != nil {
			return err
		}
		f.set(v, b)
	}
	return nil
}
