package synth

import (
	"math"
	"testing"
)

func TestClockEventsPerQuarterNote(t *testing.T) {
	c := NewClock()
	c.Update(120, GrooveShuffle, 0, 1)
	c.Reset()

	ticksPerQuarter := int(math.Round(TickRate * 60 / 120))
	var events int
	for i := 0; i < ticksPerQuarter; i++ {
		c.Tick()
		events += c.CountEvents()
	}
	if events < 23 || events > 24 {
		t.Errorf("wrong number of events per quarter note: want 24, got %v", events)
	}

	for i := 0; i < ticksPerQuarter*3; i++ {
		c.Tick()
		events += c.CountEvents()
	}
	if want, got := 96, events; want != got {
		t.Errorf("wrong number of events per bar: want %v, got %v", want, got)
	}
}

func TestClockPrescaler(t *testing.T) {
	c := NewClock()
	c.Update(120, GrooveShuffle, 0, 6)
	c.Reset()

	ticksPerQuarter := int(math.Round(TickRate * 60 / 120))
	var events int
	for i := 0; i < 4*ticksPerQuarter; i++ {
		c.Tick()
		events += c.CountEvents()
	}
	// 4 quarter notes at 120 BPM, one event per 16th note.
	if want, got := 16, events; want != got {
		t.Errorf("wrong number of prescaled events: want %v, got %v", want, got)
	}
}

func TestClockSwingKeepsBarLength(t *testing.T) {
	straight := NewClock()
	straight.Update(100, GrooveShuffle, 0, 1)
	swung := NewClock()
	swung.Update(100, GrooveShuffle, 127, 1)

	var a, b uint32
	for i := 0; i < stepsPerPattern; i++ {
		a += straight.durations[i]
		b += swung.durations[i]
	}
	if diff := int(a) - int(b); diff < -stepsPerPattern || diff > stepsPerPattern {
		t.Errorf("swing changed the bar length: %v vs %v", a, b)
	}
	if swung.durations[0] == swung.durations[1] {
		t.Errorf("expected uneven 16th notes with swing")
	}
}

func TestClockExternalTempoKeepsDurations(t *testing.T) {
	c := NewClock()
	before := c.durations
	c.Update(0, GrooveShuffle, 0, 0)
	if before != c.durations {
		t.Errorf("tempo 0 should leave the durations unchanged")
	}
	if want, got := uint8(1), c.prescaler; want != got {
		t.Errorf("prescaler 0 should become %v, got %v", want, got)
	}
}

func TestClockTempoChange(t *testing.T) {
	c := NewClock()
	c.Update(120, GrooveShuffle, 0, 1)
	c.Reset()
	for i := 0; i < 100; i++ {
		c.Tick()
		c.CountEvents()
	}

	c.Update(240, GrooveShuffle, 0, 1)
	if want, got := c.durations[0], c.tickDuration.Load(); want != got {
		t.Errorf("want tick duration %v after a tempo change, got %v", want, got)
	}
	var events int
	for i := 0; i < 2000; i++ {
		c.Tick()
		events += c.CountEvents()
	}
	// an event every 408 ticks at 240 BPM
	if events < 4 || events > 5 {
		t.Errorf("want the new tempo right away: 4 or 5 events, got %v", events)
	}
}
