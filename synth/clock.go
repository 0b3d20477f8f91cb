package synth

import "sync/atomic"

// Ticks of TickRate per clock event at 1 BPM, times 4. At 120 BPM a clock
// event lasts (tempoFactor + 240) / 480 ticks, 24 events per quarter note.
const tempoFactor = 392156

const (
	stepsPerPattern = 16
	eventsPerStep   = 6
)

// Clock turns a fixed rate tick into tempo-synchronous events with a groove
// applied per 16th note. Tick runs in the tick context and only touches
// atomics. Everything else belongs to the main loop.
type Clock struct {
	counter      atomic.Uint32
	tickDuration atomic.Uint32
	numEvents    atomic.Uint32

	// main loop state
	durations        [stepsPerPattern]uint32
	tickCount        uint8
	stepCount        uint8
	prescaler        uint8
	prescalerCounter uint8
}

func NewClock() *Clock {
	c := &Clock{prescaler: 1}
	c.Update(120, GrooveShuffle, 0, 1)
	c.Reset()
	return c
}

// Update recomputes the duration of each 16th note of the pattern. Every
// prescaler-th event is reported by CountEvents. A tempo of 0 selects an
// external clock and leaves the durations as they are.
func (c *Clock) Update(bpm uint8, template int, amount uint8, prescaler uint8) {
	if prescaler == 0 {
		prescaler = 1
	}
	c.prescaler = prescaler
	if bpm == 0 {
		return
	}
	if template < 0 || template >= numGrooveTemplates {
		template = GrooveShuffle
	}
	base := int32((tempoFactor + 2*uint32(bpm)) / (4 * uint32(bpm)))
	for i, offset := range grooveTemplates[template] {
		swing := (int32(offset) * base * int32(amount)) >> 16
		d := base + swing
		if d < 1 {
			d = 1
		}
		c.durations[i] = uint32(d)
	}
	c.tickDuration.Store(c.durations[c.stepCount])
}

// Tick advances the clock by one tick. Called at TickRate.
func (c *Clock) Tick() {
	n := c.counter.Add(1)
	if n >= c.tickDuration.Load() {
		c.numEvents.Add(1)
		c.counter.Store(0)
	}
}

// CountEvents drains the events produced by Tick since the last call and
// returns how many of them survive the prescaler.
func (c *Clock) CountEvents() int {
	n := c.numEvents.Swap(0)
	var count int
	for ; n > 0; n-- {
		c.tickCount++
		if c.tickCount == eventsPerStep {
			c.tickCount = 0
			c.stepCount++
			if c.stepCount == stepsPerPattern {
				c.stepCount = 0
			}
			c.tickDuration.Store(c.durations[c.stepCount])
		}
		c.prescalerCounter++
		if c.prescalerCounter >= c.prescaler {
			c.prescalerCounter = 0
			count++
		}
	}
	return count
}

// Reset restarts the pattern from its first step.
func (c *Clock) Reset() {
	c.counter.Store(0)
	c.numEvents.Store(0)
	c.tickCount = 0
	c.stepCount = 0
	c.tickDuration.Store(c.durations[0])
}
