package synth

import (
	"fmt"

	"github.com/gordonklaus/portaudio"
)

const (
	sinkSampleRate = 48000
	sinkBufferSize = 256
	// NumLanes is the number of outputs of a DAC sample: four CVs and the
	// gate.
	NumLanes = 5
)

type TickSource interface {
	Tick() DACState
}

// Sink plays the DAC output through a DC-coupled audio interface, one CV
// lane per channel, and drives the tick source from the audio callback.
type Sink struct {
	source   TickSource
	channels int
	stream   *portaudio.Stream

	ticksPerFrame float64
	phase         float64
	last          DACState
}

func NewSink(source TickSource, channels int) (*Sink, error) {
	if channels < 1 || channels > NumLanes {
		return nil, fmt.Errorf("channels must be in 1..%d, got %d", NumLanes, channels)
	}
	if err := portaudio.Initialize(); err != nil {
		return nil, err
	}
	s := &Sink{
		source:        source,
		channels:      channels,
		ticksPerFrame: TickRate / sinkSampleRate,
	}
	stream, err := portaudio.OpenDefaultStream(0, channels, sinkSampleRate, sinkBufferSize, s.Process)
	if err != nil {
		portaudio.Terminate()
		return nil, err
	}
	s.stream = stream
	return s, nil
}

func (s *Sink) Start() error {
	return s.stream.Start()
}

func (s *Sink) Stop() error {
	s.stream.Close()
	portaudio.Terminate()
	return nil
}

// Process fills a non-interleaved buffer.
func (s *Sink) Process(out [][]float32) {
	if len(out) == 0 {
		return
	}
	for i := range out[0] {
		s.phase += s.ticksPerFrame
		for s.phase >= 1 {
			s.last = s.source.Tick()
			s.phase--
		}
		for lane := range out {
			out[lane][i] = LaneLevel(s.last, lane)
		}
	}
}

// LaneLevel converts a lane of a sample to a level in 0..1.
func LaneLevel(s DACState, lane int) float32 {
	if lane == NumLanes-1 {
		if s.Gate {
			return 1
		}
		return 0
	}
	return float32(s.CV(lane)) / 4095
}
