package audio

import (
	"github.com/gordonklaus/portaudio"
)

const (
	SampleRate = 48000
	bufferSize = 256
)

type Source interface {
	Process([][]float32)
}

// Sink plays its sources on the default stereo output.
type Sink struct {
	sources []Source
	stream  *portaudio.Stream
}

func NewSink() (*Sink, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, err
	}
	var s Sink
	stream, err := portaudio.OpenDefaultStream(0, 2, SampleRate, bufferSize, s.Process)
	if err != nil {
		portaudio.Terminate()
		return nil, err
	}
	s.stream = stream
	return &s, nil
}

func (s *Sink) Start() error {
	return s.stream.Start()
}

func (s *Sink) Stop() error {
	s.stream.Close()
	portaudio.Terminate()
	return nil
}

// AddSources must be called before Start.
func (s *Sink) AddSources(sources ...Source) {
	s.sources = append(s.sources, sources...)
}

func (s *Sink) Process(samples [][]float32) {
	for i := range samples {
		for j := range samples[i] {
			samples[i][j] = 0.
		}
	}
	for _, source := range s.sources {
		source.Process(samples)
	}
}
