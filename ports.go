package main

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/mrdg/cvsynth/synth"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	_ "gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

const flushInterval = time.Millisecond

type port interface {
	String() string
}

// findPort selects a port by number or by a case-insensitive part of its
// name.
func findPort[P port](ports []P, name string) (P, error) {
	var zero P
	if n, err := strconv.Atoi(name); err == nil {
		if n < 0 || n >= len(ports) {
			return zero, fmt.Errorf("port %d out of range", n)
		}
		return ports[n], nil
	}
	for _, p := range ports {
		if strings.Contains(strings.ToLower(p.String()), strings.ToLower(name)) {
			return p, nil
		}
	}
	return zero, fmt.Errorf("no port matching %q", name)
}

func listPorts() (string, error) {
	ins, err := drivers.Ins()
	if err != nil {
		return "", err
	}
	outs, err := drivers.Outs()
	if err != nil {
		return "", err
	}
	var b strings.Builder
	b.WriteString("in:\n")
	for i, in := range ins {
		fmt.Fprintf(&b, "  %d: %s\n", i, in)
	}
	b.WriteString("out:")
	for i, out := range outs {
		fmt.Fprintf(&b, "\n  %d: %s", i, out)
	}
	return b.String(), nil
}

// midiPorts connects the engine to MIDI devices. Either port may be
// missing.
type midiPorts struct {
	in   drivers.In
	out  drivers.Out
	stop func()
}

func openMIDI(e *synth.Engine, inName, outName string) (*midiPorts, error) {
	p := &midiPorts{}
	if inName != "" {
		ins, err := drivers.Ins()
		if err != nil {
			return nil, err
		}
		in, err := findPort(ins, inName)
		if err != nil {
			return nil, fmt.Errorf("midi in: %w", err)
		}
		if err := in.Open(); err != nil {
			return nil, fmt.Errorf("open %s: %w", in, err)
		}
		stop, err := midi.ListenTo(in, func(msg midi.Message, _ int32) {
			e.ReceiveMIDI(msg)
		}, midi.HandleError(func(err error) {
			log.Printf("midi in: %v", err)
		}))
		if err != nil {
			in.Close()
			return nil, fmt.Errorf("listen to %s: %w", in, err)
		}
		p.in, p.stop = in, stop
		log.Printf("midi in: %s", in)
	}
	if outName != "" {
		outs, err := drivers.Outs()
		if err != nil {
			p.Close()
			return nil, err
		}
		out, err := findPort(outs, outName)
		if err != nil {
			p.Close()
			return nil, fmt.Errorf("midi out: %w", err)
		}
		if err := out.Open(); err != nil {
			p.Close()
			return nil, fmt.Errorf("open %s: %w", out, err)
		}
		p.out = out
		log.Printf("midi out: %s", out)
	}
	return p, nil
}

func (p *midiPorts) send(msg midi.Message) error {
	if p.out == nil {
		return nil
	}
	return p.out.Send(msg.Bytes())
}

// flush sends the MIDI generated by the engine until ctx is cancelled.
// Without an output port the messages are discarded.
func (p *midiPorts) flush(ctx context.Context, e *synth.Engine) {
	t := time.NewTicker(flushInterval)
	defer t.Stop()
	failures := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			// A failed message stays queued and is retried on the next tick.
			if err := e.MIDI().Flush(p.send); err != nil {
				failures++
				if failures == 1 || failures%1000 == 0 {
					log.Printf("midi out: %v (%d failures)", err, failures)
				}
			} else {
				failures = 0
			}
		}
	}
}

func (p *midiPorts) Close() {
	if p.stop != nil {
		p.stop()
	}
	if p.in != nil {
		p.in.Close()
	}
	if p.out != nil {
		p.out.Close()
	}
	drivers.Close()
}
