package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"time"

	"github.com/mrdg/cvsynth/audio"
	"github.com/mrdg/cvsynth/synth"
)

func main() {
	var (
		eeprom   = flag.String("eeprom", "", "file keeping the patch, sequence and settings")
		patch    = flag.String("patch", "", "preset name or JSON file to load at startup")
		midiIn   = flag.String("midi-in", "", "MIDI input port, by number or name")
		midiOut  = flag.String("midi-out", "", "MIDI output port, by number or name")
		monitor  = flag.Bool("monitor", false, "play the voice and the drums on the audio output")
		cv       = flag.Int("cv", 0, "send this many CV lanes to a DC-coupled audio interface")
		drums    = flag.String("drums", "", "comma-separated WAV files for bd, sd and hh")
		run      = flag.String("run", "", "file with commands to run at startup")
		seed     = flag.Int64("seed", 1, "seed of the random generator")
		detune   = flag.Float64("vco-detune", 0, "detune of the simulated VCO in cents")
		tracking = flag.Float64("vco-tracking", 1, "octaves per volt of the simulated VCO")
		debug    = flag.Bool("debug", false, "log with timestamps and source locations")
	)
	flag.Parse()

	if *debug {
		log.SetFlags(log.Lmicroseconds | log.Lshortfile)
	} else {
		log.SetFlags(0)
	}

	var dev synth.Device
	if *eeprom != "" {
		f, err := os.OpenFile(*eeprom, os.O_RDWR|os.O_CREATE, 0o644)
		if err != nil {
			log.Fatal(err)
		}
		defer f.Close()
		dev = f
	}
	engine := synth.NewEngine(dev, *seed)

	if *patch != "" {
		f, err := loadPreset(*patch)
		if err != nil {
			log.Fatal(err)
		}
		engine.Update(func(e *synth.Engine) { err = e.Controller().ApplyPreset(f) })
		if err != nil {
			log.Fatal(err)
		}
	}

	var script []string
	if *run != "" {
		f, err := os.Open(*run)
		if err != nil {
			log.Fatal(err)
		}
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line != "" && !strings.HasPrefix(line, "#") {
				script = append(script, line)
			}
		}
		f.Close()
		if err := scanner.Err(); err != nil {
			log.Fatal(err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	ports, err := openMIDI(engine, *midiIn, *midiOut)
	if err != nil {
		log.Fatal(err)
	}
	defer ports.Close()
	go ports.flush(ctx, engine)

	osc := newVCO(engine, *detune, *tracking)
	env := &env{engine: engine, seed: *seed}

	// Exactly one of the outputs drives the ticks.
	var ticks synth.TickSource = osc
	if *cv > 0 {
		sink, err := synth.NewSink(osc, *cv)
		if err != nil {
			log.Fatal(err)
		}
		if err := sink.Start(); err != nil {
			log.Fatal(err)
		}
		defer sink.Stop()
		ticks = nil
	}
	if *monitor {
		kit := audio.NewKit(audio.SampleRate)
		if err := loadDrumSounds(kit, *drums); err != nil {
			log.Fatal(err)
		}
		engine.SetDrumVoice(kit)
		env.kit = kit

		sink, err := audio.NewSink()
		if err != nil {
			log.Fatal(err)
		}
		sink.AddSources(kit)
		if ticks != nil {
			sink.AddSources(newVoiceSource(ticks))
			ticks = nil
		}
		if err := sink.Start(); err != nil {
			log.Fatal(err)
		}
		defer sink.Stop()
	}
	if ticks != nil {
		go runTicks(ctx, ticks)
	}

	done := make(chan error, 1)
	go func() { done <- engine.Run(ctx) }()

	quit := false
	for _, line := range script {
		result, err := env.eval(line)
		if errors.Is(err, errQuit) {
			quit = true
			break
		}
		if err != nil {
			log.Fatal(err)
		}
		if result != "" {
			fmt.Println(result)
		}
	}

	if !quit {
		if err := repl(env); err != nil {
			fmt.Println(err)
		}
	}
	stop()
	if err := <-done; err != nil && !errors.Is(err, context.Canceled) {
		log.Println(err)
	}
	if _, err := saveCommand(env, nil); err != nil {
		log.Println(err)
	}
}

// runTicks ticks in real time when no audio callback does.
func runTicks(ctx context.Context, src synth.TickSource) {
	t := time.NewTicker(time.Millisecond)
	defer t.Stop()
	start := time.Now()
	var done int64
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-t.C:
			due := int64(now.Sub(start).Seconds() * synth.TickRate)
			for ; done < due; done++ {
				src.Tick()
			}
		}
	}
}

func loadDrumSounds(kit *audio.Kit, files string) error {
	if files == "" {
		return nil
	}
	for part, file := range strings.Split(files, ",") {
		file = strings.TrimSpace(file)
		if file == "" {
			continue
		}
		if part >= audio.NumParts {
			return fmt.Errorf("too many drum sounds, want at most %d", audio.NumParts)
		}
		sound, err := audio.LoadSound(file)
		if err != nil {
			return err
		}
		if err := kit.SetSound(part, sound); err != nil {
			return err
		}
	}
	return nil
}
