package main

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/chzyer/readline"
	"github.com/mrdg/cvsynth/audio"
	"github.com/mrdg/cvsynth/dub"
	"github.com/mrdg/cvsynth/synth"
)

type env struct {
	engine *synth.Engine
	kit    *audio.Kit
	seed   int64
}

func (e *env) eval(input string) (string, error) {
	command, err := dub.Parse(input)
	if err != nil {
		return "", err
	}
	name := string(command.Name)
	cmd, ok := lookupCommand(name)
	if !ok {
		return "", fmt.Errorf("unknown command: %s", name)
	}
	if cmd.arity < 0 {
		arity := -cmd.arity
		if len(command.Args) < arity {
			return "", fmt.Errorf("%s: wrong number of arguments: need at least %v, got %v",
				cmd.name, arity, len(command.Args))
		}
	} else if len(command.Args) != cmd.arity {
		return "", fmt.Errorf("%s: wrong number of arguments: want %v, got %v",
			cmd.name, cmd.arity, len(command.Args))
	}
	result, err := cmd.run(e, command.Args)
	if err != nil {
		return result, fmt.Errorf("%s error: %w", cmd.name, err)
	}
	return result, nil
}

// update runs f on the controller from the main loop.
func (e *env) update(f func(c *synth.Controller)) {
	e.engine.Update(func(e *synth.Engine) { f(e.Controller()) })
}

func completer() *readline.PrefixCompleter {
	var presetItems []readline.PrefixCompleterInterface
	for _, name := range synth.PresetNames() {
		presetItems = append(presetItems, readline.PcItem(name))
	}
	var paramItems []readline.PrefixCompleterInterface
	for _, name := range parameterNames() {
		paramItems = append(paramItems, readline.PcItem(name))
	}
	var partItems []readline.PrefixCompleterInterface
	for _, name := range drumPartNames {
		partItems = append(partItems, readline.PcItem(name))
	}

	var items []readline.PrefixCompleterInterface
	for _, cmd := range commands {
		switch cmd.name {
		case "preset":
			items = append(items, readline.PcItem(cmd.name, presetItems...))
		case "set", "get", "knob":
			items = append(items, readline.PcItem(cmd.name, paramItems...))
		case "drums", "sound":
			items = append(items, readline.PcItem(cmd.name, partItems...))
		default:
			items = append(items, readline.PcItem(cmd.name))
		}
	}
	return readline.NewPrefixCompleter(items...)
}

func repl(env *env) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:       "> ",
		AutoComplete: completer(),
	})
	if err != nil {
		return err
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err == io.EOF || err == readline.ErrInterrupt {
			return nil
		}
		if err != nil {
			fmt.Println(err)
			continue
		}
		if len(strings.TrimSpace(line)) == 0 {
			continue
		}
		result, err := env.eval(line)
		if errors.Is(err, errQuit) {
			return nil
		}
		if err != nil {
			fmt.Println(err)
		} else if result != "" {
			fmt.Println(result)
		}
	}
}

type command struct {
	name  string
	run   func(*env, []dub.Node) (string, error)
	arity int // -n means len(args) must be >= n
	help  string
}

func lookupCommand(name string) (command, bool) {
	for _, cmd := range commands {
		if cmd.name == name {
			return cmd, true
		}
	}
	return command{}, false
}

// parameterNames returns the names accepted by set and get.
func parameterNames() []string {
	var patch synth.Patch
	var settings synth.SequencerSettings
	f := synth.NewPresetFile("", &patch, &settings)
	var names []string
	for name := range f.Patch {
		names = append(names, name)
	}
	for name := range f.Sequencer {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func readArgs(args []dub.Node, slots ...interface{}) error {
	if len(args) != len(slots) {
		return fmt.Errorf("wrong number of arguments: want %v, got %v", len(slots), len(args))
	}
	for n, arg := range args {
		dest := slots[n]
		switch p := dest.(type) {
		case *string:
			switch s := arg.(type) {
			case dub.String:
				*p = string(s)
			case dub.Identifier:
				*p = string(s)
			default:
				return fmt.Errorf("argument error: expected a string or identifier, got %v", arg)
			}
		case *float64:
			switch v := arg.(type) {
			case dub.Float:
				*p = float64(v)
			case dub.Int:
				*p = float64(v)
			default:
				return fmt.Errorf("argument error: expected a number, got %v", arg)
			}
		case *int:
			v, ok := arg.(dub.Int)
			if !ok {
				return fmt.Errorf("argument error: expected an integer, got %v", arg)
			}
			*p = int(v)
		case *uint8:
			v, ok := arg.(dub.Int)
			if !ok || v < 0 || v > 255 {
				return fmt.Errorf("argument error: expected an integer in 0..255, got %v", arg)
			}
			*p = uint8(v)
		case *dub.Step:
			switch v := arg.(type) {
			case dub.Step:
				*p = v
			case dub.Int:
				if v < 0 || v > 127 {
					return fmt.Errorf("argument error: note out of range: %d", v)
				}
				*p = dub.Step{Note: int(v)}
			default:
				return fmt.Errorf("argument error: expected a note, got %v", arg)
			}
		case *bool:
			s, ok := arg.(dub.Identifier)
			if !ok || (s != "on" && s != "off") {
				return fmt.Errorf("argument error: expected on or off, got %v", arg)
			}
			*p = s == "on"
		case *dub.MatchExpr:
			m, ok := arg.(dub.MatchExpr)
			if !ok {
				return fmt.Errorf("argument error: expected a match expression, got %v", arg)
			}
			*p = m
		default:
			panic("readArgs: unhandled destination type: " + fmt.Sprint(p))
		}
	}
	return nil
}
