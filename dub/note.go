package dub

import (
	"fmt"
	"strconv"
	"strings"
)

var pitchClasses = map[byte]int{'c': 0, 'd': 2, 'e': 4, 'f': 5, 'g': 7, 'a': 9, 'b': 11}

var noteNames = [12]string{"c", "c#", "d", "d#", "e", "f", "f#", "g", "g#", "a", "a#", "b"}

// ParseNote converts a note name like c4, F#2 or eb-1 to a MIDI note
// number. Middle C is c4.
func ParseNote(s string) (int, error) {
	name := strings.ToLower(s)
	if len(name) < 2 {
		return 0, fmt.Errorf("invalid note: %q", s)
	}
	pc, ok := pitchClasses[name[0]]
	if !ok {
		return 0, fmt.Errorf("invalid note: %q", s)
	}
	rest := name[1:]
	switch rest[0] {
	case '#':
		pc++
		rest = rest[1:]
	case 'b':
		pc--
		rest = rest[1:]
	}
	if rest == "" || rest == "-" {
		return 0, fmt.Errorf("invalid note: %q", s)
	}
	octave, err := strconv.Atoi(rest)
	if err != nil {
		return 0, fmt.Errorf("invalid note: %q", s)
	}
	n := (octave+1)*12 + pc
	if n < 0 || n > 127 {
		return 0, fmt.Errorf("note out of range: %q", s)
	}
	return n, nil
}

func NoteName(n int) string {
	if n < 0 || n > 127 {
		return strconv.Itoa(n)
	}
	return noteNames[n%12] + strconv.Itoa(n/12-1)
}
