package dub

import (
	"fmt"
	"math"
)

type matchItem struct {
	level   int
	matcher matcher
}

type matcher interface {
	match(i int) bool
}

type rangeMatch struct {
	start, end int
}

func (r rangeMatch) match(i int) bool {
	return (i >= r.start || r.start == -1) && (i <= r.end || r.end == -1)
}

var matchAll = rangeMatch{-1, -1}

type listMatch []int

func (l listMatch) match(i int) bool {
	for _, k := range l {
		if k == i {
			return true
		}
	}
	return false
}

// EvalMatchExpr returns the steps selected by expr in a bar of the given
// time signature, with stepSize steps per whole note. The first level of
// the expression selects beats, every further level halves the division.
func EvalMatchExpr(expr MatchExpr, numerator, denominator, stepSize int) ([]int, error) {
	if numerator <= 0 || denominator <= 0 || stepSize < denominator {
		return nil, fmt.Errorf("invalid time signature %d/%d with step size %d", numerator, denominator, stepSize)
	}
	seq := make([]int, (stepSize/denominator)*numerator)

	for i := len(expr.matchers) - 1; i >= 0; i-- {
		item := expr.matchers[i]
		level := int(float64(denominator) * math.Pow(2.0, float64(item.level)))
		if level > stepSize {
			return nil, fmt.Errorf("can't match on %d notes with step size %d", level, stepSize)
		}
		skip := stepSize / level
		notesPerBeat := level / denominator

		for note, steps := 0, 0; note < len(seq); note += skip {
			// calculate a note number relative to other notes on the same division, e.g.
			// the 16th notes within a beat are numbered 0 to 3
			noteNum := steps % notesPerBeat
			if notesPerBeat == 1 {
				noteNum = steps
			}
			steps++

			// add 1 because match expects note numbers to start at 1
			if item.matcher.match(noteNum + 1) {
				if i == len(expr.matchers)-1 {
					seq[note] = 1
				}
			} else {
				// zero steps that are unmatched by the current level
				for i := note; i < note+skip && i < len(seq); i++ {
					seq[i] = 0
				}
			}
		}
	}
	return seq, nil
}

// StepMask evaluates expr on a 4/4 bar of 16th notes. Bit n of the mask
// is step n.
func StepMask(expr MatchExpr) (uint16, error) {
	seq, err := EvalMatchExpr(expr, 4, 4, 16)
	if err != nil {
		return 0, err
	}
	var mask uint16
	for n, v := range seq {
		if v != 0 {
			mask |= 1 << n
		}
	}
	return mask, nil
}
