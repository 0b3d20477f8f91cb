package dub

import (
	"fmt"
	"strconv"
	"strings"
)

type Node interface {
	isNode()
}

func (Identifier) isNode() {}
func (Int) isNode()        {}
func (Float) isNode()      {}
func (String) isNode()     {}
func (MatchExpr) isNode()  {}
func (Step) isNode()       {}
func (Tie) isNode()        {}
func (Rest) isNode()       {}

type Command struct {
	Name Identifier
	Args []Node
}

type Identifier string
type Int int
type Float float64
type String string
type MatchExpr struct {
	matchers []matchItem
}

// Step is a note of a sequence, written as a note name or a MIDI note
// number. A trailing ! accents it and a trailing ^ slides into it.
type Step struct {
	Note   int
	Accent bool
	Slide  bool
}

// Tie (~) holds the previous note for one more step.
type Tie struct{}

// Rest (_) is a silent step.
type Rest struct{}

func (s Step) String() string {
	var b strings.Builder
	b.WriteString(NoteName(s.Note))
	if s.Accent {
		b.WriteByte('!')
	}
	if s.Slide {
		b.WriteByte('^')
	}
	return b.String()
}

func (Tie) String() string  { return "~" }
func (Rest) String() string { return "_" }

func Parse(input string) (Command, error) {
	tokens, err := lex(input)
	if err != nil {
		return Command{}, err
	}
	p := parser{tokens: tokens}
	return p.parse()
}

type parser struct {
	pos    int
	tokens []token
}

func (p *parser) next() token {
	t := p.tokens[p.pos]
	if t.typ != typeEOF {
		p.pos++
	}
	return t
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) parse() (Command, error) {
	var cmd Command
	token := p.next()
	if token.typ != typeIdentifier {
		return cmd, unexpected(token)
	}
	cmd.Name = Identifier(token.text)
	for token := p.next(); token.typ != typeEOF; token = p.next() {
		var arg Node
		switch token.typ {
		case typeIdentifier:
			if note, err := ParseNote(token.text); err == nil {
				arg = p.modifiers(Step{Note: note})
			} else {
				if m := p.peek().typ; m == typeBang || m == typeCaret {
					return cmd, fmt.Errorf("%s is not a note", token.text)
				}
				arg = Identifier(token.text)
			}
		case typeString:
			arg = String(token.text[1 : len(token.text)-1])
		case typeFloat:
			f, err := strconv.ParseFloat(token.text, 64)
			if err != nil {
				return cmd, err
			}
			arg = Float(f)
		case typeInt:
			n, err := strconv.Atoi(token.text)
			if err != nil {
				return cmd, err
			}
			if m := p.peek().typ; m == typeBang || m == typeCaret {
				if n < 0 || n > 127 {
					return cmd, fmt.Errorf("note out of range: %d", n)
				}
				arg = p.modifiers(Step{Note: n})
			} else {
				arg = Int(n)
			}
		case typeTilde:
			arg = Tie{}
		case typeUnderscore:
			arg = Rest{}
		case typeQuote:
			matchExpr, err := p.matchExpr()
			if err != nil {
				return cmd, err
			}
			arg = matchExpr
		default:
			return cmd, unexpected(token)
		}
		cmd.Args = append(cmd.Args, arg)
	}
	return cmd, nil
}

func (p *parser) modifiers(s Step) Step {
	for {
		switch p.peek().typ {
		case typeBang:
			s.Accent = true
		case typeCaret:
			s.Slide = true
		default:
			return s
		}
		p.next()
	}
}

// matchExpr parses the items following a quote, separated by slashes. An
// extra slash skips a level.
func (p *parser) matchExpr() (MatchExpr, error) {
	match := MatchExpr{}
	current := matchItem{}

	for {
		token := p.next()
		switch token.typ {
		case typeInt:
			switch p.peek().typ {
			case typeColon:
				p.next()
				start, err := strconv.Atoi(token.text)
				if err != nil {
					return match, err
				}
				t := p.next()
				if t.typ != typeInt {
					return match, unexpected(t)
				}
				end, err := strconv.Atoi(t.text)
				if err != nil {
					return match, err
				}
				current.matcher = rangeMatch{start: start, end: end}
			default:
				list, err := p.listMatch(token)
				if err != nil {
					return match, err
				}
				current.matcher = list
			}
		case typeAsterisk:
			current.matcher = matchAll
		default:
			return match, unexpected(token)
		}

		match.matchers = append(match.matchers, current)
		if p.peek().typ != typeSlash {
			return match, nil
		}
		current = matchItem{level: current.level}
		for p.peek().typ == typeSlash {
			p.next()
			current.level++
		}
	}
}

func (p *parser) listMatch(start token) (listMatch, error) {
	var list listMatch
	current := start
	for {
		n, err := strconv.Atoi(current.text)
		if err != nil {
			return list, err
		}
		list = append(list, n)
		if p.peek().typ != typeComma {
			return list, nil
		}
		p.next()
		current = p.next()
		if current.typ != typeInt {
			return list, unexpected(current)
		}
	}
}

func unexpected(t token) error {
	if t.typ == typeEOF {
		return fmt.Errorf("unexpected end of input")
	}
	return fmt.Errorf("unexpected %v %q at position %d", t.typ, t.text, t.pos)
}
