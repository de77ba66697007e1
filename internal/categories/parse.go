// Package categories parses the string-encoded tag lists found in the
// Cleaned_Categories column (e.g. "['beauty', 'skincare']") and ranks tags by count.
//
// Only list literals of quoted strings are accepted. Anything else is a *ParseError,
// never evaluated.
package categories

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ParseError describes why a cell is not a list of strings.
type ParseError struct {
	Input string
	Pos   int
	Msg   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid category list at offset %d: %s", e.Pos, e.Msg)
}

// ParseList parses a literal such as ['a', "b"]. Empty lists and a trailing comma
// are allowed; surrounding whitespace is ignored.
func ParseList(s string) ([]string, error) {
	p := &listParser{src: s}
	p.skipSpace()
	if !p.consume('[') {
		return nil, p.fail("expected '['")
	}
	out := []string{}
	for {
		p.skipSpace()
		if p.consume(']') {
			break
		}
		item, err := p.str()
		if err != nil {
			return nil, err
		}
		out = append(out, item)
		p.skipSpace()
		if p.consume(',') {
			continue
		}
		if p.consume(']') {
			break
		}
		return nil, p.fail("expected ',' or ']'")
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return nil, p.fail("unexpected trailing input")
	}
	return out, nil
}

type listParser struct {
	src string
	pos int
}

func (p *listParser) fail(msg string) *ParseError {
	return &ParseError{Input: p.src, Pos: p.pos, Msg: msg}
}

func (p *listParser) skipSpace() {
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return
		}
	}
}

func (p *listParser) consume(c byte) bool {
	if p.pos < len(p.src) && p.src[p.pos] == c {
		p.pos++
		return true
	}
	return false
}

func (p *listParser) str() (string, error) {
	if p.pos >= len(p.src) {
		return "", p.fail("unexpected end of input")
	}
	quote := p.src[p.pos]
	if quote != '\'' && quote != '"' {
		return "", p.fail("expected quoted string")
	}
	p.pos++
	var b strings.Builder
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		switch {
		case c == quote:
			p.pos++
			return b.String(), nil
		case c == '\\':
			if p.pos+1 >= len(p.src) {
				return "", p.fail("dangling escape")
			}
			if err := p.escape(&b); err != nil {
				return "", err
			}
		case c == '\n':
			return "", p.fail("newline in string")
		default:
			b.WriteByte(c)
			p.pos++
		}
	}
	return "", p.fail("unterminated string")
}

var simpleEscapes = map[byte]byte{
	'\\': '\\', '\'': '\'', '"': '"',
	'n': '\n', 'r': '\r', 't': '\t',
	'a': '\a', 'b': '\b', 'f': '\f', 'v': '\v',
}

var hexDigits = map[byte]int{'x': 2, 'u': 4, 'U': 8}

// escape decodes the escape sequence at p.pos, covering everything repr() emits
// for a str: \\ \' \" \n \r \t \xhh \uhhhh \Uhhhhhhhh, plus octal and the
// remaining single-letter escapes.
func (p *listParser) escape(b *strings.Builder) error {
	e := p.src[p.pos+1]
	if c, ok := simpleEscapes[e]; ok {
		b.WriteByte(c)
		p.pos += 2
		return nil
	}
	switch e {
	case '\n':
		// line continuation
		p.pos += 2
		return nil
	case 'x', 'u', 'U':
		n := hexDigits[e]
		start := p.pos + 2
		if start+n > len(p.src) {
			return p.fail(fmt.Sprintf("truncated \\%c escape", e))
		}
		v, err := strconv.ParseUint(p.src[start:start+n], 16, 32)
		if err != nil {
			return p.fail(fmt.Sprintf("invalid \\%c escape", e))
		}
		r := rune(v)
		if !utf8.ValidRune(r) {
			return p.fail(fmt.Sprintf("invalid code point U+%X", v))
		}
		b.WriteRune(r)
		p.pos = start + n
		return nil
	}
	if e >= '0' && e <= '7' {
		end := p.pos + 1
		for end < len(p.src) && end < p.pos+4 && p.src[end] >= '0' && p.src[end] <= '7' {
			end++
		}
		v, _ := strconv.ParseUint(p.src[p.pos+1:end], 8, 32)
		b.WriteRune(rune(v))
		p.pos = end
		return nil
	}
	return p.fail(fmt.Sprintf("unsupported escape \\%c", e))
}
