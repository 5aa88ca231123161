// Package bibtex parses BibTeX source into flat entries: an entry-type tag,
// a citation key, and a field map. It understands brace-delimited,
// quote-delimited, and bare values, nested braces, and %-comments. It does
// not expand @string macros or resolve cross-references.
package bibtex

import (
	"fmt"
	"os"
	"strings"
)

// Entry is one parsed BibTeX entry. Field names are lowercased; values are
// unescaped and whitespace-collapsed at the line level. Names holds the
// field names in first-seen source order.
type Entry struct {
	Type   string
	Key    string
	Names  []string
	Fields map[string]string
}

// ParseFile reads and parses a .bib file.
func ParseFile(path string) ([]Entry, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	entries, err := Parse(string(b))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return entries, nil
}

type scanner struct {
	src  string
	pos  int
	line int
}

func (sc *scanner) eof() bool { return sc.pos >= len(sc.src) }

func (sc *scanner) next() byte {
	c := sc.src[sc.pos]
	if c == '\n' {
		sc.line++
	}
	sc.pos++
	return c
}

func (sc *scanner) peek() byte { return sc.src[sc.pos] }

func (sc *scanner) errf(format string, args ...any) error {
	return fmt.Errorf("line %d: %s", sc.line, fmt.Sprintf(format, args...))
}

func (sc *scanner) skipSpace() {
	for !sc.eof() {
		c := sc.peek()
		if c == '%' {
			for !sc.eof() && sc.peek() != '\n' {
				sc.next()
			}
			continue
		}
		if c == ' ' || c == '\t' || c == '\r' || c == '\n' {
			sc.next()
			continue
		}
		break
	}
}

func (sc *scanner) ident() string {
	start := sc.pos
	for !sc.eof() {
		c := sc.peek()
		if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') || c == '_' || c == '-' {
			sc.next()
			continue
		}
		break
	}
	return sc.src[start:sc.pos]
}

// Parse parses BibTeX source into entries in source order. @comment,
// @preamble, and @string blocks are skipped.
func Parse(src string) ([]Entry, error) {
	sc := &scanner{src: src, line: 1}
	var entries []Entry
	for {
		sc.skipSpace()
		if sc.eof() {
			return entries, nil
		}
		if sc.peek() != '@' {
			sc.next()
			continue
		}
		sc.next()
		sc.skipSpace()
		typ := strings.ToLower(sc.ident())
		if typ == "" {
			return nil, sc.errf("expected entry type after '@'")
		}
		sc.skipSpace()
		if sc.eof() || (sc.peek() != '{' && sc.peek() != '(') {
			return nil, sc.errf("expected '{' after @%s", typ)
		}
		open := sc.next()
		if typ == "comment" || typ == "preamble" || typ == "string" {
			if err := sc.skipBlock(open); err != nil {
				return nil, err
			}
			continue
		}
		e, err := sc.entryBody(typ)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
}

// skipBlock consumes a brace-balanced block after its opening delimiter.
func (sc *scanner) skipBlock(open byte) error {
	closer := byte('}')
	if open == '(' {
		closer = ')'
	}
	depth := 0
	for !sc.eof() {
		c := sc.next()
		switch c {
		case '\\':
			if !sc.eof() {
				sc.next()
			}
		case open:
			depth++
		case closer:
			if depth == 0 {
				return nil
			}
			depth--
		}
	}
	return sc.errf("unterminated @-block")
}

func (sc *scanner) entryBody(typ string) (Entry, error) {
	e := Entry{Type: typ, Fields: map[string]string{}}
	// citation key runs to the first comma
	start := sc.pos
	for !sc.eof() && sc.peek() != ',' && sc.peek() != '}' && sc.peek() != ')' {
		sc.next()
	}
	if sc.eof() {
		return e, sc.errf("missing comma after citation key")
	}
	e.Key = strings.TrimSpace(sc.src[start:sc.pos])
	if sc.peek() == ',' {
		sc.next()
	}
	for {
		sc.skipSpace()
		if sc.eof() {
			return e, sc.errf("unexpected end of input in @%s{%s}", typ, e.Key)
		}
		if sc.peek() == '}' || sc.peek() == ')' {
			sc.next()
			return e, nil
		}
		name := strings.ToLower(strings.TrimSpace(sc.ident()))
		if name == "" {
			return e, sc.errf("expected field name in @%s{%s}", typ, e.Key)
		}
		sc.skipSpace()
		if sc.eof() || sc.peek() != '=' {
			return e, sc.errf("expected '=' after field %q", name)
		}
		sc.next()
		sc.skipSpace()
		val, err := sc.value()
		if err != nil {
			return e, err
		}
		if _, dup := e.Fields[name]; !dup {
			e.Names = append(e.Names, name)
			e.Fields[name] = unescape(val)
		}
		sc.skipSpace()
		if !sc.eof() && sc.peek() == ',' {
			sc.next()
		}
	}
}

func (sc *scanner) value() (string, error) {
	if sc.eof() {
		return "", sc.errf("missing field value")
	}
	switch sc.peek() {
	case '{':
		sc.next()
		depth := 0
		start := sc.pos
		for !sc.eof() {
			c := sc.next()
			if c == '\\' {
				if !sc.eof() {
					sc.next()
				}
				continue
			}
			if c == '{' {
				depth++
				continue
			}
			if c == '}' {
				if depth == 0 {
					return sc.src[start : sc.pos-1], nil
				}
				depth--
			}
		}
		return "", sc.errf("unterminated braced value")
	case '"':
		sc.next()
		start := sc.pos
		for !sc.eof() {
			c := sc.next()
			if c == '\\' {
				if !sc.eof() {
					sc.next()
				}
				continue
			}
			if c == '"' {
				return sc.src[start : sc.pos-1], nil
			}
		}
		return "", sc.errf("unterminated quoted value")
	default:
		start := sc.pos
		for !sc.eof() && sc.peek() != ',' && sc.peek() != '}' && sc.peek() != ')' && sc.peek() != '\n' {
			sc.next()
		}
		return strings.TrimSpace(sc.src[start:sc.pos]), nil
	}
}

func unescape(s string) string {
	s = strings.ReplaceAll(s, "\\{", "{")
	s = strings.ReplaceAll(s, "\\}", "}")
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.TrimSpace(s)
}
