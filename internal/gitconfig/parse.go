// Package gitconfig edits a repository's local .git/config without
// disturbing anything it wasn't asked to change. The parser keeps every
// line's original bytes, so sections, comments, and formatting that are
// not touched by Set are written back exactly as they were read.
package gitconfig

import (
	"fmt"
	"strings"
)

type lineKind int

const (
	kindOther lineKind = iota // blank or comment
	kindSection
	kindEntry
)

type line struct {
	raw     string // original bytes including the trailing newline
	kind    lineKind
	section string // lower-cased
	sub     string // case-sensitive
	key     string // lower-cased, entries only
	value   string // decoded, entries only
	indent  string
	inline  bool // entry shares its line with the section header
}

// File is a parsed git config.
type File struct {
	lines []line
}

// ParseError describes the first line of a config that couldn't be read.
type ParseError struct {
	Line   int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Reason)
}

// Parse reads git config text. Keys outside a section, broken section
// headers, invalid key names, and unterminated quotes are rejected.
func Parse(data []byte) (*File, error) {
	raws := splitLines(string(data))
	f := &File{}

	var section, sub string
	inSection := false

	for i := 0; i < len(raws); i++ {
		lineNo := i + 1
		raw := raws[i]
		trimmed := strings.TrimSpace(raw)

		switch {
		case trimmed == "" || trimmed[0] == '#' || trimmed[0] == ';':
			f.lines = append(f.lines, line{raw: raw, kind: kindOther})

		case trimmed[0] == '[':
			lead := len(raw) - len(strings.TrimLeft(raw, " \t"))
			name, subName, end, err := parseHeader(trimmed)
			if err != nil {
				return nil, &ParseError{Line: lineNo, Reason: err.Error()}
			}
			section, sub, inSection = name, subName, true

			// git accepts an entry on the header line: "[core] bare = false".
			rest := raw[lead+end+1:]
			restTrimmed := strings.TrimSpace(rest)
			if restTrimmed == "" || restTrimmed[0] == '#' || restTrimmed[0] == ';' {
				f.lines = append(f.lines, line{raw: raw, kind: kindSection, section: name, sub: subName})
				continue
			}
			f.lines = append(f.lines, line{raw: raw[:lead+end+1], kind: kindSection, section: name, sub: subName})
			for continues(rest) && i+1 < len(raws) {
				i++
				rest += raws[i]
			}
			key, value, err := parseEntry(strings.TrimLeft(rest, " \t"))
			if err != nil {
				return nil, &ParseError{Line: lineNo, Reason: err.Error()}
			}
			f.lines = append(f.lines, line{
				raw:     rest,
				kind:    kindEntry,
				section: section,
				sub:     sub,
				key:     key,
				value:   value,
				indent:  rest[:len(rest)-len(strings.TrimLeft(rest, " \t"))],
				inline:  true,
			})

		default:
			if !inSection {
				return nil, &ParseError{Line: lineNo, Reason: "key outside of any section"}
			}
			// A value ending in a backslash continues on the next line.
			for continues(raw) && i+1 < len(raws) {
				i++
				raw += raws[i]
			}
			key, value, err := parseEntry(strings.TrimLeft(raw, " \t"))
			if err != nil {
				return nil, &ParseError{Line: lineNo, Reason: err.Error()}
			}
			f.lines = append(f.lines, line{
				raw:     raw,
				kind:    kindEntry,
				section: section,
				sub:     sub,
				key:     key,
				value:   value,
				indent:  raw[:len(raw)-len(strings.TrimLeft(raw, " \t"))],
			})
		}
	}

	return f, nil
}

// splitLines splits s after every newline, keeping the newlines.
func splitLines(s string) []string {
	var out []string
	for s != "" {
		i := strings.IndexByte(s, '\n')
		if i < 0 {
			out = append(out, s)
			break
		}
		out = append(out, s[:i+1])
		s = s[i+1:]
	}
	return out
}

// continues reports whether raw ends with an odd number of backslashes
// before its line terminator.
func continues(raw string) bool {
	body := strings.TrimRight(raw, "\r\n")
	if len(body) == len(raw) {
		return false
	}
	n := 0
	for i := len(body) - 1; i >= 0 && body[i] == '\\'; i-- {
		n++
	}
	return n%2 == 1
}

// parseHeader parses "[name]", "[name \"sub\"]", or the legacy
// "[name.sub]" form and returns the index of the closing bracket. Text
// after the bracket is left to the caller.
func parseHeader(s string) (string, string, int, error) {
	end := -1
	inQuote := false
	for i := 1; i < len(s); i++ {
		c := s[i]
		if inQuote && c == '\\' && i+1 < len(s) {
			i++
			continue
		}
		if c == '"' {
			inQuote = !inQuote
			continue
		}
		if c == ']' && !inQuote {
			end = i
			break
		}
	}
	if end < 0 {
		return "", "", 0, fmt.Errorf("unterminated section header %q", s)
	}

	inner := s[1:end]
	name := inner
	sub := ""
	if sp := strings.IndexAny(inner, " \t"); sp >= 0 {
		name = inner[:sp]
		quoted := strings.TrimSpace(inner[sp:])
		if len(quoted) < 2 || quoted[0] != '"' || quoted[len(quoted)-1] != '"' {
			return "", "", 0, fmt.Errorf("subsection must be quoted in %q", s)
		}
		var b strings.Builder
		body := quoted[1 : len(quoted)-1]
		for i := 0; i < len(body); i++ {
			if body[i] == '\\' && i+1 < len(body) {
				i++
			}
			b.WriteByte(body[i])
		}
		sub = b.String()
	} else if dot := strings.IndexByte(inner, '.'); dot >= 0 {
		name, sub = inner[:dot], strings.ToLower(inner[dot+1:])
	}

	if !validSectionName(name) {
		return "", "", 0, fmt.Errorf("invalid section name %q", name)
	}
	return strings.ToLower(name), sub, end, nil
}

func validSectionName(name string) bool {
	if name == "" {
		return false
	}
	for _, r := range name {
		if !isAlnum(r) && r != '-' && r != '.' {
			return false
		}
	}
	return true
}

func validKey(key string) bool {
	if key == "" || !isLetter(rune(key[0])) {
		return false
	}
	for _, r := range key {
		if !isAlnum(r) && r != '-' {
			return false
		}
	}
	return true
}

// parseEntry parses "key", "key = value", with any trailing comment.
func parseEntry(s string) (string, string, error) {
	body := strings.TrimRight(s, "\r\n")

	keyEnd := strings.IndexAny(body, "= \t#;")
	if keyEnd < 0 {
		keyEnd = len(body)
	}
	key := body[:keyEnd]
	if !validKey(key) {
		return "", "", fmt.Errorf("invalid key %q", key)
	}

	rest := strings.TrimLeft(body[keyEnd:], " \t")
	if rest == "" || rest[0] == '#' || rest[0] == ';' {
		// Bare key means boolean true.
		return strings.ToLower(key), "true", nil
	}
	if rest[0] != '=' {
		return "", "", fmt.Errorf("expected '=' after key %q", key)
	}

	value, err := decodeValue(rest[1:])
	if err != nil {
		return "", "", fmt.Errorf("key %q: %w", key, err)
	}
	return strings.ToLower(key), value, nil
}

// decodeValue applies git's value rules: surrounding whitespace dropped,
// double quotes removed, escapes resolved, comments stripped.
func decodeValue(s string) (string, error) {
	var b strings.Builder
	inQuote := false
	keep := 0 // length of b that survives trailing whitespace trimming
	started := false

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\':
			if i+1 >= len(s) {
				return "", fmt.Errorf("dangling backslash")
			}
			i++
			switch s[i] {
			case 'n':
				b.WriteByte('\n')
			case 't':
				b.WriteByte('\t')
			case 'b':
				b.WriteByte('\b')
			case '"', '\\':
				b.WriteByte(s[i])
			case '\n':
				// line continuation
			case '\r':
				if i+1 < len(s) && s[i+1] == '\n' {
					i++
				}
			default:
				return "", fmt.Errorf("unknown escape \\%c", s[i])
			}
			started = true
			keep = b.Len()
		case c == '"':
			inQuote = !inQuote
			started = true
			keep = b.Len()
		case !inQuote && (c == '#' || c == ';'):
			i = len(s)
		case !inQuote && (c == ' ' || c == '\t'):
			if started {
				b.WriteByte(c)
			}
		case c == '\r' || c == '\n':
			// line terminator
		default:
			b.WriteByte(c)
			started = true
			keep = b.Len()
		}
	}

	if inQuote {
		return "", fmt.Errorf("unterminated quote")
	}
	return b.String()[:keep], nil
}

// encodeValue renders value for writing, quoting when git would otherwise
// trim or misread it.
func encodeValue(value string) string {
	needsQuote := value != strings.TrimSpace(value) || strings.ContainsAny(value, "#;")

	var b strings.Builder
	for _, r := range value {
		switch r {
		case '\\':
			b.WriteString(`\\`)
		case '"':
			b.WriteString(`\"`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	if needsQuote {
		return `"` + b.String() + `"`
	}
	return b.String()
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

func isAlnum(r rune) bool {
	return isLetter(r) || (r >= '0' && r <= '9')
}
