package gitconfig

import (
	"strings"
)

// Get returns the value of section[.sub].key. When a key is repeated the
// last occurrence wins, as it does for git.
func (f *File) Get(section, sub, key string) (string, bool) {
	section, key = strings.ToLower(section), strings.ToLower(key)
	value, found := "", false
	for _, l := range f.lines {
		if l.kind == kindEntry && l.section == section && l.sub == sub && l.key == key {
			value, found = l.value, true
		}
	}
	return value, found
}

// HasSection reports whether a [section "sub"] header exists.
func (f *File) HasSection(section, sub string) bool {
	section = strings.ToLower(section)
	for _, l := range f.lines {
		if l.kind == kindSection && l.section == section && l.sub == sub {
			return true
		}
	}
	return false
}

// Subsections lists the distinct subsection names of section in the order
// they first appear.
func (f *File) Subsections(section string) []string {
	section = strings.ToLower(section)
	seen := make(map[string]bool)
	var out []string
	for _, l := range f.lines {
		if l.kind == kindSection && l.section == section && l.sub != "" && !seen[l.sub] {
			seen[l.sub] = true
			out = append(out, l.sub)
		}
	}
	return out
}

// Set assigns section[.sub].key = value.
//
// The first existing line for the key is replaced in place and any later
// duplicates are dropped. Without an existing line the key is added after
// the last entry of the first matching section, and without a matching
// section a new one is appended. Every other line is left as is.
func (f *File) Set(section, sub, key, value string) {
	lowerSection, lowerKey := strings.ToLower(section), strings.ToLower(key)
	entry := func(indent string) line {
		if indent == "" {
			indent = "\t"
		}
		return line{
			raw:     indent + key + " = " + encodeValue(value) + "\n",
			kind:    kindEntry,
			section: lowerSection,
			sub:     sub,
			key:     lowerKey,
			value:   value,
			indent:  indent,
		}
	}
	matches := func(l line) bool {
		return l.kind == kindEntry && l.section == lowerSection && l.sub == sub && l.key == lowerKey
	}

	replaced := false
	out := make([]line, 0, len(f.lines)+2)
	for _, l := range f.lines {
		if !matches(l) {
			out = append(out, l)
			continue
		}
		if !replaced {
			e := entry(l.indent)
			e.inline = l.inline
			out = append(out, e)
			replaced = true
			continue
		}
		if l.inline {
			// Keep the header's line break.
			out = append(out, line{raw: "\n", kind: kindOther})
		}
	}
	if replaced {
		f.lines = out
		return
	}

	insertAt := -1
	for i, l := range f.lines {
		if l.kind != kindSection || l.section != lowerSection || l.sub != sub {
			continue
		}
		insertAt = i + 1
		for j := i + 1; j < len(f.lines) && f.lines[j].kind != kindSection; j++ {
			if f.lines[j].kind == kindEntry {
				insertAt = j + 1
			}
		}
		break
	}

	if insertAt >= 0 {
		f.terminate(insertAt - 1)
		f.lines = append(f.lines[:insertAt], append([]line{entry("")}, f.lines[insertAt:]...)...)
		return
	}

	f.terminate(len(f.lines) - 1)
	f.lines = append(f.lines,
		line{raw: header(section, sub), kind: kindSection, section: lowerSection, sub: sub},
		entry(""))
}

// terminate makes sure line i ends with a newline so a line can follow it.
func (f *File) terminate(i int) {
	if i < 0 || i >= len(f.lines) {
		return
	}
	if !strings.HasSuffix(f.lines[i].raw, "\n") {
		f.lines[i].raw += "\n"
	}
}

// Bytes renders the config. Lines Set didn't touch come out unchanged.
func (f *File) Bytes() []byte {
	var b strings.Builder
	for _, l := range f.lines {
		b.WriteString(l.raw)
	}
	return []byte(b.String())
}

func header(section, sub string) string {
	if sub == "" {
		return "[" + section + "]\n"
	}
	escaped := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(sub)
	return "[" + section + " \"" + escaped + "\"]\n"
}
