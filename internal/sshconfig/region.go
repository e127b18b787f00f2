package sshconfig

import (
	"bytes"
	"fmt"
)

// document is an SSH config split around the managed region.
type document struct {
	before []byte // everything up to the start marker line
	region []byte // lines strictly between the markers
	after  []byte // everything following the end marker line
	found  bool
}

// split locates the marker lines in content. Markers must each appear at
// most once, both or neither, with the start before the end.
func split(content []byte) (*document, error) {
	startLine, endLine := -1, -1
	var startOff, regionOff, endOff, afterOff int

	offset := 0
	lineNo := 0
	for offset < len(content) {
		next := bytes.IndexByte(content[offset:], '\n')
		lineEnd := len(content)
		if next >= 0 {
			lineEnd = offset + next + 1
		}
		line := bytes.TrimSpace(content[offset:lineEnd])
		lineNo++

		switch string(line) {
		case StartMarker:
			if startLine >= 0 {
				return nil, fmt.Errorf("line %d: second start marker (first on line %d)", lineNo, startLine)
			}
			if endLine >= 0 {
				return nil, fmt.Errorf("line %d: start marker after end marker on line %d", lineNo, endLine)
			}
			startLine = lineNo
			startOff, regionOff = offset, lineEnd
		case EndMarker:
			if endLine >= 0 {
				return nil, fmt.Errorf("line %d: second end marker (first on line %d)", lineNo, endLine)
			}
			if startLine < 0 {
				return nil, fmt.Errorf("line %d: end marker without a start marker", lineNo)
			}
			endLine = lineNo
			endOff, afterOff = offset, lineEnd
		}

		offset = lineEnd
	}

	if startLine >= 0 && endLine < 0 {
		return nil, fmt.Errorf("line %d: start marker without an end marker", startLine)
	}
	if startLine < 0 {
		return &document{before: content}, nil
	}

	return &document{
		before: content[:startOff],
		region: content[regionOff:endOff],
		after:  content[afterOff:],
		found:  true,
	}, nil
}

// join puts a new region (markers included) between before and after.
func (d *document) join(region string) []byte {
	var b bytes.Buffer
	b.Grow(len(d.before) + len(region) + len(d.after))
	b.Write(d.before)
	b.WriteString(region)
	b.Write(d.after)
	return b.Bytes()
}
