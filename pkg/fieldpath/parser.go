// Copyright 2025 The Kube Resource Orchestrator Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package fieldpath parses and builds the dotted paths used to address
// attributes of a resource, e.g. `metadata.labels["app.kubernetes.io/name"]`
// or `spec.replicas[0]`.
package fieldpath

import (
	"fmt"
	"strconv"
)

// Segment is one step of a path. A segment either names a field or indexes
// a list.
type Segment struct {
	Name  string // Field name without quotes
	Index int    // -1 if not an array access
}

func NewNamedSegment(name string) Segment {
	return Segment{Name: name, Index: -1}
}

func NewIndexedSegment(index int) Segment {
	return Segment{Index: index}
}

// IsIndex returns true if the segment indexes a list.
func (s Segment) IsIndex() bool {
	return s.Index >= 0
}

// Parse splits a path into segments. Unquoted names stop at '.' and '[';
// names containing dots must be quoted: `labels["example.com/team"]`.
func Parse(path string) ([]Segment, error) {
	if path == "" {
		return nil, fmt.Errorf("empty path")
	}
	p := &parser{
		input: path,
		pos:   0,
		len:   len(path),
	}
	return p.parse()
}

// MustParse is like Parse but panics on error. Only use it with constant
// paths.
func MustParse(path string) []Segment {
	segments, err := Parse(path)
	if err != nil {
		panic(err)
	}
	return segments
}

type parser struct {
	input string
	pos   int
	len   int
}

func (p *parser) parse() ([]Segment, error) {
	var segments []Segment

	for p.pos < p.len {
		switch {
		case p.input[p.pos] == '[' && p.pos+1 < p.len && p.input[p.pos+1] == '"':
			field, err := p.parseQuotedField()
			if err != nil {
				return nil, err
			}
			segments = append(segments, NewNamedSegment(field))
		case p.input[p.pos] == '[':
			idx, err := p.parseArrayIndex()
			if err != nil {
				return nil, err
			}
			segments = append(segments, NewIndexedSegment(idx))
		default:
			field, err := p.parseUnquotedField()
			if err != nil {
				return nil, err
			}
			segments = append(segments, NewNamedSegment(field))
		}

		if p.pos < p.len && p.input[p.pos] == '.' {
			p.pos++
			if p.pos == p.len {
				return nil, fmt.Errorf("trailing dot at position %d", p.pos-1)
			}
		}
	}

	return segments, nil
}

func (p *parser) parseQuotedField() (string, error) {
	// skip [ and the opening quote, bounds were checked by the caller.
	p.pos += 2

	start := p.pos
	for p.pos < p.len {
		if p.input[p.pos] != '"' {
			p.pos++
			continue
		}
		field := p.input[start:p.pos]
		p.pos++

		if p.pos < p.len && p.input[p.pos] == ']' {
			p.pos++
			return field, nil
		}
		return "", fmt.Errorf("expected closing bracket after quote at position %d", p.pos)
	}
	return "", fmt.Errorf("unterminated quoted string starting at position %d", start)
}

func (p *parser) parseUnquotedField() (string, error) {
	start := p.pos
	for p.pos < p.len {
		if p.input[p.pos] == '.' || p.input[p.pos] == '[' {
			break
		}
		p.pos++
	}

	if start == p.pos {
		return "", fmt.Errorf("empty field name at position %d", start)
	}
	return p.input[start:p.pos], nil
}

func (p *parser) parseArrayIndex() (int, error) {
	p.pos++ // skip [

	start := p.pos
	for p.pos < p.len && p.input[p.pos] != ']' {
		p.pos++
	}

	if p.pos >= p.len {
		return -1, fmt.Errorf("unterminated array index at position %d", start)
	}

	idxStr := p.input[start:p.pos]
	p.pos++ // skip ]

	idx, err := strconv.Atoi(idxStr)
	if err != nil || idx < 0 {
		return -1, fmt.Errorf("invalid array index '%s' at position %d", idxStr, start)
	}

	return idx, nil
}
