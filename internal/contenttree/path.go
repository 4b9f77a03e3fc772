package contenttree

import (
	"strconv"
	"strings"
)

// Level identifies the child slice a path segment indexes into.
type Level int

const (
	LevelRoot Level = iota
	LevelTopics
	LevelSubtopics
	LevelDetails
	LevelSubdetails
)

var levelKeys = map[string]Level{
	"topics":     LevelTopics,
	"subtopics":  LevelSubtopics,
	"details":    LevelDetails,
	"subdetails": LevelSubdetails,
}

// Key returns the JSON key of the level, or "root".
func (l Level) Key() string {
	switch l {
	case LevelTopics:
		return "topics"
	case LevelSubtopics:
		return "subtopics"
	case LevelDetails:
		return "details"
	case LevelSubdetails:
		return "subdetails"
	default:
		return "root"
	}
}

// Segment is one level[index] step of a path.
type Segment struct {
	Level Level
	Index int
}

// Path addresses a node in a Tree. The empty path is the root.
type Path []Segment

// Level returns the level of the addressed node.
func (p Path) Level() Level {
	if len(p) == 0 {
		return LevelRoot
	}
	return p[len(p)-1].Level
}

// String renders the path in canonical form, e.g. "root.topics[0].subtopics[2]".
func (p Path) String() string {
	var b strings.Builder
	b.WriteString("root")
	for _, s := range p {
		b.WriteByte('.')
		b.WriteString(s.Level.Key())
		b.WriteByte('[')
		b.WriteString(strconv.Itoa(s.Index))
		b.WriteByte(']')
	}
	return b.String()
}

// Child returns a copy of p extended by one segment.
func (p Path) Child(level Level, index int) Path {
	out := make(Path, len(p), len(p)+1)
	copy(out, p)
	return append(out, Segment{Level: level, Index: index})
}

// ParsePath parses addresses of the form
//
//	[root.]topics[i][.subtopics[j][.details[k][.subdetails[l]]]]
//
// Keys must follow the hierarchy without gaps and each must carry a
// non-negative integer index. Particulars are leaves and cannot be addressed.
func ParsePath(s string) (Path, error) {
	p := &pathParser{src: s}
	return p.parse()
}

type pathParser struct {
	src string
	pos int
}

func (p *pathParser) fail(reason string) error {
	return &InvalidPathError{Path: p.src, Reason: reason}
}

func (p *pathParser) parse() (Path, error) {
	if strings.TrimSpace(p.src) == "" {
		return nil, p.fail("empty path")
	}
	if strings.HasPrefix(p.src, "root") && (len(p.src) == 4 || p.src[4] == '.') {
		p.pos = 4
		if p.pos == len(p.src) {
			return Path{}, nil
		}
		p.pos++
	}
	return p.segments(LevelTopics, Path{})
}

// segments parses "segment ('.' segments)?" where the segment must be at want.
func (p *pathParser) segments(want Level, acc Path) (Path, error) {
	seg, err := p.segment(want)
	if err != nil {
		return nil, err
	}
	acc = append(acc, seg)
	if p.pos == len(p.src) {
		return acc, nil
	}
	if p.src[p.pos] != '.' {
		return nil, p.fail("expected '.' at offset " + strconv.Itoa(p.pos))
	}
	p.pos++
	if want == LevelSubdetails {
		return nil, p.fail("path continues below subdetails")
	}
	return p.segments(want+1, acc)
}

func (p *pathParser) segment(want Level) (Segment, error) {
	start := p.pos
	for p.pos < len(p.src) && isKeyByte(p.src[p.pos]) {
		p.pos++
	}
	key := p.src[start:p.pos]
	if key == "" {
		return Segment{}, p.fail("missing level key at offset " + strconv.Itoa(start))
	}
	if key == "particulars" {
		return Segment{}, p.fail("particulars are leaves and cannot be addressed")
	}
	level, ok := levelKeys[key]
	if !ok {
		return Segment{}, p.fail("unknown level key " + strconv.Quote(key))
	}
	if level != want {
		return Segment{}, p.fail(key + " out of order, expected " + want.Key())
	}
	if p.pos >= len(p.src) || p.src[p.pos] != '[' {
		return Segment{}, p.fail(key + " is not followed by an index")
	}
	p.pos++
	numStart := p.pos
	for p.pos < len(p.src) && p.src[p.pos] >= '0' && p.src[p.pos] <= '9' {
		p.pos++
	}
	if numStart == p.pos {
		return Segment{}, p.fail(key + " index is not a non-negative integer")
	}
	idx, err := strconv.Atoi(p.src[numStart:p.pos])
	if err != nil {
		return Segment{}, p.fail(key + " index out of range")
	}
	if p.pos >= len(p.src) || p.src[p.pos] != ']' {
		return Segment{}, p.fail("unterminated index for " + key)
	}
	p.pos++
	return Segment{Level: level, Index: idx}, nil
}

func isKeyByte(c byte) bool {
	return c >= 'a' && c <= 'z'
}
