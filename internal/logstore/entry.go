package logstore

import (
	"bytes"
	"strings"

	"github.com/five82/pufferwatch/internal/parse"
)

// Entry is a read-only view of one committed log entry. Raw aliases the
// generation's arena and must not be modified; it stays valid for as long as
// the Entry is held, even after the generation is replaced.
type Entry struct {
	Seq   uint64
	Time  parse.Timestamp
	Level parse.Level
	Span  Span
	Raw   []byte

	sourceStart int32
	sourceEnd   int32
	bodyStart   int32
}

// SourceBytes returns the source tag without copying.
func (e Entry) SourceBytes() []byte {
	return e.Raw[e.sourceStart:e.sourceEnd]
}

// Source returns the source tag, or "" when the entry has none.
func (e Entry) Source() string {
	return string(e.SourceBytes())
}

// BodyBytes returns the message text following the header, continuation lines
// included, without copying.
func (e Entry) BodyBytes() []byte {
	return e.Raw[e.bodyStart:]
}

// Body materializes the message as text lines. The first element is the
// remainder of the header line.
func (e Entry) Body() []string {
	return strings.Split(string(e.BodyBytes()), "\n")
}

// LineCount returns the number of physical lines in the entry.
func (e Entry) LineCount() int {
	return bytes.Count(e.Raw, []byte{'\n'}) + 1
}

// RawLines returns the entry's physical lines, header included.
func (e Entry) RawLines() []string {
	return strings.Split(string(e.Raw), "\n")
}

func entryFromSlot(seq uint64, s *slot, raw []byte) Entry {
	return Entry{
		Seq:         seq,
		Time:        s.time,
		Level:       s.level,
		Span:        s.span,
		Raw:         raw,
		sourceStart: s.sourceStart,
		sourceEnd:   s.sourceEnd,
		bodyStart:   s.bodyStart,
	}
}
