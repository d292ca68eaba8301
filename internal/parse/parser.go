package parse

import (
	"bytes"
	"strings"
	"unicode/utf8"
)

// replacementChar is substituted for invalid byte sequences.
const replacementChar = "�"

// Record is one complete log entry as produced by the Parser. Raw holds the
// entry's physical lines joined by '\n' (header line first, no trailing
// newline). Offsets are positions within Raw.
type Record struct {
	Time        Timestamp
	Level       Level
	Raw         []byte
	SourceStart int
	SourceEnd   int
	BodyStart   int
}

// Source returns the source tag, or an empty string when the header had none.
func (r Record) Source() string {
	return string(r.Raw[r.SourceStart:r.SourceEnd])
}

// Body returns the entry's message lines without the header.
func (r Record) Body() []string {
	return strings.Split(string(r.Raw[r.BodyStart:]), "\n")
}

// Clone returns a copy of the record that owns its Raw bytes.
func (r Record) Clone() Record {
	r.Raw = append([]byte(nil), r.Raw...)
	return r
}

// Parser incrementally decodes a byte stream into Records. A Record is emitted
// once the next header line arrives or the stream ends; lines without a header
// are folded into the most recently opened entry.
//
// The Raw slice passed to emit is only valid until emit returns.
type Parser struct {
	grammar *Grammar

	partial []byte // trailing bytes of an unterminated line
	buf     []byte // raw text of the open entry
	rec     Record
	open    bool
}

// New returns a Parser using g, or the default SMAPI grammar when g is nil.
func New(g *Grammar) *Parser {
	if g == nil {
		g = DefaultGrammar()
	}
	return &Parser{grammar: g}
}

// Feed consumes the next chunk of the stream. It never blocks and keeps any
// trailing partial line for the next call.
func (p *Parser) Feed(chunk []byte, emit func(Record)) {
	for len(chunk) > 0 {
		i := bytes.IndexByte(chunk, '\n')
		if i < 0 {
			p.partial = append(p.partial, chunk...)
			return
		}
		line := chunk[:i]
		if len(p.partial) > 0 {
			p.partial = append(p.partial, line...)
			line = p.partial
		}
		p.line(line, emit)
		p.partial = p.partial[:0]
		chunk = chunk[i+1:]
	}
}

// Finish handles end of stream: the trailing partial line is treated as a
// complete line and the open entry is emitted.
func (p *Parser) Finish(emit func(Record)) {
	if len(p.partial) > 0 {
		p.line(p.partial, emit)
		p.partial = p.partial[:0]
	}
	p.flush(emit)
}

// Discard drops the partial line and the open entry without emitting them.
func (p *Parser) Discard() {
	p.partial = p.partial[:0]
	p.buf = p.buf[:0]
	p.rec = Record{}
	p.open = false
}

// Pending returns the entry that is still open, if any. Its Raw slice is only
// valid until the next call to Feed, Finish or Discard.
func (p *Parser) Pending() (Record, bool) {
	if !p.open {
		return Record{}, false
	}
	r := p.rec
	r.Raw = p.buf
	return r, true
}

func (p *Parser) line(raw []byte, emit func(Record)) {
	raw = bytes.TrimSuffix(raw, []byte{'\r'})
	if !utf8.Valid(raw) {
		raw = bytes.ToValidUTF8(raw, []byte(replacementChar))
	}

	if h, ok := p.grammar.Match(raw); ok {
		p.flush(emit)
		p.buf = append(p.buf[:0], raw...)
		p.rec = Record{
			Time:        h.Time,
			Level:       h.Level,
			SourceStart: h.SourceStart,
			SourceEnd:   h.SourceEnd,
			BodyStart:   h.BodyStart,
		}
		p.open = true
		return
	}

	if !p.open {
		// Text before the first header still becomes an entry.
		p.buf = append(p.buf[:0], raw...)
		p.rec = Record{Level: LevelUnknown}
		p.open = true
		return
	}
	p.buf = append(p.buf, '\n')
	p.buf = append(p.buf, raw...)
}

func (p *Parser) flush(emit func(Record)) {
	if !p.open {
		return
	}
	r := p.rec
	r.Raw = p.buf
	p.open = false
	emit(r)
}
