package supervisor

import (
	"fmt"
	"runtime"
	"strings"

	"golang.org/x/text/encoding/unicode"
)

// Encoding is the text encoding used for commands written to the child.
type Encoding int

const (
	EncodingUTF8 Encoding = iota
	EncodingUTF16LE
	EncodingUTF16BE
)

// DefaultEncoding returns UTF-16BE on Windows, where the SMAPI console reads
// wide input, and UTF-8 elsewhere.
func DefaultEncoding() Encoding {
	if runtime.GOOS == "windows" {
		return EncodingUTF16BE
	}
	return EncodingUTF8
}

// ParseEncoding accepts utf8, utf16le and utf16be, with or without dashes.
// An empty string selects DefaultEncoding.
func ParseEncoding(s string) (Encoding, error) {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "-", "") {
	case "":
		return DefaultEncoding(), nil
	case "utf8":
		return EncodingUTF8, nil
	case "utf16le":
		return EncodingUTF16LE, nil
	case "utf16be":
		return EncodingUTF16BE, nil
	default:
		return 0, fmt.Errorf("unknown encoding %q (want utf8, utf16le or utf16be)", s)
	}
}

func (e Encoding) String() string {
	switch e {
	case EncodingUTF16LE:
		return "utf16le"
	case EncodingUTF16BE:
		return "utf16be"
	default:
		return "utf8"
	}
}

// Encode converts text to the encoding. No byte order mark is written.
func (e Encoding) Encode(text string) ([]byte, error) {
	switch e {
	case EncodingUTF16LE:
		return unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewEncoder().Bytes([]byte(text))
	case EncodingUTF16BE:
		return unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM).NewEncoder().Bytes([]byte(text))
	default:
		return []byte(text), nil
	}
}
