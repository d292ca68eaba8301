package parse

import (
	"fmt"
	"strconv"
	"strings"
)

// Timestamp is the time of day carried by a log header. SMAPI headers have no
// date component, so only hour, minute and second are kept.
type Timestamp struct {
	Hour   uint8
	Minute uint8
	Second uint8
	Valid  bool
}

// String formats the timestamp as HH:MM:SS, or eight spaces when absent so
// that columns stay aligned.
func (t Timestamp) String() string {
	if !t.Valid {
		return "        "
	}
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Minute, t.Second)
}

// parseClock parses "H:MM:SS" or "HH:MM:SS".
func parseClock(s string) (Timestamp, bool) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return Timestamp{}, false
	}
	var values [3]uint8
	for i, part := range parts {
		n, err := strconv.ParseUint(part, 10, 8)
		if err != nil {
			return Timestamp{}, false
		}
		values[i] = uint8(n)
	}
	return Timestamp{Hour: values[0], Minute: values[1], Second: values[2], Valid: true}, true
}
