// Package temporal samples dates and date-times uniformly from a range.
package temporal

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/TFMV/masquerade/pkg/core"
)

const secondsPerDay = 24 * 60 * 60

// RandomDate parses start and end with format and returns a date in
// [start, end) at day granularity, formatted with format.
func RandomDate(rng *rand.Rand, start, end, format string) (string, error) {
	layout, s, e, err := parseRange(start, end, format)
	if err != nil {
		return "", err
	}
	from, to := floorDiv(s.Unix(), secondsPerDay), floorDiv(e.Unix(), secondsPerDay)
	if to <= from {
		return "", fmt.Errorf("%w: date range [%s, %s) is empty", core.ErrInvalidRange, start, end)
	}
	day := from + rng.Int64N(to-from)
	return time.Unix(day*secondsPerDay, 0).UTC().Format(layout), nil
}

// RandomDateTime parses start and end with format and returns a date-time
// in [start, end) at second granularity, formatted with format.
func RandomDateTime(rng *rand.Rand, start, end, format string) (string, error) {
	layout, s, e, err := parseRange(start, end, format)
	if err != nil {
		return "", err
	}
	from, to := s.Unix(), e.Unix()
	if to <= from {
		return "", fmt.Errorf("%w: date-time range [%s, %s) is empty", core.ErrInvalidRange, start, end)
	}
	return time.Unix(from+rng.Int64N(to-from), 0).UTC().Format(layout), nil
}

func parseRange(start, end, format string) (string, time.Time, time.Time, error) {
	layout, err := Layout(format)
	if err != nil {
		return "", time.Time{}, time.Time{}, err
	}
	s, err := time.ParseInLocation(layout, start, time.UTC)
	if err != nil {
		return "", time.Time{}, time.Time{}, fmt.Errorf("%w: start %q: %v", core.ErrInvalidFormat, start, err)
	}
	e, err := time.ParseInLocation(layout, end, time.UTC)
	if err != nil {
		return "", time.Time{}, time.Time{}, fmt.Errorf("%w: end %q: %v", core.ErrInvalidFormat, end, err)
	}
	return layout, s, e, nil
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if a%b != 0 && a < 0 {
		q--
	}
	return q
}

// Layout returns the Go time layout for format. A format containing the
// reference year 2006 is already a Go layout; anything else is read as a
// pattern such as "yyyy-MM-dd HH:mm:ss".
func Layout(format string) (string, error) {
	if format == "" {
		return "", fmt.Errorf("%w: empty format", core.ErrInvalidFormat)
	}
	if strings.Contains(format, "2006") {
		return format, nil
	}
	return translate(format)
}

// patternLetters maps a pattern letter and its run length to a layout
// fragment. Longer runs fall back to the longest entry not exceeding them.
var patternLetters = map[rune]map[int]string{
	'y': {1: "2006", 2: "06", 3: "2006"},
	'u': {1: "2006", 2: "06", 3: "2006"},
	'M': {1: "1", 2: "01", 3: "Jan", 4: "January"},
	'd': {1: "2", 2: "02"},
	'D': {1: "__2", 3: "002"},
	'H': {1: "15", 2: "15"},
	'h': {1: "3", 2: "03"},
	'm': {1: "4", 2: "04"},
	's': {1: "5", 2: "05"},
	'a': {1: "PM"},
	'E': {1: "Mon", 4: "Monday"},
	'X': {1: "Z07", 2: "Z0700", 3: "Z07:00"},
	'Z': {1: "-0700"},
	'z': {1: "MST"},
}

func translate(format string) (string, error) {
	var b strings.Builder
	runes := []rune(format)
	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case r == '\'':
			lit, next, err := quoted(runes, i)
			if err != nil {
				return "", err
			}
			b.WriteString(lit)
			i = next
		case r == 'S':
			n := run(runes, i)
			b.WriteString(strings.Repeat("0", n))
			i += n
		case isLetter(r):
			n := run(runes, i)
			frag, ok := fragment(r, n)
			if !ok {
				return "", fmt.Errorf("%w: unsupported pattern letters %q in %q", core.ErrInvalidFormat, string(runes[i:i+n]), format)
			}
			b.WriteString(frag)
			i += n
		case r >= '0' && r <= '9':
			return "", fmt.Errorf("%w: literal digits in %q", core.ErrInvalidFormat, format)
		default:
			b.WriteRune(r)
			i++
		}
	}
	return b.String(), nil
}

func fragment(r rune, n int) (string, bool) {
	sizes, ok := patternLetters[r]
	if !ok {
		return "", false
	}
	for k := n; k > 0; k-- {
		if frag, ok := sizes[k]; ok {
			return frag, true
		}
	}
	return "", false
}

// quoted reads a quoted literal starting at runes[i]. Two consecutive quotes
// stand for one quote character.
func quoted(runes []rune, i int) (string, int, error) {
	if i+1 < len(runes) && runes[i+1] == '\'' {
		return "'", i + 2, nil
	}
	var b strings.Builder
	for j := i + 1; j < len(runes); j++ {
		switch {
		case runes[j] == '\'' && j+1 < len(runes) && runes[j+1] == '\'':
			b.WriteRune('\'')
			j++
		case runes[j] == '\'':
			if strings.ContainsAny(b.String(), "0123456789") {
				return "", 0, fmt.Errorf("%w: literal digits in %q", core.ErrInvalidFormat, string(runes))
			}
			return b.String(), j + 1, nil
		default:
			b.WriteRune(runes[j])
		}
	}
	return "", 0, fmt.Errorf("%w: unterminated quote in %q", core.ErrInvalidFormat, string(runes))
}

func run(runes []rune, i int) int {
	n := 1
	for i+n < len(runes) && runes[i+n] == runes[i] {
		n++
	}
	return n
}

func isLetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}
