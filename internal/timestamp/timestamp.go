// Package timestamp converts logger-local timestamp text to UTC epoch seconds.
//
// Loggers write wall-clock time without an offset. A Normalizer interprets
// that wall time either in an IANA zone or at a fixed UTC offset. In zone
// mode, a wall time repeated by a fall-back transition always resolves to its
// second occurrence (standard time), and a wall time skipped by a
// spring-forward transition is shifted with the offset in force after the
// transition. Previously ingested data depends on both rules.
package timestamp

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // zone rules must not depend on the host database
)

// Layouts lists the accepted timestamp layouts in priority order. The first
// layout that consumes the whole string wins.
// Every numeric field except the year takes one or two digits.
var Layouts = []string{
	"1/2/06 3:4:5 PM",   // 12/31/24 11:59:59 PM
	"1/2/2006 3:4:5 PM", // 12/31/2024 11:59:59 PM
	"2006-1-2 15:4:5",   // 2024-12-31 23:59:59
	"1/2/06 15:4:5",     // 12/31/24 23:59:59
}

// ErrUnrecognized is returned when no layout matches a timestamp.
var ErrUnrecognized = errors.New("unrecognized timestamp format")

var padReplacer = strings.NewReplacer("/ ", "/", "- ", "-", ": ", ":")

var offsetPattern = regexp.MustCompile(`^([+-])(\d{1,2}):(\d{2})$`)

// ParseLocal parses s as a naive wall-clock time. The returned time carries
// the wall fields in UTC and has no zone meaning of its own. The matching
// layout is returned alongside it.
//
// Runs of whitespace count as one separator, and a space after a date or
// time separator is ignored, so "1/ 2/24  3: 4:05 PM" is accepted.
func ParseLocal(s string) (time.Time, string, error) {
	// AM/PM is matched case-insensitively; no layout has other letters.
	text := padReplacer.Replace(strings.Join(strings.Fields(strings.ToUpper(s)), " "))
	for _, layout := range Layouts {
		t, err := time.Parse(layout, text)
		if err == nil {
			return t, layout, nil
		}
	}
	return time.Time{}, "", fmt.Errorf("%w: %q", ErrUnrecognized, s)
}

// ParseOffset parses a signed "±HH:MM" UTC offset.
func ParseOffset(s string) (time.Duration, error) {
	m := offsetPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0, fmt.Errorf("invalid UTC offset %q (expected ±HH:MM)", s)
	}
	hours, _ := strconv.Atoi(m[2])
	minutes, _ := strconv.Atoi(m[3])
	if hours > 14 || minutes > 59 {
		return 0, fmt.Errorf("UTC offset %q out of range", s)
	}
	d := time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute
	if m[1] == "-" {
		d = -d
	}
	return d, nil
}

// Localize places the wall-clock fields of wall into loc.
//
// Ambiguous wall times resolve to the later instant. Wall times that do not
// exist in loc are shifted using the offset in force after the transition.
func Localize(wall time.Time, loc *time.Location) time.Time {
	y, mo, d := wall.Date()
	h, mi, s := wall.Clock()
	naive := time.Date(y, mo, d, h, mi, s, 0, time.UTC).Unix()

	// Assumes transitions are more than a day apart: the offsets a day either
	// side are then the only candidates.
	before := zoneOffset(naive-86400, loc)
	after := zoneOffset(naive+86400, loc)

	var best int64
	found := false
	for _, off := range []int{before, after} {
		u := naive - int64(off)
		if zoneOffset(u, loc) != off {
			continue
		}
		if !found || u > best {
			best = u
			found = true
		}
	}
	if !found {
		best = naive - int64(after)
	}
	return time.Unix(best, 0).In(loc)
}

func zoneOffset(unix int64, loc *time.Location) int {
	_, off := time.Unix(unix, 0).In(loc).Zone()
	return off
}

// Normalizer converts local timestamp text for one deployment.
type Normalizer struct {
	loc      *time.Location
	offset   time.Duration
	fixed    bool
	zoneName string
}

// New creates a Normalizer. When fixedOffset is non-empty it takes precedence
// over tzName and daylight-saving rules are not applied.
func New(tzName, fixedOffset string) (*Normalizer, error) {
	if fixedOffset != "" {
		off, err := ParseOffset(fixedOffset)
		if err != nil {
			return nil, err
		}
		return &Normalizer{offset: off, fixed: true, zoneName: fixedOffset}, nil
	}
	if tzName == "" {
		return nil, errors.New("timezone name is required")
	}
	loc, err := time.LoadLocation(tzName)
	if err != nil {
		return nil, fmt.Errorf("loading timezone %q: %w", tzName, err)
	}
	return &Normalizer{loc: loc, zoneName: tzName}, nil
}

// Fixed reports whether the normalizer applies a fixed offset.
func (n *Normalizer) Fixed() bool { return n.fixed }

// String describes the conversion mode.
func (n *Normalizer) String() string {
	if n.fixed {
		return "fixed offset " + n.zoneName
	}
	return n.zoneName
}

// ToUTC converts local timestamp text to UTC epoch seconds.
func (n *Normalizer) ToUTC(local string) (int64, error) {
	wall, _, err := ParseLocal(local)
	if err != nil {
		return 0, err
	}
	if n.fixed {
		return wall.Add(-n.offset).Unix(), nil
	}
	return Localize(wall, n.loc).Unix(), nil
}

// ParseInstant parses a query bound given as UTC epoch seconds or as an
// RFC 3339 timestamp.
func ParseInstant(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if sec, err := strconv.ParseInt(s, 10, 64); err == nil {
		return sec, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0, fmt.Errorf("%q is neither epoch seconds nor RFC 3339", s)
	}
	return t.Unix(), nil
}
