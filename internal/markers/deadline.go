package markers

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Relative day keywords, longest-first so that "day after tomorrow" and
// 后天 are tried before their "tomorrow" substrings.
var relativeDays = []struct {
	keyword string
	days    int
}{
	{"day after tomorrow", 2},
	{"后天", 2},
	{"tomorrow", 1},
	{"明天", 1},
	{"today", 0},
	{"今天", 0},
}

var clockRe = regexp.MustCompile(`(\d{1,2})[:：](\d{2})`)

// Absolute layouts tried, in order, when no relative keyword matches.
var deadlineLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseDeadline resolves a deadline clause against the reference time.
// Relative keywords resolve to end of the target day (23:59:59 local);
// otherwise a generic date-time parse is attempted. Unparseable clauses
// yield nil, never an error.
func ParseDeadline(clause string, ref time.Time) *time.Time {
	clause = strings.TrimSpace(clause)
	if clause == "" {
		return nil
	}
	lower := strings.ToLower(clause)

	for _, rd := range relativeDays {
		if strings.Contains(lower, rd.keyword) {
			t := endOfDay(ref.AddDate(0, 0, rd.days))
			return &t
		}
	}

	for _, layout := range deadlineLayouts {
		if t, err := time.ParseInLocation(layout, clause, ref.Location()); err == nil {
			return &t
		}
	}

	// A bare clock time means that time of the reference day.
	if m := clockRe.FindStringSubmatch(clause); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		if hour < 24 && minute < 60 {
			t := atClock(ref, 0, hour, minute)
			return &t
		}
	}

	return nil
}

// endOfDay returns t's date at 23:59:59 in t's location.
func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, 0, t.Location())
}

// atClock returns ref's date shifted by dayOffset days, at hour:minute.
func atClock(ref time.Time, dayOffset, hour, minute int) time.Time {
	y, m, d := ref.Date()
	return time.Date(y, m, d+dayOffset, hour, minute, 0, 0, ref.Location())
}
