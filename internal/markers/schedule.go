package markers

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/lifetrace/transcript/internal/types"
)

var scheduleMarkerRe = regexp.MustCompile(`\[SCHEDULE:\s*([^\]]+)\]`)

// Bare time expressions scanned when no [SCHEDULE: ...] marker is present,
// in priority order.
var bareTimeRes = []*regexp.Regexp{
	regexp.MustCompile(`(今天|明天|后天)\s*(\d{1,2})[:：]?(\d{2})?点?`),
	regexp.MustCompile(`(早上|上午|中午|下午|晚上)\s*(\d{1,2})[:：]?(\d{2})?点?`),
	regexp.MustCompile(`(\d{1,2})[:：](\d{2})`),
	regexp.MustCompile(`(\d{1,2})点`),
}

// scheduleDedupeWindow collapses bare-scan hits that resolve to times
// within a minute of an already collected schedule.
const scheduleDedupeWindow = time.Minute

// ParseSchedules scans text for [SCHEDULE: ...] markers; when none parse,
// it falls back to scanning for bare time expressions. Relative times are
// resolved against ref.
func ParseSchedules(text string, ref time.Time) []types.RawSchedule {
	var schedules []types.RawSchedule

	for _, m := range scheduleMarkerRe.FindAllStringSubmatchIndex(text, -1) {
		body := strings.TrimSpace(text[m[2]:m[3]])
		st := ParseScheduleTime(body, ref)
		if st == nil {
			continue
		}
		schedules = append(schedules, types.RawSchedule{
			ScheduleTime: st,
			Description:  body,
			Status:       string(types.SchedulePending),
			SourceText:   contextAround(text, m[0], m[1]),
		})
	}
	if len(schedules) > 0 {
		return schedules
	}

	// Later (weaker) patterns must not re-match text a stronger pattern
	// already consumed, e.g. the "3点" inside "下午3点".
	var consumed [][2]int
	for _, re := range bareTimeRes {
		for _, m := range re.FindAllStringIndex(text, -1) {
			if overlaps(consumed, m[0], m[1]) {
				continue
			}
			st := ParseScheduleTime(text[m[0]:m[1]], ref)
			if st == nil || hasNearby(schedules, *st) {
				continue
			}
			consumed = append(consumed, [2]int{m[0], m[1]})
			ctx := bareContext(text, m[0], m[1])
			schedules = append(schedules, types.RawSchedule{
				ScheduleTime: st,
				Description:  ctx,
				Status:       string(types.SchedulePending),
				SourceText:   ctx,
			})
		}
	}
	return schedules
}

func overlaps(ranges [][2]int, start, end int) bool {
	for _, r := range ranges {
		if start < r[1] && r[0] < end {
			return true
		}
	}
	return false
}

var (
	dayTimeRe    = regexp.MustCompile(`(今天|明天|后天)\s*(\d{1,2})(?:[:：](\d{2}))?点?`)
	periodTimeRe = regexp.MustCompile(`(早上|上午|中午|下午|晚上)\s*(\d{1,2})(?:[:：](\d{2}))?点?`)
	clockOnlyRe  = regexp.MustCompile(`^(\d{1,2})[:：](\d{2})$`)
	hourOnlyRe   = regexp.MustCompile(`^(\d{1,2})点$`)
)

var dayKeywordOffset = map[string]int{"今天": 0, "明天": 1, "后天": 2}

// afternoonPeriods get 12 added to hours below 12.
var afternoonPeriods = map[string]bool{"中午": true, "下午": true, "晚上": true}

// ParseScheduleTime resolves one time expression against ref. Returns nil
// when the expression does not parse; it never errors.
func ParseScheduleTime(expr string, ref time.Time) *time.Time {
	expr = strings.TrimSpace(expr)

	if m := dayTimeRe.FindStringSubmatch(expr); m != nil {
		hour, minute, ok := hourMinute(m[2], m[3])
		if ok {
			t := atClock(ref, dayKeywordOffset[m[1]], hour, minute)
			return &t
		}
	}

	if m := periodTimeRe.FindStringSubmatch(expr); m != nil {
		hour, minute, ok := hourMinute(m[2], m[3])
		if ok {
			if afternoonPeriods[m[1]] && hour < 12 {
				hour += 12
			}
			t := atClock(ref, 0, hour, minute)
			return &t
		}
	}

	// Pure clock formats mean "the next occurrence of that time".
	if m := clockOnlyRe.FindStringSubmatch(expr); m != nil {
		if hour, minute, ok := hourMinute(m[1], m[2]); ok {
			t := nextOccurrence(ref, hour, minute)
			return &t
		}
	}
	if m := hourOnlyRe.FindStringSubmatch(expr); m != nil {
		if hour, minute, ok := hourMinute(m[1], ""); ok {
			t := nextOccurrence(ref, hour, minute)
			return &t
		}
	}

	return nil
}

func hourMinute(h, m string) (int, int, bool) {
	hour, err := strconv.Atoi(h)
	if err != nil || hour > 23 {
		return 0, 0, false
	}
	minute := 0
	if m != "" {
		minute, err = strconv.Atoi(m)
		if err != nil || minute > 59 {
			return 0, 0, false
		}
	}
	return hour, minute, true
}

func nextOccurrence(ref time.Time, hour, minute int) time.Time {
	t := atClock(ref, 0, hour, minute)
	if t.Before(ref) {
		t = atClock(ref, 1, hour, minute)
	}
	return t
}

func hasNearby(schedules []types.RawSchedule, t time.Time) bool {
	for _, s := range schedules {
		if s.ScheduleTime == nil {
			continue
		}
		d := s.ScheduleTime.Sub(t)
		if d < 0 {
			d = -d
		}
		if d < scheduleDedupeWindow {
			return true
		}
	}
	return false
}

// bareContext is a tighter ±20-character window used for bare time hits,
// where the expression itself carries little meaning without surroundings.
func bareContext(text string, start, end int) string {
	runes := []rune(text)
	rs := utf8.RuneCountInString(text[:start]) - 20
	re := utf8.RuneCountInString(text[:end]) + 20
	if rs < 0 {
		rs = 0
	}
	if re > len(runes) {
		re = len(runes)
	}
	return strings.TrimSpace(string(runes[rs:re]))
}
