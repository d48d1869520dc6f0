// Package markers implements the local fallback extraction used when the
// remote extraction service is unreachable: a small literal-marker grammar
// ([TODO: ...] / [SCHEDULE: ...]) plus bare time-expression scanning. It is
// a deliberately degraded parser that keeps the feature minimally
// functional offline; it never returns an error, only fewer results.
package markers

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/lifetrace/transcript/internal/types"
)

// contextWindow is the number of characters of surrounding text captured
// around a marker as its description and source snippet.
const contextWindow = 50

var todoMarkerRe = regexp.MustCompile(`\[TODO:\s*([^\]]+)\]`)

// ParseTodos scans text for [TODO: title | deadline: ... | priority: ...]
// markers. The deadline and priority clauses are optional and accepted in
// either order. Relative deadlines are resolved against ref.
func ParseTodos(text string, ref time.Time) []types.RawTodo {
	var todos []types.RawTodo

	for _, m := range todoMarkerRe.FindAllStringSubmatchIndex(text, -1) {
		body := text[m[2]:m[3]]
		title, clauses := splitClauses(body)
		if title == "" {
			continue
		}

		todo := types.RawTodo{
			Title:    title,
			Priority: string(types.PriorityMedium),
		}
		for key, val := range clauses {
			switch key {
			case "deadline":
				todo.Deadline = ParseDeadline(val, ref)
			case "priority":
				todo.Priority = string(types.NormalizePriority(val))
			}
		}

		ctx := contextAround(text, m[0], m[1])
		todo.Description = ctx
		todo.SourceText = ctx
		todos = append(todos, todo)
	}
	return todos
}

// splitClauses breaks a marker body at '|' into the leading title and a map
// of "key: value" clauses. Unrecognized clauses are dropped.
func splitClauses(body string) (string, map[string]string) {
	parts := strings.Split(body, "|")
	title := strings.TrimSpace(parts[0])
	clauses := make(map[string]string, len(parts)-1)
	for _, p := range parts[1:] {
		key, val, ok := strings.Cut(p, ":")
		if !ok {
			continue
		}
		clauses[strings.ToLower(strings.TrimSpace(key))] = strings.TrimSpace(val)
	}
	return title, clauses
}

// contextAround returns up to contextWindow characters of text on each side
// of the byte range [start, end), clamped to the string bounds. Windowing
// is rune-based; transcripts are CJK-heavy and byte windows would split
// characters.
func contextAround(text string, start, end int) string {
	runes := []rune(text)
	rs := utf8.RuneCountInString(text[:start]) - contextWindow
	re := utf8.RuneCountInString(text[:end]) + contextWindow
	if rs < 0 {
		rs = 0
	}
	if re > len(runes) {
		re = len(runes)
	}
	return strings.TrimSpace(string(runes[rs:re]))
}
