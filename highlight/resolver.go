// Package highlight resolves extracted entities back onto a display string
// as non-overlapping spans. The display text may differ from the text the
// extractor saw (inline markers are stripped before rendering), so
// resolution is a cascade of matching strategies rather than a single
// offset lookup. Resolution is pure: it never mutates its inputs and the
// same inputs always produce the same spans, so callers recompute spans on
// every render instead of caching them across text versions.
//
// All offsets are rune offsets into the display string.
package highlight

import (
	"sort"
	"strings"
	"unicode"

	"github.com/lifetrace/transcript/internal/types"
)

// Span is one highlightable character range of a display string.
type Span struct {
	Start int              `json:"start"`
	End   int              `json:"end"`
	Kind  types.EntityKind `json:"kind"`
}

// minMatchLen is the shortest source snippet worth searching for; shorter
// strings match everywhere and produce noise highlights.
const minMatchLen = 2

// Prefix lengths tried by the fuzzy strategy, longest first. Best-effort
// for CJK text where display punctuation often diverges from the
// extractor's snippet.
var fuzzyPrefixLens = [...]int{5, 4, 3}

// Resolve computes the minimal ordered set of non-overlapping spans for the
// entities of one segment against displayText. Entities that match nothing
// contribute no span; that is an expected outcome, not an error.
func Resolve(displayText string, entities []types.ExtractedEntity) []Span {
	display := []rune(displayText)
	lowered := lowerRunes(display)

	var candidates []Span
	for i := range entities {
		if sp, ok := resolveOne(display, lowered, &entities[i]); ok {
			candidates = append(candidates, sp)
		}
	}
	return merge(candidates)
}

// resolveOne applies the strategy cascade for a single entity:
// extractor-supplied indices, exact source-text match, title/description
// match, then fuzzy prefix match.
func resolveOne(display, lowered []rune, e *types.ExtractedEntity) (Span, bool) {
	// Strategy 1: extractor-supplied indices, clamped to the display text.
	// The extractor saw a possibly different string, so out-of-range
	// bounds are expected and silently clamped, never rejected.
	if e.TextStartIndex != nil && e.TextEndIndex != nil {
		start := clamp(*e.TextStartIndex, 0, len(display))
		end := clamp(*e.TextEndIndex, 0, len(display))
		if start < end {
			return Span{Start: start, End: end, Kind: e.Kind}, true
		}
	}

	// Strategy 2: exact case-insensitive search for the source snippet.
	if sp, ok := findFold(lowered, e.SourceText, e.Kind); ok {
		return sp, true
	}

	// Strategy 3: fall back to the entity's label.
	if sp, ok := findFold(lowered, label(e), e.Kind); ok {
		return sp, true
	}

	// Strategy 4: progressively shorter prefixes of the punctuation-
	// stripped snippet.
	needle := strip(e.SourceText)
	if len(needle) == 0 {
		needle = strip(label(e))
	}
	for _, n := range fuzzyPrefixLens {
		if len(needle) < n {
			continue
		}
		if sp, ok := findFold(lowered, string(needle[:n]), e.Kind); ok {
			return sp, true
		}
	}

	return Span{}, false
}

// label is what a human would call the entity: the todo's title or the
// schedule's description.
func label(e *types.ExtractedEntity) string {
	if e.Kind == types.EntityTodo {
		return e.Title
	}
	return e.Description
}

// findFold searches lowered for the trimmed, lowered needle and returns the
// first occurrence as a span. Needles shorter than minMatchLen are skipped.
func findFold(lowered []rune, needle string, kind types.EntityKind) (Span, bool) {
	n := lowerRunes([]rune(strings.TrimSpace(needle)))
	if len(n) < minMatchLen {
		return Span{}, false
	}
	if at := indexRunes(lowered, n); at >= 0 {
		return Span{Start: at, End: at + len(n), Kind: kind}, true
	}
	return Span{}, false
}

// merge sorts candidates and collapses overlaps. When spans of different
// kinds overlap the merged span is tagged schedule; schedule highlighting
// takes fixed precedence over todo highlighting.
func merge(candidates []Span) []Span {
	if len(candidates) == 0 {
		return nil
	}
	sorted := make([]Span, len(candidates))
	copy(sorted, candidates)
	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if a.End != b.End {
			return a.End < b.End
		}
		return a.Kind == types.EntitySchedule && b.Kind != types.EntitySchedule
	})

	out := []Span{sorted[0]}
	for _, c := range sorted[1:] {
		cur := &out[len(out)-1]
		if c.Start < cur.End {
			if c.End > cur.End {
				cur.End = c.End
			}
			if c.Kind == types.EntitySchedule {
				cur.Kind = types.EntitySchedule
			}
			continue
		}
		out = append(out, c)
	}
	return out
}

// lowerRunes lowercases rune-by-rune so offsets stay 1:1 with the input.
func lowerRunes(rs []rune) []rune {
	out := make([]rune, len(rs))
	for i, r := range rs {
		out[i] = unicode.ToLower(r)
	}
	return out
}

// indexRunes is a naive rune-slice substring search.
func indexRunes(haystack, needle []rune) int {
	if len(needle) == 0 || len(needle) > len(haystack) {
		return -1
	}
	for i := 0; i+len(needle) <= len(haystack); i++ {
		j := 0
		for ; j < len(needle); j++ {
			if haystack[i+j] != needle[j] {
				break
			}
		}
		if j == len(needle) {
			return i
		}
	}
	return -1
}

// strip removes punctuation, symbols and whitespace ahead of fuzzy prefix
// matching.
func strip(s string) []rune {
	var out []rune
	for _, r := range s {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) || unicode.IsSpace(r) {
			continue
		}
		out = append(out, r)
	}
	return out
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
