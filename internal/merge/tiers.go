package merge

import (
	"fmt"
	"strings"
	"time"
)

// Маркеры composite-тела
const (
	MarkerMoreRecent = "<<<<<<< MORE RECENT"
	MarkerEarlier    = "======= EARLIER"
	MarkerEnd        = ">>>>>>> END OF CONFLICT"

	compositeNote = "> docsync: these versions could not be merged automatically. " +
		"Both were preserved below; remove the markers after resolving manually."
)

type input struct {
	set   map[string]struct{}
	lines []string
	Side
}

func newInput(s Side) *input {
	lines := strings.Split(s.Body, "\n")
	set := make(map[string]struct{}, len(lines))
	for _, l := range lines {
		set[l] = struct{}{}
	}
	return &input{Side: s, lines: lines, set: set}
}

func (in *input) has(line string) bool {
	_, ok := in.set[line]
	return ok
}

func (in *input) containedIn(other *input) bool {
	for _, l := range in.lines {
		if !other.has(l) {
			return false
		}
	}
	return true
}

func identity(_ Options, a, b *input) (string, bool) {
	if a.Body == b.Body {
		return a.Body, true
	}
	return "", false
}

func emptiness(_ Options, a, b *input) (string, bool) {
	if strings.TrimSpace(a.Body) == "" {
		return b.Body, true
	}
	if strings.TrimSpace(b.Body) == "" {
		return a.Body, true
	}
	return "", false
}

func containment(_ Options, a, b *input) (string, bool) {
	if a.containedIn(b) {
		return b.Body, true
	}
	if b.containedIn(a) {
		return a.Body, true
	}
	return "", false
}

func heavyContainment(o Options, a, b *input) (string, bool) {
	short, long := a, b
	if len(b.lines) < len(a.lines) {
		short, long = b, a
	}
	if len(short.lines) == len(long.lines) {
		return "", false
	}
	if len(short.lines) >= o.HeavyMaxShortLines {
		return "", false
	}
	if float64(len(long.lines)) <= o.HeavyLengthRatio*float64(len(short.lines)) {
		return "", false
	}

	var nonBlank, found int
	for _, l := range short.lines {
		if strings.TrimSpace(l) == "" {
			continue
		}
		nonBlank++
		if long.has(l) {
			found++
		}
	}
	if nonBlank == 0 {
		return "", false
	}
	if float64(found)/float64(nonBlank) >= o.HeavyCoverage {
		return long.Body, true
	}
	return "", false
}

func prefixExtension(_ Options, a, b *input) (string, bool) {
	if strings.HasPrefix(b.Body, a.Body) {
		return b.Body, true
	}
	if strings.HasPrefix(a.Body, b.Body) {
		return a.Body, true
	}
	return "", false
}

func commonPrefix(o Options, a, b *input) (string, bool) {
	shorter := min(len(a.lines), len(b.lines))
	k := 0
	for k < shorter && a.lines[k] == b.lines[k] {
		k++
	}
	if k == 0 || float64(k) < o.PrefixCoverage*float64(shorter) {
		return "", false
	}

	out := make([]string, 0, len(a.lines)+len(b.lines)-k)
	out = append(out, a.lines...)
	// Дубликаты ищем только в хвосте A: повтор строки из общего префикса - новая строка B
	seen := make(map[string]struct{}, len(a.lines)-k)
	for _, l := range a.lines[k:] {
		seen[l] = struct{}{}
	}
	for _, l := range b.lines[k:] {
		if _, dup := seen[l]; dup && strings.TrimSpace(l) != "" {
			continue
		}
		out = append(out, l)
	}
	return strings.Join(out, "\n"), true
}

func composite(_ Options, a, b *input) (string, bool) {
	recent, earlier := a, b
	if moreRecent(b.Side, a.Side) {
		recent, earlier = b, a
	}

	var sb strings.Builder
	sb.WriteString(compositeNote)
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "%s (%s)\n", MarkerMoreRecent, describe(recent.Side))
	sb.WriteString(recent.Body)
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "%s (%s)\n", MarkerEarlier, describe(earlier.Side))
	sb.WriteString(earlier.Body)
	sb.WriteString("\n")
	sb.WriteString(MarkerEnd)
	return sb.String(), true
}

// moreRecent reports whether x sorts as more recent than y: updatedAt, then revision, then body.
func moreRecent(x, y Side) bool {
	if !x.UpdatedAt.Equal(y.UpdatedAt) {
		return x.UpdatedAt.After(y.UpdatedAt)
	}
	if c := x.Revision.Compare(y.Revision); c != 0 {
		return c > 0
	}
	return x.Body > y.Body
}

func describe(s Side) string {
	updated := "unknown time"
	if !s.UpdatedAt.IsZero() {
		updated = s.UpdatedAt.UTC().Format(time.RFC3339)
	}
	if s.Revision.IsZero() {
		return updated
	}
	return fmt.Sprintf("rev %s, %s", s.Revision, updated)
}
