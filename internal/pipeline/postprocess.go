package pipeline

import "strings"

// TrimAfterLastListItem cuts everything after the last well-formed list
// line. Model output sometimes trails off mid-bullet or appends a closing
// remark after the list; both are dropped. Input without any list line is
// returned unchanged.
func TrimAfterLastListItem(s string) string {
	lines := strings.Split(s, "\n")
	last := -1
	for i, line := range lines {
		if isListLine(line) {
			last = i
		}
	}
	if last == -1 {
		return s
	}
	return strings.Join(lines[:last+1], "\n")
}

// isListLine reports whether a line is a bullet ("-", "*") or a numbered
// item ("1." or "1、").
func isListLine(line string) bool {
	t := strings.TrimSpace(line)
	if t == "" {
		return false
	}
	if t[0] == '-' || t[0] == '*' {
		return true
	}
	i := 0
	for i < len(t) && t[i] >= '0' && t[i] <= '9' {
		i++
	}
	if i == 0 || i == len(t) {
		return false
	}
	return t[i] == '.' || strings.HasPrefix(t[i:], "、")
}

// DedupeLines drops lines that restate an earlier kept line: a line is a
// duplicate when it contains, or is contained in, one already kept. Blank
// lines pass through so list spacing survives.
func DedupeLines(s string) string {
	lines := strings.Split(s, "\n")
	kept := make([]string, 0, len(lines))
	var seen []string

	for _, line := range lines {
		t := strings.TrimSpace(line)
		if t == "" {
			kept = append(kept, line)
			continue
		}
		dup := false
		for _, prev := range seen {
			if strings.Contains(prev, t) || strings.Contains(t, prev) {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		seen = append(seen, t)
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// Cleanup applies the standard post-processing to one stage's output.
func Cleanup(s string) string {
	return DedupeLines(TrimAfterLastListItem(strings.TrimSpace(s)))
}
