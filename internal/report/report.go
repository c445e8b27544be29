// Package report assembles pipeline output into the final meeting report
// and persists it in the supported export formats.
package report

import (
	"strings"

	"github.com/Lucien1999s/meeting-ai/internal/usage"
)

// Section header labels used by the rendered report.
const (
	labelSummary         = "會議重點"
	labelFollowUps       = "後續行動"
	labelRecommendations = "未來建議"
	labelUsage           = "費用資訊"
)

// Report is the assembled output of one pipeline run.
type Report struct {
	MeetingName     string          `json:"meeting_name"`
	Summary         string          `json:"summary"`
	FollowUps       string          `json:"follow_ups,omitempty"`
	Recommendations string          `json:"recommendations,omitempty"`
	Usage           *usage.Snapshot `json:"usage,omitempty"`
}

// Render joins the meeting name and the labeled sections into the final
// report string. Empty sections are omitted; the usage block is appended
// only when includeCost is set and a snapshot is present.
func (r Report) Render(includeCost bool) string {
	var b strings.Builder
	b.WriteString("#")
	b.WriteString(r.MeetingName)
	b.WriteString("\n")

	section := func(label, body string) {
		if body == "" {
			return
		}
		b.WriteString("\n##")
		b.WriteString(label)
		b.WriteString("\n")
		b.WriteString(body)
		b.WriteString("\n")
	}
	section(labelSummary, r.Summary)
	section(labelFollowUps, r.FollowUps)
	section(labelRecommendations, r.Recommendations)
	if includeCost && r.Usage != nil {
		section(labelUsage, r.Usage.String())
	}
	return b.String()
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

// listItems extracts the item texts from a bullet or numbered list,
// stripping the markers. Non-list lines are ignored.
func listItems(s string) []string {
	var items []string
	for _, line := range strings.Split(s, "\n") {
		t := strings.TrimSpace(line)
		switch {
		case t == "":
			continue
		case strings.HasPrefix(t, "-"), strings.HasPrefix(t, "*"):
			if item := strings.TrimSpace(t[1:]); item != "" {
				items = append(items, item)
			}
		}
	}
	return items
}
