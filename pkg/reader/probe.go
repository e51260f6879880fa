// Package reader walks forward through topic IDs, scrolling each topic's
// reply timeline until the post quota for the run is met.
package reader

import (
	"strings"

	"ldreader/pkg/browser"
)

// timelineSelector locates the Discourse timeline widget showing reply
// progress as "current / total".
const timelineSelector = ".timeline-replies"

// Reading is one observation of the reply timeline.
type Reading struct {
	CurrentPage int
	TotalPages  int
}

// ProbeStatus classifies a timeline observation.
type ProbeStatus int

const (
	// ProbeValid means the timeline was present and parsed cleanly.
	ProbeValid ProbeStatus = iota
	// ProbeMissing means the page has no timeline element. Deleted,
	// private and never-created topic IDs all land here.
	ProbeMissing
	// ProbeMalformed means the element exists but its text is not a
	// "current / total" pair.
	ProbeMalformed
)

// ProbeReplyProgress reads the reply timeline off the current page.
func ProbeReplyProgress(page browser.Page) (Reading, ProbeStatus) {
	text, err := page.Text(timelineSelector)
	if err != nil {
		// A read failure on a live element is indistinguishable from a
		// dead topic for the caller, so both count as missing.
		return Reading{}, ProbeMissing
	}

	reading, ok := parseReading(text)
	if !ok {
		return Reading{}, ProbeMalformed
	}
	return reading, ProbeValid
}

// parseReading parses "current / total". Exactly one slash, both sides
// all-digit after trimming.
func parseReading(text string) (Reading, bool) {
	parts := strings.Split(text, "/")
	if len(parts) != 2 {
		return Reading{}, false
	}

	current, ok := parsePositiveInt(strings.TrimSpace(parts[0]))
	if !ok {
		return Reading{}, false
	}
	total, ok := parsePositiveInt(strings.TrimSpace(parts[1]))
	if !ok {
		return Reading{}, false
	}

	return Reading{CurrentPage: current, TotalPages: total}, true
}

func parsePositiveInt(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}
