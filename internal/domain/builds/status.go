package builds

import "strings"

const (
	StatusNotRun    = "NOTRUN"
	StatusSuccess   = "SUCCESS"
	StatusFailed    = "FAILED"
	StatusCancelled = "CANCELLED"
)

const (
	PhaseSuccess = "SUCCESS"
	PhaseFailed  = "FAILED"
)

var BuildStatuses = []string{StatusCancelled, StatusSuccess, StatusNotRun, StatusFailed}

func ValidBuildStatus(s string) bool {
	for _, v := range BuildStatuses {
		if s == v {
			return true
		}
	}
	return false
}

func ValidPhaseStatus(s string) bool {
	return s == PhaseSuccess || s == PhaseFailed
}

// CascadesCancellation reports whether moving a build into status forces its
// dependencies' builds to CANCELLED.
func CascadesCancellation(status string) bool {
	return status == StatusFailed || status == StatusCancelled
}

// ParseTags splits a comma separated tag list, dropping blanks and duplicates.
func ParseTags(raw string) []string {
	seen := map[string]struct{}{}
	out := []string{}
	for _, t := range strings.Split(raw, ",") {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}
