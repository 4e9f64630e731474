package builds

import "time"

// StatusEvent describes one build status change, including changes made by a cascade.
type StatusEvent struct {
	BuildID      int64     `json:"build_id"`
	SpecFullHash string    `json:"spec_full_hash"`
	SpecName     string    `json:"spec_name"`
	OldStatus    string    `json:"old_status"`
	NewStatus    string    `json:"new_status"`
	Cascaded     bool      `json:"cascaded"`
	CausedBy     int64     `json:"caused_by,omitempty"`
	At           time.Time `json:"at"`
}
