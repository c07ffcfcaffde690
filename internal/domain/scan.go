package domain

import "time"

// ScanRequest carries the raw caller input for a scan. Dates are
// YYYY-MM-DD; validation and end-of-day normalization happen in the scan
// package before any network call.
type ScanRequest struct {
	UserIDs []string
	From    string
	To      string
	// Kinds optionally restricts the scan to certain chat kinds.
	// Empty means every chat is inspected.
	Kinds []ChatKind
}

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityWarn    Severity = "warn"
	SeverityError   Severity = "error"
)

type LogEntry struct {
	Time     time.Time
	Severity Severity
	Message  string
}
