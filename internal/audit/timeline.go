// Package audit is the read side of the audit trail. Rows are written
// by the mutating services; this package only filters and pages them.
package audit

import (
	"encoding/json"
	"time"
)

// TimelineFilters narrows the audit timeline. Zero values mean no
// constraint.
type TimelineFilters struct {
	From     time.Time
	To       time.Time
	ActorID  int64
	Table    string
	Op       string
	Page     int
	PageSize int
}

// TimelineRow is one audit event as presented to callers.
type TimelineRow struct {
	ID            int64
	At            time.Time
	ActorID       int64
	Op            string
	Table         string
	RecordID      string
	ChangedFields []string
	Description   string
}

// HistoryRow is one audit event with full before and after snapshots,
// used when inspecting a single record's trail.
type HistoryRow struct {
	TimelineRow
	OldValues json.RawMessage
	NewValues json.RawMessage
}

// PagingInfo carries simple pagination metadata.
type PagingInfo struct {
	Page     int
	PageSize int
	HasNext  bool
	PrevPage int
	NextPage int
}
