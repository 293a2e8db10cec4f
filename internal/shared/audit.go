package shared

import (
	"encoding/json"
	"errors"
	"time"
)

// AuditOp enumerates audited mutation kinds.
type AuditOp string

const (
	AuditOpInsert AuditOp = "INSERT"
	AuditOpUpdate AuditOp = "UPDATE"
	AuditOpDelete AuditOp = "DELETE"
)

// AuditEntry represents one append-only row in audit_trail. Old and new
// values are serialized snapshots of the mutated record.
type AuditEntry struct {
	ID            int64
	TableName     string
	RecordID      string
	Op            AuditOp
	OldValues     json.RawMessage
	NewValues     json.RawMessage
	ChangedFields []string
	ActorID       int64
	Description   string
	At            time.Time
}

// Validate ensures the entry identifies a record and an operation.
func (e AuditEntry) Validate() error {
	if e.TableName == "" || e.RecordID == "" {
		return errors.New("shared: audit entry requires table and record id")
	}
	if e.Op != AuditOpInsert && e.Op != AuditOpUpdate && e.Op != AuditOpDelete {
		return errors.New("shared: audit entry has unknown operation")
	}
	return nil
}
