// Package jobs runs background work over Asynq: the nightly ledger
// integrity sweep and periodic statement snapshots.
package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskLedgerIntegrity sweeps the ledger for balance drift.
	TaskLedgerIntegrity = "ledger:integrity"
	// TaskStatementSnapshot caches a statement bundle in Redis.
	TaskStatementSnapshot = "statements:snapshot"
)

// StatementSnapshotPayload selects the reporting window to snapshot.
type StatementSnapshotPayload struct {
	PeriodStart time.Time `json:"period_start"`
	AsOf        time.Time `json:"as_of"`
}

// NewLedgerIntegrityTask constructs the integrity sweep task.
func NewLedgerIntegrityTask() *asynq.Task {
	return asynq.NewTask(TaskLedgerIntegrity, nil)
}

// NewStatementSnapshotTask constructs a snapshot task.
func NewStatementSnapshotTask(payload StatementSnapshotPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskStatementSnapshot, data), nil
}
