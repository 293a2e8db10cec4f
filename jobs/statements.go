package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/zarrin-erp/zarrin-erp/internal/ledger"
)

// StatementSource derives the reporting bundle. Satisfied by
// *ledger.Service.
type StatementSource interface {
	Statements(ctx context.Context, periodStart, asOf time.Time) (ledger.StatementBundle, error)
}

// SnapshotStore caches serialized statement bundles keyed by as-of date.
type SnapshotStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSnapshotStore(client *redis.Client, ttl time.Duration) *SnapshotStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SnapshotStore{client: client, ttl: ttl}
}

func snapshotKey(asOf time.Time) string {
	return "statements:" + asOf.UTC().Format("2006-01-02")
}

// Put stores one bundle under its as-of date.
func (s *SnapshotStore) Put(ctx context.Context, bundle ledger.StatementBundle) error {
	data, err := json.Marshal(bundle)
	if err != nil {
		return fmt.Errorf("jobs: marshal statement bundle: %w", err)
	}
	return s.client.Set(ctx, snapshotKey(bundle.AsOf), data, s.ttl).Err()
}

// Get loads a cached bundle. The boolean reports whether one was found.
func (s *SnapshotStore) Get(ctx context.Context, asOf time.Time) (ledger.StatementBundle, bool, error) {
	data, err := s.client.Get(ctx, snapshotKey(asOf)).Bytes()
	if err == redis.Nil {
		return ledger.StatementBundle{}, false, nil
	}
	if err != nil {
		return ledger.StatementBundle{}, false, err
	}
	var bundle ledger.StatementBundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return ledger.StatementBundle{}, false, err
	}
	return bundle, true, nil
}

// NewStatementSnapshotHandler returns the handler for
// TaskStatementSnapshot: derive the bundle and cache it.
func NewStatementSnapshotHandler(src StatementSource, store *SnapshotStore, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload StatementSnapshotPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		if payload.AsOf.IsZero() {
			payload.AsOf = time.Now()
		}
		if payload.PeriodStart.IsZero() {
			payload.PeriodStart = time.Date(payload.AsOf.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
		}
		bundle, err := src.Statements(ctx, payload.PeriodStart, payload.AsOf)
		if err != nil {
			return fmt.Errorf("jobs: derive statements: %w", err)
		}
		if err := store.Put(ctx, bundle); err != nil {
			return err
		}
		logger.Info("statement snapshot cached",
			slog.Time("as_of", payload.AsOf),
			slog.Bool("trial_balance_ok", bundle.TrialBalance.IsBalanced))
		return nil
	}
}
