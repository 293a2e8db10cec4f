package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/zarrin-erp/zarrin-erp/internal/ledger"
)

// IntegrityChecker runs the full-ledger consistency sweep. Satisfied by
// *ledger.Service.
type IntegrityChecker interface {
	CheckIntegrity(ctx context.Context) (ledger.IntegrityReport, error)
}

// NewLedgerIntegrityHandler returns the handler for TaskLedgerIntegrity.
// Drift is reported through logs; the task itself only fails when the
// sweep cannot run, so the scheduler does not retry a corrupted ledger.
func NewLedgerIntegrityHandler(svc IntegrityChecker, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, _ *asynq.Task) error {
		report, err := svc.CheckIntegrity(ctx)
		if err != nil {
			return fmt.Errorf("jobs: ledger integrity sweep: %w", err)
		}
		if !report.Balanced {
			logger.Error("ledger out of balance",
				slog.String("total_debit", report.TotalDebit),
				slog.String("total_credit", report.TotalCredit))
		}
		for _, issue := range report.Drift {
			logger.Error("account balance drift",
				slog.Int64("account_id", issue.AccountID),
				slog.String("code", issue.Code),
				slog.String("stored", issue.Stored),
				slog.String("derived", issue.Derived))
		}
		if report.Balanced && len(report.Drift) == 0 {
			logger.Info("ledger integrity sweep clean",
				slog.String("total_debit", report.TotalDebit))
		}
		return nil
	}
}
