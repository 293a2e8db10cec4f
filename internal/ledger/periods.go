package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/zarrin-erp/zarrin-erp/internal/shared"
)

var periodCodeRe = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// ValidPeriodCode reports whether code looks like "2024-01".
func ValidPeriodCode(code string) bool {
	return periodCodeRe.MatchString(code)
}

// LockPeriod closes an accounting period for posting. Drafts dated inside
// the period survive but can no longer post.
func (s *Service) LockPeriod(ctx context.Context, code string, actorID int64) error {
	return s.setPeriodLock(ctx, code, true, actorID)
}

// UnlockPeriod reopens a previously locked period.
func (s *Service) UnlockPeriod(ctx context.Context, code string, actorID int64) error {
	return s.setPeriodLock(ctx, code, false, actorID)
}

func (s *Service) setPeriodLock(ctx context.Context, code string, locked bool, actorID int64) error {
	if !ValidPeriodCode(code) {
		return fmt.Errorf("ledger: malformed period code %q", code)
	}
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		period, err := tx.GetPeriodForPosting(ctx, code)
		if err != nil {
			return err
		}
		if period.Locked == locked {
			return nil
		}
		now := s.now()
		if err := tx.SetPeriodLock(ctx, code, locked, actorID, now); err != nil {
			return err
		}
		oldValues, err := json.Marshal(Metadata{"locked": Bool(period.Locked)})
		if err != nil {
			return err
		}
		newValues, err := json.Marshal(Metadata{"locked": Bool(locked)})
		if err != nil {
			return err
		}
		verb := "locked"
		if !locked {
			verb = "unlocked"
		}
		return tx.InsertAudit(ctx, shared.AuditEntry{
			TableName:     "accounting_periods",
			RecordID:      code,
			Op:            shared.AuditOpUpdate,
			OldValues:     oldValues,
			NewValues:     newValues,
			ChangedFields: []string{"locked"},
			ActorID:       actorID,
			Description:   fmt.Sprintf("period %s %s", code, verb),
			At:            now,
		})
	})
}

// IsPeriodLocked reports the lock flag. Periods never referenced before
// are considered open.
func (s *Service) IsPeriodLocked(ctx context.Context, code string) (bool, error) {
	if !ValidPeriodCode(code) {
		return false, fmt.Errorf("ledger: malformed period code %q", code)
	}
	return s.repo.IsPeriodLocked(ctx, code)
}
