package instruments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/zarrin-erp/zarrin-erp/internal/ledger"
	"github.com/zarrin-erp/zarrin-erp/internal/shared"
)

// RegisterCheckInput describes a new check entering the books.
type RegisterCheckInput struct {
	Number      string
	BankName    string
	Amount      decimal.Decimal
	DueDate     time.Time
	Kind        CheckKind
	CustomerRef *uuid.UUID
	ActorID     int64
}

func (in RegisterCheckInput) validate() error {
	if in.Number == "" {
		return errors.New("instruments: check number required")
	}
	if !in.Amount.IsPositive() {
		return errors.New("instruments: check amount must be positive")
	}
	if in.DueDate.IsZero() {
		return errors.New("instruments: check due date required")
	}
	if in.Kind != CheckKindReceived && in.Kind != CheckKindIssued {
		return errors.New("instruments: unknown check kind")
	}
	return nil
}

// RegisterCheck records a held check and posts its registration entry.
// A received check moves the receivable from the customer's open account
// onto checks receivable; an issued check does the mirror on payables.
func (s *Service) RegisterCheck(ctx context.Context, input RegisterCheckInput) (CheckRecord, error) {
	if err := input.validate(); err != nil {
		return CheckRecord{}, err
	}
	debitKey, creditKey := ledger.SystemChecksReceivable, ledger.SystemAccountsReceivable
	if input.Kind == CheckKindIssued {
		debitKey, creditKey = ledger.SystemAccountsPayable, ledger.SystemChecksPayable
	}
	entry, err := s.postPair(ctx, s.now(), debitKey, creditKey, input.Amount.Round(2),
		fmt.Sprintf("Check %s registered (%s)", input.Number, input.BankName),
		fmt.Sprintf("ثبت چک %s", input.Number),
		SourceTypeCheck, input.ActorID,
		ledger.Metadata{"check_number": ledger.String(input.Number), "check_kind": ledger.String(string(input.Kind))},
	)
	if err != nil {
		return CheckRecord{}, err
	}
	check := CheckRecord{
		Number:         input.Number,
		BankName:       input.BankName,
		Amount:         input.Amount.Round(2),
		DueDate:        input.DueDate,
		Kind:           input.Kind,
		Status:         CheckStatusHeld,
		CustomerRef:    input.CustomerRef,
		JournalEntryID: &entry.ID,
	}
	if err := s.repo.InsertCheck(ctx, &check); err != nil {
		return CheckRecord{}, err
	}
	return check, nil
}

// DepositCheck moves a held received check to the bank for collection.
func (s *Service) DepositCheck(ctx context.Context, checkID, actorID int64) (CheckRecord, error) {
	check, err := s.repo.GetCheck(ctx, checkID)
	if err != nil {
		return CheckRecord{}, err
	}
	if check.Kind != CheckKindReceived || check.Status != CheckStatusHeld {
		return CheckRecord{}, ErrInvalidCheckTransition
	}
	entry, err := s.postPair(ctx, s.now(), ledger.SystemChecksInTransit, ledger.SystemChecksReceivable, check.Amount,
		fmt.Sprintf("Check %s deposited", check.Number),
		fmt.Sprintf("واگذاری چک %s به بانک", check.Number),
		SourceTypeCheck, actorID,
		ledger.Metadata{"check_number": ledger.String(check.Number)},
	)
	if err != nil {
		return CheckRecord{}, err
	}
	return s.transition(ctx, check, CheckStatusDeposited, entry.ID, actorID, "check deposited")
}

// ClearCheck settles a check: funds arrive for a deposited received
// check, or leave the bank for an issued one.
func (s *Service) ClearCheck(ctx context.Context, checkID, actorID int64) (CheckRecord, error) {
	check, err := s.repo.GetCheck(ctx, checkID)
	if err != nil {
		return CheckRecord{}, err
	}
	var debitKey, creditKey ledger.SystemAccountKey
	switch {
	case check.Kind == CheckKindReceived && check.Status == CheckStatusDeposited:
		debitKey, creditKey = ledger.SystemBank, ledger.SystemChecksInTransit
	case check.Kind == CheckKindIssued && check.Status == CheckStatusHeld:
		debitKey, creditKey = ledger.SystemChecksPayable, ledger.SystemBank
	default:
		return CheckRecord{}, ErrInvalidCheckTransition
	}
	entry, err := s.postPair(ctx, s.now(), debitKey, creditKey, check.Amount,
		fmt.Sprintf("Check %s cleared", check.Number),
		fmt.Sprintf("وصول چک %s", check.Number),
		SourceTypeCheck, actorID,
		ledger.Metadata{"check_number": ledger.String(check.Number)},
	)
	if err != nil {
		return CheckRecord{}, err
	}
	return s.transition(ctx, check, CheckStatusCleared, entry.ID, actorID, "check cleared")
}

// BounceCheck records a failed collection. The receivable returns to the
// customer's open account; an issued check restores the payable.
func (s *Service) BounceCheck(ctx context.Context, checkID, actorID int64) (CheckRecord, error) {
	check, err := s.repo.GetCheck(ctx, checkID)
	if err != nil {
		return CheckRecord{}, err
	}
	var debitKey, creditKey ledger.SystemAccountKey
	switch {
	case check.Kind == CheckKindReceived && check.Status == CheckStatusDeposited:
		debitKey, creditKey = ledger.SystemAccountsReceivable, ledger.SystemChecksInTransit
	case check.Kind == CheckKindReceived && check.Status == CheckStatusHeld:
		debitKey, creditKey = ledger.SystemAccountsReceivable, ledger.SystemChecksReceivable
	case check.Kind == CheckKindIssued && check.Status == CheckStatusHeld:
		debitKey, creditKey = ledger.SystemChecksPayable, ledger.SystemAccountsPayable
	default:
		return CheckRecord{}, ErrInvalidCheckTransition
	}
	entry, err := s.postPair(ctx, s.now(), debitKey, creditKey, check.Amount,
		fmt.Sprintf("Check %s bounced", check.Number),
		fmt.Sprintf("برگشت چک %s", check.Number),
		SourceTypeCheck, actorID,
		ledger.Metadata{"check_number": ledger.String(check.Number)},
	)
	if err != nil {
		return CheckRecord{}, err
	}
	return s.transition(ctx, check, CheckStatusBounced, entry.ID, actorID, "check bounced")
}

// ListChecks returns checks matching the filter, ordered by due date.
func (s *Service) ListChecks(ctx context.Context, f CheckFilter) ([]CheckRecord, error) {
	return s.repo.ListChecks(ctx, f)
}

// DueChecks returns unsettled checks whose due date falls on or before
// the horizon.
func (s *Service) DueChecks(ctx context.Context, horizon time.Time) ([]CheckRecord, error) {
	checks, err := s.repo.ListChecks(ctx, CheckFilter{DueTo: &horizon})
	if err != nil {
		return nil, err
	}
	out := checks[:0]
	for _, c := range checks {
		if c.Status == CheckStatusHeld || c.Status == CheckStatusDeposited {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *Service) transition(ctx context.Context, check CheckRecord, status CheckStatus, entryID int64, actorID int64, desc string) (CheckRecord, error) {
	old := check
	check.Status = status
	check.JournalEntryID = &entryID
	audit := auditFor("checks", check.ID, shared.AuditOpUpdate, actorID, desc, old, check)
	audit.ChangedFields = []string{"status", "journal_entry_id"}
	if err := s.repo.UpdateCheckStatus(ctx, check.ID, status, &entryID, audit); err != nil {
		return CheckRecord{}, err
	}
	return check, nil
}
