package instruments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/zarrin-erp/zarrin-erp/internal/ledger"
	"github.com/zarrin-erp/zarrin-erp/internal/shared"
)

// StartReconciliationInput opens a reconciliation against one statement.
type StartReconciliationInput struct {
	BankName         string
	StatementDate    time.Time
	StatementBalance decimal.Decimal
	BookBalance      decimal.Decimal
	ActorID          int64
}

// StartReconciliation records a new open reconciliation.
func (s *Service) StartReconciliation(ctx context.Context, input StartReconciliationInput) (BankReconciliation, error) {
	if input.BankName == "" {
		return BankReconciliation{}, errors.New("instruments: bank name required")
	}
	if input.StatementDate.IsZero() {
		return BankReconciliation{}, errors.New("instruments: statement date required")
	}
	rec := BankReconciliation{
		BankName:         input.BankName,
		StatementDate:    input.StatementDate,
		StatementBalance: input.StatementBalance.Round(2),
		BookBalance:      input.BookBalance.Round(2),
		Status:           ReconciliationStatusOpen,
	}
	if err := s.repo.InsertReconciliation(ctx, &rec); err != nil {
		return BankReconciliation{}, err
	}
	return rec, nil
}

// AddItemInput records one statement line against an open reconciliation.
// Matched lines already exist in the books; unmatched ones will be
// adjusted on completion.
type AddItemInput struct {
	ReconciliationID int64
	Kind             ItemKind
	Amount           decimal.Decimal
	Matched          bool
	Memo             string
}

// AddItem appends a statement line to an open reconciliation.
func (s *Service) AddItem(ctx context.Context, input AddItemInput) (ReconciliationItem, error) {
	switch input.Kind {
	case ItemKindBankFee, ItemKindInterest, ItemKindAdjustment:
	default:
		return ReconciliationItem{}, errors.New("instruments: unknown reconciliation item kind")
	}
	if input.Amount.IsZero() {
		return ReconciliationItem{}, errors.New("instruments: reconciliation item amount required")
	}
	rec, err := s.repo.GetReconciliation(ctx, input.ReconciliationID)
	if err != nil {
		return ReconciliationItem{}, err
	}
	if rec.Status != ReconciliationStatusOpen {
		return ReconciliationItem{}, ErrReconciliationClosed
	}
	item := ReconciliationItem{
		ReconciliationID: rec.ID,
		Kind:             input.Kind,
		Amount:           input.Amount.Round(2),
		Matched:          input.Matched,
		Memo:             input.Memo,
	}
	if err := s.repo.InsertReconciliationItem(ctx, &item); err != nil {
		return ReconciliationItem{}, err
	}
	return item, nil
}

// CompleteReconciliation closes the reconciliation. Unmatched items are
// folded into one posted adjustment entry: fees leave the bank account,
// interest enters it, and adjustments move against open receivables by
// sign. With no unmatched items no entry is generated.
func (s *Service) CompleteReconciliation(ctx context.Context, id, actorID int64) (BankReconciliation, error) {
	rec, err := s.repo.GetReconciliation(ctx, id)
	if err != nil {
		return BankReconciliation{}, err
	}
	if rec.Status != ReconciliationStatusOpen {
		return BankReconciliation{}, ErrReconciliationClosed
	}

	var entryID *int64
	lines, err := s.adjustmentLines(ctx, rec.Items)
	if err != nil {
		return BankReconciliation{}, err
	}
	if len(lines) > 0 {
		entry, err := s.ledger.CreateEntry(ctx, ledger.CreateEntryInput{
			Date:          rec.StatementDate,
			Description:   fmt.Sprintf("Bank reconciliation adjustments: %s %s", rec.BankName, rec.StatementDate.Format("2006-01-02")),
			DescriptionFa: fmt.Sprintf("تعدیلات مغایرت بانکی %s", rec.BankName),
			SourceType:    SourceTypeReconciliation,
			ActorID:       actorID,
			Metadata:      ledger.Metadata{"bank_name": ledger.String(rec.BankName)},
			Lines:         lines,
		})
		if err != nil {
			return BankReconciliation{}, err
		}
		posted, err := s.ledger.PostEntry(ctx, entry.ID, actorID)
		if err != nil {
			return BankReconciliation{}, err
		}
		entryID = &posted.ID
	}

	old := rec
	rec.Status = ReconciliationStatusCompleted
	rec.JournalEntryID = entryID
	audit := auditFor("bank_reconciliations", rec.ID, shared.AuditOpUpdate, actorID, "reconciliation completed", old, rec)
	audit.ChangedFields = []string{"status", "journal_entry_id"}
	if err := s.repo.CompleteReconciliation(ctx, rec.ID, entryID, audit); err != nil {
		return BankReconciliation{}, err
	}
	return rec, nil
}

// GetReconciliation fetches one reconciliation with its items.
func (s *Service) GetReconciliation(ctx context.Context, id int64) (BankReconciliation, error) {
	return s.repo.GetReconciliation(ctx, id)
}

func (s *Service) adjustmentLines(ctx context.Context, items []ReconciliationItem) ([]ledger.EntryLineInput, error) {
	var lines []ledger.EntryLineInput
	account := func(key ledger.SystemAccountKey) (int64, error) {
		acct, err := s.ledger.EnsureSystemAccount(ctx, key)
		return acct.ID, err
	}
	for _, item := range items {
		if item.Matched {
			continue
		}
		amount := item.Amount.Abs()
		switch item.Kind {
		case ItemKindBankFee:
			fees, err := account(ledger.SystemBankFees)
			if err != nil {
				return nil, err
			}
			bank, err := account(ledger.SystemBank)
			if err != nil {
				return nil, err
			}
			lines = append(lines,
				ledger.EntryLineInput{AccountID: fees, Debit: amount, Description: item.Memo},
				ledger.EntryLineInput{AccountID: bank, Credit: amount, Description: item.Memo})
		case ItemKindInterest:
			bank, err := account(ledger.SystemBank)
			if err != nil {
				return nil, err
			}
			income, err := account(ledger.SystemInterestIncome)
			if err != nil {
				return nil, err
			}
			lines = append(lines,
				ledger.EntryLineInput{AccountID: bank, Debit: amount, Description: item.Memo},
				ledger.EntryLineInput{AccountID: income, Credit: amount, Description: item.Memo})
		case ItemKindAdjustment:
			bank, err := account(ledger.SystemBank)
			if err != nil {
				return nil, err
			}
			receivable, err := account(ledger.SystemAccountsReceivable)
			if err != nil {
				return nil, err
			}
			if item.Amount.IsPositive() {
				lines = append(lines,
					ledger.EntryLineInput{AccountID: bank, Debit: amount, Description: item.Memo},
					ledger.EntryLineInput{AccountID: receivable, Credit: amount, Description: item.Memo})
			} else {
				lines = append(lines,
					ledger.EntryLineInput{AccountID: receivable, Debit: amount, Description: item.Memo},
					ledger.EntryLineInput{AccountID: bank, Credit: amount, Description: item.Memo})
			}
		}
	}
	return lines, nil
}
