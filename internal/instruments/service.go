package instruments

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/zarrin-erp/zarrin-erp/internal/ledger"
	"github.com/zarrin-erp/zarrin-erp/internal/shared"
)

// Source type tags recorded on generated journal entries.
const (
	SourceTypeCheck          = "CHECK"
	SourceTypeInstallment    = "INSTALLMENT"
	SourceTypeReconciliation = "BANK_RECONCILIATION"
)

// LedgerPort is the slice of the ledger engine the instrument services
// drive. Satisfied by *ledger.Service.
type LedgerPort interface {
	CreateEntry(ctx context.Context, input ledger.CreateEntryInput) (ledger.JournalEntry, error)
	PostEntry(ctx context.Context, entryID, actorID int64) (ledger.JournalEntry, error)
	EnsureSystemAccount(ctx context.Context, key ledger.SystemAccountKey) (ledger.Account, error)
}

// Service orchestrates instrument lifecycles against the ledger.
type Service struct {
	repo   RepositoryPort
	ledger LedgerPort
	now    func() time.Time
}

func NewService(repo RepositoryPort, lp LedgerPort) *Service {
	return &Service{repo: repo, ledger: lp, now: time.Now}
}

// WithNow overrides the clock, for tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// postPair drafts and posts a two-line entry moving amount from the
// credit system account to the debit one. Returns the posted entry.
func (s *Service) postPair(ctx context.Context, date time.Time, debitKey, creditKey ledger.SystemAccountKey, amount decimal.Decimal, desc, descFa, sourceType string, actorID int64, meta ledger.Metadata) (ledger.JournalEntry, error) {
	debitAcct, err := s.ledger.EnsureSystemAccount(ctx, debitKey)
	if err != nil {
		return ledger.JournalEntry{}, err
	}
	creditAcct, err := s.ledger.EnsureSystemAccount(ctx, creditKey)
	if err != nil {
		return ledger.JournalEntry{}, err
	}
	entry, err := s.ledger.CreateEntry(ctx, ledger.CreateEntryInput{
		Date:          date,
		Description:   desc,
		DescriptionFa: descFa,
		SourceType:    sourceType,
		ActorID:       actorID,
		Metadata:      meta,
		Lines: []ledger.EntryLineInput{
			{AccountID: debitAcct.ID, Debit: amount},
			{AccountID: creditAcct.ID, Credit: amount},
		},
	})
	if err != nil {
		return ledger.JournalEntry{}, err
	}
	return s.ledger.PostEntry(ctx, entry.ID, actorID)
}

func auditFor(table string, recordID int64, op shared.AuditOp, actorID int64, desc string, oldV, newV any) shared.AuditEntry {
	a := shared.AuditEntry{
		TableName:   table,
		RecordID:    strconv.FormatInt(recordID, 10),
		Op:          op,
		ActorID:     actorID,
		Description: desc,
	}
	if oldV != nil {
		a.OldValues, _ = json.Marshal(oldV)
	}
	if newV != nil {
		a.NewValues, _ = json.Marshal(newV)
	}
	return a
}
