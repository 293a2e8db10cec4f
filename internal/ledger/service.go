package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/zarrin-erp/zarrin-erp/internal/shared"
)

// SourceTypeReversal marks entries generated by ReverseEntry. Entries with
// this source type cannot themselves be reversed.
const SourceTypeReversal = "REVERSAL"

// DefaultEpsilon is the balance tolerance in currency units. Kept
// configurable because currency rounding makes a hard zero impractical.
var DefaultEpsilon = decimal.New(1, -2)

// RepositoryPort abstracts the transactional repository and the
// snapshot-consistent read side used for statements.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListAccounts(ctx context.Context, activeOnly bool) ([]Account, error)
	ListSubsidiaries(ctx context.Context, accountID int64) ([]SubsidiaryAccount, error)
	GetEntryWithLines(ctx context.Context, id int64) (JournalEntry, error)
	ListEntries(ctx context.Context, f EntryFilter) ([]JournalEntry, error)
	IsPeriodLocked(ctx context.Context, code string) (bool, error)
	PostedAccountTotals(ctx context.Context, from, to *time.Time) ([]AccountTotals, error)
	AccountBalanceAsOf(ctx context.Context, accountID int64, asOf time.Time) (debit, credit decimal.Decimal, err error)
	StoredAccountBalances(ctx context.Context) (map[int64]decimal.Decimal, error)
}

// Service is the ledger engine: it validates, persists, posts, and
// reverses journal entries, and owns the chart of accounts.
type Service struct {
	repo    RepositoryPort
	epsilon decimal.Decimal
	now     func() time.Time
}

// NewService constructs the ledger service with the default tolerance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo, epsilon: DefaultEpsilon, now: time.Now}
}

// WithEpsilon overrides the balance tolerance.
func (s *Service) WithEpsilon(epsilon decimal.Decimal) *Service {
	if epsilon.IsPositive() {
		s.epsilon = epsilon
	}
	return s
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// EntryLineInput describes one leg of a new journal entry.
type EntryLineInput struct {
	AccountID    int64
	SubsidiaryID *int64
	Debit        decimal.Decimal
	Credit       decimal.Decimal
	Description  string
	Metadata     Metadata
}

// CreateEntryInput groups fields required to draft a journal entry.
type CreateEntryInput struct {
	Date          time.Time
	Description   string
	DescriptionFa string
	Reference     string
	SourceType    string
	SourceID      *uuid.UUID
	ActorID       int64
	Metadata      Metadata
	Lines         []EntryLineInput
}

// Validate checks structural rules and the balance invariant within
// epsilon. Nothing is persisted when it fails.
func (in CreateEntryInput) Validate(epsilon decimal.Decimal) error {
	if in.Date.IsZero() {
		return errors.New("ledger: entry date required")
	}
	if len(in.Lines) < 2 {
		return ErrTooFewLines
	}
	var debit, credit decimal.Decimal
	for idx, line := range in.Lines {
		if line.AccountID == 0 {
			return fmt.Errorf("ledger: line %d missing account", idx)
		}
		if line.Debit.IsNegative() || line.Credit.IsNegative() {
			return fmt.Errorf("ledger: line %d negative amount", idx)
		}
		if line.Debit.IsPositive() && line.Credit.IsPositive() {
			return fmt.Errorf("ledger: line %d cannot be both debit and credit", idx)
		}
		if line.Debit.IsZero() && line.Credit.IsZero() {
			return fmt.Errorf("ledger: line %d has no amount", idx)
		}
		debit = debit.Add(line.Debit.Round(2))
		credit = credit.Add(line.Credit.Round(2))
	}
	if !balancedWithin(debit, credit, epsilon) {
		return ErrUnbalanced
	}
	return nil
}

func balancedWithin(debit, credit, epsilon decimal.Decimal) bool {
	return debit.Sub(credit).Abs().LessThanOrEqual(epsilon)
}

// CreateEntry validates and persists a draft journal entry. Balances are
// untouched until PostEntry.
func (s *Service) CreateEntry(ctx context.Context, input CreateEntryInput) (JournalEntry, error) {
	if err := input.Validate(s.epsilon); err != nil {
		return JournalEntry{}, err
	}
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var totalDebit, totalCredit decimal.Decimal
		lines := make([]JournalEntryLine, 0, len(input.Lines))
		for idx, in := range input.Lines {
			account, err := tx.GetAccount(ctx, in.AccountID)
			if err != nil {
				return err
			}
			if !account.IsActive {
				return ErrAccountInactive
			}
			if in.SubsidiaryID != nil {
				sub, err := tx.GetSubsidiary(ctx, *in.SubsidiaryID)
				if err != nil {
					return err
				}
				if sub.AccountID != account.ID {
					return ErrSubsidiaryMismatch
				}
			}
			debit := in.Debit.Round(2)
			credit := in.Credit.Round(2)
			totalDebit = totalDebit.Add(debit)
			totalCredit = totalCredit.Add(credit)
			lines = append(lines, JournalEntryLine{
				LineNumber:   idx + 1,
				AccountID:    in.AccountID,
				SubsidiaryID: in.SubsidiaryID,
				Debit:        debit,
				Credit:       credit,
				Description:  in.Description,
				Metadata:     in.Metadata,
			})
		}
		period := PeriodCode(input.Date)
		seq, err := tx.NextEntrySequence(ctx, period)
		if err != nil {
			return err
		}
		draft := JournalEntry{
			Number:        EntryNumber(input.Date, seq),
			Date:          input.Date,
			Description:   input.Description,
			DescriptionFa: input.DescriptionFa,
			Reference:     input.Reference,
			SourceType:    input.SourceType,
			SourceID:      input.SourceID,
			TotalDebit:    totalDebit,
			TotalCredit:   totalCredit,
			Status:        EntryStatusDraft,
			Period:        period,
			FiscalYear:    input.Date.Year(),
			Metadata:      input.Metadata,
		}
		inserted, err := tx.InsertEntry(ctx, draft)
		if err != nil {
			return err
		}
		if err := tx.InsertLines(ctx, inserted.ID, lines); err != nil {
			return err
		}
		for i := range lines {
			lines[i].EntryID = inserted.ID
		}
		inserted.Lines = lines
		if err := s.auditEntry(ctx, tx, shared.AuditOpInsert, input.ActorID, inserted, nil,
			fmt.Sprintf("journal entry %s drafted", inserted.Number)); err != nil {
			return err
		}
		entry = inserted
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	return entry, nil
}

// DiscardDraft cascades a still-draft entry and its lines away. Posted
// history is never deleted.
func (s *Service) DiscardDraft(ctx context.Context, entryID, actorID int64) error {
	return s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		entry, err := tx.GetEntryForUpdate(ctx, entryID)
		if err != nil {
			return err
		}
		if entry.Status != EntryStatusDraft {
			return ErrInvalidStatus
		}
		if err := tx.DeleteDraftEntry(ctx, entryID); err != nil {
			return err
		}
		return s.auditEntry(ctx, tx, shared.AuditOpDelete, actorID, entry, nil,
			fmt.Sprintf("journal entry %s discarded", entry.Number))
	})
}

// PostEntry applies a draft entry to account balances. Status flip, balance
// updates, and the audit record commit in one transaction.
func (s *Service) PostEntry(ctx context.Context, entryID, actorID int64) (JournalEntry, error) {
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetEntryForUpdate(ctx, entryID)
		if err != nil {
			return err
		}
		if current.Status != EntryStatusDraft {
			return ErrInvalidStatus
		}
		lines, err := tx.GetEntryLines(ctx, current.ID)
		if err != nil {
			return err
		}
		posted, err := s.postLocked(ctx, tx, current, lines, actorID)
		if err != nil {
			return err
		}
		entry = posted
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	return entry, nil
}

// postLocked posts an entry already locked by the surrounding transaction:
// it checks the period lock, re-asserts the stored totals, applies line
// effects, flips the status, and writes the audit row.
func (s *Service) postLocked(ctx context.Context, tx TxRepository, entry JournalEntry, lines []JournalEntryLine, actorID int64) (JournalEntry, error) {
	period, err := tx.GetPeriodForPosting(ctx, entry.Period)
	if err != nil {
		return JournalEntry{}, err
	}
	if period.Locked {
		return JournalEntry{}, ErrPeriodLocked
	}
	// Totals were fixed at creation; posting asserts them rather than
	// recomputing from lines.
	if !balancedWithin(entry.TotalDebit, entry.TotalCredit, s.epsilon) {
		return JournalEntry{}, ErrUnbalanced
	}
	if err := s.applyLines(ctx, tx, lines); err != nil {
		return JournalEntry{}, err
	}
	now := s.now()
	if err := tx.MarkPosted(ctx, entry.ID, actorID, now); err != nil {
		return JournalEntry{}, err
	}
	old := entry
	entry.Status = EntryStatusPosted
	entry.PostedBy = &actorID
	entry.PostedAt = &now
	entry.Lines = lines
	if err := s.auditEntry(ctx, tx, shared.AuditOpUpdate, actorID, entry, &old,
		fmt.Sprintf("journal entry %s posted", entry.Number)); err != nil {
		return JournalEntry{}, err
	}
	return entry, nil
}

// applyLines folds line amounts into account and subsidiary running
// balances. Accounts are locked in id order so concurrent postings touching
// the same accounts serialize instead of deadlocking.
func (s *Service) applyLines(ctx context.Context, tx TxRepository, lines []JournalEntryLine) error {
	type effect struct{ debit, credit decimal.Decimal }
	accountEffects := make(map[int64]*effect)
	subsidiaryEffects := make(map[int64]*effect)
	subsidiaryMain := make(map[int64]int64)
	for _, line := range lines {
		eff, ok := accountEffects[line.AccountID]
		if !ok {
			eff = &effect{}
			accountEffects[line.AccountID] = eff
		}
		eff.debit = eff.debit.Add(line.Debit)
		eff.credit = eff.credit.Add(line.Credit)
		if line.SubsidiaryID != nil {
			sub, ok := subsidiaryEffects[*line.SubsidiaryID]
			if !ok {
				sub = &effect{}
				subsidiaryEffects[*line.SubsidiaryID] = sub
			}
			sub.debit = sub.debit.Add(line.Debit)
			sub.credit = sub.credit.Add(line.Credit)
			subsidiaryMain[*line.SubsidiaryID] = line.AccountID
		}
	}

	accountIDs := make([]int64, 0, len(accountEffects))
	for id := range accountEffects {
		accountIDs = append(accountIDs, id)
	}
	sort.Slice(accountIDs, func(i, j int) bool { return accountIDs[i] < accountIDs[j] })

	sides := make(map[int64]NormalSide, len(accountIDs))
	for _, id := range accountIDs {
		account, err := tx.GetAccountForUpdate(ctx, id)
		if err != nil {
			return err
		}
		sides[id] = account.NormalSide
		eff := accountEffects[id]
		debit, credit, current := applyEffect(account.NormalSide, account.DebitBalance, account.CreditBalance, eff.debit, eff.credit)
		if err := tx.UpdateAccountBalances(ctx, id, debit, credit, current); err != nil {
			return err
		}
	}

	subIDs := make([]int64, 0, len(subsidiaryEffects))
	for id := range subsidiaryEffects {
		subIDs = append(subIDs, id)
	}
	sort.Slice(subIDs, func(i, j int) bool { return subIDs[i] < subIDs[j] })
	for _, id := range subIDs {
		sub, err := tx.GetSubsidiaryForUpdate(ctx, id)
		if err != nil {
			return err
		}
		// Detail accounts follow their main account's normal side.
		side := sides[subsidiaryMain[id]]
		eff := subsidiaryEffects[id]
		debit, credit, current := applyEffect(side, sub.DebitBalance, sub.CreditBalance, eff.debit, eff.credit)
		if err := tx.UpdateSubsidiaryBalances(ctx, id, debit, credit, current); err != nil {
			return err
		}
	}
	return nil
}

// ReverseEntry creates and posts an offsetting entry, then marks the
// original reversed with a back-link and reason. The net effect is zero
// against the state before the original existed.
func (s *Service) ReverseEntry(ctx context.Context, entryID int64, reason string, actorID int64) (JournalEntry, error) {
	var reversal JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		original, err := tx.GetEntryForUpdate(ctx, entryID)
		if err != nil {
			return err
		}
		if original.Status != EntryStatusPosted {
			return ErrEntryNotPosted
		}
		if original.SourceType == SourceTypeReversal {
			return ErrReversalOfReversal
		}
		lines, err := tx.GetEntryLines(ctx, original.ID)
		if err != nil {
			return err
		}

		date := original.Date
		if locked, err := periodLockedInTx(ctx, tx, original.Period); err != nil {
			return err
		} else if locked {
			// The original period closed since posting; the offsetting
			// entry lands in the current one.
			date = s.now()
		}
		period := PeriodCode(date)
		seq, err := tx.NextEntrySequence(ctx, period)
		if err != nil {
			return err
		}
		draft := JournalEntry{
			Number:        EntryNumber(date, seq),
			Date:          date,
			Description:   fmt.Sprintf("Reversal of %s: %s", original.Number, reason),
			DescriptionFa: original.DescriptionFa,
			Reference:     original.Number,
			SourceType:    SourceTypeReversal,
			SourceID:      newSourceID(),
			TotalDebit:    original.TotalCredit,
			TotalCredit:   original.TotalDebit,
			Status:        EntryStatusDraft,
			Period:        period,
			FiscalYear:    date.Year(),
		}
		inserted, err := tx.InsertEntry(ctx, draft)
		if err != nil {
			return err
		}
		swapped := swapLines(lines)
		if err := tx.InsertLines(ctx, inserted.ID, swapped); err != nil {
			return err
		}
		posted, err := s.postLocked(ctx, tx, inserted, swapped, actorID)
		if err != nil {
			return err
		}
		if err := tx.MarkReversed(ctx, original.ID, posted.ID, reason); err != nil {
			return err
		}
		oldOriginal := original
		original.Status = EntryStatusReversed
		original.ReversedEntryID = &posted.ID
		original.ReversalReason = reason
		if err := s.auditEntry(ctx, tx, shared.AuditOpUpdate, actorID, original, &oldOriginal,
			fmt.Sprintf("journal entry %s reversed by %s", original.Number, posted.Number)); err != nil {
			return err
		}
		reversal = posted
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	return reversal, nil
}

func periodLockedInTx(ctx context.Context, tx TxRepository, code string) (bool, error) {
	period, err := tx.GetPeriodForPosting(ctx, code)
	if err != nil {
		return false, err
	}
	return period.Locked, nil
}

func swapLines(lines []JournalEntryLine) []JournalEntryLine {
	out := make([]JournalEntryLine, 0, len(lines))
	for idx, line := range lines {
		out = append(out, JournalEntryLine{
			LineNumber:   idx + 1,
			AccountID:    line.AccountID,
			SubsidiaryID: line.SubsidiaryID,
			Debit:        line.Credit,
			Credit:       line.Debit,
			Description:  line.Description,
			Metadata:     line.Metadata,
		})
	}
	return out
}

func newSourceID() *uuid.UUID {
	id := uuid.New()
	return &id
}

// GetEntry loads an entry with its lines.
func (s *Service) GetEntry(ctx context.Context, id int64) (JournalEntry, error) {
	return s.repo.GetEntryWithLines(ctx, id)
}

// ListEntries returns entries newest first, optionally filtered.
func (s *Service) ListEntries(ctx context.Context, f EntryFilter) ([]JournalEntry, error) {
	return s.repo.ListEntries(ctx, f)
}

// auditEntry serializes entry state into the append-only trail inside the
// same transaction as the mutation.
func (s *Service) auditEntry(ctx context.Context, tx TxRepository, op shared.AuditOp, actorID int64, entry JournalEntry, old *JournalEntry, description string) error {
	newValues, err := json.Marshal(entrySnapshot(entry))
	if err != nil {
		return err
	}
	record := shared.AuditEntry{
		TableName:   "journal_entries",
		RecordID:    fmt.Sprintf("%d", entry.ID),
		Op:          op,
		NewValues:   newValues,
		ActorID:     actorID,
		Description: description,
		At:          s.now(),
	}
	if old != nil {
		oldValues, err := json.Marshal(entrySnapshot(*old))
		if err != nil {
			return err
		}
		record.OldValues = oldValues
		record.ChangedFields = ChangedKeys(entrySnapshot(*old), entrySnapshot(entry))
	}
	return tx.InsertAudit(ctx, record)
}

func entrySnapshot(e JournalEntry) Metadata {
	snap := Metadata{
		"number":       String(e.Number),
		"status":       String(string(e.Status)),
		"period":       String(e.Period),
		"total_debit":  Number(e.TotalDebit),
		"total_credit": Number(e.TotalCredit),
	}
	if e.PostedAt != nil {
		snap["posted_at"] = Time(*e.PostedAt)
	}
	if e.PostedBy != nil {
		snap["posted_by"] = Number(decimal.NewFromInt(*e.PostedBy))
	}
	if e.ReversedEntryID != nil {
		snap["reversed_entry_id"] = Number(decimal.NewFromInt(*e.ReversedEntryID))
	}
	if e.ReversalReason != "" {
		snap["reversal_reason"] = String(e.ReversalReason)
	}
	return snap
}
