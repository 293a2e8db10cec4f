// Package sales posts gold sale invoices into the ledger. A gold
// invoice total decomposes into the metal's base value plus profit
// margin, labor charge, and tax, each landing on its own income or
// liability account.
package sales

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/zarrin-erp/zarrin-erp/internal/ledger"
)

// SourceTypeGoldInvoice tags journal entries generated here.
const SourceTypeGoldInvoice = "GOLD_INVOICE"

var (
	// ErrInvalidTotal indicates a non-positive invoice total.
	ErrInvalidTotal = errors.New("sales: invoice total must be positive")
	// ErrComponentsExceedTotal indicates profit, labor, and tax sum past the total.
	ErrComponentsExceedTotal = errors.New("sales: components exceed invoice total")
	// ErrNegativeComponent indicates a negative profit, labor, or tax figure.
	ErrNegativeComponent = errors.New("sales: components cannot be negative")
)

// LedgerPort is the slice of the ledger engine invoice posting drives.
// Satisfied by *ledger.Service.
type LedgerPort interface {
	CreateEntry(ctx context.Context, input ledger.CreateEntryInput) (ledger.JournalEntry, error)
	PostEntry(ctx context.Context, entryID, actorID int64) (ledger.JournalEntry, error)
	EnsureSystemAccount(ctx context.Context, key ledger.SystemAccountKey) (ledger.Account, error)
}

// Service posts gold invoices.
type Service struct {
	ledger LedgerPort
	now    func() time.Time
}

func NewService(lp LedgerPort) *Service {
	return &Service{ledger: lp, now: time.Now}
}

// WithNow overrides the clock, for tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// GoldInvoiceInput carries the decomposed totals of one invoice.
type GoldInvoiceInput struct {
	InvoiceRef uuid.UUID
	Date       time.Time
	Total      decimal.Decimal
	Profit     decimal.Decimal
	Labor      decimal.Decimal
	Tax        decimal.Decimal
	Customer   string
	ActorID    int64
}

// Breakdown is the per-account split of a gold invoice total.
type Breakdown struct {
	Base   decimal.Decimal
	Profit decimal.Decimal
	Labor  decimal.Decimal
	Tax    decimal.Decimal
}

// Decompose validates the input and splits the total. The base metal
// value is whatever remains after profit, labor, and tax.
func Decompose(in GoldInvoiceInput) (Breakdown, error) {
	total := in.Total.Round(2)
	if !total.IsPositive() {
		return Breakdown{}, ErrInvalidTotal
	}
	b := Breakdown{
		Profit: in.Profit.Round(2),
		Labor:  in.Labor.Round(2),
		Tax:    in.Tax.Round(2),
	}
	if b.Profit.IsNegative() || b.Labor.IsNegative() || b.Tax.IsNegative() {
		return Breakdown{}, ErrNegativeComponent
	}
	b.Base = total.Sub(b.Profit).Sub(b.Labor).Sub(b.Tax)
	if b.Base.IsNegative() {
		return Breakdown{}, ErrComponentsExceedTotal
	}
	return b, nil
}

// PostGoldInvoice posts one compound entry for the invoice: the full
// total lands on accounts receivable, with base value, gold profit,
// labor income, and tax payable credited separately. Zero components
// produce no line.
func (s *Service) PostGoldInvoice(ctx context.Context, input GoldInvoiceInput) (ledger.JournalEntry, error) {
	breakdown, err := Decompose(input)
	if err != nil {
		return ledger.JournalEntry{}, err
	}
	date := input.Date
	if date.IsZero() {
		date = s.now()
	}

	receivable, err := s.ledger.EnsureSystemAccount(ctx, ledger.SystemAccountsReceivable)
	if err != nil {
		return ledger.JournalEntry{}, err
	}
	lines := []ledger.EntryLineInput{
		{AccountID: receivable.ID, Debit: input.Total.Round(2), Description: input.Customer},
	}
	credit := func(key ledger.SystemAccountKey, amount decimal.Decimal) error {
		if !amount.IsPositive() {
			return nil
		}
		acct, err := s.ledger.EnsureSystemAccount(ctx, key)
		if err != nil {
			return err
		}
		lines = append(lines, ledger.EntryLineInput{AccountID: acct.ID, Credit: amount})
		return nil
	}
	if err := credit(ledger.SystemSalesRevenue, breakdown.Base); err != nil {
		return ledger.JournalEntry{}, err
	}
	if err := credit(ledger.SystemGoldProfit, breakdown.Profit); err != nil {
		return ledger.JournalEntry{}, err
	}
	if err := credit(ledger.SystemLaborIncome, breakdown.Labor); err != nil {
		return ledger.JournalEntry{}, err
	}
	if err := credit(ledger.SystemTaxPayable, breakdown.Tax); err != nil {
		return ledger.JournalEntry{}, err
	}

	ref := input.InvoiceRef
	entry, err := s.ledger.CreateEntry(ctx, ledger.CreateEntryInput{
		Date:          date,
		Description:   fmt.Sprintf("Gold sale invoice %s", ref),
		DescriptionFa: "فاکتور فروش طلا",
		SourceType:    SourceTypeGoldInvoice,
		SourceID:      &ref,
		ActorID:       input.ActorID,
		Metadata: ledger.Metadata{
			"customer": ledger.String(input.Customer),
			"base":     ledger.Number(breakdown.Base),
			"profit":   ledger.Number(breakdown.Profit),
			"labor":    ledger.Number(breakdown.Labor),
			"tax":      ledger.Number(breakdown.Tax),
		},
		Lines: lines,
	})
	if err != nil {
		return ledger.JournalEntry{}, err
	}
	return s.ledger.PostEntry(ctx, entry.ID, input.ActorID)
}
