package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/zarrin-erp/zarrin-erp/internal/ledger/reports"
)

// AccountBalanceResult is a point-in-time derivation for one account.
type AccountBalanceResult struct {
	AccountID int64
	AsOf      time.Time
	Debit     decimal.Decimal
	Credit    decimal.Decimal
}

// Net returns the debit-minus-credit balance.
func (r AccountBalanceResult) Net() decimal.Decimal {
	return r.Debit.Sub(r.Credit)
}

// StatementBundle packages the three statements generated together for a
// reporting snapshot.
type StatementBundle struct {
	AsOf          time.Time
	PeriodStart   time.Time
	TrialBalance  reports.TrialBalance
	BalanceSheet  reports.BalanceSheet
	ProfitAndLoss reports.ProfitAndLoss
}

// TrialBalance derives the trial balance from posted lines dated at or
// before asOf.
func (s *Service) TrialBalance(ctx context.Context, asOf time.Time) (reports.TrialBalance, error) {
	rows, err := s.accountRows(ctx, nil, &asOf)
	if err != nil {
		return reports.TrialBalance{}, err
	}
	return reports.BuildTrialBalance(rows, s.epsilon), nil
}

// BalanceSheet derives the balance sheet as of a date.
func (s *Service) BalanceSheet(ctx context.Context, asOf time.Time) (reports.BalanceSheet, error) {
	rows, err := s.accountRows(ctx, nil, &asOf)
	if err != nil {
		return reports.BalanceSheet{}, err
	}
	return reports.BuildBalanceSheet(rows, s.epsilon), nil
}

// ProfitAndLoss derives the income statement for a date range.
func (s *Service) ProfitAndLoss(ctx context.Context, periodStart, periodEnd time.Time) (reports.ProfitAndLoss, error) {
	rows, err := s.accountRows(ctx, &periodStart, &periodEnd)
	if err != nil {
		return reports.ProfitAndLoss{}, err
	}
	return reports.BuildProfitAndLoss(rows), nil
}

// Statements derives all three statements concurrently. Statement reads
// are snapshot-consistent over posted data, so they need no mutual
// exclusion against posting.
func (s *Service) Statements(ctx context.Context, periodStart, asOf time.Time) (StatementBundle, error) {
	bundle := StatementBundle{AsOf: asOf, PeriodStart: periodStart}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		tb, err := s.TrialBalance(ctx, asOf)
		bundle.TrialBalance = tb
		return err
	})
	g.Go(func() error {
		bs, err := s.BalanceSheet(ctx, asOf)
		bundle.BalanceSheet = bs
		return err
	})
	g.Go(func() error {
		pl, err := s.ProfitAndLoss(ctx, periodStart, asOf)
		bundle.ProfitAndLoss = pl
		return err
	})
	if err := g.Wait(); err != nil {
		return StatementBundle{}, err
	}
	return bundle, nil
}

func (s *Service) accountRows(ctx context.Context, from, to *time.Time) ([]reports.AccountRow, error) {
	totals, err := s.repo.PostedAccountTotals(ctx, from, to)
	if err != nil {
		return nil, err
	}
	rows := make([]reports.AccountRow, 0, len(totals))
	for _, t := range totals {
		rows = append(rows, reports.AccountRow{
			Code:   t.Code,
			Name:   t.Name,
			NameFa: t.NameFa,
			Type:   string(t.Type),
			Debit:  t.Debit,
			Credit: t.Credit,
		})
	}
	return rows, nil
}
