package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// IntegrityIssue flags one account whose stored running balance no
// longer matches the balance derived from its posted lines.
type IntegrityIssue struct {
	AccountID int64
	Code      string
	Stored    string
	Derived   string
}

// IntegrityReport is the outcome of a full-ledger consistency sweep.
type IntegrityReport struct {
	CheckedAt   time.Time
	TotalDebit  string
	TotalCredit string
	Balanced    bool
	Drift       []IntegrityIssue
}

// CheckIntegrity verifies the two core invariants over the whole ledger:
// total posted debits equal total posted credits, and every account's
// stored running balance matches the balance derived from its lines.
func (s *Service) CheckIntegrity(ctx context.Context) (IntegrityReport, error) {
	totals, err := s.repo.PostedAccountTotals(ctx, nil, nil)
	if err != nil {
		return IntegrityReport{}, err
	}
	stored, err := s.repo.StoredAccountBalances(ctx)
	if err != nil {
		return IntegrityReport{}, err
	}

	report := IntegrityReport{CheckedAt: s.now()}
	totalDebit := decimal.Zero
	totalCredit := decimal.Zero
	for _, t := range totals {
		totalDebit = totalDebit.Add(t.Debit)
		totalCredit = totalCredit.Add(t.Credit)

		derived := t.Debit.Sub(t.Credit)
		if t.Type.DefaultNormalSide() == NormalSideCredit {
			derived = t.Credit.Sub(t.Debit)
		}
		storedBal := stored[t.AccountID]
		delete(stored, t.AccountID)
		if storedBal.Sub(derived).Abs().GreaterThan(s.epsilon) {
			report.Drift = append(report.Drift, IntegrityIssue{
				AccountID: t.AccountID,
				Code:      t.Code,
				Stored:    storedBal.StringFixed(2),
				Derived:   derived.StringFixed(2),
			})
		}
	}
	// Accounts with no posted lines must carry a zero running balance.
	for id, bal := range stored {
		if bal.Abs().GreaterThan(s.epsilon) {
			report.Drift = append(report.Drift, IntegrityIssue{
				AccountID: id,
				Stored:    bal.StringFixed(2),
				Derived:   "0.00",
			})
		}
	}

	report.TotalDebit = totalDebit.StringFixed(2)
	report.TotalCredit = totalCredit.StringFixed(2)
	report.Balanced = balancedWithin(totalDebit, totalCredit, s.epsilon)
	return report, nil
}
