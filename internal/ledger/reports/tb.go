// Package reports derives trial balance, balance sheet, and profit and
// loss statements from posted journal line aggregates. Builders are pure:
// callers fetch the rows, builders only fold them.
package reports

import (
	"sort"

	"github.com/shopspring/decimal"
)

// AccountRow is one account's posted debit/credit aggregate.
type AccountRow struct {
	Code   string
	Name   string
	NameFa string
	Type   string
	Debit  decimal.Decimal
	Credit decimal.Decimal
}

// Net returns debit minus credit for the row.
func (r AccountRow) Net() decimal.Decimal {
	return r.Debit.Sub(r.Credit)
}

// TrialBalanceRow presents one account's balance on its carrying side.
type TrialBalanceRow struct {
	Code          string
	Name          string
	NameFa        string
	Type          string
	DebitBalance  decimal.Decimal
	CreditBalance decimal.Decimal
}

// TrialBalance lists every non-zero account balance. IsBalanced is the
// core system-health invariant: total debits equal total credits.
type TrialBalance struct {
	Accounts     []TrialBalanceRow
	TotalDebits  decimal.Decimal
	TotalCredits decimal.Decimal
	IsBalanced   bool
}

// BuildTrialBalance folds account aggregates into a trial balance,
// dropping zero balances and comparing column totals within epsilon.
func BuildTrialBalance(rows []AccountRow, epsilon decimal.Decimal) TrialBalance {
	tb := TrialBalance{}
	for _, row := range rows {
		net := row.Net()
		if net.IsZero() {
			continue
		}
		out := TrialBalanceRow{Code: row.Code, Name: row.Name, NameFa: row.NameFa, Type: row.Type}
		if net.IsPositive() {
			out.DebitBalance = net
		} else {
			out.CreditBalance = net.Neg()
		}
		tb.Accounts = append(tb.Accounts, out)
		tb.TotalDebits = tb.TotalDebits.Add(out.DebitBalance)
		tb.TotalCredits = tb.TotalCredits.Add(out.CreditBalance)
	}
	sort.Slice(tb.Accounts, func(i, j int) bool { return tb.Accounts[i].Code < tb.Accounts[j].Code })
	tb.IsBalanced = tb.TotalDebits.Sub(tb.TotalCredits).Abs().LessThanOrEqual(epsilon)
	return tb
}
