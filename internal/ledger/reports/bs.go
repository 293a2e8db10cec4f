package reports

import (
	"sort"

	"github.com/shopspring/decimal"
)

// BalanceSheetAccount summarises an account inside a section.
type BalanceSheetAccount struct {
	Code    string
	Name    string
	NameFa  string
	Balance decimal.Decimal
}

// BalanceSheetSection contains the accounts and total for a classification.
type BalanceSheetSection struct {
	Label    string
	Accounts []BalanceSheetAccount
	Total    decimal.Decimal
}

// BalanceSheet groups balances into assets, liabilities, and equity and
// checks the accounting equation.
type BalanceSheet struct {
	Assets                    BalanceSheetSection
	Liabilities               BalanceSheetSection
	Equity                    BalanceSheetSection
	TotalLiabilitiesAndEquity decimal.Decimal
	IsBalanced                bool
}

// BuildBalanceSheet aggregates rows into sections. Balances carry the
// account's natural sign: debit-net for assets, credit-net for the rest.
func BuildBalanceSheet(rows []AccountRow, epsilon decimal.Decimal) BalanceSheet {
	assets := BalanceSheetSection{Label: "Assets"}
	liabilities := BalanceSheetSection{Label: "Liabilities"}
	equity := BalanceSheetSection{Label: "Equity"}

	var earnings decimal.Decimal
	for _, row := range rows {
		switch row.Type {
		case "ASSET":
			bal := row.Net()
			assets.Accounts = append(assets.Accounts, BalanceSheetAccount{Code: row.Code, Name: row.Name, NameFa: row.NameFa, Balance: bal})
			assets.Total = assets.Total.Add(bal)
		case "LIABILITY":
			bal := row.Net().Neg()
			liabilities.Accounts = append(liabilities.Accounts, BalanceSheetAccount{Code: row.Code, Name: row.Name, NameFa: row.NameFa, Balance: bal})
			liabilities.Total = liabilities.Total.Add(bal)
		case "EQUITY":
			bal := row.Net().Neg()
			equity.Accounts = append(equity.Accounts, BalanceSheetAccount{Code: row.Code, Name: row.Name, NameFa: row.NameFa, Balance: bal})
			equity.Total = equity.Total.Add(bal)
		case "REVENUE":
			earnings = earnings.Add(row.Net().Neg())
		case "EXPENSE":
			earnings = earnings.Sub(row.Net())
		}
	}

	// Unclosed revenue and expense balances roll into equity as current
	// earnings, keeping assets == liabilities + equity before year-end
	// closing entries exist.
	if !earnings.IsZero() {
		equity.Accounts = append(equity.Accounts, BalanceSheetAccount{Name: "Current Period Earnings", NameFa: "سود (زیان) دوره جاری", Balance: earnings})
		equity.Total = equity.Total.Add(earnings)
	}

	for _, section := range []*BalanceSheetSection{&assets, &liabilities, &equity} {
		accounts := section.Accounts
		sort.Slice(accounts, func(i, j int) bool { return accounts[i].Code < accounts[j].Code })
	}

	totalLE := liabilities.Total.Add(equity.Total)
	return BalanceSheet{
		Assets:                    assets,
		Liabilities:               liabilities,
		Equity:                    equity,
		TotalLiabilitiesAndEquity: totalLE,
		IsBalanced:                assets.Total.Sub(totalLE).Abs().LessThanOrEqual(epsilon),
	}
}
