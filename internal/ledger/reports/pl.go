package reports

import (
	"sort"

	"github.com/shopspring/decimal"
)

// ProfitAndLossAccount represents a revenue or expense account summary.
type ProfitAndLossAccount struct {
	Code   string
	Name   string
	NameFa string
	Amount decimal.Decimal
}

// ProfitAndLossSection groups accounts by nature.
type ProfitAndLossSection struct {
	Label    string
	Accounts []ProfitAndLossAccount
	Total    decimal.Decimal
}

// ProfitAndLoss is the structured statement for a date range.
type ProfitAndLoss struct {
	Revenue      ProfitAndLossSection
	Expenses     ProfitAndLossSection
	NetProfit    decimal.Decimal
	ProfitMargin decimal.Decimal
}

// BuildProfitAndLoss aggregates rows into revenue and expense sections.
// ProfitMargin is net profit over revenue as a percentage, zero when no
// revenue was recorded.
func BuildProfitAndLoss(rows []AccountRow) ProfitAndLoss {
	revenue := ProfitAndLossSection{Label: "Revenue"}
	expenses := ProfitAndLossSection{Label: "Expenses"}

	for _, row := range rows {
		switch row.Type {
		case "REVENUE":
			amount := row.Net().Neg()
			revenue.Accounts = append(revenue.Accounts, ProfitAndLossAccount{Code: row.Code, Name: row.Name, NameFa: row.NameFa, Amount: amount})
			revenue.Total = revenue.Total.Add(amount)
		case "EXPENSE":
			amount := row.Net()
			expenses.Accounts = append(expenses.Accounts, ProfitAndLossAccount{Code: row.Code, Name: row.Name, NameFa: row.NameFa, Amount: amount})
			expenses.Total = expenses.Total.Add(amount)
		}
	}

	sort.Slice(revenue.Accounts, func(i, j int) bool { return revenue.Accounts[i].Code < revenue.Accounts[j].Code })
	sort.Slice(expenses.Accounts, func(i, j int) bool { return expenses.Accounts[i].Code < expenses.Accounts[j].Code })

	net := revenue.Total.Sub(expenses.Total)
	margin := decimal.Zero
	if revenue.Total.IsPositive() {
		margin = net.Div(revenue.Total).Mul(decimal.NewFromInt(100)).Round(2)
	}
	return ProfitAndLoss{
		Revenue:      revenue,
		Expenses:     expenses,
		NetProfit:    net,
		ProfitMargin: margin,
	}
}
