package reports

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

var epsilon = decimal.New(1, -2)

func TestBuildTrialBalance(t *testing.T) {
	rows := []AccountRow{
		{Code: "1001", Name: "Cash", Type: "ASSET", Debit: dec("700"), Credit: dec("200")},
		{Code: "1030", Name: "Receivable", Type: "ASSET", Debit: dec("300"), Credit: dec("300")},
		{Code: "2030", Name: "Tax Payable", Type: "LIABILITY", Debit: dec("0"), Credit: dec("100")},
		{Code: "4010", Name: "Sales", Type: "REVENUE", Debit: dec("0"), Credit: dec("400")},
	}

	tb := BuildTrialBalance(rows, epsilon)
	// zero-balance receivable is dropped
	require.Len(t, tb.Accounts, 3)
	require.Equal(t, "1001", tb.Accounts[0].Code)
	require.True(t, tb.Accounts[0].DebitBalance.Equal(dec("500")))
	require.True(t, tb.Accounts[0].CreditBalance.IsZero())
	require.True(t, tb.TotalDebits.Equal(dec("500")))
	require.True(t, tb.TotalCredits.Equal(dec("500")))
	require.True(t, tb.IsBalanced)
}

func TestBuildTrialBalanceDetectsImbalance(t *testing.T) {
	rows := []AccountRow{
		{Code: "1001", Name: "Cash", Type: "ASSET", Debit: dec("500"), Credit: dec("0")},
		{Code: "4010", Name: "Sales", Type: "REVENUE", Debit: dec("0"), Credit: dec("499.50")},
	}
	tb := BuildTrialBalance(rows, epsilon)
	require.False(t, tb.IsBalanced)
}

func TestBuildBalanceSheet(t *testing.T) {
	rows := []AccountRow{
		{Code: "1001", Name: "Cash", Type: "ASSET", Debit: dec("900"), Credit: dec("100")},
		{Code: "2010", Name: "Payable", Type: "LIABILITY", Debit: dec("0"), Credit: dec("300")},
		{Code: "3001", Name: "Capital", Type: "EQUITY", Debit: dec("0"), Credit: dec("400")},
		{Code: "4010", Name: "Sales", Type: "REVENUE", Debit: dec("0"), Credit: dec("250")},
		{Code: "5001", Name: "Rent", Type: "EXPENSE", Debit: dec("150"), Credit: dec("0")},
	}

	bs := BuildBalanceSheet(rows, epsilon)
	require.True(t, bs.Assets.Total.Equal(dec("800")))
	require.True(t, bs.Liabilities.Total.Equal(dec("300")))
	// 400 capital + 100 current earnings
	require.True(t, bs.Equity.Total.Equal(dec("500")))
	require.True(t, bs.TotalLiabilitiesAndEquity.Equal(dec("800")))
	require.True(t, bs.IsBalanced)
}

func TestBuildProfitAndLoss(t *testing.T) {
	rows := []AccountRow{
		{Code: "4010", Name: "Sales", Type: "REVENUE", Debit: dec("0"), Credit: dec("1200")},
		{Code: "4030", Name: "Labor Income", Type: "REVENUE", Debit: dec("0"), Credit: dec("300")},
		{Code: "5001", Name: "Rent", Type: "EXPENSE", Debit: dec("500"), Credit: dec("0")},
		{Code: "1001", Name: "Cash", Type: "ASSET", Debit: dec("1000"), Credit: dec("0")},
	}

	pl := BuildProfitAndLoss(rows)
	require.True(t, pl.Revenue.Total.Equal(dec("1500")))
	require.True(t, pl.Expenses.Total.Equal(dec("500")))
	require.True(t, pl.NetProfit.Equal(dec("1000")))
	require.True(t, pl.ProfitMargin.Equal(dec("66.67")))
	require.Len(t, pl.Revenue.Accounts, 2)
	require.Len(t, pl.Expenses.Accounts, 1)
}

func TestBuildProfitAndLossZeroRevenue(t *testing.T) {
	rows := []AccountRow{
		{Code: "5001", Name: "Rent", Type: "EXPENSE", Debit: dec("500"), Credit: dec("0")},
	}
	pl := BuildProfitAndLoss(rows)
	require.True(t, pl.NetProfit.Equal(dec("-500")))
	require.True(t, pl.ProfitMargin.IsZero())
}

func TestRendererTrialBalanceText(t *testing.T) {
	tb := BuildTrialBalance([]AccountRow{
		{Code: "1001", Name: "Cash", Type: "ASSET", Debit: dec("1500.50"), Credit: dec("0")},
		{Code: "4010", Name: "Sales", Type: "REVENUE", Debit: dec("0"), Credit: dec("1500.50")},
	}, epsilon)

	out := NewRenderer("en").TrialBalanceText(tb, time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC))
	require.Contains(t, out, "2024-01-31")
	require.Contains(t, out, "1,500.50")
	require.NotContains(t, out, "WARNING")
}
