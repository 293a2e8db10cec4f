package reports

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Renderer formats statements as locale-aware plain text for snapshot
// storage and mail bodies.
type Renderer struct {
	printer *message.Printer
}

// NewRenderer builds a Renderer for the given BCP 47 tag, falling back to
// English when the tag does not parse.
func NewRenderer(locale string) *Renderer {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	return &Renderer{printer: message.NewPrinter(tag)}
}

func (r *Renderer) amount(d decimal.Decimal) string {
	return r.printer.Sprintf("%.2f", d.InexactFloat64())
}

// TrialBalanceText renders a trial balance as aligned plain text.
func (r *Renderer) TrialBalanceText(tb TrialBalance, asOf time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Trial Balance as of %s\n", asOf.Format("2006-01-02"))
	for _, row := range tb.Accounts {
		fmt.Fprintf(&b, "%-8s %-32s %16s %16s\n", row.Code, row.Name, r.amount(row.DebitBalance), r.amount(row.CreditBalance))
	}
	fmt.Fprintf(&b, "%-41s %16s %16s\n", "TOTAL", r.amount(tb.TotalDebits), r.amount(tb.TotalCredits))
	if !tb.IsBalanced {
		b.WriteString("WARNING: trial balance does not balance\n")
	}
	return b.String()
}

// ProfitAndLossText renders the income statement as plain text.
func (r *Renderer) ProfitAndLossText(pl ProfitAndLoss, from, to time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Profit and Loss %s to %s\n", from.Format("2006-01-02"), to.Format("2006-01-02"))
	for _, section := range []ProfitAndLossSection{pl.Revenue, pl.Expenses} {
		fmt.Fprintf(&b, "%s\n", section.Label)
		for _, row := range section.Accounts {
			fmt.Fprintf(&b, "  %-8s %-32s %16s\n", row.Code, row.Name, r.amount(row.Amount))
		}
		fmt.Fprintf(&b, "  %-41s %16s\n", "Subtotal", r.amount(section.Total))
	}
	fmt.Fprintf(&b, "Net profit: %s (margin %s%%)\n", r.amount(pl.NetProfit), pl.ProfitMargin.StringFixed(2))
	return b.String()
}
