package sales

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/zarrin-erp/zarrin-erp/internal/ledger"
)

type fakeLedger struct {
	nextAcctID  int64
	accounts    map[ledger.SystemAccountKey]ledger.Account
	nextEntryID int64
	entries     map[int64]ledger.JournalEntry
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		accounts: map[ledger.SystemAccountKey]ledger.Account{},
		entries:  map[int64]ledger.JournalEntry{},
	}
}

func (f *fakeLedger) EnsureSystemAccount(_ context.Context, key ledger.SystemAccountKey) (ledger.Account, error) {
	if acct, ok := f.accounts[key]; ok {
		return acct, nil
	}
	f.nextAcctID++
	acct := ledger.Account{ID: f.nextAcctID, Code: string(key), Name: string(key)}
	f.accounts[key] = acct
	return acct, nil
}

func (f *fakeLedger) CreateEntry(_ context.Context, input ledger.CreateEntryInput) (ledger.JournalEntry, error) {
	if err := input.Validate(ledger.DefaultEpsilon); err != nil {
		return ledger.JournalEntry{}, err
	}
	f.nextEntryID++
	entry := ledger.JournalEntry{
		ID:         f.nextEntryID,
		Date:       input.Date,
		SourceType: input.SourceType,
		SourceID:   input.SourceID,
		Status:     ledger.EntryStatusDraft,
	}
	for _, l := range input.Lines {
		entry.Lines = append(entry.Lines, ledger.JournalEntryLine{AccountID: l.AccountID, Debit: l.Debit, Credit: l.Credit})
	}
	f.entries[entry.ID] = entry
	return entry, nil
}

func (f *fakeLedger) PostEntry(_ context.Context, entryID, _ int64) (ledger.JournalEntry, error) {
	entry, ok := f.entries[entryID]
	if !ok {
		return ledger.JournalEntry{}, ledger.ErrEntryNotFound
	}
	entry.Status = ledger.EntryStatusPosted
	f.entries[entryID] = entry
	return entry, nil
}

func (f *fakeLedger) amountOn(t *testing.T, entry ledger.JournalEntry, key ledger.SystemAccountKey) (debit, credit decimal.Decimal) {
	t.Helper()
	acct, ok := f.accounts[key]
	if !ok {
		return decimal.Zero, decimal.Zero
	}
	for _, l := range entry.Lines {
		if l.AccountID == acct.ID {
			return l.Debit, l.Credit
		}
	}
	return decimal.Zero, decimal.Zero
}

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

func TestPostGoldInvoiceSplitsComponents(t *testing.T) {
	gl := newFakeLedger()
	svc := NewService(gl)
	svc.WithNow(func() time.Time { return time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC) })

	entry, err := svc.PostGoldInvoice(context.Background(), GoldInvoiceInput{
		InvoiceRef: uuid.New(),
		Total:      dec("1000.00"),
		Profit:     dec("100.00"),
		Labor:      dec("50.00"),
		Tax:        dec("30.00"),
		Customer:   "Tehrani",
		ActorID:    9,
	})
	if err != nil {
		t.Fatalf("PostGoldInvoice: %v", err)
	}
	if entry.Status != ledger.EntryStatusPosted {
		t.Fatalf("status = %s, want POSTED", entry.Status)
	}
	if entry.SourceType != SourceTypeGoldInvoice || entry.SourceID == nil {
		t.Fatalf("source = %s/%v", entry.SourceType, entry.SourceID)
	}

	debit, _ := gl.amountOn(t, entry, ledger.SystemAccountsReceivable)
	if !debit.Equal(dec("1000.00")) {
		t.Fatalf("receivable debit = %s, want 1000.00", debit)
	}
	checks := []struct {
		key  ledger.SystemAccountKey
		want string
	}{
		{ledger.SystemSalesRevenue, "820.00"},
		{ledger.SystemGoldProfit, "100.00"},
		{ledger.SystemLaborIncome, "50.00"},
		{ledger.SystemTaxPayable, "30.00"},
	}
	for _, c := range checks {
		_, credit := gl.amountOn(t, entry, c.key)
		if !credit.Equal(dec(c.want)) {
			t.Errorf("%s credit = %s, want %s", c.key, credit, c.want)
		}
	}
}

func TestPostGoldInvoiceOmitsZeroComponents(t *testing.T) {
	gl := newFakeLedger()
	svc := NewService(gl)

	entry, err := svc.PostGoldInvoice(context.Background(), GoldInvoiceInput{
		InvoiceRef: uuid.New(),
		Date:       time.Date(2024, 5, 11, 0, 0, 0, 0, time.UTC),
		Total:      dec("500.00"),
		Profit:     dec("60.00"),
		ActorID:    9,
	})
	if err != nil {
		t.Fatalf("PostGoldInvoice: %v", err)
	}
	// Receivable + base + profit only.
	if len(entry.Lines) != 3 {
		t.Fatalf("lines = %d, want 3", len(entry.Lines))
	}
	_, credit := gl.amountOn(t, entry, ledger.SystemSalesRevenue)
	if !credit.Equal(dec("440.00")) {
		t.Fatalf("base credit = %s, want 440.00", credit)
	}
	if _, ok := gl.accounts[ledger.SystemLaborIncome]; ok {
		t.Fatal("labor account should not be touched for a zero component")
	}
}

func TestDecomposeRejectsBadInputs(t *testing.T) {
	cases := []struct {
		name  string
		input GoldInvoiceInput
		want  error
	}{
		{"zero total", GoldInvoiceInput{Total: decimal.Zero}, ErrInvalidTotal},
		{"negative component", GoldInvoiceInput{Total: dec("100"), Profit: dec("-5")}, ErrNegativeComponent},
		{"overspent", GoldInvoiceInput{Total: dec("100"), Profit: dec("60"), Labor: dec("30"), Tax: dec("20")}, ErrComponentsExceedTotal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Decompose(tc.input); !errors.Is(err, tc.want) {
				t.Fatalf("Decompose: err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestDecomposeAllowsExactSplit(t *testing.T) {
	b, err := Decompose(GoldInvoiceInput{Total: dec("180"), Profit: dec("100"), Labor: dec("50"), Tax: dec("30")})
	if err != nil {
		t.Fatalf("Decompose: %v", err)
	}
	if !b.Base.IsZero() {
		t.Fatalf("base = %s, want 0", b.Base)
	}
}
