package instruments

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/zarrin-erp/zarrin-erp/internal/ledger"
	"github.com/zarrin-erp/zarrin-erp/internal/shared"
)

// fakeLedger records entries instead of hitting a database. System
// accounts get sequential ids per key so tests can assert line targets.
type fakeLedger struct {
	nextAcctID  int64
	accounts    map[ledger.SystemAccountKey]ledger.Account
	nextEntryID int64
	entries     map[int64]ledger.JournalEntry
	failCreate  error
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
	if f.failCreate != nil {
		return ledger.JournalEntry{}, f.failCreate
	}
	if err := input.Validate(ledger.DefaultEpsilon); err != nil {
		return ledger.JournalEntry{}, err
	}
	f.nextEntryID++
	entry := ledger.JournalEntry{
		ID:          f.nextEntryID,
		Date:        input.Date,
		Description: input.Description,
		SourceType:  input.SourceType,
		Status:      ledger.EntryStatusDraft,
	}
	for _, l := range input.Lines {
		entry.Lines = append(entry.Lines, ledger.JournalEntryLine{
			AccountID: l.AccountID,
			Debit:     l.Debit,
			Credit:    l.Credit,
		})
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

// lineFor sums the debit and credit amounts the entry carries against
// the system account key.
func (f *fakeLedger) lineFor(t *testing.T, entryID int64, key ledger.SystemAccountKey) (debit, credit decimal.Decimal) {
	t.Helper()
	entry, ok := f.entries[entryID]
	if !ok {
		t.Fatalf("entry %d not recorded", entryID)
	}
	acct, ok := f.accounts[key]
	if !ok {
		t.Fatalf("system account %s never ensured", key)
	}
	for _, l := range entry.Lines {
		if l.AccountID == acct.ID {
			debit = debit.Add(l.Debit)
			credit = credit.Add(l.Credit)
		}
	}
	return debit, credit
}

// fakeRepo is an in-memory RepositoryPort.
type fakeRepo struct {
	nextID   int64
	checks   map[int64]CheckRecord
	plans    map[int64]InstallmentAccount
	payments map[int64]InstallmentPayment
	recs     map[int64]BankReconciliation
	audits   []shared.AuditEntry
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		checks:   map[int64]CheckRecord{},
		plans:    map[int64]InstallmentAccount{},
		payments: map[int64]InstallmentPayment{},
		recs:     map[int64]BankReconciliation{},
	}
}

func (r *fakeRepo) id() int64 { r.nextID++; return r.nextID }

func (r *fakeRepo) InsertCheck(_ context.Context, c *CheckRecord) error {
	c.ID = r.id()
	r.checks[c.ID] = *c
	return nil
}

func (r *fakeRepo) GetCheck(_ context.Context, id int64) (CheckRecord, error) {
	c, ok := r.checks[id]
	if !ok {
		return CheckRecord{}, ErrCheckNotFound
	}
	return c, nil
}

func (r *fakeRepo) UpdateCheckStatus(_ context.Context, id int64, status CheckStatus, entryID *int64, audit shared.AuditEntry) error {
	c, ok := r.checks[id]
	if !ok {
		return ErrCheckNotFound
	}
	c.Status = status
	if entryID != nil {
		c.JournalEntryID = entryID
	}
	r.checks[id] = c
	r.audits = append(r.audits, audit)
	return nil
}

func (r *fakeRepo) ListChecks(_ context.Context, f CheckFilter) ([]CheckRecord, error) {
	var out []CheckRecord
	for _, c := range r.checks {
		if f.Kind != "" && c.Kind != f.Kind {
			continue
		}
		if f.Status != "" && c.Status != f.Status {
			continue
		}
		if f.DueTo != nil && c.DueDate.After(*f.DueTo) {
			continue
		}
		if f.DueFrom != nil && c.DueDate.Before(*f.DueFrom) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (r *fakeRepo) InsertInstallmentPlan(_ context.Context, acct *InstallmentAccount, payments []InstallmentPayment) error {
	acct.ID = r.id()
	r.plans[acct.ID] = *acct
	for i := range payments {
		payments[i].ID = r.id()
		payments[i].AccountID = acct.ID
		r.payments[payments[i].ID] = payments[i]
	}
	return nil
}

func (r *fakeRepo) GetInstallmentAccount(_ context.Context, id int64) (InstallmentAccount, error) {
	a, ok := r.plans[id]
	if !ok {
		return InstallmentAccount{}, ErrInstallmentNotFound
	}
	return a, nil
}

func (r *fakeRepo) GetInstallmentPayment(_ context.Context, id int64) (InstallmentPayment, error) {
	p, ok := r.payments[id]
	if !ok {
		return InstallmentPayment{}, ErrInstallmentNotFound
	}
	return p, nil
}

func (r *fakeRepo) ApplyInstallmentPayment(_ context.Context, paymentID int64, paidAt time.Time, entryID int64, acct InstallmentAccount, audit shared.AuditEntry) error {
	p, ok := r.payments[paymentID]
	if !ok {
		return ErrInstallmentNotFound
	}
	if p.PaidAt != nil {
		return ErrPaymentAlreadyApplied
	}
	p.PaidAt = &paidAt
	p.JournalEntryID = &entryID
	r.payments[paymentID] = p
	r.plans[acct.ID] = acct
	r.audits = append(r.audits, audit)
	return nil
}

func (r *fakeRepo) ListDuePayments(_ context.Context, asOf time.Time) ([]InstallmentPayment, error) {
	var out []InstallmentPayment
	for _, p := range r.payments {
		if p.PaidAt == nil && !p.DueDate.After(asOf) {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *fakeRepo) InsertReconciliation(_ context.Context, rec *BankReconciliation) error {
	rec.ID = r.id()
	r.recs[rec.ID] = *rec
	return nil
}

func (r *fakeRepo) InsertReconciliationItem(_ context.Context, item *ReconciliationItem) error {
	rec, ok := r.recs[item.ReconciliationID]
	if !ok {
		return ErrReconciliationNotFound
	}
	item.ID = r.id()
	rec.Items = append(rec.Items, *item)
	r.recs[rec.ID] = rec
	return nil
}

func (r *fakeRepo) GetReconciliation(_ context.Context, id int64) (BankReconciliation, error) {
	rec, ok := r.recs[id]
	if !ok {
		return BankReconciliation{}, ErrReconciliationNotFound
	}
	return rec, nil
}

func (r *fakeRepo) CompleteReconciliation(_ context.Context, id int64, entryID *int64, audit shared.AuditEntry) error {
	rec, ok := r.recs[id]
	if !ok {
		return ErrReconciliationNotFound
	}
	if rec.Status != ReconciliationStatusOpen {
		return ErrReconciliationClosed
	}
	rec.Status = ReconciliationStatusCompleted
	rec.JournalEntryID = entryID
	r.recs[id] = rec
	r.audits = append(r.audits, audit)
	return nil
}

func testSetup() (*Service, *fakeRepo, *fakeLedger) {
	repo := newFakeRepo()
	gl := newFakeLedger()
	svc := NewService(repo, gl)
	svc.WithNow(func() time.Time { return time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC) })
	return svc, repo, gl
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(fmt.Sprintf("bad decimal %q", s))
	}
	return d
}

func registerReceived(t *testing.T, svc *Service, amount string) CheckRecord {
	t.Helper()
	check, err := svc.RegisterCheck(context.Background(), RegisterCheckInput{
		Number:   "CHK-100",
		BankName: "Melli",
		Amount:   dec(amount),
		DueDate:  time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Kind:     CheckKindReceived,
		ActorID:  7,
	})
	if err != nil {
		t.Fatalf("RegisterCheck: %v", err)
	}
	return check
}

func TestReceivedCheckLifecycle(t *testing.T) {
	svc, _, gl := testSetup()
	ctx := context.Background()

	check := registerReceived(t, svc, "1200.00")
	if check.Status != CheckStatusHeld {
		t.Fatalf("status = %s, want HELD", check.Status)
	}
	debit, _ := gl.lineFor(t, *check.JournalEntryID, ledger.SystemChecksReceivable)
	if !debit.Equal(dec("1200.00")) {
		t.Fatalf("registration debit = %s, want 1200.00", debit)
	}
	_, credit := gl.lineFor(t, *check.JournalEntryID, ledger.SystemAccountsReceivable)
	if !credit.Equal(dec("1200.00")) {
		t.Fatalf("registration credit = %s, want 1200.00", credit)
	}

	check, err := svc.DepositCheck(ctx, check.ID, 7)
	if err != nil {
		t.Fatalf("DepositCheck: %v", err)
	}
	if check.Status != CheckStatusDeposited {
		t.Fatalf("status = %s, want DEPOSITED", check.Status)
	}
	debit, _ = gl.lineFor(t, *check.JournalEntryID, ledger.SystemChecksInTransit)
	if !debit.Equal(dec("1200.00")) {
		t.Fatalf("deposit debit = %s, want 1200.00", debit)
	}

	check, err = svc.ClearCheck(ctx, check.ID, 7)
	if err != nil {
		t.Fatalf("ClearCheck: %v", err)
	}
	if check.Status != CheckStatusCleared {
		t.Fatalf("status = %s, want CLEARED", check.Status)
	}
	debit, _ = gl.lineFor(t, *check.JournalEntryID, ledger.SystemBank)
	if !debit.Equal(dec("1200.00")) {
		t.Fatalf("clear debit = %s, want 1200.00", debit)
	}
	_, credit = gl.lineFor(t, *check.JournalEntryID, ledger.SystemChecksInTransit)
	if !credit.Equal(dec("1200.00")) {
		t.Fatalf("clear credit = %s, want 1200.00", credit)
	}
}

func TestBouncedCheckRestoresReceivable(t *testing.T) {
	svc, _, gl := testSetup()
	ctx := context.Background()

	check := registerReceived(t, svc, "800.00")
	check, err := svc.DepositCheck(ctx, check.ID, 7)
	if err != nil {
		t.Fatalf("DepositCheck: %v", err)
	}
	check, err = svc.BounceCheck(ctx, check.ID, 7)
	if err != nil {
		t.Fatalf("BounceCheck: %v", err)
	}
	if check.Status != CheckStatusBounced {
		t.Fatalf("status = %s, want BOUNCED", check.Status)
	}
	debit, _ := gl.lineFor(t, *check.JournalEntryID, ledger.SystemAccountsReceivable)
	if !debit.Equal(dec("800.00")) {
		t.Fatalf("bounce debit = %s, want 800.00", debit)
	}
	_, credit := gl.lineFor(t, *check.JournalEntryID, ledger.SystemChecksInTransit)
	if !credit.Equal(dec("800.00")) {
		t.Fatalf("bounce credit = %s, want 800.00", credit)
	}
}

func TestIssuedCheckClearsThroughBank(t *testing.T) {
	svc, _, gl := testSetup()
	ctx := context.Background()

	check, err := svc.RegisterCheck(ctx, RegisterCheckInput{
		Number:   "CHK-200",
		BankName: "Saderat",
		Amount:   dec("500.00"),
		DueDate:  time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
		Kind:     CheckKindIssued,
		ActorID:  7,
	})
	if err != nil {
		t.Fatalf("RegisterCheck: %v", err)
	}
	debit, _ := gl.lineFor(t, *check.JournalEntryID, ledger.SystemAccountsPayable)
	if !debit.Equal(dec("500.00")) {
		t.Fatalf("registration debit = %s, want 500.00", debit)
	}

	if _, err := svc.DepositCheck(ctx, check.ID, 7); !errors.Is(err, ErrInvalidCheckTransition) {
		t.Fatalf("DepositCheck on issued check: err = %v, want ErrInvalidCheckTransition", err)
	}

	check, err = svc.ClearCheck(ctx, check.ID, 7)
	if err != nil {
		t.Fatalf("ClearCheck: %v", err)
	}
	debit, _ = gl.lineFor(t, *check.JournalEntryID, ledger.SystemChecksPayable)
	if !debit.Equal(dec("500.00")) {
		t.Fatalf("clear debit = %s, want 500.00", debit)
	}
	_, credit := gl.lineFor(t, *check.JournalEntryID, ledger.SystemBank)
	if !credit.Equal(dec("500.00")) {
		t.Fatalf("clear credit = %s, want 500.00", credit)
	}
}

func TestCheckTransitionsRejectSettledStates(t *testing.T) {
	svc, _, _ := testSetup()
	ctx := context.Background()

	check := registerReceived(t, svc, "100.00")
	if _, err := svc.ClearCheck(ctx, check.ID, 7); !errors.Is(err, ErrInvalidCheckTransition) {
		t.Fatalf("ClearCheck before deposit: err = %v, want ErrInvalidCheckTransition", err)
	}
	check, err := svc.DepositCheck(ctx, check.ID, 7)
	if err != nil {
		t.Fatalf("DepositCheck: %v", err)
	}
	if _, err := svc.DepositCheck(ctx, check.ID, 7); !errors.Is(err, ErrInvalidCheckTransition) {
		t.Fatalf("double deposit: err = %v, want ErrInvalidCheckTransition", err)
	}
	if _, err := svc.ClearCheck(ctx, check.ID, 7); err != nil {
		t.Fatalf("ClearCheck: %v", err)
	}
	if _, err := svc.BounceCheck(ctx, check.ID, 7); !errors.Is(err, ErrInvalidCheckTransition) {
		t.Fatalf("bounce after clear: err = %v, want ErrInvalidCheckTransition", err)
	}
}

func TestInstallmentSchedule(t *testing.T) {
	svc, repo, gl := testSetup()
	ctx := context.Background()

	start := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	acct, payments, err := svc.CreateInstallmentPlan(ctx, CreateInstallmentPlanInput{
		CustomerRef:       uuid.New(),
		InstallmentAmount: dec("200.00"),
		InterestRate:      dec("5"),
		Count:             4,
		Frequency:         FrequencyMonthly,
		StartDate:         start,
		ActorID:           3,
	})
	if err != nil {
		t.Fatalf("CreateInstallmentPlan: %v", err)
	}
	if !acct.Principal.Equal(dec("800.00")) {
		t.Fatalf("principal = %s, want 800.00", acct.Principal)
	}
	// 200 + 5% interest per installment.
	if !acct.RemainingBalance.Equal(dec("840.00")) {
		t.Fatalf("remaining balance = %s, want 840.00", acct.RemainingBalance)
	}
	if len(payments) != 4 {
		t.Fatalf("payments = %d, want 4", len(payments))
	}
	for i, p := range payments {
		if !p.AmountDue.Equal(dec("210.00")) {
			t.Fatalf("payment %d due = %s, want 210.00", i, p.AmountDue)
		}
		if !p.InterestPart.Equal(dec("10.00")) {
			t.Fatalf("payment %d interest = %s, want 10.00", i, p.InterestPart)
		}
		want := start.AddDate(0, i, 0)
		if !p.DueDate.Equal(want) {
			t.Fatalf("payment %d due date = %s, want %s", i, p.DueDate, want)
		}
	}

	debit, _ := gl.lineFor(t, *acct.JournalEntryID, ledger.SystemInstallmentReceivable)
	if !debit.Equal(dec("800.00")) {
		t.Fatalf("opening debit = %s, want 800.00", debit)
	}

	stored, err := repo.GetInstallmentAccount(ctx, acct.ID)
	if err != nil {
		t.Fatalf("GetInstallmentAccount: %v", err)
	}
	if stored.RemainingInstallments != 4 || stored.Status != InstallmentStatusActive {
		t.Fatalf("stored plan = %+v", stored)
	}
}

func TestApplyPaymentSplitsPrincipalAndInterest(t *testing.T) {
	svc, repo, gl := testSetup()
	ctx := context.Background()

	_, payments, err := svc.CreateInstallmentPlan(ctx, CreateInstallmentPlanInput{
		CustomerRef:       uuid.New(),
		InstallmentAmount: dec("200.00"),
		InterestRate:      dec("5"),
		Count:             2,
		Frequency:         FrequencyWeekly,
		StartDate:         time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
		ActorID:           3,
	})
	if err != nil {
		t.Fatalf("CreateInstallmentPlan: %v", err)
	}

	paid, err := svc.ApplyPayment(ctx, payments[0].ID, 3)
	if err != nil {
		t.Fatalf("ApplyPayment: %v", err)
	}
	if paid.PaidAt == nil || paid.JournalEntryID == nil {
		t.Fatalf("payment not marked paid: %+v", paid)
	}
	debit, _ := gl.lineFor(t, *paid.JournalEntryID, ledger.SystemCash)
	if !debit.Equal(dec("210.00")) {
		t.Fatalf("cash debit = %s, want 210.00", debit)
	}
	_, credit := gl.lineFor(t, *paid.JournalEntryID, ledger.SystemInstallmentReceivable)
	if !credit.Equal(dec("200.00")) {
		t.Fatalf("receivable credit = %s, want 200.00", credit)
	}
	_, credit = gl.lineFor(t, *paid.JournalEntryID, ledger.SystemInterestIncome)
	if !credit.Equal(dec("10.00")) {
		t.Fatalf("interest credit = %s, want 10.00", credit)
	}

	acct, err := repo.GetInstallmentAccount(ctx, paid.AccountID)
	if err != nil {
		t.Fatalf("GetInstallmentAccount: %v", err)
	}
	if acct.RemainingInstallments != 1 {
		t.Fatalf("remaining installments = %d, want 1", acct.RemainingInstallments)
	}
	if !acct.RemainingBalance.Equal(dec("210.00")) {
		t.Fatalf("remaining balance = %s, want 210.00", acct.RemainingBalance)
	}

	if _, err := svc.ApplyPayment(ctx, payments[0].ID, 3); !errors.Is(err, ErrPaymentAlreadyApplied) {
		t.Fatalf("double payment: err = %v, want ErrPaymentAlreadyApplied", err)
	}

	if _, err := svc.ApplyPayment(ctx, payments[1].ID, 3); err != nil {
		t.Fatalf("ApplyPayment final: %v", err)
	}
	acct, err = repo.GetInstallmentAccount(ctx, paid.AccountID)
	if err != nil {
		t.Fatalf("GetInstallmentAccount: %v", err)
	}
	if acct.Status != InstallmentStatusCompleted {
		t.Fatalf("status = %s, want COMPLETED", acct.Status)
	}
	if !acct.RemainingBalance.IsZero() {
		t.Fatalf("remaining balance = %s, want 0", acct.RemainingBalance)
	}
}

func TestDueDateFrequencies(t *testing.T) {
	start := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	cases := []struct {
		freq Frequency
		n    int
		want time.Time
	}{
		{FrequencyWeekly, 2, time.Date(2024, 2, 14, 0, 0, 0, 0, time.UTC)},
		{FrequencyMonthly, 1, time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)}, // Jan 31 + 1 month normalizes past Feb
		{FrequencyQuarterly, 1, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)},
		{FrequencyAnnual, 1, time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)},
	}
	for _, tc := range cases {
		got := DueDateFor(start, tc.freq, tc.n)
		if !got.Equal(tc.want) {
			t.Errorf("DueDateFor(%s, %d) = %s, want %s", tc.freq, tc.n, got, tc.want)
		}
	}
}

func TestReconciliationPostsAdjustments(t *testing.T) {
	svc, _, gl := testSetup()
	ctx := context.Background()

	rec, err := svc.StartReconciliation(ctx, StartReconciliationInput{
		BankName:         "Melli",
		StatementDate:    time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC),
		StatementBalance: dec("10050.00"),
		BookBalance:      dec("10000.00"),
		ActorID:          5,
	})
	if err != nil {
		t.Fatalf("StartReconciliation: %v", err)
	}

	add := func(kind ItemKind, amount string, matched bool) {
		t.Helper()
		if _, err := svc.AddItem(ctx, AddItemInput{
			ReconciliationID: rec.ID,
			Kind:             kind,
			Amount:           dec(amount),
			Matched:          matched,
			Memo:             string(kind),
		}); err != nil {
			t.Fatalf("AddItem(%s): %v", kind, err)
		}
	}
	add(ItemKindBankFee, "15.00", false)
	add(ItemKindInterest, "65.00", false)
	add(ItemKindAdjustment, "120.00", true) // already booked, must not hit the entry

	done, err := svc.CompleteReconciliation(ctx, rec.ID, 5)
	if err != nil {
		t.Fatalf("CompleteReconciliation: %v", err)
	}
	if done.Status != ReconciliationStatusCompleted {
		t.Fatalf("status = %s, want COMPLETED", done.Status)
	}
	if done.JournalEntryID == nil {
		t.Fatal("expected adjustment entry")
	}
	debit, _ := gl.lineFor(t, *done.JournalEntryID, ledger.SystemBankFees)
	if !debit.Equal(dec("15.00")) {
		t.Fatalf("fee debit = %s, want 15.00", debit)
	}
	_, credit := gl.lineFor(t, *done.JournalEntryID, ledger.SystemInterestIncome)
	if !credit.Equal(dec("65.00")) {
		t.Fatalf("interest credit = %s, want 65.00", credit)
	}
	// Net on bank: -15 fee, +65 interest.
	bankDebit, bankCredit := gl.lineFor(t, *done.JournalEntryID, ledger.SystemBank)
	if !bankDebit.Equal(dec("65.00")) || !bankCredit.Equal(dec("15.00")) {
		t.Fatalf("bank lines = debit %s credit %s", bankDebit, bankCredit)
	}

	if _, err := svc.CompleteReconciliation(ctx, rec.ID, 5); !errors.Is(err, ErrReconciliationClosed) {
		t.Fatalf("double complete: err = %v, want ErrReconciliationClosed", err)
	}
	if _, err := svc.AddItem(ctx, AddItemInput{ReconciliationID: rec.ID, Kind: ItemKindBankFee, Amount: dec("1.00")}); !errors.Is(err, ErrReconciliationClosed) {
		t.Fatalf("AddItem after complete: err = %v, want ErrReconciliationClosed", err)
	}
}

func TestReconciliationWithoutUnmatchedItemsSkipsEntry(t *testing.T) {
	svc, _, gl := testSetup()
	ctx := context.Background()

	rec, err := svc.StartReconciliation(ctx, StartReconciliationInput{
		BankName:      "Melli",
		StatementDate: time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC),
		ActorID:       5,
	})
	if err != nil {
		t.Fatalf("StartReconciliation: %v", err)
	}
	if _, err := svc.AddItem(ctx, AddItemInput{
		ReconciliationID: rec.ID,
		Kind:             ItemKindAdjustment,
		Amount:           dec("40.00"),
		Matched:          true,
	}); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	done, err := svc.CompleteReconciliation(ctx, rec.ID, 5)
	if err != nil {
		t.Fatalf("CompleteReconciliation: %v", err)
	}
	if done.JournalEntryID != nil {
		t.Fatalf("unexpected entry %d", *done.JournalEntryID)
	}
	if len(gl.entries) != 0 {
		t.Fatalf("entries = %d, want 0", len(gl.entries))
	}
}

func TestNegativeAdjustmentCreditsBank(t *testing.T) {
	svc, _, gl := testSetup()
	ctx := context.Background()

	rec, err := svc.StartReconciliation(ctx, StartReconciliationInput{
		BankName:      "Melli",
		StatementDate: time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC),
		ActorID:       5,
	})
	if err != nil {
		t.Fatalf("StartReconciliation: %v", err)
	}
	if _, err := svc.AddItem(ctx, AddItemInput{
		ReconciliationID: rec.ID,
		Kind:             ItemKindAdjustment,
		Amount:           dec("-30.00"),
	}); err != nil {
		t.Fatalf("AddItem: %v", err)
	}
	done, err := svc.CompleteReconciliation(ctx, rec.ID, 5)
	if err != nil {
		t.Fatalf("CompleteReconciliation: %v", err)
	}
	_, credit := gl.lineFor(t, *done.JournalEntryID, ledger.SystemBank)
	if !credit.Equal(dec("30.00")) {
		t.Fatalf("bank credit = %s, want 30.00", credit)
	}
	debit, _ := gl.lineFor(t, *done.JournalEntryID, ledger.SystemAccountsReceivable)
	if !debit.Equal(dec("30.00")) {
		t.Fatalf("receivable debit = %s, want 30.00", debit)
	}
}
