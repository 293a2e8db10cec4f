package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestAccountCodeGeneration(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()

	cases := []struct {
		name string
		typ  AccountType
		want string
	}{
		{"Cash", AccountTypeAsset, "1001"},
		{"Bank", AccountTypeAsset, "1002"},
		{"Loans", AccountTypeLiability, "2001"},
		{"Capital", AccountTypeEquity, "3001"},
		{"Sales", AccountTypeRevenue, "4001"},
		{"Rent", AccountTypeExpense, "5001"},
		{"Wages", AccountTypeExpense, "5002"},
	}
	for _, tc := range cases {
		account, err := svc.CreateAccount(ctx, CreateAccountInput{Name: tc.name, Type: tc.typ, ActorID: 1})
		if err != nil {
			t.Fatalf("create %s: %v", tc.name, err)
		}
		if account.Code != tc.want {
			t.Fatalf("%s code = %q, want %q", tc.name, account.Code, tc.want)
		}
	}
}

func TestCreateAccountRejectsDuplicateCode(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()
	if _, err := svc.CreateAccount(ctx, CreateAccountInput{Code: "1100", Name: "Gold Inventory", Type: AccountTypeAsset}); err != nil {
		t.Fatalf("first create: %v", err)
	}
	_, err := svc.CreateAccount(ctx, CreateAccountInput{Code: "1100", Name: "Other", Type: AccountTypeAsset})
	if !errors.Is(err, ErrDuplicateAccountCode) {
		t.Fatalf("expected ErrDuplicateAccountCode, got %v", err)
	}
}

func TestCreateAccountRejectsUnknownType(t *testing.T) {
	svc, _ := testService(t)
	if _, err := svc.CreateAccount(context.Background(), CreateAccountInput{Name: "X", Type: "GOODWILL"}); err == nil {
		t.Fatal("expected error for unknown account type")
	}
}

func TestUpdateAccountNotFound(t *testing.T) {
	svc, _ := testService(t)
	name := "Renamed"
	_, err := svc.UpdateAccount(context.Background(), 404, UpdateAccountInput{Name: &name})
	if !errors.Is(err, ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

func TestDeactivateAccountBlocksNewLines(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()
	cash := mustAccount(t, svc, "Cash", AccountTypeAsset)
	sales := mustAccount(t, svc, "Sales Revenue", AccountTypeRevenue)

	if _, err := svc.DeactivateAccount(ctx, sales.ID, 1); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	_, err := svc.CreateEntry(ctx, CreateEntryInput{
		Date: entryDate(),
		Lines: []EntryLineInput{
			{AccountID: cash.ID, Debit: dec("10")},
			{AccountID: sales.ID, Credit: dec("10")},
		},
	})
	if !errors.Is(err, ErrAccountInactive) {
		t.Fatalf("expected ErrAccountInactive, got %v", err)
	}
}

func TestSubsidiaryCodeGeneration(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()
	receivable := mustAccount(t, svc, "Accounts Receivable", AccountTypeAsset)

	first, err := svc.CreateSubsidiary(ctx, CreateSubsidiaryInput{AccountID: receivable.ID, Name: "Customer A"})
	if err != nil {
		t.Fatalf("create first: %v", err)
	}
	second, err := svc.CreateSubsidiary(ctx, CreateSubsidiaryInput{AccountID: receivable.ID, Name: "Customer B"})
	if err != nil {
		t.Fatalf("create second: %v", err)
	}
	if first.Code != receivable.Code+"-001" || second.Code != receivable.Code+"-002" {
		t.Fatalf("codes = %q, %q", first.Code, second.Code)
	}
}

func TestCreateSubsidiaryRequiresMainAccount(t *testing.T) {
	svc, _ := testService(t)
	_, err := svc.CreateSubsidiary(context.Background(), CreateSubsidiaryInput{AccountID: 12345, Name: "Orphan"})
	if !errors.Is(err, ErrMainAccountNotFound) {
		t.Fatalf("expected ErrMainAccountNotFound, got %v", err)
	}
}

func TestEnsureSystemAccountIsIdempotent(t *testing.T) {
	svc, repo := testService(t)
	ctx := context.Background()

	first, err := svc.EnsureSystemAccount(ctx, SystemCash)
	if err != nil {
		t.Fatalf("first ensure: %v", err)
	}
	second, err := svc.EnsureSystemAccount(ctx, SystemCash)
	if err != nil {
		t.Fatalf("second ensure: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("system account recreated: %d vs %d", first.ID, second.ID)
	}
	if len(repo.accounts) != 1 {
		t.Fatalf("expected one account, got %d", len(repo.accounts))
	}
	if first.Type != AccountTypeAsset || first.NormalSide != NormalSideDebit {
		t.Fatalf("unexpected catalog mapping: %+v", first)
	}
}

func TestNextCodeInPrefix(t *testing.T) {
	cases := []struct {
		prefix string
		last   string
		want   string
	}{
		{"1", "", "1001"},
		{"1", "1001", "1002"},
		{"5", "5009", "5010"},
		{"2", "2999", "3000"},
	}
	for _, tc := range cases {
		got, err := NextCodeInPrefix(tc.prefix, tc.last)
		if err != nil {
			t.Fatalf("NextCodeInPrefix(%q, %q): %v", tc.prefix, tc.last, err)
		}
		if got != tc.want {
			t.Fatalf("NextCodeInPrefix(%q, %q) = %q, want %q", tc.prefix, tc.last, got, tc.want)
		}
	}
	if _, err := NextCodeInPrefix("1", "2001"); err == nil {
		t.Fatal("expected error for code outside prefix")
	}
}

func TestApplyEffectNormalSides(t *testing.T) {
	debit, credit, current := applyEffect(NormalSideDebit, decimal.Zero, decimal.Zero, dec("100"), dec("40"))
	if !debit.Equal(dec("100")) || !credit.Equal(dec("40")) || !current.Equal(dec("60")) {
		t.Fatalf("debit-side effect = %s/%s/%s", debit, credit, current)
	}
	_, _, current = applyEffect(NormalSideCredit, decimal.Zero, decimal.Zero, dec("40"), dec("100"))
	if !current.Equal(dec("60")) {
		t.Fatalf("credit-side current = %s, want 60", current)
	}
}

func TestMetadataChangedKeys(t *testing.T) {
	old := Metadata{
		"status": String("DRAFT"),
		"total":  Number(dec("100")),
		"when":   Time(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
	}
	updated := Metadata{
		"status": String("POSTED"),
		"total":  Number(dec("100")),
		"when":   Time(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
		"actor":  Number(dec("7")),
	}
	got := ChangedKeys(old, updated)
	want := []string{"actor", "status"}
	if len(got) != len(want) {
		t.Fatalf("changed keys = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("changed keys = %v, want %v", got, want)
		}
	}
}

func TestPeriodCodeValidation(t *testing.T) {
	for _, ok := range []string{"2024-01", "1999-12"} {
		if !ValidPeriodCode(ok) {
			t.Fatalf("%q should be valid", ok)
		}
	}
	for _, bad := range []string{"2024-13", "2024-1", "202401", "2024/01"} {
		if ValidPeriodCode(bad) {
			t.Fatalf("%q should be invalid", bad)
		}
	}
}
