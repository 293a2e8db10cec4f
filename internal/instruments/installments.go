package instruments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/zarrin-erp/zarrin-erp/internal/ledger"
	"github.com/zarrin-erp/zarrin-erp/internal/shared"
)

// CreateInstallmentPlanInput opens a payment plan for one customer.
type CreateInstallmentPlanInput struct {
	CustomerRef       uuid.UUID
	InstallmentAmount decimal.Decimal
	InterestRate      decimal.Decimal
	Count             int
	Frequency         Frequency
	StartDate         time.Time
	ActorID           int64
}

func (in CreateInstallmentPlanInput) validate() error {
	if in.CustomerRef == uuid.Nil {
		return errors.New("instruments: installment plan requires a customer")
	}
	if !in.InstallmentAmount.IsPositive() {
		return errors.New("instruments: installment amount must be positive")
	}
	if in.InterestRate.IsNegative() {
		return errors.New("instruments: interest rate cannot be negative")
	}
	if in.Count < 1 {
		return errors.New("instruments: installment count must be at least 1")
	}
	if !ValidFrequency(in.Frequency) {
		return errors.New("instruments: unknown frequency")
	}
	if in.StartDate.IsZero() {
		return errors.New("instruments: start date required")
	}
	return nil
}

// CreateInstallmentPlan generates the payment schedule and posts the
// opening entry moving the principal from open receivables onto the
// installment receivable account. Interest is recognized per collection,
// not up front.
func (s *Service) CreateInstallmentPlan(ctx context.Context, input CreateInstallmentPlanInput) (InstallmentAccount, []InstallmentPayment, error) {
	if err := input.validate(); err != nil {
		return InstallmentAccount{}, nil, err
	}
	amount := input.InstallmentAmount.Round(2)
	due, interest := PaymentDue(amount, input.InterestRate)
	principal := amount.Mul(decimal.NewFromInt(int64(input.Count)))
	totalDue := due.Mul(decimal.NewFromInt(int64(input.Count)))

	entry, err := s.postPair(ctx, s.now(), ledger.SystemInstallmentReceivable, ledger.SystemAccountsReceivable, principal,
		fmt.Sprintf("Installment plan opened: %d x %s", input.Count, due.StringFixed(2)),
		"گشایش حساب اقساطی",
		SourceTypeInstallment, input.ActorID,
		ledger.Metadata{
			"customer_ref": ledger.String(input.CustomerRef.String()),
			"installments": ledger.Number(decimal.NewFromInt(int64(input.Count))),
		},
	)
	if err != nil {
		return InstallmentAccount{}, nil, err
	}

	acct := InstallmentAccount{
		CustomerRef:           input.CustomerRef,
		Principal:             principal,
		InstallmentAmount:     amount,
		InterestRate:          input.InterestRate,
		Count:                 input.Count,
		Frequency:             input.Frequency,
		StartDate:             input.StartDate,
		RemainingBalance:      totalDue,
		RemainingInstallments: input.Count,
		Status:                InstallmentStatusActive,
		JournalEntryID:        &entry.ID,
	}
	payments := make([]InstallmentPayment, input.Count)
	for i := 0; i < input.Count; i++ {
		payments[i] = InstallmentPayment{
			Sequence:     i + 1,
			DueDate:      DueDateFor(input.StartDate, input.Frequency, i),
			AmountDue:    due,
			InterestPart: interest,
		}
	}
	if err := s.repo.InsertInstallmentPlan(ctx, &acct, payments); err != nil {
		return InstallmentAccount{}, nil, err
	}
	return acct, payments, nil
}

// ApplyPayment collects one scheduled installment in cash. Principal
// comes off the installment receivable; the interest part lands on
// interest income. The last collection completes the plan.
func (s *Service) ApplyPayment(ctx context.Context, paymentID, actorID int64) (InstallmentPayment, error) {
	payment, err := s.repo.GetInstallmentPayment(ctx, paymentID)
	if err != nil {
		return InstallmentPayment{}, err
	}
	if payment.PaidAt != nil {
		return InstallmentPayment{}, ErrPaymentAlreadyApplied
	}
	acct, err := s.repo.GetInstallmentAccount(ctx, payment.AccountID)
	if err != nil {
		return InstallmentPayment{}, err
	}
	if acct.Status != InstallmentStatusActive {
		return InstallmentPayment{}, ErrPlanCompleted
	}

	cash, err := s.ledger.EnsureSystemAccount(ctx, ledger.SystemCash)
	if err != nil {
		return InstallmentPayment{}, err
	}
	receivable, err := s.ledger.EnsureSystemAccount(ctx, ledger.SystemInstallmentReceivable)
	if err != nil {
		return InstallmentPayment{}, err
	}
	lines := []ledger.EntryLineInput{
		{AccountID: cash.ID, Debit: payment.AmountDue},
		{AccountID: receivable.ID, Credit: payment.AmountDue.Sub(payment.InterestPart)},
	}
	if payment.InterestPart.IsPositive() {
		income, err := s.ledger.EnsureSystemAccount(ctx, ledger.SystemInterestIncome)
		if err != nil {
			return InstallmentPayment{}, err
		}
		lines = append(lines, ledger.EntryLineInput{AccountID: income.ID, Credit: payment.InterestPart})
	}
	entry, err := s.ledger.CreateEntry(ctx, ledger.CreateEntryInput{
		Date:          s.now(),
		Description:   fmt.Sprintf("Installment %d/%d collected", payment.Sequence, acct.Count),
		DescriptionFa: fmt.Sprintf("وصول قسط %d", payment.Sequence),
		SourceType:    SourceTypeInstallment,
		ActorID:       actorID,
		Metadata: ledger.Metadata{
			"customer_ref": ledger.String(acct.CustomerRef.String()),
			"sequence":     ledger.Number(decimal.NewFromInt(int64(payment.Sequence))),
		},
		Lines: lines,
	})
	if err != nil {
		return InstallmentPayment{}, err
	}
	posted, err := s.ledger.PostEntry(ctx, entry.ID, actorID)
	if err != nil {
		return InstallmentPayment{}, err
	}

	oldAcct := acct
	acct.RemainingBalance = acct.RemainingBalance.Sub(payment.AmountDue)
	acct.RemainingInstallments--
	if acct.RemainingInstallments == 0 {
		acct.Status = InstallmentStatusCompleted
		acct.RemainingBalance = decimal.Zero
	}
	paidAt := s.now()
	audit := auditFor("installment_accounts", acct.ID, shared.AuditOpUpdate, actorID, "installment payment applied", oldAcct, acct)
	audit.ChangedFields = []string{"remaining_balance", "remaining_installments", "status"}
	if err := s.repo.ApplyInstallmentPayment(ctx, payment.ID, paidAt, posted.ID, acct, audit); err != nil {
		return InstallmentPayment{}, err
	}
	payment.PaidAt = &paidAt
	payment.JournalEntryID = &posted.ID
	return payment, nil
}

// GetInstallmentAccount fetches one plan.
func (s *Service) GetInstallmentAccount(ctx context.Context, id int64) (InstallmentAccount, error) {
	return s.repo.GetInstallmentAccount(ctx, id)
}

// DuePayments lists unpaid installments due on or before asOf.
func (s *Service) DuePayments(ctx context.Context, asOf time.Time) ([]InstallmentPayment, error) {
	return s.repo.ListDuePayments(ctx, asOf)
}
