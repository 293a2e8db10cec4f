// Package instruments covers checks, installment plans, and bank
// reconciliations. Each is a thin orchestrator: state changes are
// mirrored into the ledger as journal entries, never applied to account
// balances directly.
package instruments

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CheckKind distinguishes checks we hold from checks we wrote.
type CheckKind string

const (
	CheckKindReceived CheckKind = "RECEIVED"
	CheckKindIssued   CheckKind = "ISSUED"
)

// CheckStatus enumerates the check lifecycle.
type CheckStatus string

const (
	CheckStatusHeld      CheckStatus = "HELD"
	CheckStatusDeposited CheckStatus = "DEPOSITED"
	CheckStatusCleared   CheckStatus = "CLEARED"
	CheckStatusBounced   CheckStatus = "BOUNCED"
)

// CheckRecord tracks one physical check. Its monetary effect lives in the
// linked journal entries, not here.
type CheckRecord struct {
	ID             int64
	Number         string
	BankName       string
	Amount         decimal.Decimal
	DueDate        time.Time
	Kind           CheckKind
	Status         CheckStatus
	CustomerRef    *uuid.UUID
	JournalEntryID *int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Frequency spaces installment due dates.
type Frequency string

const (
	FrequencyWeekly    Frequency = "WEEKLY"
	FrequencyMonthly   Frequency = "MONTHLY"
	FrequencyQuarterly Frequency = "QUARTERLY"
	FrequencyAnnual    Frequency = "ANNUAL"
)

// InstallmentStatus enumerates plan states.
type InstallmentStatus string

const (
	InstallmentStatusActive    InstallmentStatus = "ACTIVE"
	InstallmentStatusCompleted InstallmentStatus = "COMPLETED"
)

// InstallmentAccount is a payment plan for one customer.
type InstallmentAccount struct {
	ID                    int64
	CustomerRef           uuid.UUID
	Principal             decimal.Decimal
	InstallmentAmount     decimal.Decimal
	InterestRate          decimal.Decimal
	Count                 int
	Frequency             Frequency
	StartDate             time.Time
	RemainingBalance      decimal.Decimal
	RemainingInstallments int
	Status                InstallmentStatus
	JournalEntryID        *int64
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// InstallmentPayment is one scheduled collection.
type InstallmentPayment struct {
	ID             int64
	AccountID      int64
	Sequence       int
	DueDate        time.Time
	AmountDue      decimal.Decimal
	InterestPart   decimal.Decimal
	PaidAt         *time.Time
	JournalEntryID *int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ReconciliationStatus enumerates bank reconciliation states.
type ReconciliationStatus string

const (
	ReconciliationStatusOpen      ReconciliationStatus = "OPEN"
	ReconciliationStatusCompleted ReconciliationStatus = "COMPLETED"
)

// ItemKind classifies statement lines the books did not record.
type ItemKind string

const (
	ItemKindBankFee    ItemKind = "BANK_FEE"
	ItemKindInterest   ItemKind = "INTEREST"
	ItemKindAdjustment ItemKind = "ADJUSTMENT"
)

// BankReconciliation matches one bank statement against the books.
type BankReconciliation struct {
	ID               int64
	BankName         string
	StatementDate    time.Time
	StatementBalance decimal.Decimal
	BookBalance      decimal.Decimal
	Status           ReconciliationStatus
	JournalEntryID   *int64
	Items            []ReconciliationItem
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// ReconciliationItem is one statement line. Unmatched items feed the
// adjustment entry generated on completion.
type ReconciliationItem struct {
	ID               int64
	ReconciliationID int64
	Kind             ItemKind
	Amount           decimal.Decimal
	Matched          bool
	Memo             string
	CreatedAt        time.Time
}

var (
	// ErrCheckNotFound indicates missing check record.
	ErrCheckNotFound = errors.New("instruments: check not found")
	// ErrInvalidCheckTransition indicates the requested lifecycle move is not allowed.
	ErrInvalidCheckTransition = errors.New("instruments: invalid check transition")
	// ErrInstallmentNotFound indicates missing plan or payment.
	ErrInstallmentNotFound = errors.New("instruments: installment not found")
	// ErrPaymentAlreadyApplied indicates a double collection attempt.
	ErrPaymentAlreadyApplied = errors.New("instruments: payment already applied")
	// ErrPlanCompleted indicates payments were attempted on a finished plan.
	ErrPlanCompleted = errors.New("instruments: installment plan completed")
	// ErrReconciliationNotFound indicates missing reconciliation.
	ErrReconciliationNotFound = errors.New("instruments: reconciliation not found")
	// ErrReconciliationClosed indicates the reconciliation is already completed.
	ErrReconciliationClosed = errors.New("instruments: reconciliation completed")
)

// DueDateFor returns the due date of the n-th installment (zero-based).
func DueDateFor(start time.Time, freq Frequency, n int) time.Time {
	switch freq {
	case FrequencyWeekly:
		return start.AddDate(0, 0, 7*n)
	case FrequencyQuarterly:
		return start.AddDate(0, 3*n, 0)
	case FrequencyAnnual:
		return start.AddDate(n, 0, 0)
	default:
		return start.AddDate(0, n, 0)
	}
}

// ValidFrequency reports whether f is a known schedule frequency.
func ValidFrequency(f Frequency) bool {
	switch f {
	case FrequencyWeekly, FrequencyMonthly, FrequencyQuarterly, FrequencyAnnual:
		return true
	}
	return false
}

// PaymentDue computes a single installment's collectible amount:
// installment plus simple interest at rate percent.
func PaymentDue(amount, rate decimal.Decimal) (total, interest decimal.Decimal) {
	interest = amount.Mul(rate).Div(decimal.NewFromInt(100)).Round(2)
	return amount.Add(interest), interest
}
