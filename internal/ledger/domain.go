package ledger

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AccountType enumerates chart of accounts categories.
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeRevenue   AccountType = "REVENUE"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// NormalSide is the side on which an account grows.
type NormalSide string

const (
	NormalSideDebit  NormalSide = "DEBIT"
	NormalSideCredit NormalSide = "CREDIT"
)

// EntryStatus enumerates journal entry lifecycle values.
type EntryStatus string

const (
	EntryStatusDraft    EntryStatus = "DRAFT"
	EntryStatusPosted   EntryStatus = "POSTED"
	EntryStatusReversed EntryStatus = "REVERSED"
)

// Account models a chart of accounts node with running balances.
type Account struct {
	ID             int64
	Code           string
	Name           string
	NameFa         string
	Type           AccountType
	NormalSide     NormalSide
	DebitBalance   decimal.Decimal
	CreditBalance  decimal.Decimal
	CurrentBalance decimal.Decimal
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// SubsidiaryAccount is a detail account nested under exactly one main account.
type SubsidiaryAccount struct {
	ID             int64
	AccountID      int64
	Code           string
	Name           string
	NameFa         string
	DebitBalance   decimal.Decimal
	CreditBalance  decimal.Decimal
	CurrentBalance decimal.Decimal
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// AccountingPeriod gates posting for a calendar month.
type AccountingPeriod struct {
	ID        int64
	Code      string
	Locked    bool
	LockedBy  *int64
	LockedAt  *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// JournalEntry captures one balanced, dated transaction.
type JournalEntry struct {
	ID              int64
	Number          string
	Date            time.Time
	Description     string
	DescriptionFa   string
	Reference       string
	SourceType      string
	SourceID        *uuid.UUID
	TotalDebit      decimal.Decimal
	TotalCredit     decimal.Decimal
	Status          EntryStatus
	Period          string
	FiscalYear      int
	PostedBy        *int64
	PostedAt        *time.Time
	ReversedEntryID *int64
	ReversalReason  string
	Metadata        Metadata
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Lines           []JournalEntryLine
}

// JournalEntryLine is one debit or credit leg of an entry.
type JournalEntryLine struct {
	ID           int64
	EntryID      int64
	LineNumber   int
	AccountID    int64
	SubsidiaryID *int64
	Debit        decimal.Decimal
	Credit       decimal.Decimal
	Description  string
	Metadata     Metadata
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

var (
	// ErrDuplicateAccountCode indicates the requested account code is taken.
	ErrDuplicateAccountCode = errors.New("ledger: duplicate account code")
	// ErrAccountNotFound indicates missing main account.
	ErrAccountNotFound = errors.New("ledger: account not found")
	// ErrAccountInactive indicates a deactivated account was referenced.
	ErrAccountInactive = errors.New("ledger: account inactive")
	// ErrMainAccountNotFound indicates the subsidiary parent does not exist.
	ErrMainAccountNotFound = errors.New("ledger: main account not found")
	// ErrSubsidiaryNotFound indicates missing subsidiary account.
	ErrSubsidiaryNotFound = errors.New("ledger: subsidiary account not found")
	// ErrSubsidiaryMismatch indicates a line references a subsidiary outside its main account.
	ErrSubsidiaryMismatch = errors.New("ledger: subsidiary does not belong to line account")
	// ErrUnbalanced indicates debit total differs from credit total beyond tolerance.
	ErrUnbalanced = errors.New("ledger: journal lines must balance")
	// ErrTooFewLines indicates less than two lines.
	ErrTooFewLines = errors.New("ledger: journal requires at least two lines")
	// ErrEntryNotFound indicates missing journal entry.
	ErrEntryNotFound = errors.New("ledger: journal entry not found")
	// ErrInvalidStatus indicates a lifecycle transition is not allowed.
	ErrInvalidStatus = errors.New("ledger: invalid status transition")
	// ErrEntryNotPosted indicates reversal was requested for a non-posted entry.
	ErrEntryNotPosted = errors.New("ledger: entry is not posted")
	// ErrReversalOfReversal indicates the target entry is itself a reversing entry.
	ErrReversalOfReversal = errors.New("ledger: reversing entries cannot be reversed")
	// ErrPeriodLocked indicates the accounting period rejects new postings.
	ErrPeriodLocked = errors.New("ledger: period locked")
	// ErrPeriodNotFound indicates missing accounting period.
	ErrPeriodNotFound = errors.New("ledger: period not found")
)

// typePrefixes maps account types to their leading code digit.
var typePrefixes = map[AccountType]string{
	AccountTypeAsset:     "1",
	AccountTypeLiability: "2",
	AccountTypeEquity:    "3",
	AccountTypeRevenue:   "4",
	AccountTypeExpense:   "5",
}

// ValidAccountType reports whether t is a known account type.
func ValidAccountType(t AccountType) bool {
	_, ok := typePrefixes[t]
	return ok
}

// CodePrefix returns the leading digit used for codes of this type.
func (t AccountType) CodePrefix() string {
	return typePrefixes[t]
}

// DefaultNormalSide derives the growth side from the account type.
func (t AccountType) DefaultNormalSide() NormalSide {
	switch t {
	case AccountTypeAsset, AccountTypeExpense:
		return NormalSideDebit
	default:
		return NormalSideCredit
	}
}

// NextCodeInPrefix computes the successor of last within a type prefix.
// An empty last yields the first code of the prefix, e.g. "1001".
func NextCodeInPrefix(prefix, last string) (string, error) {
	if prefix == "" {
		return "", errors.New("ledger: empty code prefix")
	}
	if last == "" {
		return prefix + "001", nil
	}
	if !strings.HasPrefix(last, prefix) {
		return "", fmt.Errorf("ledger: code %q outside prefix %q", last, prefix)
	}
	n, err := strconv.Atoi(last)
	if err != nil {
		return "", fmt.Errorf("ledger: non-numeric account code %q", last)
	}
	return strconv.Itoa(n + 1), nil
}

// SubsidiaryCode formats a detail account code under its main account.
func SubsidiaryCode(mainCode string, seq int) string {
	return fmt.Sprintf("%s-%03d", mainCode, seq)
}

// PeriodCode formats the accounting period for a date, e.g. "2024-01".
func PeriodCode(date time.Time) string {
	return date.Format("2006-01")
}

// EntryNumber formats a period-prefixed journal entry number.
func EntryNumber(date time.Time, seq int64) string {
	return fmt.Sprintf("JE%s%04d", date.Format("200601"), seq)
}

// applyEffect returns updated running balances after a debit/credit pair.
// Asset and expense accounts grow on the debit side, the rest on credit.
func applyEffect(side NormalSide, debitBal, creditBal, debit, credit decimal.Decimal) (newDebit, newCredit, current decimal.Decimal) {
	newDebit = debitBal.Add(debit)
	newCredit = creditBal.Add(credit)
	if side == NormalSideDebit {
		current = newDebit.Sub(newCredit)
	} else {
		current = newCredit.Sub(newDebit)
	}
	return newDebit, newCredit, current
}
