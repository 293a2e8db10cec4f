package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/zarrin-erp/zarrin-erp/internal/shared"
)

// CreateAccountInput describes a new chart of accounts node. Code may be
// empty, in which case the next free type-prefixed code is assigned.
type CreateAccountInput struct {
	Code    string
	Name    string
	NameFa  string
	Type    AccountType
	ActorID int64
}

// CreateAccount registers a main account.
func (s *Service) CreateAccount(ctx context.Context, input CreateAccountInput) (Account, error) {
	if input.Name == "" {
		return Account{}, errors.New("ledger: account name required")
	}
	if !ValidAccountType(input.Type) {
		return Account{}, fmt.Errorf("ledger: unknown account type %q", input.Type)
	}
	var account Account
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		code := input.Code
		if code == "" {
			last, err := tx.LastAccountCodeInPrefix(ctx, input.Type.CodePrefix())
			if err != nil {
				return err
			}
			code, err = NextCodeInPrefix(input.Type.CodePrefix(), last)
			if err != nil {
				return err
			}
		} else if _, err := tx.GetAccountByCode(ctx, code); err == nil {
			return ErrDuplicateAccountCode
		} else if !errors.Is(err, ErrAccountNotFound) {
			return err
		}
		inserted, err := tx.InsertAccount(ctx, Account{
			Code:       code,
			Name:       input.Name,
			NameFa:     input.NameFa,
			Type:       input.Type,
			NormalSide: input.Type.DefaultNormalSide(),
			IsActive:   true,
		})
		if err != nil {
			return err
		}
		if err := auditAccount(ctx, tx, shared.AuditOpInsert, input.ActorID, inserted, nil); err != nil {
			return err
		}
		account = inserted
		return nil
	})
	if err != nil {
		return Account{}, err
	}
	return account, nil
}

// UpdateAccountInput carries the mutable account fields. Nil pointers leave
// the current value in place.
type UpdateAccountInput struct {
	Name     *string
	NameFa   *string
	IsActive *bool
	ActorID  int64
}

// UpdateAccount patches name and activity. Balances are only ever changed
// by posted journal lines.
func (s *Service) UpdateAccount(ctx context.Context, id int64, input UpdateAccountInput) (Account, error) {
	var account Account
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetAccountForUpdate(ctx, id)
		if err != nil {
			return err
		}
		updated := current
		if input.Name != nil {
			updated.Name = *input.Name
		}
		if input.NameFa != nil {
			updated.NameFa = *input.NameFa
		}
		if input.IsActive != nil {
			updated.IsActive = *input.IsActive
		}
		if err := tx.UpdateAccount(ctx, updated); err != nil {
			return err
		}
		if err := auditAccount(ctx, tx, shared.AuditOpUpdate, input.ActorID, updated, &current); err != nil {
			return err
		}
		account = updated
		return nil
	})
	if err != nil {
		return Account{}, err
	}
	return account, nil
}

// DeactivateAccount soft-deletes an account. Accounts are never physically
// removed once referenced by journal lines.
func (s *Service) DeactivateAccount(ctx context.Context, id, actorID int64) (Account, error) {
	inactive := false
	return s.UpdateAccount(ctx, id, UpdateAccountInput{IsActive: &inactive, ActorID: actorID})
}

// ListAccounts returns the chart of accounts.
func (s *Service) ListAccounts(ctx context.Context, activeOnly bool) ([]Account, error) {
	return s.repo.ListAccounts(ctx, activeOnly)
}

// AccountBalance derives point-in-time debit/credit totals for an account
// from posted lines only.
func (s *Service) AccountBalance(ctx context.Context, accountID int64, asOf time.Time) (AccountBalanceResult, error) {
	debit, credit, err := s.repo.AccountBalanceAsOf(ctx, accountID, asOf)
	if err != nil {
		return AccountBalanceResult{}, err
	}
	return AccountBalanceResult{AccountID: accountID, AsOf: asOf, Debit: debit, Credit: credit}, nil
}

// CreateSubsidiaryInput describes a new detail account.
type CreateSubsidiaryInput struct {
	AccountID int64
	Code      string
	Name      string
	NameFa    string
	ActorID   int64
}

// CreateSubsidiary registers a detail account under a main account. Code
// defaults to "{mainCode}-{seq}".
func (s *Service) CreateSubsidiary(ctx context.Context, input CreateSubsidiaryInput) (SubsidiaryAccount, error) {
	if input.Name == "" {
		return SubsidiaryAccount{}, errors.New("ledger: subsidiary name required")
	}
	var sub SubsidiaryAccount
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		main, err := tx.GetAccount(ctx, input.AccountID)
		if err != nil {
			if errors.Is(err, ErrAccountNotFound) {
				return ErrMainAccountNotFound
			}
			return err
		}
		code := input.Code
		if code == "" {
			n, err := tx.CountSubsidiaries(ctx, main.ID)
			if err != nil {
				return err
			}
			code = SubsidiaryCode(main.Code, n+1)
		}
		inserted, err := tx.InsertSubsidiary(ctx, SubsidiaryAccount{
			AccountID: main.ID,
			Code:      code,
			Name:      input.Name,
			NameFa:    input.NameFa,
			IsActive:  true,
		})
		if err != nil {
			return err
		}
		if err := auditSubsidiary(ctx, tx, input.ActorID, inserted); err != nil {
			return err
		}
		sub = inserted
		return nil
	})
	if err != nil {
		return SubsidiaryAccount{}, err
	}
	return sub, nil
}

// ListSubsidiaries returns detail accounts under a main account.
func (s *Service) ListSubsidiaries(ctx context.Context, accountID int64) ([]SubsidiaryAccount, error) {
	return s.repo.ListSubsidiaries(ctx, accountID)
}

func auditAccount(ctx context.Context, tx TxRepository, op shared.AuditOp, actorID int64, account Account, old *Account) error {
	newValues, err := json.Marshal(accountSnapshot(account))
	if err != nil {
		return err
	}
	record := shared.AuditEntry{
		TableName:   "accounts",
		RecordID:    fmt.Sprintf("%d", account.ID),
		Op:          op,
		NewValues:   newValues,
		ActorID:     actorID,
		Description: fmt.Sprintf("account %s %s", account.Code, opVerb(op)),
		At:          account.UpdatedAt,
	}
	if old != nil {
		oldValues, err := json.Marshal(accountSnapshot(*old))
		if err != nil {
			return err
		}
		record.OldValues = oldValues
		record.ChangedFields = ChangedKeys(accountSnapshot(*old), accountSnapshot(account))
	}
	return tx.InsertAudit(ctx, record)
}

func auditSubsidiary(ctx context.Context, tx TxRepository, actorID int64, sub SubsidiaryAccount) error {
	newValues, err := json.Marshal(Metadata{
		"code":       String(sub.Code),
		"name":       String(sub.Name),
		"account_id": Number(decimal.NewFromInt(sub.AccountID)),
	})
	if err != nil {
		return err
	}
	return tx.InsertAudit(ctx, shared.AuditEntry{
		TableName:   "subsidiary_accounts",
		RecordID:    fmt.Sprintf("%d", sub.ID),
		Op:          shared.AuditOpInsert,
		NewValues:   newValues,
		ActorID:     actorID,
		Description: fmt.Sprintf("subsidiary %s created", sub.Code),
		At:          sub.CreatedAt,
	})
}

func accountSnapshot(a Account) Metadata {
	return Metadata{
		"code":      String(a.Code),
		"name":      String(a.Name),
		"name_fa":   String(a.NameFa),
		"type":      String(string(a.Type)),
		"is_active": Bool(a.IsActive),
	}
}

func opVerb(op shared.AuditOp) string {
	if op == shared.AuditOpInsert {
		return "created"
	}
	return "updated"
}
