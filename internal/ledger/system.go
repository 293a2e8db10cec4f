package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/zarrin-erp/zarrin-erp/internal/shared"
)

// SystemAccountKey identifies a built-in account referenced by the
// instrument subsystems and the invoicing flow.
type SystemAccountKey string

const (
	SystemCash                  SystemAccountKey = "CASH"
	SystemBank                  SystemAccountKey = "BANK"
	SystemAccountsReceivable    SystemAccountKey = "ACCOUNTS_RECEIVABLE"
	SystemAccountsPayable       SystemAccountKey = "ACCOUNTS_PAYABLE"
	SystemChecksReceivable      SystemAccountKey = "CHECKS_RECEIVABLE"
	SystemChecksInTransit       SystemAccountKey = "CHECKS_IN_TRANSIT"
	SystemChecksPayable         SystemAccountKey = "CHECKS_PAYABLE"
	SystemInstallmentReceivable SystemAccountKey = "INSTALLMENT_RECEIVABLE"
	SystemSalesRevenue          SystemAccountKey = "SALES_REVENUE"
	SystemGoldProfit            SystemAccountKey = "GOLD_PROFIT"
	SystemLaborIncome           SystemAccountKey = "LABOR_INCOME"
	SystemInterestIncome        SystemAccountKey = "INTEREST_INCOME"
	SystemTaxPayable            SystemAccountKey = "TAX_PAYABLE"
	SystemBankFees              SystemAccountKey = "BANK_FEES"
)

type systemAccountDef struct {
	Code   string
	Name   string
	NameFa string
	Type   AccountType
}

// systemCatalog fixes the code and type of every lazily created account so
// repeated references always resolve to the same row.
var systemCatalog = map[SystemAccountKey]systemAccountDef{
	SystemCash:                  {Code: "1010", Name: "Cash", NameFa: "صندوق", Type: AccountTypeAsset},
	SystemBank:                  {Code: "1020", Name: "Bank", NameFa: "بانک", Type: AccountTypeAsset},
	SystemAccountsReceivable:    {Code: "1030", Name: "Accounts Receivable", NameFa: "حساب‌های دریافتنی", Type: AccountTypeAsset},
	SystemChecksReceivable:      {Code: "1040", Name: "Checks Receivable", NameFa: "اسناد دریافتنی", Type: AccountTypeAsset},
	SystemChecksInTransit:       {Code: "1041", Name: "Checks in Transit", NameFa: "اسناد در جریان وصول", Type: AccountTypeAsset},
	SystemInstallmentReceivable: {Code: "1050", Name: "Installments Receivable", NameFa: "اقساط دریافتنی", Type: AccountTypeAsset},
	SystemAccountsPayable:       {Code: "2010", Name: "Accounts Payable", NameFa: "حساب‌های پرداختنی", Type: AccountTypeLiability},
	SystemChecksPayable:         {Code: "2020", Name: "Checks Payable", NameFa: "اسناد پرداختنی", Type: AccountTypeLiability},
	SystemTaxPayable:            {Code: "2030", Name: "Tax Payable", NameFa: "مالیات پرداختنی", Type: AccountTypeLiability},
	SystemSalesRevenue:          {Code: "4010", Name: "Sales Revenue", NameFa: "درآمد فروش", Type: AccountTypeRevenue},
	SystemGoldProfit:            {Code: "4020", Name: "Gold Profit", NameFa: "سود طلا", Type: AccountTypeRevenue},
	SystemLaborIncome:           {Code: "4030", Name: "Labor Income", NameFa: "اجرت ساخت", Type: AccountTypeRevenue},
	SystemInterestIncome:        {Code: "4040", Name: "Interest Income", NameFa: "درآمد بهره", Type: AccountTypeRevenue},
	SystemBankFees:              {Code: "5010", Name: "Bank Fees", NameFa: "کارمزد بانکی", Type: AccountTypeExpense},
}

// EnsureSystemAccount resolves a built-in account, creating it on first
// reference. Idempotent: repeated calls return the same account.
func (s *Service) EnsureSystemAccount(ctx context.Context, key SystemAccountKey) (Account, error) {
	def, ok := systemCatalog[key]
	if !ok {
		return Account{}, fmt.Errorf("ledger: unknown system account %q", key)
	}
	var account Account
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		existing, err := tx.GetAccountByCode(ctx, def.Code)
		if err == nil {
			account = existing
			return nil
		}
		if !errors.Is(err, ErrAccountNotFound) {
			return err
		}
		inserted, err := tx.InsertAccount(ctx, Account{
			Code:       def.Code,
			Name:       def.Name,
			NameFa:     def.NameFa,
			Type:       def.Type,
			NormalSide: def.Type.DefaultNormalSide(),
			IsActive:   true,
		})
		if err != nil {
			// A concurrent caller may have created it between the lookup
			// and the insert.
			if errors.Is(err, ErrDuplicateAccountCode) {
				account, err = tx.GetAccountByCode(ctx, def.Code)
				return err
			}
			return err
		}
		if err := auditAccount(ctx, tx, shared.AuditOpInsert, 0, inserted, nil); err != nil {
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
