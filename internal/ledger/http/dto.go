// Package ledgerhttp exposes the ledger engine as a JSON API.
package ledgerhttp

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/zarrin-erp/zarrin-erp/internal/ledger"
)

var validate = validator.New()

type createAccountRequest struct {
	Code    string `json:"code"`
	Name    string `json:"name" validate:"required"`
	NameFa  string `json:"name_fa"`
	Type    string `json:"type" validate:"required,oneof=ASSET LIABILITY EQUITY REVENUE EXPENSE"`
	ActorID int64  `json:"actor_id"`
}

type updateAccountRequest struct {
	Name    *string `json:"name"`
	NameFa  *string `json:"name_fa"`
	Active  *bool   `json:"active"`
	ActorID int64   `json:"actor_id"`
}

type createSubsidiaryRequest struct {
	Code    string `json:"code"`
	Name    string `json:"name" validate:"required"`
	NameFa  string `json:"name_fa"`
	ActorID int64  `json:"actor_id"`
}

type entryLineRequest struct {
	AccountID    int64           `json:"account_id" validate:"required"`
	SubsidiaryID *int64          `json:"subsidiary_id"`
	Debit        decimal.Decimal `json:"debit"`
	Credit       decimal.Decimal `json:"credit"`
	Description  string          `json:"description"`
}

type createEntryRequest struct {
	Date          time.Time          `json:"date" validate:"required"`
	Description   string             `json:"description"`
	DescriptionFa string             `json:"description_fa"`
	Reference     string             `json:"reference"`
	ActorID       int64              `json:"actor_id"`
	Lines         []entryLineRequest `json:"lines" validate:"required,min=2,dive"`
}

func (r createEntryRequest) toInput() ledger.CreateEntryInput {
	input := ledger.CreateEntryInput{
		Date:          r.Date,
		Description:   r.Description,
		DescriptionFa: r.DescriptionFa,
		Reference:     r.Reference,
		ActorID:       r.ActorID,
	}
	for _, l := range r.Lines {
		input.Lines = append(input.Lines, ledger.EntryLineInput{
			AccountID:    l.AccountID,
			SubsidiaryID: l.SubsidiaryID,
			Debit:        l.Debit,
			Credit:       l.Credit,
			Description:  l.Description,
		})
	}
	return input
}

type reverseEntryRequest struct {
	Reason  string `json:"reason" validate:"required"`
	ActorID int64  `json:"actor_id"`
}

type actorRequest struct {
	ActorID int64 `json:"actor_id"`
}

type accountResponse struct {
	ID            int64           `json:"id"`
	Code          string          `json:"code"`
	Name          string          `json:"name"`
	NameFa        string          `json:"name_fa,omitempty"`
	Type          string          `json:"type"`
	NormalSide    string          `json:"normal_side"`
	DebitBalance  decimal.Decimal `json:"debit_balance"`
	CreditBalance decimal.Decimal `json:"credit_balance"`
	Active        bool            `json:"active"`
}

func toAccountResponse(a ledger.Account) accountResponse {
	return accountResponse{
		ID:            a.ID,
		Code:          a.Code,
		Name:          a.Name,
		NameFa:        a.NameFa,
		Type:          string(a.Type),
		NormalSide:    string(a.NormalSide),
		DebitBalance:  a.DebitBalance,
		CreditBalance: a.CreditBalance,
		Active:        a.IsActive,
	}
}

type entryLineResponse struct {
	LineNumber   int             `json:"line_number"`
	AccountID    int64           `json:"account_id"`
	SubsidiaryID *int64          `json:"subsidiary_id,omitempty"`
	Debit        decimal.Decimal `json:"debit"`
	Credit       decimal.Decimal `json:"credit"`
	Description  string          `json:"description,omitempty"`
}

type entryResponse struct {
	ID            int64               `json:"id"`
	Number        string              `json:"number"`
	Date          time.Time           `json:"date"`
	Description   string              `json:"description,omitempty"`
	DescriptionFa string              `json:"description_fa,omitempty"`
	Reference     string              `json:"reference,omitempty"`
	SourceType    string              `json:"source_type,omitempty"`
	Status        string              `json:"status"`
	Period        string              `json:"period"`
	TotalDebit    decimal.Decimal     `json:"total_debit"`
	TotalCredit   decimal.Decimal     `json:"total_credit"`
	PostedAt      *time.Time          `json:"posted_at,omitempty"`
	Lines         []entryLineResponse `json:"lines,omitempty"`
}

func toEntryResponse(e ledger.JournalEntry) entryResponse {
	resp := entryResponse{
		ID:            e.ID,
		Number:        e.Number,
		Date:          e.Date,
		Description:   e.Description,
		DescriptionFa: e.DescriptionFa,
		Reference:     e.Reference,
		SourceType:    e.SourceType,
		Status:        string(e.Status),
		Period:        e.Period,
		TotalDebit:    e.TotalDebit,
		TotalCredit:   e.TotalCredit,
		PostedAt:      e.PostedAt,
	}
	for _, l := range e.Lines {
		resp.Lines = append(resp.Lines, entryLineResponse{
			LineNumber:   l.LineNumber,
			AccountID:    l.AccountID,
			SubsidiaryID: l.SubsidiaryID,
			Debit:        l.Debit,
			Credit:       l.Credit,
			Description:  l.Description,
		})
	}
	return resp
}
