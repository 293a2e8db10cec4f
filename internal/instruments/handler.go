package instruments

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/zarrin-erp/zarrin-erp/internal/ledger"
	"github.com/zarrin-erp/zarrin-erp/internal/platform/httpx"
)

var validate = validator.New()

// Handler serves the instrument endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes attaches check, installment, and reconciliation routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/checks", func(r chi.Router) {
		r.Get("/", h.listChecks)
		r.Post("/", h.registerCheck)
		r.Post("/{id}/deposit", h.checkAction(h.service.DepositCheck))
		r.Post("/{id}/clear", h.checkAction(h.service.ClearCheck))
		r.Post("/{id}/bounce", h.checkAction(h.service.BounceCheck))
	})

	r.Route("/installments", func(r chi.Router) {
		r.Post("/", h.createPlan)
		r.Get("/due", h.duePayments)
		r.Get("/{id}", h.getPlan)
		r.Post("/payments/{id}/pay", h.applyPayment)
	})

	r.Route("/reconciliations", func(r chi.Router) {
		r.Post("/", h.startReconciliation)
		r.Get("/{id}", h.getReconciliation)
		r.Post("/{id}/items", h.addItem)
		r.Post("/{id}/complete", h.completeReconciliation)
	})
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrCheckNotFound),
		errors.Is(err, ErrInstallmentNotFound),
		errors.Is(err, ErrReconciliationNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrInvalidCheckTransition),
		errors.Is(err, ErrPaymentAlreadyApplied),
		errors.Is(err, ErrPlanCompleted),
		errors.Is(err, ErrReconciliationClosed),
		errors.Is(err, ledger.ErrPeriodLocked):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		h.logger.Error("instrument request failed",
			slog.String("path", r.URL.Path),
			slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

type registerCheckRequest struct {
	Number      string          `json:"number" validate:"required"`
	BankName    string          `json:"bank_name" validate:"required"`
	Amount      decimal.Decimal `json:"amount"`
	DueDate     time.Time       `json:"due_date" validate:"required"`
	Kind        string          `json:"kind" validate:"required,oneof=RECEIVED ISSUED"`
	CustomerRef *uuid.UUID      `json:"customer_ref"`
	ActorID     int64           `json:"actor_id"`
}

func (h *Handler) registerCheck(w http.ResponseWriter, r *http.Request) {
	var req registerCheckRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if !req.Amount.IsPositive() {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "amount must be positive")
		return
	}
	check, err := h.service.RegisterCheck(r.Context(), RegisterCheckInput{
		Number:      req.Number,
		BankName:    req.BankName,
		Amount:      req.Amount,
		DueDate:     req.DueDate,
		Kind:        CheckKind(req.Kind),
		CustomerRef: req.CustomerRef,
		ActorID:     req.ActorID,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, check)
}

type actorRequest struct {
	ActorID int64 `json:"actor_id"`
}

func (h *Handler) checkAction(fn func(ctx context.Context, id, actorID int64) (CheckRecord, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := pathID(r, "id")
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid check id")
			return
		}
		var req actorRequest
		_ = httpx.DecodeJSON(r, &req)
		check, err := fn(r.Context(), id, req.ActorID)
		if err != nil {
			h.respondError(w, r, err)
			return
		}
		httpx.JSON(w, http.StatusOK, check)
	}
}

func (h *Handler) listChecks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := CheckFilter{
		Kind:   CheckKind(q.Get("kind")),
		Status: CheckStatus(q.Get("status")),
	}
	checks, err := h.service.ListChecks(r.Context(), filter)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, checks)
}

type createPlanRequest struct {
	CustomerRef       uuid.UUID       `json:"customer_ref" validate:"required"`
	InstallmentAmount decimal.Decimal `json:"installment_amount"`
	InterestRate      decimal.Decimal `json:"interest_rate"`
	Count             int             `json:"count" validate:"required,min=1"`
	Frequency         string          `json:"frequency" validate:"required,oneof=WEEKLY MONTHLY QUARTERLY ANNUAL"`
	StartDate         time.Time       `json:"start_date" validate:"required"`
	ActorID           int64           `json:"actor_id"`
}

func (h *Handler) createPlan(w http.ResponseWriter, r *http.Request) {
	var req createPlanRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if !req.InstallmentAmount.IsPositive() || req.InterestRate.IsNegative() {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "installment amount must be positive and interest rate non-negative")
		return
	}
	acct, payments, err := h.service.CreateInstallmentPlan(r.Context(), CreateInstallmentPlanInput{
		CustomerRef:       req.CustomerRef,
		InstallmentAmount: req.InstallmentAmount,
		InterestRate:      req.InterestRate,
		Count:             req.Count,
		Frequency:         Frequency(req.Frequency),
		StartDate:         req.StartDate,
		ActorID:           req.ActorID,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"account": acct, "payments": payments})
}

func (h *Handler) getPlan(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid plan id")
		return
	}
	acct, err := h.service.GetInstallmentAccount(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, acct)
}

func (h *Handler) applyPayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid payment id")
		return
	}
	var req actorRequest
	_ = httpx.DecodeJSON(r, &req)
	payment, err := h.service.ApplyPayment(r.Context(), id, req.ActorID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, payment)
}

func (h *Handler) duePayments(w http.ResponseWriter, r *http.Request) {
	asOf := time.Now()
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "as_of must be YYYY-MM-DD")
			return
		}
		asOf = parsed
	}
	payments, err := h.service.DuePayments(r.Context(), asOf)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, payments)
}

type startReconciliationRequest struct {
	BankName         string          `json:"bank_name" validate:"required"`
	StatementDate    time.Time       `json:"statement_date" validate:"required"`
	StatementBalance decimal.Decimal `json:"statement_balance"`
	BookBalance      decimal.Decimal `json:"book_balance"`
	ActorID          int64           `json:"actor_id"`
}

func (h *Handler) startReconciliation(w http.ResponseWriter, r *http.Request) {
	var req startReconciliationRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	rec, err := h.service.StartReconciliation(r.Context(), StartReconciliationInput{
		BankName:         req.BankName,
		StatementDate:    req.StatementDate,
		StatementBalance: req.StatementBalance,
		BookBalance:      req.BookBalance,
		ActorID:          req.ActorID,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, rec)
}

type addItemRequest struct {
	Kind    string          `json:"kind" validate:"required,oneof=BANK_FEE INTEREST ADJUSTMENT"`
	Amount  decimal.Decimal `json:"amount"`
	Matched bool            `json:"matched"`
	Memo    string          `json:"memo"`
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid reconciliation id")
		return
	}
	var req addItemRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if req.Amount.IsZero() {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "amount must be non-zero")
		return
	}
	item, err := h.service.AddItem(r.Context(), AddItemInput{
		ReconciliationID: id,
		Kind:             ItemKind(req.Kind),
		Amount:           req.Amount,
		Matched:          req.Matched,
		Memo:             req.Memo,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, item)
}

func (h *Handler) getReconciliation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid reconciliation id")
		return
	}
	rec, err := h.service.GetReconciliation(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}

func (h *Handler) completeReconciliation(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid reconciliation id")
		return
	}
	var req actorRequest
	_ = httpx.DecodeJSON(r, &req)
	rec, err := h.service.CompleteReconciliation(r.Context(), id, req.ActorID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rec)
}
