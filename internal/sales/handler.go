package sales

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/zarrin-erp/zarrin-erp/internal/ledger"
	"github.com/zarrin-erp/zarrin-erp/internal/platform/httpx"
)

var validate = validator.New()

// Handler serves gold invoice posting.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes attaches the invoice routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/invoices/gold", h.postGoldInvoice)
}

type goldInvoiceRequest struct {
	InvoiceRef uuid.UUID       `json:"invoice_ref" validate:"required"`
	Date       time.Time       `json:"date"`
	Total      decimal.Decimal `json:"total"`
	Profit     decimal.Decimal `json:"profit"`
	Labor      decimal.Decimal `json:"labor"`
	Tax        decimal.Decimal `json:"tax"`
	Customer   string          `json:"customer"`
	ActorID    int64           `json:"actor_id"`
}

func (h *Handler) postGoldInvoice(w http.ResponseWriter, r *http.Request) {
	var req goldInvoiceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	entry, err := h.service.PostGoldInvoice(r.Context(), GoldInvoiceInput{
		InvoiceRef: req.InvoiceRef,
		Date:       req.Date,
		Total:      req.Total,
		Profit:     req.Profit,
		Labor:      req.Labor,
		Tax:        req.Tax,
		Customer:   req.Customer,
		ActorID:    req.ActorID,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidTotal),
			errors.Is(err, ErrNegativeComponent),
			errors.Is(err, ErrComponentsExceedTotal):
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		case errors.Is(err, ledger.ErrPeriodLocked):
			httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
		default:
			h.logger.Error("gold invoice posting failed", slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		}
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"entry_id": entry.ID,
		"number":   entry.Number,
		"status":   entry.Status,
	})
}
