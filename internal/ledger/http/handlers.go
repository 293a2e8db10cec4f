package ledgerhttp

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zarrin-erp/zarrin-erp/internal/ledger"
	"github.com/zarrin-erp/zarrin-erp/internal/ledger/reports"
	"github.com/zarrin-erp/zarrin-erp/internal/platform/httpx"
	"github.com/zarrin-erp/zarrin-erp/internal/shared"
)

// Handler serves the ledger API.
type Handler struct {
	logger   *slog.Logger
	service  *ledger.Service
	renderer *reports.Renderer
}

func NewHandler(logger *slog.Logger, service *ledger.Service, renderer *reports.Renderer) *Handler {
	if renderer == nil {
		renderer = reports.NewRenderer("en")
	}
	return &Handler{logger: logger, service: service, renderer: renderer}
}

// respondError maps ledger errors onto problem responses.
func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ledger.ErrAccountNotFound),
		errors.Is(err, ledger.ErrMainAccountNotFound),
		errors.Is(err, ledger.ErrSubsidiaryNotFound),
		errors.Is(err, ledger.ErrEntryNotFound),
		errors.Is(err, ledger.ErrPeriodNotFound),
		errors.Is(err, shared.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ledger.ErrDuplicateAccountCode):
		httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, ledger.ErrInvalidStatus),
		errors.Is(err, ledger.ErrEntryNotPosted),
		errors.Is(err, ledger.ErrReversalOfReversal),
		errors.Is(err, ledger.ErrPeriodLocked):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, ledger.ErrUnbalanced),
		errors.Is(err, ledger.ErrTooFewLines),
		errors.Is(err, ledger.ErrAccountInactive),
		errors.Is(err, ledger.ErrSubsidiaryMismatch),
		errors.Is(err, shared.ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("ledger request failed",
			slog.String("path", r.URL.Path),
			slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func decodeValid(r *http.Request, target any) error {
	if err := httpx.DecodeJSON(r, target); err != nil {
		return err
	}
	return validate.Struct(target)
}

func pathID(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}

func (h *Handler) createAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := decodeValid(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	account, err := h.service.CreateAccount(r.Context(), ledger.CreateAccountInput{
		Code:    req.Code,
		Name:    req.Name,
		NameFa:  req.NameFa,
		Type:    ledger.AccountType(req.Type),
		ActorID: req.ActorID,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toAccountResponse(account))
}

func (h *Handler) listAccounts(w http.ResponseWriter, r *http.Request) {
	activeOnly := r.URL.Query().Get("active") == "true"
	accounts, err := h.service.ListAccounts(r.Context(), activeOnly)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	out := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, toAccountResponse(a))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) updateAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid account id")
		return
	}
	var req updateAccountRequest
	if err := decodeValid(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	account, err := h.service.UpdateAccount(r.Context(), id, ledger.UpdateAccountInput{
		Name:     req.Name,
		NameFa:   req.NameFa,
		IsActive: req.Active,
		ActorID:  req.ActorID,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toAccountResponse(account))
}

func (h *Handler) deactivateAccount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid account id")
		return
	}
	var req actorRequest
	_ = httpx.DecodeJSON(r, &req)
	account, err := h.service.DeactivateAccount(r.Context(), id, req.ActorID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toAccountResponse(account))
}

func (h *Handler) accountBalance(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid account id")
		return
	}
	asOf, err := queryTime(r, "as_of", time.Now())
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "as_of must be RFC3339 or YYYY-MM-DD")
		return
	}
	balance, err := h.service.AccountBalance(r.Context(), id, asOf)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, balance)
}

func (h *Handler) createSubsidiary(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid account id")
		return
	}
	var req createSubsidiaryRequest
	if err := decodeValid(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	sub, err := h.service.CreateSubsidiary(r.Context(), ledger.CreateSubsidiaryInput{
		AccountID: id,
		Code:      req.Code,
		Name:      req.Name,
		NameFa:    req.NameFa,
		ActorID:   req.ActorID,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, sub)
}

func (h *Handler) listSubsidiaries(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid account id")
		return
	}
	subs, err := h.service.ListSubsidiaries(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, subs)
}

func (h *Handler) createEntry(w http.ResponseWriter, r *http.Request) {
	var req createEntryRequest
	if err := decodeValid(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	entry, err := h.service.CreateEntry(r.Context(), req.toInput())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toEntryResponse(entry))
}

func (h *Handler) getEntry(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid entry id")
		return
	}
	entry, err := h.service.GetEntry(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toEntryResponse(entry))
}

func (h *Handler) listEntries(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := 50
	if raw := q.Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid limit")
			return
		}
		limit = parsed
	}
	entries, err := h.service.ListEntries(r.Context(), ledger.EntryFilter{
		Status:     ledger.EntryStatus(q.Get("status")),
		Period:     q.Get("period"),
		SourceType: q.Get("source_type"),
		Limit:      limit,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toEntryResponse(e))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) postEntry(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid entry id")
		return
	}
	var req actorRequest
	_ = httpx.DecodeJSON(r, &req)
	entry, err := h.service.PostEntry(r.Context(), id, req.ActorID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toEntryResponse(entry))
}

func (h *Handler) reverseEntry(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid entry id")
		return
	}
	var req reverseEntryRequest
	if err := decodeValid(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	reversal, err := h.service.ReverseEntry(r.Context(), id, req.Reason, req.ActorID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toEntryResponse(reversal))
}

func (h *Handler) discardDraft(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid entry id")
		return
	}
	var req actorRequest
	_ = httpx.DecodeJSON(r, &req)
	if err := h.service.DiscardDraft(r.Context(), id, req.ActorID); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) lockPeriod(w http.ResponseWriter, r *http.Request) {
	h.setPeriodLock(w, r, true)
}

func (h *Handler) unlockPeriod(w http.ResponseWriter, r *http.Request) {
	h.setPeriodLock(w, r, false)
}

func (h *Handler) setPeriodLock(w http.ResponseWriter, r *http.Request, lock bool) {
	code := chi.URLParam(r, "code")
	if !ledger.ValidPeriodCode(code) {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "period code must be YYYY-MM")
		return
	}
	var req actorRequest
	_ = httpx.DecodeJSON(r, &req)
	var err error
	if lock {
		err = h.service.LockPeriod(r.Context(), code, req.ActorID)
	} else {
		err = h.service.UnlockPeriod(r.Context(), code, req.ActorID)
	}
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"period": code, "locked": lock})
}

func (h *Handler) periodStatus(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if !ledger.ValidPeriodCode(code) {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "period code must be YYYY-MM")
		return
	}
	locked, err := h.service.IsPeriodLocked(r.Context(), code)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"period": code, "locked": locked})
}

func (h *Handler) trialBalance(w http.ResponseWriter, r *http.Request) {
	asOf, err := queryTime(r, "as_of", time.Now())
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "as_of must be RFC3339 or YYYY-MM-DD")
		return
	}
	tb, err := h.service.TrialBalance(r.Context(), asOf)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(h.renderer.TrialBalanceText(tb, asOf)))
		return
	}
	httpx.JSON(w, http.StatusOK, tb)
}

func (h *Handler) balanceSheet(w http.ResponseWriter, r *http.Request) {
	asOf, err := queryTime(r, "as_of", time.Now())
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "as_of must be RFC3339 or YYYY-MM-DD")
		return
	}
	bs, err := h.service.BalanceSheet(r.Context(), asOf)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, bs)
}

func (h *Handler) profitAndLoss(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	from, err := queryTime(r, "from", time.Date(now.Year(), 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "from must be RFC3339 or YYYY-MM-DD")
		return
	}
	to, err := queryTime(r, "to", now)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "to must be RFC3339 or YYYY-MM-DD")
		return
	}
	pl, err := h.service.ProfitAndLoss(r.Context(), from, to)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if r.URL.Query().Get("format") == "text" {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(h.renderer.ProfitAndLossText(pl, from, to)))
		return
	}
	httpx.JSON(w, http.StatusOK, pl)
}

func (h *Handler) statements(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	from, err := queryTime(r, "from", time.Date(now.Year(), 1, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "from must be RFC3339 or YYYY-MM-DD")
		return
	}
	asOf, err := queryTime(r, "as_of", now)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "as_of must be RFC3339 or YYYY-MM-DD")
		return
	}
	bundle, err := h.service.Statements(r.Context(), from, asOf)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, bundle)
}

// queryTime parses a query parameter as RFC3339 or a bare date.
func queryTime(r *http.Request, name string, fallback time.Time) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}
