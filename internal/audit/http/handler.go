// Package audithttp serves the audit timeline API.
package audithttp

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/zarrin-erp/zarrin-erp/internal/audit"
	"github.com/zarrin-erp/zarrin-erp/internal/platform/httpx"
)

// Handler serves audit reads.
type Handler struct {
	logger  *slog.Logger
	service *audit.Service
}

func NewHandler(logger *slog.Logger, service *audit.Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes attaches the audit routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/audit", func(r chi.Router) {
		r.Get("/", h.timeline)
		r.Get("/{table}/{record}", h.history)
	})
}

func (h *Handler) timeline(w http.ResponseWriter, r *http.Request) {
	filters, err := parseFilters(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	result, err := h.service.Timeline(r.Context(), filters)
	if err != nil {
		h.logger.Error("audit timeline failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")
	record := chi.URLParam(r, "record")
	rows, err := h.service.History(r.Context(), table, record)
	if err != nil {
		h.logger.Error("audit history failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, rows)
}

func parseFilters(r *http.Request) (audit.TimelineFilters, error) {
	q := r.URL.Query()
	var f audit.TimelineFilters
	f.Table = q.Get("table")
	f.Op = q.Get("op")
	if raw := q.Get("actor_id"); raw != "" {
		actor, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return f, err
		}
		f.ActorID = actor
	}
	if raw := q.Get("from"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return f, err
		}
		f.From = t
	}
	if raw := q.Get("to"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return f, err
		}
		f.To = t
	}
	if raw := q.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			return f, err
		}
		f.Page = page
	}
	if raw := q.Get("page_size"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil {
			return f, err
		}
		f.PageSize = size
	}
	return f, nil
}
