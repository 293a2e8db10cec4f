package audit

import (
	"context"
	"fmt"

	"github.com/zarrin-erp/zarrin-erp/internal/shared"
)

// Repository provides the timeline queries.
type Repository interface {
	TimelineWindow(ctx context.Context, f TimelineFilters, offset, limit int) ([]TimelineRow, error)
	TimelineAll(ctx context.Context, f TimelineFilters) ([]TimelineRow, error)
	RecordHistory(ctx context.Context, table, recordID string) ([]HistoryRow, error)
}

// Result wraps one timeline page with its paging info.
type Result struct {
	Rows   []TimelineRow
	Paging PagingInfo
}

// Service coordinates audit reads.
type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Timeline fetches one page of audit events, newest first.
func (s *Service) Timeline(ctx context.Context, filters TimelineFilters) (Result, error) {
	if s.repo == nil {
		return Result{}, fmt.Errorf("audit: repository not configured")
	}
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 50 {
		pageSize = 50
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}
	offset := (page - 1) * pageSize
	// One row past the page tells us whether a next page exists.
	rows, err := s.repo.TimelineWindow(ctx, filters, offset, pageSize+1)
	if err != nil {
		return Result{}, err
	}
	hasNext := len(rows) > pageSize
	if hasNext {
		rows = rows[:pageSize]
	}
	paging := PagingInfo{Page: page, PageSize: pageSize, HasNext: hasNext}
	if page > 1 {
		paging.PrevPage = page - 1
	}
	if hasNext {
		paging.NextPage = page + 1
	}
	return Result{Rows: rows, Paging: paging}, nil
}

// Export fetches the whole filtered timeline without paging.
func (s *Service) Export(ctx context.Context, filters TimelineFilters) ([]TimelineRow, error) {
	if s.repo == nil {
		return nil, fmt.Errorf("audit: repository not configured")
	}
	return s.repo.TimelineAll(ctx, filters)
}

// History returns every audit event touching one record, oldest first,
// with full value snapshots.
func (s *Service) History(ctx context.Context, table, recordID string) ([]HistoryRow, error) {
	if s.repo == nil {
		return nil, fmt.Errorf("audit: repository not configured")
	}
	if table == "" || recordID == "" {
		return nil, fmt.Errorf("audit: table and record id required: %w", shared.ErrValidation)
	}
	return s.repo.RecordHistory(ctx, table, recordID)
}
