package audit

import (
	"context"
	"testing"
	"time"
)

type stubRepo struct {
	rows       []TimelineRow
	lastOffset int
	lastLimit  int
}

func (s *stubRepo) TimelineWindow(_ context.Context, _ TimelineFilters, offset, limit int) ([]TimelineRow, error) {
	s.lastOffset = offset
	s.lastLimit = limit
	if offset >= len(s.rows) {
		return nil, nil
	}
	end := offset + limit
	if end > len(s.rows) {
		end = len(s.rows)
	}
	return s.rows[offset:end], nil
}

func (s *stubRepo) TimelineAll(_ context.Context, _ TimelineFilters) ([]TimelineRow, error) {
	return s.rows, nil
}

func (s *stubRepo) RecordHistory(_ context.Context, table, recordID string) ([]HistoryRow, error) {
	var out []HistoryRow
	for _, r := range s.rows {
		if r.Table == table && r.RecordID == recordID {
			out = append(out, HistoryRow{TimelineRow: r})
		}
	}
	return out, nil
}

func makeRows(n int) []TimelineRow {
	rows := make([]TimelineRow, n)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range rows {
		rows[i] = TimelineRow{
			ID:       int64(n - i),
			At:       base.Add(time.Duration(n-i) * time.Minute),
			Op:       "UPDATE",
			Table:    "journal_entries",
			RecordID: "42",
		}
	}
	return rows
}

func TestTimelinePaging(t *testing.T) {
	repo := &stubRepo{rows: makeRows(25)}
	svc := NewService(repo)

	res, err := svc.Timeline(context.Background(), TimelineFilters{Page: 1, PageSize: 10})
	if err != nil {
		t.Fatalf("Timeline: %v", err)
	}
	if len(res.Rows) != 10 {
		t.Fatalf("rows = %d, want 10", len(res.Rows))
	}
	if !res.Paging.HasNext || res.Paging.NextPage != 2 {
		t.Fatalf("paging = %+v, want next page 2", res.Paging)
	}
	if repo.lastLimit != 11 {
		t.Fatalf("limit = %d, want pageSize+1", repo.lastLimit)
	}

	res, err = svc.Timeline(context.Background(), TimelineFilters{Page: 3, PageSize: 10})
	if err != nil {
		t.Fatalf("Timeline page 3: %v", err)
	}
	if len(res.Rows) != 5 {
		t.Fatalf("rows = %d, want 5", len(res.Rows))
	}
	if res.Paging.HasNext {
		t.Fatal("page 3 should be the last page")
	}
	if res.Paging.PrevPage != 2 {
		t.Fatalf("prev page = %d, want 2", res.Paging.PrevPage)
	}
}

func TestTimelineClampsPageSize(t *testing.T) {
	repo := &stubRepo{rows: makeRows(5)}
	svc := NewService(repo)

	if _, err := svc.Timeline(context.Background(), TimelineFilters{PageSize: 500}); err != nil {
		t.Fatalf("Timeline: %v", err)
	}
	if repo.lastLimit != 51 {
		t.Fatalf("limit = %d, want clamp to 50+1", repo.lastLimit)
	}

	if _, err := svc.Timeline(context.Background(), TimelineFilters{Page: -2}); err != nil {
		t.Fatalf("Timeline: %v", err)
	}
	if repo.lastOffset != 0 {
		t.Fatalf("offset = %d, want 0 for defaulted page", repo.lastOffset)
	}
}

func TestHistoryRequiresIdentity(t *testing.T) {
	svc := NewService(&stubRepo{rows: makeRows(3)})

	if _, err := svc.History(context.Background(), "", "42"); err == nil {
		t.Fatal("expected error for missing table")
	}
	rows, err := svc.History(context.Background(), "journal_entries", "42")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
}

func TestServiceWithoutRepository(t *testing.T) {
	svc := NewService(nil)
	if _, err := svc.Timeline(context.Background(), TimelineFilters{}); err == nil {
		t.Fatal("expected error without repository")
	}
	if _, err := svc.Export(context.Background(), TimelineFilters{}); err == nil {
		t.Fatal("expected error without repository")
	}
}
