package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"ledger/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("new repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func seedService(t *testing.T, repo *SQLiteRepository) *core.Service {
	t.Helper()
	svc, err := repo.CreateService(context.Background(), core.AddServiceDto{ServiceName: "household"})
	if err != nil {
		t.Fatalf("create service: %v", err)
	}
	return svc
}

func history(serviceID int64, date core.Date, content string) core.AddHistoryDto {
	return core.AddHistoryDto{
		ServiceID:   serviceID,
		Price:       1500,
		Content:     content,
		HistoryDate: date,
		CategoryID:  1,
		PaymentID:   2,
	}
}

func TestServiceRoundTrip(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	created := seedService(t, repo)
	if created.ID == 0 || created.Name != "household" || created.CreateDate.IsZero() {
		t.Fatalf("unexpected created service: %+v", created)
	}

	found, err := repo.FindServiceByID(ctx, created.ID)
	if err != nil {
		t.Fatalf("find service: %v", err)
	}
	if *found != *created {
		t.Fatalf("found %+v, want %+v", found, created)
	}

	if _, err := repo.FindServiceByID(ctx, created.ID+100); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestHistoryCreateAndFindByMonth(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	svc := seedService(t, repo)

	for _, h := range []core.AddHistoryDto{
		history(svc.ID, core.NewDate(2020, 8, 31), "late august"),
		history(svc.ID, core.NewDate(2020, 8, 1), "early august"),
		history(svc.ID, core.NewDate(2020, 9, 1), "september"),
		history(svc.ID, core.NewDate(2020, 7, 31), "july"),
	} {
		if _, err := repo.CreateHistory(ctx, h); err != nil {
			t.Fatalf("create history %q: %v", h.Content, err)
		}
	}

	items, err := repo.FindHistoryByMonth(ctx, core.MonthQuery{ServiceID: svc.ID, Year: 2020, Month: 8})
	if err != nil {
		t.Fatalf("find by month: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("expected 2 august histories, got %d: %+v", len(items), items)
	}
	if items[0].Content != "early august" || items[1].Content != "late august" {
		t.Fatalf("unexpected order: %+v", items)
	}
	if items[0].Category != "Food" || items[0].Payment != "Credit card" {
		t.Fatalf("expected joined names, got %+v", items[0])
	}

	empty, err := repo.FindHistoryByMonth(ctx, core.MonthQuery{ServiceID: svc.ID, Year: 2019, Month: 8})
	if err != nil {
		t.Fatalf("find empty month: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", empty)
	}
}

func TestHistoryCreateUnknownReference(t *testing.T) {
	repo := newTestRepo(t)
	h := history(999, core.NewDate(2020, 8, 1), "orphan")
	if _, err := repo.CreateHistory(context.Background(), h); !errors.Is(err, ErrInvalidReference) {
		t.Fatalf("expected ErrInvalidReference, got %v", err)
	}
}

func TestHistoryUpdateOnlyTouchesSuppliedFields(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	svc := seedService(t, repo)

	created, err := repo.CreateHistory(ctx, history(svc.ID, core.NewDate(2020, 8, 14), "lunch"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	price := core.Price(5)
	updated, err := repo.UpdateHistory(ctx, created.ID, core.EditHistoryDto{Price: &price})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Price != 5 {
		t.Fatalf("price = %d, want 5", updated.Price)
	}
	if updated.Content != "lunch" || updated.HistoryDate != created.HistoryDate || updated.Category != created.Category {
		t.Fatalf("unsupplied fields changed: before %+v after %+v", created, updated)
	}

	if _, err := repo.UpdateHistory(ctx, created.ID+50, core.EditHistoryDto{Price: &price}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestHistoryRemove(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	svc := seedService(t, repo)

	created, err := repo.CreateHistory(ctx, history(svc.ID, core.NewDate(2020, 8, 14), "taxi"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.RemoveHistory(ctx, created.ID); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := repo.RemoveHistory(ctx, created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second remove: expected ErrNotFound, got %v", err)
	}
	if _, err := repo.FindHistoryByID(ctx, created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected removed history to be gone, got %v", err)
	}
}

func TestHistoryBulkInsert(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	svc := seedService(t, repo)

	rows := []core.AddHistoryDto{
		history(svc.ID, core.NewDate(2020, 8, 1), "a"),
		history(svc.ID, core.NewDate(2020, 8, 2), "b"),
		history(svc.ID, core.NewDate(2020, 8, 3), "c"),
	}
	res, err := repo.BulkInsertHistory(ctx, rows)
	if err != nil {
		t.Fatalf("bulk insert: %v", err)
	}
	if res.AffectedRows != 3 || res.InsertID == 0 {
		t.Fatalf("unexpected result %+v", res)
	}

	first, err := repo.FindHistoryByID(ctx, res.InsertID)
	if err != nil {
		t.Fatalf("find first inserted: %v", err)
	}
	if first.Content != "a" {
		t.Fatalf("insertId should point at the first row, got %+v", first)
	}
}

func TestHistoryBulkInsertIsAtomic(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	svc := seedService(t, repo)

	bad := history(svc.ID, core.NewDate(2020, 8, 2), "bad")
	bad.CategoryID = 404
	rows := []core.AddHistoryDto{history(svc.ID, core.NewDate(2020, 8, 1), "good"), bad}

	if _, err := repo.BulkInsertHistory(ctx, rows); !errors.Is(err, ErrInvalidReference) {
		t.Fatalf("expected ErrInvalidReference, got %v", err)
	}
	items, err := repo.FindHistoryByMonth(ctx, core.MonthQuery{ServiceID: svc.ID, Year: 2020, Month: 8})
	if err != nil {
		t.Fatalf("find by month: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("failed bulk insert must not leave rows, got %d", len(items))
	}
}
