// Package memory is an in-process Data Access Layer. It mirrors the SQLite
// backend's semantics (joined names, not-found and reference errors) and is
// used for local runs and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"ledger/internal/core"
	"ledger/internal/storage"
)

type historyRecord struct {
	id  int64
	dto core.AddHistoryDto
}

type Store struct {
	mu         sync.Mutex
	services   map[int64]core.Service
	histories  map[int64]historyRecord
	categories map[int64]string
	payments   map[int64]string
	nextSvc    int64
	nextHist   int64
	now        func() time.Time
}

var _ storage.Store = (*Store)(nil)

// New returns a store seeded with the same categories and payments as the
// SQLite migrations.
func New() *Store {
	return &Store{
		services:  map[int64]core.Service{},
		histories: map[int64]historyRecord{},
		categories: map[int64]string{
			1: "Food", 2: "Living", 3: "Shopping", 4: "Transport", 5: "Health",
			6: "Culture", 7: "Other expense", 8: "Salary", 9: "Allowance", 10: "Other income",
		},
		payments: map[int64]string{1: "Cash", 2: "Credit card", 3: "Debit card", 4: "Bank transfer"},
		now:      time.Now,
	}
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func (s *Store) CreateService(_ context.Context, dto core.AddServiceDto) (*core.Service, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextSvc++
	now := s.now().UTC()
	svc := core.Service{
		ID:         s.nextSvc,
		Name:       dto.ServiceName,
		CreateDate: core.NewDate(now.Year(), int(now.Month()), now.Day()),
	}
	s.services[svc.ID] = svc
	return &svc, nil
}

func (s *Store) FindServiceByID(_ context.Context, id int64) (*core.Service, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	svc, ok := s.services[id]
	if !ok {
		return nil, fmt.Errorf("get service %d: %w", id, storage.ErrNotFound)
	}
	return &svc, nil
}

func (s *Store) CreateHistory(_ context.Context, dto core.AddHistoryDto) (*core.History, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkRefs(dto.ServiceID, dto.CategoryID, dto.PaymentID); err != nil {
		return nil, fmt.Errorf("create history: %w", err)
	}
	rec := s.insert(dto)
	h := s.view(rec)
	return &h, nil
}

func (s *Store) FindHistoryByID(_ context.Context, id int64) (*core.History, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.histories[id]
	if !ok {
		return nil, fmt.Errorf("get history %d: %w", id, storage.ErrNotFound)
	}
	h := s.view(rec)
	return &h, nil
}

func (s *Store) FindHistoryByMonth(_ context.Context, q core.MonthQuery) ([]core.History, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start, end := q.Range()
	items := make([]core.History, 0)
	for _, rec := range s.histories {
		d := rec.dto.HistoryDate.Time
		if rec.dto.ServiceID != q.ServiceID || d.Before(start.Time) || !d.Before(end.Time) {
			continue
		}
		items = append(items, s.view(rec))
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].HistoryDate.Equal(items[j].HistoryDate.Time) {
			return items[i].HistoryDate.Before(items[j].HistoryDate.Time)
		}
		return items[i].ID < items[j].ID
	})
	return items, nil
}

func (s *Store) UpdateHistory(_ context.Context, id int64, edit core.EditHistoryDto) (*core.History, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.histories[id]
	if !ok {
		return nil, fmt.Errorf("update history %d: %w", id, storage.ErrNotFound)
	}
	next := rec.dto
	for field, v := range edit.Changes() {
		switch field {
		case core.FieldPrice:
			next.Price = v.(core.Price)
		case core.FieldContent:
			next.Content = v.(string)
		case core.FieldHistoryDate:
			next.HistoryDate = v.(core.Date)
		case core.FieldCategoryID:
			next.CategoryID = v.(int64)
		case core.FieldPaymentID:
			next.PaymentID = v.(int64)
		}
	}
	if err := s.checkRefs(next.ServiceID, next.CategoryID, next.PaymentID); err != nil {
		return nil, fmt.Errorf("update history %d: %w", id, err)
	}
	rec.dto = next
	s.histories[id] = rec
	h := s.view(rec)
	return &h, nil
}

func (s *Store) RemoveHistory(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.histories[id]; !ok {
		return fmt.Errorf("delete history %d: %w", id, storage.ErrNotFound)
	}
	delete(s.histories, id)
	return nil
}

func (s *Store) BulkInsertHistory(_ context.Context, rows []core.AddHistoryDto) (core.BulkInsertResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Validate every reference first so a failure leaves nothing behind.
	for i, dto := range rows {
		if err := s.checkRefs(dto.ServiceID, dto.CategoryID, dto.PaymentID); err != nil {
			return core.BulkInsertResult{}, fmt.Errorf("bulk insert row %d: %w", i, err)
		}
	}

	var res core.BulkInsertResult
	for i, dto := range rows {
		rec := s.insert(dto)
		if i == 0 {
			res.InsertID = rec.id
		}
		res.AffectedRows++
	}
	return res, nil
}

func (s *Store) insert(dto core.AddHistoryDto) historyRecord {
	s.nextHist++
	rec := historyRecord{id: s.nextHist, dto: dto}
	s.histories[rec.id] = rec
	return rec
}

func (s *Store) checkRefs(serviceID, categoryID, paymentID int64) error {
	if _, ok := s.services[serviceID]; !ok {
		return fmt.Errorf("%w: service %d", storage.ErrInvalidReference, serviceID)
	}
	if _, ok := s.categories[categoryID]; !ok {
		return fmt.Errorf("%w: category %d", storage.ErrInvalidReference, categoryID)
	}
	if _, ok := s.payments[paymentID]; !ok {
		return fmt.Errorf("%w: payment %d", storage.ErrInvalidReference, paymentID)
	}
	return nil
}

func (s *Store) view(rec historyRecord) core.History {
	return core.History{
		ID:          rec.id,
		ServiceID:   rec.dto.ServiceID,
		Price:       rec.dto.Price,
		Content:     rec.dto.Content,
		HistoryDate: rec.dto.HistoryDate,
		Category:    s.categories[rec.dto.CategoryID],
		Payment:     s.payments[rec.dto.PaymentID],
	}
}
