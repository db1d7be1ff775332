package services

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"ledger/internal/amqp"
	"ledger/internal/cache"
	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/metrics"
	"ledger/internal/storage"
)

// monthLookupTimeout bounds a shared month lookup, which outlives any single
// caller's request.
const monthLookupTimeout = 10 * time.Second

// HistoryService handles the history entity: one store call per operation,
// a month-lookup cache invalidated on every write, and a ledger event after
// each successful write.
type HistoryService struct {
	store     storage.HistoryStore
	publisher EventPublisher
	months    *cache.LRUCache[[]core.History]
	group     singleflight.Group

	// generations advance on every write. A lookup started under an older
	// generation neither joins newer lookups nor fills the cache.
	genMu       sync.Mutex
	purges      uint64
	generations map[int64]uint64
}

// NewHistoryService wires the service. publisher and months may be nil.
func NewHistoryService(store storage.HistoryStore, publisher EventPublisher, months *cache.LRUCache[[]core.History]) *HistoryService {
	return &HistoryService{
		store:       store,
		publisher:   publisher,
		months:      months,
		generations: make(map[int64]uint64),
	}
}

func (s *HistoryService) CreateHistory(ctx context.Context, dto core.AddHistoryDto) (*core.History, error) {
	const op = log.OpCreateHistory

	h, err := s.store.CreateHistory(ctx, dto)
	if err != nil {
		return nil, translate(op, err, "")
	}
	if h == nil {
		return nil, core.UnexpectedEmptyResult(op)
	}

	s.invalidateService(dto.ServiceID)
	publish(ctx, s.publisher, amqp.NewHistoryEvent(amqp.ActionCreated, dto.ServiceID, h.ID))
	return h, nil
}

// FindByMonth returns the histories of q's service in q's month. Concurrent
// identical lookups share one store call.
func (s *HistoryService) FindByMonth(ctx context.Context, q core.MonthQuery) ([]core.History, error) {
	const op = log.OpFindByMonth
	key := monthKey(q)

	if s.months != nil {
		if rows, ok := s.months.Get(key); ok {
			metrics.CacheLookups.WithLabelValues("hit").Inc()
			return slices.Clone(rows), nil
		}
		metrics.CacheLookups.WithLabelValues("miss").Inc()
	}

	gen := s.generation(q.ServiceID)
	ch := s.group.DoChan(fmt.Sprintf("%s#%d", key, gen), func() (any, error) {
		lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), monthLookupTimeout)
		defer cancel()

		rows, err := s.store.FindHistoryByMonth(lookupCtx, q)
		if err != nil {
			return nil, err
		}
		if rows == nil {
			rows = []core.History{}
		}
		s.cacheIfCurrent(key, q.ServiceID, gen, rows)
		return rows, nil
	})

	select {
	case <-ctx.Done():
		return nil, translate(op, ctx.Err(), "")
	case res := <-ch:
		if res.Err != nil {
			return nil, translate(op, res.Err, "")
		}
		if res.Shared {
			slog.DebugContext(ctx, "Month lookup shared with concurrent caller", log.FieldServiceID, q.ServiceID)
		}
		return slices.Clone(res.Val.([]core.History)), nil
	}
}

func (s *HistoryService) UpdateHistory(ctx context.Context, id int64, edit core.EditHistoryDto) (*core.History, error) {
	const op = log.OpUpdateHistory

	h, err := s.store.UpdateHistory(ctx, id, edit)
	if err != nil {
		return nil, translate(op, err, fmt.Sprintf("no history of id %d", id))
	}
	if h == nil {
		return nil, core.NotFound(op, fmt.Sprintf("no history of id %d", id))
	}

	s.invalidateService(h.ServiceID)
	publish(ctx, s.publisher, amqp.NewHistoryEvent(amqp.ActionUpdated, h.ServiceID, id))
	return h, nil
}

func (s *HistoryService) RemoveHistory(ctx context.Context, id int64) error {
	const op = log.OpRemoveHistory

	if err := s.store.RemoveHistory(ctx, id); err != nil {
		return translate(op, err, fmt.Sprintf("no history of id %d", id))
	}

	// the owning service is unknown without a second read
	s.invalidateAll()
	publish(ctx, s.publisher, amqp.NewHistoryEvent(amqp.ActionRemoved, 0, id))
	return nil
}

func (s *HistoryService) BulkInsert(ctx context.Context, rows []core.AddHistoryDto) (core.BulkInsertResult, error) {
	const op = log.OpBulkInsert

	res, err := s.store.BulkInsertHistory(ctx, rows)
	if err != nil {
		return core.BulkInsertResult{}, translate(op, err, "")
	}

	var serviceID int64
	seen := map[int64]bool{}
	for _, r := range rows {
		if !seen[r.ServiceID] {
			seen[r.ServiceID] = true
			s.invalidateService(r.ServiceID)
		}
	}
	if len(seen) == 1 {
		serviceID = rows[0].ServiceID
	}

	if res.AffectedRows > 0 {
		ids := make([]int64, 0, res.AffectedRows)
		for i := int64(0); i < res.AffectedRows; i++ {
			ids = append(ids, res.InsertID+i)
		}
		publish(ctx, s.publisher, amqp.NewHistoryEvent(amqp.ActionBulkCreated, serviceID, ids...))
	}
	return res, nil
}

func monthKey(q core.MonthQuery) string {
	return fmt.Sprintf("%d:%04d-%02d", q.ServiceID, q.Year, q.Month)
}

func (s *HistoryService) generation(serviceID int64) uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.purges + s.generations[serviceID]
}

// cacheIfCurrent stores rows unless a write to the service happened after
// the lookup captured gen.
func (s *HistoryService) cacheIfCurrent(key string, serviceID int64, gen uint64, rows []core.History) {
	if s.months == nil {
		return
	}
	s.genMu.Lock()
	defer s.genMu.Unlock()
	if s.purges+s.generations[serviceID] == gen {
		s.months.Set(key, rows)
	}
}

func (s *HistoryService) invalidateService(serviceID int64) {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	s.generations[serviceID]++
	if s.months == nil {
		return
	}
	prefix := strconv.FormatInt(serviceID, 10) + ":"
	s.months.DeleteFunc(func(key string) bool { return strings.HasPrefix(key, prefix) })
}

func (s *HistoryService) invalidateAll() {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	s.purges++
	if s.months != nil {
		s.months.Purge()
	}
}
