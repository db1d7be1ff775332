package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"ledger/internal/amqp"
	"ledger/internal/core"
	"ledger/internal/log"
	"ledger/internal/metrics"
	"ledger/internal/storage"
)

// EventPublisher announces history writes to other processes.
type EventPublisher interface {
	PublishHistoryEvent(ctx context.Context, event *amqp.HistoryEvent) error
}

// LedgerService handles the service (ledger account) entity.
type LedgerService struct {
	store storage.ServiceStore
}

func NewLedgerService(store storage.ServiceStore) *LedgerService {
	return &LedgerService{store: store}
}

func (s *LedgerService) CreateService(ctx context.Context, dto core.AddServiceDto) (*core.Service, error) {
	const op = log.OpCreateService

	svc, err := s.store.CreateService(ctx, dto)
	if err != nil {
		return nil, translate(op, err, "")
	}
	if svc == nil {
		return nil, core.UnexpectedEmptyResult(op)
	}
	return svc, nil
}

func (s *LedgerService) FindService(ctx context.Context, id int64) (*core.Service, error) {
	const op = log.OpFindService

	svc, err := s.store.FindServiceByID(ctx, id)
	if err != nil {
		return nil, translate(op, err, fmt.Sprintf("no service of id %d", id))
	}
	if svc == nil {
		return nil, core.NotFound(op, fmt.Sprintf("no service of id %d", id))
	}
	return svc, nil
}

// translate maps storage errors onto the client-facing taxonomy. An empty
// notFound message means the operation has no not-found outcome.
func translate(op string, err error, notFound string) error {
	var typed *core.Error
	switch {
	case errors.As(err, &typed):
		return typed
	case notFound != "" && errors.Is(err, storage.ErrNotFound):
		return core.NotFound(op, notFound)
	case errors.Is(err, storage.ErrInvalidReference):
		return core.InvalidArgument(op, "unknown service, category or payment", err)
	default:
		return core.DataAccessFailure(op, err)
	}
}

// publish hands event to the broker. Failures are logged and never reach the
// caller: the row is already committed locally.
func publish(ctx context.Context, p EventPublisher, event *amqp.HistoryEvent) {
	if p == nil {
		slog.DebugContext(ctx, "AMQP publisher not configured, skipping history event", "action", event.Action)
		return
	}
	err := p.PublishHistoryEvent(ctx, event)
	metrics.EventsPublished.WithLabelValues(string(event.Action), metrics.Result(err)).Inc()
	if err != nil {
		slog.ErrorContext(ctx, "Failed to publish history event",
			log.FieldComponent, log.ComponentAMQP,
			"action", event.Action,
			"ids", event.IDs,
			log.FieldError, err)
	}
}
