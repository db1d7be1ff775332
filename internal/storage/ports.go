package storage

import (
	"context"
	"errors"

	"ledger/internal/core"
)

var (
	// ErrNotFound is returned when a lookup, update or removal matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrInvalidReference is returned when a write names a service, category
	// or payment that does not exist.
	ErrInvalidReference = errors.New("referenced record does not exist")
)

// Ports implemented by every Data Access Layer backend.
type (
	ServiceStore interface {
		CreateService(ctx context.Context, dto core.AddServiceDto) (*core.Service, error)
		FindServiceByID(ctx context.Context, id int64) (*core.Service, error)
	}

	HistoryStore interface {
		CreateHistory(ctx context.Context, dto core.AddHistoryDto) (*core.History, error)
		FindHistoryByID(ctx context.Context, id int64) (*core.History, error)
		FindHistoryByMonth(ctx context.Context, q core.MonthQuery) ([]core.History, error)
		// UpdateHistory applies only the fields present in edit.Changes().
		UpdateHistory(ctx context.Context, id int64, edit core.EditHistoryDto) (*core.History, error)
		RemoveHistory(ctx context.Context, id int64) error
		// BulkInsertHistory writes all rows in one transaction.
		BulkInsertHistory(ctx context.Context, rows []core.AddHistoryDto) (core.BulkInsertResult, error)
	}

	Store interface {
		ServiceStore
		HistoryStore
		Ping(ctx context.Context) error
		Close() error
	}
)
