package backend

import (
	"context"

	"ledger/internal/amqp"
	"ledger/internal/services"
	"ledger/internal/sheets"
	"ledger/internal/storage"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Result holds the Data Access Layer and the optional event broker.
type Result struct {
	Store storage.Store
	// Broker is nil when AMQP is not configured or unreachable.
	Broker  *amqp.Client
	Cleanup CleanupFunc
}

// Publisher returns the broker as an EventPublisher, or a nil interface when
// publishing is disabled.
func (r *Result) Publisher() services.EventPublisher {
	if r.Broker == nil {
		return nil
	}
	return r.Broker
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*Result, error)
	// CreateMirror returns the Google Sheets mirror, or an in-memory one when
	// no spreadsheet is configured.
	CreateMirror(ctx context.Context, config Config) (sheets.Mirror, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type Type

	SQLiteDBPath string

	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	GoogleSpreadsheetID string
	GoogleSheetName     string
}

// Type names a Data Access Layer implementation.
type Type string

const (
	SQLiteBackend Type = "sqlite"
	MemoryBackend Type = "memory"
)

func (t Type) String() string {
	return string(t)
}

func (t Type) IsValid() bool {
	switch t {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
