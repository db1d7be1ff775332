package sheets

import (
	"context"
	"errors"

	"ledger/internal/core"
)

// ErrNotConfigured is returned by adapters missing their remote service.
var ErrNotConfigured = errors.New("sheets service not initialized")

// Row is the spreadsheet copy of one history record.
type Row struct {
	HistoryID int64
	ServiceID int64
	Date      core.Date
	Content   string
	Price     core.Price
	Category  string
	Payment   string
}

func RowFromHistory(h core.History) Row {
	return Row{
		HistoryID: h.ID,
		ServiceID: h.ServiceID,
		Date:      h.HistoryDate,
		Content:   h.Content,
		Price:     h.Price,
		Category:  h.Category,
		Payment:   h.Payment,
	}
}

// Values returns the row in column order A..G.
func (r Row) Values() []any {
	return []any{r.HistoryID, r.ServiceID, r.Date.String(), r.Content, int64(r.Price), r.Category, r.Payment}
}

// Ports for outbound adapters.
type (
	RowWriter interface {
		// UpsertRow writes r over the existing row for r.HistoryID, or appends it.
		UpsertRow(ctx context.Context, r Row) (rowRef string, err error)
	}

	RowClearer interface {
		// ClearRow blanks the row of historyID. A missing row is not an error.
		ClearRow(ctx context.Context, historyID int64) error
	}

	Mirror interface {
		RowWriter
		RowClearer
	}
)
