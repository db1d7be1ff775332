package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	PrepareContext(context.Context, string) (*sql.Stmt, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// Queries holds the SQL used by SQLiteRepository, one method per statement.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type serviceRow struct {
	ServiceID   int64
	ServiceName string
	CreateDate  string
}

type historyRow struct {
	ID          int64
	ServiceID   int64
	Price       int64
	Content     string
	HistoryDate string
	Category    string
	Payment     string
}

type CreateHistoryParams struct {
	ServiceID   int64
	Price       int64
	Content     string
	HistoryDate string
	CategoryID  int64
	PaymentID   int64
}

const createService = `
INSERT INTO service (service_name) VALUES (?)
RETURNING service_id, service_name, create_date`

func (q *Queries) CreateService(ctx context.Context, name string) (serviceRow, error) {
	var r serviceRow
	err := q.db.QueryRowContext(ctx, createService, name).Scan(&r.ServiceID, &r.ServiceName, &r.CreateDate)
	return r, err
}

const getService = `
SELECT service_id, service_name, create_date FROM service WHERE service_id = ?`

func (q *Queries) GetService(ctx context.Context, id int64) (serviceRow, error) {
	var r serviceRow
	err := q.db.QueryRowContext(ctx, getService, id).Scan(&r.ServiceID, &r.ServiceName, &r.CreateDate)
	return r, err
}

const createHistory = `
INSERT INTO history (service_id, price, content, history_date, category_id, payment_id)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING id`

func (q *Queries) CreateHistory(ctx context.Context, arg CreateHistoryParams) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, createHistory,
		arg.ServiceID, arg.Price, arg.Content, arg.HistoryDate, arg.CategoryID, arg.PaymentID,
	).Scan(&id)
	return id, err
}

const insertHistory = `
INSERT INTO history (service_id, price, content, history_date, category_id, payment_id)
VALUES (?, ?, ?, ?, ?, ?)`

// PrepareInsertHistory returns a statement reused for every row of a bulk insert.
func (q *Queries) PrepareInsertHistory(ctx context.Context) (*sql.Stmt, error) {
	return q.db.PrepareContext(ctx, insertHistory)
}

const selectHistory = `
SELECT h.id, h.service_id, h.price, h.content, h.history_date, c.name, p.name
FROM history h
JOIN category c ON c.category_id = h.category_id
JOIN payment p ON p.payment_id = h.payment_id`

const getHistory = selectHistory + `
WHERE h.id = ?`

func (q *Queries) GetHistory(ctx context.Context, id int64) (historyRow, error) {
	var r historyRow
	err := q.db.QueryRowContext(ctx, getHistory, id).Scan(
		&r.ID, &r.ServiceID, &r.Price, &r.Content, &r.HistoryDate, &r.Category, &r.Payment)
	return r, err
}

const getHistoriesByRange = selectHistory + `
WHERE h.service_id = ? AND h.history_date >= ? AND h.history_date < ?
ORDER BY h.history_date, h.id`

func (q *Queries) GetHistoriesByRange(ctx context.Context, serviceID int64, start, end string) ([]historyRow, error) {
	rows, err := q.db.QueryContext(ctx, getHistoriesByRange, serviceID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []historyRow
	for rows.Next() {
		var r historyRow
		if err := rows.Scan(&r.ID, &r.ServiceID, &r.Price, &r.Content, &r.HistoryDate, &r.Category, &r.Payment); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// UpdateHistory sets only the given columns. Column names come from
// historyColumns and are never taken from client input.
func (q *Queries) UpdateHistory(ctx context.Context, id int64, columns []string, values []any) (int64, error) {
	if len(columns) == 0 {
		return 0, fmt.Errorf("update history %d: no columns", id)
	}
	sets := make([]string, 0, len(columns)+1)
	for _, c := range columns {
		sets = append(sets, c+" = ?")
	}
	sets = append(sets, "updated_at = CURRENT_TIMESTAMP")

	query := "UPDATE history SET " + strings.Join(sets, ", ") + " WHERE id = ?"
	args := append(append([]any(nil), values...), id)

	res, err := q.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteHistory = `DELETE FROM history WHERE id = ?`

func (q *Queries) DeleteHistory(ctx context.Context, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteHistory, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
