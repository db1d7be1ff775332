package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"ledger/internal/core"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// SQLiteRepository is the Data Access Layer backed by a SQLite file.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

var _ Store = (*SQLiteRepository)(nil)

// historyColumns maps editable DTO fields to their column. Fields missing
// from this table can never reach an UPDATE statement.
var historyColumns = []struct {
	field  string
	column string
}{
	{core.FieldPrice, "price"},
	{core.FieldContent, "content"},
	{core.FieldHistoryDate, "history_date"},
	{core.FieldCategoryID, "category_id"},
	{core.FieldPaymentID, "payment_id"},
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Migrations use their own connection and must finish before the pool opens.
	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) CreateService(ctx context.Context, dto core.AddServiceDto) (*core.Service, error) {
	row, err := r.queries.CreateService(ctx, dto.ServiceName)
	if err != nil {
		return nil, fmt.Errorf("create service: %w", translate(err))
	}

	slog.InfoContext(ctx, "Service saved to SQLite", "service_id", row.ServiceID, "service_name", row.ServiceName)
	return toService(row)
}

func (r *SQLiteRepository) FindServiceByID(ctx context.Context, id int64) (*core.Service, error) {
	row, err := r.queries.GetService(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get service %d: %w", id, translate(err))
	}
	return toService(row)
}

func (r *SQLiteRepository) CreateHistory(ctx context.Context, dto core.AddHistoryDto) (*core.History, error) {
	id, err := r.queries.CreateHistory(ctx, createParams(dto))
	if err != nil {
		return nil, fmt.Errorf("create history: %w", translate(err))
	}

	slog.InfoContext(ctx, "History saved to SQLite",
		"id", id,
		"service_id", dto.ServiceID,
		"price", int64(dto.Price),
		"history_date", dto.HistoryDate.String())

	return r.FindHistoryByID(ctx, id)
}

func (r *SQLiteRepository) FindHistoryByID(ctx context.Context, id int64) (*core.History, error) {
	row, err := r.queries.GetHistory(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get history %d: %w", id, translate(err))
	}
	return toHistory(row)
}

func (r *SQLiteRepository) FindHistoryByMonth(ctx context.Context, q core.MonthQuery) ([]core.History, error) {
	start, end := q.Range()
	rows, err := r.queries.GetHistoriesByRange(ctx, q.ServiceID, start.String(), end.String())
	if err != nil {
		return nil, fmt.Errorf("get histories by month (service=%d, %d-%d): %w", q.ServiceID, q.Year, q.Month, translate(err))
	}

	items := make([]core.History, 0, len(rows))
	for _, row := range rows {
		h, err := toHistory(row)
		if err != nil {
			return nil, err
		}
		items = append(items, *h)
	}
	return items, nil
}

func (r *SQLiteRepository) UpdateHistory(ctx context.Context, id int64, edit core.EditHistoryDto) (*core.History, error) {
	changes := edit.Changes()
	columns := make([]string, 0, len(changes))
	values := make([]any, 0, len(changes))
	for _, hc := range historyColumns {
		v, ok := changes[hc.field]
		if !ok {
			continue
		}
		columns = append(columns, hc.column)
		values = append(values, columnValue(v))
	}

	affected, err := r.queries.UpdateHistory(ctx, id, columns, values)
	if err != nil {
		return nil, fmt.Errorf("update history %d: %w", id, translate(err))
	}
	if affected == 0 {
		return nil, fmt.Errorf("update history %d: %w", id, ErrNotFound)
	}

	slog.InfoContext(ctx, "History updated in SQLite", "id", id, "columns", columns)
	return r.FindHistoryByID(ctx, id)
}

func (r *SQLiteRepository) RemoveHistory(ctx context.Context, id int64) error {
	affected, err := r.queries.DeleteHistory(ctx, id)
	if err != nil {
		return fmt.Errorf("delete history %d: %w", id, translate(err))
	}
	if affected == 0 {
		return fmt.Errorf("delete history %d: %w", id, ErrNotFound)
	}

	slog.InfoContext(ctx, "History removed from SQLite", "id", id)
	return nil
}

func (r *SQLiteRepository) BulkInsertHistory(ctx context.Context, rows []core.AddHistoryDto) (core.BulkInsertResult, error) {
	var result core.BulkInsertResult

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return result, fmt.Errorf("begin bulk insert: %w", translate(err))
	}
	defer tx.Rollback()

	stmt, err := r.queries.WithTx(tx).PrepareInsertHistory(ctx)
	if err != nil {
		return result, fmt.Errorf("prepare bulk insert: %w", translate(err))
	}
	defer stmt.Close()

	for i, dto := range rows {
		p := createParams(dto)
		res, err := stmt.ExecContext(ctx, p.ServiceID, p.Price, p.Content, p.HistoryDate, p.CategoryID, p.PaymentID)
		if err != nil {
			return core.BulkInsertResult{}, fmt.Errorf("bulk insert row %d: %w", i, translate(err))
		}
		if i == 0 {
			if result.InsertID, err = res.LastInsertId(); err != nil {
				return core.BulkInsertResult{}, fmt.Errorf("bulk insert id: %w", err)
			}
		}
		n, err := res.RowsAffected()
		if err != nil {
			return core.BulkInsertResult{}, fmt.Errorf("bulk insert rows affected: %w", err)
		}
		result.AffectedRows += n
	}

	if err := tx.Commit(); err != nil {
		return core.BulkInsertResult{}, fmt.Errorf("commit bulk insert: %w", translate(err))
	}

	slog.InfoContext(ctx, "Histories bulk inserted into SQLite",
		"insert_id", result.InsertID,
		"affected_rows", result.AffectedRows)
	return result, nil
}

func createParams(dto core.AddHistoryDto) CreateHistoryParams {
	return CreateHistoryParams{
		ServiceID:   dto.ServiceID,
		Price:       int64(dto.Price),
		Content:     dto.Content,
		HistoryDate: dto.HistoryDate.String(),
		CategoryID:  dto.CategoryID,
		PaymentID:   dto.PaymentID,
	}
}

func columnValue(v any) any {
	switch val := v.(type) {
	case core.Price:
		return int64(val)
	case core.Date:
		return val.String()
	default:
		return val
	}
}

func toService(row serviceRow) (*core.Service, error) {
	created, err := core.ParseDate(row.CreateDate)
	if err != nil {
		return nil, fmt.Errorf("service %d create_date %q: %w", row.ServiceID, row.CreateDate, err)
	}
	return &core.Service{ID: row.ServiceID, Name: row.ServiceName, CreateDate: created}, nil
}

func toHistory(row historyRow) (*core.History, error) {
	date, err := core.ParseDate(row.HistoryDate)
	if err != nil {
		return nil, fmt.Errorf("history %d history_date %q: %w", row.ID, row.HistoryDate, err)
	}
	return &core.History{
		ID:          row.ID,
		ServiceID:   row.ServiceID,
		Price:       core.Price(row.Price),
		Content:     row.Content,
		HistoryDate: date,
		Category:    row.Category,
		Payment:     row.Payment,
	}, nil
}

// translate maps driver errors onto the package sentinels while keeping the
// original error in the chain.
func translate(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var se *sqlite.Error
	if errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY {
		return fmt.Errorf("%w: %v", ErrInvalidReference, err)
	}
	return err
}
