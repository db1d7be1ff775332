package core

import (
	"errors"
	"strings"
	"time"
)

const (
	maxServiceNameLen = 100
	maxContentLen     = 200
)

type (
	// Service is a ledger account. Histories always belong to one service.
	Service struct {
		ID         int64  `json:"service_id"`
		Name       string `json:"service_name"`
		CreateDate Date   `json:"create_date"`
	}

	// History is a single ledger transaction as returned to clients.
	// Category and Payment carry display names, not identifiers.
	History struct {
		ID          int64  `json:"id"`
		ServiceID   int64  `json:"-"`
		Price       Price  `json:"price"`
		Content     string `json:"content"`
		HistoryDate Date   `json:"historyDate"`
		Category    string `json:"category"`
		Payment     string `json:"payment"`
	}

	AddServiceDto struct {
		ServiceName string `json:"service_name"`
	}

	AddHistoryDto struct {
		ServiceID   int64  `json:"service_id"`
		Price       Price  `json:"price"`
		Content     string `json:"content"`
		HistoryDate Date   `json:"history_date"`
		CategoryID  int64  `json:"category_id"`
		PaymentID   int64  `json:"payment_id"`
	}

	// EditHistoryDto describes a partial update. A nil field was not supplied
	// by the client and must not reach the store.
	EditHistoryDto struct {
		Price       *Price  `json:"price,omitempty"`
		Content     *string `json:"content,omitempty"`
		HistoryDate *Date   `json:"history_date,omitempty"`
		CategoryID  *int64  `json:"category_id,omitempty"`
		PaymentID   *int64  `json:"payment_id,omitempty"`
	}

	// MonthQuery selects the histories of one service within a calendar month.
	MonthQuery struct {
		ServiceID int64 `json:"serviceId"`
		Year      int   `json:"year"`
		Month     int   `json:"month"`
	}

	// BulkInsertResult is the aggregate outcome of a set-based insert.
	// InsertID is the identifier of the first row written.
	BulkInsertResult struct {
		InsertID     int64 `json:"insertId"`
		AffectedRows int64 `json:"affectedRows"`
	}
)

// Names of the editable history fields, as they appear in EditHistoryDto.Changes.
const (
	FieldPrice       = "price"
	FieldContent     = "content"
	FieldHistoryDate = "history_date"
	FieldCategoryID  = "category_id"
	FieldPaymentID   = "payment_id"
)

var (
	ErrEmptyServiceName   = errors.New("service_name is required")
	ErrServiceNameTooLong = errors.New("service_name too long (max 100 characters)")
	ErrInvalidServiceID   = errors.New("service_id must be a positive integer")
	ErrInvalidCategoryID  = errors.New("category_id must be a positive integer")
	ErrInvalidPaymentID   = errors.New("payment_id must be a positive integer")
	ErrEmptyContent       = errors.New("content is required")
	ErrContentTooLong     = errors.New("content too long (max 200 characters)")
	ErrMissingDate        = errors.New("history_date is required")
	ErrInvalidMonth       = errors.New("month must be between 1 and 12")
	ErrInvalidYear        = errors.New("year must be between 1 and 9999")
	ErrNoChanges          = errors.New("no fields to update")
	ErrEmptyBulk          = errors.New("data must contain at least one history")
)

func (d AddServiceDto) Validate() error {
	name := strings.TrimSpace(d.ServiceName)
	if name == "" {
		return ErrEmptyServiceName
	}
	if len(name) > maxServiceNameLen {
		return ErrServiceNameTooLong
	}
	return nil
}

func (d AddHistoryDto) Validate() error {
	if d.ServiceID <= 0 {
		return ErrInvalidServiceID
	}
	if err := d.Price.Validate(); err != nil {
		return err
	}
	if err := validateContent(d.Content); err != nil {
		return err
	}
	if d.HistoryDate.IsZero() {
		return ErrMissingDate
	}
	if d.CategoryID <= 0 {
		return ErrInvalidCategoryID
	}
	if d.PaymentID <= 0 {
		return ErrInvalidPaymentID
	}
	return nil
}

// Validate checks only the supplied fields; an edit with nothing supplied is rejected.
func (d EditHistoryDto) Validate() error {
	if d.IsEmpty() {
		return ErrNoChanges
	}
	if d.Price != nil {
		if err := d.Price.Validate(); err != nil {
			return err
		}
	}
	if d.Content != nil {
		if err := validateContent(*d.Content); err != nil {
			return err
		}
	}
	if d.HistoryDate != nil && d.HistoryDate.IsZero() {
		return ErrMissingDate
	}
	if d.CategoryID != nil && *d.CategoryID <= 0 {
		return ErrInvalidCategoryID
	}
	if d.PaymentID != nil && *d.PaymentID <= 0 {
		return ErrInvalidPaymentID
	}
	return nil
}

func (d EditHistoryDto) IsEmpty() bool {
	return d.Price == nil && d.Content == nil && d.HistoryDate == nil &&
		d.CategoryID == nil && d.PaymentID == nil
}

// Changes returns only the supplied fields keyed by their Field* name.
func (d EditHistoryDto) Changes() map[string]any {
	out := make(map[string]any, 5)
	if d.Price != nil {
		out[FieldPrice] = *d.Price
	}
	if d.Content != nil {
		out[FieldContent] = *d.Content
	}
	if d.HistoryDate != nil {
		out[FieldHistoryDate] = *d.HistoryDate
	}
	if d.CategoryID != nil {
		out[FieldCategoryID] = *d.CategoryID
	}
	if d.PaymentID != nil {
		out[FieldPaymentID] = *d.PaymentID
	}
	return out
}

func (q MonthQuery) Validate() error {
	if q.ServiceID <= 0 {
		return ErrInvalidServiceID
	}
	if q.Year < 1 || q.Year > 9999 {
		return ErrInvalidYear
	}
	if q.Month < 1 || q.Month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// Range returns the half-open interval [first day of month, first day of next month).
func (q MonthQuery) Range() (start, end Date) {
	first := time.Date(q.Year, time.Month(q.Month), 1, 0, 0, 0, 0, time.UTC)
	return Date{Time: first}, Date{Time: first.AddDate(0, 1, 0)}
}

func validateContent(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return ErrEmptyContent
	}
	if len(s) > maxContentLen {
		return ErrContentTooLong
	}
	return nil
}
