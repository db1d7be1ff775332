// Request normalization: turns route parameters and JSON bodies into the
// DTOs the services accept, or into an InvalidArgument error. Nothing here
// touches the store.

package http

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"ledger/internal/core"
)

const maxBodyBytes = 1 << 20

var errBodyTooLarge = errors.New("request body too large")

// parseIDParam reads a positive integer route parameter.
func parseIDParam(r *http.Request, op, name string) (int64, error) {
	raw := r.PathValue(name)
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, core.InvalidArgument(op, fmt.Sprintf("invalid %s: %q", name, raw), err)
	}
	return id, nil
}

func parseIntParam(r *http.Request, op, name string) (int, error) {
	raw := r.PathValue(name)
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, core.InvalidArgument(op, fmt.Sprintf("invalid %s: %q", name, raw), err)
	}
	return n, nil
}

func parseMonthQuery(r *http.Request, op string) (core.MonthQuery, error) {
	serviceID, err := parseIDParam(r, op, "serviceId")
	if err != nil {
		return core.MonthQuery{}, err
	}
	year, err := parseIntParam(r, op, "year")
	if err != nil {
		return core.MonthQuery{}, err
	}
	month, err := parseIntParam(r, op, "month")
	if err != nil {
		return core.MonthQuery{}, err
	}

	q := core.MonthQuery{ServiceID: serviceID, Year: year, Month: month}
	if err := q.Validate(); err != nil {
		return core.MonthQuery{}, core.InvalidArgument(op, err.Error(), err)
	}
	return q, nil
}

// readBody returns the request body, capped at maxBodyBytes.
func readBody(w http.ResponseWriter, r *http.Request, op string) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, core.InvalidArgument(op, errBodyTooLarge.Error(), err)
		}
		return nil, core.InvalidArgument(op, "unreadable request body", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, core.InvalidArgument(op, "request body is required", nil)
	}
	return body, nil
}

func decodeJSON(w http.ResponseWriter, r *http.Request, op string, dst any) error {
	body, err := readBody(w, r, op)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return core.InvalidArgument(op, "invalid JSON body: "+jsonErrorDetail(err), err)
	}
	return nil
}

func jsonErrorDetail(err error) string {
	switch {
	case errors.Is(err, core.ErrInvalidDate):
		return core.ErrInvalidDate.Error()
	case errors.Is(err, core.ErrInvalidPrice), errors.Is(err, core.ErrFractionalPrice):
		return "invalid price"
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return fmt.Sprintf("field %s has the wrong type", typeErr.Field)
	}
	return "malformed"
}

func decodeAddService(w http.ResponseWriter, r *http.Request, op string) (core.AddServiceDto, error) {
	var dto core.AddServiceDto
	if err := decodeJSON(w, r, op, &dto); err != nil {
		return dto, err
	}
	dto.ServiceName = strings.TrimSpace(dto.ServiceName)
	if err := dto.Validate(); err != nil {
		return dto, core.InvalidArgument(op, err.Error(), err)
	}
	return dto, nil
}

func decodeAddHistory(w http.ResponseWriter, r *http.Request, op string) (core.AddHistoryDto, error) {
	var dto core.AddHistoryDto
	if err := decodeJSON(w, r, op, &dto); err != nil {
		return dto, err
	}
	if err := dto.Validate(); err != nil {
		return dto, core.InvalidArgument(op, err.Error(), err)
	}
	return dto, nil
}

type bulkBody struct {
	Data []core.AddHistoryDto `json:"data"`
}

func decodeBulk(w http.ResponseWriter, r *http.Request, op string) ([]core.AddHistoryDto, error) {
	var body bulkBody
	if err := decodeJSON(w, r, op, &body); err != nil {
		return nil, err
	}
	if len(body.Data) == 0 {
		return nil, core.InvalidArgument(op, core.ErrEmptyBulk.Error(), core.ErrEmptyBulk)
	}
	for i, dto := range body.Data {
		if err := dto.Validate(); err != nil {
			return nil, core.InvalidArgument(op, fmt.Sprintf("data[%d]: %v", i, err), err)
		}
	}
	return body.Data, nil
}

// editAliases maps each accepted update key to its canonical field. The
// short names are what older clients send.
var editAliases = map[string]string{
	core.FieldPrice:       core.FieldPrice,
	core.FieldContent:     core.FieldContent,
	core.FieldHistoryDate: core.FieldHistoryDate,
	"historyDate":         core.FieldHistoryDate,
	core.FieldCategoryID:  core.FieldCategoryID,
	"category":            core.FieldCategoryID,
	core.FieldPaymentID:   core.FieldPaymentID,
	"payment":             core.FieldPaymentID,
}

// decodeEdit builds an EditHistoryDto holding exactly the keys the client
// sent. Absent and null keys stay nil; unknown keys are ignored. When a
// canonical key and its alias are both present the canonical key wins.
func decodeEdit(w http.ResponseWriter, r *http.Request, op string) (core.EditHistoryDto, error) {
	var edit core.EditHistoryDto

	body, err := readBody(w, r, op)
	if err != nil {
		return edit, err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return edit, core.InvalidArgument(op, "invalid JSON body: "+jsonErrorDetail(err), err)
	}

	picked := map[string]json.RawMessage{}
	for key, value := range raw {
		field, ok := editAliases[key]
		if !ok || isNull(value) {
			continue
		}
		if _, dup := picked[field]; dup && key != field {
			continue
		}
		picked[field] = value
	}

	for field, value := range picked {
		var err error
		switch field {
		case core.FieldPrice:
			edit.Price = new(core.Price)
			err = json.Unmarshal(value, edit.Price)
		case core.FieldContent:
			edit.Content = new(string)
			err = json.Unmarshal(value, edit.Content)
		case core.FieldHistoryDate:
			edit.HistoryDate = new(core.Date)
			err = json.Unmarshal(value, edit.HistoryDate)
		case core.FieldCategoryID:
			edit.CategoryID = new(int64)
			err = json.Unmarshal(value, edit.CategoryID)
		case core.FieldPaymentID:
			edit.PaymentID = new(int64)
			err = json.Unmarshal(value, edit.PaymentID)
		}
		if err != nil {
			return core.EditHistoryDto{}, core.InvalidArgument(op, fmt.Sprintf("invalid %s", field), err)
		}
	}

	if edit.IsEmpty() {
		return edit, core.InvalidArgument(op, core.ErrNoChanges.Error(), core.ErrNoChanges)
	}
	if err := edit.Validate(); err != nil {
		return edit, core.InvalidArgument(op, err.Error(), err)
	}
	return edit, nil
}

func isNull(v json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}
