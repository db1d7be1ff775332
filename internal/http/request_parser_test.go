package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"ledger/internal/core"
)

func TestParseIDParam(t *testing.T) {
	tests := []struct {
		value   string
		want    int64
		wantErr bool
	}{
		{"1", 1, false},
		{"42", 42, false},
		{"0", 0, true},
		{"-1", 0, true},
		{"abc", 0, true},
		{"1e3", 0, true},
		{"", 0, true},
		{"99999999999999999999", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.SetPathValue("id", tt.value)

			got, err := parseIDParam(r, "op", "id")
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				if core.KindOf(err) != core.KindInvalidArgument {
					t.Errorf("kind = %s", core.KindOf(err))
				}
				return
			}
			if got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestParseMonthQuery(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.SetPathValue("serviceId", "1")
	r.SetPathValue("year", "2020")
	r.SetPathValue("month", "8")

	q, err := parseMonthQuery(r, "op")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := (core.MonthQuery{ServiceID: 1, Year: 2020, Month: 8}); q != want {
		t.Errorf("got %+v, want %+v", q, want)
	}
}

func editRequest(body string) *http.Request {
	return httptest.NewRequest(http.MethodPut, "/history/1", strings.NewReader(body))
}

func TestDecodeEdit(t *testing.T) {
	tests := []struct {
		name string
		body string
		want map[string]any
	}{
		{
			name: "canonical keys",
			body: `{"price":5,"content":"rent"}`,
			want: map[string]any{core.FieldPrice: core.Price(5), core.FieldContent: "rent"},
		},
		{
			name: "aliases",
			body: `{"category":2,"payment":3}`,
			want: map[string]any{core.FieldCategoryID: int64(2), core.FieldPaymentID: int64(3)},
		},
		{
			name: "canonical wins over alias",
			body: `{"category":2,"category_id":4}`,
			want: map[string]any{core.FieldCategoryID: int64(4)},
		},
		{
			name: "nulls and unknown keys dropped",
			body: `{"price":7,"content":null,"note":"x"}`,
			want: map[string]any{core.FieldPrice: core.Price(7)},
		},
		{
			name: "date alias",
			body: `{"historyDate":"2021-01-31"}`,
			want: map[string]any{core.FieldHistoryDate: core.NewDate(2021, 1, 31)},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			edit, err := decodeEdit(httptest.NewRecorder(), editRequest(tt.body), "op")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			got := edit.Changes()
			if len(got) != len(tt.want) {
				t.Fatalf("changes = %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("%s = %v, want %v", k, got[k], v)
				}
			}
		})
	}
}

func TestDecodeEditErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		is   error
	}{
		{"empty object", `{}`, core.ErrNoChanges},
		{"unknown only", `{"note":"x"}`, core.ErrNoChanges},
		{"negative price", `{"price":-1}`, core.ErrInvalidPrice},
		{"blank content", `{"content":""}`, core.ErrEmptyContent},
		{"bad category", `{"category_id":0}`, core.ErrInvalidCategoryID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := decodeEdit(httptest.NewRecorder(), editRequest(tt.body), "op")
			if err == nil {
				t.Fatal("expected error")
			}
			if core.KindOf(err) != core.KindInvalidArgument {
				t.Errorf("kind = %s", core.KindOf(err))
			}
			if !errors.Is(err, tt.is) {
				t.Errorf("err = %v, want %v", err, tt.is)
			}
		})
	}
}

func TestDecodeBodyTooLarge(t *testing.T) {
	big := `{"service_name":"` + strings.Repeat("a", maxBodyBytes) + `"}`
	r := httptest.NewRequest(http.MethodPost, "/service", strings.NewReader(big))

	_, err := decodeAddService(httptest.NewRecorder(), r, "op")
	if core.KindOf(err) != core.KindInvalidArgument {
		t.Errorf("err = %v, want invalid argument", err)
	}
}

func TestDecodeBulkEmpty(t *testing.T) {
	r := httptest.NewRequest(http.MethodPost, "/history/bulk", strings.NewReader(`{"data":[]}`))

	_, err := decodeBulk(httptest.NewRecorder(), r, "op")
	if !errors.Is(err, core.ErrEmptyBulk) {
		t.Errorf("err = %v, want ErrEmptyBulk", err)
	}
}
