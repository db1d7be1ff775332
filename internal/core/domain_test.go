package core

import (
	"strings"
	"testing"
)

func validHistory() AddHistoryDto {
	return AddHistoryDto{
		ServiceID:   1,
		Price:       12000,
		Content:     "groceries",
		HistoryDate: NewDate(2020, 8, 14),
		CategoryID:  2,
		PaymentID:   3,
	}
}

func TestAddServiceDtoValidate(t *testing.T) {
	cases := []struct {
		name string
		in   string
		ok   bool
	}{
		{"plain", "woowahan service", true},
		{"blank", "   ", false},
		{"empty", "", false},
		{"too long", strings.Repeat("a", 101), false},
	}
	for _, tc := range cases {
		err := AddServiceDto{ServiceName: tc.in}.Validate()
		if tc.ok && err != nil {
			t.Fatalf("%s: expected ok, got %v", tc.name, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
	}
}

func TestAddHistoryDtoValidate(t *testing.T) {
	if err := validHistory().Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := map[string]func(d *AddHistoryDto){
		"missing service":  func(d *AddHistoryDto) { d.ServiceID = 0 },
		"zero price":       func(d *AddHistoryDto) { d.Price = 0 },
		"negative price":   func(d *AddHistoryDto) { d.Price = -5 },
		"empty content":    func(d *AddHistoryDto) { d.Content = " " },
		"long content":     func(d *AddHistoryDto) { d.Content = strings.Repeat("x", 201) },
		"missing date":     func(d *AddHistoryDto) { d.HistoryDate = Date{} },
		"missing category": func(d *AddHistoryDto) { d.CategoryID = 0 },
		"missing payment":  func(d *AddHistoryDto) { d.PaymentID = -1 },
	}
	for name, mutate := range bads {
		d := validHistory()
		mutate(&d)
		if err := d.Validate(); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestEditHistoryDtoChangesDropsUnsupplied(t *testing.T) {
	price := Price(5)
	edit := EditHistoryDto{Price: &price}

	changes := edit.Changes()
	if len(changes) != 1 {
		t.Fatalf("expected exactly one change, got %v", changes)
	}
	if got, ok := changes[FieldPrice]; !ok || got != Price(5) {
		t.Fatalf("price change = %v (present=%v), want 5", got, ok)
	}
	if _, ok := changes[FieldContent]; ok {
		t.Fatalf("content must not be forwarded when not supplied")
	}
}

func TestEditHistoryDtoValidate(t *testing.T) {
	if err := (EditHistoryDto{}).Validate(); err != ErrNoChanges {
		t.Fatalf("empty edit: got %v, want ErrNoChanges", err)
	}

	empty := ""
	if err := (EditHistoryDto{Content: &empty}).Validate(); err != ErrEmptyContent {
		t.Fatalf("blank content: got %v, want ErrEmptyContent", err)
	}

	zero := int64(0)
	if err := (EditHistoryDto{CategoryID: &zero}).Validate(); err != ErrInvalidCategoryID {
		t.Fatalf("zero category: got %v", err)
	}

	content := "rent"
	if err := (EditHistoryDto{Content: &content}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
}

func TestMonthQuery(t *testing.T) {
	q := MonthQuery{ServiceID: 1, Year: 2020, Month: 12}
	if err := q.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	start, end := q.Range()
	if start.String() != "2020-12-01" || end.String() != "2021-01-01" {
		t.Fatalf("range = [%s, %s)", start, end)
	}

	bads := []MonthQuery{
		{ServiceID: 0, Year: 2020, Month: 1},
		{ServiceID: 1, Year: 0, Month: 1},
		{ServiceID: 1, Year: 2020, Month: 0},
		{ServiceID: 1, Year: 2020, Month: 13},
	}
	for i, b := range bads {
		if err := b.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}
